// Package dbx provides tiny DB abstractions shared by repositories:
// a minimal interface (DBTX) implemented by both *sql.DB and *sql.Tx, and
// a helper that opens a pool and waits for the server to answer.
package dbx

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
)

// DBTX is the subset of database/sql used by our repos.
// Both *sql.DB and *sql.Tx satisfy this interface.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// OpenOptions controls how long Open keeps pinging a database that is not
// up yet (typical for containers started side by side).
type OpenOptions struct {
	Attempts uint64
	Backoff  time.Duration
}

var DefaultOpenOptions = OpenOptions{Attempts: 5, Backoff: 200 * time.Millisecond}

// Open opens a pool for driver/dsn and pings it until it answers or the
// attempts run out. Only the startup ping is retried.
func Open(ctx context.Context, driver, dsn string, opts OpenOptions) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	b := retry.WithMaxRetries(opts.Attempts, retry.NewExponential(opts.Backoff))
	err = retry.Do(ctx, b, func(ctx context.Context) error {
		if err := db.PingContext(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	return db, nil
}
