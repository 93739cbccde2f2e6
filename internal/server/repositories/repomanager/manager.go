package repomanager

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/users"
)

const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// RepositoryManager owns the storage connection and vends repositories.
type RepositoryManager interface {
	RunMigrations(ctx context.Context) error
	Users() users.Repository
	Close() error
}

// New opens the store selected by name. dsn is ignored for the memory store.
func New(ctx context.Context, store, dsn string) (RepositoryManager, error) {
	switch store {
	case StoreMemory:
		return NewMemoryRepositoryManager(), nil
	case StoreSQLite:
		db, err := dbx.Open(ctx, "sqlite", dsn, dbx.DefaultOpenOptions)
		if err != nil {
			return nil, err
		}
		// SQLite serialises writers anyway; one connection also keeps
		// ":memory:" databases from splitting per connection.
		db.SetMaxOpenConns(1)
		return NewSQLRepositoryManager(db, dialectSQLite), nil
	case StorePostgres:
		db, err := dbx.Open(ctx, "pgx", dsn, dbx.DefaultOpenOptions)
		if err != nil {
			return nil, err
		}
		return NewSQLRepositoryManager(db, dialectPostgres), nil
	default:
		return nil, fmt.Errorf("unknown store %q", store)
	}
}
