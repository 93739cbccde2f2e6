// Package repomanager selects the credential store backend, wiring repository
// constructors and database migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"
	"io/fs"

	"github.com/dmitrijs2005/gophauth/internal/server/migrations"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/users"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

const (
	dialectPostgres = goose.DialectPostgres
	dialectSQLite   = goose.DialectSQLite3
)

// SQLRepositoryManager vends SQL-backed repositories over one pool.
type SQLRepositoryManager struct {
	db      *sql.DB
	dialect goose.Dialect
	users   *users.SQLRepository
}

func NewSQLRepositoryManager(db *sql.DB, dialect goose.Dialect) *SQLRepositoryManager {
	return &SQLRepositoryManager{db: db, dialect: dialect, users: users.NewSQLRepository(db)}
}

func (m *SQLRepositoryManager) Users() users.Repository {
	return m.users
}

// gooseUp is a seam for testing the migration run.
var gooseUp = func(ctx context.Context, dialect goose.Dialect, db *sql.DB, fsys fs.FS) error {
	p, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		return err
	}
	_, err = p.Up(ctx)
	return err
}

// RunMigrations applies the embedded migrations.
func (m *SQLRepositoryManager) RunMigrations(ctx context.Context) error {
	return gooseUp(ctx, m.dialect, m.db, migrations.Migrations)
}

func (m *SQLRepositoryManager) Close() error {
	return m.db.Close()
}

// MemoryRepositoryManager keeps everything in process memory.
type MemoryRepositoryManager struct {
	users *users.MemoryRepository
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	return &MemoryRepositoryManager{users: users.NewMemoryRepository()}
}

func (m *MemoryRepositoryManager) RunMigrations(context.Context) error { return nil }

func (m *MemoryRepositoryManager) Users() users.Repository { return m.users }

func (m *MemoryRepositoryManager) Close() error { return nil }
