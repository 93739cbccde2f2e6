package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLRepository stores credentials in the users table. The queries run
// unchanged on PostgreSQL (pgx) and SQLite (modernc).
type SQLRepository struct {
	db    dbx.DBTX
	newID func() string
}

func NewSQLRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db, newID: uuid.NewString}
}

func (r *SQLRepository) Create(ctx context.Context, c *models.Credential) (*models.Credential, error) {
	query :=
		`INSERT INTO users (id, email, password_hash, role)
		 VALUES ($1, $2, $3, $4)
		 `

	stored := *c
	stored.ID = r.newID()

	_, err := r.db.ExecContext(ctx, query, stored.ID, stored.Email, stored.PasswordHash, stored.Role)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, common.ErrEmailTaken
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return &stored, nil
}

func (r *SQLRepository) FindByEmail(ctx context.Context, email string) (*models.Credential, error) {
	query :=
		`SELECT id, email, password_hash, role FROM users
		 WHERE email = $1
		 `

	return r.scanOne(r.db.QueryRowContext(ctx, query, email))
}

func (r *SQLRepository) FindByID(ctx context.Context, id string) (*models.Credential, error) {
	query :=
		`SELECT id, email, password_hash, role FROM users
		 WHERE id = $1
		 `

	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *SQLRepository) Update(ctx context.Context, id string, upd models.CredentialUpdate) (*models.Credential, error) {
	query :=
		`UPDATE users SET
		     email = COALESCE($2, email),
		     password_hash = COALESCE($3, password_hash),
		     role = COALESCE($4, role)
		 WHERE id = $1
		 RETURNING id, email, password_hash, role
		 `

	c, err := r.scanOne(r.db.QueryRowContext(ctx, query, id,
		nullable(upd.Email), nullable(upd.PasswordHash), nullable(upd.Role)))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, common.ErrEmailTaken
		}
		return nil, err
	}
	return c, nil
}

func (r *SQLRepository) DeleteByID(ctx context.Context, id string) (bool, error) {
	query := `DELETE FROM users WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}

func (r *SQLRepository) List(ctx context.Context) ([]models.Credential, error) {
	query :=
		`SELECT id, email, password_hash, role FROM users
		 ORDER BY email
		 `

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]models.Credential, 0)
	for rows.Next() {
		var c models.Credential
		if err := rows.Scan(&c.ID, &c.Email, &c.PasswordHash, &c.Role); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *SQLRepository) scanOne(row *sql.Row) (*models.Credential, error) {
	c := &models.Credential{}
	err := row.Scan(&c.ID, &c.Email, &c.PasswordHash, &c.Role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

func nullable(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.UniqueViolation
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		if code == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
			return true
		}
		// without extended result codes only the primary code is reported
		return code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(liteErr.Error(), "UNIQUE")
	}
	return false
}
