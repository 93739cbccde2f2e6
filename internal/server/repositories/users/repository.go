// Package users implements the credential store: the persistent mapping
// from email to password hash and role.
package users

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// Repository is the credential store contract.
//
// Lookups return common.ErrorNotFound when nothing matches. Create and
// Update return common.ErrEmailTaken when the email already belongs to
// another record; implementations enforce that atomically.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*models.Credential, error)
	FindByID(ctx context.Context, id string) (*models.Credential, error)
	// Create assigns the ID and returns the stored record.
	Create(ctx context.Context, c *models.Credential) (*models.Credential, error)
	Update(ctx context.Context, id string, upd models.CredentialUpdate) (*models.Credential, error)
	DeleteByID(ctx context.Context, id string) (bool, error)
	List(ctx context.Context) ([]models.Credential, error)
}
