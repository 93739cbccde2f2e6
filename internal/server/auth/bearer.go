package auth

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// BearerToken extracts the token from an Authorization header value.
// An empty value is ErrTokenMissing; any other shape is ErrTokenMalformed.
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", common.ErrTokenMissing
	}

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, common.BearerScheme) {
		return "", common.ErrTokenMalformed
	}

	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", common.ErrTokenMalformed
	}
	return token, nil
}

type ctxKey struct{}

// WithIdentity stores the verified identity for downstream handlers.
func WithIdentity(ctx context.Context, id *models.Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// IdentityFromContext returns the identity placed by the gate, if any.
func IdentityFromContext(ctx context.Context) (*models.Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(*models.Identity)
	return id, ok && id != nil
}
