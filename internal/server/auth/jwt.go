// Package auth issues and verifies the HS256 session tokens that gate user
// management operations.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
)

// TokenTTL is the validity window of an issued token.
const TokenTTL = time.Hour

const issuer = "gophauth"

// Claims carries the standard claims plus the role captured at issuance.
// The subject claim holds the credential ID.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

type Issuer interface {
	Issue(subjectID, role string) (string, error)
}

type Verifier interface {
	Verify(token string) (*models.Identity, error)
}

// TokenManager signs and verifies tokens with one process-wide secret.
// Rotating the secret invalidates every outstanding token.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(secret []byte) (*TokenManager, error) {
	if len(secret) == 0 {
		return nil, errors.New("token secret is empty")
	}
	s := make([]byte, len(secret))
	copy(s, secret)
	return &TokenManager{secret: s, ttl: TokenTTL, now: time.Now}, nil
}

func (m *TokenManager) Issue(subjectID, role string) (string, error) {
	now := m.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
		Role: role,
	})

	tokenString, err := token.SignedString(m.secret)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// Verify checks the signature, then expiry, then the payload shape. Every
// failure wraps common.ErrInvalidToken; nothing ambiguous is accepted.
func (m *TokenManager) Verify(tokenString string) (*models.Identity, error) {
	claims := &Claims{}

	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) {
			return m.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(issuer),
		// exp has second precision and is inclusive: with now truncated to
		// the second, a one second leeway accepts now == exp and nothing later.
		jwt.WithTimeFunc(func() time.Time { return m.now().Truncate(time.Second) }),
		jwt.WithLeeway(time.Second),
	)
	if err != nil {
		return nil, classify(err)
	}

	if claims.Subject == "" || claims.Role == "" {
		return nil, fmt.Errorf("%w: subject or role missing", common.ErrTokenMalformed)
	}

	return &models.Identity{SubjectID: claims.Subject, Role: claims.Role}, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", common.ErrTokenMalformed, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", common.ErrTokenInvalidSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", common.ErrTokenExpired, err)
	default:
		return fmt.Errorf("%w: %v", common.ErrTokenMalformed, err)
	}
}
