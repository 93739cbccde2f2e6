package client

import (
	"context"
)

// Identity is what the server read from the presented token.
type Identity struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type Client interface {
	Close() error
	Register(ctx context.Context, email, password, role string) error
	// Login returns the session token and keeps it for later calls.
	Login(ctx context.Context, email, password string) (string, error)
	SetToken(token string)
	WhoAmI(ctx context.Context) (*Identity, error)
	ListUsers(ctx context.Context) ([]User, error)
}
