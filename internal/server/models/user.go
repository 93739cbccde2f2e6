// Package models holds the persistence and identity types shared by the
// server packages.
package models

// Credential is a stored user record. PasswordHash never leaves the server.
type Credential struct {
	ID           string
	Email        string
	PasswordHash string
	Role         string
}

// Public returns the view of the record that may be sent to callers.
func (c *Credential) Public() User {
	return User{ID: c.ID, Email: c.Email, Role: c.Role}
}

// User is the caller-facing projection of a Credential.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// CredentialUpdate carries the fields to change; nil means keep.
type CredentialUpdate struct {
	Email        *string
	PasswordHash *string
	Role         *string
}

// Identity is what a verified token proves about the caller.
type Identity struct {
	SubjectID string `json:"id"`
	Role      string `json:"role"`
}
