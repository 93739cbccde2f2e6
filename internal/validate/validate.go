// Package validate holds the field checks applied to request payloads before
// any business logic runs.
package validate

import (
	"regexp"
	"strings"
)

const (
	maxEmailLen    = 254
	minPasswordLen = 6
	// bcrypt ignores everything past 72 bytes.
	maxPasswordLen = 72
	// roles are free-form labels; the cap only bounds token size.
	maxRoleLen     = 256
)

var (
	reEmail = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
	reID    = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
)

// Email reports whether s looks like an address. The value is stored and
// matched exactly as given, so padded or re-cased input is a different email.
func Email(s string) bool {
	return len(s) <= maxEmailLen && reEmail.MatchString(s)
}

// Password enforces a length window only; it is never trimmed.
func Password(s string) bool {
	return len(s) >= minPasswordLen && len(s) <= maxPasswordLen
}

// Role accepts any label up to maxRoleLen bytes, unchanged. The empty string
// is valid here; callers substitute the default role for it.
func Role(s string) bool {
	return len(s) <= maxRoleLen
}

// ID validates a store-assigned identifier taken from a path.
func ID(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, reID.MatchString(s)
}
