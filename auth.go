package filedrop

import (
	"crypto/subtle"
	"fmt"
	"os"
	"strings"
)

// Authorizer decides whether a caller may perform admin actions. The service
// depends on this seam so stronger schemes can replace the shared secret
// without touching core logic.
type Authorizer interface {
	// AuthorizeAdmin returns nil when the presented secret grants admin
	// rights, and an error wrapping ErrUnauthorized otherwise.
	AuthorizeAdmin(secret string) error
}

// StaticSecret authorizes against a single process-wide admin secret.
type StaticSecret struct {
	secret string
}

// NewStaticSecret creates a StaticSecret authorizer. The secret must be
// non-empty; an empty server secret would make every request an admin.
func NewStaticSecret(secret string) (*StaticSecret, error) {
	if secret == "" {
		return nil, fmt.Errorf("new static secret: %w: secret cannot be empty", ErrInvalidInput)
	}
	return &StaticSecret{secret: secret}, nil
}

// NewStaticSecretFromFile reads the admin secret from a file, trimming
// surrounding whitespace.
func NewStaticSecretFromFile(path string) (*StaticSecret, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Path is from trusted config file
	if err != nil {
		return nil, fmt.Errorf("read secret file: %w", err)
	}
	return NewStaticSecret(strings.TrimSpace(string(data)))
}

// AuthorizeAdmin compares the presented secret byte-for-byte in constant
// time. Absence and mismatch are indistinguishable to the caller.
func (s *StaticSecret) AuthorizeAdmin(secret string) error {
	if secret == "" || subtle.ConstantTimeCompare([]byte(secret), []byte(s.secret)) != 1 {
		return fmt.Errorf("admin secret mismatch: %w", ErrUnauthorized)
	}
	return nil
}
