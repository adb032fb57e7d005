package auth

import (
	"context"
	"crypto/subtle"
	"fmt"

	"github.com/phrazzld/pixelforge/internal/config"
	"golang.org/x/crypto/bcrypt"
)

// PasswordVerifier defines the interface for comparing passwords.
type PasswordVerifier interface {
	// Compare compares a hashed password with its possible plaintext equivalent.
	// Returns nil on success, or an error on failure (e.g., mismatch).
	Compare(hashedPassword, password string) error
}

// BcryptVerifier implements PasswordVerifier using bcrypt.
type BcryptVerifier struct{}

// NewBcryptVerifier creates a new BcryptVerifier.
func NewBcryptVerifier() *BcryptVerifier {
	return &BcryptVerifier{}
}

// Compare implements the PasswordVerifier interface using bcrypt.
func (v *BcryptVerifier) Compare(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// HashPassword returns a bcrypt hash of password at the given cost.
// A cost outside bcrypt's range uses bcrypt.DefaultCost.
func HashPassword(password string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Authenticator checks login attempts against the single configured account.
type Authenticator struct {
	username     string
	passwordHash string
	verifier     PasswordVerifier
}

// NewAuthenticator creates an Authenticator from the auth configuration.
func NewAuthenticator(cfg config.AuthConfig, verifier PasswordVerifier) (*Authenticator, error) {
	if cfg.Username == "" || cfg.PasswordHash == "" {
		return nil, fmt.Errorf("%w: username and password hash are required", ErrAuthNotConfigured)
	}
	if verifier == nil {
		verifier = NewBcryptVerifier()
	}
	return &Authenticator{
		username:     cfg.Username,
		passwordHash: cfg.PasswordHash,
		verifier:     verifier,
	}, nil
}

// Authenticate returns ErrInvalidCredentials unless both values match.
// The password is always checked so a wrong username costs the same time.
func (a *Authenticator) Authenticate(_ context.Context, username, password string) error {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) == 1
	passErr := a.verifier.Compare(a.passwordHash, password)
	if !userOK || passErr != nil {
		return ErrInvalidCredentials
	}
	return nil
}
