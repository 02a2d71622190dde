package iam

import (
	"fmt"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"github.com/KentSpendy/BukCare/pkg/types"
)

// PasswordManager implements password hashing and verification
type PasswordManager struct {
	cost int
}

// NewPasswordManager creates a new password manager
func NewPasswordManager() *PasswordManager {
	return &PasswordManager{
		cost: bcrypt.DefaultCost,
	}
}

// HashPassword hashes a password using bcrypt
func (pm *PasswordManager) HashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), pm.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

// VerifyPassword verifies a password against its hash
func (pm *PasswordManager) VerifyPassword(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return types.NewAuthenticationError(types.ErrCodeInvalidCredential, "Invalid email or password")
	}
	return nil
}

// ValidatePasswordStrength checks minimum password requirements
func (pm *PasswordManager) ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return types.NewValidationError(types.ErrCodeInvalidInput, "Password must be at least 8 characters", nil)
	}

	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}

	if !hasLetter || !hasDigit {
		return types.NewValidationError(types.ErrCodeInvalidInput, "Password must contain both letters and digits", nil)
	}

	return nil
}
