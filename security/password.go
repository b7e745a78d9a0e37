package security

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const passwordSpecialChars = `!@#$%^&*()_+-=[]{};':"\|,.<>/?~` + "`"

// HashPassword hashes the password with bcrypt at the configured cost.
// The only error paths are bcrypt's own input limits (72-byte maximum).
func (g *Guard) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), g.cfg.BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches the stored hash. Any
// verification error, including a malformed hash, is treated as not
// matching rather than propagated.
func (g *Guard) VerifyPassword(password, encodedHash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password)) == nil
}

// ValidatePassword checks the candidate against the fixed policy: minimum
// length plus four character classes. Every violated rule is reported.
func (g *Guard) ValidatePassword(password string) PasswordCheck {
	var errs []string

	if len(password) < g.cfg.PasswordMinLength {
		errs = append(errs, "password must be at least "+strconv.Itoa(g.cfg.PasswordMinLength)+" characters long")
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune(passwordSpecialChars, r):
			hasSpecial = true
		}
	}

	if !hasUpper {
		errs = append(errs, "password must contain an uppercase letter")
	}
	if !hasLower {
		errs = append(errs, "password must contain a lowercase letter")
	}
	if !hasDigit {
		errs = append(errs, "password must contain a digit")
	}
	if !hasSpecial {
		errs = append(errs, "password must contain a special character")
	}

	return PasswordCheck{Valid: len(errs) == 0, Errors: errs}
}
