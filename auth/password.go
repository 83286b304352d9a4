package auth

import (
	"regexp"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	// BcryptCost is the cost factor for bcrypt hashing.
	BcryptCost = 10

	// MinPasswordLength matches the registration rule: at least 12
	// characters, mixing case, digit and symbol.
	MinPasswordLength = 12
)

func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func ValidatePassword(password, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

var (
	hasUpperRe   = regexp.MustCompile(`[A-Z]`)
	hasLowerRe   = regexp.MustCompile(`[a-z]`)
	hasNumberRe  = regexp.MustCompile(`[0-9]`)
	hasSpecialRe = regexp.MustCompile(`[!@#$%^&*()_+\-=\[\]{};':"\\|,.<>\/?]`)
)

// CheckPasswordStrength enforces registration's minimum-length + mixed
// character-class rule. requireStrong toggles the class checks; length is
// always enforced.
func CheckPasswordStrength(password string, requireStrong bool) error {
	if password == "" {
		return ErrEmptyPassword
	}
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if !requireStrong {
		return nil
	}
	if !hasUpperRe.MatchString(password) || !hasLowerRe.MatchString(password) ||
		!hasNumberRe.MatchString(password) || !hasSpecialRe.MatchString(password) {
		return ErrWeakPassword
	}
	return nil
}

var validUsernameRe = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// ValidateUsername enforces 3-20 chars of letters, digits, underscore.
func ValidateUsername(username string) error {
	if username == "" {
		return ErrInvalidUsername
	}
	if len(username) < 3 || len(username) > 20 {
		return ErrInvalidUsername
	}
	if !validUsernameRe.MatchString(username) {
		return ErrInvalidUsername
	}
	return nil
}

var validEmailRe = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// ValidateEmail validates email format; empty is rejected since email is
// the required identifier at registration.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ErrInvalidEmail
	}
	if !validEmailRe.MatchString(email) {
		return ErrInvalidEmail
	}
	return nil
}
