// Package authutil validates credentials entered at registration and hashes
// passwords with bcrypt.
package authutil

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

// Credential limits.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 30
	MinPasswordLength = 6
	MaxPasswordLength = 128

	// DefaultCost is the bcrypt work factor used for new hashes.
	DefaultCost = 12
)

var (
	ErrUsernameRequired = errors.New("username is required")
	ErrUsernameLength   = fmt.Errorf("username must be between %d and %d characters", MinUsernameLength, MaxUsernameLength)
	ErrPasswordRequired = errors.New("password is required")
	ErrPasswordTooShort = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrPasswordTooLong  = fmt.Errorf("password must be at most %d characters", MaxPasswordLength)
	ErrEmailInvalid     = errors.New("email address is invalid")
)

// ValidateUsername checks an already-trimmed username.
func ValidateUsername(username string) error {
	if username == "" {
		return ErrUsernameRequired
	}
	n := utf8.RuneCountInString(username)
	if n < MinUsernameLength || n > MaxUsernameLength {
		return ErrUsernameLength
	}
	return nil
}

// ValidatePassword checks password length.
func ValidatePassword(password string) error {
	if password == "" {
		return ErrPasswordRequired
	}
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if len(password) > MaxPasswordLength {
		return ErrPasswordTooLong
	}
	return nil
}

// ValidateEmail accepts an empty email (it is optional) or a plausible address.
func ValidateEmail(email string) error {
	if email == "" || isValidEmail(email) {
		return nil
	}
	return ErrEmailInvalid
}

// PasswordRules describes the password policy for clients.
func PasswordRules() string {
	return fmt.Sprintf("Password must be %d to %d characters.", MinPasswordLength, MaxPasswordLength)
}

func isValidEmail(email string) bool {
	at := strings.Index(email, "@")
	if at <= 0 || at != strings.LastIndex(email, "@") {
		return false
	}
	domain := email[at+1:]
	dot := strings.Index(domain, ".")
	return dot > 0 && !strings.HasSuffix(domain, ".")
}

// HashPassword hashes with DefaultCost.
func HashPassword(password string) (string, error) {
	return HashPasswordWithCost(password, DefaultCost)
}

// HashPasswordWithCost hashes with an explicit bcrypt cost. Out-of-range costs
// fall back to bcrypt.DefaultCost.
func HashPasswordWithCost(password string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CheckPassword reports whether password matches hash.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
