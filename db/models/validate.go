package models

import (
	"fmt"
	"regexp"
	"strings"
)

// MinPasswordLength is the minimum amount of characters of user passwords.
const MinPasswordLength = 8

var emailRx = regexp.MustCompile(`^[a-z0-9.\-_+]+@[a-z0-9\-_]+(\.[a-z0-9\-_]+){1,4}$`)

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail reports whether the normalized email address is well formed.
func ValidEmail(email string) bool {
	return emailRx.MatchString(email)
}

// ValidatePassword returns an error if the password is too short.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters long", MinPasswordLength)
	}

	return nil
}
