package service

import (
	"net/mail"
	"strings"
	"unicode/utf8"
)

const (
	minUsernameLen = 3
	maxUsernameLen = 50
	minPasswordLen = 6
	// bcrypt ignores everything past 72 bytes.
	maxPasswordLen = 72
	maxEmailLen    = 255
)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	if email == "" || len(email) > maxEmailLen {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

func validateEmail(email string) error {
	if !validEmail(email) {
		return invalidInput("a valid email is required", "email")
	}
	return nil
}

func validatePassword(password string, field string) error {
	if utf8.RuneCountInString(password) < minPasswordLen || len(password) > maxPasswordLen {
		return invalidInput("password must be between 6 and 72 characters", field)
	}
	return nil
}

func validateLength(value string, field string, min int, max int) error {
	n := utf8.RuneCountInString(value)
	if n < min || n > max {
		return invalidInput(field+" has invalid length", field)
	}
	return nil
}
