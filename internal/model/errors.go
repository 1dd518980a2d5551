package model

import "errors"

var (
	// User related errors
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")

	// Session related errors
	ErrUnauthorized     = errors.New("unauthorized")
	ErrForbidden        = errors.New("forbidden")
	ErrVerification     = errors.New("verification error")
	ErrPasswordMismatch = errors.New("passwords do not match")

	// Contact related errors
	ErrContactNotFound = errors.New("contact not found")

	// Storage related errors
	ErrConflict = errors.New("conflict")

	// Generic errors
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)
