package service

import (
	"net/http"

	"go-contacts-api/internal/model"
	"go-contacts-api/pkg/apierror"
)

func unauthorized(message string) error {
	return apierror.Wrap(model.ErrUnauthorized, "UNAUTHORIZED", message, http.StatusUnauthorized)
}

func forbidden(message string) error {
	return apierror.Wrap(model.ErrForbidden, "FORBIDDEN", message, http.StatusForbidden)
}

func conflict(message string) error {
	return apierror.Wrap(model.ErrConflict, "CONFLICT", message, http.StatusConflict)
}

func verificationFailed() error {
	return apierror.Wrap(model.ErrVerification, "VERIFICATION_ERROR", "Verification error", http.StatusBadRequest)
}

func passwordMismatch() error {
	return apierror.Wrap(model.ErrPasswordMismatch, "PASSWORD_MISMATCH", "Passwords are not the same", http.StatusUnauthorized)
}

func notFound(cause error, message string) error {
	return apierror.Wrap(cause, "NOT_FOUND", message, http.StatusNotFound)
}

func invalidInput(message string, field string) error {
	return apierror.Wrap(model.ErrInvalidInput, "BAD_REQUEST", message, http.StatusBadRequest).WithDetails(field)
}
