package apierror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAPIError(t *testing.T) {
	t.Parallel()

	t.Run("formats code message and details", func(t *testing.T) {
		err := New("BAD_REQUEST", "limit out of range", "limit", http.StatusBadRequest)
		require.Equal(t, "BAD_REQUEST: limit out of range (limit)", err.Error())
	})

	t.Run("wrapped sentinel survives errors.Is through fmt wrapping", func(t *testing.T) {
		sentinel := errors.New("conflict")
		err := fmt.Errorf("signup: %w", Wrap(sentinel, "CONFLICT", "Account already exists", http.StatusConflict))

		require.ErrorIs(t, err, sentinel)

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, http.StatusConflict, apiErr.HTTPStatus)
	})

	t.Run("nil receiver is safe", func(t *testing.T) {
		var err *APIError
		require.Equal(t, "", err.Error())
		require.NoError(t, err.Unwrap())
	})
}

func TestAPIError_WithDetails(t *testing.T) {
	t.Parallel()

	err := Wrap(errors.New("invalid"), "BAD_REQUEST", "limit out of range", http.StatusBadRequest).WithDetails("limit")
	require.Equal(t, "limit", err.Details)
	require.Equal(t, "BAD_REQUEST: limit out of range (limit)", err.Error())
}
