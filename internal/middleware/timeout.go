package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"go-contacts-api/internal/model"
)

const defaultRequestTimeout = 30 * time.Second

// Timeout bounds the API routes (auth, contacts, search). The 503 body uses
// the same envelope as every other error.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	body, err := json.Marshal(model.APIResponse{
		Success: false,
		Error:   &model.APIError{Code: "REQUEST_TIMEOUT", Message: "Request timed out"},
	})
	if err != nil {
		body = []byte(`{"success":false}`)
	}

	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, timeout, string(body))
	}
}
