package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"go-contacts-api/internal/model"
	"go-contacts-api/internal/service"
	"go-contacts-api/pkg/apierror"
)

type userResolver interface {
	CurrentUser(ctx context.Context, accessToken string) (model.User, error)
}

type contextKey string

const currentUserContextKey contextKey = "current_user"

// AuthMiddleware resolves the bearer access token to a user and enforces
// per-route role allow-sets.
type AuthMiddleware struct {
	resolver userResolver
}

func NewAuthMiddleware(resolver userResolver) *AuthMiddleware {
	return &AuthMiddleware{resolver: resolver}
}

func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := BearerToken(r)
		if !ok {
			writeUnauthorized(w, "Not authenticated")
			return
		}

		user, err := m.resolver.CurrentUser(r.Context(), token)
		if err != nil {
			var apiErr *apierror.APIError
			switch {
			case errors.As(err, &apiErr) && apiErr.HTTPStatus == http.StatusUnauthorized:
				writeUnauthorized(w, apiErr.Message)
			case errors.As(err, &apiErr):
				writeAPIError(w, apiErr.HTTPStatus, apiErr.Code, apiErr.Message)
			default:
				slog.Error("resolve current user", "request_id", RequestID(r.Context()), "error", err)
				writeAPIError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Unexpected server error")
			}
			return
		}

		ctx := context.WithValue(r.Context(), currentUserContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) RequireRoles(allowedRoles ...model.Role) func(http.Handler) http.Handler {
	guard := service.NewRoleAccess(allowedRoles...)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				writeUnauthorized(w, "Not authenticated")
				return
			}

			if err := guard.Check(user); err != nil {
				writeAPIError(w, http.StatusForbidden, "FORBIDDEN", "Operation forbidden")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func UserFromContext(ctx context.Context) (model.User, bool) {
	user, ok := ctx.Value(currentUserContextKey).(model.User)
	return user, ok
}

// WithUser returns ctx carrying user as the authenticated caller.
func WithUser(ctx context.Context, user model.User) context.Context {
	return context.WithValue(ctx, currentUserContextKey, user)
}

// BearerToken extracts the credential from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return "", false
	}
	token := strings.TrimSpace(header[7:])
	return token, token != ""
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeAPIError(w, http.StatusUnauthorized, "UNAUTHORIZED", message)
}
