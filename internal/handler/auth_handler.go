package handler

import (
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"go-contacts-api/internal/middleware"
	"go-contacts-api/internal/model"
	"go-contacts-api/internal/service"
	"go-contacts-api/pkg/apierror"
)

type AuthHandler struct {
	service *service.AuthService
	baseURL string
}

// NewAuthHandler builds the auth endpoints. baseURL overrides the request
// host in emailed links when non-empty.
func NewAuthHandler(service *service.AuthService, baseURL string) *AuthHandler {
	return &AuthHandler{service: service, baseURL: baseURL}
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var payload model.SignupRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.service.Signup(r.Context(), payload, publicBaseURL(h.baseURL, r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusCreated, user, nil)
}

// Login accepts the OAuth2 password form (username carries the email) or
// the same fields as JSON.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload model.LoginRequest

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := parseLoginForm(r, mediaType); err != nil {
			writeError(w, r, badRequest("invalid form body", ""))
			return
		}
		payload.Username = r.PostFormValue("username")
		payload.Password = r.PostFormValue("password")
	default:
		if err := decodeJSON(w, r, &payload); err != nil {
			writeError(w, r, err)
			return
		}
	}

	if strings.TrimSpace(payload.Username) == "" || payload.Password == "" {
		writeError(w, r, badRequest("username and password are required", ""))
		return
	}

	tokens, err := h.service.Login(r.Context(), payload.Username, payload.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, tokens, nil)
}

// parseLoginForm fills r.PostForm. ParseForm leaves multipart bodies unread,
// so those go through ParseMultipartForm.
func parseLoginForm(r *http.Request, mediaType string) error {
	if mediaType == "multipart/form-data" {
		return r.ParseMultipartForm(maxBodyBytes)
	}
	return r.ParseForm()
}

func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	token, ok := middleware.BearerToken(r)
	if !ok {
		writeError(w, r, apierror.Wrap(model.ErrUnauthorized, "UNAUTHORIZED", "Not authenticated", http.StatusUnauthorized))
		return
	}

	tokens, err := h.service.Refresh(r.Context(), token)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, tokens, nil)
}

func (h *AuthHandler) ConfirmedEmail(w http.ResponseWriter, r *http.Request) {
	ack, err := h.service.ConfirmEmail(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, ack, nil)
}

func (h *AuthHandler) RequestEmail(w http.ResponseWriter, r *http.Request) {
	var payload model.EmailRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, r, err)
		return
	}

	ack, err := h.service.RequestConfirmation(r.Context(), payload.Email, publicBaseURL(h.baseURL, r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, ack, nil)
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var payload model.EmailRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, r, err)
		return
	}

	ack, err := h.service.RequestPasswordReset(r.Context(), payload.Email, publicBaseURL(h.baseURL, r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, ack, nil)
}

func (h *AuthHandler) ResetPasswordForm(w http.ResponseWriter, r *http.Request) {
	ack, err := h.service.CheckResetToken(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, ack, nil)
}

func (h *AuthHandler) CompleteResetPassword(w http.ResponseWriter, r *http.Request) {
	var payload model.ResetPasswordRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, r, err)
		return
	}

	ack, err := h.service.CompletePasswordReset(r.Context(), chi.URLParam(r, "token"), payload)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, ack, nil)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, r, model.ErrUnauthorized)
		return
	}

	writeSuccess(w, http.StatusOK, user, nil)
}
