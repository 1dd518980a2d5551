package handler

import (
	"net/http"

	"go-contacts-api/internal/middleware"
	"go-contacts-api/internal/model"
	"go-contacts-api/internal/service"
)

type SearchHandler struct {
	service *service.ContactService
}

func NewSearchHandler(service *service.ContactService) *SearchHandler {
	return &SearchHandler{service: service}
}

func (h *SearchHandler) ByName(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, r, model.ErrUnauthorized)
		return
	}

	contacts, err := h.service.SearchByName(r.Context(), user, r.URL.Query().Get("name"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, contacts, nil)
}

func (h *SearchHandler) BySurname(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, r, model.ErrUnauthorized)
		return
	}

	contacts, err := h.service.SearchBySurname(r.Context(), user, r.URL.Query().Get("surname"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, contacts, nil)
}

func (h *SearchHandler) ByEmail(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, r, model.ErrUnauthorized)
		return
	}

	contact, err := h.service.SearchByEmail(r.Context(), user, r.URL.Query().Get("email"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, contact, nil)
}

func (h *SearchHandler) ByBirthday(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, r, model.ErrUnauthorized)
		return
	}

	days, err := queryInt(r, "n", service.DefaultBirthdayWindow)
	if err != nil {
		writeError(w, r, err)
		return
	}

	contacts, err := h.service.SearchByBirthday(r.Context(), user, r.URL.Query().Get("birthday"), days)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, contacts, nil)
}
