package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"go-contacts-api/internal/middleware"
	"go-contacts-api/internal/model"
	"go-contacts-api/internal/service"
)

type ContactHandler struct {
	service *service.ContactService
}

func NewContactHandler(service *service.ContactService) *ContactHandler {
	return &ContactHandler{service: service}
}

func (h *ContactHandler) List(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, false)
}

func (h *ContactHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, true)
}

func (h *ContactHandler) list(w http.ResponseWriter, r *http.Request, everyone bool) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, r, model.ErrUnauthorized)
		return
	}

	page, err := pageFromQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var contacts []model.Contact
	if everyone {
		contacts, err = h.service.ListAll(r.Context(), page)
	} else {
		contacts, err = h.service.List(r.Context(), user, page)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, contacts, &model.Meta{Limit: page.Limit, Offset: page.Offset, Count: len(contacts)})
}

func (h *ContactHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, id, ok := h.target(w, r)
	if !ok {
		return
	}

	contact, err := h.service.Get(r.Context(), user, id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, contact, nil)
}

func (h *ContactHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, r, model.ErrUnauthorized)
		return
	}

	var payload model.ContactRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, r, err)
		return
	}

	contact, err := h.service.Create(r.Context(), user, payload)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusCreated, contact, nil)
}

func (h *ContactHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, id, ok := h.target(w, r)
	if !ok {
		return
	}

	var payload model.ContactRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, r, err)
		return
	}

	contact, err := h.service.Update(r.Context(), user, id, payload)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, contact, nil)
}

func (h *ContactHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, id, ok := h.target(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), user, id); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// target resolves the caller and the {id} path parameter, writing the error
// response itself when either is missing.
func (h *ContactHandler) target(w http.ResponseWriter, r *http.Request) (model.User, int64, bool) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, r, model.ErrUnauthorized)
		return model.User{}, 0, false
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		writeError(w, r, badRequest("contact id must be a positive integer", "id"))
		return model.User{}, 0, false
	}

	return user, id, true
}

func pageFromQuery(r *http.Request) (model.Page, error) {
	limit, err := queryInt(r, "limit", service.DefaultPageLimit)
	if err != nil {
		return model.Page{}, err
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		return model.Page{}, err
	}
	return service.NewPage(limit, offset)
}
