package handler

import (
	"context"
	"net/http"
	"time"
)

type healthChecker interface {
	Health(ctx context.Context) error
}

type HealthHandler struct {
	db healthChecker
}

// NewHealthHandler reports liveness; db may be nil when running on the
// in-memory backend.
func NewHealthHandler(db healthChecker) *HealthHandler {
	return &HealthHandler{db: db}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok", "database": "memory"}

	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := h.db.Health(ctx); err != nil {
			status["status"] = "degraded"
			status["database"] = "unreachable"
			writeSuccess(w, http.StatusServiceUnavailable, status, nil)
			return
		}
		status["database"] = "ok"
	}

	writeSuccess(w, http.StatusOK, status, nil)
}
