package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/bandroom/backend/internal/storage"
)

type healthResponse struct {
	Status  string `json:"status"`
	Backend string `json:"backend"`
	Error   string `json:"error,omitempty"`
}

// HealthHandler reports whether the document store answers.
type HealthHandler struct {
	store   storage.Store
	backend string
	log     *zap.Logger
}

func NewHealthHandler(store storage.Store, backend string, logger *zap.Logger) *HealthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthHandler{store: store, backend: backend, log: logger}
}

// Serve handles GET /health: 200 when a probe read succeeds, 503 otherwise.
func (h *HealthHandler) Serve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok", Backend: h.backend}
	if _, err := h.store.Get(ctx, storage.Join("_health", "probe")); err != nil {
		h.log.Error("health-check: store probe failed", zap.Error(err))
		resp.Status = "error"
		resp.Error = err.Error()
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
