package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bandroom/backend/internal/middleware"
	"github.com/bandroom/backend/internal/models"
	"github.com/bandroom/backend/internal/services"
)

// Maintainer repairs derived documents on demand.
type Maintainer interface {
	Reindex(ctx context.Context) (services.ReindexResult, error)
	Resync(ctx context.Context, uid models.UserID) (services.ResyncResult, error)
}

type AdminHandler struct {
	maintenance Maintainer
	timeout     time.Duration
	log         *zap.Logger
}

func NewAdminHandler(maintenance Maintainer, timeout time.Duration, logger *zap.Logger) *AdminHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminHandler{maintenance: maintenance, timeout: timeout, log: logger}
}

// Reindex handles POST /admin/reindex.
func (h *AdminHandler) Reindex(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	res, err := h.maintenance.Reindex(ctx)
	if err != nil {
		h.log.Error("reindex failed", zap.String("admin", middleware.GetSubject(r.Context())), zap.Error(err))
		respond(w, r, http.StatusInternalServerError, models.Fail("Reindex failed"))
		return
	}
	respond(w, r, http.StatusOK, models.OK(res))
}

// Resync handles POST /admin/users/{userID}/resync.
func (h *AdminHandler) Resync(w http.ResponseWriter, r *http.Request) {
	uid := strings.TrimSpace(chi.URLParam(r, "userID"))
	if uid == "" || strings.Contains(uid, "/") {
		respond(w, r, http.StatusBadRequest, models.Invalid(map[string]string{
			"userID": "must be a document id",
		}))
		return
	}

	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	res, err := h.maintenance.Resync(ctx, models.UserID(uid))
	if err != nil {
		h.log.Error("resync failed", zap.String("user_id", uid), zap.Error(err))
		respond(w, r, http.StatusInternalServerError, models.Fail("Resync failed"))
		return
	}
	respond(w, r, http.StatusOK, models.OK(res))
}
