package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bandroom/backend/internal/models"
	"github.com/bandroom/backend/internal/storage"
	"github.com/bandroom/backend/internal/trigger"
)

// ChangeDispatcher routes a decoded document write to its handlers.
type ChangeDispatcher interface {
	Dispatch(ctx context.Context, path string, before, after storage.Snapshot) error
}

// AccountRemover runs the data cascade for a deleted account.
type AccountRemover interface {
	HandleDeleted(ctx context.Context, uid models.UserID)
}

// EventHandler receives trigger deliveries from the hosting platform.
type EventHandler struct {
	dispatcher ChangeDispatcher
	accounts   AccountRemover
	timeout    time.Duration
	log        *zap.Logger
}

func NewEventHandler(dispatcher ChangeDispatcher, accounts AccountRemover, timeout time.Duration, logger *zap.Logger) *EventHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventHandler{dispatcher: dispatcher, accounts: accounts, timeout: timeout, log: logger}
}

type eventResult struct {
	InvocationID string `json:"invocation_id"`
	Path         string `json:"path,omitempty"`
	Status       string `json:"status,omitempty"`
}

// Firestore handles POST /events/firestore.
//
// 200 when every matching handler succeeded, 204 when nothing listens on the
// document, 500 when a handler failed so the platform redelivers.
func (h *EventHandler) Firestore(w http.ResponseWriter, r *http.Request) {
	id := invocationID(r)
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxEventBytes))
	if err != nil {
		respond(w, r, http.StatusBadRequest, models.Fail("Failed to read event"))
		return
	}

	change, err := trigger.DecodeFirestoreEvent(body, r.Header.Get("Ce-Subject"))
	if err != nil {
		h.log.Warn("undecodable firestore event", zap.String("invocation_id", id), zap.Error(err))
		respond(w, r, http.StatusBadRequest, models.Fail("Invalid firestore event"))
		return
	}

	log := h.log.With(
		zap.String("invocation_id", id),
		zap.String("path", change.Path),
		zap.String("status", string(change.Status())))

	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	start := time.Now()
	err = h.dispatcher.Dispatch(ctx, change.Path, change.Before, change.After)
	switch {
	case errors.Is(err, trigger.ErrNoRoute):
		log.Debug("no handler for document")
		w.WriteHeader(http.StatusNoContent)
		return
	case err != nil:
		log.Error("event handling failed", zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		respond(w, r, http.StatusInternalServerError, models.Fail("Event handling failed"))
		return
	}

	log.Info("event handled", zap.Duration("elapsed", time.Since(start)))
	respond(w, r, http.StatusOK, models.OK(eventResult{
		InvocationID: id,
		Path:         change.Path,
		Status:       string(change.Status()),
	}))
}

// AuthDelete handles POST /events/auth/delete. The cascade's outcome only
// reaches the log; any decodable event is acknowledged with 200.
func (h *EventHandler) AuthDelete(w http.ResponseWriter, r *http.Request) {
	id := invocationID(r)
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxEventBytes))
	if err != nil {
		respond(w, r, http.StatusBadRequest, models.Fail("Failed to read event"))
		return
	}
	uid, err := trigger.DecodeAuthEvent(body)
	if err != nil {
		h.log.Warn("undecodable auth event", zap.String("invocation_id", id), zap.Error(err))
		respond(w, r, http.StatusBadRequest, models.Fail("Invalid auth event"))
		return
	}

	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	h.log.Info("account deleted", zap.String("invocation_id", id), zap.String("user_id", uid))
	h.accounts.HandleDeleted(ctx, models.UserID(uid))
	respond(w, r, http.StatusOK, models.OK(eventResult{InvocationID: id}))
}

// invocationID prefers the CloudEvent id so platform retries share one id.
func invocationID(r *http.Request) string {
	if id := r.Header.Get("Ce-Id"); id != "" {
		return id
	}
	return uuid.NewString()
}
