package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/bandroom/backend/internal/models"
)

// maxEventBytes caps event payloads; Firestore documents are at most 1 MiB
// and an event carries two of them.
const maxEventBytes = 4 << 20

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respond writes resp tagged with the request id chi assigned.
func respond(w http.ResponseWriter, r *http.Request, status int, resp models.Response) {
	writeJSON(w, status, resp.WithRequestID(chimw.GetReqID(r.Context())))
}

func contextWithTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, d)
}
