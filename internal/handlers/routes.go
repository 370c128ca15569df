package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	appMiddleware "github.com/bandroom/backend/internal/middleware"
)

// RouterConfig collects what NewRouter mounts. Admin routes are only
// mounted when AdminSecret is set.
type RouterConfig struct {
	Events      *EventHandler
	Admin       *AdminHandler
	Health      *HealthHandler
	AdminSecret string
	Logger      *zap.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(appMiddleware.RequestLogger(cfg.Logger))
	r.Use(chimw.Recoverer)

	r.Get("/health", cfg.Health.Serve)

	r.Route("/events", func(r chi.Router) {
		r.Post("/firestore", cfg.Events.Firestore)
		r.Post("/auth/delete", cfg.Events.AuthDelete)
	})

	if cfg.Admin != nil && cfg.AdminSecret != "" {
		r.Route("/admin", func(r chi.Router) {
			r.Use(appMiddleware.AdminAuth(cfg.AdminSecret))
			r.Post("/reindex", cfg.Admin.Reindex)
			r.Post("/users/{userID}/resync", cfg.Admin.Resync)
		})
	}
	return r
}
