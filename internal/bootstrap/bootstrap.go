// Package bootstrap wires configuration into a running set of stores,
// synchronizers and HTTP handlers. Both binaries start from here.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/bandroom/backend/internal/config"
	"github.com/bandroom/backend/internal/handlers"
	"github.com/bandroom/backend/internal/services"
	"github.com/bandroom/backend/internal/storage"
	"github.com/bandroom/backend/internal/trigger"
)

// App is the assembled service.
type App struct {
	Config      *config.Config
	Log         *zap.Logger
	Store       storage.Store
	Router      *trigger.Router
	Syncs       *services.Synchronizers
	Accounts    *services.AccountService
	Maintenance *services.Maintenance
	Notifier    services.Notifier

	closers []func() error
}

type firebaseClients struct {
	firestore *firestore.Client
	messaging *messaging.Client
	auth      *auth.Client
	options   []option.ClientOption
}

// New builds the App described by cfg. Callers must Close it.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{Config: cfg, Log: logger}

	var fb *firebaseClients
	if cfg.NeedsFirebase() {
		var err error
		fb, err = initFirebase(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if fb.firestore != nil {
			a.closers = append(a.closers, fb.firestore.Close)
		}
	}

	store, err := a.openStore(ctx, fb)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Store = store

	if fb != nil && fb.messaging != nil {
		a.Notifier = services.NewFCMNotifier(fb.messaging)
	} else {
		logger.Warn("no messaging gateway, pushes are only logged")
		a.Notifier = services.NewLogNotifier(logger)
	}

	if err := a.buildServices(ctx, fb); err != nil {
		a.Close()
		return nil, err
	}

	a.Router = trigger.NewRouter(logger)
	a.Syncs.Register(a.Router)

	// Without the hosting platform nothing delivers trigger events, so
	// stores that observe their own writes drive the router directly.
	if w, ok := store.(storage.Watcher); ok && cfg.StoreBackend != config.BackendFirestore {
		w.Subscribe(a.Router.DispatchFunc())
		storeLog := logger.Named("store")
		w.OnSubscriberError(func(path string, err error) {
			storeLog.Warn("trigger failed after write", zap.String("path", path), zap.Error(err))
		})
		logger.Info("store writes drive triggers in process", zap.String("backend", cfg.StoreBackend))
	}
	return a, nil
}

func initFirebase(ctx context.Context, cfg *config.Config) (*firebaseClients, error) {
	var opts []option.ClientOption
	switch {
	case cfg.FirebaseCredentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.FirebaseCredentialsJSON)))
	case cfg.FirebaseCredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.FirebaseCredentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{
		ProjectID:     cfg.FirebaseProjectID,
		StorageBucket: cfg.StorageBucket,
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: firebase app: %w", err)
	}

	fb := &firebaseClients{options: opts}
	if cfg.StoreBackend == config.BackendFirestore {
		if fb.firestore, err = app.Firestore(ctx); err != nil {
			return nil, fmt.Errorf("bootstrap: firestore: %w", err)
		}
	}
	if fb.messaging, err = app.Messaging(ctx); err != nil {
		return nil, fmt.Errorf("bootstrap: messaging: %w", err)
	}
	if cfg.VerifyAuthDeletion {
		if fb.auth, err = app.Auth(ctx); err != nil {
			return nil, fmt.Errorf("bootstrap: auth: %w", err)
		}
	}
	return fb, nil
}

func (a *App) openStore(ctx context.Context, fb *firebaseClients) (storage.Store, error) {
	cfg := a.Config
	switch cfg.StoreBackend {
	case config.BackendFirestore:
		if fb == nil || fb.firestore == nil {
			return nil, errors.New("bootstrap: firestore backend without firebase")
		}
		return storage.NewFirestoreStore(fb.firestore), nil

	case config.BackendMongo:
		ms, err := storage.NewMongoStore(ctx, storage.MongoOptions{
			URI:        cfg.MongoURI,
			Database:   cfg.MongoDatabase,
			Collection: cfg.MongoCollection,
			TLS:        cfg.MongoTLS,
		})
		if err != nil {
			return nil, fmt.Errorf("bootstrap: mongo: %w", err)
		}
		a.closers = append(a.closers, func() error { return ms.Close(context.Background()) })
		return ms, nil

	case config.BackendMemory:
		if cfg.SnapshotFile == "" {
			return storage.NewMemoryStore(), nil
		}
		js, err := storage.NewJSONStore(cfg.DataDir, cfg.SnapshotFile)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: snapshot: %w", err)
		}
		ms, err := storage.OpenMemoryStore(js)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: %w", err)
		}
		a.Log.Info("memory store loaded", zap.String("file", js.Path()), zap.Int("documents", len(ms.Paths())))
		return ms, nil
	}
	return nil, fmt.Errorf("bootstrap: unknown store backend %q", cfg.StoreBackend)
}

func (a *App) buildServices(ctx context.Context, fb *firebaseClients) error {
	cfg, store, log := a.Config, a.Store, a.Log

	tokens := services.NewTokenSync(store, log.Named("tokens"))
	membership := services.NewMembershipSync(store, log.Named("membership"))
	a.Syncs = &services.Synchronizers{
		Attendance:  services.NewAttendanceSync(store, log.Named("attendance")),
		Performance: services.NewPerformanceSync(store, log.Named("performance")),
		Groups:      services.NewGroupSync(store, log.Named("groups"), cfg.GroupSyncMode == config.GroupSyncScan),
		Membership:  membership,
		Tokens:      tokens,
		MemberNames: services.NewMemberNameSync(store, log.Named("members")),
		Notifications: services.NewNotificationService(store, a.Notifier, log.Named("notify"), services.NotificationOptions{
			Locale:             cfg.NotificationLocale,
			SkipLastEditor:     cfg.SkipLastEditor,
			MaxConcurrentSends: cfg.MaxConcurrentSends,
		}),
	}
	a.Maintenance = services.NewMaintenance(store, tokens, membership, log.Named("maintenance"))

	opts := services.AccountOptions{ObjectPrefix: cfg.UserObjectPrefix}
	if fb != nil && fb.auth != nil {
		opts.Users = services.NewFirebaseUserDirectory(fb.auth)
	}
	if cfg.PurgeUserObjects {
		var clientOpts []option.ClientOption
		if fb != nil {
			clientOpts = fb.options
		}
		purger, err := services.NewGCSPurger(ctx, cfg.StorageBucket, log.Named("purger"), clientOpts...)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, purger.Close)
		opts.Purger = purger
	}
	a.Accounts = services.NewAccountService(store, log.Named("accounts"), opts)
	return nil
}

// Handler returns the HTTP surface of the service.
func (a *App) Handler() http.Handler {
	return handlers.NewRouter(handlers.RouterConfig{
		Events:      handlers.NewEventHandler(a.Router, a.Accounts, a.Config.HandlerTimeout, a.Log.Named("events")),
		Admin:       handlers.NewAdminHandler(a.Maintenance, a.Config.HandlerTimeout, a.Log.Named("admin")),
		Health:      handlers.NewHealthHandler(a.Store, a.Config.StoreBackend, a.Log),
		AdminSecret: a.Config.AdminJWTSecret,
		Logger:      a.Log.Named("http"),
	})
}

// Serve runs the HTTP surface on the configured address until ctx ends,
// then drains in-flight requests for at most HandlerTimeout.
func (a *App) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.Config.ServerAddress,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.Log.Info("http server starting",
			zap.String("addr", a.Config.ServerAddress),
			zap.String("backend", a.Config.StoreBackend))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.Log.Info("http server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.HandlerTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// Close releases clients in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
