package trigger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/bandroom/backend/internal/storage"
)

// ErrNoRoute is returned by Dispatch when no pattern matches the path.
var ErrNoRoute = errors.New("trigger: no handler for path")

// Params holds the values of the {name} segments of a matched pattern.
type Params map[string]string

// HandlerFunc reacts to one change of a document matching its pattern.
type HandlerFunc func(ctx context.Context, change Change, params Params) error

type route struct {
	name     string
	pattern  string
	segments []string
	handler  HandlerFunc
}

// Router maps document path patterns such as "Users/{userID}/MyDevices/MyDeviceDocument"
// to handlers.
type Router struct {
	routes []route
	log    *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{log: logger}
}

// Handle registers h under a name used in logs.
func (r *Router) Handle(pattern, name string, h HandlerFunc) {
	r.routes = append(r.routes, route{
		name:     name,
		pattern:  pattern,
		segments: storage.Split(pattern),
		handler:  h,
	})
}

// Patterns lists the registered patterns in registration order.
func (r *Router) Patterns() []string {
	out := make([]string, 0, len(r.routes))
	for _, rt := range r.routes {
		out = append(out, rt.pattern)
	}
	return out
}

// Match reports the parameters of the first route matching path.
func (r *Router) Match(path string) (Params, bool) {
	segs := storage.Split(path)
	for _, rt := range r.routes {
		if params, ok := match(rt.segments, segs); ok {
			return params, true
		}
	}
	return nil, false
}

// Dispatch runs every handler whose pattern matches path. It has the shape
// of storage.WriteFunc so a watchable store can drive it directly. Handler
// errors are joined and returned after all matching handlers ran.
func (r *Router) Dispatch(ctx context.Context, path string, before, after storage.Snapshot) error {
	change := Change{Path: path, Before: before, After: after}
	segs := storage.Split(path)

	matched := false
	var errs []error
	for _, rt := range r.routes {
		params, ok := match(rt.segments, segs)
		if !ok {
			continue
		}
		matched = true
		r.log.Debug("trigger dispatch",
			zap.String("handler", rt.name),
			zap.String("path", path),
			zap.String("status", string(change.Status())))
		if err := rt.handler(ctx, change, params); err != nil {
			r.log.Error("trigger handler failed",
				zap.String("handler", rt.name),
				zap.String("path", path),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", rt.name, err))
		}
	}
	if !matched {
		return ErrNoRoute
	}
	return errors.Join(errs...)
}

// DispatchFunc adapts Dispatch for store subscriptions, where writes to
// paths nobody listens on are normal.
func (r *Router) DispatchFunc() storage.WriteFunc {
	return func(ctx context.Context, path string, before, after storage.Snapshot) error {
		err := r.Dispatch(ctx, path, before, after)
		if errors.Is(err, ErrNoRoute) {
			return nil
		}
		return err
	}
}

func match(pattern, segs []string) (Params, bool) {
	if len(pattern) != len(segs) {
		return nil, false
	}
	params := Params{}
	for i, p := range pattern {
		if strings.HasPrefix(p, "{") && strings.HasSuffix(p, "}") {
			if segs[i] == "" {
				return nil, false
			}
			params[p[1:len(p)-1]] = segs[i]
			continue
		}
		if p != segs[i] {
			return nil, false
		}
	}
	return params, true
}
