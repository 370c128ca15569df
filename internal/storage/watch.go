package storage

import (
	"context"
	"fmt"
	"sync"
)

// SubscriberErrorFunc receives what a subscriber returned for a write that
// was already committed.
type SubscriberErrorFunc func(path string, err error)

type pendingWrite struct {
	path          string
	before, after Snapshot
}

// subscriptions is the Watcher half shared by the stores that observe their
// own writes.
type subscriptions struct {
	mu    sync.RWMutex
	subs  []WriteFunc
	onErr SubscriberErrorFunc
}

// Subscribe registers fn to run after every write. Subscribers run on the
// writer's goroutine once the store lock is released, so they may write.
func (w *subscriptions) Subscribe(fn WriteFunc) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.subs = append(w.subs, fn)
}

// OnSubscriberError sets where subscriber failures are reported. Without it
// they are dropped; the write that caused them has succeeded either way.
func (w *subscriptions) OnSubscriberError(fn SubscriberErrorFunc) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onErr = fn
}

func (w *subscriptions) watched() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.subs) > 0
}

func (w *subscriptions) notify(ctx context.Context, writes []pendingWrite) {
	w.mu.RLock()
	subs := append([]WriteFunc(nil), w.subs...)
	onErr := w.onErr
	w.mu.RUnlock()

	for _, pw := range writes {
		for _, fn := range subs {
			err := fn(ctx, pw.path, pw.before, pw.after)
			if err != nil && onErr != nil {
				onErr(pw.path, fmt.Errorf("storage: subscriber for %s: %w", pw.path, err))
			}
		}
	}
}
