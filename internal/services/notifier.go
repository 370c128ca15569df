package services

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// ErrNotifierUnavailable is returned by a Notifier that has no gateway.
var ErrNotifierUnavailable = errors.New("notifier: messaging gateway not configured")

// PayloadKind selects how a push is presented on the device.
type PayloadKind string

const (
	// PayloadDisplay is a visible notification with title and body.
	PayloadDisplay PayloadKind = "display"
	// PayloadData is a silent data message the app handles itself.
	PayloadData PayloadKind = "data"
)

// Payload is one push addressed to a single device token.
type Payload struct {
	Kind    PayloadKind
	OwnerID string
	Title   string
	Body    string
}

// Data returns the key/value form carried by data messages.
func (p Payload) Data() map[string]string {
	return map[string]string{
		"ownerID":           p.OwnerID,
		"title":             p.Title,
		"body":              p.Body,
		"sound":             "default",
		"mutable_content":   "true",
		"content_available": "true",
	}
}

// Notifier delivers pushes through a messaging gateway.
type Notifier interface {
	Send(ctx context.Context, token string, p Payload) error
}

// LogNotifier records pushes in the log instead of sending them. The local
// emulator uses it.
type LogNotifier struct {
	log *zap.Logger

	mu   sync.Mutex
	sent int
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{log: nopIfNil(logger)}
}

func (n *LogNotifier) Send(_ context.Context, token string, p Payload) error {
	n.mu.Lock()
	n.sent++
	count := n.sent
	n.mu.Unlock()

	n.log.Info("push (not sent)",
		zap.Int("n", count),
		zap.String("token", token),
		zap.String("kind", string(p.Kind)),
		zap.String("title", p.Title),
		zap.String("body", p.Body))
	return nil
}

// Sent reports how many pushes were logged.
func (n *LogNotifier) Sent() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sent
}
