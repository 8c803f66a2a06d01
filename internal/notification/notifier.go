// Package notification delivers formatted alert text to external channels
// (Telegram, webhooks). Delivery is fire-and-forget: a failure is reported
// to the caller but never affects decision logic.
package notification

import (
	"context"
	"log"
)

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Send delivers one formatted message. Returns error if delivery fails.
	Send(ctx context.Context, text string) error
}

// LogNotifier writes alerts to the process log (development / dry-run mode).
type LogNotifier struct{}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(_ context.Context, text string) error {
	log.Printf("[notify] %s", text)
	return nil
}

// Fanout delivers to several notifiers, returning the first error after
// attempting all of them.
type Fanout []Notifier

func (f Fanout) Send(ctx context.Context, text string) error {
	var firstErr error
	for _, n := range f {
		if err := n.Send(ctx, text); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
