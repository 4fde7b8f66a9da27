package notify

import "context"

// NoOpNotifier drops every change. Used when no broker is configured; the
// store still works, listeners just have to poll.
type NoOpNotifier struct{}

// NewNoOp creates a new no-op notifier.
func NewNoOp() *NoOpNotifier {
	return &NoOpNotifier{}
}

// Notify does nothing and always succeeds.
func (n *NoOpNotifier) Notify(ctx context.Context, change Change) error {
	return nil
}
