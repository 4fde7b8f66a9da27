package notify

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/nats-io/nats.go"
)

// DefaultSubject is the subject changes are published on.
const DefaultSubject = "entries.changed"

// NATSNotifier publishes changes as JSON on a NATS subject. Every subscriber
// receives every change; there is no queue group.
type NATSNotifier struct {
	log     *slog.Logger
	nc      *nats.Conn
	subject string
}

// NewNATS constructs a notifier on an existing connection. The connection is
// owned by the caller.
func NewNATS(log *slog.Logger, nc *nats.Conn, subject string) *NATSNotifier {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATSNotifier{log: log, nc: nc, subject: subject}
}

func (n *NATSNotifier) Notify(_ context.Context, change Change) error {
	if change.Key == "" {
		return errors.New("change key required")
	}
	body, err := json.Marshal(change)
	if err != nil {
		return err
	}
	return n.nc.Publish(n.subject, body)
}

// Subscribe calls handler for each change until ctx is done.
func (n *NATSNotifier) Subscribe(ctx context.Context, handler Handler) error {
	sub, err := n.nc.Subscribe(n.subject, func(msg *nats.Msg) {
		n.dispatch(ctx, msg, handler)
	})
	if err != nil {
		return err
	}
	<-ctx.Done()
	return sub.Unsubscribe()
}

func (n *NATSNotifier) dispatch(ctx context.Context, msg *nats.Msg, handler Handler) {
	var change Change
	if err := json.Unmarshal(msg.Data, &change); err != nil {
		n.log.Error("failed to decode change", "subject", msg.Subject, "err", err)
		return
	}
	if err := handler(ctx, change); err != nil {
		n.log.Error("change handler failed", "key", change.Key, "err", err)
	}
}
