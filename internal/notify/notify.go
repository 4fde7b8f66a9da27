// Package notify announces that the stored entry collection changed so that
// list views can refresh. Subscribers are expected to re-read the store; the
// event only carries a summary.
package notify

import (
	"context"
	"time"
)

// Change describes a successful write to the entry collection.
type Change struct {
	Key   string    `json:"key"`
	Count int       `json:"count"`
	At    time.Time `json:"at"`
}

// Handler reacts to a Change.
type Handler func(context.Context, Change) error

// Notifier publishes changes after successful writes.
type Notifier interface {
	Notify(ctx context.Context, change Change) error
}
