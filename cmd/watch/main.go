package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"typeonce/internal/app"
	"typeonce/internal/httputil"
	"typeonce/internal/notify"
)

// subscriber is implemented by notifiers that can deliver changes back.
type subscriber interface {
	Subscribe(ctx context.Context, handler notify.Handler) error
}

func main() {
	deps, err := app.Build()
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	defer func() { _ = deps.Close() }()

	sub, ok := deps.Notifier.(subscriber)
	if !ok {
		deps.Log.Error("watch requires NOTIFY_PROVIDER=nats")
		os.Exit(1)
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(sigCtx)

	g.Go(func() error {
		// Print the current list once before waiting for changes.
		if err := refresh(ctx, deps, notify.Change{Key: deps.Config.StoreKey}); err != nil {
			deps.Log.Warn("initial list failed", "err", err)
		}
		return sub.Subscribe(ctx, func(ctx context.Context, change notify.Change) error {
			return refresh(ctx, deps, change)
		})
	})

	g.Go(func() error {
		return httputil.ServeHealth(ctx, deps, "watch")
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		deps.Log.Error("watch service stopped", "err", err)
	}
}

// refresh re-reads the store and logs the saved questions, the way a list
// view would redraw after a change.
func refresh(ctx context.Context, deps app.Deps, change notify.Change) error {
	entries, err := deps.Repository.GetAll(ctx)
	if err != nil {
		return err
	}
	questions := make([]string, 0, len(entries))
	for _, e := range entries {
		questions = append(questions, e.Question)
	}
	deps.Log.Info("entries changed", "key", change.Key, "count", len(entries), "questions", questions)
	return nil
}
