package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"typeonce/internal/app"
	"typeonce/internal/httputil"
	"typeonce/internal/queue"
	"typeonce/internal/submission"
)

type submissionTaskPayload struct {
	Submissions []submission.Pair `json:"submissions"`
}

func main() {
	deps, err := app.Build()
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	defer func() { _ = deps.Close() }()

	if deps.Queue == nil {
		deps.Log.Error("ingest worker requires QUEUE_PROVIDER=nats")
		os.Exit(1)
	}
	deps.Log.Info("ingest worker starting", "model", deps.Embedder.Model())

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(sigCtx)

	// Run queue worker
	g.Go(func() error {
		return deps.Queue.Worker(ctx, queue.TaskTypeSubmission, func(ctx context.Context, task queue.Task) error {
			return handleSubmission(ctx, deps, task)
		})
	})

	// Run health check server
	g.Go(func() error {
		return httputil.ServeHealth(ctx, deps, "ingest")
	})

	// Wait for either to fail
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		deps.Log.Error("ingest service stopped", "err", err)
	}
}

// handleSubmission stores every pair of a submission task. Entries are
// upserted by question, so a redelivered task rewrites the same entries.
func handleSubmission(ctx context.Context, deps app.Deps, task queue.Task) error {
	var payload submissionTaskPayload
	if err := json.Unmarshal(task.Payload, &payload); err != nil {
		// Redelivery cannot fix a malformed payload.
		deps.Log.Error("dropping malformed submission task", "id", task.ID, "err", err)
		return nil
	}

	stored, err := submission.Ingest(ctx, deps.Repository, payload.Submissions)
	if err != nil {
		deps.Log.Warn("submission partially ingested", "id", task.ID, "stored", stored, "total", len(payload.Submissions), "err", err)
		return err
	}
	deps.Log.Info("submission ingested", "id", task.ID, "stored", stored, "attempt", task.Attempts)
	return nil
}
