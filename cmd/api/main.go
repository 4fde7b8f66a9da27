package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"typeonce/internal/app"
	"typeonce/internal/embeddings"
	"typeonce/internal/httputil"
	"typeonce/internal/queue"
	"typeonce/internal/store"
	"typeonce/internal/submission"
)

type entryRequest struct {
	Question string `json:"question" validate:"required"`
	Answer   string `json:"answer" validate:"required"`
}

type matchRequest struct {
	Question string `json:"question" validate:"required"`
}

type submissionRequest struct {
	Submissions []submission.Pair  `json:"submissions" validate:"required_without=Fields"`
	Fields      []submission.Field `json:"fields,omitempty"`
}

// submissionTaskPayload is the body of a TaskTypeSubmission task.
type submissionTaskPayload struct {
	Submissions []submission.Pair `json:"submissions"`
}

type entryView struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Model    string `json:"model,omitempty"`
}

type matchResponse struct {
	Matched  bool    `json:"matched"`
	Question string  `json:"question,omitempty"`
	Answer   string  `json:"answer,omitempty"`
	Score    float64 `json:"score,omitempty"`
}

func main() {
	deps, err := app.Build()
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	defer func() {
		if err := deps.Close(); err != nil {
			deps.Log.Warn("close failed", "err", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", deps.Config.Port),
		Handler:           newRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := httputil.Serve(ctx, deps.Log, srv); err != nil {
		deps.Log.Error("server failed", "err", err)
	}
}

func newRouter(deps app.Deps) http.Handler {
	v := httputil.NewValidator(deps.Config.MaxBodySize)
	r := httputil.NewRouter(deps.Log)

	r.Get("/api/entries", listHandler(deps))
	r.Post("/api/entries", addHandler(deps, v))
	r.Delete("/api/entries", deleteHandler(deps))
	r.Post("/api/entries/reembed", reembedHandler(deps))
	r.Post("/api/match", matchHandler(deps, v))
	r.Post("/api/submissions", submissionsHandler(deps, v))
	r.Get("/healthz", httputil.HealthHandler(deps))
	return r
}

func listHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := deps.Repository.GetAll(r.Context())
		if err != nil {
			fail(deps, w, "failed to list entries", err)
			return
		}
		views := make([]entryView, 0, len(entries))
		for _, e := range entries {
			views = append(views, entryView{Question: e.Question, Answer: e.Answer, Model: e.Model})
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"entries": views})
	}
}

func addHandler(deps app.Deps, v *httputil.Validator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req entryRequest
		if err := v.DecodeJSON(w, r, &req); err != nil {
			fail(deps, w, "invalid entry", err)
			return
		}
		if err := deps.Repository.Add(r.Context(), req.Question, req.Answer); err != nil {
			fail(deps, w, "failed to save entry", err)
			return
		}
		httputil.WriteJSON(w, http.StatusCreated, entryView{Question: req.Question, Answer: req.Answer})
	}
}

func deleteHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		question := r.URL.Query().Get("question")
		if question == "" {
			httputil.Fail(deps.Log, w, "question is required", nil, http.StatusBadRequest)
			return
		}
		if err := deps.Repository.Delete(r.Context(), question); err != nil {
			fail(deps, w, "failed to delete entry", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func matchHandler(deps app.Deps, v *httputil.Validator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req matchRequest
		if err := v.DecodeJSON(w, r, &req); err != nil {
			fail(deps, w, "invalid match request", err)
			return
		}
		m, err := deps.Repository.FindBestMatch(r.Context(), req.Question)
		if err != nil {
			fail(deps, w, "failed to match question", err)
			return
		}
		if m == nil {
			httputil.WriteJSON(w, http.StatusOK, matchResponse{Matched: false})
			return
		}
		httputil.WriteJSON(w, http.StatusOK, matchResponse{
			Matched:  true,
			Question: m.Entry.Question,
			Answer:   m.Entry.Answer,
			Score:    m.Score,
		})
	}
}

func submissionsHandler(deps app.Deps, v *httputil.Validator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req submissionRequest
		if err := v.DecodeJSON(w, r, &req); err != nil {
			fail(deps, w, "invalid submission", err)
			return
		}
		pairs := submission.Normalize(append(req.Submissions, submission.FromFields(req.Fields)...))
		if len(pairs) == 0 {
			httputil.Fail(deps.Log, w, "submission has no non-empty fields", nil, http.StatusBadRequest)
			return
		}

		if deps.Queue == nil {
			stored, err := submission.Ingest(ctx, deps.Repository, pairs)
			if err != nil {
				fail(deps, w, "failed to ingest submission", err)
				return
			}
			httputil.WriteJSON(w, http.StatusOK, map[string]any{"stored": stored})
			return
		}

		body, err := json.Marshal(submissionTaskPayload{Submissions: pairs})
		if err != nil {
			httputil.Fail(deps.Log, w, "marshal payload failed", err, http.StatusInternalServerError)
			return
		}
		task := queue.Task{Type: queue.TaskTypeSubmission, Payload: body, MaxAttempts: queue.DefaultMaxAttempts}
		if err := queue.EnqueueWithRetry(ctx, deps.Queue, task, 3, 200*time.Millisecond); err != nil {
			httputil.Fail(deps.Log, w, "failed to enqueue submission; please retry", err, http.StatusServiceUnavailable)
			return
		}
		httputil.WriteJSON(w, http.StatusAccepted, map[string]any{"queued": len(pairs)})
	}
}

func reembedHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := deps.Repository.Reembed(r.Context())
		if err != nil {
			fail(deps, w, "failed to re-embed entries", err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"reembedded": n})
	}
}

// fail maps domain errors to HTTP statuses.
func fail(deps app.Deps, w http.ResponseWriter, message string, err error) {
	var verr *httputil.ValidationError
	switch {
	case errors.As(err, &verr):
		httputil.Fail(deps.Log, w, message+": "+verr.Error(), err, http.StatusBadRequest)
	case errors.Is(err, embeddings.ErrModelUnavailable):
		httputil.Fail(deps.Log, w, "embedding model unavailable", err, http.StatusServiceUnavailable)
	case errors.Is(err, store.ErrStorageUnavailable):
		httputil.Fail(deps.Log, w, "storage unavailable", err, http.StatusServiceUnavailable)
	default:
		httputil.Fail(deps.Log, w, message, err, http.StatusInternalServerError)
	}
}
