// Package repository is the single entry point used by callers: it ties the
// embedder, the entry store and the matcher together.
package repository

import (
	"context"
	"log/slog"

	"typeonce/internal/embeddings"
	"typeonce/internal/match"
	"typeonce/internal/store"
)

// Repository exposes the entry operations callers need.
type Repository struct {
	store    store.Store
	embedder embeddings.Embedder
	matcher  *match.Matcher
	log      *slog.Logger
}

// New creates a Repository. Nothing is cached between calls; every operation
// reads the store afresh.
func New(s store.Store, embedder embeddings.Embedder, matcher *match.Matcher, log *slog.Logger) *Repository {
	if log == nil {
		log = slog.Default()
	}
	return &Repository{store: s, embedder: embedder, matcher: matcher, log: log}
}

func (r *Repository) GetAll(ctx context.Context) ([]store.Entry, error) {
	return r.store.ListAll(ctx)
}

// Add embeds question and saves the pair. An existing entry with the same
// question is replaced.
func (r *Repository) Add(ctx context.Context, question, answer string) error {
	vec, err := r.embedder.Embed(ctx, question)
	if err != nil {
		return err
	}

	entry := store.Entry{
		Question:  question,
		Answer:    answer,
		Embedding: append([]float32(nil), vec...),
		Model:     r.embedder.Model(),
	}
	if err := r.store.Upsert(ctx, entry); err != nil {
		return err
	}

	r.log.Debug("entry added", "question", question, "dims", len(entry.Embedding))
	return nil
}

func (r *Repository) Delete(ctx context.Context, question string) error {
	if err := r.store.Delete(ctx, question); err != nil {
		return err
	}
	r.log.Debug("entry deleted", "question", question)
	return nil
}

// FindBestMatch returns the stored entry closest to question, or nil.
func (r *Repository) FindBestMatch(ctx context.Context, question string) (*match.Match, error) {
	entries, err := r.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	return r.matcher.FindBestMatch(ctx, question, entries)
}

// Reembed recomputes embeddings for entries produced by a different model or
// whose dimensionality no longer matches. It returns how many entries were
// rewritten.
func (r *Repository) Reembed(ctx context.Context) (int, error) {
	entries, err := r.GetAll(ctx)
	if err != nil {
		return 0, err
	}

	current := r.embedder.Model()
	dims := -1 // unknown until the first embedding
	count := 0
	for _, e := range entries {
		if e.Model == current && len(e.Embedding) == dims {
			continue
		}

		vec, err := r.embedder.Embed(ctx, e.Question)
		if err != nil {
			return count, err
		}
		dims = len(vec)
		if e.Model == current && len(e.Embedding) == dims {
			continue
		}

		e.Embedding = append([]float32(nil), vec...)
		e.Model = current
		if err := r.store.Upsert(ctx, e); err != nil {
			return count, err
		}
		count++
	}

	r.log.Info("reembed complete", "model", current, "total", len(entries), "rewritten", count)
	return count, nil
}
