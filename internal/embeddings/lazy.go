package embeddings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Lazy is an Embedder that loads its Model on first use.
//
// Concurrent callers arriving before the model is ready share a single load.
// The model is published only after the loader succeeds, so a failed load
// leaves nothing behind and the next call tries again.
type Lazy struct {
	name string
	load Loader
	log  *slog.Logger

	group singleflight.Group
	mu    sync.RWMutex
	model Model
}

// NewLazy wraps load behind a single-flight initializer. name is reported by
// Model and stored alongside every embedding.
func NewLazy(name string, load Loader, log *slog.Logger) *Lazy {
	if log == nil {
		log = slog.Default()
	}
	return &Lazy{name: name, load: load, log: log}
}

// Model returns the identifier given at construction.
func (l *Lazy) Model() string {
	return l.name
}

// Loaded reports whether the model has been initialized.
func (l *Lazy) Loaded() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.model != nil
}

// Embed loads the model if needed and returns the vector for text.
func (l *Lazy) Embed(ctx context.Context, text string) (Vector, error) {
	m, err := l.instance(ctx)
	if err != nil {
		return nil, err
	}
	vec, err := m.Infer(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: infer: %w", ErrModelUnavailable, err)
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: empty embedding returned", ErrModelUnavailable)
	}
	return vec, nil
}

func (l *Lazy) instance(ctx context.Context) (Model, error) {
	l.mu.RLock()
	m := l.model
	l.mu.RUnlock()
	if m != nil {
		return m, nil
	}

	v, err, _ := l.group.Do("load", func() (any, error) {
		l.mu.RLock()
		existing := l.model
		l.mu.RUnlock()
		if existing != nil {
			return existing, nil
		}

		start := time.Now()
		// The load is shared, so one caller's cancellation must not fail the others.
		loaded, err := l.load(context.WithoutCancel(ctx))
		if err != nil {
			l.log.Warn("embedding model load failed", "model", l.name, "err", err)
			return nil, err
		}
		if loaded == nil {
			return nil, errors.New("loader returned nil model")
		}

		l.mu.Lock()
		l.model = loaded
		l.mu.Unlock()
		l.log.Info("embedding model loaded", "model", l.name, "duration_ms", time.Since(start).Milliseconds())
		return loaded, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: load %s: %w", ErrModelUnavailable, l.name, err)
	}
	return v.(Model), nil
}
