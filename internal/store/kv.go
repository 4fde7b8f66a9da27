package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"typeonce/internal/notify"
)

// DefaultKey is the backend key holding the entry collection.
const DefaultKey = "entries"

// KVStore persists the entry collection as one JSON array under a single
// Backend key.
type KVStore struct {
	backend  Backend
	key      string
	notifier notify.Notifier
	log      *slog.Logger
}

// NewKVStore builds a Store over backend. A nil notifier disables change
// notifications.
func NewKVStore(backend Backend, key string, notifier notify.Notifier, log *slog.Logger) *KVStore {
	if key == "" {
		key = DefaultKey
	}
	if notifier == nil {
		notifier = notify.NewNoOp()
	}
	if log == nil {
		log = slog.Default()
	}
	return &KVStore{backend: backend, key: key, notifier: notifier, log: log}
}

func (s *KVStore) ListAll(ctx context.Context) ([]Entry, error) {
	data, found, err := s.backend.Get(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrStorageUnavailable, s.key, err)
	}
	entries := []Entry{}
	if !found || len(data) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", ErrStorageUnavailable, s.key, err)
	}
	if entries == nil {
		// A stored JSON null decodes to a nil slice.
		entries = []Entry{}
	}
	return entries, nil
}

func (s *KVStore) Upsert(ctx context.Context, entry Entry) error {
	entries, err := s.ListAll(ctx)
	if err != nil {
		return err
	}

	replaced := false
	for i := range entries {
		if entries[i].Question == entry.Question {
			entries[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		entries = append(entries, entry)
	}

	if err := s.write(ctx, entries); err != nil {
		return err
	}
	s.log.Debug("entry saved", "question", entry.Question, "replaced", replaced, "count", len(entries))
	return nil
}

func (s *KVStore) Delete(ctx context.Context, question string) error {
	entries, err := s.ListAll(ctx)
	if err != nil {
		return err
	}

	kept := entries[:0]
	for _, e := range entries {
		if e.Question != question {
			kept = append(kept, e)
		}
	}
	if len(kept) == len(entries) {
		return nil
	}

	if err := s.write(ctx, kept); err != nil {
		return err
	}
	s.log.Debug("entry deleted", "question", question, "count", len(kept))
	return nil
}

// Close releases the backend.
func (s *KVStore) Close() error {
	return s.backend.Close()
}

func (s *KVStore) write(ctx context.Context, entries []Entry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %w", ErrStorageUnavailable, s.key, err)
	}
	if err := s.backend.Set(ctx, s.key, data); err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrStorageUnavailable, s.key, err)
	}

	change := notify.Change{Key: s.key, Count: len(entries), At: time.Now().UTC()}
	if err := s.notifier.Notify(ctx, change); err != nil {
		// The write landed; readers will see it on their next ListAll.
		s.log.Warn("failed to publish change notification", "key", s.key, "err", err)
	}
	return nil
}

// Ensure KVStore satisfies the Store interface.
var _ Store = (*KVStore)(nil)
