package store

import (
	"context"
	"errors"
)

// ErrStorageUnavailable wraps every backend read, write or decode failure.
var ErrStorageUnavailable = errors.New("storage unavailable")

// Entry is a stored question/answer pair plus the embedding of the question.
// Question is the unique key.
type Entry struct {
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Embedding []float32 `json:"embedding"`
	// Model tags the embedder that produced Embedding, e.g. "text-embedding-3-small@384".
	// Empty for records written before tagging existed.
	Model string `json:"model,omitempty"`
}

// Store defines the entry persistence contract.
//
// Writes are read-modify-write cycles over the whole collection and are not
// linearizable: two concurrent writers may overwrite each other's snapshot.
// Callers needing stronger guarantees must serialize writes themselves.
type Store interface {
	// ListAll returns entries in insertion order, or an empty slice.
	ListAll(ctx context.Context) ([]Entry, error)
	// Upsert appends a new question or replaces an existing one in place.
	Upsert(ctx context.Context, entry Entry) error
	// Delete removes question if present; a missing question is a no-op.
	Delete(ctx context.Context, question string) error
}

// Backend is the key/value collaborator the entry collection is persisted in.
type Backend interface {
	// Get returns the value for key. found is false when the key was never set.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}
