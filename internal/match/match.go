// Package match finds the stored entry whose question is semantically
// closest to a new question.
package match

import (
	"context"
	"log/slog"

	"typeonce/internal/embeddings"
	"typeonce/internal/store"
)

// DefaultThreshold is the minimum cosine similarity accepted as a match.
const DefaultThreshold = 0.7

// Match is the best-scoring entry together with its similarity score.
type Match struct {
	Entry store.Entry
	Score float64
}

// Matcher scores entries against a query embedding. It performs no I/O
// besides the embedder call.
type Matcher struct {
	embedder  embeddings.Embedder
	threshold float64
	log       *slog.Logger
}

// New creates a Matcher. A non-positive threshold falls back to DefaultThreshold.
func New(embedder embeddings.Embedder, threshold float64, log *slog.Logger) *Matcher {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if log == nil {
		log = slog.Default()
	}
	return &Matcher{embedder: embedder, threshold: threshold, log: log}
}

// Threshold returns the configured acceptance threshold.
func (m *Matcher) Threshold() float64 {
	return m.threshold
}

// FindBestMatch returns the entry most similar to question, or nil when
// entries is empty or no score reaches the threshold. Ties keep the earliest
// entry. A score equal to the threshold is a match.
func (m *Matcher) FindBestMatch(ctx context.Context, question string, entries []store.Entry) (*Match, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	query, err := m.embedder.Embed(ctx, question)
	if err != nil {
		return nil, err
	}

	best := -1
	bestScore := 0.0
	for i, e := range entries {
		if len(e.Embedding) != len(query) {
			m.log.Warn("embedding dimension mismatch; scoring 0",
				"question", e.Question, "stored", len(e.Embedding), "query", len(query), "model", e.Model)
		}
		score := embeddings.CosineSimilarity(query, e.Embedding)
		if best == -1 || score > bestScore {
			best, bestScore = i, score
		}
	}

	if bestScore < m.threshold {
		m.log.Debug("no match above threshold", "question", question, "best_score", bestScore, "threshold", m.threshold)
		return nil, nil
	}

	m.log.Debug("match found", "question", question, "matched", entries[best].Question, "score", bestScore)
	return &Match{Entry: entries[best], Score: bestScore}, nil
}
