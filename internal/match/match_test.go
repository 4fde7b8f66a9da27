package match

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"typeonce/internal/embeddings"
	"typeonce/internal/logger"
	"typeonce/internal/store"
)

func TestFindBestMatch(t *testing.T) {
	query := embeddings.Vector{1, 0, 0, 0}

	tests := []struct {
		name          string
		entries       []store.Entry
		expectMatch   bool
		expectAnswer  string
		expectedScore float64
	}{
		{
			name: "exact threshold matches",
			entries: []store.Entry{
				{Question: "q", Answer: "boundary", Embedding: []float32{7, 7, 1, 1}},
			},
			expectMatch:   true,
			expectAnswer:  "boundary",
			expectedScore: 0.7,
		},
		{
			name: "just below threshold does not match",
			entries: []store.Entry{
				{Question: "q", Answer: "below", Embedding: []float32{7, 7, 1, 1.01}},
			},
		},
		{
			name: "clearly below threshold",
			entries: []store.Entry{
				{Question: "q", Answer: "far", Embedding: []float32{3, 4, 0, 0}},
			},
		},
		{
			name: "picks highest score",
			entries: []store.Entry{
				{Question: "a", Answer: "low", Embedding: []float32{3, 4, 0, 0}},
				{Question: "b", Answer: "high", Embedding: []float32{1, 0, 0, 0}},
				{Question: "c", Answer: "mid", Embedding: []float32{7, 7, 1, 1}},
			},
			expectMatch:   true,
			expectAnswer:  "high",
			expectedScore: 1,
		},
		{
			name: "ties keep first entry",
			entries: []store.Entry{
				{Question: "a", Answer: "first", Embedding: []float32{2, 0, 0, 0}},
				{Question: "b", Answer: "second", Embedding: []float32{5, 0, 0, 0}},
			},
			expectMatch:   true,
			expectAnswer:  "first",
			expectedScore: 1,
		},
		{
			name: "zero magnitude scores zero",
			entries: []store.Entry{
				{Question: "a", Answer: "zero", Embedding: []float32{0, 0, 0, 0}},
			},
		},
		{
			name: "dimension mismatch scores zero",
			entries: []store.Entry{
				{Question: "a", Answer: "short", Embedding: []float32{1, 0}, Model: "old@2"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			embedder := new(embeddings.MockEmbedder)
			embedder.On("Embed", mock.Anything, "question").Return(query, nil).Once()

			m := New(embedder, DefaultThreshold, logger.Discard())
			got, err := m.FindBestMatch(context.Background(), "question", tt.entries)
			require.NoError(t, err)

			if !tt.expectMatch {
				assert.Nil(t, got)
			} else {
				require.NotNil(t, got)
				assert.Equal(t, tt.expectAnswer, got.Entry.Answer)
				assert.InDelta(t, tt.expectedScore, got.Score, 1e-9)
			}
			embedder.AssertExpectations(t)
		})
	}
}

func TestFindBestMatchEmptySkipsEmbedding(t *testing.T) {
	embedder := new(embeddings.MockEmbedder)
	m := New(embedder, DefaultThreshold, logger.Discard())

	got, err := m.FindBestMatch(context.Background(), "anything", nil)
	require.NoError(t, err)
	assert.Nil(t, got)
	embedder.AssertNotCalled(t, "Embed", mock.Anything, mock.Anything)

	got, err = m.FindBestMatch(context.Background(), "anything", []store.Entry{})
	require.NoError(t, err)
	assert.Nil(t, got)
	embedder.AssertNotCalled(t, "Embed", mock.Anything, mock.Anything)
}

func TestFindBestMatchPropagatesModelError(t *testing.T) {
	embedder := new(embeddings.MockEmbedder)
	modelErr := errors.Join(embeddings.ErrModelUnavailable, errors.New("load failed"))
	embedder.On("Embed", mock.Anything, "question").Return(nil, modelErr).Once()

	m := New(embedder, DefaultThreshold, logger.Discard())
	got, err := m.FindBestMatch(context.Background(), "question", []store.Entry{
		{Question: "a", Answer: "b", Embedding: []float32{1}},
	})

	assert.Nil(t, got)
	assert.ErrorIs(t, err, embeddings.ErrModelUnavailable)
	embedder.AssertExpectations(t)
}

func TestNewDefaultsThreshold(t *testing.T) {
	m := New(new(embeddings.MockEmbedder), 0, nil)
	assert.Equal(t, DefaultThreshold, m.Threshold())

	m = New(new(embeddings.MockEmbedder), 0.9, nil)
	assert.Equal(t, 0.9, m.Threshold())
}

// The e-mail scenario runs the real hashed n-gram embedder end to end.
func TestEmailScenario(t *testing.T) {
	ctx := context.Background()
	embedder := embeddings.NewLazy("stub@384", embeddings.NGramLoader(384), logger.Discard())

	saved := []struct{ question, answer string }{
		{"Email address", "ada@example.com"},
		{"Full name", "Ada Lovelace"},
		{"Phone number", "555-0100"},
	}
	entries := make([]store.Entry, 0, len(saved))
	for _, s := range saved {
		vec, err := embedder.Embed(ctx, s.question)
		require.NoError(t, err)
		entries = append(entries, store.Entry{Question: s.question, Answer: s.answer, Embedding: vec})
	}

	m := New(embedder, DefaultThreshold, logger.Discard())

	got, err := m.FindBestMatch(ctx, "E-mail address", entries)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "ada@example.com", got.Entry.Answer)
	assert.GreaterOrEqual(t, got.Score, DefaultThreshold)

	got, err = m.FindBestMatch(ctx, "What is your favourite colour?", entries)
	require.NoError(t, err)
	assert.Nil(t, got)
}
