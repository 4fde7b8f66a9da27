package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"typeonce/internal/config"
	"typeonce/internal/logger"
	"typeonce/internal/notify"
)

func offlineConfig(t *testing.T) config.Config {
	return config.Config{
		StoreProvider:       "sqlite",
		StoreKey:            "entries",
		SQLitePath:          filepath.Join(t.TempDir(), "typeonce.db"),
		EmbeddingProvider:   "stub",
		EmbeddingModel:      "unused",
		EmbeddingDimensions: 128,
		SimilarityThreshold: 0.7,
		QueueProvider:       "none",
		NotifyProvider:      "none",
	}
}

func TestBuildWithOffline(t *testing.T) {
	deps, err := BuildWith(offlineConfig(t), logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = deps.Close() })

	assert.Nil(t, deps.Queue)
	assert.IsType(t, &notify.NoOpNotifier{}, deps.Notifier)
	assert.Equal(t, "ngram@128", deps.Embedder.Model())
	assert.False(t, deps.Embedder.Loaded())

	ctx := context.Background()
	require.NoError(t, deps.Repository.Add(ctx, "Email address", "ada@example.com"))
	got, err := deps.Repository.FindBestMatch(ctx, "e-mail address")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "ada@example.com", got.Entry.Answer)
	assert.True(t, deps.Embedder.Loaded())
}

func TestBuildWithInvalidProviders(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*config.Config)
		errContains string
	}{
		{"unknown store", func(c *config.Config) { c.StoreProvider = "mongo" }, "STORE_PROVIDER"},
		{"postgres without url", func(c *config.Config) { c.StoreProvider = "postgres" }, "DB_URL"},
		{"redis without addr", func(c *config.Config) { c.StoreProvider = "redis" }, "REDIS_ADDR"},
		{"unknown embedder", func(c *config.Config) { c.EmbeddingProvider = "cohere" }, "EMBEDDING_PROVIDER"},
		{"openai without key", func(c *config.Config) { c.EmbeddingProvider = "openai" }, "OPENAI_API_KEY"},
		{"nats without url", func(c *config.Config) { c.QueueProvider = "nats" }, "QUEUE_URL"},
		{"unknown queue", func(c *config.Config) { c.QueueProvider = "kafka" }, "QUEUE_PROVIDER"},
		{"unknown notifier", func(c *config.Config) { c.NotifyProvider = "webhook" }, "NOTIFY_PROVIDER"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := offlineConfig(t)
			tt.mutate(&cfg)

			_, err := BuildWith(cfg, logger.Discard())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}
