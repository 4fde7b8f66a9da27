package app

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/openai/openai-go/v2"

	"typeonce/internal/config"
	"typeonce/internal/embeddings"
	"typeonce/internal/logger"
	"typeonce/internal/match"
	"typeonce/internal/notify"
	"typeonce/internal/queue"
	"typeonce/internal/repository"
	"typeonce/internal/store"
)

// Deps bundles common runtime dependencies for services.
type Deps struct {
	Config     config.Config
	Log        *slog.Logger
	Store      *store.KVStore
	Embedder   *embeddings.Lazy
	Repository *repository.Repository
	// Queue is nil when QUEUE_PROVIDER=none; submissions are then ingested inline.
	Queue    queue.Queue
	Notifier notify.Notifier

	nc *nats.Conn
}

// Build loads env, config, and shared components.
func Build() (Deps, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Deps{}, fmt.Errorf("failed to load environment variables: %w", err)
	}
	cfg := config.Load()
	log := logger.New(cfg.LogLevel)
	return BuildWith(cfg, log)
}

// BuildWith wires components from an explicit config.
func BuildWith(cfg config.Config, log *slog.Logger) (Deps, error) {
	nc, err := connectNATS(cfg, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize NATS: %w", err)
	}
	notifier, err := buildNotifier(cfg, log, nc)
	if err != nil {
		closeNATS(nc)
		return Deps{}, fmt.Errorf("failed to initialize notifier: %w", err)
	}
	q, err := buildQueue(cfg, log, nc)
	if err != nil {
		closeNATS(nc)
		return Deps{}, fmt.Errorf("failed to initialize queue: %w", err)
	}
	backend, err := buildBackend(cfg, log)
	if err != nil {
		closeNATS(nc)
		return Deps{}, fmt.Errorf("failed to initialize store: %w", err)
	}
	embedder, err := buildEmbedder(cfg, log)
	if err != nil {
		_ = backend.Close()
		closeNATS(nc)
		return Deps{}, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	st := store.NewKVStore(backend, cfg.StoreKey, notifier, log.With("component", "store"))
	matcher := match.New(embedder, cfg.SimilarityThreshold, log.With("component", "match"))
	repo := repository.New(st, embedder, matcher, log.With("component", "repository"))

	return Deps{
		Config:     cfg,
		Log:        log,
		Store:      st,
		Embedder:   embedder,
		Repository: repo,
		Queue:      q,
		Notifier:   notifier,
		nc:         nc,
	}, nil
}

// Close releases the store and the broker connection.
func (d Deps) Close() error {
	var err error
	if d.Store != nil {
		err = d.Store.Close()
	}
	if d.nc != nil {
		if drainErr := d.nc.Drain(); drainErr != nil {
			err = errors.Join(err, drainErr)
		}
	}
	return err
}

func buildBackend(cfg config.Config, log *slog.Logger) (store.Backend, error) {
	switch cfg.StoreProvider {
	case "sqlite":
		b, err := store.NewSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite: %w", err)
		}
		log.Info("using SQLite store", "path", cfg.SQLitePath)
		return b, nil
	case "postgres":
		if cfg.DBURL == "" {
			return nil, fmt.Errorf("DB_URL is required when STORE_PROVIDER=postgres")
		}
		db, err := store.NewPostgres(cfg.DBURL, cfg.DBTable)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres: %w", err)
		}
		log.Info("using Postgres store", "table", cfg.DBTable)
		return db, nil
	case "redis":
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("REDIS_ADDR is required when STORE_PROVIDER=redis")
		}
		r, err := store.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Redis: %w", err)
		}
		log.Info("using Redis store", "addr", cfg.RedisAddr)
		return r, nil
	case "memory":
		log.Warn("using in-memory store; entries are lost on exit")
		return store.NewMemory(), nil
	default:
		return nil, fmt.Errorf("invalid STORE_PROVIDER: %s (valid options: sqlite, postgres, redis, memory)", cfg.StoreProvider)
	}
}

func buildEmbedder(cfg config.Config, log *slog.Logger) (*embeddings.Lazy, error) {
	name := fmt.Sprintf("%s@%d", cfg.EmbeddingModel, cfg.EmbeddingDimensions)
	embedLog := log.With("component", "embeddings")

	switch cfg.EmbeddingProvider {
	case "openai":
		if cfg.OpenAIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required when EMBEDDING_PROVIDER=openai")
		}
		loader := embeddings.OpenAILoader(embeddings.OpenAIOptions{
			APIKey:     cfg.OpenAIKey,
			BaseURL:    cfg.OpenAIBaseURL,
			Model:      openai.EmbeddingModel(cfg.EmbeddingModel),
			Dimensions: cfg.EmbeddingDimensions,
			Timeout:    cfg.EmbeddingTimeout,
		})
		log.Info("using OpenAI embedder", "model", name)
		return embeddings.NewLazy(name, loader, embedLog), nil
	case "stub":
		name = fmt.Sprintf("ngram@%d", cfg.EmbeddingDimensions)
		log.Info("using hashed n-gram embedder", "model", name)
		return embeddings.NewLazy(name, embeddings.NGramLoader(cfg.EmbeddingDimensions), embedLog), nil
	default:
		return nil, fmt.Errorf("invalid EMBEDDING_PROVIDER: %s (valid options: openai, stub)", cfg.EmbeddingProvider)
	}
}

// connectNATS opens one connection shared by the queue and the notifier, or
// returns nil when neither uses NATS.
func connectNATS(cfg config.Config, log *slog.Logger) (*nats.Conn, error) {
	if cfg.QueueProvider != "nats" && cfg.NotifyProvider != "nats" {
		return nil, nil
	}
	if cfg.QueueURL == "" {
		return nil, fmt.Errorf("QUEUE_URL is required when QUEUE_PROVIDER or NOTIFY_PROVIDER is nats")
	}
	nc, err := nats.Connect(cfg.QueueURL, nats.Name("typeonce"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	log.Info("connected to NATS", "url", nc.ConnectedUrlRedacted())
	return nc, nil
}

func closeNATS(nc *nats.Conn) {
	if nc != nil {
		nc.Close()
	}
}

func buildQueue(cfg config.Config, log *slog.Logger, nc *nats.Conn) (queue.Queue, error) {
	switch cfg.QueueProvider {
	case "nats":
		log.Info("using NATS queue")
		return queue.NewNATS(log.With("component", "queue"), nc), nil
	case "none", "":
		log.Info("no queue configured; submissions are ingested inline")
		return nil, nil
	default:
		return nil, fmt.Errorf("invalid QUEUE_PROVIDER: %s (valid options: nats, none)", cfg.QueueProvider)
	}
}

func buildNotifier(cfg config.Config, log *slog.Logger, nc *nats.Conn) (notify.Notifier, error) {
	switch cfg.NotifyProvider {
	case "nats":
		log.Info("using NATS change notifications", "subject", cfg.NotifySubject)
		return notify.NewNATS(log.With("component", "notify"), nc, cfg.NotifySubject), nil
	case "none", "":
		return notify.NewNoOp(), nil
	default:
		return nil, fmt.Errorf("invalid NOTIFY_PROVIDER: %s (valid options: nats, none)", cfg.NotifyProvider)
	}
}
