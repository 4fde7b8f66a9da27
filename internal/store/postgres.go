package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
)

// DefaultTable is the key/value table used when none is configured.
const DefaultTable = "typeonce_kv"

// PostgresBackend stores values in a JSONB key/value table.
type PostgresBackend struct {
	db    *sql.DB
	table string // already quoted
}

// NewPostgres connects via the pgx stdlib driver and migrates the table.
func NewPostgres(dsn, table string) (*PostgresBackend, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	p := &PostgresBackend{db: db, table: quoteTable(table)}
	if err := p.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return p, nil
}

func quoteTable(table string) string {
	if table == "" {
		table = DefaultTable
	}
	return pq.QuoteIdentifier(table)
}

func (p *PostgresBackend) migrate(ctx context.Context) error {
	// Advisory lock keeps api and ingest from racing on first start.
	const lockID = 727001

	var acquired bool
	err := p.db.QueryRowContext(ctx, `SELECT pg_try_advisory_lock($1)`, lockID).Scan(&acquired)
	if err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}

	if !acquired {
		// Another service is running migrations; wait briefly and skip
		time.Sleep(2 * time.Second)
		return nil
	}

	defer func() {
		_, _ = p.db.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, lockID)
	}()

	_, err = p.db.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		key TEXT PRIMARY KEY,
		value JSONB NOT NULL,
		updated_at TIMESTAMPTZ DEFAULT now()
	)`, p.table))
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", p.table, err)
	}
	return nil
}

func (p *PostgresBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	row := p.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT value FROM %s WHERE key=$1`, p.table), key)
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return value, true, nil
}

func (p *PostgresBackend) Set(ctx context.Context, key string, value []byte) error {
	_, err := p.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s(key, value, updated_at)
		VALUES($1, $2::jsonb, now())
		ON CONFLICT (key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`, p.table),
		key, string(value))
	return err
}

func (p *PostgresBackend) Close() error {
	return p.db.Close()
}
