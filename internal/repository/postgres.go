package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jackzampolin/folio/internal/outline"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS documents (
	id            TEXT PRIMARY KEY,
	collection_id TEXT NOT NULL DEFAULT '',
	method        TEXT NOT NULL DEFAULT '',
	confidence    DOUBLE PRECISION NOT NULL DEFAULT 0,
	total_pages   INTEGER NOT NULL DEFAULT 0,
	data          JSONB NOT NULL,
	extracted_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS documents_collection ON documents (collection_id);
`

// Postgres stores documents in a postgres database through a pgx pool.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// OpenPostgres connects to cfg.DSN and ensures the schema.
func OpenPostgres(ctx context.Context, cfg Config, logger *slog.Logger) (*Postgres, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "folio"

	dial := cfg.DialTimeout
	if dial <= 0 {
		dial = 10 * time.Second
	}
	dctx, cancel := context.WithTimeout(ctx, dial)
	defer cancel()

	logger.Info("opening document store", "driver", DriverPostgres, "host", pc.ConnConfig.Host)
	pool, err := pgxpool.NewWithConfig(dctx, pc)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := pool.Ping(dctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	if _, err := pool.Exec(dctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: create schema: %w", err)
	}
	return &Postgres{pool: pool, logger: logger}, nil
}

// Get implements Repository.
func (p *Postgres) Get(ctx context.Context, id string) (*outline.Document, error) {
	var data []byte
	err := p.pool.QueryRow(ctx, `SELECT data FROM documents WHERE id = $1`, id).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", id, outline.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get %s: %w", id, err)
	}
	return fromData(id, data)
}

// Put implements Repository.
func (p *Postgres) Put(ctx context.Context, doc *outline.Document) error {
	rec, err := toRecord(doc)
	if err != nil {
		return err
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO documents (id, collection_id, method, confidence, total_pages, data, extracted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			collection_id = EXCLUDED.collection_id,
			method        = EXCLUDED.method,
			confidence    = EXCLUDED.confidence,
			total_pages   = EXCLUDED.total_pages,
			data          = EXCLUDED.data,
			extracted_at  = EXCLUDED.extracted_at`,
		rec.ID, rec.CollectionID, rec.Method, rec.Confidence, rec.TotalPages, string(rec.Data), rec.ExtractedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: put %s: %w", rec.ID, err)
	}
	return nil
}

// List implements Repository.
func (p *Postgres) List(ctx context.Context, collection string) ([]*outline.Document, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, data FROM documents WHERE ($1 = '' OR collection_id = $1) ORDER BY id`, collection)
	if err != nil {
		return nil, fmt.Errorf("postgres: list: %w", err)
	}
	defer rows.Close()

	var docs []*outline.Document
	for rows.Next() {
		var id string
		var data []byte
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("postgres: scan: %w", err)
		}
		doc, err := fromData(id, data)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Close implements Repository.
func (p *Postgres) Close() error {
	p.logger.Debug("closing document store", "driver", DriverPostgres)
	p.pool.Close()
	return nil
}

var _ Repository = (*Postgres)(nil)
