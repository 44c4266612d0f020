// Package repository persists extracted documents. Writes are idempotent
// upserts keyed by document id, so a re-run replaces the previous outline.
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackzampolin/folio/internal/outline"
)

// Repository stores documents and their outlines.
type Repository interface {
	// Get returns outline.ErrNotFound for unknown ids.
	Get(ctx context.Context, id string) (*outline.Document, error)
	Put(ctx context.Context, doc *outline.Document) error
	// List returns documents of a collection ordered by id. An empty
	// collection lists every document.
	List(ctx context.Context, collection string) ([]*outline.Document, error)
	Close() error
}

// Drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config selects and configures a backend.
type Config struct {
	Driver          string
	DSN             string
	MaxConns        int32
	MaxConnLifetime time.Duration
	DialTimeout     time.Duration
}

// Open connects to the configured backend and ensures its schema.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (Repository, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Driver {
	case DriverSQLite, "":
		return OpenSQLite(ctx, cfg.DSN, logger)
	case DriverPostgres:
		return OpenPostgres(ctx, cfg, logger)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// record is the row form shared by the SQL backends.
type record struct {
	ID           string
	CollectionID string
	Method       string
	Confidence   float64
	TotalPages   int
	Data         []byte
	ExtractedAt  time.Time
}

func toRecord(doc *outline.Document) (record, error) {
	if doc == nil || doc.ID == "" {
		return record{}, fmt.Errorf("document id is required")
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return record{}, fmt.Errorf("marshal document %s: %w", doc.ID, err)
	}
	extracted := doc.ExtractedAt
	if extracted.IsZero() {
		extracted = time.Now().UTC()
	}
	return record{
		ID:           doc.ID,
		CollectionID: doc.CollectionID,
		Method:       doc.Method,
		Confidence:   doc.Confidence,
		TotalPages:   doc.TotalPages,
		Data:         data,
		ExtractedAt:  extracted,
	}, nil
}

func fromData(id string, data []byte) (*outline.Document, error) {
	var doc outline.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", id, err)
	}
	return &doc, nil
}
