package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jackzampolin/folio/internal/outline"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS documents (
	id            TEXT PRIMARY KEY,
	collection_id TEXT NOT NULL DEFAULT '',
	method        TEXT NOT NULL DEFAULT '',
	confidence    REAL NOT NULL DEFAULT 0,
	total_pages   INTEGER NOT NULL DEFAULT 0,
	data          TEXT NOT NULL,
	extracted_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS documents_collection ON documents (collection_id);
`

// SQLite stores documents in a single sqlite file.
type SQLite struct {
	db     *sql.DB
	logger *slog.Logger
}

// OpenSQLite opens (creating if needed) the database at path. The special
// path ":memory:" opens a private in-memory database.
func OpenSQLite(ctx context.Context, path string, logger *slog.Logger) (*SQLite, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if path == "" {
		return nil, errors.New("sqlite: database path is required")
	}
	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: create directory: %w", err)
		}
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	logger.Info("opening document store", "driver", DriverSQLite, "path", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	// One writer keeps batch upserts from contending on the file lock, and
	// keeps ":memory:" on a single shared connection.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: create schema: %w", err)
	}
	return &SQLite{db: db, logger: logger}, nil
}

// Get implements Repository.
func (s *SQLite) Get(ctx context.Context, id string) (*outline.Document, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM documents WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", id, outline.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get %s: %w", id, err)
	}
	return fromData(id, []byte(data))
}

// Put implements Repository.
func (s *SQLite) Put(ctx context.Context, doc *outline.Document) error {
	rec, err := toRecord(doc)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (id, collection_id, method, confidence, total_pages, data, extracted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			collection_id = excluded.collection_id,
			method        = excluded.method,
			confidence    = excluded.confidence,
			total_pages   = excluded.total_pages,
			data          = excluded.data,
			extracted_at  = excluded.extracted_at`,
		rec.ID, rec.CollectionID, rec.Method, rec.Confidence, rec.TotalPages,
		string(rec.Data), rec.ExtractedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("sqlite: put %s: %w", rec.ID, err)
	}
	return nil
}

// List implements Repository.
func (s *SQLite) List(ctx context.Context, collection string) ([]*outline.Document, error) {
	query := `SELECT id, data FROM documents`
	var args []any
	if collection != "" {
		query += ` WHERE collection_id = ?`
		args = append(args, collection)
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list: %w", err)
	}
	defer rows.Close()

	var docs []*outline.Document
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("sqlite: scan: %w", err)
		}
		doc, err := fromData(id, []byte(data))
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Close implements Repository.
func (s *SQLite) Close() error {
	s.logger.Debug("closing document store", "driver", DriverSQLite)
	return s.db.Close()
}

var _ Repository = (*SQLite)(nil)
