package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/jackzampolin/folio/internal/outline"
)

// Memory keeps documents in process. Stored documents are serialized so
// callers never share state with the store.
type Memory struct {
	mu   sync.RWMutex
	docs map[string][]byte
	coll map[string]string
}

// NewMemory creates an empty in-memory repository.
func NewMemory() *Memory {
	return &Memory{docs: make(map[string][]byte), coll: make(map[string]string)}
}

// Get implements Repository.
func (m *Memory) Get(ctx context.Context, id string) (*outline.Document, error) {
	m.mu.RLock()
	data, ok := m.docs[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, outline.ErrNotFound)
	}
	return fromData(id, data)
}

// Put implements Repository.
func (m *Memory) Put(ctx context.Context, doc *outline.Document) error {
	rec, err := toRecord(doc)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[rec.ID] = rec.Data
	m.coll[rec.ID] = rec.CollectionID
	return nil
}

// List implements Repository.
func (m *Memory) List(ctx context.Context, collection string) ([]*outline.Document, error) {
	m.mu.RLock()
	ids := make([]string, 0, len(m.docs))
	for id, c := range m.coll {
		if collection == "" || c == collection {
			ids = append(ids, id)
		}
	}
	m.mu.RUnlock()
	sort.Strings(ids)

	docs := make([]*outline.Document, 0, len(ids))
	for _, id := range ids {
		doc, err := m.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Close implements Repository.
func (m *Memory) Close() error { return nil }

var _ Repository = (*Memory)(nil)
