package textsource

import (
	"context"
	"fmt"
	"sync"
)

// Static serves fixed page texts keyed by path. It backs tests and the
// replay of previously extracted text.
type Static struct {
	mu    sync.RWMutex
	pages map[string][]string
	errs  map[string]error
}

// NewStatic creates an empty static source.
func NewStatic() *Static {
	return &Static{pages: make(map[string][]string), errs: make(map[string]error)}
}

// Set stores the page texts for path, page 1 first.
func (s *Static) Set(path string, pages ...string) *Static {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[path] = pages
	return s
}

// Fail makes every read of path return err.
func (s *Static) Fail(path string, err error) *Static {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs[path] = err
	return s
}

// PageTexts implements Source.
func (s *Static) PageTexts(ctx context.Context, path string, first, last int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.errs[path]; err != nil {
		return nil, err
	}
	all, ok := s.pages[path]
	if !ok {
		return nil, fmt.Errorf("no text for %s", path)
	}
	if first < 1 {
		first = 1
	}
	if last > len(all) {
		last = len(all)
	}
	if first > last {
		return nil, nil
	}
	out := make([]string, last-first+1)
	copy(out, all[first-1:last])
	return out, nil
}

// Text implements Source.
func (s *Static) Text(ctx context.Context, path string, first, last int) (string, error) {
	pages, err := s.PageTexts(ctx, path, first, last)
	if err != nil {
		return "", err
	}
	return JoinPages(pages), nil
}

var _ Source = (*Static)(nil)
