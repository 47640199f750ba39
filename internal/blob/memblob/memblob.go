// Package memblob is an in-process blob store used by demo mode and tests.
package memblob

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/dmitrijs2005/photofeed/internal/blob"
	"github.com/dmitrijs2005/photofeed/internal/remote"
)

const urlScheme = "mem://"

type handle struct {
	done chan struct{}
	mu   sync.Mutex
	err  error
}

func (h *handle) Done() <-chan struct{} { return h.done }

func (h *handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// Store keeps uploaded objects in memory, addressed by path.
type Store struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func New() *Store {
	return &Store{objects: map[string][]byte{}}
}

func (s *Store) Upload(ctx context.Context, path string, r io.Reader, size int64, onProgress blob.ProgressFunc) blob.Handle {
	h := &handle{done: make(chan struct{})}

	go func() {
		defer close(h.done)

		data, err := io.ReadAll(blob.NewProgressReader(r, size, onProgress))
		if err != nil {
			h.mu.Lock()
			h.err = fmt.Errorf("read upload: %w", err)
			h.mu.Unlock()
			return
		}
		if err := ctx.Err(); err != nil {
			h.mu.Lock()
			h.err = err
			h.mu.Unlock()
			return
		}

		s.mu.Lock()
		s.objects[path] = data
		s.mu.Unlock()
	}()

	return h
}

func (s *Store) ResolveURL(ctx context.Context, path string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[path]; !ok {
		return "", fmt.Errorf("%w: no object at %s", remote.ErrNotFound, path)
	}
	return urlScheme + path, nil
}

func (s *Store) DeleteByURL(ctx context.Context, url string) error {
	path, ok := strings.CutPrefix(url, urlScheme)
	if !ok {
		return fmt.Errorf("url %s does not belong to this store", url)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, path)
	return nil
}

// Get returns the stored object, if any.
func (s *Store) Get(path string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[path]
	return data, ok
}
