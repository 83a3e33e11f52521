package memory

import (
	"context"
	"sync"

	"conti/internal/blob"
	"conti/internal/core"
)

type Object struct {
	Data        []byte
	ContentType string
}

// Store keeps objects in process. URLs use the memory:// scheme.
type Store struct {
	mu      sync.RWMutex
	bucket  string
	objects map[string]Object
}

var _ blob.Store = (*Store)(nil)

func New(bucket string) *Store {
	if bucket == "" {
		bucket = "receipts"
	}
	return &Store{bucket: bucket, objects: make(map[string]Object)}
}

func (s *Store) Put(_ context.Context, key string, data []byte, contentType string) (string, error) {
	if key == "" {
		return "", blob.ErrEmptyKey
	}
	cp := make([]byte, len(data))
	copy(cp, data)

	s.mu.Lock()
	s.objects[key] = Object{Data: cp, ContentType: contentType}
	s.mu.Unlock()
	return s.URL(key), nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[key]; !ok {
		return core.ErrNotFound
	}
	delete(s.objects, key)
	return nil
}

func (s *Store) Get(key string) (Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.objects[key]
	return o, ok
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

func (s *Store) URL(key string) string {
	return "memory://" + s.bucket + "/" + key
}
