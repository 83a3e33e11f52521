// Package cache holds in-process TTL caches for read-heavy views.
package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Cache is what services depend on.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	// DeletePrefix drops every key starting with prefix and returns the count.
	DeletePrefix(prefix string) int
	Size() int
}

// Cleaner is implemented by caches that can drop expired entries.
type Cleaner interface {
	CleanExpired() int
}

// Manager sweeps registered caches on an interval.
type Manager struct {
	mu      sync.Mutex
	caches  []Cleaner
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	stopped sync.Once
}

func NewManager() *Manager {
	return &Manager{}
}

func (m *Manager) Register(c Cleaner) {
	m.mu.Lock()
	m.caches = append(m.caches, c)
	m.mu.Unlock()
}

// StartCleanup launches the sweeper. Calling it twice, or with a
// non-positive interval, is a no-op.
func (m *Manager) StartCleanup(interval time.Duration) {
	if interval <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := m.sweep(); n > 0 {
					slog.Debug("Cache cleanup", "removed", n)
				}
			}
		}
	}()
}

func (m *Manager) sweep() int {
	m.mu.Lock()
	caches := append([]Cleaner(nil), m.caches...)
	m.mu.Unlock()

	n := 0
	for _, c := range caches {
		n += c.CleanExpired()
	}
	return n
}

// Stop ends the sweeper and waits for it to exit.
func (m *Manager) Stop() {
	m.stopped.Do(func() {
		m.mu.Lock()
		cancel := m.cancel
		m.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		m.wg.Wait()
	})
}
