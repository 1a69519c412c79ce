// internal/store/memory.go
//
// In-memory registry of live game sessions.
//
// Characteristics:
//   - Stores *session.Controller values keyed by session ID in a map.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - Deleting a session closes its controller.
//   - Sessions are lost when the process restarts (gameplay is never persisted).

package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robalobadob/letterpop/internal/session"
)

// ErrNotFound is returned for unknown session IDs.
var ErrNotFound = errors.New("store: session not found")

// Store tracks live sessions.
type Store interface {
	// Save registers or replaces a session.
	Save(ctx context.Context, c *session.Controller) error

	// Get retrieves a session by ID.
	Get(ctx context.Context, id string) (*session.Controller, error)

	// Delete removes a session and closes it.
	Delete(ctx context.Context, id string) error

	// Sweep closes sessions idle for longer than maxIdle and returns how many.
	Sweep(ctx context.Context, maxIdle time.Duration) int

	// Range calls fn for each session until fn returns false.
	Range(fn func(c *session.Controller) bool)

	// Len reports the number of live sessions.
	Len() int

	// CloseAll closes every session.
	CloseAll()
}

// memory is an in-memory map-based Store implementation.
type memory struct {
	mu       sync.RWMutex                   // guards sessions map
	sessions map[string]*session.Controller // keyed by Controller.ID()
	now      func() time.Time
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return &memory{sessions: make(map[string]*session.Controller), now: time.Now}
}

func (m *memory) Save(ctx context.Context, c *session.Controller) error {
	m.mu.Lock()
	prev := m.sessions[c.ID()]
	m.sessions[c.ID()] = c
	m.mu.Unlock()
	if prev != nil && prev != c {
		prev.Close()
	}
	return nil
}

func (m *memory) Get(ctx context.Context, id string) (*session.Controller, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.sessions[id]; ok {
		return c, nil
	}
	return nil, ErrNotFound
}

func (m *memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	c, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	c.Close()
	return nil
}

func (m *memory) Sweep(ctx context.Context, maxIdle time.Duration) int {
	cutoff := m.now().Add(-maxIdle)
	var stale []*session.Controller
	m.mu.Lock()
	for id, c := range m.sessions {
		select {
		case <-c.Done():
			delete(m.sessions, id)
			continue
		default:
		}
		if c.LastActive().Before(cutoff) {
			stale = append(stale, c)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()
	for _, c := range stale {
		c.Close()
	}
	return len(stale)
}

func (m *memory) Range(fn func(c *session.Controller) bool) {
	m.mu.RLock()
	all := make([]*session.Controller, 0, len(m.sessions))
	for _, c := range m.sessions {
		all = append(all, c)
	}
	m.mu.RUnlock()
	for _, c := range all {
		if !fn(c) {
			return
		}
	}
}

func (m *memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *memory) CloseAll() {
	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[string]*session.Controller)
	m.mu.Unlock()
	for _, c := range all {
		c.Close()
	}
}
