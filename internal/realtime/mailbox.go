package realtime

import "sync"

// Mailbox holds pending messages for one reader without ever dropping the
// latest message of a kind. Messages with the same key coalesce: a newer
// one replaces the pending one in place, so the box never grows past the
// number of distinct keys.
type Mailbox[T any] struct {
	key func(T) string

	mu      sync.Mutex
	pending []T
	ready   chan struct{}
}

// NewMailbox returns an empty mailbox that coalesces by key.
func NewMailbox[T any](key func(T) string) *Mailbox[T] {
	return &Mailbox[T]{key: key, ready: make(chan struct{}, 1)}
}

// Put queues v and wakes the reader. It never blocks.
func (m *Mailbox[T]) Put(v T) {
	k := m.key(v)
	m.mu.Lock()
	replaced := false
	for i, p := range m.pending {
		if m.key(p) == k {
			m.pending[i] = v
			replaced = true
			break
		}
	}
	if !replaced {
		m.pending = append(m.pending, v)
	}
	m.mu.Unlock()

	select {
	case m.ready <- struct{}{}:
	default:
	}
}

// Ready receives a value whenever messages may be pending.
func (m *Mailbox[T]) Ready() <-chan struct{} { return m.ready }

// Take removes and returns everything pending, oldest first.
func (m *Mailbox[T]) Take() []T {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.pending
	m.pending = nil
	return out
}

// Len reports the number of pending messages.
func (m *Mailbox[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}
