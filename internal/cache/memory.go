package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryJournal is the Journal used when no Redis URL is configured
type MemoryJournal struct {
	mu      sync.Mutex
	entries map[string]time.Time // id -> expiry, zero means no expiry
	now     func() time.Time
}

func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (m *MemoryJournal) Close() error {
	return nil
}

func (m *MemoryJournal) IsApproved(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	expiry, ok := m.entries[id]
	if !ok {
		return false, nil
	}
	if !expiry.IsZero() && !m.now().Before(expiry) {
		delete(m.entries, id)
		return false, nil
	}
	return true, nil
}

func (m *MemoryJournal) MarkApproved(ctx context.Context, id string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var expiry time.Time
	if ttl > 0 {
		expiry = m.now().Add(ttl)
	}
	m.entries[id] = expiry
	return nil
}

func (m *MemoryJournal) ClearApproved(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]time.Time)
	return nil
}
