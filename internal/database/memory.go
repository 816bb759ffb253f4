package database

import (
	"context"
	"sync"
	"time"
)

// MemoryRecorder keeps the most recent runs in a fixed-size ring.
type MemoryRecorder struct {
	mu    sync.RWMutex
	runs  []Run
	next  int
	count int
}

// NewMemoryRecorder creates a recorder holding at most capacity runs.
func NewMemoryRecorder(capacity int) *MemoryRecorder {
	if capacity < 1 {
		capacity = 1
	}
	return &MemoryRecorder{runs: make([]Run, capacity)}
}

func (m *MemoryRecorder) Record(_ context.Context, run *Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.runs[m.next] = *run
	m.next = (m.next + 1) % len(m.runs)
	if m.count < len(m.runs) {
		m.count++
	}
	return nil
}

func (m *MemoryRecorder) Recent(_ context.Context, limit int) ([]Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if limit <= 0 || limit > m.count {
		limit = m.count
	}
	out := make([]Run, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (m.next - i + len(m.runs)) % len(m.runs)
		out = append(out, m.runs[idx])
	}
	return out, nil
}

func (m *MemoryRecorder) Prune(_ context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// keep the survivors in chronological order
	kept := make([]Run, 0, m.count)
	for i := m.count; i >= 1; i-- {
		r := m.runs[(m.next-i+len(m.runs))%len(m.runs)]
		if !r.CreatedAt.Before(cutoff) {
			kept = append(kept, r)
		}
	}

	removed := m.count - len(kept)
	m.runs = make([]Run, len(m.runs))
	copy(m.runs, kept)
	m.count = len(kept)
	m.next = len(kept) % len(m.runs)
	return removed, nil
}
