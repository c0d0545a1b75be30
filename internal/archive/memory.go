package archive

import (
	"context"
	"fmt"
	"sync"
)

// MemoryArchive keeps the last capacity results in a ring.
type MemoryArchive struct {
	mu   sync.RWMutex
	ring []Result
	next int
	full bool
	byID map[string]int
}

func NewMemoryArchive(capacity int) *MemoryArchive {
	if capacity <= 0 {
		capacity = DefaultRecentLimit
	}
	return &MemoryArchive{ring: make([]Result, capacity), byID: make(map[string]int)}
}

func (a *MemoryArchive) Save(_ context.Context, r Result) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if i, ok := a.byID[r.GameID]; ok {
		a.ring[i] = r
		return nil
	}
	if a.full {
		delete(a.byID, a.ring[a.next].GameID)
	}
	a.ring[a.next] = r
	a.byID[r.GameID] = a.next
	a.next = (a.next + 1) % len(a.ring)
	if a.next == 0 {
		a.full = true
	}
	return nil
}

func (a *MemoryArchive) Get(_ context.Context, id string) (Result, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	i, ok := a.byID[id]
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return a.ring[i], nil
}

func (a *MemoryArchive) Recent(_ context.Context, user string, limit int) ([]Result, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	limit = clampLimit(limit, len(a.ring))
	n := a.next
	if a.full {
		n = len(a.ring)
	}
	out := make([]Result, 0, limit)
	for k := 1; k <= n && len(out) < limit; k++ {
		r := a.ring[(a.next-k+len(a.ring))%len(a.ring)]
		if user != "" && !r.Involves(user) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (a *MemoryArchive) Close() error { return nil }
