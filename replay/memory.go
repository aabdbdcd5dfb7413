package replay

import (
	"context"
	"sync"
	"time"
)

// MemoryGuard keeps consumed digests in process memory.
type MemoryGuard struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewMemoryGuard returns an empty MemoryGuard. A nil now uses time.Now.
func NewMemoryGuard(now func() time.Time) *MemoryGuard {
	if now == nil {
		now = time.Now
	}
	return &MemoryGuard{entries: make(map[string]time.Time), now: now}
}

// Consume implements Guard.
func (g *MemoryGuard) Consume(ctx context.Context, token string, expiry time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	now := g.now()
	key := Digest(token)

	g.mu.Lock()
	defer g.mu.Unlock()

	if until, ok := g.entries[key]; ok && now.Before(until) {
		return ErrReplayed
	}
	g.prune(now)
	g.entries[key] = now.Add(entryTTL(expiry, now))
	return nil
}

// Len returns the number of live entries.
func (g *MemoryGuard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prune(g.now())
	return len(g.entries)
}

func (g *MemoryGuard) prune(now time.Time) {
	for k, until := range g.entries {
		if !now.Before(until) {
			delete(g.entries, k)
		}
	}
}
