// internal/store/memory.go
//
// In-memory player statistics store backing the leaderboard.
//
// Characteristics:
//   - Stores *PlayerStats keyed by lowercased wallet address.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - State is lost when the process restarts; the leaderboard is advisory.
//   - Update keeps the best level and best score ever reported.

package store

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
)

// ErrNotFound is returned by Get for unknown addresses.
var ErrNotFound = errors.New("not found")

// PlayerStats is the best progress reported for one wallet.
type PlayerStats struct {
	Address    string    // as first reported (checksum casing preserved)
	Level      int       // highest level reported
	Score      int       // highest score reported
	Tokens     string    // token balance reported with the last improvement
	LastPlayed time.Time // time of the last improvement
}

// Store defines the persistence interface for player stats.
// Implementations may be backed by memory (this package), Redis, SQL, etc.
type Store interface {
	// Update merges a report into the stored stats for address.
	// Returns true when the stored row changed.
	Update(ctx context.Context, report PlayerStats) (bool, error)

	// Get retrieves the stats for address.
	Get(ctx context.Context, address string) (*PlayerStats, error)

	// Top returns up to n rows ordered by score descending.
	Top(ctx context.Context, n int) ([]PlayerStats, error)
}

// memory is an in-memory map-based Store implementation.
type memory struct {
	mu    sync.RWMutex            // guards stats map
	stats map[string]*PlayerStats // keyed by lowercased address
	now   func() time.Time
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return newMemory(time.Now)
}

func newMemory(now func() time.Time) *memory {
	return &memory{stats: make(map[string]*PlayerStats), now: now}
}

// Update stores the report when the address is new or when it improves the
// stored level or score. Level and score never go down.
func (m *memory) Update(ctx context.Context, r PlayerStats) (bool, error) {
	key := strings.ToLower(r.Address)
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.stats[key]
	if ok && r.Level <= cur.Level && r.Score <= cur.Score {
		return false, nil
	}
	tokens := r.Tokens
	if tokens == "" {
		tokens = "0"
	}
	next := &PlayerStats{
		Address:    r.Address,
		Level:      r.Level,
		Score:      r.Score,
		Tokens:     tokens,
		LastPlayed: m.now(),
	}
	if ok {
		next.Level = max(r.Level, cur.Level)
		next.Score = max(r.Score, cur.Score)
	}
	m.stats[key] = next
	return true, nil
}

// Get looks up stats by address (case-insensitive).
func (m *memory) Get(ctx context.Context, address string) (*PlayerStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.stats[strings.ToLower(address)]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, ErrNotFound
}

// Top sorts a snapshot by score (desc), breaking ties by level (desc) then
// address so the order is stable between calls.
func (m *memory) Top(ctx context.Context, n int) ([]PlayerStats, error) {
	m.mu.RLock()
	out := make([]PlayerStats, 0, len(m.stats))
	for _, s := range m.stats {
		out = append(out, *s)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].Level != out[j].Level {
			return out[i].Level > out[j].Level
		}
		return strings.ToLower(out[i].Address) < strings.ToLower(out[j].Address)
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out, nil
}
