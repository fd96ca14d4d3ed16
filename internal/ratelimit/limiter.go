// internal/ratelimit/limiter.go
//
// Fixed-window request limiter keyed by an arbitrary string (wallet address).
// Responsibilities:
//   - Open a window on the first request for a key and count hits inside it.
//   - Reject once the count reaches the configured maximum until the window ends.
//
// Notes:
//   - Windows live in an expirable LRU sized by maxKeys, so idle keys age out
//     without a sweeper of our own.

package ratelimit

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const defaultMaxKeys = 10_000

type window struct {
	start time.Time
	count int
}

// Limiter allows up to Max hits per key per Window.
type Limiter struct {
	max    int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	windows *expirable.LRU[string, *window]
}

// New returns a limiter allowing max hits per key in each window.
func New(max int, window time.Duration) *Limiter {
	return NewWithClock(max, window, defaultMaxKeys, time.Now)
}

// NewWithClock is New with an explicit key capacity and clock (tests).
func NewWithClock(max int, win time.Duration, maxKeys int, now func() time.Time) *Limiter {
	if max < 1 {
		max = 1
	}
	if win <= 0 {
		win = time.Minute
	}
	return &Limiter{
		max:     max,
		window:  win,
		now:     now,
		windows: expirable.NewLRU[string, *window](maxKeys, nil, win),
	}
}

// Allow records a hit for key. When the key is over its limit it returns
// false and the time left until its window resets.
func (l *Limiter) Allow(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows.Get(key)
	if !ok || now.Sub(w.start) >= l.window {
		w = &window{start: now}
		l.windows.Add(key, w)
	}
	if w.count >= l.max {
		return false, w.start.Add(l.window).Sub(now)
	}
	w.count++
	return true, 0
}

// Max is the number of hits allowed per window.
func (l *Limiter) Max() int { return l.max }
