// internal/ratelimit/limiter.go - Fixed-window request limiter
package ratelimit

import (
    "sync"
    "time"
)

type window struct {
    start time.Time
    count int
}

// Limiter counts requests per caller id in fixed windows. Stale windows are
// evicted lazily when that id is next seen, and wholesale during Allow when
// the map has grown past its high-water mark. No package-level state: the
// request-handling boundary holds a reference.
type Limiter struct {
    mu      sync.Mutex
    windows map[string]*window
    size    time.Duration
    max     int
    now     func() time.Time
}

// evictThreshold bounds map growth between sweeps.
const evictThreshold = 4096

func NewLimiter(windowSize time.Duration, maxRequests int) *Limiter {
    return &Limiter{
        windows: make(map[string]*window),
        size:    windowSize,
        max:     maxRequests,
        now:     time.Now,
    }
}

// Allow increments the caller's counter and reports whether the request
// fits inside the current window's cap.
func (l *Limiter) Allow(id string) bool {
    l.mu.Lock()
    defer l.mu.Unlock()

    now := l.now()

    w, ok := l.windows[id]
    if !ok || now.Sub(w.start) >= l.size {
        l.windows[id] = &window{start: now, count: 1}
        if len(l.windows) > evictThreshold {
            l.evict(now)
        }
        return l.max >= 1
    }

    w.count++
    return w.count <= l.max
}

// Remaining reports how many requests the caller has left in its window.
func (l *Limiter) Remaining(id string) int {
    l.mu.Lock()
    defer l.mu.Unlock()

    w, ok := l.windows[id]
    if !ok || l.now().Sub(w.start) >= l.size {
        return l.max
    }
    if w.count >= l.max {
        return 0
    }
    return l.max - w.count
}

// Tracked returns the number of ids currently held, stale ones included.
func (l *Limiter) Tracked() int {
    l.mu.Lock()
    defer l.mu.Unlock()
    return len(l.windows)
}

func (l *Limiter) evict(now time.Time) {
    for id, w := range l.windows {
        if now.Sub(w.start) >= l.size {
            delete(l.windows, id)
        }
    }
}
