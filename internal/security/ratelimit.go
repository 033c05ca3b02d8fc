// Package security implements the gate the dispatcher runs every inbound
// request through before it reaches a handler: path safety,
// command allow/deny evaluation, and fixed-window rate limiting.
package security

import (
	"sync"
	"sync/atomic"
	"time"
)

// window is a fixed-window counter that resets lazily the first time it
// is consulted after its period has elapsed: an atomic count plus a
// mutex-guarded window start, two fixed buckets (commands/minute, file
// ops/second) rather than a generic per-key map.
type window struct {
	mu     sync.Mutex
	start  time.Time
	count  atomic.Int64
	period time.Duration
}

func newWindow(period time.Duration) *window {
	return &window{start: time.Now(), period: period}
}

// allow increments the counter and reports whether the post-increment value
// is within max. max == 0 means unlimited.
func (w *window) allow(max uint32) bool {
	if max == 0 {
		return true
	}

	w.mu.Lock()
	now := time.Now()
	if now.Sub(w.start) >= w.period {
		w.start = now
		w.count.Store(0)
	}
	w.mu.Unlock()

	count := w.count.Add(1)
	return count <= int64(max)
}

// RateLimiter holds the two fixed-window buckets: commands per 60s and
// file operations per 1s.
type RateLimiter struct {
	commands *window
	fileOps  *window
}

// NewRateLimiter constructs a RateLimiter with fresh, empty windows.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		commands: newWindow(60 * time.Second),
		fileOps:  newWindow(1 * time.Second),
	}
}

// AllowCommand reports whether another Execute request may proceed under
// the configured per-minute command limit.
func (r *RateLimiter) AllowCommand(maxPerMinute uint32) bool {
	return r.commands.allow(maxPerMinute)
}

// AllowFileOp reports whether another file operation may proceed under the
// configured per-second file-op limit.
func (r *RateLimiter) AllowFileOp(maxPerSecond uint32) bool {
	return r.fileOps.allow(maxPerSecond)
}
