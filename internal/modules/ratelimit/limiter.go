package ratelimit

import (
	"sync"
	"time"

	"sentinel-moderation/internal/utils"
)

// Limiter caps how many moderation actions one moderator can issue per
// guild inside a sliding window.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*utils.SlidingWindow
	window  time.Duration
	limit   int
	now     func() time.Time
}

func New(limit int, window time.Duration) *Limiter {
	if window <= 0 {
		window = time.Minute
	}
	return &Limiter{
		windows: make(map[string]*utils.SlidingWindow),
		window:  window,
		limit:   limit,
		now:     time.Now,
	}
}

// Allow records an action for the moderator when under the limit. A
// non-positive limit disables the check.
func (l *Limiter) Allow(guildID, moderatorID string) (bool, time.Duration) {
	if l.limit <= 0 {
		return true, 0
	}
	return l.getWindow(guildID+":"+moderatorID).TryAdd(l.now(), l.limit)
}

// Prune drops windows that have gone quiet.
func (l *Limiter) Prune() int {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for key, window := range l.windows {
		if window.Count(now) == 0 {
			delete(l.windows, key)
			removed++
		}
	}
	return removed
}

func (l *Limiter) getWindow(key string) *utils.SlidingWindow {
	l.mu.Lock()
	defer l.mu.Unlock()
	window := l.windows[key]
	if window == nil {
		window = utils.NewSlidingWindow(l.window)
		l.windows[key] = window
	}
	return window
}
