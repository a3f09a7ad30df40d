package utils

import (
	"sync"
	"time"
)

// SlidingWindow counts hits inside a trailing time window.
type SlidingWindow struct {
	mu     sync.Mutex
	window time.Duration
	hits   []time.Time
}

func NewSlidingWindow(window time.Duration) *SlidingWindow {
	return &SlidingWindow{window: window}
}

// TryAdd records a hit only while fewer than limit hits are in the window.
// When full it reports how long until the oldest hit leaves the window.
func (w *SlidingWindow) TryAdd(now time.Time, limit int) (bool, time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.prune(now)
	if limit > 0 && len(w.hits) >= limit {
		return false, w.hits[0].Add(w.window).Sub(now)
	}
	w.hits = append(w.hits, now)
	return true, 0
}

func (w *SlidingWindow) Count(now time.Time) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.prune(now)
	return len(w.hits)
}

func (w *SlidingWindow) prune(now time.Time) {
	cutoff := now.Add(-w.window)
	idx := 0
	for _, hit := range w.hits {
		if hit.After(cutoff) {
			break
		}
		idx++
	}
	w.hits = w.hits[idx:]
}
