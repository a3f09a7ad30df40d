package utils

import (
	"testing"
	"time"
)

func TestSlidingWindowCount(t *testing.T) {
	window := NewSlidingWindow(2 * time.Second)
	now := time.Now()
	window.TryAdd(now, 0)
	if count := window.Count(now); count != 1 {
		t.Fatalf("expected 1, got %d", count)
	}
	window.TryAdd(now.Add(500*time.Millisecond), 0)
	if count := window.Count(now.Add(1 * time.Second)); count != 2 {
		t.Fatalf("expected 2, got %d", count)
	}
	if count := window.Count(now.Add(3 * time.Second)); count != 0 {
		t.Fatalf("expected 0, got %d", count)
	}
}

func TestSlidingWindowTryAdd(t *testing.T) {
	window := NewSlidingWindow(10 * time.Second)
	now := time.Unix(1_700_000_000, 0)

	for i := 0; i < 2; i++ {
		if ok, _ := window.TryAdd(now.Add(time.Duration(i)*time.Second), 2); !ok {
			t.Fatalf("expected hit %d to be accepted", i)
		}
	}

	ok, wait := window.TryAdd(now.Add(4*time.Second), 2)
	if ok {
		t.Fatalf("expected third hit to be rejected")
	}
	if wait != 6*time.Second {
		t.Fatalf("expected 6s until a slot frees, got %s", wait)
	}
	if count := window.Count(now.Add(4 * time.Second)); count != 2 {
		t.Fatalf("rejected hit must not be recorded, got %d", count)
	}

	if ok, _ := window.TryAdd(now.Add(10*time.Second), 2); !ok {
		t.Fatalf("expected a slot once the oldest hit expired")
	}
}
