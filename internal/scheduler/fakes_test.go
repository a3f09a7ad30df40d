package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"
)

type fakeTimer struct {
	mu       sync.Mutex
	deadline time.Time
	fn       func()
	stopped  bool
	fired    bool
}

func (t *fakeTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) AfterFunc(d time.Duration, fn func()) Timer {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTimer{deadline: f.now.Add(d), fn: fn}
	f.timers = append(f.timers, t)
	return t
}

// Advance moves the clock forward and runs every timer that became due.
func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	var due []*fakeTimer
	remaining := f.timers[:0]
	for _, t := range f.timers {
		t.mu.Lock()
		switch {
		case t.stopped:
		case !t.deadline.After(f.now):
			t.fired = true
			due = append(due, t)
		default:
			remaining = append(remaining, t)
		}
		t.mu.Unlock()
	}
	f.timers = remaining
	f.mu.Unlock()

	for _, t := range due {
		t.fn()
	}
}

func (f *fakeClock) stoppedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, t := range f.timers {
		t.mu.Lock()
		if t.stopped {
			count++
		}
		t.mu.Unlock()
	}
	return count
}

var errPlatform = errors.New("platform unavailable")

type fakeExecutor struct {
	mu           sync.Mutex
	applyErr     error
	reverseFails int
	failKeys     map[Key]bool
	onApply      func()
	applies      []Key
	reverses     []Key
}

func (e *fakeExecutor) Apply(ctx context.Context, guildID, memberID string, kind Kind, reason string) error {
	if e.onApply != nil {
		e.onApply()
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.applyErr != nil {
		return e.applyErr
	}
	e.applies = append(e.applies, Key{GuildID: guildID, MemberID: memberID, Kind: kind})
	return nil
}

func (e *fakeExecutor) Reverse(ctx context.Context, guildID, memberID string, kind Kind) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	key := Key{GuildID: guildID, MemberID: memberID, Kind: kind}
	e.reverses = append(e.reverses, key)
	if e.failKeys[key] {
		return errPlatform
	}
	if e.reverseFails > 0 {
		e.reverseFails--
		return errPlatform
	}
	return nil
}

func (e *fakeExecutor) applyCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.applies)
}

func (e *fakeExecutor) reverseCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.reverses)
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (n *fakeNotifier) Notify(ctx context.Context, event Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return n.err
}

func (n *fakeNotifier) received() []Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Event(nil), n.events...)
}
