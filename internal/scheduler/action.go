package scheduler

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

var (
	ErrDuplicateKey    = errors.New("a reversal is already pending for this member")
	ErrNotFound        = errors.New("no pending reversal")
	ErrFiring          = errors.New("reversal already in progress")
	ErrNegativeDelay   = errors.New("delay must not be negative")
	ErrExecutorFailure = errors.New("action executor failed")
	ErrClosed          = errors.New("scheduler is shut down")
)

type Kind int

const (
	KindTempBan Kind = iota + 1
	KindTempMute
)

func (k Kind) String() string {
	switch k {
	case KindTempBan:
		return "temp_ban"
	case KindTempMute:
		return "temp_mute"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Key identifies the single reversal that may be outstanding for a member.
type Key struct {
	GuildID  string
	MemberID string
	Kind     Kind
}

func (k Key) String() string {
	return k.GuildID + ":" + k.MemberID + ":" + k.Kind.String()
}

type State int32

const (
	StateScheduled State = iota
	StateFiring
	StateCompleted
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateScheduled:
		return "scheduled"
	case StateFiring:
		return "firing"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

func (s State) active() bool {
	return s == StateScheduled || s == StateFiring
}

// Action is a pending reversal. FireAt is fixed when the action is created.
type Action struct {
	ID          uuid.UUID
	Key         Key
	Reason      string
	ChannelID   string
	ModeratorID string
	AppliedAt   time.Time
	FireAt      time.Time

	state atomic.Int32

	mu    sync.Mutex
	timer Timer
}

type Snapshot struct {
	ID          uuid.UUID
	Key         Key
	Reason      string
	ChannelID   string
	ModeratorID string
	AppliedAt   time.Time
	FireAt      time.Time
	State       State
}

type Handle struct {
	ID     uuid.UUID
	Key    Key
	FireAt time.Time
}

func (a *Action) State() State {
	return State(a.state.Load())
}

func (a *Action) Snapshot() Snapshot {
	return Snapshot{
		ID:          a.ID,
		Key:         a.Key,
		Reason:      a.Reason,
		ChannelID:   a.ChannelID,
		ModeratorID: a.ModeratorID,
		AppliedAt:   a.AppliedAt,
		FireAt:      a.FireAt,
		State:       a.State(),
	}
}

func (a *Action) handle() Handle {
	return Handle{ID: a.ID, Key: a.Key, FireAt: a.FireAt}
}

// transition is the only way state changes; losers of a race observe false.
func (a *Action) transition(from, to State) bool {
	return a.state.CompareAndSwap(int32(from), int32(to))
}

func (a *Action) arm(timer Timer) {
	a.mu.Lock()
	a.timer = timer
	a.mu.Unlock()
}

func (a *Action) stopTimer() {
	a.mu.Lock()
	timer := a.timer
	a.timer = nil
	a.mu.Unlock()
	if timer != nil {
		timer.Stop()
	}
}
