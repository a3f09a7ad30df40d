package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	ModeTimer = "timer"
	ModeSweep = "sweep"
)

// Executor performs the platform side effect of a timed action.
type Executor interface {
	Apply(ctx context.Context, guildID, memberID string, kind Kind, reason string) error
	Reverse(ctx context.Context, guildID, memberID string, kind Kind) error
}

// Notifier reports fire-time outcomes. Errors are logged and never retried.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

type EventType int

const (
	EventReversed EventType = iota + 1
	EventReverseFailed
)

type Event struct {
	Type     EventType
	Action   Snapshot
	Attempts int
	Err      error
}

type Config struct {
	Mode          string
	SweepInterval time.Duration
	MaxAttempts   int
	BackoffBase   time.Duration
	BackoffMax    time.Duration
}

type Request struct {
	Key         Key
	Delay       time.Duration
	Reason      string
	ChannelID   string
	ModeratorID string
}

type Scheduler struct {
	cfg      Config
	store    *Store
	clock    Clock
	executor Executor
	notifier Notifier
	logger   *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	done   chan struct{}
	wg     sync.WaitGroup
}

func New(cfg Config, store *Store, executor Executor, notifier Notifier, logger *zap.Logger) *Scheduler {
	if cfg.Mode != ModeSweep {
		cfg.Mode = ModeTimer
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 5 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BackoffBase < 0 {
		cfg.BackoffBase = 0
	}
	if cfg.BackoffMax <= 0 {
		cfg.BackoffMax = 30 * time.Second
	}
	if store == nil {
		store = NewStore()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cfg:      cfg,
		store:    store,
		clock:    realClock{},
		executor: executor,
		notifier: notifier,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

func (s *Scheduler) WithClock(clock Clock) {
	s.clock = clock
}

// Start runs the sweep loop when the scheduler is in sweep mode. It returns
// immediately; the loop stops on Shutdown or when ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	if s.cfg.Mode != ModeSweep {
		return
	}
	go func() {
		ticker := time.NewTicker(s.cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Sweep(s.clock.Now())
			case <-s.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (s *Scheduler) Schedule(req Request) (Handle, error) {
	if req.Delay < 0 {
		return Handle{}, ErrNegativeDelay
	}
	if s.isClosed() {
		return Handle{}, ErrClosed
	}

	now := s.clock.Now()
	return s.insert(&Action{
		ID:          uuid.New(),
		Key:         req.Key,
		Reason:      req.Reason,
		ChannelID:   req.ChannelID,
		ModeratorID: req.ModeratorID,
		AppliedAt:   now,
		FireAt:      now.Add(req.Delay),
	})
}

// Reinstate puts a withdrawn reversal back with its original times. A FireAt
// already in the past fires right away.
func (s *Scheduler) Reinstate(snap Snapshot) (Handle, error) {
	if s.isClosed() {
		return Handle{}, ErrClosed
	}
	return s.insert(&Action{
		ID:          snap.ID,
		Key:         snap.Key,
		Reason:      snap.Reason,
		ChannelID:   snap.ChannelID,
		ModeratorID: snap.ModeratorID,
		AppliedAt:   snap.AppliedAt,
		FireAt:      snap.FireAt,
	})
}

func (s *Scheduler) insert(action *Action) (Handle, error) {
	if err := s.store.Insert(action); err != nil {
		return Handle{}, err
	}
	if s.cfg.Mode == ModeTimer {
		delay := action.FireAt.Sub(s.clock.Now())
		if delay < 0 {
			delay = 0
		}
		action.arm(s.clock.AfterFunc(delay, func() { s.fire(action) }))
	}

	s.logger.Info("reversal scheduled", actionFields(action, zap.Time("fire_at", action.FireAt))...)
	return action.handle(), nil
}

// ApplyAndSchedule applies the forward action and schedules its reversal.
// Nothing is scheduled when the executor fails. When the reversal cannot be
// scheduled after a successful apply, the apply is undone.
func (s *Scheduler) ApplyAndSchedule(ctx context.Context, req Request) (Handle, error) {
	if req.Delay < 0 {
		return Handle{}, ErrNegativeDelay
	}
	if s.isClosed() {
		return Handle{}, ErrClosed
	}
	if s.store.active(req.Key) {
		return Handle{}, ErrDuplicateKey
	}
	if err := s.executor.Apply(ctx, req.Key.GuildID, req.Key.MemberID, req.Key.Kind, req.Reason); err != nil {
		return Handle{}, fmt.Errorf("%w: apply %s: %w", ErrExecutorFailure, req.Key.Kind, err)
	}

	handle, err := s.Schedule(req)
	if err == nil || errors.Is(err, ErrDuplicateKey) {
		// a concurrent request won the key; its reversal covers this apply
		return handle, err
	}

	fields := []zap.Field{
		zap.String("guild_id", req.Key.GuildID),
		zap.String("member_id", req.Key.MemberID),
		zap.String("kind", req.Key.Kind.String()),
		zap.Error(err),
	}
	if rerr := s.executor.Reverse(ctx, req.Key.GuildID, req.Key.MemberID, req.Key.Kind); rerr != nil {
		s.logger.Error("applied action left without reversal, manual action required", append(fields, zap.NamedError("reverse_error", rerr))...)
		return Handle{}, multierr.Append(err, rerr)
	}
	s.logger.Warn("applied action rolled back", fields...)
	return Handle{}, err
}

// Cancel stops a pending reversal. It fails with ErrFiring once the reversal
// has started and with ErrNotFound when nothing is pending for key.
func (s *Scheduler) Cancel(key Key) error {
	_, err := s.Withdraw(key)
	return err
}

// Withdraw cancels the pending reversal for key and returns it, so a caller
// whose own platform call fails can Reinstate it.
func (s *Scheduler) Withdraw(key Key) (Snapshot, error) {
	action, ok := s.store.lookup(key)
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	return s.withdraw(key, action)
}

// withdraw follows key to a newer action when action finished after it was
// looked up.
func (s *Scheduler) withdraw(key Key, action *Action) (Snapshot, error) {
	for {
		if action.transition(StateScheduled, StateCancelled) {
			action.stopTimer()
			s.store.removeAction(action)
			s.logger.Info("reversal cancelled", actionFields(action)...)
			return action.Snapshot(), nil
		}
		if action.State() == StateFiring {
			return Snapshot{}, ErrFiring
		}
		current, ok := s.store.lookup(key)
		if !ok || current == action {
			return Snapshot{}, ErrNotFound
		}
		action = current
	}
}

func (s *Scheduler) Get(key Key) (Snapshot, bool) {
	return s.store.Get(key)
}

func (s *Scheduler) Pending(guildID string) []Snapshot {
	return s.store.List(guildID)
}

func (s *Scheduler) PendingCount() int {
	return s.store.Len()
}

// Sweep starts the reversal of every action whose FireAt is at or before now
// and returns how many it started. Reversals run concurrently so a failing
// member does not hold up the rest; Shutdown waits for them.
func (s *Scheduler) Sweep(now time.Time) int {
	started := 0
	for _, action := range s.store.ListExpiredBefore(now) {
		if action.State() != StateScheduled || !s.claim(action) {
			continue
		}
		started++
		go s.complete(action)
	}
	return started
}

// Shutdown stops all timers and waits for in-flight reversals. Pending
// reversals are not persisted and are lost with the process.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.done)
	s.mu.Unlock()

	for _, action := range s.store.all() {
		action.stopTimer()
		if action.State() == StateScheduled {
			s.logger.Warn("pending reversal dropped at shutdown", actionFields(action, zap.Time("fire_at", action.FireAt))...)
		}
	}

	finished := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(finished)
	}()
	defer s.cancel()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) fire(action *Action) bool {
	if !s.claim(action) {
		return false
	}
	s.complete(action)
	return true
}

// claim moves action to Firing and counts it as in flight.
func (s *Scheduler) claim(action *Action) bool {
	if !s.begin() {
		return false
	}
	if !action.transition(StateScheduled, StateFiring) {
		s.wg.Done()
		s.logger.Debug("reversal skipped", actionFields(action, zap.Stringer("state", action.State()))...)
		return false
	}
	return true
}

func (s *Scheduler) complete(action *Action) {
	defer s.wg.Done()

	attempts, err := s.reverse(action)
	action.transition(StateFiring, StateCompleted)
	s.store.removeAction(action)

	event := Event{Type: EventReversed, Action: action.Snapshot(), Attempts: attempts}
	if err != nil {
		event.Type = EventReverseFailed
		event.Err = err
		s.logger.Error("reversal failed, manual action required", actionFields(action, zap.Int("attempts", attempts), zap.Error(err))...)
	} else {
		s.logger.Info("reversal completed", actionFields(action, zap.Int("attempts", attempts))...)
	}
	s.notify(event)
}

func (s *Scheduler) reverse(action *Action) (int, error) {
	var errs error
	attempt := 0
	for attempt < s.cfg.MaxAttempts {
		attempt++
		err := s.executor.Reverse(s.ctx, action.Key.GuildID, action.Key.MemberID, action.Key.Kind)
		if err == nil {
			return attempt, nil
		}
		errs = multierr.Append(errs, fmt.Errorf("attempt %d: %w", attempt, err))
		s.logger.Warn("reversal attempt failed", actionFields(action, zap.Int("attempt", attempt), zap.Error(err))...)

		if attempt < s.cfg.MaxAttempts && !s.wait(s.backoff(attempt)) {
			errs = multierr.Append(errs, ErrClosed)
			break
		}
	}
	return attempt, fmt.Errorf("%w: %w", ErrExecutorFailure, errs)
}

// backoff returns the delay before attempt+1: base, 2*base, 4*base, capped.
func (s *Scheduler) backoff(attempt int) time.Duration {
	delay := s.cfg.BackoffBase
	for i := 1; i < attempt && delay < s.cfg.BackoffMax; i++ {
		delay *= 2
	}
	if delay > s.cfg.BackoffMax {
		delay = s.cfg.BackoffMax
	}
	return delay
}

func (s *Scheduler) wait(d time.Duration) bool {
	if d <= 0 {
		return !s.isClosed()
	}
	elapsed := make(chan struct{})
	timer := s.clock.AfterFunc(d, func() { close(elapsed) })
	select {
	case <-elapsed:
		return true
	case <-s.done:
		timer.Stop()
		return false
	}
}

func (s *Scheduler) notify(event Event) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(s.ctx, event); err != nil {
		s.logger.Warn("notify failed", zap.String("action_id", event.Action.ID.String()), zap.Error(err))
	}
}

func (s *Scheduler) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.wg.Add(1)
	return true
}

func (s *Scheduler) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func actionFields(action *Action, extra ...zap.Field) []zap.Field {
	fields := []zap.Field{
		zap.String("action_id", action.ID.String()),
		zap.String("guild_id", action.Key.GuildID),
		zap.String("member_id", action.Key.MemberID),
		zap.String("kind", action.Key.Kind.String()),
	}
	return append(fields, extra...)
}
