package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/bft-labs/snapship/internal/domain"
	"github.com/bft-labs/snapship/internal/ports"
)

// DefaultMaxPending is the number of consecutive ticks that may find a
// snapshot still in progress before the scheduler gives up.
const DefaultMaxPending = 3

const skipReason = "previous snapshot still in progress"

// SchedulerOption configures optional behavior of a Scheduler.
type SchedulerOption func(*Scheduler)

// WithEventHandler registers a handler for scheduler events.
// It may be given more than once; handlers are called in registration order.
func WithEventHandler(h EventHandler) SchedulerOption {
	return func(s *Scheduler) {
		if h != nil {
			s.handlers = append(s.handlers, h)
		}
	}
}

// WithClock replaces time.Now for snapshot names and event timestamps.
func WithClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// WithMaxPending overrides DefaultMaxPending. Values below 1 are ignored.
func WithMaxPending(n int) SchedulerOption {
	return func(s *Scheduler) {
		if n > 0 {
			s.maxPending = n
		}
	}
}

// Scheduler takes a full snapshot of a data source on a fixed interval.
//
// At most one snapshot is in progress at any time. A tick that fires while a
// snapshot is still running is skipped and counted; when DefaultMaxPending
// consecutive ticks are skipped the scheduler stops itself and reports an
// error wrapping domain.ErrBackpressureExceeded on Faults.
type Scheduler struct {
	store      ports.SnapshotStore
	logger     ports.Logger
	handlers   EventHandlers
	events     *eventQueue
	now        func() time.Time
	maxPending int

	mu         sync.Mutex
	state      State
	run        uint64
	cancel     context.CancelFunc
	inProgress bool
	pending    int
	lastStamp  time.Time
	fault      error

	faults   chan error
	inflight sync.WaitGroup
}

// NewScheduler creates a scheduler writing snapshots through store.
// The scheduler is created in StateStopped; call Start to begin ticking.
func NewScheduler(store ports.SnapshotStore, logger ports.Logger, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		store:      store,
		logger:     logger,
		now:        time.Now,
		maxPending: DefaultMaxPending,
		faults:     make(chan error, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.events = newEventQueue(s.handlers)
	return s
}

// Start creates the snapshot directory and begins taking a snapshot every
// interval. It returns immediately; snapshots are taken in the background.
//
// Returns an error wrapping domain.ErrConfig if the scheduler is already
// running or the arguments are invalid, and domain.ErrStorage if the
// directory cannot be created. Cancelling ctx stops the scheduler; snapshots
// already in progress keep ctx as their context.
func (s *Scheduler) Start(ctx context.Context, supplier ports.Supplier, interval time.Duration) error {
	if supplier == nil {
		return fmt.Errorf("%w: supplier is required", domain.ErrConfig)
	}
	if interval <= 0 {
		return fmt.Errorf("%w: interval must be positive, got %s", domain.ErrConfig, interval)
	}

	if !s.State().CanStart() {
		return domain.ErrAlreadyRunning
	}

	// The directory is created outside the lock; the state is checked again below.
	if err := s.store.EnsureDirectory(s.store.Dir()); err != nil {
		s.mu.Lock()
		s.events.push(func(h EventHandler) {
			h.OnError(ErrorEvent{Err: err, Message: "failed to start: " + err.Error(), Timestamp: s.now()})
		})
		s.mu.Unlock()
		s.events.drain()
		return err
	}

	s.mu.Lock()
	if !s.state.CanStart() {
		s.mu.Unlock()
		return domain.ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.run++
	run := s.run
	s.state = StateRunning
	s.cancel = cancel
	s.pending = 0
	s.events.push(func(h EventHandler) { h.OnStarted(StartedEvent{Interval: interval}) })
	s.mu.Unlock()
	s.events.drain()

	s.logger.Info("snapshot scheduler started",
		ports.String("dir", s.store.Dir()),
		ports.Duration("interval", interval),
	)

	ticker := time.NewTicker(interval)
	go s.loop(runCtx, ctx, run, ticker, supplier)
	return nil
}

// loop fires a tick on every ticker event until the run is cancelled.
func (s *Scheduler) loop(runCtx, workCtx context.Context, run uint64, ticker *time.Ticker, supplier ports.Supplier) {
	defer ticker.Stop()

	for {
		select {
		case <-runCtx.Done():
			// Parent cancellation stops the run; a Stop() call already did.
			s.halt(run, StateStopped)
			return
		case <-ticker.C:
			if runCtx.Err() != nil {
				continue
			}
			s.tick(workCtx, run, supplier)
		}
	}
}

// tick performs the guarded check-and-set for one timer firing.
func (s *Scheduler) tick(ctx context.Context, run uint64, supplier ports.Supplier) {
	s.mu.Lock()
	if s.state != StateRunning || s.run != run {
		s.mu.Unlock()
		return
	}

	if s.inProgress {
		s.pending++
		pending := s.pending

		if pending >= s.maxPending {
			err := fmt.Errorf("%w: snapshot still in progress after %d intervals", domain.ErrBackpressureExceeded, pending)
			s.fault = err
			s.events.push(func(h EventHandler) { h.OnFatal(FatalEvent{Err: err, PendingCount: pending}) })
			s.stopLocked(StateCrashed)
			s.mu.Unlock()
			s.events.drain()

			s.logger.Error("snapshot scheduler stopped: backpressure exceeded",
				ports.Int("pending", pending),
			)
			s.deliverFault(err)
			return
		}

		s.events.push(func(h EventHandler) {
			h.OnSkipped(SkippedEvent{Reason: skipReason, PendingCount: pending})
		})
		s.mu.Unlock()
		s.events.drain()

		s.logger.Warn("snapshot skipped", ports.String("reason", skipReason), ports.Int("pending", pending))
		return
	}

	s.inProgress = true
	s.pending = 0
	s.inflight.Add(1)
	s.mu.Unlock()

	go s.snapshot(ctx, supplier)
}

// snapshot runs one snapshot body and always clears the in-progress flag.
func (s *Scheduler) snapshot(ctx context.Context, supplier ports.Supplier) {
	defer s.inflight.Done()

	done, err := s.take(ctx, supplier)

	s.mu.Lock()
	s.inProgress = false
	if err != nil {
		ev := ErrorEvent{Err: err, Message: err.Error(), Timestamp: s.now()}
		s.events.push(func(h EventHandler) { h.OnError(ev) })
	} else {
		s.events.push(func(h EventHandler) { h.OnCompleted(done) })
	}
	s.mu.Unlock()
	s.events.drain()

	if err != nil {
		s.logger.Error("snapshot failed", ports.Err(err))
		return
	}
	s.logger.Debug("snapshot written",
		ports.String("file", done.FilePath),
		ports.Int("entities", done.EntityCount),
	)
}

// take asks the supplier for data and writes it as a new snapshot file.
// Only one take runs at a time, guarded by inProgress.
func (s *Scheduler) take(ctx context.Context, supplier ports.Supplier) (CompletedEvent, error) {
	entities, err := supply(ctx, supplier)
	if err != nil {
		return CompletedEvent{}, err
	}

	stamp := s.nextStamp()
	path := filepath.Join(s.store.Dir(), domain.SnapshotName(stamp))
	if err := s.store.Write(ctx, entities, path); err != nil {
		return CompletedEvent{}, err
	}

	return CompletedEvent{
		FilePath:    path,
		EntityCount: len(entities),
		Timestamp:   s.now(),
	}, nil
}

// nextStamp returns the creation time for the next snapshot name. Names have
// millisecond resolution, so the stamp is pushed forward when the clock has
// not advanced past the previous snapshot.
func (s *Scheduler) nextStamp() time.Time {
	stamp := s.now().UTC().Truncate(time.Millisecond)
	if !s.lastStamp.IsZero() && !stamp.After(s.lastStamp) {
		stamp = s.lastStamp.Add(time.Millisecond)
	}
	s.lastStamp = stamp
	return stamp
}

// supply calls the supplier, turning a panic into an error.
func supply(ctx context.Context, supplier ports.Supplier) (entities []domain.Entity, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("supplier panicked: %v", r)
		}
	}()
	entities, err = supplier.Entities(ctx)
	if err != nil {
		return nil, fmt.Errorf("supply entities: %w", err)
	}
	return entities, nil
}

// SnapshotNow takes one snapshot synchronously, outside the timer.
// It emits the same Completed or Error event as a tick would. Returns an
// error wrapping domain.ErrConfig if a snapshot is already in progress.
func (s *Scheduler) SnapshotNow(ctx context.Context, supplier ports.Supplier) (CompletedEvent, error) {
	if supplier == nil {
		return CompletedEvent{}, fmt.Errorf("%w: supplier is required", domain.ErrConfig)
	}
	if err := s.store.EnsureDirectory(s.store.Dir()); err != nil {
		s.mu.Lock()
		s.events.push(func(h EventHandler) {
			h.OnError(ErrorEvent{Err: err, Message: err.Error(), Timestamp: s.now()})
		})
		s.mu.Unlock()
		s.events.drain()
		return CompletedEvent{}, err
	}

	s.mu.Lock()
	if s.inProgress {
		s.mu.Unlock()
		return CompletedEvent{}, fmt.Errorf("%w: %s", domain.ErrConfig, skipReason)
	}
	s.inProgress = true
	s.pending = 0
	s.inflight.Add(1)
	s.mu.Unlock()

	var (
		done CompletedEvent
		err  error
	)
	func() {
		defer s.inflight.Done()
		done, err = s.take(ctx, supplier)
	}()

	s.mu.Lock()
	s.inProgress = false
	if err != nil {
		ev := ErrorEvent{Err: err, Message: err.Error(), Timestamp: s.now()}
		s.events.push(func(h EventHandler) { h.OnError(ev) })
	} else {
		s.events.push(func(h EventHandler) { h.OnCompleted(done) })
	}
	s.mu.Unlock()
	s.events.drain()

	return done, err
}

// Stop cancels the timer. It does not interrupt a snapshot already in
// progress; use Wait for that. Calling Stop on a stopped scheduler does nothing.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	stopped := s.stopLocked(StateStopped)
	s.mu.Unlock()
	s.events.drain()

	if stopped {
		s.logger.Info("snapshot scheduler stopped")
	}
}

// halt stops the given run if it is still the current one.
func (s *Scheduler) halt(run uint64, next State) {
	s.mu.Lock()
	if s.run != run {
		s.mu.Unlock()
		return
	}
	stopped := s.stopLocked(next)
	s.mu.Unlock()
	s.events.drain()

	if stopped {
		s.logger.Info("snapshot scheduler stopped", ports.String("reason", "context done"))
	}
}

// stopLocked moves a running scheduler to next and queues the Stopped event.
// Must be called with s.mu held. Reports whether a transition happened.
func (s *Scheduler) stopLocked(next State) bool {
	if s.state != StateRunning {
		return false
	}
	s.state = next
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	ts := s.now()
	s.events.push(func(h EventHandler) { h.OnStopped(StoppedEvent{Timestamp: ts}) })
	return true
}

// deliverFault publishes err on the fault channel. The channel holds one
// fault; a later fault replaces an unread earlier one.
func (s *Scheduler) deliverFault(err error) {
	for {
		select {
		case s.faults <- err:
			return
		default:
		}
		select {
		case <-s.faults:
		default:
		}
	}
}

// IsRunning reports whether the timer is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateRunning
}

// State returns the current lifecycle state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Pending returns the number of consecutive ticks skipped so far.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// InProgress reports whether a snapshot is being taken right now.
func (s *Scheduler) InProgress() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inProgress
}

// Faults returns the channel on which unrecoverable scheduler errors are
// delivered. Currently the only such error wraps domain.ErrBackpressureExceeded.
func (s *Scheduler) Faults() <-chan error {
	return s.faults
}

// Err returns the last unrecoverable error, or nil.
func (s *Scheduler) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fault
}

// Wait blocks until snapshots in progress have finished or timeout expires.
// Returns domain.ErrShutdownTimeout if the timeout expires.
func (s *Scheduler) Wait(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		s.logger.Warn("snapshot still in progress, giving up wait",
			ports.Duration("timeout", timeout),
		)
		return domain.ErrShutdownTimeout
	}
}

// IsBackpressure reports whether err is the scheduler's fatal overlap error.
func IsBackpressure(err error) bool {
	return errors.Is(err, domain.ErrBackpressureExceeded)
}
