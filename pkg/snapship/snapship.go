package snapship

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bft-labs/snapship/internal/adapters/fs"
	"github.com/bft-labs/snapship/internal/app"
	"github.com/bft-labs/snapship/internal/domain"
	"github.com/bft-labs/snapship/internal/ports"
)

// ShutdownTimeout is how long Stop waits for a snapshot in progress.
const ShutdownTimeout = 30 * time.Second

// Config configures a Snapship instance.
type Config struct {
	// Dir is the directory snapshots are written to. Required.
	Dir string

	// Interval between snapshots.
	Interval time.Duration

	// MaxPending is how many consecutive ticks may be skipped before the
	// scheduler stops with a fault.
	MaxPending int

	// Retention prunes old snapshots. Disabled by default.
	Retention RetentionConfig
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Dir:        "backups",
		Interval:   5 * time.Second,
		MaxPending: app.DefaultMaxPending,
		Retention:  RetentionConfig{Interval: app.DefaultRetentionInterval},
	}
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	if c.Dir == "" {
		return fmt.Errorf("%w: dir is required", domain.ErrConfig)
	}
	if c.Interval <= 0 {
		return fmt.Errorf("%w: interval must be positive", domain.ErrConfig)
	}
	if c.MaxPending <= 0 {
		return fmt.Errorf("%w: max pending must be positive", domain.ErrConfig)
	}
	return nil
}

// Snapship is a snapshot scheduler that can be embedded in other applications.
// Use New to create an instance, then Start to begin taking snapshots.
type Snapship struct {
	config     Config
	logger     ports.Logger
	store      *fs.SnapshotStore
	scheduler  *app.Scheduler
	retention  *app.Retention
	aggregator *app.Aggregator

	mu            sync.Mutex
	stopRetention context.CancelFunc
	retentionDone chan struct{}
}

// New creates a new Snapship instance.
// The instance is created in StateStopped; call Start to begin.
func New(cfg Config, opts ...Option) (*Snapship, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	store := fs.NewSnapshotStore(cfg.Dir)
	schedOpts := []app.SchedulerOption{app.WithMaxPending(cfg.MaxPending)}
	for _, h := range o.eventHandlers {
		schedOpts = append(schedOpts, app.WithEventHandler(h))
	}
	if o.clock != nil {
		schedOpts = append(schedOpts, app.WithClock(o.clock))
	}

	var retentionOpts []app.RetentionOption
	if o.pruneObserver != nil {
		retentionOpts = append(retentionOpts, app.WithPruneObserver(o.pruneObserver))
	}

	return &Snapship{
		config:     cfg,
		logger:     o.logger,
		store:      store,
		scheduler:  app.NewScheduler(store, o.logger, schedOpts...),
		retention:  app.NewRetention(store, cfg.Dir, cfg.Retention, o.logger, retentionOpts...),
		aggregator: app.NewAggregator(store, o.logger),
	}, nil
}

// Start begins taking snapshots in the background and, when configured,
// starts retention. It returns ErrAlreadyRunning if already started.
func (s *Snapship) Start(ctx context.Context, supplier Supplier) error {
	if err := s.scheduler.Start(ctx, supplier, s.config.Interval); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopRetention == nil {
		rctx, cancel := context.WithCancel(ctx)
		done := make(chan struct{})
		s.stopRetention = cancel
		s.retentionDone = done
		go func() {
			defer close(done)
			s.retention.Run(rctx)
		}()
	}
	return nil
}

// Stop stops the timer and waits up to ShutdownTimeout for a snapshot in
// progress. Returns ErrShutdownTimeout if it is still running afterwards.
func (s *Snapship) Stop() error {
	s.scheduler.Stop()

	s.mu.Lock()
	cancel, done := s.stopRetention, s.retentionDone
	s.stopRetention, s.retentionDone = nil, nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}

	return s.scheduler.Wait(ShutdownTimeout)
}

// SnapshotNow takes one snapshot synchronously, outside the schedule.
func (s *Snapship) SnapshotNow(ctx context.Context, supplier Supplier) (CompletedEvent, error) {
	return s.scheduler.SnapshotNow(ctx, supplier)
}

// Report aggregates the snapshots in the configured directory.
func (s *Snapship) Report(ctx context.Context) (Report, error) {
	return s.aggregator.GenerateReport(ctx, s.config.Dir)
}

// Prune runs one retention pass with the configured limits.
func (s *Snapship) Prune(ctx context.Context) (PruneResult, error) {
	return s.retention.PruneOnce(ctx)
}

// Status returns the current lifecycle state.
func (s *Snapship) Status() State {
	return s.scheduler.State()
}

// Faults delivers the error that made the scheduler stop itself.
func (s *Snapship) Faults() <-chan error {
	return s.scheduler.Faults()
}

// Err returns the last fault, or nil.
func (s *Snapship) Err() error {
	return s.scheduler.Err()
}

// Dir returns the snapshot directory.
func (s *Snapship) Dir() string {
	return s.store.Dir()
}
