package app

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/bft-labs/snapship/internal/ports"
)

// DefaultRetentionInterval is how often the corpus is checked when no
// interval is configured.
const DefaultRetentionInterval = time.Hour

// RetentionConfig bounds the size of the snapshot corpus.
// A zero limit is unbounded.
type RetentionConfig struct {
	Enabled  bool
	Interval time.Duration
	MaxFiles int
	MaxBytes int64
}

// PruneResult summarizes one retention pass.
type PruneResult struct {
	Removed        int
	FreedBytes     int64
	RemainingFiles int
	RemainingBytes int64
}

// Retention periodically removes the oldest snapshot files while the corpus
// exceeds its limits. The newest snapshot is never removed.
type Retention struct {
	files    ports.SnapshotPruner
	dir      string
	cfg      RetentionConfig
	logger   ports.Logger
	observer func(PruneResult)
	runNow   bool
}

// RetentionOption configures a Retention.
type RetentionOption func(*Retention)

// WithPruneObserver registers fn to be called after every pass that removed
// at least one file.
func WithPruneObserver(fn func(PruneResult)) RetentionOption {
	return func(r *Retention) {
		r.observer = fn
	}
}

// WithoutInitialPass makes Run wait one interval before the first pass.
func WithoutInitialPass() RetentionOption {
	return func(r *Retention) {
		r.runNow = false
	}
}

// NewRetention creates a retention runner for the snapshots in dir.
func NewRetention(files ports.SnapshotPruner, dir string, cfg RetentionConfig, logger ports.Logger, opts ...RetentionOption) *Retention {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultRetentionInterval
	}
	r := &Retention{
		files:  files,
		dir:    dir,
		cfg:    cfg,
		logger: logger,
		runNow: true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run prunes once immediately and then every interval until ctx is done.
// It returns at once when retention is disabled or has no limits.
func (r *Retention) Run(ctx context.Context) {
	if !r.cfg.Enabled || (r.cfg.MaxFiles <= 0 && r.cfg.MaxBytes <= 0) {
		return
	}

	r.logger.Info("retention enabled",
		ports.String("dir", r.dir),
		ports.Int("max_files", r.cfg.MaxFiles),
		ports.String("max_bytes", humanize.IBytes(uint64(max(r.cfg.MaxBytes, 0)))),
		ports.Duration("interval", r.cfg.Interval),
	)

	if r.runNow {
		r.pass(ctx)
	}

	t := time.NewTicker(r.cfg.Interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.pass(ctx)
		}
	}
}

func (r *Retention) pass(ctx context.Context) {
	if _, err := r.PruneOnce(ctx); err != nil && ctx.Err() == nil {
		r.logger.Error("retention pass failed", ports.Err(err))
	}
}

// PruneOnce performs a single retention pass.
func (r *Retention) PruneOnce(ctx context.Context) (PruneResult, error) {
	files, err := r.files.Files(ctx, r.dir)
	if err != nil {
		return PruneResult{}, fmt.Errorf("retention: %w", err)
	}

	var total int64
	for _, f := range files {
		total += f.Size
	}
	res := PruneResult{RemainingFiles: len(files), RemainingBytes: total}

	// The last file is the newest and always survives.
	for i := 0; i < len(files)-1 && r.overLimit(res); i++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		f := files[i]
		if err := r.files.Remove(ctx, filepath.Join(r.dir, f.Name)); err != nil {
			r.logger.Error("retention: remove failed", ports.String("file", f.Name), ports.Err(err))
			continue
		}
		res.Removed++
		res.FreedBytes += f.Size
		res.RemainingFiles--
		res.RemainingBytes -= f.Size
	}

	if res.Removed > 0 {
		r.logger.Info("retention pass completed",
			ports.Int("removed", res.Removed),
			ports.String("freed", humanize.IBytes(uint64(res.FreedBytes))),
			ports.Int("remaining_files", res.RemainingFiles),
			ports.String("remaining", humanize.IBytes(uint64(res.RemainingBytes))),
		)
		if r.observer != nil {
			r.observer(res)
		}
	}
	return res, nil
}

func (r *Retention) overLimit(res PruneResult) bool {
	if r.cfg.MaxFiles > 0 && res.RemainingFiles > r.cfg.MaxFiles {
		return true
	}
	return r.cfg.MaxBytes > 0 && res.RemainingBytes > r.cfg.MaxBytes
}
