package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/bft-labs/snapship/internal/adapters/fs"
	"github.com/bft-labs/snapship/internal/adapters/metrics"
	"github.com/bft-labs/snapship/internal/adapters/sqlite"
	"github.com/bft-labs/snapship/internal/app"
	"github.com/bft-labs/snapship/internal/domain"
	"github.com/bft-labs/snapship/internal/ports"
)

// shutdownTimeout bounds how long run waits for an in-flight snapshot.
const shutdownTimeout = 30 * time.Second

func newRunCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Take a snapshot every interval until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.load(cmd); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, c)
		},
	}

	f := cmd.Flags()
	f.DurationVar(&c.cfg.Interval, "interval", c.cfg.Interval, "time between snapshots")
	f.IntVar(&c.cfg.MaxPending, "max-pending", c.cfg.MaxPending, "consecutive skipped ticks tolerated before stopping")
	f.StringVar(&c.cfg.Database, "db", c.cfg.Database, "SQLite database holding the students table")
	f.StringVar(&c.cfg.SourceFile, "source-file", c.cfg.SourceFile, "JSON file re-read on every tick")
	f.StringVar(&c.cfg.MetricsAddr, "metrics-addr", c.cfg.MetricsAddr, "serve Prometheus metrics on this address (e.g. :9090)")
	f.IntVar(&c.cfg.RetentionMaxFiles, "retention-max-files", c.cfg.RetentionMaxFiles, "keep at most this many snapshots (0 = unlimited)")
	f.StringVar(&c.cfg.RetentionMaxSize, "retention-max-bytes", c.cfg.RetentionMaxSize, "keep the corpus under this size, e.g. 512MiB")
	f.DurationVar(&c.cfg.RetentionInterval, "retention-interval", c.cfg.RetentionInterval, "how often retention runs")
	f.BoolVar(&c.cfg.Once, "once", c.cfg.Once, "take a single snapshot and exit")
	return cmd
}

func run(ctx context.Context, c *cli) error {
	logger := c.logger()
	cfg := c.cfg

	supplier, closeSupplier, err := openSupplier(ctx, c)
	if err != nil {
		return err
	}
	defer closeSupplier()

	store := fs.NewSnapshotStore(cfg.BackupDir)
	opts := []app.SchedulerOption{
		app.WithEventHandler(app.NewLogEventHandler(logger)),
		app.WithMaxPending(cfg.MaxPending),
	}
	var retentionOpts []app.RetentionOption

	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		mh, err := metrics.NewEventHandler(reg)
		if err != nil {
			return fmt.Errorf("register metrics: %w", err)
		}
		srv, err := metrics.NewServer(cfg.MetricsAddr, reg, logger)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Close(shutdownCtx); err != nil {
				logger.Warn("metrics server shutdown", ports.Err(err))
			}
		}()
		opts = append(opts, app.WithEventHandler(mh))
		retentionOpts = append(retentionOpts, app.WithPruneObserver(mh.ObservePrune))
	}

	sched := app.NewScheduler(store, logger, opts...)

	if cfg.Once {
		_, err := sched.SnapshotNow(ctx, supplier)
		return err
	}

	retention := app.NewRetention(store, cfg.BackupDir, cfg.Retention(), logger, retentionOpts...)
	retentionCtx, stopRetention := context.WithCancel(ctx)
	retentionDone := make(chan struct{})
	go func() {
		defer close(retentionDone)
		retention.Run(retentionCtx)
	}()
	defer func() {
		stopRetention()
		<-retentionDone
	}()

	if err := sched.Start(ctx, supplier, cfg.Interval); err != nil {
		return err
	}

	var fault error
	select {
	case <-ctx.Done():
		logger.Info("received signal, stopping")
	case fault = <-sched.Faults():
	}

	sched.Stop()
	if err := sched.Wait(shutdownTimeout); err != nil {
		logger.Warn("snapshot still running at exit", ports.Err(err))
	}
	return fault
}

// openSupplier picks the data source: a SQLite database, a JSON file, or the
// built-in sample rows when neither is configured.
func openSupplier(ctx context.Context, c *cli) (ports.Supplier, func(), error) {
	logger := c.logger()
	switch {
	case c.cfg.Database != "":
		db, err := sqlite.Open(ctx, c.cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("reading entities from sqlite", ports.String("db", db.Path()))
		return db, func() { _ = db.Close() }, nil

	case c.cfg.SourceFile != "":
		if _, err := os.Stat(c.cfg.SourceFile); err != nil {
			return nil, nil, fmt.Errorf("source file: %w", err)
		}
		logger.Info("reading entities from file", ports.String("file", c.cfg.SourceFile))
		return fs.NewFileSupplier(c.cfg.SourceFile), func() {}, nil

	default:
		logger.Warn("no --db or --source-file given, snapshotting the sample dataset")
		sample := sqlite.SampleEntities
		return ports.SupplierFunc(func(context.Context) ([]domain.Entity, error) {
			return sample, nil
		}), func() {}, nil
	}
}
