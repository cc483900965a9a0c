package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bft-labs/snapship/internal/adapters/fs"
	"github.com/bft-labs/snapship/internal/app"
	"github.com/bft-labs/snapship/internal/ports"
	"github.com/bft-labs/snapship/internal/render"
	"github.com/bft-labs/snapship/internal/watch"
)

func newReportCmd(c *cli) *cobra.Command {
	var watchCorpus bool

	cmd := &cobra.Command{
		Use:   "report [dir]",
		Short: "Summarize the snapshots in a directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.load(cmd); err != nil {
				return err
			}
			dir := c.cfg.BackupDir
			if len(args) == 1 {
				dir = args[0]
			}
			format, err := render.ParseFormat(c.cfg.ReportFormat)
			if err != nil {
				return err
			}

			logger := c.logger()
			agg := app.NewAggregator(fs.NewSnapshotStore(dir), logger)
			r := render.New(format)
			out := cmd.OutOrStdout()

			if !watchCorpus {
				return printReport(cmd.Context(), agg, r, out, dir)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			w := watch.NewCorpusWatcher(dir, logger, func(ctx context.Context) {
				if err := printReport(ctx, agg, r, out, dir); err != nil {
					logger.Error("report failed", ports.Err(err))
				}
			})
			return w.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&c.cfg.ReportFormat, "format", c.cfg.ReportFormat, "output format (table, json, yaml)")
	cmd.Flags().BoolVar(&watchCorpus, "watch", false, "print the report again whenever snapshots change")
	return cmd
}

func printReport(ctx context.Context, agg *app.Aggregator, r *render.Renderer, out io.Writer, dir string) error {
	report, err := agg.GenerateReport(ctx, dir)
	if err != nil {
		return err
	}
	if err := r.Render(out, report); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}
