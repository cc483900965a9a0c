// Package metrics exports scheduler and retention activity as Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bft-labs/snapship/internal/app"
)

const namespace = "snapship"

// EventHandler records scheduler events into Prometheus collectors.
type EventHandler struct {
	snapshots    prometheus.Counter
	errors       prometheus.Counter
	skipped      prometheus.Counter
	fatal        prometheus.Counter
	pending      prometheus.Gauge
	running      prometheus.Gauge
	lastSnapshot prometheus.Gauge
	lastEntities prometheus.Gauge
	prunedFiles  prometheus.Counter
	prunedBytes  prometheus.Counter
	intervalSecs prometheus.Gauge
}

// NewEventHandler creates the collectors and registers them with reg.
func NewEventHandler(reg prometheus.Registerer) (*EventHandler, error) {
	h := &EventHandler{
		snapshots: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_total",
			Help:      "Snapshot files written.",
		}),
		errors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_errors_total",
			Help:      "Snapshots that failed.",
		}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_skipped_total",
			Help:      "Ticks skipped because a snapshot was still in progress.",
		}),
		fatal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backpressure_faults_total",
			Help:      "Times the scheduler stopped because too many ticks overlapped.",
		}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_ticks",
			Help:      "Ticks skipped since the current snapshot started.",
		}),
		running: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scheduler_running",
			Help:      "1 while the scheduler is running.",
		}),
		lastSnapshot: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_snapshot_timestamp_seconds",
			Help:      "Creation time of the last snapshot written.",
		}),
		lastEntities: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_snapshot_entities",
			Help:      "Entities in the last snapshot written.",
		}),
		prunedFiles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retention_removed_files_total",
			Help:      "Snapshot files removed by retention.",
		}),
		prunedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retention_freed_bytes_total",
			Help:      "Bytes freed by retention.",
		}),
		intervalSecs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "interval_seconds",
			Help:      "Configured snapshot interval.",
		}),
	}

	for _, c := range []prometheus.Collector{
		h.snapshots, h.errors, h.skipped, h.fatal, h.pending, h.running,
		h.lastSnapshot, h.lastEntities, h.prunedFiles, h.prunedBytes, h.intervalSecs,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return h, nil
}

func (h *EventHandler) OnStarted(e app.StartedEvent) {
	h.running.Set(1)
	h.pending.Set(0)
	h.intervalSecs.Set(e.Interval.Seconds())
}

func (h *EventHandler) OnCompleted(e app.CompletedEvent) {
	h.snapshots.Inc()
	h.lastEntities.Set(float64(e.EntityCount))
	h.lastSnapshot.Set(float64(e.Timestamp.UnixMilli()) / 1e3)
}

func (h *EventHandler) OnSkipped(e app.SkippedEvent) {
	h.skipped.Inc()
	h.pending.Set(float64(e.PendingCount))
}

func (h *EventHandler) OnError(app.ErrorEvent) {
	h.errors.Inc()
}

func (h *EventHandler) OnFatal(e app.FatalEvent) {
	h.fatal.Inc()
	h.pending.Set(float64(e.PendingCount))
}

func (h *EventHandler) OnStopped(app.StoppedEvent) {
	h.running.Set(0)
}

// ObservePrune records a retention pass. It matches the retention observer
// signature.
func (h *EventHandler) ObservePrune(res app.PruneResult) {
	h.prunedFiles.Add(float64(res.Removed))
	h.prunedBytes.Add(float64(res.FreedBytes))
}
