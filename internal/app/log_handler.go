package app

import (
	"path/filepath"

	"github.com/bft-labs/snapship/internal/ports"
)

// LogEventHandler writes one log line per scheduler event.
type LogEventHandler struct {
	logger ports.Logger
}

// NewLogEventHandler creates a handler logging through logger.
func NewLogEventHandler(logger ports.Logger) *LogEventHandler {
	return &LogEventHandler{logger: logger}
}

func (h *LogEventHandler) OnStarted(e StartedEvent) {
	h.logger.Info("snapshots started", ports.Duration("interval", e.Interval))
}

func (h *LogEventHandler) OnCompleted(e CompletedEvent) {
	h.logger.Info("snapshot completed",
		ports.String("file", filepath.Base(e.FilePath)),
		ports.Int("entities", e.EntityCount),
	)
}

func (h *LogEventHandler) OnSkipped(e SkippedEvent) {
	h.logger.Warn("snapshot skipped",
		ports.String("reason", e.Reason),
		ports.Int("pending", e.PendingCount),
	)
}

func (h *LogEventHandler) OnError(e ErrorEvent) {
	h.logger.Error("snapshot failed", ports.String("message", e.Message), ports.Err(e.Err))
}

func (h *LogEventHandler) OnFatal(e FatalEvent) {
	h.logger.Error("too many overlapping snapshots, stopping",
		ports.Int("pending", e.PendingCount),
		ports.Err(e.Err),
	)
}

func (h *LogEventHandler) OnStopped(e StoppedEvent) {
	h.logger.Info("snapshots stopped", ports.Time("at", e.Timestamp))
}
