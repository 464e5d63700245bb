package events

import (
	"context"
	"log/slog"

	"github.com/specialistvlad/hashgrid/internal/ctxlog"
)

// LogReporter writes events to the context's logger.
type LogReporter struct{}

func (LogReporter) Report(ctx context.Context, e Event) {
	logger := ctxlog.FromContext(ctx)
	attrs := []any{"event", string(e.Type)}
	if e.ID != "" {
		attrs = append(attrs, "derivation", e.ID)
	}

	switch e.Type {
	case RunStarted:
		logger.Info("Run started.", append(attrs, "run_id", e.RunID, "levels", e.Size)...)
	case RunFinished:
		logger.Info("Run finished.", append(attrs, "run_id", e.RunID, "duration", e.Duration)...)
	case LevelStarted:
		logger.Info("Submitting level.", append(attrs, "level", e.Level, "jobs", e.Size)...)
	case LevelFinished:
		logger.Debug("Level finished.", append(attrs, "level", e.Level, "duration", e.Duration)...)
	case JobStarted:
		logger.Debug("Job started.", attrs...)
	case JobCached:
		logger.Info("Cached.", append(attrs, "output", e.Output)...)
	case JobCompleted:
		logger.Info("Completed.", append(attrs, "output", e.Output, "duration", e.Duration)...)
	case JobFailed:
		logger.Error("Failed.", append(attrs, "error", e.Error)...)
	default:
		logger.Log(ctx, slog.LevelDebug, "Event.", attrs...)
	}
}
