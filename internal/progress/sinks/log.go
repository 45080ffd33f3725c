package sinks

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/guestpost-catalog/internal/progress"
)

// LogSink writes each progress event as a structured log line.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs every event in the batch. Failure stages log at warn level.
func (s *LogSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		fields := []zap.Field{
			zap.String("run_id", uuid.UUID(evt.RunID).String()),
			zap.String("stage", string(evt.Stage)),
			zap.String("mode", string(evt.Mode)),
			zap.Duration("dur", evt.Dur),
		}
		if evt.Batch > 0 {
			fields = append(fields, zap.Int("batch", evt.Batch))
		}
		fields = append(fields,
			zap.Int("sites", evt.Sites),
			zap.Int("written", evt.Written),
			zap.Int("added", evt.Added),
			zap.Int("skipped", evt.Skipped),
			zap.Int("failed", evt.Failed),
		)
		switch evt.Stage {
		case progress.StageBatchFailed, progress.StageRunError:
			s.logger.Warn("progress event", append(fields, zap.String("note", evt.Note))...)
		default:
			s.logger.Debug("progress event", fields...)
		}
	}
	return nil
}

// Close implements progress.Sink; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}
