package audit

import (
	"context"
	"log/slog"
)

// LogPublisher writes events to a structured logger.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher returns a publisher backed by logger.
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Emit logs the event at info level.
func (p *LogPublisher) Emit(ctx context.Context, event Event) error {
	if p == nil || p.logger == nil {
		return nil
	}
	attrs := []any{
		"log_type", "audit",
		"user_id", event.UserID,
		"job_id", event.JobID,
		"job_type", int(event.JobType),
	}
	if event.SmileJobID != "" {
		attrs = append(attrs, "smile_job_id", event.SmileJobID)
	}
	if event.Stage != "" {
		attrs = append(attrs, "stage", event.Stage)
	}
	if event.Attempt > 0 {
		attrs = append(attrs, "attempt", event.Attempt)
	}
	if event.Reason != "" {
		attrs = append(attrs, "reason", event.Reason)
	}
	if event.ResultCode != "" {
		attrs = append(attrs, "result_code", event.ResultCode)
	}
	p.logger.InfoContext(ctx, string(event.Action), attrs...)
	return nil
}
