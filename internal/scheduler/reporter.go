package scheduler

import (
	"context"

	"github.com/hugo-lorenzo-mato/actionrun/internal/core"
	"github.com/hugo-lorenzo-mato/actionrun/internal/events"
	"github.com/hugo-lorenzo-mato/actionrun/internal/logging"
)

// LogReporter is the default FaultReporter. It logs the fault and publishes
// a run_fault event on the priority path so it is never dropped.
type LogReporter struct {
	logger *logging.Logger
	bus    *events.EventBus
}

// NewLogReporter creates a reporter. bus may be nil.
func NewLogReporter(logger *logging.Logger, bus *events.EventBus) *LogReporter {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &LogReporter{logger: logger, bus: bus}
}

// ReportFault implements core.FaultReporter.
func (r *LogReporter) ReportFault(ctx context.Context, run core.Run, err error) {
	args := []any{
		"run_id", run.ID,
		"action_type", run.ActionType,
		"status", string(run.Status),
		"error", err,
	}
	// Map attrs bypass the handler's string redaction.
	if len(run.RequestPayload) > 0 {
		args = append(args, "request", r.logger.Sanitizer().SanitizeMap(run.RequestPayload))
	}
	r.logger.ErrorContext(ctx, "run resolution fault", args...)
	if r.bus != nil {
		r.bus.PublishPriority(events.NewRunFaultEvent(run.OwnerToken, run.ID, err))
	}
}
