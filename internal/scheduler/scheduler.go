// Package scheduler drives runs from pending to a terminal status.
//
// Scheduling is fire-and-forget: Schedule marks the run in progress and arms
// one timer. When the timer fires, Resolve re-reads the run and records
// exactly one terminal outcome. The store rejects any transition out of a
// terminal status, so a second resolution of the same run is a no-op.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/hugo-lorenzo-mato/actionrun/internal/core"
	"github.com/hugo-lorenzo-mato/actionrun/internal/events"
	"github.com/hugo-lorenzo-mato/actionrun/internal/logging"
)

// ErrResolution marks faults raised while deciding a run's outcome.
var ErrResolution = errors.New("run resolution fault")

// Default completion latency bounds.
const (
	DefaultMinDelay = 800 * time.Millisecond
	DefaultMaxDelay = 1700 * time.Millisecond
)

// Scheduler resolves runs asynchronously.
type Scheduler struct {
	store    core.RunStore
	lookup   core.ActionLookup
	timer    core.Timer
	reporter core.FaultReporter
	bus      *events.EventBus
	logger   *logging.Logger
	now      func() time.Time
	minDelay time.Duration
	maxDelay time.Duration
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithTimer sets the timer used to arm completions.
func WithTimer(t core.Timer) Option {
	return func(s *Scheduler) {
		s.timer = t
	}
}

// WithDelay sets the completion latency bounds.
func WithDelay(minDelay, maxDelay time.Duration) Option {
	return func(s *Scheduler) {
		s.minDelay = minDelay
		s.maxDelay = maxDelay
	}
}

// WithReporter sets the collaborator notified of resolution faults.
func WithReporter(r core.FaultReporter) Option {
	return func(s *Scheduler) {
		s.reporter = r
	}
}

// WithEventBus publishes lifecycle events to bus.
func WithEventBus(bus *events.EventBus) Option {
	return func(s *Scheduler) {
		s.bus = bus
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Scheduler) {
		s.logger = l
	}
}

// WithClock overrides the time source used for StartedAt and CompletedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
	}
}

// New creates a scheduler. The delay bounds must be positive with max >= min.
func New(store core.RunStore, lookup core.ActionLookup, opts ...Option) (*Scheduler, error) {
	s := &Scheduler{
		store:    store,
		lookup:   lookup,
		now:      func() time.Time { return time.Now().UTC() },
		minDelay: DefaultMinDelay,
		maxDelay: DefaultMaxDelay,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.minDelay <= 0 || s.maxDelay <= 0 {
		return nil, fmt.Errorf("scheduler: delays must be positive (min=%v, max=%v)", s.minDelay, s.maxDelay)
	}
	if s.maxDelay < s.minDelay {
		return nil, fmt.Errorf("scheduler: max delay %v is below min delay %v", s.maxDelay, s.minDelay)
	}

	if s.logger == nil {
		s.logger = logging.NewNop()
	}
	s.logger = s.logger.WithComponent("scheduler")
	if s.timer == nil {
		s.timer = NewWallTimer()
	}
	if s.reporter == nil {
		s.reporter = NewLogReporter(s.logger, s.bus)
	}
	return s, nil
}

// Delay draws a completion latency uniformly from [min, max].
func (s *Scheduler) Delay() time.Duration {
	span := int64(s.maxDelay - s.minDelay)
	if span <= 0 {
		return s.minDelay
	}
	return s.minDelay + time.Duration(rand.Int64N(span+1))
}

// Schedule moves run to in_progress and arms its completion. A run that has
// vanished or was already started is left alone.
func (s *Scheduler) Schedule(ctx context.Context, run *core.Run) error {
	owner, id := run.OwnerToken, run.ID
	logger := s.logger.WithRun(id).WithAction(run.ActionType)

	started, err := s.store.Update(ctx, owner, id, core.StartPatch(s.now()))
	if err != nil {
		if core.IsNotFound(err) || core.IsCategory(err, core.ErrCatState) {
			logger.Debug("run not schedulable, skipping", "error", err)
			return nil
		}
		return fmt.Errorf("starting run %s: %w", id, err)
	}
	s.publish(events.NewRunStartedEvent(owner, id, started.ActionType))

	delay := s.Delay()
	logger.Debug("completion armed", "delay", delay)

	// The caller's context usually ends with its request; resolution must not.
	resolveCtx := context.WithoutCancel(ctx)
	s.timer.After(delay, func() {
		s.Resolve(resolveCtx, owner, id)
	})
	return nil
}

// Resolve records the terminal outcome of an in-progress run. Runs that are
// missing or no longer in progress are ignored. Any internal fault, including
// a panic from the store, is reported and ends the run as a server error.
func (s *Scheduler) Resolve(ctx context.Context, owner, id string) {
	logger := s.logger.WithRun(id)
	subject := core.Run{ID: id, OwnerToken: owner}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic escaped run resolution", "panic", r)
			s.fail(ctx, subject, fmt.Errorf("%w: run %s: panic: %v", ErrResolution, id, r))
		}
	}()

	run, err := s.store.Get(ctx, owner, id)
	if err != nil {
		if core.IsNotFound(err) {
			return
		}
		s.fail(ctx, subject, fmt.Errorf("reading run %s: %w", id, err))
		return
	}
	subject = *run
	if run.Status != core.RunStatusInProgress {
		return
	}

	patch, err := s.outcome(run)
	if err != nil {
		s.fail(ctx, subject, err)
		return
	}

	resolved, err := s.store.Update(ctx, owner, id, patch)
	if err != nil {
		if core.IsNotFound(err) || core.IsCategory(err, core.ErrCatState) {
			logger.Debug("run already resolved", "error", err)
			return
		}
		s.fail(ctx, subject, err)
		return
	}

	s.announce(resolved)
}

// fail reports err and makes one attempt to record a server error on run.
// It never panics.
func (s *Scheduler) fail(ctx context.Context, run core.Run, err error) {
	logger := s.logger.WithRun(run.ID)
	defer func() {
		if r := recover(); r != nil {
			logger.Error("recording server error panicked", "panic", r, "fault", err)
		}
	}()

	s.report(ctx, run, err)

	resolved, uerr := s.store.Update(ctx, run.OwnerToken, run.ID, serverErrorPatch(s.now()))
	if uerr != nil {
		if core.IsNotFound(uerr) || core.IsCategory(uerr, core.ErrCatState) {
			logger.Debug("run already resolved", "error", uerr)
			return
		}
		logger.Error("recording server error", "error", uerr, "fault", err)
		return
	}
	s.announce(resolved)
}

// report hands err to the fault reporter, which must not take resolution down.
func (s *Scheduler) report(ctx context.Context, run core.Run, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.WithRun(run.ID).Error("fault reporter panicked", "panic", r, "fault", err)
		}
	}()
	s.reporter.ReportFault(ctx, run, err)
}

// outcome decides the terminal patch for run. Panics raised by collaborators
// are returned as errors.
func (s *Scheduler) outcome(run *core.Run) (patch core.RunPatch, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: run %s: panic: %v", ErrResolution, run.ID, r)
		}
	}()

	now := s.now()
	def, ok := s.lookup.Find(run.ActionType)
	if !ok {
		return core.FailPatch(now, ResultUnknownAction, nil, unknownActionError(run.ActionType)), nil
	}
	if def.Parameters.AlwaysFail || simulateFailure(run.RequestPayload) {
		return core.FailPatch(now, ResultExecutionFailed, map[string]any{"ok": false}, executionFailedError(def)), nil
	}

	response := map[string]any{
		"ok":     true,
		"action": def.ID,
		"leadId": run.LeadID,
	}
	return core.CompletePatch(now, fmt.Sprintf("%s completed successfully.", def.Name), response), nil
}

func (s *Scheduler) announce(run *core.Run) {
	logger := s.logger.WithRun(run.ID).WithAction(run.ActionType)
	switch run.Status {
	case core.RunStatusCompleted:
		logger.Info("run completed", "result", run.Result)
		s.publish(events.NewRunCompletedEvent(run.OwnerToken, run.ID, run.ActionType, run.Result))
	case core.RunStatusFailed:
		var code, msg string
		var retryable bool
		if run.Error != nil {
			code, msg, retryable = run.Error.Code, run.Error.Message, run.Error.Retryable
		}
		logger.Info("run failed", "code", code, "retryable", retryable)
		s.publish(events.NewRunFailedEvent(run.OwnerToken, run.ID, run.ActionType, code, msg, retryable))
	}
}

func (s *Scheduler) publish(ev events.Event) {
	if s.bus != nil {
		s.bus.Publish(ev)
	}
}

// simulateFailure reports whether the request context asks for a failure.
func simulateFailure(payload map[string]any) bool {
	ctx, ok := payload["context"].(map[string]any)
	if !ok {
		return false
	}
	switch v := ctx["simulateFailure"].(type) {
	case bool:
		return v
	case string:
		return v == "true"
	}
	return false
}
