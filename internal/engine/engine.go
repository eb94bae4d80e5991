// Package engine is the entry point callers use to plan, execute, retry and
// inspect action runs.
package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/hugo-lorenzo-mato/actionrun/internal/core"
	"github.com/hugo-lorenzo-mato/actionrun/internal/events"
	"github.com/hugo-lorenzo-mato/actionrun/internal/logging"
	"github.com/hugo-lorenzo-mato/actionrun/internal/query"
)

// DefaultSource is recorded when a request names no source.
const DefaultSource = "dashboard"

// Catalog lists and resolves action definitions.
type Catalog interface {
	core.ActionLookup
	List() []core.ActionDefinition
	IDs() []string
}

// Scheduler drives a freshly created run to completion.
type Scheduler interface {
	Schedule(ctx context.Context, run *core.Run) error
}

// ExecuteRequest is the caller-supplied input of Plan and Execute.
type ExecuteRequest struct {
	ActionType string         `json:"actionType"`
	Source     string         `json:"source,omitempty"`
	LeadID     string         `json:"leadId,omitempty"`
	Context    map[string]any `json:"context,omitempty"`
}

// Engine composes the catalog, run store, scheduler and query service.
type Engine struct {
	catalog       Catalog
	store         core.RunStore
	scheduler     Scheduler
	queries       *query.Service
	bus           *events.EventBus
	logger        *logging.Logger
	defaultSource string
}

// Option configures an Engine.
type Option func(*Engine)

// WithDefaultSource sets the source recorded when a request names none.
func WithDefaultSource(source string) Option {
	return func(e *Engine) {
		e.defaultSource = source
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithEventBus publishes run_queued events to bus.
func WithEventBus(bus *events.EventBus) Option {
	return func(e *Engine) {
		e.bus = bus
	}
}

// New creates an engine.
func New(catalog Catalog, store core.RunStore, scheduler Scheduler, opts ...Option) *Engine {
	e := &Engine{
		catalog:       catalog,
		store:         store,
		scheduler:     scheduler,
		queries:       query.NewService(store),
		defaultSource: DefaultSource,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logging.NewNop()
	}
	e.logger = e.logger.WithComponent("engine")
	return e
}

// ListActions returns a copy of the catalog.
func (e *Engine) ListActions() []core.ActionDefinition {
	return e.catalog.List()
}

// Execute creates a pending run and hands it to the scheduler. It returns
// the pending snapshot without waiting for resolution.
func (e *Engine) Execute(ctx context.Context, owner string, req ExecuteRequest) (*core.Run, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	req.ActionType = strings.TrimSpace(req.ActionType)
	if req.ActionType == "" {
		return nil, core.ErrValidation(core.CodeActionTypeRequired, "actionType is required")
	}
	if req.Source == "" {
		req.Source = e.defaultSource
	}
	return e.submit(ctx, owner, req, "")
}

// Retry creates and schedules a new run repeating a terminal one. The
// original run is left untouched.
func (e *Engine) Retry(ctx context.Context, owner, id string) (*core.Run, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	orig, err := e.store.Get(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if !orig.Status.IsTerminal() {
		return nil, core.ErrState(core.CodeRunNotTerminal,
			fmt.Sprintf("run %s is %s; only completed or failed runs can be retried", id, orig.Status)).
			WithDetail("status", string(orig.Status))
	}

	req := ExecuteRequest{
		ActionType: orig.ActionType,
		Source:     orig.Source,
		LeadID:     orig.LeadID,
	}
	if c, ok := orig.RequestPayload["context"].(map[string]any); ok {
		req.Context = c
	}
	return e.submit(ctx, owner, req, orig.ID)
}

// Get returns one of the owner's runs.
func (e *Engine) Get(ctx context.Context, owner, id string) (*core.Run, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	return e.store.Get(ctx, owner, id)
}

// Query returns the owner's runs matching f.
func (e *Engine) Query(ctx context.Context, owner string, f query.Filter) ([]*core.Run, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	return e.queries.Query(ctx, owner, f)
}

func (e *Engine) submit(ctx context.Context, owner string, req ExecuteRequest, retryOf string) (*core.Run, error) {
	run, err := e.store.Create(ctx, owner, core.NewRun{
		ActionType:     req.ActionType,
		Source:         req.Source,
		LeadID:         req.LeadID,
		RequestPayload: requestPayload(req, retryOf),
		RetryOf:        retryOf,
	})
	if err != nil {
		return nil, fmt.Errorf("creating run: %w", err)
	}

	logger := e.logger.WithRun(run.ID).WithAction(run.ActionType)
	logger.Info("run queued", "source", run.Source, "retry_of", retryOf)
	if e.bus != nil {
		e.bus.Publish(events.NewRunQueuedEvent(owner, run.ID, run.ActionType, run.LeadID, retryOf))
	}

	if err := e.scheduler.Schedule(ctx, run); err != nil {
		// The run stays pending and visible; the caller still gets it back.
		logger.Error("scheduling run", "error", err)
	}
	return run, nil
}

func requestPayload(req ExecuteRequest, retryOf string) map[string]any {
	ctx := core.ClonePayload(req.Context)
	if ctx == nil {
		ctx = map[string]any{}
	}
	payload := map[string]any{
		"actionType": req.ActionType,
		"source":     req.Source,
		"leadId":     req.LeadID,
		"context":    ctx,
	}
	if retryOf != "" {
		payload["retryOf"] = retryOf
	}
	return payload
}

func requireOwner(owner string) error {
	if strings.TrimSpace(owner) == "" {
		return core.ErrValidation(core.CodeOwnerRequired, "owner token is required")
	}
	return nil
}
