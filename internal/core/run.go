package core

import (
	"fmt"
	"slices"
	"time"
)

// RunStatus represents the lifecycle state of a run.
type RunStatus string

const (
	RunStatusPending    RunStatus = "pending"
	RunStatusInProgress RunStatus = "in_progress"
	RunStatusCompleted  RunStatus = "completed"
	RunStatusFailed     RunStatus = "failed"
)

// Valid reports whether s is a known status.
func (s RunStatus) Valid() bool {
	switch s {
	case RunStatusPending, RunStatusInProgress, RunStatusCompleted, RunStatusFailed:
		return true
	}
	return false
}

// IsTerminal returns true for completed and failed.
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed
}

// CanTransitionTo reports whether moving from s to next is a legal step.
// The only legal paths are pending -> in_progress -> completed|failed.
func (s RunStatus) CanTransitionTo(next RunStatus) bool {
	switch s {
	case RunStatusPending:
		return next == RunStatusInProgress
	case RunStatusInProgress:
		return next == RunStatusCompleted || next == RunStatusFailed
	default:
		return false
	}
}

// Run error codes recorded on failed runs.
const (
	RunErrUnknownAction   = "unknown_action"
	RunErrExecutionFailed = "execution_failed"
	RunErrServerError     = "server_error"
)

// RunError is the structured failure detail of a failed run.
type RunError struct {
	Code      string   `json:"code"`
	Message   string   `json:"message"`
	NextSteps []string `json:"nextSteps,omitempty"`
	Retryable bool     `json:"retryable"`
	DocsURL   string   `json:"docsUrl,omitempty"`
}

// Run is one tracked execution attempt of an action.
//
// A Run is never mutated in place once stored. Updates go through Apply,
// which returns a fresh record that replaces the stored one.
type Run struct {
	ID              string         `json:"id"`
	OwnerToken      string         `json:"-"`
	ActionType      string         `json:"actionType"`
	Source          string         `json:"source"`
	LeadID          string         `json:"leadId,omitempty"`
	Status          RunStatus      `json:"status"`
	CreatedAt       time.Time      `json:"createdAt"`
	StartedAt       *time.Time     `json:"startedAt,omitempty"`
	CompletedAt     *time.Time     `json:"completedAt,omitempty"`
	Result          string         `json:"result,omitempty"`
	RequestPayload  map[string]any `json:"requestPayload,omitempty"`
	ResponsePayload map[string]any `json:"responsePayload,omitempty"`
	Error           *RunError      `json:"error,omitempty"`
	RetryOf         string         `json:"retryOf,omitempty"`
}

// NewRun carries the caller-supplied fields of a run about to be created.
type NewRun struct {
	ActionType     string
	Source         string
	LeadID         string
	RequestPayload map[string]any
	RetryOf        string
}

// RunPatch is a partial update applied to a run. Nil fields are left as is.
type RunPatch struct {
	Status          *RunStatus
	StartedAt       *time.Time
	CompletedAt     *time.Time
	Result          *string
	ResponsePayload map[string]any
	Error           *RunError
	ClearError      bool
}

// Clone returns a copy of the run that shares no mutable state with r.
func (r *Run) Clone() *Run {
	if r == nil {
		return nil
	}
	cp := *r
	cp.RequestPayload = ClonePayload(r.RequestPayload)
	cp.ResponsePayload = ClonePayload(r.ResponsePayload)
	if r.StartedAt != nil {
		t := *r.StartedAt
		cp.StartedAt = &t
	}
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		cp.CompletedAt = &t
	}
	if r.Error != nil {
		e := *r.Error
		e.NextSteps = slices.Clone(r.Error.NextSteps)
		cp.Error = &e
	}
	return &cp
}

// Apply returns a new run with p merged in. The receiver is left untouched.
// Patches that break the lifecycle rules are rejected with a state error.
func (r *Run) Apply(p RunPatch) (*Run, error) {
	next := r.Clone()

	if p.Status != nil && *p.Status != r.Status {
		if !r.Status.CanTransitionTo(*p.Status) {
			return nil, ErrState(CodeInvalidTransition,
				fmt.Sprintf("run %s cannot move from %s to %s", r.ID, r.Status, *p.Status))
		}
		next.Status = *p.Status
	} else if p.Status != nil {
		return nil, ErrState(CodeInvalidTransition,
			fmt.Sprintf("run %s is already %s", r.ID, r.Status))
	}

	if p.StartedAt != nil {
		if r.StartedAt != nil {
			return nil, ErrState(CodeInvalidTransition, fmt.Sprintf("run %s already started", r.ID))
		}
		t := *p.StartedAt
		next.StartedAt = &t
	}
	if p.CompletedAt != nil {
		if r.CompletedAt != nil {
			return nil, ErrState(CodeInvalidTransition, fmt.Sprintf("run %s already completed", r.ID))
		}
		t := *p.CompletedAt
		next.CompletedAt = &t
	}

	terminalOnly := p.Result != nil || p.ResponsePayload != nil || p.Error != nil || p.CompletedAt != nil
	if terminalOnly && !next.Status.IsTerminal() {
		return nil, ErrState(CodeInvalidTransition,
			fmt.Sprintf("run %s: outcome fields require a terminal status", r.ID))
	}

	if p.Result != nil {
		next.Result = *p.Result
	}
	if p.ResponsePayload != nil {
		next.ResponsePayload = ClonePayload(p.ResponsePayload)
	}
	if p.ClearError {
		next.Error = nil
	}
	if p.Error != nil {
		e := *p.Error
		e.NextSteps = slices.Clone(p.Error.NextSteps)
		next.Error = &e
	}
	if next.Error != nil && next.Status != RunStatusFailed {
		return nil, ErrState(CodeInvalidTransition,
			fmt.Sprintf("run %s: error detail is only allowed on failed runs", r.ID))
	}

	return next, nil
}

// StartPatch moves a pending run to in_progress.
func StartPatch(now time.Time) RunPatch {
	status := RunStatusInProgress
	return RunPatch{Status: &status, StartedAt: &now}
}

// CompletePatch resolves an in-progress run successfully.
func CompletePatch(now time.Time, result string, response map[string]any) RunPatch {
	status := RunStatusCompleted
	return RunPatch{
		Status:          &status,
		CompletedAt:     &now,
		Result:          &result,
		ResponsePayload: response,
		ClearError:      true,
	}
}

// FailPatch resolves an in-progress run as failed.
func FailPatch(now time.Time, result string, response map[string]any, runErr RunError) RunPatch {
	status := RunStatusFailed
	return RunPatch{
		Status:          &status,
		CompletedAt:     &now,
		Result:          &result,
		ResponsePayload: response,
		Error:           &runErr,
	}
}

// ClonePayload deep-copies a JSON-shaped payload. Nested maps and slices
// are copied; other values are shared.
func ClonePayload(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return ClonePayload(t)
	case []any:
		cp := make([]any, len(t))
		for i, e := range t {
			cp[i] = cloneValue(e)
		}
		return cp
	default:
		return v
	}
}
