package events

// Event type constants for run lifecycle events.
const (
	TypeRunQueued    = "run_queued"
	TypeRunStarted   = "run_started"
	TypeRunCompleted = "run_completed"
	TypeRunFailed    = "run_failed"
	TypeRunFault     = "run_fault"
)

// RunQueuedEvent is emitted when a run is created.
type RunQueuedEvent struct {
	BaseEvent
	ActionType string `json:"action_type"`
	LeadID     string `json:"lead_id,omitempty"`
	RetryOf    string `json:"retry_of,omitempty"`
}

// NewRunQueuedEvent creates a new run queued event.
func NewRunQueuedEvent(owner, runID, actionType, leadID, retryOf string) RunQueuedEvent {
	return RunQueuedEvent{
		BaseEvent:  NewBaseEvent(TypeRunQueued, owner, runID),
		ActionType: actionType,
		LeadID:     leadID,
		RetryOf:    retryOf,
	}
}

// RunStartedEvent is emitted when a run leaves pending.
type RunStartedEvent struct {
	BaseEvent
	ActionType string `json:"action_type"`
}

// NewRunStartedEvent creates a new run started event.
func NewRunStartedEvent(owner, runID, actionType string) RunStartedEvent {
	return RunStartedEvent{
		BaseEvent:  NewBaseEvent(TypeRunStarted, owner, runID),
		ActionType: actionType,
	}
}

// RunCompletedEvent is emitted once when a run completes successfully.
type RunCompletedEvent struct {
	BaseEvent
	ActionType string `json:"action_type"`
	Result     string `json:"result"`
}

// NewRunCompletedEvent creates a new run completed event.
func NewRunCompletedEvent(owner, runID, actionType, result string) RunCompletedEvent {
	return RunCompletedEvent{
		BaseEvent:  NewBaseEvent(TypeRunCompleted, owner, runID),
		ActionType: actionType,
		Result:     result,
	}
}

// RunFailedEvent is emitted once when a run fails.
type RunFailedEvent struct {
	BaseEvent
	ActionType string `json:"action_type"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Retryable  bool   `json:"retryable"`
}

// NewRunFailedEvent creates a new run failed event.
func NewRunFailedEvent(owner, runID, actionType, code, message string, retryable bool) RunFailedEvent {
	return RunFailedEvent{
		BaseEvent:  NewBaseEvent(TypeRunFailed, owner, runID),
		ActionType: actionType,
		Code:       code,
		Message:    message,
		Retryable:  retryable,
	}
}

// RunFaultEvent reports an internal fault raised while resolving a run.
type RunFaultEvent struct {
	BaseEvent
	Error string `json:"error"`
}

// NewRunFaultEvent creates a new run fault event.
func NewRunFaultEvent(owner, runID string, err error) RunFaultEvent {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return RunFaultEvent{
		BaseEvent: NewBaseEvent(TypeRunFault, owner, runID),
		Error:     msg,
	}
}
