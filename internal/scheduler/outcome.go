package scheduler

import (
	"fmt"
	"time"

	"github.com/hugo-lorenzo-mato/actionrun/internal/core"
)

// Result summaries recorded on failed runs.
const (
	ResultUnknownAction   = "Unknown action type."
	ResultExecutionFailed = "Execution failed."
	ResultServerError     = "Server error."
)

const docsBase = "/docs/errors/"

func unknownActionError(actionType string) core.RunError {
	return core.RunError{
		Code:    core.RunErrUnknownAction,
		Message: fmt.Sprintf("Action type %q is not in the catalog.", actionType),
		NextSteps: []string{
			"List the available actions and pick a supported action type.",
		},
		Retryable: false,
		DocsURL:   docsBase + core.RunErrUnknownAction,
	}
}

func executionFailedError(def core.ActionDefinition) core.RunError {
	return core.RunError{
		Code:    core.RunErrExecutionFailed,
		Message: fmt.Sprintf("%s did not complete.", def.Name),
		NextSteps: []string{
			"Check the lead and action parameters.",
			"Retry the run.",
		},
		Retryable: true,
		DocsURL:   docsBase + core.RunErrExecutionFailed,
	}
}

func serverErrorPatch(now time.Time) core.RunPatch {
	return core.FailPatch(now, ResultServerError, nil, core.RunError{
		Code:      core.RunErrServerError,
		Message:   "An internal error interrupted the run.",
		NextSteps: []string{"Retry the run. If it keeps failing, contact support."},
		Retryable: true,
		DocsURL:   docsBase + core.RunErrServerError,
	})
}
