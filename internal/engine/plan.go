package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/hugo-lorenzo-mato/actionrun/internal/core"
)

// Plan is the dry-run preview of an execute request.
type Plan struct {
	ActionType string   `json:"actionType"`
	Known      bool     `json:"known"`
	Summary    string   `json:"summary"`
	Steps      []string `json:"steps"`
	Warnings   []string `json:"warnings,omitempty"`

	// Suggestions lists close catalog ids when the action type is unknown.
	Suggestions []string `json:"suggestions,omitempty"`
}

// maxSuggestions caps the ids offered for an unknown action type.
const maxSuggestions = 3

// Plan describes what Execute would do for req without creating a run.
// It depends only on the catalog.
func (e *Engine) Plan(_ context.Context, owner string, req ExecuteRequest) (*Plan, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	actionType := strings.TrimSpace(req.ActionType)
	if actionType == "" {
		return nil, core.ErrValidation(core.CodeActionTypeRequired, "actionType is required")
	}
	source := req.Source
	if source == "" {
		source = e.defaultSource
	}

	def, ok := e.catalog.Find(actionType)
	if !ok {
		return &Plan{
			ActionType: actionType,
			Known:      false,
			Summary:    fmt.Sprintf("Action type %q is not in the catalog; a run would fail with unknown_action.", actionType),
			Steps: []string{
				"Queue the run as pending.",
				"Resolve the action type and record an unknown_action failure.",
			},
			Suggestions: e.suggest(actionType),
		}, nil
	}

	target := "no lead"
	if req.LeadID != "" {
		target = "lead " + req.LeadID
	}
	steps := []string{
		fmt.Sprintf("Queue a %s run from %s.", def.ID, source),
		"Mark the run in progress.",
		fmt.Sprintf("Run %s against %s.", def.Name, target),
		"Record the outcome on the run.",
	}

	var warnings []string
	if def.Parameters.AlwaysFail {
		warnings = append(warnings, "this action is declared to always fail")
	}
	warnings = append(warnings, def.Parameters.Validate(req.Context)...)

	return &Plan{
		ActionType: def.ID,
		Known:      true,
		Summary:    fmt.Sprintf("%s for %s: %s", def.Name, target, def.Description),
		Steps:      steps,
		Warnings:   warnings,
	}, nil
}

// suggest returns the catalog ids that fuzzily match actionType, best first.
func (e *Engine) suggest(actionType string) []string {
	matches := fuzzy.Find(actionType, e.catalog.IDs())
	out := make([]string, 0, min(len(matches), maxSuggestions))
	for _, m := range matches {
		if len(out) == maxSuggestions {
			break
		}
		out = append(out, m.Str)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
