// Package query filters and sorts an owner's runs.
package query

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/hugo-lorenzo-mato/actionrun/internal/core"
)

// Sort keys.
const (
	SortCreatedAt   = "createdAt"
	SortStartedAt   = "startedAt"
	SortCompletedAt = "completedAt"
	SortStatus      = "status"
	SortActionType  = "actionType"
	SortSource      = "source"
	SortLeadID      = "leadId"
)

// Sort directions.
const (
	DirectionAsc  = "asc"
	DirectionDesc = "desc"
)

var sortKeys = []string{
	SortCreatedAt, SortStartedAt, SortCompletedAt,
	SortStatus, SortActionType, SortSource, SortLeadID,
}

// Sort selects the ordering of query results.
type Sort struct {
	Key       string `json:"sortKey,omitempty"`
	Direction string `json:"direction,omitempty"`
}

// Filter selects runs. Zero-valued fields do not constrain the result.
type Filter struct {
	Statuses   []core.RunStatus `json:"statuses,omitempty"`
	ActionType string           `json:"actionType,omitempty"`
	LeadID     string           `json:"leadId,omitempty"`
	// From and To bound CreatedAt inclusively. Values that do not parse as
	// RFC 3339 timestamps are ignored.
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
	Sort Sort   `json:"sort"`
}

// Normalize returns f with unknown or empty sort settings replaced by the
// defaults (createdAt, desc).
func (f Filter) Normalize() Filter {
	if !slices.Contains(sortKeys, f.Sort.Key) {
		f.Sort.Key = SortCreatedAt
	}
	if f.Sort.Direction != DirectionAsc && f.Sort.Direction != DirectionDesc {
		f.Sort.Direction = DirectionDesc
	}
	return f
}

// ParseStatuses parses a comma separated status list. Blank entries are
// skipped.
func ParseStatuses(s string) ([]core.RunStatus, error) {
	var out []core.RunStatus
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		st := core.RunStatus(part)
		if !st.Valid() {
			return nil, core.ErrValidation(core.CodeInvalidStatus,
				fmt.Sprintf("unknown status %q", part))
		}
		out = append(out, st)
	}
	return out, nil
}

// parseBound returns the instant s names, or false when s is empty or
// malformed. s is RFC 3339 or a date alone (UTC). A date used as an upper
// bound covers the whole day.
func parseBound(s string, upper bool) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	day, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, false
	}
	if upper {
		return day.AddDate(0, 0, 1).Add(-time.Nanosecond), true
	}
	return day, true
}
