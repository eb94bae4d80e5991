package query

import (
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/hugo-lorenzo-mato/actionrun/internal/core"
)

// timeLayout renders instants at fixed width so raw values of the same zone
// order the same way lexicographically and chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Apply returns the runs matching every predicate of f, sorted per f.Sort.
// The input slice is not modified. Equal keys keep their input order.
func Apply(runs []*core.Run, f Filter) []*core.Run {
	f = f.Normalize()
	from, hasFrom := parseBound(f.From, false)
	to, hasTo := parseBound(f.To, true)

	out := make([]*core.Run, 0, len(runs))
	for _, r := range runs {
		if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, r.Status) {
			continue
		}
		if f.ActionType != "" && r.ActionType != f.ActionType {
			continue
		}
		if f.LeadID != "" && r.LeadID != f.LeadID {
			continue
		}
		if hasFrom && r.CreatedAt.Before(from) {
			continue
		}
		if hasTo && r.CreatedAt.After(to) {
			continue
		}
		out = append(out, r)
	}

	desc := f.Sort.Direction == DirectionDesc
	sort.SliceStable(out, func(i, j int) bool {
		c := compareRaw(rawField(out[i], f.Sort.Key), rawField(out[j], f.Sort.Key))
		if desc {
			return c > 0
		}
		return c < 0
	})
	return out
}

// rawField returns the string form of the sort key on r. Unset timestamps
// are empty.
func rawField(r *core.Run, key string) string {
	switch key {
	case SortCreatedAt:
		return formatTime(&r.CreatedAt)
	case SortStartedAt:
		return formatTime(r.StartedAt)
	case SortCompletedAt:
		return formatTime(r.CompletedAt)
	case SortStatus:
		return string(r.Status)
	case SortActionType:
		return r.ActionType
	case SortSource:
		return r.Source
	case SortLeadID:
		return r.LeadID
	}
	return ""
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

// compareRaw compares two raw values. When both parse as RFC 3339 the
// instants are compared; otherwise both are compared as strings.
func compareRaw(a, b string) int {
	ta, errA := time.Parse(time.RFC3339, a)
	tb, errB := time.Parse(time.RFC3339, b)
	if errA == nil && errB == nil {
		return ta.Compare(tb)
	}
	return strings.Compare(a, b)
}
