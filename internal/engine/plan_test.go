package engine

import (
	"context"
	"strings"
	"testing"

	"github.com/hugo-lorenzo-mato/actionrun/internal/query"
	"github.com/hugo-lorenzo-mato/actionrun/internal/testutil"
)

func TestPlan_KnownAction(t *testing.T) {
	h := newHarness(t)
	p, err := h.engine.Plan(context.Background(), "u1", ExecuteRequest{
		ActionType: "lead:update_status",
		LeadID:     "lead-7",
		Context:    map[string]any{"status": "qualified"},
	})
	testutil.AssertNoError(t, err)

	testutil.AssertTrue(t, p.Known, "known action")
	testutil.AssertEqual(t, p.ActionType, "lead:update_status")
	testutil.AssertContains(t, p.Summary, "lead lead-7")
	testutil.AssertLen(t, p.Steps, 4)
	testutil.AssertLen(t, p.Warnings, 0)
}

func TestPlan_Warnings(t *testing.T) {
	h := newHarness(t)
	p, err := h.engine.Plan(context.Background(), "u1", ExecuteRequest{
		ActionType: "sms:send",
		Context:    map[string]any{"message": strings.Repeat("x", 200)},
	})
	testutil.AssertNoError(t, err)
	testutil.AssertLen(t, p.Warnings, 1)
	testutil.AssertContains(t, p.Warnings[0], "exceeds 160 characters")

	p, err = h.engine.Plan(context.Background(), "u1", ExecuteRequest{ActionType: "demo:fail"})
	testutil.AssertNoError(t, err)
	testutil.AssertContains(t, p.Warnings[0], "always fail")
}

func TestPlan_UnknownAction(t *testing.T) {
	h := newHarness(t)
	p, err := h.engine.Plan(context.Background(), "u1", ExecuteRequest{ActionType: "does-not-exist"})
	testutil.AssertNoError(t, err)
	testutil.AssertFalse(t, p.Known, "unknown action")
	testutil.AssertContains(t, p.Summary, "unknown_action")
}

func TestPlan_UnknownActionSuggestions(t *testing.T) {
	h := newHarness(t)
	p, err := h.engine.Plan(context.Background(), "u1", ExecuteRequest{ActionType: "sms:snd"})
	testutil.AssertNoError(t, err)
	testutil.AssertFalse(t, p.Known, "typo is not a known action")
	testutil.AssertTrue(t, len(p.Suggestions) > 0, "expected suggestions for a near miss")
	testutil.AssertEqual(t, p.Suggestions[0], "sms:send")

	p, err = h.engine.Plan(context.Background(), "u1", ExecuteRequest{ActionType: "zzzz"})
	testutil.AssertNoError(t, err)
	testutil.AssertLen(t, p.Suggestions, 0)

	p, err = h.engine.Plan(context.Background(), "u1", ExecuteRequest{ActionType: "sms:send"})
	testutil.AssertNoError(t, err)
	testutil.AssertLen(t, p.Suggestions, 0)
}

func TestPlan_HasNoSideEffects(t *testing.T) {
	h := newHarness(t)
	_, err := h.engine.Plan(context.Background(), "u1", ExecuteRequest{ActionType: "notes:add"})
	testutil.AssertNoError(t, err)

	runs, err := h.engine.Query(context.Background(), "u1", query.Filter{})
	testutil.AssertNoError(t, err)
	testutil.AssertLen(t, runs, 0)
	testutil.AssertEqual(t, h.timer.Pending(), 0)
}
