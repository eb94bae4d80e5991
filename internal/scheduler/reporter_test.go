package scheduler

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hugo-lorenzo-mato/actionrun/internal/core"
	"github.com/hugo-lorenzo-mato/actionrun/internal/events"
	"github.com/hugo-lorenzo-mato/actionrun/internal/logging"
)

func TestLogReporter_LogsAndPublishes(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(logging.Config{Level: "info", Format: "json", Output: &buf})
	bus := events.New(10)
	defer bus.Close()
	ch := bus.SubscribeForOwner("u1", events.TypeRunFault)

	r := NewLogReporter(logger, bus)
	r.ReportFault(context.Background(), core.Run{ID: "run-1", OwnerToken: "u1", ActionType: "notes:add"}, errors.New("boom"))

	if !strings.Contains(buf.String(), "run resolution fault") || !strings.Contains(buf.String(), "boom") {
		t.Errorf("log output missing fault: %s", buf.String())
	}
	if strings.Contains(buf.String(), `"u1"`) {
		t.Errorf("owner token leaked into log: %s", buf.String())
	}

	ev := <-ch
	fault, ok := ev.(events.RunFaultEvent)
	if !ok {
		t.Fatalf("event type = %T, want RunFaultEvent", ev)
	}
	if fault.Error != "boom" || fault.RunID() != "run-1" {
		t.Errorf("fault event = %+v", fault)
	}
}

func TestLogReporter_NilBus(t *testing.T) {
	r := NewLogReporter(nil, nil)
	r.ReportFault(context.Background(), core.Run{ID: "run-1"}, errors.New("boom"))
}

func TestLogReporter_RedactsRequestPayload(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(logging.Config{
		Level:          "info",
		Format:         "json",
		Output:         &buf,
		RedactPatterns: []string{`lead-[0-9]+`},
	})

	run := core.Run{
		ID:         "run-1",
		ActionType: "sms:send",
		RequestPayload: map[string]any{
			"to":      "+14155550123",
			"note":    "follow up with lead-42",
			"retries": 2,
		},
	}
	NewLogReporter(logger, nil).ReportFault(context.Background(), run, errors.New("boom"))

	out := buf.String()
	if !strings.Contains(out, `"request"`) {
		t.Fatalf("request payload not logged: %s", out)
	}
	if strings.Contains(out, "+14155550123") || strings.Contains(out, "lead-42") {
		t.Errorf("payload values leaked into log: %s", out)
	}
	if !strings.Contains(out, `"retries":2`) {
		t.Errorf("non-string payload values should pass through: %s", out)
	}
}
