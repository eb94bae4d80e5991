package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/actionrun/internal/api/middleware"
	"github.com/hugo-lorenzo-mato/actionrun/internal/catalog"
	"github.com/hugo-lorenzo-mato/actionrun/internal/core"
	"github.com/hugo-lorenzo-mato/actionrun/internal/diagnostics"
	"github.com/hugo-lorenzo-mato/actionrun/internal/engine"
	"github.com/hugo-lorenzo-mato/actionrun/internal/events"
	"github.com/hugo-lorenzo-mato/actionrun/internal/runstore"
	"github.com/hugo-lorenzo-mato/actionrun/internal/scheduler"
	"github.com/hugo-lorenzo-mato/actionrun/internal/testutil"
)

type testEnv struct {
	server *Server
	timer  *testutil.ManualTimer
	bus    *events.EventBus
}

func newTestEnv(t *testing.T, opts ...ServerOption) *testEnv {
	t.Helper()
	store := runstore.NewMemory()
	cat := catalog.Default()
	timer := testutil.NewManualTimer()
	bus := events.New(100)
	t.Cleanup(bus.Close)

	sched, err := scheduler.New(store, cat, scheduler.WithTimer(timer), scheduler.WithEventBus(bus))
	require.NoError(t, err)
	eng := engine.New(cat, store, sched, engine.WithEventBus(bus))

	opts = append([]ServerOption{WithEventBus(bus)}, opts...)
	return &testEnv{
		server: NewServer(eng, opts...),
		timer:  timer,
		bus:    bus,
	}
}

func (e *testEnv) do(t *testing.T, method, path, owner string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if owner != "" {
		req.Header.Set(middleware.HeaderOwnerToken, owner)
	}
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeRun(t *testing.T, rec *httptest.ResponseRecorder) core.Run {
	t.Helper()
	var run core.Run
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&run))
	return run
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestRuns_RequireOwner(t *testing.T) {
	env := newTestEnv(t)
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/runs"},
		{http.MethodPost, "/api/v1/runs"},
		{http.MethodGet, "/api/v1/runs/abc"},
		{http.MethodPost, "/api/v1/runs/abc/retry"},
		{http.MethodPost, "/api/v1/actions/plan"},
		{http.MethodGet, "/api/v1/events"},
	} {
		rec := env.do(t, tc.method, tc.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", tc.method, tc.path)
	}
}

func TestExecute_ThenComplete(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/runs", "owner-secret", map[string]any{
		"actionType": "notes:add",
		"leadId":     "lead-9",
		"context":    map[string]any{"content": "hello"},
	})
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.NotContains(t, rec.Body.String(), "owner-secret")

	run := decodeRun(t, rec)
	assert.Equal(t, core.RunStatusPending, run.Status)
	assert.Equal(t, "dashboard", run.Source)
	assert.NotEmpty(t, run.ID)

	env.timer.FireAll()

	rec = env.do(t, http.MethodGet, "/api/v1/runs/"+run.ID, "owner-secret", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "owner-secret")
	got := decodeRun(t, rec)
	assert.Equal(t, core.RunStatusCompleted, got.Status)
	assert.Equal(t, true, got.ResponsePayload["ok"])
}

func TestExecute_BearerToken(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/runs", strings.NewReader(`{"actionType":"lead:tag"}`))
	req.Header.Set("Authorization", "Bearer u1")
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	run := decodeRun(t, rec)
	rec = env.do(t, http.MethodGet, "/api/v1/runs/"+run.ID, "u1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestExecute_BadInput(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/runs", "u1", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/runs", "u1", map[string]any{"source": "x"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), core.CodeActionTypeRequired)
}

func TestGetRun_OtherOwnerNotFound(t *testing.T) {
	env := newTestEnv(t)
	run := decodeRun(t, env.do(t, http.MethodPost, "/api/v1/runs", "u1", map[string]any{"actionType": "notes:add"}))

	rec := env.do(t, http.MethodGet, "/api/v1/runs/"+run.ID, "u2", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), core.CodeRunNotFound)
}

func TestListRuns_FilterAndSort(t *testing.T) {
	env := newTestEnv(t)
	for _, action := range []string{"notes:add", "demo:fail", "lead:tag"} {
		rec := env.do(t, http.MethodPost, "/api/v1/runs", "u1", map[string]any{"actionType": action})
		require.Equal(t, http.StatusAccepted, rec.Code)
	}
	env.do(t, http.MethodPost, "/api/v1/runs", "u2", map[string]any{"actionType": "notes:add"})
	env.timer.FireAll()

	rec := env.do(t, http.MethodGet, "/api/v1/runs?status=failed", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp RunListResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "demo:fail", resp.Runs[0].ActionType)

	rec = env.do(t, http.MethodGet, "/api/v1/runs?status=completed,failed&sortKey=actionType&direction=asc", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp = RunListResponse{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Runs, 3)
	assert.Equal(t, "demo:fail", resp.Runs[0].ActionType)
	assert.Equal(t, "lead:tag", resp.Runs[1].ActionType)
	assert.Equal(t, "notes:add", resp.Runs[2].ActionType)

	rec = env.do(t, http.MethodGet, "/api/v1/runs?from=not-a-date", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp = RunListResponse{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 3, resp.Count)

	rec = env.do(t, http.MethodGet, "/api/v1/runs?status=done", "u1", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestRetry(t *testing.T) {
	env := newTestEnv(t)
	run := decodeRun(t, env.do(t, http.MethodPost, "/api/v1/runs", "u1", map[string]any{"actionType": "demo:fail"}))

	rec := env.do(t, http.MethodPost, "/api/v1/runs/"+run.ID+"/retry", "u1", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), core.CodeRunNotTerminal)

	env.timer.FireAll()

	rec = env.do(t, http.MethodPost, "/api/v1/runs/"+run.ID+"/retry", "u2", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/runs/"+run.ID+"/retry", "u1", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	retry := decodeRun(t, rec)
	assert.NotEqual(t, run.ID, retry.ID)
	assert.Equal(t, run.ID, retry.RetryOf)
	assert.Equal(t, core.RunStatusPending, retry.Status)
}

func TestActions(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/actions", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp ActionListResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Len(t, resp.Actions, 6)

	rec = env.do(t, http.MethodPost, "/api/v1/actions/plan", "u1", map[string]any{
		"actionType": "sms:send",
		"context":    map[string]any{},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var plan engine.Plan
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&plan))
	assert.True(t, plan.Known)
	assert.NotEmpty(t, plan.Steps)
	assert.Contains(t, plan.Warnings[0], "message")
}

func TestSystem(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/v1/system", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	env = newTestEnv(t, WithDiagnostics(diagnostics.NewCollector(func() int { return 2 })))
	rec = env.do(t, http.MethodGet, "/api/v1/system", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var snap diagnostics.Snapshot
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&snap))
	assert.Equal(t, 2, snap.InFlight)
}

func TestCORS(t *testing.T) {
	env := newTestEnv(t, WithCORS(true, []string{"https://app.example.com"}))
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/runs", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", middleware.HeaderOwnerToken)
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestSSE_OwnerScoped(t *testing.T) {
	env := newTestEnv(t)
	ts := httptest.NewServer(env.server.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/v1/events", nil)
	require.NoError(t, err)
	req.Header.Set(middleware.HeaderOwnerToken, "u1")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	readEvent := func() (string, string) {
		var name, data string
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			line = strings.TrimRight(line, "\n")
			switch {
			case strings.HasPrefix(line, "event: "):
				name = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				data = strings.TrimPrefix(line, "data: ")
			case line == "":
				return name, data
			}
		}
	}

	name, _ := readEvent()
	require.Equal(t, "connected", name)

	env.bus.Publish(events.NewRunQueuedEvent("u2", "run-other", "notes:add", "", ""))
	env.bus.Publish(events.NewRunQueuedEvent("u1", "run-mine", "notes:add", "lead-1", ""))

	name, data := readEvent()
	assert.Equal(t, events.TypeRunQueued, name)
	assert.Contains(t, data, `"run_id":"run-mine"`)
	assert.NotContains(t, data, "u1")
}
