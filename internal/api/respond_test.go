package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hugo-lorenzo-mato/actionrun/internal/api/middleware"
	"github.com/hugo-lorenzo-mato/actionrun/internal/engine"
	"github.com/hugo-lorenzo-mato/actionrun/internal/logging"
)

// slowEngine blocks Plan until the request context ends.
type slowEngine struct{ Engine }

func (slowEngine) Plan(ctx context.Context, _ string, _ engine.ExecuteRequest) (*engine.Plan, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestRequestTimeout(t *testing.T) {
	server := NewServer(slowEngine{}, WithRequestTimeout(20*time.Millisecond))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/actions/plan", strings.NewReader(`{"actionType":"notes:add"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.HeaderOwnerToken, "u1")
	rec := httptest.NewRecorder()

	start := time.Now()
	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	assert.Contains(t, rec.Body.String(), "request timed out")
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRespondJSON_LogsEncodeFailureThroughServerLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(logging.Config{Level: "info", Format: "json", Output: &buf})
	server := NewServer(slowEngine{}, WithLogger(logger))

	rec := httptest.NewRecorder()
	server.respondJSON(rec, http.StatusOK, map[string]any{"stream": make(chan int)})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, buf.String(), "failed to encode response")
	assert.Contains(t, buf.String(), `"component":"api"`)
}
