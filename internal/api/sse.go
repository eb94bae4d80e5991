package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/hugo-lorenzo-mato/actionrun/internal/api/middleware"
)

// handleSSE streams the caller's own run lifecycle events as Server-Sent
// Events. Events of other owners are never delivered.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	if s.eventBus == nil {
		s.respondError(w, http.StatusServiceUnavailable, "event bus not available")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.respondError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	ctx := r.Context()
	owner := middleware.GetOwner(ctx)

	eventCh := s.eventBus.SubscribeForOwner(owner)
	defer s.eventBus.Unsubscribe(eventCh)

	s.logger.Info("SSE client connected", "remote_addr", r.RemoteAddr)

	s.sendSSEEvent(w, flusher, "connected", map[string]string{
		"status": "connected",
	})

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("SSE client disconnected", "remote_addr", r.RemoteAddr)
			return

		case <-s.stopping:
			return

		case event, ok := <-eventCh:
			if !ok {
				s.logger.Info("EventBus closed, ending SSE stream")
				return
			}
			s.sendSSEEvent(w, flusher, event.EventType(), event)
		}
	}
}

// sendSSEEvent writes an event to the SSE stream.
func (s *Server) sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, eventType string, data interface{}) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		s.logger.Error("failed to marshal SSE data", "error", err)
		return
	}

	// SSE format: event: type\ndata: json\n\n
	fmt.Fprintf(w, "event: %s\n", eventType)
	fmt.Fprintf(w, "data: %s\n\n", jsonData)
	flusher.Flush()
}
