package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/elazargur/llm-council/internal/domain"
)

// sseWriter sends stream events as "data: <json>" frames.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// newSSEWriter prepares the response for event streaming. It fails when the
// underlying writer cannot flush (streaming would silently buffer).
func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming unsupported by response writer")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &sseWriter{w: w, flusher: flusher}, nil
}

// Send writes one event frame and flushes it to the client.
func (s *sseWriter) Send(ev domain.StreamEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		slog.Error("Failed to marshal stream event", "type", ev.Type, "error", err)
		return
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		// Client went away; subsequent sends will fail the same way and the
		// council run is bounded by the request context.
		slog.Debug("Failed to write stream event", "type", ev.Type, "error", err)
		return
	}
	s.flusher.Flush()
}
