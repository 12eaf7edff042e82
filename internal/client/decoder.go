package client

import (
	"bufio"
	"encoding/json"
	"io"
	"log/slog"
	"strings"

	"github.com/elazargur/llm-council/internal/domain"
)

// dataPrefix marks a significant frame on the wire; all other lines
// (blank separators, comments, other SSE fields) are ignored.
const dataPrefix = "data: "

// maxFrameSize bounds a single frame. Stage payloads carry several full
// model answers in one line, so the default scanner limit is far too small.
const maxFrameSize = 10 * 1024 * 1024

// EventStream is a lazy, finite, non-restartable sequence of stream events
// decoded from a council response body. Line buffering spans read-chunk
// boundaries, so a frame split across two reads is still decoded whole.
type EventStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	logger  *slog.Logger
	err     error
	done    bool
}

func newEventStream(body io.ReadCloser, logger *slog.Logger) *EventStream {
	if logger == nil {
		logger = slog.Default()
	}
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxFrameSize)
	return &EventStream{
		body:    body,
		scanner: scanner,
		logger:  logger,
	}
}

// Next returns the next decoded event. ok is false once the underlying
// transport has closed or failed; check Err to distinguish the two.
// Frames that fail to parse are logged and skipped, never terminal.
func (s *EventStream) Next() (ev domain.StreamEvent, ok bool) {
	if s.done {
		return domain.StreamEvent{}, false
	}

	for s.scanner.Scan() {
		line := s.scanner.Text()
		if !strings.HasPrefix(line, dataPrefix) {
			continue
		}

		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, dataPrefix)), &ev); err != nil {
			s.logger.Warn("dropping malformed stream frame", "error", err)
			continue
		}
		return ev, true
	}

	s.done = true
	s.err = s.scanner.Err()
	return domain.StreamEvent{}, false
}

// Err reports the transport error that ended the stream, or nil when it
// ended with a clean close.
func (s *EventStream) Err() error {
	return s.err
}

// Close releases the underlying response body. The stream cannot be read
// after Close.
func (s *EventStream) Close() error {
	s.done = true
	return s.body.Close()
}
