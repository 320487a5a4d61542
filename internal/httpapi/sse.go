package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// sseWriter writes server-sent events. Headers are sent with the first
// event, so a handler can still answer with a plain JSON error as long as
// nothing has been streamed.
type sseWriter struct {
	w       http.ResponseWriter
	rc      *http.ResponseController
	log     *reqLog
	started bool
}

func newSSEWriter(w http.ResponseWriter, l *reqLog) *sseWriter {
	return &sseWriter{w: w, rc: http.NewResponseController(w), log: l}
}

// Started reports whether any event has been written.
func (s *sseWriter) Started() bool { return s.started }

// Data writes v as a "data: {json}" event and flushes.
func (s *sseWriter) Data(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if s.log != nil {
		s.log.chunk(b)
	}
	return s.write("data: " + string(b) + "\n\n")
}

// Done writes the terminating "data: [DONE]" event.
func (s *sseWriter) Done() error { return s.write("data: [DONE]\n\n") }

func (s *sseWriter) write(frame string) error {
	if !s.started {
		h := s.w.Header()
		h.Set("Content-Type", "text/event-stream")
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		s.w.WriteHeader(http.StatusOK)
		s.started = true
	}
	if _, err := fmt.Fprint(s.w, frame); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	if err := s.rc.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}
