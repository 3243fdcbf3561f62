package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/medicrew/backend/internal/application/orchestrator"
)

// consultStream writes consultation steps as SSE. Headers are sent on the
// first step, so an error returned before any step can still be answered
// with a plain JSON error.
type consultStream struct {
	w       http.ResponseWriter
	flusher http.Flusher
	started bool
}

func newConsultStream(w http.ResponseWriter) (*consultStream, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, false
	}
	return &consultStream{w: w, flusher: flusher}, true
}

func (s *consultStream) start() {
	if s.started {
		return
	}
	s.started = true
	setSSEHeaders(s.w)
	s.w.WriteHeader(http.StatusOK)
}

// emit is an orchestrator.EmitFunc
func (s *consultStream) emit(event orchestrator.StepEvent) error {
	s.start()
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

func (s *consultStream) done() {
	s.start()
	fmt.Fprint(s.w, "data: [DONE]\n\n")
	s.flusher.Flush()
}

// fail reports err in-band once the stream is open
func (s *consultStream) fail(err error) {
	_, message := errorResponse(err)
	data, _ := json.Marshal(map[string]string{"error": message})
	fmt.Fprintf(s.w, "event: error\ndata: %s\n\n", data)
	s.flusher.Flush()
}

func setSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}
