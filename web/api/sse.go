package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/hochfrequenz/ci-relay/internal/notify"
)

// handleSSE is the one-directional live-update channel. The server sends a
// connected acknowledgment immediately, then one event per newly stored run
// until the client disconnects.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	id, events := s.hub.Subscribe()
	defer s.hub.Unsubscribe(id)

	s.log.Info("sse client connected", "subscriber", id, "total", s.hub.Count())

	writeSSE(w, notify.Event{Type: "connected", Message: "Connected to CI run events"})
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.log.Info("sse client disconnected", "subscriber", id)
			return
		case ev := <-events:
			writeSSE(w, ev)
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, ev notify.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
}
