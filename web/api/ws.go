package api

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/hochfrequenz/ci-relay/internal/notify"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The dashboard may be served from a different origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleWS serves the same live feed as the SSE endpoint over a WebSocket,
// for clients that prefer a socket to an event stream.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	id, events := s.hub.Subscribe()
	defer s.hub.Unsubscribe(id)

	s.log.Info("ws client connected", "subscriber", id, "total", s.hub.Count())

	if err := conn.WriteJSON(notify.Event{Type: "connected", Message: "Connected to CI run events"}); err != nil {
		return
	}

	// The feed is one-directional; the read loop only notices the close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			s.log.Info("ws client disconnected", "subscriber", id)
			return
		case <-r.Context().Done():
			return
		case ev := <-events:
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		}
	}
}
