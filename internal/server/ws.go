package server

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/hipcheck/internal/app"
	"github.com/ayusman/hipcheck/internal/server/api"
)

const (
	streamBuffer = 32
	writeTimeout = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // local dashboard only
	},
}

// StreamHandler pushes every observation to WebSocket clients as a
// SessionResponse JSON message.
type StreamHandler struct {
	monitor Monitor
}

// NewStreamHandler creates a StreamHandler fed by m.
func NewStreamHandler(m Monitor) *StreamHandler {
	return &StreamHandler{monitor: m}
}

// ServeHTTP upgrades the connection and streams until the client goes away.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	observations, cancel := h.monitor.Subscribe(streamBuffer)
	defer cancel()

	// Reads only detect the client closing.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if obs, ok := h.monitor.Latest(); ok {
		if err := send(conn, obs); err != nil {
			return
		}
	}

	for {
		select {
		case <-closed:
			return
		case obs, ok := <-observations:
			if !ok {
				return
			}
			if err := send(conn, obs); err != nil {
				return
			}
		}
	}
}

func send(conn *websocket.Conn, obs app.Observation) error {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(api.NewSessionResponse(obs))
}
