package api

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/shubh-37/music-brief-analyzer/internal/workflow"
)

const (
	writeWait    = 10 * time.Second
	pingInterval = 30 * time.Second
	sendBuffer   = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type event struct {
	Type     string            `json:"type"`
	Snapshot workflow.Snapshot `json:"snapshot"`
}

// handleEvents streams a snapshot after every state change in the
// session, starting with the current one.
func (s *Server) handleEvents(c *gin.Context) {
	ctrl, ok := s.session(c)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("⚠️ websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	sid := c.Param("sid")
	send := make(chan workflow.Snapshot, sendBuffer)
	unsubscribe := ctrl.Subscribe(func(snap workflow.Snapshot) {
		select {
		case send <- snap:
		default:
			log.Printf("⚠️ session %s: event queue full, snapshot dropped", sid)
		}
	})
	defer unsubscribe()
	send <- ctrl.Snapshot()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	var lastSeq uint64
	sent := false
	for {
		select {
		case snap := <-send:
			if sent && snap.Seq <= lastSeq {
				continue
			}
			lastSeq, sent = snap.Seq, true
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(event{Type: "snapshot", Snapshot: snap}); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}
