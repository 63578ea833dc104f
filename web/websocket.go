package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"mediascribe/session"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// CloseNoSession tells the page there is nothing to watch yet; it
// reconnects after its first upload or fetch
const CloseNoSession = 4000

// handleWebSocket pushes a StateResponse to the browser after every session
// change, starting with the current one
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	id, sess := s.lookupSession(r)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	if sess == nil {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(newStateResponse(emptySnapshot)); err == nil {
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(CloseNoSession, "no session"),
				time.Now().Add(writeWait))
		}
		return
	}
	s.watch(id, 1)
	defer s.watch(id, -1)

	// only the latest snapshot matters, so a full buffer drops the stale one
	updates := make(chan session.Snapshot, 1)
	push := func(snap session.Snapshot) {
		for {
			select {
			case updates <- snap:
				return
			default:
			}
			select {
			case <-updates:
			default:
			}
		}
	}
	cancel := sess.Subscribe(push)
	defer cancel()
	push(sess.Snapshot())

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case snap := <-updates:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(newStateResponse(snap)); err != nil {
				s.logger.Debug("websocket write failed", slog.String("error", err.Error()))
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		case <-s.ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(writeWait))
			return
		}
	}
}
