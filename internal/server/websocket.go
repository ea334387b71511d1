package server

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// clientMessage is what the page sends: pings and tab visibility
type clientMessage struct {
	Type      string `json:"type"`
	TabActive *bool  `json:"tab_active,omitempty"`
}

// event is pushed to every page
type event struct {
	Type    string `json:"type"`
	Kind    string `json:"kind,omitempty"`
	GroupID int    `json:"group_id,omitempty"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket accept failed", "error", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	// Track active client
	s.mu.Lock()
	s.clients[conn] = struct{}{}
	s.lastActivity = time.Now()
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.clients, conn)
		s.lastActivity = time.Now()
		s.mu.Unlock()
	}()

	ctx := r.Context()
	if err := wsjson.Write(ctx, conn, event{Type: "connected"}); err != nil {
		return
	}

	for {
		var msg clientMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			return
		}

		s.recordActivity()

		if msg.Type == "ping" {
			if err := wsjson.Write(ctx, conn, event{Type: "pong"}); err != nil {
				return
			}
		}
		if msg.TabActive != nil {
			s.setTabActive(*msg.TabActive)
		}
	}
}

// broadcast sends ev to every connected page without blocking the caller
func (s *Server) broadcast(ev event) {
	s.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(s.clients))
	for c := range s.clients {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		go func(c *websocket.Conn) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = wsjson.Write(ctx, c, ev)
		}(c)
	}
}
