package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// ClientMessage is what a WebSocket client sends.
type ClientMessage struct {
	Type     string         `json:"type"`
	ID       string         `json:"id,omitempty"`
	Root     string         `json:"root,omitempty"`
	Selector map[string]any `json:"selector,omitempty"`
	Event    string         `json:"event,omitempty"`
	Payload  map[string]any `json:"payload,omitempty"`
}

// ServerMessage is what the server sends over WebSocket.
type ServerMessage struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id,omitempty"`
	Data      any    `json:"data,omitempty"`
}

// keep reports whether msg passes the ?root= and ?kind= filters.
func keep(msg domain.Message, root, kinds string) bool {
	if root != "" && msg.RootName != root {
		return false
	}
	if kinds == "" {
		return true
	}
	for _, k := range strings.Split(kinds, ",") {
		if domain.MessageKind(strings.TrimSpace(k)) == msg.Kind {
			return true
		}
	}
	return false
}

// SubscribeEvents handles GET /events (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.stream.Subscribe()
	defer cancel()

	root, kinds := r.URL.Query().Get("root"), r.URL.Query().Get("kind")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("sse client disconnected")
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if !keep(msg, root, kinds) {
				continue
			}
			raw, err := json.Marshal(msg)
			if err != nil {
				s.logger.Warn("sse encode failed", "err", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Kind, raw)
			flusher.Flush()
		}
	}
}

// ServeWS handles GET /ws: engine messages are pushed as {"type":"message"}
// frames while the client may dispatch events and pings.
func (s *Server) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.logger.Warn("websocket accept failed", "err", err)
		return
	}
	defer conn.CloseNow()

	ctx, stop := context.WithCancel(r.Context())
	defer stop()

	ch, cancel := s.stream.Subscribe()
	defer cancel()

	root, kinds := r.URL.Query().Get("root"), r.URL.Query().Get("kind")
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				if !keep(msg, root, kinds) {
					continue
				}
				if err := wsjson.Write(ctx, conn, ServerMessage{Type: "message", Data: msg}); err != nil {
					s.logger.Debug("websocket write failed", "err", err)
					stop()
					return
				}
			}
		}
	}()

	s.send(ctx, conn, ServerMessage{Type: "connected"})
	for {
		var msg ClientMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			if websocket.CloseStatus(err) != -1 {
				s.logger.Debug("websocket closed", "status", websocket.CloseStatus(err))
			}
			return
		}

		switch msg.Type {
		case "ping":
			s.send(ctx, conn, ServerMessage{Type: "pong", RequestID: msg.ID})
		case "event":
			s.mu.Lock()
			err := s.dispatch(ctx, EventRequest{Root: msg.Root, Selector: msg.Selector, Event: msg.Event, Payload: msg.Payload})
			s.mu.Unlock()
			if err != nil {
				s.send(ctx, conn, ServerMessage{Type: "error", RequestID: msg.ID, Data: err.Error()})
				continue
			}
			s.send(ctx, conn, ServerMessage{Type: "ack", RequestID: msg.ID})
		default:
			s.send(ctx, conn, ServerMessage{Type: "error", RequestID: msg.ID, Data: "unknown message type: " + msg.Type})
		}
	}
}

func (s *Server) send(ctx context.Context, conn *websocket.Conn, msg ServerMessage) {
	if err := wsjson.Write(ctx, conn, msg); err != nil {
		s.logger.Debug("websocket write failed", "type", msg.Type, "err", err)
	}
}
