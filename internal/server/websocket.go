package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"
)

// ProgressEvent is broadcast to subscribers whenever a result is recorded,
// so open worklists can update fill progress without polling.
type ProgressEvent struct {
	ReviewID    int64   `json:"review_id"`
	ChecklistID int64   `json:"checklist_id"`
	Result      *string `json:"result"`
	Filled      int     `json:"filled"`
	Total       int     `json:"total"`
}

// Hub manages WebSocket clients subscribed to review progress.
type Hub struct {
	mu      sync.RWMutex
	clients map[int64]map[*websocket.Conn]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[int64]map[*websocket.Conn]struct{}),
	}
}

func (h *Hub) Subscribe(reviewID int64, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[reviewID] == nil {
		h.clients[reviewID] = make(map[*websocket.Conn]struct{})
	}
	h.clients[reviewID][conn] = struct{}{}
}

func (h *Hub) Unsubscribe(reviewID int64, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.clients[reviewID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.clients, reviewID)
		}
	}
}

func (h *Hub) Broadcast(reviewID int64, event ProgressEvent) {
	h.mu.RLock()
	conns := h.clients[reviewID]
	h.mu.RUnlock()

	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	for conn := range conns {
		err := conn.Write(context.Background(), websocket.MessageText, data)
		if err != nil {
			slog.Debug("ws write error", "error", err)
			h.Unsubscribe(reviewID, conn)
			conn.Close(websocket.StatusNormalClosure, "")
		}
	}
}

type wsSubscribeMsg struct {
	ReviewID int64 `json:"review_id"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("ws accept error", "error", err)
		return
	}
	defer conn.CloseNow()

	// Read subscribe message
	_, data, err := conn.Read(r.Context())
	if err != nil {
		return
	}

	var msg wsSubscribeMsg
	if err := json.Unmarshal(data, &msg); err != nil || msg.ReviewID == 0 {
		conn.Close(websocket.StatusInvalidFramePayloadData, "invalid subscribe message")
		return
	}

	s.hub.Subscribe(msg.ReviewID, conn)
	defer s.hub.Unsubscribe(msg.ReviewID, conn)

	// Keep connection alive until the client goes away
	for {
		_, _, err := conn.Read(r.Context())
		if err != nil {
			return
		}
	}
}
