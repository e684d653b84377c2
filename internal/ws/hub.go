package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"channel-service/internal/models"
	"channel-service/internal/observability"
)

const wsRoutingKey = "ws_events.channels"

// Hub maintains active websocket connections per channel.
type Hub struct {
	rooms    map[uuid.UUID]map[*websocket.Conn]bool
	connInfo map[uuid.UUID]map[*websocket.Conn]ConnInfo
	mu       sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		rooms:    make(map[uuid.UUID]map[*websocket.Conn]bool),
		connInfo: make(map[uuid.UUID]map[*websocket.Conn]ConnInfo),
	}
}

// AddClient registers a websocket connection to a channel room.
func (h *Hub) AddClient(channelID uuid.UUID, conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[channelID]; !ok {
		h.rooms[channelID] = make(map[*websocket.Conn]bool)
	}
	h.rooms[channelID][conn] = true
	if _, ok := h.connInfo[channelID]; !ok {
		h.connInfo[channelID] = make(map[*websocket.Conn]ConnInfo)
	}
	h.connInfo[channelID][conn] = info
}

// RemoveClient removes a websocket connection from a channel room.
func (h *Hub) RemoveClient(channelID uuid.UUID, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.rooms[channelID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.rooms, channelID)
		}
	}
	if infos, ok := h.connInfo[channelID]; ok {
		delete(infos, conn)
		if len(infos) == 0 {
			delete(h.connInfo, channelID)
		}
	}
}

// BroadcastMessage sends a stored message to all clients in the channel.
func (h *Hub) BroadcastMessage(channelID uuid.UUID, msg models.MessageView) {
	h.broadcast(channelID, models.ChannelEvent{Type: "message", Message: &msg})
}

// BroadcastTyping fans a typing notification out to the channel's clients.
// Delivery is fire-and-forget; the notification is stale the moment it is
// sent.
func (h *Hub) BroadcastTyping(channelID uuid.UUID, typing models.TypingView) {
	h.broadcast(channelID, models.ChannelEvent{Type: "typing", Typing: &typing})
}

func (h *Hub) broadcast(channelID uuid.UUID, event models.ChannelEvent) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.rooms[channelID]))
	for conn := range h.rooms[channelID] {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	payload, _ := json.Marshal(event)
	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Printf("websocket write error: %v", err)
			conn.Close()
			h.publishWSError(channelID, conn, err)
			h.RemoveClient(channelID, conn)
		}
	}
}

func (h *Hub) publishWSError(channelID uuid.UUID, conn *websocket.Conn, err error) {
	info, ok := h.getConnInfo(channelID, conn)
	if !ok {
		return
	}

	headers := observability.BuildHeaders(info.RequestID, info.TraceID)
	_ = observability.PublishEvent(context.Background(), wsRoutingKey, observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_error",
		Payload:   lifecyclePayload(channelID, info, "ws_error", time.Since(info.ConnectedAt), err.Error()),
	}, headers)
	observability.IncWSEvent("ws_error")
}

func (h *Hub) getConnInfo(channelID uuid.UUID, conn *websocket.Conn) (ConnInfo, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if infos, ok := h.connInfo[channelID]; ok {
		info, exists := infos[conn]
		return info, exists
	}
	return ConnInfo{}, false
}

func lifecyclePayload(channelID uuid.UUID, info ConnInfo, event string, duration time.Duration, reason string) map[string]interface{} {
	return map[string]interface{}{
		"ws": map[string]interface{}{
			"channel_id":  channelID.String(),
			"event":       event,
			"conn_id":     info.ConnID,
			"duration_ms": duration.Milliseconds(),
			"reason":      reason,
		},
		"identity": map[string]interface{}{
			"username":  info.Username,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}
}
