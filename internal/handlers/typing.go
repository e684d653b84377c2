package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"channel-service/internal/channels"
	"channel-service/internal/directory"
	"channel-service/internal/middleware"
	"channel-service/internal/observability"
	"channel-service/internal/repositories"
	"channel-service/internal/ws"
)

// TypingHandler emits ephemeral typing notifications.
type TypingHandler struct {
	service *channels.Service
	hub     *ws.Hub
}

// NewTypingHandler builds a TypingHandler.
func NewTypingHandler(service *channels.Service, hub *ws.Hub) *TypingHandler {
	return &TypingHandler{service: service, hub: hub}
}

// EmitTyping persists one typing notification, fans it out to the
// channel's websocket clients and returns its view. The record is never
// read back; clients treat it as stale immediately.
func (h *TypingHandler) EmitTyping(c *gin.Context) {
	channelID, err := uuid.Parse(c.Param("channel_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel id"})
		return
	}

	username := c.GetString(middleware.UsernameContextKey)
	view, err := h.service.EmitTyping(c.Request.Context(), username, channelID)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrChannelNotFound):
			c.JSON(http.StatusNotFound, gin.H{"errors": gin.H{"channel": "Channel not found"}})
		case errors.Is(err, directory.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"errors": gin.H{"user": "User not found"}})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "there was an error saving data"})
		}
		return
	}

	observability.IncTypingNotification()
	h.hub.BroadcastTyping(channelID, view)
	_ = observability.PublishEvent(c.Request.Context(), "channel_events.typing", observability.EventEnvelope{
		EventType: "channel_events",
		EventName: "typing",
		Payload:   view,
	}, observability.BuildHeaders(requestIDFromContext(c), ""))

	c.JSON(http.StatusOK, view)
}
