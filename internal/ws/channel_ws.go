package ws

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"channel-service/internal/directory"
	"channel-service/internal/middleware"
	"channel-service/internal/models"
	"channel-service/internal/observability"
	"channel-service/internal/repositories"
)

// ChannelWebSocketHandler attaches clients to channel rooms.
type ChannelWebSocketHandler struct {
	hub       *Hub
	channels  repositories.ChannelRepository
	directory directory.Directory
	jwtSecret string
}

// NewChannelWebSocketHandler constructs a ChannelWebSocketHandler.
func NewChannelWebSocketHandler(hub *Hub, channels repositories.ChannelRepository, dir directory.Directory, jwtSecret string) *ChannelWebSocketHandler {
	return &ChannelWebSocketHandler{hub: hub, channels: channels, directory: dir, jwtSecret: jwtSecret}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the connection and registers the client.
func (h *ChannelWebSocketHandler) Handle(c *gin.Context) {
	channelID, err := uuid.Parse(c.Param("channel_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel id"})
		return
	}

	ctx, span := otel.Tracer("channel-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := c.GetHeader("Authorization")
	if token == "" {
		token = c.Query("token")
		if token != "" {
			token = "Bearer " + token
		}
	}

	username, err := h.validateToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	user, err := h.directory.FindByUsername(c.Request.Context(), username)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
		return
	}

	channel, err := h.channels.GetChannel(c.Request.Context(), channelID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"errors": gin.H{"channel": "Channel not found"}})
		return
	}
	if !mayAttach(channel, user.ID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a channel participant"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	traceID := span.SpanContext().TraceID().String()
	requestID := observability.RequestIDFromRequest(c.Request)
	info := ConnInfo{
		ConnID:      newConnID(),
		Username:    username,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   requestID,
		TraceID:     traceID,
		ConnectedAt: time.Now(),
	}
	h.hub.AddClient(channelID, conn, info)

	observability.IncWSActive()
	h.publishLifecycle(ctx, channelID, info, "ws_connect", 0, "")

	// Keep the connection alive and clean up on close.
	go func() {
		var closeReason string
		defer func() {
			h.hub.RemoveClient(channelID, conn)
			observability.DecWSActive()
			h.publishLifecycle(ctx, channelID, info, "ws_disconnect", time.Since(info.ConnectedAt), closeReason)
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				closeReason = err.Error()
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					h.publishLifecycle(ctx, channelID, info, "ws_error", time.Since(info.ConnectedAt), closeReason)
				}
				return
			}
		}
	}()
}

func (h *ChannelWebSocketHandler) publishLifecycle(ctx context.Context, channelID uuid.UUID, info ConnInfo, event string, duration time.Duration, reason string) {
	observability.IncWSEvent(event)
	_ = observability.PublishEvent(ctx, wsRoutingKey, observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload:   lifecyclePayload(channelID, info, event, duration, reason),
	}, observability.BuildHeaders(info.RequestID, info.TraceID))
}

func (h *ChannelWebSocketHandler) validateToken(header string) (string, error) {
	parts := strings.Split(header, " ")
	if len(parts) == 2 {
		return middleware.UsernameFromToken(parts[1], h.jwtSecret)
	}
	return "", websocket.ErrBadHandshake
}

// mayAttach allows anyone into a room channel but restricts a direct
// channel to the pair named by its key.
func mayAttach(channel models.Channel, userID uuid.UUID) bool {
	if channel.ChannelType != models.ChannelTypeDirect {
		return true
	}
	for _, part := range strings.Split(channel.PrivateChannelKey, "/") {
		if part == userID.String() {
			return true
		}
	}
	return false
}
