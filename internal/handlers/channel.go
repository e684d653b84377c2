package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"channel-service/internal/channels"
	"channel-service/internal/directory"
	"channel-service/internal/middleware"
	"channel-service/internal/models"
	"channel-service/internal/observability"
	"channel-service/internal/repositories"
	"channel-service/internal/ws"
)

// ChannelHandler manages channel endpoints.
type ChannelHandler struct {
	service     *channels.Service
	channelRepo repositories.ChannelRepository
	messageRepo repositories.MessageRepository
	directory   directory.Directory
	hub         *ws.Hub
}

// NewChannelHandler builds a ChannelHandler.
func NewChannelHandler(service *channels.Service, channelRepo repositories.ChannelRepository, messageRepo repositories.MessageRepository, dir directory.Directory, hub *ws.Hub) *ChannelHandler {
	return &ChannelHandler{
		service:     service,
		channelRepo: channelRepo,
		messageRepo: messageRepo,
		directory:   dir,
		hub:         hub,
	}
}

// ResolvePrivateChannel returns the direct channel between the caller and
// the target user, creating it on first contact.
func (h *ChannelHandler) ResolvePrivateChannel(c *gin.Context) {
	counterpartyID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	username := c.GetString(middleware.UsernameContextKey)
	view, err := h.service.ResolvePrivateChannel(c.Request.Context(), username, counterpartyID)
	if err != nil {
		switch {
		case errors.Is(err, directory.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"errors": gin.H{"user": "User not found"}})
		case errors.Is(err, channels.ErrSelfChannel):
			c.JSON(http.StatusBadRequest, gin.H{"errors": gin.H{"user": "Cannot open a private channel with yourself"}})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not resolve channel"})
		}
		return
	}

	observability.IncPrivateResolution()
	c.JSON(http.StatusOK, view)
}

// ListChannels returns the room channels.
func (h *ChannelHandler) ListChannels(c *gin.Context) {
	list, err := h.channelRepo.ListChannels(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load channels"})
		return
	}
	if list == nil {
		list = []models.Channel{}
	}
	c.JSON(http.StatusOK, gin.H{"channels": list})
}

// CreateChannel creates a room channel.
func (h *ChannelHandler) CreateChannel(c *gin.Context) {
	var req struct {
		Name        string `json:"name" binding:"required"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	channel := models.Channel{
		ID:          uuid.New(),
		Name:        req.Name,
		Description: req.Description,
		ChannelType: models.ChannelTypeRoom,
	}
	if err := h.channelRepo.CreateRoomChannel(c.Request.Context(), channel); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create channel"})
		return
	}
	c.JSON(http.StatusCreated, channel)
}

// GetChannelMessages returns the channel's ordered message history.
func (h *ChannelHandler) GetChannelMessages(c *gin.Context) {
	channel, user, ok := h.loadChannelForCaller(c)
	if !ok {
		return
	}
	if !isParticipant(channel, user.ID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a channel participant"})
		return
	}

	msgs, err := h.messageRepo.ListChannelMessages(c.Request.Context(), channel.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// PostChannelMessage stores a message and broadcasts it.
func (h *ChannelHandler) PostChannelMessage(c *gin.Context) {
	channel, user, ok := h.loadChannelForCaller(c)
	if !ok {
		return
	}
	if !isParticipant(channel, user.ID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a channel participant"})
		return
	}

	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.messageRepo.CreateMessage(c.Request.Context(), models.Message{
		ID:        uuid.New(),
		ChannelID: channel.ID,
		SenderID:  user.ID,
		Content:   req.Content,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message"})
		return
	}

	h.hub.BroadcastMessage(channel.ID, msg)
	c.JSON(http.StatusCreated, msg)
}

// loadChannelForCaller parses the channel id, resolves the caller and
// fetches the channel, writing the error response itself on failure.
func (h *ChannelHandler) loadChannelForCaller(c *gin.Context) (models.Channel, models.User, bool) {
	channelID, err := uuid.Parse(c.Param("channel_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel id"})
		return models.Channel{}, models.User{}, false
	}

	user, err := h.directory.FindByUsername(c.Request.Context(), c.GetString(middleware.UsernameContextKey))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
		return models.Channel{}, models.User{}, false
	}

	channel, err := h.channelRepo.GetChannel(c.Request.Context(), channelID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrChannelNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"errors": gin.H{"channel": "Channel not found"}})
		return models.Channel{}, models.User{}, false
	}
	return channel, user, true
}

// isParticipant allows anyone into a room; a direct channel admits only
// the pair named by its key.
func isParticipant(channel models.Channel, userID uuid.UUID) bool {
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
