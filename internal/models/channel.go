package models

import (
	"time"

	"github.com/google/uuid"
)

// ChannelType distinguishes open rooms from private two-party channels.
type ChannelType string

const (
	ChannelTypeRoom   ChannelType = "room"
	ChannelTypeDirect ChannelType = "direct"
)

// Channel represents a conversation channel. Direct channels carry a
// PrivateChannelKey identifying the unordered participant pair; room
// channels leave it empty.
type Channel struct {
	ID                uuid.UUID   `db:"id" json:"id"`
	Name              string      `db:"name" json:"name"`
	Description       string      `db:"description" json:"description"`
	ChannelType       ChannelType `db:"channel_type" json:"channel_type"`
	PrivateChannelKey string      `db:"private_channel_key" json:"-"`
	CreatedAt         time.Time   `db:"created_at" json:"created_at"`
}

// ChannelView is the API-facing shape of a channel, including its ordered
// message history for direct channels.
type ChannelView struct {
	ID          uuid.UUID     `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	ChannelType ChannelType   `json:"channel_type"`
	Messages    []MessageView `json:"messages"`
}
