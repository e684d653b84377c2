package models

import (
	"time"

	"github.com/google/uuid"
)

// Message is a durable message inside a channel. The sender is referenced
// by id only; the user row is owned by the directory.
type Message struct {
	ID        uuid.UUID `db:"id" json:"id"`
	ChannelID uuid.UUID `db:"channel_id" json:"channel_id"`
	SenderID  uuid.UUID `db:"sender_id" json:"sender_id"`
	Content   string    `db:"content" json:"content"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// MessageView is a message hydrated with its sender's username.
type MessageView struct {
	ID             uuid.UUID `db:"id" json:"id"`
	ChannelID      uuid.UUID `db:"channel_id" json:"channel_id"`
	SenderID       uuid.UUID `db:"sender_id" json:"sender_id"`
	SenderUsername string    `db:"sender_username" json:"sender_username"`
	Content        string    `db:"content" json:"content"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// ChannelEvent is broadcasted through websockets.
type ChannelEvent struct {
	Type    string       `json:"type"`
	Message *MessageView `json:"message,omitempty"`
	Typing  *TypingView  `json:"typing,omitempty"`
}
