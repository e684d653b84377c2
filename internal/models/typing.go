package models

import (
	"time"

	"github.com/google/uuid"
)

// TypingNotification records one typing signal. Rows are written for the
// single request round trip and never read back; ephemerality is enforced
// by the delivery layer, not by storage.
type TypingNotification struct {
	ID        uuid.UUID `db:"id" json:"id"`
	ChannelID uuid.UUID `db:"channel_id" json:"channel_id"`
	SenderID  uuid.UUID `db:"sender_id" json:"sender_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// TypingView is the API-facing shape of a typing notification.
type TypingView struct {
	ID             uuid.UUID `json:"id"`
	ChannelID      uuid.UUID `json:"channel_id"`
	SenderID       uuid.UUID `json:"sender_id"`
	SenderUsername string    `json:"sender_username"`
}
