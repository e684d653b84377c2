package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"channel-service/internal/models"
)

// MessageRepository defines interactions for channel messages.
type MessageRepository interface {
	CreateMessage(ctx context.Context, message models.Message) (models.MessageView, error)
	ListChannelMessages(ctx context.Context, channelID uuid.UUID) ([]models.MessageView, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// CreateMessage stores a message and returns it hydrated with the sender's
// username.
func (r *MessageRepo) CreateMessage(ctx context.Context, message models.Message) (models.MessageView, error) {
	var view models.MessageView
	err := r.db.GetContext(ctx, &view,
		`WITH inserted AS (
            INSERT INTO messages (id, channel_id, sender_id, content) VALUES ($1, $2, $3, $4)
            RETURNING id, channel_id, sender_id, content, created_at
        )
        SELECT i.id, i.channel_id, i.sender_id, u.username AS sender_username, i.content, i.created_at
        FROM inserted i JOIN users u ON u.id = i.sender_id`,
		message.ID, message.ChannelID, message.SenderID, message.Content)
	return view, err
}

// ListChannelMessages returns the channel's messages in creation order,
// each joined with its sender's username.
func (r *MessageRepo) ListChannelMessages(ctx context.Context, channelID uuid.UUID) ([]models.MessageView, error) {
	query := `SELECT m.id, m.channel_id, m.sender_id, u.username AS sender_username, m.content, m.created_at
        FROM messages m JOIN users u ON u.id = m.sender_id
        WHERE m.channel_id=$1
        ORDER BY m.created_at ASC`
	msgs := []models.MessageView{}
	err := r.db.SelectContext(ctx, &msgs, query, channelID)
	return msgs, err
}
