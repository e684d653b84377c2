package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"

	"channel-service/internal/models"
)

// TypingRepository persists typing notifications. Rows are write-only for
// the service; nothing reads them back.
type TypingRepository interface {
	CreateTypingNotification(ctx context.Context, notification models.TypingNotification) error
}

// TypingRepo is a sqlx-backed repository.
type TypingRepo struct {
	db *sqlx.DB
}

// NewTypingRepo constructs TypingRepo.
func NewTypingRepo(db *sqlx.DB) *TypingRepo {
	return &TypingRepo{db: db}
}

// CreateTypingNotification inserts one typing row.
func (r *TypingRepo) CreateTypingNotification(ctx context.Context, notification models.TypingNotification) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO typing_notifications (id, channel_id, sender_id) VALUES ($1, $2, $3)`,
		notification.ID, notification.ChannelID, notification.SenderID)
	if err != nil {
		return err
	}
	return requireRows(res)
}
