package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"channel-service/internal/models"
)

var (
	ErrChannelNotFound = errors.New("channel not found")
	// ErrDuplicateChannel reports that a direct channel for the pair key
	// already exists; the caller lost a create race and should re-read.
	ErrDuplicateChannel = errors.New("duplicate direct channel")
	// ErrNothingPersisted reports a write that affected zero rows.
	ErrNothingPersisted = errors.New("nothing persisted")
)

const pqUniqueViolation = "23505"

// ChannelRepository abstracts channel persistence.
type ChannelRepository interface {
	FindDirectByPairKey(ctx context.Context, keys ...string) (models.Channel, error)
	CreateDirectChannel(ctx context.Context, channel models.Channel) error
	CreateRoomChannel(ctx context.Context, channel models.Channel) error
	GetChannel(ctx context.Context, channelID uuid.UUID) (models.Channel, error)
	ListChannels(ctx context.Context) ([]models.Channel, error)
}

// ChannelRepo is a sqlx implementation of ChannelRepository.
type ChannelRepo struct {
	db *sqlx.DB
}

// NewChannelRepo constructs a ChannelRepo.
func NewChannelRepo(db *sqlx.DB) *ChannelRepo {
	return &ChannelRepo{db: db}
}

// FindDirectByPairKey returns the direct channel whose stored key matches
// any of the given orientations.
func (r *ChannelRepo) FindDirectByPairKey(ctx context.Context, keys ...string) (models.Channel, error) {
	if len(keys) == 0 {
		return models.Channel{}, ErrChannelNotFound
	}
	var channel models.Channel
	query := `SELECT id, name, description, channel_type, COALESCE(private_channel_key, '') AS private_channel_key, created_at
        FROM channels WHERE channel_type='direct' AND private_channel_key = ANY($1)`
	err := r.db.GetContext(ctx, &channel, query, pq.Array(keys))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Channel{}, ErrChannelNotFound
	}
	return channel, err
}

// CreateDirectChannel inserts a direct channel. A unique violation on the
// pair key is reported as ErrDuplicateChannel.
func (r *ChannelRepo) CreateDirectChannel(ctx context.Context, channel models.Channel) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO channels (id, name, description, channel_type, private_channel_key) VALUES ($1, $2, $3, 'direct', $4)`,
		channel.ID, channel.Name, channel.Description, channel.PrivateChannelKey)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return ErrDuplicateChannel
		}
		return err
	}
	return requireRows(res)
}

// CreateRoomChannel inserts an open room channel.
func (r *ChannelRepo) CreateRoomChannel(ctx context.Context, channel models.Channel) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO channels (id, name, description, channel_type) VALUES ($1, $2, $3, 'room')`,
		channel.ID, channel.Name, channel.Description)
	if err != nil {
		return err
	}
	return requireRows(res)
}

// GetChannel fetches a channel of any type by id.
func (r *ChannelRepo) GetChannel(ctx context.Context, channelID uuid.UUID) (models.Channel, error) {
	var channel models.Channel
	query := `SELECT id, name, description, channel_type, COALESCE(private_channel_key, '') AS private_channel_key, created_at
        FROM channels WHERE id=$1`
	err := r.db.GetContext(ctx, &channel, query, channelID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Channel{}, ErrChannelNotFound
	}
	return channel, err
}

// ListChannels returns room channels, newest first. Direct channels are
// reachable only through pair resolution.
func (r *ChannelRepo) ListChannels(ctx context.Context) ([]models.Channel, error) {
	var channels []models.Channel
	query := `SELECT id, name, description, channel_type, COALESCE(private_channel_key, '') AS private_channel_key, created_at
        FROM channels WHERE channel_type='room' ORDER BY created_at DESC`
	err := r.db.SelectContext(ctx, &channels, query)
	return channels, err
}

func requireRows(res sql.Result) error {
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrNothingPersisted
	}
	return nil
}
