package channels

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"channel-service/internal/directory"
	"channel-service/internal/models"
	"channel-service/internal/repositories"
)

var (
	// ErrSelfChannel rejects resolving a private channel with oneself.
	ErrSelfChannel = errors.New("cannot open a private channel with yourself")
	// ErrResolveContention reports that the resolver kept losing the
	// create race without ever observing the winning row.
	ErrResolveContention = errors.New("private channel resolution contention")
)

// A lost create race is followed by a re-read of the winner's row; one
// retry would suffice, the bound just keeps a broken store from looping.
const maxResolveAttempts = 3

// Service resolves private channels and emits typing notifications.
type Service struct {
	directory directory.Directory
	channels  repositories.ChannelRepository
	messages  repositories.MessageRepository
	typing    repositories.TypingRepository
}

// NewService constructs the channel service.
func NewService(dir directory.Directory, channels repositories.ChannelRepository, messages repositories.MessageRepository, typing repositories.TypingRepository) *Service {
	return &Service{
		directory: dir,
		channels:  channels,
		messages:  messages,
		typing:    typing,
	}
}

// ResolvePrivateChannel returns the direct channel between the caller and
// the counterparty, creating it if absent. Both initiation orders resolve
// to the same channel, including under concurrent first contact.
func (s *Service) ResolvePrivateChannel(ctx context.Context, callerUsername string, counterpartyID uuid.UUID) (models.ChannelView, error) {
	caller, err := s.directory.FindByUsername(ctx, callerUsername)
	if err != nil {
		return models.ChannelView{}, fmt.Errorf("resolve caller: %w", err)
	}
	counterparty, err := s.directory.FindByID(ctx, counterpartyID)
	if err != nil {
		return models.ChannelView{}, fmt.Errorf("resolve counterparty: %w", err)
	}
	if caller.ID == counterparty.ID {
		return models.ChannelView{}, ErrSelfChannel
	}

	keys := PairKeyOrientations(caller.ID, counterparty.ID)
	for attempt := 0; attempt < maxResolveAttempts; attempt++ {
		channel, err := s.channels.FindDirectByPairKey(ctx, keys...)
		if err == nil {
			return s.hydrateChannel(ctx, channel)
		}
		if !errors.Is(err, repositories.ErrChannelNotFound) {
			return models.ChannelView{}, err
		}

		created := models.Channel{
			ID:                uuid.New(),
			Name:              caller.Username,
			Description:       counterparty.Username,
			ChannelType:       models.ChannelTypeDirect,
			PrivateChannelKey: CanonicalPairKey(caller.ID, counterparty.ID),
		}
		err = s.channels.CreateDirectChannel(ctx, created)
		if err == nil {
			return models.ChannelView{
				ID:          created.ID,
				Name:        created.Name,
				Description: created.Description,
				ChannelType: created.ChannelType,
				Messages:    []models.MessageView{},
			}, nil
		}
		if errors.Is(err, repositories.ErrDuplicateChannel) {
			// Another resolution for this pair won; re-read its row.
			continue
		}
		return models.ChannelView{}, err
	}
	return models.ChannelView{}, ErrResolveContention
}

// EmitTyping validates the channel, persists one typing notification and
// returns its view. The record is never read back; delivery is the
// caller's concern.
func (s *Service) EmitTyping(ctx context.Context, callerUsername string, channelID uuid.UUID) (models.TypingView, error) {
	sender, err := s.directory.FindByUsername(ctx, callerUsername)
	if err != nil {
		return models.TypingView{}, fmt.Errorf("resolve sender: %w", err)
	}
	channel, err := s.channels.GetChannel(ctx, channelID)
	if err != nil {
		return models.TypingView{}, err
	}

	notification := models.TypingNotification{
		ID:        uuid.New(),
		ChannelID: channel.ID,
		SenderID:  sender.ID,
	}
	if err := s.typing.CreateTypingNotification(ctx, notification); err != nil {
		return models.TypingView{}, err
	}

	return models.TypingView{
		ID:             notification.ID,
		ChannelID:      notification.ChannelID,
		SenderID:       notification.SenderID,
		SenderUsername: sender.Username,
	}, nil
}

func (s *Service) hydrateChannel(ctx context.Context, channel models.Channel) (models.ChannelView, error) {
	messages, err := s.messages.ListChannelMessages(ctx, channel.ID)
	if err != nil {
		return models.ChannelView{}, err
	}
	if messages == nil {
		messages = []models.MessageView{}
	}
	return models.ChannelView{
		ID:          channel.ID,
		Name:        channel.Name,
		Description: channel.Description,
		ChannelType: channel.ChannelType,
		Messages:    messages,
	}, nil
}
