package channels

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"channel-service/internal/directory"
	"channel-service/internal/models"
	"channel-service/internal/repositories"
)

// fakeDirectory serves a fixed set of users.
type fakeDirectory struct {
	users []models.User
}

func (d *fakeDirectory) FindByUsername(_ context.Context, username string) (models.User, error) {
	for _, u := range d.users {
		if u.Username == username {
			return u, nil
		}
	}
	return models.User{}, directory.ErrUserNotFound
}

func (d *fakeDirectory) FindByID(_ context.Context, id uuid.UUID) (models.User, error) {
	for _, u := range d.users {
		if u.ID == id {
			return u, nil
		}
	}
	return models.User{}, directory.ErrUserNotFound
}

// fakeStore mimics the Postgres repositories, including the unique index
// on the pair key, so create races surface as ErrDuplicateChannel exactly
// like lib/pq reports them.
type fakeStore struct {
	mu        sync.Mutex
	byKey     map[string]models.Channel
	byID      map[uuid.UUID]models.Channel
	messages  map[uuid.UUID][]models.MessageView
	typing    []models.TypingNotification
	missFinds int
	createErr error
	typingErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		byKey:    map[string]models.Channel{},
		byID:     map[uuid.UUID]models.Channel{},
		messages: map[uuid.UUID][]models.MessageView{},
	}
}

func (s *fakeStore) FindDirectByPairKey(_ context.Context, keys ...string) (models.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.missFinds > 0 {
		s.missFinds--
		return models.Channel{}, repositories.ErrChannelNotFound
	}
	for _, key := range keys {
		if channel, ok := s.byKey[key]; ok {
			return channel, nil
		}
	}
	return models.Channel{}, repositories.ErrChannelNotFound
}

func (s *fakeStore) CreateDirectChannel(_ context.Context, channel models.Channel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	if _, ok := s.byKey[channel.PrivateChannelKey]; ok {
		return repositories.ErrDuplicateChannel
	}
	s.byKey[channel.PrivateChannelKey] = channel
	s.byID[channel.ID] = channel
	return nil
}

func (s *fakeStore) CreateRoomChannel(_ context.Context, channel models.Channel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[channel.ID] = channel
	return nil
}

func (s *fakeStore) GetChannel(_ context.Context, channelID uuid.UUID) (models.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if channel, ok := s.byID[channelID]; ok {
		return channel, nil
	}
	return models.Channel{}, repositories.ErrChannelNotFound
}

func (s *fakeStore) ListChannels(_ context.Context) ([]models.Channel, error) {
	return nil, nil
}

func (s *fakeStore) ListChannelMessages(_ context.Context, channelID uuid.UUID) ([]models.MessageView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.messages[channelID], nil
}

func (s *fakeStore) CreateMessage(_ context.Context, message models.Message) (models.MessageView, error) {
	panic("not used in service tests")
}

func (s *fakeStore) CreateTypingNotification(_ context.Context, notification models.TypingNotification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.typingErr != nil {
		return s.typingErr
	}
	s.typing = append(s.typing, notification)
	return nil
}

func newTestService(users ...models.User) (*Service, *fakeStore) {
	store := newFakeStore()
	return NewService(&fakeDirectory{users: users}, store, store, store), store
}

func twoUsers() (models.User, models.User) {
	return models.User{ID: uuid.New(), Username: "alice"},
		models.User{ID: uuid.New(), Username: "bob"}
}

func TestResolveCreatesChannelOnFirstContact(t *testing.T) {
	alice, bob := twoUsers()
	svc, store := newTestService(alice, bob)

	view, err := svc.ResolvePrivateChannel(context.Background(), "alice", bob.ID)
	require.NoError(t, err)

	assert.Equal(t, "alice", view.Name)
	assert.Equal(t, "bob", view.Description)
	assert.Equal(t, models.ChannelTypeDirect, view.ChannelType)
	require.NotNil(t, view.Messages)
	assert.Empty(t, view.Messages)
	assert.Len(t, store.byKey, 1)
}

func TestResolveIsIdempotent(t *testing.T) {
	alice, bob := twoUsers()
	svc, store := newTestService(alice, bob)

	first, err := svc.ResolvePrivateChannel(context.Background(), "alice", bob.ID)
	require.NoError(t, err)
	second, err := svc.ResolvePrivateChannel(context.Background(), "alice", bob.ID)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, store.byKey, 1)
}

func TestResolveIsSymmetricUnderOrientationSwap(t *testing.T) {
	alice, bob := twoUsers()
	svc, store := newTestService(alice, bob)

	fromAlice, err := svc.ResolvePrivateChannel(context.Background(), "alice", bob.ID)
	require.NoError(t, err)
	fromBob, err := svc.ResolvePrivateChannel(context.Background(), "bob", alice.ID)
	require.NoError(t, err)

	assert.Equal(t, fromAlice.ID, fromBob.ID)
	// The channel keeps the creator's naming: alice initiated.
	assert.Equal(t, "alice", fromBob.Name)
	assert.Equal(t, "bob", fromBob.Description)
	assert.Len(t, store.byKey, 1)
}

func TestResolveConcurrentFirstContactYieldsOneChannel(t *testing.T) {
	alice, bob := twoUsers()
	svc, store := newTestService(alice, bob)

	const attempts = 50
	type outcome struct {
		id  uuid.UUID
		err error
	}
	results := make(chan outcome, attempts*2)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			view, err := svc.ResolvePrivateChannel(context.Background(), "alice", bob.ID)
			results <- outcome{id: view.ID, err: err}
		}()
		go func() {
			defer wg.Done()
			view, err := svc.ResolvePrivateChannel(context.Background(), "bob", alice.ID)
			results <- outcome{id: view.ID, err: err}
		}()
	}
	wg.Wait()
	close(results)

	assert.Len(t, store.byKey, 1)
	var want uuid.UUID
	for res := range results {
		require.NoError(t, res.err)
		if want == uuid.Nil {
			want = res.id
		}
		assert.Equal(t, want, res.id)
	}
}

func TestResolveReturnsHydratedMessages(t *testing.T) {
	alice, bob := twoUsers()
	svc, store := newTestService(alice, bob)

	first, err := svc.ResolvePrivateChannel(context.Background(), "alice", bob.ID)
	require.NoError(t, err)

	store.mu.Lock()
	store.messages[first.ID] = []models.MessageView{
		{ID: uuid.New(), ChannelID: first.ID, SenderID: alice.ID, SenderUsername: "alice", Content: "hi"},
		{ID: uuid.New(), ChannelID: first.ID, SenderID: bob.ID, SenderUsername: "bob", Content: "hey"},
	}
	store.mu.Unlock()

	again, err := svc.ResolvePrivateChannel(context.Background(), "bob", alice.ID)
	require.NoError(t, err)
	require.Len(t, again.Messages, 2)
	assert.Equal(t, "hi", again.Messages[0].Content)
	assert.Equal(t, "alice", again.Messages[0].SenderUsername)
}

func TestResolveRejectsSelfChannel(t *testing.T) {
	alice, bob := twoUsers()
	svc, store := newTestService(alice, bob)

	_, err := svc.ResolvePrivateChannel(context.Background(), "alice", alice.ID)
	require.ErrorIs(t, err, ErrSelfChannel)
	assert.Empty(t, store.byKey)
}

func TestResolveCounterpartyNotFound(t *testing.T) {
	alice, bob := twoUsers()
	svc, store := newTestService(alice, bob)

	_, err := svc.ResolvePrivateChannel(context.Background(), "alice", uuid.New())
	require.ErrorIs(t, err, directory.ErrUserNotFound)
	assert.Empty(t, store.byKey)
}

func TestResolveUnknownCaller(t *testing.T) {
	alice, bob := twoUsers()
	svc, _ := newTestService(alice, bob)

	_, err := svc.ResolvePrivateChannel(context.Background(), "mallory", bob.ID)
	require.ErrorIs(t, err, directory.ErrUserNotFound)
}

func TestResolveSurfacesPersistenceFailure(t *testing.T) {
	alice, bob := twoUsers()
	svc, store := newTestService(alice, bob)
	store.createErr = repositories.ErrNothingPersisted

	_, err := svc.ResolvePrivateChannel(context.Background(), "alice", bob.ID)
	require.ErrorIs(t, err, repositories.ErrNothingPersisted)
}

func TestResolveRereadsAfterLostRace(t *testing.T) {
	alice, bob := twoUsers()
	svc, store := newTestService(alice, bob)

	// Seed the winner's row but hide it from the first lookup, so the
	// resolver's create collides and it must re-read.
	winner := models.Channel{
		ID:                uuid.New(),
		Name:              "bob",
		Description:       "alice",
		ChannelType:       models.ChannelTypeDirect,
		PrivateChannelKey: CanonicalPairKey(alice.ID, bob.ID),
	}
	require.NoError(t, store.CreateDirectChannel(context.Background(), winner))
	store.missFinds = 1

	view, err := svc.ResolvePrivateChannel(context.Background(), "alice", bob.ID)
	require.NoError(t, err)
	assert.Equal(t, winner.ID, view.ID)
}

func TestResolveGivesUpUnderPersistentContention(t *testing.T) {
	alice, bob := twoUsers()
	svc, store := newTestService(alice, bob)

	winner := models.Channel{
		ID:                uuid.New(),
		ChannelType:       models.ChannelTypeDirect,
		PrivateChannelKey: CanonicalPairKey(alice.ID, bob.ID),
	}
	require.NoError(t, store.CreateDirectChannel(context.Background(), winner))
	store.missFinds = maxResolveAttempts

	_, err := svc.ResolvePrivateChannel(context.Background(), "alice", bob.ID)
	require.ErrorIs(t, err, ErrResolveContention)
}

func TestEmitTypingSuccess(t *testing.T) {
	alice, bob := twoUsers()
	svc, store := newTestService(alice, bob)

	channel, err := svc.ResolvePrivateChannel(context.Background(), "alice", bob.ID)
	require.NoError(t, err)

	view, err := svc.EmitTyping(context.Background(), "alice", channel.ID)
	require.NoError(t, err)

	assert.Equal(t, channel.ID, view.ChannelID)
	assert.Equal(t, alice.ID, view.SenderID)
	assert.Equal(t, "alice", view.SenderUsername)
	assert.NotEqual(t, uuid.Nil, view.ID)
	require.Len(t, store.typing, 1)
	assert.Equal(t, view.ID, store.typing[0].ID)
}

func TestEmitTypingUnknownChannelPersistsNothing(t *testing.T) {
	alice, bob := twoUsers()
	svc, store := newTestService(alice, bob)

	_, err := svc.EmitTyping(context.Background(), "alice", uuid.New())
	require.ErrorIs(t, err, repositories.ErrChannelNotFound)
	assert.Empty(t, store.typing)
}

func TestEmitTypingSurfacesPersistenceFailure(t *testing.T) {
	alice, bob := twoUsers()
	svc, store := newTestService(alice, bob)

	channel, err := svc.ResolvePrivateChannel(context.Background(), "alice", bob.ID)
	require.NoError(t, err)

	store.typingErr = repositories.ErrNothingPersisted
	_, err = svc.EmitTyping(context.Background(), "alice", channel.ID)
	require.ErrorIs(t, err, repositories.ErrNothingPersisted)
}
