package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skychik/football-tg-poll-sheets-sync/internal/models"
)

type memService struct {
	m map[int64]models.UserSession
}

func newMemService() *memService {
	return &memService{m: make(map[int64]models.UserSession)}
}

func (s *memService) Get(ctx context.Context, userID int64) (*models.UserSession, error) {
	stored, ok := s.m[userID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &stored, nil
}

func (s *memService) Save(ctx context.Context, session models.UserSession) error {
	s.m[session.UserID] = session
	return nil
}

func (s *memService) Delete(ctx context.Context, userID int64) error {
	delete(s.m, userID)
	return nil
}

func TestGetCreatesIdleSessionLazily(t *testing.T) {
	store := NewStore(newMemService())

	state, err := store.Get(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, models.StateIdle, state.State)
}

func TestSaveGetRoundTrip(t *testing.T) {
	store := NewStore(newMemService())
	ctx := context.Background()

	count := 8
	state := models.NewSyncSession()
	state.State = models.StateAwaitingOverrideChoice
	state.TargetColumn = "D"
	state.IsNewColumn = true
	state.PlayerCount = &count
	state.NicknameRows = map[string]int{"alice": 3}
	state.ExistingValues = []models.ExistingValue{{Nickname: "alice", Value: "+"}}
	state.Usernames = []string{"alice", "bob"}

	require.NoError(t, store.Save(ctx, 42, state))

	got, err := store.Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, state, got)
}

func TestResetForgetsState(t *testing.T) {
	store := NewStore(newMemService())
	ctx := context.Background()

	state := models.NewSyncSession()
	state.State = models.StateAwaitingDateName
	state.TargetColumn = "C"
	require.NoError(t, store.Save(ctx, 42, state))
	require.NoError(t, store.Reset(ctx, 42))

	got, err := store.Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, models.StateIdle, got.State)
	assert.Empty(t, got.TargetColumn)
}

func TestCorruptStateFallsBackToIdle(t *testing.T) {
	svc := newMemService()
	store := NewStore(svc)
	ctx := context.Background()

	svc.m[42] = models.UserSession{UserID: 42, State: []byte("{not json")}

	got, err := store.Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, models.StateIdle, got.State)
	// The broken row is gone, so the next read starts clean.
	_, ok := svc.m[42]
	assert.False(t, ok)
}

func TestSessionsAreIndependentPerUser(t *testing.T) {
	store := NewStore(newMemService())
	ctx := context.Background()

	a := models.NewSyncSession()
	a.State = models.StateAwaitingDateName
	require.NoError(t, store.Save(ctx, 1, a))

	b, err := store.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, models.StateIdle, b.State)
}
