package session

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/skychik/football-tg-poll-sheets-sync/internal/models"
	"github.com/skychik/football-tg-poll-sheets-sync/internal/service"
)

// Store keeps one SyncSession per user. A session is created lazily on first
// access and removed on reset, so an absent row means an idle session.
type Store struct {
	sessions service.SessionService
}

func NewStore(sessions service.SessionService) *Store {
	return &Store{sessions: sessions}
}

func (s *Store) Get(ctx context.Context, userID int64) (*models.SyncSession, error) {
	stored, err := s.sessions.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.NewSyncSession(), nil
		}
		return nil, err
	}
	state := models.NewSyncSession()
	if len(stored.State) > 0 {
		if err := json.Unmarshal(stored.State, state); err != nil {
			// Unreadable state is unrecoverable: start over.
			return models.NewSyncSession(), s.Reset(ctx, userID)
		}
	}
	if state.State == "" {
		state.State = models.StateIdle
	}
	return state, nil
}

func (s *Store) Save(ctx context.Context, userID int64, state *models.SyncSession) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return s.sessions.Save(ctx, models.UserSession{
		UserID: userID,
		State:  payload,
	})
}

func (s *Store) Reset(ctx context.Context, userID int64) error {
	return s.sessions.Delete(ctx, userID)
}
