package service

import (
	"context"
	"fmt"

	"github.com/skychik/football-tg-poll-sheets-sync/internal/models"
	"github.com/skychik/football-tg-poll-sheets-sync/internal/repository"
)

// Polls ----------------------------------------------------------------------

type PollsService interface {
	RecordPoll(ctx context.Context, poll models.Poll) error
	RecordAnswer(ctx context.Context, vote models.PollVote) error
	Exists(ctx context.Context, pollID string) (bool, error)
	Latest(ctx context.Context, chatID int64) (*models.Poll, error)
	PollData(ctx context.Context, pollID string) (*models.PollData, error)
}

type pollsService struct {
	repo repository.PollsRepository
}

func NewPollsService(repo repository.PollsRepository) PollsService {
	return &pollsService{repo: repo}
}

func (s *pollsService) RecordPoll(ctx context.Context, poll models.Poll) error {
	if poll.ID == "" {
		return fmt.Errorf("poll id: %w", models.ErrValidation)
	}
	if poll.Question == "" {
		return fmt.Errorf("question: %w", models.ErrValidation)
	}
	if len(poll.Options) == 0 {
		return fmt.Errorf("options: %w", models.ErrValidation)
	}
	return s.repo.Upsert(ctx, poll)
}

func (s *pollsService) RecordAnswer(ctx context.Context, vote models.PollVote) error {
	if vote.PollID == "" {
		return fmt.Errorf("poll id: %w", models.ErrValidation)
	}
	if vote.Username == "" {
		vote.Username = fmt.Sprintf("id%d", vote.UserID)
	}
	return s.repo.ReplaceVote(ctx, vote)
}

func (s *pollsService) Exists(ctx context.Context, pollID string) (bool, error) {
	if pollID == "" {
		return false, nil
	}
	return s.repo.Exists(ctx, pollID)
}

func (s *pollsService) Latest(ctx context.Context, chatID int64) (*models.Poll, error) {
	return s.repo.Latest(ctx, chatID)
}

func (s *pollsService) PollData(ctx context.Context, pollID string) (*models.PollData, error) {
	return s.repo.PollData(ctx, pollID)
}

// Sessions -------------------------------------------------------------------

type SessionService interface {
	Get(ctx context.Context, userID int64) (*models.UserSession, error)
	Save(ctx context.Context, session models.UserSession) error
	Delete(ctx context.Context, userID int64) error
}

type sessionService struct {
	repo repository.SessionsRepository
}

func NewSessionService(repo repository.SessionsRepository) SessionService {
	return &sessionService{repo: repo}
}

func (s *sessionService) Get(ctx context.Context, userID int64) (*models.UserSession, error) {
	return s.repo.Get(ctx, userID)
}

func (s *sessionService) Save(ctx context.Context, session models.UserSession) error {
	return s.repo.Upsert(ctx, session)
}

func (s *sessionService) Delete(ctx context.Context, userID int64) error {
	return s.repo.Delete(ctx, userID)
}
