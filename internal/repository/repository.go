package repository

import (
	"context"

	"github.com/skychik/football-tg-poll-sheets-sync/internal/models"
)

type PollsRepository interface {
	Upsert(ctx context.Context, poll models.Poll) error
	Exists(ctx context.Context, pollID string) (bool, error)
	Latest(ctx context.Context, chatID int64) (*models.Poll, error)
	ReplaceVote(ctx context.Context, vote models.PollVote) error
	PollData(ctx context.Context, pollID string) (*models.PollData, error)
}

type SessionsRepository interface {
	Get(ctx context.Context, userID int64) (*models.UserSession, error)
	Upsert(ctx context.Context, session models.UserSession) error
	Delete(ctx context.Context, userID int64) error
}

type Logger interface {
	Info(action string, entity string, userID int64, status string)
	Error(err error, action string, entity string, userID int64)
}
