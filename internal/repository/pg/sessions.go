package pg

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skychik/football-tg-poll-sheets-sync/internal/models"
	"github.com/skychik/football-tg-poll-sheets-sync/internal/repository"
)

// Sessions -------------------------------------------------------------------

type SessionsRepo struct {
	pool *pgxpool.Pool
}

func NewSessionsRepo(pool *pgxpool.Pool) repository.SessionsRepository {
	return &SessionsRepo{pool: pool}
}

func (r *SessionsRepo) Get(ctx context.Context, userID int64) (*models.UserSession, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT user_tg_id, flow_state, updated_at
		FROM user_sessions
		WHERE user_tg_id = $1`, userID)

	var (
		session models.UserSession
		state   []byte
	)
	if err := row.Scan(&session.UserID, &state, &session.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	session.State = state
	return &session, nil
}

func (r *SessionsRepo) Upsert(ctx context.Context, session models.UserSession) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO user_sessions (user_tg_id, flow_state, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_tg_id)
		DO UPDATE SET flow_state = EXCLUDED.flow_state,
		              updated_at = NOW()`,
		session.UserID,
		session.State,
	)
	return err
}

func (r *SessionsRepo) Delete(ctx context.Context, userID int64) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM user_sessions WHERE user_tg_id = $1`, userID)
	return err
}
