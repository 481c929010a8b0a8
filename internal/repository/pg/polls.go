package pg

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skychik/football-tg-poll-sheets-sync/internal/models"
	"github.com/skychik/football-tg-poll-sheets-sync/internal/repository"
)

// Polls ----------------------------------------------------------------------

type PollsRepo struct {
	pool *pgxpool.Pool
}

func NewPollsRepo(pool *pgxpool.Pool) repository.PollsRepository {
	return &PollsRepo{pool: pool}
}

func (r *PollsRepo) Upsert(ctx context.Context, poll models.Poll) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO polls (id, chat_id, question, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (id)
		DO UPDATE SET chat_id = EXCLUDED.chat_id,
		              question = EXCLUDED.question`,
		poll.ID, poll.ChatID, poll.Question,
	); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `
		DELETE FROM poll_options WHERE poll_id = $1`, poll.ID); err != nil {
		return err
	}
	for idx, label := range poll.Options {
		if _, err := tx.Exec(ctx, `
			INSERT INTO poll_options (poll_id, idx, label)
			VALUES ($1, $2, $3)`,
			poll.ID, idx, label,
		); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *PollsRepo) Exists(ctx context.Context, pollID string) (bool, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM polls WHERE id = $1`, pollID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *PollsRepo) Latest(ctx context.Context, chatID int64) (*models.Poll, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, chat_id, question, created_at
		FROM polls
		WHERE chat_id = $1
		ORDER BY created_at DESC
		LIMIT 1`, chatID)

	var poll models.Poll
	if err := row.Scan(&poll.ID, &poll.ChatID, &poll.Question, &poll.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, models.ErrNotFound
		}
		return nil, err
	}

	options, err := r.options(ctx, poll.ID)
	if err != nil {
		return nil, err
	}
	poll.Options = options
	return &poll, nil
}

func (r *PollsRepo) ReplaceVote(ctx context.Context, vote models.PollVote) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		DELETE FROM poll_votes WHERE poll_id = $1 AND user_id = $2`,
		vote.PollID, vote.UserID,
	); err != nil {
		return err
	}
	for _, optionIdx := range vote.OptionIDs {
		if _, err := tx.Exec(ctx, `
			INSERT INTO poll_votes (poll_id, user_id, username, option_idx, created_at)
			VALUES ($1, $2, $3, $4, NOW())`,
			vote.PollID, vote.UserID, vote.Username, optionIdx,
		); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *PollsRepo) PollData(ctx context.Context, pollID string) (*models.PollData, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT question FROM polls WHERE id = $1`, pollID)

	data := &models.PollData{Votes: make(map[int][]string)}
	if err := row.Scan(&data.Question); err != nil {
		if err == pgx.ErrNoRows {
			return nil, models.ErrNotFound
		}
		return nil, err
	}

	options, err := r.options(ctx, pollID)
	if err != nil {
		return nil, err
	}
	data.Options = options

	rows, err := r.pool.Query(ctx, `
		SELECT option_idx, username
		FROM poll_votes
		WHERE poll_id = $1
		ORDER BY id`, pollID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			idx      int
			username string
		)
		if err := rows.Scan(&idx, &username); err != nil {
			return nil, err
		}
		data.Votes[idx] = append(data.Votes[idx], username)
	}
	return data, rows.Err()
}

func (r *PollsRepo) options(ctx context.Context, pollID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT label
		FROM poll_options
		WHERE poll_id = $1
		ORDER BY idx`, pollID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var options []string
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, err
		}
		options = append(options, label)
	}
	return options, rows.Err()
}
