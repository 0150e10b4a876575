package database

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/victorivanov/huddle/internal/models"
)

type standupRepo struct {
	pool *pgxpool.Pool
}

func NewStandupRepository(pool *pgxpool.Pool) StandupRepository {
	return &standupRepo{pool: pool}
}

func (r *standupRepo) Get(ctx context.Context, channelID int64) (*models.StandupSession, error) {
	return loadStandup(ctx, r.pool, channelID, false)
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func loadStandup(ctx context.Context, q querier, channelID int64, lock bool) (*models.StandupSession, error) {
	query := `SELECT active, owner_id, deadline, job_id FROM standup_sessions WHERE channel_id = $1`
	if lock {
		query += ` FOR UPDATE`
	}

	s := &models.StandupSession{ChannelID: channelID}
	var (
		ownerID  *int64
		deadline *time.Time
		jobID    *string
	)
	err := q.QueryRow(ctx, query, channelID).Scan(&s.Active, &ownerID, &deadline, &jobID)
	if errors.Is(err, pgx.ErrNoRows) {
		return s, nil
	}
	if err != nil {
		return nil, err
	}
	if ownerID != nil {
		s.OwnerID = *ownerID
	}
	if deadline != nil {
		s.Deadline = *deadline
	}
	if jobID != nil {
		s.JobID = *jobID
	}
	if !s.Active {
		return s, nil
	}

	rows, err := q.Query(ctx,
		`SELECT line FROM standup_lines WHERE channel_id = $1 ORDER BY seq`, channelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return nil, err
		}
		s.Lines = append(s.Lines, line)
	}
	return s, rows.Err()
}

// Start clears lines left over from an earlier session in the same
// transaction that activates the row.
func (r *standupRepo) Start(ctx context.Context, channelID, ownerID int64, deadline time.Time, jobID string) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`INSERT INTO standup_sessions (channel_id, active, owner_id, deadline, job_id)
		 VALUES ($1, TRUE, $2, $3, $4)
		 ON CONFLICT (channel_id) DO UPDATE
		   SET active = TRUE, owner_id = EXCLUDED.owner_id,
		       deadline = EXCLUDED.deadline, job_id = EXCLUDED.job_id
		   WHERE standup_sessions.active = FALSE`,
		channelID, ownerID, deadline, jobID,
	)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() != 1 {
		return false, nil
	}
	if _, err := tx.Exec(ctx, `DELETE FROM standup_lines WHERE channel_id = $1`, channelID); err != nil {
		return false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// Append takes a share lock on the session row, so it waits for a concurrent
// Close and then sees the session idle.
func (r *standupRepo) Append(ctx context.Context, channelID int64, line string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO standup_lines (channel_id, line)
		 SELECT channel_id, $2 FROM standup_sessions
		 WHERE channel_id = $1 AND active
		 FOR SHARE`,
		channelID, line,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *standupRepo) Close(ctx context.Context, channelID int64, jobID string, compose func(*models.StandupSession) *models.Message) (*models.Message, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	session, err := loadStandup(ctx, tx, channelID, true)
	if err != nil {
		return nil, err
	}
	if !session.Active || session.JobID != jobID {
		return nil, tx.Commit(ctx)
	}

	msg := compose(session)
	if msg != nil {
		if err := insertMessage(ctx, tx, msg); err != nil {
			return nil, err
		}
	}
	if err := resetStandup(ctx, tx, channelID); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return msg, nil
}

func (r *standupRepo) ListActive(ctx context.Context) ([]models.StandupSession, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT channel_id, owner_id, deadline, job_id FROM standup_sessions
		 WHERE active ORDER BY channel_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.StandupSession
	for rows.Next() {
		var (
			s        = models.StandupSession{Active: true}
			ownerID  *int64
			deadline *time.Time
			jobID    *string
		)
		if err := rows.Scan(&s.ChannelID, &ownerID, &deadline, &jobID); err != nil {
			return nil, err
		}
		if ownerID != nil {
			s.OwnerID = *ownerID
		}
		if deadline != nil {
			s.Deadline = *deadline
		}
		if jobID != nil {
			s.JobID = *jobID
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *standupRepo) Reset(ctx context.Context, channelID int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := resetStandup(ctx, tx, channelID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func resetStandup(ctx context.Context, q execer, channelID int64) error {
	if _, err := q.Exec(ctx, `DELETE FROM standup_lines WHERE channel_id = $1`, channelID); err != nil {
		return err
	}
	_, err := q.Exec(ctx,
		`UPDATE standup_sessions SET active = FALSE, deadline = NULL, job_id = NULL
		 WHERE channel_id = $1`, channelID)
	return err
}
