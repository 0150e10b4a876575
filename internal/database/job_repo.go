package database

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/victorivanov/huddle/internal/models"
)

type jobRepo struct {
	pool *pgxpool.Pool
}

func NewJobRepository(pool *pgxpool.Pool) JobRepository {
	return &jobRepo{pool: pool}
}

func (r *jobRepo) Create(ctx context.Context, job *models.Job) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO scheduled_jobs (id, kind, fire_at, payload, state, created_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		job.ID, job.Kind, job.FireAt, []byte(job.Payload), job.State, job.CreatedBy, job.CreatedAt,
	)
	return err
}

const jobColumns = `id, kind, fire_at, payload, state, created_by, created_at`

func scanJob(row pgx.Row) (*models.Job, error) {
	var (
		j       models.Job
		payload []byte
	)
	if err := row.Scan(&j.ID, &j.Kind, &j.FireAt, &payload, &j.State, &j.CreatedBy, &j.CreatedAt); err != nil {
		return nil, err
	}
	j.Payload = payload
	return &j, nil
}

func (r *jobRepo) GetByID(ctx context.Context, id string) (*models.Job, error) {
	j, err := scanJob(r.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM scheduled_jobs WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return j, err
}

func (r *jobRepo) ListPending(ctx context.Context) ([]models.Job, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+jobColumns+` FROM scheduled_jobs
		 WHERE state = $1
		 ORDER BY fire_at`,
		models.JobPending,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []models.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *j)
	}
	return jobs, rows.Err()
}

func (r *jobRepo) Claim(ctx context.Context, id string) (bool, error) {
	return r.transition(ctx, id, models.JobFired)
}

func (r *jobRepo) Cancel(ctx context.Context, id string) (bool, error) {
	return r.transition(ctx, id, models.JobCancelled)
}

func (r *jobRepo) transition(ctx context.Context, id string, to models.JobState) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE scheduled_jobs SET state = $2 WHERE id = $1 AND state = $3`,
		id, to, models.JobPending,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
