package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/victorivanov/huddle/internal/models"
)

type membershipRepo struct {
	pool *pgxpool.Pool
}

// NewMembershipRepository reads the channel/DM membership tables owned by
// the membership service.
func NewMembershipRepository(pool *pgxpool.Pool) MembershipRepository {
	return &membershipRepo{pool: pool}
}

func (r *membershipRepo) IsMember(ctx context.Context, userID int64, c models.Container) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM channel_members WHERE channel_id = $1 AND user_id = $2)`
	if c.IsDM() {
		query = `SELECT EXISTS (SELECT 1 FROM dm_members WHERE dm_id = $1 AND user_id = $2)`
	}
	var ok bool
	err := r.pool.QueryRow(ctx, query, c.ID, userID).Scan(&ok)
	return ok, err
}

func (r *membershipRepo) IsOwner(ctx context.Context, userID int64, c models.Container) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM channel_members WHERE channel_id = $1 AND user_id = $2 AND is_owner)`
	if c.IsDM() {
		query = `SELECT EXISTS (SELECT 1 FROM dms WHERE id = $1 AND creator_id = $2)`
	}
	var ok bool
	err := r.pool.QueryRow(ctx, query, c.ID, userID).Scan(&ok)
	return ok, err
}

func (r *membershipRepo) IsGlobalOwner(ctx context.Context, userID int64) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE((SELECT is_global_owner FROM users WHERE id = $1), FALSE)`, userID,
	).Scan(&ok)
	return ok, err
}

func (r *membershipRepo) ContainerName(ctx context.Context, c models.Container) (string, error) {
	query := `SELECT name FROM channels WHERE id = $1`
	if c.IsDM() {
		query = `SELECT name FROM dms WHERE id = $1`
	}
	var name string
	err := r.pool.QueryRow(ctx, query, c.ID).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("container %s not found", c)
	}
	return name, err
}

func (r *membershipRepo) Members(ctx context.Context, c models.Container) ([]models.Member, error) {
	query := `SELECT u.id, u.handle FROM channel_members m
	          INNER JOIN users u ON u.id = m.user_id
	          WHERE m.channel_id = $1
	          ORDER BY m.joined_at, u.id`
	if c.IsDM() {
		query = `SELECT u.id, u.handle FROM dm_members m
		         INNER JOIN users u ON u.id = m.user_id
		         WHERE m.dm_id = $1
		         ORDER BY m.joined_at, u.id`
	}
	rows, err := r.pool.Query(ctx, query, c.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []models.Member
	for rows.Next() {
		var m models.Member
		if err := rows.Scan(&m.UserID, &m.Handle); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (r *membershipRepo) Handle(ctx context.Context, userID int64) (string, error) {
	var handle string
	err := r.pool.QueryRow(ctx, `SELECT handle FROM users WHERE id = $1`, userID).Scan(&handle)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("user %d not found", userID)
	}
	return handle, err
}
