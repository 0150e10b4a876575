package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/victorivanov/huddle/internal/models"
)

type messageRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRepository(pool *pgxpool.Pool) MessageRepository {
	return &messageRepo{pool: pool}
}

func (r *messageRepo) Create(ctx context.Context, msg *models.Message) error {
	return insertMessage(ctx, r.pool, msg)
}

func insertMessage(ctx context.Context, q execer, msg *models.Message) error {
	channelID, dmID := containerColumns(msg.Container)
	_, err := q.Exec(ctx,
		`INSERT INTO messages (id, channel_id, dm_id, author_id, body, created_at, pinned)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		msg.ID, channelID, dmID, msg.AuthorID, msg.Body, msg.CreatedAt, msg.Pinned,
	)
	return err
}

func (r *messageRepo) GetByID(ctx context.Context, id int64) (*models.Message, error) {
	var (
		m               models.Message
		channelID, dmID *int64
	)
	err := r.pool.QueryRow(ctx,
		`SELECT id, channel_id, dm_id, author_id, body, created_at, pinned
		 FROM messages
		 WHERE id = $1`, id,
	).Scan(&m.ID, &channelID, &dmID, &m.AuthorID, &m.Body, &m.CreatedAt, &m.Pinned)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	m.Container = containerFromColumns(channelID, dmID)
	return &m, nil
}

func (r *messageRepo) ListByContainer(ctx context.Context, c models.Container) ([]models.Message, error) {
	column := "channel_id"
	if c.IsDM() {
		column = "dm_id"
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, author_id, body, created_at, pinned
		 FROM messages
		 WHERE `+column+` = $1
		 ORDER BY seq DESC`,
		c.ID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		m := models.Message{Container: c}
		if err := rows.Scan(&m.ID, &m.AuthorID, &m.Body, &m.CreatedAt, &m.Pinned); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (r *messageRepo) Apply(ctx context.Context, id int64, patch models.MessagePatch) error {
	var err error
	switch p := patch.(type) {
	case models.EditBody:
		_, err = r.pool.Exec(ctx, `UPDATE messages SET body = $2 WHERE id = $1`, id, p.Body)
	case models.SetPinned:
		_, err = r.pool.Exec(ctx, `UPDATE messages SET pinned = $2 WHERE id = $1`, id, p.Pinned)
	default:
		err = fmt.Errorf("unsupported message patch %T", patch)
	}
	return err
}

func (r *messageRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM messages WHERE id = $1`, id)
	return err
}
