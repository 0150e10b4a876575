package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/victorivanov/huddle/internal/models"
)

func NewPostgresPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	config.MaxConns = 20
	config.MinConns = 2
	return pgxpool.NewWithConfig(ctx, config)
}

// execer is satisfied by both *pgxpool.Pool and pgx.Tx.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// containerColumns splits a container into nullable (channel_id, dm_id) columns.
func containerColumns(c models.Container) (channelID, dmID *int64) {
	id := c.ID
	if c.IsChannel() {
		return &id, nil
	}
	return nil, &id
}

// containerFromColumns is the inverse of containerColumns.
func containerFromColumns(channelID, dmID *int64) models.Container {
	if channelID != nil {
		return models.Channel(*channelID)
	}
	if dmID != nil {
		return models.DM(*dmID)
	}
	return models.Container{}
}
