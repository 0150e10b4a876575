package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/victorivanov/huddle/internal/models"
)

type reactionRepo struct {
	pool *pgxpool.Pool
}

func NewReactionRepository(pool *pgxpool.Pool) ReactionRepository {
	return &reactionRepo{pool: pool}
}

func (r *reactionRepo) Add(ctx context.Context, messageID, userID int64, kind models.ReactionKind) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO reactions (message_id, user_id, kind)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (message_id, user_id, kind) DO NOTHING`,
		messageID, userID, kind,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *reactionRepo) Remove(ctx context.Context, messageID, userID int64, kind models.ReactionKind) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM reactions WHERE message_id = $1 AND user_id = $2 AND kind = $3`,
		messageID, userID, kind,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *reactionRepo) GetByMessages(ctx context.Context, messageIDs []int64) ([]models.Reaction, error) {
	if len(messageIDs) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx,
		`SELECT message_id, user_id, kind, created_at
		 FROM reactions
		 WHERE message_id = ANY($1)
		 ORDER BY seq`,
		messageIDs,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reactions []models.Reaction
	for rows.Next() {
		var reaction models.Reaction
		if err := rows.Scan(&reaction.MessageID, &reaction.UserID, &reaction.Kind, &reaction.CreatedAt); err != nil {
			return nil, err
		}
		reactions = append(reactions, reaction)
	}
	return reactions, rows.Err()
}
