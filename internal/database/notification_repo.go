package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/victorivanov/huddle/internal/models"
)

type notificationRepo struct {
	pool *pgxpool.Pool
}

func NewNotificationRepository(pool *pgxpool.Pool) NotificationRepository {
	return &notificationRepo{pool: pool}
}

func (r *notificationRepo) Append(ctx context.Context, n *models.Notification) error {
	channelID, dmID := containerColumns(n.Container)
	_, err := r.pool.Exec(ctx,
		`INSERT INTO notifications (recipient_id, channel_id, dm_id, text, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		n.RecipientID, channelID, dmID, n.Text, n.CreatedAt,
	)
	return err
}

func (r *notificationRepo) ListByRecipient(ctx context.Context, recipientID int64, limit int) ([]models.Notification, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT recipient_id, channel_id, dm_id, text, created_at
		 FROM notifications
		 WHERE recipient_id = $1
		 ORDER BY seq DESC
		 LIMIT $2`,
		recipientID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		var (
			n               models.Notification
			channelID, dmID *int64
		)
		if err := rows.Scan(&n.RecipientID, &channelID, &dmID, &n.Text, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.Container = containerFromColumns(channelID, dmID)
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}
