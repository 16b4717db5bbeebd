package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/ethioshop/marketplace/internal/repository"
)

type notificationRepo struct {
	db *sql.DB
}

func (r *notificationRepo) Create(ctx context.Context, n *repository.Notification) error {
	if n.CreatedAt == 0 {
		n.CreatedAt = time.Now().Unix()
	}
	if n.Status == "" {
		n.Status = repository.NotificationStatusUnread
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO notifications(id, recipient_id, type, title, body, status, created_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.RecipientID, n.Type, n.Title, n.Body, n.Status, n.CreatedAt,
	)
	return err
}

func (r *notificationRepo) ListByRecipient(ctx context.Context, recipientID string, limit, offset int) ([]*repository.Notification, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, recipient_id, type, title, body, status, created_at
		 FROM notifications WHERE recipient_id = ?
		 ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		recipientID, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*repository.Notification
	for rows.Next() {
		var n repository.Notification
		if err := rows.Scan(&n.ID, &n.RecipientID, &n.Type, &n.Title, &n.Body, &n.Status, &n.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, &n)
	}
	return items, rows.Err()
}

func (r *notificationRepo) CountUnread(ctx context.Context, recipientID string) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE recipient_id = ? AND status = ?`,
		recipientID, repository.NotificationStatusUnread,
	).Scan(&count)
	return count, err
}

func (r *notificationRepo) MarkRead(ctx context.Context, recipientID, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET status = ? WHERE id = ? AND recipient_id = ? AND status = ?`,
		repository.NotificationStatusRead, id, recipientID, repository.NotificationStatusUnread,
	)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
