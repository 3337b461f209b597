package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/jifunze/jifunze/core/notification"
)

type notificationRow struct {
	ID           int       `db:"id"`
	UserPublicID string    `db:"user_public_id"`
	Title        string    `db:"title"`
	Message      *string   `db:"message"`
	Type         string    `db:"type"`
	IsRead       bool      `db:"is_read"`
	Link         *string   `db:"link"`
	CreatedAt    time.Time `db:"created_at"`
}

func (r notificationRow) unrow() notification.Notification {
	n := notification.Notification{
		ID:           r.ID,
		UserPublicID: r.UserPublicID,
		Title:        r.Title,
		Type:         r.Type,
		IsRead:       r.IsRead,
		CreatedAt:    r.CreatedAt,
	}
	if r.Message != nil {
		n.Message = *r.Message
	}
	if r.Link != nil {
		n.Link = *r.Link
	}
	return n
}

type notificationRepository struct {
	db *sqlx.DB
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *sqlx.DB) *notificationRepository {
	return &notificationRepository{db: db}
}

func (repo notificationRepository) CreateNotifications(ctx context.Context, notifs ...notification.Notification) error {
	if len(notifs) == 0 {
		return nil
	}
	const query = `
		INSERT INTO notifications (user_public_id, title, message, type, is_read, link, created_at)
		VALUES (:user_public_id, :title, :message, :type, :is_read, :link, :created_at)`
	rows := make([]map[string]interface{}, 0, len(notifs))
	for _, n := range notifs {
		rows = append(rows, map[string]interface{}{
			"user_public_id": n.UserPublicID,
			"title":          n.Title,
			"message":        n.Message,
			"type":           n.Type,
			"is_read":        n.IsRead,
			"link":           n.Link,
			"created_at":     n.CreatedAt,
		})
	}
	if _, err := repo.db.NamedExecContext(ctx, query, rows); err != nil {
		return errors.Wrap(err, "inserting notifications")
	}
	return nil
}

func (repo notificationRepository) QueryNotifications(ctx context.Context, userPublicID string, unreadOnly bool, limit int) ([]notification.Notification, error) {
	query := `SELECT * FROM notifications WHERE user_public_id = $1`
	if unreadOnly {
		query += " AND is_read = false"
	}
	query += " ORDER BY created_at DESC LIMIT $2"

	var rows []notificationRow
	if err := repo.db.SelectContext(ctx, &rows, query, userPublicID, limit); err != nil {
		return nil, errors.Wrap(err, "querying notifications")
	}
	notifs := make([]notification.Notification, 0, len(rows))
	for _, r := range rows {
		notifs = append(notifs, r.unrow())
	}
	return notifs, nil
}

func (repo notificationRepository) CountUnread(ctx context.Context, userPublicID string) (int, error) {
	var count int
	const query = `SELECT COUNT(*) FROM notifications WHERE user_public_id = $1 AND is_read = false`
	if err := repo.db.GetContext(ctx, &count, query, userPublicID); err != nil {
		return 0, errors.Wrap(err, "counting unread notifications")
	}
	return count, nil
}

func (repo notificationRepository) MarkRead(ctx context.Context, userPublicID string, id int) error {
	const query = `UPDATE notifications SET is_read = true WHERE id = $1 AND user_public_id = $2`
	res, err := repo.db.ExecContext(ctx, query, id, userPublicID)
	if err != nil {
		return errors.Wrap(err, "marking notification read")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return notification.ErrNotFound
	}
	return nil
}

func (repo notificationRepository) MarkAllRead(ctx context.Context, userPublicID string) error {
	const query = `UPDATE notifications SET is_read = true WHERE user_public_id = $1 AND is_read = false`
	if _, err := repo.db.ExecContext(ctx, query, userPublicID); err != nil {
		return errors.Wrap(err, "marking all notifications read")
	}
	return nil
}

func (repo notificationRepository) DeleteNotification(ctx context.Context, userPublicID string, id int) error {
	const query = `DELETE FROM notifications WHERE id = $1 AND user_public_id = $2`
	res, err := repo.db.ExecContext(ctx, query, id, userPublicID)
	if err != nil {
		return errors.Wrap(err, "deleting notification")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return notification.ErrNotFound
	}
	return nil
}
