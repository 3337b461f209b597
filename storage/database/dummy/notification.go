package dummydb

import (
	"context"
	"sort"

	"github.com/jifunze/jifunze/core/notification"
)

type notificationRepository struct {
	db *notificationTable
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *DB) *notificationRepository {
	return &notificationRepository{db: db.notification}
}

func (repo *notificationRepository) CreateNotifications(ctx context.Context, notifs ...notification.Notification) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, n := range notifs {
		repo.db.seq++
		n.ID = repo.db.seq
		stored := n
		repo.db.table[n.ID] = &stored
	}
	return nil
}

func (repo *notificationRepository) QueryNotifications(ctx context.Context, userPublicID string, unreadOnly bool, limit int) ([]notification.Notification, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	notifs := make([]notification.Notification, 0)
	for _, n := range repo.db.table {
		if n.UserPublicID != userPublicID {
			continue
		}
		if unreadOnly && n.IsRead {
			continue
		}
		notifs = append(notifs, *n)
	}
	// newest first, like the SQL repository
	sort.Slice(notifs, func(i, j int) bool { return notifs[i].CreatedAt.After(notifs[j].CreatedAt) })
	if limit > 0 && len(notifs) > limit {
		notifs = notifs[:limit]
	}
	return notifs, nil
}

func (repo *notificationRepository) CountUnread(ctx context.Context, userPublicID string) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var count int
	for _, n := range repo.db.table {
		if n.UserPublicID == userPublicID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (repo *notificationRepository) MarkRead(ctx context.Context, userPublicID string, id int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	n, ok := repo.db.table[id]
	if !ok || n.UserPublicID != userPublicID {
		return notification.ErrNotFound
	}
	n.IsRead = true
	return nil
}

func (repo *notificationRepository) MarkAllRead(ctx context.Context, userPublicID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, n := range repo.db.table {
		if n.UserPublicID == userPublicID {
			n.IsRead = true
		}
	}
	return nil
}

func (repo *notificationRepository) DeleteNotification(ctx context.Context, userPublicID string, id int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	n, ok := repo.db.table[id]
	if !ok || n.UserPublicID != userPublicID {
		return notification.ErrNotFound
	}
	delete(repo.db.table, id)
	return nil
}
