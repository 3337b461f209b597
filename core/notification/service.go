package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/jifunze/jifunze/core"
	"github.com/jifunze/jifunze/core/course"
	"github.com/jifunze/jifunze/core/message"
	"github.com/jifunze/jifunze/core/user"
)

var ErrNotFound = errors.New("notification not found")

type (
	Repository interface {
		CreateNotifications(ctx context.Context, notifs ...Notification) error
		QueryNotifications(ctx context.Context, userPublicID string, unreadOnly bool, limit int) ([]Notification, error)
		CountUnread(ctx context.Context, userPublicID string) (int, error)
		MarkRead(ctx context.Context, userPublicID string, id int) error
		MarkAllRead(ctx context.Context, userPublicID string) error
		DeleteNotification(ctx context.Context, userPublicID string, id int) error
	}

	// Broker publishes notification events for external consumers.
	// A nil Broker is a no-op.
	Broker interface {
		PublishNotification(ctx context.Context, userPublicID string, notif Notification) error
	}

	Service struct {
		repo      Repository
		courseSvc *course.Service
		broker    Broker
		logger    core.Logger
	}
)

func NewService(repo Repository, courseSvc *course.Service, broker Broker, logger core.Logger) *Service {
	return &Service{repo: repo, courseSvc: courseSvc, broker: broker, logger: logger}
}

var _ message.Notifier = (*Service)(nil)

// MessageCreated fans a new course message out as notifications to every
// enrolled student except the author. Fan-out is best-effort: failures
// are logged and never bubble up to the message post.
func (svc *Service) MessageCreated(ctx context.Context, msg message.Message, crs course.Course, author user.User) {
	enrollments, err := svc.courseSvc.QueryEnrollments(ctx, crs.ID)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("notification fan-out: querying enrollments: %v", err), err)
		return
	}

	recipients := make([]string, 0, len(enrollments)+1)
	for _, enr := range enrollments {
		if enr.UserPublicID != author.PublicID {
			recipients = append(recipients, enr.UserPublicID)
		}
	}

	now := time.Now().UTC()
	notifs := make([]Notification, 0, len(recipients))
	for _, pid := range recipients {
		notifs = append(notifs, Notification{
			UserPublicID: pid,
			Title:        fmt.Sprintf("New message in %s", crs.Title),
			Message:      msg.Content,
			Type:         TypeInfo,
			Link:         fmt.Sprintf("/courses/%d/messages", crs.ID),
			CreatedAt:    now,
		})
	}
	if len(notifs) == 0 {
		return
	}

	if err := svc.repo.CreateNotifications(ctx, notifs...); err != nil {
		svc.logger.Error(fmt.Sprintf("notification fan-out: creating notifications: %v", err), err)
		return
	}
	if svc.broker != nil {
		for _, n := range notifs {
			if err := svc.broker.PublishNotification(ctx, n.UserPublicID, n); err != nil {
				svc.logger.Warn(fmt.Sprintf("notification fan-out: publishing: %v", err), err)
			}
		}
	}
}

func (svc *Service) Query(ctx context.Context, userPublicID string, unreadOnly bool, limit int) ([]Notification, int, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	notifs, err := svc.repo.QueryNotifications(ctx, userPublicID, unreadOnly, limit)
	if err != nil {
		return nil, 0, err
	}
	unread, err := svc.repo.CountUnread(ctx, userPublicID)
	if err != nil {
		return nil, 0, errors.Wrap(err, "counting unread")
	}
	return notifs, unread, nil
}

func (svc *Service) MarkRead(ctx context.Context, userPublicID string, id int) error {
	return svc.repo.MarkRead(ctx, userPublicID, id)
}

func (svc *Service) MarkAllRead(ctx context.Context, userPublicID string) error {
	return svc.repo.MarkAllRead(ctx, userPublicID)
}

func (svc *Service) Delete(ctx context.Context, userPublicID string, id int) error {
	return svc.repo.DeleteNotification(ctx, userPublicID, id)
}
