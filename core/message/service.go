package message

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/jifunze/jifunze/core"
	"github.com/jifunze/jifunze/core/course"
	"github.com/jifunze/jifunze/core/user"
)

var (
	// errors
	ErrNotFound      = errors.New("message not found")
	ErrNotOwnCourse  = errors.New("you can only post in your own courses")
	ErrNotPostOwner  = errors.New("you can only edit your own messages")
	ErrSchoolMismatch = errors.New("course belongs to a different school")
)

type (
	Repository interface {
		CreateMessage(ctx context.Context, msg Message) (Message, error)
		GetMessageByID(ctx context.Context, id int) (Message, error)
		// FilterMessages returns a page of messages ordered by timestamp plus
		// the total row count for the filter.
		FilterMessages(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Message, int, error)
		UpdateMessage(ctx context.Context, msg Message) (Message, error)
		DeleteMessagesByID(ctx context.Context, ids ...int) error
	}

	// Notifier is told about accepted messages so it can fan out
	// notifications; a nil Notifier disables fan-out.
	Notifier interface {
		MessageCreated(ctx context.Context, msg Message, crs course.Course, author user.User)
	}

	Service struct {
		repo      Repository
		courseSvc *course.Service
		notifier  Notifier
	}
)

func NewService(repo Repository, courseSvc *course.Service, notifier Notifier) *Service {
	return &Service{repo: repo, courseSvc: courseSvc, notifier: notifier}
}

// Create posts a message after enforcing the posting rules: a student must
// be enrolled, an educator must own the course and everyone must be in the
// course's school.
func (svc *Service) Create(ctx context.Context, author user.User, nm NewMessage) (Message, error) {
	crs, err := svc.courseSvc.GetByID(ctx, nm.CourseID)
	if err != nil {
		return Message{}, err
	}

	if author.SchoolID != crs.SchoolID {
		return Message{}, core.NewValidationError(ErrSchoolMismatch)
	}
	switch {
	case author.IsEducator():
		if crs.EducatorID != author.ID {
			return Message{}, core.NewValidationError(ErrNotOwnCourse)
		}
	case author.IsStudent():
		enrolled, err := svc.courseSvc.IsEnrolled(ctx, author.ID, crs.ID)
		if err != nil {
			return Message{}, errors.Wrap(err, "checking enrollment")
		}
		if !enrolled {
			return Message{}, course.ErrNotEnrolled
		}
	}

	msg := Message{
		CourseID:     crs.ID,
		UserID:       author.ID,
		UserPublicID: author.PublicID,
		UserName:     author.Name,
		ParentID:     nm.ParentID,
		Content:      nm.Content,
		Timestamp:    time.Now().UTC(),
	}
	msg, err = svc.repo.CreateMessage(ctx, msg)
	if err != nil {
		return Message{}, err
	}

	if svc.notifier != nil {
		svc.notifier.MessageCreated(ctx, msg, crs, author)
	}
	return msg, nil
}

func (svc *Service) GetByID(ctx context.Context, id int) (Message, error) {
	return svc.repo.GetMessageByID(ctx, id)
}

// Query returns a page of messages in ascending timestamp order together
// with paging metadata.
func (svc *Service) Query(ctx context.Context, filter *QueryFilter) ([]Message, core.PageMeta, error) {
	if filter == nil {
		filter = new(QueryFilter)
	}
	filter.Clean()

	ordering := []core.DBOrdering{{Field: "timestamp", Ascending: true}}
	msgs, total, err := svc.repo.FilterMessages(ctx, *filter, ordering)
	if err != nil {
		return nil, core.PageMeta{}, err
	}
	return msgs, core.NewPageMeta(filter.Pagination, total), nil
}

// Update replaces a message's content. Managers may edit any message in
// their school; everyone else only their own.
func (svc *Service) Update(ctx context.Context, actor user.User, id int, content string) (Message, error) {
	msg, err := svc.repo.GetMessageByID(ctx, id)
	if err != nil {
		return Message{}, err
	}
	if !actor.IsManager() && msg.UserID != actor.ID {
		return Message{}, core.NewValidationError(ErrNotPostOwner)
	}
	msg.Content = core.CleanString(content)
	return svc.repo.UpdateMessage(ctx, msg)
}

func (svc *Service) Delete(ctx context.Context, actor user.User, id int) error {
	msg, err := svc.repo.GetMessageByID(ctx, id)
	if err != nil {
		return err
	}
	if !actor.IsManager() && msg.UserID != actor.ID {
		return core.NewValidationError(ErrNotPostOwner)
	}
	return svc.repo.DeleteMessagesByID(ctx, msg.ID)
}
