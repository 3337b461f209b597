package resource

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/jifunze/jifunze/core"
	"github.com/jifunze/jifunze/core/course"
	"github.com/jifunze/jifunze/core/user"
)

var (
	ErrNotFound    = errors.New("resource not found")
	ErrNotUploader = errors.New("you can only manage your own resources")
)

type (
	Repository interface {
		CreateResource(ctx context.Context, res Resource) (Resource, error)
		GetResourceByID(ctx context.Context, id int) (Resource, error)
		QueryResourcesByCourse(ctx context.Context, courseID int) ([]Resource, error)
		UpdateResource(ctx context.Context, res Resource) (Resource, error)
		DeleteResourcesByID(ctx context.Context, ids ...int) error
	}

	Service struct {
		repo      Repository
		courseSvc *course.Service
	}
)

func NewService(repo Repository, courseSvc *course.Service) *Service {
	return &Service{repo: repo, courseSvc: courseSvc}
}

// Share uploads a resource to a course. Educators may only share into
// their own courses; managers anywhere in their school.
func (svc *Service) Share(ctx context.Context, uploader user.User, nr NewResource) (Resource, error) {
	crs, err := svc.courseSvc.GetByID(ctx, nr.CourseID)
	if err != nil {
		return Resource{}, err
	}
	if uploader.SchoolID != crs.SchoolID {
		return Resource{}, core.NewValidationError(course.ErrSchoolMismatch)
	}
	if uploader.IsEducator() && crs.EducatorID != uploader.ID {
		return Resource{}, core.NewValidationError(errors.New("you can only share resources in your own courses"))
	}

	now := time.Now().UTC()
	res := Resource{
		CourseID:   crs.ID,
		UploadedBy: uploader.ID,
		Title:      nr.Title,
		URL:        nr.URL,
		Type:       nr.Type,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return svc.repo.CreateResource(ctx, res)
}

func (svc *Service) GetByID(ctx context.Context, id int) (Resource, error) {
	return svc.repo.GetResourceByID(ctx, id)
}

func (svc *Service) QueryByCourse(ctx context.Context, courseID int) ([]Resource, error) {
	return svc.repo.QueryResourcesByCourse(ctx, courseID)
}

func (svc *Service) Update(ctx context.Context, actor user.User, id int, ur UpdateResource) (Resource, error) {
	res, err := svc.repo.GetResourceByID(ctx, id)
	if err != nil {
		return Resource{}, err
	}
	if !actor.IsManager() && res.UploadedBy != actor.ID {
		return Resource{}, core.NewValidationError(ErrNotUploader)
	}
	res.Title = ur.Title
	res.URL = ur.URL
	res.Type = ur.Type
	res.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateResource(ctx, res)
}

func (svc *Service) Delete(ctx context.Context, actor user.User, id int) error {
	res, err := svc.repo.GetResourceByID(ctx, id)
	if err != nil {
		return err
	}
	if !actor.IsManager() && res.UploadedBy != actor.ID {
		return core.NewValidationError(ErrNotUploader)
	}
	return svc.repo.DeleteResourcesByID(ctx, res.ID)
}
