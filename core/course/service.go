package course

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/jifunze/jifunze/core"
	"github.com/jifunze/jifunze/core/user"
)

var (
	// errors
	ErrNotFound        = errors.New("course not found")
	ErrAlreadyEnrolled = errors.New("student is already enrolled in this course")
	ErrNotEnrolled     = errors.New("you are not enrolled in this course")
	ErrSchoolMismatch  = errors.New("student and course belong to different schools")
	ErrNotAStudent     = errors.New("only students can be enrolled")
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, crs Course) (Course, error)
		GetCourseByID(ctx context.Context, id int) (Course, error)
		QueryCoursesBySchool(ctx context.Context, schoolID int) ([]Course, error)
		QueryCoursesByEducator(ctx context.Context, educatorID int) ([]Course, error)
		QueryCoursesByStudent(ctx context.Context, userID int) ([]Course, error)
		UpdateCourse(ctx context.Context, crs Course) (Course, error)
		DeleteCoursesByID(ctx context.Context, ids ...int) error

		CreateEnrollment(ctx context.Context, enr Enrollment) (Enrollment, error)
		QueryEnrollmentsByCourse(ctx context.Context, courseID int) ([]Enrollment, error)
		QueryEnrollmentsByUser(ctx context.Context, userID int) ([]Enrollment, error)
		EnrollmentExists(ctx context.Context, userID, courseID int) (bool, error)
		DeleteEnrollment(ctx context.Context, userID, courseID int) error
	}

	Service struct {
		repo    Repository
		userSvc *user.Service
	}
)

func NewService(repo Repository, userSvc *user.Service) *Service {
	return &Service{repo: repo, userSvc: userSvc}
}

func (svc *Service) Create(ctx context.Context, nc NewCourse) (Course, error) {
	now := time.Now().UTC()
	crs := Course{
		Title:       nc.Title,
		Description: nc.Description,
		EducatorID:  nc.EducatorID,
		SchoolID:    nc.SchoolID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateCourse(ctx, crs)
}

func (svc *Service) GetByID(ctx context.Context, id int) (Course, error) {
	return svc.repo.GetCourseByID(ctx, id)
}

func (svc *Service) QueryBySchool(ctx context.Context, schoolID int) ([]Course, error) {
	return svc.repo.QueryCoursesBySchool(ctx, schoolID)
}

func (svc *Service) QueryByEducator(ctx context.Context, educatorID int) ([]Course, error) {
	return svc.repo.QueryCoursesByEducator(ctx, educatorID)
}

// QueryForUser returns the courses visible to a user: enrolled courses
// for students, owned courses for educators, the whole school for managers.
func (svc *Service) QueryForUser(ctx context.Context, usr user.User) ([]Course, error) {
	switch {
	case usr.IsStudent():
		return svc.repo.QueryCoursesByStudent(ctx, usr.ID)
	case usr.IsEducator():
		return svc.repo.QueryCoursesByEducator(ctx, usr.ID)
	default:
		return svc.repo.QueryCoursesBySchool(ctx, usr.SchoolID)
	}
}

func (svc *Service) Update(ctx context.Context, id int, uc UpdateCourse) (Course, error) {
	crs := Course{
		ID:          id,
		Title:       uc.Title,
		Description: uc.Description,
		UpdatedAt:   time.Now().UTC(),
	}
	return svc.repo.UpdateCourse(ctx, crs)
}

func (svc *Service) Delete(ctx context.Context, ids ...int) error {
	return svc.repo.DeleteCoursesByID(ctx, ids...)
}

// Enroll registers a student into a course. The student and the course
// must belong to the same school; a second enrollment is rejected.
func (svc *Service) Enroll(ctx context.Context, ne NewEnrollment) (Enrollment, error) {
	usr, err := svc.userSvc.GetByPublicID(ctx, ne.UserPublicID)
	if err != nil {
		return Enrollment{}, err
	}
	if !usr.IsStudent() {
		return Enrollment{}, core.NewValidationError(ErrNotAStudent)
	}

	crs, err := svc.repo.GetCourseByID(ctx, ne.CourseID)
	if err != nil {
		return Enrollment{}, err
	}
	if usr.SchoolID != crs.SchoolID {
		return Enrollment{}, core.NewValidationError(ErrSchoolMismatch)
	}

	exists, err := svc.repo.EnrollmentExists(ctx, usr.ID, crs.ID)
	if err != nil {
		return Enrollment{}, errors.Wrap(err, "checking enrollment")
	}
	if exists {
		return Enrollment{}, core.NewValidationError(ErrAlreadyEnrolled)
	}

	enr := Enrollment{
		UserID:       usr.ID,
		UserPublicID: usr.PublicID,
		CourseID:     crs.ID,
		DateEnrolled: time.Now().UTC(),
	}
	return svc.repo.CreateEnrollment(ctx, enr)
}

func (svc *Service) Unenroll(ctx context.Context, userPublicID string, courseID int) error {
	usr, err := svc.userSvc.GetByPublicID(ctx, userPublicID)
	if err != nil {
		return err
	}
	return svc.repo.DeleteEnrollment(ctx, usr.ID, courseID)
}

func (svc *Service) IsEnrolled(ctx context.Context, userID, courseID int) (bool, error) {
	return svc.repo.EnrollmentExists(ctx, userID, courseID)
}

func (svc *Service) QueryEnrollments(ctx context.Context, courseID int) ([]Enrollment, error) {
	return svc.repo.QueryEnrollmentsByCourse(ctx, courseID)
}

func (svc *Service) QueryEnrollmentsByUser(ctx context.Context, userID int) ([]Enrollment, error) {
	return svc.repo.QueryEnrollmentsByUser(ctx, userID)
}
