package attendance

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
	ErrNotFound  = errors.New("attendance record not found")
	ErrDuplicate = errors.New("attendance already recorded for this student, course and date")
)

type (
	Repository interface {
		CreateAttendance(ctx context.Context, att Attendance) (Attendance, error)
		GetAttendanceByID(ctx context.Context, id int) (Attendance, error)
		AttendanceExists(ctx context.Context, userID, courseID int, date time.Time) (bool, error)
		FilterAttendance(ctx context.Context, filter QueryFilter) ([]Attendance, error)
		UpdateAttendance(ctx context.Context, att Attendance) (Attendance, error)
		DeleteAttendanceByID(ctx context.Context, ids ...int) error
	}

	Service struct {
		repo      Repository
		userSvc   *user.Service
		courseSvc *course.Service
	}
)

func NewService(repo Repository, userSvc *user.Service, courseSvc *course.Service) *Service {
	return &Service{repo: repo, userSvc: userSvc, courseSvc: courseSvc}
}

// Record stores one attendance row per (student, course, date). The
// student must be enrolled in the course and share its school.
func (svc *Service) Record(ctx context.Context, verifier user.User, na NewAttendance) (Attendance, error) {
	usr, err := svc.userSvc.GetByPublicID(ctx, na.UserPublicID)
	if err != nil {
		return Attendance{}, err
	}
	crs, err := svc.courseSvc.GetByID(ctx, na.CourseID)
	if err != nil {
		return Attendance{}, err
	}
	if usr.SchoolID != crs.SchoolID {
		return Attendance{}, core.NewValidationError(course.ErrSchoolMismatch)
	}
	enrolled, err := svc.courseSvc.IsEnrolled(ctx, usr.ID, crs.ID)
	if err != nil {
		return Attendance{}, errors.Wrap(err, "checking enrollment")
	}
	if !enrolled {
		return Attendance{}, core.NewValidationError(course.ErrNotEnrolled)
	}

	day := na.Date.UTC().Truncate(24 * time.Hour)
	exists, err := svc.repo.AttendanceExists(ctx, usr.ID, crs.ID, day)
	if err != nil {
		return Attendance{}, errors.Wrap(err, "checking attendance")
	}
	if exists {
		return Attendance{}, core.NewValidationError(ErrDuplicate)
	}

	now := time.Now().UTC()
	att := Attendance{
		UserID:       usr.ID,
		UserPublicID: usr.PublicID,
		CourseID:     crs.ID,
		Date:         day,
		Status:       na.Status,
		VerifiedBy:   &verifier.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return svc.repo.CreateAttendance(ctx, att)
}

func (svc *Service) GetByID(ctx context.Context, id int) (Attendance, error) {
	return svc.repo.GetAttendanceByID(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter) ([]Attendance, error) {
	if filter == nil {
		filter = new(QueryFilter)
	}
	filter.Clean()
	return svc.repo.FilterAttendance(ctx, *filter)
}

func (svc *Service) UpdateStatus(ctx context.Context, verifier user.User, id int, status string) (Attendance, error) {
	att, err := svc.repo.GetAttendanceByID(ctx, id)
	if err != nil {
		return Attendance{}, err
	}
	att.Status = core.CleanString(status, true /* lower */)
	att.VerifiedBy = &verifier.ID
	att.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateAttendance(ctx, att)
}

func (svc *Service) Delete(ctx context.Context, ids ...int) error {
	return svc.repo.DeleteAttendanceByID(ctx, ids...)
}
