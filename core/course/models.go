package course

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jifunze/jifunze/core"
)

type Course struct {
	ID          int       `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	EducatorID  int       `json:"-"`
	SchoolID    int       `json:"school_id"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

// Enrollment links a student to a Course. One row per (user, course).
type Enrollment struct {
	ID           int       `json:"id"`
	UserID       int       `json:"-"`
	UserPublicID string    `json:"user_public_id"`
	CourseID     int       `json:"course_id"`
	DateEnrolled time.Time `json:"date_enrolled"` // UTC
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	EducatorID  int    `json:"-"`
	SchoolID    int    `json:"school_id" validate:"required"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	nc.Description = core.CleanString(nc.Description)
	return validate.Struct(nc)
}

type UpdateCourse struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (uc *UpdateCourse) Validate(orig Course, validate *validator.Validate) error {
	if title := core.CleanString(uc.Title); title != "" {
		uc.Title = title
	} else {
		uc.Title = orig.Title
	}
	if desc := core.CleanString(uc.Description); desc != "" {
		uc.Description = desc
	} else {
		uc.Description = orig.Description
	}
	return validate.Struct(uc)
}

// NewEnrollment contains information needed to enroll a student.
type NewEnrollment struct {
	UserPublicID string `json:"user_public_id" validate:"required"`
	CourseID     int    `json:"course_id" validate:"required"`
}

func (ne *NewEnrollment) Validate(validate *validator.Validate) error {
	ne.UserPublicID = core.CleanString(ne.UserPublicID)
	return validate.Struct(ne)
}
