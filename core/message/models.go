package message

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jifunze/jifunze/core"
)

type Message struct {
	ID           int       `json:"id"`
	CourseID     int       `json:"course_id"`
	UserID       int       `json:"-"`
	UserPublicID string    `json:"user_public_id"`
	UserName     string    `json:"user_name,omitempty"`
	ParentID     *int      `json:"parent_id,omitempty"`
	Content      string    `json:"content"`
	Timestamp    time.Time `json:"timestamp"` // UTC
}

// NewMessage contains information needed to post a Message.
type NewMessage struct {
	CourseID int    `json:"course_id" validate:"required"`
	ParentID *int   `json:"parent_id"`
	Content  string `json:"content" validate:"required,min=2"`
}

func (nm *NewMessage) Validate(validate *validator.Validate) error {
	nm.Content = core.CleanString(nm.Content)
	return validate.Struct(nm)
}

type QueryFilter struct {
	CourseID     int    `query:"course_id"`
	UserPublicID string `query:"user_public_id"`

	core.Pagination
}

func (qf *QueryFilter) Clean() {
	qf.UserPublicID = core.CleanString(qf.UserPublicID)
	qf.Pagination.Clean()
}
