package resource

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jifunze/jifunze/core"
)

type Resource struct {
	ID         int       `json:"id"`
	CourseID   int       `json:"course_id"`
	UploadedBy int       `json:"-"`
	Title      string    `json:"title"`
	URL        string    `json:"url"`
	Type       string    `json:"type"` // pdf, video, doc, link...
	CreatedAt  time.Time `json:"created_at"` // UTC
	UpdatedAt  time.Time `json:"updated_at"` // UTC
}

// NewResource contains information needed to share a Resource.
type NewResource struct {
	CourseID int    `json:"course_id" validate:"required"`
	Title    string `json:"title" validate:"required"`
	URL      string `json:"url" validate:"required,url"`
	Type     string `json:"type" validate:"required"`
}

func (nr *NewResource) Validate(validate *validator.Validate) error {
	nr.Title = core.CleanString(nr.Title)
	nr.URL = core.CleanString(nr.URL)
	nr.Type = core.CleanString(nr.Type, true /* lower */)
	return validate.Struct(nr)
}

type UpdateResource struct {
	Title string `json:"title"`
	URL   string `json:"url" validate:"omitempty,url"`
	Type  string `json:"type"`
}

func (ur *UpdateResource) Validate(orig Resource, validate *validator.Validate) error {
	if title := core.CleanString(ur.Title); title != "" {
		ur.Title = title
	} else {
		ur.Title = orig.Title
	}
	if u := core.CleanString(ur.URL); u != "" {
		ur.URL = u
	} else {
		ur.URL = orig.URL
	}
	if typ := core.CleanString(ur.Type, true /* lower */); typ != "" {
		ur.Type = typ
	} else {
		ur.Type = orig.Type
	}
	return validate.Struct(ur)
}
