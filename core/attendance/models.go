package attendance

import (
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/jifunze/jifunze/core"
)

// Statuses
const (
	StatusPresent = "present"
	StatusAbsent  = "absent"
	StatusLate    = "late"
)

var AllStatuses = []string{StatusPresent, StatusAbsent, StatusLate}

type Attendance struct {
	ID           int       `json:"id"`
	UserID       int       `json:"-"`
	UserPublicID string    `json:"user_public_id"`
	CourseID     int       `json:"course_id"`
	Date         time.Time `json:"date"`
	Status       string    `json:"status"`
	VerifiedBy   *int      `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
}

// NewAttendance contains information needed to record attendance.
type NewAttendance struct {
	UserPublicID string    `json:"user_public_id" validate:"required"`
	CourseID     int       `json:"course_id" validate:"required"`
	Date         time.Time `json:"date" validate:"required"`
	Status       string    `json:"status" validate:"required,attstatus"`
}

func (na *NewAttendance) Validate(validate *validator.Validate) error {
	na.UserPublicID = core.CleanString(na.UserPublicID)
	na.Status = core.CleanString(na.Status, true /* lower */)
	return validate.Struct(na)
}

type QueryFilter struct {
	CourseID     int       `query:"course_id"`
	UserPublicID string    `query:"user_public_id"`
	DateFrom     time.Time `query:"date_from"`
	DateTo       time.Time `query:"date_to"`
}

func (qf *QueryFilter) Clean() {
	qf.UserPublicID = core.CleanString(qf.UserPublicID)
}

var (
	statusTag  = "attstatus"
	statusText = "status must be one of: present, absent, late"
)

// InitValidators registers this package's custom validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(statusTag, func(fl validator.FieldLevel) bool {
		val := fl.Field().String()
		for _, s := range AllStatuses {
			if s == val {
				return true
			}
		}
		return false
	})
	core.RegisterCustomTranslation(validate, translator, statusTag, statusText)
}
