package core

import (
	"strings"

	"github.com/pkg/errors"
)

// FieldError pins a rejection to one request field, e.g. a course_id
// pointing at another school's course.
type FieldError struct {
	Field string
	Error string
}

// ValidationError is a business-rule rejection. Enrollment, ownership
// and school-boundary checks in the services surface as one of these,
// with Fields set when the rejection concerns specific inputs.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{Err: err, Fields: flds}
}

func (err ValidationError) Error() string {
	if err.Err != nil {
		return err.Err.Error()
	}
	if len(err.Fields) == 0 {
		return ""
	}
	names := make([]string, 0, len(err.Fields))
	for _, fld := range err.Fields {
		names = append(names, fld.Field)
	}
	return "invalid fields: " + strings.Join(names, ", ")
}

func (err ValidationError) Unwrap() error { return err.Err }

// shutdown marks a failure the API server cannot recover from, such as
// a lost database connection.
type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

// IsShutdown reports whether err, at its cause, asks for a graceful
// server shutdown.
func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
