package scheduling

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound                = errors.New("not found")
	ErrUnavailableDoctor       = errors.New("doctor is not accepting appointments")
	ErrSlotUnavailable         = errors.New("time slot is not available")
	ErrInvalidConsultationType = errors.New("doctor does not offer this consultation type")
	ErrInvalidState            = errors.New("appointment cannot change from its current status")
	ErrProfileRequired         = errors.New("a matching profile is required")
	ErrForbidden               = errors.New("not allowed to act on this appointment")
	ErrValidation              = errors.New("validation failed")
)

// ValidationError reports a rejected input field. It matches ErrValidation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func notFound(what string, id int64) error {
	return fmt.Errorf("%s %d: %w", what, id, ErrNotFound)
}
