package application

import (
	"errors"
	"fmt"

	"github.com/example/lecture-room-booking/internal/scheduler"
)

var (
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when a unique attribute is already taken.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrConflict is returned when a booking collides with existing records.
	ErrConflict = errors.New("application: booking conflict")
	// ErrInUse is returned when a delete is blocked by dependent records.
	ErrInUse = errors.New("application: resource in use")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error. The first message per field wins.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	if _, exists := v.FieldErrors[field]; exists {
		return
	}
	v.FieldErrors[field] = message
}

// merge copies entries from another validation error into the receiver.
func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.add(field, msg)
	}
}

// ConflictError lists every conflict found for a rejected booking. The
// first entry is the one to surface to a user.
type ConflictError struct {
	Conflicts []scheduler.Conflict
}

func (e *ConflictError) Error() string {
	if e == nil || len(e.Conflicts) == 0 {
		return ErrConflict.Error()
	}
	if len(e.Conflicts) == 1 {
		return fmt.Sprintf("%s: %s", ErrConflict, e.Conflicts[0].Reason)
	}
	return fmt.Sprintf("%s: %s (and %d more)", ErrConflict, e.Conflicts[0].Reason, len(e.Conflicts)-1)
}

func (e *ConflictError) Unwrap() error {
	return ErrConflict
}

// shapeValidation converts a scheduler shape rejection into a ValidationError.
// Other errors are returned unchanged.
func shapeValidation(err error) error {
	var shapeErr *scheduler.ShapeError
	if errors.As(err, &shapeErr) {
		vErr := &ValidationError{}
		vErr.add(shapeErr.Field, shapeErr.Message)
		return vErr
	}
	return err
}
