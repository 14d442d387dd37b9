package task

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by stores when no task has the requested id.
var ErrNotFound = errors.New("task not found")

// ValidationError describes a rejected create or update request.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

func missing(field string) *ValidationError {
	return &ValidationError{Field: field, Reason: "is required"}
}

func invalidStatus(v string) *ValidationError {
	labels := make([]string, len(statuses))
	for i, s := range statuses {
		labels[i] = fmt.Sprintf("%q", s)
	}
	return &ValidationError{
		Field:  "status",
		Reason: fmt.Sprintf("%q is not one of %s", v, strings.Join(labels, ", ")),
	}
}

// IsValidation reports whether err is, or wraps, a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
