// Package errs holds the error classification shared by the domain packages.
// Each domain error carries a Kind and a message that is safe to show users.
package errs

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindStateConflict
	KindQuota
	KindPermission
	KindNotFound
	KindPremium
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindStateConflict:
		return "state_conflict"
	case KindQuota:
		return "quota"
	case KindPermission:
		return "permission"
	case KindNotFound:
		return "not_found"
	case KindPremium:
		return "premium"
	default:
		return "internal"
	}
}

// Classified is implemented by every error that should reach users verbatim.
type Classified interface {
	error
	Kind() Kind
	UserMessage() string
}

// KindOf returns the Kind of the first Classified error in err's chain.
func KindOf(err error) Kind {
	var c Classified
	if errors.As(err, &c) {
		return c.Kind()
	}
	return KindInternal
}

// ValidationError reports malformed input.
type ValidationError struct {
	Field  string
	Reason string
}

func Validation(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Kind() Kind { return KindValidation }

func (e *ValidationError) UserMessage() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("Invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError reports a missing resource.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

func (e *NotFoundError) Kind() Kind { return KindNotFound }

func (e *NotFoundError) UserMessage() string {
	return fmt.Sprintf("That %s could not be found.", e.Resource)
}

// IsNotFound reports whether err is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
