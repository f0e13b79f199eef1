package domain

import (
	"errors"
	"strings"
)

// Error kinds surfaced to callers. Every *Error unwraps to one of these so
// transports can map them with errors.Is.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrConflict   = errors.New("conflict")
)

// Error is a classified failure with a stable code and a user facing message.
type Error struct {
	Kind    error
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

// Unwrap exposes the error kind.
func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Workflow conflicts.
var (
	ErrOpeningClosed     = newError(ErrConflict, "OPENING_CLOSED", "This opening is closed")
	ErrSlotsExhausted    = newError(ErrConflict, "SLOTS_EXHAUSTED", "No more slots available")
	ErrSelfApplication   = newError(ErrConflict, "SELF_APPLICATION", "You cannot apply to your own opening")
	ErrDuplicate         = newError(ErrConflict, "DUPLICATE_APPLICATION", "You have already applied to this opening")
	ErrAlreadyProcessed  = newError(ErrConflict, "ALREADY_PROCESSED", "Application has already been processed")
	ErrCapacityViolation = newError(ErrConflict, "CAPACITY_VIOLATION", "Team is already at capacity")
)

// Missing entities.
var (
	ErrUserNotFound         = newError(ErrNotFound, "USER_NOT_FOUND", "User not found")
	ErrOpeningNotFound      = newError(ErrNotFound, "OPENING_NOT_FOUND", "Opening not found")
	ErrApplicationNotFound  = newError(ErrNotFound, "APPLICATION_NOT_FOUND", "Application not found")
	ErrTeamNotFound         = newError(ErrNotFound, "TEAM_NOT_FOUND", "Team not found")
	ErrNotificationNotFound = newError(ErrNotFound, "NOTIFICATION_NOT_FOUND", "Notification not found")
)

// Authorization failures.
var (
	ErrNotOpeningOwner = newError(ErrForbidden, "NOT_OPENING_OWNER", "Not authorized to manage this opening")
	ErrNotTeamMember   = newError(ErrForbidden, "NOT_TEAM_MEMBER", "Not authorized to access this team")
	ErrNotInRoom       = newError(ErrForbidden, "NOT_IN_ROOM", "Not authorized to send messages")
	ErrNotRecipient    = newError(ErrForbidden, "NOT_RECIPIENT", "Not authorized to access this notification")
)

// FieldError describes a single invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects field level input problems.
type ValidationError struct {
	Fields []FieldError
}

// Add appends a field problem.
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// OrNil returns nil when no field problems were recorded.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+" "+f.Message)
	}
	return strings.Join(parts, "; ")
}

// Is reports ErrValidation so callers can match the kind.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Invalid builds a single-field validation error.
func Invalid(field, message string) error {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

// PublicMessage returns the text safe to show a client for err. Unclassified
// errors collapse to a generic message.
func PublicMessage(err error) string {
	var derr *Error
	if errors.As(err, &derr) {
		return derr.Message
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Error()
	}
	return "Internal server error"
}
