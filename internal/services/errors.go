package services

import (
	"errors"
	"fmt"

	"github.com/ritik-prog/Adaptive-Cognitive-Assessment-in-Middle-School-Children-server-sub000/internal/validator"
)

// ErrorKind is the coarse error taxonomy exposed to callers.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindNotFound
	KindForbidden
	KindConflict
	KindValidation
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindValidation:
		return "validation_error"
	default:
		return "internal"
	}
}

// ServiceError is a sentinel error with a stable code and kind.
type ServiceError struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func (e *ServiceError) Error() string {
	return e.Message
}

func newServiceError(kind ErrorKind, code, message string) *ServiceError {
	return &ServiceError{Kind: kind, Code: code, Message: message}
}

// Session errors
var (
	ErrActiveSessionExists  = newServiceError(KindConflict, "ACTIVE_SESSION_EXISTS", "student already has an active session")
	ErrNoQuestionsAvailable = newServiceError(KindNotFound, "NO_QUESTIONS_AVAILABLE", "no questions available for the requested scope")
	ErrSessionNotFound      = newServiceError(KindNotFound, "SESSION_NOT_FOUND", "session not found")
	ErrSessionAccessDenied  = newServiceError(KindForbidden, "SESSION_ACCESS_DENIED", "access denied to session")
	ErrSessionNotActive     = newServiceError(KindConflict, "SESSION_NOT_ACTIVE", "session is not active")
	ErrNoCurrentQuestion    = newServiceError(KindConflict, "NO_CURRENT_QUESTION", "session has no question awaiting an answer")
	ErrSessionBusy          = newServiceError(KindConflict, "SESSION_BUSY", "session is being updated by another request")
)

// Question and answer errors
var (
	ErrQuestionNotFound    = newServiceError(KindNotFound, "QUESTION_NOT_FOUND", "question not found")
	ErrInvalidAnswerFormat = newServiceError(KindValidation, "INVALID_ANSWER_FORMAT", "invalid answer format")
	ErrMalformedQuestion   = newServiceError(KindInternal, "MALFORMED_QUESTION", "question is missing required fields")
)

// Topic performance errors
var (
	ErrTopicPerformanceNotFound = newServiceError(KindNotFound, "TOPIC_PERFORMANCE_NOT_FOUND", "no performance record for topic")
)

// ValidationErrors is returned when a request fails struct validation.
type ValidationErrors = validator.ValidationErrors

// PermissionError describes a denied action on a resource.
type PermissionError struct {
	UserID     string
	ResourceID uint
	Resource   string
	Action     string
	Reason     string
}

func NewPermissionError(userID string, resourceID uint, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: user %s cannot %s %s %d: %s", e.UserID, e.Action, e.Resource, e.ResourceID, e.Reason)
}

func (e *PermissionError) Unwrap() error {
	return ErrSessionAccessDenied
}

// KindOf classifies any error returned by this package.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindInternal
	}

	var validationErrors ValidationErrors
	if errors.As(err, &validationErrors) {
		return KindValidation
	}

	var permissionError *PermissionError
	if errors.As(err, &permissionError) {
		return KindForbidden
	}

	var serviceError *ServiceError
	if errors.As(err, &serviceError) {
		return serviceError.Kind
	}

	return KindInternal
}
