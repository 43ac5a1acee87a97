package domain

import (
	"errors"
	"fmt"
)

var (
	ErrConversationNotFound    = errors.New("conversation not found")
	ErrMessageNotFound         = errors.New("message not found")
	ErrReportNotFound          = errors.New("report not found")
	ErrListingNotFound         = errors.New("listing not found")
	ErrListingNotAvailable     = errors.New("listing is not published")
	ErrSelfConversation        = errors.New("cannot start a conversation on own listing")
	ErrNotParticipant          = errors.New("user is not a participant of the conversation")
	ErrConversationClosed      = errors.New("conversation is closed")
	ErrRateLimited             = errors.New("too many messages, slow down")
	ErrForbidden               = errors.New("forbidden")
	ErrDuplicateReport         = errors.New("an open report for this target already exists")
	ErrInvalidReportTransition = errors.New("invalid report status transition")
)

// ValidationError - входные данные не прошли проверку.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
