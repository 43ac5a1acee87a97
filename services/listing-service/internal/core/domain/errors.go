package domain

import (
	"errors"
	"fmt"
)

var (
	ErrListingNotFound     = errors.New("listing not found")
	ErrInquiryNotFound     = errors.New("inquiry not found")
	ErrForbidden           = errors.New("forbidden")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrListingReadOnly     = errors.New("archived listing is read-only")
	ErrListingNotPublished = errors.New("listing is not published")
	ErrOwnListing          = errors.New("cannot perform this action on own listing")
	ErrTooManyImages       = errors.New("too many images")
	ErrImageNotFound       = errors.New("image not found on listing")
	ErrImportFailed        = errors.New("failed to import listing page")
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

// NewValidationError - короткий конструктор.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
