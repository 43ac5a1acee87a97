package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"marketplace/pkg/pagination"

	"github.com/google/uuid"
)

type ReportTargetType string

const (
	ReportTargetConversation ReportTargetType = "conversation"
	ReportTargetMessage      ReportTargetType = "message"
)

type ReportReason string

const (
	ReasonSpam          ReportReason = "spam"
	ReasonFraud         ReportReason = "fraud"
	ReasonAbuse         ReportReason = "abuse"
	ReasonInappropriate ReportReason = "inappropriate"
	ReasonOther         ReportReason = "other"
)

func (r ReportReason) IsValid() bool {
	switch r {
	case ReasonSpam, ReasonFraud, ReasonAbuse, ReasonInappropriate, ReasonOther:
		return true
	}
	return false
}

type ReportStatus string

const (
	ReportOpen      ReportStatus = "open"
	ReportReviewing ReportStatus = "reviewing"
	ReportResolved  ReportStatus = "resolved"
	ReportDismissed ReportStatus = "dismissed"
)

func (s ReportStatus) IsValid() bool {
	switch s {
	case ReportOpen, ReportReviewing, ReportResolved, ReportDismissed:
		return true
	}
	return false
}

// IsTerminal - решение по жалобе принято.
func (s ReportStatus) IsTerminal() bool {
	return s == ReportResolved || s == ReportDismissed
}

// CanTransitionTo: open -> reviewing|resolved|dismissed, reviewing -> resolved|dismissed.
func (s ReportStatus) CanTransitionTo(target ReportStatus) bool {
	switch s {
	case ReportOpen:
		return target == ReportReviewing || target.IsTerminal()
	case ReportReviewing:
		return target.IsTerminal()
	}
	return false
}

const maxReportDetails = 2000

type Report struct {
	ID             uuid.UUID        `json:"id"`
	ReporterID     uuid.UUID        `json:"reporter_id"`
	TargetType     ReportTargetType `json:"target_type"`
	TargetID       uuid.UUID        `json:"target_id"`
	ConversationID uuid.UUID        `json:"conversation_id"`
	Reason         ReportReason     `json:"reason"`
	Details        string           `json:"details"`
	Status         ReportStatus     `json:"status"`
	ResolvedBy     *uuid.UUID       `json:"resolved_by"`
	ResolutionNote string           `json:"resolution_note"`
	ResolvedAt     *time.Time       `json:"resolved_at"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

type ReportPage = pagination.Page[Report]

func (r *Report) CreatedCursor() pagination.Cursor {
	return pagination.TimeCursor(SortCreated, r.CreatedAt, r.ID)
}

// ReportInput - форма жалобы.
type ReportInput struct {
	TargetType ReportTargetType
	TargetID   uuid.UUID
	Reason     ReportReason
	Details    string
}

func (in *ReportInput) Validate() error {
	if in.TargetType != ReportTargetConversation && in.TargetType != ReportTargetMessage {
		return NewValidationError("target_type", "must be conversation or message")
	}
	if in.TargetID == uuid.Nil {
		return NewValidationError("target_id", "is required")
	}
	if !in.Reason.IsValid() {
		return NewValidationError("reason", "must be one of spam fraud abuse inappropriate other")
	}
	in.Details = strings.TrimSpace(in.Details)
	if utf8.RuneCountInString(in.Details) > maxReportDetails {
		return NewValidationError("details", "must be at most 2000 characters")
	}
	return nil
}

// ReportTransition - изменение статуса жалобы модератором.
type ReportTransition struct {
	From       ReportStatus
	To         ReportStatus
	ResolvedBy *uuid.UUID
	Note       string
	ResolvedAt *time.Time
	UpdatedAt  time.Time
}

// ReportDetails - жалоба с контекстом для модератора.
type ReportDetails struct {
	Report       Report        `json:"report"`
	Conversation *Conversation `json:"conversation"`
	Message      *Message      `json:"message,omitempty"`
}
