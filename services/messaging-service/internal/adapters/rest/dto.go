package rest

import (
	"marketplace/services/messaging-service/internal/core/domain"

	"github.com/google/uuid"
)

type startConversationRequest struct {
	ListingID       uuid.UUID `json:"listing_id"        validate:"required"`
	Body            string    `json:"body"              validate:"required"`
	ClientMessageID string    `json:"client_message_id" validate:"omitempty,max=100"`
}

type sendMessageRequest struct {
	Body            string `json:"body"              validate:"required"`
	ClientMessageID string `json:"client_message_id" validate:"omitempty,max=100"`
}

type markReadRequest struct {
	UpToMessageID *uuid.UUID `json:"up_to_message_id"`
}

type markNotificationsReadRequest struct {
	IDs []uuid.UUID `json:"ids" validate:"required,min=1,max=100"`
}

type createReportRequest struct {
	TargetType string    `json:"target_type" validate:"required,oneof=conversation message"`
	TargetID   uuid.UUID `json:"target_id"   validate:"required"`
	Reason     string    `json:"reason"      validate:"required,oneof=spam fraud abuse inappropriate other"`
	Details    string    `json:"details"     validate:"max=2000"`
}

type transitionReportRequest struct {
	Status string `json:"status" validate:"required,oneof=reviewing resolved dismissed"`
	Note   string `json:"note"   validate:"max=2000"`
}

type startConversationResponse struct {
	Conversation *domain.Conversation `json:"conversation"`
	Message      *domain.Message      `json:"message"`
	Duplicate    bool                 `json:"duplicate"`
}

type countResponse struct {
	Count int64 `json:"count"`
}

type updatedResponse struct {
	Updated int64 `json:"updated"`
}
