package usecases_port

import (
	"context"

	"marketplace/services/listing-service/internal/core/domain"

	"github.com/google/uuid"
)

type CreateInquiryUseCasePort interface {
	Execute(ctx context.Context, buyer domain.Actor, listingID uuid.UUID, input domain.InquiryInput) (*domain.Inquiry, error)
}

// ListInquiriesUseCasePort - входящие (продавец) или отправленные (покупатель).
type ListInquiriesUseCasePort interface {
	Execute(ctx context.Context, actor domain.Actor, cursor string, limit int) (*domain.InquiryPage, error)
}

type MarkInquiryReadUseCasePort interface {
	Execute(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Inquiry, error)
}
