package usecases_port

import (
	"context"

	"marketplace/services/messaging-service/internal/core/domain"

	"github.com/google/uuid"
)

type CreateReportUseCasePort interface {
	Execute(ctx context.Context, reporter domain.Actor, input domain.ReportInput) (*domain.Report, error)
}

type ListReportsUseCasePort interface {
	Execute(ctx context.Context, admin domain.Actor, status domain.ReportStatus, cursor string, limit int) (*domain.ReportPage, error)
}

type ListMyReportsUseCasePort interface {
	Execute(ctx context.Context, reporter domain.Actor, cursor string, limit int) (*domain.ReportPage, error)
}

type GetReportUseCasePort interface {
	Execute(ctx context.Context, admin domain.Actor, id uuid.UUID) (*domain.ReportDetails, error)
}

type TransitionReportUseCasePort interface {
	Execute(ctx context.Context, admin domain.Actor, id uuid.UUID, target domain.ReportStatus, note string) (*domain.Report, error)
}
