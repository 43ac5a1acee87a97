package usecase

import (
	"context"
	"time"

	"marketplace/pkg/contextkeys"
	"marketplace/pkg/pagination"
	"marketplace/services/messaging-service/internal/core/domain"
	"marketplace/services/messaging-service/internal/core/port"

	"github.com/google/uuid"
)

type CreateReportUseCase struct {
	reports       port.ReportRepositoryPort
	conversations port.ConversationRepositoryPort
	messages      port.MessageRepositoryPort
	now           func() time.Time
}

func NewCreateReportUseCase(reports port.ReportRepositoryPort, conversations port.ConversationRepositoryPort, messages port.MessageRepositoryPort) *CreateReportUseCase {
	return &CreateReportUseCase{reports: reports, conversations: conversations, messages: messages, now: time.Now}
}

// Execute создает жалобу на переписку или сообщение. Жаловаться может только участник.
func (uc *CreateReportUseCase) Execute(ctx context.Context, reporter domain.Actor, input domain.ReportInput) (*domain.Report, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"use_case":    "CreateReport",
		"user_id":     reporter.UserID,
		"target_type": input.TargetType,
		"target_id":   input.TargetID,
	})
	logger.Info("Use case started", nil)

	if err := input.Validate(); err != nil {
		return nil, err
	}

	conversationID := input.TargetID
	if input.TargetType == domain.ReportTargetMessage {
		msg, err := uc.messages.GetByID(ctx, input.TargetID)
		if err != nil {
			return nil, err
		}
		if msg.IsFrom(reporter.UserID) {
			return nil, domain.NewValidationError("target_id", "cannot report own message")
		}
		conversationID = msg.ConversationID
	}

	conv, err := uc.conversations.GetByID(ctx, conversationID, reporter.UserID)
	if err != nil {
		return nil, err
	}
	if !conv.IsParticipant(reporter.UserID) {
		if input.TargetType == domain.ReportTargetMessage {
			return nil, domain.ErrMessageNotFound
		}
		return nil, domain.ErrConversationNotFound
	}

	now := domain.MessageTime(uc.now())
	report := &domain.Report{
		ID:             uuid.New(),
		ReporterID:     reporter.UserID,
		TargetType:     input.TargetType,
		TargetID:       input.TargetID,
		ConversationID: conv.ID,
		Reason:         input.Reason,
		Details:        input.Details,
		Status:         domain.ReportOpen,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := uc.reports.Create(ctx, report); err != nil {
		logger.Error("Repository returned an error", err, nil)
		return nil, err
	}

	logger.Info("Use case finished successfully", port.Fields{"report_id": report.ID})
	return report, nil
}

type ListReportsUseCase struct {
	repo port.ReportRepositoryPort
}

func NewListReportsUseCase(repo port.ReportRepositoryPort) *ListReportsUseCase {
	return &ListReportsUseCase{repo: repo}
}

// Execute - очередь модерации. Пустой статус - все жалобы.
func (uc *ListReportsUseCase) Execute(ctx context.Context, admin domain.Actor, status domain.ReportStatus, cursor string, limit int) (*domain.ReportPage, error) {
	if err := requireAdmin(admin); err != nil {
		return nil, err
	}
	if status != "" && !status.IsValid() {
		return nil, domain.NewValidationError("status", "unknown report status")
	}
	c, err := pagination.DecodeFor(cursor, domain.SortCreated)
	if err != nil {
		return nil, err
	}
	return uc.repo.List(ctx, status, c, pageLimit(limit))
}

type ListMyReportsUseCase struct {
	repo port.ReportRepositoryPort
}

func NewListMyReportsUseCase(repo port.ReportRepositoryPort) *ListMyReportsUseCase {
	return &ListMyReportsUseCase{repo: repo}
}

func (uc *ListMyReportsUseCase) Execute(ctx context.Context, reporter domain.Actor, cursor string, limit int) (*domain.ReportPage, error) {
	c, err := pagination.DecodeFor(cursor, domain.SortCreated)
	if err != nil {
		return nil, err
	}
	return uc.repo.ListByReporter(ctx, reporter.UserID, c, pageLimit(limit))
}

type GetReportUseCase struct {
	reports       port.ReportRepositoryPort
	conversations port.ConversationRepositoryPort
	messages      port.MessageRepositoryPort
}

func NewGetReportUseCase(reports port.ReportRepositoryPort, conversations port.ConversationRepositoryPort, messages port.MessageRepositoryPort) *GetReportUseCase {
	return &GetReportUseCase{reports: reports, conversations: conversations, messages: messages}
}

// Execute - жалоба вместе с перепиской и сообщением, на которое пожаловались.
func (uc *GetReportUseCase) Execute(ctx context.Context, admin domain.Actor, id uuid.UUID) (*domain.ReportDetails, error) {
	if err := requireAdmin(admin); err != nil {
		return nil, err
	}
	report, err := uc.reports.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	details := &domain.ReportDetails{Report: *report}
	details.Conversation, err = uc.conversations.GetByID(ctx, report.ConversationID, admin.UserID)
	if err != nil {
		return nil, err
	}
	if report.TargetType == domain.ReportTargetMessage {
		details.Message, err = uc.messages.GetByID(ctx, report.TargetID)
		if err != nil {
			return nil, err
		}
	}
	return details, nil
}

type TransitionReportUseCase struct {
	repo     port.ReportRepositoryPort
	notifier *Notifier
	now      func() time.Time
}

func NewTransitionReportUseCase(repo port.ReportRepositoryPort, notifier *Notifier) *TransitionReportUseCase {
	return &TransitionReportUseCase{repo: repo, notifier: notifier, now: time.Now}
}

// Execute меняет статус жалобы. При окончательном решении автор жалобы получает уведомление.
func (uc *TransitionReportUseCase) Execute(ctx context.Context, admin domain.Actor, id uuid.UUID, target domain.ReportStatus, note string) (*domain.Report, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"use_case":  "TransitionReport",
		"admin_id":  admin.UserID,
		"report_id": id,
		"target":    target,
	})
	logger.Info("Use case started", nil)

	if err := requireAdmin(admin); err != nil {
		return nil, err
	}
	if !target.IsValid() {
		return nil, domain.NewValidationError("status", "unknown report status")
	}
	note, err := normalizeNote(note)
	if err != nil {
		return nil, err
	}

	report, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !report.Status.CanTransitionTo(target) {
		return nil, domain.ErrInvalidReportTransition
	}

	now := domain.MessageTime(uc.now())
	tr := domain.ReportTransition{From: report.Status, To: target, Note: note, UpdatedAt: now}
	if target.IsTerminal() {
		resolver := admin.UserID
		tr.ResolvedBy = &resolver
		tr.ResolvedAt = &now
	}
	if err := uc.repo.UpdateStatus(ctx, report.ID, tr); err != nil {
		logger.Error("Repository returned an error", err, nil)
		return nil, err
	}

	report.Status = target
	report.UpdatedAt = now
	report.ResolvedBy = tr.ResolvedBy
	report.ResolvedAt = tr.ResolvedAt
	if note != "" {
		report.ResolutionNote = note
	}

	if target.IsTerminal() {
		err := uc.notifier.Notify(ctx, &domain.Notification{
			UserID: report.ReporterID,
			Type:   domain.NotificationReportUpdated,
			Title:  "Your report was reviewed",
			Body:   "Status: " + string(target),
			Data: map[string]interface{}{
				"report_id":       report.ID.String(),
				"status":          string(target),
				"conversation_id": report.ConversationID.String(),
			},
		})
		if err != nil {
			logger.Error("Failed to notify reporter", err, nil)
		}
	}

	logger.Info("Use case finished successfully", port.Fields{"from": tr.From})
	return report, nil
}
