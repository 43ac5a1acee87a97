package port

import (
	"context"
	"time"

	"marketplace/pkg/pagination"
	"marketplace/services/messaging-service/internal/core/domain"

	"github.com/google/uuid"
)

// ConversationRepositoryPort - хранилище переписок.
type ConversationRepositoryPort interface {
	// FindOrCreate возвращает переписку пары (объявление, покупатель), создавая ее при необходимости.
	// Статус существующей переписки не меняется. created == true, если строка вставлена.
	FindOrCreate(ctx context.Context, c *domain.Conversation) (conv *domain.Conversation, created bool, err error)
	GetByID(ctx context.Context, id, viewerID uuid.UUID) (*domain.Conversation, error)
	ListByParticipant(ctx context.Context, userID uuid.UUID, cursor *pagination.Cursor, limit int) (*domain.ConversationPage, error)
	// AdvanceReadMarker двигает маркер прочтения только вперед и возвращает итоговое значение.
	AdvanceReadMarker(ctx context.Context, id, userID uuid.UUID, at time.Time) (*time.Time, error)
	// Reopen открывает переписку, закрытую раньше closedBefore (открытая остается открытой).
	// Если переписку закрыли позже, возвращает domain.ErrConversationClosed.
	Reopen(ctx context.Context, id uuid.UUID, closedBefore time.Time) (*domain.Conversation, error)
	// CloseOpenByListing закрывает открытые переписки объявления с отметкой at и возвращает их.
	CloseOpenByListing(ctx context.Context, listingID uuid.UUID, at time.Time) ([]domain.Conversation, error)
}

// MessageRepositoryPort - хранилище сообщений.
type MessageRepositoryPort interface {
	// Append сохраняет сообщение и обновляет last_message_* переписки в одной транзакции.
	// Время сообщения назначает хранилище: внутри переписки оно растет в порядке сохранения.
	// Повтор client_message_id того же отправителя возвращает сохраненное сообщение с Duplicate.
	Append(ctx context.Context, m *domain.Message) (*domain.SendResult, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error)
	// ListBefore - история от новых к старым.
	ListBefore(ctx context.Context, conversationID uuid.UUID, cursor *pagination.Cursor, limit int) (*domain.MessagePage, error)
	// ListAfter - сообщения строго после курсора, от старых к новым.
	ListAfter(ctx context.Context, conversationID uuid.UUID, cursor *pagination.Cursor, limit int) (*domain.MessagePage, error)
	LatestCreatedAt(ctx context.Context, conversationID uuid.UUID) (*time.Time, error)
}

type NotificationRepositoryPort interface {
	Create(ctx context.Context, n *domain.Notification) error
	ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, cursor *pagination.Cursor, limit int) (*domain.NotificationPage, error)
	MarkRead(ctx context.Context, userID uuid.UUID, ids []uuid.UUID, at time.Time) (int64, error)
	MarkAllRead(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int64, error)
	PurgeRead(ctx context.Context, readBefore time.Time) (int64, error)
}

type ReportRepositoryPort interface {
	// Create возвращает domain.ErrDuplicateReport, если по цели уже есть открытая жалоба этого пользователя.
	Create(ctx context.Context, r *domain.Report) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Report, error)
	List(ctx context.Context, status domain.ReportStatus, cursor *pagination.Cursor, limit int) (*domain.ReportPage, error)
	ListByReporter(ctx context.Context, reporterID uuid.UUID, cursor *pagination.Cursor, limit int) (*domain.ReportPage, error)
	// UpdateStatus применяет переход, только если текущий статус равен t.From.
	UpdateStatus(ctx context.Context, id uuid.UUID, t domain.ReportTransition) error
}

type AnalyticsRepositoryPort interface {
	MessagingAnalytics(ctx context.Context, days int) (*domain.MessagingAnalytics, error)
}
