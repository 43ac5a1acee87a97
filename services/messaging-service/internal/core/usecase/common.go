package usecase

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"marketplace/pkg/contextkeys"
	"marketplace/pkg/pagination"
	"marketplace/services/messaging-service/internal/core/domain"
	"marketplace/services/messaging-service/internal/core/port"

	"github.com/google/uuid"
)

const maxResolutionNote = 2000

func pageLimit(limit int) int {
	return pagination.NormalizeLimit(limit, pagination.DefaultLimit, pagination.MaxLimit)
}

// loadViewable - переписка, которую может читать участник или модератор.
// Для остальных переписка не существует.
func loadViewable(ctx context.Context, repo port.ConversationRepositoryPort, actor domain.Actor, id uuid.UUID) (*domain.Conversation, error) {
	conv, err := repo.GetByID(ctx, id, actor.UserID)
	if err != nil {
		return nil, err
	}
	if !conv.CanView(actor) {
		return nil, domain.ErrConversationNotFound
	}
	return conv, nil
}

// loadForParticipant - переписка для действий от имени участника.
// Модератор видит переписку, но писать и отмечать прочтение не может.
func loadForParticipant(ctx context.Context, repo port.ConversationRepositoryPort, actor domain.Actor, id uuid.UUID) (*domain.Conversation, error) {
	conv, err := loadViewable(ctx, repo, actor, id)
	if err != nil {
		return nil, err
	}
	if !conv.IsParticipant(actor.UserID) {
		return nil, domain.ErrNotParticipant
	}
	return conv, nil
}

func requireAdmin(actor domain.Actor) error {
	if !actor.IsAdmin() {
		return domain.ErrForbidden
	}
	return nil
}

func normalizeNote(note string) (string, error) {
	note = strings.TrimSpace(note)
	if utf8.RuneCountInString(note) > maxResolutionNote {
		return "", domain.NewValidationError("note", "must be at most 2000 characters")
	}
	return note, nil
}

// messageDelivery сохраняет сообщение и рассылает message.created.
// Повтор по client_message_id не рассылается второй раз.
type messageDelivery struct {
	messages    port.MessageRepositoryPort
	broadcaster port.BroadcasterPort
}

func (d *messageDelivery) deliver(ctx context.Context, conv *domain.Conversation, msg *domain.Message) (*domain.SendResult, error) {
	res, err := d.messages.Append(ctx, msg)
	if err != nil {
		return nil, err
	}
	if res.Duplicate {
		return res, nil
	}

	conv.LastMessageAt = res.Message.CreatedAt
	conv.LastMessagePreview = domain.Preview(res.Message.Body)

	d.broadcaster.Broadcast(ctx, domain.RealtimeEvent{
		Type:           domain.EventMessageCreated,
		ConversationID: &conv.ID,
		Recipients:     conv.Participants(),
		Payload:        res.Message,
	})
	return res, nil
}

// Notifier сохраняет уведомление, сбрасывает кэш счетчика и рассылает notification.created.
type Notifier struct {
	repo        port.NotificationRepositoryPort
	cache       port.UnreadCounterCachePort
	broadcaster port.BroadcasterPort
	now         func() time.Time
}

func NewNotifier(repo port.NotificationRepositoryPort, cache port.UnreadCounterCachePort, broadcaster port.BroadcasterPort) *Notifier {
	return &Notifier{repo: repo, cache: cache, broadcaster: broadcaster, now: time.Now}
}

func (n *Notifier) Notify(ctx context.Context, notification *domain.Notification) error {
	if notification.ID == uuid.Nil {
		notification.ID = uuid.New()
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = domain.MessageTime(n.now())
	}
	if notification.Data == nil {
		notification.Data = map[string]interface{}{}
	}

	if err := n.repo.Create(ctx, notification); err != nil {
		return err
	}
	if err := n.cache.Invalidate(ctx, notification.UserID); err != nil {
		contextkeys.LoggerFromContext(ctx).Warn("Failed to invalidate unread counter", port.Fields{
			"user_id": notification.UserID,
			"error":   err.Error(),
		})
	}

	n.broadcaster.Broadcast(ctx, domain.RealtimeEvent{
		Type:       domain.EventNotificationCreated,
		Recipients: []uuid.UUID{notification.UserID},
		Payload:    notification,
	})
	return nil
}

// notifyNewMessage - уведомление собеседнику о новом сообщении. Ошибка только логируется.
func (n *Notifier) notifyNewMessage(ctx context.Context, conv *domain.Conversation, msg *domain.Message, sender uuid.UUID) {
	err := n.Notify(ctx, &domain.Notification{
		UserID: conv.Counterpart(sender),
		Type:   domain.NotificationNewMessage,
		Title:  "New message: " + conv.ListingTitle,
		Body:   domain.Preview(msg.Body),
		Data: map[string]interface{}{
			"conversation_id": conv.ID.String(),
			"message_id":      msg.ID.String(),
			"listing_id":      conv.ListingID.String(),
		},
	})
	if err != nil {
		contextkeys.LoggerFromContext(ctx).Error("Failed to create new message notification", err, port.Fields{
			"conversation_id": conv.ID,
		})
	}
}
