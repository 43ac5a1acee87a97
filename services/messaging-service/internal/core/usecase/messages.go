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

type SendMessageUseCase struct {
	conversations port.ConversationRepositoryPort
	delivery      *messageDelivery
	notifier      *Notifier
	limiter       port.RateLimiterPort
	now           func() time.Time
}

func NewSendMessageUseCase(
	conversations port.ConversationRepositoryPort,
	messages port.MessageRepositoryPort,
	broadcaster port.BroadcasterPort,
	notifier *Notifier,
	limiter port.RateLimiterPort,
) *SendMessageUseCase {
	return &SendMessageUseCase{
		conversations: conversations,
		delivery:      &messageDelivery{messages: messages, broadcaster: broadcaster},
		notifier:      notifier,
		limiter:       limiter,
		now:           time.Now,
	}
}

// Execute отправляет сообщение в открытую переписку.
// Повторная отправка с тем же client_message_id возвращает сохраненное сообщение.
func (uc *SendMessageUseCase) Execute(ctx context.Context, sender domain.Actor, conversationID uuid.UUID, body, clientMessageID string) (*domain.SendResult, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"use_case":        "SendMessage",
		"user_id":         sender.UserID,
		"conversation_id": conversationID,
	})
	logger.Info("Use case started", nil)

	body, err := domain.NormalizeBody(body)
	if err != nil {
		return nil, err
	}
	if err := domain.ValidateClientMessageID(clientMessageID); err != nil {
		return nil, err
	}

	conv, err := loadForParticipant(ctx, uc.conversations, sender, conversationID)
	if err != nil {
		return nil, err
	}
	if conv.Status == domain.ConversationClosed {
		return nil, domain.ErrConversationClosed
	}
	if !uc.limiter.Allow(sender.UserID.String()) {
		logger.Warn("Send rate limit exceeded", nil)
		return nil, domain.ErrRateLimited
	}

	senderID := sender.UserID
	res, err := uc.delivery.deliver(ctx, conv, &domain.Message{
		ID:              uuid.New(),
		ConversationID:  conv.ID,
		SenderID:        &senderID,
		Kind:            domain.MessageText,
		Body:            body,
		ClientMessageID: clientMessageID,
		CreatedAt:       domain.MessageTime(uc.now()),
	})
	if err != nil {
		logger.Error("Repository returned an error", err, nil)
		return nil, err
	}
	if res.Duplicate {
		logger.Info("Duplicate client message id, returning stored message", port.Fields{"message_id": res.Message.ID})
		return res, nil
	}
	uc.notifier.notifyNewMessage(ctx, conv, &res.Message, senderID)

	logger.Info("Use case finished successfully", port.Fields{"message_id": res.Message.ID})
	return res, nil
}

// ListMessagesUseCase - история переписки, от новых к старым.
type ListMessagesUseCase struct {
	conversations port.ConversationRepositoryPort
	messages      port.MessageRepositoryPort
}

func NewListMessagesUseCase(conversations port.ConversationRepositoryPort, messages port.MessageRepositoryPort) *ListMessagesUseCase {
	return &ListMessagesUseCase{conversations: conversations, messages: messages}
}

func (uc *ListMessagesUseCase) Execute(ctx context.Context, actor domain.Actor, conversationID uuid.UUID, before string, limit int) (*domain.MessagePage, error) {
	c, err := pagination.DecodeFor(before, domain.SortCreated)
	if err != nil {
		return nil, err
	}
	conv, err := loadForParticipant(ctx, uc.conversations, actor, conversationID)
	if err != nil {
		return nil, err
	}
	return uc.messages.ListBefore(ctx, conv.ID, c, pageLimit(limit))
}

// PollMessagesUseCase - запасной канал для клиентов без realtime:
// сообщения строго после курсора, от старых к новым.
type PollMessagesUseCase struct {
	conversations port.ConversationRepositoryPort
	messages      port.MessageRepositoryPort
}

func NewPollMessagesUseCase(conversations port.ConversationRepositoryPort, messages port.MessageRepositoryPort) *PollMessagesUseCase {
	return &PollMessagesUseCase{conversations: conversations, messages: messages}
}

// Execute всегда возвращает курсор для следующего опроса: последнее
// полученное сообщение или исходный курсор, если новых нет.
func (uc *PollMessagesUseCase) Execute(ctx context.Context, actor domain.Actor, conversationID uuid.UUID, after string, limit int) (*domain.MessagePage, error) {
	c, err := pagination.DecodeFor(after, domain.SortCreated)
	if err != nil {
		return nil, err
	}
	conv, err := loadForParticipant(ctx, uc.conversations, actor, conversationID)
	if err != nil {
		return nil, err
	}

	page, err := uc.messages.ListAfter(ctx, conv.ID, c, pageLimit(limit))
	if err != nil {
		return nil, err
	}
	if n := len(page.Items); n > 0 {
		page.NextCursor = page.Items[n-1].CreatedCursor().Encode()
	} else {
		page.NextCursor = after
	}
	return page, nil
}

// AdminListMessagesUseCase - переписка глазами модератора.
type AdminListMessagesUseCase struct {
	conversations port.ConversationRepositoryPort
	messages      port.MessageRepositoryPort
}

func NewAdminListMessagesUseCase(conversations port.ConversationRepositoryPort, messages port.MessageRepositoryPort) *AdminListMessagesUseCase {
	return &AdminListMessagesUseCase{conversations: conversations, messages: messages}
}

func (uc *AdminListMessagesUseCase) Execute(ctx context.Context, admin domain.Actor, conversationID uuid.UUID, before string, limit int) (*domain.MessagePage, error) {
	if err := requireAdmin(admin); err != nil {
		return nil, err
	}
	c, err := pagination.DecodeFor(before, domain.SortCreated)
	if err != nil {
		return nil, err
	}

	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"use_case":        "AdminListMessages",
		"admin_id":        admin.UserID,
		"conversation_id": conversationID,
	})
	if _, err := uc.conversations.GetByID(ctx, conversationID, admin.UserID); err != nil {
		return nil, err
	}
	logger.Info("Moderator opened conversation history", nil)
	return uc.messages.ListBefore(ctx, conversationID, c, pageLimit(limit))
}
