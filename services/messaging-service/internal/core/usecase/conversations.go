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

type StartConversationUseCase struct {
	catalog       port.ListingCatalogPort
	conversations port.ConversationRepositoryPort
	delivery      *messageDelivery
	notifier      *Notifier
	limiter       port.RateLimiterPort
	now           func() time.Time
}

func NewStartConversationUseCase(
	catalog port.ListingCatalogPort,
	conversations port.ConversationRepositoryPort,
	messages port.MessageRepositoryPort,
	broadcaster port.BroadcasterPort,
	notifier *Notifier,
	limiter port.RateLimiterPort,
) *StartConversationUseCase {
	return &StartConversationUseCase{
		catalog:       catalog,
		conversations: conversations,
		delivery:      &messageDelivery{messages: messages, broadcaster: broadcaster},
		notifier:      notifier,
		limiter:       limiter,
		now:           time.Now,
	}
}

// Execute находит или создает переписку покупателя по объявлению и отправляет первое сообщение.
func (uc *StartConversationUseCase) Execute(ctx context.Context, buyer domain.Actor, listingID uuid.UUID, body, clientMessageID string) (*domain.Conversation, *domain.SendResult, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"use_case":   "StartConversation",
		"user_id":    buyer.UserID,
		"listing_id": listingID,
	})
	logger.Info("Use case started", nil)

	body, err := domain.NormalizeBody(body)
	if err != nil {
		return nil, nil, err
	}
	if err := domain.ValidateClientMessageID(clientMessageID); err != nil {
		return nil, nil, err
	}

	listing, err := uc.catalog.GetListingSummary(ctx, listingID)
	if err != nil {
		return nil, nil, err
	}
	if listing.Status != domain.ListingStatusPublished {
		return nil, nil, domain.ErrListingNotAvailable
	}
	if listing.SellerID == buyer.UserID {
		return nil, nil, domain.ErrSelfConversation
	}
	if !uc.limiter.Allow(buyer.UserID.String()) {
		logger.Warn("Send rate limit exceeded", nil)
		return nil, nil, domain.ErrRateLimited
	}

	now := domain.MessageTime(uc.now())
	conv, created, err := uc.conversations.FindOrCreate(ctx, &domain.Conversation{
		ID:            uuid.New(),
		ListingID:     listing.ID,
		ListingTitle:  listing.Title,
		BuyerID:       buyer.UserID,
		SellerID:      listing.SellerID,
		Status:        domain.ConversationOpen,
		LastMessageAt: now,
		CreatedAt:     now,
	})
	if err != nil {
		logger.Error("Repository returned an error", err, nil)
		return nil, nil, err
	}
	if conv.Status == domain.ConversationClosed {
		// объявление снова опубликовано, переписка продолжается
		conv, err = uc.conversations.Reopen(ctx, conv.ID, now)
		if err != nil {
			logger.Error("Failed to reopen conversation", err, nil)
			return nil, nil, err
		}
		logger.Info("Closed conversation reopened", port.Fields{"conversation_id": conv.ID})
	}

	sender := buyer.UserID
	res, err := uc.delivery.deliver(ctx, conv, &domain.Message{
		ID:              uuid.New(),
		ConversationID:  conv.ID,
		SenderID:        &sender,
		Kind:            domain.MessageText,
		Body:            body,
		ClientMessageID: clientMessageID,
		CreatedAt:       now,
	})
	if err != nil {
		logger.Error("Failed to append first message", err, port.Fields{"conversation_id": conv.ID})
		return nil, nil, err
	}
	if !res.Duplicate {
		uc.notifier.notifyNewMessage(ctx, conv, &res.Message, sender)
	}

	logger.Info("Use case finished successfully", port.Fields{
		"conversation_id": conv.ID,
		"created":         created,
		"duplicate":       res.Duplicate,
	})
	return conv, res, nil
}

type ListConversationsUseCase struct {
	repo port.ConversationRepositoryPort
}

func NewListConversationsUseCase(repo port.ConversationRepositoryPort) *ListConversationsUseCase {
	return &ListConversationsUseCase{repo: repo}
}

// Execute - входящие пользователя, последние по активности сверху.
func (uc *ListConversationsUseCase) Execute(ctx context.Context, actor domain.Actor, cursor string, limit int) (*domain.ConversationPage, error) {
	c, err := pagination.DecodeFor(cursor, domain.SortActivity)
	if err != nil {
		return nil, err
	}
	return uc.repo.ListByParticipant(ctx, actor.UserID, c, pageLimit(limit))
}

type GetConversationUseCase struct {
	repo port.ConversationRepositoryPort
}

func NewGetConversationUseCase(repo port.ConversationRepositoryPort) *GetConversationUseCase {
	return &GetConversationUseCase{repo: repo}
}

func (uc *GetConversationUseCase) Execute(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Conversation, error) {
	return loadViewable(ctx, uc.repo, actor, id)
}

type MarkConversationReadUseCase struct {
	conversations port.ConversationRepositoryPort
	messages      port.MessageRepositoryPort
	broadcaster   port.BroadcasterPort
	now           func() time.Time
}

func NewMarkConversationReadUseCase(conversations port.ConversationRepositoryPort, messages port.MessageRepositoryPort, broadcaster port.BroadcasterPort) *MarkConversationReadUseCase {
	return &MarkConversationReadUseCase{conversations: conversations, messages: messages, broadcaster: broadcaster, now: time.Now}
}

// Execute двигает маркер прочтения до указанного сообщения (или до последнего).
// Маркер никогда не сдвигается назад.
func (uc *MarkConversationReadUseCase) Execute(ctx context.Context, actor domain.Actor, conversationID uuid.UUID, upToMessageID *uuid.UUID) (*domain.ReadState, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"use_case":        "MarkConversationRead",
		"user_id":         actor.UserID,
		"conversation_id": conversationID,
	})

	conv, err := loadForParticipant(ctx, uc.conversations, actor, conversationID)
	if err != nil {
		return nil, err
	}

	var at time.Time
	if upToMessageID != nil {
		msg, err := uc.messages.GetByID(ctx, *upToMessageID)
		if err != nil {
			return nil, err
		}
		if msg.ConversationID != conv.ID {
			return nil, domain.ErrMessageNotFound
		}
		at = msg.CreatedAt
	} else {
		latest, err := uc.messages.LatestCreatedAt(ctx, conv.ID)
		if err != nil {
			return nil, err
		}
		at = domain.MessageTime(uc.now())
		if latest != nil {
			at = *latest
		}
	}

	marker, err := uc.conversations.AdvanceReadMarker(ctx, conv.ID, actor.UserID, at)
	if err != nil {
		logger.Error("Repository returned an error", err, nil)
		return nil, err
	}

	state := &domain.ReadState{ConversationID: conv.ID, UserID: actor.UserID, LastReadAt: marker}
	uc.broadcaster.Broadcast(ctx, domain.RealtimeEvent{
		Type:           domain.EventConversationRead,
		ConversationID: &conv.ID,
		Recipients:     conv.Participants(),
		Payload:        state,
	})

	logger.Debug("Read marker advanced", port.Fields{"last_read_at": marker})
	return state, nil
}
