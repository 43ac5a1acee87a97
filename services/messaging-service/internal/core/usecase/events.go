package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"marketplace/pkg/contextkeys"
	"marketplace/services/messaging-service/internal/core/domain"
	"marketplace/services/messaging-service/internal/core/port"

	"github.com/google/uuid"
)

// InquiryClientMessageID - client_message_id сообщения, созданного из запроса.
// Повторная доставка того же события не создает второе сообщение.
func InquiryClientMessageID(inquiryID uuid.UUID) string {
	return "inquiry:" + inquiryID.String()
}

type HandleInquiryCreatedUseCase struct {
	conversations port.ConversationRepositoryPort
	delivery      *messageDelivery
	notifier      *Notifier
	now           func() time.Time
}

func NewHandleInquiryCreatedUseCase(
	conversations port.ConversationRepositoryPort,
	messages port.MessageRepositoryPort,
	broadcaster port.BroadcasterPort,
	notifier *Notifier,
) *HandleInquiryCreatedUseCase {
	return &HandleInquiryCreatedUseCase{
		conversations: conversations,
		delivery:      &messageDelivery{messages: messages, broadcaster: broadcaster},
		notifier:      notifier,
		now:           time.Now,
	}
}

// Execute открывает переписку по запросу покупателя и кладет в нее текст запроса.
// Ошибка валидации не повторяется: такое событие отбрасывается.
// Закрытая переписка открывается снова, только если запрос создан после ее закрытия.
func (uc *HandleInquiryCreatedUseCase) Execute(ctx context.Context, event domain.InquiryCreated) error {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"use_case":   "HandleInquiryCreated",
		"inquiry_id": event.InquiryID,
		"listing_id": event.ListingID,
	})
	logger.Info("Use case started", nil)

	if event.BuyerID == event.SellerID {
		logger.Warn("Inquiry from the seller to own listing, skipping", nil)
		return nil
	}
	body, err := domain.NormalizeBody(event.Message)
	if err != nil {
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			logger.Warn("Inquiry message is not a valid chat message, skipping", port.Fields{"reason": ve.Error()})
			return nil
		}
		return err
	}

	now := domain.MessageTime(uc.now())
	conv, created, err := uc.conversations.FindOrCreate(ctx, &domain.Conversation{
		ID:            uuid.New(),
		ListingID:     event.ListingID,
		ListingTitle:  event.ListingTitle,
		BuyerID:       event.BuyerID,
		SellerID:      event.SellerID,
		Status:        domain.ConversationOpen,
		LastMessageAt: now,
		CreatedAt:     now,
	})
	if err != nil {
		return fmt.Errorf("find or create conversation: %w", err)
	}
	if conv.Status == domain.ConversationClosed {
		// запрос, отправленный до снятия объявления (или его повторная доставка),
		// закрытую переписку не открывает
		if event.CreatedAt.IsZero() {
			logger.Warn("Inquiry without creation time for a closed conversation, skipping", port.Fields{"conversation_id": conv.ID})
			return nil
		}
		conv, err = uc.conversations.Reopen(ctx, conv.ID, event.CreatedAt)
		if errors.Is(err, domain.ErrConversationClosed) {
			logger.Info("Inquiry predates conversation close, skipping", nil)
			return nil
		}
		if err != nil {
			return fmt.Errorf("reopen conversation: %w", err)
		}
	}

	buyer := event.BuyerID
	res, err := uc.delivery.deliver(ctx, conv, &domain.Message{
		ID:              uuid.New(),
		ConversationID:  conv.ID,
		SenderID:        &buyer,
		Kind:            domain.MessageInquiry,
		Body:            body,
		ClientMessageID: InquiryClientMessageID(event.InquiryID),
		CreatedAt:       now,
	})
	if err != nil {
		return fmt.Errorf("append inquiry message: %w", err)
	}
	if res.Duplicate {
		logger.Info("Inquiry already delivered, skipping", port.Fields{"conversation_id": conv.ID})
		return nil
	}

	data := map[string]interface{}{
		"conversation_id": conv.ID.String(),
		"message_id":      res.Message.ID.String(),
		"listing_id":      event.ListingID.String(),
		"inquiry_id":      event.InquiryID.String(),
	}
	for k, v := range map[string]string{
		"contact_name":  event.ContactName,
		"contact_email": event.ContactEmail,
		"contact_phone": event.ContactPhone,
	} {
		if v != "" {
			data[k] = v
		}
	}
	err = uc.notifier.Notify(ctx, &domain.Notification{
		UserID: event.SellerID,
		Type:   domain.NotificationNewInquiry,
		Title:  "New inquiry: " + event.ListingTitle,
		Body:   domain.Preview(body),
		Data:   data,
	})
	if err != nil {
		logger.Error("Failed to notify seller", err, nil)
	}

	logger.Info("Use case finished successfully", port.Fields{
		"conversation_id": conv.ID,
		"created":         created,
	})
	return nil
}

type HandleListingArchivedUseCase struct {
	conversations port.ConversationRepositoryPort
	delivery      *messageDelivery
	broadcaster   port.BroadcasterPort
	notifier      *Notifier
	now           func() time.Time
}

func NewHandleListingArchivedUseCase(
	conversations port.ConversationRepositoryPort,
	messages port.MessageRepositoryPort,
	broadcaster port.BroadcasterPort,
	notifier *Notifier,
) *HandleListingArchivedUseCase {
	return &HandleListingArchivedUseCase{
		conversations: conversations,
		delivery:      &messageDelivery{messages: messages, broadcaster: broadcaster},
		broadcaster:   broadcaster,
		notifier:      notifier,
		now:           time.Now,
	}
}

func archivedNotice(reason string) string {
	switch reason {
	case "expired":
		return "The listing has expired and was archived. The conversation is closed."
	case "admin":
		return "The listing was removed by a moderator. The conversation is closed."
	}
	return "The seller archived the listing. The conversation is closed."
}

// Execute закрывает открытые переписки по объявлению с отметкой archived_at.
// Повторная доставка ничего не меняет: закрытые переписки повторно не выбираются.
func (uc *HandleListingArchivedUseCase) Execute(ctx context.Context, event domain.ListingArchived) error {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"use_case":   "HandleListingArchived",
		"listing_id": event.ListingID,
		"reason":     event.Reason,
	})
	logger.Info("Use case started", nil)

	closedAt := event.ArchivedAt
	if closedAt.IsZero() {
		closedAt = uc.now()
	}
	closed, err := uc.conversations.CloseOpenByListing(ctx, event.ListingID, closedAt)
	if err != nil {
		return fmt.Errorf("close conversations: %w", err)
	}

	notice := archivedNotice(event.Reason)
	for i := range closed {
		conv := &closed[i]

		_, err := uc.delivery.deliver(ctx, conv, &domain.Message{
			ID:             uuid.New(),
			ConversationID: conv.ID,
			Kind:           domain.MessageSystem,
			Body:           notice,
			CreatedAt:      domain.MessageTime(uc.now()),
		})
		if err != nil {
			logger.Error("Failed to append system message", err, port.Fields{"conversation_id": conv.ID})
		}

		uc.broadcaster.Broadcast(ctx, domain.RealtimeEvent{
			Type:           domain.EventConversationClosed,
			ConversationID: &conv.ID,
			Recipients:     conv.Participants(),
			Payload:        conv,
		})

		for _, userID := range conv.Participants() {
			err := uc.notifier.Notify(ctx, &domain.Notification{
				UserID: userID,
				Type:   domain.NotificationListingArchived,
				Title:  "Listing archived: " + conv.ListingTitle,
				Body:   notice,
				Data: map[string]interface{}{
					"conversation_id": conv.ID.String(),
					"listing_id":      conv.ListingID.String(),
					"reason":          event.Reason,
				},
			})
			if err != nil {
				logger.Error("Failed to notify participant", err, port.Fields{"user_id": userID})
			}
		}
	}

	logger.Info("Use case finished successfully", port.Fields{"closed_conversations": len(closed)})
	return nil
}
