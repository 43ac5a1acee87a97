package usecase

import (
	"context"
	"testing"
	"time"

	"marketplace/services/messaging-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func publishedListing(seller uuid.UUID) *domain.ListingSummary {
	return &domain.ListingSummary{ID: uuid.New(), SellerID: seller, Title: "Road bike", Status: domain.ListingStatusPublished}
}

func TestStartConversation(t *testing.T) {
	seller, buyer := uuid.New(), uuid.New()
	listing := publishedListing(seller)
	w := newMessagingWorld()
	uc := NewStartConversationUseCase(newFakeCatalog(listing), w.convs, w.messages, w.broadcaster, w.notifier, fakeLimiter{})
	uc.now = fixedClock(testNow)

	conv, res, err := uc.Execute(context.Background(), domain.Actor{UserID: buyer}, listing.ID, "  Still available?  ", "c-1")
	require.NoError(t, err)
	assert.Equal(t, listing.Title, conv.ListingTitle)
	assert.Equal(t, seller, conv.SellerID)
	assert.Equal(t, "Still available?", res.Message.Body)
	assert.False(t, res.Duplicate)
	assert.Equal(t, "Still available?", conv.LastMessagePreview)

	require.Len(t, w.broadcaster.ofType(domain.EventMessageCreated), 1)
	notes := w.notifications.forUser(seller)
	require.Len(t, notes, 1)
	assert.Equal(t, domain.NotificationNewMessage, notes[0].Type)

	// вторая попытка с тем же client id - та же переписка и то же сообщение
	conv2, res2, err := uc.Execute(context.Background(), domain.Actor{UserID: buyer}, listing.ID, "Still available?", "c-1")
	require.NoError(t, err)
	assert.Equal(t, conv.ID, conv2.ID)
	assert.True(t, res2.Duplicate)
	assert.Equal(t, res.Message.ID, res2.Message.ID)
	assert.Len(t, w.broadcaster.ofType(domain.EventMessageCreated), 1)
	assert.Len(t, w.notifications.forUser(seller), 1)
}

func TestStartConversationRejections(t *testing.T) {
	seller, buyer := uuid.New(), uuid.New()
	listing := publishedListing(seller)
	archived := publishedListing(seller)
	archived.Status = "archived"
	w := newMessagingWorld()
	catalog := newFakeCatalog(listing, archived)

	uc := NewStartConversationUseCase(catalog, w.convs, w.messages, w.broadcaster, w.notifier, fakeLimiter{})

	_, _, err := uc.Execute(context.Background(), domain.Actor{UserID: seller}, listing.ID, "hi", "")
	assert.ErrorIs(t, err, domain.ErrSelfConversation)

	_, _, err = uc.Execute(context.Background(), domain.Actor{UserID: buyer}, archived.ID, "hi", "")
	assert.ErrorIs(t, err, domain.ErrListingNotAvailable)

	_, _, err = uc.Execute(context.Background(), domain.Actor{UserID: buyer}, uuid.New(), "hi", "")
	assert.ErrorIs(t, err, domain.ErrListingNotFound)

	_, _, err = uc.Execute(context.Background(), domain.Actor{UserID: buyer}, listing.ID, "   ", "")
	var ve *domain.ValidationError
	assert.ErrorAs(t, err, &ve)

	limited := NewStartConversationUseCase(catalog, w.convs, w.messages, w.broadcaster, w.notifier, fakeLimiter{deny: true})
	_, _, err = limited.Execute(context.Background(), domain.Actor{UserID: buyer}, listing.ID, "hi", "")
	assert.ErrorIs(t, err, domain.ErrRateLimited)
}

func TestStartConversationReopensClosedConversation(t *testing.T) {
	seller, buyer := uuid.New(), uuid.New()
	listing := publishedListing(seller)
	closedAt := testNow.Add(-time.Hour)
	conv := openConversation(buyer, seller)
	conv.ListingID = listing.ID
	conv.Status = domain.ConversationClosed
	conv.ClosedAt = &closedAt
	w := newMessagingWorld(conv)
	uc := NewStartConversationUseCase(newFakeCatalog(listing), w.convs, w.messages, w.broadcaster, w.notifier, fakeLimiter{})
	uc.now = fixedClock(testNow)

	got, res, err := uc.Execute(context.Background(), domain.Actor{UserID: buyer}, listing.ID, "Back on sale?", "c-2")
	require.NoError(t, err)
	assert.Equal(t, conv.ID, got.ID)
	assert.Equal(t, domain.ConversationOpen, got.Status)
	assert.False(t, res.Duplicate)
}

func TestGetConversationVisibility(t *testing.T) {
	buyer, seller := uuid.New(), uuid.New()
	conv := openConversation(buyer, seller)
	uc := NewGetConversationUseCase(newFakeConversationRepo(conv))

	got, err := uc.Execute(context.Background(), domain.Actor{UserID: seller}, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, conv.ID, got.ID)

	_, err = uc.Execute(context.Background(), domain.Actor{UserID: uuid.New()}, conv.ID)
	assert.ErrorIs(t, err, domain.ErrConversationNotFound)

	_, err = uc.Execute(context.Background(), domain.Actor{UserID: uuid.New(), Role: domain.RoleAdmin}, conv.ID)
	assert.NoError(t, err)
}

func TestListConversationsRejectsForeignCursor(t *testing.T) {
	uc := NewListConversationsUseCase(newFakeConversationRepo())
	foreign := (&domain.Message{ID: uuid.New(), CreatedAt: testNow}).CreatedCursor().Encode()

	_, err := uc.Execute(context.Background(), domain.Actor{UserID: uuid.New()}, foreign, 10)
	assert.Error(t, err)
}

func TestMarkConversationReadMovesForwardOnly(t *testing.T) {
	buyer, seller := uuid.New(), uuid.New()
	conv := openConversation(buyer, seller)
	w := newMessagingWorld(conv)
	send := NewSendMessageUseCase(w.convs, w.messages, w.broadcaster, w.notifier, fakeLimiter{})
	send.now = tickingClock(testNow)

	first, err := send.Execute(context.Background(), domain.Actor{UserID: seller}, conv.ID, "one", "")
	require.NoError(t, err)
	second, err := send.Execute(context.Background(), domain.Actor{UserID: seller}, conv.ID, "two", "")
	require.NoError(t, err)

	uc := NewMarkConversationReadUseCase(w.convs, w.messages, w.broadcaster)
	buyerActor := domain.Actor{UserID: buyer}

	state, err := uc.Execute(context.Background(), buyerActor, conv.ID, nil)
	require.NoError(t, err)
	require.NotNil(t, state.LastReadAt)
	assert.True(t, state.LastReadAt.Equal(second.Message.CreatedAt))

	firstID := first.Message.ID
	state, err = uc.Execute(context.Background(), buyerActor, conv.ID, &firstID)
	require.NoError(t, err)
	assert.True(t, state.LastReadAt.Equal(second.Message.CreatedAt), "marker must not move back")

	events := w.broadcaster.ofType(domain.EventConversationRead)
	require.Len(t, events, 2)
	assert.Equal(t, conv.ID, *events[0].ConversationID)

	foreign := uuid.New()
	_, err = uc.Execute(context.Background(), buyerActor, conv.ID, &foreign)
	assert.ErrorIs(t, err, domain.ErrMessageNotFound)

	_, err = uc.Execute(context.Background(), domain.Actor{UserID: uuid.New(), Role: domain.RoleAdmin}, conv.ID, nil)
	assert.ErrorIs(t, err, domain.ErrNotParticipant)
}

func TestMarkConversationReadWithoutMessages(t *testing.T) {
	buyer, seller := uuid.New(), uuid.New()
	conv := openConversation(buyer, seller)
	w := newMessagingWorld(conv)
	uc := NewMarkConversationReadUseCase(w.convs, w.messages, w.broadcaster)
	uc.now = fixedClock(testNow.Add(time.Minute))

	state, err := uc.Execute(context.Background(), domain.Actor{UserID: seller}, conv.ID, nil)
	require.NoError(t, err)
	assert.True(t, state.LastReadAt.Equal(testNow.Add(time.Minute)))
}
