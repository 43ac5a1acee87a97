package usecase

import (
	"context"
	"errors"
	"testing"

	"marketplace/services/messaging-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendMessage(t *testing.T) {
	buyer, seller := uuid.New(), uuid.New()
	conv := openConversation(buyer, seller)
	w := newMessagingWorld(conv)
	uc := NewSendMessageUseCase(w.convs, w.messages, w.broadcaster, w.notifier, fakeLimiter{})
	uc.now = fixedClock(testNow)

	res, err := uc.Execute(context.Background(), domain.Actor{UserID: buyer}, conv.ID, "hello", "tmp-1")
	require.NoError(t, err)
	assert.False(t, res.Duplicate)
	assert.True(t, res.Message.IsFrom(buyer))
	assert.Equal(t, domain.MessageText, res.Message.Kind)

	events := w.broadcaster.ofType(domain.EventMessageCreated)
	require.Len(t, events, 1)
	assert.ElementsMatch(t, []uuid.UUID{buyer, seller}, events[0].Recipients)

	notes := w.notifications.forUser(seller)
	require.Len(t, notes, 1)
	assert.Equal(t, conv.ID.String(), notes[0].Data["conversation_id"])
	assert.Contains(t, w.cache.invalidated, seller)
	assert.Len(t, w.broadcaster.ofType(domain.EventNotificationCreated), 1)

	dup, err := uc.Execute(context.Background(), domain.Actor{UserID: buyer}, conv.ID, "hello", "tmp-1")
	require.NoError(t, err)
	assert.True(t, dup.Duplicate)
	assert.Equal(t, res.Message.ID, dup.Message.ID)
	assert.Len(t, w.broadcaster.ofType(domain.EventMessageCreated), 1)
	assert.Len(t, w.notifications.forUser(seller), 1)
}

func TestSendMessageRejections(t *testing.T) {
	buyer, seller := uuid.New(), uuid.New()
	conv := openConversation(buyer, seller)
	closed := openConversation(buyer, seller)
	closed.Status = domain.ConversationClosed
	w := newMessagingWorld(conv, closed)
	uc := NewSendMessageUseCase(w.convs, w.messages, w.broadcaster, w.notifier, fakeLimiter{})

	_, err := uc.Execute(context.Background(), domain.Actor{UserID: buyer}, closed.ID, "hi", "")
	assert.ErrorIs(t, err, domain.ErrConversationClosed)

	_, err = uc.Execute(context.Background(), domain.Actor{UserID: uuid.New()}, conv.ID, "hi", "")
	assert.ErrorIs(t, err, domain.ErrConversationNotFound)

	_, err = uc.Execute(context.Background(), domain.Actor{UserID: uuid.New(), Role: domain.RoleAdmin}, conv.ID, "hi", "")
	assert.ErrorIs(t, err, domain.ErrNotParticipant)

	_, err = uc.Execute(context.Background(), domain.Actor{UserID: buyer}, conv.ID, "", "")
	var ve *domain.ValidationError
	assert.ErrorAs(t, err, &ve)

	limited := NewSendMessageUseCase(w.convs, w.messages, w.broadcaster, w.notifier, fakeLimiter{deny: true})
	_, err = limited.Execute(context.Background(), domain.Actor{UserID: buyer}, conv.ID, "hi", "")
	assert.ErrorIs(t, err, domain.ErrRateLimited)

	assert.Empty(t, w.broadcaster.events)
}

func TestSendMessageSurvivesNotificationFailure(t *testing.T) {
	buyer, seller := uuid.New(), uuid.New()
	conv := openConversation(buyer, seller)
	w := newMessagingWorld(conv)
	w.notifications.err = errors.New("db down")
	uc := NewSendMessageUseCase(w.convs, w.messages, w.broadcaster, w.notifier, fakeLimiter{})

	res, err := uc.Execute(context.Background(), domain.Actor{UserID: seller}, conv.ID, "hi", "")
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, res.Message.ID)
	assert.Len(t, w.broadcaster.ofType(domain.EventMessageCreated), 1)
}

func TestListAndPollMessages(t *testing.T) {
	buyer, seller := uuid.New(), uuid.New()
	conv := openConversation(buyer, seller)
	w := newMessagingWorld(conv)
	send := NewSendMessageUseCase(w.convs, w.messages, w.broadcaster, w.notifier, fakeLimiter{})
	send.now = tickingClock(testNow)
	for _, body := range []string{"m1", "m2", "m3"} {
		_, err := send.Execute(context.Background(), domain.Actor{UserID: buyer}, conv.ID, body, "")
		require.NoError(t, err)
	}
	actor := domain.Actor{UserID: seller}

	history := NewListMessagesUseCase(w.convs, w.messages)
	page, err := history.Execute(context.Background(), actor, conv.ID, "", 2)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "m3", page.Items[0].Body)
	assert.True(t, page.HasMore)

	page, err = history.Execute(context.Background(), actor, conv.ID, page.NextCursor, 2)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "m1", page.Items[0].Body)
	assert.False(t, page.HasMore)

	poll := NewPollMessagesUseCase(w.convs, w.messages)
	page, err = poll.Execute(context.Background(), actor, conv.ID, "", 2)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "m1", page.Items[0].Body)
	require.NotEmpty(t, page.NextCursor)

	page, err = poll.Execute(context.Background(), actor, conv.ID, page.NextCursor, 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "m3", page.Items[0].Body)

	last := page.NextCursor
	page, err = poll.Execute(context.Background(), actor, conv.ID, last, 10)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, last, page.NextCursor)

	_, err = poll.Execute(context.Background(), actor, conv.ID, "garbage", 10)
	assert.Error(t, err)
}

func TestAdminListMessages(t *testing.T) {
	conv := openConversation(uuid.New(), uuid.New())
	w := newMessagingWorld(conv)
	uc := NewAdminListMessagesUseCase(w.convs, w.messages)

	_, err := uc.Execute(context.Background(), domain.Actor{UserID: conv.BuyerID}, conv.ID, "", 10)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	page, err := uc.Execute(context.Background(), domain.Actor{UserID: uuid.New(), Role: domain.RoleAdmin}, conv.ID, "", 10)
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	_, err = uc.Execute(context.Background(), domain.Actor{UserID: uuid.New(), Role: domain.RoleAdmin}, uuid.New(), "", 10)
	assert.ErrorIs(t, err, domain.ErrConversationNotFound)
}
