package usecase

import (
	"context"
	"testing"

	"marketplace/services/messaging-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reportsWorld struct {
	*messagingWorld
	reports *fakeReportRepo
	conv    *domain.Conversation
	msg     domain.Message
}

func newReportsWorld(t *testing.T) *reportsWorld {
	conv := openConversation(uuid.New(), uuid.New())
	w := &reportsWorld{messagingWorld: newMessagingWorld(conv), reports: newFakeReportRepo(), conv: conv}
	send := NewSendMessageUseCase(w.convs, w.messages, w.broadcaster, w.notifier, fakeLimiter{})
	res, err := send.Execute(context.Background(), domain.Actor{UserID: conv.SellerID}, conv.ID, "send money first", "")
	require.NoError(t, err)
	w.msg = res.Message
	return w
}

func TestCreateReport(t *testing.T) {
	w := newReportsWorld(t)
	uc := NewCreateReportUseCase(w.reports, w.convs, w.messages)
	buyer := domain.Actor{UserID: w.conv.BuyerID}

	report, err := uc.Execute(context.Background(), buyer, domain.ReportInput{
		TargetType: domain.ReportTargetMessage,
		TargetID:   w.msg.ID,
		Reason:     domain.ReasonFraud,
	})
	require.NoError(t, err)
	assert.Equal(t, w.conv.ID, report.ConversationID)
	assert.Equal(t, domain.ReportOpen, report.Status)

	_, err = uc.Execute(context.Background(), buyer, domain.ReportInput{
		TargetType: domain.ReportTargetMessage,
		TargetID:   w.msg.ID,
		Reason:     domain.ReasonSpam,
	})
	assert.ErrorIs(t, err, domain.ErrDuplicateReport)

	_, err = uc.Execute(context.Background(), buyer, domain.ReportInput{
		TargetType: domain.ReportTargetConversation,
		TargetID:   w.conv.ID,
		Reason:     domain.ReasonAbuse,
	})
	assert.NoError(t, err)

	_, err = uc.Execute(context.Background(), domain.Actor{UserID: w.conv.SellerID}, domain.ReportInput{
		TargetType: domain.ReportTargetMessage,
		TargetID:   w.msg.ID,
		Reason:     domain.ReasonSpam,
	})
	var ve *domain.ValidationError
	assert.ErrorAs(t, err, &ve, "own message")

	_, err = uc.Execute(context.Background(), domain.Actor{UserID: uuid.New()}, domain.ReportInput{
		TargetType: domain.ReportTargetConversation,
		TargetID:   w.conv.ID,
		Reason:     domain.ReasonSpam,
	})
	assert.ErrorIs(t, err, domain.ErrConversationNotFound)
}

func TestReportLifecycle(t *testing.T) {
	w := newReportsWorld(t)
	reporter := domain.Actor{UserID: w.conv.BuyerID}
	admin := domain.Actor{UserID: uuid.New(), Role: domain.RoleAdmin}
	report, err := NewCreateReportUseCase(w.reports, w.convs, w.messages).Execute(context.Background(), reporter, domain.ReportInput{
		TargetType: domain.ReportTargetMessage,
		TargetID:   w.msg.ID,
		Reason:     domain.ReasonFraud,
	})
	require.NoError(t, err)

	transition := NewTransitionReportUseCase(w.reports, w.notifier)
	transition.now = fixedClock(testNow)

	_, err = transition.Execute(context.Background(), reporter, report.ID, domain.ReportReviewing, "")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	reviewing, err := transition.Execute(context.Background(), admin, report.ID, domain.ReportReviewing, "")
	require.NoError(t, err)
	assert.Equal(t, domain.ReportReviewing, reviewing.Status)
	assert.Nil(t, reviewing.ResolvedBy)
	assert.Empty(t, w.notifications.forUser(reporter.UserID))

	_, err = transition.Execute(context.Background(), admin, report.ID, domain.ReportOpen, "")
	assert.ErrorIs(t, err, domain.ErrInvalidReportTransition)

	resolved, err := transition.Execute(context.Background(), admin, report.ID, domain.ReportResolved, "  user banned ")
	require.NoError(t, err)
	assert.Equal(t, domain.ReportResolved, resolved.Status)
	assert.Equal(t, "user banned", resolved.ResolutionNote)
	require.NotNil(t, resolved.ResolvedBy)
	assert.Equal(t, admin.UserID, *resolved.ResolvedBy)

	notes := w.notifications.forUser(reporter.UserID)
	require.Len(t, notes, 1)
	assert.Equal(t, domain.NotificationReportUpdated, notes[0].Type)

	_, err = transition.Execute(context.Background(), admin, report.ID, domain.ReportDismissed, "")
	assert.ErrorIs(t, err, domain.ErrInvalidReportTransition)

	details, err := NewGetReportUseCase(w.reports, w.convs, w.messages).Execute(context.Background(), admin, report.ID)
	require.NoError(t, err)
	assert.Equal(t, w.conv.ID, details.Conversation.ID)
	require.NotNil(t, details.Message)
	assert.Equal(t, w.msg.ID, details.Message.ID)

	// после решения можно пожаловаться снова
	_, err = NewCreateReportUseCase(w.reports, w.convs, w.messages).Execute(context.Background(), reporter, domain.ReportInput{
		TargetType: domain.ReportTargetMessage,
		TargetID:   w.msg.ID,
		Reason:     domain.ReasonSpam,
	})
	assert.NoError(t, err)
}

func TestListReports(t *testing.T) {
	w := newReportsWorld(t)
	reporter := domain.Actor{UserID: w.conv.BuyerID}
	_, err := NewCreateReportUseCase(w.reports, w.convs, w.messages).Execute(context.Background(), reporter, domain.ReportInput{
		TargetType: domain.ReportTargetConversation,
		TargetID:   w.conv.ID,
		Reason:     domain.ReasonOther,
		Details:    "rude",
	})
	require.NoError(t, err)

	list := NewListReportsUseCase(w.reports)
	_, err = list.Execute(context.Background(), reporter, "", "", 10)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	admin := domain.Actor{UserID: uuid.New(), Role: domain.RoleAdmin}
	page, err := list.Execute(context.Background(), admin, domain.ReportOpen, "", 10)
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)

	_, err = list.Execute(context.Background(), admin, "closed", "", 10)
	var ve *domain.ValidationError
	assert.ErrorAs(t, err, &ve)

	mine, err := NewListMyReportsUseCase(w.reports).Execute(context.Background(), reporter, "", 10)
	require.NoError(t, err)
	assert.Len(t, mine.Items, 1)
}

func TestMessagingAnalyticsDays(t *testing.T) {
	repo := &fakeAnalyticsRepo{}
	uc := NewMessagingAnalyticsUseCase(repo)
	admin := domain.Actor{UserID: uuid.New(), Role: domain.RoleAdmin}

	res, err := uc.Execute(context.Background(), admin, 0)
	require.NoError(t, err)
	assert.Equal(t, 30, res.Days)

	_, err = uc.Execute(context.Background(), admin, 400)
	assert.Error(t, err)
	_, err = uc.Execute(context.Background(), domain.Actor{UserID: uuid.New()}, 7)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}
