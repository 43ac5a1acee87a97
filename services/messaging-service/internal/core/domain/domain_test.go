package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeBody(t *testing.T) {
	body, err := NormalizeBody("  hello \n")
	require.NoError(t, err)
	assert.Equal(t, "hello", body)

	_, err = NormalizeBody(" \t ")
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "body", ve.Field)

	_, err = NormalizeBody(strings.Repeat("я", MaxMessageLength))
	assert.NoError(t, err)
	_, err = NormalizeBody(strings.Repeat("я", MaxMessageLength+1))
	assert.Error(t, err)
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "first line", Preview("first line\nsecond"))
	long := strings.Repeat("a", 200)
	p := Preview(long)
	assert.Equal(t, previewLength, len([]rune(p)))
	assert.True(t, strings.HasSuffix(p, "…"))
}

func TestReportTransitions(t *testing.T) {
	cases := []struct {
		from, to ReportStatus
		ok       bool
	}{
		{ReportOpen, ReportReviewing, true},
		{ReportOpen, ReportResolved, true},
		{ReportOpen, ReportDismissed, true},
		{ReportReviewing, ReportResolved, true},
		{ReportReviewing, ReportDismissed, true},
		{ReportReviewing, ReportOpen, false},
		{ReportOpen, ReportOpen, false},
		{ReportResolved, ReportReviewing, false},
		{ReportDismissed, ReportResolved, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.ok, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestReportInputValidate(t *testing.T) {
	in := ReportInput{TargetType: ReportTargetMessage, TargetID: uuid.New(), Reason: ReasonSpam, Details: "  spam link  "}
	require.NoError(t, in.Validate())
	assert.Equal(t, "spam link", in.Details)

	bad := in
	bad.Reason = "boring"
	assert.Error(t, bad.Validate())

	bad = in
	bad.TargetType = "listing"
	assert.Error(t, bad.Validate())

	bad = in
	bad.TargetID = uuid.Nil
	assert.Error(t, bad.Validate())
}

func TestConversationParticipants(t *testing.T) {
	buyer, seller := uuid.New(), uuid.New()
	read := time.Now()
	c := Conversation{BuyerID: buyer, SellerID: seller, SellerLastReadAt: &read}

	assert.True(t, c.IsParticipant(buyer))
	assert.False(t, c.IsParticipant(uuid.New()))
	assert.Equal(t, seller, c.Counterpart(buyer))
	assert.Equal(t, buyer, c.Counterpart(seller))
	assert.Nil(t, c.LastReadAt(buyer))
	assert.Equal(t, &read, c.LastReadAt(seller))
	assert.True(t, c.CanView(Actor{UserID: uuid.New(), Role: RoleAdmin}))
	assert.False(t, c.CanView(Actor{UserID: uuid.New(), Role: RoleUser}))
}

func TestMessageIsFrom(t *testing.T) {
	sender := uuid.New()
	m := Message{SenderID: &sender}
	assert.True(t, m.IsFrom(sender))
	system := Message{Kind: MessageSystem}
	assert.False(t, system.IsFrom(sender))
}
