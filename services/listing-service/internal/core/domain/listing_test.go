package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestListingLifecycle(t *testing.T) {
	cases := []struct {
		from   ListingStatus
		to     ListingStatus
		expect bool
	}{
		{StatusDraft, StatusPublished, true},
		{StatusDraft, StatusArchived, false},
		{StatusPublished, StatusArchived, true},
		{StatusPublished, StatusDraft, false},
		{StatusArchived, StatusPublished, true},
		{StatusArchived, StatusDraft, false},
		{StatusPublished, StatusPublished, false},
	}
	for _, c := range cases {
		l := &Listing{Status: c.from}
		assert.Equal(t, c.expect, l.CanTransition(c.to), "%s -> %s", c.from, c.to)
	}
}

func TestApplyTransitionTimestamps(t *testing.T) {
	now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	l := &Listing{Status: StatusArchived, ArchivedAt: &now}

	later := now.Add(time.Hour)
	l.ApplyTransition(StatusPublished, later)
	assert.Equal(t, StatusPublished, l.Status)
	assert.Equal(t, later, *l.PublishedAt)
	assert.Nil(t, l.ArchivedAt, "relist clears archived_at")

	l.ApplyTransition(StatusArchived, later.Add(time.Hour))
	assert.NotNil(t, l.ArchivedAt)
	assert.Equal(t, later, *l.PublishedAt)
}

func TestPublishProblems(t *testing.T) {
	l := &Listing{Title: "Audi", Price: 100, Currency: "USD", City: "Minsk"}
	assert.NoError(t, l.PublishProblems())

	l.Price = 0
	var ve *ValidationError
	assert.ErrorAs(t, l.PublishProblems(), &ve)
	assert.Equal(t, "price", ve.Field)
}

func TestImagePathBelongsTo(t *testing.T) {
	id := uuid.New()
	prefix := ListingImagePrefix(id)

	assert.True(t, ImagePathBelongsTo(prefix+"a.jpg", id))
	assert.False(t, ImagePathBelongsTo(prefix, id))
	assert.False(t, ImagePathBelongsTo(prefix+"../other/a.jpg", id))
	assert.False(t, ImagePathBelongsTo(ListingImagePrefix(uuid.New())+"a.jpg", id))
}

func TestActorCanManage(t *testing.T) {
	owner := uuid.New()
	l := &Listing{SellerID: owner}
	assert.True(t, Actor{UserID: owner, Role: RoleUser}.CanManage(l))
	assert.True(t, Actor{UserID: uuid.New(), Role: RoleAdmin}.CanManage(l))
	assert.False(t, Actor{UserID: uuid.New(), Role: RoleUser}.CanManage(l))
}
