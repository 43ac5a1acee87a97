package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"marketplace/pkg/pagination"
	"marketplace/services/listing-service/internal/core/domain"
	"marketplace/services/listing-service/internal/core/port/usecases_port"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func TestCreateListing(t *testing.T) {
	repo := newFakeListingRepo()
	uc := NewCreateListingUseCase(repo)
	uc.now = fixedClock(testNow)
	seller := domain.Actor{UserID: uuid.New(), Role: domain.RoleUser}

	listing, err := uc.Execute(context.Background(), seller, domain.ListingInput{
		Category:   domain.CategoryCar,
		Title:      "  Audi A6  ",
		Currency:   "usd",
		Latitude:   ptr(53.9),
		Longitude:  ptr(27.5667),
		Attributes: map[string]interface{}{"make": "Audi"},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusDraft, listing.Status)
	assert.Equal(t, "Audi A6", listing.Title)
	assert.Equal(t, "USD", listing.Currency)
	assert.Len(t, listing.Geohash, 9)
	assert.Equal(t, testNow, listing.CreatedAt)

	stored, err := repo.GetByID(context.Background(), listing.ID)
	require.NoError(t, err)
	assert.Equal(t, seller.UserID, stored.SellerID)
}

func TestCreateListingValidation(t *testing.T) {
	uc := NewCreateListingUseCase(newFakeListingRepo())
	actor := domain.Actor{UserID: uuid.New()}

	cases := map[string]domain.ListingInput{
		"category":   {Category: "boat"},
		"location":   {Category: domain.CategoryLand, Latitude: ptr(10.0)},
		"latitude":   {Category: domain.CategoryLand, Latitude: ptr(91.0), Longitude: ptr(0.0)},
		"currency":   {Category: domain.CategoryLand, Currency: "US"},
		"attributes": {Category: domain.CategoryCar, Attributes: map[string]interface{}{"year": "old"}},
		"price":      {Category: domain.CategoryLand, Price: -1},
	}
	for field, input := range cases {
		_, err := uc.Execute(context.Background(), actor, input)
		var ve *domain.ValidationError
		require.ErrorAs(t, err, &ve, field)
		assert.Equal(t, field, ve.Field)
	}
}

func TestUpdateListing(t *testing.T) {
	seller := uuid.New()
	draft := publishableCar(seller)
	archived := publishableCar(seller)
	archived.Status = domain.StatusArchived
	published := publishableCar(seller)
	published.Status = domain.StatusPublished
	repo := newFakeListingRepo(draft, archived, published)
	uc := NewUpdateListingUseCase(repo)
	owner := domain.Actor{UserID: seller}

	updated, err := uc.Execute(context.Background(), owner, draft.ID, domain.ListingPatch{
		Title:     ptr("BMW X5"),
		Latitude:  ptr(53.9),
		Longitude: ptr(27.56),
	})
	require.NoError(t, err)
	assert.Equal(t, "BMW X5", updated.Title)
	assert.NotEmpty(t, updated.Geohash)

	cleared, err := uc.Execute(context.Background(), owner, draft.ID, domain.ListingPatch{ClearLocation: true})
	require.NoError(t, err)
	assert.Empty(t, cleared.Geohash)

	_, err = uc.Execute(context.Background(), owner, archived.ID, domain.ListingPatch{Title: ptr("x")})
	assert.ErrorIs(t, err, domain.ErrListingReadOnly)

	_, err = uc.Execute(context.Background(), owner, published.ID, domain.ListingPatch{Attributes: map[string]interface{}{"make": "Audi"}})
	var ve *domain.ValidationError
	assert.ErrorAs(t, err, &ve, "published listing keeps required attributes")

	_, err = uc.Execute(context.Background(), domain.Actor{UserID: uuid.New()}, published.ID, domain.ListingPatch{Title: ptr("x")})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = uc.Execute(context.Background(), domain.Actor{UserID: uuid.New()}, draft.ID, domain.ListingPatch{Title: ptr("x")})
	assert.ErrorIs(t, err, domain.ErrListingNotFound, "foreign drafts are invisible")
}

func TestGetListingVisibilityAndViews(t *testing.T) {
	seller := uuid.New()
	draft := publishableCar(seller)
	published := publishableCar(seller)
	published.Status = domain.StatusPublished
	repo := newFakeListingRepo(draft, published)
	uc := NewGetListingUseCase(repo)

	_, err := uc.Execute(context.Background(), nil, draft.ID)
	assert.ErrorIs(t, err, domain.ErrListingNotFound)

	_, err = uc.Execute(context.Background(), &domain.Actor{UserID: seller}, draft.ID)
	assert.NoError(t, err)

	_, err = uc.Execute(context.Background(), &domain.Actor{UserID: uuid.New(), Role: domain.RoleAdmin}, draft.ID)
	assert.NoError(t, err)

	got, err := uc.Execute(context.Background(), nil, published.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.ViewsCount)

	_, err = uc.Execute(context.Background(), &domain.Actor{UserID: seller}, published.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.views[published.ID], "owner views are not counted")
}

func TestChangeListingStatus(t *testing.T) {
	seller := uuid.New()
	listing := publishableCar(seller)
	repo := newFakeListingRepo(listing)
	events := &fakeEvents{}
	uc := NewChangeListingStatusUseCase(repo, events)
	uc.now = fixedClock(testNow)
	owner := domain.Actor{UserID: seller}

	published, err := uc.Execute(context.Background(), owner, listing.ID, domain.StatusPublished)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPublished, published.Status)
	assert.Equal(t, testNow, *published.PublishedAt)
	require.Len(t, events.published, 1)
	assert.Equal(t, listing.ID, events.published[0].ListingID)

	_, err = uc.Execute(context.Background(), owner, listing.ID, domain.StatusDraft)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	admin := domain.Actor{UserID: uuid.New(), Role: domain.RoleAdmin}
	archived, err := uc.Execute(context.Background(), admin, listing.ID, domain.StatusArchived)
	require.NoError(t, err)
	assert.NotNil(t, archived.ArchivedAt)
	require.Len(t, events.archived, 1)
	assert.Equal(t, domain.ArchiveByAdmin, events.archived[0].Reason)

	relisted, err := uc.Execute(context.Background(), owner, listing.ID, domain.StatusPublished)
	require.NoError(t, err)
	assert.Nil(t, relisted.ArchivedAt)
	assert.Len(t, events.published, 2)
}

func TestPublishRequiresValidAttributes(t *testing.T) {
	seller := uuid.New()
	listing := publishableCar(seller)
	listing.Attributes = map[string]interface{}{"make": "Audi"}
	repo := newFakeListingRepo(listing)
	events := &fakeEvents{}
	uc := NewChangeListingStatusUseCase(repo, events)

	_, err := uc.Execute(context.Background(), domain.Actor{UserID: seller}, listing.ID, domain.StatusPublished)
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "attributes", ve.Field)
	assert.Empty(t, events.published)
}

func TestStatusChangeSurvivesEventFailure(t *testing.T) {
	seller := uuid.New()
	listing := publishableCar(seller)
	repo := newFakeListingRepo(listing)
	uc := NewChangeListingStatusUseCase(repo, &fakeEvents{err: errors.New("broker down")})

	_, err := uc.Execute(context.Background(), domain.Actor{UserID: seller}, listing.ID, domain.StatusPublished)
	require.NoError(t, err)

	stored, _ := repo.GetByID(context.Background(), listing.ID)
	assert.Equal(t, domain.StatusPublished, stored.Status)
}

func TestArchiveExpiredListings(t *testing.T) {
	seller := uuid.New()
	old := publishableCar(seller)
	old.Status = domain.StatusPublished
	old.PublishedAt = ptr(testNow.Add(-40 * 24 * time.Hour))
	fresh := publishableCar(seller)
	fresh.Status = domain.StatusPublished
	fresh.PublishedAt = ptr(testNow.Add(-time.Hour))

	repo := newFakeListingRepo(old, fresh)
	events := &fakeEvents{}
	uc := NewArchiveExpiredListingsUseCase(repo, events, 30*24*time.Hour)
	uc.now = fixedClock(testNow)
	uc.batchSize = 1

	n, err := uc.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, events.archived, 1)
	assert.Equal(t, domain.ArchiveExpired, events.archived[0].Reason)

	stored, _ := repo.GetByID(context.Background(), fresh.ID)
	assert.Equal(t, domain.StatusPublished, stored.Status)
}

func TestDeleteListing(t *testing.T) {
	seller := uuid.New()
	draft := publishableCar(seller)
	draft.Images = []string{domain.ListingImagePrefix(draft.ID) + "a.jpg"}
	published := publishableCar(seller)
	published.Status = domain.StatusPublished
	repo := newFakeListingRepo(draft, published)
	storage := &fakeStorage{}
	uc := NewDeleteListingUseCase(repo, storage)

	assert.ErrorIs(t, uc.Execute(context.Background(), domain.Actor{UserID: seller}, published.ID), domain.ErrForbidden)
	require.NoError(t, uc.Execute(context.Background(), domain.Actor{UserID: seller}, draft.ID))
	assert.Equal(t, draft.Images, storage.deleted)

	require.NoError(t, uc.Execute(context.Background(), domain.Actor{UserID: uuid.New(), Role: domain.RoleAdmin}, published.ID))
	_, err := repo.GetByID(context.Background(), published.ID)
	assert.ErrorIs(t, err, domain.ErrListingNotFound)
}

func TestSearchListingsFilters(t *testing.T) {
	repo := newFakeListingRepo()
	uc := NewSearchListingsUseCase(repo)

	_, err := uc.Execute(context.Background(), usecases_port.SearchListingsQuery{
		Category: "car",
		NearLat:  ptr(53.9),
		NearLon:  ptr(27.56),
		Limit:    500,
	})
	require.NoError(t, err)
	f := repo.lastSearch
	require.NotNil(t, f)
	assert.Equal(t, domain.SortNewest, f.Sort)
	assert.Equal(t, pagination.MaxLimit, f.Limit)
	require.NotNil(t, f.Near)
	assert.Len(t, f.Near.Prefixes, 9)
	assert.Len(t, f.Near.Prefixes[0], defaultNearPrecision)

	_, err = uc.Execute(context.Background(), usecases_port.SearchListingsQuery{Sort: "popular"})
	var ve *domain.ValidationError
	assert.ErrorAs(t, err, &ve)

	priceCursor := pagination.ValueCursor(domain.SortPriceAsc, 10, uuid.New()).Encode()
	_, err = uc.Execute(context.Background(), usecases_port.SearchListingsQuery{Cursor: priceCursor})
	assert.ErrorIs(t, err, pagination.ErrInvalidCursor, "cursor from another sort")

	_, err = uc.Execute(context.Background(), usecases_port.SearchListingsQuery{PriceMin: ptr(10.0), PriceMax: ptr(5.0)})
	assert.ErrorAs(t, err, &ve)
}

func TestAdminSearchRejectsUnknownStatus(t *testing.T) {
	uc := NewAdminSearchListingsUseCase(newFakeListingRepo())
	_, err := uc.Execute(context.Background(), usecases_port.AdminSearchQuery{Status: "deleted"})
	var ve *domain.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestListMyListings(t *testing.T) {
	seller := uuid.New()
	a := publishableCar(seller)
	b := publishableCar(seller)
	b.CreatedAt = a.CreatedAt.Add(time.Minute)
	other := publishableCar(uuid.New())
	uc := NewListMyListingsUseCase(newFakeListingRepo(a, b, other))

	page, err := uc.Execute(context.Background(), domain.Actor{UserID: seller}, "", "", 1)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, b.ID, page.Items[0].ID)
	assert.True(t, page.HasMore)
}

func TestListCategories(t *testing.T) {
	cats := NewListCategoriesUseCase().Execute(context.Background())
	require.Len(t, cats, 3)
	assert.Equal(t, domain.CategoryBuilding, cats[0].Name)
	assert.Equal(t, "Building", cats[0].DisplayName)
	assert.Equal(t, "listings/building.json", cats[0].Schema)
}

func TestListingSummary(t *testing.T) {
	l := publishableCar(uuid.New())
	l.Images = []string{"listings/x/1.jpg"}
	uc := NewGetListingSummaryUseCase(newFakeListingRepo(l), &fakeStorage{})

	s, err := uc.Execute(context.Background(), l.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://storage.test/public/listings/x/1.jpg", s.FirstImage)
	assert.Equal(t, l.SellerID, s.SellerID)
}
