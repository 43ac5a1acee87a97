package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"marketplace/pkg/logger"
	"marketplace/services/listing-service/internal/core/domain"
	"marketplace/services/listing-service/internal/core/port/usecases_port"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type searchStub struct {
	got  usecases_port.SearchListingsQuery
	page *domain.ListingPage
}

func (s *searchStub) Execute(_ context.Context, q usecases_port.SearchListingsQuery) (*domain.ListingPage, error) {
	s.got = q
	return s.page, nil
}

type createStub struct{ called bool }

func (s *createStub) Execute(_ context.Context, actor domain.Actor, in domain.ListingInput) (*domain.Listing, error) {
	s.called = true
	return &domain.Listing{ID: uuid.New(), SellerID: actor.UserID, Category: in.Category, Status: domain.StatusDraft}, nil
}

type statusStub struct{ err error }

func (s statusStub) Execute(context.Context, domain.Actor, uuid.UUID, domain.ListingStatus) (*domain.Listing, error) {
	return nil, s.err
}

type summaryStub struct{ err error }

func (s summaryStub) Execute(context.Context, uuid.UUID) (*domain.ListingSummary, error) {
	return nil, s.err
}

type addFavoriteStub struct {
	userID, listingID uuid.UUID
}

func (s *addFavoriteStub) Execute(_ context.Context, userID, listingID uuid.UUID) error {
	s.userID, s.listingID = userID, listingID
	return nil
}

type harness struct {
	search   *searchStub
	create   *createStub
	favorite *addFavoriteStub
	router   http.Handler
}

func newHarness(statusErr, summaryErr error) *harness {
	h := &harness{
		search:   &searchStub{page: &domain.ListingPage{}},
		create:   &createStub{},
		favorite: &addFavoriteStub{},
	}
	imageURL := func(p string) string { return "https://cdn.example/" + p }
	handlers := Handlers{
		Listings: NewListingsHandler(ListingsUseCases{
			Create:  h.create,
			Search:  h.search,
			Status:  statusStub{err: statusErr},
			Summary: summaryStub{err: summaryErr},
		}, imageURL),
		Media:     NewMediaHandler(nil, nil, nil, imageURL),
		Favorites: NewFavoritesHandler(h.favorite, nil, nil, nil, imageURL),
		Inquiries: NewInquiriesHandler(nil, nil, nil, nil),
		Admin:     NewAdminHandler(nil, nil, imageURL),
	}
	h.router = NewRouter(handlers, nil, logger.NewNoop())
	return h
}

func doRequest(h http.Handler, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func userHeaders(id uuid.UUID, role string) map[string]string {
	return map[string]string{headerUserID: id.String(), headerUserRole: role}
}

func TestSearchListingsReturnsPage(t *testing.T) {
	h := newHarness(nil, nil)
	published := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	h.search.page = &domain.ListingPage{
		Items: []domain.Listing{{
			ID:          uuid.New(),
			Category:    domain.CategoryCar,
			Title:       "Audi A4",
			Images:      []string{"listings/x/1.jpg"},
			Status:      domain.StatusPublished,
			PublishedAt: &published,
		}},
		NextCursor: "abc",
		HasMore:    true,
	}

	rec := doRequest(h.router, http.MethodGet, "/api/v1/listings?category=car&price_min=100&limit=5", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body PageResponse[ListingResponse]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Items, 1)
	assert.Equal(t, "abc", body.NextCursor)
	assert.True(t, body.HasMore)
	assert.Equal(t, "https://cdn.example/listings/x/1.jpg", body.Items[0].Images[0].URL)

	assert.Equal(t, "car", h.search.got.Category)
	assert.Equal(t, 5, h.search.got.Limit)
	require.NotNil(t, h.search.got.PriceMin)
	assert.Equal(t, 100.0, *h.search.got.PriceMin)
}

func TestSearchListingsRejectsBadNumber(t *testing.T) {
	h := newHarness(nil, nil)
	rec := doRequest(h.router, http.MethodGet, "/api/v1/listings?price_max=cheap", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateListingRequiresIdentity(t *testing.T) {
	h := newHarness(nil, nil)
	rec := doRequest(h.router, http.MethodPost, "/api/v1/listings", `{"category":"car"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, h.create.called)
}

func TestCreateListingValidatesBody(t *testing.T) {
	h := newHarness(nil, nil)
	rec := doRequest(h.router, http.MethodPost, "/api/v1/listings", `{"category":"boat"}`,
		userHeaders(uuid.New(), domain.RoleUser))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "category")
	assert.False(t, h.create.called)

	rec = doRequest(h.router, http.MethodPost, "/api/v1/listings", `{"category":"car","colour":"red"}`,
		userHeaders(uuid.New(), domain.RoleUser))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateListingCreatesDraft(t *testing.T) {
	h := newHarness(nil, nil)
	seller := uuid.New()
	rec := doRequest(h.router, http.MethodPost, "/api/v1/listings", `{"category":"land","title":"Plot"}`,
		userHeaders(seller, domain.RoleUser))
	require.Equal(t, http.StatusCreated, rec.Code)

	var body ListingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, seller, body.SellerID)
	assert.Equal(t, domain.StatusDraft, body.Status)
	assert.NotNil(t, body.Attributes)
}

func TestChangeStatusMapsInvalidTransition(t *testing.T) {
	h := newHarness(domain.ErrInvalidTransition, nil)
	rec := doRequest(h.router, http.MethodPost, "/api/v1/listings/"+uuid.NewString()+"/status", `{"status":"published"}`,
		userHeaders(uuid.New(), domain.RoleUser))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestChangeStatusRejectsUnknownTarget(t *testing.T) {
	h := newHarness(nil, nil)
	rec := doRequest(h.router, http.MethodPost, "/api/v1/listings/"+uuid.NewString()+"/status", `{"status":"draft"}`,
		userHeaders(uuid.New(), domain.RoleUser))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	h := newHarness(nil, nil)
	rec := doRequest(h.router, http.MethodGet, "/api/v1/admin/listings", "", userHeaders(uuid.New(), domain.RoleUser))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestInvalidUserHeaderIsRejectedOnPublicRoutes(t *testing.T) {
	h := newHarness(nil, nil)
	rec := doRequest(h.router, http.MethodGet, "/api/v1/listings", "", map[string]string{headerUserID: "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAddFavoriteUsesActorID(t *testing.T) {
	h := newHarness(nil, nil)
	user, listing := uuid.New(), uuid.New()
	rec := doRequest(h.router, http.MethodPost, "/api/v1/favorites", `{"listing_id":"`+listing.String()+`"}`,
		userHeaders(user, domain.RoleUser))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, user, h.favorite.userID)
	assert.Equal(t, listing, h.favorite.listingID)
}

func TestInternalSummaryNotFound(t *testing.T) {
	h := newHarness(nil, domain.ErrListingNotFound)
	rec := doRequest(h.router, http.MethodGet, "/api/v1/internal/listings/"+uuid.NewString(), "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(h.router, http.MethodGet, "/api/v1/internal/listings/not-a-uuid", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTraceIDIsEchoed(t *testing.T) {
	h := newHarness(nil, nil)
	trace := uuid.NewString()
	rec := doRequest(h.router, http.MethodGet, "/healthz", "", map[string]string{"X-Trace-ID": trace})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, trace, rec.Header().Get("X-Trace-ID"))
}
