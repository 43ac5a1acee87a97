package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"marketplace/pkg/pagination"
	"marketplace/services/listing-service/internal/core/domain"

	"github.com/google/uuid"
)

type fakeListingRepo struct {
	mu         sync.Mutex
	listings   map[uuid.UUID]*domain.Listing
	views      map[uuid.UUID]int
	lastSearch *domain.ListingFilters
}

func newFakeListingRepo(items ...*domain.Listing) *fakeListingRepo {
	r := &fakeListingRepo{listings: map[uuid.UUID]*domain.Listing{}, views: map[uuid.UUID]int{}}
	for _, l := range items {
		r.listings[l.ID] = l
	}
	return r
}

func (r *fakeListingRepo) copyOf(l *domain.Listing) *domain.Listing {
	c := *l
	c.Images = append([]string(nil), l.Images...)
	return &c
}

func (r *fakeListingRepo) Create(ctx context.Context, l *domain.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listings[l.ID] = r.copyOf(l)
	return nil
}

func (r *fakeListingRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.listings[id]
	if !ok {
		return nil, domain.ErrListingNotFound
	}
	return r.copyOf(l), nil
}

func (r *fakeListingRepo) Update(ctx context.Context, l *domain.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.listings[l.ID]; !ok {
		return domain.ErrListingNotFound
	}
	r.listings[l.ID] = r.copyOf(l)
	return nil
}

func (r *fakeListingRepo) UpdateStatus(ctx context.Context, l *domain.Listing, from domain.ListingStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.listings[l.ID]
	if !ok {
		return domain.ErrListingNotFound
	}
	if cur.Status != from {
		return domain.ErrInvalidTransition
	}
	r.listings[l.ID] = r.copyOf(l)
	return nil
}

func (r *fakeListingRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.listings, id)
	return nil
}

func (r *fakeListingRepo) IncrementViews(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.views[id]++
	return nil
}

func (r *fakeListingRepo) AppendImage(ctx context.Context, id uuid.UUID, path string, max int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l := r.listings[id]
	if len(l.Images) >= max || l.HasImage(path) {
		return false, nil
	}
	l.Images = append(l.Images, path)
	return true, nil
}

func (r *fakeListingRepo) RemoveImage(ctx context.Context, id uuid.UUID, path string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l := r.listings[id]
	var kept []string
	for _, p := range l.Images {
		if p != path {
			kept = append(kept, p)
		}
	}
	removed := len(kept) != len(l.Images)
	l.Images = kept
	return removed, nil
}

func (r *fakeListingRepo) Search(ctx context.Context, f domain.ListingFilters) (*domain.ListingPage, error) {
	r.mu.Lock()
	r.lastSearch = &f
	r.mu.Unlock()
	page := pagination.BuildPage([]domain.Listing{}, f.Limit, func(l domain.Listing) pagination.Cursor {
		return pagination.TimeCursor(f.Sort, *l.PublishedAt, l.ID)
	})
	return &page, nil
}

func (r *fakeListingRepo) AdminSearch(ctx context.Context, f domain.AdminListingFilters) (*domain.ListingPage, error) {
	return r.Search(ctx, f.ListingFilters)
}

func (r *fakeListingRepo) ListBySeller(ctx context.Context, sellerID uuid.UUID, status domain.ListingStatus, cursor *pagination.Cursor, limit int) (*domain.ListingPage, error) {
	r.mu.Lock()
	var items []domain.Listing
	for _, l := range r.listings {
		if l.SellerID == sellerID && (status == "" || l.Status == status) {
			items = append(items, *r.copyOf(l))
		}
	}
	r.mu.Unlock()
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	page := pagination.BuildPage(items, limit, func(l domain.Listing) pagination.Cursor {
		return pagination.TimeCursor(domain.SortCreated, l.CreatedAt, l.ID)
	})
	return &page, nil
}

func (r *fakeListingRepo) FindExpired(ctx context.Context, publishedBefore time.Time, limit int) ([]domain.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Listing
	for _, l := range r.listings {
		if l.Status == domain.StatusPublished && l.PublishedAt != nil && l.PublishedAt.Before(publishedBefore) {
			out = append(out, *r.copyOf(l))
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

type fakeEvents struct {
	mu        sync.Mutex
	published []domain.ListingPublishedEvent
	archived  []domain.ListingArchivedEvent
	inquiries []domain.InquiryCreatedEvent
	err       error
}

func (e *fakeEvents) PublishListingPublished(ctx context.Context, ev domain.ListingPublishedEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.published = append(e.published, ev)
	return e.err
}

func (e *fakeEvents) PublishListingArchived(ctx context.Context, ev domain.ListingArchivedEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.archived = append(e.archived, ev)
	return e.err
}

func (e *fakeEvents) PublishInquiryCreated(ctx context.Context, ev domain.InquiryCreatedEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.inquiries = append(e.inquiries, ev)
	return e.err
}

type fakeStorage struct {
	deleted []string
}

func (s *fakeStorage) CreateSignedUploadURL(ctx context.Context, objectPath string) (*domain.SignedUpload, error) {
	return &domain.SignedUpload{Path: objectPath, SignedURL: "https://storage.test/upload/" + objectPath + "?token=t", Token: "t"}, nil
}

func (s *fakeStorage) DeleteObject(ctx context.Context, objectPath string) error {
	s.deleted = append(s.deleted, objectPath)
	return nil
}

func (s *fakeStorage) PublicURL(objectPath string) string {
	return "https://storage.test/public/" + objectPath
}

type fakeInquiryRepo struct {
	items map[uuid.UUID]*domain.Inquiry
}

func newFakeInquiryRepo() *fakeInquiryRepo {
	return &fakeInquiryRepo{items: map[uuid.UUID]*domain.Inquiry{}}
}

func (r *fakeInquiryRepo) Create(ctx context.Context, in *domain.Inquiry) error {
	c := *in
	r.items[in.ID] = &c
	return nil
}

func (r *fakeInquiryRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Inquiry, error) {
	in, ok := r.items[id]
	if !ok {
		return nil, domain.ErrInquiryNotFound
	}
	c := *in
	return &c, nil
}

func (r *fakeInquiryRepo) ListBySeller(ctx context.Context, sellerID uuid.UUID, cursor *pagination.Cursor, limit int) (*domain.InquiryPage, error) {
	return &domain.InquiryPage{Items: []domain.Inquiry{}}, nil
}

func (r *fakeInquiryRepo) ListByBuyer(ctx context.Context, buyerID uuid.UUID, cursor *pagination.Cursor, limit int) (*domain.InquiryPage, error) {
	return &domain.InquiryPage{Items: []domain.Inquiry{}}, nil
}

func (r *fakeInquiryRepo) MarkRead(ctx context.Context, id uuid.UUID, at time.Time) error {
	r.items[id].ReadAt = &at
	return nil
}

type fakeFavorites struct {
	added map[uuid.UUID][]uuid.UUID
}

func (f *fakeFavorites) Add(ctx context.Context, userID, listingID uuid.UUID) error {
	if f.added == nil {
		f.added = map[uuid.UUID][]uuid.UUID{}
	}
	f.added[userID] = append(f.added[userID], listingID)
	return nil
}

func (f *fakeFavorites) Remove(ctx context.Context, userID, listingID uuid.UUID) error { return nil }

func (f *fakeFavorites) FindPaginatedByUser(ctx context.Context, userID uuid.UUID, cursor *pagination.Cursor, limit int) (*domain.FavoritePage, error) {
	return &domain.FavoritePage{Items: []domain.FavoriteListing{}}, nil
}

func (f *fakeFavorites) FindFavoriteIDsByUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	return f.added[userID], nil
}

type fakeScraper struct {
	result *domain.ScrapedListing
	err    error
	url    string
}

func (s *fakeScraper) Scrape(ctx context.Context, url string) (*domain.ScrapedListing, error) {
	s.url = url
	return s.result, s.err
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func publishableCar(seller uuid.UUID) *domain.Listing {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	return &domain.Listing{
		ID:         uuid.New(),
		SellerID:   seller,
		Category:   domain.CategoryCar,
		Title:      "Audi A6 2019",
		Price:      25000,
		Currency:   "USD",
		City:       "Minsk",
		Attributes: map[string]interface{}{"make": "Audi", "model": "A6", "year": 2019},
		Images:     []string{},
		Status:     domain.StatusDraft,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}
