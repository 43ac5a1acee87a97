package postgres_adapter

import (
	"context"
	"testing"
	"time"

	"marketplace/pkg/pagination"
	"marketplace/services/listing-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var listingColumnNames = []string{
	"id", "seller_id", "category", "title", "description", "price", "currency",
	"city", "region", "latitude", "longitude", "geohash", "attributes", "images", "status",
	"views_count", "source_url", "source_image_url", "published_at", "archived_at", "created_at", "updated_at",
}

func addListingRow(rows *pgxmock.Rows, id uuid.UUID, price float64, publishedAt time.Time) *pgxmock.Rows {
	return rows.AddRow(
		id, uuid.New(), "car", "Audi A4", "", price, "USD",
		"Minsk", "", (*float64)(nil), (*float64)(nil), "",
		map[string]interface{}{"make": "Audi"}, []string{}, "published",
		int64(3), (*string)(nil), (*string)(nil), &publishedAt, (*time.Time)(nil), publishedAt, publishedAt,
	)
}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestListingRepository_GetByIDNotFound(t *testing.T) {
	mock := newMock(t)
	repo, err := NewPostgresListingRepository(mock)
	require.NoError(t, err)

	id := uuid.New()
	mock.ExpectQuery(`FROM listings l WHERE l.id = \$1`).
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)

	_, err = repo.GetByID(context.Background(), id)
	assert.ErrorIs(t, err, domain.ErrListingNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListingRepository_UpdateStatusConflict(t *testing.T) {
	mock := newMock(t)
	repo, _ := NewPostgresListingRepository(mock)

	now := time.Now()
	l := &domain.Listing{ID: uuid.New(), Status: domain.StatusPublished, PublishedAt: &now, UpdatedAt: now}
	mock.ExpectExec(`UPDATE listings SET status = \$2`).
		WithArgs(l.ID, "published", l.PublishedAt, l.ArchivedAt, l.UpdatedAt, "draft").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.UpdateStatus(context.Background(), l, domain.StatusDraft)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListingRepository_SearchBuildsNextCursor(t *testing.T) {
	mock := newMock(t)
	repo, _ := NewPostgresListingRepository(mock)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	rows := mock.NewRows(listingColumnNames)
	for i, id := range ids {
		addListingRow(rows, id, 1000, base.Add(-time.Duration(i)*time.Hour))
	}

	mock.ExpectQuery(`l.status = 'published' AND l.category = \$1 .*ORDER BY l.published_at DESC, l.id DESC LIMIT \$2`).
		WithArgs("car", 3).
		WillReturnRows(rows)

	page, err := repo.Search(context.Background(), domain.ListingFilters{
		Category: domain.CategoryCar,
		Sort:     domain.SortNewest,
		Limit:    2,
	})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.True(t, page.HasMore)

	next, err := pagination.DecodeFor(page.NextCursor, domain.SortNewest)
	require.NoError(t, err)
	assert.Equal(t, ids[1], next.ID)
	assert.True(t, next.Time.Equal(base.Add(-time.Hour)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListingRepository_SearchWithPriceCursor(t *testing.T) {
	mock := newMock(t)
	repo, _ := NewPostgresListingRepository(mock)

	cursorID := uuid.New()
	cursor := pagination.ValueCursor(domain.SortPriceAsc, 500, cursorID)

	mock.ExpectQuery(`\(l.price, l.id\) > \(\$1, \$2\) ORDER BY l.price ASC, l.id ASC LIMIT \$3`).
		WithArgs(float64(500), cursorID, 21).
		WillReturnRows(mock.NewRows(listingColumnNames))

	page, err := repo.Search(context.Background(), domain.ListingFilters{
		Sort:   domain.SortPriceAsc,
		Cursor: &cursor,
		Limit:  20,
	})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.NotNil(t, page.Items)
	assert.False(t, page.HasMore)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListingRepository_AppendImageLimit(t *testing.T) {
	mock := newMock(t)
	repo, _ := NewPostgresListingRepository(mock)

	id := uuid.New()
	mock.ExpectExec(`array_append`).
		WithArgs(id, "listings/x/1.jpg", domain.MaxImagesPerListing).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	added, err := repo.AppendImage(context.Background(), id, "listings/x/1.jpg", domain.MaxImagesPerListing)
	require.NoError(t, err)
	assert.False(t, added)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFavoritesRepository_AddDuplicateIsSuccess(t *testing.T) {
	mock := newMock(t)
	repo, _ := NewPostgresFavoritesRepository(mock)

	userID, listingID := uuid.New(), uuid.New()
	mock.ExpectExec(`INSERT INTO favorites`).
		WithArgs(userID, listingID).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	assert.NoError(t, repo.Add(context.Background(), userID, listingID))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFavoritesRepository_FindPaginatedByUser(t *testing.T) {
	mock := newMock(t)
	repo, _ := NewPostgresFavoritesRepository(mock)

	userID := uuid.New()
	favoritedAt := time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC)
	listingID := uuid.New()

	rows := mock.NewRows(append(append([]string{}, listingColumnNames...), "favorited_at"))
	rows.AddRow(
		listingID, uuid.New(), "land", "Участок", "", 15000.0, "USD",
		"Brest", "", (*float64)(nil), (*float64)(nil), "",
		map[string]interface{}{}, []string{}, "archived",
		int64(0), (*string)(nil), (*string)(nil), (*time.Time)(nil), (*time.Time)(nil), favoritedAt, favoritedAt,
		favoritedAt,
	)

	mock.ExpectQuery(`FROM favorites f JOIN listings l .*f.user_id = \$1`).
		WithArgs(userID, 11).
		WillReturnRows(rows)

	page, err := repo.FindPaginatedByUser(context.Background(), userID, nil, 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, listingID, page.Items[0].Listing.ID)
	assert.Equal(t, domain.StatusArchived, page.Items[0].Listing.Status)
	assert.True(t, page.Items[0].FavoritedAt.Equal(favoritedAt))
	assert.False(t, page.HasMore)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInquiryRepository_MarkReadAndNotFound(t *testing.T) {
	mock := newMock(t)
	repo, _ := NewPostgresInquiryRepository(mock)

	id := uuid.New()
	at := time.Now()
	mock.ExpectExec(`UPDATE inquiries SET read_at = \$2 WHERE id = \$1 AND read_at IS NULL`).
		WithArgs(id, at).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery(`FROM inquiries WHERE id = \$1`).
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)

	require.NoError(t, repo.MarkRead(context.Background(), id, at))
	_, err := repo.GetByID(context.Background(), id)
	assert.ErrorIs(t, err, domain.ErrInquiryNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnalyticsRepository_ListingAnalytics(t *testing.T) {
	mock := newMock(t)
	repo, _ := NewPostgresAnalyticsRepository(mock)

	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	topID := uuid.New()

	mock.ExpectQuery(`GROUP BY category, status`).
		WillReturnRows(mock.NewRows([]string{"category", "status", "count"}).
			AddRow("car", "published", int64(4)).
			AddRow("land", "draft", int64(1)))
	mock.ExpectQuery(`generate_series.*LEFT JOIN listings t`).
		WithArgs(2).
		WillReturnRows(mock.NewRows([]string{"day", "count"}).
			AddRow(day, int64(2)).
			AddRow(day.AddDate(0, 0, 1), int64(0)))
	mock.ExpectQuery(`generate_series.*LEFT JOIN inquiries t`).
		WithArgs(2).
		WillReturnRows(mock.NewRows([]string{"day", "count"}).
			AddRow(day, int64(0)).
			AddRow(day.AddDate(0, 0, 1), int64(5)))
	mock.ExpectQuery(`ORDER BY l.views_count DESC`).
		WithArgs(10).
		WillReturnRows(mock.NewRows([]string{"id", "title", "category", "views_count", "favorites"}).
			AddRow(topID, "Audi A4", "car", int64(120), int64(7)))
	mock.ExpectQuery(`SELECT count\(\*\) FROM favorites`).
		WillReturnRows(mock.NewRows([]string{"count"}).AddRow(int64(9)))

	res, err := repo.ListingAnalytics(context.Background(), 2, 10)
	require.NoError(t, err)
	assert.Len(t, res.ByCategoryStatus, 2)
	assert.Equal(t, domain.CategoryCar, res.ByCategoryStatus[0].Category)
	assert.Len(t, res.NewListingsPerDay, 2)
	assert.Equal(t, int64(5), res.InquiriesPerDay[1].Count)
	require.Len(t, res.TopViewed, 1)
	assert.Equal(t, topID, res.TopViewed[0].ID)
	assert.Equal(t, int64(9), res.FavoritesTotal)
	assert.NoError(t, mock.ExpectationsWereMet())
}
