package postgres_adapter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"marketplace/pkg/contextkeys"
	"marketplace/pkg/pagination"
	"marketplace/services/listing-service/internal/core/domain"
	"marketplace/services/listing-service/internal/core/port"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const listingColumns = `l.id, l.seller_id, l.category, l.title, l.description, l.price, l.currency,
	l.city, l.region, l.latitude, l.longitude, l.geohash, l.attributes, l.images, l.status,
	l.views_count, l.source_url, l.source_image_url, l.published_at, l.archived_at, l.created_at, l.updated_at`

// PostgresListingRepository - реализация порта объявлений для PostgreSQL.
type PostgresListingRepository struct {
	db DB
}

func NewPostgresListingRepository(db DB) (*PostgresListingRepository, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle cannot be nil")
	}
	return &PostgresListingRepository{db: db}, nil
}

func (r *PostgresListingRepository) logger(ctx context.Context, method string) port.LoggerPort {
	return contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component": "PostgresListingRepository",
		"method":    method,
	})
}

func scanListing(row pgx.Row) (*domain.Listing, error) {
	var (
		l         domain.Listing
		category  string
		status    string
		sourceURL *string
		sourceImg *string
	)
	err := row.Scan(
		&l.ID, &l.SellerID, &category, &l.Title, &l.Description, &l.Price, &l.Currency,
		&l.City, &l.Region, &l.Latitude, &l.Longitude, &l.Geohash, &l.Attributes, &l.Images, &status,
		&l.ViewsCount, &sourceURL, &sourceImg, &l.PublishedAt, &l.ArchivedAt, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	l.Category = domain.Category(category)
	l.Status = domain.ListingStatus(status)
	if sourceURL != nil {
		l.SourceURL = *sourceURL
	}
	if sourceImg != nil {
		l.SourceImageURL = *sourceImg
	}
	if l.Images == nil {
		l.Images = []string{}
	}
	if l.Attributes == nil {
		l.Attributes = map[string]interface{}{}
	}
	return &l, nil
}

func collectListings(rows pgx.Rows) ([]domain.Listing, error) {
	defer rows.Close()
	var out []domain.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan listing row: %w", err)
		}
		out = append(out, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during listing rows iteration: %w", err)
	}
	return out, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (r *PostgresListingRepository) Create(ctx context.Context, l *domain.Listing) error {
	logger := r.logger(ctx, "Create").WithFields(port.Fields{"listing_id": l.ID})

	query := `INSERT INTO listings (id, seller_id, category, title, description, price, currency,
		city, region, latitude, longitude, geohash, attributes, images, status,
		source_url, source_image_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

	_, err := r.db.Exec(ctx, query,
		l.ID, l.SellerID, string(l.Category), l.Title, l.Description, l.Price, l.Currency,
		l.City, l.Region, l.Latitude, l.Longitude, l.Geohash, l.Attributes, l.Images, string(l.Status),
		nullable(l.SourceURL), nullable(l.SourceImageURL), l.CreatedAt, l.UpdatedAt,
	)
	if err != nil {
		logger.Error("Failed to insert listing", err, nil)
		return fmt.Errorf("failed to insert listing: %w", err)
	}
	logger.Debug("Listing inserted", nil)
	return nil
}

func (r *PostgresListingRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings l WHERE l.id = $1`
	l, err := scanListing(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrListingNotFound
		}
		r.logger(ctx, "GetByID").Error("Failed to get listing", err, port.Fields{"listing_id": id})
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	return l, nil
}

func (r *PostgresListingRepository) Update(ctx context.Context, l *domain.Listing) error {
	logger := r.logger(ctx, "Update").WithFields(port.Fields{"listing_id": l.ID})

	query := `UPDATE listings SET title = $2, description = $3, price = $4, currency = $5,
		city = $6, region = $7, latitude = $8, longitude = $9, geohash = $10, attributes = $11,
		updated_at = $12
		WHERE id = $1`
	tag, err := r.db.Exec(ctx, query,
		l.ID, l.Title, l.Description, l.Price, l.Currency,
		l.City, l.Region, l.Latitude, l.Longitude, l.Geohash, l.Attributes, l.UpdatedAt,
	)
	if err != nil {
		logger.Error("Failed to update listing", err, nil)
		return fmt.Errorf("failed to update listing: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrListingNotFound
	}
	return nil
}

// UpdateStatus - условное обновление: WHERE status = from защищает от гонок
// между продавцом, администратором и планировщиком.
func (r *PostgresListingRepository) UpdateStatus(ctx context.Context, l *domain.Listing, from domain.ListingStatus) error {
	logger := r.logger(ctx, "UpdateStatus").WithFields(port.Fields{
		"listing_id": l.ID,
		"from":       from,
		"to":         l.Status,
	})

	query := `UPDATE listings SET status = $2, published_at = $3, archived_at = $4, updated_at = $5
		WHERE id = $1 AND status = $6`
	tag, err := r.db.Exec(ctx, query, l.ID, string(l.Status), l.PublishedAt, l.ArchivedAt, l.UpdatedAt, string(from))
	if err != nil {
		logger.Error("Failed to update listing status", err, nil)
		return fmt.Errorf("failed to update listing status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		logger.Warn("Listing status changed concurrently", nil)
		return domain.ErrInvalidTransition
	}
	return nil
}

func (r *PostgresListingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM listings WHERE id = $1`, id)
	if err != nil {
		r.logger(ctx, "Delete").Error("Failed to delete listing", err, port.Fields{"listing_id": id})
		return fmt.Errorf("failed to delete listing: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrListingNotFound
	}
	return nil
}

func (r *PostgresListingRepository) IncrementViews(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `UPDATE listings SET views_count = views_count + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to increment views: %w", err)
	}
	return nil
}

// AppendImage добавляет путь, если его еще нет и не превышен лимит.
func (r *PostgresListingRepository) AppendImage(ctx context.Context, id uuid.UUID, path string, max int) (bool, error) {
	query := `UPDATE listings SET images = array_append(images, $2), updated_at = now()
		WHERE id = $1 AND NOT ($2 = ANY(images)) AND cardinality(images) < $3`
	tag, err := r.db.Exec(ctx, query, id, path, max)
	if err != nil {
		r.logger(ctx, "AppendImage").Error("Failed to append image", err, port.Fields{"listing_id": id})
		return false, fmt.Errorf("failed to append image: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PostgresListingRepository) RemoveImage(ctx context.Context, id uuid.UUID, path string) (bool, error) {
	query := `UPDATE listings SET images = array_remove(images, $2), updated_at = now()
		WHERE id = $1 AND $2 = ANY(images)`
	tag, err := r.db.Exec(ctx, query, id, path)
	if err != nil {
		r.logger(ctx, "RemoveImage").Error("Failed to remove image", err, port.Fields{"listing_id": id})
		return false, fmt.Errorf("failed to remove image: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Search - публичный поиск только по опубликованным объявлениям.
func (r *PostgresListingRepository) Search(ctx context.Context, f domain.ListingFilters) (*domain.ListingPage, error) {
	qb := newQueryBuilder("l.status = 'published'")
	applyFilters(qb, f)
	return r.page(ctx, "Search", qb, f.Sort, f.Cursor, f.Limit)
}

func (r *PostgresListingRepository) AdminSearch(ctx context.Context, f domain.AdminListingFilters) (*domain.ListingPage, error) {
	qb := newQueryBuilder()
	applyFilters(qb, f.ListingFilters)
	if f.Status != "" {
		qb.addCondition("%s = $%d", "l.status", string(f.Status))
	}
	if f.SellerID != nil {
		qb.addCondition("%s = $%d", "l.seller_id", *f.SellerID)
	}
	return r.page(ctx, "AdminSearch", qb, domain.SortCreated, f.Cursor, f.Limit)
}

func (r *PostgresListingRepository) ListBySeller(ctx context.Context, sellerID uuid.UUID, status domain.ListingStatus, cursor *pagination.Cursor, limit int) (*domain.ListingPage, error) {
	qb := newQueryBuilder()
	qb.addCondition("%s = $%d", "l.seller_id", sellerID)
	if status != "" {
		qb.addCondition("%s = $%d", "l.status", string(status))
	}
	return r.page(ctx, "ListBySeller", qb, domain.SortCreated, cursor, limit)
}

// page выбирает limit+1 строк: лишняя строка означает, что есть следующая страница.
func (r *PostgresListingRepository) page(ctx context.Context, method string, qb *queryBuilder, sort string, cursor *pagination.Cursor, limit int) (*domain.ListingPage, error) {
	logger := r.logger(ctx, method)

	orderBy := orderFor(qb, sort, cursor)
	limitArg := qb.addArg(limit + 1)
	where, args := qb.build()

	query := fmt.Sprintf(`SELECT %s FROM listings l %s %s LIMIT $%d`, listingColumns, where, orderBy, limitArg)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		logger.Error("Failed to query listings", err, port.Fields{"query": query})
		return nil, fmt.Errorf("failed to query listings: %w", err)
	}
	items, err := collectListings(rows)
	if err != nil {
		logger.Error("Failed to read listings", err, nil)
		return nil, err
	}

	page := pagination.BuildPage(items, limit, cursorFor(sort))
	logger.Debug("Listings page loaded", port.Fields{"items": len(page.Items), "has_more": page.HasMore})
	return &page, nil
}

func (r *PostgresListingRepository) FindExpired(ctx context.Context, publishedBefore time.Time, limit int) ([]domain.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings l
		WHERE l.status = 'published' AND l.published_at < $1
		ORDER BY l.published_at ASC, l.id ASC
		LIMIT $2`
	rows, err := r.db.Query(ctx, query, publishedBefore, limit)
	if err != nil {
		r.logger(ctx, "FindExpired").Error("Failed to query expired listings", err, nil)
		return nil, fmt.Errorf("failed to query expired listings: %w", err)
	}
	return collectListings(rows)
}
