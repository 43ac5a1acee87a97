package postgres_adapter

import (
	"context"
	"fmt"
	"time"

	"marketplace/pkg/contextkeys"
	"marketplace/services/listing-service/internal/core/domain"
	"marketplace/services/listing-service/internal/core/port"
)

// PostgresAnalyticsRepository считает агрегаты для админки прямыми SQL-запросами.
type PostgresAnalyticsRepository struct {
	db DB
}

func NewPostgresAnalyticsRepository(db DB) (*PostgresAnalyticsRepository, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle cannot be nil")
	}
	return &PostgresAnalyticsRepository{db: db}, nil
}

const (
	categoryStatusQuery = `SELECT category, status, count(*)
		FROM listings
		GROUP BY category, status
		ORDER BY category, status`

	// дни без записей тоже попадают в ряд с нулем
	dailyCountQuery = `SELECT d.day, count(t.id)
		FROM generate_series(date_trunc('day', now()) - ($1::int - 1) * interval '1 day', date_trunc('day', now()), interval '1 day') AS d(day)
		LEFT JOIN %s t ON date_trunc('day', t.created_at) = d.day
		GROUP BY d.day
		ORDER BY d.day`

	topViewedQuery = `SELECT l.id, l.title, l.category, l.views_count, count(f.user_id)
		FROM listings l
		LEFT JOIN favorites f ON f.listing_id = l.id
		WHERE l.status = 'published'
		GROUP BY l.id
		ORDER BY l.views_count DESC, l.id
		LIMIT $1`

	favoritesTotalQuery = `SELECT count(*) FROM favorites`
)

func (r *PostgresAnalyticsRepository) ListingAnalytics(ctx context.Context, days int, topLimit int) (*domain.ListingAnalytics, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component": "PostgresAnalyticsRepository",
		"method":    "ListingAnalytics",
		"days":      days,
	})

	result := &domain.ListingAnalytics{Days: days}

	byStatus, err := r.categoryStatus(ctx)
	if err != nil {
		logger.Error("Failed to count listings by category and status", err, nil)
		return nil, err
	}
	result.ByCategoryStatus = byStatus

	if result.NewListingsPerDay, err = r.dailyCounts(ctx, "listings", days); err != nil {
		logger.Error("Failed to count new listings per day", err, nil)
		return nil, err
	}
	if result.InquiriesPerDay, err = r.dailyCounts(ctx, "inquiries", days); err != nil {
		logger.Error("Failed to count inquiries per day", err, nil)
		return nil, err
	}

	if result.TopViewed, err = r.topViewed(ctx, topLimit); err != nil {
		logger.Error("Failed to query top viewed listings", err, nil)
		return nil, err
	}

	if err := r.db.QueryRow(ctx, favoritesTotalQuery).Scan(&result.FavoritesTotal); err != nil {
		logger.Error("Failed to count favorites", err, nil)
		return nil, fmt.Errorf("failed to count favorites: %w", err)
	}

	logger.Debug("Analytics collected", nil)
	return result, nil
}

func (r *PostgresAnalyticsRepository) categoryStatus(ctx context.Context) ([]domain.CategoryStatusCount, error) {
	rows, err := r.db.Query(ctx, categoryStatusQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query category stats: %w", err)
	}
	defer rows.Close()

	out := []domain.CategoryStatusCount{}
	for rows.Next() {
		var category, status string
		var count int64
		if err := rows.Scan(&category, &status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan category stats: %w", err)
		}
		out = append(out, domain.CategoryStatusCount{
			Category: domain.Category(category),
			Status:   domain.ListingStatus(status),
			Count:    count,
		})
	}
	return out, rows.Err()
}

// table подставляется только из констант вызывающего кода.
func (r *PostgresAnalyticsRepository) dailyCounts(ctx context.Context, table string, days int) ([]domain.DailyCount, error) {
	rows, err := r.db.Query(ctx, fmt.Sprintf(dailyCountQuery, table), days)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily counts for %s: %w", table, err)
	}
	defer rows.Close()

	out := make([]domain.DailyCount, 0, days)
	for rows.Next() {
		var d domain.DailyCount
		var day time.Time
		if err := rows.Scan(&day, &d.Count); err != nil {
			return nil, fmt.Errorf("failed to scan daily count: %w", err)
		}
		d.Day = day.UTC()
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *PostgresAnalyticsRepository) topViewed(ctx context.Context, limit int) ([]domain.TopListing, error) {
	rows, err := r.db.Query(ctx, topViewedQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top viewed: %w", err)
	}
	defer rows.Close()

	out := []domain.TopListing{}
	for rows.Next() {
		var t domain.TopListing
		var category string
		if err := rows.Scan(&t.ID, &t.Title, &category, &t.ViewsCount, &t.Favorites); err != nil {
			return nil, fmt.Errorf("failed to scan top listing: %w", err)
		}
		t.Category = domain.Category(category)
		out = append(out, t)
	}
	return out, rows.Err()
}
