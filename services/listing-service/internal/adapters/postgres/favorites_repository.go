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
	"github.com/jackc/pgx/v5/pgconn"
)

// PostgresFavoritesRepository - реализация порта избранного для PostgreSQL.
type PostgresFavoritesRepository struct {
	db DB
}

func NewPostgresFavoritesRepository(db DB) (*PostgresFavoritesRepository, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle cannot be nil")
	}
	return &PostgresFavoritesRepository{db: db}, nil
}

// Add добавляет запись в favorites.
func (r *PostgresFavoritesRepository) Add(ctx context.Context, userID, listingID uuid.UUID) error {
	logger := contextkeys.LoggerFromContext(ctx)
	repoLogger := logger.WithFields(port.Fields{
		"component":  "PostgresFavoritesRepository",
		"method":     "Add",
		"user_id":    userID,
		"listing_id": listingID,
	})

	repoLogger.Debug("Attempting to add to favorites.", nil)
	query := `INSERT INTO favorites (user_id, listing_id) VALUES ($1, $2)`

	_, err := r.db.Exec(ctx, query, userID, listingID)
	if err != nil {
		// Повторное добавление нарушает первичный ключ, это не ошибка.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			repoLogger.Warn("Favorite already exists, operation considered successful.", nil)
			return nil
		}
		repoLogger.Error("Failed to add favorite", err, port.Fields{"query": query})
		return fmt.Errorf("failed to add favorite: %w", err)
	}

	repoLogger.Debug("Successfully added to favorites.", nil)
	return nil
}

// Remove удаляет запись из favorites.
func (r *PostgresFavoritesRepository) Remove(ctx context.Context, userID, listingID uuid.UUID) error {
	logger := contextkeys.LoggerFromContext(ctx)
	repoLogger := logger.WithFields(port.Fields{
		"component":  "PostgresFavoritesRepository",
		"method":     "Remove",
		"user_id":    userID,
		"listing_id": listingID,
	})

	query := `DELETE FROM favorites WHERE user_id = $1 AND listing_id = $2`
	cmdTag, err := r.db.Exec(ctx, query, userID, listingID)
	if err != nil {
		repoLogger.Error("Failed to remove favorite", err, port.Fields{"query": query})
		return fmt.Errorf("failed to remove favorite: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		repoLogger.Warn("Attempted to remove a favorite that did not exist.", nil)
	} else {
		repoLogger.Debug("Successfully removed from favorites.", nil)
	}
	return nil
}

func (r *PostgresFavoritesRepository) FindFavoriteIDsByUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	logger := contextkeys.LoggerFromContext(ctx)
	repoLogger := logger.WithFields(port.Fields{
		"component": "PostgresFavoritesRepository",
		"method":    "FindFavoriteIDsByUser",
		"user_id":   userID,
	})

	dataQuery := `SELECT listing_id FROM favorites WHERE user_id = $1`
	rows, err := r.db.Query(ctx, dataQuery, userID)
	if err != nil {
		repoLogger.Error("Failed to query favorite IDs", err, port.Fields{"query": dataQuery})
		return nil, fmt.Errorf("failed to query favorite IDs: %w", err)
	}
	defer rows.Close()

	ids := []uuid.UUID{}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			repoLogger.Error("Failed to scan favorite ID row", err, nil)
			return nil, fmt.Errorf("failed to scan favorite ID: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		repoLogger.Error("Error during favorite IDs iteration", err, nil)
		return nil, fmt.Errorf("error during favorite IDs iteration: %w", err)
	}
	return ids, nil
}

// FindPaginatedByUser - карточки избранных объявлений, новые первыми.
// Черновики в избранное не попадают, архивные остаются с их статусом.
func (r *PostgresFavoritesRepository) FindPaginatedByUser(ctx context.Context, userID uuid.UUID, cursor *pagination.Cursor, limit int) (*domain.FavoritePage, error) {
	logger := contextkeys.LoggerFromContext(ctx)
	repoLogger := logger.WithFields(port.Fields{
		"component": "PostgresFavoritesRepository",
		"method":    "FindPaginatedByUser",
		"user_id":   userID,
		"limit":     limit,
	})

	qb := newQueryBuilder("l.status <> 'draft'")
	qb.addCondition("%s = $%d", "f.user_id", userID)
	if cursor != nil && cursor.Time != nil {
		qb.addKeyset("f.created_at", "f.listing_id", true, *cursor.Time, cursor.ID)
	}
	limitArg := qb.addArg(limit + 1)
	where, args := qb.build()

	query := fmt.Sprintf(`SELECT %s, f.created_at
		FROM favorites f JOIN listings l ON l.id = f.listing_id
		%s
		ORDER BY f.created_at DESC, f.listing_id DESC
		LIMIT $%d`, listingColumns, where, limitArg)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		repoLogger.Error("Failed to query favorites", err, port.Fields{"query": query})
		return nil, fmt.Errorf("failed to query favorites: %w", err)
	}
	defer rows.Close()

	var items []domain.FavoriteListing
	for rows.Next() {
		var fav domain.FavoriteListing
		l, err := scanListing(&favoriteRow{rows: rows, favoritedAt: &fav.FavoritedAt})
		if err != nil {
			repoLogger.Error("Failed to scan favorite row", err, nil)
			return nil, fmt.Errorf("failed to scan favorite: %w", err)
		}
		fav.Listing = *l
		items = append(items, fav)
	}
	if err := rows.Err(); err != nil {
		repoLogger.Error("Error during favorites iteration", err, nil)
		return nil, fmt.Errorf("error during favorites iteration: %w", err)
	}

	page := pagination.BuildPage(items, limit, func(f domain.FavoriteListing) pagination.Cursor {
		return pagination.TimeCursor(domain.SortCreated, f.FavoritedAt, f.Listing.ID)
	})
	repoLogger.Debug("Successfully found paginated favorites.", port.Fields{"found_on_page": len(page.Items)})
	return &page, nil
}

// favoriteRow добавляет к колонкам объявления дату добавления в избранное.
type favoriteRow struct {
	rows interface {
		Scan(dest ...any) error
	}
	favoritedAt *time.Time
}

func (f *favoriteRow) Scan(dest ...any) error {
	return f.rows.Scan(append(dest, f.favoritedAt)...)
}
