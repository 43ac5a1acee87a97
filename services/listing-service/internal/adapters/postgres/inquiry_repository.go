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

const inquiryColumns = `id, listing_id, listing_title, seller_id, buyer_id, message,
	contact_name, contact_email, contact_phone, read_at, created_at`

type PostgresInquiryRepository struct {
	db DB
}

func NewPostgresInquiryRepository(db DB) (*PostgresInquiryRepository, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle cannot be nil")
	}
	return &PostgresInquiryRepository{db: db}, nil
}

func scanInquiry(row pgx.Row) (*domain.Inquiry, error) {
	var in domain.Inquiry
	err := row.Scan(&in.ID, &in.ListingID, &in.ListingTitle, &in.SellerID, &in.BuyerID, &in.Message,
		&in.ContactName, &in.ContactEmail, &in.ContactPhone, &in.ReadAt, &in.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &in, nil
}

func (r *PostgresInquiryRepository) Create(ctx context.Context, in *domain.Inquiry) error {
	query := `INSERT INTO inquiries (` + inquiryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.db.Exec(ctx, query, in.ID, in.ListingID, in.ListingTitle, in.SellerID, in.BuyerID, in.Message,
		in.ContactName, in.ContactEmail, in.ContactPhone, in.ReadAt, in.CreatedAt)
	if err != nil {
		contextkeys.LoggerFromContext(ctx).Error("Failed to insert inquiry", err, port.Fields{
			"component":  "PostgresInquiryRepository",
			"method":     "Create",
			"inquiry_id": in.ID,
		})
		return fmt.Errorf("failed to insert inquiry: %w", err)
	}
	return nil
}

func (r *PostgresInquiryRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Inquiry, error) {
	in, err := scanInquiry(r.db.QueryRow(ctx, `SELECT `+inquiryColumns+` FROM inquiries WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrInquiryNotFound
		}
		return nil, fmt.Errorf("failed to get inquiry: %w", err)
	}
	return in, nil
}

func (r *PostgresInquiryRepository) ListBySeller(ctx context.Context, sellerID uuid.UUID, cursor *pagination.Cursor, limit int) (*domain.InquiryPage, error) {
	return r.list(ctx, "seller_id", sellerID, cursor, limit)
}

func (r *PostgresInquiryRepository) ListByBuyer(ctx context.Context, buyerID uuid.UUID, cursor *pagination.Cursor, limit int) (*domain.InquiryPage, error) {
	return r.list(ctx, "buyer_id", buyerID, cursor, limit)
}

func (r *PostgresInquiryRepository) list(ctx context.Context, ownerColumn string, ownerID uuid.UUID, cursor *pagination.Cursor, limit int) (*domain.InquiryPage, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component": "PostgresInquiryRepository",
		"method":    "list",
		"owner":     ownerColumn,
	})

	qb := newQueryBuilder()
	qb.addCondition("%s = $%d", ownerColumn, ownerID)
	if cursor != nil && cursor.Time != nil {
		qb.addKeyset("created_at", "id", true, *cursor.Time, cursor.ID)
	}
	limitArg := qb.addArg(limit + 1)
	where, args := qb.build()

	query := fmt.Sprintf(`SELECT %s FROM inquiries %s ORDER BY created_at DESC, id DESC LIMIT $%d`, inquiryColumns, where, limitArg)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		logger.Error("Failed to query inquiries", err, nil)
		return nil, fmt.Errorf("failed to query inquiries: %w", err)
	}
	defer rows.Close()

	var items []domain.Inquiry
	for rows.Next() {
		in, err := scanInquiry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan inquiry: %w", err)
		}
		items = append(items, *in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during inquiries iteration: %w", err)
	}

	page := pagination.BuildPage(items, limit, func(in domain.Inquiry) pagination.Cursor {
		return pagination.TimeCursor(domain.SortCreated, in.CreatedAt, in.ID)
	})
	return &page, nil
}

func (r *PostgresInquiryRepository) MarkRead(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := r.db.Exec(ctx, `UPDATE inquiries SET read_at = $2 WHERE id = $1 AND read_at IS NULL`, id, at)
	if err != nil {
		return fmt.Errorf("failed to mark inquiry read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		contextkeys.LoggerFromContext(ctx).Debug("Inquiry already read", port.Fields{"inquiry_id": id})
	}
	return nil
}
