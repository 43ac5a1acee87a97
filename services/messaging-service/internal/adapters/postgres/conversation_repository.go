package postgres_adapter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"marketplace/pkg/contextkeys"
	"marketplace/pkg/pagination"
	"marketplace/services/messaging-service/internal/core/domain"
	"marketplace/services/messaging-service/internal/core/port"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const conversationColumns = `c.id, c.listing_id, c.listing_title, c.buyer_id, c.seller_id, c.status,
	c.last_message_at, c.last_message_preview, c.buyer_last_read_at, c.seller_last_read_at, c.closed_at, c.created_at`

// unreadForViewer считает непрочитанные сообщения собеседника и системные сообщения
// после маркера зрителя. Параметр зрителя - $1.
const unreadForViewer = `(SELECT count(*) FROM messages m
		WHERE m.conversation_id = c.id
		AND m.sender_id IS DISTINCT FROM $1
		AND m.created_at > COALESCE(CASE WHEN c.buyer_id = $1 THEN c.buyer_last_read_at ELSE c.seller_last_read_at END, '-infinity'::timestamptz))`

type PostgresConversationRepository struct {
	db DB
}

func NewPostgresConversationRepository(db DB) (*PostgresConversationRepository, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle cannot be nil")
	}
	return &PostgresConversationRepository{db: db}, nil
}

func conversationDest(c *domain.Conversation, status *string) []any {
	return []any{&c.ID, &c.ListingID, &c.ListingTitle, &c.BuyerID, &c.SellerID, status,
		&c.LastMessageAt, &c.LastMessagePreview, &c.BuyerLastReadAt, &c.SellerLastReadAt, &c.ClosedAt, &c.CreatedAt}
}

func scanConversation(row pgx.Row) (*domain.Conversation, error) {
	var c domain.Conversation
	var status string
	if err := row.Scan(conversationDest(&c, &status)...); err != nil {
		return nil, err
	}
	c.Status = domain.ConversationStatus(status)
	return &c, nil
}

func scanConversationWithUnread(row pgx.Row) (*domain.Conversation, error) {
	var c domain.Conversation
	var status string
	var unread int64
	if err := row.Scan(append(conversationDest(&c, &status), &unread)...); err != nil {
		return nil, err
	}
	c.Status = domain.ConversationStatus(status)
	c.UnreadCount = int(unread)
	return &c, nil
}

// FindOrCreate вставляет переписку или возвращает существующую для (listing_id, buyer_id).
// Существующая переписка получает актуальный заголовок, статус не меняется.
func (r *PostgresConversationRepository) FindOrCreate(ctx context.Context, c *domain.Conversation) (*domain.Conversation, bool, error) {
	query := `INSERT INTO conversations AS c (id, listing_id, listing_title, buyer_id, seller_id, status, last_message_at, created_at)
		VALUES ($1, $2, $3, $4, $5, 'open', $6, $7)
		ON CONFLICT (listing_id, buyer_id) DO UPDATE
			SET listing_title = EXCLUDED.listing_title
		RETURNING ` + conversationColumns + `, (c.xmax = 0) AS inserted`

	var out domain.Conversation
	var status string
	var inserted bool
	dest := append(conversationDest(&out, &status), &inserted)
	err := r.db.QueryRow(ctx, query, c.ID, c.ListingID, c.ListingTitle, c.BuyerID, c.SellerID, c.LastMessageAt, c.CreatedAt).Scan(dest...)
	if err != nil {
		contextkeys.LoggerFromContext(ctx).Error("Failed to upsert conversation", err, port.Fields{
			"component":  "PostgresConversationRepository",
			"method":     "FindOrCreate",
			"listing_id": c.ListingID,
			"buyer_id":   c.BuyerID,
		})
		return nil, false, fmt.Errorf("failed to upsert conversation: %w", err)
	}
	out.Status = domain.ConversationStatus(status)
	return &out, inserted, nil
}

// Reopen открывает переписку, если она открыта или закрыта раньше closedBefore.
// Более позднее закрытие не отменяется: тогда возвращается domain.ErrConversationClosed.
func (r *PostgresConversationRepository) Reopen(ctx context.Context, id uuid.UUID, closedBefore time.Time) (*domain.Conversation, error) {
	query := `UPDATE conversations AS c SET status = 'open', closed_at = NULL
		WHERE c.id = $1 AND (c.status = 'open' OR c.closed_at IS NULL OR c.closed_at < $2)
		RETURNING ` + conversationColumns

	c, err := scanConversation(r.db.QueryRow(ctx, query, id, closedBefore))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrConversationClosed
		}
		contextkeys.LoggerFromContext(ctx).Error("Failed to reopen conversation", err, port.Fields{
			"component":       "PostgresConversationRepository",
			"method":          "Reopen",
			"conversation_id": id,
		})
		return nil, fmt.Errorf("failed to reopen conversation: %w", err)
	}
	return c, nil
}

func (r *PostgresConversationRepository) GetByID(ctx context.Context, id, viewerID uuid.UUID) (*domain.Conversation, error) {
	query := `SELECT ` + conversationColumns + `, ` + unreadForViewer + ` FROM conversations c WHERE c.id = $2`
	c, err := scanConversationWithUnread(r.db.QueryRow(ctx, query, viewerID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrConversationNotFound
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return c, nil
}

// ListByParticipant - входящие пользователя по (last_message_at, id) desc.
func (r *PostgresConversationRepository) ListByParticipant(ctx context.Context, userID uuid.UUID, cursor *pagination.Cursor, limit int) (*domain.ConversationPage, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component": "PostgresConversationRepository",
		"method":    "ListByParticipant",
		"user_id":   userID,
	})

	qb := newQueryBuilder()
	viewer := qb.addArg(userID)
	qb.conditions = append(qb.conditions, fmt.Sprintf("(c.buyer_id = $%[1]d OR c.seller_id = $%[1]d)", viewer))
	if cursor != nil && cursor.Time != nil {
		qb.addKeyset("c.last_message_at", "c.id", true, *cursor.Time, cursor.ID)
	}
	limitArg := qb.addArg(limit + 1)
	where, args := qb.build()

	query := fmt.Sprintf(`SELECT %s, %s FROM conversations c %s ORDER BY c.last_message_at DESC, c.id DESC LIMIT $%d`,
		conversationColumns, unreadForViewer, where, limitArg)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		logger.Error("Failed to query conversations", err, nil)
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()

	var items []domain.Conversation
	for rows.Next() {
		c, err := scanConversationWithUnread(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		items = append(items, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during conversations iteration: %w", err)
	}

	page := pagination.BuildPage(items, limit, func(c domain.Conversation) pagination.Cursor {
		return c.ActivityCursor()
	})
	return &page, nil
}

// AdvanceReadMarker: GREATEST не дает маркеру уйти назад, NULL считается отсутствием маркера.
func (r *PostgresConversationRepository) AdvanceReadMarker(ctx context.Context, id, userID uuid.UUID, at time.Time) (*time.Time, error) {
	query := `UPDATE conversations SET
			buyer_last_read_at = CASE WHEN buyer_id = $2 THEN GREATEST(buyer_last_read_at, $3) ELSE buyer_last_read_at END,
			seller_last_read_at = CASE WHEN seller_id = $2 THEN GREATEST(seller_last_read_at, $3) ELSE seller_last_read_at END
		WHERE id = $1 AND (buyer_id = $2 OR seller_id = $2)
		RETURNING CASE WHEN buyer_id = $2 THEN buyer_last_read_at ELSE seller_last_read_at END`

	var marker *time.Time
	if err := r.db.QueryRow(ctx, query, id, userID, at).Scan(&marker); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrConversationNotFound
		}
		contextkeys.LoggerFromContext(ctx).Error("Failed to advance read marker", err, port.Fields{
			"component":       "PostgresConversationRepository",
			"method":          "AdvanceReadMarker",
			"conversation_id": id,
		})
		return nil, fmt.Errorf("failed to advance read marker: %w", err)
	}
	return marker, nil
}

func (r *PostgresConversationRepository) CloseOpenByListing(ctx context.Context, listingID uuid.UUID, at time.Time) ([]domain.Conversation, error) {
	query := `UPDATE conversations AS c SET status = 'closed', closed_at = $2
		WHERE c.listing_id = $1 AND c.status = 'open'
		RETURNING ` + conversationColumns

	rows, err := r.db.Query(ctx, query, listingID, at)
	if err != nil {
		contextkeys.LoggerFromContext(ctx).Error("Failed to close conversations", err, port.Fields{
			"component":  "PostgresConversationRepository",
			"method":     "CloseOpenByListing",
			"listing_id": listingID,
		})
		return nil, fmt.Errorf("failed to close conversations: %w", err)
	}
	defer rows.Close()

	var closed []domain.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		closed = append(closed, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during conversations iteration: %w", err)
	}
	return closed, nil
}
