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

const messageColumns = `id, conversation_id, sender_id, kind, body, client_message_id, created_at`

type PostgresMessageRepository struct {
	db DB
}

func NewPostgresMessageRepository(db DB) (*PostgresMessageRepository, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle cannot be nil")
	}
	return &PostgresMessageRepository{db: db}, nil
}

func scanMessage(row pgx.Row) (*domain.Message, error) {
	var m domain.Message
	var kind string
	var clientID *string
	if err := row.Scan(&m.ID, &m.ConversationID, &m.SenderID, &kind, &m.Body, &clientID, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.Kind = domain.MessageKind(kind)
	if clientID != nil {
		m.ClientMessageID = *clientID
	}
	return &m, nil
}

// Append сохраняет сообщение и двигает last_message_* переписки в одной транзакции.
// Конфликт по (conversation_id, sender_id, client_message_id) - повтор отправки,
// возвращается уже сохраненное сообщение.
//
// created_at назначает база под блокировкой строки переписки: внутри переписки время
// строго растет в порядке фиксации, и опрос по курсору (created_at, id) ничего не пропускает.
func (r *PostgresMessageRepository) Append(ctx context.Context, m *domain.Message) (*domain.SendResult, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component":       "PostgresMessageRepository",
		"method":          "Append",
		"conversation_id": m.ConversationID,
	})

	tx, err := r.db.Begin(ctx)
	if err != nil {
		logger.Error("Failed to begin transaction", err, nil)
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var createdAt time.Time
	err = tx.QueryRow(ctx, `SELECT GREATEST(clock_timestamp(), last_message_at + interval '1 microsecond')
		FROM conversations WHERE id = $1 FOR UPDATE`, m.ConversationID).Scan(&createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrConversationNotFound
		}
		logger.Error("Failed to lock conversation", err, nil)
		return nil, fmt.Errorf("failed to lock conversation: %w", err)
	}

	insert := `INSERT INTO messages (` + messageColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (conversation_id, sender_id, client_message_id) WHERE client_message_id IS NOT NULL DO NOTHING
		RETURNING ` + messageColumns
	stored, err := scanMessage(tx.QueryRow(ctx, insert,
		m.ID, m.ConversationID, m.SenderID, string(m.Kind), m.Body, nullableString(m.ClientMessageID), domain.MessageTime(createdAt)))

	if errors.Is(err, pgx.ErrNoRows) {
		existing, err := scanMessage(tx.QueryRow(ctx,
			`SELECT `+messageColumns+` FROM messages WHERE conversation_id = $1 AND sender_id = $2 AND client_message_id = $3`,
			m.ConversationID, m.SenderID, m.ClientMessageID))
		if err != nil {
			logger.Error("Failed to load message for duplicate client id", err, nil)
			return nil, fmt.Errorf("failed to load existing message: %w", err)
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("failed to commit transaction: %w", err)
		}
		logger.Debug("Duplicate client message id", port.Fields{"message_id": existing.ID})
		return &domain.SendResult{Message: *existing, Duplicate: true}, nil
	}
	if err != nil {
		logger.Error("Failed to insert message", err, nil)
		return nil, fmt.Errorf("failed to insert message: %w", err)
	}

	_, err = tx.Exec(ctx, `UPDATE conversations SET last_message_at = $2, last_message_preview = $3 WHERE id = $1`,
		m.ConversationID, stored.CreatedAt, domain.Preview(stored.Body))
	if err != nil {
		logger.Error("Failed to update conversation activity", err, nil)
		return nil, fmt.Errorf("failed to update conversation: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		logger.Error("Failed to commit transaction", err, nil)
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &domain.SendResult{Message: *stored}, nil
}

func (r *PostgresMessageRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	m, err := scanMessage(r.db.QueryRow(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrMessageNotFound
		}
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return m, nil
}

func (r *PostgresMessageRepository) ListBefore(ctx context.Context, conversationID uuid.UUID, cursor *pagination.Cursor, limit int) (*domain.MessagePage, error) {
	return r.list(ctx, conversationID, cursor, limit, true)
}

func (r *PostgresMessageRepository) ListAfter(ctx context.Context, conversationID uuid.UUID, cursor *pagination.Cursor, limit int) (*domain.MessagePage, error) {
	return r.list(ctx, conversationID, cursor, limit, false)
}

func (r *PostgresMessageRepository) list(ctx context.Context, conversationID uuid.UUID, cursor *pagination.Cursor, limit int, desc bool) (*domain.MessagePage, error) {
	qb := newQueryBuilder()
	qb.addCondition("%s = $%d", "conversation_id", conversationID)
	if cursor != nil && cursor.Time != nil {
		qb.addKeyset("created_at", "id", desc, *cursor.Time, cursor.ID)
	}
	limitArg := qb.addArg(limit + 1)
	where, args := qb.build()

	order := "ORDER BY created_at ASC, id ASC"
	if desc {
		order = "ORDER BY created_at DESC, id DESC"
	}
	query := fmt.Sprintf(`SELECT %s FROM messages %s %s LIMIT $%d`, messageColumns, where, order, limitArg)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		contextkeys.LoggerFromContext(ctx).Error("Failed to query messages", err, port.Fields{
			"component":       "PostgresMessageRepository",
			"method":          "list",
			"conversation_id": conversationID,
		})
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var items []domain.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		items = append(items, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during messages iteration: %w", err)
	}

	page := pagination.BuildPage(items, limit, func(m domain.Message) pagination.Cursor {
		return m.CreatedCursor()
	})
	return &page, nil
}

func (r *PostgresMessageRepository) LatestCreatedAt(ctx context.Context, conversationID uuid.UUID) (*time.Time, error) {
	var latest *time.Time
	err := r.db.QueryRow(ctx, `SELECT max(created_at) FROM messages WHERE conversation_id = $1`, conversationID).Scan(&latest)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest message time: %w", err)
	}
	return latest, nil
}
