package postgres_adapter

import (
	"context"
	"fmt"
	"time"

	"marketplace/pkg/contextkeys"
	"marketplace/pkg/pagination"
	"marketplace/services/messaging-service/internal/core/domain"
	"marketplace/services/messaging-service/internal/core/port"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const notificationColumns = `id, user_id, type, title, body, data, read_at, created_at`

type PostgresNotificationRepository struct {
	db DB
}

func NewPostgresNotificationRepository(db DB) (*PostgresNotificationRepository, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle cannot be nil")
	}
	return &PostgresNotificationRepository{db: db}, nil
}

func scanNotification(row pgx.Row) (*domain.Notification, error) {
	var n domain.Notification
	var typ string
	if err := row.Scan(&n.ID, &n.UserID, &typ, &n.Title, &n.Body, &n.Data, &n.ReadAt, &n.CreatedAt); err != nil {
		return nil, err
	}
	n.Type = domain.NotificationType(typ)
	return &n, nil
}

func (r *PostgresNotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	query := `INSERT INTO notifications (` + notificationColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.db.Exec(ctx, query, n.ID, n.UserID, string(n.Type), n.Title, n.Body, n.Data, n.ReadAt, n.CreatedAt)
	if err != nil {
		contextkeys.LoggerFromContext(ctx).Error("Failed to insert notification", err, port.Fields{
			"component": "PostgresNotificationRepository",
			"method":    "Create",
			"user_id":   n.UserID,
			"type":      n.Type,
		})
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

func (r *PostgresNotificationRepository) ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, cursor *pagination.Cursor, limit int) (*domain.NotificationPage, error) {
	qb := newQueryBuilder()
	qb.addCondition("%s = $%d", "user_id", userID)
	if unreadOnly {
		qb.conditions = append(qb.conditions, "read_at IS NULL")
	}
	if cursor != nil && cursor.Time != nil {
		qb.addKeyset("created_at", "id", true, *cursor.Time, cursor.ID)
	}
	limitArg := qb.addArg(limit + 1)
	where, args := qb.build()

	query := fmt.Sprintf(`SELECT %s FROM notifications %s ORDER BY created_at DESC, id DESC LIMIT $%d`, notificationColumns, where, limitArg)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		contextkeys.LoggerFromContext(ctx).Error("Failed to query notifications", err, port.Fields{
			"component": "PostgresNotificationRepository",
			"method":    "ListByUser",
			"user_id":   userID,
		})
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var items []domain.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		items = append(items, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during notifications iteration: %w", err)
	}

	page := pagination.BuildPage(items, limit, func(n domain.Notification) pagination.Cursor {
		return n.CreatedCursor()
	})
	return &page, nil
}

func (r *PostgresNotificationRepository) MarkRead(ctx context.Context, userID uuid.UUID, ids []uuid.UUID, at time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `UPDATE notifications SET read_at = $3 WHERE user_id = $1 AND id = ANY($2) AND read_at IS NULL`, userID, ids, at)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *PostgresNotificationRepository) MarkAllRead(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `UPDATE notifications SET read_at = $2 WHERE user_id = $1 AND read_at IS NULL`, userID, at)
	if err != nil {
		return 0, fmt.Errorf("failed to mark all notifications read: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *PostgresNotificationRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM notifications WHERE user_id = $1 AND read_at IS NULL`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return n, nil
}

// PurgeRead удаляет прочитанные уведомления, прочитанные раньше readBefore.
func (r *PostgresNotificationRepository) PurgeRead(ctx context.Context, readBefore time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM notifications WHERE read_at IS NOT NULL AND read_at < $1`, readBefore)
	if err != nil {
		contextkeys.LoggerFromContext(ctx).Error("Failed to purge notifications", err, port.Fields{
			"component": "PostgresNotificationRepository",
			"method":    "PurgeRead",
		})
		return 0, fmt.Errorf("failed to purge notifications: %w", err)
	}
	return tag.RowsAffected(), nil
}
