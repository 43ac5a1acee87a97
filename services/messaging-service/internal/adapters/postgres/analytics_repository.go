package postgres_adapter

import (
	"context"
	"fmt"
	"time"

	"marketplace/pkg/contextkeys"
	"marketplace/services/messaging-service/internal/core/domain"
	"marketplace/services/messaging-service/internal/core/port"
)

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
	dailyCountQuery = `SELECT d.day, count(t.id)
		FROM generate_series(date_trunc('day', now()) - ($1::int - 1) * interval '1 day', date_trunc('day', now()), interval '1 day') AS d(day)
		LEFT JOIN %s t ON date_trunc('day', t.created_at) = d.day
		GROUP BY d.day
		ORDER BY d.day`

	reportsByStatusQuery = `SELECT status, count(*) FROM reports GROUP BY status ORDER BY status`

	// время от первого сообщения покупателя до первого ответа продавца
	medianFirstResponseQuery = `WITH first_buyer AS (
			SELECT c.id, c.seller_id, min(m.created_at) AS at
			FROM conversations c
			JOIN messages m ON m.conversation_id = c.id AND m.sender_id = c.buyer_id
			WHERE c.created_at >= now() - $1::int * interval '1 day'
			GROUP BY c.id, c.seller_id
		), first_reply AS (
			SELECT fb.id, min(m.created_at) - fb.at AS delay
			FROM first_buyer fb
			JOIN messages m ON m.conversation_id = fb.id AND m.sender_id = fb.seller_id AND m.created_at > fb.at
			GROUP BY fb.id, fb.at
		)
		SELECT percentile_cont(0.5) WITHIN GROUP (ORDER BY EXTRACT(EPOCH FROM delay)) FROM first_reply`
)

func (r *PostgresAnalyticsRepository) MessagingAnalytics(ctx context.Context, days int) (*domain.MessagingAnalytics, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component": "PostgresAnalyticsRepository",
		"method":    "MessagingAnalytics",
		"days":      days,
	})

	result := &domain.MessagingAnalytics{Days: days}
	var err error

	if result.MessagesPerDay, err = r.dailyCounts(ctx, "messages", days); err != nil {
		logger.Error("Failed to count messages per day", err, nil)
		return nil, err
	}
	if result.ConversationsPerDay, err = r.dailyCounts(ctx, "conversations", days); err != nil {
		logger.Error("Failed to count conversations per day", err, nil)
		return nil, err
	}
	if result.ReportsByStatus, err = r.reportsByStatus(ctx); err != nil {
		logger.Error("Failed to count reports by status", err, nil)
		return nil, err
	}
	if err := r.db.QueryRow(ctx, medianFirstResponseQuery, days).Scan(&result.MedianFirstResponseSeconds); err != nil {
		logger.Error("Failed to compute median first response", err, nil)
		return nil, fmt.Errorf("failed to compute median first response: %w", err)
	}
	return result, nil
}

func (r *PostgresAnalyticsRepository) dailyCounts(ctx context.Context, table string, days int) ([]domain.DailyCount, error) {
	rows, err := r.db.Query(ctx, fmt.Sprintf(dailyCountQuery, table), days)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily %s: %w", table, err)
	}
	defer rows.Close()

	out := []domain.DailyCount{}
	for rows.Next() {
		var day time.Time
		var count int64
		if err := rows.Scan(&day, &count); err != nil {
			return nil, fmt.Errorf("failed to scan daily %s: %w", table, err)
		}
		out = append(out, domain.DailyCount{Day: day, Count: count})
	}
	return out, rows.Err()
}

func (r *PostgresAnalyticsRepository) reportsByStatus(ctx context.Context) ([]domain.StatusCount, error) {
	rows, err := r.db.Query(ctx, reportsByStatusQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports by status: %w", err)
	}
	defer rows.Close()

	out := []domain.StatusCount{}
	for rows.Next() {
		var sc domain.StatusCount
		if err := rows.Scan(&sc.Status, &sc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan reports by status: %w", err)
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}
