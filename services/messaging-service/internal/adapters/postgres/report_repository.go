package postgres_adapter

import (
	"context"
	"errors"
	"fmt"

	"marketplace/pkg/contextkeys"
	"marketplace/pkg/pagination"
	"marketplace/services/messaging-service/internal/core/domain"
	"marketplace/services/messaging-service/internal/core/port"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const reportColumns = `id, reporter_id, target_type, target_id, conversation_id, reason, details,
	status, resolved_by, resolution_note, resolved_at, created_at, updated_at`

type PostgresReportRepository struct {
	db DB
}

func NewPostgresReportRepository(db DB) (*PostgresReportRepository, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle cannot be nil")
	}
	return &PostgresReportRepository{db: db}, nil
}

func scanReport(row pgx.Row) (*domain.Report, error) {
	var rep domain.Report
	var targetType, reason, status string
	err := row.Scan(&rep.ID, &rep.ReporterID, &targetType, &rep.TargetID, &rep.ConversationID, &reason, &rep.Details,
		&status, &rep.ResolvedBy, &rep.ResolutionNote, &rep.ResolvedAt, &rep.CreatedAt, &rep.UpdatedAt)
	if err != nil {
		return nil, err
	}
	rep.TargetType = domain.ReportTargetType(targetType)
	rep.Reason = domain.ReportReason(reason)
	rep.Status = domain.ReportStatus(status)
	return &rep, nil
}

func (r *PostgresReportRepository) Create(ctx context.Context, rep *domain.Report) error {
	query := `INSERT INTO reports (` + reportColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := r.db.Exec(ctx, query, rep.ID, rep.ReporterID, string(rep.TargetType), rep.TargetID, rep.ConversationID,
		string(rep.Reason), rep.Details, string(rep.Status), rep.ResolvedBy, rep.ResolutionNote, rep.ResolvedAt,
		rep.CreatedAt, rep.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrDuplicateReport
		}
		contextkeys.LoggerFromContext(ctx).Error("Failed to insert report", err, port.Fields{
			"component": "PostgresReportRepository",
			"method":    "Create",
			"report_id": rep.ID,
		})
		return fmt.Errorf("failed to insert report: %w", err)
	}
	return nil
}

func (r *PostgresReportRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Report, error) {
	rep, err := scanReport(r.db.QueryRow(ctx, `SELECT `+reportColumns+` FROM reports WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrReportNotFound
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return rep, nil
}

func (r *PostgresReportRepository) List(ctx context.Context, status domain.ReportStatus, cursor *pagination.Cursor, limit int) (*domain.ReportPage, error) {
	qb := newQueryBuilder()
	if status != "" {
		qb.addCondition("%s = $%d", "status", string(status))
	}
	return r.list(ctx, qb, cursor, limit)
}

func (r *PostgresReportRepository) ListByReporter(ctx context.Context, reporterID uuid.UUID, cursor *pagination.Cursor, limit int) (*domain.ReportPage, error) {
	qb := newQueryBuilder()
	qb.addCondition("%s = $%d", "reporter_id", reporterID)
	return r.list(ctx, qb, cursor, limit)
}

func (r *PostgresReportRepository) list(ctx context.Context, qb *queryBuilder, cursor *pagination.Cursor, limit int) (*domain.ReportPage, error) {
	if cursor != nil && cursor.Time != nil {
		qb.addKeyset("created_at", "id", true, *cursor.Time, cursor.ID)
	}
	limitArg := qb.addArg(limit + 1)
	where, args := qb.build()

	query := fmt.Sprintf(`SELECT %s FROM reports %s ORDER BY created_at DESC, id DESC LIMIT $%d`, reportColumns, where, limitArg)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		contextkeys.LoggerFromContext(ctx).Error("Failed to query reports", err, port.Fields{
			"component": "PostgresReportRepository",
			"method":    "list",
		})
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer rows.Close()

	var items []domain.Report
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		items = append(items, *rep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during reports iteration: %w", err)
	}

	page := pagination.BuildPage(items, limit, func(rep domain.Report) pagination.Cursor {
		return rep.CreatedCursor()
	})
	return &page, nil
}

// UpdateStatus меняет статус, только если жалоба все еще в статусе t.From.
func (r *PostgresReportRepository) UpdateStatus(ctx context.Context, id uuid.UUID, t domain.ReportTransition) error {
	query := `UPDATE reports SET
			status = $3,
			resolved_by = COALESCE($4, resolved_by),
			resolution_note = CASE WHEN $5::text = '' THEN resolution_note ELSE $5::text END,
			resolved_at = COALESCE($6, resolved_at),
			updated_at = $7
		WHERE id = $1 AND status = $2`
	tag, err := r.db.Exec(ctx, query, id, string(t.From), string(t.To), t.ResolvedBy, t.Note, t.ResolvedAt, t.UpdatedAt)
	if err != nil {
		contextkeys.LoggerFromContext(ctx).Error("Failed to update report status", err, port.Fields{
			"component": "PostgresReportRepository",
			"method":    "UpdateStatus",
			"report_id": id,
		})
		return fmt.Errorf("failed to update report status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInvalidReportTransition
	}
	return nil
}
