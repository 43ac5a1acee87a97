package usecase

import (
	"context"
	"time"

	"marketplace/pkg/contextkeys"
	"marketplace/pkg/pagination"
	"marketplace/services/messaging-service/internal/core/domain"
	"marketplace/services/messaging-service/internal/core/port"

	"github.com/google/uuid"
)

const maxMarkReadBatch = 100

type ListNotificationsUseCase struct {
	repo port.NotificationRepositoryPort
}

func NewListNotificationsUseCase(repo port.NotificationRepositoryPort) *ListNotificationsUseCase {
	return &ListNotificationsUseCase{repo: repo}
}

func (uc *ListNotificationsUseCase) Execute(ctx context.Context, actor domain.Actor, unreadOnly bool, cursor string, limit int) (*domain.NotificationPage, error) {
	c, err := pagination.DecodeFor(cursor, domain.SortCreated)
	if err != nil {
		return nil, err
	}
	return uc.repo.ListByUser(ctx, actor.UserID, unreadOnly, c, pageLimit(limit))
}

type MarkNotificationsReadUseCase struct {
	repo  port.NotificationRepositoryPort
	cache port.UnreadCounterCachePort
	now   func() time.Time
}

func NewMarkNotificationsReadUseCase(repo port.NotificationRepositoryPort, cache port.UnreadCounterCachePort) *MarkNotificationsReadUseCase {
	return &MarkNotificationsReadUseCase{repo: repo, cache: cache, now: time.Now}
}

// Execute отмечает прочитанными уведомления пользователя. Чужие id игнорируются.
func (uc *MarkNotificationsReadUseCase) Execute(ctx context.Context, actor domain.Actor, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, domain.NewValidationError("ids", "must not be empty")
	}
	if len(ids) > maxMarkReadBatch {
		return 0, domain.NewValidationError("ids", "must contain at most 100 items")
	}

	n, err := uc.repo.MarkRead(ctx, actor.UserID, ids, domain.MessageTime(uc.now()))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		invalidateUnread(ctx, uc.cache, actor.UserID)
	}
	return n, nil
}

type MarkAllNotificationsReadUseCase struct {
	repo  port.NotificationRepositoryPort
	cache port.UnreadCounterCachePort
	now   func() time.Time
}

func NewMarkAllNotificationsReadUseCase(repo port.NotificationRepositoryPort, cache port.UnreadCounterCachePort) *MarkAllNotificationsReadUseCase {
	return &MarkAllNotificationsReadUseCase{repo: repo, cache: cache, now: time.Now}
}

func (uc *MarkAllNotificationsReadUseCase) Execute(ctx context.Context, actor domain.Actor) (int64, error) {
	n, err := uc.repo.MarkAllRead(ctx, actor.UserID, domain.MessageTime(uc.now()))
	if err != nil {
		return 0, err
	}
	invalidateUnread(ctx, uc.cache, actor.UserID)
	return n, nil
}

func invalidateUnread(ctx context.Context, cache port.UnreadCounterCachePort, userID uuid.UUID) {
	if err := cache.Invalidate(ctx, userID); err != nil {
		contextkeys.LoggerFromContext(ctx).Warn("Failed to invalidate unread counter", port.Fields{
			"user_id": userID,
			"error":   err.Error(),
		})
	}
}

// UnreadCountUseCase читает счетчик из кэша, при промахе считает в базе.
// Недоступный кэш не мешает ответу. Подсчет, который обогнало новое уведомление
// или отметка о прочтении, в кэш не попадает.
type UnreadCountUseCase struct {
	repo  port.NotificationRepositoryPort
	cache port.UnreadCounterCachePort
}

func NewUnreadCountUseCase(repo port.NotificationRepositoryPort, cache port.UnreadCounterCachePort) *UnreadCountUseCase {
	return &UnreadCountUseCase{repo: repo, cache: cache}
}

func (uc *UnreadCountUseCase) Execute(ctx context.Context, actor domain.Actor) (int64, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"use_case": "UnreadCount",
		"user_id":  actor.UserID,
	})

	count, ok, err := uc.cache.Get(ctx, actor.UserID)
	if err != nil {
		logger.Warn("Unread counter cache read failed", port.Fields{"error": err.Error()})
	}
	if ok {
		return count, nil
	}

	// поколение читается до подсчета
	generation, genErr := uc.cache.Generation(ctx, actor.UserID)
	if genErr != nil {
		logger.Warn("Unread counter generation read failed", port.Fields{"error": genErr.Error()})
	}

	count, err = uc.repo.CountUnread(ctx, actor.UserID)
	if err != nil {
		return 0, err
	}
	if genErr != nil {
		return count, nil
	}
	stored, err := uc.cache.Set(ctx, actor.UserID, count, generation)
	if err != nil {
		logger.Warn("Unread counter cache write failed", port.Fields{"error": err.Error()})
	} else if !stored {
		logger.Debug("Unread counter changed while counting, not cached", nil)
	}
	return count, nil
}

// PurgeReadNotificationsUseCase удаляет прочитанные уведомления старше срока хранения.
type PurgeReadNotificationsUseCase struct {
	repo      port.NotificationRepositoryPort
	retention time.Duration
	now       func() time.Time
}

func NewPurgeReadNotificationsUseCase(repo port.NotificationRepositoryPort, retention time.Duration) *PurgeReadNotificationsUseCase {
	return &PurgeReadNotificationsUseCase{repo: repo, retention: retention, now: time.Now}
}

func (uc *PurgeReadNotificationsUseCase) Execute(ctx context.Context) error {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{"use_case": "PurgeReadNotifications"})

	cutoff := uc.now().UTC().Add(-uc.retention)
	n, err := uc.repo.PurgeRead(ctx, cutoff)
	if err != nil {
		logger.Error("Failed to purge read notifications", err, nil)
		return err
	}
	logger.Info("Use case finished successfully", port.Fields{"purged": n, "read_before": cutoff})
	return nil
}
