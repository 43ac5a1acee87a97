package usecase

import (
	"context"
	"errors"
	"time"

	"marketplace/pkg/contextkeys"
	"marketplace/services/listing-service/internal/core/domain"
	"marketplace/services/listing-service/internal/core/port"

	"github.com/google/uuid"
)

type ChangeListingStatusUseCase struct {
	repo   port.ListingRepositoryPort
	events port.ListingEventPublisherPort
	now    func() time.Time
}

func NewChangeListingStatusUseCase(repo port.ListingRepositoryPort, events port.ListingEventPublisherPort) *ChangeListingStatusUseCase {
	return &ChangeListingStatusUseCase{repo: repo, events: events, now: time.Now}
}

// Execute публикует, архивирует или возвращает объявление из архива.
func (uc *ChangeListingStatusUseCase) Execute(ctx context.Context, actor domain.Actor, id uuid.UUID, target domain.ListingStatus) (*domain.Listing, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"use_case":   "ChangeListingStatus",
		"user_id":    actor.UserID,
		"listing_id": id,
		"target":     target,
	})
	logger.Info("Use case started", nil)

	if !target.Valid() {
		return nil, domain.NewValidationError("status", "must be one of draft, published, archived")
	}

	listing, err := loadManageable(ctx, uc.repo, actor, id)
	if err != nil {
		return nil, err
	}
	if !listing.CanTransition(target) {
		logger.Warn("Transition rejected", port.Fields{"from": listing.Status})
		return nil, domain.ErrInvalidTransition
	}
	if target == domain.StatusPublished {
		if err := validatePublishable(listing); err != nil {
			return nil, err
		}
	}

	from := listing.Status
	listing.ApplyTransition(target, uc.now().UTC())
	if err := uc.repo.UpdateStatus(ctx, listing, from); err != nil {
		logger.Error("Repository returned an error", err, nil)
		return nil, err
	}

	reason := domain.ArchiveBySeller
	if actor.IsAdmin() && actor.UserID != listing.SellerID {
		reason = domain.ArchiveByAdmin
	}
	publishStatusEvent(ctx, uc.events, listing, reason)

	logger.Info("Use case finished successfully", port.Fields{"from": from})
	return listing, nil
}

// publishStatusEvent отправляет событие после фиксации статуса в БД.
// Ошибка шины не откатывает смену статуса.
func publishStatusEvent(ctx context.Context, events port.ListingEventPublisherPort, l *domain.Listing, reason domain.ArchiveReason) {
	logger := contextkeys.LoggerFromContext(ctx)

	var err error
	switch l.Status {
	case domain.StatusPublished:
		err = events.PublishListingPublished(ctx, domain.ListingPublishedEvent{
			ListingID:   l.ID,
			SellerID:    l.SellerID,
			Title:       l.Title,
			Category:    l.Category,
			Price:       l.Price,
			Currency:    l.Currency,
			City:        l.City,
			PublishedAt: *l.PublishedAt,
		})
	case domain.StatusArchived:
		err = events.PublishListingArchived(ctx, domain.ListingArchivedEvent{
			ListingID:  l.ID,
			SellerID:   l.SellerID,
			Title:      l.Title,
			Reason:     reason,
			ArchivedAt: *l.ArchivedAt,
		})
	}
	if err != nil {
		logger.Error("Failed to publish listing status event", err, port.Fields{
			"listing_id": l.ID,
			"status":     l.Status,
		})
	}
}

type ArchiveExpiredListingsUseCase struct {
	repo      port.ListingRepositoryPort
	events    port.ListingEventPublisherPort
	ttl       time.Duration
	batchSize int
	now       func() time.Time
}

func NewArchiveExpiredListingsUseCase(repo port.ListingRepositoryPort, events port.ListingEventPublisherPort, ttl time.Duration) *ArchiveExpiredListingsUseCase {
	return &ArchiveExpiredListingsUseCase{repo: repo, events: events, ttl: ttl, batchSize: 100, now: time.Now}
}

// Execute архивирует объявления, опубликованные дольше ttl. Возвращает их число.
func (uc *ArchiveExpiredListingsUseCase) Execute(ctx context.Context) (int, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{"use_case": "ArchiveExpiredListings"})

	now := uc.now().UTC()
	cutoff := now.Add(-uc.ttl)
	archived := 0

	for {
		if err := ctx.Err(); err != nil {
			return archived, err
		}
		batch, err := uc.repo.FindExpired(ctx, cutoff, uc.batchSize)
		if err != nil {
			logger.Error("Failed to load expired listings", err, nil)
			return archived, err
		}

		for i := range batch {
			listing := &batch[i]
			listing.ApplyTransition(domain.StatusArchived, now)
			err := uc.repo.UpdateStatus(ctx, listing, domain.StatusPublished)
			if errors.Is(err, domain.ErrInvalidTransition) {
				// статус уже изменили параллельно
				continue
			}
			if err != nil {
				logger.Error("Failed to archive listing", err, port.Fields{"listing_id": listing.ID})
				return archived, err
			}
			publishStatusEvent(ctx, uc.events, listing, domain.ArchiveExpired)
			archived++
		}

		if len(batch) < uc.batchSize {
			break
		}
	}

	if archived > 0 {
		logger.Info("Expired listings archived", port.Fields{"count": archived, "cutoff": cutoff})
	}
	return archived, nil
}
