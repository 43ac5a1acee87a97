package port

import (
	"context"

	"github.com/google/uuid"
)

// UnreadCounterCachePort - кэш счетчика непрочитанных уведомлений.
// Промах кэша - (0, false, nil).
//
// Каждый Invalidate увеличивает поколение ключа. Значение, посчитанное в базе,
// записывается только с поколением, прочитанным до подсчета: если за это время
// кэш инвалидировали, запись отбрасывается.
type UnreadCounterCachePort interface {
	Get(ctx context.Context, userID uuid.UUID) (int64, bool, error)
	Generation(ctx context.Context, userID uuid.UUID) (int64, error)
	// Set сохраняет счетчик, только если поколение не изменилось. stored == false - запись отброшена.
	Set(ctx context.Context, userID uuid.UUID, count, generation int64) (stored bool, err error)
	Invalidate(ctx context.Context, userID uuid.UUID) error
}
