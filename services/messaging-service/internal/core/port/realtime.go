package port

import (
	"context"

	"marketplace/services/messaging-service/internal/core/domain"
)

// BroadcasterPort доставляет события подключенным клиентам.
// Ошибки доставки не должны влиять на исходную операцию.
type BroadcasterPort interface {
	Broadcast(ctx context.Context, event domain.RealtimeEvent)
}
