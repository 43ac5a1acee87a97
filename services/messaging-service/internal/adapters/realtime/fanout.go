package realtime

import (
	"context"

	"marketplace/services/messaging-service/internal/core/domain"
	"marketplace/services/messaging-service/internal/core/port"
)

// FanoutBroadcaster передает событие всем приемникам по очереди.
type FanoutBroadcaster struct {
	sinks []port.BroadcasterPort
}

var _ port.BroadcasterPort = (*FanoutBroadcaster)(nil)

func NewFanoutBroadcaster(sinks ...port.BroadcasterPort) *FanoutBroadcaster {
	active := make([]port.BroadcasterPort, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			active = append(active, s)
		}
	}
	return &FanoutBroadcaster{sinks: active}
}

func (f *FanoutBroadcaster) Broadcast(ctx context.Context, event domain.RealtimeEvent) {
	for _, s := range f.sinks {
		s.Broadcast(ctx, event)
	}
}
