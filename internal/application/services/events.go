package services

import (
	"context"

	"github.com/medicrew/backend/internal/domain/entities"
	"github.com/medicrew/backend/internal/domain/providers"
	"github.com/medicrew/backend/internal/infrastructure/observability"
)

// eventPublisher is embedded by services that announce portal changes.
// Publishing is best effort: a failed publish is logged and never fails the
// operation that triggered it.
type eventPublisher struct {
	bus providers.EventBus
}

// SetEventBus enables real-time portal events
func (p *eventPublisher) SetEventBus(bus providers.EventBus) {
	p.bus = bus
}

func (p *eventPublisher) publish(ctx context.Context, channel string, event *entities.PortalEvent) {
	if p.bus == nil {
		return
	}
	if err := p.bus.Publish(ctx, channel, event); err != nil {
		observability.LoggerFromContext(ctx).Warn().
			Err(err).
			Str("channel", channel).
			Str("event_type", string(event.Type)).
			Msg("failed to publish portal event")
	}
}

// publishPortal sends event to the dashboard channel and, when the event
// concerns a patient, to that patient's channel.
func (p *eventPublisher) publishPortal(ctx context.Context, event *entities.PortalEvent) {
	p.publish(ctx, providers.EventChannelQueue, event)
	if event.PatientID != "" {
		p.publish(ctx, providers.GetPatientChannel(event.PatientID), event)
	}
}
