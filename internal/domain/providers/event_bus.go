package providers

import (
	"context"

	"github.com/medicrew/backend/internal/domain/entities"
)

// EventBus defines the interface for publishing and subscribing to portal events
type EventBus interface {
	// Publish publishes an event to all subscribers
	Publish(ctx context.Context, channel string, event *entities.PortalEvent) error

	// Subscribe subscribes to events on a channel until ctx is done
	Subscribe(ctx context.Context, channel string) (<-chan *entities.PortalEvent, error)

	// Unsubscribe unsubscribes from a channel
	Unsubscribe(ctx context.Context, channel string) error

	// Close closes the event bus and all subscriptions
	Close() error
}

const (
	// EventChannelQueue carries every change to the doctor queue and symptom checks
	EventChannelQueue = "portal:queue"

	// EventChannelPatientPrefix is the prefix for patient-specific channels
	EventChannelPatientPrefix = "patient:"
)

// GetPatientChannel returns the channel name for a specific patient
func GetPatientChannel(patientID string) string {
	return EventChannelPatientPrefix + patientID
}
