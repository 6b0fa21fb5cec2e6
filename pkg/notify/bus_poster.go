package notify

import (
	"context"
	"fmt"

	"github.com/pulsecrm/pulse/pkg/eventbus"
	"github.com/pulsecrm/pulse/pkg/events"
)

// BusPoster queues outbound messages on the event bus for a worker to
// deliver.
type BusPoster struct {
	bus eventbus.EventPublisher
}

func NewBusPoster(bus eventbus.EventPublisher) *BusPoster {
	return &BusPoster{bus: bus}
}

func (p *BusPoster) Post(ctx context.Context, url string, payload map[string]any) error {
	event := events.NewOutboundQueued(url, payload)

	if err := p.bus.Publish(ctx, event.ID, event); err != nil {
		return fmt.Errorf("queueing outbound message for %s: %w", url, err)
	}

	return nil
}
