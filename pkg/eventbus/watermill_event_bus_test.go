package eventbus_test

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsecrm/pulse/pkg/channels/gochannel"
	"github.com/pulsecrm/pulse/pkg/eventbus"
	"github.com/pulsecrm/pulse/pkg/events"
	"github.com/pulsecrm/pulse/pkg/models"
)

func newTestBus(t *testing.T) eventbus.EventBus {
	t.Helper()

	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)
	t.Cleanup(func() { _ = bus.Close() })

	return bus
}

func TestWatermillEventBus_EmailQueuedRoundTrip(t *testing.T) {
	bus := newTestBus(t)

	received := make(chan *events.EmailQueued, 1)

	err := bus.Handle(events.EmailQueuedEvent, func(_ context.Context, event any) error {
		email, ok := event.(*events.EmailQueued)
		require.True(t, ok)
		received <- email

		return nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, bus.Subscribe(ctx))

	queued := events.NewEmailQueued([]string{"owner@pulse.test"}, "Lead needs attention", "Follow up today.")
	require.NoError(t, bus.Publish(ctx, "Lead-1", queued))

	select {
	case email := <-received:
		assert.Equal(t, queued.ID, email.ID)
		assert.Equal(t, []string{"owner@pulse.test"}, email.To)
		assert.Equal(t, "Lead needs attention", email.Subject)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for email event")
	}
}

func TestWatermillEventBus_UnhandledEventTypesAreIgnored(t *testing.T) {
	bus := newTestBus(t)

	received := make(chan *events.OutboundQueued, 1)

	err := bus.Handle(events.OutboundQueuedEvent, func(_ context.Context, event any) error {
		received <- event.(*events.OutboundQueued)

		return nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, bus.Subscribe(ctx))

	// No handler registered for record changes; the bus acks and moves on.
	change := events.NewRecordChanged(models.EntityLead, 1, models.EventCreated, "user-1", nil)
	require.NoError(t, bus.Publish(ctx, "Lead-1", change))

	outbound := events.NewOutboundQueued("https://hooks.test/crm", map[string]any{"record_id": float64(1)})
	require.NoError(t, bus.Publish(ctx, "Lead-1", outbound))

	select {
	case event := <-received:
		assert.Equal(t, outbound.ID, event.ID)
		assert.Equal(t, "https://hooks.test/crm", event.URL)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for outbound event")
	}
}
