package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pulsecrm/pulse/pkg/events"
	"github.com/pulsecrm/pulse/pkg/mocks"
)

func TestBusPoster_QueuesOutboundMessage(t *testing.T) {
	bus := &mocks.MockEventBus{}
	bus.On("Publish", mock.Anything, mock.Anything, mock.AnythingOfType("events.OutboundQueued")).Return(nil)

	p := NewBusPoster(bus)

	err := p.Post(context.Background(), "https://crm.example.com/hooks", map[string]any{"stage": "closed_won"})
	require.NoError(t, err)

	bus.AssertNumberOfCalls(t, "Publish", 1)

	queued, ok := bus.Calls[0].Arguments.Get(2).(events.OutboundQueued)
	require.True(t, ok)
	assert.Equal(t, "https://crm.example.com/hooks", queued.URL)
	assert.Equal(t, map[string]any{"stage": "closed_won"}, queued.Payload)
}

func TestBusPoster_PublishFailure(t *testing.T) {
	bus := &mocks.MockEventBus{}
	bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker down"))

	p := NewBusPoster(bus)

	err := p.Post(context.Background(), "https://crm.example.com/hooks", nil)
	assert.Error(t, err)
}
