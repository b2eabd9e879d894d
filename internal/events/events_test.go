package events

import (
	"errors"
	"praid/config"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent(t *testing.T) {
	type progress struct {
		Percent float64 `json:"percent"`
		Status  string  `json:"status"`
	}

	event, err := NewEvent(UPLOAD_PROGRESS, "upload-1", progress{Percent: 60, Status: "Captioning"})
	require.NoError(t, err)
	assert.Equal(t, UPLOAD_PROGRESS, event.Type)
	assert.Equal(t, "upload-1", event.Subject)
	assert.Equal(t, 60.0, event.Data["percent"])
	assert.Equal(t, "Captioning", event.Data["status"])

	event, err = NewEvent(PING, "", nil)
	require.NoError(t, err)
	assert.Nil(t, event.Data)

	_, err = NewEvent(MESSAGE, "", make(chan int))
	assert.Error(t, err)
}

func TestEventBus_LocalDeliveryInOrder(t *testing.T) {
	bus := New(nil, config.Config{})
	defer bus.Close()
	assert.False(t, bus.Distributed())

	var mu sync.Mutex
	var first, second []string
	require.NoError(t, bus.Subscribe(BROADCAST_CHANNEL, func(event Event) error {
		mu.Lock()
		defer mu.Unlock()
		first = append(first, event.Subject)
		return nil
	}))
	require.NoError(t, bus.Subscribe(BROADCAST_CHANNEL, func(event Event) error {
		mu.Lock()
		defer mu.Unlock()
		second = append(second, event.Subject)
		return errors.New("handler errors are logged, not returned")
	}))

	for _, subject := range []string{"a", "b", "c"} {
		require.NoError(t, bus.Publish(BROADCAST_CHANNEL, Event{Type: UPLOAD_PROGRESS, Subject: subject}))
	}

	assert.Equal(t, []string{"a", "b", "c"}, first)
	assert.Equal(t, []string{"a", "b", "c"}, second)
}

func TestEventBus_FillsDefaults(t *testing.T) {
	bus := New(nil, config.Config{})
	defer bus.Close()

	var received Event
	require.NoError(t, bus.Subscribe(BROADCAST_CHANNEL, func(event Event) error {
		received = event
		return nil
	}))
	require.NoError(t, bus.Publish(BROADCAST_CHANNEL, Event{Type: HEALTH_UPDATE}))

	assert.NotEmpty(t, received.ID)
	assert.False(t, received.Timestamp.IsZero())
	assert.Equal(t, BROADCAST_CHANNEL, received.Channel)
}

func TestEventBus_OtherChannelsAreIsolated(t *testing.T) {
	bus := New(nil, config.Config{})
	defer bus.Close()

	called := false
	require.NoError(t, bus.Subscribe("other", func(Event) error {
		called = true
		return nil
	}))
	require.NoError(t, bus.Publish(BROADCAST_CHANNEL, Event{Type: MESSAGE}))
	assert.False(t, called)
}
