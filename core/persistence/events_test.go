package persistence

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus_SubscribeAndEmit(t *testing.T) {
	bus, err := NewEventBus()
	require.NoError(t, err)

	var mu sync.Mutex
	var received []Event
	unsubscribe := bus.Subscribe(RecordCreateSuccess, func(ctx context.Context, event Event) error {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, event)
		return nil
	})
	defer unsubscribe()

	bus.Emit(NewEvent(RecordCreateSuccess, "create", "books", nil, nil, time.Now()))
	bus.Emit(NewEvent(ModelDefineSuccess, "define", "books", nil, nil, time.Time{}))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "books", received[0].Model)
	assert.NotNil(t, received[0].Duration)
}

func TestEventBus_NilIsNoop(t *testing.T) {
	var bus *EventBus
	assert.NotPanics(t, func() {
		bus.Emit(Event{Type: ModelDefineFailed})
	})
}

func TestNewEvent(t *testing.T) {
	event := NewEvent(ModelDefineFailed, "define", "books", errors.New("boom"), nil, time.Time{})
	assert.Equal(t, ModelDefineFailed, event.Type)
	require.NotNil(t, event.Error)
	assert.Equal(t, "boom", *event.Error)
	assert.Nil(t, event.Duration)
	assert.NotZero(t, event.Timestamp)
}
