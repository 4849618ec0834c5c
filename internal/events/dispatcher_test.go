package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDispatcherDeliversToSubscribersOfType(t *testing.T) {
	d := NewInMemoryDispatcher(zap.NewNop())

	var placed, signedIn int
	d.Subscribe(EventOrderPlaced, func(context.Context, Event) error {
		placed++
		return nil
	})
	d.Subscribe(EventSessionSignedIn, func(context.Context, Event) error {
		signedIn++
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), NewEvent(EventOrderPlaced, "o1", Actor{}, nil)))
	assert.Equal(t, 1, placed)
	assert.Equal(t, 0, signedIn)
}

func TestDispatcherContinuesAfterHandlerError(t *testing.T) {
	d := NewInMemoryDispatcher(nil)

	calls := 0
	d.Subscribe(EventOrderAssigned, func(context.Context, Event) error {
		calls++
		return errors.New("boom")
	})
	d.Subscribe(EventOrderAssigned, func(context.Context, Event) error {
		calls++
		return nil
	})

	err := d.Publish(context.Background(), NewEvent(EventOrderAssigned, "o1", Actor{}, nil))
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestNewEventStampsIdentity(t *testing.T) {
	a := NewEvent(EventSessionSignedUp, "u1", Actor{UserID: "u1"}, nil)
	b := NewEvent(EventSessionSignedUp, "u1", Actor{UserID: "u1"}, nil)

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.False(t, a.Timestamp.IsZero())
	assert.Equal(t, "u1", a.SubjectID)
}

func TestDispatcherRecoversHandlerPanic(t *testing.T) {
	d := NewInMemoryDispatcher(nil)

	delivered := false
	d.Subscribe(EventOrderPlaced, func(context.Context, Event) error {
		panic("template missing")
	})
	d.Subscribe(EventOrderPlaced, func(context.Context, Event) error {
		delivered = true
		return nil
	})

	assert.NotPanics(t, func() {
		require.NoError(t, d.Publish(context.Background(), NewEvent(EventOrderPlaced, "o1", Actor{}, nil)))
	})
	assert.True(t, delivered)
}
