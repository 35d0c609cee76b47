package events

import (
	"context"
	"io"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func testBus() *Bus {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewBus(logger)
}

func TestBus_DeliversToNamedSubscriber(t *testing.T) {
	bus := testBus()

	var got atomic.Value
	bus.Subscribe(UserRegistered, func(_ context.Context, e Event) {
		got.Store(e.SubjectID)
	})

	bus.Publish(Event{Name: UserRegistered, SubjectID: "user-1"})
	bus.Wait()

	assert.Equal(t, "user-1", got.Load())
}

func TestBus_SkipsUnrelatedSubscriber(t *testing.T) {
	bus := testBus()

	var calls atomic.Int64
	bus.Subscribe(RoleCreated, func(context.Context, Event) {
		calls.Add(1)
	})

	bus.Publish(Event{Name: UserRegistered})
	bus.Wait()

	assert.Equal(t, int64(0), calls.Load())
}

func TestBus_WildcardReceivesEverything(t *testing.T) {
	bus := testBus()

	var calls atomic.Int64
	bus.Subscribe("*", func(context.Context, Event) {
		calls.Add(1)
	})

	bus.Publish(Event{Name: UserRegistered})
	bus.Publish(Event{Name: RoleDeleted})
	bus.Publish(Event{Name: "something.else"})
	bus.Wait()

	assert.Equal(t, int64(3), calls.Load())
}

func TestBus_StampsPublicationTime(t *testing.T) {
	bus := testBus()

	var stamped atomic.Bool
	bus.Subscribe(UserCreated, func(_ context.Context, e Event) {
		stamped.Store(!e.At.IsZero())
	})

	bus.Publish(Event{Name: UserCreated})
	bus.Wait()

	assert.True(t, stamped.Load())
}

func TestBus_PanickingHandlerDoesNotStopOthers(t *testing.T) {
	bus := testBus()

	bus.Subscribe(UserDeleted, func(context.Context, Event) {
		panic("boom")
	})
	var calls atomic.Int64
	bus.Subscribe(UserDeleted, func(context.Context, Event) {
		calls.Add(1)
	})

	bus.Publish(Event{Name: UserDeleted})
	bus.Wait()

	assert.Equal(t, int64(1), calls.Load())
}
