package eventbus

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/chatbuddy/core/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestBus_PublishSubscribe_DeliversInOrder(t *testing.T) {
	bus := NewBus(16)
	bus.Start()
	defer bus.Stop()

	var mu sync.Mutex
	var seen []string

	bus.Subscribe(domain.EventProductUpdated, func(ctx domain.Context, evt domain.Event) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, evt.ID)
		return nil
	})

	bus.Publish(domain.Event{ID: "1", Type: domain.EventProductUpdated})
	bus.Publish(domain.Event{ID: "2", Type: domain.EventProductUpdated})
	bus.Publish(domain.Event{ID: "3", Type: domain.EventProductUpdated})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 3
	}, time.Second, time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"1", "2", "3"}, seen)
}

func TestBus_MultipleHandlers_RegistrationOrder(t *testing.T) {
	bus := NewBus(16)
	bus.Start()
	defer bus.Stop()

	var mu sync.Mutex
	var order []string

	bus.Subscribe(domain.EventOrderCreated, func(ctx domain.Context, evt domain.Event) error {
		mu.Lock()
		order = append(order, "first")
		mu.Unlock()
		return nil
	})
	bus.Subscribe(domain.EventOrderCreated, func(ctx domain.Context, evt domain.Event) error {
		mu.Lock()
		order = append(order, "second")
		mu.Unlock()
		return nil
	})

	bus.Publish(domain.Event{ID: "1", Type: domain.EventOrderCreated})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 2
	}, time.Second, time.Millisecond)

	require.Equal(t, []string{"first", "second"}, order)
}

func TestBus_HandlerError_DoesNotStopConsumer(t *testing.T) {
	bus := NewBus(16)
	bus.Start()
	defer bus.Stop()

	var processed int32
	var mu sync.Mutex

	bus.Subscribe(domain.EventJobCompleted, func(ctx domain.Context, evt domain.Event) error {
		if evt.ID == "bad" {
			return errors.New("boom")
		}
		mu.Lock()
		processed++
		mu.Unlock()
		return nil
	})

	bus.Publish(domain.Event{ID: "bad", Type: domain.EventJobCompleted})
	bus.Publish(domain.Event{ID: "good", Type: domain.EventJobCompleted})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return processed == 1
	}, time.Second, time.Millisecond)
}

func TestBus_OverflowDropsOldest(t *testing.T) {
	bus := NewBus(2)

	bus.Publish(domain.Event{ID: "1", Type: domain.EventPriceChanged})
	bus.Publish(domain.Event{ID: "2", Type: domain.EventPriceChanged})
	bus.Publish(domain.Event{ID: "3", Type: domain.EventPriceChanged})

	require.Equal(t, 2, bus.QueueLen())

	var mu sync.Mutex
	var seen []string
	bus.Subscribe(domain.EventPriceChanged, func(ctx domain.Context, evt domain.Event) error {
		mu.Lock()
		seen = append(seen, evt.ID)
		mu.Unlock()
		return nil
	})
	bus.Start()
	defer bus.Stop()
	require.Eventually(t, func() bool { return bus.QueueLen() == 0 }, time.Second, time.Millisecond)
	bus.Publish(domain.Event{ID: "4", Type: domain.EventPriceChanged})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 3
	}, time.Second, time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"2", "3", "4"}, seen)
}
