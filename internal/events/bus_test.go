package events

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestBusDeliversToTypedSubscribers(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	var got []*Event
	bus.Subscribe(ImportCompleted, func(e *Event) {
		got = append(got, e)
	})

	bus.Publish("flips", ImportCompleted, map[string]interface{}{"imported": 42})
	bus.Publish("items", PricesRefreshed, nil)

	assert.Len(t, got, 1, "typed subscriber must only see its own type")
	assert.Equal(t, ImportCompleted, got[0].Type)
	assert.Equal(t, "flips", got[0].Module)
	assert.Equal(t, 42, got[0].Data["imported"])
}

func TestBusDeliversToAllSubscribers(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	count := 0
	bus.SubscribeAll(func(e *Event) { count++ })

	bus.Publish("flips", ImportCompleted, nil)
	bus.Publish("items", PricesRefreshed, nil)
	bus.Publish("blocklist", BlocklistGenerated, nil)

	assert.Equal(t, 3, count)
}
