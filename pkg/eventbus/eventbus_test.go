package eventbus_test

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborworks/crewdb/pkg/eventbus"
)

type profileEdited struct {
	Field string
}

func TestEventBus_PublishMatchesSignature(t *testing.T) {
	t.Parallel()
	bus := eventbus.NewEventPublisher(logrus.New())

	var got []string
	bus.Subscribe(func(e profileEdited) {
		got = append(got, e.Field)
	})
	bus.Subscribe(func(n int) {
		t.Error("int handler must not fire for profileEdited")
	})

	bus.Publish(profileEdited{Field: "Title"})
	bus.Publish(profileEdited{Field: "Remarks"})

	require.Equal(t, []string{"Title", "Remarks"}, got)
}

func TestEventBus_PanickingHandlerIsRecovered(t *testing.T) {
	t.Parallel()
	bus := eventbus.NewEventPublisher(logrus.New())

	fired := 0
	bus.Subscribe(func(e profileEdited) {
		panic("boom")
	})
	bus.Subscribe(func(e profileEdited) {
		fired++
	})

	require.NotPanics(t, func() {
		bus.Publish(profileEdited{Field: "Rate"})
	})
	assert.Equal(t, 1, fired)
}

func TestEventBus_Unsubscribe(t *testing.T) {
	t.Parallel()
	bus := eventbus.NewEventPublisher(logrus.New())

	handler := func(e profileEdited) {}
	bus.Subscribe(handler)
	require.Equal(t, 1, bus.SubscribersCount())

	bus.Unsubscribe(handler)
	assert.Equal(t, 0, bus.SubscribersCount())

	bus.Clear()
	assert.Equal(t, 0, bus.SubscribersCount())
}
