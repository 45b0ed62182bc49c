package orchestrator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harun/mnemo/pkg/events"
)

func TestAttach_IngestsPublishedMessages(t *testing.T) {
	store := &fakeStore{predicateResult: true}
	o := activateFake(t, store)

	hub := events.NewHub()
	cancel := o.Attach(hub)
	defer cancel()

	hub.Publish(events.Event{
		Type:    events.TypeMessageReceived,
		Payload: Message{Role: "user", Content: "I always squash commits before merging"},
	})

	require.Eventually(t, func() bool {
		return len(store.addedContents()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, "I always squash commits before merging", store.addedContents()[0])
}

func TestAttach_IgnoresUnexpectedPayloads(t *testing.T) {
	store := &fakeStore{predicateResult: true}
	o := activateFake(t, store)

	hub := events.NewHub()
	cancel := o.Attach(hub)
	defer cancel()

	hub.Publish(events.Event{Type: events.TypeMessageReceived, Payload: "not a message"})
	hub.Publish(events.Event{
		Type:    events.TypeMessageReceived,
		Payload: Message{Role: "user", Content: "I use zsh with starship"},
	})

	require.Eventually(t, func() bool {
		return len(store.addedContents()) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestAttach_CancelStopsDelivery(t *testing.T) {
	store := &fakeStore{predicateResult: true}
	o := activateFake(t, store)

	hub := events.NewHub()
	cancel := o.Attach(hub)
	cancel()

	hub.Publish(events.Event{
		Type:    events.TypeMessageReceived,
		Payload: Message{Role: "user", Content: "I always write tests first"},
	})

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, store.addedContents())
}
