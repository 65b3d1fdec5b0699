package hub_test

import (
	"encoding/json"
	"testing"

	"squadup/backend/internal/engine"
	"squadup/backend/internal/hub"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishFansOutToTopicSubscribers(t *testing.T) {
	h := hub.NewHub()
	a := make(hub.Client, 1)
	b := make(hub.Client, 1)
	other := make(hub.Client, 1)
	h.Subscribe(engine.LobbyTopic(1), a)
	h.Subscribe(engine.LobbyTopic(1), b)
	h.Subscribe(engine.LobbyTopic(2), other)

	h.Publish(engine.LobbyTopic(1), engine.Event{Type: engine.EventMemberJoined, AggregateID: 1, UserID: 7})

	for _, client := range []hub.Client{a, b} {
		var event engine.Event
		require.NoError(t, json.Unmarshal(<-client, &event))
		assert.Equal(t, engine.EventMemberJoined, event.Type)
		assert.EqualValues(t, 7, event.UserID)
	}
	assert.Empty(t, other)
}

func TestUnsubscribeClosesTheClient(t *testing.T) {
	h := hub.NewHub()
	client := make(hub.Client, 1)
	h.Subscribe(engine.PartyTopic(3), client)
	h.Unsubscribe(engine.PartyTopic(3), client)

	_, open := <-client
	assert.False(t, open)

	// Publishing to the emptied topic is a no-op.
	h.Publish(engine.PartyTopic(3), engine.Event{Type: engine.EventDisbanded, AggregateID: 3})
}

func TestSlowSubscriberIsSkipped(t *testing.T) {
	h := hub.NewHub()
	full := make(hub.Client) // unbuffered and never read
	h.Subscribe(engine.LobbyTopic(9), full)

	// Must not block.
	h.Publish(engine.LobbyTopic(9), engine.Event{Type: engine.EventUpdated, AggregateID: 9})
}
