package engine

import "fmt"

// EventType tags a committed state change.
type EventType string

const (
	EventMemberJoined EventType = "member_joined"
	EventMemberLeft   EventType = "member_left"
	EventDisbanded    EventType = "disbanded"
	EventUpdated      EventType = "updated"
	EventLobbyCreated EventType = "lobby_created"
)

// Event is a committed-state-change notification. State is only set for
// EventUpdated and carries the aggregate's new public form.
type Event struct {
	Type        EventType   `json:"type"`
	AggregateID uint        `json:"aggregate_id"`
	UserID      uint        `json:"user_id,omitempty"`
	State       interface{} `json:"state,omitempty"`
}

// Broadcaster publishes events to per-aggregate topics. Publication is
// fire-and-forget and happens strictly after the transaction commits.
type Broadcaster interface {
	Publish(topic string, event Event)
}

// NopBroadcaster drops every event.
type NopBroadcaster struct{}

func (NopBroadcaster) Publish(string, Event) {}

// PartyTopic returns the topic carrying events for one party.
func PartyTopic(partyID uint) string { return fmt.Sprintf("party:%d", partyID) }

// LobbyTopic returns the topic carrying events for one lobby.
func LobbyTopic(lobbyID uint) string { return fmt.Sprintf("lobby:%d", lobbyID) }

// outbound is an event held back until commit.
type outbound struct {
	topic string
	event Event
}

func publishAll(b Broadcaster, out []outbound) {
	if b == nil {
		return
	}
	for _, o := range out {
		b.Publish(o.topic, o.event)
	}
}
