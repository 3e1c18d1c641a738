package rules

import (
	"sync"
	"time"
)

// EventType indicates the category of a game event.
type EventType string

const (
	// Turn lifecycle
	EventTurnStarted    EventType = "TURN_STARTED"
	EventRollRequired   EventType = "ROLL_REQUIRED"
	EventDiceRolled     EventType = "DICE_ROLLED"
	EventMoveSelected   EventType = "MOVE_SELECTED"
	EventNegotiated     EventType = "NEGOTIATED"
	EventMoveCommitted  EventType = "MOVE_COMMITTED"
	EventPlayerFinished EventType = "PLAYER_FINISHED"
	EventGameOver       EventType = "GAME_OVER"

	// Resource and card effects
	EventCardsDrawn  EventType = "CARDS_DRAWN"
	EventFeeCharged  EventType = "FEE_CHARGED"
	EventTimeSpent   EventType = "TIME_SPENT"
	EventOutcomeNote EventType = "OUTCOME_NOTE"

	// Data authoring problems surfaced at runtime
	EventDataGap      EventType = "DATA_GAP"
	EventNoMovesFound EventType = "NO_MOVES_FOUND"
)

// IsEffect reports whether the event records a change to a player's
// resources or hand.
func (et EventType) IsEffect() bool {
	switch et {
	case EventCardsDrawn, EventFeeCharged, EventTimeSpent:
		return true
	}
	return false
}

// Event represents a state change that other subsystems may react to.
type Event struct {
	Type        EventType         `json:"type"`
	GameID      string            `json:"game_id,omitempty"`
	PlayerID    string            `json:"player_id,omitempty"`
	SpaceID     string            `json:"space_id,omitempty"`
	Turn        int               `json:"turn"`
	Amount      int               `json:"amount,omitempty"`  // roll value, fee, days, card count
	Data        string            `json:"data,omitempty"`    // card type, destination id, raw rule
	Targets     []string          `json:"targets,omitempty"` // card ids, candidate ids
	Timestamp   time.Time         `json:"timestamp"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Description string            `json:"description,omitempty"`
}

// Listener defines a callback that reacts to incoming events.
type Listener func(Event)

type subscription struct {
	handle   int
	filter   EventType // empty matches every event
	listener Listener
}

// EventBus is a synchronous publish/subscribe hub. Listeners run in
// subscription order on the publishing goroutine.
type EventBus struct {
	mu         sync.RWMutex
	subs       []subscription
	nextHandle int
}

// NewEventBus constructs a fresh event bus instance.
func NewEventBus() *EventBus {
	return &EventBus{}
}

// Subscribe registers a listener for all events and returns a handle.
func (bus *EventBus) Subscribe(listener Listener) int {
	return bus.add("", listener)
}

// SubscribeTyped registers a listener for a single event type.
func (bus *EventBus) SubscribeTyped(eventType EventType, callback func(Event)) int {
	if eventType == "" {
		return -1
	}
	return bus.add(eventType, callback)
}

func (bus *EventBus) add(filter EventType, listener Listener) int {
	if listener == nil {
		return -1
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	handle := bus.nextHandle
	bus.nextHandle++
	bus.subs = append(bus.subs, subscription{handle: handle, filter: filter, listener: listener})
	return handle
}

// Unsubscribe removes the listener identified by handle. Unknown handles
// are ignored.
func (bus *EventBus) Unsubscribe(handle int) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	for i, sub := range bus.subs {
		if sub.handle == handle {
			bus.subs = append(bus.subs[:i:i], bus.subs[i+1:]...)
			return
		}
	}
}

// UnsubscribeTyped is Unsubscribe; handles are unique across both kinds.
func (bus *EventBus) UnsubscribeTyped(handle int) {
	bus.Unsubscribe(handle)
}

// Publish delivers the event to matching listeners. The listener list is
// copied first, so a listener may subscribe or unsubscribe while running.
func (bus *EventBus) Publish(event Event) {
	bus.mu.RLock()
	subs := make([]subscription, len(bus.subs))
	copy(subs, bus.subs)
	bus.mu.RUnlock()

	for _, sub := range subs {
		if sub.filter == "" || sub.filter == event.Type {
			sub.listener(event)
		}
	}
}

// PublishBatch publishes events in order.
func (bus *EventBus) PublishBatch(events []Event) {
	for _, event := range events {
		bus.Publish(event)
	}
}

// NewEvent creates a new event with common fields populated.
func NewEvent(eventType EventType, playerID, spaceID string, turn int) Event {
	return Event{
		Type:      eventType,
		PlayerID:  playerID,
		SpaceID:   spaceID,
		Turn:      turn,
		Timestamp: time.Now(),
		Metadata:  make(map[string]string),
	}
}

// NewEventWithAmount creates a new event with an amount value.
func NewEventWithAmount(eventType EventType, playerID, spaceID string, turn, amount int) Event {
	evt := NewEvent(eventType, playerID, spaceID, turn)
	evt.Amount = amount
	return evt
}
