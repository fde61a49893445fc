// Package events provides the session event log: an ordered queue drained once per
// operation plus the history of everything that happened in the session.
package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType defines the category of a session event.
type EventType string

const (
	EventTypePhaseChanged        EventType = "PHASE_CHANGED"
	EventTypeLockdownInitiated   EventType = "LOCKDOWN_INITIATED"
	EventTypeEscapeWindowClosed  EventType = "ESCAPE_WINDOW_CLOSED"
	EventTypeLockdownEnded       EventType = "LOCKDOWN_ENDED"
	EventTypeTimeExtended        EventType = "TIME_EXTENDED"
	EventTypeStatsUpdated        EventType = "STATS_UPDATED"
	EventTypeMemoryHealthUpdated EventType = "MEMORY_HEALTH_UPDATED"
	EventTypeMemoryDepleted      EventType = "MEMORY_DEPLETED"
	EventTypeMemoryReleased      EventType = "MEMORY_RELEASED"
	EventTypeCodeDiscovered      EventType = "CODE_DISCOVERED"
	EventTypeCodeAccepted        EventType = "CODE_ACCEPTED"
	EventTypeCodeRejected        EventType = "CODE_REJECTED"
	EventTypeTrapChoice          EventType = "TRAP_CHOICE_PRESENTED"
	EventTypeOutcomeSelected     EventType = "OUTCOME_SELECTED"
	EventTypePlayerAction        EventType = "PLAYER_ACTION"
	EventTypeSessionPaused       EventType = "SESSION_PAUSED"
	EventTypeSessionResumed      EventType = "SESSION_RESUMED"
	EventTypeCue                 EventType = "CUE"
)

// GameEvent represents an immutable record of something that happened in a session.
type GameEvent struct {
	ID        string      `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	Type      EventType   `json:"type"`
	ActorID   string      `json:"actor_id"`
	Elapsed   float64     `json:"elapsed"` // Session seconds when emitted
	Payload   interface{} `json:"payload"`
	Transient bool        `json:"-"` // Per-tick telemetry: delivered, never kept or persisted
}

// EventPersister defines how an event is durably stored.
type EventPersister interface {
	Append(event GameEvent) error
}

// Handler receives delivered events.
type Handler func(GameEvent)

// EventLog queues events as components emit them and delivers them, in emission
// order, when the owner calls Flush. Not safe for concurrent use: a session and its
// log live on one goroutine.
type EventLog struct {
	pending   []GameEvent
	history   []GameEvent
	handlers  map[EventType][]Handler
	all       []Handler
	persister EventPersister
	onError   func(error)
}

// NewEventLog creates a new event log with an optional persister.
func NewEventLog(persister EventPersister) *EventLog {
	return &EventLog{
		handlers:  make(map[EventType][]Handler),
		persister: persister,
	}
}

// OnPersistError installs a callback for persister failures.
func (el *EventLog) OnPersistError(fn func(error)) {
	el.onError = fn
}

// Subscribe registers a handler for one event type.
func (el *EventLog) Subscribe(eventType EventType, h Handler) {
	el.handlers[eventType] = append(el.handlers[eventType], h)
}

// SubscribeAll registers a handler for every event type.
func (el *EventLog) SubscribeAll(h Handler) {
	el.all = append(el.all, h)
}

// Append queues a new event. Missing ID and timestamp are filled in.
func (el *EventLog) Append(event GameEvent) {
	if event.ID == "" {
		event.ID = GenerateEventID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	el.pending = append(el.pending, event)
}

// Flush delivers queued events in order, including any appended by handlers
// during delivery. Non-transient events are recorded and persisted.
func (el *EventLog) Flush() int {
	delivered := 0
	for len(el.pending) > 0 {
		event := el.pending[0]
		el.pending = el.pending[1:]

		if !event.Transient {
			el.history = append(el.history, event)
			if el.persister != nil {
				if err := el.persister.Append(event); err != nil && el.onError != nil {
					el.onError(err)
				}
			}
		}
		for _, h := range el.handlers[event.Type] {
			h(event)
		}
		for _, h := range el.all {
			h(event)
		}
		delivered++
	}
	el.pending = nil
	return delivered
}

// GetByType returns all recorded events of one type.
func (el *EventLog) GetByType(eventType EventType) []GameEvent {
	var result []GameEvent
	for _, e := range el.history {
		if e.Type == eventType {
			result = append(result, e)
		}
	}
	return result
}

// Replay returns a copy of the recorded history.
func (el *EventLog) Replay() []GameEvent {
	out := make([]GameEvent, len(el.history))
	copy(out, el.history)
	return out
}

// GenerateEventID creates a unique event identifier.
func GenerateEventID() string {
	return uuid.NewString()
}
