// Package storage provides the audit trail of lockdown sessions.
// Sessions are never restored from it; it only records what happened.
package storage

import (
	"context"
	"encoding/json"
	"time"
)

// Event mirrors the session event structure for persistence.
// The engine does not import this; EventSink adapts between the two.
type Event struct {
	ID        string          `json:"id" db:"id"`
	SessionID string          `json:"session_id" db:"session_id"`
	Seq       int64           `json:"seq" db:"seq"`
	Timestamp time.Time       `json:"timestamp" db:"timestamp"`
	EventType string          `json:"event_type" db:"event_type"`
	ActorID   string          `json:"actor_id" db:"actor_id"`
	Elapsed   float64         `json:"elapsed" db:"elapsed"`
	Payload   json.RawMessage `json:"payload" db:"payload"`
}

// EventRepository defines the interface for event persistence.
type EventRepository interface {
	// Append adds a new event to the append-only audit log.
	Append(ctx context.Context, event Event) error

	// GetBySession retrieves all events of a session in emission order.
	GetBySession(ctx context.Context, sessionID string) ([]Event, error)

	// GetByType retrieves the events of one type for a session.
	GetByType(ctx context.Context, sessionID, eventType string) ([]Event, error)
}

// SessionRecord is the summary row of one play-through.
type SessionRecord struct {
	ID        string     `json:"session_id" db:"session_id"`
	Locale    string     `json:"locale" db:"locale"`
	StartedAt time.Time  `json:"started_at" db:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty" db:"ended_at"`
	Outcome   string     `json:"outcome,omitempty" db:"outcome"`
	Elapsed   float64    `json:"elapsed" db:"elapsed"`
}

// SessionRepository records session starts and outcomes.
type SessionRepository interface {
	// Start records a new session.
	Start(ctx context.Context, sessionID, locale string, startedAt time.Time) error

	// Finish stores the selected outcome.
	Finish(ctx context.Context, sessionID, outcome string, elapsed float64, endedAt time.Time) error

	// Get retrieves one session; NOT_FOUND when absent.
	Get(ctx context.Context, sessionID string) (*SessionRecord, error)

	// Recent lists the latest sessions, newest first.
	Recent(ctx context.Context, limit int) ([]SessionRecord, error)
}
