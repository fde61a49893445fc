package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/MRamiBalles/lockdown/internal/events"
	"github.com/MRamiBalles/lockdown/internal/platform/logger"
	"github.com/MRamiBalles/lockdown/internal/platform/metrics"
)

const writeTimeout = 2 * time.Second

// EventSink writes session events to an EventRepository. It satisfies
// events.EventPersister and runs on the session goroutine.
type EventSink struct {
	repo      EventRepository
	sessionID string
	metrics   *metrics.Collector
}

// NewEventSink creates a sink tagging every event with sessionID.
func NewEventSink(repo EventRepository, sessionID string, m *metrics.Collector) *EventSink {
	return &EventSink{repo: repo, sessionID: sessionID, metrics: m}
}

// Append stores one event.
func (s *EventSink) Append(e events.GameEvent) error {
	start := time.Now()
	err := s.write(e)
	s.metrics.RecordEventWrite(time.Since(start), err)
	return err
}

func (s *EventSink) write(e events.GameEvent) error {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	return s.repo.Append(ctx, Event{
		ID:        e.ID,
		SessionID: s.sessionID,
		Timestamp: e.Timestamp,
		EventType: string(e.Type),
		ActorID:   e.ActorID,
		Elapsed:   e.Elapsed,
		Payload:   payload,
	})
}

// OutcomeRecorder returns a handler that closes the session row when an
// outcome is selected.
func OutcomeRecorder(repo SessionRepository, sessionID string, log *logger.Logger) events.Handler {
	return func(e events.GameEvent) {
		p, ok := e.Payload.(events.OutcomePayload)
		if !ok {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		if err := repo.Finish(ctx, sessionID, p.Outcome, p.Elapsed, e.Timestamp); err != nil {
			log.Error("failed to record outcome", "outcome", p.Outcome, "error", err)
		}
	}
}
