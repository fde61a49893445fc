package events

import (
	"fmt"
	"testing"
)

type recordingPersister struct {
	events []GameEvent
	fail   bool
}

func (r *recordingPersister) Append(e GameEvent) error {
	if r.fail {
		return fmt.Errorf("write failed")
	}
	r.events = append(r.events, e)
	return nil
}

func TestFlushDeliversInOrder(t *testing.T) {
	el := NewEventLog(nil)
	var got []EventType
	el.SubscribeAll(func(e GameEvent) { got = append(got, e.Type) })

	el.Append(GameEvent{Type: EventTypeLockdownInitiated})
	el.Append(GameEvent{Type: EventTypeStatsUpdated, Transient: true})
	el.Append(GameEvent{Type: EventTypeOutcomeSelected})

	if n := el.Flush(); n != 3 {
		t.Fatalf("expected 3 delivered got %d", n)
	}
	want := []EventType{EventTypeLockdownInitiated, EventTypeStatsUpdated, EventTypeOutcomeSelected}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("position %d: expected %s got %s", i, want[i], got[i])
		}
	}
	if n := el.Flush(); n != 0 {
		t.Fatalf("expected empty queue after flush, %d redelivered", n)
	}
}

func TestTransientEventsAreNotRecorded(t *testing.T) {
	p := &recordingPersister{}
	el := NewEventLog(p)
	el.Append(GameEvent{Type: EventTypeStatsUpdated, Transient: true})
	el.Append(GameEvent{Type: EventTypeCodeAccepted})
	el.Flush()

	if len(el.Replay()) != 1 {
		t.Fatalf("expected 1 recorded event got %d", len(el.Replay()))
	}
	if len(p.events) != 1 || p.events[0].Type != EventTypeCodeAccepted {
		t.Fatalf("expected only CODE_ACCEPTED persisted, got %+v", p.events)
	}
}

func TestHandlersMayAppendDuringFlush(t *testing.T) {
	el := NewEventLog(nil)
	el.Subscribe(EventTypeLockdownEnded, func(GameEvent) {
		el.Append(GameEvent{Type: EventTypeOutcomeSelected})
	})
	var outcomes int
	el.Subscribe(EventTypeOutcomeSelected, func(GameEvent) { outcomes++ })

	el.Append(GameEvent{Type: EventTypeLockdownEnded})
	el.Flush()

	if outcomes != 1 {
		t.Fatalf("expected follow-up event delivered in the same flush, got %d", outcomes)
	}
}

func TestAppendFillsIdentity(t *testing.T) {
	el := NewEventLog(nil)
	el.Append(GameEvent{Type: EventTypeCue})
	el.Flush()
	e := el.Replay()[0]
	if e.ID == "" || e.Timestamp.IsZero() {
		t.Fatalf("expected generated ID and timestamp, got %+v", e)
	}
}

func TestPersistErrorCallback(t *testing.T) {
	el := NewEventLog(&recordingPersister{fail: true})
	var errs int
	el.OnPersistError(func(error) { errs++ })
	el.Append(GameEvent{Type: EventTypeCodeRejected})
	el.Flush()
	if errs != 1 {
		t.Fatalf("expected 1 persist error got %d", errs)
	}
	if len(el.GetByType(EventTypeCodeRejected)) != 1 {
		t.Fatalf("expected event still recorded in history")
	}
}
