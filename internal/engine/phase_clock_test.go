package engine

import (
	"testing"

	"github.com/MRamiBalles/lockdown/internal/domain/phase"
	"github.com/MRamiBalles/lockdown/internal/events"
	"github.com/MRamiBalles/lockdown/internal/platform/config"
	"github.com/MRamiBalles/lockdown/internal/platform/logger"
)

func newTestClock() (*PhaseClock, *events.EventLog) {
	el := events.NewEventLog(nil)
	return NewPhaseClock(config.DefaultTuning(), el, logger.Discard()), el
}

func eventTypes(el *events.EventLog) []events.EventType {
	var out []events.EventType
	for _, e := range el.Replay() {
		out = append(out, e.Type)
	}
	return out
}

func TestClockStartsNormal(t *testing.T) {
	pc, _ := newTestClock()
	if pc.Phase() != phase.Normal {
		t.Fatalf("expected Normal got %s", pc.Phase())
	}
	if pc.Elapsed() != 0 || pc.LockdownBudget() != 900 {
		t.Fatalf("expected elapsed 0 budget 900, got %v/%v", pc.Elapsed(), pc.LockdownBudget())
	}
}

func TestLockdownStartsAtBudget(t *testing.T) {
	pc, el := newTestClock()

	pc.Tick(899)
	if pc.Phase() != phase.Normal {
		t.Fatalf("expected Normal before budget, got %s", pc.Phase())
	}
	pc.Tick(1)
	el.Flush()
	if pc.Phase() != phase.EscapeWindow {
		t.Fatalf("expected EscapeWindow at budget, got %s", pc.Phase())
	}
	if n := len(el.GetByType(events.EventTypeLockdownInitiated)); n != 1 {
		t.Fatalf("expected 1 LOCKDOWN_INITIATED got %d", n)
	}
	if !pc.LockdownStarted() {
		t.Fatalf("expected lockdown started")
	}
}

func TestSingleTickCrossesEveryPhaseInOrder(t *testing.T) {
	pc, el := newTestClock()
	pc.Tick(5000)
	el.Flush()

	if pc.Phase() != phase.Ended {
		t.Fatalf("expected Ended got %s", pc.Phase())
	}
	want := []events.EventType{
		events.EventTypePhaseChanged, events.EventTypeLockdownInitiated,
		events.EventTypePhaseChanged, events.EventTypeEscapeWindowClosed,
		events.EventTypePhaseChanged, events.EventTypeLockdownEnded,
	}
	got := eventTypes(el)
	if len(got) != len(want) {
		t.Fatalf("expected %v got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("position %d: expected %s got %s", i, want[i], got[i])
		}
	}
}

func TestPhaseDeadlines(t *testing.T) {
	pc, _ := newTestClock()
	steps := []struct {
		dt   float64
		want phase.Phase
	}{
		{900, phase.EscapeWindow},
		{59, phase.EscapeWindow},
		{1, phase.FinalLockdown},
		{359, phase.FinalLockdown},
		{1, phase.Ended},
	}
	for i, s := range steps {
		pc.Tick(s.dt)
		if pc.Phase() != s.want {
			t.Fatalf("step %d (elapsed %v): expected %s got %s", i, pc.Elapsed(), s.want, pc.Phase())
		}
	}
}

func TestEndedIsTerminal(t *testing.T) {
	pc, el := newTestClock()
	pc.Tick(1320)
	el.Flush()
	before := len(el.Replay())
	elapsed := pc.Elapsed()

	pc.Tick(100)
	el.Flush()
	if pc.Elapsed() != elapsed {
		t.Fatalf("expected elapsed frozen at %v got %v", elapsed, pc.Elapsed())
	}
	if len(el.Replay()) != before {
		t.Fatalf("expected no events after Ended")
	}
	if ok, _ := pc.OnCodeEntered(); ok {
		t.Fatalf("expected no extension after Ended")
	}
}

func TestExtensionsAreCapped(t *testing.T) {
	pc, el := newTestClock()

	for i, want := range []bool{true, true, false, false} {
		ok, amount := pc.OnCodeEntered()
		if ok != want {
			t.Fatalf("call %d: expected extended=%v got %v", i+1, want, ok)
		}
		if ok && amount != 120 {
			t.Fatalf("call %d: expected 120s got %v", i+1, amount)
		}
	}
	el.Flush()

	if pc.LockdownBudget() != 1140 {
		t.Fatalf("expected budget 1140 got %v", pc.LockdownBudget())
	}
	if pc.Extensions() != 2 {
		t.Fatalf("expected 2 extensions got %d", pc.Extensions())
	}
	if n := len(el.GetByType(events.EventTypeTimeExtended)); n != 2 {
		t.Fatalf("expected 2 TIME_EXTENDED got %d", n)
	}
}

func TestExtensionAfterLockdownLengthensWindow(t *testing.T) {
	pc, _ := newTestClock()
	pc.Tick(900)
	pc.OnCodeEntered() // budget 1020

	pc.Tick(100) // elapsed 1000
	if pc.Phase() != phase.EscapeWindow {
		t.Fatalf("expected EscapeWindow to stay open, got %s", pc.Phase())
	}
	pc.Tick(80) // elapsed 1080 = budget + 60
	if pc.Phase() != phase.FinalLockdown {
		t.Fatalf("expected FinalLockdown got %s", pc.Phase())
	}
}

func TestNoExtensionOnceEscapeWindowClosed(t *testing.T) {
	pc, el := newTestClock()
	pc.Tick(1000) // FinalLockdown since 960
	remaining := pc.Remaining()

	ok, amount := pc.OnCodeEntered()
	if ok || amount != 0 {
		t.Fatalf("expected no extension during FinalLockdown, got %v/%v", ok, amount)
	}
	el.Flush()
	if pc.LockdownBudget() != 900 || pc.Extensions() != 0 {
		t.Fatalf("expected budget 900 and no extensions, got %v/%d", pc.LockdownBudget(), pc.Extensions())
	}
	if pc.Remaining() != remaining {
		t.Fatalf("expected final deadline unchanged, got %v want %v", pc.Remaining(), remaining)
	}
	if n := len(el.GetByType(events.EventTypeTimeExtended)); n != 0 {
		t.Fatalf("expected no TIME_EXTENDED got %d", n)
	}

	pc.Tick(320) // elapsed 1320 = 900 + 60 + 360
	if pc.Phase() != phase.Ended {
		t.Fatalf("expected Ended at the original deadline, got %s", pc.Phase())
	}
}

func TestPauseFreezesElapsed(t *testing.T) {
	pc, _ := newTestClock()
	pc.Tick(10)
	pc.Pause()
	pc.Tick(100)
	if pc.Elapsed() != 10 {
		t.Fatalf("expected 10 while paused got %v", pc.Elapsed())
	}
	pc.Resume()
	pc.Tick(5)
	if pc.Elapsed() != 15 {
		t.Fatalf("expected 15 after resume got %v", pc.Elapsed())
	}
}

func TestNegativeDtIgnored(t *testing.T) {
	pc, _ := newTestClock()
	pc.Tick(10)
	pc.Tick(-5)
	if pc.Elapsed() != 10 {
		t.Fatalf("expected 10 got %v", pc.Elapsed())
	}
}

func TestPhaseAndBudgetNeverDecrease(t *testing.T) {
	pc, _ := newTestClock()
	prevPhase := pc.Phase()
	prevBudget := pc.LockdownBudget()

	for i := 0; i < 400; i++ {
		pc.Tick(float64(i%7) * 0.75)
		if i%50 == 0 {
			pc.OnCodeEntered()
		}
		if pc.Phase() < prevPhase {
			t.Fatalf("phase went back from %s to %s", prevPhase, pc.Phase())
		}
		if pc.LockdownBudget() < prevBudget {
			t.Fatalf("budget went back from %v to %v", prevBudget, pc.LockdownBudget())
		}
		prevPhase, prevBudget = pc.Phase(), pc.LockdownBudget()
	}
}

func TestDisplayTime(t *testing.T) {
	pc, _ := newTestClock()
	if got := pc.DisplayTime(); got != "5:00 PM" {
		t.Fatalf("expected 5:00 PM got %s", got)
	}
	pc.Tick(15)
	if got := pc.DisplayTime(); got != "5:01 PM" {
		t.Fatalf("expected 5:01 PM got %s", got)
	}
	if got := pc.FormatDisplayTime(900); got != "6:00 PM" {
		t.Fatalf("expected 6:00 PM got %s", got)
	}
}

func TestRemaining(t *testing.T) {
	pc, _ := newTestClock()
	pc.Tick(880)
	if pc.Remaining() != 20 {
		t.Fatalf("expected 20s to lockdown got %v", pc.Remaining())
	}
	pc.Tick(30) // 910, window closes at 960
	if pc.Remaining() != 50 {
		t.Fatalf("expected 50s of escape window got %v", pc.Remaining())
	}
}
