package engine

import (
	"bytes"
	"strings"
	"testing"

	"github.com/MRamiBalles/lockdown/internal/domain/clue"
	"github.com/MRamiBalles/lockdown/internal/domain/outcome"
	"github.com/MRamiBalles/lockdown/internal/domain/phase"
	"github.com/MRamiBalles/lockdown/internal/events"
	"github.com/MRamiBalles/lockdown/internal/platform/config"
	"github.com/MRamiBalles/lockdown/internal/platform/logger"
	"github.com/MRamiBalles/lockdown/internal/platform/metrics"
)

type countingRig struct{ resets int }

func (r *countingRig) ResetMotion() { r.resets++ }

type memoryPersister struct{ events []events.GameEvent }

func (m *memoryPersister) Append(e events.GameEvent) error {
	m.events = append(m.events, e)
	return nil
}

func newTestSession(opts ...Option) *Session {
	s := NewSession(config.DefaultTuning(), logger.Discard(), opts...)
	s.MarkDiscovered(clue.TypeWater, waterCode)
	s.MarkDiscovered(clue.TypeElectricity, powerCode)
	s.MarkDiscovered(clue.TypeLocation, locationCode)
	s.MarkDiscovered(clue.TypeFalse, trapCode)
	return s
}

// run ticks s in half-second frames until an outcome is selected or limit seconds pass.
func run(s *Session, limit float64) {
	for t := 0.0; t < limit && s.Outcome() == ""; t += 0.5 {
		s.Tick(0.5)
	}
}

func TestTrappedWhenFinalLockdownRunsOut(t *testing.T) {
	s := newTestSession()
	run(s, 2000)

	if s.Outcome() != outcome.Trapped {
		t.Fatalf("expected TRAPPED got %q (health %v)", s.Outcome(), s.MemoryHealth())
	}
	if s.Phase() != phase.Ended || !s.Paused() {
		t.Fatalf("expected ended and halted session, got %s paused=%v", s.Phase(), s.Paused())
	}
	if s.MemoryHealth() <= 0 {
		t.Fatalf("expected memory health left on an unhurried run")
	}

	if got := s.Resources().PowerMultiplier; got != 3.0 {
		t.Fatalf("expected final screen to hold the ramp top 3.0, got %v", got)
	}

	totals := s.Totals()
	s.Tick(10)
	s.Resume()
	s.Tick(10)
	if s.Totals() != totals {
		t.Fatalf("expected simulator stopped after outcome")
	}
}

func TestTrappedFromOneLargeTick(t *testing.T) {
	s := newTestSession()
	s.Tick(1320)
	if s.Outcome() != outcome.Trapped {
		t.Fatalf("expected TRAPPED to win over depletion in the same frame, got %q", s.Outcome())
	}
}

func TestCaptchaDrainsMemory(t *testing.T) {
	s := newTestSession()
	s.OnCaptchaSolved()
	run(s, 2000)

	if s.Outcome() != outcome.Timeout {
		t.Fatalf("expected TIMEOUT got %q", s.Outcome())
	}
	if s.Resources().PowerMW != 2800 {
		t.Fatalf("expected 2800 MW with captcha got %v", s.Resources().PowerMW)
	}
}

func TestEscapeDuringWindow(t *testing.T) {
	s := newTestSession()
	if res := s.Escape(); res.Outcome != "" {
		t.Fatalf("expected escape refused before lockdown")
	}
	run(s, 905)
	if s.Phase() != phase.EscapeWindow {
		t.Fatalf("expected EscapeWindow got %s", s.Phase())
	}
	if res := s.Escape(); res.Outcome != outcome.Escape {
		t.Fatalf("expected ESCAPE got %q", res.Outcome)
	}
}

func TestSuccessAndExtensions(t *testing.T) {
	s := newTestSession()
	s.Tick(100)

	s.SubmitCode(waterCode)
	s.SubmitCode(powerCode)
	if s.LockdownBudget() != 1140 {
		t.Fatalf("expected budget 1140 got %v", s.LockdownBudget())
	}
	res := s.SubmitCode(locationCode)
	if res.Outcome != outcome.Success {
		t.Fatalf("expected SUCCESS got %q", res.Outcome)
	}
	if s.LockdownBudget() != 1140 {
		t.Fatalf("expected third code not to extend, budget %v", s.LockdownBudget())
	}
}

func TestCodeDuringFinalLockdownKeepsRamp(t *testing.T) {
	s := newTestSession()
	run(s, 1100)
	if s.Phase() != phase.FinalLockdown {
		t.Fatalf("expected FinalLockdown got %s", s.Phase())
	}
	before := s.Resources().PowerMultiplier

	res := s.SubmitCode(waterCode)
	if res.Feedback != FeedbackAccepted || res.Extension != 0 {
		t.Fatalf("expected acceptance without extension, got %s/%v", res.Feedback, res.Extension)
	}
	if res.Message != "Code accepted." {
		t.Fatalf("expected plain acceptance message, got %q", res.Message)
	}
	if s.LockdownBudget() != 900 {
		t.Fatalf("expected budget 900 got %v", s.LockdownBudget())
	}

	s.Tick(0.5)
	if after := s.Resources().PowerMultiplier; after < before {
		t.Fatalf("expected final ramp to keep rising, %v -> %v", before, after)
	}
}

func TestHeroicLockdown(t *testing.T) {
	s := newTestSession()
	run(s, 930)
	s.SubmitCode(waterCode + powerCode + locationCode)
	if s.Outcome() != outcome.HeroicLockdown {
		t.Fatalf("expected HEROIC_LOCKDOWN got %q", s.Outcome())
	}
}

func TestCorruptionAfterLockdown(t *testing.T) {
	s := newTestSession()
	run(s, 1000)
	s.SubmitCode(trapCode)
	if s.Outcome() != outcome.Corruption {
		t.Fatalf("expected CORRUPTION got %q", s.Outcome())
	}
}

func TestTrapChoicePausesSession(t *testing.T) {
	rig := &countingRig{}
	s := newTestSession(WithCameraRig(rig))
	s.Tick(100)

	s.SubmitCode(trapCode)
	if !s.Paused() || !s.ChoicePending() {
		t.Fatalf("expected session paused on trap choice")
	}
	s.Tick(50)
	if s.Elapsed() != 100 {
		t.Fatalf("expected clock frozen during choice, got %v", s.Elapsed())
	}
	s.Resume()
	if !s.Paused() {
		t.Fatalf("expected resume ignored while choice pending")
	}

	s.ChooseMemoryRelease(false)
	if s.Paused() {
		t.Fatalf("expected play to resume after declining")
	}
	s.Tick(1)
	if s.Elapsed() != 101 {
		t.Fatalf("expected clock running again, got %v", s.Elapsed())
	}
	if rig.resets != 2 {
		t.Fatalf("expected camera reset on pause and resume, got %d", rig.resets)
	}
}

func TestRebelliousReleasesMemories(t *testing.T) {
	s := newTestSession()
	s.Tick(100)
	before := s.Totals()

	s.SubmitCode(trapCode)
	res := s.ChooseMemoryRelease(true)
	if res.Outcome != outcome.Rebellious {
		t.Fatalf("expected REBELLIOUS got %q", res.Outcome)
	}
	if !near(s.Totals().CO2Kg, before.CO2Kg*10) {
		t.Fatalf("expected totals x10, got %v from %v", s.Totals().CO2Kg, before.CO2Kg)
	}
}

func TestPauseMirrorsSimulator(t *testing.T) {
	s := newTestSession()
	s.Tick(10)
	s.Pause()
	totals := s.Totals()
	s.Tick(10)
	if s.Elapsed() != 10 || s.Totals() != totals {
		t.Fatalf("expected paused session frozen")
	}
	s.Resume()
	s.Tick(10)
	if s.Elapsed() != 20 || s.Totals() == totals {
		t.Fatalf("expected session running after resume")
	}
}

func TestClockEventsDeliveredBeforeSimulatorEvents(t *testing.T) {
	s := newTestSession()
	var order []events.EventType
	s.SubscribeAll(func(e events.GameEvent) {
		switch e.Type {
		case events.EventTypeLockdownInitiated, events.EventTypeStatsUpdated:
			order = append(order, e.Type)
		}
	})
	s.Tick(900)

	if len(order) != 2 || order[0] != events.EventTypeLockdownInitiated {
		t.Fatalf("expected LOCKDOWN_INITIATED before STATS_UPDATED, got %v", order)
	}
}

func TestLockdownStartsLightingCue(t *testing.T) {
	s := newTestSession()
	s.Tick(900)
	if step := s.Snapshot().Cues[SequenceLockdownLights]; step != "FadeOut" {
		t.Fatalf("expected lockdown lights at FadeOut, got %q", step)
	}
	s.Tick(1.5)
	if step := s.Snapshot().Cues[SequenceLockdownLights]; step != "Swap" {
		t.Fatalf("expected lockdown lights at Swap, got %q", step)
	}
}

func TestSessionPersistsAndCounts(t *testing.T) {
	p := &memoryPersister{}
	m := metrics.NewCollector()
	s := newTestSession(WithPersister(p), WithMetrics(m), WithID("session-1"))

	s.Tick(1)
	s.SubmitCode(waterCode)
	s.SubmitCode(waterCode)
	s.SubmitCode(trapCode)
	s.ChooseMemoryRelease(true)

	if s.ID() != "session-1" {
		t.Fatalf("expected fixed ID got %s", s.ID())
	}
	for _, e := range p.events {
		if e.Transient {
			t.Fatalf("transient %s persisted", e.Type)
		}
	}
	if len(p.events) != len(s.History()) {
		t.Fatalf("expected persisted %d == history %d", len(p.events), len(s.History()))
	}
	if m.Submissions(string(FeedbackAccepted)) != 1 || m.Submissions(string(FeedbackAlreadyUsed)) != 1 {
		t.Fatalf("expected submission counters, got %v", m.Snapshot()["submissions"])
	}
	if m.Outcomes(string(outcome.Rebellious)) != 1 {
		t.Fatalf("expected REBELLIOUS counted")
	}
}

func TestSnapshot(t *testing.T) {
	s := newTestSession()
	s.Tick(15)
	snap := s.Snapshot()

	if snap.Phase != "Normal" || snap.DisplayTime != "5:01 PM" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if len(snap.Discovered) != 4 || snap.Remaining != 885 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestMarkDiscoveredOncePerType(t *testing.T) {
	s := newTestSession()
	if s.MarkDiscovered(clue.TypeWater, "OTHER") {
		t.Fatalf("expected second discovery of a type to be ignored")
	}
	if n := len(s.HistoryByType(events.EventTypeCodeDiscovered)); n != 4 {
		t.Fatalf("expected 4 CODE_DISCOVERED got %d", n)
	}
}

func TestAuditTrailInLog(t *testing.T) {
	var buf bytes.Buffer
	s := NewSession(config.DefaultTuning(), logger.New(&buf, "info"))
	s.MarkDiscovered(clue.TypeWater, waterCode)
	s.SubmitCode(waterCode)
	run(s, 2000)

	out := buf.String()
	for _, want := range []string{
		"type=CODE_ACCEPTED actor=PLAYER",
		"type=PHASE_CHANGED actor=SYSTEM_CLOCK",
		"type=OUTCOME_SELECTED actor=PLAYER",
		"TRAPPED during Ended",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in log output", want)
		}
	}
}
