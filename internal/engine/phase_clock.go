package engine

import (
	"fmt"
	"math"

	"github.com/MRamiBalles/lockdown/internal/domain/phase"
	"github.com/MRamiBalles/lockdown/internal/domain/rules"
	"github.com/MRamiBalles/lockdown/internal/events"
	"github.com/MRamiBalles/lockdown/internal/platform/config"
	"github.com/MRamiBalles/lockdown/internal/platform/logger"
)

const actorClock = "SYSTEM_CLOCK"

// PhaseClock owns session time and the lockdown state machine.
// Deadlines are measured from the lockdown budget. An extension before the
// escape window closes lengthens the open window; once FinalLockdown starts the
// budget is fixed, so the final deadline and ramp never move.
type PhaseClock struct {
	eventLog *events.EventLog
	logger   *logger.Logger
	display  rules.DisplayClock

	baseBudget     float64
	extension      float64
	maxExtensions  int
	escapeWindow   float64
	finalPhase     float64
	phase          phase.Phase
	elapsed        float64
	lockdownBudget float64
	codesEntered   int // OnCodeEntered calls, including ones past the cap
	granted        int

	paused   bool
	pausedAt float64
}

// NewPhaseClock creates a clock in the Normal phase at elapsed zero.
func NewPhaseClock(t config.Tuning, eventLog *events.EventLog, log *logger.Logger) *PhaseClock {
	return &PhaseClock{
		eventLog: eventLog,
		logger:   log,
		display: rules.DisplayClock{
			StartMinutes:     t.DisplayStartMinutes,
			SecondsPerMinute: t.SecondsPerFictionMinute,
		},
		baseBudget:     t.LockdownBaseSeconds,
		extension:      t.ExtensionSeconds,
		maxExtensions:  t.MaxExtensions,
		escapeWindow:   t.EscapeWindowSeconds,
		finalPhase:     t.FinalPhaseSeconds,
		phase:          phase.Normal,
		lockdownBudget: t.LockdownBaseSeconds,
	}
}

// Tick advances session time by dt and fires every phase crossing it causes, in order.
func (pc *PhaseClock) Tick(dt float64) {
	if pc.paused || pc.phase == phase.Ended {
		return
	}
	if dt < 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		return
	}
	pc.elapsed += dt

	for pc.advance() {
	}
}

// advance performs at most one transition and reports whether it did.
func (pc *PhaseClock) advance() bool {
	switch pc.phase {
	case phase.Normal:
		if pc.elapsed < pc.lockdownBudget {
			return false
		}
		pc.transition(pc.phase.Next())
		pc.logger.Info("lockdown initiated", "elapsed", pc.elapsed, "budget", pc.lockdownBudget)
		pc.emit(events.EventTypeLockdownInitiated, nil)
	case phase.EscapeWindow:
		if pc.elapsed-pc.lockdownBudget < pc.escapeWindow {
			return false
		}
		pc.transition(pc.phase.Next())
		pc.logger.Info("escape window closed", "elapsed", pc.elapsed)
		pc.emit(events.EventTypeEscapeWindowClosed, nil)
	case phase.FinalLockdown:
		if pc.elapsed-pc.lockdownBudget-pc.escapeWindow < pc.finalPhase {
			return false
		}
		pc.transition(pc.phase.Next())
		pc.logger.Warn("final lockdown ended", "elapsed", pc.elapsed)
		pc.emit(events.EventTypeLockdownEnded, nil)
	default:
		return false
	}
	return true
}

func (pc *PhaseClock) transition(to phase.Phase) {
	from := pc.phase
	pc.phase = to
	pc.logger.Event(string(events.EventTypePhaseChanged), actorClock,
		fmt.Sprintf("%s -> %s at %.1fs", from, to, pc.elapsed))
	pc.emit(events.EventTypePhaseChanged, events.PhaseChangedPayload{
		From: from.String(),
		To:   to.String(),
	})
}

func (pc *PhaseClock) emit(eventType events.EventType, payload interface{}) {
	if pc.eventLog == nil {
		return
	}
	pc.eventLog.Append(events.GameEvent{
		Type:    eventType,
		ActorID: actorClock,
		Elapsed: pc.elapsed,
		Payload: payload,
	})
}

// Pause freezes session time at its current value.
func (pc *PhaseClock) Pause() {
	if pc.paused {
		return
	}
	pc.paused = true
	pc.pausedAt = pc.elapsed
}

// Resume restores the value stored by Pause.
func (pc *PhaseClock) Resume() {
	if !pc.paused {
		return
	}
	pc.elapsed = pc.pausedAt
	pc.paused = false
}

// Paused reports whether the clock is frozen.
func (pc *PhaseClock) Paused() bool {
	return pc.paused
}

// OnCodeEntered counts an accepted code. Only the first MaxExtensions calls
// push the lockdown budget back, and only before the escape window closes;
// it reports whether this one did and by how much.
func (pc *PhaseClock) OnCodeEntered() (bool, float64) {
	if pc.phase == phase.Ended {
		return false, 0
	}
	pc.codesEntered++
	if pc.codesEntered > pc.maxExtensions || pc.extension <= 0 {
		return false, 0
	}
	if pc.phase >= phase.FinalLockdown {
		pc.logger.Info("extension refused, escape window closed", "elapsed", pc.elapsed)
		return false, 0
	}

	pc.granted++
	pc.lockdownBudget += pc.extension
	pc.logger.Info("lockdown extended",
		"amount", pc.extension,
		"budget", pc.lockdownBudget,
		"extension", pc.granted,
	)
	pc.emit(events.EventTypeTimeExtended, events.TimeExtendedPayload{
		Amount:          pc.extension,
		LockdownBudget:  pc.lockdownBudget,
		ExtensionNumber: pc.granted,
		LockdownStarted: pc.phase.LockdownStarted(),
	})
	return true, pc.extension
}

// Phase returns the current phase.
func (pc *PhaseClock) Phase() phase.Phase {
	return pc.phase
}

// Elapsed returns session seconds.
func (pc *PhaseClock) Elapsed() float64 {
	return pc.elapsed
}

// LockdownBudget returns the elapsed time at which lockdown starts.
func (pc *PhaseClock) LockdownBudget() float64 {
	return pc.lockdownBudget
}

// LockdownStarted reports whether the Normal phase is over.
func (pc *PhaseClock) LockdownStarted() bool {
	return pc.phase.LockdownStarted()
}

// Extensions returns how many extensions were applied to the budget.
func (pc *PhaseClock) Extensions() int {
	return pc.granted
}

// Remaining returns seconds until the next deadline of the current phase.
func (pc *PhaseClock) Remaining() float64 {
	var deadline float64
	switch pc.phase {
	case phase.Normal:
		deadline = pc.lockdownBudget
	case phase.EscapeWindow:
		deadline = pc.lockdownBudget + pc.escapeWindow
	case phase.FinalLockdown:
		deadline = pc.lockdownBudget + pc.escapeWindow + pc.finalPhase
	default:
		return 0
	}
	return math.Max(0, deadline-pc.elapsed)
}

// FormatDisplayTime renders seconds on the in-fiction wall clock.
func (pc *PhaseClock) FormatDisplayTime(seconds float64) string {
	return pc.display.Format(seconds)
}

// DisplayTime renders the current elapsed time on the in-fiction wall clock.
func (pc *PhaseClock) DisplayTime() string {
	return pc.display.Format(pc.elapsed)
}

func (pc *PhaseClock) String() string {
	return fmt.Sprintf("%s %.1fs/%.1fs", pc.phase, pc.elapsed, pc.lockdownBudget)
}
