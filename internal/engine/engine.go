package engine

import (
	"github.com/google/uuid"

	"github.com/MRamiBalles/lockdown/internal/domain/clue"
	"github.com/MRamiBalles/lockdown/internal/domain/outcome"
	"github.com/MRamiBalles/lockdown/internal/domain/phase"
	"github.com/MRamiBalles/lockdown/internal/events"
	"github.com/MRamiBalles/lockdown/internal/platform/config"
	apperrors "github.com/MRamiBalles/lockdown/internal/platform/errors"
	"github.com/MRamiBalles/lockdown/internal/platform/i18n"
	"github.com/MRamiBalles/lockdown/internal/platform/logger"
	"github.com/MRamiBalles/lockdown/internal/platform/metrics"
)

const actorSession = "SESSION"

// Pause reasons carried on SESSION_PAUSED / SESSION_RESUMED.
const (
	PauseReasonPlayer  = "player"
	PauseReasonChoice  = "choice"
	PauseReasonOutcome = "outcome"
)

// CameraRig is the capability the session uses to stop camera drift across a pause.
type CameraRig interface {
	ResetMotion()
}

// Option configures a Session.
type Option func(*Session)

// WithPersister stores every non-transient event through p.
func WithPersister(p events.EventPersister) Option {
	return func(s *Session) { s.persister = p }
}

// WithCameraRig installs the camera capability reset on pause and resume.
func WithCameraRig(rig CameraRig) Option {
	return func(s *Session) { s.camera = rig }
}

// WithFeedback selects the printer used for player-facing messages.
func WithFeedback(p *i18n.Printer) Option {
	return func(s *Session) { s.printer = p }
}

// WithMetrics records submissions and outcomes on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(s *Session) { s.metrics = c }
}

// WithID overrides the generated session ID.
func WithID(id string) Option {
	return func(s *Session) {
		if id != "" {
			s.id = id
		}
	}
}

// Session is the root object of one play-through. It owns the clock, the resource
// simulator, the clue ledger and the resolver, and drains their events once per
// operation. Not safe for concurrent use; see Loop.
type Session struct {
	id        string
	logger    *logger.Logger
	metrics   *metrics.Collector
	printer   *i18n.Printer
	persister events.EventPersister
	camera    CameraRig

	eventLog  *events.EventLog
	clock     *PhaseClock
	resources *ResourceSimulator
	ledger    *clue.Ledger
	resolver  *OutcomeResolver
	sequences []*Sequence

	userPaused bool
	paused     bool
}

// NewSession builds a fresh session at elapsed zero.
func NewSession(t config.Tuning, log *logger.Logger, opts ...Option) *Session {
	s := &Session{id: uuid.NewString()}
	for _, opt := range opts {
		opt(s)
	}
	if s.printer == nil {
		s.printer = i18n.NewPrinter("en")
	}
	s.logger = log.With("session", s.id)

	s.eventLog = events.NewEventLog(s.persister)
	s.eventLog.OnPersistError(func(err error) {
		s.logger.Error("event persist failed", "error", err)
	})

	s.clock = NewPhaseClock(t, s.eventLog, s.logger)
	s.resources = NewResourceSimulator(t, s.clock, s.eventLog, s.logger)
	s.ledger = clue.NewLedger()
	s.resolver = NewOutcomeResolver(s.ledger, s.clock, s.resources, s.eventLog, s.logger, s.printer, t.SecondsPerFictionMinute)

	lights := NewSequence(SequenceLockdownLights, LightingSteps(), s.eventLog, s.clock.Elapsed)
	finalLights := NewSequence(SequenceFinalLights, LightingSteps(), s.eventLog, s.clock.Elapsed)
	s.sequences = []*Sequence{lights, finalLights}

	s.eventLog.Subscribe(events.EventTypeLockdownInitiated, func(events.GameEvent) { lights.Start() })
	s.eventLog.Subscribe(events.EventTypeEscapeWindowClosed, func(events.GameEvent) { finalLights.Start() })
	s.eventLog.Subscribe(events.EventTypeLockdownEnded, func(events.GameEvent) {
		s.resolver.Resolve(outcome.Trapped)
	})
	s.eventLog.Subscribe(events.EventTypeMemoryDepleted, func(events.GameEvent) {
		s.resolver.Resolve(outcome.Timeout)
	})
	s.eventLog.Subscribe(events.EventTypeTrapChoice, func(events.GameEvent) { s.syncPause() })
	s.eventLog.Subscribe(events.EventTypeOutcomeSelected, func(e events.GameEvent) {
		if p, ok := e.Payload.(events.OutcomePayload); ok {
			s.metrics.RecordOutcome(p.Outcome)
		}
		s.syncPause()
	})

	s.logger.Info("session started", "budget", s.clock.LockdownBudget(), "locale", s.printer.Locale())
	return s
}

// Tick advances the session by dt seconds: clock first, then resources, then cues.
// Queued events are delivered before it returns.
func (s *Session) Tick(dt float64) {
	if !s.paused {
		s.clock.Tick(dt)
		s.resources.Tick(dt)
		for _, seq := range s.sequences {
			seq.Tick(dt)
		}
	}
	s.eventLog.Flush()
}

// done reconciles the pause state and delivers queued events.
func (s *Session) done() {
	s.syncPause()
	s.eventLog.Flush()
}

// syncPause freezes the clock and the simulator while the player paused, a choice
// is pending or an outcome is selected, and thaws them otherwise.
func (s *Session) syncPause() {
	reason := ""
	switch {
	case s.resolver.Outcome() != "":
		reason = PauseReasonOutcome
	case s.resolver.ChoicePending():
		reason = PauseReasonChoice
	case s.userPaused:
		reason = PauseReasonPlayer
	}
	want := reason != ""
	if want == s.paused {
		return
	}
	s.paused = want

	if want {
		s.clock.Pause()
		s.resources.StopTracking()
		s.resetCamera()
		s.emit(events.EventTypeSessionPaused, events.SessionPausePayload{Reason: reason})
		return
	}
	s.clock.Resume()
	s.resources.ResumeTracking()
	s.resetCamera()
	s.emit(events.EventTypeSessionResumed, events.SessionPausePayload{Reason: PauseReasonPlayer})
}

func (s *Session) resetCamera() {
	if s.camera == nil {
		s.logger.Debug("camera reset skipped", "code", apperrors.CodeMissingCollaborator)
		return
	}
	s.camera.ResetMotion()
}

func (s *Session) emit(eventType events.EventType, payload interface{}) {
	s.eventLog.Append(events.GameEvent{
		Type:    eventType,
		ActorID: actorSession,
		Elapsed: s.clock.Elapsed(),
		Payload: payload,
	})
}

// Pause freezes the session from the pause menu.
func (s *Session) Pause() {
	s.userPaused = true
	s.done()
}

// Resume lifts a pause-menu pause. It has no effect once an outcome is selected
// or while the memory release choice is pending.
func (s *Session) Resume() {
	if s.resolver.Outcome() != "" {
		s.logger.Debug("resume ignored", "code", apperrors.CodeOutcomeAlreadySelected)
	}
	s.userPaused = false
	s.done()
}

// SubmitCode evaluates a code typed by the player.
func (s *Session) SubmitCode(raw string) Result {
	res := s.resolver.SubmitCode(raw)
	s.metrics.RecordSubmission(string(res.Feedback))
	s.done()
	return res
}

// ChooseMemoryRelease answers the trap choice.
func (s *Session) ChooseMemoryRelease(release bool) Result {
	res := s.resolver.ChooseMemoryRelease(release)
	s.done()
	return res
}

// Escape uses the exit.
func (s *Session) Escape() Result {
	res := s.resolver.Escape()
	s.done()
	return res
}

// MarkDiscovered records a solved puzzle's code.
func (s *Session) MarkDiscovered(t clue.Type, code string) bool {
	ok := s.ledger.MarkDiscovered(t, code)
	if ok {
		s.logger.Info("code discovered", "type", t)
		s.emit(events.EventTypeCodeDiscovered, events.DiscoveryPayload{ClueType: string(t)})
	}
	s.done()
	return ok
}

// OnElectricityConnected is driven by the wiring puzzle.
func (s *Session) OnElectricityConnected() {
	s.resources.OnElectricityConnected()
	s.done()
}

// OnWaterTapStateChanged is driven by the tap puzzle.
func (s *Session) OnWaterTapStateChanged(running bool) {
	s.resources.OnWaterTapStateChanged(running)
	s.done()
}

// OnCaptchaSolved is driven by the captcha puzzle.
func (s *Session) OnCaptchaSolved() {
	s.resources.OnCaptchaSolved()
	s.done()
}

// OnMemoryReleased scales the totals once. Later calls return false.
func (s *Session) OnMemoryReleased() bool {
	ok := s.resources.OnMemoryReleased()
	s.done()
	return ok
}

// Subscribe registers a listener for one event type. Listeners run on the
// session's goroutine during delivery.
func (s *Session) Subscribe(eventType events.EventType, h events.Handler) {
	s.eventLog.Subscribe(eventType, h)
}

// SubscribeAll registers a listener for every event.
func (s *Session) SubscribeAll(h events.Handler) {
	s.eventLog.SubscribeAll(h)
}

// History returns every recorded (non-transient) event.
func (s *Session) History() []events.GameEvent {
	return s.eventLog.Replay()
}

// HistoryByType returns the recorded events of one type.
func (s *Session) HistoryByType(eventType events.EventType) []events.GameEvent {
	return s.eventLog.GetByType(eventType)
}

func (s *Session) ID() string { return s.id }
func (s *Session) Phase() phase.Phase { return s.clock.Phase() }
func (s *Session) Elapsed() float64 { return s.clock.Elapsed() }
func (s *Session) LockdownBudget() float64 { return s.clock.LockdownBudget() }
func (s *Session) FormatDisplayTime(sec float64) string { return s.clock.FormatDisplayTime(sec) }
func (s *Session) Outcome() outcome.Kind { return s.resolver.Outcome() }
func (s *Session) ChoicePending() bool { return s.resolver.ChoicePending() }
func (s *Session) ValidCount() int { return s.resolver.ValidCount() }
func (s *Session) Paused() bool { return s.paused }
func (s *Session) Printer() *i18n.Printer { return s.printer }

// Clock returns a read-only view of the phase clock.
func (s *Session) Clock() ClockReader { return s.clock }

// Resources returns the instantaneous rates.
func (s *Session) Resources() ResourceState { return s.resources.State() }

// Totals returns the accumulated consumption.
func (s *Session) Totals() ResourceTotals { return s.resources.Totals() }

// MemoryHealth returns the current memory health.
func (s *Session) MemoryHealth() float64 { return s.resources.MemoryHealth() }

// Snapshot is a point-in-time view of the session for clients.
type Snapshot struct {
	SessionID      string         `json:"session_id"`
	Phase          string         `json:"phase"`
	Elapsed        float64        `json:"elapsed"`
	LockdownBudget float64        `json:"lockdown_budget"`
	Remaining      float64        `json:"remaining"`
	Extensions     int            `json:"extensions"`
	DisplayTime    string         `json:"display_time"`
	Paused         bool           `json:"paused"`
	Rates          ResourceState  `json:"rates"`
	Totals         ResourceTotals `json:"totals"`
	MemoryHealth   float64        `json:"memory_health"`
	ValidCodes     int            `json:"valid_codes"`
	Discovered     []clue.Type    `json:"discovered"`
	ChoicePending  bool           `json:"choice_pending"`
	Outcome        string         `json:"outcome,omitempty"`

	Cues map[string]string `json:"cues,omitempty"` // running sequence -> current step
}

// Snapshot captures the current state.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		SessionID:      s.id,
		Phase:          s.clock.Phase().String(),
		Elapsed:        s.clock.Elapsed(),
		LockdownBudget: s.clock.LockdownBudget(),
		Remaining:      s.clock.Remaining(),
		Extensions:     s.clock.Extensions(),
		DisplayTime:    s.clock.DisplayTime(),
		Paused:         s.paused,
		Rates:          s.resources.State(),
		Totals:         s.resources.Totals(),
		MemoryHealth:   s.resources.MemoryHealth(),
		ValidCodes:     s.resolver.ValidCount(),
		ChoicePending:  s.resolver.ChoicePending(),
		Outcome:        string(s.resolver.Outcome()),
	}
	for _, c := range s.ledger.Snapshot() {
		snap.Discovered = append(snap.Discovered, c.Type)
	}
	for _, seq := range s.sequences {
		if seq.Running() {
			if snap.Cues == nil {
				snap.Cues = make(map[string]string)
			}
			snap.Cues[seq.Name()] = seq.Step()
		}
	}
	return snap
}
