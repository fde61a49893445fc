package engine

import "github.com/MRamiBalles/lockdown/internal/events"

const (
	actorSequence = "SYSTEM_SEQUENCE"

	// StepDone is the cue emitted when a sequence completes.
	StepDone = "done"

	SequenceLockdownLights = "lockdown-lights"
	SequenceFinalLights    = "final-lights"
)

// Step is one timed stage of a sequence.
type Step struct {
	Name     string
	Duration float64 // seconds
}

// LightingSteps is the fade used by both lighting sequences.
func LightingSteps() []Step {
	return []Step{
		{Name: "FadeOut", Duration: 1.5},
		{Name: "Swap", Duration: 0.5},
		{Name: "FadeIn", Duration: 1.5},
	}
}

// Sequence is a timer-driven list of steps. The presentation layer follows it
// through CUE events; nothing in the engine waits on it.
type Sequence struct {
	name     string
	steps    []Step
	eventLog *events.EventLog
	clock    func() float64

	index   int
	inStep  float64
	running bool
}

// NewSequence creates an idle sequence. clock supplies the session time stamped on cues.
func NewSequence(name string, steps []Step, eventLog *events.EventLog, clock func() float64) *Sequence {
	return &Sequence{
		name:     name,
		steps:    steps,
		eventLog: eventLog,
		clock:    clock,
	}
}

// Start (re)starts the sequence from its first step.
func (s *Sequence) Start() {
	s.index = 0
	s.inStep = 0
	if len(s.steps) == 0 {
		s.running = false
		s.cue(StepDone)
		return
	}
	s.running = true
	s.cue(s.steps[0].Name)
}

// Tick advances the current step by dt, possibly finishing several steps.
func (s *Sequence) Tick(dt float64) {
	if !s.running || dt <= 0 {
		return
	}
	s.inStep += dt
	for s.running && s.inStep >= s.steps[s.index].Duration {
		s.inStep -= s.steps[s.index].Duration
		s.index++
		if s.index >= len(s.steps) {
			s.running = false
			s.cue(StepDone)
			return
		}
		s.cue(s.steps[s.index].Name)
	}
}

// Running reports whether the sequence has steps left.
func (s *Sequence) Running() bool {
	return s.running
}

// Step returns the current step name, or "" when idle.
func (s *Sequence) Step() string {
	if !s.running {
		return ""
	}
	return s.steps[s.index].Name
}

// Name returns the sequence name.
func (s *Sequence) Name() string {
	return s.name
}

func (s *Sequence) cue(step string) {
	if s.eventLog == nil {
		return
	}
	var elapsed float64
	if s.clock != nil {
		elapsed = s.clock()
	}
	s.eventLog.Append(events.GameEvent{
		Type:    events.EventTypeCue,
		ActorID: actorSequence,
		Elapsed: elapsed,
		Payload: events.CuePayload{Sequence: s.name, Step: step},
	})
}
