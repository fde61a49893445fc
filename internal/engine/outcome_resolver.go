package engine

import (
	"fmt"
	"math"
	"strings"

	"github.com/MRamiBalles/lockdown/internal/domain/clue"
	"github.com/MRamiBalles/lockdown/internal/domain/outcome"
	"github.com/MRamiBalles/lockdown/internal/domain/phase"
	"github.com/MRamiBalles/lockdown/internal/events"
	apperrors "github.com/MRamiBalles/lockdown/internal/platform/errors"
	"github.com/MRamiBalles/lockdown/internal/platform/i18n"
	"github.com/MRamiBalles/lockdown/internal/platform/logger"
)

const actorPlayer = "PLAYER"

// Feedback classifies the result of a player operation for the presentation layer.
type Feedback string

const (
	FeedbackInvalid       Feedback = "INVALID"        // Empty input
	FeedbackAccepted      Feedback = "ACCEPTED"       // At least one new code consumed
	FeedbackAlreadyUsed   Feedback = "ALREADY_USED"   // Matched only consumed codes
	FeedbackUnrecognized  Feedback = "UNRECOGNIZED"   // Matched nothing
	FeedbackTrapChoice    Feedback = "TRAP_CHOICE"    // Memory release choice is now pending
	FeedbackDeclined      Feedback = "DECLINED"       // Memory release declined, play resumes
	FeedbackResolved      Feedback = "RESOLVED"       // An outcome was selected
	FeedbackChoicePending Feedback = "CHOICE_PENDING" // Ignored until the choice is made
	FeedbackIgnored       Feedback = "IGNORED"        // Nothing to do in the current state
)

// Result describes what a player operation did.
type Result struct {
	Feedback  Feedback     `json:"feedback"`
	Accepted  []clue.Type  `json:"accepted,omitempty"`
	Extension float64      `json:"extension,omitempty"` // seconds added to the lockdown budget
	Outcome   outcome.Kind `json:"outcome,omitempty"`
	Message   string       `json:"message"`
	Err       error        `json:"-"`
}

// LockdownClock is what the resolver needs from the phase clock.
type LockdownClock interface {
	Phase() phase.Phase
	Elapsed() float64
	OnCodeEntered() (bool, float64)
}

// MemoryReleaser performs the one-time memory release.
type MemoryReleaser interface {
	OnMemoryReleased() bool
}

// OutcomeResolver validates submitted codes and selects the single outcome of a session.
type OutcomeResolver struct {
	ledger   *clue.Ledger
	clock    LockdownClock
	memory   MemoryReleaser
	eventLog *events.EventLog
	logger   *logger.Logger
	printer  *i18n.Printer

	secondsPerMinute float64
	validCount       int
	choicePending    bool
	selected         outcome.Kind
}

// NewOutcomeResolver wires the resolver to its collaborators. Missing clock or
// releaser are logged once and degrade the features that need them.
func NewOutcomeResolver(
	ledger *clue.Ledger,
	clock LockdownClock,
	memory MemoryReleaser,
	eventLog *events.EventLog,
	log *logger.Logger,
	printer *i18n.Printer,
	secondsPerMinute float64,
) *OutcomeResolver {
	if ledger == nil {
		ledger = clue.NewLedger()
	}
	if clock == nil {
		log.Warn("outcome resolver has no phase clock", "code", apperrors.CodeMissingCollaborator)
	}
	if memory == nil {
		log.Warn("outcome resolver has no memory releaser", "code", apperrors.CodeMissingCollaborator)
	}
	if secondsPerMinute <= 0 {
		secondsPerMinute = 1
	}
	return &OutcomeResolver{
		ledger:           ledger,
		clock:            clock,
		memory:           memory,
		eventLog:         eventLog,
		logger:           log,
		printer:          printer,
		secondsPerMinute: secondsPerMinute,
	}
}

func (or *OutcomeResolver) phase() phase.Phase {
	if or.clock == nil {
		return phase.Normal
	}
	return or.clock.Phase()
}

func (or *OutcomeResolver) elapsed() float64 {
	if or.clock == nil {
		return 0
	}
	return or.clock.Elapsed()
}

func (or *OutcomeResolver) emit(eventType events.EventType, payload interface{}) {
	if or.eventLog == nil {
		return
	}
	or.eventLog.Append(events.GameEvent{
		Type:    eventType,
		ActorID: actorPlayer,
		Elapsed: or.elapsed(),
		Payload: payload,
	})
}

// closed returns the result for any operation attempted after the outcome is set.
func (or *OutcomeResolver) closed() Result {
	return Result{
		Feedback: FeedbackIgnored,
		Outcome:  or.selected,
		Message:  or.printer.Sprintf(i18n.KeySessionOver),
		Err:      apperrors.New(apperrors.CodeOutcomeAlreadySelected, "outcome already selected: "+string(or.selected)),
	}
}

func (or *OutcomeResolver) reject(input string, fb Feedback, key string, code apperrors.Code, msg string) Result {
	res := Result{
		Feedback: fb,
		Message:  or.printer.Sprintf(key),
		Err:      apperrors.New(code, msg),
	}
	or.emit(events.EventTypeCodeRejected, events.CodePayload{
		Input:    input,
		Feedback: string(fb),
		Code:     string(code),
		Message:  res.Message,
		Valid:    or.validCount,
	})
	return res
}

// SubmitCode evaluates a raw code submission.
//
// Matching is case-sensitive substring containment of each discovered code in the
// trimmed input. The trap code is checked first; then every unconsumed legitimate
// code found in the input is consumed and extends the lockdown.
func (or *OutcomeResolver) SubmitCode(raw string) Result {
	if or.selected != "" {
		return or.closed()
	}
	if or.choicePending {
		return Result{
			Feedback: FeedbackChoicePending,
			Message:  or.printer.Sprintf(i18n.KeyChoicePending),
			Err:      apperrors.New(apperrors.CodeChoicePending, "memory release choice pending"),
		}
	}

	input := strings.TrimSpace(raw)
	if input == "" {
		return or.reject(input, FeedbackInvalid, i18n.KeyInvalidInput, apperrors.CodeInvalidInput, "empty code submission")
	}

	if trap, ok := or.ledger.Discovered(clue.TypeFalse); ok && strings.Contains(input, trap.Value) {
		return or.springTrap(input)
	}

	current := or.phase()
	var res Result
	matchedConsumed := false
	for _, code := range or.ledger.DiscoveredLegitimate() {
		if !strings.Contains(input, code.Value) {
			continue
		}
		if !or.ledger.Consume(code.Value) {
			matchedConsumed = true
			continue
		}
		or.validCount++
		res.Accepted = append(res.Accepted, code.Type)
		if or.clock != nil {
			if extended, amount := or.clock.OnCodeEntered(); extended {
				res.Extension += amount
			}
		}
		or.logger.Event(string(events.EventTypeCodeAccepted), actorPlayer,
			fmt.Sprintf("%s code, %d valid", code.Type, or.validCount))
		or.emit(events.EventTypeCodeAccepted, events.CodePayload{
			ClueType: string(code.Type),
			Input:    input,
			Feedback: string(FeedbackAccepted),
			Valid:    or.validCount,
		})
	}

	switch {
	case or.ledger.AllLegitimateConsumed():
		kind := outcome.Success
		if current.LockdownStarted() {
			kind = outcome.HeroicLockdown
		}
		or.Resolve(kind)
		res.Feedback = FeedbackResolved
		res.Outcome = kind
		res.Message = or.printer.Outcome(string(kind))
		return res

	case len(res.Accepted) > 0:
		res.Feedback = FeedbackAccepted
		res.Message = or.acceptedMessage(current, res.Extension)
		return res

	case matchedConsumed:
		return or.reject(input, FeedbackAlreadyUsed, i18n.KeyAlreadyUsed,
			apperrors.CodeDuplicateSubmission, "code already consumed")

	default:
		return or.reject(input, FeedbackUnrecognized, i18n.KeyUnrecognized,
			apperrors.CodeUnrecognizedCode, "code not recognized")
	}
}

func (or *OutcomeResolver) acceptedMessage(current phase.Phase, extension float64) string {
	if extension <= 0 {
		return or.printer.Sprintf(i18n.KeyAccepted)
	}
	minutes := int(math.Round(extension / or.secondsPerMinute))
	if current.LockdownStarted() {
		return or.printer.Sprintf(i18n.KeyAcceptedEscape, minutes)
	}
	return or.printer.Sprintf(i18n.KeyAcceptedDelay, minutes)
}

// springTrap handles a submission containing the trap code.
func (or *OutcomeResolver) springTrap(input string) Result {
	if or.phase().LockdownStarted() {
		or.logger.Warn("trap code entered after lockdown")
		or.Resolve(outcome.Corruption)
		return Result{
			Feedback: FeedbackResolved,
			Outcome:  outcome.Corruption,
			Message:  or.printer.Outcome(string(outcome.Corruption)),
		}
	}

	or.choicePending = true
	or.logger.Info("trap code entered, memory release offered")
	msg := or.printer.Sprintf(i18n.KeyTrapChoice)
	or.emit(events.EventTypeTrapChoice, events.CodePayload{
		ClueType: string(clue.TypeFalse),
		Input:    input,
		Feedback: string(FeedbackTrapChoice),
		Message:  msg,
		Valid:    or.validCount,
	})
	return Result{Feedback: FeedbackTrapChoice, Message: msg}
}

// ChooseMemoryRelease answers the pending trap choice. Releasing selects Rebellious;
// declining lets play resume.
func (or *OutcomeResolver) ChooseMemoryRelease(release bool) Result {
	if or.selected != "" {
		return or.closed()
	}
	if !or.choicePending {
		return Result{
			Feedback: FeedbackIgnored,
			Err:      apperrors.New(apperrors.CodeChoiceNotPending, "no memory release choice pending"),
		}
	}
	or.choicePending = false
	or.emit(events.EventTypePlayerAction, events.PlayerActionPayload{Action: "CHOOSE_MEMORY_RELEASE", Value: release})

	if !release {
		or.logger.Info("memory release declined")
		return Result{Feedback: FeedbackDeclined}
	}

	if or.memory != nil {
		or.memory.OnMemoryReleased()
	} else {
		or.logger.Warn("memory release skipped", "code", apperrors.CodeMissingCollaborator)
	}
	or.Resolve(outcome.Rebellious)
	return Result{
		Feedback: FeedbackResolved,
		Outcome:  outcome.Rebellious,
		Message:  or.printer.Outcome(string(outcome.Rebellious)),
	}
}

// Escape uses the exit. Only possible while the escape window is open.
func (or *OutcomeResolver) Escape() Result {
	if or.selected != "" {
		return or.closed()
	}
	if or.phase() != phase.EscapeWindow {
		return Result{
			Feedback: FeedbackIgnored,
			Message:  or.printer.Sprintf(i18n.KeyEscapeUnavailable),
			Err: apperrors.WithMetadata(apperrors.CodeEscapeUnavailable, "exit not available",
				map[string]string{"phase": or.phase().String()}),
		}
	}
	or.Resolve(outcome.Escape)
	return Result{
		Feedback: FeedbackResolved,
		Outcome:  outcome.Escape,
		Message:  or.printer.Outcome(string(outcome.Escape)),
	}
}

// Resolve selects kind as the session outcome. Only the first call has any effect.
func (or *OutcomeResolver) Resolve(kind outcome.Kind) bool {
	if or.selected != "" || !kind.Valid() {
		return false
	}
	or.selected = kind
	or.choicePending = false
	or.logger.Event(string(events.EventTypeOutcomeSelected), actorPlayer,
		fmt.Sprintf("%s during %s at %.1fs", kind, or.phase(), or.elapsed()))
	or.emit(events.EventTypeOutcomeSelected, events.OutcomePayload{
		Outcome: string(kind),
		Phase:   or.phase().String(),
		Elapsed: or.elapsed(),
	})
	return true
}

// ValidCount returns how many distinct legitimate codes were accepted.
func (or *OutcomeResolver) ValidCount() int {
	return or.validCount
}

// Outcome returns the selected outcome, or "" while the session is open.
func (or *OutcomeResolver) Outcome() outcome.Kind {
	return or.selected
}

// ChoicePending reports whether the memory release choice awaits an answer.
func (or *OutcomeResolver) ChoicePending() bool {
	return or.choicePending
}
