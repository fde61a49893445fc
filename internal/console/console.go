package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/MRamiBalles/lockdown/internal/domain/clue"
	"github.com/MRamiBalles/lockdown/internal/engine"
	"github.com/MRamiBalles/lockdown/internal/events"
	apperrors "github.com/MRamiBalles/lockdown/internal/platform/errors"
)

// maxFrame caps a single simulation step when the console advances time.
const maxFrame = 0.5

// Console executes parsed commands against a session it owns exclusively.
type Console struct {
	session *engine.Session
	parser  *Parser
	out     io.Writer
}

// New creates a console printing to out. It subscribes to the session's events.
func New(s *engine.Session, out io.Writer) *Console {
	c := &Console{session: s, parser: NewParser(), out: out}
	s.SubscribeAll(c.printEvent)
	return c
}

// Run reads commands from in until quit, end of input, an outcome or ctx is done.
func Run(ctx context.Context, in io.Reader, out io.Writer, s *engine.Session) error {
	return New(s, out).Run(ctx, in)
}

// Run is the console's read-eval loop.
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	c.printf("%s  Type help for commands.\n", c.session.FormatDisplayTime(c.session.Elapsed()))
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		if !c.Exec(line) {
			return nil
		}
		if c.session.Outcome() != "" {
			return nil
		}
	}
	return scanner.Err()
}

// Exec runs one line and reports whether the console should keep reading.
func (c *Console) Exec(line string) bool {
	cmd, err := c.parser.Parse(line)
	if err != nil {
		c.printf("%v\n", err)
		return true
	}

	s := c.session
	switch cmd.Verb {
	case VerbTick:
		seconds := 1.0
		if len(cmd.Args) > 0 {
			v, err := strconv.ParseFloat(cmd.Args[0], 64)
			if err != nil || !(v > 0) || math.IsInf(v, 0) {
				c.printf("tick needs a positive number of seconds\n")
				return true
			}
			seconds = v
		}
		c.advance(seconds)
	case VerbSubmit:
		c.printResult(s.SubmitCode(cmd.Rest))
	case VerbDiscover:
		if len(cmd.Args) < 2 {
			c.printf("usage: %s\n", c.parser.defs[VerbDiscover].Usage)
			return true
		}
		kind := clue.Type(strings.ToUpper(cmd.Args[0]))
		code := strings.TrimSpace(strings.TrimPrefix(cmd.Rest, cmd.Args[0]))
		if !s.MarkDiscovered(kind, code) {
			c.printf("%s clue not recorded\n", cmd.Args[0])
		}
	case VerbTap:
		running, ok := onOff(cmd.Args)
		if !ok {
			c.printf("usage: %s\n", c.parser.defs[VerbTap].Usage)
			return true
		}
		s.OnWaterTapStateChanged(running)
	case VerbElectricity:
		s.OnElectricityConnected()
	case VerbCaptcha:
		s.OnCaptchaSolved()
	case VerbRelease:
		if !s.OnMemoryReleased() {
			c.printf("memory already released\n")
		}
	case VerbPause:
		s.Pause()
	case VerbResume:
		s.Resume()
	case VerbEscape:
		c.printResult(s.Escape())
	case VerbChoose:
		release, ok := choice(cmd.Args)
		if !ok {
			c.printf("usage: %s\n", c.parser.defs[VerbChoose].Usage)
			return true
		}
		c.printResult(s.ChooseMemoryRelease(release))
	case VerbStatus:
		c.printStatus()
	case VerbHelp:
		for _, def := range c.parser.Commands() {
			c.printf("  %s\n", def.Usage)
		}
	case VerbQuit:
		return false
	}
	return true
}

// advance ticks the session in bounded frames, stopping early once an outcome lands.
func (c *Console) advance(seconds float64) {
	for seconds > 0 && c.session.Outcome() == "" {
		dt := math.Min(seconds, maxFrame)
		c.session.Tick(dt)
		seconds -= dt
	}
}

func onOff(args []string) (bool, bool) {
	if len(args) == 0 {
		return false, false
	}
	switch strings.ToLower(args[0]) {
	case "on", "open", "true", "1":
		return true, true
	case "off", "close", "closed", "false", "0":
		return false, true
	}
	return false, false
}

func choice(args []string) (bool, bool) {
	if len(args) == 0 {
		return false, false
	}
	switch strings.ToLower(args[0]) {
	case "release", "yes", "y":
		return true, true
	case "keep", "decline", "no", "n":
		return false, true
	}
	return false, false
}

func (c *Console) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

func (c *Console) printResult(res engine.Result) {
	if res.Message != "" {
		c.printf("%s\n", res.Message)
		return
	}
	if res.Err != nil {
		c.printf("%s\n", apperrors.CodeOf(res.Err))
		return
	}
	c.printf("%s\n", res.Feedback)
}

func (c *Console) printStatus() {
	snap := c.session.Snapshot()
	c.printf("%s  phase=%s elapsed=%.1fs remaining=%.1fs extensions=%d paused=%v\n",
		snap.DisplayTime, snap.Phase, snap.Elapsed, snap.Remaining, snap.Extensions, snap.Paused)
	c.printf("power=%.1fMW water=%.2fL/s co2=%.2fkg/s memory=%.1f\n",
		snap.Rates.PowerMW, snap.Rates.WaterLitersPerSecond, snap.Rates.CO2KgPerSecond, snap.MemoryHealth)
	c.printf("energy=%.2fMWh water=%.1fL co2=%.1fkg codes=%d/3\n",
		snap.Totals.EnergyMWh, snap.Totals.WaterLiters, snap.Totals.CO2Kg, snap.ValidCodes)
}

// printEvent echoes what the room would show. Per-tick telemetry is skipped.
func (c *Console) printEvent(e events.GameEvent) {
	if e.Transient {
		return
	}
	clock := c.session.FormatDisplayTime(e.Elapsed)
	switch p := e.Payload.(type) {
	case events.PhaseChangedPayload:
		c.printf("[%s] phase %s -> %s\n", clock, p.From, p.To)
	case events.TimeExtendedPayload:
		c.printf("[%s] lockdown delayed by %.0fs\n", clock, p.Amount)
	case events.OutcomePayload:
		c.printf("[%s] %s\n", clock, c.session.Printer().Outcome(p.Outcome))
	case events.SessionPausePayload:
		c.printf("[%s] %s (%s)\n", clock, strings.ToLower(string(e.Type)), p.Reason)
	case events.CodePayload, events.CuePayload:
		// Submission results are printed by the command itself; cues are for the room.
	default:
		c.printf("[%s] %s\n", clock, e.Type)
	}
}
