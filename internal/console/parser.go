// Package console drives a session from typed commands. It is the headless
// stand-in for the room's presentation layer.
package console

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	apperrors "github.com/MRamiBalles/lockdown/internal/platform/errors"
)

// Verb is the canonical name of a console command.
type Verb string

const (
	VerbTick        Verb = "tick"
	VerbSubmit      Verb = "submit"
	VerbDiscover    Verb = "discover"
	VerbTap         Verb = "tap"
	VerbElectricity Verb = "electricity"
	VerbCaptcha     Verb = "captcha"
	VerbRelease     Verb = "release"
	VerbPause       Verb = "pause"
	VerbResume      Verb = "resume"
	VerbEscape      Verb = "escape"
	VerbChoose      Verb = "choose"
	VerbStatus      Verb = "status"
	VerbHelp        Verb = "help"
	VerbQuit        Verb = "quit"
)

// CommandDef describes one verb.
type CommandDef struct {
	Verb    Verb
	Aliases []string
	Usage   string
}

// Command is a parsed console line. Args keep the player's spelling and case.
type Command struct {
	Verb  Verb
	Args  []string
	Rest  string // everything after the verb, trimmed
	Raw   string
	Match string // exact, alias, prefix or lev
}

type phrase struct {
	verb  Verb
	alias string
}

// Parser maps typed verbs to commands, tolerating small typos.
type Parser struct {
	defs    map[Verb]CommandDef
	order   []Verb
	phrases []phrase
}

// NewParser returns a parser with every console verb registered.
func NewParser() *Parser {
	p := &Parser{defs: make(map[Verb]CommandDef)}
	for _, def := range defaultCommands() {
		p.Register(def)
	}
	return p
}

// Register adds or replaces a verb.
func (p *Parser) Register(def CommandDef) {
	def.Verb = Verb(strings.ToLower(strings.TrimSpace(string(def.Verb))))
	if def.Verb == "" {
		return
	}
	if _, ok := p.defs[def.Verb]; !ok {
		p.order = append(p.order, def.Verb)
	}
	p.defs[def.Verb] = def
	p.phrases = append(p.phrases, phrase{verb: def.Verb, alias: string(def.Verb)})
	for _, a := range def.Aliases {
		a = strings.ToLower(strings.TrimSpace(a))
		if a != "" {
			p.phrases = append(p.phrases, phrase{verb: def.Verb, alias: a})
		}
	}
}

// Commands lists the registered verbs in registration order.
func (p *Parser) Commands() []CommandDef {
	out := make([]CommandDef, 0, len(p.order))
	for _, v := range p.order {
		out = append(out, p.defs[v])
	}
	return out
}

type candidate struct {
	verb   Verb
	score  float64
	source string
}

// Parse reads one line. Only the verb is normalised; arguments are returned verbatim.
func (p *Parser) Parse(raw string) (Command, error) {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return Command{Raw: raw}, apperrors.New(apperrors.CodeInvalidInput, "empty command")
	}
	word := strings.ToLower(fields[0])

	best, runnerUp := p.match(word)
	if best.verb == "" {
		return Command{Raw: raw}, apperrors.WithMetadata(apperrors.CodeUnknownAction,
			"unknown command "+fields[0], map[string]string{"input": fields[0]})
	}
	if runnerUp.verb != "" && runnerUp.verb != best.verb && best.score-runnerUp.score < 0.05 {
		return Command{Raw: raw}, apperrors.WithMetadata(apperrors.CodeUnknownAction,
			"ambiguous command "+fields[0]+": "+string(best.verb)+" or "+string(runnerUp.verb),
			map[string]string{"input": fields[0]})
	}
	rest := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), fields[0]))
	return Command{Verb: best.verb, Args: fields[1:], Rest: rest, Raw: raw, Match: best.source}, nil
}

func (p *Parser) match(word string) (candidate, candidate) {
	var cands []candidate
	for _, ph := range p.phrases {
		switch {
		case word == ph.alias:
			score := 1.0
			source := "exact"
			if ph.alias != string(ph.verb) {
				score = 0.97
				source = "alias"
			}
			cands = append(cands, candidate{verb: ph.verb, score: score, source: source})
		case len(word) >= 2 && strings.HasPrefix(ph.alias, word):
			cands = append(cands, candidate{verb: ph.verb, score: 0.9, source: "prefix"})
		case len(word) >= 3:
			dist := levenshtein.ComputeDistance(word, ph.alias)
			if dist > levenshteinLimit(len(ph.alias)) {
				continue
			}
			cands = append(cands, candidate{verb: ph.verb, score: 0.72 - 0.08*float64(dist), source: "lev"})
		}
	}
	if len(cands) == 0 {
		return candidate{}, candidate{}
	}

	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].score == cands[j].score {
			return cands[i].verb < cands[j].verb
		}
		return cands[i].score > cands[j].score
	})
	best := cands[0]
	for _, c := range cands[1:] {
		if c.verb != best.verb {
			return best, c
		}
	}
	return best, candidate{}
}

func levenshteinLimit(length int) int {
	switch {
	case length <= 4:
		return 1
	case length <= 8:
		return 2
	default:
		return 3
	}
}

func defaultCommands() []CommandDef {
	return []CommandDef{
		{Verb: VerbTick, Aliases: []string{"wait", "advance"}, Usage: "tick <seconds>"},
		{Verb: VerbSubmit, Aliases: []string{"enter", "code"}, Usage: "submit <code>"},
		{Verb: VerbDiscover, Aliases: []string{"find", "solve"}, Usage: "discover <water|electricity|location|false> <code>"},
		{Verb: VerbTap, Aliases: []string{"faucet"}, Usage: "tap <on|off>"},
		{Verb: VerbElectricity, Aliases: []string{"power", "connect"}, Usage: "electricity"},
		{Verb: VerbCaptcha, Usage: "captcha"},
		{Verb: VerbRelease, Usage: "release"},
		{Verb: VerbPause, Usage: "pause"},
		{Verb: VerbResume, Aliases: []string{"continue", "unpause"}, Usage: "resume"},
		{Verb: VerbEscape, Aliases: []string{"flee", "run"}, Usage: "escape"},
		{Verb: VerbChoose, Aliases: []string{"decide"}, Usage: "choose <release|keep>"},
		{Verb: VerbStatus, Aliases: []string{"state", "look"}, Usage: "status"},
		{Verb: VerbHelp, Aliases: []string{"?", "commands"}, Usage: "help"},
		{Verb: VerbQuit, Aliases: []string{"exit", "q"}, Usage: "quit"},
	}
}
