// Package i18n selects the player-facing feedback strings for the lockdown engine.
package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Feedback message keys.
const (
	KeyInvalidInput      = "feedback.invalid_input"
	KeyAcceptedDelay     = "feedback.accepted_delay"  // minutes gained before lockdown
	KeyAcceptedEscape    = "feedback.accepted_escape" // minutes gained after lockdown
	KeyAccepted          = "feedback.accepted"
	KeyAlreadyUsed       = "feedback.already_used"
	KeyUnrecognized      = "feedback.unrecognized"
	KeyTrapChoice        = "feedback.trap_choice"
	KeyChoicePending     = "feedback.choice_pending"
	KeySessionOver       = "feedback.session_over"
	KeyOutcomePrefix     = "outcome."
	KeyEscapeUnavailable = "feedback.escape_unavailable"
)

var supported = []language.Tag{language.English, language.Spanish}

var matcher = language.NewMatcher(supported)

var messages = map[language.Tag]map[string]string{
	language.English: {
		KeyInvalidInput:      "Enter a code.",
		KeyAcceptedDelay:     "Code accepted. Lockdown delayed by %d minutes.",
		KeyAcceptedEscape:    "Code accepted. The escape window holds %d minutes longer.",
		KeyAccepted:          "Code accepted.",
		KeyAlreadyUsed:       "That code has already been used.",
		KeyUnrecognized:      "Invalid code.",
		KeyTrapChoice:        "The archive offers to release every stored memory. Release them?",
		KeyChoicePending:     "Decide on the memory release first.",
		KeySessionOver:       "The session is over.",
		KeyEscapeUnavailable: "The exit is sealed.",

		KeyOutcomePrefix + "SUCCESS":         "The facility is shut down safely.",
		KeyOutcomePrefix + "CORRUPTION":      "The archive is corrupted.",
		KeyOutcomePrefix + "TIMEOUT":         "The memories have faded.",
		KeyOutcomePrefix + "ESCAPE":          "You escaped the facility.",
		KeyOutcomePrefix + "HEROIC_LOCKDOWN": "You shut it down from inside.",
		KeyOutcomePrefix + "TRAPPED":         "You are trapped inside.",
		KeyOutcomePrefix + "REBELLIOUS":      "The memories are free.",
	},
	language.Spanish: {
		KeyInvalidInput:      "Introduce un código.",
		KeyAcceptedDelay:     "Código aceptado. El cierre se retrasa %d minutos.",
		KeyAcceptedEscape:    "Código aceptado. La ventana de escape dura %d minutos más.",
		KeyAccepted:          "Código aceptado.",
		KeyAlreadyUsed:       "Ese código ya se ha usado.",
		KeyUnrecognized:      "Código no válido.",
		KeyTrapChoice:        "El archivo ofrece liberar todos los recuerdos. ¿Liberarlos?",
		KeyChoicePending:     "Primero decide sobre los recuerdos.",
		KeySessionOver:       "La sesión ha terminado.",
		KeyEscapeUnavailable: "La salida está sellada.",

		KeyOutcomePrefix + "SUCCESS":         "La instalación se apaga sin riesgos.",
		KeyOutcomePrefix + "CORRUPTION":      "El archivo está corrupto.",
		KeyOutcomePrefix + "TIMEOUT":         "Los recuerdos se han desvanecido.",
		KeyOutcomePrefix + "ESCAPE":          "Has escapado de la instalación.",
		KeyOutcomePrefix + "HEROIC_LOCKDOWN": "La has apagado desde dentro.",
		KeyOutcomePrefix + "TRAPPED":         "Estás atrapado dentro.",
		KeyOutcomePrefix + "REBELLIOUS":      "Los recuerdos son libres.",
	},
}

var builder = newCatalog()

func newCatalog() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for tag, entries := range messages {
		for key, msg := range entries {
			if err := b.SetString(tag, key, msg); err != nil {
				panic("i18n: " + key + ": " + err.Error())
			}
		}
	}
	return b
}

// Printer renders feedback in one locale.
type Printer struct {
	tag     language.Tag
	printer *message.Printer
}

// NewPrinter returns a printer for the closest supported locale (English by default).
func NewPrinter(locale string) *Printer {
	_, idx, _ := matcher.Match(language.Make(locale))
	tag := supported[idx]
	return &Printer{
		tag:     tag,
		printer: message.NewPrinter(tag, message.Catalog(builder)),
	}
}

// Locale returns the selected BCP 47 tag.
func (p *Printer) Locale() string {
	return p.tag.String()
}

// Sprintf renders the message for key. A nil printer renders nothing.
func (p *Printer) Sprintf(key string, args ...any) string {
	if p == nil {
		return ""
	}
	return p.printer.Sprintf(key, args...)
}

// Outcome renders the closing line for an outcome name.
func (p *Printer) Outcome(name string) string {
	return p.Sprintf(KeyOutcomePrefix + name)
}
