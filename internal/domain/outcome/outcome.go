// Package outcome defines the terminal narrative states of a session.
// This package is PURE and must NOT import any infrastructure packages.
package outcome

// Kind is one of the mutually exclusive endings. Exactly one is selected per session.
type Kind string

const (
	Success        Kind = "SUCCESS"         // All codes entered before lockdown
	Corruption     Kind = "CORRUPTION"      // Trap code entered after lockdown started
	Timeout        Kind = "TIMEOUT"         // Memory health ran out
	Escape         Kind = "ESCAPE"          // Player left through the exit during the escape window
	HeroicLockdown Kind = "HEROIC_LOCKDOWN" // All codes entered after lockdown started
	Trapped        Kind = "TRAPPED"         // Final lockdown ran out
	Rebellious     Kind = "REBELLIOUS"      // Player chose to release the memories
)

// All lists every outcome in a stable order.
func All() []Kind {
	return []Kind{Success, Corruption, Timeout, Escape, HeroicLockdown, Trapped, Rebellious}
}

// Valid reports whether k is a known outcome.
func (k Kind) Valid() bool {
	for _, known := range All() {
		if k == known {
			return true
		}
	}
	return false
}

func (k Kind) String() string {
	return string(k)
}
