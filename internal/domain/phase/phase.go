// Package phase defines the lockdown phases of a session.
// This package is PURE and must NOT import any infrastructure packages.
package phase

// Phase is a step of the facility lockdown. Phases only move forward.
type Phase int

const (
	Normal        Phase = iota // Facility running, lockdown not started
	EscapeWindow               // Lockdown started, exit still usable
	FinalLockdown              // Exit sealed, countdown to the end
	Ended                      // Nothing left to simulate
)

func (p Phase) String() string {
	switch p {
	case Normal:
		return "Normal"
	case EscapeWindow:
		return "EscapeWindow"
	case FinalLockdown:
		return "FinalLockdown"
	case Ended:
		return "Ended"
	default:
		return "Unknown"
	}
}

// Before reports whether p comes strictly before other.
func (p Phase) Before(other Phase) bool {
	return p < other
}

// LockdownStarted reports whether the Normal phase is over.
func (p Phase) LockdownStarted() bool {
	return p > Normal
}

// Next returns the phase that follows p. Ended is terminal.
func (p Phase) Next() Phase {
	if p >= Ended {
		return Ended
	}
	return p + 1
}
