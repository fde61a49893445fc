// Package clue defines the clue codes players discover and submit.
// This package is PURE and must NOT import any infrastructure packages.
package clue

import (
	"sort"

	"github.com/zyedidia/generic/mapset"
)

// Type identifies which puzzle a code comes from.
type Type string

const (
	TypeWater       Type = "WATER"
	TypeElectricity Type = "ELECTRICITY"
	TypeLocation    Type = "LOCATION"
	TypeFalse       Type = "FALSE" // Trap code
)

// LegitimateTypes lists the three real codes in matching order.
func LegitimateTypes() []Type {
	return []Type{TypeWater, TypeElectricity, TypeLocation}
}

// Legitimate reports whether t is one of the three real codes.
func (t Type) Legitimate() bool {
	return t == TypeWater || t == TypeElectricity || t == TypeLocation
}

// Valid reports whether t is a known clue type.
func (t Type) Valid() bool {
	return t.Legitimate() || t == TypeFalse
}

// Code is a clue code as known by the ledger.
type Code struct {
	Type       Type   `json:"type"`
	Value      string `json:"code"`
	Discovered bool   `json:"discovered"`
}

// Ledger tracks discovered codes and the set of consumed (accepted) code strings.
type Ledger struct {
	codes    map[Type]Code
	consumed mapset.Set[string]
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		codes:    make(map[Type]Code),
		consumed: mapset.New[string](),
	}
}

// MarkDiscovered records code as the discovered value for t.
// The first discovery of a type wins; later calls return false.
func (l *Ledger) MarkDiscovered(t Type, code string) bool {
	if !t.Valid() || code == "" {
		return false
	}
	if existing, ok := l.codes[t]; ok && existing.Discovered {
		return false
	}
	l.codes[t] = Code{Type: t, Value: code, Discovered: true}
	return true
}

// Discovered returns the discovered code for t.
func (l *Ledger) Discovered(t Type) (Code, bool) {
	c, ok := l.codes[t]
	if !ok || !c.Discovered {
		return Code{}, false
	}
	return c, true
}

// DiscoveredLegitimate returns the discovered real codes in Water, Electricity, Location order.
func (l *Ledger) DiscoveredLegitimate() []Code {
	var out []Code
	for _, t := range LegitimateTypes() {
		if c, ok := l.Discovered(t); ok {
			out = append(out, c)
		}
	}
	return out
}

// Consume marks code as accepted. Returns false if it was already consumed.
func (l *Ledger) Consume(code string) bool {
	if l.consumed.Has(code) {
		return false
	}
	l.consumed.Put(code)
	return true
}

// IsConsumed reports whether code has already been accepted.
func (l *Ledger) IsConsumed(code string) bool {
	return l.consumed.Has(code)
}

// ConsumedCount returns the number of distinct accepted codes.
func (l *Ledger) ConsumedCount() int {
	return l.consumed.Size()
}

// Consumed returns the accepted codes sorted for stable output.
func (l *Ledger) Consumed() []string {
	out := make([]string, 0, l.consumed.Size())
	l.consumed.Each(func(code string) {
		out = append(out, code)
	})
	sort.Strings(out)
	return out
}

// AllLegitimateConsumed reports whether every real code has been discovered and accepted.
func (l *Ledger) AllLegitimateConsumed() bool {
	for _, t := range LegitimateTypes() {
		c, ok := l.Discovered(t)
		if !ok || !l.consumed.Has(c.Value) {
			return false
		}
	}
	return true
}

// Snapshot returns a copy of every discovered code.
func (l *Ledger) Snapshot() []Code {
	out := make([]Code, 0, len(l.codes))
	for _, t := range append(LegitimateTypes(), TypeFalse) {
		if c, ok := l.codes[t]; ok {
			out = append(out, c)
		}
	}
	return out
}
