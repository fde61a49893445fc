package clue

import "testing"

func TestMarkDiscoveredIsIdempotentPerType(t *testing.T) {
	l := NewLedger()

	if !l.MarkDiscovered(TypeWater, "H2O-7") {
		t.Fatalf("expected first discovery to be recorded")
	}
	if l.MarkDiscovered(TypeWater, "OTHER") {
		t.Fatalf("expected second discovery of the same type to be ignored")
	}
	c, ok := l.Discovered(TypeWater)
	if !ok || c.Value != "H2O-7" {
		t.Fatalf("expected H2O-7 got %+v", c)
	}
}

func TestMarkDiscoveredRejectsBadInput(t *testing.T) {
	l := NewLedger()
	if l.MarkDiscovered(TypeLocation, "") {
		t.Fatalf("expected empty code to be rejected")
	}
	if l.MarkDiscovered(Type("BOGUS"), "X") {
		t.Fatalf("expected unknown type to be rejected")
	}
	if _, ok := l.Discovered(TypeLocation); ok {
		t.Fatalf("expected nothing discovered")
	}
}

func TestConsumeOnlyOnce(t *testing.T) {
	l := NewLedger()
	if !l.Consume("A") {
		t.Fatalf("expected first consume to succeed")
	}
	if l.Consume("A") {
		t.Fatalf("expected second consume to fail")
	}
	if l.ConsumedCount() != 1 {
		t.Fatalf("expected 1 consumed got %d", l.ConsumedCount())
	}
	if !l.IsConsumed("A") || l.IsConsumed("B") {
		t.Fatalf("unexpected consumed membership")
	}
}

func TestAllLegitimateConsumed(t *testing.T) {
	l := NewLedger()
	l.MarkDiscovered(TypeWater, "W1")
	l.MarkDiscovered(TypeElectricity, "E1")
	l.MarkDiscovered(TypeLocation, "L1")
	l.MarkDiscovered(TypeFalse, "F1")

	l.Consume("W1")
	l.Consume("E1")
	if l.AllLegitimateConsumed() {
		t.Fatalf("expected incomplete set")
	}
	l.Consume("L1")
	if !l.AllLegitimateConsumed() {
		t.Fatalf("expected complete set")
	}
}

func TestDiscoveredLegitimateOrderAndSnapshot(t *testing.T) {
	l := NewLedger()
	l.MarkDiscovered(TypeLocation, "L1")
	l.MarkDiscovered(TypeFalse, "F1")
	l.MarkDiscovered(TypeWater, "W1")

	got := l.DiscoveredLegitimate()
	if len(got) != 2 || got[0].Type != TypeWater || got[1].Type != TypeLocation {
		t.Fatalf("unexpected order %+v", got)
	}
	snap := l.Snapshot()
	if len(snap) != 3 || snap[2].Type != TypeFalse {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestConsumedSorted(t *testing.T) {
	l := NewLedger()
	l.Consume("b")
	l.Consume("a")
	got := l.Consumed()
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("expected [a b] got %v", got)
	}
}
