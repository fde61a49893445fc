package rules

import (
	"math"
	"testing"

	"github.com/MRamiBalles/lockdown/internal/domain/phase"
)

func testCurve() PowerCurve {
	return PowerCurve{
		RampStart: 360, RampEnd: 660, SurgeEnd: 840,
		RampTop: 1.5, Surge: 1.8, Late: 2.0,
		FinalRampDelay: 60, FinalRamp: 300, FinalTop: 3.0,
		ElectricityBonus:  0.1,
		CaptchaMultiplier: 4,
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestTimeTiers(t *testing.T) {
	c := testCurve()
	tests := []struct {
		elapsed float64
		want    float64
	}{
		{0, 1.0},
		{359.999, 1.0},
		{360, 1.0},
		{500, 1.0 + 0.5*(140.0/300.0)},
		{510, 1.25},
		{660, 1.8},
		{839.9, 1.8},
		{840, 2.0},
		{5000, 2.0},
	}
	for _, tc := range tests {
		got := TimeMultiplier(tc.elapsed, phase.Normal, 900, c)
		if !almostEqual(got, tc.want) {
			t.Fatalf("TimeMultiplier(%v)=%v want %v", tc.elapsed, got, tc.want)
		}
	}
}

func TestScenarioPower(t *testing.T) {
	c := testCurve()
	base := 700.0

	if got := base * PowerMultiplier(PowerInputs{Elapsed: 0}, c); got != 700 {
		t.Fatalf("scenario A: expected 700 got %v", got)
	}

	got := base * PowerMultiplier(PowerInputs{Elapsed: 500}, c)
	if math.Abs(got-863.333) > 0.01 {
		t.Fatalf("scenario B: expected ~863.3 got %v", got)
	}

	for _, elapsed := range []float64{0, 500, 700, 2000} {
		in := PowerInputs{Elapsed: elapsed, CaptchaSolved: true, ElectricityConnected: true, Phase: phase.FinalLockdown}
		if got := base * PowerMultiplier(in, c); got != 2800 {
			t.Fatalf("scenario E at %v: expected 2800 got %v", elapsed, got)
		}
	}
}

func TestElectricityIsAdditive(t *testing.T) {
	c := testCurve()
	got := PowerMultiplier(PowerInputs{Elapsed: 700, ElectricityConnected: true}, c)
	if !almostEqual(got, 1.9) {
		t.Fatalf("expected 1.9 got %v", got)
	}
}

func TestFinalRamp(t *testing.T) {
	c := testCurve()
	budget := 900.0
	tests := []struct {
		elapsed float64
		want    float64
	}{
		{budget + 30, 2.0},
		{budget + 60, 2.0},
		{budget + 210, 2.5},
		{budget + 360, 3.0},
		{budget + 1000, 3.0},
	}
	for _, tc := range tests {
		got := TimeMultiplier(tc.elapsed, phase.FinalLockdown, budget, c)
		if !almostEqual(got, tc.want) {
			t.Fatalf("final ramp at %v: expected %v got %v", tc.elapsed, tc.want, got)
		}
	}
	// Outside the final phase the late tier applies regardless of budget.
	if got := TimeMultiplier(budget+210, phase.EscapeWindow, budget, c); got != 2.0 {
		t.Fatalf("expected late tier outside final phase, got %v", got)
	}
	if got := TimeMultiplier(budget+420, phase.Ended, budget, c); got != 3.0 {
		t.Fatalf("expected Ended to hold the final ramp top, got %v", got)
	}
}

func TestPowerMultiplierDeterministic(t *testing.T) {
	c := testCurve()
	for elapsed := 0.0; elapsed < 1500; elapsed += 7.3 {
		for _, p := range []phase.Phase{phase.Normal, phase.EscapeWindow, phase.FinalLockdown} {
			in := PowerInputs{Elapsed: elapsed, Phase: p, LockdownBudget: 900, ElectricityConnected: int(elapsed)%2 == 0}
			if PowerMultiplier(in, c) != PowerMultiplier(in, c) {
				t.Fatalf("non-deterministic multiplier for %+v", in)
			}
		}
	}
}

func TestMemoryDecay(t *testing.T) {
	if got := MemoryDecay(1.0, 1, 0.5); got != 0 {
		t.Fatalf("expected no decay at base power, got %v", got)
	}
	if got := MemoryDecay(0.5, 1, 0.5); got != 0 {
		t.Fatalf("expected no decay below base power, got %v", got)
	}
	if got := MemoryDecay(1.8, 2, 0.5); !almostEqual(got, 0.8) {
		t.Fatalf("expected 0.8 got %v", got)
	}
	if got := MemoryDecay(3, -1, 0.5); got != 0 {
		t.Fatalf("expected no decay for negative dt, got %v", got)
	}
}
