// Package rules contains the pure calculation logic for the resource model.
// This package is PURE and must NOT import any infrastructure packages.
package rules

import "github.com/MRamiBalles/lockdown/internal/domain/phase"

// PowerCurve holds the breakpoints and multipliers of the power model.
type PowerCurve struct {
	RampStart, RampEnd, SurgeEnd float64 // elapsed-time breakpoints in seconds
	RampTop                      float64 // multiplier reached at RampEnd
	Surge                        float64 // constant between RampEnd and SurgeEnd
	Late                         float64 // constant from SurgeEnd outside the final phase

	FinalRampDelay float64 // seconds after the lockdown budget before the final ramp starts
	FinalRamp      float64 // ramp duration in seconds
	FinalTop       float64 // multiplier held once the final ramp completes

	ElectricityBonus  float64
	CaptchaMultiplier float64
}

// PowerInputs is everything the multiplier depends on.
type PowerInputs struct {
	Elapsed              float64
	Phase                phase.Phase
	LockdownBudget       float64
	ElectricityConnected bool
	CaptchaSolved        bool
}

// PowerMultiplier returns the multiple of base power drawn for in.
// Captcha overrides everything; otherwise the time tier (or the final ramp during
// FinalLockdown) plus the electricity bonus.
func PowerMultiplier(in PowerInputs, c PowerCurve) float64 {
	if in.CaptchaSolved {
		return c.CaptchaMultiplier
	}
	m := TimeMultiplier(in.Elapsed, in.Phase, in.LockdownBudget, c)
	if in.ElectricityConnected {
		m += c.ElectricityBonus
	}
	return m
}

// TimeMultiplier is the time-based tier before player modifiers.
// Ended holds the final ramp value.
func TimeMultiplier(elapsed float64, p phase.Phase, budget float64, c PowerCurve) float64 {
	if p >= phase.FinalLockdown {
		return FinalRampMultiplier(elapsed, budget, c)
	}
	switch {
	case elapsed < c.RampStart:
		return 1.0
	case elapsed < c.RampEnd:
		f := (elapsed - c.RampStart) / (c.RampEnd - c.RampStart)
		return Lerp(1.0, c.RampTop, f)
	case elapsed < c.SurgeEnd:
		return c.Surge
	default:
		return c.Late
	}
}

// FinalRampMultiplier interpolates Late → FinalTop over FinalRamp seconds,
// starting FinalRampDelay seconds after the lockdown budget, then holds.
func FinalRampMultiplier(elapsed, budget float64, c PowerCurve) float64 {
	start := budget + c.FinalRampDelay
	if c.FinalRamp <= 0 {
		if elapsed >= start {
			return c.FinalTop
		}
		return c.Late
	}
	f := Clamp((elapsed-start)/c.FinalRamp, 0, 1)
	return Lerp(c.Late, c.FinalTop, f)
}

// MemoryDecay returns how much memory health is lost over dt at the given power ratio.
func MemoryDecay(powerRatio, dt, perSecond float64) float64 {
	excess := powerRatio - 1
	if excess <= 0 || dt <= 0 {
		return 0
	}
	return excess * perSecond * dt
}

// Lerp interpolates linearly between a and b; f is clamped to [0,1].
func Lerp(a, b, f float64) float64 {
	f = Clamp(f, 0, 1)
	return a + (b-a)*f
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
