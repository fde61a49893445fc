package engine

import (
	"math"

	"github.com/MRamiBalles/lockdown/internal/domain/phase"
	"github.com/MRamiBalles/lockdown/internal/domain/rules"
	"github.com/MRamiBalles/lockdown/internal/events"
	"github.com/MRamiBalles/lockdown/internal/platform/config"
	apperrors "github.com/MRamiBalles/lockdown/internal/platform/errors"
	"github.com/MRamiBalles/lockdown/internal/platform/logger"
)

const (
	actorResources = "SYSTEM_RESOURCES"
	maxHealth      = 100.0
)

// ClockReader is the read-only view of the phase clock the simulator needs.
type ClockReader interface {
	Phase() phase.Phase
	Elapsed() float64
	LockdownBudget() float64
}

// ResourceState holds the instantaneous rates. Recomputed every tick.
type ResourceState struct {
	PowerMW              float64 `json:"power_mw"`
	WaterLitersPerSecond float64 `json:"water_lps"`
	CO2KgPerSecond       float64 `json:"co2_kgps"`
	PowerMultiplier      float64 `json:"power_multiplier"`
}

// ResourceTotals holds the integrated consumption.
type ResourceTotals struct {
	EnergyMWh   float64 `json:"energy_mwh"`
	WaterLiters float64 `json:"water_liters"`
	CO2Kg       float64 `json:"co2_kg"`
}

// ResourceSimulator computes consumption rates, integrates them and tracks memory health.
type ResourceSimulator struct {
	eventLog *events.EventLog
	logger   *logger.Logger
	clock    ClockReader
	curve    rules.PowerCurve

	basePower, baseWater, baseCO2 float64
	tapRate                       float64
	releaseFactor                 float64
	decayThreshold, decayPerSec   float64
	fallbackBudget                float64

	// Player action flags
	electricity bool
	captcha     bool
	waterTap    bool
	released    bool

	tracking     bool
	depleted     bool
	ownElapsed   float64 // used only without a clock
	state        ResourceState
	totals       ResourceTotals
	memoryHealth float64
}

// NewResourceSimulator creates a tracking simulator at full memory health.
// A nil clock is tolerated: the simulator counts its own time and assumes Normal.
func NewResourceSimulator(t config.Tuning, clock ClockReader, eventLog *events.EventLog, log *logger.Logger) *ResourceSimulator {
	rs := &ResourceSimulator{
		eventLog: eventLog,
		logger:   log,
		clock:    clock,
		curve: rules.PowerCurve{
			RampStart:         t.RampStartSeconds,
			RampEnd:           t.RampEndSeconds,
			SurgeEnd:          t.SurgeEndSeconds,
			RampTop:           t.RampTopMultiplier,
			Surge:             t.SurgeMultiplier,
			Late:              t.LateMultiplier,
			FinalRampDelay:    t.FinalRampDelaySeconds,
			FinalRamp:         t.FinalRampSeconds,
			FinalTop:          t.FinalRampTop,
			ElectricityBonus:  t.ElectricityBonus,
			CaptchaMultiplier: t.CaptchaMultiplier,
		},
		basePower:      t.BasePowerMW,
		baseWater:      t.BaseWaterLitersPerSecond,
		baseCO2:        t.BaseCO2KgPerSecond,
		tapRate:        t.WaterTapLitersPerSecond,
		releaseFactor:  t.MemoryReleaseFactor,
		decayThreshold: t.MemoryDecayThresholdSeconds,
		decayPerSec:    t.MemoryDecayPerSecond,
		fallbackBudget: t.LockdownBaseSeconds,
		tracking:       true,
		memoryHealth:   maxHealth,
	}
	if clock == nil {
		err := apperrors.New(apperrors.CodeMissingCollaborator, "resource simulator has no phase clock")
		log.Warn("degraded resource model", "code", err.Code, "error", err)
	}
	rs.refresh()
	return rs
}

func (rs *ResourceSimulator) inputs() rules.PowerInputs {
	in := rules.PowerInputs{
		ElectricityConnected: rs.electricity,
		CaptchaSolved:        rs.captcha,
	}
	if rs.clock == nil {
		in.Elapsed = rs.ownElapsed
		in.Phase = phase.Normal
		in.LockdownBudget = rs.fallbackBudget
		return in
	}
	in.Elapsed = rs.clock.Elapsed()
	in.Phase = rs.clock.Phase()
	in.LockdownBudget = rs.clock.LockdownBudget()
	return in
}

// refresh recomputes the instantaneous rates without integrating.
func (rs *ResourceSimulator) refresh() {
	ratio := rules.PowerMultiplier(rs.inputs(), rs.curve)
	rs.state = ResourceState{
		PowerMW:              rs.basePower * ratio,
		WaterLitersPerSecond: rs.baseWater * ratio,
		CO2KgPerSecond:       rs.baseCO2 * ratio,
		PowerMultiplier:      ratio,
	}
	if rs.waterTap {
		rs.state.WaterLitersPerSecond += rs.tapRate
	}
}

// Tick recomputes the rates for the current clock state and integrates them over dt.
// The clock must already have been ticked for this frame.
func (rs *ResourceSimulator) Tick(dt float64) {
	if !rs.tracking {
		return
	}
	if dt < 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		return
	}
	if rs.clock == nil {
		rs.ownElapsed += dt
	}

	rs.refresh()
	rs.totals.EnergyMWh += rs.state.PowerMW * dt / 3600
	rs.totals.WaterLiters += rs.state.WaterLitersPerSecond * dt
	rs.totals.CO2Kg += rs.state.CO2KgPerSecond * dt

	elapsed := rs.inputs().Elapsed
	if elapsed >= rs.decayThreshold {
		loss := rules.MemoryDecay(rs.state.PowerMultiplier, dt, rs.decayPerSec)
		rs.memoryHealth = rules.Clamp(rs.memoryHealth-loss, 0, maxHealth)
	}

	rs.emit(events.EventTypeStatsUpdated, true, events.StatsPayload{
		PowerMW:           rs.state.PowerMW,
		WaterLitersPerSec: rs.state.WaterLitersPerSecond,
		CO2KgPerSec:       rs.state.CO2KgPerSecond,
		TotalCO2Kg:        rs.totals.CO2Kg,
		TotalEnergyMWh:    rs.totals.EnergyMWh,
		TotalWaterLiters:  rs.totals.WaterLiters,
		PowerMultiplier:   rs.state.PowerMultiplier,
	})
	rs.emit(events.EventTypeMemoryHealthUpdated, true, events.MemoryHealthPayload{Health: rs.memoryHealth})

	if rs.memoryHealth <= 0 && !rs.depleted {
		rs.depleted = true
		rs.logger.Warn("memory health depleted", "elapsed", elapsed)
		rs.emit(events.EventTypeMemoryDepleted, false, events.MemoryHealthPayload{Health: 0})
	}
}

func (rs *ResourceSimulator) emit(eventType events.EventType, transient bool, payload interface{}) {
	if rs.eventLog == nil {
		return
	}
	rs.eventLog.Append(events.GameEvent{
		Type:      eventType,
		ActorID:   actorResources,
		Elapsed:   rs.inputs().Elapsed,
		Payload:   payload,
		Transient: transient,
	})
}

func (rs *ResourceSimulator) action(name string, value bool) {
	rs.refresh()
	rs.emit(events.EventTypePlayerAction, false, events.PlayerActionPayload{Action: name, Value: value})
}

// OnElectricityConnected applies the electricity bonus from now on.
func (rs *ResourceSimulator) OnElectricityConnected() {
	if rs.electricity {
		return
	}
	rs.electricity = true
	rs.action("ELECTRICITY_CONNECTED", true)
}

// OnWaterTapStateChanged switches the flat tap flow on or off.
func (rs *ResourceSimulator) OnWaterTapStateChanged(running bool) {
	if rs.waterTap == running {
		return
	}
	rs.waterTap = running
	rs.action("WATER_TAP", running)
}

// OnCaptchaSolved pins power to the captcha multiple for the rest of the session.
func (rs *ResourceSimulator) OnCaptchaSolved() {
	if rs.captcha {
		return
	}
	rs.captcha = true
	rs.action("CAPTCHA_SOLVED", true)
}

// OnMemoryReleased scales every accumulated total once. Later calls return false.
func (rs *ResourceSimulator) OnMemoryReleased() bool {
	if rs.released {
		return false
	}
	rs.released = true
	rs.totals.EnergyMWh *= rs.releaseFactor
	rs.totals.WaterLiters *= rs.releaseFactor
	rs.totals.CO2Kg *= rs.releaseFactor

	rs.logger.Info("memories released", "factor", rs.releaseFactor)
	rs.emit(events.EventTypeMemoryReleased, false, events.MemoryReleasedPayload{
		Factor:           rs.releaseFactor,
		TotalEnergyMWh:   rs.totals.EnergyMWh,
		TotalWaterLiters: rs.totals.WaterLiters,
		TotalCO2Kg:       rs.totals.CO2Kg,
	})
	return true
}

// StopTracking freezes all computation.
func (rs *ResourceSimulator) StopTracking() {
	rs.tracking = false
}

// ResumeTracking unfreezes computation.
func (rs *ResourceSimulator) ResumeTracking() {
	rs.tracking = true
}

// Tracking reports whether Tick computes anything.
func (rs *ResourceSimulator) Tracking() bool {
	return rs.tracking
}

func (rs *ResourceSimulator) CurrentPowerMW() float64 { return rs.state.PowerMW }
func (rs *ResourceSimulator) CurrentWaterLitersPerSecond() float64 { return rs.state.WaterLitersPerSecond }
func (rs *ResourceSimulator) CurrentCO2KgPerSecond() float64 { return rs.state.CO2KgPerSecond }
func (rs *ResourceSimulator) TotalEnergyMWh() float64 { return rs.totals.EnergyMWh }
func (rs *ResourceSimulator) TotalWaterLiters() float64 { return rs.totals.WaterLiters }
func (rs *ResourceSimulator) TotalCO2Kg() float64 { return rs.totals.CO2Kg }
func (rs *ResourceSimulator) MemoryHealth() float64 { return rs.memoryHealth }
func (rs *ResourceSimulator) Depleted() bool { return rs.depleted }
func (rs *ResourceSimulator) MemoryReleased() bool { return rs.released }

// State returns the instantaneous rates.
func (rs *ResourceSimulator) State() ResourceState {
	return rs.state
}

// Totals returns the accumulated consumption.
func (rs *ResourceSimulator) Totals() ResourceTotals {
	return rs.totals
}
