package events

// PhaseChangedPayload records a phase transition.
type PhaseChangedPayload struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// TimeExtendedPayload records a lockdown extension.
type TimeExtendedPayload struct {
	Amount          float64 `json:"amount"`
	LockdownBudget  float64 `json:"lockdown_budget"`
	ExtensionNumber int     `json:"extension_number"`
	LockdownStarted bool    `json:"lockdown_started"`
}

// StatsPayload carries the instantaneous rates and the CO2 total.
type StatsPayload struct {
	PowerMW           float64 `json:"power_mw"`
	WaterLitersPerSec float64 `json:"water_lps"`
	CO2KgPerSec       float64 `json:"co2_kgps"`
	TotalCO2Kg        float64 `json:"total_co2_kg"`
	TotalEnergyMWh    float64 `json:"total_energy_mwh"`
	TotalWaterLiters  float64 `json:"total_water_liters"`
	PowerMultiplier   float64 `json:"power_multiplier"`
}

// MemoryHealthPayload carries the current memory health.
type MemoryHealthPayload struct {
	Health float64 `json:"health"`
}

// MemoryReleasedPayload records the one-time totals scale-up.
type MemoryReleasedPayload struct {
	Factor           float64 `json:"factor"`
	TotalEnergyMWh   float64 `json:"total_energy_mwh"`
	TotalWaterLiters float64 `json:"total_water_liters"`
	TotalCO2Kg       float64 `json:"total_co2_kg"`
}

// CodePayload records a code discovery, acceptance or rejection.
type CodePayload struct {
	ClueType string `json:"clue_type,omitempty"`
	Input    string `json:"input,omitempty"`
	Feedback string `json:"feedback,omitempty"`
	Code     string `json:"code,omitempty"` // error code for rejections
	Message  string `json:"message,omitempty"`
	Valid    int    `json:"valid_count"`
}

// OutcomePayload records the selected ending.
type OutcomePayload struct {
	Outcome string  `json:"outcome"`
	Phase   string  `json:"phase"`
	Elapsed float64 `json:"elapsed"`
}

// PlayerActionPayload records a puzzle-driven action.
type PlayerActionPayload struct {
	Action string `json:"action"`
	Value  bool   `json:"value,omitempty"`
}

// CuePayload tells the presentation layer which step of a timed sequence began.
type CuePayload struct {
	Sequence string `json:"sequence"`
	Step     string `json:"step"`
}

// SessionPausePayload records why the session froze or thawed.
type SessionPausePayload struct {
	Reason string `json:"reason"`
}

// DiscoveryPayload records a solved puzzle. The code itself is not broadcast.
type DiscoveryPayload struct {
	ClueType string `json:"clue_type"`
}
