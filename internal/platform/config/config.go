// Package config holds the tunable parameters of the lockdown engine and server.
// Values come from LOCKDOWN_* environment variables with documented defaults.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Tuning holds every numeric constant of the progression engine.
type Tuning struct {
	// Resource model
	BasePowerMW              float64 `env:"LOCKDOWN_BASE_POWER_MW" envDefault:"700"`
	BaseWaterLitersPerSecond float64 `env:"LOCKDOWN_BASE_WATER_LPS" envDefault:"25"`
	BaseCO2KgPerSecond       float64 `env:"LOCKDOWN_BASE_CO2_KGPS" envDefault:"77.8"`
	ElectricityBonus         float64 `env:"LOCKDOWN_ELECTRICITY_BONUS" envDefault:"0.1"`
	CaptchaMultiplier        float64 `env:"LOCKDOWN_CAPTCHA_MULTIPLIER" envDefault:"4"`
	WaterTapLitersPerSecond  float64 `env:"LOCKDOWN_WATER_TAP_LPS" envDefault:"0.2"`
	MemoryReleaseFactor      float64 `env:"LOCKDOWN_MEMORY_RELEASE_FACTOR" envDefault:"10"`

	// Piecewise tiers (seconds of elapsed session time)
	RampStartSeconds  float64 `env:"LOCKDOWN_RAMP_START" envDefault:"360"`
	RampEndSeconds    float64 `env:"LOCKDOWN_RAMP_END" envDefault:"660"`
	SurgeEndSeconds   float64 `env:"LOCKDOWN_SURGE_END" envDefault:"840"`
	RampTopMultiplier float64 `env:"LOCKDOWN_RAMP_TOP" envDefault:"1.5"`
	SurgeMultiplier   float64 `env:"LOCKDOWN_SURGE_MULTIPLIER" envDefault:"1.8"`
	LateMultiplier    float64 `env:"LOCKDOWN_LATE_MULTIPLIER" envDefault:"2"`

	// Final lockdown ramp
	FinalRampDelaySeconds float64 `env:"LOCKDOWN_FINAL_RAMP_DELAY" envDefault:"60"`
	FinalRampSeconds      float64 `env:"LOCKDOWN_FINAL_RAMP" envDefault:"300"`
	FinalRampTop          float64 `env:"LOCKDOWN_FINAL_RAMP_TOP" envDefault:"3"`

	// Memory health
	MemoryDecayThresholdSeconds float64 `env:"LOCKDOWN_MEMORY_DECAY_THRESHOLD" envDefault:"660"`
	MemoryDecayPerSecond        float64 `env:"LOCKDOWN_MEMORY_DECAY_PER_SECOND" envDefault:"0.08"`

	// Phase clock
	LockdownBaseSeconds float64 `env:"LOCKDOWN_BASE_SECONDS" envDefault:"900"`
	ExtensionSeconds    float64 `env:"LOCKDOWN_EXTENSION_SECONDS" envDefault:"120"`
	MaxExtensions       int     `env:"LOCKDOWN_MAX_EXTENSIONS" envDefault:"2"`
	EscapeWindowSeconds float64 `env:"LOCKDOWN_ESCAPE_WINDOW" envDefault:"60"`
	FinalPhaseSeconds   float64 `env:"LOCKDOWN_FINAL_PHASE" envDefault:"360"`

	// Display clock
	DisplayStartMinutes     int     `env:"LOCKDOWN_DISPLAY_START_MINUTES" envDefault:"1020"`
	SecondsPerFictionMinute float64 `env:"LOCKDOWN_SECONDS_PER_MINUTE" envDefault:"15"`
}

// ServerConfig holds process-level settings for the server and console drivers.
type ServerConfig struct {
	Addr          string  `env:"LOCKDOWN_ADDR" envDefault:":8080"`
	DBPath        string  `env:"LOCKDOWN_DB_PATH" envDefault:"lockdown.db"`
	FrameRate     int     `env:"LOCKDOWN_FRAME_RATE" envDefault:"30"`
	Locale        string  `env:"LOCKDOWN_LOCALE" envDefault:"en"`
	LogLevel      string  `env:"LOCKDOWN_LOG_LEVEL" envDefault:"info"`
	CommandBuffer int     `env:"LOCKDOWN_COMMAND_BUFFER" envDefault:"64"`
	ClientSendBuf int     `env:"LOCKDOWN_CLIENT_SEND_BUFFER" envDefault:"64"`
	ClientRate    float64 `env:"LOCKDOWN_CLIENT_RATE" envDefault:"2"`
	ClientBurst   int     `env:"LOCKDOWN_CLIENT_BURST" envDefault:"4"`
}

// Config is the full configuration tree.
type Config struct {
	Server ServerConfig
	Tuning Tuning
}

// Default returns the documented defaults without reading the environment.
func Default() Config {
	return Config{
		Server: DefaultServer(),
		Tuning: DefaultTuning(),
	}
}

// DefaultServer returns the default process settings.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Addr:          ":8080",
		DBPath:        "lockdown.db",
		FrameRate:     30,
		Locale:        "en",
		LogLevel:      "info",
		CommandBuffer: 64,
		ClientSendBuf: 64,
		ClientRate:    2,
		ClientBurst:   4,
	}
}

// DefaultTuning returns the default engine constants.
func DefaultTuning() Tuning {
	return Tuning{
		BasePowerMW:              700,
		BaseWaterLitersPerSecond: 25,
		BaseCO2KgPerSecond:       77.8,
		ElectricityBonus:         0.1,
		CaptchaMultiplier:        4,
		WaterTapLitersPerSecond:  0.2,
		MemoryReleaseFactor:      10,

		RampStartSeconds:  360,
		RampEndSeconds:    660,
		SurgeEndSeconds:   840,
		RampTopMultiplier: 1.5,
		SurgeMultiplier:   1.8,
		LateMultiplier:    2,

		FinalRampDelaySeconds: 60,
		FinalRampSeconds:      300,
		FinalRampTop:          3,

		MemoryDecayThresholdSeconds: 660,
		MemoryDecayPerSecond:        0.08,

		LockdownBaseSeconds: 900,
		ExtensionSeconds:    120,
		MaxExtensions:       2,
		EscapeWindowSeconds: 60,
		FinalPhaseSeconds:   360,

		DisplayStartMinutes:     17 * 60,
		SecondsPerFictionMinute: 15,
	}
}

// Load parses the environment into a Config and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Tuning.Validate(); err != nil {
		return Config{}, err
	}
	if cfg.Server.FrameRate <= 0 {
		return Config{}, fmt.Errorf("frame rate must be positive, got %d", cfg.Server.FrameRate)
	}
	return cfg, nil
}

// Validate rejects tunings the engine cannot run with.
func (t Tuning) Validate() error {
	positive := []struct {
		name  string
		value float64
	}{
		{"base power", t.BasePowerMW},
		{"lockdown base", t.LockdownBaseSeconds},
		{"escape window", t.EscapeWindowSeconds},
		{"final phase", t.FinalPhaseSeconds},
		{"final ramp", t.FinalRampSeconds},
		{"seconds per fiction minute", t.SecondsPerFictionMinute},
	}
	for _, p := range positive {
		if p.value <= 0 {
			return fmt.Errorf("%s must be positive, got %v", p.name, p.value)
		}
	}
	nonNegative := []struct {
		name  string
		value float64
	}{
		{"base water", t.BaseWaterLitersPerSecond},
		{"base CO2", t.BaseCO2KgPerSecond},
		{"water tap", t.WaterTapLitersPerSecond},
		{"memory decay", t.MemoryDecayPerSecond},
	}
	for _, n := range nonNegative {
		if n.value < 0 {
			return fmt.Errorf("%s must not be negative, got %v", n.name, n.value)
		}
	}
	if t.RampEndSeconds <= t.RampStartSeconds {
		return fmt.Errorf("ramp end (%v) must be after ramp start (%v)", t.RampEndSeconds, t.RampStartSeconds)
	}
	if t.SurgeEndSeconds < t.RampEndSeconds {
		return fmt.Errorf("surge end (%v) must not precede ramp end (%v)", t.SurgeEndSeconds, t.RampEndSeconds)
	}
	if t.ExtensionSeconds < 0 || t.MaxExtensions < 0 {
		return fmt.Errorf("extensions must not be negative")
	}
	if t.MemoryReleaseFactor < 1 {
		return fmt.Errorf("memory release factor must be at least 1, got %v", t.MemoryReleaseFactor)
	}
	return nil
}
