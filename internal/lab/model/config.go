package model

import (
	"fmt"
	"time"
)

// ================ Config ================

type GuideModelConfig struct {
	// Candidates tried in order; a model the backend does not serve falls
	// through to the next one.
	Models            []string      `envconfig:"GUIDE_MODELS" default:"gemini-3-pro-preview,gemini-2.5-flash,gemini-2.5-flash-lite"`
	Temperature       float32       `envconfig:"GUIDE_TEMPERATURE" default:"0.4"`
	MaxTokens         int           `envconfig:"GUIDE_MAX_TOKENS" default:"1024"`
	CallTimeout       time.Duration `envconfig:"GUIDE_CALL_TIMEOUT" default:"20s"`
	SystemInstruction string        `envconfig:"GUIDE_SYSTEM_INSTRUCTION" default:"Scientific lab instructor. Concise, encouraging feedback."`
}

type ConversationConfig struct {
	HistoryTurns  int           `envconfig:"GUIDE_HISTORY_TURNS" default:"4"`
	OfflineKinds  []string      `envconfig:"GUIDE_OFFLINE_KINDS" default:"beam-balance,thermometer"`
	TranscriptTTL time.Duration `envconfig:"TRANSCRIPT_TTL" default:"24h"`
}

type SessionConfig struct {
	StudentName string `envconfig:"STUDENT_NAME" default:"Explorer"`
	// RewardXP overrides the catalog reward when positive.
	RewardXP int `envconfig:"SESSION_REWARD_XP" default:"0"`
}

type HeaterConfig struct {
	// BaseTemps is indexed by air-hole level and must increase with it.
	BaseTemps    []float64     `envconfig:"HEATER_BASE_TEMPS" default:"300,450,600,750"`
	Margin       float64       `envconfig:"HEATER_MARGIN" default:"50"`
	RiseBase     float64       `envconfig:"HEATER_RISE_BASE" default:"1"`
	RisePerLevel float64       `envconfig:"HEATER_RISE_PER_LEVEL" default:"0.2"`
	Ambient      float64       `envconfig:"HEATER_AMBIENT" default:"25"`
	CoolRate     float64       `envconfig:"HEATER_COOL_RATE" default:"1.5"`
	MinC         float64       `envconfig:"HEATER_MIN_C" default:"-10"`
	MaxC         float64       `envconfig:"HEATER_MAX_C" default:"800"`
	MaxStep      float64       `envconfig:"HEATER_MAX_STEP" default:"2"`
	TickInterval time.Duration `envconfig:"HEATER_TICK" default:"400ms"`
}

type ThermometerConfig struct {
	Targets      map[string]float64 `envconfig:"THERMO_TARGETS" default:"ice:0,room:25,warm:45,body:37,hot:80"`
	StartC       float64            `envconfig:"THERMO_START_C" default:"25"`
	Gain         float64            `envconfig:"THERMO_GAIN" default:"0.08"`
	MinStep      float64            `envconfig:"THERMO_MIN_STEP" default:"0.15"`
	MaxStep      float64            `envconfig:"THERMO_MAX_STEP" default:"1.2"`
	SnapWithin   float64            `envconfig:"THERMO_SNAP_WITHIN" default:"0.2"`
	MinC         float64            `envconfig:"THERMO_MIN_C" default:"-10"`
	MaxC         float64            `envconfig:"THERMO_MAX_C" default:"110"`
	TickInterval time.Duration      `envconfig:"THERMO_TICK" default:"250ms"`
}

type BalanceConfig struct {
	MaxWeights   int           `envconfig:"BALANCE_MAX_WEIGHTS" default:"24"`
	TickInterval time.Duration `envconfig:"BALANCE_TICK" default:"900ms"`
}

// ApparatusConfig groups the numeric policy of every apparatus variant.
type ApparatusConfig struct {
	Heater      HeaterConfig
	Thermometer ThermometerConfig
	Balance     BalanceConfig
}

// DefaultApparatusConfig mirrors the envconfig defaults above.
func DefaultApparatusConfig() ApparatusConfig {
	return ApparatusConfig{
		Heater: HeaterConfig{
			BaseTemps:    []float64{300, 450, 600, 750},
			Margin:       50,
			RiseBase:     1,
			RisePerLevel: 0.2,
			Ambient:      25,
			CoolRate:     1.5,
			MinC:         -10,
			MaxC:         800,
			MaxStep:      2,
			TickInterval: 400 * time.Millisecond,
		},
		Thermometer: ThermometerConfig{
			Targets: map[string]float64{
				string(SampleIce):  0,
				string(SampleRoom): 25,
				string(SampleWarm): 45,
				string(SampleBody): 37,
				string(SampleHot):  80,
			},
			StartC:       25,
			Gain:         0.08,
			MinStep:      0.15,
			MaxStep:      1.2,
			SnapWithin:   0.2,
			MinC:         -10,
			MaxC:         110,
			TickInterval: 250 * time.Millisecond,
		},
		Balance: BalanceConfig{
			MaxWeights:   24,
			TickInterval: 900 * time.Millisecond,
		},
	}
}

// DefaultGuideModelConfig mirrors the envconfig defaults of GuideModelConfig.
func DefaultGuideModelConfig() GuideModelConfig {
	return GuideModelConfig{
		Models:            []string{"gemini-3-pro-preview", "gemini-2.5-flash", "gemini-2.5-flash-lite"},
		Temperature:       0.4,
		MaxTokens:         1024,
		CallTimeout:       20 * time.Second,
		SystemInstruction: "Scientific lab instructor. Concise, encouraging feedback.",
	}
}

// DefaultConversationConfig mirrors the envconfig defaults of ConversationConfig.
func DefaultConversationConfig() ConversationConfig {
	return ConversationConfig{
		HistoryTurns:  4,
		OfflineKinds:  []string{string(KindBeamBalance), string(KindThermometer)},
		TranscriptTTL: 24 * time.Hour,
	}
}

// Validate checks the numeric policy for internal consistency.
func (c HeaterConfig) Validate() error {
	if len(c.BaseTemps) != len(AirHoleLabels) {
		return fmt.Errorf("heater: need %d base temperatures, got %d", len(AirHoleLabels), len(c.BaseTemps))
	}
	for i := 1; i < len(c.BaseTemps); i++ {
		if c.BaseTemps[i] <= c.BaseTemps[i-1] {
			return fmt.Errorf("heater: base temperatures must increase with air-hole level")
		}
	}
	if c.MinC >= c.MaxC {
		return fmt.Errorf("heater: empty temperature range [%v, %v]", c.MinC, c.MaxC)
	}
	if c.Ambient < c.MinC || c.Ambient > c.MaxC {
		return fmt.Errorf("heater: ambient %v outside range", c.Ambient)
	}
	if c.CoolRate <= 0 || c.MaxStep <= 0 || c.RiseBase <= 0 || c.RisePerLevel < 0 {
		return fmt.Errorf("heater: rates and max step must be positive")
	}
	if c.RiseBase+c.RisePerLevel*float64(len(c.BaseTemps)-1) > c.MaxStep || c.CoolRate > c.MaxStep {
		return fmt.Errorf("heater: per-tick rise or cooling exceeds max step %v", c.MaxStep)
	}
	return nil
}

// Validate checks the numeric policy for internal consistency.
func (c ThermometerConfig) Validate() error {
	if c.MinC >= c.MaxC {
		return fmt.Errorf("thermometer: empty temperature range [%v, %v]", c.MinC, c.MaxC)
	}
	if c.Gain <= 0 || c.Gain >= 1 {
		return fmt.Errorf("thermometer: gain must be in (0, 1)")
	}
	if c.MinStep <= 0 || c.MaxStep < c.MinStep {
		return fmt.Errorf("thermometer: need 0 < min step <= max step")
	}
	// a step smaller than the snap window can never jump past the target
	if c.MinStep >= c.SnapWithin {
		return fmt.Errorf("thermometer: min step %v must be below snap window %v", c.MinStep, c.SnapWithin)
	}
	if c.MaxStep < c.SnapWithin {
		return fmt.Errorf("thermometer: max step %v must cover snap window %v", c.MaxStep, c.SnapWithin)
	}
	if c.StartC < c.MinC || c.StartC > c.MaxC {
		return fmt.Errorf("thermometer: start %v outside range [%v, %v]", c.StartC, c.MinC, c.MaxC)
	}
	if len(c.Targets) == 0 {
		return fmt.Errorf("thermometer: no sample targets")
	}
	for id, v := range c.Targets {
		if v < c.MinC || v > c.MaxC {
			return fmt.Errorf("thermometer: target %s=%v outside range", id, v)
		}
	}
	return nil
}
