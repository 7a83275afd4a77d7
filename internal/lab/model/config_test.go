package model

import (
	"math"
	"testing"

	"github.com/cloudwego/eino/schema"
)

func TestDefaultApparatusConfigIsValid(t *testing.T) {
	cfg := DefaultApparatusConfig()
	if err := cfg.Heater.Validate(); err != nil {
		t.Errorf("heater: %v", err)
	}
	if err := cfg.Thermometer.Validate(); err != nil {
		t.Errorf("thermometer: %v", err)
	}
}

func TestHeaterConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*HeaterConfig)
	}{
		{"wrong level count", func(c *HeaterConfig) { c.BaseTemps = []float64{1, 2} }},
		{"not increasing", func(c *HeaterConfig) { c.BaseTemps = []float64{300, 300, 600, 750} }},
		{"empty range", func(c *HeaterConfig) { c.MinC, c.MaxC = 10, 10 }},
		{"ambient outside", func(c *HeaterConfig) { c.Ambient = 900 }},
		{"zero cool rate", func(c *HeaterConfig) { c.CoolRate = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultApparatusConfig().Heater
			tt.mutate(&c)
			if err := c.Validate(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestThermometerConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ThermometerConfig)
	}{
		{"gain too big", func(c *ThermometerConfig) { c.Gain = 1.5 }},
		{"min step above snap", func(c *ThermometerConfig) { c.MinStep = 0.5 }},
		{"target out of range", func(c *ThermometerConfig) { c.Targets = map[string]float64{"lava": 1200} }},
		{"no targets", func(c *ThermometerConfig) { c.Targets = nil }},
		{"max step below snap", func(c *ThermometerConfig) { c.MinStep, c.MaxStep = 0.1, 0.15 }},
		{"start out of range", func(c *ThermometerConfig) { c.StartC = 150 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultApparatusConfig().Thermometer
			tt.mutate(&c)
			if err := c.Validate(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestComputeCost(t *testing.T) {
	usage := &schema.TokenUsage{PromptTokens: 1_000_000, CompletionTokens: 500_000}
	in, out, total := ComputeCost(usage, ResolvePricing("gemini-2.5-flash"))
	if !near(in, 0.30) || !near(out, 1.25) || !near(total, 1.55) {
		t.Fatalf("got %v %v %v", in, out, total)
	}
	if _, _, total := ComputeCost(nil, Pricing{}); total != 0 {
		t.Fatal("nil usage costs nothing")
	}
	if p := ResolvePricing("unknown"); p != (Pricing{}) {
		t.Fatal("unknown model should be free")
	}
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }
