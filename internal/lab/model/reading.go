package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Side selects a pan of the beam balance.
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

// SampleID names a substance the thermometer can be placed in.
type SampleID string

const (
	SampleIce  SampleID = "ice"
	SampleRoom SampleID = "room"
	SampleWarm SampleID = "warm"
	SampleBody SampleID = "body"
	SampleHot  SampleID = "hot"
)

// AirHoleLabels names the collar positions, index = level.
var AirHoleLabels = [4]string{"Close", "Slightly", "Half", "Fully"}

// BalanceReading is derived from the pan contents; it has no lifecycle of its own.
type BalanceReading struct {
	Left       []int
	Right      []int
	LeftMass   int
	RightMass  int
	Difference int // RightMass - LeftMass
	Balanced   bool
	Heavier    Side // empty when balanced
}

// NewBalanceReading computes the derived balance values for two pans.
func NewBalanceReading(left, right []int) BalanceReading {
	r := BalanceReading{
		Left:  append([]int(nil), left...),
		Right: append([]int(nil), right...),
	}
	for _, g := range left {
		r.LeftMass += g
	}
	for _, g := range right {
		r.RightMass += g
	}
	r.Difference = r.RightMass - r.LeftMass
	r.Balanced = r.Difference >= -1 && r.Difference <= 1
	switch {
	case r.Balanced:
	case r.Difference > 0:
		r.Heavier = SideRight
	default:
		r.Heavier = SideLeft
	}
	return r
}

// Reading is the read-only apparatus snapshot handed to the view layer and
// embedded in guide prompts.
type Reading struct {
	Kind         Kind
	TemperatureC float64

	// heater
	Lit          bool
	AirHoleLevel int

	// thermometer
	Sample  SampleID
	TargetC float64

	// beam balance
	Balance *BalanceReading
}

// AirHoleLabel names the current collar position.
func (r Reading) AirHoleLabel() string {
	if r.AirHoleLevel < 0 || r.AirHoleLevel >= len(AirHoleLabels) {
		return "Unknown"
	}
	return AirHoleLabels[r.AirHoleLevel]
}

// Summary renders the reading as one line of plain text.
func (r Reading) Summary() string {
	switch r.Kind {
	case KindHeater:
		state := "unlit"
		if r.Lit {
			state = "lit"
		}
		return fmt.Sprintf("Bunsen burner %s, air hole %s (level %d), flame temperature %.1f°C",
			state, r.AirHoleLabel(), r.AirHoleLevel, r.TemperatureC)
	case KindThermometer:
		return fmt.Sprintf("Thermometer in %s sample, reading %.1f°C", r.Sample, r.TemperatureC)
	case KindBeamBalance:
		if r.Balance == nil {
			return "Beam balance with empty pans"
		}
		b := r.Balance
		status := "balanced"
		if !b.Balanced {
			status = fmt.Sprintf("%s pan heavier by %dg", b.Heavier, abs(b.Difference))
		}
		return fmt.Sprintf("Beam balance left pan [%s] = %dg, right pan [%s] = %dg, %s",
			joinGrams(b.Left), b.LeftMass, joinGrams(b.Right), b.RightMass, status)
	}
	return string(r.Kind)
}

func joinGrams(ws []int) string {
	parts := make([]string, len(ws))
	for i, w := range ws {
		parts[i] = strconv.Itoa(w) + "g"
	}
	return strings.Join(parts, ", ")
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
