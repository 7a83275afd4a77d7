// Package apparatus evolves the physical state of the simulated lab devices.
//
// Each experiment kind is a variant implementing tick and apply; Model picks
// the variant once, in New, and every command goes through Model.Apply.
package apparatus

import (
	"fmt"
	"math"
	"time"

	errx "github.com/VirtuLab-core-poc-v1/server/internal/core/error"
	"github.com/VirtuLab-core-poc-v1/server/internal/lab/model"
)

// Command is an apparatus instruction issued by the view layer.
type Command interface {
	Name() string
}

// SetAirHole turns the burner collar to level 0 (closed) .. 3 (fully open).
type SetAirHole struct{ Level int }

// ToggleLit lights or extinguishes the burner.
type ToggleLit struct{}

// AddWeight places a standard mass of Mass grams on a pan.
type AddWeight struct {
	Side model.Side
	Mass int
}

// UndoWeight removes the most recently placed mass from a pan.
type UndoWeight struct{ Side model.Side }

// ClearWeights empties both pans.
type ClearWeights struct{}

// SelectSample moves the thermometer into another sample.
type SelectSample struct{ Sample model.SampleID }

func (SetAirHole) Name() string   { return "set_air_hole" }
func (ToggleLit) Name() string    { return "toggle_lit" }
func (AddWeight) Name() string    { return "add_weight" }
func (UndoWeight) Name() string   { return "undo_weight" }
func (ClearWeights) Name() string { return "clear_weights" }
func (SelectSample) Name() string { return "select_sample" }

type variant interface {
	tick()
	apply(cmd Command) error
	reading() model.Reading
}

// Model holds the apparatus of one experiment instance. It is not safe for
// concurrent use; the owning session serialises access.
type Model struct {
	kind model.Kind
	v    variant
}

// New builds the apparatus variant for kind.
func New(kind model.Kind, cfg model.ApparatusConfig) (*Model, error) {
	var v variant
	switch kind {
	case model.KindHeater:
		if err := cfg.Heater.Validate(); err != nil {
			return nil, fmt.Errorf("apparatus: %w", err)
		}
		v = newHeater(cfg.Heater)
	case model.KindBeamBalance:
		v = newBalance(cfg.Balance)
	case model.KindThermometer:
		if err := cfg.Thermometer.Validate(); err != nil {
			return nil, fmt.Errorf("apparatus: %w", err)
		}
		v = newThermometer(cfg.Thermometer)
	default:
		return nil, errx.Newf(errx.ConfigurationMismatch, "no apparatus for experiment kind %q", kind)
	}
	return &Model{kind: kind, v: v}, nil
}

// TickInterval returns the tick period configured for kind.
func TickInterval(kind model.Kind, cfg model.ApparatusConfig) time.Duration {
	switch kind {
	case model.KindHeater:
		return cfg.Heater.TickInterval
	case model.KindThermometer:
		return cfg.Thermometer.TickInterval
	default:
		return cfg.Balance.TickInterval
	}
}

func (m *Model) Kind() model.Kind { return m.kind }

// Apply runs cmd against the active variant. Commands the variant does not
// understand fail with ConfigurationMismatch.
func (m *Model) Apply(cmd Command) error {
	if cmd == nil {
		return errx.Newf(errx.InvalidCommand, "nil command")
	}
	return m.v.apply(cmd)
}

// Tick advances the simulation one step. A late tick applies once.
func (m *Model) Tick() { m.v.tick() }

// Reading returns a snapshot of the current state.
func (m *Model) Reading() model.Reading { return m.v.reading() }

// Convenience wrappers over Apply.
func (m *Model) SetAirHole(level int) error { return m.Apply(SetAirHole{Level: level}) }
func (m *Model) ToggleLit() error           { return m.Apply(ToggleLit{}) }
func (m *Model) AddWeight(side model.Side, mass int) error {
	return m.Apply(AddWeight{Side: side, Mass: mass})
}
func (m *Model) UndoWeight(side model.Side) error { return m.Apply(UndoWeight{Side: side}) }
func (m *Model) ClearWeights() error              { return m.Apply(ClearWeights{}) }
func (m *Model) SelectSample(id model.SampleID) error {
	return m.Apply(SelectSample{Sample: id})
}

func mismatch(kind model.Kind, cmd Command) error {
	return errx.Newf(errx.ConfigurationMismatch, "%s is not available on the %s apparatus", cmd.Name(), kind)
}

// bound limits next to one step of at most maxStep from prev, then to [lo, hi].
func bound(prev, next, maxStep, lo, hi float64) float64 {
	if d := next - prev; math.Abs(d) > maxStep {
		next = prev + math.Copysign(maxStep, d)
	}
	return math.Min(hi, math.Max(lo, next))
}
