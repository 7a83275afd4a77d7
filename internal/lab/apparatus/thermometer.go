package apparatus

import (
	"maps"
	"math"
	"slices"

	errx "github.com/VirtuLab-core-poc-v1/server/internal/core/error"
	"github.com/VirtuLab-core-poc-v1/server/internal/lab/model"
)

// thermometer approaches the selected sample's temperature exponentially,
// with the step clamped so it neither crawls nor jumps.
type thermometer struct {
	cfg    model.ThermometerConfig
	sample model.SampleID
	temp   float64
}

func newThermometer(cfg model.ThermometerConfig) *thermometer {
	t := &thermometer{cfg: cfg, sample: model.SampleRoom, temp: cfg.StartC}
	if _, ok := cfg.Targets[string(t.sample)]; !ok {
		// custom target sets may omit "room"; start on the first sample by name
		if ids := slices.Sorted(maps.Keys(cfg.Targets)); len(ids) > 0 {
			t.sample = model.SampleID(ids[0])
		}
	}
	return t
}

func (t *thermometer) target() float64 {
	return t.cfg.Targets[string(t.sample)]
}

func (t *thermometer) tick() {
	target := t.target()
	diff := target - t.temp
	if math.Abs(diff) <= t.cfg.SnapWithin {
		t.temp = target
		return
	}
	step := math.Min(t.cfg.MaxStep, math.Max(t.cfg.MinStep, math.Abs(diff)*t.cfg.Gain))
	step = math.Min(step, math.Abs(diff))
	next := t.temp + math.Copysign(step, diff)
	t.temp = math.Min(t.cfg.MaxC, math.Max(t.cfg.MinC, next))
}

func (t *thermometer) apply(cmd Command) error {
	if c, ok := cmd.(SelectSample); ok {
		if _, known := t.cfg.Targets[string(c.Sample)]; !known {
			return errx.Newf(errx.InvalidCommand, "unknown sample %q", c.Sample)
		}
		// residual heat carries over: only the target moves
		t.sample = c.Sample
		return nil
	}
	return mismatch(model.KindThermometer, cmd)
}

func (t *thermometer) reading() model.Reading {
	return model.Reading{
		Kind:         model.KindThermometer,
		TemperatureC: t.temp,
		Sample:       t.sample,
		TargetC:      t.target(),
	}
}
