package apparatus

import (
	"math"

	errx "github.com/VirtuLab-core-poc-v1/server/internal/core/error"
	"github.com/VirtuLab-core-poc-v1/server/internal/lab/model"
)

// heater models a Bunsen burner. Opening the air hole raises the flame
// ceiling; the temperature climbs toward it with a warm-up lag.
type heater struct {
	cfg   model.HeaterConfig
	lit   bool
	level int
	temp  float64
}

func newHeater(cfg model.HeaterConfig) *heater {
	return &heater{cfg: cfg, temp: cfg.Ambient}
}

func (h *heater) ceiling() float64 {
	return h.cfg.BaseTemps[h.level] + h.cfg.Margin
}

func (h *heater) tick() {
	prev := h.temp
	var next float64
	switch {
	case !h.lit:
		next = math.Max(h.cfg.Ambient, prev-h.cfg.CoolRate)
	case prev > h.ceiling():
		// collar closed while hot: settle down onto the new ceiling
		next = math.Max(h.ceiling(), prev-h.cfg.CoolRate)
	default:
		next = math.Min(h.ceiling(), prev+h.cfg.RiseBase+float64(h.level)*h.cfg.RisePerLevel)
	}
	h.temp = bound(prev, next, h.cfg.MaxStep, h.cfg.MinC, h.cfg.MaxC)
}

func (h *heater) apply(cmd Command) error {
	switch c := cmd.(type) {
	case SetAirHole:
		if c.Level < 0 || c.Level >= len(h.cfg.BaseTemps) {
			return errx.Newf(errx.InvalidCommand, "air hole level %d out of range 0..%d", c.Level, len(h.cfg.BaseTemps)-1)
		}
		h.level = c.Level
		return nil
	case ToggleLit:
		h.lit = !h.lit
		return nil
	}
	return mismatch(model.KindHeater, cmd)
}

func (h *heater) reading() model.Reading {
	return model.Reading{
		Kind:         model.KindHeater,
		TemperatureC: h.temp,
		Lit:          h.lit,
		AirHoleLevel: h.level,
	}
}
