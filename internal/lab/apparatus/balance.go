package apparatus

import (
	errx "github.com/VirtuLab-core-poc-v1/server/internal/core/error"
	"github.com/VirtuLab-core-poc-v1/server/internal/lab/model"
)

type balance struct {
	maxWeights  int
	left, right []int
}

func newBalance(cfg model.BalanceConfig) *balance {
	return &balance{maxWeights: cfg.MaxWeights}
}

func (b *balance) tick() {}

func (b *balance) pan(side model.Side) (*[]int, error) {
	switch side {
	case model.SideLeft:
		return &b.left, nil
	case model.SideRight:
		return &b.right, nil
	}
	return nil, errx.Newf(errx.InvalidCommand, "unknown pan %q", side)
}

func (b *balance) apply(cmd Command) error {
	switch c := cmd.(type) {
	case AddWeight:
		if c.Mass <= 0 {
			return errx.Newf(errx.InvalidCommand, "mass must be a positive number of grams, got %d", c.Mass)
		}
		p, err := b.pan(c.Side)
		if err != nil {
			return err
		}
		if b.maxWeights > 0 && len(*p) >= b.maxWeights {
			return errx.Newf(errx.InvalidCommand, "%s pan already holds %d masses", c.Side, len(*p))
		}
		*p = append(*p, c.Mass)
		return nil
	case UndoWeight:
		p, err := b.pan(c.Side)
		if err != nil {
			return err
		}
		if n := len(*p); n > 0 {
			*p = (*p)[:n-1]
		}
		return nil
	case ClearWeights:
		b.left, b.right = nil, nil
		return nil
	}
	return mismatch(model.KindBeamBalance, cmd)
}

func (b *balance) reading() model.Reading {
	r := model.NewBalanceReading(b.left, b.right)
	return model.Reading{Kind: model.KindBeamBalance, Balance: &r}
}
