package apparatus

import (
	"math/rand"
	"testing"

	errx "github.com/VirtuLab-core-poc-v1/server/internal/core/error"
	"github.com/VirtuLab-core-poc-v1/server/internal/lab/model"
)

func TestBalanceMassesTrackWeightLists(t *testing.T) {
	m := newTestModel(t, model.KindBeamBalance)
	rng := rand.New(rand.NewSource(7))
	var left, right []int

	for i := 0; i < 500; i++ {
		side := model.SideLeft
		pan := &left
		if rng.Intn(2) == 1 {
			side, pan = model.SideRight, &right
		}
		if rng.Intn(3) == 0 {
			if err := m.UndoWeight(side); err != nil {
				t.Fatal(err)
			}
			if n := len(*pan); n > 0 {
				*pan = (*pan)[:n-1]
			}
		} else if len(*pan) < 24 {
			mass := []int{1, 2, 5, 10, 20, 50, 100}[rng.Intn(7)]
			if err := m.AddWeight(side, mass); err != nil {
				t.Fatal(err)
			}
			*pan = append(*pan, mass)
		}

		b := m.Reading().Balance
		if b.LeftMass != sum(left) || b.RightMass != sum(right) {
			t.Fatalf("step %d: masses %d/%d, want %d/%d", i, b.LeftMass, b.RightMass, sum(left), sum(right))
		}
		if want := abs(b.RightMass-b.LeftMass) <= 1; b.Balanced != want {
			t.Fatalf("step %d: balanced=%v want %v", i, b.Balanced, want)
		}
	}
}

func TestBalanceExamples(t *testing.T) {
	m := newTestModel(t, model.KindBeamBalance)
	_ = m.AddWeight(model.SideLeft, 10)
	_ = m.AddWeight(model.SideLeft, 5)
	_ = m.AddWeight(model.SideRight, 15)
	if !m.Reading().Balance.Balanced {
		t.Fatal("left=[10,5] right=[15] should balance")
	}

	_ = m.ClearWeights()
	_ = m.AddWeight(model.SideLeft, 10)
	_ = m.AddWeight(model.SideRight, 15)
	b := m.Reading().Balance
	if b.Balanced || b.Heavier != model.SideRight || b.Difference != 5 {
		t.Fatalf("left=[10] right=[15]: %+v", b)
	}
}

func TestBalanceUndoOnEmptyIsNoop(t *testing.T) {
	m := newTestModel(t, model.KindBeamBalance)
	if err := m.UndoWeight(model.SideLeft); err != nil {
		t.Fatal(err)
	}
	_ = m.AddWeight(model.SideRight, 20)
	if err := m.UndoWeight(model.SideLeft); err != nil {
		t.Fatal(err)
	}
	if b := m.Reading().Balance; b.RightMass != 20 || b.LeftMass != 0 {
		t.Fatalf("undo on empty pan touched state: %+v", b)
	}
}

func TestBalanceRejectsBadCommands(t *testing.T) {
	m := newTestModel(t, model.KindBeamBalance)

	if err := m.AddWeight(model.SideLeft, 0); !errx.IsKind(err, errx.InvalidCommand) {
		t.Errorf("zero mass = %v", err)
	}
	if err := m.AddWeight("middle", 5); !errx.IsKind(err, errx.InvalidCommand) {
		t.Errorf("unknown side = %v", err)
	}
	if err := m.SetAirHole(1); !errx.IsKind(err, errx.ConfigurationMismatch) {
		t.Errorf("SetAirHole on balance = %v", err)
	}
	if err := m.ToggleLit(); !errx.IsKind(err, errx.ConfigurationMismatch) {
		t.Errorf("ToggleLit on balance = %v", err)
	}
}

func TestBalancePanCap(t *testing.T) {
	cfg := model.DefaultApparatusConfig()
	cfg.Balance.MaxWeights = 2
	m, err := New(model.KindBeamBalance, cfg)
	if err != nil {
		t.Fatal(err)
	}
	_ = m.AddWeight(model.SideLeft, 1)
	_ = m.AddWeight(model.SideLeft, 1)
	if err := m.AddWeight(model.SideLeft, 1); !errx.IsKind(err, errx.InvalidCommand) {
		t.Fatalf("third mass = %v, want InvalidCommand", err)
	}
	if err := m.AddWeight(model.SideRight, 1); err != nil {
		t.Fatalf("other pan has room: %v", err)
	}
}

func TestBalanceTickIsNoop(t *testing.T) {
	m := newTestModel(t, model.KindBeamBalance)
	_ = m.AddWeight(model.SideLeft, 50)
	m.Tick()
	if m.Reading().Balance.LeftMass != 50 {
		t.Fatal("tick changed balance state")
	}
}

func sum(ws []int) int {
	s := 0
	for _, w := range ws {
		s += w
	}
	return s
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
