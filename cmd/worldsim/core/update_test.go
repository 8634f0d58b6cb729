package core

import (
	"testing"

	"github.com/meridian-sims/worldsim/cmd/worldsim/config"
)

func solowNation(id int) *Nation {
	n := NewNation(id, "Meridia")
	n.Population = 2e7
	n.Health = 60
	n.HumanCapital = 1.1
	n.Capital = 9e11
	n.TFP = 2.0
	n.Stability = 70
	n.RecomputeGDP(0.33)
	return n
}

func calmInputs() GlobalInputs {
	return GlobalInputs{ClimateDamage: 0, PandemicMult: 1, Realism: 1}
}

func TestUpdateLocalSolowGrowth(t *testing.T) {
	cfg := config.GetDefaultConfig()
	n := solowNation(0)

	prevGDP := n.GDP
	for step := 0; step < 30; step++ {
		UpdateLocal(n, cfg, LocalShocks{}, calmInputs())
		if n.GDP <= prevGDP {
			t.Fatalf("step %d: GDP %g did not grow from %g with no shocks", step, n.GDP, prevGDP)
		}
		if n.Capital <= 0 {
			t.Fatalf("step %d: capital went non-positive", step)
		}
		prevGDP = n.GDP
	}
}

func TestUpdateLocalPandemicDrag(t *testing.T) {
	cfg := config.GetDefaultConfig()

	healthy := solowNation(0)
	sick := solowNation(1)
	sick.Pandemic = &PandemicState{InfectedShare: 0.3, R0: 2.5, Lethality: 0.02}

	UpdateLocal(healthy, cfg, LocalShocks{}, calmInputs())
	UpdateLocal(sick, cfg, LocalShocks{}, calmInputs())

	if sick.Population >= healthy.Population {
		t.Error("an outbreak must cost population relative to a healthy twin")
	}
	if sick.HumanCapital >= healthy.HumanCapital {
		t.Error("an outbreak must pull workers out of production")
	}
}

func TestUpdateLocalClimateDamageSlowsAccumulation(t *testing.T) {
	cfg := config.GetDefaultConfig()

	clean := solowNation(0)
	damaged := solowNation(1)

	UpdateLocal(clean, cfg, LocalShocks{}, calmInputs())
	UpdateLocal(damaged, cfg, LocalShocks{}, GlobalInputs{ClimateDamage: 0.5, PandemicMult: 1, Realism: 1})

	if damaged.Capital >= clean.Capital {
		t.Error("climate damage must reduce investment")
	}
	// GDP itself stays the raw production value for both.
	if damaged.TFP != clean.TFP {
		t.Error("climate damage must not touch technology")
	}
}

func TestUpdateLocalClampsNegativePopulation(t *testing.T) {
	cfg := config.GetDefaultConfig()
	n := solowNation(0)
	n.Pandemic = &PandemicState{InfectedShare: 0.9, R0: 5, Lethality: 5} // absurd lethality

	guards := UpdateLocal(n, cfg, LocalShocks{PopGrowth: -2}, calmInputs())

	if n.Population < 0 {
		t.Error("population must never go negative")
	}
	if len(guards) == 0 {
		t.Error("clamping must surface a guard message")
	}
}

func TestUpdateLocalWarEffects(t *testing.T) {
	cfg := config.GetDefaultConfig()

	peace := solowNation(0)
	war := solowNation(1)
	war.ConflictIDs[0] = true
	war.Exhaustion = 40

	UpdateLocal(peace, cfg, LocalShocks{}, calmInputs())
	UpdateLocal(war, cfg, LocalShocks{}, calmInputs())

	if war.Stability >= peace.Stability {
		t.Error("active war must drag stability")
	}
	if war.Exhaustion != 40 {
		t.Error("exhaustion must not decay while at war")
	}

	peace.Exhaustion = 40
	UpdateLocal(peace, cfg, LocalShocks{}, calmInputs())
	if peace.Exhaustion >= 40 {
		t.Error("exhaustion must decay in peacetime")
	}
}

func TestUpdateLocalTFPFloor(t *testing.T) {
	cfg := config.GetDefaultConfig()
	n := solowNation(0)
	n.TFP = 1e-7

	guards := UpdateLocal(n, cfg, LocalShocks{TFPShock: -0.99}, calmInputs())
	if n.TFP <= 0 {
		t.Error("TFP must stay positive")
	}
	if len(guards) == 0 {
		t.Error("TFP floor clamp must surface a guard message")
	}
}

func TestDevelopmentFactorRange(t *testing.T) {
	tests := []struct {
		gdpPerCap float64
		lo, hi    float64
	}{
		{500, 0, 0},
		{1000, 0, 0},
		{15000, 0.4, 0.8},
		{1e6, 1, 1},
	}
	for _, tt := range tests {
		got := developmentFactor(tt.gdpPerCap)
		if got < tt.lo || got > tt.hi {
			t.Errorf("developmentFactor(%g) = %g, want in [%g, %g]", tt.gdpPerCap, got, tt.lo, tt.hi)
		}
	}
}
