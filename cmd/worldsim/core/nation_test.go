package core

import (
	"math"
	"testing"
)

func TestRecomputeGDPMatchesProductionFunction(t *testing.T) {
	n := NewNation(0, "Meridia")
	n.Population = 1e7
	n.LaborShare = 0.65
	n.HumanCapital = 1.1
	n.Capital = 9e11
	n.TFP = 2.0

	alpha := 0.33
	got := n.RecomputeGDP(alpha)
	want := 2.0 * math.Pow(9e11, alpha) * math.Pow(1e7*0.65*1.1, 1-alpha)
	if math.Abs(got-want) > want*1e-12 {
		t.Errorf("GDP = %g, want %g", got, want)
	}
	if n.GDP != got {
		t.Error("RecomputeGDP must store the result")
	}
}

func TestRecomputeGDPZeroFactors(t *testing.T) {
	n := NewNation(0, "Ferrosland")
	n.Population = 0
	n.Capital = 1e11
	n.TFP = 1

	if got := n.RecomputeGDP(0.33); got != 0 {
		t.Errorf("GDP with zero labor = %g, want 0", got)
	}
}

func TestCloneIsDeep(t *testing.T) {
	n := NewNation(3, "Solandria")
	n.Allies[7] = true
	n.SanctionsFrom[2] = true
	n.ConflictIDs[1] = true
	n.Pandemic = &PandemicState{InfectedShare: 0.1, R0: 2.0}

	c := n.Clone()
	c.Allies[9] = true
	c.SanctionsFrom[4] = true
	c.Pandemic.InfectedShare = 0.5

	if n.Allies[9] {
		t.Error("clone shares ally map with original")
	}
	if n.SanctionsFrom[4] {
		t.Error("clone shares sanction map with original")
	}
	if n.Pandemic.InfectedShare != 0.1 {
		t.Error("clone shares pandemic state with original")
	}
}

func TestIdeologyDistanceAndShift(t *testing.T) {
	if d := IdeologyFarLeft.Distance(IdeologyFarRight); d != 4 {
		t.Errorf("distance = %g, want 4", d)
	}
	if d := IdeologyCenter.Distance(IdeologyCenter); d != 0 {
		t.Errorf("distance = %g, want 0", d)
	}
	if got := IdeologyFarRight.shift(1); got != IdeologyFarRight {
		t.Error("shift past the end must clamp")
	}
	if got := IdeologyCenter.shift(-1); got != IdeologyLeft {
		t.Errorf("shift(-1) = %v, want Left", got)
	}
}

func TestGovernmentTraitsClosedSet(t *testing.T) {
	for _, g := range []GovernmentType{GovDemocracy, GovAutocracy, GovTechnocracy, GovTheocracy, GovAnarchy} {
		tr := g.Traits()
		if tr.StabilityBase <= 0 {
			t.Errorf("%v: stability base must be positive", g)
		}
	}
	// Out-of-range values degrade to anarchy rather than panic.
	if got := GovernmentType(99).Traits(); got != governmentTable[GovAnarchy] {
		t.Error("unknown government type should fall back to anarchy traits")
	}
}

func TestMarkExtinctFreezesRelations(t *testing.T) {
	n := NewNation(1, "Belgravia")
	n.Population = 1e6
	n.GDP = 1e9
	n.Military = 50
	n.Allies[2] = true
	n.Pandemic = &PandemicState{InfectedShare: 0.2}

	n.MarkExtinct(17)

	if n.Alive() {
		t.Error("nation should be extinct")
	}
	if n.ExtinctSince != 17 {
		t.Errorf("ExtinctSince = %d, want 17", n.ExtinctSince)
	}
	if len(n.Allies) != 0 || n.Pandemic != nil || n.Military != 0 {
		t.Error("extinction must clear relations, pandemic state, and strength")
	}

	// A second call must not move the extinction step.
	n.MarkExtinct(30)
	if n.ExtinctSince != 17 {
		t.Error("extinction step must not change on repeat calls")
	}
}

func TestDebtRatioZeroGDP(t *testing.T) {
	n := NewNation(0, "Drakonia")
	n.Debt = 1e9
	if got := n.DebtRatio(); got != 0 {
		t.Errorf("debt ratio with zero GDP = %g, want 0", got)
	}
}

func TestAllyIDsSorted(t *testing.T) {
	n := NewNation(0, "Ostravia")
	for _, id := range []int{9, 2, 7, 4} {
		n.Allies[id] = true
	}
	ids := n.AllyIDs()
	for i := 1; i < len(ids); i++ {
		if ids[i-1] >= ids[i] {
			t.Fatalf("AllyIDs not ascending: %v", ids)
		}
	}
}
