package core

import (
	"math"
	"testing"

	"github.com/meridian-sims/worldsim/cmd/worldsim/config"
	"github.com/meridian-sims/worldsim/pkg/rng"
)

func testEconEngine(cfg *config.SimulationConfig, count int) (*EconomicEngine, *Registry) {
	distances := make([][]float64, count)
	for i := range distances {
		distances[i] = make([]float64, count)
		for j := range distances[i] {
			if i != j {
				distances[i][j] = 10
			}
		}
	}

	nations := make([]*Nation, count)
	for i := range nations {
		n := NewNation(i, "Nation")
		n.Population = 2e7
		n.Health = 60
		n.Capital = 9e11
		n.TFP = 2
		n.Stability = 70
		n.Reserves = 1e10
		n.RecomputeGDP(cfg.Economy.CapitalShareAlpha)
		nations[i] = n
	}

	stream := rng.New(7, StreamEconomy, StreamInstitutions)
	eng := NewEconomicEngine(cfg, stream.MustSub(StreamEconomy), stream.MustSub(StreamInstitutions), distances)
	return eng, NewRegistry(nations)
}

func TestTradeGravityScaling(t *testing.T) {
	cfg := config.GetDefaultConfig()
	eng, r := testEconEngine(cfg, 3)

	// Double one economy's output and its edges should grow with it.
	big, _ := r.Get(0)
	big.GDP *= 2

	snap := r.Snapshot()
	buf := NewUpdateBuffer()
	edges := eng.Trade(snap, buf)

	if len(edges) != 3 {
		t.Fatalf("edge count = %d, want 3 for a full triangle", len(edges))
	}
	var withBig, without float64
	for _, e := range edges {
		if e.A == 0 || e.B == 0 {
			withBig += e.Volume
		} else {
			without += e.Volume
		}
	}
	if withBig <= without {
		t.Error("larger economies must trade more under the gravity model")
	}
}

func TestTradeSkipsExtinctAndSanctioned(t *testing.T) {
	cfg := config.GetDefaultConfig()
	eng, r := testEconEngine(cfg, 3)

	dead, _ := r.Get(2)
	dead.MarkExtinct(0)
	n0, _ := r.Get(0)
	n0.SanctionsFrom[1] = true

	snap := r.Snapshot()
	edges := eng.Trade(snap, NewUpdateBuffer())

	if len(edges) != 0 {
		t.Errorf("edge count = %d, want 0: pair 0-1 sanctioned, nation 2 extinct", len(edges))
	}
}

func TestTradeDistanceFloor(t *testing.T) {
	cfg := config.GetDefaultConfig()
	eng, r := testEconEngine(cfg, 2)
	eng.distances[0][1] = 0
	eng.distances[1][0] = 0

	snap := r.Snapshot()
	edges := eng.Trade(snap, NewUpdateBuffer())
	if len(edges) != 1 {
		t.Fatal("expected one edge")
	}
	if math.IsInf(edges[0].Volume, 0) || math.IsNaN(edges[0].Volume) {
		t.Error("zero distance must be floored, not divided through")
	}
}

func TestTradeBalanceZeroSum(t *testing.T) {
	cfg := config.GetDefaultConfig()
	eng, r := testEconEngine(cfg, 4)

	// Spread exchange rates so the balance terms are non-trivial.
	for i := 0; i < 4; i++ {
		n, _ := r.Get(i)
		n.ExchangeRate = 0.5 + 0.4*float64(i)
	}

	snap := r.Snapshot()
	buf := NewUpdateBuffer()
	eng.Trade(snap, buf)
	buf.Commit(r)

	var total float64
	for _, n := range r.All() {
		total += n.TradeBalance
	}
	if math.Abs(total) > 1e-6*snapshotGDP(snap) {
		t.Errorf("trade balances must sum to zero, got %g", total)
	}
}

func snapshotGDP(snap []*Nation) float64 {
	var s float64
	for _, n := range snap {
		s += n.GDP
	}
	return s
}

func TestTradeOrderIndependence(t *testing.T) {
	cfg := config.GetDefaultConfig()
	eng, r := testEconEngine(cfg, 5)
	for i := 0; i < 5; i++ {
		n, _ := r.Get(i)
		n.GDP *= 1 + 0.3*float64(i)
		n.ExchangeRate = 0.6 + 0.2*float64(i)
	}

	run := func(snap []*Nation) map[int]float64 {
		reg := NewRegistry(func() []*Nation {
			// Commit target keeps natural ordering regardless of the
			// snapshot permutation handed to the phase.
			fresh := make([]*Nation, 5)
			for _, n := range snap {
				fresh[n.ID] = n.Clone()
			}
			return fresh
		}())
		buf := NewUpdateBuffer()
		eng.Trade(snap, buf)
		buf.Commit(reg)
		out := make(map[int]float64)
		for _, n := range reg.All() {
			out[n.ID] = n.TradeBalance
		}
		return out
	}

	forward := r.Snapshot()
	reversed := r.Snapshot()
	for i, j := 0, len(reversed)-1; i < j; i, j = i+1, j-1 {
		reversed[i], reversed[j] = reversed[j], reversed[i]
	}

	a := run(forward)
	b := run(reversed)
	for id, v := range a {
		if math.Abs(v-b[id]) > math.Abs(v)*1e-9+1e-9 {
			t.Errorf("nation %d: balance differs under permuted iteration: %g vs %g", id, v, b[id])
		}
	}
}

func TestForeignInvestmentFlowsDownhill(t *testing.T) {
	cfg := config.GetDefaultConfig()
	eng, r := testEconEngine(cfg, 2)

	rich, _ := r.Get(0)
	rich.Capital = 5e12
	rich.RecomputeGDP(cfg.Economy.CapitalShareAlpha)
	poor, _ := r.Get(1)
	poor.Capital = 1e10
	poor.Stability = 75
	poor.RecomputeGDP(cfg.Economy.CapitalShareAlpha)
	poorBefore := poor.Capital
	richReserves := rich.Reserves

	snap := r.Snapshot()
	buf := NewUpdateBuffer()
	eng.ForeignInvestment(snap, buf)
	buf.Commit(r)

	if poor.Capital <= poorBefore {
		t.Error("capital-poor recipient should receive investment")
	}
	if rich.Reserves >= richReserves {
		t.Error("investor reserves must be debited")
	}
}

func TestForeignInvestmentAvoidsWarRisk(t *testing.T) {
	cfg := config.GetDefaultConfig()
	eng, r := testEconEngine(cfg, 3)

	rich, _ := r.Get(0)
	rich.Capital = 5e12
	rich.RecomputeGDP(cfg.Economy.CapitalShareAlpha)

	risky, _ := r.Get(1)
	risky.Capital = 1e10
	risky.Stability = 10
	risky.Exhaustion = 90
	risky.RecomputeGDP(cfg.Economy.CapitalShareAlpha)

	safe, _ := r.Get(2)
	safe.Capital = 1e10
	safe.Stability = 80
	safe.RecomputeGDP(cfg.Economy.CapitalShareAlpha)
	safeBefore := safe.Capital
	riskyBefore := risky.Capital

	snap := r.Snapshot()
	buf := NewUpdateBuffer()
	eng.ForeignInvestment(snap, buf)
	buf.Commit(r)

	if risky.Capital != riskyBefore {
		t.Error("unstable exhausted recipient should be passed over")
	}
	if safe.Capital <= safeBefore {
		t.Error("stable recipient should attract the flow")
	}
}

func TestExchangeRateNeverNonPositive(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Economy.ExchangeVolatility = 2.0 // violent noise
	eng, r := testEconEngine(cfg, 4)

	for step := 0; step < 200; step++ {
		snap := r.Snapshot()
		buf := NewUpdateBuffer()
		eng.ExchangeRates(snap, buf)
		buf.Commit(r)
		for _, n := range r.All() {
			if n.ExchangeRate <= 0 {
				t.Fatalf("step %d: exchange rate %g <= 0", step, n.ExchangeRate)
			}
		}
	}
}

func TestPegBreaksWithoutReserves(t *testing.T) {
	cfg := config.GetDefaultConfig()
	eng, r := testEconEngine(cfg, 2)

	pegged, _ := r.Get(0)
	pegged.Regime = RegimePegged
	pegged.PegTarget = 1.0
	pegged.Reserves = 0

	snap := r.Snapshot()
	buf := NewUpdateBuffer()
	guards := eng.ExchangeRates(snap, buf)
	buf.Commit(r)

	if pegged.Regime != RegimeFloating {
		t.Error("a peg without reserve cover must break to floating")
	}
	if pegged.ExchangeRate >= 1.0 {
		t.Error("a broken peg must devalue")
	}
	if len(guards) == 0 {
		t.Error("a broken peg should surface a guard message")
	}
}

func TestGoldStandardDrainsOnDeficit(t *testing.T) {
	cfg := config.GetDefaultConfig()
	eng, r := testEconEngine(cfg, 2)

	gold, _ := r.Get(0)
	gold.Regime = RegimeGoldStandard
	gold.GoldReserves = 1e8
	gold.TradeBalance = -3e8 // persistent deficit

	snap := r.Snapshot()
	buf := NewUpdateBuffer()
	eng.ExchangeRates(snap, buf)
	buf.Commit(r)

	if gold.Regime != RegimeFloating {
		t.Error("exhausted gold reserves must force the nation off the standard")
	}
	if gold.GoldReserves != 0 {
		t.Errorf("gold reserves = %g, want 0 after exhaustion", gold.GoldReserves)
	}
}

func TestDebtPressureHitsOverThreshold(t *testing.T) {
	cfg := config.GetDefaultConfig()
	eng, r := testEconEngine(cfg, 2)

	indebted, _ := r.Get(0)
	indebted.Debt = indebted.GDP * 2
	stabilityBefore := indebted.Stability
	rateBefore := indebted.InterestRate

	snap := r.Snapshot()
	buf := NewUpdateBuffer()
	notes := eng.DebtPressure(snap, buf)
	buf.Commit(r)

	if indebted.InterestRate <= rateBefore {
		t.Error("debt crisis must reprice sovereign risk upward")
	}
	if indebted.Stability >= stabilityBefore {
		t.Error("debt crisis must cost stability")
	}
	if len(notes) == 0 {
		t.Error("debt crisis should be reported")
	}

	healthy, _ := r.Get(1)
	if healthy.InterestRate != 0 {
		t.Error("nation under the threshold must be untouched")
	}
}

func TestCouncilMembersTopFive(t *testing.T) {
	cfg := config.GetDefaultConfig()
	eng, r := testEconEngine(cfg, 8)

	for i := 0; i < 8; i++ {
		n, _ := r.Get(i)
		n.Military = float64(10 * (i + 1))
	}

	council := eng.councilMembers(r.Snapshot())
	if len(council) != 5 {
		t.Fatalf("council size = %d, want 5", len(council))
	}
	want := map[int]bool{3: true, 4: true, 5: true, 6: true, 7: true}
	for _, id := range council {
		if !want[id] {
			t.Errorf("unexpected council member %d", id)
		}
	}
}

func TestArbitrateLiftsSanctionsOnRecovery(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Economy.DisputeProbability = 0
	cfg.Economy.ResolutionProbability = 0
	eng, r := testEconEngine(cfg, 3)

	target, _ := r.Get(0)
	target.SanctionsFrom[1] = true
	target.Stability = 80

	snap := r.Snapshot()
	buf := NewUpdateBuffer()
	eng.Arbitrate(snap, buf)
	buf.Commit(r)

	if len(target.SanctionsFrom) != 0 {
		t.Error("sanctions on a stable, peaceful nation must lapse")
	}
}

func TestAdvantageMultiplierBounds(t *testing.T) {
	cfg := config.GetDefaultConfig()
	eng, _ := testEconEngine(cfg, 2)

	a := NewNation(0, "A")
	b := NewNation(1, "B")
	a.Resources = Resources{Oil: 100, RareEarth: 100, Farmland: 100}
	b.Resources = Resources{}
	a.TFP = 5
	b.TFP = 0.5
	a.Ideology = IdeologyFarLeft
	b.Ideology = IdeologyFarRight

	m := eng.advantageMultiplier(a, b)
	if m <= 0 {
		t.Errorf("multiplier = %g, must stay positive", m)
	}
	if m > 1+cfg.Economy.AdvantageBoostMax {
		t.Errorf("multiplier = %g exceeds the configured cap", m)
	}
}
