package core

import (
	"testing"

	"github.com/meridian-sims/worldsim/cmd/worldsim/config"
	"github.com/meridian-sims/worldsim/pkg/rng"
)

func testCombatEngine(cfg *config.SimulationConfig) *CombatEngine {
	stream := rng.New(13, StreamCombat)
	return NewCombatEngine(cfg, stream.MustSub(StreamCombat))
}

func warNations(count int) []*Nation {
	nations := make([]*Nation, count)
	for i := range nations {
		n := NewNation(i, "Nation")
		n.Population = 2e7
		n.Health = 60
		n.Capital = 9e11
		n.TFP = 2
		n.Stability = 70
		n.Military = 100
		n.Government = GovAutocracy
		n.RecomputeGDP(0.33)
		nations[i] = n
	}
	return nations
}

func activeConflict(id int, attackers, defenders []int) *Conflict {
	return &Conflict{
		ID:        id,
		Attackers: attackers,
		Defenders: defenders,
		Intensity: 0.5,
		State:     ConflictActive,
	}
}

func TestTriggerCreatesActiveConflict(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Military.WarBaseProbability = 1
	eng := testCombatEngine(cfg)
	r := NewRegistry(warNations(2))

	snap := r.Snapshot()
	buf := NewUpdateBuffer()
	next := 0
	created := eng.DetectTriggers(snap, nil, buf, 3, func() int { next++; return next - 1 })
	buf.Commit(r)

	if len(created) != 1 {
		t.Fatalf("conflicts created = %d, want 1", len(created))
	}
	c := created[0]
	if c.State != ConflictActive {
		t.Errorf("state = %v, want Active immediately after trigger", c.State)
	}
	if c.StartStep != 3 {
		t.Errorf("start step = %d, want 3", c.StartStep)
	}
	for _, id := range []int{0, 1} {
		n, _ := r.Get(id)
		if !n.ConflictIDs[c.ID] {
			t.Errorf("nation %d not marked as combatant", id)
		}
	}
}

func TestTriggerSkipsAlliesAndExistingWars(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Military.WarBaseProbability = 1
	eng := testCombatEngine(cfg)

	nations := warNations(4)
	nations[0].Allies[1] = true
	nations[1].Allies[0] = true
	r := NewRegistry(nations)

	ongoing := []*Conflict{activeConflict(0, []int{2}, []int{3})}

	snap := r.Snapshot()
	buf := NewUpdateBuffer()
	next := 1
	created := eng.DetectTriggers(snap, ongoing, buf, 0, func() int { next++; return next - 1 })

	onSide := func(ids []int, id int) bool {
		for _, v := range ids {
			if v == id {
				return true
			}
		}
		return false
	}
	for _, c := range created {
		if (onSide(c.Attackers, 0) && onSide(c.Defenders, 1)) ||
			(onSide(c.Attackers, 1) && onSide(c.Defenders, 0)) {
			t.Error("allies must never end up on opposing sides")
		}
		if (onSide(c.Attackers, 2) && onSide(c.Defenders, 3)) ||
			(onSide(c.Attackers, 3) && onSide(c.Defenders, 2)) {
			t.Error("an already-warring pair must not re-trigger")
		}
	}
}

func TestDemocraticPeaceDiscount(t *testing.T) {
	cfg := config.GetDefaultConfig()
	eng := testCombatEngine(cfg)

	dems := warNations(2)
	dems[0].Government = GovDemocracy
	dems[1].Government = GovDemocracy

	auts := warNations(2)

	pDem := eng.triggerProbability(dems[0], dems[1])
	pAut := eng.triggerProbability(auts[0], auts[1])
	if pDem >= pAut {
		t.Errorf("democracy pair probability %g should be below autocracy pair %g", pDem, pAut)
	}
}

func TestCasualtiesNeverExceedStrength(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Military.LanchesterCoefficient = 10 // absurdly lethal
	cfg.Military.NuclearUseProbability = 0
	eng := testCombatEngine(cfg)

	nations := warNations(2)
	nations[0].Military = 5
	nations[1].Military = 1000
	r := NewRegistry(nations)
	c := activeConflict(0, []int{0}, []int{1})

	snap := r.Snapshot()
	buf := NewUpdateBuffer()
	eng.Resolve([]*Conflict{c}, snap, buf)
	buf.Commit(r)

	if c.Casualties[0] > 5 {
		t.Errorf("side casualties %g exceed pre-step strength 5", c.Casualties[0])
	}
	weak, _ := r.Get(0)
	if weak.Military < 0 {
		t.Error("strength must never go negative")
	}
}

func TestAnnexationTransfersSpoils(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Military.LanchesterCoefficient = 10
	cfg.Military.CollapseThreshold = 50
	cfg.Military.NuclearUseProbability = 0
	eng := testCombatEngine(cfg)

	nations := warNations(2)
	nations[0].Military = 1000
	nations[1].Military = 60
	nations[1].Resources = Resources{Oil: 80, RareEarth: 40, Farmland: 90}
	r := NewRegistry(nations)
	winnerCapital := nations[0].Capital
	loserPop := nations[1].Population

	c := activeConflict(0, []int{0}, []int{1})
	snap := r.Snapshot()
	buf := NewUpdateBuffer()
	eng.Resolve([]*Conflict{c}, snap, buf)
	buf.Commit(r)

	if c.State != ConflictAnnexation {
		t.Fatalf("state = %v, want Annexation after collapse", c.State)
	}
	winner, _ := r.Get(0)
	loser, _ := r.Get(1)
	if winner.Capital <= winnerCapital {
		t.Error("winner must capture part of the loser's capital")
	}
	if winner.Resources.Oil != 40 {
		t.Errorf("winner oil = %g, want 40 (half the loser's endowment)", winner.Resources.Oil)
	}
	if loser.Population >= loserPop {
		t.Error("annexation must transfer population away from the loser")
	}
	if len(winner.ConflictIDs) != 0 || len(loser.ConflictIDs) != 0 {
		t.Error("terminal conflict must release its combatants")
	}
}

func TestArmisticeAtMutualExhaustion(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Military.NuclearUseProbability = 0
	eng := testCombatEngine(cfg)

	nations := warNations(2)
	nations[0].Exhaustion = 95
	nations[1].Exhaustion = 95
	r := NewRegistry(nations)
	c := activeConflict(0, []int{0}, []int{1})

	snap := r.Snapshot()
	buf := NewUpdateBuffer()
	eng.Resolve([]*Conflict{c}, snap, buf)
	buf.Commit(r)

	if c.State != ConflictArmistice {
		t.Errorf("state = %v, want Armistice at mutual exhaustion", c.State)
	}
	// Armistice transfers nothing.
	n0, _ := r.Get(0)
	if n0.Resources != (Resources{}) {
		t.Error("armistice must not transfer resources")
	}
}

func TestMaxDurationResolvesConflict(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Military.NuclearUseProbability = 0
	cfg.Military.MaxWarDuration = 3
	eng := testCombatEngine(cfg)

	r := NewRegistry(warNations(2))
	c := activeConflict(0, []int{0}, []int{1})

	for i := 0; i < 5 && c.State == ConflictActive; i++ {
		snap := r.Snapshot()
		buf := NewUpdateBuffer()
		eng.Resolve([]*Conflict{c}, snap, buf)
		buf.Commit(r)
	}
	if c.State != ConflictExhausted {
		t.Errorf("state = %v, want Exhaustion-Resolved at max duration", c.State)
	}
	if c.Duration > 3 {
		t.Errorf("duration = %d, resolution was overdue", c.Duration)
	}
}

func TestNuclearDetonationExactlyOnce(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Military.NuclearUseProbability = 1
	cfg.Military.NuclearThreshold = 70
	eng := testCombatEngine(cfg)

	nations := warNations(2)
	nations[0].Nuclear = true
	nations[1].Nuclear = true
	nations[0].Exhaustion = 90 // past the release threshold
	nations[1].Exhaustion = 95
	r := NewRegistry(nations)
	c := activeConflict(0, []int{0}, []int{1})

	snap := r.Snapshot()
	buf := NewUpdateBuffer()
	res := eng.Resolve([]*Conflict{c}, snap, buf)
	buf.Commit(r)

	if res.NuclearDetonations != 1 {
		t.Fatalf("detonations = %d, want exactly 1", res.NuclearDetonations)
	}
	if !c.NuclearUsed {
		t.Error("nuclear-use flag must be set")
	}
	if c.State != ConflictExhausted {
		t.Errorf("state = %v, want Exhaustion-Resolved after detonation", c.State)
	}
	if c.Casualties[0] != 0 || c.Casualties[1] != 0 {
		t.Error("no conventional casualties may be applied in the detonation step")
	}

	// Further resolution passes must not touch the terminal conflict.
	target, _ := r.Get(1)
	popAfter := target.Population
	for i := 0; i < 5; i++ {
		snap = r.Snapshot()
		buf = NewUpdateBuffer()
		res2 := eng.Resolve([]*Conflict{c}, snap, buf)
		buf.Commit(r)
		if res2.NuclearDetonations != 0 {
			t.Fatal("a conflict may host at most one detonation")
		}
	}
	if target.Population != popAfter {
		t.Error("no further attrition may follow a detonation")
	}
}

func TestNuclearRequiresBothSidesArmed(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Military.NuclearUseProbability = 1
	eng := testCombatEngine(cfg)

	nations := warNations(2)
	nations[0].Nuclear = true // only one side armed
	nations[0].Exhaustion = 95
	nations[1].Exhaustion = 95
	r := NewRegistry(nations)
	c := activeConflict(0, []int{0}, []int{1})

	snap := r.Snapshot()
	buf := NewUpdateBuffer()
	res := eng.Resolve([]*Conflict{c}, snap, buf)

	if res.NuclearDetonations != 0 {
		t.Error("one-sided nuclear capability must not trigger the escalation branch")
	}
}

func TestAllianceObligationBuildsSides(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Military.WarBaseProbability = 1
	eng := testCombatEngine(cfg)

	nations := warNations(4)
	// 2 is allied to 0, 3 is allied to both principals and stays out.
	nations[0].Allies[2] = true
	nations[2].Allies[0] = true
	nations[0].Allies[3] = true
	nations[3].Allies[0] = true
	nations[1].Allies[3] = true
	nations[3].Allies[1] = true
	r := NewRegistry(nations)

	snap := r.Snapshot()
	buf := NewUpdateBuffer()
	next := 0
	created := eng.DetectTriggers(snap, nil, buf, 0, func() int { next++; return next - 1 })
	if len(created) == 0 {
		t.Fatal("expected at least one conflict")
	}

	c := created[0]
	if !c.involves(2) {
		t.Error("ally of a principal must join its side")
	}
	if c.involves(3) {
		t.Error("a nation allied to both sides must stay neutral")
	}
}
