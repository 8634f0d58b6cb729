package core

import (
	"fmt"
	"math"

	"github.com/meridian-sims/worldsim/cmd/worldsim/config"
	"github.com/meridian-sims/worldsim/pkg/rng"
)

// ConflictState is the state machine position of a conflict. Terminal states
// absorb; renewed hostilities between the same parties require a fresh
// Conflict.
type ConflictState int

const (
	ConflictTriggered ConflictState = iota
	ConflictActive
	ConflictArmistice
	ConflictAnnexation
	ConflictExhausted
)

func (s ConflictState) String() string {
	switch s {
	case ConflictTriggered:
		return "Triggered"
	case ConflictActive:
		return "Active"
	case ConflictArmistice:
		return "Armistice"
	case ConflictAnnexation:
		return "Annexation"
	case ConflictExhausted:
		return "Exhaustion-Resolved"
	default:
		return "Unknown"
	}
}

// Terminal reports whether the state absorbs.
func (s ConflictState) Terminal() bool {
	switch s {
	case ConflictArmistice, ConflictAnnexation, ConflictExhausted:
		return true
	}
	return false
}

// Conflict is one war between two sides. Membership is fixed at trigger
// time: a nation is a combatant only by triggering the war or by alliance
// obligation to a combatant.
type Conflict struct {
	ID          int           `json:"id"`
	Attackers   []int         `json:"attackers"`
	Defenders   []int         `json:"defenders"`
	StartStep   int           `json:"start_step"`
	Duration    int           `json:"duration"`
	Intensity   float64       `json:"intensity"`
	Casualties  [2]float64    `json:"casualties"` // cumulative per side
	NuclearUsed bool          `json:"nuclear_used"`
	State       ConflictState `json:"state"`
	Cause       string        `json:"cause"`
}

// Clone returns a deep copy for history snapshots.
func (c *Conflict) Clone() *Conflict {
	cp := *c
	cp.Attackers = append([]int(nil), c.Attackers...)
	cp.Defenders = append([]int(nil), c.Defenders...)
	return &cp
}

// involves reports whether the nation fights on either side.
func (c *Conflict) involves(id int) bool {
	for _, a := range c.Attackers {
		if a == id {
			return true
		}
	}
	for _, d := range c.Defenders {
		if d == id {
			return true
		}
	}
	return false
}

// CombatEngine runs war triggering and attrition. All randomness comes from
// the combat substream; pairs and conflicts are visited in ascending id
// order.
type CombatEngine struct {
	cfg    *config.SimulationConfig
	combat *rng.Substream
}

// NewCombatEngine wires the engine to its substream.
func NewCombatEngine(cfg *config.SimulationConfig, combat *rng.Substream) *CombatEngine {
	return &CombatEngine{cfg: cfg, combat: combat}
}

// DetectTriggers evaluates every living pair not already at war with each
// other and rolls for new conflicts. Allies never fight each other, and a
// pair already sharing an active conflict is skipped rather than
// re-triggered. New conflicts enter Triggered and advance to Active
// immediately. nextID allocates stable sequential conflict ids.
func (e *CombatEngine) DetectTriggers(snap []*Nation, active []*Conflict, buf *UpdateBuffer, step int, nextID func() int) []*Conflict {
	var created []*Conflict

	for i := 0; i < len(snap); i++ {
		a := snap[i]
		if !a.Alive() {
			continue
		}
		for j := i + 1; j < len(snap); j++ {
			b := snap[j]
			if !b.Alive() || a.IsAlly(b.ID) {
				continue
			}
			if pairAtWar(active, a.ID, b.ID) || pairAtWar(created, a.ID, b.ID) {
				continue
			}

			p := e.triggerProbability(a, b)
			if !e.combat.Bernoulli(p) {
				continue
			}

			attacker, defender := a, b
			if aggression(b) > aggression(a) {
				attacker, defender = b, a
			}

			c := &Conflict{
				ID:        nextID(),
				StartStep: step,
				Intensity: e.combat.Range(0.3, 1.0),
				State:     ConflictTriggered,
				Cause:     fmt.Sprintf("%s attacks %s", attacker.Name, defender.Name),
			}
			c.Attackers = sideWithAllies(snap, attacker, defender)
			c.Defenders = sideWithAllies(snap, defender, attacker)
			c.State = ConflictActive
			created = append(created, c)

			for _, id := range append(append([]int(nil), c.Attackers...), c.Defenders...) {
				cid, nid := c.ID, id
				buf.Queue(nid, func(m *Nation) {
					m.ConflictIDs[cid] = true
				})
			}
		}
	}

	return created
}

// triggerProbability combines the configured base rate with ideology
// distance, resource tension, and the democratic-peace discount.
func (e *CombatEngine) triggerProbability(a, b *Nation) float64 {
	p := e.cfg.Military.WarBaseProbability
	p *= a.Government.Traits().WarReluctance * b.Government.Traits().WarReluctance
	p += e.cfg.Military.IdeologyFactor * a.Ideology.Distance(b.Ideology)

	// Resource-rich weak neighbours invite aggression.
	tension := resourceWealth(b) / 300 * clamp(a.Military/(b.Military+1), 0, 3)
	tension = math.Max(tension, resourceWealth(a)/300*clamp(b.Military/(a.Military+1), 0, 3))
	p += e.cfg.Military.ResourceFactor * tension

	if a.Government == GovDemocracy && b.Government == GovDemocracy {
		p *= e.cfg.Military.DemocraticPeace
	}
	return clamp(p, 0, 1)
}

func resourceWealth(n *Nation) float64 {
	return n.Resources.Oil + n.Resources.RareEarth + n.Resources.Farmland
}

func aggression(n *Nation) float64 {
	return n.Military * n.Government.Traits().WarReluctance
}

// sideWithAllies builds a side as the principal plus its allies, excluding
// anyone also allied to the opposing principal (they stay neutral).
func sideWithAllies(snap []*Nation, principal, opponent *Nation) []int {
	side := []int{principal.ID}
	for _, id := range principal.AllyIDs() {
		ally := snap[id]
		if !ally.Alive() || ally.IsAlly(opponent.ID) || id == opponent.ID {
			continue
		}
		side = append(side, id)
	}
	return side
}

func pairAtWar(conflicts []*Conflict, a, b int) bool {
	for _, c := range conflicts {
		if !c.State.Terminal() && c.involves(a) && c.involves(b) {
			return true
		}
	}
	return false
}

// ResolveResult summarizes one resolution pass for the orchestrator.
type ResolveResult struct {
	NuclearDetonations int
	Notes              []string
}

// Resolve advances every Active conflict by one attrition round: a nuclear
// release check first, then Lanchester attrition with casualties clamped to
// each side's pre-step strength, then termination checks. Terminal conflicts
// release their combatants.
func (e *CombatEngine) Resolve(conflicts []*Conflict, snap []*Nation, buf *UpdateBuffer) ResolveResult {
	var res ResolveResult

	for _, c := range conflicts {
		if c.State != ConflictActive {
			continue
		}
		c.Duration++

		attackers := livingMembers(snap, c.Attackers)
		defenders := livingMembers(snap, c.Defenders)

		// A side that died outside the battlefield ends the war.
		if len(attackers) == 0 || len(defenders) == 0 {
			e.terminate(c, ConflictExhausted, buf)
			res.Notes = append(res.Notes, fmt.Sprintf("conflict %d resolved, a side is gone", c.ID))
			continue
		}

		strA := sideStrength(attackers)
		strB := sideStrength(defenders)

		// Nuclear release pre-empts conventional attrition for the step
		// and ends the conflict.
		if e.nuclearRelease(c, attackers, defenders) {
			target := defenders
			if sideExhaustion(defenders) > sideExhaustion(attackers) {
				target = attackers
			}
			e.applyNuclearShock(target, buf)
			c.NuclearUsed = true
			e.terminate(c, ConflictExhausted, buf)
			res.NuclearDetonations++
			res.Notes = append(res.Notes, fmt.Sprintf("conflict %d: nuclear detonation", c.ID))
			continue
		}

		// Lanchester square-law attrition, morale decaying with
		// exhaustion, attacker efficiency scaled by technology and
		// logistics.
		moraleA := 1 - sideExhaustion(attackers)/200
		moraleB := 1 - sideExhaustion(defenders)/200
		techRatio := (avgTFP(attackers) + 1) / (avgTFP(defenders) + 1)
		logistics := clamp(math.Pow(sideGDP(attackers)/math.Max(sideGDP(defenders), 1), 0.3), 0.5, 2)

		k := e.cfg.Military.LanchesterCoefficient
		lossA := k * strB * strB * c.Intensity * moraleB
		lossB := k * strA * strA * c.Intensity * moraleA * techRatio * logistics

		// Casualties never exceed the side's remaining strength.
		lossA = math.Min(lossA, strA)
		lossB = math.Min(lossB, strB)

		e.applyCasualties(attackers, lossA, strA, c.Intensity, buf)
		e.applyCasualties(defenders, lossB, strB, c.Intensity, buf)
		c.Casualties[0] += lossA
		c.Casualties[1] += lossB

		// Termination checks against post-attrition strength.
		remA := strA - lossA
		remB := strB - lossB
		switch {
		case remB < e.cfg.Military.CollapseThreshold:
			e.annex(attackers, defenders, buf)
			e.terminate(c, ConflictAnnexation, buf)
			res.Notes = append(res.Notes, fmt.Sprintf("conflict %d: defenders collapse, annexation", c.ID))
		case remA < e.cfg.Military.CollapseThreshold:
			e.annex(defenders, attackers, buf)
			e.terminate(c, ConflictAnnexation, buf)
			res.Notes = append(res.Notes, fmt.Sprintf("conflict %d: attackers collapse, annexation", c.ID))
		case sideExhaustion(attackers) > e.cfg.Military.CeasefireExhaustion &&
			sideExhaustion(defenders) > e.cfg.Military.CeasefireExhaustion:
			e.terminate(c, ConflictArmistice, buf)
			res.Notes = append(res.Notes, fmt.Sprintf("conflict %d: armistice", c.ID))
		case c.Duration >= e.cfg.Military.MaxWarDuration:
			e.terminate(c, ConflictExhausted, buf)
			res.Notes = append(res.Notes, fmt.Sprintf("conflict %d: fighting peters out", c.ID))
		}
	}

	return res
}

// nuclearRelease checks the escalation branch: both sides must field nuclear
// capability and a side must be past the exhaustion threshold, then a single
// probabilistic release check decides.
func (e *CombatEngine) nuclearRelease(c *Conflict, attackers, defenders []*Nation) bool {
	if c.NuclearUsed {
		return false
	}
	if !sideNuclear(attackers) || !sideNuclear(defenders) {
		return false
	}
	desperate := sideExhaustion(attackers) > e.cfg.Military.NuclearThreshold ||
		sideExhaustion(defenders) > e.cfg.Military.NuclearThreshold
	if !desperate {
		return false
	}
	return e.combat.Bernoulli(e.cfg.Military.NuclearUseProbability)
}

// applyNuclearShock applies the one-time catastrophic loss to every living
// member of the target side.
func (e *CombatEngine) applyNuclearShock(target []*Nation, buf *UpdateBuffer) {
	for _, n := range target {
		id := n.ID
		buf.Queue(id, func(m *Nation) {
			m.Population *= 0.5
			m.Capital *= 0.4
			m.Military *= 0.3
			m.Health = clamp(m.Health-30, 0, 100)
			m.Stability = clamp(m.Stability-25, 0, 100)
		})
	}
}

// applyCasualties distributes a side's loss across its members in
// proportion to their strength share and accrues war exhaustion.
func (e *CombatEngine) applyCasualties(side []*Nation, loss, totalStrength, intensity float64, buf *UpdateBuffer) {
	for _, n := range side {
		share := 0.0
		if totalStrength > 0 {
			share = n.Military / totalStrength
		}
		memberLoss := loss * share
		popFraction := 0.0
		if n.Military > 0 {
			popFraction = clamp(memberLoss/n.Military, 0, 1) * 0.01
		}
		exhaustionGain := e.cfg.Military.ExhaustionPerStep * intensity

		id := n.ID
		buf.Queue(id, func(m *Nation) {
			m.Military = math.Max(m.Military-memberLoss, 0)
			m.Population *= 1 - popFraction
			m.Exhaustion = clamp(m.Exhaustion+exhaustionGain, 0, 100)
		})
	}
}

// annex transfers part of each loser's capital, resources, and population
// to the strongest winner.
func (e *CombatEngine) annex(winners, losers []*Nation, buf *UpdateBuffer) {
	lead := winners[0]
	for _, n := range winners[1:] {
		if n.Military > lead.Military {
			lead = n
		}
	}
	leadID := lead.ID

	for _, loser := range losers {
		capture := loser.Capital * 0.5
		people := loser.Population * 0.3
		spoils := Resources{
			Oil:       loser.Resources.Oil * 0.5,
			RareEarth: loser.Resources.RareEarth * 0.5,
			Farmland:  loser.Resources.Farmland * 0.5,
		}

		loserID := loser.ID
		buf.Queue(loserID, func(m *Nation) {
			m.Capital -= capture
			m.Population -= people
			m.Resources.Oil -= spoils.Oil
			m.Resources.RareEarth -= spoils.RareEarth
			m.Resources.Farmland -= spoils.Farmland
			m.Stability = clamp(m.Stability-20, 0, 100)
		})
		buf.Queue(leadID, func(m *Nation) {
			m.Capital += capture
			m.Population += people
			m.Resources.Oil += spoils.Oil
			m.Resources.RareEarth += spoils.RareEarth
			m.Resources.Farmland += spoils.Farmland
		})
	}
}

// terminate moves the conflict to a terminal state and releases combatants.
func (e *CombatEngine) terminate(c *Conflict, state ConflictState, buf *UpdateBuffer) {
	c.State = state
	for _, id := range append(append([]int(nil), c.Attackers...), c.Defenders...) {
		cid, nid := c.ID, id
		buf.Queue(nid, func(m *Nation) {
			delete(m.ConflictIDs, cid)
		})
	}
}

func livingMembers(snap []*Nation, ids []int) []*Nation {
	var out []*Nation
	for _, id := range ids {
		if n := snap[id]; n.Alive() {
			out = append(out, n)
		}
	}
	return out
}

func sideStrength(side []*Nation) float64 {
	var s float64
	for _, n := range side {
		s += n.Military
	}
	return s
}

func sideGDP(side []*Nation) float64 {
	var s float64
	for _, n := range side {
		s += n.GDP
	}
	return s
}

func sideExhaustion(side []*Nation) float64 {
	if len(side) == 0 {
		return 0
	}
	var s float64
	for _, n := range side {
		s += n.Exhaustion
	}
	return s / float64(len(side))
}

func sideNuclear(side []*Nation) bool {
	for _, n := range side {
		if n.Nuclear {
			return true
		}
	}
	return false
}

func avgTFP(side []*Nation) float64 {
	if len(side) == 0 {
		return 0
	}
	var s float64
	for _, n := range side {
		s += n.TFP
	}
	return s / float64(len(side))
}
