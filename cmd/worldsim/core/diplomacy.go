package core

import (
	"fmt"

	"github.com/meridian-sims/worldsim/cmd/worldsim/config"
	"github.com/meridian-sims/worldsim/pkg/rng"
)

// UpdateAlliances forms and dissolves alliances. Formation needs mutual
// consent draws from both parties; the relation is always written
// symmetrically and each nation honours the configured cap. Existing
// alliances decay probabilistically, faster across wide ideology gaps.
func UpdateAlliances(cfg *config.SimulationConfig, institutions *rng.Substream, snap []*Nation, buf *UpdateBuffer) []string {
	var notes []string

	for i := 0; i < len(snap); i++ {
		a := snap[i]
		if !a.Alive() {
			continue
		}
		for j := i + 1; j < len(snap); j++ {
			b := snap[j]
			if !b.Alive() {
				continue
			}

			if a.IsAlly(b.ID) {
				decay := cfg.Demographics.AllianceDecay * (1 + a.Ideology.Distance(b.Ideology)/2)
				if institutions.Bernoulli(clamp(decay, 0, 1)) {
					aID, bID := a.ID, b.ID
					buf.Queue(aID, func(m *Nation) { delete(m.Allies, bID) })
					buf.Queue(bID, func(m *Nation) { delete(m.Allies, aID) })
					notes = append(notes, fmt.Sprintf("alliance dissolved: %s and %s", a.Name, b.Name))
				}
				continue
			}

			if len(a.Allies) >= cfg.Demographics.AllianceCap || len(b.Allies) >= cfg.Demographics.AllianceCap {
				continue
			}
			if a.SanctionedBy(b.ID) || b.SanctionedBy(a.ID) {
				continue
			}

			affinity := 1 - a.Ideology.Distance(b.Ideology)/4
			p := cfg.Demographics.AllianceProbability * affinity
			if p <= 0 {
				continue
			}
			// Both capitals must agree.
			if institutions.Bernoulli(p) && institutions.Bernoulli(p) {
				aID, bID := a.ID, b.ID
				buf.Queue(aID, func(m *Nation) { m.Allies[bID] = true })
				buf.Queue(bID, func(m *Nation) { m.Allies[aID] = true })
				notes = append(notes, fmt.Sprintf("alliance formed: %s and %s", a.Name, b.Name))
			}
		}
	}

	return notes
}

// ArmsRace raises military budget shares for nations badly outgunned by a
// non-allied neighbour, and relaxes them in calm periods.
func ArmsRace(cfg *config.SimulationConfig, snap []*Nation, buf *UpdateBuffer) {
	for _, n := range snap {
		if !n.Alive() {
			continue
		}

		threatened := false
		for _, rival := range snap {
			if !rival.Alive() || rival.ID == n.ID || n.IsAlly(rival.ID) {
				continue
			}
			if rival.Military > 0 && n.Military < rival.Military*cfg.Military.ArmsRaceRatio {
				threatened = true
				break
			}
		}

		target := cfg.Military.MilitarySpendBase
		if threatened {
			target = cfg.Military.MilitarySpendBase * 2.5
		}
		if n.AtWar() {
			target = cfg.Military.MilitarySpendBase * 4
		}

		id := n.ID
		buf.Queue(id, func(m *Nation) {
			m.MilitaryShare += 0.2 * (target - m.MilitaryShare)
			m.MilitaryShare = clamp(m.MilitaryShare, 0, 0.15)
		})
	}
}
