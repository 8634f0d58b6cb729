package core

import (
	"fmt"
	"math"
	"sort"

	"github.com/meridian-sims/worldsim/cmd/worldsim/config"
	"github.com/meridian-sims/worldsim/pkg/rng"
)

// TradeEdge records the trade flow between an unordered nation pair for one
// step. Edges are derived fresh each step from the gravity model and never
// persisted, so trade always reflects current output.
type TradeEdge struct {
	A      int     `json:"a"`
	B      int     `json:"b"`
	Volume float64 `json:"volume"`
}

// EconomicEngine runs the monetary and trade coupling phase. It carries only
// immutable world data (distances) and its substream handles; all mutable
// state lives in the nation registry.
type EconomicEngine struct {
	cfg          *config.SimulationConfig
	economy      *rng.Substream
	institutions *rng.Substream
	distances    [][]float64
}

// NewEconomicEngine wires the engine to its substreams and the fixed
// pairwise distance matrix established at world generation.
func NewEconomicEngine(cfg *config.SimulationConfig, economy, institutions *rng.Substream, distances [][]float64) *EconomicEngine {
	return &EconomicEngine{
		cfg:          cfg,
		economy:      economy,
		institutions: institutions,
		distances:    distances,
	}
}

// Trade computes gravity-model flows for every living pair and buffers the
// balance-of-payments effects. Extinct nations are absent from all pairwise
// sums. Returns the edge list for the step snapshot.
func (e *EconomicEngine) Trade(snap []*Nation, buf *UpdateBuffer) []TradeEdge {
	var edges []TradeEdge

	for _, n := range snap {
		if n.Alive() {
			buf.Queue(n.ID, func(m *Nation) { m.TradeBalance = 0 })
		}
	}

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
			if a.SanctionedBy(b.ID) || b.SanctionedBy(a.ID) {
				continue
			}

			d := e.distances[a.ID][b.ID]
			if d < e.cfg.Economy.DistanceFloor {
				d = e.cfg.Economy.DistanceFloor
			}

			volume := e.cfg.Economy.TradeConstant * a.GDP * b.GDP / (d * d)
			volume *= e.advantageMultiplier(a, b)
			if a.IsAlly(b.ID) {
				volume *= 1 + e.cfg.Economy.AllianceTradeBonus
			}
			volume *= (1 - a.TradePenalty) * (1 - b.TradePenalty)
			if volume <= 0 {
				continue
			}

			edges = append(edges, TradeEdge{A: a.ID, B: b.ID, Volume: volume})

			// A weaker currency runs the surplus side of the edge. The
			// balance is zero-sum per edge.
			surplus := 0.1 * volume * competitiveness(a, b)
			aID, bID := a.ID, b.ID
			buf.Queue(aID, func(m *Nation) {
				m.TradeBalance += surplus
				m.Reserves += 0.01 * volume
			})
			buf.Queue(bID, func(m *Nation) {
				m.TradeBalance -= surplus
				m.Reserves += 0.01 * volume
			})
		}
	}

	return edges
}

// advantageMultiplier biases flow toward pairs whose factor endowments
// differ, capped by configuration, with a friction discount for ideological
// distance.
func (e *EconomicEngine) advantageMultiplier(a, b *Nation) float64 {
	complement := math.Abs(a.Resources.Oil-b.Resources.Oil) +
		math.Abs(a.Resources.RareEarth-b.Resources.RareEarth) +
		math.Abs(a.Resources.Farmland-b.Resources.Farmland)
	complement /= 300

	techGap := 0.0
	if hi := math.Max(a.TFP, b.TFP); hi > 0 {
		techGap = math.Abs(a.TFP-b.TFP) / hi * 0.25
	}

	boost := math.Min(complement+techGap, e.cfg.Economy.AdvantageBoostMax)
	friction := a.Ideology.Distance(b.Ideology) / 4 * 0.1
	return math.Max(1+boost-friction, 0.1)
}

// competitiveness returns a signed measure in favour of a over b based on
// relative currency strength.
func competitiveness(a, b *Nation) float64 {
	if a.ExchangeRate <= 0 || b.ExchangeRate <= 0 {
		return 0
	}
	return clamp(math.Log(b.ExchangeRate/a.ExchangeRate), -1, 1)
}

// ForeignInvestment moves capital from capital-rich, stable economies toward
// recipients with the best risk-discounted expected return. Flows debit the
// investor's reserves and credit the recipient's capital stock.
func (e *EconomicEngine) ForeignInvestment(snap []*Nation, buf *UpdateBuffer) {
	for _, inv := range snap {
		if !inv.Alive() || inv.Stability < 60 || inv.AtWar() {
			continue
		}
		flow := math.Min(0.01*inv.GDP, inv.Reserves)
		if flow <= 0 {
			continue
		}

		best := -1
		bestReturn := 0.0
		for _, rec := range snap {
			if !rec.Alive() || rec.ID == inv.ID {
				continue
			}
			if inv.SanctionedBy(rec.ID) || rec.SanctionedBy(inv.ID) {
				continue
			}
			r := e.expectedReturn(inv, rec)
			if r > bestReturn {
				bestReturn = r
				best = rec.ID
			}
		}
		if best < 0 {
			continue
		}

		invID, recID := inv.ID, best
		buf.Queue(invID, func(m *Nation) {
			m.Reserves -= flow
		})
		buf.Queue(recID, func(m *Nation) {
			m.Capital += flow
		})
	}
}

// expectedReturn estimates the risk-discounted yield of investing in rec.
// Capital-poor recipients offer higher marginal product; instability and war
// exhaustion discount it.
func (e *EconomicEngine) expectedReturn(inv, rec *Nation) float64 {
	invPerWorker := capitalPerWorker(inv)
	recPerWorker := capitalPerWorker(rec)
	if recPerWorker >= invPerWorker || recPerWorker <= 0 {
		return 0
	}
	gap := math.Min(invPerWorker/recPerWorker-1, 3)
	gross := e.cfg.Economy.FDIReturnRate * (1 + gap)
	risk := e.cfg.Economy.FDIRiskPremium * ((100-rec.Stability)/100 + rec.Exhaustion/100)
	return gross - risk
}

func capitalPerWorker(n *Nation) float64 {
	l := n.Labor()
	if l <= 0 {
		return 0
	}
	return n.Capital / l
}

// ExchangeRates advances every living nation's monetary block: a Taylor-rule
// interest rate, then the regime-specific exchange rate path. The rate is a
// bounded random walk with drift and can never reach zero. Returns guard
// messages for clamped values.
func (e *EconomicEngine) ExchangeRates(snap []*Nation, buf *UpdateBuffer) []string {
	var guards []string

	var meanInflation, meanRate float64
	living := 0
	for _, n := range snap {
		if n.Alive() {
			meanInflation += n.Inflation
			meanRate += n.InterestRate
			living++
		}
	}
	if living > 0 {
		meanInflation /= float64(living)
		meanRate /= float64(living)
	}

	for _, n := range snap {
		if !n.Alive() {
			continue
		}

		rate := n.Inflation + 0.5*(n.Inflation-e.cfg.Economy.InflationTarget) + 0.02
		if rate < 0 {
			rate = 0
		}

		var er float64
		regime := n.Regime
		gold := n.GoldReserves

		switch n.Regime {
		case RegimePegged:
			er = n.PegTarget
			// A peg without reserve cover breaks.
			if n.Reserves < 0.03*n.GDP {
				er = n.ExchangeRate * 0.7
				regime = RegimeFloating
				guards = append(guards, fmt.Sprintf("%s: peg broken, forced devaluation", n.Name))
			} else if n.Stability < 40 && n.DebtRatio() > e.cfg.Economy.DebtCrisisThreshold {
				// Speculative attack window on fragile pegs.
				if e.economy.Bernoulli(0.1) {
					er = n.ExchangeRate * 0.75
					regime = RegimeFloating
					guards = append(guards, fmt.Sprintf("%s: speculative attack broke the peg", n.Name))
				}
			}

		case RegimeGoldStandard:
			// Gold flows settle trade imbalances; the rate holds while
			// reserves last.
			gold += n.TradeBalance * 0.5
			er = n.ExchangeRate
			if gold <= 0 {
				gold = 0
				er = n.ExchangeRate * 0.75
				regime = RegimeFloating
				guards = append(guards, fmt.Sprintf("%s: gold reserves exhausted, off the standard", n.Name))
			}

		default:
			drift := -(n.Inflation - meanInflation)
			drift += 0.3 * (rate - meanRate)
			if n.GDP > 0 {
				drift += 0.1 * clamp(n.TradeBalance/n.GDP, -1, 1)
			}
			noise := e.cfg.Economy.ExchangeVolatility * e.economy.Gaussian(0, 1)
			er = n.ExchangeRate * (1 + clamp(drift+noise, -0.2, 0.2))
		}

		if er < e.cfg.Economy.ExchangeRateFloor {
			er = e.cfg.Economy.ExchangeRateFloor
			guards = append(guards, fmt.Sprintf("%s: exchange rate clamped to floor", n.Name))
		}

		id := n.ID
		buf.Queue(id, func(m *Nation) {
			m.InterestRate = rate
			m.ExchangeRate = er
			m.Regime = regime
			m.GoldReserves = gold
		})
	}

	return guards
}

// DebtPressure applies sovereign risk repricing and contagion. Nations over
// the crisis threshold pay higher rates and leak stability; their allies and
// creditors catch a milder premium.
func (e *EconomicEngine) DebtPressure(snap []*Nation, buf *UpdateBuffer) []string {
	var notes []string

	for _, n := range snap {
		if !n.Alive() {
			continue
		}
		ratio := n.DebtRatio()
		if ratio <= e.cfg.Economy.DebtCrisisThreshold {
			continue
		}

		excess := ratio - e.cfg.Economy.DebtCrisisThreshold
		id := n.ID
		buf.Queue(id, func(m *Nation) {
			m.InterestRate += 0.02 * excess
			m.Stability = clamp(m.Stability-3, 0, 100)
		})
		notes = append(notes, fmt.Sprintf("%s: debt crisis, ratio %.2f", n.Name, ratio))

		// Contagion spreads to allies holding exposure.
		for _, allyID := range n.AllyIDs() {
			aID := allyID
			buf.Queue(aID, func(m *Nation) {
				m.InterestRate += 0.005 * excess
			})
		}
	}

	return notes
}

// Arbitrate runs the institutional layer: a security council of the five
// strongest powers screens trade disputes and sanction resolutions, with
// ally vetoes; a trade body imposes temporary flow penalties on losers.
// Randomized tie-breaks draw only from the institutions substream.
func (e *EconomicEngine) Arbitrate(snap []*Nation, buf *UpdateBuffer) []string {
	var notes []string

	council := e.councilMembers(snap)

	// Standing sanctions lapse once the target stabilizes.
	for _, n := range snap {
		if !n.Alive() || len(n.SanctionsFrom) == 0 {
			continue
		}
		if n.Stability > 50 && !n.AtWar() {
			id := n.ID
			buf.Queue(id, func(m *Nation) {
				m.SanctionsFrom = make(map[int]bool)
			})
			notes = append(notes, fmt.Sprintf("%s: sanctions lifted", n.Name))
		}
	}

	// Trade disputes. Each living nation is screened in id order so the
	// draw sequence is reproducible.
	for _, accused := range snap {
		if !accused.Alive() {
			continue
		}
		if !e.institutions.Bernoulli(e.cfg.Economy.DisputeProbability) {
			continue
		}

		if e.vetoed(council, accused, snap) {
			notes = append(notes, fmt.Sprintf("%s: trade dispute vetoed in council", accused.Name))
			continue
		}

		// The trade body scores the accused against the strongest
		// non-ally complainant.
		complainant := e.strongestNonAlly(snap, accused)
		if complainant == nil {
			continue
		}
		if institutionScore(accused) < institutionScore(complainant) {
			id := accused.ID
			penalty := e.cfg.Economy.TradePenaltyFactor
			buf.Queue(id, func(m *Nation) {
				m.TradePenalty = penalty
			})
			notes = append(notes, fmt.Sprintf("%s: trade ruling lost to %s", accused.Name, complainant.Name))
		} else {
			notes = append(notes, fmt.Sprintf("%s: trade dispute settled", accused.Name))
		}
	}

	// Sanction resolutions target the most destabilized belligerent.
	if e.institutions.Bernoulli(e.cfg.Economy.ResolutionProbability) {
		target := e.sanctionTarget(snap)
		if target != nil && !e.vetoed(council, target, snap) {
			tID := target.ID
			members := append([]int(nil), council...)
			buf.Queue(tID, func(m *Nation) {
				for _, c := range members {
					if c != m.ID {
						m.SanctionsFrom[c] = true
					}
				}
			})
			notes = append(notes, fmt.Sprintf("%s: council sanctions imposed", target.Name))
		}
	}

	return notes
}

// councilMembers returns the ids of the five strongest living powers by a
// composite of output and military strength, ascending id on ties.
func (e *EconomicEngine) councilMembers(snap []*Nation) []int {
	type ranked struct {
		id    int
		power float64
	}
	var rs []ranked
	for _, n := range snap {
		if n.Alive() {
			rs = append(rs, ranked{id: n.ID, power: n.GDP*1e-9 + n.Military})
		}
	}
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].power != rs[j].power {
			return rs[i].power > rs[j].power
		}
		return rs[i].id < rs[j].id
	})
	if len(rs) > 5 {
		rs = rs[:5]
	}
	ids := make([]int, len(rs))
	for i, r := range rs {
		ids[i] = r.id
	}
	sort.Ints(ids)
	return ids
}

// vetoed reports whether a council member shields the target. Members veto
// for themselves, their allies, and near-ideological partners, with a draw
// deciding whether the veto is actually cast.
func (e *EconomicEngine) vetoed(council []int, target *Nation, snap []*Nation) bool {
	for _, id := range council {
		member := snap[id]
		if !member.Alive() {
			continue
		}
		aligned := member.ID == target.ID ||
			member.IsAlly(target.ID) ||
			member.Ideology.Distance(target.Ideology) <= 1
		if aligned && e.institutions.Bernoulli(0.9) {
			return true
		}
	}
	return false
}

// strongestNonAlly returns the living nation with the highest GDP that is
// neither the accused nor its ally.
func (e *EconomicEngine) strongestNonAlly(snap []*Nation, accused *Nation) *Nation {
	var best *Nation
	for _, n := range snap {
		if !n.Alive() || n.ID == accused.ID || accused.IsAlly(n.ID) {
			continue
		}
		if best == nil || n.GDP > best.GDP {
			best = n
		}
	}
	return best
}

// sanctionTarget picks the least stable nation currently at war.
func (e *EconomicEngine) sanctionTarget(snap []*Nation) *Nation {
	var target *Nation
	for _, n := range snap {
		if !n.Alive() || !n.AtWar() {
			continue
		}
		if target == nil || n.Stability < target.Stability {
			target = n
		}
	}
	return target
}

// institutionScore is the trade body's standing metric: stable, advanced
// economies win rulings.
func institutionScore(n *Nation) float64 {
	return n.Stability + n.TFP*10
}
