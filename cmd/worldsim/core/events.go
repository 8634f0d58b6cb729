package core

import (
	"fmt"

	"github.com/meridian-sims/worldsim/cmd/worldsim/config"
	"github.com/meridian-sims/worldsim/pkg/rng"
)

// EventCategory identifies one of the fixed stochastic event types.
type EventCategory int

const (
	EventElection EventCategory = iota
	EventCoup
	EventDisaster
	EventBreakthrough
	EventScandal
	EventDefault
	EventPandemicOnset
	EventPandemicEnd
)

func (c EventCategory) String() string {
	switch c {
	case EventElection:
		return "Election"
	case EventCoup:
		return "Coup"
	case EventDisaster:
		return "Disaster"
	case EventBreakthrough:
		return "Breakthrough"
	case EventScandal:
		return "Scandal"
	case EventDefault:
		return "Default"
	case EventPandemicOnset:
		return "Pandemic Onset"
	case EventPandemicEnd:
		return "Pandemic End"
	default:
		return "Unknown"
	}
}

// Event records one occurrence for the step log and report.
type Event struct {
	Step     int           `json:"step"`
	NationID int           `json:"nation_id"`
	Category EventCategory `json:"category"`
	Detail   string        `json:"detail"`
}

// EventEngine samples the per-nation event table each step. All randomness
// comes from the events substream; nations are screened in ascending id
// order with a fixed category order, so the draw sequence is reproducible.
type EventEngine struct {
	cfg    *config.SimulationConfig
	events *rng.Substream
}

// NewEventEngine wires the engine to its substream.
func NewEventEngine(cfg *config.SimulationConfig, events *rng.Substream) *EventEngine {
	return &EventEngine{cfg: cfg, events: events}
}

// Apply samples and applies events for every living nation. At most one
// event per category per nation per step; categories can co-occur. Effects
// are buffered like any other coupling-phase mutation. Trade edges from the
// economic phase carry pandemic spread between partners.
func (e *EventEngine) Apply(snap []*Nation, buf *UpdateBuffer, step int, edges []TradeEdge) []Event {
	var out []Event

	for _, n := range snap {
		if !n.Alive() {
			continue
		}
		out = append(out, e.election(n, buf, step)...)
		out = append(out, e.coup(n, buf, step)...)
		out = append(out, e.disaster(n, buf, step)...)
		out = append(out, e.breakthrough(n, buf, step)...)
		out = append(out, e.scandal(n, buf, step)...)
		out = append(out, e.sovereignDefault(n, buf, step)...)
		out = append(out, e.pandemic(n, buf, step)...)
	}

	out = append(out, e.pandemicSpread(snap, buf, step, edges)...)

	return out
}

func (e *EventEngine) election(n *Nation, buf *UpdateBuffer, step int) []Event {
	p := e.cfg.Events.ElectionProbability
	if n.Government != GovDemocracy {
		p *= 0.1
	}
	if !e.events.Bernoulli(p) {
		return nil
	}

	direction := -1
	if e.events.Bernoulli(0.5) {
		direction = 1
	}
	incumbentHolds := e.events.Bernoulli(0.5 + (n.Stability-50)/200)

	id := n.ID
	buf.Queue(id, func(m *Nation) {
		m.Ideology = m.Ideology.shift(direction)
		if incumbentHolds {
			m.Stability = clamp(m.Stability+5, 0, 100)
		} else {
			m.Stability = clamp(m.Stability-5, 0, 100)
			if m.Government == GovAnarchy {
				m.Government = GovDemocracy
			}
		}
	})

	detail := "government re-elected"
	if !incumbentHolds {
		detail = "opposition takes power"
	}
	return []Event{{Step: step, NationID: n.ID, Category: EventElection, Detail: detail}}
}

func (e *EventEngine) coup(n *Nation, buf *UpdateBuffer, step int) []Event {
	traits := n.Government.Traits()
	p := e.cfg.Events.CoupBaseProbability * traits.CoupMultiplier
	p *= 1 + (50-n.Stability)/100
	if n.Health < 40 {
		p *= 1.5
	}
	if !e.events.Bernoulli(clamp(p, 0, 1)) {
		return nil
	}

	direction := -1
	if e.events.Bernoulli(0.5) {
		direction = 1
	}

	id := n.ID
	buf.Queue(id, func(m *Nation) {
		m.Government = GovAutocracy
		m.Ideology = m.Ideology.shift(direction)
		m.Stability = clamp(m.Stability-15, 0, 100)
	})
	return []Event{{Step: step, NationID: n.ID, Category: EventCoup, Detail: "military seizes power"}}
}

func (e *EventEngine) disaster(n *Nation, buf *UpdateBuffer, step int) []Event {
	if !e.events.Bernoulli(e.cfg.Events.DisasterProbability) {
		return nil
	}

	severity := e.events.Range(0.02, 0.10)
	id := n.ID
	buf.Queue(id, func(m *Nation) {
		m.Capital *= 1 - severity
		m.Population *= 1 - severity/4
		m.Stability = clamp(m.Stability-3, 0, 100)
	})
	return []Event{{
		Step:     step,
		NationID: n.ID,
		Category: EventDisaster,
		Detail:   fmt.Sprintf("natural disaster, %.0f%% capital lost", severity*100),
	}}
}

func (e *EventEngine) breakthrough(n *Nation, buf *UpdateBuffer, step int) []Event {
	p := e.cfg.Events.BreakthroughProbability * (1 + n.RDShare*5)
	if !e.events.Bernoulli(clamp(p, 0, 1)) {
		return nil
	}

	boost := e.events.Range(0.05, 0.15)
	goesNuclear := !n.Nuclear && n.TFP > 3 && n.MilitaryShare > 0.03 && e.events.Bernoulli(0.1)

	id := n.ID
	buf.Queue(id, func(m *Nation) {
		m.TFP *= 1 + boost
		if goesNuclear {
			m.Nuclear = true
		}
	})

	detail := fmt.Sprintf("technology breakthrough, +%.0f%% productivity", boost*100)
	if goesNuclear {
		detail = "nuclear weapons program succeeds"
	}
	return []Event{{Step: step, NationID: n.ID, Category: EventBreakthrough, Detail: detail}}
}

func (e *EventEngine) scandal(n *Nation, buf *UpdateBuffer, step int) []Event {
	if !e.events.Bernoulli(e.cfg.Events.ScandalProbability) {
		return nil
	}

	id := n.ID
	buf.Queue(id, func(m *Nation) {
		m.Stability = clamp(m.Stability-8, 0, 100)
	})
	return []Event{{Step: step, NationID: n.ID, Category: EventScandal, Detail: "corruption scandal erodes trust"}}
}

func (e *EventEngine) sovereignDefault(n *Nation, buf *UpdateBuffer, step int) []Event {
	ratio := n.DebtRatio()
	if ratio <= e.cfg.Economy.DebtCrisisThreshold {
		return nil
	}
	p := e.cfg.Events.DefaultProbability * (ratio - e.cfg.Economy.DebtCrisisThreshold + 1)
	if !e.events.Bernoulli(clamp(p, 0, 1)) {
		return nil
	}

	id := n.ID
	buf.Queue(id, func(m *Nation) {
		m.Debt *= 0.4
		m.Stability = clamp(m.Stability-10, 0, 100)
		m.InterestRate += 0.05
		m.Reserves *= 0.5
	})
	return []Event{{
		Step:     step,
		NationID: n.ID,
		Category: EventDefault,
		Detail:   fmt.Sprintf("sovereign default at %.0f%% debt-to-GDP", ratio*100),
	}}
}

// pandemic handles onset for healthy nations and progression for infected
// ones. Infection stage and vaccine progress are the only event state that
// persists across steps.
func (e *EventEngine) pandemic(n *Nation, buf *UpdateBuffer, step int) []Event {
	if n.Pandemic == nil {
		if !e.events.Bernoulli(e.cfg.Events.PandemicProbability) {
			return nil
		}
		r0 := e.events.Gaussian(e.cfg.Pandemic.R0Mean, e.cfg.Pandemic.R0Std)
		if r0 < 0.5 {
			r0 = 0.5
		}
		lethality := e.events.Gaussian(e.cfg.Pandemic.LethalityMean, e.cfg.Pandemic.LethalityStd)
		if lethality < 0.001 {
			lethality = 0.001
		}
		id := n.ID
		buf.Queue(id, func(m *Nation) {
			m.Pandemic = &PandemicState{
				InfectedShare: 0.001,
				R0:            r0,
				Lethality:     lethality,
			}
		})
		return []Event{{
			Step:     step,
			NationID: n.ID,
			Category: EventPandemicOnset,
			Detail:   fmt.Sprintf("novel pathogen emerges, R0 %.1f", r0),
		}}
	}

	// Progression: multiplicative spread damped by quarantine and vaccine
	// progress, with research speeding the vaccine.
	traits := n.Government.Traits()
	p := *n.Pandemic
	effR0 := p.R0 * (1 - 0.5*traits.QuarantineEff) * (1 - p.VaccineProgress)
	p.InfectedShare = clamp(p.InfectedShare*(1+0.5*(effR0-1)), 0, 0.9)
	p.VaccineProgress += (1 + n.RDShare*5) / float64(e.cfg.Pandemic.VaccineTimeMean)
	p.StepsActive++

	ended := p.VaccineProgress >= 1 || p.InfectedShare < 1e-4

	id := n.ID
	buf.Queue(id, func(m *Nation) {
		if ended {
			m.Pandemic = nil
			return
		}
		next := p
		m.Pandemic = &next
	})

	if ended {
		return []Event{{Step: step, NationID: n.ID, Category: EventPandemicEnd, Detail: "outbreak extinguished"}}
	}
	return nil
}

// pandemicSpread carries infection across trade edges. Each edge with
// exactly one infected endpoint gets one contagion draw.
func (e *EventEngine) pandemicSpread(snap []*Nation, buf *UpdateBuffer, step int, edges []TradeEdge) []Event {
	var out []Event

	for _, edge := range edges {
		a, b := snap[edge.A], snap[edge.B]
		if !a.Alive() || !b.Alive() {
			continue
		}

		var source, target *Nation
		switch {
		case a.Pandemic != nil && b.Pandemic == nil:
			source, target = a, b
		case b.Pandemic != nil && a.Pandemic == nil:
			source, target = b, a
		default:
			continue
		}

		p := clamp(source.Pandemic.InfectedShare*1.5, 0, 0.5)
		if !e.events.Bernoulli(p) {
			continue
		}

		seed := *source.Pandemic
		id := target.ID
		buf.Queue(id, func(m *Nation) {
			if m.Pandemic != nil {
				return
			}
			m.Pandemic = &PandemicState{
				InfectedShare: 0.001,
				R0:            seed.R0,
				Lethality:     seed.Lethality,
			}
		})
		out = append(out, Event{
			Step:     step,
			NationID: target.ID,
			Category: EventPandemicOnset,
			Detail:   fmt.Sprintf("outbreak spreads from %s", source.Name),
		})
	}

	return out
}
