package core

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/meridian-sims/worldsim/cmd/worldsim/config"
	"github.com/meridian-sims/worldsim/pkg/logger"
	"github.com/meridian-sims/worldsim/pkg/rng"
)

// Substream names fixed at world construction. Every subsystem draws only
// from its own stream, so enabling or disabling one never perturbs another.
const (
	StreamWorldgen     = "worldgen"
	StreamDemographics = "demographics"
	StreamEconomy      = "economy"
	StreamEvents       = "events"
	StreamCombat       = "combat"
	StreamInstitutions = "institutions"
)

// Aggregates are the global metrics attached to each step snapshot.
type Aggregates struct {
	TotalGDP           float64 `json:"total_gdp"`
	TotalPopulation    float64 `json:"total_population"`
	Gini               float64 `json:"gini"`
	ClimateIndex       float64 `json:"climate_index"` // temperature anomaly, degrees
	LivingNations      int     `json:"living_nations"`
	WarCount           int     `json:"war_count"`           // cumulative
	NuclearDetonations int     `json:"nuclear_detonations"` // cumulative
}

// WorldState is one immutable step snapshot. Every contained value is a deep
// copy taken at append time and is never written afterwards.
type WorldState struct {
	Step       int         `json:"step"`
	Nations    []*Nation   `json:"nations"`
	TradeEdges []TradeEdge `json:"trade_edges"`
	Conflicts  []*Conflict `json:"conflicts"` // active conflicts only
	Events     []Event     `json:"events"`
	Aggregates Aggregates  `json:"aggregates"`
}

// World owns all persistent simulation state: the nation registry, the
// conflict registry, the random stream, and the append-only history. The
// engines hold no cross-step state of their own.
type World struct {
	cfg    *config.SimulationConfig
	log    logger.Logger
	stream *rng.Stream

	registry  *Registry
	distances [][]float64

	econ   *EconomicEngine
	events *EventEngine
	combat *CombatEngine

	conflicts      []*Conflict
	nextConflictID int

	step             int
	cumulativeCarbon float64
	temperature      float64
	tippingCrossed   int
	warCount         int
	nuclearCount     int
	pandemicMult     float64

	history []*WorldState
}

// NewWorld validates the configuration, generates the starting nation set,
// and wires the engines to their substreams.
func NewWorld(cfg *config.SimulationConfig, log logger.Logger) (*World, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	stream := rng.New(cfg.Simulation.Seed,
		StreamWorldgen, StreamDemographics, StreamEconomy,
		StreamEvents, StreamCombat, StreamInstitutions)

	nations, distances := GenerateWorld(cfg, stream.MustSub(StreamWorldgen))

	return newWorld(cfg, log, stream, nations, distances), nil
}

// NewWorldFromNations builds a world over an explicit nation set and
// distance matrix. Nations must carry dense ids matching their slice index.
// Scenario tests and replay tooling use this to pin initial conditions.
func NewWorldFromNations(cfg *config.SimulationConfig, log logger.Logger, nations []*Nation, distances [][]float64) (*World, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	for i, n := range nations {
		if n.ID != i {
			return nil, fmt.Errorf("nation id %d at index %d: ids must be dense", n.ID, i)
		}
	}

	stream := rng.New(cfg.Simulation.Seed,
		StreamWorldgen, StreamDemographics, StreamEconomy,
		StreamEvents, StreamCombat, StreamInstitutions)

	return newWorld(cfg, log, stream, nations, distances), nil
}

func newWorld(cfg *config.SimulationConfig, log logger.Logger, stream *rng.Stream, nations []*Nation, distances [][]float64) *World {
	if log == nil {
		log = logger.New()
	}
	w := &World{
		cfg:          cfg,
		log:          log.WithPrefix("world"),
		stream:       stream,
		registry:     NewRegistry(nations),
		distances:    distances,
		pandemicMult: 1,
	}
	w.econ = NewEconomicEngine(cfg, stream.MustSub(StreamEconomy), stream.MustSub(StreamInstitutions), distances)
	w.events = NewEventEngine(cfg, stream.MustSub(StreamEvents))
	w.combat = NewCombatEngine(cfg, stream.MustSub(StreamCombat))
	return w
}

// Registry exposes the nation registry for reporting consumers.
func (w *World) Registry() *Registry {
	return w.registry
}

// CurrentStep returns the number of completed steps.
func (w *World) CurrentStep() int {
	return w.step
}

// History returns the append-only snapshot sequence.
func (w *World) History() []*WorldState {
	return w.history
}

// StateAt returns the snapshot for a completed step index.
func (w *World) StateAt(i int) (*WorldState, bool) {
	if i < 0 || i >= len(w.history) {
		return nil, false
	}
	return w.history[i], true
}

// Run advances the world until the configured step count, the context is
// cancelled, or a stop condition fires. Cancellation is only observed at
// step boundaries; a step always completes atomically.
func (w *World) Run(ctx context.Context) error {
	for w.step < w.cfg.Simulation.Steps {
		select {
		case <-ctx.Done():
			w.log.Infof("run cancelled after %d steps", w.step)
			return ctx.Err()
		default:
		}

		if _, err := w.Step(); err != nil {
			return err
		}

		if w.cfg.World.StopOnLastTwo && w.registry.LivingCount() <= 2 {
			w.log.Infof("stopping at step %d: %d nations remain", w.step, w.registry.LivingCount())
			return nil
		}
	}
	return nil
}

// Step advances the world by one step: the parallel local phase, an
// extinction check at the barrier, then the economic, event, and combat
// coupling phases each against a frozen snapshot, then a second extinction
// check, climate accounting, and the history append. Returns the appended
// snapshot.
func (w *World) Step() (*WorldState, error) {
	stepIndex := w.step

	climateDamage := w.climateDamage()
	w.runLocalPhase(climateDamage)

	// Nations that fell below the survival thresholds in the local phase
	// are retired here, before any coupling phase can see them.
	w.applyExtinctions(stepIndex)

	// Economic phase.
	buf := NewUpdateBuffer()
	snap := w.registry.Snapshot()
	edges := w.econ.Trade(snap, buf)
	w.econ.ForeignInvestment(snap, buf)
	for _, g := range w.econ.ExchangeRates(snap, buf) {
		w.log.Warn(g)
	}
	for _, note := range w.econ.DebtPressure(snap, buf) {
		w.log.Debug(note)
	}
	for _, note := range w.econ.Arbitrate(snap, buf) {
		w.log.Debug(note)
	}
	buf.Commit(w.registry)

	// Event phase.
	snap = w.registry.Snapshot()
	stepEvents := w.events.Apply(snap, buf, stepIndex, edges)
	for _, ev := range stepEvents {
		w.log.Infof("step %d %s: %s", ev.Step, ev.Category, ev.Detail)
	}
	buf.Commit(w.registry)

	// Diplomacy and combat phase.
	snap = w.registry.Snapshot()
	for _, note := range UpdateAlliances(w.cfg, w.econ.institutions, snap, buf) {
		w.log.Info(note)
	}
	ArmsRace(w.cfg, snap, buf)
	created := w.combat.DetectTriggers(snap, w.activeConflicts(), buf, stepIndex, w.allocConflictID)
	for _, c := range created {
		w.conflicts = append(w.conflicts, c)
		w.warCount++
		w.log.Infof("war breaks out: %s", c.Cause)
	}
	result := w.combat.Resolve(w.activeConflicts(), snap, buf)
	for _, note := range result.Notes {
		w.log.Info(note)
	}
	w.nuclearCount += result.NuclearDetonations
	buf.Commit(w.registry)

	// Second pass for collapses caused by the coupling phases themselves,
	// combat casualties and annexation in particular.
	w.applyExtinctions(stepIndex)
	w.refreshOutput()
	w.updateClimate(result.NuclearDetonations)
	w.pandemicMult = w.globalPandemicMultiplier()

	w.step++
	state := w.snapshotState(stepIndex, edges, stepEvents)
	w.history = append(w.history, state)
	return state, nil
}

// runLocalPhase draws every living nation's shocks sequentially in id order
// and then runs the pure local updates concurrently. The update only
// touches its own nation, so no synchronization beyond the join is needed.
func (w *World) runLocalPhase(climateDamage float64) {
	living := w.registry.Living()
	demographics := w.stream.MustSub(StreamDemographics)

	shocks := make([]LocalShocks, len(living))
	for i := range living {
		shocks[i] = LocalShocks{
			PopGrowth:   demographics.Gaussian(0, w.cfg.Demographics.GrowthStd),
			TFPShock:    demographics.Gaussian(0, w.cfg.Technology.ShockStd),
			HealthDrift: demographics.Gaussian(0, w.cfg.Demographics.HealthDriftStd),
		}
	}

	inputs := GlobalInputs{
		ClimateDamage: climateDamage,
		PandemicMult:  w.pandemicMult,
		Realism:       w.cfg.RealismMultiplier(),
	}

	guards := make([][]string, len(living))
	var wg sync.WaitGroup
	for i, n := range living {
		wg.Add(1)
		go func(i int, n *Nation) {
			defer wg.Done()
			guards[i] = UpdateLocal(n, w.cfg, shocks[i], inputs)
		}(i, n)
	}
	wg.Wait()

	for _, gs := range guards {
		for _, g := range gs {
			w.log.Warn(g)
		}
	}
}

// applyExtinctions retires nations that fell below the survival thresholds
// and scrubs them from everyone else's relations.
func (w *World) applyExtinctions(step int) {
	for _, n := range w.registry.All() {
		if !n.Alive() {
			continue
		}
		if n.Population < w.cfg.Demographics.ExtinctionPop || n.Capital < w.cfg.Demographics.ExtinctionCapital {
			w.log.Infof("%s collapses at step %d", n.Name, step)
			n.MarkExtinct(step)
			for _, other := range w.registry.All() {
				if other.ID == n.ID {
					continue
				}
				delete(other.Allies, n.ID)
				delete(other.SanctionsFrom, n.ID)
			}
		}
	}
}

// refreshOutput re-derives GDP from the production function after the
// coupling phases have moved capital and population, so every snapshot
// carries output consistent with its factors.
func (w *World) refreshOutput() {
	for _, n := range w.registry.Living() {
		n.RecomputeGDP(w.cfg.Economy.CapitalShareAlpha)
	}
}

// updateClimate accrues emissions from output and advances the temperature
// anomaly. Crossing a tipping threshold permanently amplifies damage.
// Nuclear detonations inject an additional atmospheric shock.
func (w *World) updateClimate(detonations int) {
	for _, n := range w.registry.Living() {
		w.cumulativeCarbon += n.GDP * w.cfg.Climate.GDPEmissionFactor
	}
	w.cumulativeCarbon += float64(detonations) * 2e10

	w.temperature = w.cfg.Climate.TempScaling * (w.cumulativeCarbon / w.cfg.Climate.CarbonBudget)

	thresholds := []float64{1.5, 2.0, 2.5}
	for w.tippingCrossed < len(thresholds) && w.temperature >= thresholds[w.tippingCrossed] {
		w.tippingCrossed++
		w.log.Warnf("climate tipping point crossed at %.1f degrees", thresholds[w.tippingCrossed-1])
	}
}

// climateDamage returns the fractional output loss for the coming step.
func (w *World) climateDamage() float64 {
	damage := w.cfg.Climate.DamageFactor * w.temperature * w.temperature
	for i := 0; i < w.tippingCrossed; i++ {
		damage *= 1.5
	}
	return clamp(damage, 0, 0.95)
}

// globalPandemicMultiplier aggregates infection across nations into the
// demand multiplier consumed by the next step's local updates.
func (w *World) globalPandemicMultiplier() float64 {
	var infected, pop float64
	for _, n := range w.registry.Living() {
		pop += n.Population
		if n.Pandemic != nil {
			infected += n.Pandemic.InfectedShare * n.Population
		}
	}
	if pop <= 0 {
		return 1
	}
	return clamp(1-0.5*infected/pop, 0, 1)
}

func (w *World) activeConflicts() []*Conflict {
	var out []*Conflict
	for _, c := range w.conflicts {
		if !c.State.Terminal() {
			out = append(out, c)
		}
	}
	return out
}

func (w *World) allocConflictID() int {
	id := w.nextConflictID
	w.nextConflictID++
	return id
}

// snapshotState deep-copies everything reachable so the appended snapshot
// can never observe later writes.
func (w *World) snapshotState(step int, edges []TradeEdge, events []Event) *WorldState {
	nations := w.registry.Snapshot()

	var conflicts []*Conflict
	for _, c := range w.activeConflicts() {
		conflicts = append(conflicts, c.Clone())
	}

	return &WorldState{
		Step:       step,
		Nations:    nations,
		TradeEdges: append([]TradeEdge(nil), edges...),
		Conflicts:  conflicts,
		Events:     append([]Event(nil), events...),
		Aggregates: w.computeAggregates(),
	}
}

func (w *World) computeAggregates() Aggregates {
	living := w.registry.Living()

	agg := Aggregates{
		LivingNations:      len(living),
		WarCount:           w.warCount,
		NuclearDetonations: w.nuclearCount,
		ClimateIndex:       w.temperature,
	}
	var perCapita []float64
	for _, n := range living {
		agg.TotalGDP += n.GDP
		agg.TotalPopulation += n.Population
		if n.Population > 0 {
			perCapita = append(perCapita, n.GDP/n.Population)
		}
	}
	agg.Gini = GiniCoefficient(perCapita)
	return agg
}

// GiniCoefficient computes inequality over a value distribution, 0 for
// perfect equality and approaching 1 for full concentration.
func GiniCoefficient(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	var sum, weighted float64
	for i, v := range sorted {
		sum += v
		weighted += float64(i+1) * v
	}
	if sum == 0 {
		return 0
	}
	return 2*weighted/(float64(n)*sum) - float64(n+1)/float64(n)
}
