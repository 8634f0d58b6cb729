package core

import (
	"math"
	"sort"
)

// GovernmentType identifies a nation's form of government. The set is closed;
// transitions between types happen only through elections and coups.
type GovernmentType int

const (
	GovDemocracy GovernmentType = iota
	GovAutocracy
	GovTechnocracy
	GovTheocracy
	GovAnarchy
)

func (g GovernmentType) String() string {
	switch g {
	case GovDemocracy:
		return "Democracy"
	case GovAutocracy:
		return "Autocracy"
	case GovTechnocracy:
		return "Technocracy"
	case GovTheocracy:
		return "Theocracy"
	case GovAnarchy:
		return "Anarchy"
	default:
		return "Unknown"
	}
}

// governmentTraits holds per-government-type model coefficients.
type governmentTraits struct {
	StabilityBase  float64 // baseline stability pull
	GrowthBonus    float64 // additive TFP growth modifier
	WarReluctance  float64 // multiplier on war trigger probability
	CoupMultiplier float64 // multiplier on coup probability
	QuarantineEff  float64 // pandemic containment effectiveness
}

var governmentTable = [...]governmentTraits{
	GovDemocracy:   {StabilityBase: 70, GrowthBonus: 0.002, WarReluctance: 0.5, CoupMultiplier: 0.3, QuarantineEff: 0.6},
	GovAutocracy:   {StabilityBase: 55, GrowthBonus: 0.000, WarReluctance: 1.2, CoupMultiplier: 1.5, QuarantineEff: 0.8},
	GovTechnocracy: {StabilityBase: 65, GrowthBonus: 0.004, WarReluctance: 0.7, CoupMultiplier: 0.6, QuarantineEff: 0.9},
	GovTheocracy:   {StabilityBase: 60, GrowthBonus: -0.001, WarReluctance: 1.0, CoupMultiplier: 1.0, QuarantineEff: 0.4},
	GovAnarchy:     {StabilityBase: 30, GrowthBonus: -0.003, WarReluctance: 1.5, CoupMultiplier: 2.5, QuarantineEff: 0.1},
}

// Traits returns the model coefficients for the government type.
func (g GovernmentType) Traits() governmentTraits {
	if int(g) < 0 || int(g) >= len(governmentTable) {
		return governmentTable[GovAnarchy]
	}
	return governmentTable[g]
}

// Ideology places a nation on a coarse political spectrum. Distance between
// ideologies drives trade friction and war likelihood.
type Ideology int

const (
	IdeologyFarLeft Ideology = iota
	IdeologyLeft
	IdeologyCenter
	IdeologyRight
	IdeologyFarRight
)

func (i Ideology) String() string {
	switch i {
	case IdeologyFarLeft:
		return "Far Left"
	case IdeologyLeft:
		return "Left"
	case IdeologyCenter:
		return "Center"
	case IdeologyRight:
		return "Right"
	case IdeologyFarRight:
		return "Far Right"
	default:
		return "Unknown"
	}
}

// Distance returns the spectrum gap between two ideologies, in [0, 4].
func (i Ideology) Distance(other Ideology) float64 {
	return math.Abs(float64(i) - float64(other))
}

// shift moves the ideology one notch toward the given direction, clamped to
// the ends of the spectrum.
func (i Ideology) shift(direction int) Ideology {
	next := int(i)
	if direction > 0 {
		next++
	} else if direction < 0 {
		next--
	}
	if next < int(IdeologyFarLeft) {
		next = int(IdeologyFarLeft)
	}
	if next > int(IdeologyFarRight) {
		next = int(IdeologyFarRight)
	}
	return Ideology(next)
}

// CurrencyRegime identifies how a nation manages its exchange rate.
type CurrencyRegime int

const (
	RegimeFloating CurrencyRegime = iota
	RegimePegged
	RegimeGoldStandard
)

func (r CurrencyRegime) String() string {
	switch r {
	case RegimeFloating:
		return "Floating"
	case RegimePegged:
		return "Pegged"
	case RegimeGoldStandard:
		return "Gold Standard"
	default:
		return "Unknown"
	}
}

// NationStatus marks whether a nation still participates in the simulation.
type NationStatus int

const (
	StatusAlive NationStatus = iota
	StatusExtinct
)

// Resources holds a nation's natural resource endowments. Endowments are
// fixed at world generation and drive comparative advantage in trade.
type Resources struct {
	Oil       float64
	RareEarth float64
	Farmland  float64
}

// PandemicState tracks an active outbreak inside a nation. It is the only
// event effect that persists across steps as structured state.
type PandemicState struct {
	InfectedShare   float64 // fraction of population currently infected
	R0              float64
	Lethality       float64 // infection fatality rate
	StepsActive     int
	VaccineProgress float64 // 0..1, outbreak ends at 1
}

// Nation is the primary simulated entity. All fields are plain values so a
// deep copy is a value copy plus the ally and sanction maps.
type Nation struct {
	ID   int
	Name string

	// Demographic state
	Population float64
	LaborShare float64 // working-age fraction of population
	Health     float64 // composite health index, 0..100

	// Economic state
	Capital      float64
	TFP          float64 // total factor productivity
	HumanCapital float64 // per-worker productivity multiplier
	GDP          float64 // recomputed each step, never integrated
	Reserves     float64
	Debt         float64
	ExchangeRate float64
	Inflation    float64
	InterestRate float64
	Regime       CurrencyRegime
	GoldReserves float64
	PegTarget    float64 // fixed rate for pegged regimes
	TradeBalance float64 // net exports this step
	TradePenalty float64 // WTO ruling penalty multiplier decay
	RDShare      float64 // budget share spent on research
	Resources    Resources

	// Political and military state
	Government    GovernmentType
	Ideology      Ideology
	Stability     float64 // 0..100
	Military      float64 // aggregate strength
	MilitaryShare float64 // budget share spent on the military
	Nuclear       bool
	Exhaustion    float64 // 0..100, war weariness

	// Relations. Ally and sanction sets are iterated only through the
	// sorted accessors below.
	Allies        map[int]bool
	SanctionsFrom map[int]bool
	ConflictIDs   map[int]bool

	// Event state
	Pandemic     *PandemicState
	ExtinctSince int // step of extinction, -1 while alive

	Status NationStatus
}

// NewNation constructs a nation with empty relation sets.
func NewNation(id int, name string) *Nation {
	return &Nation{
		ID:            id,
		Name:          name,
		LaborShare:    0.65,
		HumanCapital:  1.0,
		ExchangeRate:  1.0,
		PegTarget:     1.0,
		Allies:        make(map[int]bool),
		SanctionsFrom: make(map[int]bool),
		ConflictIDs:   make(map[int]bool),
		ExtinctSince:  -1,
	}
}

// Clone returns a deep copy. Snapshots use this so a committed phase can
// never see writes from a later one.
func (n *Nation) Clone() *Nation {
	c := *n
	c.Allies = make(map[int]bool, len(n.Allies))
	for id := range n.Allies {
		c.Allies[id] = true
	}
	c.SanctionsFrom = make(map[int]bool, len(n.SanctionsFrom))
	for id := range n.SanctionsFrom {
		c.SanctionsFrom[id] = true
	}
	c.ConflictIDs = make(map[int]bool, len(n.ConflictIDs))
	for id := range n.ConflictIDs {
		c.ConflictIDs[id] = true
	}
	if n.Pandemic != nil {
		p := *n.Pandemic
		c.Pandemic = &p
	}
	return &c
}

// Alive reports whether the nation still participates in the simulation.
func (n *Nation) Alive() bool {
	return n.Status == StatusAlive
}

// AllyIDs returns the nation's allies in ascending id order.
func (n *Nation) AllyIDs() []int {
	ids := make([]int, 0, len(n.Allies))
	for id := range n.Allies {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// SanctionedBy reports whether the other nation currently sanctions this one.
func (n *Nation) SanctionedBy(id int) bool {
	return n.SanctionsFrom[id]
}

// AtWar reports whether the nation has any active conflict.
func (n *Nation) AtWar() bool {
	return len(n.ConflictIDs) > 0
}

// IsAlly reports whether the other nation is an ally.
func (n *Nation) IsAlly(id int) bool {
	return n.Allies[id]
}

// DebtRatio returns debt relative to output. Returns 0 when GDP is zero so
// extinct economies never divide by zero.
func (n *Nation) DebtRatio() float64 {
	if n.GDP <= 0 {
		return 0
	}
	return n.Debt / n.GDP
}

// Labor returns the effective working population.
func (n *Nation) Labor() float64 {
	return n.Population * n.LaborShare
}

// RecomputeGDP derives output from the production function. GDP is always a
// function of current factors, never an accumulated stock.
func (n *Nation) RecomputeGDP(alpha float64) float64 {
	k := math.Max(n.Capital, 0)
	l := math.Max(n.Labor()*n.HumanCapital, 0)
	if k == 0 || l == 0 {
		n.GDP = 0
		return 0
	}
	n.GDP = n.TFP * math.Pow(k, alpha) * math.Pow(l, 1-alpha)
	return n.GDP
}

// MarkExtinct freezes the nation at the given step. An extinct nation's
// fields are never written again.
func (n *Nation) MarkExtinct(step int) {
	if n.Status == StatusExtinct {
		return
	}
	n.Status = StatusExtinct
	n.ExtinctSince = step
	n.GDP = 0
	n.Military = 0
	n.Allies = make(map[int]bool)
	n.SanctionsFrom = make(map[int]bool)
	n.ConflictIDs = make(map[int]bool)
	n.Pandemic = nil
}
