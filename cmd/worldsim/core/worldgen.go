package core

import (
	"fmt"
	"math"

	"github.com/meridian-sims/worldsim/cmd/worldsim/config"
	"github.com/meridian-sims/worldsim/pkg/rng"
)

var namePrefixes = []string{
	"New", "Great", "North", "South", "East", "West", "Upper", "Lower", "Free", "United",
}

var nameRoots = []string{
	"Avalor", "Belgrav", "Cordan", "Drakon", "Eldor", "Ferros", "Galdun", "Hesper",
	"Ithar", "Jorvik", "Kestrel", "Lumera", "Meridia", "Norvand", "Ostrava", "Pelagia",
	"Quint", "Rhovan", "Solandra", "Thessal", "Umbria", "Valdor", "Wrenlow", "Xanthe",
	"Ystra", "Zephyra",
}

var nameSuffixes = []string{
	"ia", "land", "stan", "mark", "burg", "haven", "gard", "onia", "wick", "mor",
}

// GenerateWorld builds the starting nation set and the symmetric pairwise
// distance matrix from the worldgen substream. Population and income levels
// are log-normal, matching the skew of real country-size distributions.
func GenerateWorld(cfg *config.SimulationConfig, worldgen *rng.Substream) ([]*Nation, [][]float64) {
	n := cfg.World.NumNations
	nations := make([]*Nation, n)
	used := make(map[string]bool)

	for i := 0; i < n; i++ {
		nation := NewNation(i, generateName(worldgen, used))

		nation.Population = worldgen.LogNormal(cfg.World.PopulationLogMean, cfg.World.PopulationLogStd)
		gdpPerCap := worldgen.LogNormal(cfg.World.GDPPerCapLogMean, cfg.World.GDPPerCapLogStd)
		targetGDP := nation.Population * gdpPerCap

		// Capital stock starts at three annual outputs, the long-run
		// ratio of mature economies. TFP is then backed out so the
		// production function reproduces the target output.
		nation.Capital = 3 * targetGDP
		nation.Health = clamp(30+20*math.Log10(gdpPerCap/1000)+worldgen.Gaussian(0, 5), 20, 90)
		nation.HumanCapital = 0.5 + nation.Health/100

		alpha := cfg.Economy.CapitalShareAlpha
		labor := nation.Labor() * nation.HumanCapital
		nation.TFP = targetGDP / (math.Pow(nation.Capital, alpha) * math.Pow(labor, 1-alpha))
		nation.RecomputeGDP(alpha)

		nation.Government = generateGovernment(worldgen)
		nation.Ideology = Ideology(worldgen.IntN(5))
		nation.Stability = clamp(nation.Government.Traits().StabilityBase+worldgen.Gaussian(0, 10), 10, 95)

		nation.Military = worldgen.Range(10, 60) * math.Pow(targetGDP/1e11, 0.5)
		nation.MilitaryShare = cfg.Military.MilitarySpendBase
		nation.RDShare = worldgen.Range(0.005, 0.03)

		nation.Resources = Resources{
			Oil:       worldgen.Range(0, 100),
			RareEarth: worldgen.Range(0, 100),
			Farmland:  worldgen.Range(20, 100),
		}

		nation.Reserves = 0.1 * targetGDP
		nation.Debt = worldgen.Range(0.2, 0.8) * targetGDP
		nation.Inflation = cfg.Economy.InflationTarget
		nation.InterestRate = cfg.Economy.InflationTarget + 0.02
		nation.Regime = generateRegime(cfg, worldgen)
		if nation.Regime == RegimeGoldStandard {
			nation.GoldReserves = 0.05 * targetGDP
		}

		nations[i] = nation
	}

	distances := make([][]float64, n)
	for i := range distances {
		distances[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := worldgen.Range(cfg.World.DistanceMin, cfg.World.DistanceMax)
			distances[i][j] = d
			distances[j][i] = d
		}
	}

	return nations, distances
}

func generateName(worldgen *rng.Substream, used map[string]bool) string {
	for attempt := 0; ; attempt++ {
		name := nameRoots[worldgen.IntN(len(nameRoots))] + nameSuffixes[worldgen.IntN(len(nameSuffixes))]
		if worldgen.Bernoulli(0.3) {
			name = namePrefixes[worldgen.IntN(len(namePrefixes))] + " " + name
		}
		if !used[name] {
			used[name] = true
			return name
		}
		// The pool is finite; disambiguate rather than loop forever.
		if attempt >= 20 {
			name = fmt.Sprintf("%s %d", name, len(used))
			used[name] = true
			return name
		}
	}
}

func generateGovernment(worldgen *rng.Substream) GovernmentType {
	roll := worldgen.Uniform()
	switch {
	case roll < 0.40:
		return GovDemocracy
	case roll < 0.70:
		return GovAutocracy
	case roll < 0.85:
		return GovTechnocracy
	case roll < 0.95:
		return GovTheocracy
	default:
		return GovAnarchy
	}
}

func generateRegime(cfg *config.SimulationConfig, worldgen *rng.Substream) CurrencyRegime {
	if cfg.Economy.GoldStandardEnabled && worldgen.Bernoulli(0.3) {
		return RegimeGoldStandard
	}
	if worldgen.Bernoulli(0.2) {
		return RegimePegged
	}
	return RegimeFloating
}
