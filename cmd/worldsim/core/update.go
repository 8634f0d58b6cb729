package core

import (
	"fmt"
	"math"

	"github.com/meridian-sims/worldsim/cmd/worldsim/config"
)

// Conversion between economic output and military strength index points.
const militaryConversion = 1e-9

// Baseline military stock decay per step.
const militaryDecay = 0.05

// LocalShocks carries the random draws for one nation's local update. Draws
// are taken sequentially in ascending id order before any update runs, so
// the update itself is a pure function and may execute concurrently.
type LocalShocks struct {
	PopGrowth   float64 // gaussian, mean 0
	TFPShock    float64 // gaussian, mean 0
	HealthDrift float64 // gaussian, mean 0
}

// GlobalInputs carries the read-only cross-nation inputs to a local update,
// computed from the previous step's committed state.
type GlobalInputs struct {
	ClimateDamage float64 // fractional output loss from warming
	PandemicMult  float64 // global demand multiplier, 1 when no outbreak
	Realism       float64 // growth calibration multiplier
}

// UpdateLocal advances one nation's internal state by one step. It reads and
// writes only the given nation; all cross-nation influence arrives through
// GlobalInputs. Returned guard messages describe values that had to be
// clamped back into their domain.
func UpdateLocal(n *Nation, cfg *config.SimulationConfig, sh LocalShocks, in GlobalInputs) []string {
	var guards []string

	traits := n.Government.Traits()

	// Demographic transition: growth falls as income per head rises.
	gdpPerCap := 0.0
	if n.Population > 0 {
		gdpPerCap = n.GDP / n.Population
	}
	devFactor := developmentFactor(gdpPerCap)
	popGrowth := cfg.Demographics.GrowthBase*(1-0.8*devFactor) + sh.PopGrowth

	// Pandemic deaths dominate natural growth while an outbreak runs.
	if n.Pandemic != nil {
		popGrowth -= n.Pandemic.InfectedShare * n.Pandemic.Lethality
	}

	n.Population *= 1 + popGrowth
	if n.Population < 0 {
		guards = append(guards, fmt.Sprintf("%s: population clamped to 0", n.Name))
		n.Population = 0
	}

	// Health converges toward the level its development supports.
	healthTarget := cfg.Demographics.HealthMin + (cfg.Demographics.HealthMax-cfg.Demographics.HealthMin)*devFactor
	n.Health += 0.1*(healthTarget-n.Health) + sh.HealthDrift
	if n.Pandemic != nil {
		n.Health -= n.Pandemic.InfectedShare * 20
	}
	n.Health = clamp(n.Health, 0, 100)

	// Youth dividend: a young population puts more hands to work.
	laborTarget := 0.65
	if n.Health < cfg.Demographics.YouthThreshold {
		laborTarget = 0.70
	}
	n.LaborShare += 0.05 * (laborTarget - n.LaborShare)

	// Human capital is re-derived from health each step. An active outbreak
	// pulls workers out of production.
	n.HumanCapital = 0.5 + n.Health/100
	if n.Pandemic != nil {
		n.HumanCapital *= 1 - 0.5*n.Pandemic.InfectedShare
	}

	// Technology growth: base rate, government bonus, research spending.
	tfpGrowth := (cfg.Technology.TFPGrowthBase + traits.GrowthBonus + n.RDShare*cfg.Technology.RDEfficiency) * in.Realism
	tfpGrowth += sh.TFPShock
	n.TFP *= 1 + tfpGrowth
	if n.TFP < 1e-6 {
		guards = append(guards, fmt.Sprintf("%s: TFP clamped to floor", n.Name))
		n.TFP = 1e-6
	}

	// Output for this step. GDP stays the raw production-function value;
	// climate and pandemic damage reduce what is actually usable.
	n.RecomputeGDP(cfg.Economy.CapitalShareAlpha)
	output := n.GDP
	output *= 1 - clamp(in.ClimateDamage, 0, 0.95)
	output *= clamp(in.PandemicMult, 0, 1)

	// Solow capital accumulation from this step's usable output.
	n.Capital = n.Capital*(1-cfg.Economy.DepreciationRate) + cfg.Economy.SavingsRate*output
	if n.Capital < 0 {
		guards = append(guards, fmt.Sprintf("%s: capital clamped to 0", n.Name))
		n.Capital = 0
	}

	// Military stock decays and is replenished from the defense budget.
	n.Military = n.Military*(1-militaryDecay) + output*n.MilitaryShare*militaryConversion
	if n.Military < 0 {
		n.Military = 0
	}

	// Stability drifts toward the government baseline, lifted by growth and
	// dragged by active wars.
	stabilityPull := 0.1 * (traits.StabilityBase - n.Stability)
	n.Stability += stabilityPull + tfpGrowth*50
	if n.AtWar() {
		n.Stability -= 2
	}
	n.Stability = clamp(n.Stability, 0, 100)

	// War weariness fades in peacetime.
	if !n.AtWar() {
		n.Exhaustion *= 0.9
		if n.Exhaustion < 0.01 {
			n.Exhaustion = 0
		}
	}

	// Inflation reverts toward target; heavy debt loads monetize.
	n.Inflation = 0.6*n.Inflation + 0.4*cfg.Economy.InflationTarget
	if n.DebtRatio() > cfg.Economy.DebtCrisisThreshold {
		n.Inflation += 0.02
	}

	// Debt service against the primary balance.
	surplus := 0.02 * output * (n.Stability / 100)
	n.Debt = n.Debt*(1+n.InterestRate) - surplus
	if n.Debt < 0 {
		n.Debt = 0
	}

	// Ruling penalties fade.
	n.TradePenalty *= 0.8
	if n.TradePenalty < 0.001 {
		n.TradePenalty = 0
	}

	return guards
}

// developmentFactor maps GDP per capita to [0,1], saturating around the
// income level of mature economies.
func developmentFactor(gdpPerCap float64) float64 {
	if gdpPerCap <= 1000 {
		return 0
	}
	return clamp(math.Log(gdpPerCap/1000)/math.Log(100), 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
