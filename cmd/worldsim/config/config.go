package config

import (
	"fmt"
)

// SimulationConfig holds the complete simulation configuration. All values
// are resolved and validated before a run starts; the engine treats the
// structure as immutable input.
type SimulationConfig struct {
	// Basic simulation settings
	Simulation SimulationSettings `yaml:"simulation"`

	// World generation
	World WorldConfig `yaml:"world"`

	// Economic model parameters
	Economy EconomyConfig `yaml:"economy"`

	// Demographic model parameters
	Demographics DemographicsConfig `yaml:"demographics"`

	// Technology growth parameters
	Technology TechnologyConfig `yaml:"technology"`

	// Military and conflict parameters
	Military MilitaryConfig `yaml:"military"`

	// Stochastic event probabilities
	Events EventsConfig `yaml:"events"`

	// Pandemic model parameters
	Pandemic PandemicConfig `yaml:"pandemic"`

	// Climate model parameters
	Climate ClimateConfig `yaml:"climate"`

	// Logging and reporting
	Logging LoggingConfig `yaml:"logging"`
}

// SimulationSettings holds basic simulation settings
type SimulationSettings struct {
	Name         string `yaml:"name"`
	Description  string `yaml:"description"`
	Seed         uint64 `yaml:"seed"`
	Steps        int    `yaml:"steps"`
	RealismLevel string `yaml:"realism_level"` // "low", "medium", "high"
}

// WorldConfig defines world generation parameters
type WorldConfig struct {
	NumNations        int     `yaml:"num_nations"`
	PopulationLogMean float64 `yaml:"population_log_mean"` // ln(people)
	PopulationLogStd  float64 `yaml:"population_log_std"`
	GDPPerCapLogMean  float64 `yaml:"gdp_per_capita_log_mean"` // ln(dollars)
	GDPPerCapLogStd   float64 `yaml:"gdp_per_capita_log_std"`
	DistanceMin       float64 `yaml:"distance_min"` // pairwise distance range
	DistanceMax       float64 `yaml:"distance_max"`
	StopOnLastTwo     bool    `yaml:"stop_on_last_two"` // halt when <= 2 nations survive
}

// EconomyConfig defines the economic model parameters
type EconomyConfig struct {
	CapitalShareAlpha     float64 `yaml:"capital_share_alpha"` // Cobb-Douglas alpha, in (0,1)
	DepreciationRate      float64 `yaml:"depreciation_rate"`
	SavingsRate           float64 `yaml:"savings_rate"`
	TradeConstant         float64 `yaml:"trade_constant"` // gravity model k
	DistanceFloor         float64 `yaml:"distance_floor"`
	AdvantageBoostMax     float64 `yaml:"advantage_boost_max"` // comparative advantage cap
	AllianceTradeBonus    float64 `yaml:"alliance_trade_bonus"`
	FDIReturnRate         float64 `yaml:"fdi_return_rate"`
	FDIRiskPremium        float64 `yaml:"fdi_risk_premium"`
	ExchangeVolatility    float64 `yaml:"exchange_rate_volatility"`
	ExchangeRateFloor     float64 `yaml:"exchange_rate_floor"`
	InflationTarget       float64 `yaml:"inflation_target"`
	GoldStandardEnabled   bool    `yaml:"gold_standard_enabled"`
	DebtCrisisThreshold   float64 `yaml:"debt_crisis_threshold"` // debt-to-GDP ratio
	TradePenaltyFactor    float64 `yaml:"trade_penalty_factor"`  // WTO ruling penalty
	DisputeProbability    float64 `yaml:"dispute_probability"`
	ResolutionProbability float64 `yaml:"resolution_probability"` // UN resolution proposals
}

// DemographicsConfig defines population dynamics parameters
type DemographicsConfig struct {
	GrowthBase          float64 `yaml:"growth_base"` // mean annual growth
	GrowthStd           float64 `yaml:"growth_std"`
	HealthDriftStd      float64 `yaml:"health_drift_std"`
	YouthThreshold      float64 `yaml:"youth_threshold"` // health below which dividend applies
	HealthMin           float64 `yaml:"health_min"`
	HealthMax           float64 `yaml:"health_max"`
	ExtinctionPop       float64 `yaml:"extinction_population"`
	ExtinctionCapital   float64 `yaml:"extinction_capital"`
	AllianceCap         int     `yaml:"alliance_cap"`
	AllianceProbability float64 `yaml:"alliance_probability"`
	AllianceDecay       float64 `yaml:"alliance_decay"`
}

// TechnologyConfig defines TFP growth parameters
type TechnologyConfig struct {
	TFPGrowthBase float64 `yaml:"tfp_growth_base"`
	RDEfficiency  float64 `yaml:"rd_efficiency"`
	ShockStd      float64 `yaml:"shock_std"`
}

// MilitaryConfig defines conflict model parameters
type MilitaryConfig struct {
	WarBaseProbability    float64 `yaml:"war_base_probability"`
	IdeologyFactor        float64 `yaml:"ideology_factor"`
	ResourceFactor        float64 `yaml:"resource_factor"`
	DemocraticPeace       float64 `yaml:"democratic_peace_discount"` // multiplier < 1
	LanchesterCoefficient float64 `yaml:"lanchester_coefficient"`
	ExhaustionPerStep     float64 `yaml:"exhaustion_per_step"`
	CeasefireExhaustion   float64 `yaml:"ceasefire_exhaustion"`
	CollapseThreshold     float64 `yaml:"collapse_threshold"` // strength below which a side folds
	MaxWarDuration        int     `yaml:"max_war_duration"`
	NuclearThreshold      float64 `yaml:"nuclear_exhaustion_threshold"`
	NuclearUseProbability float64 `yaml:"nuclear_use_probability"`
	ArmsRaceRatio         float64 `yaml:"arms_race_ratio"` // trigger when below rivals by this
	MilitarySpendBase     float64 `yaml:"military_spend_base"`
}

// EventsConfig defines per-step event probabilities
type EventsConfig struct {
	ElectionProbability     float64 `yaml:"election_probability"`
	CoupBaseProbability     float64 `yaml:"coup_base_probability"`
	DisasterProbability     float64 `yaml:"disaster_probability"`
	BreakthroughProbability float64 `yaml:"breakthrough_probability"`
	ScandalProbability      float64 `yaml:"scandal_probability"`
	DefaultProbability      float64 `yaml:"default_probability"`
	PandemicProbability     float64 `yaml:"pandemic_probability"`
}

// PandemicConfig defines epidemiological parameters
type PandemicConfig struct {
	R0Mean          float64 `yaml:"r0_mean"`
	R0Std           float64 `yaml:"r0_std"`
	LethalityMean   float64 `yaml:"lethality_mean"`
	LethalityStd    float64 `yaml:"lethality_std"`
	VaccineTimeMean int     `yaml:"vaccine_time_mean"` // steps until vaccine
}

// ClimateConfig defines the climate model parameters
type ClimateConfig struct {
	GDPEmissionFactor float64 `yaml:"gdp_emission_factor"` // tons CO2 per dollar
	CarbonBudget      float64 `yaml:"carbon_budget"`       // cumulative tons for 2C
	TempScaling       float64 `yaml:"temp_scaling"`
	DamageFactor      float64 `yaml:"damage_factor"` // GDP damage per degree squared
}

// LoggingConfig defines logging and reporting settings
type LoggingConfig struct {
	ConsoleLevel  string `yaml:"console_level"` // "debug", "info", "warn", "error"
	EnableReport  bool   `yaml:"enable_report"`
	ReportPath    string `yaml:"report_path"`
	HistoryDBPath string `yaml:"history_db_path"` // empty disables the sqlite sink
}

// Validate checks if the configuration is valid. A failure here is fatal and
// aborts the run before any step executes.
func (c *SimulationConfig) Validate() error {
	if c.Simulation.Name == "" {
		return fmt.Errorf("simulation name is required")
	}
	if c.Simulation.Steps <= 0 {
		return fmt.Errorf("step count must be positive")
	}
	switch c.Simulation.RealismLevel {
	case "low", "medium", "high":
	default:
		return fmt.Errorf("realism level must be low, medium, or high, got %q", c.Simulation.RealismLevel)
	}

	if c.World.NumNations < 2 {
		return fmt.Errorf("world needs at least 2 nations, got %d", c.World.NumNations)
	}
	if c.World.DistanceMin <= 0 || c.World.DistanceMax < c.World.DistanceMin {
		return fmt.Errorf("distance range [%g, %g] is invalid", c.World.DistanceMin, c.World.DistanceMax)
	}

	if c.Economy.CapitalShareAlpha <= 0 || c.Economy.CapitalShareAlpha >= 1 {
		return fmt.Errorf("capital share alpha must be in (0,1), got %g", c.Economy.CapitalShareAlpha)
	}
	if c.Economy.DepreciationRate < 0 || c.Economy.DepreciationRate > 1 {
		return fmt.Errorf("depreciation rate must be in [0,1], got %g", c.Economy.DepreciationRate)
	}
	if c.Economy.SavingsRate < 0 || c.Economy.SavingsRate > 1 {
		return fmt.Errorf("savings rate must be in [0,1], got %g", c.Economy.SavingsRate)
	}
	if c.Economy.DistanceFloor <= 0 {
		return fmt.Errorf("distance floor must be positive, got %g", c.Economy.DistanceFloor)
	}
	if c.Economy.ExchangeRateFloor <= 0 {
		return fmt.Errorf("exchange rate floor must be positive, got %g", c.Economy.ExchangeRateFloor)
	}

	for name, p := range map[string]float64{
		"war_base_probability":     c.Military.WarBaseProbability,
		"nuclear_use_probability":  c.Military.NuclearUseProbability,
		"election_probability":     c.Events.ElectionProbability,
		"coup_base_probability":    c.Events.CoupBaseProbability,
		"disaster_probability":     c.Events.DisasterProbability,
		"breakthrough_probability": c.Events.BreakthroughProbability,
		"scandal_probability":      c.Events.ScandalProbability,
		"default_probability":      c.Events.DefaultProbability,
		"pandemic_probability":     c.Events.PandemicProbability,
		"dispute_probability":      c.Economy.DisputeProbability,
		"resolution_probability":   c.Economy.ResolutionProbability,
	} {
		if p < 0 || p > 1 {
			return fmt.Errorf("%s must be in [0,1], got %g", name, p)
		}
	}

	if c.Military.DemocraticPeace < 0 || c.Military.DemocraticPeace > 1 {
		return fmt.Errorf("democratic peace discount must be in [0,1], got %g", c.Military.DemocraticPeace)
	}
	if c.Military.MaxWarDuration <= 0 {
		return fmt.Errorf("max war duration must be positive, got %d", c.Military.MaxWarDuration)
	}

	if c.Pandemic.R0Mean <= 0 {
		return fmt.Errorf("pandemic R0 mean must be positive, got %g", c.Pandemic.R0Mean)
	}
	if c.Pandemic.VaccineTimeMean <= 0 {
		return fmt.Errorf("vaccine time mean must be positive, got %d", c.Pandemic.VaccineTimeMean)
	}

	if c.Demographics.ExtinctionPop < 0 || c.Demographics.ExtinctionCapital < 0 {
		return fmt.Errorf("extinction thresholds must be non-negative")
	}

	if c.Climate.CarbonBudget <= 0 {
		return fmt.Errorf("carbon budget must be positive, got %g", c.Climate.CarbonBudget)
	}

	return nil
}

// RealismMultiplier scales growth-side parameters by the configured realism
// tier, matching the empirical calibration mode of the model.
func (c *SimulationConfig) RealismMultiplier() float64 {
	switch c.Simulation.RealismLevel {
	case "low":
		return 0.5
	case "medium":
		return 0.75
	default:
		return 1.0
	}
}

// GetDefaultConfig returns the calibrated default configuration. Constants
// follow published empirical targets: UN population statistics, Penn World
// Table capital shares, SIPRI military expenditure, Uppsala conflict rates.
func GetDefaultConfig() *SimulationConfig {
	return &SimulationConfig{
		Simulation: SimulationSettings{
			Name:         "worldsim",
			Description:  "Deterministic geopolitical world simulation",
			Seed:         42,
			Steps:        120,
			RealismLevel: "high",
		},

		World: WorldConfig{
			NumNations:        12,
			PopulationLogMean: 16.8, // ~20M people
			PopulationLogStd:  1.0,
			GDPPerCapLogMean:  9.6, // ~$15k per capita
			GDPPerCapLogStd:   1.2,
			DistanceMin:       5,
			DistanceMax:       100,
			StopOnLastTwo:     false,
		},

		Economy: EconomyConfig{
			CapitalShareAlpha:     0.33,
			DepreciationRate:      0.05,
			SavingsRate:           0.25,
			TradeConstant:         1e-10,
			DistanceFloor:         1.0,
			AdvantageBoostMax:     0.2,
			AllianceTradeBonus:    0.2,
			FDIReturnRate:         0.06,
			FDIRiskPremium:        0.04,
			ExchangeVolatility:    0.08,
			ExchangeRateFloor:     0.001,
			InflationTarget:       0.02,
			GoldStandardEnabled:   false,
			DebtCrisisThreshold:   1.2,
			TradePenaltyFactor:    0.15,
			DisputeProbability:    0.1,
			ResolutionProbability: 0.1,
		},

		Demographics: DemographicsConfig{
			GrowthBase:          0.012,
			GrowthStd:           0.008,
			HealthDriftStd:      0.5,
			YouthThreshold:      55,
			HealthMin:           30,
			HealthMax:           85,
			ExtinctionPop:       1e5,
			ExtinctionCapital:   1e8,
			AllianceCap:         10,
			AllianceProbability: 0.02,
			AllianceDecay:       0.02,
		},

		Technology: TechnologyConfig{
			TFPGrowthBase: 0.015,
			RDEfficiency:  0.15,
			ShockStd:      0.005,
		},

		Military: MilitaryConfig{
			WarBaseProbability:    0.02,
			IdeologyFactor:        0.005,
			ResourceFactor:        0.015,
			DemocraticPeace:       0.2,
			LanchesterCoefficient: 0.01,
			ExhaustionPerStep:     3.5,
			CeasefireExhaustion:   80,
			CollapseThreshold:     5,
			MaxWarDuration:        12,
			NuclearThreshold:      70,
			NuclearUseProbability: 0.05,
			ArmsRaceRatio:         0.7,
			MilitarySpendBase:     0.02,
		},

		Events: EventsConfig{
			ElectionProbability:     0.25,
			CoupBaseProbability:     0.01,
			DisasterProbability:     0.03,
			BreakthroughProbability: 0.02,
			ScandalProbability:      0.02,
			DefaultProbability:      0.05,
			PandemicProbability:     0.005,
		},

		Pandemic: PandemicConfig{
			R0Mean:          2.5,
			R0Std:           1.0,
			LethalityMean:   0.01,
			LethalityStd:    0.005,
			VaccineTimeMean: 15,
		},

		Climate: ClimateConfig{
			GDPEmissionFactor: 2e-15,
			CarbonBudget:      3.7e12,
			TempScaling:       1.5,
			DamageFactor:      0.001,
		},

		Logging: LoggingConfig{
			ConsoleLevel:  "info",
			EnableReport:  true,
			ReportPath:    "./reports/",
			HistoryDBPath: "",
		},
	}
}
