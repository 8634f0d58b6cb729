package reporting

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"

	"github.com/meridian-sims/worldsim/cmd/worldsim/config"
	"github.com/meridian-sims/worldsim/cmd/worldsim/core"
)

// Report is the end-of-run summary document written alongside the raw
// history. It is derived entirely from the snapshot sequence.
type Report struct {
	Metadata NationsMetadata  `json:"metadata"`
	Summary  ExecutiveSummary `json:"summary"`
	Nations  []NationOutcome  `json:"nations"`
	Timeline []TimelinePoint  `json:"timeline"`
	Events   []core.Event     `json:"events"`
}

// NationsMetadata identifies the run the report was generated from.
type NationsMetadata struct {
	RunID       string    `json:"run_id"`
	GeneratedAt time.Time `json:"generated_at"`
	Seed        uint64    `json:"seed"`
	Steps       int       `json:"steps"`
	Nations     int       `json:"nations"`
	Version     string    `json:"version"`
}

// ExecutiveSummary is the high-level outcome block.
type ExecutiveSummary struct {
	SurvivingNations   int     `json:"surviving_nations"`
	ExtinctNations     int     `json:"extinct_nations"`
	TotalGDP           float64 `json:"total_gdp"`
	TotalPopulation    float64 `json:"total_population"`
	FinalGini          float64 `json:"final_gini"`
	ClimateIndex       float64 `json:"climate_index"`
	TotalWars          int     `json:"total_wars"`
	NuclearDetonations int     `json:"nuclear_detonations"`
	DominantNation     string  `json:"dominant_nation"`
}

// NationOutcome is the per-nation closing line.
type NationOutcome struct {
	ID           int     `json:"id"`
	Name         string  `json:"name"`
	Status       string  `json:"status"`
	Government   string  `json:"government"`
	Population   float64 `json:"population"`
	GDP          float64 `json:"gdp"`
	GDPPerCapita float64 `json:"gdp_per_capita"`
	Military     float64 `json:"military"`
	Health       float64 `json:"health"`
	Allies       int     `json:"allies"`
	ExchangeRate float64 `json:"exchange_rate"`
	Nuclear      bool    `json:"nuclear"`
}

// TimelinePoint samples the global aggregates for one step.
type TimelinePoint struct {
	Step               int     `json:"step"`
	TotalGDP           float64 `json:"total_gdp"`
	TotalPopulation    float64 `json:"total_population"`
	Gini               float64 `json:"gini"`
	ClimateIndex       float64 `json:"climate_index"`
	LivingNations      int     `json:"living_nations"`
	ActiveConflicts    int     `json:"active_conflicts"`
	NuclearDetonations int     `json:"nuclear_detonations"`
}

// Generator builds and writes run reports.
type Generator struct {
	cfg *config.SimulationConfig
}

// NewGenerator creates a report generator for the run configuration.
func NewGenerator(cfg *config.SimulationConfig) *Generator {
	return &Generator{cfg: cfg}
}

// Build assembles a report from the completed history.
func (g *Generator) Build(history []*core.WorldState) *Report {
	report := &Report{
		Metadata: NationsMetadata{
			RunID:       uuid.New().String(),
			GeneratedAt: time.Now().UTC(),
			Seed:        g.cfg.Simulation.Seed,
			Steps:       len(history),
			Nations:     g.cfg.World.NumNations,
			Version:     "1.0",
		},
	}
	if len(history) == 0 {
		return report
	}

	final := history[len(history)-1]
	report.Summary = ExecutiveSummary{
		SurvivingNations:   final.Aggregates.LivingNations,
		ExtinctNations:     len(final.Nations) - final.Aggregates.LivingNations,
		TotalGDP:           final.Aggregates.TotalGDP,
		TotalPopulation:    final.Aggregates.TotalPopulation,
		FinalGini:          final.Aggregates.Gini,
		ClimateIndex:       final.Aggregates.ClimateIndex,
		TotalWars:          final.Aggregates.WarCount,
		NuclearDetonations: final.Aggregates.NuclearDetonations,
	}

	outcomes := make([]NationOutcome, 0, len(final.Nations))
	for _, n := range final.Nations {
		status := "alive"
		if !n.Alive() {
			status = fmt.Sprintf("extinct (step %d)", n.ExtinctSince)
		}
		perCap := 0.0
		if n.Population > 0 {
			perCap = n.GDP / n.Population
		}
		outcomes = append(outcomes, NationOutcome{
			ID:           n.ID,
			Name:         n.Name,
			Status:       status,
			Government:   n.Government.String(),
			Population:   n.Population,
			GDP:          n.GDP,
			GDPPerCapita: perCap,
			Military:     n.Military,
			Health:       n.Health,
			Allies:       len(n.Allies),
			ExchangeRate: n.ExchangeRate,
			Nuclear:      n.Nuclear,
		})
	}
	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].GDP > outcomes[j].GDP })
	report.Nations = outcomes
	if len(outcomes) > 0 {
		report.Summary.DominantNation = outcomes[0].Name
	}

	for _, state := range history {
		report.Timeline = append(report.Timeline, TimelinePoint{
			Step:               state.Step,
			TotalGDP:           state.Aggregates.TotalGDP,
			TotalPopulation:    state.Aggregates.TotalPopulation,
			Gini:               state.Aggregates.Gini,
			ClimateIndex:       state.Aggregates.ClimateIndex,
			LivingNations:      state.Aggregates.LivingNations,
			ActiveConflicts:    len(state.Conflicts),
			NuclearDetonations: state.Aggregates.NuclearDetonations,
		})
		report.Events = append(report.Events, state.Events...)
	}

	return report
}

// Write saves the report as JSON under the configured output directory and
// returns the file path.
func (g *Generator) Write(report *Report) (string, error) {
	dir := g.cfg.Logging.ReportPath
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	name := fmt.Sprintf("worldsim_%s_%s.json",
		report.Metadata.GeneratedAt.Format("20060102_150405"), report.Metadata.RunID[:8])
	path := filepath.Join(dir, name)

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}

// PrintSummary renders the closing summary to the console.
func (g *Generator) PrintSummary(report *Report) {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	red := color.New(color.FgRed)
	cyan := color.New(color.FgCyan)

	fmt.Println()
	bold.Println("=== World Simulation Summary ===")
	fmt.Printf("Run:      %s (seed %d, %d steps)\n",
		report.Metadata.RunID[:8], report.Metadata.Seed, report.Metadata.Steps)

	s := report.Summary
	fmt.Printf("World:    ")
	green.Printf("%d surviving", s.SurvivingNations)
	if s.ExtinctNations > 0 {
		fmt.Printf(" / ")
		red.Printf("%d extinct", s.ExtinctNations)
	}
	fmt.Println()

	fmt.Printf("Economy:  total GDP %.3g, population %.3g, Gini %.3f\n",
		s.TotalGDP, s.TotalPopulation, s.FinalGini)
	fmt.Printf("Climate:  anomaly %.2f degrees\n", s.ClimateIndex)

	fmt.Printf("Conflict: ")
	if s.TotalWars == 0 {
		green.Println("no wars")
	} else {
		yellow.Printf("%d wars", s.TotalWars)
		if s.NuclearDetonations > 0 {
			fmt.Printf(", ")
			red.Printf("%d nuclear detonations", s.NuclearDetonations)
		}
		fmt.Println()
	}

	if s.DominantNation != "" {
		fmt.Printf("Leading:  ")
		cyan.Println(s.DominantNation)
	}

	limit := len(report.Nations)
	if limit > 5 {
		limit = 5
	}
	if limit > 0 {
		fmt.Println()
		bold.Println("Top economies:")
		for i := 0; i < limit; i++ {
			n := report.Nations[i]
			fmt.Printf("  %d. %-20s %-12s GDP %.3g  pop %.3g  (%s)\n",
				i+1, n.Name, n.Government, n.GDP, n.Population, n.Status)
		}
	}
	fmt.Println()
}
