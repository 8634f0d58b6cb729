package reporting

import (
	"path/filepath"
	"testing"

	"github.com/meridian-sims/worldsim/cmd/worldsim/config"
	"github.com/meridian-sims/worldsim/cmd/worldsim/core"
)

func sampleHistory() []*core.WorldState {
	alive := core.NewNation(0, "Meridia")
	alive.Population = 2e7
	alive.Capital = 9e11
	alive.TFP = 2
	alive.RecomputeGDP(0.33)

	dead := core.NewNation(1, "Drakonia")
	dead.MarkExtinct(1)

	return []*core.WorldState{
		{
			Step:    0,
			Nations: []*core.Nation{alive.Clone(), dead.Clone()},
			Aggregates: core.Aggregates{
				TotalGDP:        alive.GDP,
				TotalPopulation: alive.Population,
				LivingNations:   1,
				WarCount:        1,
			},
			Events: []core.Event{
				{Step: 0, NationID: 0, Category: core.EventDisaster, Detail: "flood"},
			},
		},
		{
			Step:    1,
			Nations: []*core.Nation{alive.Clone(), dead.Clone()},
			Aggregates: core.Aggregates{
				TotalGDP:           alive.GDP * 1.02,
				TotalPopulation:    alive.Population,
				LivingNations:      1,
				WarCount:           2,
				NuclearDetonations: 1,
			},
		},
	}
}

func TestBuildReportSummary(t *testing.T) {
	cfg := config.GetDefaultConfig()
	gen := NewGenerator(cfg)
	report := gen.Build(sampleHistory())

	if report.Summary.SurvivingNations != 1 {
		t.Errorf("surviving = %d, want 1", report.Summary.SurvivingNations)
	}
	if report.Summary.ExtinctNations != 1 {
		t.Errorf("extinct = %d, want 1", report.Summary.ExtinctNations)
	}
	if report.Summary.TotalWars != 2 {
		t.Errorf("wars = %d, want 2 from final snapshot", report.Summary.TotalWars)
	}
	if report.Summary.NuclearDetonations != 1 {
		t.Errorf("detonations = %d, want 1", report.Summary.NuclearDetonations)
	}
	if report.Summary.DominantNation != "Meridia" {
		t.Errorf("dominant = %q, want Meridia", report.Summary.DominantNation)
	}
	if len(report.Timeline) != 2 {
		t.Errorf("timeline length = %d, want 2", len(report.Timeline))
	}
	if len(report.Events) != 1 {
		t.Errorf("event count = %d, want 1", len(report.Events))
	}
}

func TestBuildReportEmptyHistory(t *testing.T) {
	gen := NewGenerator(config.GetDefaultConfig())
	report := gen.Build(nil)
	if report.Metadata.Steps != 0 || len(report.Nations) != 0 {
		t.Error("empty history should produce an empty report body")
	}
}

func TestWriteReportCreatesFile(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Logging.ReportPath = t.TempDir()
	gen := NewGenerator(cfg)

	path, err := gen.Write(gen.Build(sampleHistory()))
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if filepath.Dir(path) != cfg.Logging.ReportPath {
		t.Errorf("report written to %s, want under %s", path, cfg.Logging.ReportPath)
	}
}
