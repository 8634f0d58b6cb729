package simulation

import (
	"context"
	"fmt"
	"sync"

	"github.com/meridian-sims/worldsim/cmd/worldsim/config"
	"github.com/meridian-sims/worldsim/cmd/worldsim/core"
	"github.com/meridian-sims/worldsim/cmd/worldsim/reporting"
	"github.com/meridian-sims/worldsim/pkg/logger"
	"github.com/meridian-sims/worldsim/pkg/simulation"
)

// WorldSimulation drives a full geopolitical world run: world generation,
// the step loop, and end-of-run reporting.
type WorldSimulation struct {
	cfg *config.SimulationConfig
	log logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewWorldSimulation creates an unconfigured instance.
func NewWorldSimulation() simulation.Simulation {
	return &WorldSimulation{log: logger.New().WithPrefix("worldsim")}
}

// Name returns the simulation name
func (s *WorldSimulation) Name() string {
	return "World Simulation"
}

// Description returns the simulation description
func (s *WorldSimulation) Description() string {
	return "Deterministic turn-based geopolitical simulation of nation economies, diplomacy, and conflict"
}

// Configure applies prompt and environment parameters over the calibrated
// defaults. Validation happens here so a bad run never starts.
func (s *WorldSimulation) Configure(params map[string]interface{}) error {
	cfg, err := config.LoadConfigOrDefault(stringParam(params, "config_file"))
	if err != nil {
		return err
	}

	if v, ok := intParam(params, "num_nations"); ok {
		cfg.World.NumNations = v
	}
	if v, ok := intParam(params, "steps"); ok {
		cfg.Simulation.Steps = v
	}
	if v, ok := intParam(params, "seed"); ok {
		cfg.Simulation.Seed = uint64(v)
	}
	if v := stringParam(params, "realism_level"); v != "" {
		cfg.Simulation.RealismLevel = v
	}
	if v, ok := boolParam(params, "gold_standard"); ok {
		cfg.Economy.GoldStandardEnabled = v
	}
	if v, ok := boolParam(params, "stop_on_last_two"); ok {
		cfg.World.StopOnLastTwo = v
	}
	if v := stringParam(params, "log_level"); v != "" {
		cfg.Logging.ConsoleLevel = v
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	s.cfg = cfg
	logger.SetLevel(logger.ParseLevel(cfg.Logging.ConsoleLevel))
	return nil
}

// Run executes the simulation until completion or cancellation.
func (s *WorldSimulation) Run(ctx context.Context) error {
	if s.cfg == nil {
		return fmt.Errorf("simulation not configured")
	}

	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	s.log.Infof("generating world: %d nations, seed %d", s.cfg.World.NumNations, s.cfg.Simulation.Seed)
	world, err := core.NewWorld(s.cfg, s.log)
	if err != nil {
		return err
	}

	s.log.Infof("running %d steps", s.cfg.Simulation.Steps)
	runErr := world.Run(ctx)
	if runErr != nil && runErr != context.Canceled {
		return runErr
	}

	s.report(world)
	return runErr
}

// Stop cancels a run in progress. The step in flight completes first.
func (s *WorldSimulation) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	return nil
}

// report writes the run report and, when configured, the sqlite history.
func (s *WorldSimulation) report(world *core.World) {
	history := world.History()
	if len(history) == 0 {
		return
	}

	gen := reporting.NewGenerator(s.cfg)
	rep := gen.Build(history)
	gen.PrintSummary(rep)

	if s.cfg.Logging.EnableReport {
		path, err := gen.Write(rep)
		if err != nil {
			s.log.Errorf("failed to write report: %v", err)
		} else {
			logger.Successf("Report written to %s", path)
		}
	}

	if s.cfg.Logging.HistoryDBPath != "" {
		store, err := reporting.OpenHistoryStore(s.cfg.Logging.HistoryDBPath)
		if err != nil {
			s.log.Errorf("failed to open history store: %v", err)
			return
		}
		defer store.Close()
		if err := store.SaveRun(rep.Metadata.RunID, s.cfg.Simulation.Seed, s.cfg.World.NumNations, history); err != nil {
			s.log.Errorf("failed to save history: %v", err)
			return
		}
		logger.Successf("History saved to %s", s.cfg.Logging.HistoryDBPath)
	}
}

func stringParam(params map[string]interface{}, key string) string {
	if v, ok := params[key].(string); ok {
		return v
	}
	return ""
}

func intParam(params map[string]interface{}, key string) (int, bool) {
	switch v := params[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}

func boolParam(params map[string]interface{}, key string) (bool, bool) {
	if v, ok := params[key].(bool); ok {
		return v, true
	}
	return false, false
}

func init() {
	if err := simulation.DefaultRegistry.Register("World Simulation", NewWorldSimulation); err != nil {
		logger.Errorf("Failed to register World Simulation: %v", err)
	}
}
