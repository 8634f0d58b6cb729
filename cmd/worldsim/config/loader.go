package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file
func LoadConfig(path string) (*SimulationConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := GetDefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadConfigOrDefault loads configuration from a file, falling back to the
// calibrated defaults when the file does not exist.
func LoadConfigOrDefault(path string) (*SimulationConfig, error) {
	if path == "" {
		cfg := GetDefaultConfig()
		applyEnvOverrides(cfg)
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
		return cfg, nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := GetDefaultConfig()
		applyEnvOverrides(cfg)
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
		return cfg, nil
	}

	return LoadConfig(path)
}

// SaveConfig writes the configuration to a YAML file
func SaveConfig(cfg *SimulationConfig, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// applyEnvOverrides applies WORLDSIM_* environment variable overrides for
// the settings most commonly varied between runs.
func applyEnvOverrides(cfg *SimulationConfig) {
	if v := os.Getenv("WORLDSIM_SEED"); v != "" {
		if seed, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Simulation.Seed = seed
		}
	}
	if v := os.Getenv("WORLDSIM_STEPS"); v != "" {
		if steps, err := strconv.Atoi(v); err == nil {
			cfg.Simulation.Steps = steps
		}
	}
	if v := os.Getenv("WORLDSIM_NATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.World.NumNations = n
		}
	}
	if v := os.Getenv("WORLDSIM_REALISM"); v != "" {
		cfg.Simulation.RealismLevel = v
	}
	if v := os.Getenv("WORLDSIM_LOG_LEVEL"); v != "" {
		cfg.Logging.ConsoleLevel = v
	}
	if v := os.Getenv("WORLDSIM_HISTORY_DB"); v != "" {
		cfg.Logging.HistoryDBPath = v
	}
}
