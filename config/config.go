// Package config loads the run configuration from YAML. Every field has
// a default so the engine runs without a config file.
package config

import (
	"fmt"
	"os"
	"time"

	"appointment-dispatch/models"
	"appointment-dispatch/solver"

	"gopkg.in/yaml.v3"
)

// Duration lets YAML carry Go duration strings like "5s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config is the full run configuration.
type Config struct {
	// Windows are processed in listed order.
	Windows []string `yaml:"windows"`

	Solver struct {
		// Strategy: "optimal" (default) or "greedy".
		Strategy string `yaml:"strategy"`
		// ExpertisePolicy: "all" (default) or "any".
		ExpertisePolicy string `yaml:"expertise_policy"`
		// MatrixConcurrency bounds parallel oracle calls per window.
		MatrixConcurrency int `yaml:"matrix_concurrency"`
	} `yaml:"solver"`

	Oracle struct {
		// Timeout per provider call, e.g. "5s".
		Timeout Duration `yaml:"timeout"`
		// RatePerSecond throttles provider calls; 0 = unlimited.
		RatePerSecond float64 `yaml:"rate_per_second"`
		Burst         int     `yaml:"burst"`
		// OrderedCache keeps direction in the cache key.
		OrderedCache bool `yaml:"ordered_cache"`
		// SpeedKph feeds the built-in haversine provider.
		SpeedKph float64 `yaml:"speed_kph"`
	} `yaml:"oracle"`
}

// Default returns the configuration used when no file is given: the
// classic three-window day, optimal matching, full-coverage expertise.
func Default() *Config {
	c := &Config{Windows: []string{"Morning", "Noon", "Evening"}}
	c.Solver.Strategy = string(solver.StrategyOptimal)
	c.Solver.ExpertisePolicy = string(solver.PolicyAll)
	c.Oracle.Timeout = Duration(10 * time.Second)
	c.Oracle.SpeedKph = 50
	return c
}

// Load reads path, layering the file over defaults.
func Load(path string) (*Config, error) {
	c := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if len(c.Windows) == 0 {
		return fmt.Errorf("config: at least one window is required")
	}
	seen := make(map[string]bool, len(c.Windows))
	for _, w := range c.Windows {
		if w == "" {
			return fmt.Errorf("config: window names must be non-empty")
		}
		if seen[w] {
			return fmt.Errorf("config: duplicate window %q", w)
		}
		seen[w] = true
	}
	switch solver.Strategy(c.Solver.Strategy) {
	case solver.StrategyOptimal, solver.StrategyGreedy:
	default:
		return fmt.Errorf("config: solver strategy must be optimal or greedy (got %q)", c.Solver.Strategy)
	}
	switch solver.ExpertisePolicy(c.Solver.ExpertisePolicy) {
	case solver.PolicyAll, solver.PolicyAny:
	default:
		return fmt.Errorf("config: expertise policy must be all or any (got %q)", c.Solver.ExpertisePolicy)
	}
	if c.Oracle.RatePerSecond < 0 {
		return fmt.Errorf("config: oracle rate must be >= 0")
	}
	return nil
}

// WindowList converts the configured names to the model type.
func (c *Config) WindowList() []models.TimeWindow {
	out := make([]models.TimeWindow, len(c.Windows))
	for i, w := range c.Windows {
		out[i] = models.TimeWindow(w)
	}
	return out
}

// SolverConfig converts the solver section.
func (c *Config) SolverConfig() solver.Config {
	return solver.Config{
		Strategy:          solver.Strategy(c.Solver.Strategy),
		Policy:            solver.ExpertisePolicy(c.Solver.ExpertisePolicy),
		MatrixConcurrency: c.Solver.MatrixConcurrency,
	}
}
