package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"evolver/internal/ga"
)

const DefaultProblem = "cryptarithm"

// RunConfig is the on-disk form of a run request. Fields missing from the
// file keep the values from Default.
type RunConfig struct {
	Problem              string           `yaml:"problem" json:"problem"`
	Threshold            *float64         `yaml:"threshold,omitempty" json:"threshold,omitempty"`
	Population           int              `yaml:"population" json:"population"`
	Generations          int              `yaml:"generations" json:"generations"`
	CrossoverProbability float64          `yaml:"crossover_probability" json:"crossover_probability"`
	MutationProbability  float64          `yaml:"mutation_probability" json:"mutation_probability"`
	Selection            ga.SelectionType `yaml:"selection" json:"selection"`
	TournamentSize       int              `yaml:"tournament_size" json:"tournament_size"`
	Seed                 int64            `yaml:"seed" json:"seed"`
	Workers              int              `yaml:"workers" json:"workers"`
	Params               map[string]any   `yaml:"params,omitempty" json:"params,omitempty"`
}

// Default mirrors ga.DefaultConfig with the threshold left to the problem.
func Default() RunConfig {
	engine := ga.DefaultConfig(0)
	return RunConfig{
		Problem:              DefaultProblem,
		Population:           engine.PopulationSize,
		Generations:          engine.MaxGenerations,
		CrossoverProbability: engine.CrossoverProbability,
		MutationProbability:  engine.MutationProbability,
		Selection:            engine.Selection,
		TournamentSize:       engine.TournamentSize,
		Seed:                 engine.Seed,
		Workers:              engine.Workers,
	}
}

// Load reads a YAML run config from path.
func Load(path string) (RunConfig, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return RunConfig{}, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}
	cfg, err := Parse(buf)
	if err != nil {
		return RunConfig{}, fmt.Errorf("config file '%s': %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over Default. Unknown keys are rejected.
func Parse(data []byte) (RunConfig, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return RunConfig{}, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// EngineConfig converts c to engine settings. defaultThreshold applies when
// the config leaves the threshold unset.
func (c RunConfig) EngineConfig(defaultThreshold float64) ga.Config {
	threshold := defaultThreshold
	if c.Threshold != nil {
		threshold = *c.Threshold
	}
	return ga.Config{
		Threshold:            threshold,
		PopulationSize:       c.Population,
		MaxGenerations:       c.Generations,
		CrossoverProbability: c.CrossoverProbability,
		MutationProbability:  c.MutationProbability,
		Selection:            c.Selection,
		TournamentSize:       c.TournamentSize,
		Seed:                 c.Seed,
		Workers:              c.Workers,
	}
}

// Validate checks everything that can be checked without resolving the
// problem.
func (c RunConfig) Validate() error {
	if c.Problem == "" {
		return fmt.Errorf("%w: problem is required", ga.ErrInvalidConfig)
	}
	return c.EngineConfig(0).Validate()
}

// WithThreshold returns a copy of c with the threshold set.
func (c RunConfig) WithThreshold(v float64) RunConfig {
	c.Threshold = &v
	return c
}
