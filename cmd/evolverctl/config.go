package main

import (
	"fmt"
	"strconv"
	"strings"

	"evolver/internal/config"
	"evolver/internal/ga"
)

// paramsFlag collects repeatable --param key=value pairs.
type paramsFlag map[string]any

func (p paramsFlag) String() string {
	if len(p) == 0 {
		return ""
	}
	parts := make([]string, 0, len(p))
	for k, v := range p {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	return strings.Join(parts, ",")
}

func (p paramsFlag) Set(raw string) error {
	key, value, ok := strings.Cut(raw, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return fmt.Errorf("invalid param %q: expected key=value", raw)
	}
	p[key] = parseParamValue(strings.TrimSpace(value))
	return nil
}

// parseParamValue keeps integers and floats typed so problems can read them
// without reparsing.
func parseParamValue(value string) any {
	if v, err := strconv.Atoi(value); err == nil {
		return v
	}
	if v, err := strconv.ParseFloat(value, 64); err == nil {
		return v
	}
	return value
}

type runFlagValues struct {
	Problem        string
	Threshold      float64
	Population     int
	Generations    int
	Crossover      float64
	Mutation       float64
	Selection      string
	TournamentSize int
	Seed           int64
	Workers        int
	Params         map[string]any
}

func loadOrDefaultRunConfig(path string) (config.RunConfig, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// applyRunFlags overrides cfg with the flags the user actually set.
func applyRunFlags(cfg config.RunConfig, setFlags map[string]bool, flags runFlagValues) config.RunConfig {
	if setFlags["problem"] {
		cfg.Problem = flags.Problem
	}
	if setFlags["threshold"] {
		cfg = cfg.WithThreshold(flags.Threshold)
	}
	if setFlags["pop"] {
		cfg.Population = flags.Population
	}
	if setFlags["gens"] {
		cfg.Generations = flags.Generations
	}
	if setFlags["crossover"] {
		cfg.CrossoverProbability = flags.Crossover
	}
	if setFlags["mutation"] {
		cfg.MutationProbability = flags.Mutation
	}
	if setFlags["selection"] {
		cfg.Selection = ga.SelectionType(flags.Selection)
	}
	if setFlags["tournament-size"] {
		cfg.TournamentSize = flags.TournamentSize
	}
	if setFlags["seed"] {
		cfg.Seed = flags.Seed
	}
	if setFlags["workers"] {
		cfg.Workers = flags.Workers
	}
	if len(flags.Params) > 0 {
		merged := make(map[string]any, len(cfg.Params)+len(flags.Params))
		for k, v := range cfg.Params {
			merged[k] = v
		}
		for k, v := range flags.Params {
			merged[k] = v
		}
		cfg.Params = merged
	}
	return cfg
}
