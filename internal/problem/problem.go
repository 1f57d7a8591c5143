package problem

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"evolver/internal/ga"
)

var (
	ErrProblemExists   = errors.New("problem already registered")
	ErrProblemNotFound = errors.New("problem not found")
	ErrInvalidParams   = errors.New("invalid problem parameters")
)

// Report is the type-erased outcome of a problem run.
type Report struct {
	Problem      string                     `json:"problem"`
	BestFitness  float64                    `json:"best_fitness"`
	Threshold    float64                    `json:"threshold"`
	ThresholdMet bool                       `json:"threshold_met"`
	Solution     string                     `json:"solution"`
	Generations  int                        `json:"generations"`
	Evaluations  int                        `json:"evaluations"`
	History      []ga.GenerationDiagnostics `json:"history,omitempty"`
}

// Problem builds typed operators for one encoding and runs the engine over
// them. Params carries problem specific settings from the run config.
type Problem interface {
	Name() string
	Description() string
	DefaultThreshold() float64
	Run(ctx context.Context, cfg ga.Config, params map[string]any) (Report, error)
}

// Registry maps problem names to implementations.
type Registry struct {
	mu       sync.RWMutex
	problems map[string]Problem
}

func NewRegistry() *Registry {
	return &Registry{problems: make(map[string]Problem)}
}

// Builtins returns a registry holding every problem shipped with evolver.
func Builtins() *Registry {
	r := NewRegistry()
	for _, p := range []Problem{CryptarithmProblem{}, OneMaxProblem{}} {
		if err := r.Register(p); err != nil {
			panic(err)
		}
	}
	return r
}

func (r *Registry) Register(p Problem) error {
	if p == nil || p.Name() == "" {
		return errors.New("problem name is required")
	}

	key := NormalizeName(p.Name())
	if key == "" {
		return errors.New("problem name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.problems[key]; exists {
		return fmt.Errorf("%w: %s", ErrProblemExists, p.Name())
	}
	r.problems[key] = p
	return nil
}

// Resolve looks a problem up by name or alias; see NormalizeName.
func (r *Registry) Resolve(name string) (Problem, error) {
	r.mu.RLock()
	p, ok := r.problems[NormalizeName(name)]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProblemNotFound, name)
	}
	return p, nil
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.problems))
	for _, p := range r.problems {
		names = append(names, p.Name())
	}
	sort.Strings(names)
	return names
}

var nameAliases = map[string]string{
	"send-more-money": "cryptarithm",
	"one-max":         "onemax",
}

// NormalizeName canonicalizes problem names and known aliases.
func NormalizeName(name string) string {
	normalized := strings.TrimSpace(strings.ToLower(name))
	normalized = strings.ReplaceAll(normalized, "_", "-")
	normalized = strings.ReplaceAll(normalized, " ", "-")
	normalized = strings.Trim(normalized, "-")
	if canonical, ok := nameAliases[normalized]; ok {
		return canonical
	}
	return normalized
}

func runEngine[C any](ctx context.Context, name string, ops ga.Operators[C], cfg ga.Config, render func(C) string) (Report, error) {
	engine, err := ga.New[C](ops, cfg)
	if err != nil {
		return Report{}, err
	}
	result, err := engine.Run(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("%s: %w", name, err)
	}
	return Report{
		Problem:      name,
		BestFitness:  result.Fitness,
		Threshold:    result.Threshold,
		ThresholdMet: result.ThresholdMet(),
		Solution:     render(result.Best),
		Generations:  result.Generations,
		Evaluations:  result.Evaluations,
		History:      result.History,
	}, nil
}

func paramString(params map[string]any, key, fallback string) (string, error) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return fallback, nil
	}
	v, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s must be a string", ErrInvalidParams, key)
	}
	return v, nil
}

func paramInt(params map[string]any, key string, fallback int) (int, error) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return fallback, nil
	}
	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != float64(int(v)) {
			return 0, fmt.Errorf("%w: %s must be an integer", ErrInvalidParams, key)
		}
		return int(v), nil
	default:
		return 0, fmt.Errorf("%w: %s must be an integer", ErrInvalidParams, key)
	}
}
