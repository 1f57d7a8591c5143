package ga

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
)

// Result is the outcome of a completed run.
type Result[C any] struct {
	// Best is the fittest chromosome seen in any generation of the run.
	Best        C
	Fitness     float64
	Threshold   float64
	Generations int
	Evaluations int
	History     []GenerationDiagnostics
}

// ThresholdMet reports whether the run stopped because the threshold was
// reached rather than because generations ran out.
func (r Result[C]) ThresholdMet() bool {
	return r.Fitness >= r.Threshold
}

// Engine runs the generational loop over caller supplied operators.
type Engine[C any] struct {
	ops      Operators[C]
	cfg      Config
	selector Selector
}

// New validates cfg and builds an engine. Configuration errors are reported
// here, before any operator is called.
func New[C any](ops Operators[C], cfg Config) (*Engine[C], error) {
	if ops == nil {
		return nil, fmt.Errorf("%w: operators are required", ErrInvalidConfig)
	}
	if funcs, ok := ops.(Funcs[C]); ok {
		if missing := funcs.missing(); len(missing) > 0 {
			return nil, fmt.Errorf("%w: missing operators %v", ErrInvalidConfig, missing)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	selector, err := NewSelector(cfg.Selection, cfg.TournamentSize)
	if err != nil {
		return nil, err
	}

	return &Engine[C]{
		ops:      ops,
		cfg:      cfg,
		selector: selector,
	}, nil
}

// Config returns the effective configuration after defaults were applied.
func (e *Engine[C]) Config() Config {
	return e.cfg
}

// Run evolves a fresh population until the best-ever fitness reaches the
// threshold or MaxGenerations generations have been evaluated. Any operator
// failure aborts the run and no partial result is returned. Without an
// injected Config.Rand every run starts from Config.Seed, so repeated runs of
// one engine are identical.
func (e *Engine[C]) Run(ctx context.Context) (Result[C], error) {
	rng := e.cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(e.cfg.Seed))
	}

	log := e.cfg.Logger.With(
		"population", e.cfg.PopulationSize,
		"selection", e.selector.Name(),
		"threshold", e.cfg.Threshold,
	)
	log.Info("run started", "max_generations", e.cfg.MaxGenerations)

	population, err := e.initialPopulation(ctx, rng)
	if err != nil {
		log.Error("run failed", "generation", 0, "error", err)
		return Result[C]{}, err
	}

	repro := reproduction[C]{
		ops:           e.ops,
		selector:      e.selector,
		crossoverProb: e.cfg.CrossoverProbability,
		mutationProb:  e.cfg.MutationProbability,
	}

	var (
		best        C
		bestFitness float64
		hasBest     bool
		evaluations int
		counts      reproductionCounts
	)
	history := make([]GenerationDiagnostics, 0, min(e.cfg.MaxGenerations, 1024))

	for gen := 1; gen <= e.cfg.MaxGenerations; gen++ {
		if err := ctx.Err(); err != nil {
			return Result[C]{}, err
		}

		scores, err := evaluatePopulation(ctx, e.ops, population, e.cfg.Workers)
		if err != nil {
			log.Error("run failed", "generation", gen, "error", err)
			return Result[C]{}, wrapGeneration(gen, err)
		}
		evaluations += len(scores)

		for i, score := range scores {
			if !hasBest || score > bestFitness {
				best = e.ops.Clone(population[i])
				bestFitness = score
				hasBest = true
			}
		}

		diag := summarizeGeneration(scores, gen, bestFitness, counts)
		history = append(history, diag)
		e.cfg.Observer.ObserveGeneration(diag)
		log.Debug("generation evaluated",
			"generation", gen,
			"best_fitness", diag.BestFitness,
			"mean_fitness", diag.MeanFitness,
			"best_ever_fitness", bestFitness,
		)

		if bestFitness >= e.cfg.Threshold || gen == e.cfg.MaxGenerations {
			break
		}

		population, counts, err = repro.nextGeneration(rng, population, scores, e.cfg.PopulationSize)
		if err != nil {
			log.Error("run failed", "generation", gen, "error", err)
			return Result[C]{}, wrapGeneration(gen, err)
		}
	}

	result := Result[C]{
		Best:        best,
		Fitness:     bestFitness,
		Threshold:   e.cfg.Threshold,
		Generations: len(history),
		Evaluations: evaluations,
		History:     history,
	}
	log.Info("run finished",
		"generations", result.Generations,
		"evaluations", result.Evaluations,
		"best_fitness", result.Fitness,
		"threshold_met", result.ThresholdMet(),
	)
	return result, nil
}

func (e *Engine[C]) initialPopulation(ctx context.Context, rng *rand.Rand) ([]C, error) {
	population := make([]C, 0, e.cfg.PopulationSize)
	for i := 0; i < e.cfg.PopulationSize; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		member, err := e.ops.RandomInstance(rng)
		if err != nil {
			return nil, fmt.Errorf("random instance %d: %w", i, err)
		}
		population = append(population, member)
	}
	return population, nil
}

func wrapGeneration(gen int, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("generation %d: %w", gen, err)
}
