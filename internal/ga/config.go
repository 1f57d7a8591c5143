package ga

import (
	"fmt"
	"math"
	"math/rand"

	"evolver/internal/logging"
)

// SelectionType names a parent selection policy.
type SelectionType string

const (
	SelectionRoulette   SelectionType = "roulette"
	SelectionTournament SelectionType = "tournament"
)

const (
	// DefaultTournamentSize is used when Config.TournamentSize is zero.
	DefaultTournamentSize = 4
	// defaultSeed replaces a zero Config.Seed so unseeded runs stay reproducible.
	defaultSeed int64 = 1
)

// Config is copied into the engine by New and stays fixed for every run of
// that engine.
type Config struct {
	// Threshold stops the run once the best-ever fitness reaches it.
	Threshold            float64
	PopulationSize       int
	MaxGenerations       int
	CrossoverProbability float64
	MutationProbability  float64
	// Selection defaults to roulette.
	Selection SelectionType
	// TournamentSize is the bracket size for tournament selection. Zero means
	// DefaultTournamentSize capped at the population size.
	TournamentSize int
	Seed           int64
	// Workers bounds concurrent fitness evaluation. Zero means 1.
	Workers int

	// Rand overrides the seeded generator. It must not be shared with other
	// goroutines while a run is in progress.
	Rand     *rand.Rand
	Logger   logging.Logger
	Observer Observer
}

// DefaultConfig returns the tunables used by the CLI when nothing is set. The
// tournament size is left zero so it follows the population size.
func DefaultConfig(threshold float64) Config {
	return Config{
		Threshold:            threshold,
		PopulationSize:       100,
		MaxGenerations:       1000,
		CrossoverProbability: 0.7,
		MutationProbability:  0.1,
		Selection:            SelectionRoulette,
		Seed:                 defaultSeed,
		Workers:              1,
	}
}

// Validate reports the first configuration problem, wrapped in ErrInvalidConfig.
func (c Config) Validate() error {
	if math.IsNaN(c.Threshold) {
		return fmt.Errorf("%w: threshold is NaN", ErrInvalidConfig)
	}
	if c.PopulationSize < 2 {
		return fmt.Errorf("%w: population size must be >= 2, got %d", ErrInvalidConfig, c.PopulationSize)
	}
	if c.MaxGenerations < 1 {
		return fmt.Errorf("%w: max generations must be >= 1, got %d", ErrInvalidConfig, c.MaxGenerations)
	}
	if !isProbability(c.CrossoverProbability) {
		return fmt.Errorf("%w: crossover probability must be in [0, 1], got %v", ErrInvalidConfig, c.CrossoverProbability)
	}
	if !isProbability(c.MutationProbability) {
		return fmt.Errorf("%w: mutation probability must be in [0, 1], got %v", ErrInvalidConfig, c.MutationProbability)
	}
	switch c.Selection {
	case "", SelectionRoulette:
	case SelectionTournament:
		if c.TournamentSize < 0 || c.TournamentSize > c.PopulationSize {
			return fmt.Errorf("%w: tournament size must be in [1, %d], got %d", ErrInvalidConfig, c.PopulationSize, c.TournamentSize)
		}
	default:
		return fmt.Errorf("%w: unsupported selection type %q", ErrInvalidConfig, c.Selection)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must be >= 0, got %d", ErrInvalidConfig, c.Workers)
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.Selection == "" {
		c.Selection = SelectionRoulette
	}
	if c.TournamentSize == 0 {
		c.TournamentSize = min(DefaultTournamentSize, c.PopulationSize)
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.Seed == 0 {
		c.Seed = defaultSeed
	}
	if c.Logger == nil {
		c.Logger = logging.NewNop()
	}
	if c.Observer == nil {
		c.Observer = nopObserver{}
	}
	return c
}

func isProbability(p float64) bool {
	return p >= 0 && p <= 1
}
