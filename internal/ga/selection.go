package ga

import (
	"fmt"
	"math/rand"
)

// Selector chooses one parent index from the scores of the current population.
// Implementations must not keep state between calls.
type Selector interface {
	Name() string
	Pick(rng *rand.Rand, fitness []float64) (int, error)
}

// NewSelector resolves a configured selection policy.
func NewSelector(kind SelectionType, tournamentSize int) (Selector, error) {
	switch kind {
	case "", SelectionRoulette:
		return RouletteSelector{}, nil
	case SelectionTournament:
		if tournamentSize <= 0 {
			tournamentSize = DefaultTournamentSize
		}
		return TournamentSelector{Size: tournamentSize}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported selection type %q", ErrInvalidConfig, kind)
	}
}

// RouletteSelector picks with probability proportional to fitness. When every
// score is zero the pick is uniform.
type RouletteSelector struct{}

func (RouletteSelector) Name() string {
	return string(SelectionRoulette)
}

func (RouletteSelector) Pick(rng *rand.Rand, fitness []float64) (int, error) {
	if rng == nil {
		return 0, fmt.Errorf("random source is required")
	}
	if len(fitness) == 0 {
		return 0, ErrEmptyPopulation
	}

	total := 0.0
	last := -1
	for i, f := range fitness {
		if f > 0 {
			total += f
			last = i
		}
	}
	if total <= 0 {
		return rng.Intn(len(fitness)), nil
	}

	spin := rng.Float64() * total
	acc := 0.0
	for i, f := range fitness {
		if f <= 0 {
			continue
		}
		acc += f
		if spin < acc {
			return i, nil
		}
	}
	// Float rounding can leave spin marginally above the accumulated sum.
	return last, nil
}

// TournamentSelector samples Size members with replacement and returns the
// fittest, breaking ties uniformly at random. A bracket at least as large as
// the population is the whole population.
type TournamentSelector struct {
	Size int
}

func (TournamentSelector) Name() string {
	return string(SelectionTournament)
}

func (s TournamentSelector) Pick(rng *rand.Rand, fitness []float64) (int, error) {
	if rng == nil {
		return 0, fmt.Errorf("random source is required")
	}
	n := len(fitness)
	if n == 0 {
		return 0, ErrEmptyPopulation
	}

	size := s.Size
	if size <= 0 {
		size = DefaultTournamentSize
	}

	best, ties := -1, 0
	consider := func(idx int) {
		switch {
		case best < 0 || fitness[idx] > fitness[best]:
			best, ties = idx, 1
		case fitness[idx] == fitness[best]:
			ties++
			if rng.Intn(ties) == 0 {
				best = idx
			}
		}
	}

	if size >= n {
		for i := 0; i < n; i++ {
			consider(i)
		}
		return best, nil
	}
	for i := 0; i < size; i++ {
		consider(rng.Intn(n))
	}
	return best, nil
}

func selectParents(rng *rand.Rand, selector Selector, fitness []float64) (int, int, error) {
	first, err := selector.Pick(rng, fitness)
	if err != nil {
		return 0, 0, fmt.Errorf("%s selection: %w", selector.Name(), err)
	}
	second, err := selector.Pick(rng, fitness)
	if err != nil {
		return 0, 0, fmt.Errorf("%s selection: %w", selector.Name(), err)
	}
	return first, second, nil
}
