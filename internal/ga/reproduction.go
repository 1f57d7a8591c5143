package ga

import (
	"fmt"
	"math/rand"
)

type reproductionCounts struct {
	crossovers int
	mutations  int
}

type reproduction[C any] struct {
	ops           Operators[C]
	selector      Selector
	crossoverProb float64
	mutationProb  float64
}

// nextGeneration builds exactly size children from the scored population. For
// odd size the second child of the last pair is discarded.
func (r reproduction[C]) nextGeneration(rng *rand.Rand, population []C, scores []float64, size int) ([]C, reproductionCounts, error) {
	next := make([]C, 0, size)
	var counts reproductionCounts

	for len(next) < size {
		i, j, err := selectParents(rng, r.selector, scores)
		if err != nil {
			return nil, reproductionCounts{}, err
		}

		var first, second C
		if rng.Float64() < r.crossoverProb {
			first, second, err = r.ops.Crossover(rng, population[i], population[j])
			if err != nil {
				return nil, reproductionCounts{}, fmt.Errorf("crossover: %w", err)
			}
			counts.crossovers++
		} else {
			first = r.ops.Clone(population[i])
			second = r.ops.Clone(population[j])
		}

		children := [2]C{first, second}
		for k := range children {
			if rng.Float64() < r.mutationProb {
				mutated, err := r.ops.Mutate(rng, children[k])
				if err != nil {
					return nil, reproductionCounts{}, fmt.Errorf("mutate: %w", err)
				}
				children[k] = mutated
				counts.mutations++
			}
		}

		next = append(next, children[0])
		if len(next) < size {
			next = append(next, children[1])
		}
	}

	return next, counts, nil
}
