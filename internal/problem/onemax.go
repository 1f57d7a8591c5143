package problem

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"evolver/internal/ga"
)

const defaultOneMaxLength = 32

// OneMax maximizes the share of set bits in a fixed length bit string.
type OneMax struct {
	Length int
}

func (o OneMax) Fitness(c []bool) (float64, error) {
	if len(c) != o.Length {
		return 0, fmt.Errorf("bit string length %d, want %d", len(c), o.Length)
	}
	ones := 0
	for _, bit := range c {
		if bit {
			ones++
		}
	}
	return float64(ones) / float64(o.Length), nil
}

func (o OneMax) RandomInstance(rng *rand.Rand) ([]bool, error) {
	c := make([]bool, o.Length)
	for i := range c {
		c[i] = rng.Intn(2) == 1
	}
	return c, nil
}

// Crossover exchanges each position independently with probability one half.
func (o OneMax) Crossover(rng *rand.Rand, a, b []bool) ([]bool, []bool, error) {
	x, y := o.Clone(a), o.Clone(b)
	for i := range x {
		if rng.Intn(2) == 0 {
			x[i], y[i] = y[i], x[i]
		}
	}
	return x, y, nil
}

// Mutate flips one random bit in place.
func (o OneMax) Mutate(rng *rand.Rand, c []bool) ([]bool, error) {
	i := rng.Intn(len(c))
	c[i] = !c[i]
	return c, nil
}

func (o OneMax) Clone(c []bool) []bool {
	return append([]bool(nil), c...)
}

func (o OneMax) Render(c []bool) string {
	var b strings.Builder
	for _, bit := range c {
		if bit {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

// OneMaxProblem exposes OneMax through the registry. Params: "length"
// (default 32).
type OneMaxProblem struct{}

func (OneMaxProblem) Name() string {
	return "onemax"
}

func (OneMaxProblem) Description() string {
	return "maximize the fraction of ones in a bit string"
}

func (OneMaxProblem) DefaultThreshold() float64 {
	return 1.0
}

func (p OneMaxProblem) Run(ctx context.Context, cfg ga.Config, params map[string]any) (Report, error) {
	length, err := paramInt(params, "length", defaultOneMaxLength)
	if err != nil {
		return Report{}, err
	}
	if length <= 0 {
		return Report{}, fmt.Errorf("%w: length must be > 0", ErrInvalidParams)
	}
	ops := OneMax{Length: length}
	return runEngine[[]bool](ctx, p.Name(), ops, cfg, ops.Render)
}
