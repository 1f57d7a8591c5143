package ga

import (
	"context"
	"errors"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func indexOps(fitness func(c int) (float64, error)) Funcs[int] {
	return Funcs[int]{
		FitnessFn:        fitness,
		RandomInstanceFn: func(*rand.Rand) (int, error) { return 0, nil },
		CrossoverFn:      func(_ *rand.Rand, a, b int) (int, int, error) { return a, b, nil },
		MutateFn:         func(_ *rand.Rand, c int) (int, error) { return c, nil },
		CloneFn:          cloneInt,
	}
}

func indexPopulation(size int) []int {
	population := make([]int, size)
	for i := range population {
		population[i] = i
	}
	return population
}

func TestEvaluatePopulationScoresInOrder(t *testing.T) {
	ops := indexOps(func(c int) (float64, error) { return float64(c) * 2, nil })
	for _, workers := range []int{1, 3, 16} {
		scores, err := evaluatePopulation(context.Background(), ops, indexPopulation(9), workers)
		require.NoError(t, err)
		assert.Equal(t, []float64{0, 2, 4, 6, 8, 10, 12, 14, 16}, scores, "workers %d", workers)
	}
}

func TestEvaluatePopulationStopsAfterFirstFailure(t *testing.T) {
	boom := errors.New("scoring failed")
	var calls atomic.Int64
	ops := indexOps(func(c int) (float64, error) {
		calls.Add(1)
		if c == 0 {
			return 0, boom
		}
		time.Sleep(2 * time.Millisecond)
		return 1, nil
	})

	scores, err := evaluatePopulation(context.Background(), ops, indexPopulation(200), 2)
	require.ErrorIs(t, err, boom)
	assert.Nil(t, scores)
	assert.Less(t, calls.Load(), int64(50))
}

func TestEvaluatePopulationHonoursCancelledContext(t *testing.T) {
	var calls atomic.Int64
	ops := indexOps(func(int) (float64, error) {
		calls.Add(1)
		return 1, nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, workers := range []int{1, 4} {
		_, err := evaluatePopulation(ctx, ops, indexPopulation(20), workers)
		require.ErrorIs(t, err, context.Canceled, "workers %d", workers)
	}
	assert.Less(t, calls.Load(), int64(20))
}
