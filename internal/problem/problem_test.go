package problem

import (
	"context"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evolver/internal/ga"
)

func TestBuiltinsRegistry(t *testing.T) {
	r := Builtins()
	assert.Equal(t, []string{"cryptarithm", "onemax"}, r.Names())

	p, err := r.Resolve("onemax")
	require.NoError(t, err)
	assert.Equal(t, "onemax", p.Name())
	assert.Equal(t, 1.0, p.DefaultThreshold())
	assert.NotEmpty(t, p.Description())

	_, err = r.Resolve("tsp")
	assert.ErrorIs(t, err, ErrProblemNotFound)

	err = r.Register(OneMaxProblem{})
	assert.ErrorIs(t, err, ErrProblemExists)
	assert.Error(t, r.Register(nil))
}

func TestNormalizeName(t *testing.T) {
	cases := map[string]string{
		"onemax":            "onemax",
		"  OneMax ":         "onemax",
		"one_max":           "onemax",
		"One Max":           "onemax",
		"SEND_MORE_MONEY":   "cryptarithm",
		"-cryptarithm-":     "cryptarithm",
		"":                  "",
		"travelling-seller": "travelling-seller",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeName(in), in)
	}

	p, err := Builtins().Resolve("Send More Money")
	require.NoError(t, err)
	assert.Equal(t, "cryptarithm", p.Name())
}

func TestOneMaxOperators(t *testing.T) {
	ops := OneMax{Length: 4}
	rng := rand.New(rand.NewSource(9))

	score, err := ops.Fitness([]bool{true, false, true, true})
	require.NoError(t, err)
	assert.Equal(t, 0.75, score)
	_, err = ops.Fitness([]bool{true})
	assert.Error(t, err)

	a := []bool{true, true, true, true}
	b := []bool{false, false, false, false}
	x, y, err := ops.Crossover(rng, a, b)
	require.NoError(t, err)
	for i := range x {
		assert.NotEqual(t, x[i], y[i], "position %d keeps one bit from each parent", i)
	}
	assert.Equal(t, []bool{true, true, true, true}, a)

	m, err := ops.Mutate(rng, ops.Clone(a))
	require.NoError(t, err)
	assert.Equal(t, "1111", ops.Render(a))
	assert.Equal(t, 3, strings.Count(ops.Render(m), "1"))
}

func TestOneMaxProblemRun(t *testing.T) {
	cfg := ga.DefaultConfig(1.0)
	cfg.PopulationSize = 30
	cfg.MaxGenerations = 400
	cfg.MutationProbability = 0.3
	cfg.Selection = ga.SelectionTournament
	cfg.TournamentSize = 3

	report, err := OneMaxProblem{}.Run(context.Background(), cfg, map[string]any{"length": 10})
	require.NoError(t, err)
	assert.True(t, report.ThresholdMet)
	assert.Equal(t, "1111111111", report.Solution)
	assert.Equal(t, report.Generations*cfg.PopulationSize, report.Evaluations)
}

func TestOneMaxProblemParams(t *testing.T) {
	cfg := ga.DefaultConfig(1.0)
	cfg.MaxGenerations = 1

	report, err := OneMaxProblem{}.Run(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Len(t, report.Solution, defaultOneMaxLength)

	report, err = OneMaxProblem{}.Run(context.Background(), cfg, map[string]any{"length": 6.0})
	require.NoError(t, err)
	assert.Len(t, report.Solution, 6)

	for _, bad := range []any{0, 2.5, "long"} {
		_, err = OneMaxProblem{}.Run(context.Background(), cfg, map[string]any{"length": bad})
		assert.ErrorIs(t, err, ErrInvalidParams, "%v", bad)
	}
}

func TestRunEngineWrapsEngineErrors(t *testing.T) {
	cfg := ga.DefaultConfig(1.0)
	cfg.PopulationSize = 0
	_, err := OneMaxProblem{}.Run(context.Background(), cfg, nil)
	assert.ErrorIs(t, err, ga.ErrInvalidConfig)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = OneMaxProblem{}.Run(ctx, ga.DefaultConfig(1.0), nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "onemax")
}
