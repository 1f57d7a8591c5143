package ga

import (
	"math/rand"
	"sync"

	"github.com/stretchr/testify/mock"
)

// bitOps is a OneMax operator set over []int bit strings.
type bitOps struct {
	length int

	mu     sync.Mutex
	scored []float64
}

func newBitOps(length int) *bitOps {
	return &bitOps{length: length}
}

func (o *bitOps) Fitness(c []int) (float64, error) {
	ones := 0
	for _, b := range c {
		ones += b
	}
	score := float64(ones)
	o.mu.Lock()
	o.scored = append(o.scored, score)
	o.mu.Unlock()
	return score, nil
}

func (o *bitOps) RandomInstance(rng *rand.Rand) ([]int, error) {
	c := make([]int, o.length)
	for i := range c {
		c[i] = rng.Intn(2)
	}
	return c, nil
}

func (o *bitOps) Crossover(rng *rand.Rand, a, b []int) ([]int, []int, error) {
	point := rng.Intn(len(a))
	x := append(append([]int(nil), a[:point]...), b[point:]...)
	y := append(append([]int(nil), b[:point]...), a[point:]...)
	return x, y, nil
}

func (o *bitOps) Mutate(rng *rand.Rand, c []int) ([]int, error) {
	c[rng.Intn(len(c))] ^= 1
	return c, nil
}

func (o *bitOps) Clone(c []int) []int {
	return append([]int(nil), c...)
}

func (o *bitOps) allScores() []float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]float64(nil), o.scored...)
}

// mockOps is a testify mock of Operators[int].
type mockOps struct {
	mock.Mock
}

func (m *mockOps) Fitness(c int) (float64, error) {
	args := m.Called(c)
	return args.Get(0).(float64), args.Error(1)
}

func (m *mockOps) RandomInstance(rng *rand.Rand) (int, error) {
	args := m.Called(rng)
	return args.Int(0), args.Error(1)
}

func (m *mockOps) Crossover(rng *rand.Rand, a, b int) (int, int, error) {
	args := m.Called(rng, a, b)
	return args.Int(0), args.Int(1), args.Error(2)
}

func (m *mockOps) Mutate(rng *rand.Rand, c int) (int, error) {
	args := m.Called(rng, c)
	return args.Int(0), args.Error(1)
}

func (m *mockOps) Clone(c int) int {
	return c
}

// scriptedSelector returns indices from a fixed script and records them.
type scriptedSelector struct {
	script []int
	picked []int
}

func (s *scriptedSelector) Name() string { return "scripted" }

func (s *scriptedSelector) Pick(_ *rand.Rand, fitness []float64) (int, error) {
	idx := s.script[len(s.picked)%len(s.script)] % len(fitness)
	s.picked = append(s.picked, idx)
	return idx, nil
}

func cloneInt(c int) int { return c }

func baseConfig() Config {
	return Config{
		Threshold:            1e9,
		PopulationSize:       10,
		MaxGenerations:       5,
		CrossoverProbability: 0.7,
		MutationProbability:  0.1,
		Selection:            SelectionRoulette,
		Seed:                 7,
	}
}
