package ga

import "math/rand"

// Operators is the strategy set a caller injects into the engine. The engine
// never looks inside C.
//
// Fitness must be deterministic for a fixed chromosome, must not modify it and
// must be safe for concurrent use when Config.Workers > 1. Crossover must not
// modify its inputs and must return children that share no memory with them.
// Mutate may copy or modify in place; the engine always continues with the
// returned value.
//
// Clone returns a deep copy. The engine clones parents that pass through
// reproduction unchanged and the best-ever record, so an in-place Mutate never
// reaches a chromosome held elsewhere. Value types may return c as is.
type Operators[C any] interface {
	Fitness(c C) (float64, error)
	RandomInstance(rng *rand.Rand) (C, error)
	Crossover(rng *rand.Rand, a, b C) (C, C, error)
	Mutate(rng *rand.Rand, c C) (C, error)
	Clone(c C) C
}

// Funcs adapts plain functions to Operators. Every field is required.
type Funcs[C any] struct {
	FitnessFn        func(c C) (float64, error)
	RandomInstanceFn func(rng *rand.Rand) (C, error)
	CrossoverFn      func(rng *rand.Rand, a, b C) (C, C, error)
	MutateFn         func(rng *rand.Rand, c C) (C, error)
	CloneFn          func(c C) C
}

func (f Funcs[C]) Fitness(c C) (float64, error) {
	return f.FitnessFn(c)
}

func (f Funcs[C]) RandomInstance(rng *rand.Rand) (C, error) {
	return f.RandomInstanceFn(rng)
}

func (f Funcs[C]) Crossover(rng *rand.Rand, a, b C) (C, C, error) {
	return f.CrossoverFn(rng, a, b)
}

func (f Funcs[C]) Mutate(rng *rand.Rand, c C) (C, error) {
	return f.MutateFn(rng, c)
}

func (f Funcs[C]) Clone(c C) C {
	return f.CloneFn(c)
}

func (f Funcs[C]) missing() []string {
	var names []string
	if f.FitnessFn == nil {
		names = append(names, "fitness")
	}
	if f.RandomInstanceFn == nil {
		names = append(names, "random instance")
	}
	if f.CrossoverFn == nil {
		names = append(names, "crossover")
	}
	if f.MutateFn == nil {
		names = append(names, "mutate")
	}
	if f.CloneFn == nil {
		names = append(names, "clone")
	}
	return names
}
