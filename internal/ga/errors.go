package ga

import "errors"

var (
	// ErrInvalidConfig is returned by Config.Validate and New before any
	// generation runs.
	ErrInvalidConfig = errors.New("invalid engine config")
	// ErrInvalidFitness marks a negative or NaN score returned by Fitness.
	ErrInvalidFitness = errors.New("invalid fitness score")
	// ErrEmptyPopulation is returned by selectors given no scores.
	ErrEmptyPopulation = errors.New("empty population")
)
