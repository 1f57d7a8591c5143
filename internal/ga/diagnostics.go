package ga

// GenerationDiagnostics summarizes one evaluated generation.
type GenerationDiagnostics struct {
	Generation      int     `json:"generation"`
	BestFitness     float64 `json:"best_fitness"`
	MeanFitness     float64 `json:"mean_fitness"`
	MinFitness      float64 `json:"min_fitness"`
	BestEverFitness float64 `json:"best_ever_fitness"`
	// Crossovers and Mutations count operator applications that produced this
	// generation; both are zero for the initial population.
	Crossovers int `json:"crossovers"`
	Mutations  int `json:"mutations"`
}

// Observer receives diagnostics after each generation is evaluated, on the
// goroutine running the engine.
type Observer interface {
	ObserveGeneration(diag GenerationDiagnostics)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(diag GenerationDiagnostics)

func (f ObserverFunc) ObserveGeneration(diag GenerationDiagnostics) {
	f(diag)
}

// MultiObserver fans diagnostics out in order.
type MultiObserver []Observer

func (m MultiObserver) ObserveGeneration(diag GenerationDiagnostics) {
	for _, o := range m {
		if o != nil {
			o.ObserveGeneration(diag)
		}
	}
}

type nopObserver struct{}

func (nopObserver) ObserveGeneration(GenerationDiagnostics) {}

func summarizeGeneration(scores []float64, generation int, bestEver float64, counts reproductionCounts) GenerationDiagnostics {
	diag := GenerationDiagnostics{
		Generation:      generation,
		BestEverFitness: bestEver,
		Crossovers:      counts.crossovers,
		Mutations:       counts.mutations,
	}
	if len(scores) == 0 {
		return diag
	}

	total := 0.0
	diag.BestFitness = scores[0]
	diag.MinFitness = scores[0]
	for _, s := range scores {
		total += s
		if s > diag.BestFitness {
			diag.BestFitness = s
		}
		if s < diag.MinFitness {
			diag.MinFitness = s
		}
	}
	diag.MeanFitness = total / float64(len(scores))
	return diag
}
