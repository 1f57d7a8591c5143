package stats

import (
	"math"

	"evolver/internal/model"
)

// EvaluationStats aggregates finished runs. Evaluation figures only cover
// runs that met their threshold.
type EvaluationStats struct {
	TotalRuns      int     `json:"total_runs"`
	SuccessRuns    int     `json:"success_runs"`
	SuccessRate    float64 `json:"success_rate"`
	AvgEvaluations float64 `json:"avg_evaluations"`
	StdEvaluations float64 `json:"std_evaluations"`
	MinEvaluations float64 `json:"min_evaluations"`
	MaxEvaluations float64 `json:"max_evaluations"`
	BestFitness    float64 `json:"best_fitness"`
}

func BuildEvaluationStats(runs []model.RunRecord) EvaluationStats {
	result := EvaluationStats{TotalRuns: len(runs)}
	successValues := make([]float64, 0, len(runs))
	for i, run := range runs {
		if i == 0 || run.BestFitness > result.BestFitness {
			result.BestFitness = run.BestFitness
		}
		if run.ThresholdMet {
			result.SuccessRuns++
			successValues = append(successValues, float64(run.Evaluations))
		}
	}
	if result.TotalRuns > 0 {
		result.SuccessRate = float64(result.SuccessRuns) / float64(result.TotalRuns)
	}
	if len(successValues) > 0 {
		result.AvgEvaluations = mean(successValues)
		result.StdEvaluations = std(successValues)
		result.MinEvaluations = successValues[0]
		result.MaxEvaluations = successValues[0]
		for _, value := range successValues[1:] {
			result.MinEvaluations = math.Min(result.MinEvaluations, value)
			result.MaxEvaluations = math.Max(result.MaxEvaluations, value)
		}
	}
	return result
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// std is the population standard deviation.
func std(values []float64) float64 {
	avg := mean(values)
	acc := 0.0
	for _, v := range values {
		acc += (v - avg) * (v - avg)
	}
	return math.Sqrt(acc / float64(len(values)))
}
