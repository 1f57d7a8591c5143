package ga

import (
	"context"
	"fmt"
	"math"
	"sync"
)

// evaluatePopulation scores every member exactly once. It returns only after
// all workers have finished, so callers never see a partial score slice.
func evaluatePopulation[C any](ctx context.Context, ops Operators[C], population []C, workers int) ([]float64, error) {
	scores := make([]float64, len(population))
	if workers <= 1 || len(population) <= 1 {
		for i := range population {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			score, err := evaluateMember(ops, population[i], i)
			if err != nil {
				return nil, err
			}
			scores[i] = score
		}
		return scores, nil
	}

	type result struct {
		idx   int
		score float64
		err   error
	}

	// The first failure cancels evalCtx so idle workers stop picking up
	// members and the feeder stops handing them out.
	evalCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan int)
	results := make(chan result, len(population))

	workerCount := workers
	if workerCount > len(population) {
		workerCount = len(population)
	}

	var wg sync.WaitGroup
	wg.Add(workerCount)
	for w := 0; w < workerCount; w++ {
		go func() {
			defer wg.Done()
			for idx := range jobs {
				if evalCtx.Err() != nil {
					continue
				}
				score, err := evaluateMember(ops, population[idx], idx)
				if err != nil {
					cancel()
				}
				results <- result{idx: idx, score: score, err: err}
			}
		}()
	}

feed:
	for i := range population {
		select {
		case jobs <- i:
		case <-evalCtx.Done():
			break feed
		}
	}
	close(jobs)

	wg.Wait()
	close(results)

	var firstErr error
	firstIdx := len(population)
	evaluated := 0
	for res := range results {
		if res.err != nil {
			// Report the lowest failing index among the members that ran.
			if res.idx < firstIdx {
				firstIdx, firstErr = res.idx, res.err
			}
			continue
		}
		scores[res.idx] = res.score
		evaluated++
	}
	if firstErr != nil {
		return nil, firstErr
	}
	if evaluated < len(population) {
		return nil, ctx.Err()
	}
	return scores, nil
}

func evaluateMember[C any](ops Operators[C], member C, idx int) (float64, error) {
	score, err := ops.Fitness(member)
	if err != nil {
		return 0, fmt.Errorf("fitness of member %d: %w", idx, err)
	}
	if math.IsNaN(score) || score < 0 {
		return 0, fmt.Errorf("fitness of member %d: %w: %v", idx, ErrInvalidFitness, score)
	}
	return score, nil
}
