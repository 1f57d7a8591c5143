package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"evolver/internal/ga"
)

// Collector exports engine progress on its own registry so several clients
// in one process do not collide on the default one.
type Collector struct {
	registry    *prometheus.Registry
	runs        *prometheus.CounterVec
	generations prometheus.Counter
	evaluations prometheus.Counter
	crossovers  prometheus.Counter
	mutations   prometheus.Counter
	bestFitness *prometheus.GaugeVec
	meanFitness *prometheus.GaugeVec
}

func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "evolver_runs_total",
			Help: "Completed runs by problem and outcome.",
		}, []string{"problem", "outcome"}),
		generations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "evolver_generations_total",
			Help: "Generations evaluated across all runs.",
		}),
		evaluations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "evolver_evaluations_total",
			Help: "Fitness evaluations across all runs.",
		}),
		crossovers: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "evolver_crossovers_total",
			Help: "Crossover operations applied.",
		}),
		mutations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "evolver_mutations_total",
			Help: "Mutation operations applied.",
		}),
		bestFitness: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "evolver_best_fitness",
			Help: "Best-ever fitness of a run.",
		}, []string{"run_id"}),
		meanFitness: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "evolver_mean_fitness",
			Help: "Mean fitness of the latest generation of a run.",
		}, []string{"run_id"}),
	}
	c.registry.MustRegister(c.runs, c.generations, c.evaluations, c.crossovers, c.mutations, c.bestFitness, c.meanFitness)
	return c
}

// ForRun returns an observer that records generations under runID. Every
// generation counts populationSize evaluations.
func (c *Collector) ForRun(runID string, populationSize int) ga.Observer {
	best := c.bestFitness.With(prometheus.Labels{"run_id": runID})
	mean := c.meanFitness.With(prometheus.Labels{"run_id": runID})
	return ga.ObserverFunc(func(diag ga.GenerationDiagnostics) {
		c.generations.Inc()
		c.evaluations.Add(float64(populationSize))
		c.crossovers.Add(float64(diag.Crossovers))
		c.mutations.Add(float64(diag.Mutations))
		best.Set(diag.BestEverFitness)
		mean.Set(diag.MeanFitness)
	})
}

// RunFinished counts a run outcome: "threshold_met", "exhausted" or "failed".
func (c *Collector) RunFinished(problem, outcome string) {
	c.runs.With(prometheus.Labels{"problem": problem, "outcome": outcome}).Inc()
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
