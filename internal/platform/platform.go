package platform

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"evolver/internal/config"
	"evolver/internal/ga"
	"evolver/internal/logging"
	"evolver/internal/metrics"
	"evolver/internal/model"
	"evolver/internal/problem"
	"evolver/internal/storage"
)

var (
	ErrNotInitialized = errors.New("platform is not initialized")
	ErrRunActive      = errors.New("run already active")
	ErrRunNotActive   = errors.New("run not active")
)

type Config struct {
	Store    storage.Store
	Problems *problem.Registry
	Metrics  *metrics.Collector
	Logger   logging.Logger
	// Now is the clock used for run timestamps. Defaults to time.Now.
	Now func() time.Time
}

// Execution is a finished, persisted run.
type Execution struct {
	Run         model.RunRecord
	Diagnostics []ga.GenerationDiagnostics
}

// Platform resolves problems, runs the engine and persists the outcome. Runs
// may execute concurrently; each one can be stopped by id.
type Platform struct {
	store    storage.Store
	problems *problem.Registry
	metrics  *metrics.Collector
	log      logging.Logger
	now      func() time.Time

	mu      sync.RWMutex
	started bool
	runs    map[string]context.CancelFunc
}

func New(cfg Config) *Platform {
	p := &Platform{
		store:    cfg.Store,
		problems: cfg.Problems,
		metrics:  cfg.Metrics,
		log:      cfg.Logger,
		now:      cfg.Now,
		runs:     make(map[string]context.CancelFunc),
	}
	if p.problems == nil {
		p.problems = problem.Builtins()
	}
	if p.metrics == nil {
		p.metrics = metrics.NewCollector()
	}
	if p.log == nil {
		p.log = logging.NewNop()
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p
}

func (p *Platform) Init(ctx context.Context) error {
	if p.store == nil {
		return fmt.Errorf("store is required")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return nil
	}
	if err := p.store.Init(ctx); err != nil {
		return err
	}
	p.started = true
	return nil
}

func (p *Platform) Store() storage.Store {
	return p.store
}

func (p *Platform) Problems() *problem.Registry {
	return p.problems
}

func (p *Platform) Metrics() *metrics.Collector {
	return p.metrics
}

// Execute runs cfg under runID and stores the record and diagnostics. A run
// that fails is not persisted.
func (p *Platform) Execute(ctx context.Context, runID string, cfg config.RunConfig) (Execution, error) {
	if runID == "" {
		return Execution{}, fmt.Errorf("run id is required")
	}
	if err := cfg.Validate(); err != nil {
		return Execution{}, err
	}
	prob, err := p.problems.Resolve(cfg.Problem)
	if err != nil {
		return Execution{}, err
	}
	cfg.Problem = prob.Name()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := p.registerRun(runID, cancel); err != nil {
		return Execution{}, err
	}
	defer p.unregisterRun(runID)

	log := p.log.With("run_id", runID, "problem", prob.Name())
	engineCfg := cfg.EngineConfig(prob.DefaultThreshold())
	engineCfg.Logger = log
	engineCfg.Observer = p.metrics.ForRun(runID, engineCfg.PopulationSize)

	startedAt := p.now().UTC()
	report, err := prob.Run(runCtx, engineCfg, cfg.Params)
	if err != nil {
		p.metrics.RunFinished(prob.Name(), "failed")
		return Execution{}, err
	}
	finishedAt := p.now().UTC()

	outcome := "exhausted"
	if report.ThresholdMet {
		outcome = "threshold_met"
	}
	p.metrics.RunFinished(prob.Name(), outcome)

	record := model.RunRecord{
		VersionedRecord: storage.Versioned(),
		RunID:           runID,
		Problem:         prob.Name(),
		Config:          cfg,
		Threshold:       report.Threshold,
		BestFitness:     report.BestFitness,
		ThresholdMet:    report.ThresholdMet,
		Solution:        report.Solution,
		Generations:     report.Generations,
		Evaluations:     report.Evaluations,
		StartedAt:       startedAt,
		FinishedAt:      finishedAt,
	}
	if err := p.store.SaveRun(ctx, record); err != nil {
		return Execution{}, fmt.Errorf("save run %s: %w", runID, err)
	}
	if err := p.store.SaveGenerationDiagnostics(ctx, runID, report.History); err != nil {
		return Execution{}, fmt.Errorf("save diagnostics %s: %w", runID, err)
	}
	return Execution{Run: record, Diagnostics: report.History}, nil
}

// StopRun cancels an in-flight run.
func (p *Platform) StopRun(runID string) error {
	p.mu.RLock()
	cancel, ok := p.runs[runID]
	p.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrRunNotActive, runID)
	}
	cancel()
	return nil
}

// ActiveRuns reports how many runs are executing.
func (p *Platform) ActiveRuns() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.runs)
}

// Stop cancels every in-flight run and marks the platform stopped.
func (p *Platform) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, cancel := range p.runs {
		cancel()
	}
	p.runs = make(map[string]context.CancelFunc)
	p.started = false
}

func (p *Platform) registerRun(runID string, cancel context.CancelFunc) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return ErrNotInitialized
	}
	if _, exists := p.runs[runID]; exists {
		return fmt.Errorf("%w: %s", ErrRunActive, runID)
	}
	p.runs[runID] = cancel
	return nil
}

func (p *Platform) unregisterRun(runID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.runs, runID)
}
