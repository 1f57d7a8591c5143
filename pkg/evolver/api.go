package evolver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"evolver/internal/config"
	"evolver/internal/ga"
	"evolver/internal/logging"
	"evolver/internal/platform"
	"evolver/internal/problem"
	"evolver/internal/stats"
	"evolver/internal/storage"
)

const (
	defaultStoreKind    = "sqlite"
	defaultArtifactsDir = "runs"
	defaultExportsDir   = "exports"
	defaultDBPath       = "evolver.db"
	defaultRunsLimit    = 20
)

type Options struct {
	StoreKind    string
	DBPath       string
	ArtifactsDir string
	ExportsDir   string
	Logger       logging.Logger
}

type Client struct {
	store    storage.Store
	platform *platform.Platform
	log      logging.Logger

	artifactsDir string
	exportsDir   string
}

// RunRequest starts one run. An empty RunID gets a generated one.
type RunRequest struct {
	RunID  string
	Config config.RunConfig
}

type RunSummary struct {
	RunID        string
	Problem      string
	ArtifactsDir string
	BestFitness  float64
	Threshold    float64
	ThresholdMet bool
	Solution     string
	Generations  int
	Evaluations  int
	Duration     time.Duration
	History      []ga.GenerationDiagnostics
}

type RunsRequest struct {
	Limit   int
	Problem string
}

type RunItem struct {
	RunID        string
	CreatedAtUTC string
	Problem      string
	Seed         int64
	Population   int
	Generations  int
	BestFitness  float64
	ThresholdMet bool
}

type DiagnosticsRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

type ExportRequest struct {
	RunID  string
	Latest bool
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
}

type ProblemItem struct {
	Name             string
	Description      string
	DefaultThreshold float64
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = defaultStoreKind
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	artifactsDir := opts.ArtifactsDir
	if artifactsDir == "" {
		artifactsDir = defaultArtifactsDir
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}
	log := opts.Logger
	if log == nil {
		log = logging.GetLogger()
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:        store,
		platform:     platform.New(platform.Config{Store: store, Logger: log}),
		log:          log,
		artifactsDir: artifactsDir,
		exportsDir:   exportsDir,
	}, nil
}

func (c *Client) Close() error {
	c.platform.Stop()
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	return c.platform.Init(ctx)
}

// MetricsHandler serves the Prometheus metrics of this client's runs.
func (c *Client) MetricsHandler() http.Handler {
	return c.platform.Metrics().Handler()
}

func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	if err := c.Init(ctx); err != nil {
		return RunSummary{}, err
	}
	runID := req.RunID
	if runID == "" {
		runID = fmt.Sprintf("%s-%s", problem.NormalizeName(req.Config.Problem), uuid.NewString())
	}

	exec, err := c.platform.Execute(ctx, runID, req.Config)
	if err != nil {
		c.log.Error("run failed", "run_id", runID, "error", err)
		return RunSummary{}, err
	}

	runDir, err := stats.WriteRunArtifacts(c.artifactsDir, stats.RunArtifacts{
		Run:         exec.Run,
		Diagnostics: exec.Diagnostics,
	})
	if err != nil {
		return RunSummary{}, err
	}
	if err := stats.AppendRunIndex(c.artifactsDir, stats.IndexEntryFor(exec.Run)); err != nil {
		return RunSummary{}, err
	}

	return RunSummary{
		RunID:        exec.Run.RunID,
		Problem:      exec.Run.Problem,
		ArtifactsDir: filepath.Clean(runDir),
		BestFitness:  exec.Run.BestFitness,
		Threshold:    exec.Run.Threshold,
		ThresholdMet: exec.Run.ThresholdMet,
		Solution:     exec.Run.Solution,
		Generations:  exec.Run.Generations,
		Evaluations:  exec.Run.Evaluations,
		Duration:     exec.Run.Duration(),
		History:      append([]ga.GenerationDiagnostics(nil), exec.Diagnostics...),
	}, nil
}

func (c *Client) StopRun(runID string) error {
	return c.platform.StopRun(runID)
}

func (c *Client) Runs(_ context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}
	if req.Limit == 0 {
		req.Limit = defaultRunsLimit
	}

	entries, err := stats.ListRunIndex(c.artifactsDir)
	if err != nil {
		return nil, err
	}

	problemName := problem.NormalizeName(req.Problem)
	out := make([]RunItem, 0, min(len(entries), req.Limit))
	for _, e := range entries {
		if problemName != "" && e.Problem != problemName {
			continue
		}
		out = append(out, RunItem{
			RunID:        e.RunID,
			CreatedAtUTC: e.CreatedAtUTC,
			Problem:      e.Problem,
			Seed:         e.Seed,
			Population:   e.PopulationSize,
			Generations:  e.Generations,
			BestFitness:  e.BestFitness,
			ThresholdMet: e.ThresholdMet,
		})
		if len(out) == req.Limit {
			break
		}
	}
	return out, nil
}

// Stats aggregates stored runs, optionally for a single problem.
func (c *Client) Stats(ctx context.Context, problemName string) (stats.EvaluationStats, error) {
	if err := c.Init(ctx); err != nil {
		return stats.EvaluationStats{}, err
	}
	runs, err := c.store.ListRuns(ctx)
	if err != nil {
		return stats.EvaluationStats{}, err
	}
	problemName = problem.NormalizeName(problemName)
	if problemName != "" {
		filtered := runs[:0]
		for _, run := range runs {
			if run.Problem == problemName {
				filtered = append(filtered, run)
			}
		}
		runs = filtered
	}
	return stats.BuildEvaluationStats(runs), nil
}

func (c *Client) Diagnostics(ctx context.Context, req DiagnosticsRequest) ([]ga.GenerationDiagnostics, error) {
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}
	runID, err := c.resolveRunID(req.RunID, req.Latest, "diagnostics")
	if err != nil {
		return nil, err
	}

	if err := c.Init(ctx); err != nil {
		return nil, err
	}
	diagnostics, ok, err := c.store.GetGenerationDiagnostics(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("diagnostics not found for run id: %s", runID)
	}
	if req.Limit > 0 && len(diagnostics) > req.Limit {
		diagnostics = diagnostics[:req.Limit]
	}
	out := make([]ga.GenerationDiagnostics, len(diagnostics))
	copy(out, diagnostics)
	return out, nil
}

func (c *Client) Export(_ context.Context, req ExportRequest) (ExportSummary, error) {
	runID, err := c.resolveRunID(req.RunID, req.Latest, "export")
	if err != nil {
		return ExportSummary{}, err
	}
	if req.OutDir == "" {
		req.OutDir = c.exportsDir
	}

	exportedDir, err := stats.ExportRunArtifacts(c.artifactsDir, runID, req.OutDir)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: runID, Directory: filepath.Clean(exportedDir)}, nil
}

func (c *Client) Problems() []ProblemItem {
	registry := c.platform.Problems()
	names := registry.Names()
	out := make([]ProblemItem, 0, len(names))
	for _, name := range names {
		p, err := registry.Resolve(name)
		if err != nil {
			continue
		}
		out = append(out, ProblemItem{
			Name:             p.Name(),
			Description:      p.Description(),
			DefaultThreshold: p.DefaultThreshold(),
		})
	}
	return out
}

func (c *Client) resolveRunID(runID string, latest bool, op string) (string, error) {
	if runID != "" && latest {
		return "", errors.New("use either run id or latest")
	}
	if !latest {
		if runID == "" {
			return "", fmt.Errorf("%s requires run id or latest", op)
		}
		return runID, nil
	}
	entries, err := stats.ListRunIndex(c.artifactsDir)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", errors.New("no runs available")
	}
	return entries[0].RunID, nil
}
