package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"evolver/internal/logging"
	"evolver/pkg/evolver"
)

const (
	defaultDBPath       = "evolver.db"
	defaultArtifactsDir = "runs"
	defaultExportsDir   = "exports"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "run":
		return runRun(ctx, args[1:], stdout)
	case "runs":
		return runRuns(ctx, args[1:], stdout)
	case "diagnostics":
		return runDiagnostics(ctx, args[1:], stdout)
	case "stats":
		return runStats(ctx, args[1:], stdout)
	case "problems":
		return runProblems(ctx, args[1:], stdout)
	case "export":
		return runExport(ctx, args[1:], stdout)
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

// storeFlags are shared by every command that opens a client.
type storeFlags struct {
	storeKind    *string
	dbPath       *string
	artifactsDir *string
	logLevel     *string
	logFormat    *string
}

func addStoreFlags(fs *flag.FlagSet) storeFlags {
	return storeFlags{
		storeKind:    fs.String("store", "sqlite", "store backend: memory|sqlite"),
		dbPath:       fs.String("db-path", defaultDBPath, "sqlite database path"),
		artifactsDir: fs.String("artifacts-dir", defaultArtifactsDir, "run artifacts directory"),
		logLevel:     fs.String("log-level", "info", "log level: debug|info|warn|error"),
		logFormat:    fs.String("log-format", "auto", "log format: auto|console|json"),
	}
}

func (f storeFlags) newClient(exportsDir string) (*evolver.Client, error) {
	log := logging.InitLogger(*f.logLevel, resolveLogFormat(*f.logFormat, os.Stderr.Fd()), nil)
	return evolver.New(evolver.Options{
		StoreKind:    *f.storeKind,
		DBPath:       *f.dbPath,
		ArtifactsDir: *f.artifactsDir,
		ExportsDir:   exportsDir,
		Logger:       log,
	})
}

// resolveLogFormat picks console output for terminals and JSON otherwise.
func resolveLogFormat(format string, fd uintptr) string {
	if format != "auto" {
		return format
	}
	if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		return "console"
	}
	return "json"
}

func runRun(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	configPath := fs.String("config", "", "optional run config YAML path")
	runID := fs.String("run-id", "", "explicit run id (optional)")
	problemName := fs.String("problem", "", "problem name (see `evolverctl problems`)")
	threshold := fs.Float64("threshold", 0, "fitness threshold that ends the run (default: problem default)")
	population := fs.Int("pop", 0, "population size")
	generations := fs.Int("gens", 0, "maximum generations")
	crossover := fs.Float64("crossover", 0, "crossover probability")
	mutation := fs.Float64("mutation", 0, "mutation probability")
	selection := fs.String("selection", "", "parent selection: roulette|tournament")
	tournamentSize := fs.Int("tournament-size", 0, "tournament bracket size")
	seed := fs.Int64("seed", 0, "rng seed")
	workers := fs.Int("workers", 0, "concurrent fitness workers")
	params := paramsFlag{}
	fs.Var(&params, "param", "problem parameter key=value (repeatable)")
	metricsAddr := fs.String("metrics-addr", "", "serve Prometheus metrics on this address while running")
	jsonOut := fs.Bool("json", false, "emit run summary as JSON")
	sf := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	setFlags := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		setFlags[f.Name] = true
	})

	cfg, err := loadOrDefaultRunConfig(*configPath)
	if err != nil {
		return err
	}
	cfg = applyRunFlags(cfg, setFlags, runFlagValues{
		Problem:        *problemName,
		Threshold:      *threshold,
		Population:     *population,
		Generations:    *generations,
		Crossover:      *crossover,
		Mutation:       *mutation,
		Selection:      *selection,
		TournamentSize: *tournamentSize,
		Seed:           *seed,
		Workers:        *workers,
		Params:         params,
	})
	if err := cfg.Validate(); err != nil {
		return err
	}

	client, err := sf.newClient(defaultExportsDir)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if *metricsAddr != "" {
		shutdown, err := serveMetrics(*metricsAddr, client.MetricsHandler())
		if err != nil {
			return err
		}
		defer shutdown()
	}

	summary, err := client.Run(ctx, evolver.RunRequest{RunID: *runID, Config: cfg})
	if err != nil {
		return err
	}

	if *jsonOut {
		type runOutput struct {
			RunID        string  `json:"run_id"`
			Problem      string  `json:"problem"`
			ArtifactsDir string  `json:"artifacts_dir"`
			BestFitness  float64 `json:"best_fitness"`
			Threshold    float64 `json:"threshold"`
			ThresholdMet bool    `json:"threshold_met"`
			Solution     string  `json:"solution"`
			Generations  int     `json:"generations"`
			Evaluations  int     `json:"evaluations"`
			DurationMS   int64   `json:"duration_ms"`
		}
		return encodeJSON(stdout, runOutput{
			RunID:        summary.RunID,
			Problem:      summary.Problem,
			ArtifactsDir: summary.ArtifactsDir,
			BestFitness:  summary.BestFitness,
			Threshold:    summary.Threshold,
			ThresholdMet: summary.ThresholdMet,
			Solution:     summary.Solution,
			Generations:  summary.Generations,
			Evaluations:  summary.Evaluations,
			DurationMS:   summary.Duration.Milliseconds(),
		})
	}

	fmt.Fprintf(stdout, "run_id=%s problem=%s best_fitness=%.6f threshold=%.6f threshold_met=%t generations=%s evaluations=%s duration=%s artifacts=%s\n",
		summary.RunID,
		summary.Problem,
		summary.BestFitness,
		summary.Threshold,
		summary.ThresholdMet,
		humanize.Comma(int64(summary.Generations)),
		humanize.Comma(int64(summary.Evaluations)),
		summary.Duration.Round(time.Millisecond),
		summary.ArtifactsDir,
	)
	fmt.Fprintln(stdout, summary.Solution)
	return nil
}

func runRuns(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "max runs to list")
	problemName := fs.String("problem", "", "only list runs of this problem")
	jsonOut := fs.Bool("json", false, "emit runs list as JSON")
	sf := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	client, err := sf.newClient(defaultExportsDir)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	runs, err := client.Runs(ctx, evolver.RunsRequest{Limit: *limit, Problem: *problemName})
	if err != nil {
		return err
	}
	if *jsonOut {
		type runsItem struct {
			RunID        string  `json:"run_id"`
			CreatedAtUTC string  `json:"created_at_utc"`
			Problem      string  `json:"problem"`
			Seed         int64   `json:"seed"`
			Population   int     `json:"population_size"`
			Generations  int     `json:"generations"`
			BestFitness  float64 `json:"best_fitness"`
			ThresholdMet bool    `json:"threshold_met"`
		}
		items := make([]runsItem, 0, len(runs))
		for _, r := range runs {
			items = append(items, runsItem(r))
		}
		return encodeJSON(stdout, items)
	}
	if len(runs) == 0 {
		fmt.Fprintln(stdout, "no runs found")
		return nil
	}

	for _, r := range runs {
		created := r.CreatedAtUTC
		if ts, err := time.Parse(time.RFC3339Nano, r.CreatedAtUTC); err == nil {
			created = humanize.Time(ts)
		}
		fmt.Fprintf(stdout, "run_id=%s created=%q problem=%s seed=%d pop=%d gens=%d best_fitness=%.6f threshold_met=%t\n",
			r.RunID,
			created,
			r.Problem,
			r.Seed,
			r.Population,
			r.Generations,
			r.BestFitness,
			r.ThresholdMet,
		)
	}
	return nil
}

func runDiagnostics(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("diagnostics", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show diagnostics for the most recent run from run index")
	limit := fs.Int("limit", 50, "max generations to print (<=0 for all)")
	jsonOut := fs.Bool("json", false, "emit diagnostics as JSON")
	sf := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if *runID == "" && !*latest {
		return errors.New("diagnostics requires --run-id or --latest")
	}
	if *limit < 0 {
		*limit = 0
	}

	client, err := sf.newClient(defaultExportsDir)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	diagnostics, err := client.Diagnostics(ctx, evolver.DiagnosticsRequest{
		RunID:  *runID,
		Latest: *latest,
		Limit:  *limit,
	})
	if err != nil {
		return err
	}
	if *jsonOut {
		return encodeJSON(stdout, diagnostics)
	}
	if len(diagnostics) == 0 {
		fmt.Fprintln(stdout, "no diagnostics")
		return nil
	}

	for _, d := range diagnostics {
		fmt.Fprintf(stdout, "generation=%d best=%.6f mean=%.6f min=%.6f best_ever=%.6f crossovers=%d mutations=%d\n",
			d.Generation,
			d.BestFitness,
			d.MeanFitness,
			d.MinFitness,
			d.BestEverFitness,
			d.Crossovers,
			d.Mutations,
		)
	}
	return nil
}

func runStats(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	problemName := fs.String("problem", "", "only aggregate runs of this problem")
	jsonOut := fs.Bool("json", false, "emit stats as JSON")
	sf := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := sf.newClient(defaultExportsDir)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Stats(ctx, *problemName)
	if err != nil {
		return err
	}
	if *jsonOut {
		return encodeJSON(stdout, summary)
	}
	fmt.Fprintf(stdout, "runs=%s solved=%s success_rate=%.2f%% avg_evaluations=%s std_evaluations=%.1f min_evaluations=%s max_evaluations=%s best_fitness=%.6f\n",
		humanize.Comma(int64(summary.TotalRuns)),
		humanize.Comma(int64(summary.SuccessRuns)),
		summary.SuccessRate*100,
		humanize.Commaf(summary.AvgEvaluations),
		summary.StdEvaluations,
		humanize.Commaf(summary.MinEvaluations),
		humanize.Commaf(summary.MaxEvaluations),
		summary.BestFitness,
	)
	return nil
}

func runProblems(_ context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("problems", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "emit problems as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := evolver.New(evolver.Options{StoreKind: "memory", Logger: logging.NewNop()})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	problems := client.Problems()
	if *jsonOut {
		type problemItem struct {
			Name             string  `json:"name"`
			Description      string  `json:"description"`
			DefaultThreshold float64 `json:"default_threshold"`
		}
		items := make([]problemItem, 0, len(problems))
		for _, p := range problems {
			items = append(items, problemItem(p))
		}
		return encodeJSON(stdout, items)
	}
	for _, p := range problems {
		fmt.Fprintf(stdout, "%s\tthreshold=%g\t%s\n", p.Name, p.DefaultThreshold, p.Description)
	}
	return nil
}

func runExport(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "export the most recent run from run index")
	outDir := fs.String("out", defaultExportsDir, "export output directory")
	sf := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if *runID == "" && !*latest {
		return errors.New("export requires --run-id or --latest")
	}

	client, err := sf.newClient(*outDir)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	exported, err := client.Export(ctx, evolver.ExportRequest{RunID: *runID, Latest: *latest, OutDir: *outDir})
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "exported run_id=%s to=%s\n", exported.RunID, exported.Directory)
	return nil
}

// serveMetrics listens on addr and returns a shutdown func.
func serveMetrics(addr string, handler http.Handler) (func(), error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.GetLogger().Error("metrics server stopped", "error", err)
		}
	}()
	logging.GetLogger().Info("serving metrics", "addr", listener.Addr().String())
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}

func encodeJSON(w io.Writer, value any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: evolverctl <%s> [flags]", msg, strings.Join([]string{"run", "runs", "diagnostics", "stats", "problems", "export"}, "|"))
}
