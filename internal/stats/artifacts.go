package stats

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"evolver/internal/ga"
	"evolver/internal/model"
)

const (
	runIndexFile       = "run_index.json"
	runFile            = "run.json"
	configFile         = "config.json"
	diagnosticsFile    = "generation_diagnostics.json"
	fitnessHistoryFile = "fitness_history.csv"
)

var fitnessHistoryHeader = []string{"generation", "best_fitness", "mean_fitness", "min_fitness", "best_ever_fitness"}

type RunArtifacts struct {
	Run         model.RunRecord            `json:"run"`
	Diagnostics []ga.GenerationDiagnostics `json:"generation_diagnostics"`
}

type RunIndexEntry struct {
	RunID          string  `json:"run_id"`
	Problem        string  `json:"problem"`
	PopulationSize int     `json:"population_size"`
	Generations    int     `json:"generations"`
	Seed           int64   `json:"seed"`
	Workers        int     `json:"workers"`
	BestFitness    float64 `json:"best_fitness"`
	ThresholdMet   bool    `json:"threshold_met"`
	CreatedAtUTC   string  `json:"created_at_utc"`
}

// IndexEntryFor derives the run index line for a finished run.
func IndexEntryFor(run model.RunRecord) RunIndexEntry {
	return RunIndexEntry{
		RunID:          run.RunID,
		Problem:        run.Problem,
		PopulationSize: run.Config.Population,
		Generations:    run.Generations,
		Seed:           run.Config.Seed,
		Workers:        run.Config.Workers,
		BestFitness:    run.BestFitness,
		ThresholdMet:   run.ThresholdMet,
		CreatedAtUTC:   run.StartedAt.UTC().Format(time.RFC3339Nano),
	}
}

func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	if artifacts.Run.RunID == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(baseDir, artifacts.Run.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, runFile), artifacts.Run); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, configFile), artifacts.Run.Config); err != nil {
		return "", err
	}
	diagnostics := artifacts.Diagnostics
	if diagnostics == nil {
		diagnostics = []ga.GenerationDiagnostics{}
	}
	if err := writeJSON(filepath.Join(runDir, diagnosticsFile), diagnostics); err != nil {
		return "", err
	}
	if err := writeFitnessHistory(filepath.Join(runDir, fitnessHistoryFile), diagnostics); err != nil {
		return "", err
	}

	return runDir, nil
}

func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := readRunIndex(baseDir)
	if err != nil {
		return err
	}

	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}

	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

// ListRunIndex returns index entries newest first.
func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	entries, err := readRunIndex(baseDir)
	if err != nil {
		return nil, err
	}

	type indexedEntry struct {
		entry RunIndexEntry
		idx   int
	}
	indexed := make([]indexedEntry, len(entries))
	for i := range entries {
		indexed[i] = indexedEntry{entry: entries[i], idx: i}
	}
	sort.Slice(indexed, func(i, j int) bool {
		ti, _ := time.Parse(time.RFC3339Nano, indexed[i].entry.CreatedAtUTC)
		tj, _ := time.Parse(time.RFC3339Nano, indexed[j].entry.CreatedAtUTC)
		if ti.Equal(tj) {
			// Later appended entries win on equal timestamps.
			return indexed[i].idx > indexed[j].idx
		}
		return ti.After(tj)
	})

	sorted := make([]RunIndexEntry, 0, len(indexed))
	for _, item := range indexed {
		sorted = append(sorted, item.entry)
	}
	return sorted, nil
}

func readRunIndex(baseDir string) ([]RunIndexEntry, error) {
	data, err := os.ReadFile(filepath.Join(baseDir, runIndexFile))
	if err != nil {
		if os.IsNotExist(err) {
			return []RunIndexEntry{}, nil
		}
		return nil, err
	}

	var entries []RunIndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode run index: %w", err)
	}
	return entries, nil
}

func ExportRunArtifacts(baseDir, runID, outDir string) (string, error) {
	if runID == "" {
		return "", fmt.Errorf("run id is required")
	}

	src := filepath.Join(baseDir, runID)
	if _, err := os.Stat(src); err != nil {
		return "", err
	}

	dst := filepath.Join(outDir, runID)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return "", err
	}

	for _, file := range []string{runFile, configFile, diagnosticsFile, fitnessHistoryFile} {
		if err := copyFile(filepath.Join(src, file), filepath.Join(dst, file)); err != nil {
			return "", err
		}
	}
	return dst, nil
}

func ReadRun(baseDir, runID string) (model.RunRecord, bool, error) {
	data, err := os.ReadFile(filepath.Join(baseDir, runID, runFile))
	if err != nil {
		if os.IsNotExist(err) {
			return model.RunRecord{}, false, nil
		}
		return model.RunRecord{}, false, err
	}

	var run model.RunRecord
	if err := json.Unmarshal(data, &run); err != nil {
		return model.RunRecord{}, false, err
	}
	return run, true, nil
}

func writeFitnessHistory(path string, diagnostics []ga.GenerationDiagnostics) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(fitnessHistoryHeader); err != nil {
		return err
	}
	for _, diag := range diagnostics {
		if err := writer.Write([]string{
			strconv.Itoa(diag.Generation),
			formatFloat(diag.BestFitness),
			formatFloat(diag.MeanFitness),
			formatFloat(diag.MinFitness),
			formatFloat(diag.BestEverFitness),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadFitnessHistory returns the best-ever fitness column of a run's history.
func ReadFitnessHistory(baseDir, runID string) ([]float64, bool, error) {
	file, err := os.Open(filepath.Join(baseDir, runID, fitnessHistoryFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return []float64{}, true, nil
		}
		return nil, false, err
	}
	if len(header) != len(fitnessHistoryHeader) {
		return nil, false, fmt.Errorf("fitness history header must have %d columns", len(fitnessHistoryHeader))
	}

	series := make([]float64, 0, 128)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, false, err
		}
		value, err := strconv.ParseFloat(record[len(record)-1], 64)
		if err != nil {
			return nil, false, err
		}
		series = append(series, value)
	}
	return series, true, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
