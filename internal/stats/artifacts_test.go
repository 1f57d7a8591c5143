package stats

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evolver/internal/config"
	"evolver/internal/ga"
	"evolver/internal/model"
)

func sampleArtifacts(runID string, startedAt time.Time) RunArtifacts {
	return RunArtifacts{
		Run: model.RunRecord{
			VersionedRecord: model.VersionedRecord{SchemaVersion: 1, CodecVersion: 1},
			RunID:           runID,
			Problem:         "onemax",
			Config:          config.Default(),
			Threshold:       1,
			BestFitness:     0.75,
			Generations:     3,
			Evaluations:     300,
			StartedAt:       startedAt,
			FinishedAt:      startedAt.Add(time.Second),
		},
		Diagnostics: []ga.GenerationDiagnostics{
			{Generation: 1, BestFitness: 0.5, MeanFitness: 0.25, BestEverFitness: 0.5},
			{Generation: 2, BestFitness: 0.75, MeanFitness: 0.5, MinFitness: 0.25, BestEverFitness: 0.75},
			{Generation: 3, BestFitness: 0.625, MeanFitness: 0.5, MinFitness: 0.25, BestEverFitness: 0.75},
		},
	}
}

func TestWriteAndExportRunArtifacts(t *testing.T) {
	baseDir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "exports")

	artifacts := sampleArtifacts("run-123", time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC))
	runDir, err := WriteRunArtifacts(baseDir, artifacts)
	require.NoError(t, err)

	files := []string{"run.json", "config.json", "generation_diagnostics.json", "fitness_history.csv"}
	for _, file := range files {
		assert.FileExists(t, filepath.Join(runDir, file))
	}

	csvData, err := os.ReadFile(filepath.Join(runDir, "fitness_history.csv"))
	require.NoError(t, err)
	assert.Equal(t, "generation,best_fitness,mean_fitness,min_fitness,best_ever_fitness\n"+
		"1,0.5,0.25,0,0.5\n"+
		"2,0.75,0.5,0.25,0.75\n"+
		"3,0.625,0.5,0.25,0.75\n", string(csvData))

	history, ok, err := ReadFitnessHistory(baseDir, "run-123")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []float64{0.5, 0.75, 0.75}, history)

	run, ok, err := ReadRun(baseDir, "run-123")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "onemax", run.Problem)
	assert.Equal(t, time.Second, run.Duration())

	exportedDir, err := ExportRunArtifacts(baseDir, "run-123", outDir)
	require.NoError(t, err)
	for _, file := range files {
		assert.FileExists(t, filepath.Join(exportedDir, file))
	}

	_, err = ExportRunArtifacts(baseDir, "missing", outDir)
	assert.Error(t, err)
	_, err = ExportRunArtifacts(baseDir, "", outDir)
	assert.Error(t, err)
}

func TestWriteRunArtifactsRequiresRunID(t *testing.T) {
	_, err := WriteRunArtifacts(t.TempDir(), RunArtifacts{})
	assert.ErrorContains(t, err, "run id is required")
}

func TestReadMissingArtifacts(t *testing.T) {
	_, ok, err := ReadRun(t.TempDir(), "nope")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = ReadFitnessHistory(t.TempDir(), "nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRunIndexOrdersNewestFirstAndReplaces(t *testing.T) {
	baseDir := t.TempDir()
	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	entries, err := ListRunIndex(baseDir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	first := IndexEntryFor(sampleArtifacts("run-1", base).Run)
	second := IndexEntryFor(sampleArtifacts("run-2", base.Add(500*time.Millisecond)).Run)
	third := IndexEntryFor(sampleArtifacts("run-3", base.Add(time.Hour)).Run)
	for _, entry := range []RunIndexEntry{first, second, third} {
		require.NoError(t, AppendRunIndex(baseDir, entry))
	}

	entries, err = ListRunIndex(baseDir)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, []string{"run-3", "run-2", "run-1"}, []string{entries[0].RunID, entries[1].RunID, entries[2].RunID})

	first.BestFitness = 1
	first.ThresholdMet = true
	require.NoError(t, AppendRunIndex(baseDir, first))
	entries, err = ListRunIndex(baseDir)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.True(t, entries[2].ThresholdMet)

	assert.Error(t, AppendRunIndex(baseDir, RunIndexEntry{}))
}

func TestRunIndexEqualTimestampsPreferLaterAppends(t *testing.T) {
	baseDir := t.TempDir()
	stamp := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, AppendRunIndex(baseDir, IndexEntryFor(sampleArtifacts("a", stamp).Run)))
	require.NoError(t, AppendRunIndex(baseDir, IndexEntryFor(sampleArtifacts("b", stamp).Run)))

	entries, err := ListRunIndex(baseDir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "b", entries[0].RunID)
}
