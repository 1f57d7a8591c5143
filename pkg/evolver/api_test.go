package evolver

import (
	"context"
	"io"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evolver/internal/config"
	"evolver/internal/ga"
)

func newTestClient(t *testing.T) (*Client, string) {
	t.Helper()
	base := t.TempDir()
	client, err := New(Options{
		StoreKind:    "memory",
		ArtifactsDir: filepath.Join(base, "runs"),
		ExportsDir:   filepath.Join(base, "exports"),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client, base
}

func onemaxRequest(length int) RunRequest {
	cfg := config.Default()
	cfg.Problem = "onemax"
	cfg.Population = 20
	cfg.Generations = 300
	cfg.MutationProbability = 0.3
	cfg.Selection = ga.SelectionTournament
	cfg.TournamentSize = 3
	cfg.Params = map[string]any{"length": length}
	return RunRequest{Config: cfg}
}

func TestClientRunRunsAndExport(t *testing.T) {
	ctx := context.Background()
	client, base := newTestClient(t)

	summary, err := client.Run(ctx, onemaxRequest(8))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(summary.RunID, "onemax-"))
	assert.True(t, summary.ThresholdMet)
	assert.Equal(t, "11111111", summary.Solution)
	assert.Len(t, summary.History, summary.Generations)
	assert.FileExists(t, filepath.Join(summary.ArtifactsDir, "fitness_history.csv"))

	runs, err := client.Runs(ctx, RunsRequest{Limit: 5})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, summary.RunID, runs[0].RunID)
	assert.Equal(t, "onemax", runs[0].Problem)
	assert.True(t, runs[0].ThresholdMet)

	diagnostics, err := client.Diagnostics(ctx, DiagnosticsRequest{Latest: true, Limit: 1})
	require.NoError(t, err)
	require.Len(t, diagnostics, 1)
	assert.Equal(t, 1, diagnostics[0].Generation)

	exported, err := client.Export(ctx, ExportRequest{Latest: true})
	require.NoError(t, err)
	assert.Equal(t, summary.RunID, exported.RunID)
	assert.Equal(t, filepath.Join(base, "exports", summary.RunID), exported.Directory)
	assert.FileExists(t, filepath.Join(exported.Directory, "run.json"))
}

func TestClientRunUsesGivenRunIDAndFiltersRuns(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t)

	req := onemaxRequest(6)
	req.RunID = "fixed-id"
	_, err := client.Run(ctx, req)
	require.NoError(t, err)

	crypt := config.Default()
	crypt.Problem = "cryptarithm"
	crypt.Population = 30
	crypt.Generations = 50
	crypt.Params = map[string]any{"expression": "A+A=B"}
	_, err = client.Run(ctx, RunRequest{RunID: "crypt-id", Config: crypt})
	require.NoError(t, err)

	runs, err := client.Runs(ctx, RunsRequest{Problem: "onemax"})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "fixed-id", runs[0].RunID)

	runs, err = client.Runs(ctx, RunsRequest{Limit: 1})
	require.NoError(t, err)
	require.Len(t, runs, 1)

	summary, err := client.Stats(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TotalRuns)

	summary, err = client.Stats(ctx, "cryptarithm")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalRuns)

	summary, err = client.Stats(ctx, "Send More Money")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalRuns)

	runs, err = client.Runs(ctx, RunsRequest{Problem: "send-more-money"})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "crypt-id", runs[0].RunID)

	runs, err = client.Runs(ctx, RunsRequest{Problem: "One_Max"})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "fixed-id", runs[0].RunID)
}

func TestClientRequestValidation(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t)

	_, err := client.Diagnostics(ctx, DiagnosticsRequest{RunID: "a", Latest: true})
	assert.ErrorContains(t, err, "use either run id or latest")
	_, err = client.Diagnostics(ctx, DiagnosticsRequest{})
	assert.ErrorContains(t, err, "diagnostics requires run id or latest")
	_, err = client.Diagnostics(ctx, DiagnosticsRequest{Latest: true})
	assert.ErrorContains(t, err, "no runs available")
	_, err = client.Diagnostics(ctx, DiagnosticsRequest{RunID: "ghost"})
	assert.ErrorContains(t, err, "diagnostics not found")
	_, err = client.Diagnostics(ctx, DiagnosticsRequest{RunID: "a", Limit: -1})
	assert.Error(t, err)

	_, err = client.Export(ctx, ExportRequest{})
	assert.ErrorContains(t, err, "export requires run id or latest")
	_, err = client.Runs(ctx, RunsRequest{Limit: -1})
	assert.Error(t, err)

	bad := onemaxRequest(8)
	bad.Config.Problem = "nope"
	_, err = client.Run(ctx, bad)
	assert.Error(t, err)

	_, err = New(Options{StoreKind: "postgres"})
	assert.ErrorContains(t, err, "unsupported store backend")
}

func TestClientProblemsAndMetrics(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t)

	problems := client.Problems()
	require.Len(t, problems, 2)
	assert.Equal(t, "cryptarithm", problems[0].Name)
	assert.Equal(t, "onemax", problems[1].Name)
	assert.Equal(t, 1.0, problems[1].DefaultThreshold)

	_, err := client.Run(ctx, onemaxRequest(4))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	client.MetricsHandler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `evolver_runs_total{outcome="threshold_met",problem="onemax"} 1`)
}
