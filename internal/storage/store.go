package storage

import (
	"context"

	"evolver/internal/ga"
	"evolver/internal/model"
)

// Store persists run summaries and their per-generation diagnostics.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run model.RunRecord) error
	GetRun(ctx context.Context, runID string) (model.RunRecord, bool, error)
	// ListRuns returns runs newest first.
	ListRuns(ctx context.Context) ([]model.RunRecord, error)
	SaveGenerationDiagnostics(ctx context.Context, runID string, diagnostics []ga.GenerationDiagnostics) error
	GetGenerationDiagnostics(ctx context.Context, runID string) ([]ga.GenerationDiagnostics, bool, error)
}
