package model

import (
	"time"

	"evolver/internal/config"
)

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// RunRecord summarizes one finished run. Populations are never persisted;
// only the best solution in rendered form survives the run.
type RunRecord struct {
	VersionedRecord
	RunID        string           `json:"run_id"`
	Problem      string           `json:"problem"`
	Config       config.RunConfig `json:"config"`
	Threshold    float64          `json:"threshold"`
	BestFitness  float64          `json:"best_fitness"`
	ThresholdMet bool             `json:"threshold_met"`
	Solution     string           `json:"solution"`
	Generations  int              `json:"generations"`
	Evaluations  int              `json:"evaluations"`
	StartedAt    time.Time        `json:"started_at"`
	FinishedAt   time.Time        `json:"finished_at"`
}

func (r RunRecord) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
