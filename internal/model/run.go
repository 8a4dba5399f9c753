package model

import "time"

// PhaseStatus represents the outcome of a pipeline phase.
type PhaseStatus string

const (
	PhaseStatusRunning  PhaseStatus = "running"
	PhaseStatusComplete PhaseStatus = "complete"
	PhaseStatusFailed   PhaseStatus = "failed"
	PhaseStatusSkipped  PhaseStatus = "skipped"
)

// PhaseResult holds the outcome of one pipeline phase.
type PhaseResult struct {
	Name     string         `json:"name" yaml:"name"`
	Status   PhaseStatus    `json:"status" yaml:"status"`
	Duration time.Duration  `json:"duration" yaml:"duration"`
	Error    string         `json:"error,omitempty" yaml:"error,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Dataset names an output dataset.
type Dataset string

const (
	DatasetUniversities Dataset = "universities"
	DatasetSchools      Dataset = "schools"
)

// RunSummary reports one dataset run.
type RunSummary struct {
	RunID    string        `json:"run_id" yaml:"run_id"`
	Dataset  Dataset       `json:"dataset" yaml:"dataset"`
	Records  int           `json:"records" yaml:"records"`
	Geocoded int           `json:"geocoded" yaml:"geocoded"`
	Failures int           `json:"failures" yaml:"failures"`
	Outputs  []string      `json:"outputs" yaml:"outputs"`
	Phases   []PhaseResult `json:"phases" yaml:"phases"`
	Duration time.Duration `json:"duration" yaml:"duration"`
}
