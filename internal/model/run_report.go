package model

import (
	"time"

	"github.com/google/uuid"
)

// RunKind names the CLI command that produced a RunReport.
type RunKind string

const (
	// RunKindFetch is a link extraction and download run.
	RunKindFetch RunKind = "fetch"

	// RunKindSort is a format sorting run.
	RunKindSort RunKind = "sort"

	// RunKindAll runs fetch followed by sort.
	RunKindAll RunKind = "run"
)

// RunReport describes one invocation of the pipeline.
// Fetch and Sort are nil when the corresponding stage did not run.
type RunReport struct {
	// ID uniquely identifies the run in the ledger.
	ID string `json:"id"`

	// Kind is the command that was executed.
	Kind RunKind `json:"kind"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitzero"`

	Fetch *FetchSummary `json:"fetch,omitempty"`
	Sort  *SortSummary  `json:"sort,omitempty"`

	// PerformedSteps lists the pipeline steps that ran, in order.
	PerformedSteps []string `json:"performed_steps,omitempty"`

	// Cancelled is true if the run was interrupted before all steps ran.
	Cancelled bool `json:"cancelled,omitempty"`

	// Error contains the fatal error that stopped the run, if any.
	Error error `json:"-"`

	// ErrorMessage is the string representation of Error for serialization.
	ErrorMessage string `json:"error,omitempty"`
}

// NewRunReport creates a report for a run starting now.
func NewRunReport(kind RunKind) *RunReport {
	return &RunReport{
		ID:        uuid.NewString(),
		Kind:      kind,
		StartedAt: time.Now(),
	}
}

// Finish stamps the end time of the run.
func (r *RunReport) Finish() {
	r.FinishedAt = time.Now()
}

// Duration returns how long the run took, or zero if it has not finished.
func (r *RunReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// SetError records a fatal error on the report.
func (r *RunReport) SetError(err error) {
	r.Error = err
	if err != nil {
		r.ErrorMessage = err.Error()
	}
}

// Failed reports whether the run stopped on a fatal error.
func (r *RunReport) Failed() bool {
	return r.ErrorMessage != ""
}
