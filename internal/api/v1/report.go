// Package v1 holds the JSON resource shapes served by the HTTP API.
package v1

import (
	"time"
)

// Report run states.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// Sheet outcome states within a run.
const (
	SheetStatusOK       = "ok"
	SheetStatusDegraded = "degraded"
	SheetStatusSkipped  = "skipped"
)

// ReportRun is one execution of the configured sheet catalog.
type ReportRun struct {
	ID          string        `json:"id"`
	StartedAt   time.Time     `json:"started_at"`
	FinishedAt  time.Time     `json:"finished_at,omitzero"`
	Status      string        `json:"status"`
	OutputPath  string        `json:"output_path,omitempty"`
	Error       string        `json:"error,omitempty"`
	Sheets      []SheetResult `json:"sheets"`
	CacheHits   int           `json:"cache_hits"`
	CacheMisses int           `json:"cache_misses"`
}

// SheetResult records one sheet's outcome inside a run.
type SheetResult struct {
	Name           string   `json:"name"`
	Status         string   `json:"status"`
	SkipReason     string   `json:"skip_reason,omitempty"`
	ACFStatus      string   `json:"acf_status,omitempty"`
	ForecastStatus string   `json:"forecast_status,omitempty"`
	ForecastMethod string   `json:"forecast_method,omitempty"`
	DroppedLags    []int    `json:"dropped_lags,omitempty"`
	Columns        []string `json:"columns,omitempty"`
	Rows           int      `json:"rows"`
	Fingerprint    string   `json:"fingerprint,omitempty"`
}

// SheetPayload is an augmented sheet served as JSON.
type SheetPayload struct {
	Name    string        `json:"name"`
	RunID   string        `json:"run_id"`
	Columns []SheetColumn `json:"columns"`
	Rows    [][]any       `json:"rows"`
}

// SheetColumn is a column with its semantic tag for client-side styling.
type SheetColumn struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

// Error response codes.
const (
	ErrCodeInternal    = "internal_error"
	ErrCodeNotFound    = "not_found"
	ErrCodeRunActive   = "run_in_progress"
	ErrCodeInvalidBody = "invalid_request"
)

// ErrorResponse is the error body for API failures.
type ErrorResponse struct {
	ErrorType string `json:"error_type"`
	Message   string `json:"message"`
}
