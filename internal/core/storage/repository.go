package storage

import (
	"context"
	"errors"
	"time"

	v1 "github.com/ardata-lab/ardata/internal/api/v1"
	"github.com/ardata-lab/ardata/internal/core/dataset"
)

// ErrNotFound is returned when a requested report run does not exist.
var ErrNotFound = errors.New("not found")

// MediaStore executes aggregation pipelines over the media records
// collection. The reporting core treats execution as opaque: it hands over
// an identity-bearing request and receives rectangular rows back.
type MediaStore interface {
	// ExecutePipeline runs the named pipeline with the request's filter
	// flags applied, restricted to records captured inside [from, to].
	ExecutePipeline(ctx context.Context, req dataset.AggregationRequest, from, to time.Time) (*dataset.Table, error)

	// Ping verifies connectivity for health checks.
	Ping(ctx context.Context) error
}

// RunStore persists report run records so completed runs survive restarts
// and the API can serve run history.
type RunStore interface {
	SaveRun(ctx context.Context, run *v1.ReportRun) error
	GetRun(ctx context.Context, id string) (*v1.ReportRun, error)
	ListRuns(ctx context.Context, limit int) ([]*v1.ReportRun, error)
}
