package report

import (
	"context"
	"time"

	"github.com/ardata-lab/ardata/internal/core/dataset"
	"github.com/ardata-lab/ardata/internal/core/storage"
)

// StoreExecutor binds a media store and the reporting date range into the
// aggregation cache's executor interface. The range is fixed for the life
// of the process (one school year), so it is part of the executor rather
// than the request identity.
type StoreExecutor struct {
	store storage.MediaStore
	from  time.Time
	to    time.Time
}

func NewStoreExecutor(store storage.MediaStore, from, to time.Time) *StoreExecutor {
	return &StoreExecutor{store: store, from: from, to: to}
}

func (e *StoreExecutor) Execute(ctx context.Context, req dataset.AggregationRequest) (*dataset.Table, error) {
	return e.store.ExecutePipeline(ctx, req, e.from, e.to)
}
