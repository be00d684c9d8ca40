package report

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ardata-lab/ardata/internal/aggcache"
	v1 "github.com/ardata-lab/ardata/internal/api/v1"
	"github.com/ardata-lab/ardata/internal/core/calendar"
	"github.com/ardata-lab/ardata/internal/core/dataset"
	"github.com/ardata-lab/ardata/internal/core/densify"
	"github.com/ardata-lab/ardata/internal/core/pipeline"
	"github.com/ardata-lab/ardata/internal/core/timeseries"
	"github.com/ardata-lab/ardata/internal/metrics"
)

// AggregationCache is the slice of the aggregation cache the builder uses.
type AggregationCache interface {
	Get(ctx context.Context, req dataset.AggregationRequest) (*dataset.Table, error)
}

// Builder produces one assembled sheet from its catalog configuration:
// cached aggregation, calendar rollup and zero-fill, time-series
// augmentation, then the assembly integrity gate.
type Builder struct {
	cache   AggregationCache
	year    *calendar.SchoolYear
	metrics *metrics.Metrics
}

func NewBuilder(cache AggregationCache, year *calendar.SchoolYear, m *metrics.Metrics) *Builder {
	return &Builder{cache: cache, year: year, metrics: m}
}

// BuildSheet runs the full per-sheet pipeline. Failures are soft: a sheet
// that cannot be built comes back as a skipped result with a reason, not an
// error, so one bad sheet cannot take down a report run. The one exception
// is a cache integrity violation: stored identity disagreeing with the
// request identity means every sheet sharing that cache is suspect, so it
// is returned as an error and fails the run.
func (b *Builder) BuildSheet(ctx context.Context, cfg pipeline.SheetConfig) (*Sheet, v1.SheetResult, error) {
	result := v1.SheetResult{Name: cfg.Name, Fingerprint: cfg.Fingerprint}

	p, ok := pipeline.Lookup(cfg.PipelineRef)
	if !ok {
		return nil, b.skip(result, SkipReasonBadConfig, "unknown pipeline "+cfg.PipelineRef), nil
	}

	table, err := b.cache.Get(ctx, cfg.Request())
	if err != nil {
		var integrityErr *aggcache.IntegrityError
		if errors.As(err, &integrityErr) {
			slog.Error("[Builder] Cache integrity violation, aborting run",
				"sheet", cfg.Name, "error", err)
			return nil, result, err
		}
		return nil, b.skip(result, SkipReasonPipelineFailed, err.Error()), nil
	}

	periods, err := b.year.PeriodRange(p.Scale)
	if err != nil {
		return nil, b.skip(result, SkipReasonBadConfig, err.Error()), nil
	}

	if p.RollupFromDaily {
		table, err = pipeline.RollupDaily(table, periods, "Date", p.KeyColumn)
		if err != nil {
			return nil, b.skip(result, SkipReasonPipelineFailed, err.Error()), nil
		}
	}
	if p.ZeroFill {
		table, err = densify.Densify(table, periods, p.KeyColumn)
		if err != nil {
			return nil, b.skip(result, SkipReasonPipelineFailed, err.Error()), nil
		}
	}

	res, err := timeseries.Augment(ctx, table, cfg.Metric, p.KeyColumn, cfg.Analysis)
	if err != nil {
		var cfgErr *timeseries.ConfigError
		if errors.As(err, &cfgErr) {
			return nil, b.skip(result, SkipReasonBadConfig, err.Error()), nil
		}
		return nil, b.skip(result, SkipReasonPipelineFailed, err.Error()), nil
	}

	b.metrics.ObserveAugmentation(cfg.Name, "acf", string(res.ACFStatus))
	b.metrics.ObserveAugmentation(cfg.Name, "forecast", string(res.ForecastStatus))

	sheet, err := AssembleSheet(cfg, res)
	if err != nil {
		var dupErr *DuplicateColumnError
		if errors.As(err, &dupErr) {
			slog.Error("[Builder] Refusing sheet with duplicated columns",
				"sheet", cfg.Name, "columns", dupErr.Columns)
			return nil, b.skip(result, SkipReasonDuplicateColumns, err.Error()), nil
		}
		return nil, b.skip(result, SkipReasonBadConfig, err.Error()), nil
	}

	result.Status = v1.SheetStatusOK
	if res.Degraded() {
		result.Status = v1.SheetStatusDegraded
	}
	result.ACFStatus = string(res.ACFStatus)
	result.ForecastStatus = string(res.ForecastStatus)
	result.ForecastMethod = res.ForecastMethod
	result.DroppedLags = res.DroppedLags
	result.Columns = res.Table.ColumnNames()
	result.Rows = res.Table.NumRows()

	b.metrics.ObserveSheetBuilt()
	slog.Info("[Builder] Sheet built",
		"sheet", cfg.Name,
		"status", result.Status,
		"rows", result.Rows,
		"columns", len(result.Columns),
	)
	return sheet, result, nil
}

func (b *Builder) skip(result v1.SheetResult, reason, detail string) v1.SheetResult {
	slog.Warn("[Builder] Sheet skipped", "sheet", result.Name, "reason", reason, "detail", detail)
	b.metrics.ObserveSheetSkipped(reason)
	result.Status = v1.SheetStatusSkipped
	result.SkipReason = reason
	return result
}
