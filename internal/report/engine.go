package report

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ardata-lab/ardata/internal/aggcache"
	v1 "github.com/ardata-lab/ardata/internal/api/v1"
	"github.com/ardata-lab/ardata/internal/core/pipeline"
	"github.com/ardata-lab/ardata/internal/core/storage"
	"github.com/ardata-lab/ardata/internal/metrics"
)

// ErrRunInProgress is returned when a run is requested while another run is
// still executing. Runs share the aggregation cache, so overlapping them
// would make hit/miss accounting meaningless.
var ErrRunInProgress = errors.New("a report run is already in progress")

// CacheStats counts cache traffic for run records while forwarding every
// event to the wrapped sink (normally the Prometheus collectors).
type CacheStats struct {
	inner  aggcache.Events
	hits   atomic.Int64
	misses atomic.Int64
}

func NewCacheStats(inner aggcache.Events) *CacheStats {
	if inner == nil {
		inner = aggcache.NopEvents{}
	}
	return &CacheStats{inner: inner}
}

func (s *CacheStats) CacheHit(pipeline string) {
	s.hits.Add(1)
	s.inner.CacheHit(pipeline)
}

func (s *CacheStats) CacheMiss(pipeline string) {
	s.misses.Add(1)
	s.inner.CacheMiss(pipeline)
}

// Engine orchestrates report runs: it walks the sheet catalog, builds each
// enabled sheet, exports the workbook, and persists the run record. The
// latest built sheets are kept in memory so the API can serve them as JSON
// without re-running the pipeline.
type Engine struct {
	catalog    *pipeline.Catalog
	builder    *Builder
	runs       storage.RunStore
	exporter   *Exporter
	metrics    *metrics.Metrics
	cacheStats *CacheStats

	running atomic.Bool

	mu          sync.RWMutex
	latest      map[string]*Sheet
	latestRunID string
}

func NewEngine(catalog *pipeline.Catalog, builder *Builder, runs storage.RunStore, exporter *Exporter, m *metrics.Metrics, cacheStats *CacheStats) *Engine {
	return &Engine{
		catalog:    catalog,
		builder:    builder,
		runs:       runs,
		exporter:   exporter,
		metrics:    m,
		cacheStats: cacheStats,
		latest:     make(map[string]*Sheet),
	}
}

// Run executes one full report run. Sheet failures are soft and recorded on
// the run; only export or a cancelled context fail the run itself.
func (e *Engine) Run(ctx context.Context) (*v1.ReportRun, error) {
	if !e.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer e.running.Store(false)

	run := &v1.ReportRun{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Status:    v1.RunStatusRunning,
	}
	if err := e.runs.SaveRun(ctx, run); err != nil {
		slog.Warn("[Engine] Failed to persist run start", "run_id", run.ID, "error", err)
	}

	hitsBefore := e.cacheStats.hits.Load()
	missesBefore := e.cacheStats.misses.Load()

	enabled := e.catalog.Sheets()
	slog.Info("[Engine] Report run started", "run_id", run.ID, "sheets", len(enabled))

	var sheets []*Sheet
	for _, cfg := range enabled {
		if err := ctx.Err(); err != nil {
			return e.finish(run, nil, err)
		}

		sheet, sheetResult, err := e.builder.BuildSheet(ctx, cfg)
		run.Sheets = append(run.Sheets, sheetResult)
		if err != nil {
			return e.finish(run, nil, err)
		}
		if sheet != nil {
			sheets = append(sheets, sheet)
		}
	}

	run.CacheHits = int(e.cacheStats.hits.Load() - hitsBefore)
	run.CacheMisses = int(e.cacheStats.misses.Load() - missesBefore)

	path, err := e.exporter.Export(run.ID, sheets, run.Sheets)
	if err != nil {
		return e.finish(run, sheets, err)
	}
	run.OutputPath = path

	return e.finish(run, sheets, nil)
}

func (e *Engine) finish(run *v1.ReportRun, sheets []*Sheet, err error) (*v1.ReportRun, error) {
	run.FinishedAt = time.Now().UTC()
	e.metrics.ObserveRunDuration(run.FinishedAt.Sub(run.StartedAt).Seconds())

	if err != nil {
		run.Status = v1.RunStatusFailed
		run.Error = err.Error()
		slog.Error("[Engine] Report run failed", "run_id", run.ID, "error", err)
	} else {
		run.Status = v1.RunStatusCompleted
		e.mu.Lock()
		e.latest = make(map[string]*Sheet, len(sheets))
		for _, s := range sheets {
			e.latest[s.Name] = s
		}
		e.latestRunID = run.ID
		e.mu.Unlock()
		slog.Info("[Engine] Report run completed",
			"run_id", run.ID,
			"duration", run.FinishedAt.Sub(run.StartedAt),
			"sheets", len(sheets),
			"cache_hits", run.CacheHits,
			"cache_misses", run.CacheMisses,
			"output", run.OutputPath,
		)
	}

	saveCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if saveErr := e.runs.SaveRun(saveCtx, run); saveErr != nil {
		slog.Error("[Engine] Failed to persist run record", "run_id", run.ID, "error", saveErr)
	}
	return run, err
}

// Sheet returns the named sheet from the most recent completed run.
func (e *Engine) Sheet(name string) (*Sheet, string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s, ok := e.latest[name]
	return s, e.latestRunID, ok
}
