// Package aggcache memoizes aggregation pipeline executions for the
// duration of a report run.
//
// The cache's one hard rule: stored results never leak by reference. Every
// read returns a deep copy, so a sheet that appends analysis columns to its
// view can never grow the columns another sheet observes. Combined with
// single-writer-per-key admission this keeps the cache correct under
// concurrent sheet construction.
package aggcache

import (
	"context"
	"fmt"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/ardata-lab/ardata/internal/core/dataset"
)

// defaultSize bounds the number of retained results. A report run touches a
// few dozen distinct pipelines at most; the bound is a memory backstop, not
// a tuning knob.
const defaultSize = 128

// Executor runs an aggregation request against the underlying store.
type Executor interface {
	Execute(ctx context.Context, req dataset.AggregationRequest) (*dataset.Table, error)
}

// Events receives cache observability signals.
type Events interface {
	CacheHit(pipeline string)
	CacheMiss(pipeline string)
}

// NopEvents discards all cache events.
type NopEvents struct{}

func (NopEvents) CacheHit(string)  {}
func (NopEvents) CacheMiss(string) {}

// IntegrityError reports a stored entry whose identity does not match the
// request that retrieved it. It indicates a correctness violation inside
// the caching layer and is fatal for the whole report run.
type IntegrityError struct {
	RequestKey string
	StoredKey  string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("cache integrity: entry %q returned for request %q", e.StoredKey, e.RequestKey)
}

// Cache memoizes aggregation results keyed by canonical request identity.
type Cache struct {
	store  *lru.Cache[string, *dataset.AggregationResult]
	group  singleflight.Group
	exec   Executor
	events Events
}

// New creates a cache over the given executor.
func New(exec Executor, events Events) (*Cache, error) {
	if events == nil {
		events = NopEvents{}
	}
	store, err := lru.New[string, *dataset.AggregationResult](defaultSize)
	if err != nil {
		return nil, fmt.Errorf("aggcache: %w", err)
	}
	return &Cache{store: store, exec: exec, events: events}, nil
}

// Get returns the result for the request, executing the aggregation on the
// first call for its identity. Identity is canonical: requests differing
// only in flag ordering share an entry. The returned table is always an
// independent deep copy of the stored value.
//
// A failed execution stores nothing, so the next call for the same identity
// retries. Concurrent misses for one key collapse into a single execution;
// the caller that wins performs the only write the key will ever see.
func (c *Cache) Get(ctx context.Context, req dataset.AggregationRequest) (*dataset.Table, error) {
	key := req.CacheKey()

	if res, ok := c.store.Get(key); ok {
		if res.Key != key {
			return nil, &IntegrityError{RequestKey: key, StoredKey: res.Key}
		}
		c.events.CacheHit(req.Pipeline)
		slog.Debug("[AggCache] Hit", "pipeline", req.Pipeline, "key", key)
		return res.Table.Clone(), nil
	}

	c.events.CacheMiss(req.Pipeline)
	slog.Info("[AggCache] Miss, executing aggregation", "pipeline", req.Pipeline, "key", key)

	v, err, _ := c.group.Do(key, func() (any, error) {
		// Re-check under the flight: a concurrent winner may have stored
		// the entry between our lookup and this callback.
		if res, ok := c.store.Get(key); ok {
			return res, nil
		}
		table, err := c.exec.Execute(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("aggregation %q: %w", req.Pipeline, err)
		}
		res := &dataset.AggregationResult{Key: key, Table: table}
		c.store.Add(key, res)
		return res, nil
	})
	if err != nil {
		return nil, err
	}

	res := v.(*dataset.AggregationResult)
	if res.Key != key {
		return nil, &IntegrityError{RequestKey: key, StoredKey: res.Key}
	}
	return res.Table.Clone(), nil
}

// Len returns the number of memoized results.
func (c *Cache) Len() int { return c.store.Len() }

// Purge drops every entry. Called between report runs so each run observes
// fresh aggregations.
func (c *Cache) Purge() { c.store.Purge() }
