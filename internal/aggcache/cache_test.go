package aggcache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ardata-lab/ardata/internal/core/dataset"
)

type countingExecutor struct {
	mu    sync.Mutex
	calls int32
	fail  bool
}

func (e *countingExecutor) Execute(_ context.Context, req dataset.AggregationRequest) (*dataset.Table, error) {
	atomic.AddInt32(&e.calls, 1)
	if e.fail {
		return nil, errors.New("aggregation backend down")
	}
	t := dataset.BaseColumns("Date", "Total_Files")
	if err := t.AppendRow("2024-09-03", int64(12)); err != nil {
		return nil, err
	}
	return t, nil
}

type recordingEvents struct {
	hits, misses int32
}

func (r *recordingEvents) CacheHit(string)  { atomic.AddInt32(&r.hits, 1) }
func (r *recordingEvents) CacheMiss(string) { atomic.AddInt32(&r.misses, 1) }

func request(flags ...string) dataset.AggregationRequest {
	return dataset.AggregationRequest{
		Pipeline:   "DAILY_COUNTS_ALL_WITH_ZEROES",
		Collection: "media_records",
		Flags:      flags,
	}
}

func TestCache_MissThenHit(t *testing.T) {
	exec := &countingExecutor{}
	events := &recordingEvents{}
	c, err := New(exec, events)
	require.NoError(t, err)

	ctx := context.Background()
	first, err := c.Get(ctx, request())
	require.NoError(t, err)
	require.Equal(t, 1, first.NumRows())

	second, err := c.Get(ctx, request())
	require.NoError(t, err)
	require.Equal(t, int32(1), atomic.LoadInt32(&exec.calls), "aggregation executed exactly once")
	require.Equal(t, int32(1), atomic.LoadInt32(&events.misses))
	require.Equal(t, int32(1), atomic.LoadInt32(&events.hits))
	require.Equal(t, first.ColumnNames(), second.ColumnNames())
}

func TestCache_FlagOrderSharesEntry(t *testing.T) {
	exec := &countingExecutor{}
	c, err := New(exec, NopEvents{})
	require.NoError(t, err)

	ctx := context.Background()
	_, err = c.Get(ctx, request(dataset.FlagCollectionDaysOnly, dataset.FlagExcludeOutliers))
	require.NoError(t, err)
	_, err = c.Get(ctx, request(dataset.FlagExcludeOutliers, dataset.FlagCollectionDaysOnly))
	require.NoError(t, err)

	require.Equal(t, int32(1), atomic.LoadInt32(&exec.calls), "cache miss exactly once for the same effective flag set")
	require.Equal(t, 1, c.Len())
}

func TestCache_NoSharedMutationLeakage(t *testing.T) {
	exec := &countingExecutor{}
	c, err := New(exec, NopEvents{})
	require.NoError(t, err)

	ctx := context.Background()
	siteA, err := c.Get(ctx, request())
	require.NoError(t, err)
	siteB, err := c.Get(ctx, request())
	require.NoError(t, err)

	// Site A bolts analysis columns onto its view, twice even.
	require.NoError(t, siteA.AppendColumn(dataset.Column{Name: "Total_Files_ACF_Lag_1", Kind: dataset.KindACF}, []any{0.5}))
	require.NoError(t, siteA.AppendColumn(dataset.Column{Name: "Total_Files_ACF_Lag_1", Kind: dataset.KindACF}, []any{0.5}))

	require.Equal(t, 2, siteB.NumColumns(), "site B's view is unaffected")

	siteC, err := c.Get(ctx, request())
	require.NoError(t, err)
	require.Equal(t, 2, siteC.NumColumns(), "stored entry never mutated")
}

func TestCache_FailedExecutionIsNotPoisoned(t *testing.T) {
	exec := &countingExecutor{fail: true}
	c, err := New(exec, NopEvents{})
	require.NoError(t, err)

	ctx := context.Background()
	_, err = c.Get(ctx, request())
	require.Error(t, err)
	require.Equal(t, 0, c.Len(), "failure stores no entry")

	exec.fail = false
	table, err := c.Get(ctx, request())
	require.NoError(t, err, "retry succeeds after transient failure")
	require.Equal(t, 1, table.NumRows())
	require.Equal(t, int32(2), atomic.LoadInt32(&exec.calls))
}

func TestCache_ConcurrentMissesCollapse(t *testing.T) {
	exec := &countingExecutor{}
	c, err := New(exec, NopEvents{})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Get(context.Background(), request())
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), atomic.LoadInt32(&exec.calls), "single writer per key")
}

func TestCache_Purge(t *testing.T) {
	exec := &countingExecutor{}
	c, err := New(exec, NopEvents{})
	require.NoError(t, err)

	_, err = c.Get(context.Background(), request())
	require.NoError(t, err)
	require.Equal(t, 1, c.Len())

	c.Purge()
	require.Equal(t, 0, c.Len())

	_, err = c.Get(context.Background(), request())
	require.NoError(t, err)
	require.Equal(t, int32(2), atomic.LoadInt32(&exec.calls), "fresh run re-executes")
}

func TestCache_StoredKeyMismatchIsIntegrityError(t *testing.T) {
	exec := &countingExecutor{}
	c, err := New(exec, NopEvents{})
	require.NoError(t, err)

	// Plant an entry whose recorded identity disagrees with the slot it
	// occupies, simulating a corrupted store.
	req := request()
	table := dataset.BaseColumns("Date", "Total_Files")
	require.NoError(t, table.AppendRow("2024-09-03", int64(12)))
	c.store.Add(req.CacheKey(), &dataset.AggregationResult{Key: "some-other-key", Table: table})

	_, err = c.Get(context.Background(), req)
	var integrityErr *IntegrityError
	require.ErrorAs(t, err, &integrityErr)
	require.Equal(t, req.CacheKey(), integrityErr.RequestKey)
	require.Equal(t, "some-other-key", integrityErr.StoredKey)
	require.Equal(t, int32(0), atomic.LoadInt32(&exec.calls), "corrupted entry must not trigger re-execution")
}
