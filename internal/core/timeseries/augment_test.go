package timeseries

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ardata-lab/ardata/internal/core/dataset"
)

// dailySeries builds a dense daily series of the given counts.
func dailySeries(t *testing.T, counts []float64) *dataset.Table {
	t.Helper()
	tbl := dataset.BaseColumns("Date", "Total_Files")
	for i, c := range counts {
		require.NoError(t, tbl.AppendRow(fmt.Sprintf("2024-09-%02d", i+1), c))
	}
	return tbl
}

// wavyCounts yields a non-constant series with a weekly-ish rhythm so ACF
// and model fitting have structure to find.
func wavyCounts(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 10 + 4*math.Sin(2*math.Pi*float64(i)/7) + float64(i%3)
	}
	return out
}

func TestAugment_ColumnCountFormula(t *testing.T) {
	series := dailySeries(t, wavyCounts(60))
	base := series.NumColumns()

	res, err := Augment(context.Background(), series, "Total_Files", "Date", Config{
		ACFEnabled: true,
		Lags:       []int{1, 7, 14},
	})
	require.NoError(t, err)

	// All lags survive (floor(60/2)-1 = 29): exactly 3 ACF + 3 PACF columns.
	require.Equal(t, StatusOK, res.ACFStatus)
	require.Equal(t, StatusDisabled, res.ForecastStatus)
	require.Equal(t, []int{1, 7, 14}, res.SurvivingLags)
	require.Empty(t, res.DroppedLags)
	require.Equal(t, base+6, res.Table.NumColumns())
	require.Equal(t, []string{
		"Total_Files_ACF_Lag_1", "Total_Files_ACF_Lag_7", "Total_Files_ACF_Lag_14",
		"Total_Files_PACF_Lag_1", "Total_Files_PACF_Lag_7", "Total_Files_PACF_Lag_14",
	}, res.AddedColumns)
	require.Equal(t, base, series.NumColumns(), "input series must not be mutated")
}

func TestAugment_LagBoundEnforcement(t *testing.T) {
	series := dailySeries(t, wavyCounts(10))

	res, err := Augment(context.Background(), series, "Total_Files", "Date", Config{
		ACFEnabled: true,
		Lags:       []int{1, 7, 14},
	})
	require.NoError(t, err)

	// floor(10/2)-1 = 4: only lag 1 survives.
	require.Equal(t, []int{1}, res.SurvivingLags)
	require.Equal(t, []int{7, 14}, res.DroppedLags)
	require.Equal(t, []string{"Total_Files_ACF_Lag_1", "Total_Files_PACF_Lag_1"}, res.AddedColumns)
}

func TestAugment_AllLagsDroppedIsInsufficientData(t *testing.T) {
	series := dailySeries(t, wavyCounts(6))

	res, err := Augment(context.Background(), series, "Total_Files", "Date", Config{
		ACFEnabled: true,
		Lags:       []int{5, 9},
	})
	require.NoError(t, err)
	require.Equal(t, StatusInsufficientData, res.ACFStatus)
	require.Empty(t, res.AddedColumns, "no columns when no lag survives")
	require.True(t, res.Degraded())
}

func TestAugment_IsIdempotentAcrossFreshCopies(t *testing.T) {
	cfg := Config{
		ACFEnabled:      true,
		Lags:            []int{1, 7},
		ForecastEnabled: true,
		Horizon:         7,
		ConfidenceLevel: 0.95,
	}
	counts := wavyCounts(14)

	first, err := Augment(context.Background(), dailySeries(t, counts), "Total_Files", "Date", cfg)
	require.NoError(t, err)
	second, err := Augment(context.Background(), dailySeries(t, counts), "Total_Files", "Date", cfg)
	require.NoError(t, err)

	require.Equal(t, first.Table.ColumnNames(), second.Table.ColumnNames())
	require.Equal(t, first.Table.NumColumns(), second.Table.NumColumns())
	require.Empty(t, first.Table.DuplicateColumnNames())
}

func TestAugment_RefusesAlreadyAugmentedSeries(t *testing.T) {
	series := dailySeries(t, wavyCounts(14))
	cfg := Config{ACFEnabled: true, Lags: []int{1}}

	res, err := Augment(context.Background(), series, "Total_Files", "Date", cfg)
	require.NoError(t, err)

	// Feeding an augmented table back in must not stack a second column set.
	_, err = Augment(context.Background(), res.Table, "Total_Files", "Date", cfg)
	require.Error(t, err)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestAugment_EndToEndDailyScenario(t *testing.T) {
	// 14 daily counts, lags [1,7], horizon 7 at 0.95. The usable lag bound
	// at n=14 is floor(14/2)-1 = 6, so lag 7 drops. A lag-7 column would
	// never receive a value at this length; emitting it empty would only
	// fake coverage. Result: base + 1 ACF + 1 PACF + 3 forecast columns.
	series := dailySeries(t, wavyCounts(14))
	base := series.NumColumns()

	res, err := Augment(context.Background(), series, "Total_Files", "Date", Config{
		ACFEnabled:      true,
		Lags:            []int{1, 7},
		ForecastEnabled: true,
		Horizon:         7,
		ConfidenceLevel: 0.95,
	})
	require.NoError(t, err)

	require.Equal(t, base+5, res.Table.NumColumns())
	require.Equal(t, []int{1}, res.SurvivingLags)
	require.Equal(t, []int{7}, res.DroppedLags)
	require.False(t, res.Table.ColumnIndex("Total_Files_ACF_Lag_7") >= 0)
	require.Equal(t, StatusOK, res.ACFStatus)
	require.Contains(t, []Status{StatusOK, StatusFallback}, res.ForecastStatus)
	require.Equal(t, 14+7, res.Table.NumRows(), "horizon rows appended for forecast periods")

	// Future rows carry forecast values and labeled period keys.
	key, _ := res.Table.Value(14, "Date")
	require.Equal(t, "F+1", key)
	point, _ := res.Table.Value(14, "Total_Files_Forecast")
	require.IsType(t, float64(0), point)
	lo, _ := res.Table.Value(14, "Total_Files_Forecast_Lower")
	hi, _ := res.Table.Value(14, "Total_Files_Forecast_Upper")
	require.LessOrEqual(t, lo.(float64), point.(float64))
	require.GreaterOrEqual(t, hi.(float64), point.(float64))

	// Observed rows have no forecast cells.
	v, _ := res.Table.Value(0, "Total_Files_Forecast")
	require.Nil(t, v)

	// Re-run on an independent copy: byte-identical column names and count.
	again, err := Augment(context.Background(), dailySeries(t, wavyCounts(14)), "Total_Files", "Date", Config{
		ACFEnabled:      true,
		Lags:            []int{1, 7},
		ForecastEnabled: true,
		Horizon:         7,
		ConfidenceLevel: 0.95,
	})
	require.NoError(t, err)
	require.Equal(t, res.Table.ColumnNames(), again.Table.ColumnNames())
}

func TestAugment_ForecastFailureAddsNoColumns(t *testing.T) {
	series := dailySeries(t, []float64{1, 2, 3})
	base := series.NumColumns()

	res, err := Augment(context.Background(), series, "Total_Files", "Date", Config{
		ForecastEnabled: true,
		Horizon:         5,
		ConfidenceLevel: 0.95,
	})
	require.NoError(t, err)
	require.Equal(t, StatusInsufficientData, res.ForecastStatus)
	require.Equal(t, base, res.Table.NumColumns(), "failed forecast must not zero-fill columns")
	require.Equal(t, 3, res.Table.NumRows())
}

func TestAugment_ConstantSeriesUsesFallbackForecast(t *testing.T) {
	series := dailySeries(t, []float64{5, 5, 5, 5, 5, 5, 5, 5})

	res, err := Augment(context.Background(), series, "Total_Files", "Date", Config{
		ForecastEnabled: true,
		Horizon:         3,
		ConfidenceLevel: 0.95,
	})
	require.NoError(t, err)
	require.Equal(t, StatusFallback, res.ForecastStatus)
	require.NotEmpty(t, res.ForecastMethod)

	point, _ := res.Table.Value(8, "Total_Files_Forecast")
	require.InDelta(t, 5, point.(float64), 0.1)
}

func TestAugment_ConfigValidation(t *testing.T) {
	series := dailySeries(t, wavyCounts(10))

	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "non-positive lag", cfg: Config{ACFEnabled: true, Lags: []int{0}}},
		{name: "duplicate lag", cfg: Config{ACFEnabled: true, Lags: []int{1, 1}}},
		{name: "empty lags", cfg: Config{ACFEnabled: true}},
		{name: "non-positive horizon", cfg: Config{ForecastEnabled: true, Horizon: 0, ConfidenceLevel: 0.95}},
		{name: "confidence at 1", cfg: Config{ForecastEnabled: true, Horizon: 3, ConfidenceLevel: 1}},
		{name: "confidence at 0", cfg: Config{ForecastEnabled: true, Horizon: 3, ConfidenceLevel: 0}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Augment(context.Background(), series, "Total_Files", "Date", tc.cfg)
			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
		})
	}

	_, err := Augment(context.Background(), series, "Missing_Metric", "Date", Config{ACFEnabled: true, Lags: []int{1}})
	require.Error(t, err, "unknown metric column is a configuration error")
}

func TestAugment_ForecastTimeoutMarksFailed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := Augment(ctx, dailySeries(t, wavyCounts(30)), "Total_Files", "Date", Config{
		ForecastEnabled: true,
		Horizon:         7,
		ConfidenceLevel: 0.95,
	})
	require.NoError(t, err, "timeout degrades, never aborts the sheet")
	require.Equal(t, StatusFailed, res.ForecastStatus)
}
