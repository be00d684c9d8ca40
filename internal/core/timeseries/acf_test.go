package timeseries

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestACFValues_KnownShapes(t *testing.T) {
	// Strongly alternating series: lag-1 autocorrelation is strongly
	// negative, lag-2 strongly positive.
	alternating := []float64{1, -1, 1, -1, 1, -1, 1, -1, 1, -1, 1, -1}
	r := acfValues(alternating, 2)
	require.NotNil(t, r)
	require.Equal(t, 1.0, r[0])
	require.Less(t, r[1], -0.8)
	require.Greater(t, r[2], 0.7)

	// Slowly trending series: lag-1 autocorrelation is strongly positive.
	trend := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	r = acfValues(trend, 1)
	require.NotNil(t, r)
	require.Greater(t, r[1], 0.5)
}

func TestACFValues_DegenerateInputs(t *testing.T) {
	require.Nil(t, acfValues([]float64{1, 2}, 1), "too short")
	require.Nil(t, acfValues([]float64{3, 3, 3, 3, 3}, 2), "constant series has no ACF")
	require.Nil(t, acfValues([]float64{1, 2, 3, 4}, 0), "lag must be positive")
}

func TestPACFValues_FirstLagMatchesACF(t *testing.T) {
	x := wavyCounts(20)
	r := acfValues(x, 4)
	require.NotNil(t, r)

	phi := pacfValues(r)
	require.Len(t, phi, 5)
	require.InDelta(t, r[1], phi[1], 1e-12, "PACF at lag 1 equals ACF at lag 1")
	for _, v := range phi {
		if !math.IsNaN(v) {
			require.LessOrEqual(t, math.Abs(v), 1.5, "coefficients stay bounded")
		}
	}
}

func TestNormalQuantile(t *testing.T) {
	require.InDelta(t, 1.96, normalQuantile(0.95), 0.01)
	require.InDelta(t, 1.645, normalQuantile(0.90), 0.01)
}

func TestForecastSeries_ARIMAOnStructuredSeries(t *testing.T) {
	x := wavyCounts(40)
	f, err := forecastSeries(context.Background(), x, 7, 0.95)
	require.NoError(t, err)
	require.Len(t, f.Point, 7)
	require.Len(t, f.Lower, 7)
	require.Len(t, f.Upper, 7)
	for i := range f.Point {
		require.False(t, math.IsNaN(f.Point[i]))
		require.LessOrEqual(t, f.Lower[i], f.Point[i])
		require.GreaterOrEqual(t, f.Upper[i], f.Point[i])
	}
	// Bands widen with the horizon for ARIMA forecasts.
	if f.Method == MethodARIMA {
		first := f.Upper[0] - f.Lower[0]
		last := f.Upper[6] - f.Lower[6]
		require.GreaterOrEqual(t, last, first)
	}
}

func TestForecastSeries_TooShort(t *testing.T) {
	_, err := forecastSeries(context.Background(), []float64{1, 2, 3}, 5, 0.95)
	require.ErrorIs(t, err, ErrModelFitting)
}

func TestFallbackForecast_Ladder(t *testing.T) {
	z := normalQuantile(0.95)

	f := fallbackForecast(wavyCounts(12), 3, z)
	require.NotNil(t, f)
	require.Equal(t, MethodMovingAverage, f.Method)
	require.True(t, f.Fallback)

	f = fallbackForecast([]float64{4, 4, 4, 4, 4, 4}, 3, z)
	require.NotNil(t, f)
	require.Equal(t, MethodLinearTrend, f.Method)
	require.InDelta(t, 4, f.Point[0], 1e-9)

	f = fallbackForecast([]float64{7, 7}, 3, z)
	require.NotNil(t, f)
	require.Equal(t, MethodHistoricalMean, f.Method)
	require.InDelta(t, 7, f.Point[2], 1e-9)

	require.Nil(t, fallbackForecast(nil, 3, z))
}

func TestDifferenceAndIntegrateRoundTrip(t *testing.T) {
	x := []float64{3, 5, 9, 14, 20}
	w := difference(x, 1)
	require.Equal(t, []float64{2, 4, 5, 6}, w)

	// Integrating a forecast of the exact next differences reproduces the
	// levels that would follow.
	levels := integrate(x, []float64{7, 8}, 1)
	require.Equal(t, []float64{27, 35}, levels)

	require.Equal(t, x, difference(x, 0))
}
