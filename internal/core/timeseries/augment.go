// Package timeseries computes the analysis columns for a dense time series:
// autocorrelation (ACF), partial autocorrelation (PACF), and an ARIMA-style
// forecast with confidence bounds.
//
// Augment is a pure function of (series, config): it never writes to its
// input and re-running it on a fresh copy of the same logical series always
// reproduces the identical column set. Column order is fixed — the ACF block
// (ascending lag), the PACF block, optional significance blocks in the same
// order, then the three forecast columns.
package timeseries

import (
	"context"
	"fmt"
	"math"

	"github.com/ardata-lab/ardata/internal/core/dataset"
)

// Status describes the outcome of one augmentation concern.
type Status string

const (
	StatusDisabled         Status = "disabled"
	StatusOK               Status = "ok"
	StatusInsufficientData Status = "insufficient_data"
	StatusFallback         Status = "fallback"
	StatusFailed           Status = "failed"
)

// Result is the augmented table plus the per-concern statuses the sheet
// needs to render "insufficient data" / "forecast unavailable" placeholders
// instead of silently dropping analysis.
type Result struct {
	Table *dataset.Table

	ACFStatus      Status
	ForecastStatus Status

	SurvivingLags  []int
	DroppedLags    []int
	ForecastMethod string
	ForecastOrder  [3]int
	AddedColumns   []string
}

// Degraded reports whether any requested analysis was omitted or produced by
// a fallback model.
func (r *Result) Degraded() bool {
	return r.ACFStatus == StatusInsufficientData ||
		r.ForecastStatus == StatusInsufficientData ||
		r.ForecastStatus == StatusFallback ||
		r.ForecastStatus == StatusFailed
}

// Augment returns a new table: a deep copy of series with the analysis
// columns for metric appended. periodColumn names the period-key column so
// forecast rows appended past the observed range can be labeled; it may be
// empty when the series has no key column.
//
// Lags exceeding floor(n/2)-1 are dropped and reported. Forecast columns are
// appended only when a model (or fallback) produced usable values — a failed
// forecast adds no columns at all, so callers can distinguish "not
// requested", "insufficient data", and "attempted but failed" through the
// statuses.
func Augment(ctx context.Context, series *dataset.Table, metric, periodColumn string, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if series.ColumnIndex(metric) < 0 {
		return nil, &ConfigError{Reason: fmt.Sprintf("metric column %q not present in series", metric)}
	}
	if periodColumn != "" && series.ColumnIndex(periodColumn) < 0 {
		return nil, &ConfigError{Reason: fmt.Sprintf("period column %q not present in series", periodColumn)}
	}

	values, err := series.Float64Column(metric)
	if err != nil {
		return nil, &ConfigError{Reason: err.Error()}
	}

	res := &Result{
		Table:          series.Clone(),
		ACFStatus:      StatusDisabled,
		ForecastStatus: StatusDisabled,
	}

	if cfg.ACFEnabled {
		if err := augmentACF(res, values, metric, cfg); err != nil {
			return nil, err
		}
	}
	if cfg.ForecastEnabled {
		if err := augmentForecast(ctx, res, values, metric, periodColumn, cfg); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func augmentACF(res *Result, values []float64, metric string, cfg Config) error {
	n := len(values)
	res.SurvivingLags, res.DroppedLags = SplitLags(cfg.Lags, n)
	if len(res.SurvivingLags) == 0 {
		res.ACFStatus = StatusInsufficientData
		return nil
	}

	maxLag := res.SurvivingLags[len(res.SurvivingLags)-1]

	// Expanding-window estimates: row i carries the coefficient computed on
	// values[0..i], so the sheet shows how the statistic stabilizes as data
	// accumulates. Rows too short for a lag stay empty.
	acfCols := make(map[int][]any, len(res.SurvivingLags))
	pacfCols := make(map[int][]any, len(res.SurvivingLags))
	sigACF := make(map[int][]any, len(res.SurvivingLags))
	sigPACF := make(map[int][]any, len(res.SurvivingLags))
	for _, lag := range res.SurvivingLags {
		acfCols[lag] = make([]any, n)
		pacfCols[lag] = make([]any, n)
		sigACF[lag] = make([]any, n)
		sigPACF[lag] = make([]any, n)
	}

	z := normalQuantile(confidenceOrDefault(cfg))
	for i := 0; i < n; i++ {
		window := values[:i+1]
		nobs := i + 1
		windowMax := MaxLagForLength(nobs)
		if windowMax > maxLag {
			windowMax = maxLag
		}
		if nobs < minObservations || windowMax < 1 {
			continue
		}

		r := acfValues(window, windowMax)
		if r == nil {
			continue
		}
		phi := pacfValues(r)
		band := z / math.Sqrt(float64(nobs))

		for _, lag := range res.SurvivingLags {
			if lag > windowMax {
				continue
			}
			if !math.IsNaN(r[lag]) {
				acfCols[lag][i] = r[lag]
				sigACF[lag][i] = math.Abs(r[lag]) > band
			}
			if !math.IsNaN(phi[lag]) {
				pacfCols[lag][i] = phi[lag]
				sigPACF[lag][i] = math.Abs(phi[lag]) > band
			}
		}
	}

	for _, lag := range res.SurvivingLags {
		if err := appendOnce(res, dataset.Column{Name: ACFColumnName(metric, lag), Kind: dataset.KindACF}, acfCols[lag]); err != nil {
			return err
		}
	}
	for _, lag := range res.SurvivingLags {
		if err := appendOnce(res, dataset.Column{Name: PACFColumnName(metric, lag), Kind: dataset.KindPACF}, pacfCols[lag]); err != nil {
			return err
		}
	}
	if cfg.IncludeConfidence {
		for _, lag := range res.SurvivingLags {
			if err := appendOnce(res, dataset.Column{Name: ACFColumnName(metric, lag) + "_Significant", Kind: dataset.KindACF}, sigACF[lag]); err != nil {
				return err
			}
		}
		for _, lag := range res.SurvivingLags {
			if err := appendOnce(res, dataset.Column{Name: PACFColumnName(metric, lag) + "_Significant", Kind: dataset.KindPACF}, sigPACF[lag]); err != nil {
				return err
			}
		}
	}

	res.ACFStatus = StatusOK
	return nil
}

func augmentForecast(ctx context.Context, res *Result, values []float64, metric, periodColumn string, cfg Config) error {
	if len(values) < minForecastLength {
		res.ForecastStatus = StatusInsufficientData
		return nil
	}

	f, err := forecastSeries(ctx, values, cfg.Horizon, cfg.ConfidenceLevel)
	if err != nil {
		res.ForecastStatus = StatusFailed
		return nil
	}
	res.ForecastMethod = f.Method
	res.ForecastOrder = f.Order
	if f.Fallback {
		res.ForecastStatus = StatusFallback
	} else {
		res.ForecastStatus = StatusOK
	}

	// Forecasts describe future periods: extend the table by horizon rows
	// with base cells empty, then fill the three forecast columns on those
	// rows only.
	observed := res.Table.NumRows()
	periodIdx := -1
	if periodColumn != "" {
		periodIdx = res.Table.ColumnIndex(periodColumn)
	}
	width := res.Table.NumColumns()
	for i := 0; i < cfg.Horizon; i++ {
		row := make([]any, width)
		if periodIdx >= 0 {
			row[periodIdx] = fmt.Sprintf("F+%d", i+1)
		}
		if err := res.Table.AppendRow(row...); err != nil {
			return err
		}
	}

	total := res.Table.NumRows()
	point := make([]any, total)
	lower := make([]any, total)
	upper := make([]any, total)
	for i := 0; i < cfg.Horizon; i++ {
		point[observed+i] = f.Point[i]
		lower[observed+i] = f.Lower[i]
		upper[observed+i] = f.Upper[i]
	}

	if err := appendOnce(res, dataset.Column{Name: ForecastColumnName(metric), Kind: dataset.KindForecast}, point); err != nil {
		return err
	}
	if err := appendOnce(res, dataset.Column{Name: ForecastColumnName(metric) + "_Lower", Kind: dataset.KindForecast}, lower); err != nil {
		return err
	}
	return appendOnce(res, dataset.Column{Name: ForecastColumnName(metric) + "_Upper", Kind: dataset.KindForecast}, upper)
}

// appendOnce refuses to stack an analysis column onto a table that already
// carries one with the same name. The historical column-duplication defect
// was exactly this: repeated augmentation of a shared table instance.
func appendOnce(res *Result, col dataset.Column, values []any) error {
	if res.Table.ColumnIndex(col.Name) >= 0 {
		return &ConfigError{Reason: fmt.Sprintf("series already carries analysis column %q", col.Name)}
	}
	if err := res.Table.AppendColumn(col, values); err != nil {
		return err
	}
	res.AddedColumns = append(res.AddedColumns, col.Name)
	return nil
}

func confidenceOrDefault(cfg Config) float64 {
	if cfg.ConfidenceLevel > 0 && cfg.ConfidenceLevel < 1 {
		return cfg.ConfidenceLevel
	}
	return 0.95
}

// ACFColumnName returns the column name for the ACF value of metric at lag.
func ACFColumnName(metric string, lag int) string {
	return fmt.Sprintf("%s_ACF_Lag_%d", metric, lag)
}

// PACFColumnName returns the column name for the PACF value of metric at lag.
func PACFColumnName(metric string, lag int) string {
	return fmt.Sprintf("%s_PACF_Lag_%d", metric, lag)
}

// ForecastColumnName returns the point-forecast column name for metric.
func ForecastColumnName(metric string) string {
	return fmt.Sprintf("%s_Forecast", metric)
}
