package timeseries

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Forecast method identifiers, ordered from preferred to last resort.
const (
	MethodARIMA          = "arima"
	MethodMovingAverage  = "moving_average"
	MethodLinearTrend    = "linear_trend"
	MethodHistoricalMean = "historical_mean"
)

const (
	maxAROrder          = 3
	maxDifferencing     = 2
	minForecastLength   = 4
	fallbackARIMAOrderP = 1
	fallbackARIMAOrderD = 1
)

// ErrModelFitting reports that no forecast candidate, including the
// non-ARIMA fallbacks, produced a usable model.
var ErrModelFitting = errors.New("all forecast candidates failed")

// Forecast holds horizon-many predicted points with their confidence bounds
// and the provenance of the model that produced them.
type Forecast struct {
	Point    []float64
	Lower    []float64
	Upper    []float64
	Method   string
	Order    [3]int // (p, d, q); meaningful only for MethodARIMA
	Fallback bool   // true when a non-ARIMA fallback produced the values
}

// forecastSeries produces a forecast for x over the given horizon. Candidate
// AR models are graded by AIC over a bounded grid; per-candidate fitting
// failures are swallowed. When the whole grid fails, a fixed-order model is
// tried, then the simple fallback ladder. The context bounds the CPU-heavy
// grid search: expiry aborts straight to ErrModelFitting so the caller can
// mark the forecast unavailable.
func forecastSeries(ctx context.Context, x []float64, horizon int, confidenceLevel float64) (*Forecast, error) {
	if len(x) < minForecastLength {
		return nil, fmt.Errorf("%w: series length %d below minimum %d", ErrModelFitting, len(x), minForecastLength)
	}
	z := normalQuantile(confidenceLevel)

	if !isConstant(x) {
		if f, err := fitBestARIMA(ctx, x, horizon, z); err == nil {
			return f, nil
		} else if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrModelFitting, ctx.Err())
		}
	}

	if f := fallbackForecast(x, horizon, z); f != nil {
		return f, nil
	}
	return nil, ErrModelFitting
}

func isConstant(x []float64) bool {
	for _, v := range x[1:] {
		if v != x[0] {
			return false
		}
	}
	return true
}

// fitBestARIMA grid-searches AR(p) over the d-times differenced series,
// p in 0..maxAROrder, keeping the AIC-minimizing candidate. MA terms are
// out of the grid: differenced AR models cover the count series this tool
// sees, and each candidate stays a closed-form least-squares fit.
func fitBestARIMA(ctx context.Context, x []float64, horizon int, z float64) (*Forecast, error) {
	d := differencingOrder(x)
	w := difference(x, d)

	var (
		best      *arModel
		bestAIC   = math.Inf(1)
		bestOrder = -1
	)
	for p := 0; p <= maxAROrder; p++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m, err := fitAR(w, p)
		if err != nil {
			continue
		}
		if m.aic < bestAIC {
			best, bestAIC, bestOrder = m, m.aic, p
		}
	}

	if best == nil {
		// Fixed-order fallback before giving up on ARIMA entirely.
		w = difference(x, fallbackARIMAOrderD)
		m, err := fitAR(w, fallbackARIMAOrderP)
		if err != nil {
			return nil, err
		}
		best, bestOrder, d = m, fallbackARIMAOrderP, fallbackARIMAOrderD
	}

	diffForecast := best.forecast(horizon)
	point := integrate(x, diffForecast, d)

	f := &Forecast{
		Point:  point,
		Lower:  make([]float64, horizon),
		Upper:  make([]float64, horizon),
		Method: MethodARIMA,
		Order:  [3]int{bestOrder, d, 0},
	}
	for i := 0; i < horizon; i++ {
		half := z * best.sigma * math.Sqrt(float64(i+1))
		f.Lower[i] = point[i] - half
		f.Upper[i] = point[i] + half
	}
	return f, nil
}

// differencingOrder picks d in 0..maxDifferencing by variance reduction: the
// series is differenced while doing so strictly shrinks its variance, a
// cheap stand-in for a unit-root test that behaves well on short series.
func differencingOrder(x []float64) int {
	d := 0
	cur := x
	for d < maxDifferencing && len(cur) > 2 {
		next := difference(cur, 1)
		if len(next) < 3 || stat.Variance(next, nil) >= stat.Variance(cur, nil) {
			break
		}
		cur = next
		d++
	}
	return d
}

func difference(x []float64, d int) []float64 {
	out := append([]float64(nil), x...)
	for i := 0; i < d; i++ {
		if len(out) < 2 {
			return nil
		}
		next := make([]float64, len(out)-1)
		for j := 1; j < len(out); j++ {
			next[j-1] = out[j] - out[j-1]
		}
		out = next
	}
	return out
}

// integrate undoes d rounds of differencing for the forecast path, anchoring
// each round on the tail values of the observed series.
func integrate(x []float64, diffForecast []float64, d int) []float64 {
	levels := append([]float64(nil), diffForecast...)
	for round := d; round >= 1; round-- {
		anchor := lastLevel(x, round-1)
		for i := range levels {
			anchor += levels[i]
			levels[i] = anchor
		}
	}
	return levels
}

// lastLevel returns the final value of x differenced `times` times.
func lastLevel(x []float64, times int) float64 {
	w := difference(x, times)
	return w[len(w)-1]
}

// arModel is a least-squares fitted AR(p) with intercept.
type arModel struct {
	p      int
	coeffs []float64 // intercept followed by lag-1..lag-p coefficients
	tail   []float64 // last p observations, most recent last
	sigma  float64
	aic    float64
}

// fitAR fits AR(p) by ordinary least squares. p == 0 degenerates to the
// mean model. Returns an error when the design matrix is rank-deficient or
// the series leaves no residual degrees of freedom.
func fitAR(w []float64, p int) (*arModel, error) {
	m := len(w)
	rows := m - p
	if rows <= p+1 {
		return nil, fmt.Errorf("ar(%d): %d observations leave no degrees of freedom", p, m)
	}

	if p == 0 {
		mean := stat.Mean(w, nil)
		rss := 0.0
		for _, v := range w {
			rss += (v - mean) * (v - mean)
		}
		return &arModel{
			p:      0,
			coeffs: []float64{mean},
			sigma:  math.Sqrt(rss / float64(m-1)),
			aic:    aic(rss, m, 1),
		}, nil
	}

	X := mat.NewDense(rows, p+1, nil)
	y := mat.NewVecDense(rows, nil)
	for i := 0; i < rows; i++ {
		t := i + p
		X.Set(i, 0, 1)
		for j := 1; j <= p; j++ {
			X.Set(i, j, w[t-j])
		}
		y.SetVec(i, w[t])
	}

	var qr mat.QR
	qr.Factorize(X)
	beta := mat.NewDense(p+1, 1, nil)
	if err := qr.SolveTo(beta, false, y); err != nil {
		return nil, fmt.Errorf("ar(%d) solve: %w", p, err)
	}

	coeffs := make([]float64, p+1)
	for j := range coeffs {
		coeffs[j] = beta.At(j, 0)
	}

	rss := 0.0
	for i := 0; i < rows; i++ {
		t := i + p
		pred := coeffs[0]
		for j := 1; j <= p; j++ {
			pred += coeffs[j] * w[t-j]
		}
		r := w[t] - pred
		rss += r * r
	}
	if math.IsNaN(rss) || math.IsInf(rss, 0) {
		return nil, fmt.Errorf("ar(%d): fit diverged", p)
	}

	tail := append([]float64(nil), w[m-p:]...)
	return &arModel{
		p:      p,
		coeffs: coeffs,
		tail:   tail,
		sigma:  math.Sqrt(rss / float64(rows-p-1)),
		aic:    aic(rss, rows, p+1),
	}, nil
}

func aic(rss float64, n, params int) float64 {
	if rss <= 0 {
		rss = varianceEpsilon
	}
	return float64(n)*math.Log(rss/float64(n)) + 2*float64(params)
}

// forecast iterates the fitted recurrence h steps ahead.
func (m *arModel) forecast(h int) []float64 {
	out := make([]float64, h)
	recent := append([]float64(nil), m.tail...)
	for i := 0; i < h; i++ {
		pred := m.coeffs[0]
		for j := 1; j <= m.p; j++ {
			pred += m.coeffs[j] * recent[len(recent)-j]
		}
		out[i] = pred
		recent = append(recent, pred)
	}
	return out
}

// fallbackForecast runs the simple method ladder: moving average, linear
// trend, historical mean. Returns nil only when the series is empty.
func fallbackForecast(x []float64, horizon int, z float64) *Forecast {
	n := len(x)
	if n == 0 {
		return nil
	}

	if n >= 3 && !isConstant(x) {
		window := n / 3
		if window > 7 {
			window = 7
		}
		if window < 1 {
			window = 1
		}
		avg := stat.Mean(x[n-window:], nil)
		f := newFallback(MethodMovingAverage, horizon)
		for i := 0; i < horizon; i++ {
			// Small per-step drift keeps charts from rendering a flat line.
			v := avg * (1 + float64(i)*0.001)
			f.Point[i] = v
			f.Lower[i] = v * 0.8
			f.Upper[i] = v * 1.2
		}
		return f
	}

	if n >= 5 {
		t := make([]float64, n)
		for i := range t {
			t[i] = float64(i)
		}
		alpha, beta := stat.LinearRegression(t, x, nil, false)
		residStd := residualStd(t, x, alpha, beta)
		f := newFallback(MethodLinearTrend, horizon)
		for i := 0; i < horizon; i++ {
			v := alpha + beta*float64(n+i)
			f.Point[i] = v
			f.Lower[i] = v - z*residStd
			f.Upper[i] = v + z*residStd
		}
		return f
	}

	mean := stat.Mean(x, nil)
	std := 0.0
	if n > 1 {
		std = stat.StdDev(x, nil)
	}
	f := newFallback(MethodHistoricalMean, horizon)
	for i := 0; i < horizon; i++ {
		f.Point[i] = mean
		f.Lower[i] = mean - z*std
		f.Upper[i] = mean + z*std
	}
	return f
}

func newFallback(method string, horizon int) *Forecast {
	return &Forecast{
		Point:    make([]float64, horizon),
		Lower:    make([]float64, horizon),
		Upper:    make([]float64, horizon),
		Method:   method,
		Fallback: true,
	}
}

func residualStd(t, x []float64, alpha, beta float64) float64 {
	rss := 0.0
	for i := range x {
		r := x[i] - (alpha + beta*t[i])
		rss += r * r
	}
	return math.Sqrt(rss / float64(len(x)))
}
