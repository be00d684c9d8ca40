package timeseries

import (
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// minObservations is the shortest sub-series ACF/PACF is attempted on.
const minObservations = 4

// varianceEpsilon guards against division by a vanishing autocovariance:
// a (near-)constant series has no meaningful autocorrelation structure.
const varianceEpsilon = 1e-12

// acfValues returns the sample autocorrelation function r[0..maxLag] using
// the biased autocovariance-ratio estimator (r[0] == 1). Returns nil when
// the series is too short or has no variance.
func acfValues(x []float64, maxLag int) []float64 {
	n := len(x)
	if n < minObservations || maxLag < 1 || maxLag >= n {
		return nil
	}
	mean := stat.Mean(x, nil)

	c0 := 0.0
	for _, v := range x {
		d := v - mean
		c0 += d * d
	}
	if c0 < varianceEpsilon {
		return nil
	}

	r := make([]float64, maxLag+1)
	r[0] = 1
	for k := 1; k <= maxLag; k++ {
		ck := 0.0
		for t := k; t < n; t++ {
			ck += (x[t] - mean) * (x[t-k] - mean)
		}
		r[k] = ck / c0
	}
	return r
}

// pacfValues returns the partial autocorrelation phi[0..maxLag] (phi[0] == 1)
// by solving the Yule-Walker equations over the sample ACF with the
// Levinson-Durbin recursion.
func pacfValues(r []float64) []float64 {
	if len(r) < 2 {
		return nil
	}
	maxLag := len(r) - 1

	pacf := make([]float64, maxLag+1)
	pacf[0] = 1
	pacf[1] = r[1]

	phi := make([]float64, maxLag+1)
	prev := make([]float64, maxLag+1)
	phi[1] = r[1]
	v := 1 - r[1]*r[1]

	for k := 2; k <= maxLag; k++ {
		if v < varianceEpsilon {
			// Prediction error collapsed; higher-order coefficients are
			// numerically meaningless.
			for j := k; j <= maxLag; j++ {
				pacf[j] = math.NaN()
			}
			return pacf
		}
		copy(prev, phi)

		num := r[k]
		for j := 1; j < k; j++ {
			num -= prev[j] * r[k-j]
		}
		a := num / v

		phi[k] = a
		for j := 1; j < k; j++ {
			phi[j] = prev[j] - a*prev[k-j]
		}
		v *= 1 - a*a
		pacf[k] = a
	}
	return pacf
}

// normalQuantile returns the two-sided standard normal critical value for
// the given confidence level (0.95 -> 1.96).
func normalQuantile(confidenceLevel float64) float64 {
	dist := distuv.Normal{Mu: 0, Sigma: 1}
	return dist.Quantile(1 - (1-confidenceLevel)/2)
}
