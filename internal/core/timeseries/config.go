package timeseries

import (
	"fmt"
	"sort"
)

// Config controls which analysis columns Augment produces. It is validated
// up front so malformed settings surface as a configuration error at the
// sheet boundary instead of failing mid-computation.
type Config struct {
	ACFEnabled        bool
	Lags              []int
	IncludeConfidence bool
	ForecastEnabled   bool
	Horizon           int
	ConfidenceLevel   float64
}

// ConfigError marks a malformed analysis configuration. It is fatal for the
// sheet that carries it but never for the report run.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("analysis configuration: %s", e.Reason)
}

// Validate checks the configuration invariants.
func (c Config) Validate() error {
	if c.ACFEnabled {
		if len(c.Lags) == 0 {
			return &ConfigError{Reason: "acf enabled with no lags"}
		}
		seen := make(map[int]struct{}, len(c.Lags))
		for _, lag := range c.Lags {
			if lag <= 0 {
				return &ConfigError{Reason: fmt.Sprintf("lag must be positive, got %d", lag)}
			}
			if _, dup := seen[lag]; dup {
				return &ConfigError{Reason: fmt.Sprintf("duplicate lag %d", lag)}
			}
			seen[lag] = struct{}{}
		}
	}
	if c.ForecastEnabled && c.Horizon <= 0 {
		return &ConfigError{Reason: fmt.Sprintf("forecast horizon must be positive, got %d", c.Horizon)}
	}
	if c.ForecastEnabled || c.IncludeConfidence {
		if c.ConfidenceLevel <= 0 || c.ConfidenceLevel >= 1 {
			return &ConfigError{Reason: fmt.Sprintf("confidence level must be in (0,1), got %g", c.ConfidenceLevel)}
		}
	}
	return nil
}

// MaxLagForLength returns the largest usable lag for a series of length n.
// PACF estimation needs at least 2*lag observations, hence floor(n/2)-1.
func MaxLagForLength(n int) int {
	return n/2 - 1
}

// SplitLags partitions the requested lags into those usable for a series of
// length n and those that must be dropped. Surviving lags come back in
// ascending order; dropped lags are reported, not silently wrapped.
func SplitLags(lags []int, n int) (surviving, dropped []int) {
	max := MaxLagForLength(n)
	for _, lag := range lags {
		if lag <= max {
			surviving = append(surviving, lag)
		} else {
			dropped = append(dropped, lag)
		}
	}
	sort.Ints(surviving)
	sort.Ints(dropped)
	return surviving, dropped
}
