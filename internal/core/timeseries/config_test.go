package timeseries

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitLags(t *testing.T) {
	tests := []struct {
		name      string
		lags      []int
		n         int
		surviving []int
		dropped   []int
	}{
		{
			name:      "all lags usable",
			lags:      []int{1, 7},
			n:         29,
			surviving: []int{1, 7},
		},
		{
			name:      "lag beyond bound drops",
			lags:      []int{1, 7},
			n:         14,
			surviving: []int{1},
			dropped:   []int{7},
		},
		{
			name:      "unsorted input comes back ascending",
			lags:      []int{14, 1, 7, 30},
			n:         29,
			surviving: []int{1, 7},
			dropped:   []int{14, 30},
		},
		{
			name:    "series too short for any lag",
			lags:    []int{1},
			n:       3,
			dropped: []int{1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			surviving, dropped := SplitLags(tt.lags, tt.n)
			require.Equal(t, tt.surviving, surviving)
			require.Equal(t, tt.dropped, dropped)
		})
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name: "valid acf with forecast",
			cfg: Config{
				ACFEnabled:      true,
				Lags:            []int{1, 7},
				ForecastEnabled: true,
				Horizon:         14,
				ConfidenceLevel: 0.95,
			},
		},
		{
			name:    "acf without lags",
			cfg:     Config{ACFEnabled: true},
			wantErr: "no lags",
		},
		{
			name:    "non-positive lag",
			cfg:     Config{ACFEnabled: true, Lags: []int{0}},
			wantErr: "must be positive",
		},
		{
			name:    "duplicate lag",
			cfg:     Config{ACFEnabled: true, Lags: []int{7, 7}},
			wantErr: "duplicate lag",
		},
		{
			name:    "forecast without horizon",
			cfg:     Config{ForecastEnabled: true, ConfidenceLevel: 0.95},
			wantErr: "horizon must be positive",
		},
		{
			name:    "confidence level out of range",
			cfg:     Config{ForecastEnabled: true, Horizon: 7, ConfidenceLevel: 1.5},
			wantErr: "confidence level",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			require.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
