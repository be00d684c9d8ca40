package pipeline

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ardata-lab/ardata/internal/core/calendar"
	"github.com/ardata-lab/ardata/internal/core/dataset"
)

func TestRollupDaily_SumsIntoPeriods(t *testing.T) {
	daily := dataset.BaseColumns("Date", "Total_Files", "Total_Size_MB")
	require.NoError(t, daily.AppendRow("2024-09-03", int64(5), decimal.NewFromFloat(1.0)))
	require.NoError(t, daily.AppendRow("2024-09-04", int64(3), decimal.NewFromFloat(0.5)))
	require.NoError(t, daily.AppendRow("2024-09-23", int64(7), decimal.NewFromFloat(2.0)))
	// Before every period: dropped.
	require.NoError(t, daily.AppendRow("2024-08-15", int64(99), decimal.NewFromFloat(9.9)))

	periods := []calendar.Period{
		{Key: "P1", Start: time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC)},
		{Key: "P2", Start: time.Date(2024, 9, 23, 0, 0, 0, 0, time.UTC)},
	}

	rolled, err := RollupDaily(daily, periods, "Date", "Period")
	require.NoError(t, err)

	require.Equal(t, 2, rolled.NumRows())
	require.Equal(t, []string{"Period", "Total_Files", "Total_Size_MB"}, rolled.ColumnNames())

	key, _ := rolled.Value(0, "Period")
	require.Equal(t, "P1", key)
	total, _ := rolled.Value(0, "Total_Files")
	require.Equal(t, int64(8), total)
	size, _ := rolled.Value(0, "Total_Size_MB")
	require.True(t, decimal.NewFromFloat(1.5).Equal(size.(decimal.Decimal)))

	total, _ = rolled.Value(1, "Total_Files")
	require.Equal(t, int64(7), total)

	require.Equal(t, 4, daily.NumRows(), "input untouched")
}

func TestRollupDaily_EmptyPeriodsDropEverything(t *testing.T) {
	daily := dataset.BaseColumns("Date", "Total_Files")
	require.NoError(t, daily.AppendRow("2024-09-03", int64(5)))

	rolled, err := RollupDaily(daily, nil, "Date", "Biweek")
	require.NoError(t, err)
	require.Equal(t, 0, rolled.NumRows())
}

func TestRollupDaily_Errors(t *testing.T) {
	daily := dataset.BaseColumns("Date", "Total_Files")
	require.NoError(t, daily.AppendRow("not-a-date", int64(5)))

	periods := []calendar.Period{{Key: "P1", Start: time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC)}}
	_, err := RollupDaily(daily, periods, "Date", "Period")
	require.Error(t, err, "unparseable date")

	_, err = RollupDaily(daily, periods, "Missing", "Period")
	require.Error(t, err, "unknown date column")
}
