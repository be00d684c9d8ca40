package report

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ardata-lab/ardata/internal/core/dataset"
	"github.com/ardata-lab/ardata/internal/core/pipeline"
	"github.com/ardata-lab/ardata/internal/core/timeseries"
)

func countsTable(t *testing.T) *dataset.Table {
	t.Helper()
	table := dataset.BaseColumns("Date", "Total_Files", "MP3_Files")
	require.NoError(t, table.AppendRow("2024-09-03", int64(10), int64(4)))
	require.NoError(t, table.AppendRow("2024-09-04", int64(6), int64(2)))
	return table
}

func TestAssembleSheet(t *testing.T) {
	cfg := pipeline.SheetConfig{
		Name:        "Daily Counts",
		Totals:      []string{"sum", "mean"},
		Fingerprint: "abc123",
	}

	res := &timeseries.Result{
		Table:          countsTable(t),
		ACFStatus:      timeseries.StatusOK,
		ForecastStatus: timeseries.StatusDisabled,
	}

	sheet, err := AssembleSheet(cfg, res)
	require.NoError(t, err)
	require.Equal(t, "Daily Counts", sheet.Name)
	require.Equal(t, "abc123", sheet.Fingerprint)
	require.Len(t, sheet.Totals, 2)
	require.Equal(t, "Total", sheet.Totals[0][0])
	require.Equal(t, "Mean", sheet.Totals[1][0])
}

func TestAssembleSheet_RefusesDuplicateColumns(t *testing.T) {
	table := countsTable(t)
	// Simulate analysis output stacked twice onto the same table.
	dup := dataset.Column{Name: "Total_Files_ACF_Lag_1", Kind: dataset.KindACF}
	require.NoError(t, table.AppendColumn(dup, []any{0.5, 0.4}))
	require.NoError(t, table.AppendColumn(dup, []any{0.5, 0.4}))

	_, err := AssembleSheet(pipeline.SheetConfig{Name: "Daily Counts"}, &timeseries.Result{Table: table})
	var dupErr *DuplicateColumnError
	require.ErrorAs(t, err, &dupErr)
	require.Equal(t, "Daily Counts", dupErr.Sheet)
	require.Equal(t, []string{"Total_Files_ACF_Lag_1"}, dupErr.Columns)
	require.Contains(t, dupErr.Error(), "Total_Files_ACF_Lag_1")
}

func TestAssembleSheet_BadTotalsOperator(t *testing.T) {
	cfg := pipeline.SheetConfig{Name: "Daily Counts", Totals: []string{"median"}}
	_, err := AssembleSheet(cfg, &timeseries.Result{Table: countsTable(t)})
	require.Error(t, err)
	require.Contains(t, err.Error(), "totals")
}
