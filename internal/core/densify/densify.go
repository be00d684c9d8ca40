// Package densify turns a sparse aggregation result into a gap-free time
// series: exactly one row per expected period, missing periods synthesized
// with zero counts. ACF/PACF lag semantics downstream assume this density
// and the ascending chronological order it guarantees.
package densify

import (
	"fmt"

	"github.com/ardata-lab/ardata/internal/core/calendar"
	"github.com/ardata-lab/ardata/internal/core/dataset"
)

// Densify joins the source rows against the full period range on keyColumn.
// Periods present in the source carry their values forward; absent periods
// get a synthesized row with numeric fields zeroed and string fields
// defaulted. The input table is never mutated; an empty period range yields
// an empty series.
func Densify(source *dataset.Table, periods []calendar.Period, keyColumn string) (*dataset.Table, error) {
	keyIdx := source.ColumnIndex(keyColumn)
	if keyIdx < 0 {
		return nil, fmt.Errorf("densify: key column %q not found", keyColumn)
	}

	out := dataset.New(source.Columns()...)
	if len(periods) == 0 {
		return out, nil
	}

	byKey := make(map[string]int, source.NumRows())
	for i := 0; i < source.NumRows(); i++ {
		v, _ := source.Value(i, keyColumn)
		k, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("densify: key column %q row %d is %T, want string", keyColumn, i, v)
		}
		if _, dup := byKey[k]; dup {
			return nil, fmt.Errorf("densify: duplicate period key %q in source", k)
		}
		byKey[k] = i
	}

	zeros := zeroRow(source, keyIdx)
	for _, p := range periods {
		if srcRow, ok := byKey[p.Key]; ok {
			if err := out.AppendRow(source.Row(srcRow)...); err != nil {
				return nil, err
			}
			continue
		}
		row := make([]any, len(zeros))
		copy(row, zeros)
		row[keyIdx] = p.Key
		if err := out.AppendRow(row...); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// zeroRow builds the template row for missing periods. Zero values are typed
// after the first populated row so synthesized cells match the source column
// types; an empty source defaults every non-key cell to int64(0).
func zeroRow(source *dataset.Table, keyIdx int) []any {
	row := make([]any, source.NumColumns())
	for c := range row {
		if c == keyIdx {
			continue
		}
		var sample any
		if source.NumRows() > 0 {
			sample = source.Row(0)[c]
		}
		row[c] = dataset.ZeroValueLike(sample)
	}
	return row
}
