package pipeline

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ardata-lab/ardata/internal/core/calendar"
	"github.com/ardata-lab/ardata/internal/core/dataset"
)

// RollupDaily collapses a daily aggregation result into coarser buckets by
// mapping each date onto the calendar's period for the target scale. Count
// columns are summed (decimals exactly); rows whose date falls outside every
// period are dropped. The input is not mutated.
func RollupDaily(daily *dataset.Table, periods []calendar.Period, dateColumn, keyColumn string) (*dataset.Table, error) {
	dateIdx := daily.ColumnIndex(dateColumn)
	if dateIdx < 0 {
		return nil, fmt.Errorf("rollup: date column %q not found", dateColumn)
	}

	cols := daily.Columns()
	outCols := make([]dataset.Column, len(cols))
	copy(outCols, cols)
	outCols[dateIdx] = dataset.Column{Name: keyColumn, Kind: dataset.KindBase}
	out := dataset.New(outCols...)

	// Accumulators keyed in period order so output stays chronological.
	type bucket struct {
		row   []any
		found bool
	}
	buckets := make([]bucket, len(periods))

	for i := 0; i < daily.NumRows(); i++ {
		dv, _ := daily.Value(i, dateColumn)
		ds, ok := dv.(string)
		if !ok {
			return nil, fmt.Errorf("rollup: date column row %d is %T, want string", i, dv)
		}
		day, err := time.Parse("2006-01-02", ds)
		if err != nil {
			return nil, fmt.Errorf("rollup: row %d: %w", i, err)
		}

		p := periodIndexFor(periods, day)
		if p < 0 {
			continue
		}
		row := daily.Row(i)
		if !buckets[p].found {
			row[dateIdx] = periods[p].Key
			buckets[p] = bucket{row: row, found: true}
			continue
		}
		if err := foldRow(buckets[p].row, row, dateIdx); err != nil {
			return nil, fmt.Errorf("rollup: period %q: %w", periods[p].Key, err)
		}
	}

	for _, b := range buckets {
		if !b.found {
			continue
		}
		if err := out.AppendRow(b.row...); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// periodIndexFor finds the period a day belongs to: the last period whose
// start is not after the day. Periods are ascending by construction.
func periodIndexFor(periods []calendar.Period, day time.Time) int {
	idx := -1
	for i, p := range periods {
		if p.Start.After(day) {
			break
		}
		idx = i
	}
	return idx
}

func foldRow(acc, row []any, keyIdx int) error {
	for c := range acc {
		if c == keyIdx {
			continue
		}
		switch cur := acc[c].(type) {
		case int64:
			inc, ok := row[c].(int64)
			if !ok {
				return fmt.Errorf("column %d: mixed types %T and %T", c, acc[c], row[c])
			}
			acc[c] = cur + inc
		case float64:
			inc, ok := row[c].(float64)
			if !ok {
				return fmt.Errorf("column %d: mixed types %T and %T", c, acc[c], row[c])
			}
			acc[c] = cur + inc
		case decimal.Decimal:
			inc, ok := row[c].(decimal.Decimal)
			if !ok {
				return fmt.Errorf("column %d: mixed types %T and %T", c, acc[c], row[c])
			}
			acc[c] = cur.Add(inc)
		case string, nil:
			// Non-additive cells keep the first value seen.
		default:
			return fmt.Errorf("column %d: cannot fold %T", c, acc[c])
		}
	}
	return nil
}
