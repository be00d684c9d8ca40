// Package stats computes sheet totals rows with exact decimal arithmetic.
// Analysis columns (ACF/PACF/forecast) are correlation coefficients and
// model outputs — summing them is meaningless, so totals only ever cover
// base metric columns.
package stats

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ardata-lab/ardata/internal/core/dataset"
)

// TotalsRow reduces every numeric base column of the table with the given
// operator. Non-numeric and analysis-tagged columns come back as nil cells;
// the first (label) position carries the operator name. The result aligns
// with the table's column order for direct appending by the exporter.
func TotalsRow(t *dataset.Table, op string) ([]any, error) {
	if !ValidOperator(op) {
		return nil, fmt.Errorf("totals: unsupported operator %q", op)
	}

	cols := t.Columns()
	row := make([]any, len(cols))
	if len(cols) > 0 {
		row[0] = labelFor(op)
	}

	for c := 1; c < len(cols); c++ {
		if cols[c].Kind != dataset.KindBase {
			continue
		}
		total, n, ok := reduceColumn(t, cols[c].Name, op)
		if !ok || n == 0 {
			continue
		}
		if op == OpMean {
			total = total.Div(decimal.NewFromInt(int64(n)))
		}
		row[c] = total
	}
	return row, nil
}

// reduceColumn folds one column. ok is false when the column holds
// non-numeric data and therefore has no total.
func reduceColumn(t *dataset.Table, name, op string) (decimal.Decimal, int, bool) {
	reducer := Operators[op]
	if op == OpMean {
		reducer = Operators[OpSum]
	}

	var (
		acc decimal.Decimal
		n   int
	)
	for i := 0; i < t.NumRows(); i++ {
		v, _ := t.Value(i, name)
		d, numeric := toDecimal(v)
		if !numeric {
			if v == nil {
				continue // forecast-extension rows leave base cells empty
			}
			return decimal.Zero, 0, false
		}
		if n == 0 {
			acc = reducer.Initial(d)
		} else {
			acc = reducer.Apply(acc, d)
		}
		n++
	}
	return acc, n, true
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch x := v.(type) {
	case decimal.Decimal:
		return x, true
	case int64:
		return decimal.NewFromInt(x), true
	case int:
		return decimal.NewFromInt(int64(x)), true
	case float64:
		return decimal.NewFromFloat(x), true
	default:
		return decimal.Zero, false
	}
}

func labelFor(op string) string {
	switch op {
	case OpCount:
		return "Count"
	case OpSum:
		return "Total"
	case OpMin:
		return "Min"
	case OpMax:
		return "Max"
	case OpMean:
		return "Mean"
	default:
		return op
	}
}
