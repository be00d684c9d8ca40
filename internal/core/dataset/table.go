package dataset

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Column kinds tag the semantic role of a column so downstream consumers
// (totals, export styling, the assembler boundary check) can treat analysis
// columns differently from base metric columns.
const (
	KindBase     = "base"
	KindACF      = "acf"
	KindPACF     = "pacf"
	KindForecast = "forecast"
)

// Column describes a single named column and its semantic role.
type Column struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

// Table is an ordered, rectangular collection of rows. Columns carry a
// semantic kind; cell values are scalars (string, int64, float64,
// decimal.Decimal, bool, time.Time) or nil for "not available".
//
// Appending a column with a name that already exists is deliberately NOT
// rejected here: uniqueness is enforced once, at the assembler boundary,
// where a duplicate is a hard error for the sheet. The table itself stays
// permissive so the boundary check can actually observe a malformed state.
type Table struct {
	cols []Column
	rows [][]any
}

// New creates an empty table with the given columns.
func New(cols ...Column) *Table {
	t := &Table{cols: make([]Column, len(cols))}
	copy(t.cols, cols)
	return t
}

// BaseColumns is a convenience constructor for a table whose columns are all
// base metric columns.
func BaseColumns(names ...string) *Table {
	cols := make([]Column, len(names))
	for i, n := range names {
		cols[i] = Column{Name: n, Kind: KindBase}
	}
	return New(cols...)
}

// Columns returns a copy of the column list.
func (t *Table) Columns() []Column {
	out := make([]Column, len(t.cols))
	copy(out, t.cols)
	return out
}

// ColumnNames returns the column names in order.
func (t *Table) ColumnNames() []string {
	out := make([]string, len(t.cols))
	for i, c := range t.cols {
		out[i] = c.Name
	}
	return out
}

// ColumnIndex returns the index of the first column with the given name,
// or -1 if absent.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.cols {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// NumRows returns the row count.
func (t *Table) NumRows() int { return len(t.rows) }

// NumColumns returns the column count.
func (t *Table) NumColumns() int { return len(t.cols) }

// AppendRow adds a row. The value count must match the column count.
func (t *Table) AppendRow(values ...any) error {
	if len(values) != len(t.cols) {
		return fmt.Errorf("row has %d values, table has %d columns", len(values), len(t.cols))
	}
	row := make([]any, len(values))
	copy(row, values)
	t.rows = append(t.rows, row)
	return nil
}

// AppendColumn adds a column with one value per existing row.
func (t *Table) AppendColumn(col Column, values []any) error {
	if len(values) != len(t.rows) {
		return fmt.Errorf("column %q has %d values, table has %d rows", col.Name, len(values), len(t.rows))
	}
	t.cols = append(t.cols, col)
	for i := range t.rows {
		t.rows[i] = append(t.rows[i], values[i])
	}
	return nil
}

// Value returns the cell at (row, column name). The second return is false
// if the column does not exist or the row is out of range.
func (t *Table) Value(row int, name string) (any, bool) {
	idx := t.ColumnIndex(name)
	if idx < 0 || row < 0 || row >= len(t.rows) {
		return nil, false
	}
	return t.rows[row][idx], true
}

// Row returns a copy of the row at index i.
func (t *Table) Row(i int) []any {
	out := make([]any, len(t.rows[i]))
	copy(out, t.rows[i])
	return out
}

// Clone returns a deep copy of the table. Cell values are scalars, so copying
// the row slices is sufficient to sever all aliasing with the source.
func (t *Table) Clone() *Table {
	c := &Table{
		cols: make([]Column, len(t.cols)),
		rows: make([][]any, len(t.rows)),
	}
	copy(c.cols, t.cols)
	for i, row := range t.rows {
		c.rows[i] = make([]any, len(row))
		copy(c.rows[i], row)
	}
	return c
}

// DuplicateColumnNames returns the names that appear more than once, in
// first-occurrence order. An empty result means the column set is sound.
func (t *Table) DuplicateColumnNames() []string {
	seen := make(map[string]int, len(t.cols))
	var dups []string
	for _, c := range t.cols {
		seen[c.Name]++
		if seen[c.Name] == 2 {
			dups = append(dups, c.Name)
		}
	}
	return dups
}

// Float64Column extracts a column as float64 values for numeric analysis.
// Integer and decimal cells are widened; nil cells become 0.
func (t *Table) Float64Column(name string) ([]float64, error) {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return nil, fmt.Errorf("column %q not found", name)
	}
	out := make([]float64, len(t.rows))
	for i, row := range t.rows {
		f, err := toFloat64(row[idx])
		if err != nil {
			return nil, fmt.Errorf("column %q row %d: %w", name, i, err)
		}
		out[i] = f
	}
	return out, nil
}

func toFloat64(v any) (float64, error) {
	switch x := v.(type) {
	case nil:
		return 0, nil
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case decimal.Decimal:
		return x.InexactFloat64(), nil
	default:
		return 0, fmt.Errorf("value %v (%T) is not numeric", v, v)
	}
}

// ZeroValueLike returns the zero counterpart for a sample cell value. Used by
// the zero-fill stage to synthesize rows for missing periods.
func ZeroValueLike(sample any) any {
	switch sample.(type) {
	case int, int64:
		return int64(0)
	case float32, float64:
		return float64(0)
	case decimal.Decimal:
		return decimal.Zero
	case bool:
		return false
	case time.Time:
		return time.Time{}
	case string:
		return ""
	default:
		return int64(0)
	}
}
