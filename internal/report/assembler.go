package report

import (
	"fmt"

	"github.com/ardata-lab/ardata/internal/core/dataset"
	"github.com/ardata-lab/ardata/internal/core/pipeline"
	"github.com/ardata-lab/ardata/internal/core/stats"
	"github.com/ardata-lab/ardata/internal/core/timeseries"
)

// Sheet is one fully assembled worksheet, ready for export: the augmented
// table, the totals rows appended below it, and the analysis statuses the
// exporter turns into placeholder notes.
type Sheet struct {
	Name        string
	Table       *dataset.Table
	Totals      [][]any
	Analysis    *timeseries.Result
	Fingerprint string
}

// AssembleSheet performs the final integrity gate between augmentation and
// export. It verifies the table's column names are unique, then computes the
// configured totals rows over the base metric columns.
//
// The duplicate check lives here, not in the table, so a malformed table
// produced anywhere upstream is caught exactly once, with the sheet name
// attached, before it can reach a workbook.
func AssembleSheet(cfg pipeline.SheetConfig, res *timeseries.Result) (*Sheet, error) {
	if dups := res.Table.DuplicateColumnNames(); len(dups) > 0 {
		return nil, &DuplicateColumnError{Sheet: cfg.Name, Columns: dups}
	}

	totals := make([][]any, 0, len(cfg.Totals))
	for _, op := range cfg.Totals {
		row, err := stats.TotalsRow(res.Table, op)
		if err != nil {
			return nil, fmt.Errorf("sheet %q totals: %w", cfg.Name, err)
		}
		totals = append(totals, row)
	}

	return &Sheet{
		Name:        cfg.Name,
		Table:       res.Table,
		Totals:      totals,
		Analysis:    res,
		Fingerprint: cfg.Fingerprint,
	}, nil
}
