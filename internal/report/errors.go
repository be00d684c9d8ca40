package report

import (
	"fmt"
	"strings"
)

// Sheet skip reasons recorded on run results.
const (
	SkipReasonDuplicateColumns = "duplicate_columns"
	SkipReasonPipelineFailed   = "pipeline_failed"
	SkipReasonBadConfig        = "bad_config"
)

// DuplicateColumnError is raised at the assembly boundary when a sheet's
// table carries repeated column names. Duplicated columns mean analysis
// output was stacked onto an already-augmented table somewhere upstream;
// exporting such a sheet would silently misalign every downstream consumer,
// so the sheet is refused instead.
type DuplicateColumnError struct {
	Sheet   string
	Columns []string
}

func (e *DuplicateColumnError) Error() string {
	return fmt.Sprintf("sheet %q has duplicated columns: %s",
		e.Sheet, strings.Join(e.Columns, ", "))
}
