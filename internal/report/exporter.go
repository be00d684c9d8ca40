package report

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	v1 "github.com/ardata-lab/ardata/internal/api/v1"
	"github.com/ardata-lab/ardata/internal/core/dataset"
	"github.com/ardata-lab/ardata/internal/core/timeseries"
)

// Worksheet names are capped at 31 characters by the xlsx format.
const maxSheetNameLen = 31

// Fill colors keyed by column kind, so analysis columns are visually
// separated from the base metrics they were derived from.
var kindFills = map[string]string{
	dataset.KindACF:      "DDEBF7",
	dataset.KindPACF:     "E2EFDA",
	dataset.KindForecast: "FFF2CC",
}

// Exporter writes assembled sheets into a single xlsx workbook.
type Exporter struct {
	outputDir string
}

func NewExporter(outputDir string) *Exporter {
	return &Exporter{outputDir: outputDir}
}

// Export writes one workbook for the run: a summary sheet first, then one
// worksheet per assembled sheet. Returns the path of the written file.
func (e *Exporter) Export(runID string, sheets []*Sheet, results []v1.SheetResult) (string, error) {
	if err := os.MkdirAll(e.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := e.writeSummary(f, runID, results); err != nil {
		return "", err
	}
	for _, sheet := range sheets {
		if err := e.writeSheet(f, sheet); err != nil {
			return "", fmt.Errorf("sheet %q: %w", sheet.Name, err)
		}
	}

	shortID := runID
	if len(shortID) > 8 {
		shortID = shortID[:8]
	}
	path := filepath.Join(e.outputDir,
		fmt.Sprintf("ardata-report-%s-%s.xlsx", time.Now().UTC().Format("2006-01-02"), shortID))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to save workbook: %w", err)
	}

	slog.Info("[Exporter] Workbook written", "path", path, "sheets", len(sheets))
	return path, nil
}

// writeSummary renders the run overview into the workbook's first sheet.
func (e *Exporter) writeSummary(f *excelize.File, runID string, results []v1.SheetResult) error {
	const name = "Summary"
	if err := f.SetSheetName("Sheet1", name); err != nil {
		return err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	f.SetCellValue(name, "A1", "Run ID")
	f.SetCellValue(name, "B1", runID)
	f.SetCellValue(name, "A2", "Generated")
	f.SetCellValue(name, "B2", time.Now().UTC().Format(time.RFC3339))

	headers := []string{"Sheet", "Status", "Skip Reason", "ACF", "Forecast", "Method", "Rows"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 4)
		f.SetCellValue(name, cell, h)
	}
	f.SetCellStyle(name, "A4", "G4", headerStyle)

	for i, r := range results {
		row := i + 5
		values := []any{r.Name, r.Status, r.SkipReason, r.ACFStatus, r.ForecastStatus, r.ForecastMethod, r.Rows}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			f.SetCellValue(name, cell, v)
		}
	}
	return nil
}

func (e *Exporter) writeSheet(f *excelize.File, sheet *Sheet) error {
	name := sanitizeSheetName(sheet.Name)
	if _, err := f.NewSheet(name); err != nil {
		return err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	kindStyles := make(map[string]int, len(kindFills))
	for kind, color := range kindFills {
		style, err := f.NewStyle(&excelize.Style{
			Font: &excelize.Font{Bold: true},
			Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		})
		if err != nil {
			return err
		}
		kindStyles[kind] = style
	}

	cols := sheet.Table.Columns()
	for i, col := range cols {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(name, cell, col.Name)
		style := headerStyle
		if s, ok := kindStyles[col.Kind]; ok {
			style = s
		}
		f.SetCellStyle(name, cell, cell, style)
	}

	for r := 0; r < sheet.Table.NumRows(); r++ {
		for c, v := range sheet.Table.Row(r) {
			if v == nil {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			f.SetCellValue(name, cell, cellValue(v))
		}
	}

	next := sheet.Table.NumRows() + 3
	for _, totals := range sheet.Totals {
		for c, v := range totals {
			if v == nil {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(c+1, next)
			f.SetCellValue(name, cell, cellValue(v))
		}
		first, _ := excelize.CoordinatesToCellName(1, next)
		f.SetCellStyle(name, first, first, headerStyle)
		next++
	}

	for _, note := range analysisNotes(sheet.Analysis) {
		next++
		cell, _ := excelize.CoordinatesToCellName(1, next)
		f.SetCellValue(name, cell, note)
	}
	return nil
}

// analysisNotes turns degraded analysis statuses into the placeholder text
// written below the sheet, so a reader sees why columns are absent instead
// of assuming the data is complete.
func analysisNotes(res *timeseries.Result) []string {
	if res == nil {
		return nil
	}
	var notes []string
	switch res.ACFStatus {
	case timeseries.StatusInsufficientData:
		notes = append(notes, "ACF/PACF: insufficient data for the requested lags")
	}
	if len(res.DroppedLags) > 0 && res.ACFStatus == timeseries.StatusOK {
		notes = append(notes, fmt.Sprintf("ACF/PACF: lags %v dropped (series too short)", res.DroppedLags))
	}
	switch res.ForecastStatus {
	case timeseries.StatusInsufficientData:
		notes = append(notes, "Forecast: insufficient data")
	case timeseries.StatusFallback:
		notes = append(notes, fmt.Sprintf("Forecast: model fitting failed, used %s fallback", res.ForecastMethod))
	case timeseries.StatusFailed:
		notes = append(notes, "Forecast: unavailable")
	}
	return notes
}

// cellValue maps table cell types onto values excelize can encode.
func cellValue(v any) any {
	if d, ok := v.(decimal.Decimal); ok {
		f, _ := d.Float64()
		return f
	}
	return v
}

func sanitizeSheetName(name string) string {
	replacer := strings.NewReplacer(
		"[", "(", "]", ")", ":", "-", "*", "", "?", "", "/", "-", "\\", "-")
	clean := replacer.Replace(name)
	if len(clean) > maxSheetNameLen {
		clean = clean[:maxSheetNameLen]
	}
	return clean
}
