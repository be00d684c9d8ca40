package postgres

import (
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"
)

// scanCountsRow reads one aggregated counts row. Every pipeline query
// projects the same shape: period key, three file counts, total size in MB.
// Size comes back as numeric text so it can carry exact decimal values.
func scanCountsRow(rows *sql.Rows) (key string, totalFiles, mp3Files, jpgFiles int64, sizeMB decimal.Decimal, err error) {
	var rawSize string
	if err = rows.Scan(&key, &totalFiles, &mp3Files, &jpgFiles, &rawSize); err != nil {
		err = fmt.Errorf("failed to scan counts row: %w", err)
		return
	}
	sizeMB, err = decimal.NewFromString(rawSize)
	if err != nil {
		err = fmt.Errorf("invalid size value %q: %w", rawSize, err)
	}
	return
}
