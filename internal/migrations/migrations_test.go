package migrations

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateSet(t *testing.T) {
	require.NoError(t, ValidateSet())
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(migrationFiles, ".")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	// Every embedded file must parse under the naming convention that
	// ValidateSet enforces, and both tables must be covered.
	var names []string
	for _, e := range entries {
		require.Regexp(t, migrationName, e.Name())
		names = append(names, e.Name())
	}
	require.Contains(t, names, "000001_create_media_records.up.sql")
	require.Contains(t, names, "000001_create_media_records.down.sql")
	require.Contains(t, names, "000002_create_report_runs.up.sql")
	require.Contains(t, names, "000002_create_report_runs.down.sql")
}
