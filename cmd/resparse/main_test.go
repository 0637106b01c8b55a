package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exploopio/reconkit/pkg/store"
)

func setup(t *testing.T) (dir, dsn string) {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	dir = t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nuclei.txt"),
		[]byte("[CVE-2021-44228] http://10.0.0.5/api/v1 admin@example.com\nnothing here\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "report.json"), []byte(`{"a": 1}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("# x"), 0644))

	return dir, filepath.Join(t.TempDir(), "parsed_results.db")
}

func TestParseCommand(t *testing.T) {
	dir, dsn := setup(t)

	cmd := newRootCmd()
	cmd.SetArgs([]string{dir, "--db", dsn, "--tagger", "rules"})
	require.NoError(t, cmd.Execute())

	db, err := store.Open(context.Background(), store.Config{DSN: dsn})
	require.NoError(t, err)
	defer db.Close()

	rows, err := db.ListResults(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "nuclei.txt", rows[0].FileName)
	assert.Equal(t, "CVE-2021-44228", rows[0].CVE)
	assert.Contains(t, rows[0].IP, "10.0.0.5")
	assert.Equal(t, "admin@example.com", rows[0].Email)
	assert.Equal(t, "nuclei.txt", rows[1].FileName)
	assert.Empty(t, rows[1].CVE)
}

func TestParseCommand_MissingDirectory(t *testing.T) {
	_, dsn := setup(t)

	cmd := newRootCmd()
	cmd.SetArgs([]string{filepath.Join(t.TempDir(), "nope"), "--db", dsn, "--tagger", "none"})
	assert.Error(t, cmd.Execute())
	assert.NoFileExists(t, dsn)
}

func TestShowCommands(t *testing.T) {
	dir, dsn := setup(t)

	cmd := newRootCmd()
	cmd.SetArgs([]string{dir, "--db", dsn, "--tagger", "none"})
	require.NoError(t, cmd.Execute())

	cmd = newRootCmd()
	cmd.SetArgs([]string{"results", "--db", dsn, "--limit", "1"})
	assert.NoError(t, cmd.Execute())

	cmd = newRootCmd()
	cmd.SetArgs([]string{"runs", "--db", dsn})
	assert.NoError(t, cmd.Execute())
}

func TestParseCommand_MetricsFile(t *testing.T) {
	dir, dsn := setup(t)
	prom := filepath.Join(t.TempDir(), "reconkit.prom")

	cmd := newRootCmd()
	cmd.SetArgs([]string{dir, "--db", dsn, "--tagger", "none", "--metrics-file", prom})
	require.NoError(t, cmd.Execute())

	data, err := os.ReadFile(prom)
	require.NoError(t, err)
	assert.Contains(t, string(data), "reconkit_resparse_batch_duration_seconds_count 1")
	assert.Contains(t, string(data), "reconkit_resparse_records_persisted_total 2")
}
