package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exploopio/reconkit/pkg/errors"
	"github.com/exploopio/reconkit/pkg/extract"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), Config{
		Driver: DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "results", "parsed_results.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveRecords(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	n, err := s.SaveRecords(ctx, []extract.Record{
		{
			FileName: "nuclei.txt",
			CVE:      []string{"CVE-2021-44228", "CVE-2021-45046"},
			IP:       []string{"10.0.0.1"},
			Endpoint: []string{"/api"},
		},
		{CVE: []string{}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	rows, err := s.ListResults(ctx, 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "nuclei.txt", rows[0].FileName)
	assert.Equal(t, "CVE-2021-44228, CVE-2021-45046", rows[0].CVE)
	assert.Equal(t, "10.0.0.1", rows[0].IP)
	assert.Equal(t, "", rows[0].Email)
	assert.Equal(t, "/api", rows[0].Endpoint)

	assert.Equal(t, "unknown", rows[1].FileName)
	assert.Greater(t, rows[1].ID, rows[0].ID)
}

func TestSaveRecords_NoDedupAcrossRecords(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rec := extract.Record{FileName: "a.txt", IP: []string{"10.0.0.1"}}
	_, err := s.SaveRecords(ctx, []extract.Record{rec, rec})
	require.NoError(t, err)
	_, err = s.SaveRecords(ctx, []extract.Record{rec})
	require.NoError(t, err)

	rows, err := s.ListResults(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	rows, err = s.ListResults(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestSaveRecords_Empty(t *testing.T) {
	s := openTestStore(t)

	n, err := s.SaveRecords(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestOpen_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	cfg := Config{DSN: filepath.Join(t.TempDir(), "parsed_results.db")}

	s, err := Open(ctx, cfg)
	require.NoError(t, err)
	_, err = s.SaveRecords(ctx, []extract.Record{{FileName: "x.txt"}})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(ctx, cfg)
	require.NoError(t, err)
	defer s.Close()

	rows, err := s.ListResults(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, DriverSQLite, s.Driver())
}

func TestRunLedger(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	started := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

	require.NoError(t, s.RecordRun(ctx, RunRecord{
		RunID: "run-1", Tool: "sqlmap", Target: "http://x/?id=1",
		Status: "failed", ExitCode: 1, Error: "sqlmap exited with code 1",
		StartedAt: started, DurationMs: 1500,
	}))
	require.NoError(t, s.RecordRun(ctx, RunRecord{
		RunID: "run-1", Tool: "nuclei", Target: "http://x/?id=1",
		Status: "success", ReportPath: "/tmp/web-scan_nuclei.txt",
		StartedAt: started.Add(2 * time.Second), DurationMs: 42,
	}))

	runs, err := s.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, "nuclei", runs[0].Tool, "newest first")
	assert.Equal(t, "/tmp/web-scan_nuclei.txt", runs[0].ReportPath)
	assert.Equal(t, "sqlmap", runs[1].Tool)
	assert.Equal(t, 1, runs[1].ExitCode)
	assert.True(t, started.Equal(runs[1].StartedAt))
	assert.Equal(t, int64(1500), runs[1].DurationMs)
}

func TestParseDriver(t *testing.T) {
	tests := []struct {
		input   string
		want    Driver
		wantErr bool
	}{
		{"", DriverSQLite, false},
		{"sqlite3", DriverSQLite, false},
		{"MySQL", DriverMySQL, false},
		{"postgresql", DriverPostgres, false},
		{"oracle", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDriver(tt.input)
			if tt.wantErr {
				assert.Equal(t, errors.KindInvalidInput, errors.GetKind(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOpen_RequiresDSNForServerDrivers(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: DriverPostgres})
	assert.Equal(t, errors.KindInvalidInput, errors.GetKind(err))
}

func TestRebind(t *testing.T) {
	q := `INSERT INTO t (a, b) VALUES (?, ?)`
	assert.Equal(t, q, dialects[DriverSQLite].rebind(q))
	assert.Equal(t, q, dialects[DriverMySQL].rebind(q))
	assert.Equal(t, `INSERT INTO t (a, b) VALUES ($1, $2)`, dialects[DriverPostgres].rebind(q))
}
