package store

import (
	"strconv"
	"strings"
)

// dialect holds the per-database SQL differences.
type dialect struct {
	driver      Driver
	pragmas     []string
	schema      []string
	numberedArg bool // $1, $2 instead of ?
}

// rebind rewrites ? placeholders for dialects that number their arguments.
func (d dialect) rebind(query string) string {
	if !d.numberedArg {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

var dialects = map[Driver]dialect{
	DriverSQLite: {
		driver: DriverSQLite,
		pragmas: []string{
			"PRAGMA journal_mode=WAL",
			"PRAGMA synchronous=NORMAL",
			"PRAGMA busy_timeout=5000",
		},
		schema: []string{`
			CREATE TABLE IF NOT EXISTS scan_results (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				file_name TEXT,
				cve TEXT,
				ip TEXT,
				email TEXT,
				phone TEXT,
				url TEXT,
				endpoint TEXT
			)`, `
			CREATE TABLE IF NOT EXISTS scan_runs (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				run_id TEXT NOT NULL,
				tool TEXT NOT NULL,
				target TEXT NOT NULL,
				status TEXT NOT NULL,
				exit_code INTEGER NOT NULL DEFAULT 0,
				report_path TEXT NOT NULL DEFAULT '',
				error TEXT NOT NULL DEFAULT '',
				started_at TEXT NOT NULL,
				duration_ms INTEGER NOT NULL DEFAULT 0
			)`,
			`CREATE INDEX IF NOT EXISTS idx_scan_runs_run_id ON scan_runs(run_id)`,
		},
	},
	DriverMySQL: {
		driver: DriverMySQL,
		schema: []string{`
			CREATE TABLE IF NOT EXISTS scan_results (
				id BIGINT AUTO_INCREMENT PRIMARY KEY,
				file_name TEXT,
				cve TEXT,
				ip TEXT,
				email TEXT,
				phone TEXT,
				url TEXT,
				endpoint TEXT
			)`, `
			CREATE TABLE IF NOT EXISTS scan_runs (
				id BIGINT AUTO_INCREMENT PRIMARY KEY,
				run_id VARCHAR(36) NOT NULL,
				tool VARCHAR(64) NOT NULL,
				target TEXT NOT NULL,
				status VARCHAR(32) NOT NULL,
				exit_code INT NOT NULL DEFAULT 0,
				report_path TEXT NOT NULL,
				error TEXT NOT NULL,
				started_at VARCHAR(64) NOT NULL,
				duration_ms BIGINT NOT NULL DEFAULT 0,
				INDEX idx_scan_runs_run_id (run_id)
			)`,
		},
	},
	DriverPostgres: {
		driver:      DriverPostgres,
		numberedArg: true,
		schema: []string{`
			CREATE TABLE IF NOT EXISTS scan_results (
				id SERIAL PRIMARY KEY,
				file_name TEXT,
				cve TEXT,
				ip TEXT,
				email TEXT,
				phone TEXT,
				url TEXT,
				endpoint TEXT
			)`, `
			CREATE TABLE IF NOT EXISTS scan_runs (
				id BIGSERIAL PRIMARY KEY,
				run_id TEXT NOT NULL,
				tool TEXT NOT NULL,
				target TEXT NOT NULL,
				status TEXT NOT NULL,
				exit_code INTEGER NOT NULL DEFAULT 0,
				report_path TEXT NOT NULL DEFAULT '',
				error TEXT NOT NULL DEFAULT '',
				started_at TEXT NOT NULL,
				duration_ms BIGINT NOT NULL DEFAULT 0
			)`,
			`CREATE INDEX IF NOT EXISTS idx_scan_runs_run_id ON scan_runs(run_id)`,
		},
	},
}
