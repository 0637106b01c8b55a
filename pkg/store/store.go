// Package store persists extraction records and the scan run ledger in a
// relational database.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/lib/pq"              // PostgreSQL driver
	_ "modernc.org/sqlite"             // Pure Go SQLite driver

	"github.com/exploopio/reconkit/pkg/errors"
	"github.com/exploopio/reconkit/pkg/extract"
)

// Driver names a supported database.
type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverMySQL    Driver = "mysql"
	DriverPostgres Driver = "postgres"
)

// DefaultDSN is the SQLite database file used when none is configured.
const DefaultDSN = "parsed_results.db"

// Config selects the database.
type Config struct {
	Driver Driver `mapstructure:"driver" yaml:"driver"`
	DSN    string `mapstructure:"dsn" yaml:"dsn"`
}

// ParseDriver validates a driver name.
func ParseDriver(s string) (Driver, error) {
	switch d := Driver(strings.ToLower(strings.TrimSpace(s))); d {
	case "", "sqlite3":
		return DriverSQLite, nil
	case DriverSQLite, DriverMySQL, DriverPostgres:
		return d, nil
	case "postgresql", "pgx":
		return DriverPostgres, nil
	default:
		return "", errors.E(errors.KindInvalidInput, "store.ParseDriver", fmt.Sprintf("unsupported driver %q", s))
	}
}

// Store is a handle on the results database.
type Store struct {
	db      *sql.DB
	dialect dialect
	mu      sync.Mutex
}

// Open connects to the database and creates the schema if needed.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	const op = "store.Open"

	driver, err := ParseDriver(string(cfg.Driver))
	if err != nil {
		return nil, err
	}
	dsn := cfg.DSN
	if dsn == "" {
		if driver != DriverSQLite {
			return nil, errors.E(errors.KindInvalidInput, op, fmt.Sprintf("dsn is required for %s", driver))
		}
		dsn = DefaultDSN
	}

	if driver == DriverSQLite && dsn != ":memory:" {
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, errors.E(errors.KindIO, op, "create database directory", err)
			}
		}
	}

	db, err := sql.Open(string(driver), dsn)
	if err != nil {
		return nil, errors.E(errors.KindExternal, op, "open database", err)
	}

	d := dialects[driver]
	if driver == DriverSQLite {
		// One connection per batch; also keeps :memory: databases alive.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.E(errors.KindExternal, op, fmt.Sprintf("connect %s", driver), err)
	}

	for _, pragma := range d.pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, errors.E(errors.KindExternal, op, "set pragma", err)
		}
	}

	s := &Store{db: db, dialect: d}
	if err := s.InitSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// InitSchema creates the tables if they don't exist.
func (s *Store) InitSchema(ctx context.Context) error {
	for _, stmt := range s.dialect.schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return errors.E(errors.KindExternal, "store.InitSchema", "create table", err)
		}
	}
	return nil
}

// Driver returns the driver in use.
func (s *Store) Driver() Driver {
	return s.dialect.driver
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// =============================================================================
// scan_results
// =============================================================================

// SaveRecords inserts one row per record inside a single transaction and
// returns the number of rows written. Nothing is written if any insert fails.
func (s *Store) SaveRecords(ctx context.Context, records []extract.Record) (int, error) {
	const op = "store.SaveRecords"

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.E(errors.KindExternal, op, "begin", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, s.dialect.rebind(`
		INSERT INTO scan_results (file_name, cve, ip, email, phone, url, endpoint)
		VALUES (?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return 0, errors.E(errors.KindExternal, op, "prepare", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		j := rec.Joined()
		if _, err := stmt.ExecContext(ctx, j.FileName, j.CVE, j.IP, j.Email, j.Phone, j.URL, j.Endpoint); err != nil {
			return 0, errors.E(errors.KindExternal, op, fmt.Sprintf("insert %s", j.FileName), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.E(errors.KindExternal, op, "commit", err)
	}
	return len(records), nil
}

// Row is a stored scan_results row.
type Row struct {
	ID       int64
	FileName string
	CVE      string
	IP       string
	Email    string
	Phone    string
	URL      string
	Endpoint string
}

// ListResults returns stored rows in insertion order. A limit <= 0 returns all.
func (s *Store) ListResults(ctx context.Context, limit int) ([]Row, error) {
	query := `SELECT id, file_name, cve, ip, email, phone, url, endpoint FROM scan_results ORDER BY id`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return nil, errors.E(errors.KindExternal, "store.ListResults", "query", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.ID, &r.FileName, &r.CVE, &r.IP, &r.Email, &r.Phone, &r.URL, &r.Endpoint); err != nil {
			return nil, errors.E(errors.KindExternal, "store.ListResults", "scan", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// =============================================================================
// scan_runs
// =============================================================================

// RunRecord is one tool invocation in the run ledger.
type RunRecord struct {
	RunID      string
	Tool       string
	Target     string
	Status     string
	ExitCode   int
	ReportPath string
	Error      string
	StartedAt  time.Time
	DurationMs int64
}

// RecordRun appends a ledger entry.
func (s *Store) RecordRun(ctx context.Context, r RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, s.dialect.rebind(`
		INSERT INTO scan_runs (run_id, tool, target, status, exit_code, report_path, error, started_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		r.RunID, r.Tool, r.Target, r.Status, r.ExitCode, r.ReportPath, r.Error,
		r.StartedAt.UTC().Format(time.RFC3339Nano), r.DurationMs,
	)
	if err != nil {
		return errors.E(errors.KindExternal, "store.RecordRun", fmt.Sprintf("insert %s/%s", r.RunID, r.Tool), err)
	}
	return nil
}

// ListRuns returns the most recent ledger entries, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	const op = "store.ListRuns"

	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(`
		SELECT run_id, tool, target, status, exit_code, report_path, error, started_at, duration_ms
		FROM scan_runs ORDER BY id DESC LIMIT ?`), limit)
	if err != nil {
		return nil, errors.E(errors.KindExternal, op, "query", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var r RunRecord
		var started string
		if err := rows.Scan(&r.RunID, &r.Tool, &r.Target, &r.Status, &r.ExitCode, &r.ReportPath, &r.Error, &started, &r.DurationMs); err != nil {
			return nil, errors.E(errors.KindExternal, op, "scan", err)
		}
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		out = append(out, r)
	}
	return out, rows.Err()
}
