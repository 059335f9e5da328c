package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"sceneqc/internal/report"
	"sceneqc/internal/scene"

	_ "modernc.org/sqlite"
)

// nowUTC returns the current UTC time as an ISO 8601 string.
func nowUTC() string { return time.Now().UTC().Format(time.RFC3339) }

// nullStr converts a sql.NullString to a plain string (empty if null).
func nullStr(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// SqlStore implements Store with SQLite.
type SqlStore struct {
	db *sql.DB
}

// Open opens or creates a SQLite DB at path and checks its schema version.
// Creates the parent directory (e.g. .sceneqc) if it does not exist.
func Open(path string) (*SqlStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	s := &SqlStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SqlStore) migrate() error {
	var tableCount int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableCount)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableCount == 0 {
		return s.freshInstall()
	}

	var v int
	err = s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("schema_version is empty; not a sceneqc history DB")
	}
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if v != schemaVersion {
		return fmt.Errorf("unsupported schema version %d (this build uses %d)", v, schemaVersion)
	}
	return nil
}

// freshInstall creates the tables and stamps the version in one transaction.
func (s *SqlStore) freshInstall() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin install tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.Exec("INSERT INTO schema_version(version) VALUES(?)", schemaVersion); err != nil {
		return fmt.Errorf("set schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit install tx: %w", err)
	}
	return nil
}

// Close closes the underlying DB.
func (s *SqlStore) Close() error {
	return s.db.Close()
}

// SaveRun inserts the run row and its findings in one transaction.
func (s *SqlStore) SaveRun(run *Run, r *report.Report) (int64, error) {
	cp, err := runFromReport(run, r)
	if err != nil {
		return 0, err
	}
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin save run: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	sm := cp.Summary
	res, err := tx.Exec(
		`INSERT INTO runs(scene, checks, started_at, duration_ms, ok,
		        primitives, pass, fail, skipped, skipped_with_error, errors, warnings, notes)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		cp.Scene, strings.Join(cp.Checks, ","), cp.StartedAt, cp.DurationMS, cp.OK,
		sm.Primitives, sm.Pass, sm.Fail, sm.Skipped, sm.SkippedWithError, sm.Errors, sm.Warnings, sm.Notes,
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("run id: %w", err)
	}

	stmt, err := tx.Prepare(
		`INSERT INTO findings(run_id, path, check_name, primvar, domain, time_sample,
		        expected_count, actual_count, severity, reason_code, message)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare finding insert: %w", err)
	}
	defer stmt.Close()
	for _, f := range r.Findings() {
		if _, err := stmt.Exec(id, f.Path, f.Check, nilIfEmpty(f.Primvar), nilIfEmpty(string(f.Domain)),
			f.Time.String(), f.Expected, f.Actual, string(f.Severity), string(f.Reason), nilIfEmpty(f.Message)); err != nil {
			return 0, fmt.Errorf("insert finding %s: %w", f.Path, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit run: %w", err)
	}
	return id, nil
}

const runColumns = `id, scene, checks, started_at, duration_ms, ok,
	primitives, pass, fail, skipped, skipped_with_error, errors, warnings, notes`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(sc rowScanner) (*Run, error) {
	var r Run
	var checks string
	sm := &r.Summary
	if err := sc.Scan(&r.ID, &r.Scene, &checks, &r.StartedAt, &r.DurationMS, &r.OK,
		&sm.Primitives, &sm.Pass, &sm.Fail, &sm.Skipped, &sm.SkippedWithError, &sm.Errors, &sm.Warnings, &sm.Notes); err != nil {
		return nil, err
	}
	r.Checks = []string{}
	if checks != "" {
		r.Checks = strings.Split(checks, ",")
	}
	return &r, nil
}

func (s *SqlStore) GetRun(id int64) (*Run, error) {
	r, err := scanRun(s.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return r, nil
}

func (s *SqlStore) ListRuns(sceneID string, limit int) ([]*Run, error) {
	q := `SELECT ` + runColumns + ` FROM runs`
	var args []any
	if sceneID != "" {
		q += ` WHERE scene = ?`
		args = append(args, sceneID)
	}
	q += ` ORDER BY id DESC`
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()
	out := []*Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SqlStore) ListFindings(runID int64) ([]report.Finding, error) {
	rows, err := s.db.Query(
		`SELECT path, check_name, primvar, domain, time_sample,
		        expected_count, actual_count, severity, reason_code, message
		 FROM findings WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("list findings: %w", err)
	}
	defer rows.Close()
	out := []report.Finding{}
	for rows.Next() {
		var f report.Finding
		var primvar, domain, message sql.NullString
		var ts, severity, reason string
		if err := rows.Scan(&f.Path, &f.Check, &primvar, &domain, &ts,
			&f.Expected, &f.Actual, &severity, &reason, &message); err != nil {
			return nil, fmt.Errorf("scan finding: %w", err)
		}
		tc, err := scene.ParseTimeCode(ts)
		if err != nil {
			return nil, fmt.Errorf("finding %s: %w", f.Path, err)
		}
		f.Time = tc
		f.Primvar = nullStr(primvar)
		f.Domain = scene.Interpolation(nullStr(domain))
		f.Severity = report.Severity(severity)
		f.Reason = report.Reason(reason)
		f.Message = nullStr(message)
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *SqlStore) NewFindings(runID int64) ([]report.Finding, error) {
	run, err := s.GetRun(runID)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, fmt.Errorf("run %d not found", runID)
	}
	cur, err := s.ListFindings(runID)
	if err != nil {
		return nil, err
	}
	var prevID int64
	err = s.db.QueryRow(`SELECT id FROM runs WHERE scene = ? AND id < ? ORDER BY id DESC LIMIT 1`,
		run.Scene, runID).Scan(&prevID)
	if errors.Is(err, sql.ErrNoRows) {
		return newSince(nil, cur), nil
	}
	if err != nil {
		return nil, fmt.Errorf("previous run: %w", err)
	}
	prev, err := s.ListFindings(prevID)
	if err != nil {
		return nil, err
	}
	return newSince(prev, cur), nil
}
