package store

// schemaVersion is the layout this build reads and writes. A change to the
// tables bumps it and adds a migration step in SqlStore.migrate.
const schemaVersion = 1

// schema is the fresh-install DDL.
var schema = `
CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL);
CREATE TABLE IF NOT EXISTS runs (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	scene              TEXT NOT NULL,
	checks             TEXT NOT NULL,
	started_at         TEXT NOT NULL,
	duration_ms        INTEGER NOT NULL DEFAULT 0,
	ok                 INTEGER NOT NULL,
	primitives         INTEGER NOT NULL,
	pass               INTEGER NOT NULL,
	fail               INTEGER NOT NULL,
	skipped            INTEGER NOT NULL,
	skipped_with_error INTEGER NOT NULL,
	errors             INTEGER NOT NULL,
	warnings           INTEGER NOT NULL,
	notes              INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_scene ON runs(scene, id);
CREATE TABLE IF NOT EXISTS findings (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id         INTEGER NOT NULL REFERENCES runs(id),
	path           TEXT NOT NULL,
	check_name     TEXT NOT NULL,
	primvar        TEXT,
	domain         TEXT,
	time_sample    TEXT NOT NULL,
	expected_count INTEGER NOT NULL,
	actual_count   INTEGER NOT NULL,
	severity       TEXT NOT NULL,
	reason_code    TEXT NOT NULL,
	message        TEXT
);
CREATE INDEX IF NOT EXISTS idx_findings_run ON findings(run_id);
`
