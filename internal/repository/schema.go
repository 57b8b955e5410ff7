package repository

// Schema definitions for the idtrace database.
// Compatible with both SQLite and PostgreSQL.

const schemaMonitors = `
CREATE TABLE IF NOT EXISTS monitors (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    status TEXT NOT NULL DEFAULT 'CLEAN',
    leak_count INTEGER NOT NULL DEFAULT 0,
    last_checked TIMESTAMP,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_monitors_email ON monitors(email);
CREATE INDEX IF NOT EXISTS idx_monitors_status ON monitors(status);
`

const schemaScanRecords = `
CREATE TABLE IF NOT EXISTS scan_records (
    id TEXT PRIMARY KEY,
    monitor_id TEXT,
    email TEXT NOT NULL,
    score INTEGER NOT NULL,
    level TEXT NOT NULL,
    breaches INTEGER NOT NULL DEFAULT 0,
    exposures INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_scan_records_monitor ON scan_records(monitor_id);
CREATE INDEX IF NOT EXISTS idx_scan_records_email ON scan_records(email);
CREATE INDEX IF NOT EXISTS idx_scan_records_created ON scan_records(created_at);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaMonitors,
		schemaScanRecords,
	}
}
