package store

// snapshotTables hold the imported snapshot. ReplaceSnapshot clears them as
// a unit and a migrated database must have all of them.
var snapshotTables = []string{"teams", "projects", "tasks", "task_assignments", "profiles", "activity_logs"}

// migration brings the schema from version-1 to version.
type migration struct {
	version int
	name    string
	stmt    string
}

// migrations are listed in version order starting at 1.
//
// Timestamps are stored as RFC 3339 text in UTC. Optional dates are NULL.
var migrations = []migration{
	{version: 1, name: "snapshot tables", stmt: `
CREATE TABLE IF NOT EXISTS teams (
	id   TEXT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS projects (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL DEFAULT '',
	team_id    TEXT NOT NULL DEFAULT '',
	manager_id TEXT NOT NULL DEFAULT '',
	start_date TEXT,
	due_date   TEXT,
	created_at TEXT NOT NULL,
	position   INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_projects_team ON projects(team_id);

CREATE TABLE IF NOT EXISTS tasks (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL DEFAULT '',
	priority   INTEGER NOT NULL DEFAULT 0,
	project_id TEXT NOT NULL DEFAULT '',
	start_date TEXT,
	due_date   TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	position   INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(project_id);
CREATE INDEX IF NOT EXISTS idx_tasks_due ON tasks(due_date);

-- Join rows keep their import order; duplicates are tolerated.
CREATE TABLE IF NOT EXISTS task_assignments (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	task_id TEXT NOT NULL,
	user_id TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_task_assignments_user ON task_assignments(user_id);

CREATE TABLE IF NOT EXISTS profiles (
	id         TEXT PRIMARY KEY,
	first_name TEXT NOT NULL DEFAULT '',
	last_name  TEXT NOT NULL DEFAULT '',
	email      TEXT NOT NULL DEFAULT '',
	role       TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL DEFAULT '',
	team_id    TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	position   INTEGER NOT NULL
);

-- Append-only audit log.
CREATE TABLE IF NOT EXISTS activity_logs (
	id               TEXT PRIMARY KEY,
	user_id          TEXT NOT NULL DEFAULT '',
	activity_type    TEXT NOT NULL DEFAULT '',
	activity_details TEXT NOT NULL DEFAULT '',
	project_id       TEXT NOT NULL DEFAULT '',
	task_id          TEXT NOT NULL DEFAULT '',
	created_at       TEXT NOT NULL,
	position         INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_activity_logs_created ON activity_logs(created_at);

CREATE TABLE IF NOT EXISTS store_state (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL DEFAULT '',
	updated_at TEXT NOT NULL
);
`},

	{version: 2, name: "import runs", stmt: `
-- One row per successful snapshot import.
CREATE TABLE IF NOT EXISTS import_runs (
	id          TEXT PRIMARY KEY,
	source      TEXT NOT NULL,
	imported_at TEXT NOT NULL,
	projects    INTEGER NOT NULL DEFAULT 0,
	tasks       INTEGER NOT NULL DEFAULT 0,
	assignments INTEGER NOT NULL DEFAULT 0,
	employees   INTEGER NOT NULL DEFAULT 0,
	teams       INTEGER NOT NULL DEFAULT 0,
	activity    INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_import_runs_imported ON import_runs(imported_at);
`},

	// Runs are read back in insertion order; the text timestamp does not
	// sort reliably once fractional seconds are trimmed.
	{version: 3, name: "drop import run time index", stmt: `
DROP INDEX IF EXISTS idx_import_runs_imported;
`},
}

// schemaVersion is the version a fully migrated database reports.
var schemaVersion = migrations[len(migrations)-1].version
