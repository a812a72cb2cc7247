package store

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/highbeam/pulseboard/internal/domain"
)

var baseTime = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleSnapshot() domain.Snapshot {
	due := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	return domain.Snapshot{
		Teams: []domain.Team{{ID: "t1", Name: "Core"}},
		Projects: []domain.Project{
			{ID: "p2", Name: "Zephyr", Status: domain.ProjectInProgress, TeamID: "t1", ManagerID: "u1", StartDate: &start, DueDate: &due, CreatedAt: baseTime},
			{ID: "p1", Name: "Apollo", Status: domain.ProjectPlanned, CreatedAt: baseTime},
		},
		Tasks: []domain.Task{
			{ID: "k1", Title: "Write", Status: domain.TaskTodo, Priority: domain.PriorityHigh, ProjectID: "p2", DueDate: &due, CreatedAt: baseTime, UpdatedAt: baseTime},
			{ID: "k2", Title: "Ship", Status: "Completed", Priority: 0, ProjectID: "p1", CreatedAt: baseTime, UpdatedAt: baseTime},
		},
		Assignments: []domain.Assignment{{TaskID: "k1", UserID: "u2"}, {TaskID: "k1", UserID: "u2"}},
		Employees: []domain.Employee{
			{ID: "u1", FirstName: "Grace", LastName: "Hopper", Email: "grace@example.com", Role: domain.RoleManager, Status: domain.EmployeeActive, TeamID: "t1", CreatedAt: baseTime},
		},
		Activity: []domain.ActivityLogEntry{
			{ID: "a1", UserID: "u1", ActivityType: "task_created", ActivityDetails: "Write", ProjectID: "p2", TaskID: "k1", CreatedAt: baseTime},
		},
	}
}

func TestNew_MigratesAndUsesWAL(t *testing.T) {
	s := newTestStore(t)

	var mode string
	require.NoError(t, s.DB().QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)

	version, err := s.GetState("schema_version")
	require.NoError(t, err)
	assert.Equal(t, "3", version)

	name, err := s.GetState("schema_migration")
	require.NoError(t, err)
	assert.Equal(t, "drop import run time index", name)
}

func TestNew_UpgradesOlderSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := New(path)
	require.NoError(t, err)

	// Roll the file back to what a version 2 build left behind.
	_, err = s.DB().Exec(`CREATE INDEX idx_import_runs_imported ON import_runs(imported_at)`)
	require.NoError(t, err)
	require.NoError(t, s.SetState("schema_version", "2"))
	_, err = s.ReplaceSnapshot(sampleSnapshot(), "kept", baseTime)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = New(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	version, err := s.GetState("schema_version")
	require.NoError(t, err)
	assert.Equal(t, "3", version)

	var n int
	require.NoError(t, s.DB().QueryRow(
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'index' AND name = 'idx_import_runs_imported'`,
	).Scan(&n))
	assert.Zero(t, n)

	c, err := s.Counts()
	require.NoError(t, err)
	assert.Equal(t, int64(2), c.Projects, "upgrade keeps the stored snapshot")
}

func TestNew_RejectsNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := New(path)
	require.NoError(t, err)
	require.NoError(t, s.SetState("schema_version", "99"))
	require.NoError(t, s.Close())

	_, err = New(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "newer than this build")
}

func TestNew_RejectsForeignDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "other.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE store_state (key TEXT PRIMARY KEY, value TEXT NOT NULL DEFAULT '', updated_at TEXT NOT NULL);
INSERT INTO store_state (key, value, updated_at) VALUES ('schema_version', '3', '2024-01-01T00:00:00Z');
CREATE TABLE projects (id TEXT PRIMARY KEY);`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = New(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing tables teams, tasks, task_assignments, profiles, activity_logs, import_runs")
}

func TestNew_ReopenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := New(path)
	require.NoError(t, err)
	_, err = s.ReplaceSnapshot(sampleSnapshot(), "first", baseTime)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = New(path)
	require.NoError(t, err)
	defer s.Close()

	c, err := s.Counts()
	require.NoError(t, err)
	assert.Equal(t, int64(2), c.Projects)
}

func TestReplaceSnapshot_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	want := sampleSnapshot()

	run, err := s.ReplaceSnapshot(want, "snapshot.json", baseTime)
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)

	got, err := s.LoadSnapshot()
	require.NoError(t, err)

	assert.Equal(t, want, got)
}

func TestReplaceSnapshot_ReplacesPreviousData(t *testing.T) {
	s := newTestStore(t)

	_, err := s.ReplaceSnapshot(sampleSnapshot(), "one", baseTime)
	require.NoError(t, err)

	second := domain.Snapshot{Teams: []domain.Team{{ID: "t9", Name: "Other"}}}
	_, err = s.ReplaceSnapshot(second, "two", baseTime.Add(time.Hour))
	require.NoError(t, err)

	c, err := s.Counts()
	require.NoError(t, err)
	assert.Equal(t, Counts{Teams: 1}, c)

	got, err := s.LoadSnapshot()
	require.NoError(t, err)
	assert.Equal(t, second.Teams, got.Teams)
	assert.Empty(t, got.Projects)
}

func TestLastImport(t *testing.T) {
	s := newTestStore(t)

	run, err := s.LastImport()
	require.NoError(t, err)
	assert.Nil(t, run)

	first, err := s.ReplaceSnapshot(sampleSnapshot(), "one", baseTime)
	require.NoError(t, err)
	second, err := s.ReplaceSnapshot(sampleSnapshot(), "two", baseTime.Add(time.Minute))
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	run, err = s.LastImport()
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, second.ID, run.ID)
	assert.Equal(t, "two", run.Source)
	assert.Equal(t, baseTime.Add(time.Minute), run.ImportedAt)
	assert.Equal(t, int64(2), run.Counts.Assignments)
}

func TestLastImport_SubSecondRuns(t *testing.T) {
	s := newTestStore(t)

	// RFC 3339 text for the whole second sorts after the later half second.
	_, err := s.ReplaceSnapshot(sampleSnapshot(), "whole", baseTime)
	require.NoError(t, err)
	later, err := s.ReplaceSnapshot(sampleSnapshot(), "half", baseTime.Add(500*time.Millisecond))
	require.NoError(t, err)

	run, err := s.LastImport()
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, later.ID, run.ID)
	assert.Equal(t, baseTime.Add(500*time.Millisecond), run.ImportedAt)
}

func TestState(t *testing.T) {
	s := newTestStore(t)

	v, err := s.GetState("missing")
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, s.SetState("cursor", "a"))
	require.NoError(t, s.SetState("cursor", "b"))

	v, err = s.GetState("cursor")
	require.NoError(t, err)
	assert.Equal(t, "b", v)
}

func TestDBSizeBytes(t *testing.T) {
	s := newTestStore(t)
	size, err := s.DBSizeBytes()
	require.NoError(t, err)
	assert.Positive(t, size)
}
