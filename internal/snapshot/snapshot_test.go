package snapshot

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/highbeam/pulseboard/internal/domain"
)

const sampleJSON = `{
  "teams": [{"id": 7, "name": "Core"}],
  "projects": [
    {"id": "p1", "name": "Apollo", "status": "In Progress", "team_id": 7,
     "manager_id": "u1", "start_date": "2024-06-01", "due_date": "2024-06-30",
     "created_at": "2024-05-20T08:30:00.123Z"}
  ],
  "tasks": [
    {"id": 101, "title": "Draft", "status": "Completed", "priority": "high",
     "project_id": "p1", "due_date": "2024-06-10",
     "created_at": "2024-06-01 09:00:00.5+00", "updated_at": "2024-06-09 17:00:00+00"},
    {"id": 102, "title": "Review", "status": "todo", "priority": 4,
     "project_id": "p1", "due_date": "next tuesday",
     "created_at": 1717228800}
  ],
  "task_assignments": [{"task_id": 101, "user_id": "u1"}],
  "profiles": [
    {"id": "u1", "first_name": "Grace", "last_name": "Hopper", "email": "g@example.com",
     "role": "manager", "status": "Active", "created_at": "2024-01-01"}
  ],
  "activity_logs": [
    {"id": "a1", "user_id": "u1", "activity_type": "task_completed",
     "activity_details": "Draft", "project_id": "p1", "task_id": 101,
     "created_at": "2024-06-09T17:00:00Z"}
  ]
}`

func TestParse_TolerantShapes(t *testing.T) {
	logger, hook := test.NewNullLogger()
	p := NewParser(logger)

	snap, err := p.Parse(strings.NewReader(sampleJSON))
	require.NoError(t, err)

	require.Len(t, snap.Teams, 1)
	assert.Equal(t, "7", snap.Teams[0].ID)

	require.Len(t, snap.Projects, 1)
	proj := snap.Projects[0]
	assert.Equal(t, "7", proj.TeamID)
	assert.Equal(t, domain.ProjectStatus("In Progress"), proj.Status)
	require.NotNil(t, proj.DueDate)
	assert.Equal(t, time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC), *proj.DueDate)

	require.Len(t, snap.Tasks, 2)
	draft := snap.Tasks[0]
	assert.Equal(t, "101", draft.ID)
	assert.Equal(t, domain.PriorityHigh, draft.Priority)
	assert.Equal(t, 2024, draft.CreatedAt.Year())
	assert.Equal(t, 17, draft.UpdatedAt.UTC().Hour())

	review := snap.Tasks[1]
	assert.Equal(t, domain.PriorityLow, review.Priority)
	assert.Nil(t, review.DueDate, "malformed due date is treated as absent")
	assert.Equal(t, time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC), review.CreatedAt)
	assert.Equal(t, review.CreatedAt, review.UpdatedAt, "missing updated_at falls back to created_at")

	assert.Equal(t, []domain.Assignment{{TaskID: "101", UserID: "u1"}}, snap.Assignments)
	require.Len(t, snap.Employees, 1)
	assert.Equal(t, domain.EmployeeStatus("Active"), snap.Employees[0].Status)
	require.Len(t, snap.Activity, 1)
	assert.Equal(t, "101", snap.Activity[0].TaskID)

	require.Len(t, hook.AllEntries(), 1)
	entry := hook.LastEntry()
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "due_date", entry.Data["field"])
	assert.Equal(t, "next tuesday", entry.Data["value"])
}

func TestParse_Aliases(t *testing.T) {
	doc := `{"assignments":[{"task_id":"t","user_id":"u"}],
	         "employees":[{"id":"u","created_at":"2024-01-01"}],
	         "activity":[{"id":"a","created_at":"2024-01-01"}]}`

	snap, err := NewParser(nil).Parse(strings.NewReader(doc))
	require.NoError(t, err)

	assert.Len(t, snap.Assignments, 1)
	assert.Len(t, snap.Employees, 1)
	assert.Len(t, snap.Activity, 1)
	assert.NotNil(t, snap.Projects)
	assert.Empty(t, snap.Projects)
}

func TestParse_UnknownPriorityIsLogged(t *testing.T) {
	logger, hook := test.NewNullLogger()
	doc := `{"tasks":[{"id":"t","priority":"someday","created_at":"2024-01-01"}]}`

	snap, err := NewParser(logger).Parse(strings.NewReader(doc))
	require.NoError(t, err)

	assert.Equal(t, domain.Priority(0), snap.Tasks[0].Priority)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "priority", hook.LastEntry().Data["field"])
}

func TestParse_InvalidJSON(t *testing.T) {
	_, err := NewParser(nil).Parse(strings.NewReader(`{"projects": [`))
	assert.Error(t, err)
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleJSON), 0o644))

	snap, err := NewParser(nil).ParseFile(path)
	require.NoError(t, err)
	assert.Len(t, snap.Tasks, 2)

	_, err = NewParser(nil).ParseFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestIsSnapshotFile(t *testing.T) {
	assert.True(t, IsSnapshotFile("export.json"))
	assert.True(t, IsSnapshotFile("/a/b/EXPORT.JSON"))
	assert.False(t, IsSnapshotFile(".export.json"))
	assert.False(t, IsSnapshotFile("export.json~"))
	assert.False(t, IsSnapshotFile("export.csv"))
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()

	_, err := Discover(dir)
	assert.True(t, errors.Is(err, ErrNoSnapshot))

	older := filepath.Join(dir, "a.json")
	newer := filepath.Join(dir, "b.json")
	require.NoError(t, os.WriteFile(older, []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(newer, []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(newer, past, past))
	require.NoError(t, os.Chtimes(older, past.Add(-time.Hour), past.Add(-time.Hour)))

	got, err := Discover(dir)
	require.NoError(t, err)
	assert.Equal(t, newer, got)
}
