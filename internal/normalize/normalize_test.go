package normalize

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/highbeam/pulseboard/internal/domain"
)

func TestCanonical(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Completed", "completed"},
		{"completed", "completed"},
		{"Cancelled", "cancelled"},
		{"canceled", "cancelled"},
		{"In Progress", "in_progress"},
		{"on-hold", "on_hold"},
		{"  TODO ", "todo"},
		{"To Do", "todo"},
		{"Done", "completed"},
		{"Active", "active"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Canonical(tt.in))
		})
	}
}

func TestNormalizer_Tasks(t *testing.T) {
	logger, hook := test.NewNullLogger()
	n := New(logger)

	in := []domain.Task{
		{ID: "1", Status: "Completed", Priority: 1},
		{ID: "2", Status: "in progress", Priority: 2},
		{ID: "3", Status: "blocked", Priority: 3},
	}

	out := n.Tasks(in)

	require.Len(t, out, 3)
	assert.Equal(t, domain.TaskCompleted, out[0].Status)
	assert.Equal(t, domain.TaskInProgress, out[1].Status)
	// Unknown values pass through untouched.
	assert.Equal(t, domain.TaskStatus("blocked"), out[2].Status)

	// The input slice is not mutated.
	assert.Equal(t, domain.TaskStatus("Completed"), in[0].Status)

	require.Len(t, hook.AllEntries(), 1)
	entry := hook.LastEntry()
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "blocked", entry.Data["value"])
	assert.Equal(t, "task", entry.Data["entity"])
}

func TestNormalizer_TaskPriorityOutOfRangeLogged(t *testing.T) {
	logger, hook := test.NewNullLogger()
	out := New(logger).Tasks([]domain.Task{{ID: "1", Status: "todo", Priority: 0}})

	assert.Equal(t, domain.Priority(0), out[0].Priority)
	require.Len(t, hook.AllEntries(), 1)
	assert.Equal(t, "priority", hook.LastEntry().Data["field"])
}

func TestNormalizer_Projects(t *testing.T) {
	out := New(nil).Projects([]domain.Project{
		{ID: "p1", Status: "Cancelled"},
		{ID: "p2", Status: "Planning"},
		{ID: "p3", Status: "On Hold"},
	})

	assert.Equal(t, domain.ProjectCancelled, out[0].Status)
	assert.Equal(t, domain.ProjectPlanned, out[1].Status)
	assert.Equal(t, domain.ProjectOnHold, out[2].Status)
}

func TestNormalizer_Employees(t *testing.T) {
	out := New(nil).Employees([]domain.Employee{
		{ID: "u1", Role: "Manager", Status: "Active"},
		{ID: "u2", Role: "contractor", Status: "Inactive"},
	})

	assert.Equal(t, domain.RoleManager, out[0].Role)
	assert.Equal(t, domain.EmployeeActive, out[0].Status)
	assert.Equal(t, domain.Role("contractor"), out[1].Role)
	assert.Equal(t, domain.EmployeeInactive, out[1].Status)
}

func TestNormalizer_SnapshotCopiesEverything(t *testing.T) {
	s := domain.Snapshot{
		Tasks:       []domain.Task{{ID: "1", Status: "Completed", Priority: 2}},
		Assignments: []domain.Assignment{{TaskID: "1", UserID: "u1"}},
		Teams:       []domain.Team{{ID: "t1", Name: "Core"}},
		Activity:    []domain.ActivityLogEntry{{ID: "a1"}},
	}

	out := New(nil).Snapshot(s)
	out.Assignments[0].UserID = "changed"

	assert.Equal(t, domain.TaskCompleted, out.Tasks[0].Status)
	assert.Equal(t, "u1", s.Assignments[0].UserID)
	assert.Equal(t, s.Teams, out.Teams)
	assert.Equal(t, s.Activity, out.Activity)
}

func TestNormalizer_Empty(t *testing.T) {
	n := New(nil)
	assert.Empty(t, n.Tasks(nil))
	assert.Empty(t, n.Projects(nil))
	assert.Empty(t, n.Employees(nil))
}
