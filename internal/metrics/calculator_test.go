package metrics

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/highbeam/pulseboard/internal/domain"
)

var baseTime = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func due(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func makeTask(id, projectID string, status domain.TaskStatus, dueDate *time.Time) domain.Task {
	return domain.Task{
		ID:        id,
		Title:     "task " + id,
		ProjectID: projectID,
		Status:    status,
		Priority:  domain.PriorityMedium,
		DueDate:   dueDate,
		CreatedAt: baseTime.AddDate(0, 0, -10),
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// ---------------------------------------------------------------------------
// ProjectStats
// ---------------------------------------------------------------------------

func TestProjectStats_RatesAndRisk(t *testing.T) {
	calc := NewCalculator(baseTime)

	projects := []domain.Project{
		{ID: "healthy", Name: "Healthy", Status: domain.ProjectInProgress, DueDate: due(2024, 7, 1)},
		{ID: "late", Name: "Late", Status: domain.ProjectInProgress, DueDate: due(2024, 6, 1)},
		{ID: "paused", Name: "Paused", Status: domain.ProjectOnHold},
		{ID: "empty", Name: "Empty", Status: domain.ProjectPlanned},
	}
	tasks := []domain.Task{
		makeTask("1", "healthy", domain.TaskCompleted, nil),
		makeTask("2", "healthy", domain.TaskCompleted, nil),
		makeTask("3", "healthy", domain.TaskTodo, due(2024, 6, 10)),
		makeTask("4", "late", domain.TaskCompleted, nil),
		makeTask("5", "late", domain.TaskInProgress, nil),
		makeTask("6", "paused", domain.TaskCompleted, nil),
		makeTask("7", "ghost", domain.TaskCompleted, nil),
	}

	stats := calc.ProjectStats(projects, tasks)
	require.Len(t, stats, 4)

	healthy := stats[0]
	assert.Equal(t, 3, healthy.TotalTasks)
	assert.Equal(t, 2, healthy.CompletedTasks)
	assert.Equal(t, 1, healthy.OverdueTasks)
	assert.True(t, almostEqual(healthy.CompletionRate, 2.0/3.0))
	assert.False(t, healthy.AtRisk)
	assert.Empty(t, healthy.RiskReasons)

	late := stats[1]
	assert.True(t, late.Overdue)
	assert.True(t, late.AtRisk)
	assert.Equal(t, []RiskReason{RiskOverdue}, late.RiskReasons)

	paused := stats[2]
	assert.Equal(t, 1.0, paused.CompletionRate)
	assert.Equal(t, []RiskReason{RiskOnHold}, paused.RiskReasons)

	// No tasks: rate is 0, not NaN, which is below the threshold.
	empty := stats[3]
	assert.Equal(t, 0, empty.TotalTasks)
	assert.Equal(t, 0.0, empty.CompletionRate)
	assert.Equal(t, []RiskReason{RiskLowCompletion}, empty.RiskReasons)
}

func TestProjectStats_RateBound(t *testing.T) {
	calc := NewCalculator(baseTime)
	projects := []domain.Project{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	tasks := []domain.Task{
		makeTask("1", "a", domain.TaskCompleted, nil),
		makeTask("2", "b", domain.TaskTodo, nil),
		makeTask("3", "b", domain.TaskStatus("weird"), nil),
	}

	for _, s := range calc.ProjectStats(projects, tasks) {
		assert.False(t, math.IsNaN(s.CompletionRate), s.ProjectID)
		assert.GreaterOrEqual(t, s.CompletionRate, 0.0, s.ProjectID)
		assert.LessOrEqual(t, s.CompletionRate, 1.0, s.ProjectID)
	}
}

// ---------------------------------------------------------------------------
// EmployeeStats
// ---------------------------------------------------------------------------

func TestEmployeeStats(t *testing.T) {
	calc := NewCalculator(baseTime)

	employees := []domain.Employee{
		{ID: "u1", FirstName: "Ada", LastName: "Lovelace", Role: domain.RoleEmployee},
		{ID: "u2", FirstName: "Grace", LastName: "Hopper", Role: domain.RoleManager},
		{ID: "u3", FirstName: "Idle", Role: domain.RoleEmployee},
	}
	tasks := []domain.Task{
		makeTask("1", "p", domain.TaskCompleted, nil),
		makeTask("2", "p", domain.TaskTodo, due(2024, 6, 1)),
		makeTask("3", "p", domain.TaskCompleted, nil),
	}
	assignments := []domain.Assignment{
		{TaskID: "1", UserID: "u1"},
		{TaskID: "2", UserID: "u1"},
		{TaskID: "2", UserID: "u1"}, // duplicate join row
		{TaskID: "3", UserID: "u1"},
		{TaskID: "3", UserID: "u2"},
		{TaskID: "missing", UserID: "u2"},
		{TaskID: "1", UserID: "stranger"},
	}

	stats := calc.EmployeeStats(employees, tasks, assignments)
	require.Len(t, stats, 3)

	assert.Equal(t, "Ada Lovelace", stats[0].Name)
	assert.Equal(t, 3, stats[0].AssignedTasks)
	assert.Equal(t, 2, stats[0].CompletedTasks)
	assert.Equal(t, 1, stats[0].OverdueTasks)
	assert.True(t, almostEqual(stats[0].CompletionRate, 2.0/3.0))

	assert.Equal(t, 1, stats[1].AssignedTasks)
	assert.Equal(t, 1.0, stats[1].CompletionRate)

	assert.Equal(t, 0, stats[2].AssignedTasks)
	assert.Equal(t, 0.0, stats[2].CompletionRate)
}

// ---------------------------------------------------------------------------
// TeamStats
// ---------------------------------------------------------------------------

func TestTeamStats(t *testing.T) {
	calc := NewCalculator(baseTime)

	teams := []domain.Team{{ID: "t1", Name: "Core"}, {ID: "t2", Name: "Growth"}}
	projects := []domain.Project{
		{ID: "p1", TeamID: "t1"},
		{ID: "p2", TeamID: "t1"},
		{ID: "p3", TeamID: "gone"},
	}
	tasks := []domain.Task{
		makeTask("1", "p1", domain.TaskCompleted, nil),
		makeTask("2", "p2", domain.TaskTodo, nil),
		makeTask("3", "p3", domain.TaskCompleted, nil),
	}

	stats := calc.TeamStats(teams, projects, tasks)
	require.Len(t, stats, 3)

	assert.Equal(t, TeamStats{TeamID: "t1", Name: "Core", Projects: 2, TotalTasks: 2, CompletedTasks: 1, CompletionRate: 0.5}, stats[0])
	assert.Equal(t, TeamStats{TeamID: "t2", Name: "Growth"}, stats[1])
	assert.Equal(t, "unassigned", stats[2].Name)
	assert.Equal(t, 1, stats[2].Projects)
	assert.Equal(t, 1.0, stats[2].CompletionRate)
}

// ---------------------------------------------------------------------------
// OverdueTasks
// ---------------------------------------------------------------------------

func TestOverdueTasks_Scenario(t *testing.T) {
	calc := NewCalculator(time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC))
	idx := domain.NewIndex(domain.Snapshot{Projects: []domain.Project{{ID: "p", Name: "Apollo"}}})

	tasks := []domain.Task{
		makeTask("open", "p", domain.TaskInProgress, due(2024, 6, 10)),
		makeTask("done", "p", domain.TaskCompleted, due(2024, 6, 10)),
		makeTask("undated", "p", domain.TaskInProgress, nil),
	}

	got := calc.OverdueTasks(tasks, idx)

	require.Len(t, got, 1)
	assert.Equal(t, "open", got[0].TaskID)
	assert.Equal(t, "Apollo", got[0].ProjectName)
	assert.Equal(t, 5, got[0].DaysOverdue)
}

func TestCalculator_EmptyInputs(t *testing.T) {
	calc := NewCalculator(baseTime)

	assert.Empty(t, calc.ProjectStats(nil, nil))
	assert.Empty(t, calc.EmployeeStats(nil, nil, nil))
	assert.Empty(t, calc.TeamStats(nil, nil, nil))
	assert.Empty(t, calc.OverdueTasks(nil, domain.Index{}))
	assert.Empty(t, AtRisk(nil, 3))
}
