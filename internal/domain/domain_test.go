package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestTaskStatus_IsValid(t *testing.T) {
	for _, s := range TaskStatuses() {
		t.Run(string(s), func(t *testing.T) {
			assert.True(t, s.IsValid())
		})
	}

	assert.False(t, TaskStatus("Completed").IsValid())
	assert.False(t, TaskStatus("").IsValid())
}

func TestProjectStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		status   ProjectStatus
		terminal bool
	}{
		{ProjectPlanned, false},
		{ProjectInProgress, false},
		{ProjectOnHold, false},
		{ProjectCompleted, true},
		{ProjectCancelled, true},
	}

	for _, tt := range tests {
		t.Run(tt.status.String(), func(t *testing.T) {
			assert.Equal(t, tt.terminal, tt.status.IsTerminal())
		})
	}
}

func TestPriority_Label(t *testing.T) {
	assert.Equal(t, "critical", PriorityCritical.Label())
	assert.Equal(t, "low", PriorityLow.Label())
	assert.Equal(t, "unset", Priority(0).Label())
	assert.False(t, Priority(5).IsValid())
	assert.Len(t, Priorities(), 4)
}

func TestTask_IsOverdue(t *testing.T) {
	now := time.Date(2024, 6, 15, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		task Task
		want bool
	}{
		{"past due and open", Task{DueDate: date(2024, 6, 10), Status: TaskInProgress}, true},
		{"past due but completed", Task{DueDate: date(2024, 6, 10), Status: TaskCompleted}, false},
		{"past due but cancelled", Task{DueDate: date(2024, 6, 10), Status: TaskCancelled}, false},
		{"due today", Task{DueDate: date(2024, 6, 15), Status: TaskTodo}, false},
		{"due tomorrow", Task{DueDate: date(2024, 6, 16), Status: TaskTodo}, false},
		{"no due date", Task{Status: TaskTodo}, false},
		{"unknown status counts as open", Task{DueDate: date(2024, 6, 1), Status: TaskStatus("blocked")}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.task.IsOverdue(now))
		})
	}
}

func TestTask_DaysOverdue(t *testing.T) {
	now := time.Date(2024, 6, 15, 23, 0, 0, 0, time.UTC)

	assert.Equal(t, 5, Task{DueDate: date(2024, 6, 10), Status: TaskTodo}.DaysOverdue(now))
	assert.Equal(t, 0, Task{DueDate: date(2024, 6, 10), Status: TaskCompleted}.DaysOverdue(now))
	assert.Equal(t, 0, Task{Status: TaskTodo}.DaysOverdue(now))
}

func TestProject_IsOverdue(t *testing.T) {
	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

	assert.True(t, Project{DueDate: date(2024, 6, 1), Status: ProjectOnHold}.IsOverdue(now))
	assert.False(t, Project{DueDate: date(2024, 6, 1), Status: ProjectCompleted}.IsOverdue(now))
	assert.False(t, Project{Status: ProjectInProgress}.IsOverdue(now))
}

func TestIndex_Names(t *testing.T) {
	idx := NewIndex(Snapshot{
		Employees: []Employee{
			{ID: "u1", FirstName: "Ada", LastName: "Lovelace"},
			{ID: "u2", Email: "grace@example.com"},
		},
		Teams: []Team{{ID: "t1", Name: "Platform"}},
	})

	assert.Equal(t, "Ada Lovelace", idx.EmployeeName("u1"))
	assert.Equal(t, "grace@example.com", idx.EmployeeName("u2"))
	assert.Equal(t, "u9", idx.EmployeeName("u9"))
	assert.Equal(t, "Platform", idx.TeamName("t1"))
	assert.Equal(t, "t9", idx.TeamName("t9"))
	assert.Equal(t, "unassigned", idx.TeamName(""))
}
