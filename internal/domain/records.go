// Package domain defines the read-only records the analytics pipeline
// consumes: projects, tasks, assignments, employees, teams and activity log
// entries. Records are plain values; the pipeline never writes them back.
package domain

import (
	"math"
	"strings"
	"time"
)

// Project is a unit of work owned by a team and run by a manager.
type Project struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Status    ProjectStatus `json:"status"`
	TeamID    string        `json:"team_id,omitempty"`
	ManagerID string        `json:"manager_id,omitempty"`
	StartDate *time.Time    `json:"start_date,omitempty"`
	DueDate   *time.Time    `json:"due_date,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

// Task belongs to exactly one project and may have several assignees.
type Task struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Status    TaskStatus `json:"status"`
	Priority  Priority   `json:"priority"`
	ProjectID string     `json:"project_id"`
	StartDate *time.Time `json:"start_date,omitempty"`
	DueDate   *time.Time `json:"due_date,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Assignment joins a task to one of its assignees.
type Assignment struct {
	TaskID string `json:"task_id"`
	UserID string `json:"user_id"`
}

// Employee is a user profile.
type Employee struct {
	ID        string         `json:"id"`
	FirstName string         `json:"first_name"`
	LastName  string         `json:"last_name"`
	Email     string         `json:"email"`
	Role      Role           `json:"role"`
	Status    EmployeeStatus `json:"status"`
	TeamID    string         `json:"team_id,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// FullName joins first and last name, falling back to the email address
// when both are empty.
func (e Employee) FullName() string {
	name := strings.TrimSpace(e.FirstName + " " + e.LastName)
	if name == "" {
		return e.Email
	}
	return name
}

// Team groups employees and owns projects.
type Team struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ActivityLogEntry is an append-only audit record.
type ActivityLogEntry struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	ActivityType    string    `json:"activity_type"`
	ActivityDetails string    `json:"activity_details"`
	ProjectID       string    `json:"project_id,omitempty"`
	TaskID          string    `json:"task_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// Snapshot is one consistent read of every collection the pipeline uses.
type Snapshot struct {
	Projects    []Project          `json:"projects"`
	Tasks       []Task             `json:"tasks"`
	Assignments []Assignment       `json:"assignments"`
	Employees   []Employee         `json:"employees"`
	Teams       []Team             `json:"teams"`
	Activity    []ActivityLogEntry `json:"activity_logs"`
}

// Index provides id lookups over a snapshot. Build it once per pipeline run.
type Index struct {
	Projects  map[string]Project
	Employees map[string]Employee
	TeamNames map[string]string
}

// NewIndex builds lookup maps for the snapshot's projects, employees and teams.
func NewIndex(s Snapshot) Index {
	idx := Index{
		Projects:  make(map[string]Project, len(s.Projects)),
		Employees: make(map[string]Employee, len(s.Employees)),
		TeamNames: make(map[string]string, len(s.Teams)),
	}
	for _, p := range s.Projects {
		idx.Projects[p.ID] = p
	}
	for _, e := range s.Employees {
		idx.Employees[e.ID] = e
	}
	for _, t := range s.Teams {
		idx.TeamNames[t.ID] = t.Name
	}
	return idx
}

// TeamName returns the team's display name, or its id when the team is unknown.
func (i Index) TeamName(teamID string) string {
	if teamID == "" {
		return "unassigned"
	}
	if name, ok := i.TeamNames[teamID]; ok && name != "" {
		return name
	}
	return teamID
}

// EmployeeName returns the employee's full name, or the id when unknown.
func (i Index) EmployeeName(userID string) string {
	if e, ok := i.Employees[userID]; ok {
		if name := e.FullName(); name != "" {
			return name
		}
	}
	return userID
}

// Day truncates t to midnight in its own location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// overdue reports whether due falls on a calendar day before now.
// A nil due date is never overdue.
func overdue(due *time.Time, now time.Time) bool {
	if due == nil || due.IsZero() {
		return false
	}
	return Day(*due).Before(Day(now.In(due.Location())))
}

// IsOverdue reports whether the task is past its due date and still open.
func (t Task) IsOverdue(now time.Time) bool {
	return !t.Status.IsTerminal() && overdue(t.DueDate, now)
}

// DaysOverdue returns how many whole days the task is past due, or 0.
func (t Task) DaysOverdue(now time.Time) int {
	if !t.IsOverdue(now) {
		return 0
	}
	due := Day(*t.DueDate)
	today := Day(now.In(due.Location()))
	return int(math.Round(today.Sub(due).Hours() / 24))
}

// IsOverdue reports whether the project is past its due date and still open.
func (p Project) IsOverdue(now time.Time) bool {
	return !p.Status.IsTerminal() && overdue(p.DueDate, now)
}
