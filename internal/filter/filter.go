// Package filter narrows record sets by time window, team, project,
// assignee, priority and status. All filters are conjunctive, preserve
// input order and never mutate their inputs.
package filter

import (
	"time"

	"github.com/highbeam/pulseboard/internal/domain"
)

// All is accepted anywhere an id is expected and means "no constraint".
const All = "all"

// DateField selects which date a date range is compared against.
type DateField int

const (
	// CreatedAt compares the record's creation time ("created in period").
	CreatedAt DateField = iota
	// DueDate compares the record's due date ("due in period").
	DueDate
)

// String returns the field name as it appears in the data.
func (f DateField) String() string {
	if f == DueDate {
		return "due_date"
	}
	return "created_at"
}

// DateRange is an inclusive time interval.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Empty reports whether the range can never match (start after end).
func (r DateRange) Empty() bool {
	return r.Start.After(r.End)
}

// Contains reports whether t lies within the range, both ends inclusive.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// Spec describes a filter. The zero value matches everything.
type Spec struct {
	DateRange  *DateRange
	DateField  DateField
	TeamID     string
	ProjectID  string
	AssigneeID string
	Priority   domain.Priority // 0 means any priority
	Statuses   []string        // allowlist; empty means any status
}

func active(id string) bool {
	return id != "" && id != All
}

// matchDate applies the range check. A record without the chosen date is
// excluded whenever a range is present.
func (s Spec) matchDate(t *time.Time) bool {
	if s.DateRange == nil {
		return true
	}
	if t == nil || t.IsZero() {
		return false
	}
	return s.DateRange.Contains(*t)
}

func (s Spec) matchStatus(status string) bool {
	if len(s.Statuses) == 0 {
		return true
	}
	for _, allowed := range s.Statuses {
		if allowed == status {
			return true
		}
	}
	return false
}

func (s Spec) emptyRange() bool {
	return s.DateRange != nil && s.DateRange.Empty()
}

// Engine applies specs to record sets. It carries the lookups needed for
// cross-entity filters: a task's team comes from its project and its
// assignees come from the assignment join table.
type Engine struct {
	projectTeam   map[string]string
	taskAssignees map[string]map[string]struct{}
}

// NewEngine indexes projects and assignments for cross-entity filters.
func NewEngine(projects []domain.Project, assignments []domain.Assignment) *Engine {
	e := &Engine{
		projectTeam:   make(map[string]string, len(projects)),
		taskAssignees: make(map[string]map[string]struct{}),
	}
	for _, p := range projects {
		e.projectTeam[p.ID] = p.TeamID
	}
	for _, a := range assignments {
		set, ok := e.taskAssignees[a.TaskID]
		if !ok {
			set = make(map[string]struct{})
			e.taskAssignees[a.TaskID] = set
		}
		set[a.UserID] = struct{}{}
	}
	return e
}

// Tasks returns the tasks matching spec. Team is resolved via the task's
// project; assignee via the assignment table.
func (e *Engine) Tasks(tasks []domain.Task, spec Spec) []domain.Task {
	out := make([]domain.Task, 0, len(tasks))
	if spec.emptyRange() {
		return out
	}
	for _, t := range tasks {
		date := &t.CreatedAt
		if spec.DateField == DueDate {
			date = t.DueDate
		}
		if !spec.matchDate(date) {
			continue
		}
		if active(spec.ProjectID) && t.ProjectID != spec.ProjectID {
			continue
		}
		if active(spec.TeamID) && e.projectTeam[t.ProjectID] != spec.TeamID {
			continue
		}
		if active(spec.AssigneeID) {
			if _, ok := e.taskAssignees[t.ID][spec.AssigneeID]; !ok {
				continue
			}
		}
		if spec.Priority != 0 && t.Priority != spec.Priority {
			continue
		}
		if !spec.matchStatus(string(t.Status)) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Projects returns the projects matching spec. AssigneeID matches the
// project manager; Priority does not apply to projects and is ignored.
func (e *Engine) Projects(projects []domain.Project, spec Spec) []domain.Project {
	out := make([]domain.Project, 0, len(projects))
	if spec.emptyRange() {
		return out
	}
	for _, p := range projects {
		date := &p.CreatedAt
		if spec.DateField == DueDate {
			date = p.DueDate
		}
		if !spec.matchDate(date) {
			continue
		}
		if active(spec.ProjectID) && p.ID != spec.ProjectID {
			continue
		}
		if active(spec.TeamID) && p.TeamID != spec.TeamID {
			continue
		}
		if active(spec.AssigneeID) && p.ManagerID != spec.AssigneeID {
			continue
		}
		if !spec.matchStatus(string(p.Status)) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// ProjectsWorkedOn narrows projects to those owning at least one of tasks
// assigned to assigneeID. An empty or "all" assignee returns projects as-is.
func (e *Engine) ProjectsWorkedOn(projects []domain.Project, tasks []domain.Task, assigneeID string) []domain.Project {
	if !active(assigneeID) {
		return projects
	}
	owning := make(map[string]struct{})
	for _, t := range tasks {
		if _, ok := e.taskAssignees[t.ID][assigneeID]; ok {
			owning[t.ProjectID] = struct{}{}
		}
	}
	out := make([]domain.Project, 0, len(owning))
	for _, p := range projects {
		if _, ok := owning[p.ID]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Employees returns the employees matching spec. The date range always
// applies to created_at; AssigneeID selects a single employee. Project and
// priority do not apply.
func (e *Engine) Employees(employees []domain.Employee, spec Spec) []domain.Employee {
	out := make([]domain.Employee, 0, len(employees))
	if spec.emptyRange() {
		return out
	}
	for _, emp := range employees {
		if !spec.matchDate(&emp.CreatedAt) {
			continue
		}
		if active(spec.TeamID) && emp.TeamID != spec.TeamID {
			continue
		}
		if active(spec.AssigneeID) && emp.ID != spec.AssigneeID {
			continue
		}
		if !spec.matchStatus(string(emp.Status)) {
			continue
		}
		out = append(out, emp)
	}
	return out
}

// Activity returns the activity log entries matching spec. The date range
// applies to created_at, AssigneeID to the acting user and TeamID to the
// entry's project. Statuses and priority do not apply.
func (e *Engine) Activity(entries []domain.ActivityLogEntry, spec Spec) []domain.ActivityLogEntry {
	out := make([]domain.ActivityLogEntry, 0, len(entries))
	if spec.emptyRange() {
		return out
	}
	for _, a := range entries {
		if !spec.matchDate(&a.CreatedAt) {
			continue
		}
		if active(spec.ProjectID) && a.ProjectID != spec.ProjectID {
			continue
		}
		if active(spec.TeamID) && (a.ProjectID == "" || e.projectTeam[a.ProjectID] != spec.TeamID) {
			continue
		}
		if active(spec.AssigneeID) && a.UserID != spec.AssigneeID {
			continue
		}
		out = append(out, a)
	}
	return out
}
