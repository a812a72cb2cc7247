// Package rules holds the dashboard's form-validation rules as pure
// predicates so they can be checked without a UI.
package rules

import (
	"fmt"
	"time"

	"github.com/highbeam/pulseboard/internal/domain"
)

// MaxActiveTasks is the most open tasks one assignee may hold.
const MaxActiveTasks = 3

// Result is the outcome of one rule check. Reason is empty when Valid.
type Result struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

func ok() Result { return Result{Valid: true} }

func fail(format string, args ...any) Result {
	return Result{Reason: fmt.Sprintf(format, args...)}
}

// ActiveTasks counts the non-terminal tasks assigned to userID. Each task is
// counted once even if the assignment is repeated.
func ActiveTasks(userID string, tasks []domain.Task, assignments []domain.Assignment) int {
	open := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		open[t.ID] = !t.Status.IsTerminal()
	}

	seen := make(map[string]struct{})
	n := 0
	for _, a := range assignments {
		if a.UserID != userID {
			continue
		}
		if _, dup := seen[a.TaskID]; dup {
			continue
		}
		seen[a.TaskID] = struct{}{}
		if open[a.TaskID] {
			n++
		}
	}
	return n
}

// ActiveTaskLimit reports whether userID can take one more task.
func ActiveTaskLimit(userID string, tasks []domain.Task, assignments []domain.Assignment) Result {
	n := ActiveTasks(userID, tasks, assignments)
	if n >= MaxActiveTasks {
		return fail("assignee %s already has %d active tasks (max %d)", userID, n, MaxActiveTasks)
	}
	return ok()
}

// TaskWithinProject reports whether the task's start and due dates fall
// inside the project's date range. Dates missing on either side are not
// checked. Comparison is by calendar day.
func TaskWithinProject(task domain.Task, project domain.Project) Result {
	if project.StartDate != nil {
		start := domain.Day(*project.StartDate)
		if task.StartDate != nil && domain.Day(*task.StartDate).Before(start) {
			return fail("task start %s is before project start %s", ymd(*task.StartDate), ymd(start))
		}
		if task.DueDate != nil && domain.Day(*task.DueDate).Before(start) {
			return fail("task due %s is before project start %s", ymd(*task.DueDate), ymd(start))
		}
	}
	if project.DueDate != nil {
		due := domain.Day(*project.DueDate)
		if task.StartDate != nil && domain.Day(*task.StartDate).After(due) {
			return fail("task start %s is after project due %s", ymd(*task.StartDate), ymd(due))
		}
		if task.DueDate != nil && domain.Day(*task.DueDate).After(due) {
			return fail("task due %s is after project due %s", ymd(*task.DueDate), ymd(due))
		}
	}
	if task.StartDate != nil && task.DueDate != nil && domain.Day(*task.StartDate).After(domain.Day(*task.DueDate)) {
		return fail("task start %s is after task due %s", ymd(*task.StartDate), ymd(*task.DueDate))
	}
	return ok()
}

// ProjectDates reports whether the project starts on or before its due date.
func ProjectDates(project domain.Project) Result {
	if project.StartDate == nil || project.DueDate == nil {
		return ok()
	}
	if domain.Day(*project.StartDate).After(domain.Day(*project.DueDate)) {
		return fail("project start %s is after due %s", ymd(*project.StartDate), ymd(*project.DueDate))
	}
	return ok()
}

func ymd(t time.Time) string {
	return t.Format("2006-01-02")
}

// Violation is one failed rule found by Audit.
type Violation struct {
	Rule     string `json:"rule"`
	EntityID string `json:"entity_id"`
	Reason   string `json:"reason"`
}

// Audit checks every rule against a snapshot and returns the violations in
// a stable order: project dates, then task ranges, then assignee limits.
// Over-limit assignees are reported when they hold more than the maximum.
func Audit(s domain.Snapshot) []Violation {
	out := make([]Violation, 0)

	projects := make(map[string]domain.Project, len(s.Projects))
	for _, p := range s.Projects {
		projects[p.ID] = p
		if r := ProjectDates(p); !r.Valid {
			out = append(out, Violation{Rule: "project_dates", EntityID: p.ID, Reason: r.Reason})
		}
	}

	for _, t := range s.Tasks {
		p, found := projects[t.ProjectID]
		if !found {
			continue
		}
		if r := TaskWithinProject(t, p); !r.Valid {
			out = append(out, Violation{Rule: "task_within_project", EntityID: t.ID, Reason: r.Reason})
		}
	}

	checked := make(map[string]struct{})
	for _, a := range s.Assignments {
		if _, dup := checked[a.UserID]; dup {
			continue
		}
		checked[a.UserID] = struct{}{}
		if n := ActiveTasks(a.UserID, s.Tasks, s.Assignments); n > MaxActiveTasks {
			out = append(out, Violation{
				Rule:     "active_task_limit",
				EntityID: a.UserID,
				Reason:   fmt.Sprintf("assignee %s has %d active tasks (max %d)", a.UserID, n, MaxActiveTasks),
			})
		}
	}

	return out
}
