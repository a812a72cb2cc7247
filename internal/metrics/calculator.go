// Package metrics computes the derived numbers behind every dashboard
// chart: categorical distributions, completion rates, rankings and project
// risk. All functions are pure and never modify their inputs.
package metrics

import (
	"time"

	"github.com/highbeam/pulseboard/internal/domain"
)

// ProjectStats holds the computed metrics for a single project.
type ProjectStats struct {
	ProjectID      string       `json:"project_id"`
	Name           string       `json:"name"`
	Status         string       `json:"status"`
	TeamID         string       `json:"team_id,omitempty"`
	TotalTasks     int          `json:"total_tasks"`
	CompletedTasks int          `json:"completed_tasks"`
	OverdueTasks   int          `json:"overdue_tasks"`
	CompletionRate float64      `json:"completion_rate"`
	Overdue        bool         `json:"overdue"`
	AtRisk         bool         `json:"at_risk"`
	RiskReasons    []RiskReason `json:"risk_reasons,omitempty"`
}

// EmployeeStats holds the computed metrics for one assignee.
type EmployeeStats struct {
	EmployeeID     string  `json:"employee_id"`
	Name           string  `json:"name"`
	Role           string  `json:"role"`
	AssignedTasks  int     `json:"assigned_tasks"`
	CompletedTasks int     `json:"completed_tasks"`
	OverdueTasks   int     `json:"overdue_tasks"`
	CompletionRate float64 `json:"completion_rate"`
}

// TeamStats holds per-team aggregate metrics.
type TeamStats struct {
	TeamID         string  `json:"team_id"`
	Name           string  `json:"name"`
	Projects       int     `json:"projects"`
	TotalTasks     int     `json:"total_tasks"`
	CompletedTasks int     `json:"completed_tasks"`
	CompletionRate float64 `json:"completion_rate"`
}

// OverdueTask is a row of the "most overdue" table.
type OverdueTask struct {
	TaskID      string          `json:"task_id"`
	Title       string          `json:"title"`
	ProjectID   string          `json:"project_id"`
	ProjectName string          `json:"project_name"`
	Priority    domain.Priority `json:"priority"`
	DueDate     time.Time       `json:"due_date"`
	DaysOverdue int             `json:"days_overdue"`
}

// taskCounts tallies total, completed and overdue tasks.
type taskCounts struct {
	total, completed, overdue int
}

func (c *taskCounts) add(t domain.Task, now time.Time) {
	c.total++
	if t.Status == domain.TaskCompleted {
		c.completed++
	}
	if t.IsOverdue(now) {
		c.overdue++
	}
}

// Calculator computes per-entity metrics relative to a fixed point in time.
// Passing now explicitly keeps results reproducible.
type Calculator struct {
	now time.Time
}

// NewCalculator creates a Calculator that evaluates overdue rules at now.
func NewCalculator(now time.Time) *Calculator {
	return &Calculator{now: now}
}

// Now returns the calculator's reference time.
func (c *Calculator) Now() time.Time {
	return c.now
}

// ProjectStats computes task counts, completion rate and risk for each
// project, in the order the projects were given. Tasks referencing unknown
// projects are ignored.
func (c *Calculator) ProjectStats(projects []domain.Project, tasks []domain.Task) []ProjectStats {
	byProject := make(map[string]*taskCounts, len(projects))
	for _, p := range projects {
		byProject[p.ID] = &taskCounts{}
	}
	for _, t := range tasks {
		if counts, ok := byProject[t.ProjectID]; ok {
			counts.add(t, c.now)
		}
	}

	out := make([]ProjectStats, 0, len(projects))
	for _, p := range projects {
		counts := byProject[p.ID]
		rate := Rate(counts.completed, counts.total)
		overdue := p.IsOverdue(c.now)
		reasons := RiskReasons(overdue, rate, p.Status)
		out = append(out, ProjectStats{
			ProjectID:      p.ID,
			Name:           p.Name,
			Status:         string(p.Status),
			TeamID:         p.TeamID,
			TotalTasks:     counts.total,
			CompletedTasks: counts.completed,
			OverdueTasks:   counts.overdue,
			CompletionRate: rate,
			Overdue:        overdue,
			AtRisk:         len(reasons) > 0,
			RiskReasons:    reasons,
		})
	}
	return out
}

// EmployeeStats computes assignment counts and completion rate for each
// employee, in the order the employees were given. A task with several
// assignees counts once for each of them. Employees with no assignments get
// a zero row (rate 0).
func (c *Calculator) EmployeeStats(employees []domain.Employee, tasks []domain.Task, assignments []domain.Assignment) []EmployeeStats {
	taskByID := make(map[string]domain.Task, len(tasks))
	for _, t := range tasks {
		taskByID[t.ID] = t
	}

	byUser := make(map[string]*taskCounts, len(employees))
	for _, e := range employees {
		byUser[e.ID] = &taskCounts{}
	}

	seen := make(map[domain.Assignment]struct{}, len(assignments))
	for _, a := range assignments {
		if _, dup := seen[a]; dup {
			continue
		}
		seen[a] = struct{}{}

		t, ok := taskByID[a.TaskID]
		if !ok {
			continue
		}
		if counts, ok := byUser[a.UserID]; ok {
			counts.add(t, c.now)
		}
	}

	out := make([]EmployeeStats, 0, len(employees))
	for _, e := range employees {
		counts := byUser[e.ID]
		out = append(out, EmployeeStats{
			EmployeeID:     e.ID,
			Name:           e.FullName(),
			Role:           string(e.Role),
			AssignedTasks:  counts.total,
			CompletedTasks: counts.completed,
			OverdueTasks:   counts.overdue,
			CompletionRate: Rate(counts.completed, counts.total),
		})
	}
	return out
}

// TeamStats aggregates projects and their tasks per team, in the order
// teams were given, followed by an "unassigned" row if any project has no
// known team.
func (c *Calculator) TeamStats(teams []domain.Team, projects []domain.Project, tasks []domain.Task) []TeamStats {
	order := make([]string, 0, len(teams)+1)
	byTeam := make(map[string]*TeamStats, len(teams)+1)
	for _, t := range teams {
		if _, dup := byTeam[t.ID]; dup {
			continue
		}
		order = append(order, t.ID)
		byTeam[t.ID] = &TeamStats{TeamID: t.ID, Name: t.Name}
	}

	projectTeam := make(map[string]string, len(projects))
	for _, p := range projects {
		team := p.TeamID
		if _, ok := byTeam[team]; !ok {
			team = ""
			if _, ok := byTeam[""]; !ok {
				order = append(order, "")
				byTeam[""] = &TeamStats{Name: "unassigned"}
			}
		}
		projectTeam[p.ID] = team
		byTeam[team].Projects++
	}

	for _, t := range tasks {
		team, ok := projectTeam[t.ProjectID]
		if !ok {
			continue
		}
		ts := byTeam[team]
		ts.TotalTasks++
		if t.Status == domain.TaskCompleted {
			ts.CompletedTasks++
		}
	}

	out := make([]TeamStats, 0, len(order))
	for _, id := range order {
		ts := byTeam[id]
		ts.CompletionRate = Rate(ts.CompletedTasks, ts.TotalTasks)
		out = append(out, *ts)
	}
	return out
}

// OverdueTasks lists every overdue task, in input order.
func (c *Calculator) OverdueTasks(tasks []domain.Task, idx domain.Index) []OverdueTask {
	out := make([]OverdueTask, 0)
	for _, t := range tasks {
		if !t.IsOverdue(c.now) {
			continue
		}
		out = append(out, OverdueTask{
			TaskID:      t.ID,
			Title:       t.Title,
			ProjectID:   t.ProjectID,
			ProjectName: idx.Projects[t.ProjectID].Name,
			Priority:    t.Priority,
			DueDate:     *t.DueDate,
			DaysOverdue: t.DaysOverdue(c.now),
		})
	}
	return out
}
