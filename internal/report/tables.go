package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/highbeam/pulseboard/internal/metrics"
	"github.com/highbeam/pulseboard/internal/timeseries"
)

// Section is one exported table. Every cell is derived from a Report; no
// metric is recomputed here. When Values is set it holds one number per
// row, drawn as a bar next to the row.
type Section struct {
	Title   string
	Columns []string
	Rows    [][]string
	Values  []float64
}

// Metric is a headline figure shown above the tables.
type Metric struct {
	Label string
	Value string
}

// KeyMetrics returns the headline figures of r.
func KeyMetrics(r *Report) []Metric {
	t := r.Totals
	return []Metric{
		{"Projects", fmt.Sprintf("%d (%d active)", t.Projects, t.ActiveProjects)},
		{"Tasks", fmt.Sprintf("%d (%d done)", t.Tasks, t.CompletedTasks)},
		{"Completion", percent(t.CompletionRate)},
		{"Overdue", strconv.Itoa(t.OverdueTasks)},
		{"Employees", fmt.Sprintf("%d (%d active)", t.Employees, t.ActiveEmployees)},
	}
}

// Tables returns the report's sections in display order.
func Tables(r *Report) []Section {
	return []Section{
		distributionSection("Tasks by Status", "Status", r.StatusDistribution),
		distributionSection("Projects by Status", "Status", r.ProjectStatusDistribution),
		distributionSection("Tasks by Priority", "Priority", r.PriorityDistribution),
		distributionSection("Employees by Role", "Role", r.RoleDistribution),
		distributionSection("Projects by Team", "Team", r.TeamDistribution),
		distributionSection("Activity by Type", "Type", r.ActivityDistribution),
		topPerformersSection(r.Rankings.TopPerformers),
		mostOverdueSection(r.Rankings.MostOverdue),
		projectSection("Project Health", r.Rankings.ProjectHealth),
		atRiskSection(r.Rankings.AtRisk),
		teamSection(r.Rankings.Teams),
		seriesSection("Tasks Created per Day", r.Series),
		seriesSection("Tasks Completed per Day", r.Completions),
		activitySection(r.RecentActivity),
	}
}

func distributionSection(title, column string, slices []metrics.Slice) Section {
	s := Section{Title: title, Columns: []string{column, "Count", "Share"}}
	total := metrics.Total(slices)
	for _, sl := range slices {
		s.Rows = append(s.Rows, []string{Label(sl.Name), strconv.Itoa(sl.Value), percent(metrics.Pct(sl.Value, total))})
		s.Values = append(s.Values, float64(sl.Value))
	}
	return s
}

func topPerformersSection(rows []metrics.EmployeeStats) Section {
	s := Section{Title: "Top Performers", Columns: []string{"Employee", "Role", "Assigned", "Done", "Rate"}}
	for _, e := range rows {
		s.Rows = append(s.Rows, []string{e.Name, Label(e.Role), strconv.Itoa(e.AssignedTasks), strconv.Itoa(e.CompletedTasks), percent(e.CompletionRate)})
		s.Values = append(s.Values, e.CompletionRate)
	}
	return s
}

func mostOverdueSection(rows []metrics.OverdueTask) Section {
	s := Section{Title: "Most Overdue Tasks", Columns: []string{"Task", "Project", "Priority", "Due", "Days"}}
	for _, t := range rows {
		s.Rows = append(s.Rows, []string{t.Title, t.ProjectName, Label(t.Priority.Label()), t.DueDate.Format(time.DateOnly), strconv.Itoa(t.DaysOverdue)})
	}
	return s
}

func projectSection(title string, rows []metrics.ProjectStats) Section {
	s := Section{Title: title, Columns: []string{"Project", "Status", "Tasks", "Done", "Rate"}}
	for _, p := range rows {
		s.Rows = append(s.Rows, []string{p.Name, Label(p.Status), strconv.Itoa(p.TotalTasks), strconv.Itoa(p.CompletedTasks), percent(p.CompletionRate)})
		s.Values = append(s.Values, p.CompletionRate)
	}
	return s
}

func atRiskSection(rows []metrics.ProjectStats) Section {
	s := Section{Title: "At-Risk Projects", Columns: []string{"Project", "Status", "Rate", "Reasons"}}
	for _, p := range rows {
		reasons := make([]string, len(p.RiskReasons))
		for i, rr := range p.RiskReasons {
			reasons[i] = Label(string(rr))
		}
		s.Rows = append(s.Rows, []string{p.Name, Label(p.Status), percent(p.CompletionRate), strings.Join(reasons, ", ")})
	}
	return s
}

func teamSection(rows []metrics.TeamStats) Section {
	s := Section{Title: "Teams", Columns: []string{"Team", "Projects", "Tasks", "Done", "Rate"}}
	for _, t := range rows {
		s.Rows = append(s.Rows, []string{t.Name, strconv.Itoa(t.Projects), strconv.Itoa(t.TotalTasks), strconv.Itoa(t.CompletedTasks), percent(t.CompletionRate)})
		s.Values = append(s.Values, t.CompletionRate)
	}
	return s
}

func seriesSection(title string, points []timeseries.Point) Section {
	s := Section{Title: title, Columns: []string{"Day", "Date", "Count"}}
	for _, p := range points {
		s.Rows = append(s.Rows, []string{p.Label, p.Date.Format(time.DateOnly), strconv.Itoa(p.Count)})
		s.Values = append(s.Values, float64(p.Count))
	}
	return s
}

func activitySection(rows []ActivityRow) Section {
	s := Section{Title: "Recent Activity", Columns: []string{"When", "User", "Type", "Details"}}
	for _, a := range rows {
		s.Rows = append(s.Rows, []string{a.At.Format("2006-01-02 15:04"), a.User, Label(a.Type), a.Details})
	}
	return s
}

// Label turns a stored key such as "in_progress" into "In Progress".
func Label(key string) string {
	if key == "" {
		return "-"
	}
	return cases.Title(language.English).String(strings.ReplaceAll(key, "_", " "))
}

func percent(rate float64) string {
	return fmt.Sprintf("%.1f%%", rate*100)
}
