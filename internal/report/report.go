// Package report assembles the dashboard report: one immutable value that
// the terminal output, the daemon API and the PDF exporter all render, so
// the numbers on screen and on paper never disagree. It reads the SQLite
// store directly (no daemon required).
package report

import (
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/highbeam/pulseboard/internal/domain"
	"github.com/highbeam/pulseboard/internal/filter"
	"github.com/highbeam/pulseboard/internal/logging"
	"github.com/highbeam/pulseboard/internal/metrics"
	"github.com/highbeam/pulseboard/internal/normalize"
	"github.com/highbeam/pulseboard/internal/store"
	"github.com/highbeam/pulseboard/internal/timeseries"
)

// Report is the derived report. It is rebuilt from scratch for every
// filter change or data refresh and never modified afterwards.
type Report struct {
	GeneratedAt time.Time          `json:"generated_at"`
	Window      filter.Window      `json:"window"`
	Range       *filter.DateRange  `json:"range,omitempty"`
	Filters     Filters            `json:"filters"`
	Totals      Totals             `json:"totals"`
	Rankings    Rankings           `json:"rankings"`
	Series      []timeseries.Point `json:"time_series"`
	Completions []timeseries.Point `json:"completion_series"`

	StatusDistribution        []metrics.Slice `json:"status_distribution"`
	ProjectStatusDistribution []metrics.Slice `json:"project_status_distribution"`
	PriorityDistribution      []metrics.Slice `json:"priority_distribution"`
	RoleDistribution          []metrics.Slice `json:"role_distribution"`
	TeamDistribution          []metrics.Slice `json:"team_distribution"`
	ActivityDistribution      []metrics.Slice `json:"activity_distribution"`

	RecentActivity []ActivityRow `json:"recent_activity"`
}

// Filters records the non-date constraints a report was built with.
type Filters struct {
	DateField  string   `json:"date_field"`
	TeamID     string   `json:"team_id,omitempty"`
	ProjectID  string   `json:"project_id,omitempty"`
	AssigneeID string   `json:"assignee_id,omitempty"`
	Priority   int      `json:"priority,omitempty"`
	Statuses   []string `json:"statuses,omitempty"`
}

// Totals holds the headline counts.
type Totals struct {
	Projects          int     `json:"projects"`
	ActiveProjects    int     `json:"active_projects"`
	CompletedProjects int     `json:"completed_projects"`
	Tasks             int     `json:"tasks"`
	CompletedTasks    int     `json:"completed_tasks"`
	OverdueTasks      int     `json:"overdue_tasks"`
	CompletionRate    float64 `json:"completion_rate"`
	Employees         int     `json:"employees"`
	ActiveEmployees   int     `json:"active_employees"`
	ActivityEntries   int     `json:"activity_entries"`
}

// Rankings holds the ordered and capped lists.
type Rankings struct {
	TopPerformers []metrics.EmployeeStats `json:"top_performers"`
	MostOverdue   []metrics.OverdueTask   `json:"most_overdue"`
	ProjectHealth []metrics.ProjectStats  `json:"project_health"`
	// AtRisk is capped in input order; it is not a "worst N" list.
	AtRisk []metrics.ProjectStats `json:"at_risk"`
	Teams  []metrics.TeamStats    `json:"teams"`
}

// ActivityRow is one line of the recent-activity table.
type ActivityRow struct {
	At      time.Time `json:"at"`
	User    string    `json:"user"`
	Type    string    `json:"type"`
	Details string    `json:"details"`
}

// Parts are the aggregator outputs Assemble combines. Filtered holds the
// records that survived filtering; totals are derived from it.
type Parts struct {
	GeneratedAt time.Time
	Window      filter.Window
	Range       *filter.DateRange
	Filters     Filters
	Filtered    domain.Snapshot

	StatusDistribution        []metrics.Slice
	ProjectStatusDistribution []metrics.Slice
	PriorityDistribution      []metrics.Slice
	RoleDistribution          []metrics.Slice
	TeamDistribution          []metrics.Slice
	ActivityDistribution      []metrics.Slice

	Rankings       Rankings
	Series         []timeseries.Point
	Completions    []timeseries.Point
	RecentActivity []ActivityRow
}

// Assemble composes parts into a Report. It copies every slice, nested risk
// reasons included, so later changes to parts do not leak into the report.
func Assemble(p Parts) *Report {
	r := &Report{
		GeneratedAt: p.GeneratedAt,
		Window:      p.Window,
		Filters:     p.Filters,
		Totals:      totals(p.Filtered, p.GeneratedAt),

		StatusDistribution:        clone(p.StatusDistribution),
		ProjectStatusDistribution: clone(p.ProjectStatusDistribution),
		PriorityDistribution:      clone(p.PriorityDistribution),
		RoleDistribution:          clone(p.RoleDistribution),
		TeamDistribution:          clone(p.TeamDistribution),
		ActivityDistribution:      clone(p.ActivityDistribution),

		Rankings: Rankings{
			TopPerformers: clone(p.Rankings.TopPerformers),
			MostOverdue:   clone(p.Rankings.MostOverdue),
			ProjectHealth: cloneProjects(p.Rankings.ProjectHealth),
			AtRisk:        cloneProjects(p.Rankings.AtRisk),
			Teams:         clone(p.Rankings.Teams),
		},
		Series:         clone(p.Series),
		Completions:    clone(p.Completions),
		RecentActivity: clone(p.RecentActivity),
	}
	r.Filters.Statuses = append([]string(nil), p.Filters.Statuses...)
	if p.Range != nil {
		rng := *p.Range
		r.Range = &rng
	}
	return r
}

func clone[T any](s []T) []T {
	out := make([]T, len(s))
	copy(out, s)
	return out
}

func cloneProjects(s []metrics.ProjectStats) []metrics.ProjectStats {
	out := clone(s)
	for i := range out {
		out[i].RiskReasons = slices.Clone(out[i].RiskReasons)
	}
	return out
}

func totals(s domain.Snapshot, now time.Time) Totals {
	var t Totals

	t.Projects = len(s.Projects)
	for _, p := range s.Projects {
		switch {
		case p.Status == domain.ProjectCompleted:
			t.CompletedProjects++
		case !p.Status.IsTerminal():
			t.ActiveProjects++
		}
	}

	t.Tasks = len(s.Tasks)
	for _, task := range s.Tasks {
		if task.Status == domain.TaskCompleted {
			t.CompletedTasks++
		}
		if task.IsOverdue(now) {
			t.OverdueTasks++
		}
	}
	t.CompletionRate = metrics.Rate(t.CompletedTasks, t.Tasks)

	t.Employees = len(s.Employees)
	for _, e := range s.Employees {
		if e.Status == domain.EmployeeActive {
			t.ActiveEmployees++
		}
	}

	t.ActivityEntries = len(s.Activity)
	return t
}

// Builder runs the pipeline: normalize, filter, aggregate, assemble.
type Builder struct {
	log  logrus.FieldLogger
	norm *normalize.Normalizer
}

// NewBuilder creates a Builder. Data-quality warnings go to log; nil
// discards them.
func NewBuilder(log logrus.FieldLogger) *Builder {
	if log == nil {
		log = logging.Discard()
	}
	return &Builder{log: log, norm: normalize.New(log)}
}

// Build produces the report for snap. The same snapshot and options always
// produce a deep-equal report; opts.Now is the only clock consulted.
func (b *Builder) Build(snap domain.Snapshot, opts Options) (*Report, error) {
	opts = opts.withDefaults()
	taskSpec, err := opts.Spec()
	if err != nil {
		return nil, err
	}

	all := b.norm.Snapshot(snap)
	idx := domain.NewIndex(all)
	engine := filter.NewEngine(all.Projects, all.Assignments)

	// The window narrows event-like records (tasks, activity). Projects and
	// people are scoped by the other fields only.
	entitySpec := taskSpec
	entitySpec.DateRange = nil
	entitySpec.Statuses = nil
	activitySpec := taskSpec
	activitySpec.DateField = filter.CreatedAt
	activitySpec.Statuses = nil

	// An assignee scopes projects to the ones they hold tasks in, not the
	// ones they manage.
	projectSpec := entitySpec
	projectSpec.AssigneeID = ""
	projects := engine.ProjectsWorkedOn(
		engine.Projects(all.Projects, projectSpec), all.Tasks, taskSpec.AssigneeID)

	filtered := domain.Snapshot{
		Projects:    projects,
		Tasks:       engine.Tasks(all.Tasks, taskSpec),
		Assignments: all.Assignments,
		Employees:   engine.Employees(all.Employees, entitySpec),
		Teams:       teamsFor(all.Teams, opts.TeamID),
		Activity:    engine.Activity(all.Activity, activitySpec),
	}

	calc := metrics.NewCalculator(opts.Now)
	projectStats := calc.ProjectStats(filtered.Projects, filtered.Tasks)
	employeeStats := calc.EmployeeStats(filtered.Employees, filtered.Tasks, filtered.Assignments)
	teamStats := calc.TeamStats(filtered.Teams, filtered.Projects, filtered.Tasks)
	overdue := calc.OverdueTasks(filtered.Tasks, idx)

	series := timeseries.LastDays(opts.Now, opts.SeriesDays)
	if opts.SeriesInterval != nil {
		series = *opts.SeriesInterval
	}

	parts := Parts{
		GeneratedAt: opts.Now,
		Window:      opts.Window,
		Range:       taskSpec.DateRange,
		Filters: Filters{
			DateField:  taskSpec.DateField.String(),
			TeamID:     taskSpec.TeamID,
			ProjectID:  taskSpec.ProjectID,
			AssigneeID: taskSpec.AssigneeID,
			Priority:   int(taskSpec.Priority),
			Statuses:   taskSpec.Statuses,
		},
		Filtered: filtered,

		StatusDistribution: metrics.Distribution(filtered.Tasks,
			func(t domain.Task) string { return string(t.Status) }, taskStatusKeys()...),
		ProjectStatusDistribution: metrics.Distribution(filtered.Projects,
			func(p domain.Project) string { return string(p.Status) }, projectStatusKeys()...),
		PriorityDistribution: metrics.Distribution(filtered.Tasks,
			func(t domain.Task) string { return t.Priority.Label() }, priorityKeys()...),
		RoleDistribution: metrics.Distribution(filtered.Employees,
			func(e domain.Employee) string { return string(e.Role) }, roleKeys()...),
		TeamDistribution: metrics.Distribution(filtered.Projects,
			func(p domain.Project) string { return idx.TeamName(p.TeamID) }),
		ActivityDistribution: metrics.Distribution(filtered.Activity,
			func(a domain.ActivityLogEntry) string { return a.ActivityType }),

		Rankings: Rankings{
			TopPerformers: metrics.RankBy(employeeStats,
				func(e metrics.EmployeeStats) float64 { return e.CompletionRate },
				metrics.RankOptions[metrics.EmployeeStats]{
					Direction: metrics.Descending,
					Limit:     opts.TopN,
					MinSample: opts.MinSample,
					Sample:    func(e metrics.EmployeeStats) int { return e.AssignedTasks },
				}),
			MostOverdue: metrics.RankBy(overdue,
				func(t metrics.OverdueTask) float64 { return float64(t.DaysOverdue) },
				metrics.RankOptions[metrics.OverdueTask]{Direction: metrics.Descending, Limit: opts.TopN}),
			ProjectHealth: metrics.RankBy(projectStats,
				func(p metrics.ProjectStats) float64 { return p.CompletionRate },
				metrics.RankOptions[metrics.ProjectStats]{Direction: metrics.Descending, Limit: opts.TopN}),
			AtRisk: metrics.AtRisk(projectStats, opts.AtRiskCap),
			Teams: metrics.RankBy(teamStats,
				func(t metrics.TeamStats) float64 { return t.CompletionRate },
				metrics.RankOptions[metrics.TeamStats]{Direction: metrics.Descending}),
		},

		Series: timeseries.BinByDay(filtered.Tasks, series,
			func(t domain.Task) *time.Time { return &t.CreatedAt }),
		Completions: timeseries.BinByDay(filtered.Tasks, series, completedAt),

		RecentActivity: recentActivity(filtered.Activity, idx, opts.RecentActivity),
	}

	r := Assemble(parts)
	b.log.WithFields(logrus.Fields{
		"window":   r.Window,
		"tasks":    r.Totals.Tasks,
		"projects": r.Totals.Projects,
		"at_risk":  len(r.Rankings.AtRisk),
	}).Debug("report built")
	return r, nil
}

// completedAt uses updated_at as the completion time of completed tasks.
func completedAt(t domain.Task) *time.Time {
	if t.Status != domain.TaskCompleted {
		return nil
	}
	return &t.UpdatedAt
}

func teamsFor(teams []domain.Team, teamID string) []domain.Team {
	out := make([]domain.Team, 0, len(teams))
	for _, t := range teams {
		if teamID == "" || teamID == filter.All || t.ID == teamID {
			out = append(out, t)
		}
	}
	return out
}

// recentActivity returns the newest n entries, newest first. Entries with
// equal timestamps keep their input order.
func recentActivity(entries []domain.ActivityLogEntry, idx domain.Index, n int) []ActivityRow {
	sorted := append([]domain.ActivityLogEntry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	if n > 0 && len(sorted) > n {
		sorted = sorted[:n]
	}

	out := make([]ActivityRow, 0, len(sorted))
	for _, a := range sorted {
		out = append(out, ActivityRow{
			At:      a.CreatedAt,
			User:    idx.EmployeeName(a.UserID),
			Type:    a.ActivityType,
			Details: a.ActivityDetails,
		})
	}
	return out
}

func taskStatusKeys() []string {
	var keys []string
	for _, s := range domain.TaskStatuses() {
		keys = append(keys, string(s))
	}
	return keys
}

func projectStatusKeys() []string {
	var keys []string
	for _, s := range domain.ProjectStatuses() {
		keys = append(keys, string(s))
	}
	return keys
}

func priorityKeys() []string {
	var keys []string
	for _, p := range domain.Priorities() {
		keys = append(keys, p.Label())
	}
	return keys
}

func roleKeys() []string {
	var keys []string
	for _, r := range domain.Roles() {
		keys = append(keys, string(r))
	}
	return keys
}

// Generate reads the store at dbPath and builds a report.
// This reads the database directly -- the daemon does not need to be running.
func Generate(dbPath string, opts Options, log logrus.FieldLogger) (*Report, error) {
	s, err := store.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	defer s.Close()

	return GenerateFromStore(s, NewBuilder(log), opts)
}

// GenerateFromStore builds a report from an open store.
func GenerateFromStore(s *store.Store, b *Builder, opts Options) (*Report, error) {
	snap, err := s.LoadSnapshot()
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return b.Build(snap, opts)
}
