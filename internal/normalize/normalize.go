// Package normalize maps the inconsistent status and role spellings found
// across tables ("Completed", "cancelled", "In Progress") onto one canonical
// lowercase_underscore value per entity type before aggregation.
package normalize

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/highbeam/pulseboard/internal/domain"
)

// aliases maps canonicalised spellings that differ from the enum value.
var aliases = map[string]string{
	"canceled": "cancelled",
	"done":     "completed",
	"complete": "completed",
	"planning": "planned",
	"to_do":    "todo",
	"paused":   "on_hold",
}

// Canonical lower-cases s, trims it, turns spaces and hyphens into
// underscores and applies the alias table. It does not check the result
// against any enum.
func Canonical(s string) string {
	c := strings.ToLower(strings.TrimSpace(s))
	c = strings.NewReplacer(" ", "_", "-", "_").Replace(c)
	if a, ok := aliases[c]; ok {
		return a
	}
	return c
}

// Normalizer rewrites record enums to canonical values. Values that do not
// map to a known enum are kept as-is and reported through the logger.
type Normalizer struct {
	log logrus.FieldLogger
}

// New creates a Normalizer that logs unknown values to log.
func New(log logrus.FieldLogger) *Normalizer {
	return &Normalizer{log: log}
}

// Snapshot returns a copy of s with every collection normalized.
// Teams, assignments and activity entries carry no enums and are copied.
func (n *Normalizer) Snapshot(s domain.Snapshot) domain.Snapshot {
	return domain.Snapshot{
		Projects:    n.Projects(s.Projects),
		Tasks:       n.Tasks(s.Tasks),
		Assignments: append([]domain.Assignment(nil), s.Assignments...),
		Employees:   n.Employees(s.Employees),
		Teams:       append([]domain.Team(nil), s.Teams...),
		Activity:    append([]domain.ActivityLogEntry(nil), s.Activity...),
	}
}

// Projects returns copies of projects with canonical statuses.
func (n *Normalizer) Projects(projects []domain.Project) []domain.Project {
	out := make([]domain.Project, len(projects))
	for i, p := range projects {
		if s := domain.ProjectStatus(Canonical(string(p.Status))); s.IsValid() {
			p.Status = s
		} else {
			n.unknown("project", p.ID, "status", string(p.Status))
		}
		out[i] = p
	}
	return out
}

// Tasks returns copies of tasks with canonical statuses.
func (n *Normalizer) Tasks(tasks []domain.Task) []domain.Task {
	out := make([]domain.Task, len(tasks))
	for i, t := range tasks {
		if s := domain.TaskStatus(Canonical(string(t.Status))); s.IsValid() {
			t.Status = s
		} else {
			n.unknown("task", t.ID, "status", string(t.Status))
		}
		if !t.Priority.IsValid() {
			n.unknown("task", t.ID, "priority", t.Priority.Label())
		}
		out[i] = t
	}
	return out
}

// Employees returns copies of employees with canonical roles and statuses.
func (n *Normalizer) Employees(employees []domain.Employee) []domain.Employee {
	out := make([]domain.Employee, len(employees))
	for i, e := range employees {
		if r := domain.Role(Canonical(string(e.Role))); r.IsValid() {
			e.Role = r
		} else {
			n.unknown("employee", e.ID, "role", string(e.Role))
		}
		if s := domain.EmployeeStatus(Canonical(string(e.Status))); s.IsValid() {
			e.Status = s
		} else {
			n.unknown("employee", e.ID, "status", string(e.Status))
		}
		out[i] = e
	}
	return out
}

func (n *Normalizer) unknown(entity, id, field, value string) {
	if n.log == nil {
		return
	}
	n.log.WithFields(logrus.Fields{
		"entity": entity,
		"id":     id,
		"field":  field,
		"value":  value,
	}).Warn("unrecognised enum value passed through")
}
