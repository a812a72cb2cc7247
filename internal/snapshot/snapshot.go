// Package snapshot reads dashboard exports into a domain.Snapshot. Exports
// come from a Postgres dump or a browser download, so ids may be numbers,
// priorities may be names and dates may use several layouts. Malformed
// optional fields are logged and treated as absent.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/highbeam/pulseboard/internal/domain"
	"github.com/highbeam/pulseboard/internal/logging"
)

// ErrNoSnapshot is returned by Discover when the directory has no
// snapshot files.
var ErrNoSnapshot = errors.New("no snapshot file found")

type rawProject struct {
	ID        flexString `json:"id"`
	Name      string     `json:"name"`
	Status    string     `json:"status"`
	TeamID    flexString `json:"team_id"`
	ManagerID flexString `json:"manager_id"`
	StartDate flexTime   `json:"start_date"`
	DueDate   flexTime   `json:"due_date"`
	CreatedAt flexTime   `json:"created_at"`
}

type rawTask struct {
	ID        flexString   `json:"id"`
	Title     string       `json:"title"`
	Status    string       `json:"status"`
	Priority  flexPriority `json:"priority"`
	ProjectID flexString   `json:"project_id"`
	StartDate flexTime     `json:"start_date"`
	DueDate   flexTime     `json:"due_date"`
	CreatedAt flexTime     `json:"created_at"`
	UpdatedAt flexTime     `json:"updated_at"`
}

type rawAssignment struct {
	TaskID flexString `json:"task_id"`
	UserID flexString `json:"user_id"`
}

type rawEmployee struct {
	ID        flexString `json:"id"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	Email     string     `json:"email"`
	Role      string     `json:"role"`
	Status    string     `json:"status"`
	TeamID    flexString `json:"team_id"`
	CreatedAt flexTime   `json:"created_at"`
}

type rawTeam struct {
	ID   flexString `json:"id"`
	Name string     `json:"name"`
}

type rawActivity struct {
	ID              flexString `json:"id"`
	UserID          flexString `json:"user_id"`
	ActivityType    string     `json:"activity_type"`
	ActivityDetails string     `json:"activity_details"`
	ProjectID       flexString `json:"project_id"`
	TaskID          flexString `json:"task_id"`
	CreatedAt       flexTime   `json:"created_at"`
}

// rawSnapshot accepts both the dashboard's table names and the shorter
// aliases.
type rawSnapshot struct {
	Projects        []rawProject    `json:"projects"`
	Tasks           []rawTask       `json:"tasks"`
	TaskAssignments []rawAssignment `json:"task_assignments"`
	Assignments     []rawAssignment `json:"assignments"`
	Profiles        []rawEmployee   `json:"profiles"`
	Employees       []rawEmployee   `json:"employees"`
	Teams           []rawTeam       `json:"teams"`
	ActivityLogs    []rawActivity   `json:"activity_logs"`
	Activity        []rawActivity   `json:"activity"`
}

// Parser converts raw exports into domain records.
type Parser struct {
	log logrus.FieldLogger
}

// NewParser creates a Parser that reports data-quality problems to log.
// A nil log discards them.
func NewParser(log logrus.FieldLogger) *Parser {
	if log == nil {
		log = logging.Discard()
	}
	return &Parser{log: log}
}

// ParseFile reads and parses the snapshot file at path.
func (p *Parser) ParseFile(path string) (domain.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	snap, err := p.Parse(f)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("parse snapshot %s: %w", path, err)
	}
	return snap, nil
}

// Parse decodes a JSON snapshot document from r.
func (p *Parser) Parse(r io.Reader) (domain.Snapshot, error) {
	var raw rawSnapshot
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return domain.Snapshot{}, fmt.Errorf("decode json: %w", err)
	}

	snap := domain.Snapshot{
		Projects:    make([]domain.Project, 0, len(raw.Projects)),
		Tasks:       make([]domain.Task, 0, len(raw.Tasks)),
		Assignments: make([]domain.Assignment, 0, len(raw.TaskAssignments)+len(raw.Assignments)),
		Employees:   make([]domain.Employee, 0, len(raw.Profiles)+len(raw.Employees)),
		Teams:       make([]domain.Team, 0, len(raw.Teams)),
		Activity:    make([]domain.ActivityLogEntry, 0, len(raw.ActivityLogs)+len(raw.Activity)),
	}

	for _, rp := range raw.Projects {
		id := string(rp.ID)
		snap.Projects = append(snap.Projects, domain.Project{
			ID:        id,
			Name:      rp.Name,
			Status:    domain.ProjectStatus(rp.Status),
			TeamID:    string(rp.TeamID),
			ManagerID: string(rp.ManagerID),
			StartDate: p.optional("project", id, "start_date", rp.StartDate),
			DueDate:   p.optional("project", id, "due_date", rp.DueDate),
			CreatedAt: p.required("project", id, "created_at", rp.CreatedAt),
		})
	}

	for _, rt := range raw.Tasks {
		id := string(rt.ID)
		if rt.Priority.Raw != "" && rt.Priority.Level == 0 {
			p.log.WithFields(logrus.Fields{"entity": "task", "id": id, "field": "priority", "value": rt.Priority.Raw}).
				Warn("unrecognized priority")
		}
		created := p.required("task", id, "created_at", rt.CreatedAt)
		updated := created
		if rt.UpdatedAt.Set() {
			updated = p.required("task", id, "updated_at", rt.UpdatedAt)
		}
		snap.Tasks = append(snap.Tasks, domain.Task{
			ID:        id,
			Title:     rt.Title,
			Status:    domain.TaskStatus(rt.Status),
			Priority:  domain.Priority(rt.Priority.Level),
			ProjectID: string(rt.ProjectID),
			StartDate: p.optional("task", id, "start_date", rt.StartDate),
			DueDate:   p.optional("task", id, "due_date", rt.DueDate),
			CreatedAt: created,
			UpdatedAt: updated,
		})
	}

	for _, ra := range append(raw.TaskAssignments, raw.Assignments...) {
		snap.Assignments = append(snap.Assignments, domain.Assignment{
			TaskID: string(ra.TaskID),
			UserID: string(ra.UserID),
		})
	}

	for _, re := range append(raw.Profiles, raw.Employees...) {
		id := string(re.ID)
		snap.Employees = append(snap.Employees, domain.Employee{
			ID:        id,
			FirstName: re.FirstName,
			LastName:  re.LastName,
			Email:     re.Email,
			Role:      domain.Role(re.Role),
			Status:    domain.EmployeeStatus(re.Status),
			TeamID:    string(re.TeamID),
			CreatedAt: p.required("employee", id, "created_at", re.CreatedAt),
		})
	}

	for _, rt := range raw.Teams {
		snap.Teams = append(snap.Teams, domain.Team{ID: string(rt.ID), Name: rt.Name})
	}

	for _, ra := range append(raw.ActivityLogs, raw.Activity...) {
		id := string(ra.ID)
		snap.Activity = append(snap.Activity, domain.ActivityLogEntry{
			ID:              id,
			UserID:          string(ra.UserID),
			ActivityType:    ra.ActivityType,
			ActivityDetails: ra.ActivityDetails,
			ProjectID:       string(ra.ProjectID),
			TaskID:          string(ra.TaskID),
			CreatedAt:       p.required("activity", id, "created_at", ra.CreatedAt),
		})
	}

	return snap, nil
}

// optional returns nil for absent or malformed dates, logging the latter.
func (p *Parser) optional(entity, id, field string, ft flexTime) *time.Time {
	if ft.Malformed() {
		p.malformed(entity, id, field, ft.Raw)
	}
	return ft.Ptr()
}

// required returns the zero time for absent or malformed timestamps and logs
// either case.
func (p *Parser) required(entity, id, field string, ft flexTime) time.Time {
	if ft.Time.IsZero() {
		p.malformed(entity, id, field, ft.Raw)
	}
	return ft.Time
}

func (p *Parser) malformed(entity, id, field, raw string) {
	p.log.WithFields(logrus.Fields{
		"entity": entity,
		"id":     id,
		"field":  field,
		"value":  raw,
	}).Warn("missing or malformed date")
}

// IsSnapshotFile reports whether name looks like a snapshot export.
// Hidden files and editor temporaries are skipped.
func IsSnapshotFile(name string) bool {
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") {
		return false
	}
	return strings.EqualFold(filepath.Ext(base), ".json")
}

// Discover returns the most recently modified snapshot file in dir.
// Ties on modification time go to the lexically greatest name.
func Discover(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read snapshot dir: %w", err)
	}

	type candidate struct {
		path string
		mod  time.Time
	}
	var found []candidate
	for _, e := range entries {
		if e.IsDir() || !IsSnapshotFile(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		found = append(found, candidate{path: filepath.Join(dir, e.Name()), mod: info.ModTime()})
	}
	if len(found) == 0 {
		return "", fmt.Errorf("%s: %w", dir, ErrNoSnapshot)
	}

	sort.Slice(found, func(i, j int) bool {
		if !found[i].mod.Equal(found[j].mod) {
			return found[i].mod.After(found[j].mod)
		}
		return found[i].path > found[j].path
	})
	return found[0].path, nil
}
