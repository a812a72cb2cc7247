package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/highbeam/pulseboard/internal/domain"
)

// ImportRun records one successful snapshot import.
type ImportRun struct {
	ID         string    `json:"id"`
	Source     string    `json:"source"`
	ImportedAt time.Time `json:"imported_at"`
	Counts     Counts    `json:"counts"`
}

// ReplaceSnapshot atomically swaps the stored snapshot for snap and records
// an import run. Records keep their input order when loaded back. Rows with
// a repeated id replace the earlier row.
func (s *Store) ReplaceSnapshot(snap domain.Snapshot, source string, at time.Time) (ImportRun, error) {
	run := ImportRun{
		ID:         uuid.NewString(),
		Source:     source,
		ImportedAt: at.UTC(),
	}

	tx, err := s.db.Begin()
	if err != nil {
		return ImportRun{}, fmt.Errorf("begin import: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range snapshotTables {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return ImportRun{}, fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for _, t := range snap.Teams {
		if _, err := tx.Exec(`INSERT OR REPLACE INTO teams (id, name) VALUES (?, ?)`, t.ID, t.Name); err != nil {
			return ImportRun{}, fmt.Errorf("insert team %q: %w", t.ID, err)
		}
	}

	for i, p := range snap.Projects {
		_, err := tx.Exec(
			`INSERT OR REPLACE INTO projects (id, name, status, team_id, manager_id, start_date, due_date, created_at, position)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.Name, string(p.Status), p.TeamID, p.ManagerID,
			nullableTime(p.StartDate), nullableTime(p.DueDate), formatTime(p.CreatedAt), i,
		)
		if err != nil {
			return ImportRun{}, fmt.Errorf("insert project %q: %w", p.ID, err)
		}
	}

	for i, t := range snap.Tasks {
		_, err := tx.Exec(
			`INSERT OR REPLACE INTO tasks (id, title, status, priority, project_id, start_date, due_date, created_at, updated_at, position)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, t.Title, string(t.Status), int(t.Priority), t.ProjectID,
			nullableTime(t.StartDate), nullableTime(t.DueDate),
			formatTime(t.CreatedAt), formatTime(t.UpdatedAt), i,
		)
		if err != nil {
			return ImportRun{}, fmt.Errorf("insert task %q: %w", t.ID, err)
		}
	}

	for _, a := range snap.Assignments {
		if _, err := tx.Exec(`INSERT INTO task_assignments (task_id, user_id) VALUES (?, ?)`, a.TaskID, a.UserID); err != nil {
			return ImportRun{}, fmt.Errorf("insert assignment %s/%s: %w", a.TaskID, a.UserID, err)
		}
	}

	for i, e := range snap.Employees {
		_, err := tx.Exec(
			`INSERT OR REPLACE INTO profiles (id, first_name, last_name, email, role, status, team_id, created_at, position)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.FirstName, e.LastName, e.Email, string(e.Role), string(e.Status),
			e.TeamID, formatTime(e.CreatedAt), i,
		)
		if err != nil {
			return ImportRun{}, fmt.Errorf("insert profile %q: %w", e.ID, err)
		}
	}

	for i, a := range snap.Activity {
		_, err := tx.Exec(
			`INSERT OR REPLACE INTO activity_logs (id, user_id, activity_type, activity_details, project_id, task_id, created_at, position)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			a.ID, a.UserID, a.ActivityType, a.ActivityDetails, a.ProjectID, a.TaskID,
			formatTime(a.CreatedAt), i,
		)
		if err != nil {
			return ImportRun{}, fmt.Errorf("insert activity %q: %w", a.ID, err)
		}
	}

	run.Counts = Counts{
		Projects:    int64(len(snap.Projects)),
		Tasks:       int64(len(snap.Tasks)),
		Assignments: int64(len(snap.Assignments)),
		Employees:   int64(len(snap.Employees)),
		Teams:       int64(len(snap.Teams)),
		Activity:    int64(len(snap.Activity)),
	}
	_, err = tx.Exec(
		`INSERT INTO import_runs (id, source, imported_at, projects, tasks, assignments, employees, teams, activity)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Source, formatTime(run.ImportedAt),
		run.Counts.Projects, run.Counts.Tasks, run.Counts.Assignments,
		run.Counts.Employees, run.Counts.Teams, run.Counts.Activity,
	)
	if err != nil {
		return ImportRun{}, fmt.Errorf("record import run: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return ImportRun{}, fmt.Errorf("commit import: %w", err)
	}
	return run, nil
}

// LastImport returns the most recently recorded import run, or nil if
// nothing has been imported yet.
func (s *Store) LastImport() (*ImportRun, error) {
	var run ImportRun
	var importedAt string
	err := s.db.QueryRow(
		`SELECT id, source, imported_at, projects, tasks, assignments, employees, teams, activity
		 FROM import_runs ORDER BY rowid DESC LIMIT 1`,
	).Scan(
		&run.ID, &run.Source, &importedAt,
		&run.Counts.Projects, &run.Counts.Tasks, &run.Counts.Assignments,
		&run.Counts.Employees, &run.Counts.Teams, &run.Counts.Activity,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query last import: %w", err)
	}
	if run.ImportedAt, err = parseTime(importedAt); err != nil {
		return nil, err
	}
	return &run, nil
}

// LoadSnapshot reads the stored snapshot back, in import order.
func (s *Store) LoadSnapshot() (domain.Snapshot, error) {
	var snap domain.Snapshot
	var err error

	if snap.Teams, err = s.loadTeams(); err != nil {
		return domain.Snapshot{}, err
	}
	if snap.Projects, err = s.loadProjects(); err != nil {
		return domain.Snapshot{}, err
	}
	if snap.Tasks, err = s.loadTasks(); err != nil {
		return domain.Snapshot{}, err
	}
	if snap.Assignments, err = s.loadAssignments(); err != nil {
		return domain.Snapshot{}, err
	}
	if snap.Employees, err = s.loadEmployees(); err != nil {
		return domain.Snapshot{}, err
	}
	if snap.Activity, err = s.loadActivity(); err != nil {
		return domain.Snapshot{}, err
	}
	return snap, nil
}

func (s *Store) loadTeams() ([]domain.Team, error) {
	rows, err := s.db.Query(`SELECT id, name FROM teams ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("query teams: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Team, 0)
	for rows.Next() {
		var t domain.Team
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("scan team: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) loadProjects() ([]domain.Project, error) {
	rows, err := s.db.Query(
		`SELECT id, name, status, team_id, manager_id, start_date, due_date, created_at
		 FROM projects ORDER BY position`,
	)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Project, 0)
	for rows.Next() {
		var p domain.Project
		var status, createdAt string
		var start, due sql.NullString
		if err := rows.Scan(&p.ID, &p.Name, &status, &p.TeamID, &p.ManagerID, &start, &due, &createdAt); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		p.Status = domain.ProjectStatus(status)
		if p.StartDate, err = parseNullableTime(start); err != nil {
			return nil, err
		}
		if p.DueDate, err = parseNullableTime(due); err != nil {
			return nil, err
		}
		if p.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) loadTasks() ([]domain.Task, error) {
	rows, err := s.db.Query(
		`SELECT id, title, status, priority, project_id, start_date, due_date, created_at, updated_at
		 FROM tasks ORDER BY position`,
	)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Task, 0)
	for rows.Next() {
		var t domain.Task
		var status, createdAt, updatedAt string
		var priority int
		var start, due sql.NullString
		if err := rows.Scan(&t.ID, &t.Title, &status, &priority, &t.ProjectID, &start, &due, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		t.Status = domain.TaskStatus(status)
		t.Priority = domain.Priority(priority)
		if t.StartDate, err = parseNullableTime(start); err != nil {
			return nil, err
		}
		if t.DueDate, err = parseNullableTime(due); err != nil {
			return nil, err
		}
		if t.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if t.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) loadAssignments() ([]domain.Assignment, error) {
	rows, err := s.db.Query(`SELECT task_id, user_id FROM task_assignments ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query assignments: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Assignment, 0)
	for rows.Next() {
		var a domain.Assignment
		if err := rows.Scan(&a.TaskID, &a.UserID); err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) loadEmployees() ([]domain.Employee, error) {
	rows, err := s.db.Query(
		`SELECT id, first_name, last_name, email, role, status, team_id, created_at
		 FROM profiles ORDER BY position`,
	)
	if err != nil {
		return nil, fmt.Errorf("query profiles: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Employee, 0)
	for rows.Next() {
		var e domain.Employee
		var role, status, createdAt string
		if err := rows.Scan(&e.ID, &e.FirstName, &e.LastName, &e.Email, &role, &status, &e.TeamID, &createdAt); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		e.Role = domain.Role(role)
		e.Status = domain.EmployeeStatus(status)
		if e.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) loadActivity() ([]domain.ActivityLogEntry, error) {
	rows, err := s.db.Query(
		`SELECT id, user_id, activity_type, activity_details, project_id, task_id, created_at
		 FROM activity_logs ORDER BY position`,
	)
	if err != nil {
		return nil, fmt.Errorf("query activity logs: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ActivityLogEntry, 0)
	for rows.Next() {
		var a domain.ActivityLogEntry
		var createdAt string
		if err := rows.Scan(&a.ID, &a.UserID, &a.ActivityType, &a.ActivityDetails, &a.ProjectID, &a.TaskID, &createdAt); err != nil {
			return nil, fmt.Errorf("scan activity log: %w", err)
		}
		if a.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func parseNullableTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
