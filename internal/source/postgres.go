// Package source reads a snapshot straight from the dashboard's Postgres
// database (the Supabase project behind the web UI).
package source

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/highbeam/pulseboard/internal/domain"
)

// Postgres loads snapshots from the dashboard database.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a connection pool for databaseURL. The pool connects
// lazily; the first Load surfaces connection errors.
func NewPostgres(ctx context.Context, databaseURL string, maxConns int) (*Postgres, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	if maxConns > 0 {
		poolConfig.MaxConns = int32(maxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Close closes the connection pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

// Ping verifies the database is reachable.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Name identifies the source in import runs.
func (p *Postgres) Name() string {
	cfg := p.pool.Config().ConnConfig
	return fmt.Sprintf("postgres://%s:%d/%s", cfg.Host, cfg.Port, cfg.Database)
}

// Load reads every collection inside one read-only repeatable-read
// transaction so the snapshot is consistent.
func (p *Postgres) Load(ctx context.Context) (domain.Snapshot, error) {
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("begin snapshot transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var snap domain.Snapshot

	if snap.Teams, err = collect(ctx, tx, queryTeams, scanTeam); err != nil {
		return domain.Snapshot{}, fmt.Errorf("load teams: %w", err)
	}
	if snap.Projects, err = collect(ctx, tx, queryProjects, scanProject); err != nil {
		return domain.Snapshot{}, fmt.Errorf("load projects: %w", err)
	}
	if snap.Tasks, err = collect(ctx, tx, queryTasks, scanTask); err != nil {
		return domain.Snapshot{}, fmt.Errorf("load tasks: %w", err)
	}
	if snap.Assignments, err = collect(ctx, tx, queryAssignments, scanAssignment); err != nil {
		return domain.Snapshot{}, fmt.Errorf("load task assignments: %w", err)
	}
	if snap.Employees, err = collect(ctx, tx, queryProfiles, scanEmployee); err != nil {
		return domain.Snapshot{}, fmt.Errorf("load profiles: %w", err)
	}
	if snap.Activity, err = collect(ctx, tx, queryActivity, scanActivity); err != nil {
		return domain.Snapshot{}, fmt.Errorf("load activity logs: %w", err)
	}

	return snap, nil
}

const (
	queryTeams = `SELECT id::text, COALESCE(name, '') FROM teams ORDER BY created_at, id`

	queryProjects = `SELECT id::text, COALESCE(name, ''), COALESCE(status, ''),
		COALESCE(team_id::text, ''), COALESCE(manager_id::text, ''),
		start_date::timestamptz, due_date::timestamptz, created_at
		FROM projects ORDER BY created_at, id`

	queryTasks = `SELECT id::text, COALESCE(title, ''), COALESCE(status, ''), COALESCE(priority, 0),
		COALESCE(project_id::text, ''), start_date::timestamptz, due_date::timestamptz,
		created_at, COALESCE(updated_at, created_at)
		FROM tasks ORDER BY created_at, id`

	queryAssignments = `SELECT task_id::text, user_id::text FROM task_assignments`

	queryProfiles = `SELECT id::text, COALESCE(first_name, ''), COALESCE(last_name, ''),
		COALESCE(email, ''), COALESCE(role, ''), COALESCE(status, ''),
		COALESCE(team_id::text, ''), created_at
		FROM profiles ORDER BY created_at, id`

	queryActivity = `SELECT id::text, COALESCE(user_id::text, ''), COALESCE(activity_type, ''),
		COALESCE(activity_details, ''), COALESCE(project_id::text, ''),
		COALESCE(task_id::text, ''), created_at
		FROM activity_logs ORDER BY created_at, id`
)

func collect[T any](ctx context.Context, tx pgx.Tx, query string, scan pgx.RowToFunc[T]) ([]T, error) {
	rows, err := tx.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	out, err := pgx.CollectRows(rows, scan)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = make([]T, 0)
	}
	return out, nil
}

func scanTeam(row pgx.CollectableRow) (domain.Team, error) {
	var t domain.Team
	err := row.Scan(&t.ID, &t.Name)
	return t, err
}

func scanProject(row pgx.CollectableRow) (domain.Project, error) {
	var p domain.Project
	var status string
	err := row.Scan(&p.ID, &p.Name, &status, &p.TeamID, &p.ManagerID, &p.StartDate, &p.DueDate, &p.CreatedAt)
	p.Status = domain.ProjectStatus(status)
	return p, err
}

func scanTask(row pgx.CollectableRow) (domain.Task, error) {
	var t domain.Task
	var status string
	var priority int32
	err := row.Scan(&t.ID, &t.Title, &status, &priority, &t.ProjectID, &t.StartDate, &t.DueDate, &t.CreatedAt, &t.UpdatedAt)
	t.Status = domain.TaskStatus(status)
	t.Priority = domain.Priority(priority)
	return t, err
}

func scanAssignment(row pgx.CollectableRow) (domain.Assignment, error) {
	var a domain.Assignment
	err := row.Scan(&a.TaskID, &a.UserID)
	return a, err
}

func scanEmployee(row pgx.CollectableRow) (domain.Employee, error) {
	var e domain.Employee
	var role, status string
	err := row.Scan(&e.ID, &e.FirstName, &e.LastName, &e.Email, &role, &status, &e.TeamID, &e.CreatedAt)
	e.Role = domain.Role(role)
	e.Status = domain.EmployeeStatus(status)
	return e, err
}

func scanActivity(row pgx.CollectableRow) (domain.ActivityLogEntry, error) {
	var a domain.ActivityLogEntry
	err := row.Scan(&a.ID, &a.UserID, &a.ActivityType, &a.ActivityDetails, &a.ProjectID, &a.TaskID, &a.CreatedAt)
	return a, err
}
