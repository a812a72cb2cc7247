package domain

// ProjectStatus represents the lifecycle status of a project.
type ProjectStatus string

const (
	ProjectPlanned    ProjectStatus = "planned"
	ProjectInProgress ProjectStatus = "in_progress"
	ProjectOnHold     ProjectStatus = "on_hold"
	ProjectCompleted  ProjectStatus = "completed"
	ProjectCancelled  ProjectStatus = "cancelled"
)

// ProjectStatuses returns the project statuses in display order.
func ProjectStatuses() []ProjectStatus {
	return []ProjectStatus{ProjectPlanned, ProjectInProgress, ProjectOnHold, ProjectCompleted, ProjectCancelled}
}

// String returns the string representation of the status.
func (s ProjectStatus) String() string {
	return string(s)
}

// IsValid returns true if the status is a known value.
func (s ProjectStatus) IsValid() bool {
	switch s {
	case ProjectPlanned, ProjectInProgress, ProjectOnHold, ProjectCompleted, ProjectCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal returns true if no further work is expected on the project.
func (s ProjectStatus) IsTerminal() bool {
	return s == ProjectCompleted || s == ProjectCancelled
}

// TaskStatus represents the workflow status of a task.
type TaskStatus string

const (
	TaskTodo       TaskStatus = "todo"
	TaskInProgress TaskStatus = "in_progress"
	TaskOnHold     TaskStatus = "on_hold"
	TaskCancelled  TaskStatus = "cancelled"
	TaskCompleted  TaskStatus = "completed"
)

// TaskStatuses returns the task statuses in display order.
func TaskStatuses() []TaskStatus {
	return []TaskStatus{TaskTodo, TaskInProgress, TaskOnHold, TaskCancelled, TaskCompleted}
}

// String returns the string representation of the status.
func (s TaskStatus) String() string {
	return string(s)
}

// IsValid returns true if the status is a known value.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskTodo, TaskInProgress, TaskOnHold, TaskCancelled, TaskCompleted:
		return true
	default:
		return false
	}
}

// IsTerminal returns true for completed and cancelled tasks.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskCompleted || s == TaskCancelled
}

// Role is the access role of an employee profile.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleExecutive Role = "executive"
	RoleManager   Role = "manager"
	RoleEmployee  Role = "employee"
)

// Roles returns the roles in display order.
func Roles() []Role {
	return []Role{RoleAdmin, RoleExecutive, RoleManager, RoleEmployee}
}

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// IsValid returns true if the role is a known value.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleExecutive, RoleManager, RoleEmployee:
		return true
	default:
		return false
	}
}

// EmployeeStatus tells whether a profile is currently active.
type EmployeeStatus string

const (
	EmployeeActive   EmployeeStatus = "active"
	EmployeeInactive EmployeeStatus = "inactive"
)

// String returns the string representation of the status.
func (s EmployeeStatus) String() string {
	return string(s)
}

// IsValid returns true if the status is a known value.
func (s EmployeeStatus) IsValid() bool {
	return s == EmployeeActive || s == EmployeeInactive
}

// Priority is a task priority level, 1 being the most urgent.
type Priority int

const (
	PriorityCritical Priority = 1
	PriorityHigh     Priority = 2
	PriorityMedium   Priority = 3
	PriorityLow      Priority = 4
)

// Priorities returns all priority levels, highest first.
func Priorities() []Priority {
	return []Priority{PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow}
}

// IsValid returns true for levels 1 through 4.
func (p Priority) IsValid() bool {
	return p >= PriorityCritical && p <= PriorityLow
}

// Label returns the human-readable name of the priority. Out-of-range
// values are labeled "unset" so they still get their own bucket.
func (p Priority) Label() string {
	switch p {
	case PriorityCritical:
		return "critical"
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	case PriorityLow:
		return "low"
	default:
		return "unset"
	}
}
