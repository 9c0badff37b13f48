package orchestrator

import (
	"time"
)

// AgentRole identifies which team member a task is assigned to.
type AgentRole string

const (
	RoleArchitect   AgentRole = "architect"
	RoleImplementer AgentRole = "implementer"
	RoleReviewer    AgentRole = "reviewer"
	RoleTester      AgentRole = "tester"
)

// KnownRoles lists every assignable agent role.
func KnownRoles() []AgentRole {
	return []AgentRole{RoleArchitect, RoleImplementer, RoleReviewer, RoleTester}
}

// TaskStatus is the lifecycle state of an agent task.
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in_progress"
	StatusCompleted  TaskStatus = "completed"
	StatusFailed     TaskStatus = "failed"
	StatusCancelled  TaskStatus = "cancelled"
)

// IsTerminal reports whether the status ends a task's lifecycle.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// TaskPriority orders tasks within the ready set.
type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

// AgentTask is one unit of work for an agent. Tasks live in the manager's
// queue until they reach a terminal status, then move to the completed list.
type AgentTask struct {
	ID                 string       `json:"id"`
	Type               string       `json:"type"`
	Title              string       `json:"title"`
	Description        string       `json:"description,omitempty"`
	Assignee           AgentRole    `json:"assignee,omitempty"`
	Status             TaskStatus   `json:"status"`
	Priority           TaskPriority `json:"priority,omitempty"`
	DependsOn          []string     `json:"depends_on,omitempty"`
	AcceptanceCriteria []string     `json:"acceptance_criteria,omitempty"`
	References         []string     `json:"references,omitempty"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`
	Result             string       `json:"result,omitempty"`
}

// TaskResult records one task execution, successful or not.
type TaskResult struct {
	TaskID      string        `json:"task_id"`
	AgentID     string        `json:"agent_id"`
	Success     bool          `json:"success"`
	Duration    time.Duration `json:"duration"`
	Result      string        `json:"result,omitempty"`
	TokensUsed  int           `json:"tokens_used,omitempty"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt time.Time     `json:"completed_at"`
}

// CreateTaskRequest carries the caller-supplied fields for a new task.
type CreateTaskRequest struct {
	Type               string       `json:"type,omitempty"`
	Title              string       `json:"title"`
	Description        string       `json:"description,omitempty"`
	Assignee           AgentRole    `json:"assignee,omitempty"`
	Priority           TaskPriority `json:"priority,omitempty"`
	DependsOn          []string     `json:"depends_on,omitempty"`
	AcceptanceCriteria []string     `json:"acceptance_criteria,omitempty"`
	References         []string     `json:"references,omitempty"`
}

// UpdateTaskRequest applies partial updates to a queued task.
type UpdateTaskRequest struct {
	Title       *string       `json:"title,omitempty"`
	Description *string       `json:"description,omitempty"`
	Assignee    *AgentRole    `json:"assignee,omitempty"`
	Priority    *TaskPriority `json:"priority,omitempty"`
	DependsOn   []string      `json:"depends_on,omitempty"`
}

// ExecutionPlan partitions queued task IDs by dependency satisfaction.
// It is recomputed on demand rather than maintained incrementally; task
// volume is small enough that a full scan is the simpler contract.
type ExecutionPlan struct {
	Ready     []string `json:"ready"`
	Waiting   []string `json:"waiting"`
	Blocked   []string `json:"blocked"`
	Completed []string `json:"completed"`
}

// Metrics aggregates run statistics derived from the result list.
type Metrics struct {
	TasksCreated    int           `json:"tasks_created"`
	TasksCompleted  int           `json:"tasks_completed"`
	TasksFailed     int           `json:"tasks_failed"`
	TokensUsed      int           `json:"tokens_used"`
	AverageDuration time.Duration `json:"average_duration"`
	Uptime          time.Duration `json:"uptime"`
}

// Event types emitted by the manager.
const (
	EventTaskCreated   = "task_created"
	EventTaskUpdated   = "task_updated"
	EventTaskStarted   = "task_started"
	EventTaskCompleted = "task_completed"
	EventTaskFailed    = "task_failed"
	EventTaskCancelled = "task_cancelled"
)

// Event is delivered synchronously to subscribers in registration order.
type Event struct {
	Type      string     `json:"type"`
	TaskID    string     `json:"task_id,omitempty"`
	Timestamp string     `json:"timestamp"`
	Task      *AgentTask `json:"task,omitempty"`
}
