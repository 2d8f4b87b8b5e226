package core

import (
	"context"
	"errors"
	"time"
)

type TaskStatus string

const (
	TaskTodo       TaskStatus = "todo"
	TaskInProgress TaskStatus = "in_progress"
	TaskReview     TaskStatus = "review"
	TaskDone       TaskStatus = "done"
)

type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
	PriorityUrgent TaskPriority = "urgent"
)

type Task struct {
	ID          string       `json:"task_id"`
	ProjectID   string       `json:"project_id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Status      TaskStatus   `json:"status"`
	Priority    TaskPriority `json:"priority"`
	AssigneeID  *string      `json:"assignee_id"`
	DueDate     *time.Time   `json:"due_date"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

type TaskCreateInput struct {
	ProjectID   string       `json:"project_id" validate:"required"`
	Title       string       `json:"title" validate:"required,max=255"`
	Description string       `json:"description"`
	Status      TaskStatus   `json:"status" validate:"omitempty,oneof=todo in_progress review done"`
	Priority    TaskPriority `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	AssigneeID  *string      `json:"assignee_id"`
	DueDate     *time.Time   `json:"due_date"`
}

type TaskUpdateInput struct {
	Title       *string       `json:"title" validate:"omitempty,min=1,max=255"`
	Description *string       `json:"description"`
	Status      *TaskStatus   `json:"status" validate:"omitempty,oneof=todo in_progress review done"`
	Priority    *TaskPriority `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	// AssigneeID set to an empty string clears the assignee.
	AssigneeID *string    `json:"assignee_id"`
	DueDate    *time.Time `json:"due_date"`
}

// TaskFilter narrows GetTasks. Empty fields are ignored.
type TaskFilter struct {
	ProjectID  string
	AssigneeID string
	Status     TaskStatus
	Limit      int
	Offset     int
}

var ErrTaskNotFound = errors.New("task not found")

type TaskStore interface {
	// CreateTask returns ErrProjectNotFound or ErrUserNotFound when a reference is dangling.
	CreateTask(ctx context.Context, input TaskCreateInput) (*Task, error)

	// GetTaskByID returns nil if the task does not exist.
	GetTaskByID(ctx context.Context, id string) (*Task, error)

	GetTasks(ctx context.Context, filter TaskFilter) ([]Task, error)

	// UpdateTask returns ErrTaskNotFound if the task does not exist.
	UpdateTask(ctx context.Context, id string, input TaskUpdateInput) (*Task, error)

	// DeleteTask returns ErrTaskNotFound if the task does not exist.
	DeleteTask(ctx context.Context, id string) error
}
