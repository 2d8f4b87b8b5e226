package core

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const taskColumns = "task_id, project_id, title, description, status, priority, assignee_id, due_date, created_at, updated_at"

type SQLiteTaskStore struct {
	db           *sql.DB
	userStore    UserStore
	projectStore ProjectStore
}

func NewSQLiteTaskStore(db *sql.DB, userStore UserStore, projectStore ProjectStore) *SQLiteTaskStore {
	return &SQLiteTaskStore{
		db:           db,
		userStore:    userStore,
		projectStore: projectStore,
	}
}

func scanTask(row rowScanner) (*Task, error) {
	var (
		t          Task
		assigneeID sql.NullString
		dueDate    sql.NullTime
	)
	if err := row.Scan(&t.ID, &t.ProjectID, &t.Title, &t.Description, &t.Status,
		&t.Priority, &assigneeID, &dueDate, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	if assigneeID.Valid {
		t.AssigneeID = &assigneeID.String
	}
	if dueDate.Valid {
		t.DueDate = &dueDate.Time
	}
	return &t, nil
}

func (s *SQLiteTaskStore) checkAssignee(ctx context.Context, assigneeID *string) error {
	if assigneeID == nil || *assigneeID == "" {
		return nil
	}
	user, err := s.userStore.GetUserByID(ctx, *assigneeID)
	if err != nil {
		return fmt.Errorf("GetUserByID: %w", err)
	}
	if user == nil {
		return ErrUserNotFound
	}
	return nil
}

func (s *SQLiteTaskStore) CreateTask(ctx context.Context, input TaskCreateInput) (*Task, error) {
	if err := Validate(input); err != nil {
		return nil, err
	}

	project, err := s.projectStore.GetProjectByID(ctx, input.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("GetProjectByID: %w", err)
	}
	if project == nil {
		return nil, ErrProjectNotFound
	}
	if err := s.checkAssignee(ctx, input.AssigneeID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	task := &Task{
		ID:          uuid.NewString(),
		ProjectID:   input.ProjectID,
		Title:       input.Title,
		Description: input.Description,
		Status:      input.Status,
		Priority:    input.Priority,
		DueDate:     input.DueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if task.Status == "" {
		task.Status = TaskTodo
	}
	if task.Priority == "" {
		task.Priority = PriorityMedium
	}
	if input.AssigneeID != nil && *input.AssigneeID != "" {
		task.AssigneeID = input.AssigneeID
	}

	var assignee sql.NullString
	if task.AssigneeID != nil {
		assignee = sql.NullString{String: *task.AssigneeID, Valid: true}
	}

	query := `
	INSERT INTO tasks (task_id, project_id, title, description, status, priority, assignee_id, due_date, created_at, updated_at)
	VALUES (@task_id, @project_id, @title, @description, @status, @priority, @assignee_id, @due_date, @created_at, @updated_at)`
	_, err = s.db.ExecContext(ctx, query,
		sql.Named("task_id", task.ID), sql.Named("project_id", task.ProjectID),
		sql.Named("title", task.Title), sql.Named("description", task.Description),
		sql.Named("status", task.Status), sql.Named("priority", task.Priority),
		sql.Named("assignee_id", assignee), sql.Named("due_date", nullTime(task.DueDate)),
		sql.Named("created_at", task.CreatedAt), sql.Named("updated_at", task.UpdatedAt))
	if err != nil {
		return nil, fmt.Errorf("ExecContext(insert task): %w", err)
	}

	return task, nil
}

func (s *SQLiteTaskStore) GetTaskByID(ctx context.Context, id string) (*Task, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+taskColumns+" FROM tasks WHERE task_id = ?", id)
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scanning task: %w", err)
	}
	return task, nil
}

func (s *SQLiteTaskStore) GetTasks(ctx context.Context, filter TaskFilter) ([]Task, error) {
	where := make([]string, 0, 3)
	values := make([]interface{}, 0, 5)
	if filter.ProjectID != "" {
		where = append(where, "project_id = @project_id")
		values = append(values, sql.Named("project_id", filter.ProjectID))
	}
	if filter.AssigneeID != "" {
		where = append(where, "assignee_id = @assignee_id")
		values = append(values, sql.Named("assignee_id", filter.AssigneeID))
	}
	if filter.Status != "" {
		where = append(where, "status = @status")
		values = append(values, sql.Named("status", filter.Status))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	values = append(values, sql.Named("limit", limit), sql.Named("offset", max(filter.Offset, 0)))

	query := "SELECT " + taskColumns + " FROM tasks"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at ASC LIMIT @limit OFFSET @offset"

	rows, err := s.db.QueryContext(ctx, query, values...)
	if err != nil {
		return nil, fmt.Errorf("QueryContext: %w", err)
	}
	defer rows.Close()

	tasks := []Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("rows.Scan: %w", err)
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows.Err: %w", err)
	}
	return tasks, nil
}

func (s *SQLiteTaskStore) UpdateTask(ctx context.Context, id string, input TaskUpdateInput) (*Task, error) {
	if err := Validate(input); err != nil {
		return nil, err
	}
	if err := s.checkAssignee(ctx, input.AssigneeID); err != nil {
		return nil, err
	}

	sets := []string{"updated_at = @updated_at"}
	values := []interface{}{sql.Named("task_id", id), sql.Named("updated_at", time.Now().UTC())}
	if input.Title != nil {
		sets = append(sets, "title = @title")
		values = append(values, sql.Named("title", *input.Title))
	}
	if input.Description != nil {
		sets = append(sets, "description = @description")
		values = append(values, sql.Named("description", *input.Description))
	}
	if input.Status != nil {
		sets = append(sets, "status = @status")
		values = append(values, sql.Named("status", *input.Status))
	}
	if input.Priority != nil {
		sets = append(sets, "priority = @priority")
		values = append(values, sql.Named("priority", *input.Priority))
	}
	if input.AssigneeID != nil {
		sets = append(sets, "assignee_id = @assignee_id")
		values = append(values, sql.Named("assignee_id",
			sql.NullString{String: *input.AssigneeID, Valid: *input.AssigneeID != ""}))
	}
	if input.DueDate != nil {
		sets = append(sets, "due_date = @due_date")
		values = append(values, sql.Named("due_date", input.DueDate.UTC()))
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE tasks SET "+strings.Join(sets, ", ")+" WHERE task_id = @task_id", values...)
	if err != nil {
		return nil, fmt.Errorf("ExecContext: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("RowsAffected: %w", err)
	} else if n == 0 {
		return nil, ErrTaskNotFound
	}

	return s.GetTaskByID(ctx, id)
}

func (s *SQLiteTaskStore) DeleteTask(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM tasks WHERE task_id = ?", id)
	if err != nil {
		return fmt.Errorf("ExecContext: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("RowsAffected: %w", err)
	} else if n == 0 {
		return ErrTaskNotFound
	}
	return nil
}
