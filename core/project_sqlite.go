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

const projectColumns = "p.project_id, p.name, p.description, p.status, p.start_date, p.end_date, p.created_by, p.created_at"

type SQLiteProjectStore struct {
	db        *sql.DB
	userStore UserStore
}

func NewSQLiteProjectStore(db *sql.DB, userStore UserStore) *SQLiteProjectStore {
	return &SQLiteProjectStore{
		db:        db,
		userStore: userStore,
	}
}

func scanProject(row rowScanner) (*Project, error) {
	var (
		p                  Project
		startDate, endDate sql.NullTime
		createdBy          sql.NullString
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Status,
		&startDate, &endDate, &createdBy, &p.CreatedAt); err != nil {
		return nil, err
	}
	if startDate.Valid {
		p.StartDate = &startDate.Time
	}
	if endDate.Valid {
		p.EndDate = &endDate.Time
	}
	if createdBy.Valid {
		p.CreatedBy = &createdBy.String
	}
	return &p, nil
}

func checkDateRange(start, end *time.Time) error {
	if start != nil && end != nil && end.Before(*start) {
		return NewInputErrorf("end_date must not be before start_date")
	}
	return nil
}

func (s *SQLiteProjectStore) CreateProject(ctx context.Context, creatorID string, input ProjectCreateInput) (*Project, error) {
	if err := Validate(input); err != nil {
		return nil, err
	}
	if err := checkDateRange(input.StartDate, input.EndDate); err != nil {
		return nil, err
	}

	userIDs := []string{creatorID}
	for _, m := range input.Members {
		userIDs = append(userIDs, m.UserID)
	}
	if err := s.checkUsersExist(ctx, userIDs...); err != nil {
		return nil, err
	}

	status := input.Status
	if status == "" {
		status = ProjectPlanning
	}
	now := time.Now().UTC()
	id := uuid.NewString()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("BeginTx: %w", err)
	}
	defer tx.Rollback()

	query := `
	INSERT INTO projects (project_id, name, description, status, start_date, end_date, created_by, created_at)
	VALUES (@project_id, @name, @description, @status, @start_date, @end_date, @created_by, @created_at)`
	_, err = tx.ExecContext(ctx, query,
		sql.Named("project_id", id), sql.Named("name", input.Name),
		sql.Named("description", input.Description), sql.Named("status", status),
		sql.Named("start_date", nullTime(input.StartDate)), sql.Named("end_date", nullTime(input.EndDate)),
		sql.Named("created_by", creatorID), sql.Named("created_at", now))
	if err != nil {
		return nil, fmt.Errorf("ExecContext(insert project): %w", err)
	}

	members := append([]ProjectMemberInput{{UserID: creatorID, RoleInProject: ProjectRoleManager}}, input.Members...)
	for _, m := range members {
		if err := upsertProjectMember(ctx, tx, id, m, now); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("Commit: %w", err)
	}

	return s.GetProjectByID(ctx, id)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsertProjectMember(ctx context.Context, db execer, projectID string, m ProjectMemberInput, joinedAt time.Time) error {
	role := m.RoleInProject
	if role == "" {
		role = ProjectRoleMember
	}
	query := `
	INSERT INTO project_users (project_id, user_id, role_in_project, joined_at)
	VALUES (@project_id, @user_id, @role_in_project, @joined_at)
	ON CONFLICT (project_id, user_id) DO UPDATE SET role_in_project = excluded.role_in_project`
	_, err := db.ExecContext(ctx, query,
		sql.Named("project_id", projectID), sql.Named("user_id", m.UserID),
		sql.Named("role_in_project", role), sql.Named("joined_at", joinedAt))
	if err != nil {
		return fmt.Errorf("ExecContext(upsert project_users): %w", err)
	}
	return nil
}

func (s *SQLiteProjectStore) checkUsersExist(ctx context.Context, ids ...string) error {
	unique := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		unique[id] = struct{}{}
	}
	deduped := make([]string, 0, len(unique))
	for id := range unique {
		deduped = append(deduped, id)
	}
	users, err := s.userStore.GetUsersByIDs(ctx, deduped...)
	if err != nil {
		return fmt.Errorf("GetUsersByIDs: %w", err)
	}
	if len(users) != len(deduped) {
		return ErrUserNotFound
	}
	return nil
}

func (s *SQLiteProjectStore) GetProjectByID(ctx context.Context, id string) (*Project, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+projectColumns+" FROM projects AS p WHERE p.project_id = ?", id)
	project, err := scanProject(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scanning project: %w", err)
	}

	members, err := s.GetProjectMembers(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("GetProjectMembers: %w", err)
	}
	project.Members = members
	return project, nil
}

func (s *SQLiteProjectStore) queryProjects(ctx context.Context, query string, args ...any) ([]Project, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("QueryContext: %w", err)
	}
	defer rows.Close()

	projects := []Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("rows.Scan: %w", err)
		}
		projects = append(projects, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows.Err: %w", err)
	}
	return projects, nil
}

func (s *SQLiteProjectStore) GetProjects(ctx context.Context, offset, limit int) ([]Project, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.queryProjects(ctx,
		"SELECT "+projectColumns+" FROM projects AS p ORDER BY p.created_at DESC LIMIT @limit OFFSET @offset",
		sql.Named("limit", limit), sql.Named("offset", max(offset, 0)))
}

func (s *SQLiteProjectStore) GetUserProjects(ctx context.Context, userID string) ([]Project, error) {
	query := `
	SELECT ` + projectColumns + `
	FROM projects AS p
	INNER JOIN project_users AS pu ON pu.project_id = p.project_id
	WHERE pu.user_id = @user_id
	ORDER BY p.created_at DESC`
	return s.queryProjects(ctx, query, sql.Named("user_id", userID))
}

func (s *SQLiteProjectStore) UpdateProject(ctx context.Context, id string, input ProjectUpdateInput) (*Project, error) {
	if err := Validate(input); err != nil {
		return nil, err
	}

	existing, err := s.GetProjectByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("GetProjectByID: %w", err)
	}
	if existing == nil {
		return nil, ErrProjectNotFound
	}

	start, end := existing.StartDate, existing.EndDate
	if input.StartDate != nil {
		start = input.StartDate
	}
	if input.EndDate != nil {
		end = input.EndDate
	}
	if err := checkDateRange(start, end); err != nil {
		return nil, err
	}

	sets := make([]string, 0, 5)
	values := []interface{}{sql.Named("project_id", id)}
	if input.Name != nil {
		sets = append(sets, "name = @name")
		values = append(values, sql.Named("name", *input.Name))
	}
	if input.Description != nil {
		sets = append(sets, "description = @description")
		values = append(values, sql.Named("description", *input.Description))
	}
	if input.Status != nil {
		sets = append(sets, "status = @status")
		values = append(values, sql.Named("status", *input.Status))
	}
	if input.StartDate != nil {
		sets = append(sets, "start_date = @start_date")
		values = append(values, sql.Named("start_date", input.StartDate.UTC()))
	}
	if input.EndDate != nil {
		sets = append(sets, "end_date = @end_date")
		values = append(values, sql.Named("end_date", input.EndDate.UTC()))
	}
	if len(sets) == 0 {
		return existing, nil
	}

	if _, err := s.db.ExecContext(ctx,
		"UPDATE projects SET "+strings.Join(sets, ", ")+" WHERE project_id = @project_id", values...); err != nil {
		return nil, fmt.Errorf("ExecContext: %w", err)
	}

	return s.GetProjectByID(ctx, id)
}

func (s *SQLiteProjectStore) DeleteProject(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM projects WHERE project_id = ?", id)
	if err != nil {
		return fmt.Errorf("ExecContext: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("RowsAffected: %w", err)
	} else if n == 0 {
		return ErrProjectNotFound
	}
	return nil
}

func (s *SQLiteProjectStore) AddProjectMember(ctx context.Context, projectID string, input ProjectMemberInput) (*ProjectMember, error) {
	if err := Validate(input); err != nil {
		return nil, err
	}

	project, err := s.GetProjectByID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("GetProjectByID: %w", err)
	}
	if project == nil {
		return nil, ErrProjectNotFound
	}
	if err := s.checkUsersExist(ctx, input.UserID); err != nil {
		return nil, err
	}

	if err := upsertProjectMember(ctx, s.db, projectID, input, time.Now().UTC()); err != nil {
		return nil, err
	}

	members, err := s.GetProjectMembers(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("GetProjectMembers: %w", err)
	}
	for _, m := range members {
		if m.UserID == input.UserID {
			return &m, nil
		}
	}
	return nil, ErrInvalidMember
}

func (s *SQLiteProjectStore) RemoveProjectMember(ctx context.Context, projectID, userID string) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM project_users WHERE project_id = @project_id AND user_id = @user_id",
		sql.Named("project_id", projectID), sql.Named("user_id", userID))
	if err != nil {
		return fmt.Errorf("ExecContext: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("RowsAffected: %w", err)
	} else if n == 0 {
		return ErrInvalidMember
	}
	return nil
}

func (s *SQLiteProjectStore) GetProjectMembers(ctx context.Context, projectID string) ([]ProjectMember, error) {
	query := `
	SELECT u.user_id, u.username, u.email, u.first_name, u.last_name, pu.role_in_project, pu.joined_at
	FROM project_users AS pu
	INNER JOIN users AS u ON u.user_id = pu.user_id
	WHERE pu.project_id = @project_id
	ORDER BY pu.joined_at ASC, u.username ASC`
	rows, err := s.db.QueryContext(ctx, query, sql.Named("project_id", projectID))
	if err != nil {
		return nil, fmt.Errorf("QueryContext: %w", err)
	}
	defer rows.Close()

	members := []ProjectMember{}
	for rows.Next() {
		var m ProjectMember
		if err := rows.Scan(&m.UserID, &m.Username, &m.Email, &m.FirstName,
			&m.LastName, &m.RoleInProject, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("rows.Scan: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows.Err: %w", err)
	}
	return members, nil
}

func (s *SQLiteProjectStore) IsProjectMember(ctx context.Context, projectID, userID string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT count(*) FROM project_users WHERE project_id = @project_id AND user_id = @user_id",
		sql.Named("project_id", projectID), sql.Named("user_id", userID)).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("scanning count: %w", err)
	}
	return count > 0, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
