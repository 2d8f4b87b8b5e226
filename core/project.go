package core

import (
	"context"
	"errors"
	"time"
)

type ProjectStatus string

const (
	ProjectPlanning  ProjectStatus = "planning"
	ProjectActive    ProjectStatus = "active"
	ProjectOnHold    ProjectStatus = "on_hold"
	ProjectCompleted ProjectStatus = "completed"
	ProjectCancelled ProjectStatus = "cancelled"
)

const (
	ProjectRoleManager = "Manager"
	ProjectRoleMember  = "Member"
	ProjectRoleSupport = "Support"
)

type Project struct {
	ID          string          `json:"project_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Status      ProjectStatus   `json:"status"`
	StartDate   *time.Time      `json:"start_date"`
	EndDate     *time.Time      `json:"end_date"`
	CreatedBy   *string         `json:"created_by"`
	CreatedAt   time.Time       `json:"created_at"`
	Members     []ProjectMember `json:"members,omitempty"`
}

type ProjectMember struct {
	UserID        string    `json:"user_id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	RoleInProject string    `json:"role_in_project"`
	JoinedAt      time.Time `json:"joined_at"`
}

type ProjectMemberInput struct {
	UserID string `json:"user_id" validate:"required"`
	// RoleInProject defaults to ProjectRoleMember.
	RoleInProject string `json:"role_in_project" validate:"omitempty,oneof=Manager Member Support"`
}

type ProjectCreateInput struct {
	Name        string               `json:"name" validate:"required,max=255"`
	Description string               `json:"description"`
	Status      ProjectStatus        `json:"status" validate:"omitempty,oneof=planning active on_hold completed cancelled"`
	StartDate   *time.Time           `json:"start_date"`
	EndDate     *time.Time           `json:"end_date"`
	Members     []ProjectMemberInput `json:"members" validate:"dive"`
}

type ProjectUpdateInput struct {
	Name        *string        `json:"name" validate:"omitempty,min=1,max=255"`
	Description *string        `json:"description"`
	Status      *ProjectStatus `json:"status" validate:"omitempty,oneof=planning active on_hold completed cancelled"`
	StartDate   *time.Time     `json:"start_date"`
	EndDate     *time.Time     `json:"end_date"`
}

var (
	ErrProjectNotFound = errors.New("project not found")
	ErrInvalidMember   = errors.New("user is not a member")
)

type ProjectStore interface {
	// CreateProject creates the project with the creator as its manager and adds the given members.
	// It returns ErrUserNotFound if the creator or one of the members does not exist.
	CreateProject(ctx context.Context, creatorID string, input ProjectCreateInput) (*Project, error)

	// GetProjectByID returns the project with its members, or nil if it does not exist.
	GetProjectByID(ctx context.Context, id string) (*Project, error)

	GetProjects(ctx context.Context, offset, limit int) ([]Project, error)

	// GetUserProjects returns the projects the user is a member of.
	GetUserProjects(ctx context.Context, userID string) ([]Project, error)

	// UpdateProject returns ErrProjectNotFound if the project does not exist.
	UpdateProject(ctx context.Context, id string, input ProjectUpdateInput) (*Project, error)

	// DeleteProject returns ErrProjectNotFound if the project does not exist.
	DeleteProject(ctx context.Context, id string) error

	// AddProjectMember adds or updates the membership of a user.
	AddProjectMember(ctx context.Context, projectID string, input ProjectMemberInput) (*ProjectMember, error)

	// RemoveProjectMember returns ErrInvalidMember if the user is not a member.
	RemoveProjectMember(ctx context.Context, projectID, userID string) error

	GetProjectMembers(ctx context.Context, projectID string) ([]ProjectMember, error)

	IsProjectMember(ctx context.Context, projectID, userID string) (bool, error)
}
