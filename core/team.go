package core

import (
	"context"
	"errors"
	"time"
)

type Team struct {
	ID          string    `json:"team_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	Members     []User    `json:"members"`
}

type TeamCreateInput struct {
	Name        string   `json:"name" validate:"required,max=255"`
	Description string   `json:"description"`
	MemberIDs   []string `json:"member_ids" validate:"dive,required"`
}

type TeamUpdateInput struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=255"`
	Description *string `json:"description"`
}

var ErrTeamNotFound = errors.New("team not found")

type TeamStore interface {
	// CreateTeam returns ErrUserNotFound if one of the members does not exist.
	CreateTeam(ctx context.Context, input TeamCreateInput) (*Team, error)

	// GetTeamByID returns the team with its members, or nil if it does not exist.
	GetTeamByID(ctx context.Context, id string) (*Team, error)

	GetTeams(ctx context.Context) ([]Team, error)

	UpdateTeam(ctx context.Context, id string, input TeamUpdateInput) (*Team, error)

	DeleteTeam(ctx context.Context, id string) error

	AddTeamMember(ctx context.Context, teamID, userID string) error

	// RemoveTeamMember returns ErrInvalidMember if the user is not in the team.
	RemoveTeamMember(ctx context.Context, teamID, userID string) error
}
