package core

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

type SQLiteTeamStore struct {
	db        *sql.DB
	userStore UserStore
}

func NewSQLiteTeamStore(db *sql.DB, userStore UserStore) *SQLiteTeamStore {
	return &SQLiteTeamStore{
		db:        db,
		userStore: userStore,
	}
}

func (s *SQLiteTeamStore) CreateTeam(ctx context.Context, input TeamCreateInput) (*Team, error) {
	if err := Validate(input); err != nil {
		return nil, err
	}

	slices.Sort(input.MemberIDs)
	memberIDs := slices.Compact(input.MemberIDs)
	if len(memberIDs) > 0 {
		users, err := s.userStore.GetUsersByIDs(ctx, memberIDs...)
		if err != nil {
			return nil, fmt.Errorf("GetUsersByIDs: %w", err)
		}
		if len(users) != len(memberIDs) {
			return nil, ErrUserNotFound
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("BeginTx: %w", err)
	}
	defer tx.Rollback()

	id := uuid.NewString()
	_, err = tx.ExecContext(ctx,
		"INSERT INTO teams (team_id, name, description, created_at) VALUES (@team_id, @name, @description, @created_at)",
		sql.Named("team_id", id), sql.Named("name", input.Name),
		sql.Named("description", input.Description), sql.Named("created_at", time.Now().UTC()))
	if err != nil {
		return nil, fmt.Errorf("ExecContext(insert team): %w", err)
	}

	for _, userID := range memberIDs {
		if err := insertTeamMember(ctx, tx, id, userID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("Commit: %w", err)
	}

	return s.GetTeamByID(ctx, id)
}

func insertTeamMember(ctx context.Context, db execer, teamID, userID string) error {
	_, err := db.ExecContext(ctx,
		"INSERT INTO team_members (team_id, user_id) VALUES (@team_id, @user_id) ON CONFLICT DO NOTHING",
		sql.Named("team_id", teamID), sql.Named("user_id", userID))
	if err != nil {
		return fmt.Errorf("ExecContext(insert team_members): %w", err)
	}
	return nil
}

func (s *SQLiteTeamStore) GetTeamByID(ctx context.Context, id string) (*Team, error) {
	var team Team
	err := s.db.QueryRowContext(ctx,
		"SELECT team_id, name, description, created_at FROM teams WHERE team_id = ?", id).
		Scan(&team.ID, &team.Name, &team.Description, &team.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scanning team: %w", err)
	}

	members, err := s.getTeamMembers(ctx, id)
	if err != nil {
		return nil, err
	}
	team.Members = members
	return &team, nil
}

func (s *SQLiteTeamStore) getTeamMembers(ctx context.Context, teamID string) ([]User, error) {
	query := `
	SELECT u.user_id, u.username, u.email, u.first_name, u.last_name, u.role, u.created_at
	FROM team_members AS tm
	INNER JOIN users AS u ON u.user_id = tm.user_id
	WHERE tm.team_id = ?
	ORDER BY u.username ASC`
	rows, err := s.db.QueryContext(ctx, query, teamID)
	if err != nil {
		return nil, fmt.Errorf("QueryContext(select team_members): %w", err)
	}
	defer rows.Close()

	members := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("rows.Scan: %w", err)
		}
		members = append(members, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows.Err: %w", err)
	}
	return members, nil
}

func (s *SQLiteTeamStore) GetTeams(ctx context.Context) ([]Team, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT team_id, name, description, created_at FROM teams ORDER BY name ASC")
	if err != nil {
		return nil, fmt.Errorf("QueryContext: %w", err)
	}
	teams := []Team{}
	for rows.Next() {
		var team Team
		if err := rows.Scan(&team.ID, &team.Name, &team.Description, &team.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("rows.Scan: %w", err)
		}
		teams = append(teams, team)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows.Err: %w", err)
	}

	// rows must be closed before members are queried
	for i := range teams {
		members, err := s.getTeamMembers(ctx, teams[i].ID)
		if err != nil {
			return nil, err
		}
		teams[i].Members = members
	}
	return teams, nil
}

func (s *SQLiteTeamStore) UpdateTeam(ctx context.Context, id string, input TeamUpdateInput) (*Team, error) {
	if err := Validate(input); err != nil {
		return nil, err
	}

	sets := make([]string, 0, 2)
	values := []interface{}{sql.Named("team_id", id)}
	if input.Name != nil {
		sets = append(sets, "name = @name")
		values = append(values, sql.Named("name", *input.Name))
	}
	if input.Description != nil {
		sets = append(sets, "description = @description")
		values = append(values, sql.Named("description", *input.Description))
	}

	if len(sets) > 0 {
		res, err := s.db.ExecContext(ctx,
			"UPDATE teams SET "+strings.Join(sets, ", ")+" WHERE team_id = @team_id", values...)
		if err != nil {
			return nil, fmt.Errorf("ExecContext: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return nil, ErrTeamNotFound
		}
	}

	team, err := s.GetTeamByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if team == nil {
		return nil, ErrTeamNotFound
	}
	return team, nil
}

func (s *SQLiteTeamStore) DeleteTeam(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM teams WHERE team_id = ?", id)
	if err != nil {
		return fmt.Errorf("ExecContext: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("RowsAffected: %w", err)
	} else if n == 0 {
		return ErrTeamNotFound
	}
	return nil
}

func (s *SQLiteTeamStore) AddTeamMember(ctx context.Context, teamID, userID string) error {
	team, err := s.GetTeamByID(ctx, teamID)
	if err != nil {
		return fmt.Errorf("GetTeamByID: %w", err)
	}
	if team == nil {
		return ErrTeamNotFound
	}
	user, err := s.userStore.GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("GetUserByID: %w", err)
	}
	if user == nil {
		return ErrUserNotFound
	}
	return insertTeamMember(ctx, s.db, teamID, userID)
}

func (s *SQLiteTeamStore) RemoveTeamMember(ctx context.Context, teamID, userID string) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM team_members WHERE team_id = @team_id AND user_id = @user_id",
		sql.Named("team_id", teamID), sql.Named("user_id", userID))
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
