package core

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const userColumns = "user_id, username, email, first_name, last_name, role, created_at"

type SQLiteUserStore struct {
	db *sql.DB
}

func NewSQLiteUserStore(db *sql.DB) *SQLiteUserStore {
	return &SQLiteUserStore{
		db: db,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	user := new(User)
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.FirstName,
		&user.LastName, &user.Role, &user.CreatedAt)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *SQLiteUserStore) CreateUser(ctx context.Context, input UserCreateInput) (*User, error) {
	if err := Validate(input); err != nil {
		return nil, err
	}

	eu, err := s.GetUserByUsername(ctx, input.Username)
	if err != nil {
		return nil, fmt.Errorf("checking if user exists: %w", err)
	}
	if eu != nil {
		return nil, ErrConflictedUser
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	role := input.Role
	if role == "" {
		role = RoleMember
	}

	user := &User{
		ID:        uuid.NewString(),
		Username:  input.Username,
		Email:     input.Email,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}

	query := `
	INSERT INTO users (user_id, username, password, email, first_name, last_name, role, created_at)
	VALUES (@user_id, @username, @password, @email, @first_name, @last_name, @role, @created_at)`
	_, err = s.db.ExecContext(ctx, query,
		sql.Named("user_id", user.ID), sql.Named("username", user.Username),
		sql.Named("password", string(hashed)), sql.Named("email", user.Email),
		sql.Named("first_name", user.FirstName), sql.Named("last_name", user.LastName),
		sql.Named("role", user.Role), sql.Named("created_at", user.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	return user, nil
}

func (s *SQLiteUserStore) GetUserByID(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE user_id = ? LIMIT 1", id)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scanning user: %w", err)
	}
	return user, nil
}

func (s *SQLiteUserStore) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE username = ? LIMIT 1", username)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scanning user: %w", err)
	}
	return user, nil
}

func (s *SQLiteUserStore) GetUsersByIDs(ctx context.Context, ids ...string) ([]User, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	values := make([]interface{}, 0, len(ids))
	for _, id := range ids {
		values = append(values, id)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE user_id IN ("+strings.Repeat("?,", len(ids)-1)+"?)", values...)
	if err != nil {
		return nil, fmt.Errorf("QueryContext: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("rows.Scan: %w", err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows.Err: %w", err)
	}

	return users, nil
}

func (s *SQLiteUserStore) ComparePassword(ctx context.Context, username, password string) (bool, error) {
	row := s.db.QueryRowContext(ctx, "SELECT password FROM users WHERE username = ? LIMIT 1", username)

	var storedPassword string
	if err := row.Scan(&storedPassword); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("scanning password: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(storedPassword), []byte(password)); err != nil {
		return false, nil
	}

	return true, nil
}

func (s *SQLiteUserStore) GetUsers(ctx context.Context, options *GetUsersOptions) ([]User, error) {
	if options == nil {
		options = &GetUsersOptions{}
	}
	limit := options.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := max(options.Offset, 0)

	query := "SELECT " + userColumns + " FROM users"
	values := []interface{}{sql.Named("limit", limit), sql.Named("offset", offset)}
	if options.Q != "" {
		query += " WHERE username LIKE @q"
		values = append(values, sql.Named("q", options.Q+"%"))
	}
	query += " ORDER BY username ASC LIMIT @limit OFFSET @offset"

	rows, err := s.db.QueryContext(ctx, query, values...)
	if err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows.Err: %w", err)
	}

	return users, nil
}

func (s *SQLiteUserStore) UpdateUser(ctx context.Context, id string, input UserUpdateInput) (*User, error) {
	if err := Validate(input); err != nil {
		return nil, err
	}

	sets := make([]string, 0, 5)
	values := []interface{}{sql.Named("user_id", id)}
	if input.Email != nil {
		sets = append(sets, "email = @email")
		values = append(values, sql.Named("email", *input.Email))
	}
	if input.FirstName != nil {
		sets = append(sets, "first_name = @first_name")
		values = append(values, sql.Named("first_name", *input.FirstName))
	}
	if input.LastName != nil {
		sets = append(sets, "last_name = @last_name")
		values = append(values, sql.Named("last_name", *input.LastName))
	}
	if input.Role != nil {
		sets = append(sets, "role = @role")
		values = append(values, sql.Named("role", *input.Role))
	}
	if input.Password != nil {
		hashed, err := bcrypt.GenerateFromPassword([]byte(*input.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hashing password: %w", err)
		}
		sets = append(sets, "password = @password")
		values = append(values, sql.Named("password", string(hashed)))
	}

	if len(sets) > 0 {
		res, err := s.db.ExecContext(ctx,
			"UPDATE users SET "+strings.Join(sets, ", ")+" WHERE user_id = @user_id", values...)
		if err != nil {
			return nil, fmt.Errorf("ExecContext: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return nil, ErrUserNotFound
		}
	}

	user, err := s.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("GetUserByID: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *SQLiteUserStore) DeleteUser(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM users WHERE user_id = ?", id)
	if err != nil {
		return fmt.Errorf("ExecContext: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("RowsAffected: %w", err)
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}
