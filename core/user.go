package core

import (
	"context"
	"errors"
	"time"
)

type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func (u User) Identity() Identity {
	return Identity{UserID: u.ID, Username: u.Username, Role: u.Role}
}

var (
	ErrConflictedUser = errors.New("user already exists")
	ErrUserNotFound   = errors.New("user not found")
)

type UserCreateInput struct {
	Username  string `json:"username" validate:"required,min=3,max=150"`
	Password  string `json:"password" validate:"required,min=8"`
	Email     string `json:"email" validate:"omitempty,email"`
	FirstName string `json:"first_name" validate:"max=150"`
	LastName  string `json:"last_name" validate:"max=150"`
	// Role defaults to RoleMember.
	Role Role `json:"role" validate:"omitempty,oneof=Admin Manager Member"`
}

// UserUpdateInput holds the fields to change. Nil fields are left untouched.
type UserUpdateInput struct {
	Email     *string `json:"email" validate:"omitempty,email"`
	FirstName *string `json:"first_name" validate:"omitempty,max=150"`
	LastName  *string `json:"last_name" validate:"omitempty,max=150"`
	Password  *string `json:"password" validate:"omitempty,min=8"`
	Role      *Role   `json:"role" validate:"omitempty,oneof=Admin Manager Member"`
}

type GetUsersOptions struct {
	Limit  int
	Offset int
	// Q filters users whose username starts with Q.
	Q string
}

type UserStore interface {
	// CreateUser returns ErrConflictedUser when the username is taken.
	CreateUser(ctx context.Context, input UserCreateInput) (*User, error)

	// GetUserByID returns nil if the user does not exist.
	GetUserByID(ctx context.Context, id string) (*User, error)

	// GetUserByUsername returns nil if the user does not exist.
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	GetUsersByIDs(ctx context.Context, ids ...string) ([]User, error)

	ComparePassword(ctx context.Context, username, password string) (bool, error)

	GetUsers(ctx context.Context, opts *GetUsersOptions) ([]User, error)

	// UpdateUser returns ErrUserNotFound if the user does not exist.
	UpdateUser(ctx context.Context, id string, input UserUpdateInput) (*User, error)

	// DeleteUser returns ErrUserNotFound if the user does not exist.
	DeleteUser(ctx context.Context, id string) error
}
