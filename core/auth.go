package core

import (
	"context"
	"errors"
	"time"
)

type Role string

const (
	RoleAdmin   Role = "Admin"
	RoleManager Role = "Manager"
	RoleMember  Role = "Member"
)

// Identity is the authenticated principal behind a request or a connection.
// It is resolved once and never mutated afterwards.
type Identity struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

type Session struct {
	Identity
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

var (
	ErrBadCredentials  = errors.New("invalid credentials")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrUnauthorized    = errors.New("unauthorized")
)

type AuthStore interface {
	// NewSession checks the credentials and issues a signed token.
	// It returns ErrBadCredentials when the username or the password does not match.
	NewSession(ctx context.Context, username, password string) (*Session, error)

	// DestroySession revokes the token of the session until it expires.
	DestroySession(ctx context.Context, session Session) error

	// Session returns the session of a token.
	// It returns ErrUnauthenticated when the token is invalid, expired or revoked.
	Session(ctx context.Context, token string) (*Session, error)
}
