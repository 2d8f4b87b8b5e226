package core

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const DefaultTokenTTL = 24 * time.Hour

type SQLiteAuthStore struct {
	db        *sql.DB
	userStore UserStore
	secret    []byte
	ttl       time.Duration
}

func NewSQLiteAuthStore(db *sql.DB, userStore UserStore, secret []byte, ttl time.Duration) *SQLiteAuthStore {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &SQLiteAuthStore{
		db:        db,
		userStore: userStore,
		secret:    secret,
		ttl:       ttl,
	}
}

func (s *SQLiteAuthStore) NewSession(ctx context.Context, username, password string) (*Session, error) {
	ok, err := s.userStore.ComparePassword(ctx, username, password)
	if err != nil {
		return nil, fmt.Errorf("ComparePassword: %w", err)
	}
	if !ok {
		return nil, ErrBadCredentials
	}

	user, err := s.userStore.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("GetUserByUsername: %w", err)
	}
	if user == nil {
		return nil, ErrBadCredentials
	}

	identity := user.Identity()
	token, exp, err := NewToken(identity, s.ttl, s.secret)
	if err != nil {
		return nil, fmt.Errorf("NewToken: %w", err)
	}

	return &Session{Identity: identity, Token: token, ExpiresAt: exp}, nil
}

func (s *SQLiteAuthStore) DestroySession(ctx context.Context, session Session) error {
	expiresAt := session.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = time.Now().Add(s.ttl)
	}
	return s.blacklistToken(ctx, session.Token, expiresAt)
}

func (s *SQLiteAuthStore) Session(ctx context.Context, token string) (*Session, error) {
	claims, err := VerifyToken(token, s.secret)
	if err != nil {
		return nil, ErrUnauthenticated
	}

	blacklisted, err := s.isBlacklisted(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("isBlacklisted: %w", err)
	}
	if blacklisted {
		return nil, ErrUnauthenticated
	}

	// the user may have been deleted or had the role changed since the token was issued
	user, err := s.userStore.GetUserByID(ctx, claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("GetUserByID: %w", err)
	}
	if user == nil {
		return nil, ErrUnauthenticated
	}

	return &Session{
		Identity:  user.Identity(),
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (s *SQLiteAuthStore) blacklistToken(ctx context.Context, token string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO blacklists (token, expires_at) VALUES (@token, @expires_at) ON CONFLICT DO NOTHING",
		sql.Named("token", token), sql.Named("expires_at", expiresAt.UTC()))
	if err != nil {
		return fmt.Errorf("ExecContext: %w", err)
	}
	return nil
}

func (s *SQLiteAuthStore) isBlacklisted(ctx context.Context, token string) (bool, error) {
	var found string
	err := s.db.QueryRowContext(ctx, "SELECT token FROM blacklists WHERE token = ?", token).Scan(&found)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// PruneBlacklist removes revoked tokens that have expired anyway.
func (s *SQLiteAuthStore) PruneBlacklist(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM blacklists WHERE expires_at < ?", time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("ExecContext: %w", err)
	}
	return res.RowsAffected()
}
