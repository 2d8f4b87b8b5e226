package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToken(t *testing.T) {
	secret := []byte("secret")
	identity := Identity{UserID: "u-1", Username: "username", Role: RoleManager}

	t.Run("valid token", func(t *testing.T) {
		before := time.Now()
		token, expiresAt, err := NewToken(identity, time.Hour, secret)
		require.Nil(t, err)
		require.NotEmpty(t, token)
		require.False(t, expiresAt.Before(before.Add(time.Hour)))

		claims, err := VerifyToken(token, secret)
		require.Nil(t, err)
		assert.Equal(t, identity, claims.Identity())
	})

	t.Run("expired token", func(t *testing.T) {
		token, _, err := NewToken(identity, -time.Minute, secret)
		require.Nil(t, err)

		_, err = VerifyToken(token, secret)
		assert.ErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token, _, err := NewToken(identity, time.Hour, secret)
		require.Nil(t, err)

		_, err = VerifyToken(token, []byte("other"))
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := VerifyToken("not-a-token", secret)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})
}
