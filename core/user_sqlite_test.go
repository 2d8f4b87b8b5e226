package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUser(t *testing.T) {
	t.Run("create user successfully", func(t *testing.T) {
		f := NewStoreFixture(t)
		defer f.tearDown()

		user, err := f.userStore.CreateUser(f.ctx, alice)
		require.NoError(t, err)
		require.NotEmpty(t, user.ID)
		assert.Equal(t, alice.Username, user.Username)
		assert.Equal(t, RoleMember, user.Role)

		found, err := f.userStore.GetUserByID(f.ctx, user.ID)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, alice.Email, found.Email)
		assert.Equal(t, alice.FirstName, found.FirstName)
	})

	t.Run("duplicated username", func(t *testing.T) {
		f := NewStoreFixture(t)
		defer f.tearDown()
		seedUsers(f, alice)

		user, err := f.userStore.CreateUser(f.ctx, alice)
		require.Nil(t, user)
		assert.ErrorIs(t, err, ErrConflictedUser)
	})

	t.Run("invalid input", func(t *testing.T) {
		f := NewStoreFixture(t)
		defer f.tearDown()

		user, err := f.userStore.CreateUser(f.ctx, UserCreateInput{Username: "x", Password: "short"})
		require.Nil(t, user)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestComparePassword(t *testing.T) {
	f := NewStoreFixture(t)
	defer f.tearDown()
	seedUsers(f, alice)

	ok, err := f.userStore.ComparePassword(f.ctx, alice.Username, alice.Password)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.userStore.ComparePassword(f.ctx, alice.Username, "wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.userStore.ComparePassword(f.ctx, "nobody", "wrong")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetUsers(t *testing.T) {
	f := NewStoreFixture(t)
	defer f.tearDown()
	seedUsers(f, alice, bob, carol)

	users, err := f.userStore.GetUsers(f.ctx, nil)
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, "alice", users[0].Username)

	users, err = f.userStore.GetUsers(f.ctx, &GetUsersOptions{Q: "bo"})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "bob", users[0].Username)

	users, err = f.userStore.GetUsers(f.ctx, &GetUsersOptions{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "bob", users[0].Username)
}

func TestUpdateAndDeleteUser(t *testing.T) {
	f := NewStoreFixture(t)
	defer f.tearDown()
	u := seedUsers(f, alice)[0]

	updated, err := f.userStore.UpdateUser(f.ctx, u.ID, UserUpdateInput{
		LastName: ptr("Liddell"),
		Role:     ptr(RoleManager),
		Password: ptr("new-password"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Liddell", updated.LastName)
	assert.Equal(t, RoleManager, updated.Role)

	ok, err := f.userStore.ComparePassword(f.ctx, alice.Username, "new-password")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = f.userStore.UpdateUser(f.ctx, "missing", UserUpdateInput{LastName: ptr("x")})
	assert.ErrorIs(t, err, ErrUserNotFound)

	require.NoError(t, f.userStore.DeleteUser(f.ctx, u.ID))
	assert.ErrorIs(t, f.userStore.DeleteUser(f.ctx, u.ID), ErrUserNotFound)

	found, err := f.userStore.GetUserByID(f.ctx, u.ID)
	require.NoError(t, err)
	assert.Nil(t, found)
}
