package core

import (
	"github.com/stretchr/testify/require"
)

var (
	alice = UserCreateInput{Username: "alice", Password: "password1", Email: "alice@example.com", FirstName: "Alice"}
	bob   = UserCreateInput{Username: "bob", Password: "password2", Email: "bob@example.com", FirstName: "Bob"}
	carol = UserCreateInput{Username: "carol", Password: "password3", Email: "carol@example.com", FirstName: "Carol"}
	admin = UserCreateInput{Username: "admin", Password: "password4", Role: RoleAdmin}
)

func seedUsers(f *StoreFixture, users ...UserCreateInput) []User {
	created := make([]User, 0, len(users))
	for _, u := range users {
		user, err := f.userStore.CreateUser(f.ctx, u)
		require.NoError(f.t, err)
		created = append(created, *user)
	}
	return created
}

// seedRoom creates a group room owned by creator with the given participants.
func seedRoom(f *StoreFixture, name string, creator User, participants ...User) *ChatRoom {
	ids := make([]string, 0, len(participants))
	for _, p := range participants {
		ids = append(ids, p.ID)
	}
	room, err := f.chatStore.CreateRoom(f.ctx, creator.ID, ChatRoomCreateInput{Name: name, ParticipantIDs: ids})
	require.NoError(f.t, err)
	return room
}

func seedProject(f *StoreFixture, name string, creator User, members ...User) *Project {
	inputs := make([]ProjectMemberInput, 0, len(members))
	for _, m := range members {
		inputs = append(inputs, ProjectMemberInput{UserID: m.ID})
	}
	project, err := f.projectStore.CreateProject(f.ctx, creator.ID, ProjectCreateInput{Name: name, Members: inputs})
	require.NoError(f.t, err)
	return project
}

func ptr[T any](v T) *T {
	return &v
}
