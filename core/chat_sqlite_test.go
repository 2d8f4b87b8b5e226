package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRoom(t *testing.T) {
	t.Run("create group room successfully", func(t *testing.T) {
		f := NewStoreFixture(t)
		defer f.tearDown()
		users := seedUsers(f, alice, bob)

		room, err := f.chatStore.CreateRoom(f.ctx, users[0].ID, ChatRoomCreateInput{
			Name:           "Group chat",
			ParticipantIDs: []string{users[1].ID, users[1].ID},
		})
		require.NoError(t, err)
		require.NotNil(t, room)
		assert.True(t, strings.HasPrefix(room.ID, "chat-"))
		assert.Equal(t, room.ID, NormalizeRoomID(room.ID))
		assert.Equal(t, "Group chat", room.Name)
		assert.False(t, room.IsDirect)
		require.Len(t, room.Participants, 2)
		assert.True(t, room.HasParticipant(users[0].ID))
		assert.True(t, room.HasParticipant(users[1].ID))
	})

	t.Run("unknown participant", func(t *testing.T) {
		f := NewStoreFixture(t)
		defer f.tearDown()
		u := seedUsers(f, alice)[0]

		room, err := f.chatStore.CreateRoom(f.ctx, u.ID, ChatRoomCreateInput{
			Name:           "Group chat",
			ParticipantIDs: []string{"random"},
		})
		require.Nil(t, room)
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("direct room is reused", func(t *testing.T) {
		f := NewStoreFixture(t)
		defer f.tearDown()
		users := seedUsers(f, alice, bob)

		first, err := f.chatStore.CreateRoom(f.ctx, users[0].ID, ChatRoomCreateInput{
			IsDirect: true, ParticipantIDs: []string{users[1].ID},
		})
		require.NoError(t, err)
		assert.True(t, first.IsDirect)
		assert.NotEmpty(t, first.Name)

		second, err := f.chatStore.CreateRoom(f.ctx, users[1].ID, ChatRoomCreateInput{
			IsDirect: true, ParticipantIDs: []string{users[0].ID},
		})
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
	})

	t.Run("direct room needs exactly two users", func(t *testing.T) {
		f := NewStoreFixture(t)
		defer f.tearDown()
		users := seedUsers(f, alice, bob, carol)

		_, err := f.chatStore.CreateRoom(f.ctx, users[0].ID, ChatRoomCreateInput{
			IsDirect: true, ParticipantIDs: []string{users[1].ID, users[2].ID},
		})
		assert.ErrorIs(t, err, ErrInvalidRoom)
	})
}

func TestGetRoomByID(t *testing.T) {
	t.Run("room exist", func(t *testing.T) {
		f := NewStoreFixture(t)
		defer f.tearDown()
		users := seedUsers(f, alice, bob)
		r := seedRoom(f, "Group chat", users[0], users[1])

		room, err := f.chatStore.GetRoomByID(f.ctx, r.ID)
		require.NoError(t, err)
		require.NotNil(t, room)
		assert.Equal(t, r.ID, room.ID)
		assert.Equal(t, r.Name, room.Name)
		assert.Len(t, room.Participants, 2)
	})

	t.Run("room does not exist", func(t *testing.T) {
		f := NewStoreFixture(t)
		defer f.tearDown()

		room, err := f.chatStore.GetRoomByID(f.ctx, "chat-404")
		require.NoError(t, err)
		assert.Nil(t, room)
	})
}

func TestUserRooms(t *testing.T) {
	f := NewStoreFixture(t)
	defer f.tearDown()
	users := seedUsers(f, alice, bob, carol)
	seedRoom(f, "b room", users[0], users[1])
	seedRoom(f, "a room", users[0])
	seedRoom(f, "c room", users[2])

	rooms, err := f.chatStore.GetUserRooms(f.ctx, users[0].ID)
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.Equal(t, "a room", rooms[0].Name)
	assert.Equal(t, "b room", rooms[1].Name)

	all, err := f.chatStore.GetRooms(f.ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestIsRoomParticipant(t *testing.T) {
	f := NewStoreFixture(t)
	defer f.tearDown()
	users := seedUsers(f, alice, bob, carol)
	room := seedRoom(f, "Group chat", users[0], users[1])

	ok, err := f.chatStore.IsRoomParticipant(f.ctx, room.ID, users[1].ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.chatStore.IsRoomParticipant(f.ctx, room.ID, users[2].ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCreateMessage(t *testing.T) {
	t.Run("create message successfully", func(t *testing.T) {
		f := NewStoreFixture(t)
		defer f.tearDown()
		users := seedUsers(f, alice, bob)
		room := seedRoom(f, "Group chat", users[0], users[1])

		message, err := f.chatStore.CreateMessage(f.ctx, MessageCreateInput{
			Content: "hi", ChatroomID: room.ID, SentBy: users[0].ID, ReceiverID: users[1].ID,
		})
		require.NoError(t, err)
		assert.Regexp(t, `^msg-[0-9a-f]{8}$`, message.ID)
		assert.Equal(t, "hi", message.Content)
		assert.Equal(t, room.ID, message.ChatroomID)
		assert.Equal(t, users[0].ID, message.SentBy)
		require.NotNil(t, message.ReceiverID)
		assert.Equal(t, users[1].ID, *message.ReceiverID)
		assert.False(t, message.IsRead)

		messages, err := f.chatStore.GetRoomMessages(f.ctx, room.ID, 0, 0)
		require.NoError(t, err)
		require.Len(t, messages, 1)
		assert.Equal(t, message.ID, messages[0].ID)
	})

	t.Run("unknown receiver is dropped", func(t *testing.T) {
		f := NewStoreFixture(t)
		defer f.tearDown()
		u := seedUsers(f, alice)[0]
		room := seedRoom(f, "Group chat", u)

		message, err := f.chatStore.CreateMessage(f.ctx, MessageCreateInput{
			Content: "hi", ChatroomID: room.ID, SentBy: u.ID, ReceiverID: "ghost",
		})
		require.NoError(t, err)
		assert.Nil(t, message.ReceiverID)
	})

	t.Run("unknown room", func(t *testing.T) {
		f := NewStoreFixture(t)
		defer f.tearDown()
		u := seedUsers(f, alice)[0]

		_, err := f.chatStore.CreateMessage(f.ctx, MessageCreateInput{
			Content: "hi", ChatroomID: "chat-404", SentBy: u.ID,
		})
		assert.ErrorIs(t, err, ErrRoomNotFound)
	})

	t.Run("unknown sender", func(t *testing.T) {
		f := NewStoreFixture(t)
		defer f.tearDown()
		u := seedUsers(f, alice)[0]
		room := seedRoom(f, "Group chat", u)

		_, err := f.chatStore.CreateMessage(f.ctx, MessageCreateInput{
			Content: "hi", ChatroomID: room.ID, SentBy: "ghost",
		})
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("empty content", func(t *testing.T) {
		f := NewStoreFixture(t)
		defer f.tearDown()
		u := seedUsers(f, alice)[0]
		room := seedRoom(f, "Group chat", u)

		_, err := f.chatStore.CreateMessage(f.ctx, MessageCreateInput{ChatroomID: room.ID, SentBy: u.ID})
		assert.ErrorIs(t, err, ErrInvalidMessage)
	})
}

func TestMarkRead(t *testing.T) {
	f := NewStoreFixture(t)
	defer f.tearDown()
	u := seedUsers(f, alice)[0]
	room := seedRoom(f, "Group chat", u)

	ids := make([]string, 0, 3)
	for _, content := range []string{"one", "two", "three"} {
		m, err := f.chatStore.CreateMessage(f.ctx, MessageCreateInput{Content: content, ChatroomID: room.ID, SentBy: u.ID})
		require.NoError(t, err)
		ids = append(ids, m.ID)
	}

	n, err := f.chatStore.MarkRead(f.ctx, []string{ids[0], ids[1], "msg-missing"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = f.chatStore.MarkRead(f.ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	messages, err := f.chatStore.GetRoomMessages(f.ctx, room.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	read := map[string]bool{}
	for _, m := range messages {
		read[m.ID] = m.IsRead
	}
	assert.Equal(t, map[string]bool{ids[0]: true, ids[1]: true, ids[2]: false}, read)
}

func TestGetRoomMessages(t *testing.T) {
	f := NewStoreFixture(t)
	defer f.tearDown()
	u := seedUsers(f, alice)[0]
	room := seedRoom(f, "Group chat", u)

	for _, content := range []string{"1", "2", "3", "4", "5"} {
		_, err := f.chatStore.CreateMessage(f.ctx, MessageCreateInput{Content: content, ChatroomID: room.ID, SentBy: u.ID})
		require.NoError(t, err)
	}

	latest, err := f.chatStore.GetRoomMessages(f.ctx, room.ID, 0, 2)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, "4", latest[0].Content)
	assert.Equal(t, "5", latest[1].Content)

	older, err := f.chatStore.GetRoomMessages(f.ctx, room.ID, 2, 2)
	require.NoError(t, err)
	require.Len(t, older, 2)
	assert.Equal(t, "2", older[0].Content)
	assert.Equal(t, "3", older[1].Content)
}
