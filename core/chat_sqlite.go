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
	"github.com/mattn/go-sqlite3"
)

// maxMessageIDAttempts bounds the retries when a generated message id collides.
const maxMessageIDAttempts = 3

type SQLiteChatStore struct {
	db        *sql.DB
	userStore UserStore
}

func NewSQLiteChatStore(db *sql.DB, userStore UserStore) *SQLiteChatStore {
	return &SQLiteChatStore{
		db:        db,
		userStore: userStore,
	}
}

// NewMessageID returns msg- followed by 8 random hex characters.
func NewMessageID() string {
	return "msg-" + uuid.NewString()[:8]
}

func newRoomID() string {
	return roomPrefix + uuid.NewString()
}

func (s *SQLiteChatStore) CreateRoom(ctx context.Context, creatorID string, input ChatRoomCreateInput) (*ChatRoom, error) {
	if err := Validate(input); err != nil {
		return nil, err
	}

	ids := append([]string{creatorID}, input.ParticipantIDs...)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	users, err := s.userStore.GetUsersByIDs(ctx, ids...)
	if err != nil {
		return nil, fmt.Errorf("GetUsersByIDs: %w", err)
	}
	if len(users) != len(ids) {
		return nil, ErrUserNotFound
	}

	name := input.Name
	if input.IsDirect {
		if len(ids) != 2 {
			return nil, ErrInvalidRoom
		}
		existing, err := s.getDirectRoom(ctx, ids[0], ids[1])
		if err != nil {
			return nil, fmt.Errorf("getDirectRoom: %w", err)
		}
		if existing != nil {
			return existing, nil
		}
		if name == "" {
			name = users[0].Username + ", " + users[1].Username
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("BeginTx: %w", err)
	}
	defer tx.Rollback()

	id := newRoomID()
	now := time.Now().UTC()
	query := `
	INSERT INTO chatrooms (chatroom_id, name, is_direct, created_by, created_at)
	VALUES (@chatroom_id, @name, @is_direct, @created_by, @created_at)`
	_, err = tx.ExecContext(ctx, query,
		sql.Named("chatroom_id", id), sql.Named("name", name),
		sql.Named("is_direct", input.IsDirect), sql.Named("created_by", creatorID),
		sql.Named("created_at", now))
	if err != nil {
		return nil, fmt.Errorf("ExecContext(insert chatroom): %w", err)
	}

	for _, userID := range ids {
		if err := insertParticipant(ctx, tx, id, userID, now); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("Commit: %w", err)
	}

	return s.GetRoomByID(ctx, id)
}

func insertParticipant(ctx context.Context, db execer, roomID, userID string, joinedAt time.Time) error {
	query := `
	INSERT INTO chatroom_participants (chatroom_id, user_id, joined_at)
	VALUES (@chatroom_id, @user_id, @joined_at) ON CONFLICT DO NOTHING`
	_, err := db.ExecContext(ctx, query,
		sql.Named("chatroom_id", roomID), sql.Named("user_id", userID), sql.Named("joined_at", joinedAt))
	if err != nil {
		return fmt.Errorf("ExecContext(insert chatroom_participants): %w", err)
	}
	return nil
}

func (s *SQLiteChatStore) getDirectRoom(ctx context.Context, userA, userB string) (*ChatRoom, error) {
	query := `
	SELECT c.chatroom_id
	FROM chatrooms AS c
	INNER JOIN chatroom_participants AS a ON a.chatroom_id = c.chatroom_id AND a.user_id = @user_a
	INNER JOIN chatroom_participants AS b ON b.chatroom_id = c.chatroom_id AND b.user_id = @user_b
	WHERE c.is_direct = 1
	LIMIT 1`
	var id string
	err := s.db.QueryRowContext(ctx, query, sql.Named("user_a", userA), sql.Named("user_b", userB)).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scanning chatroom_id: %w", err)
	}
	return s.GetRoomByID(ctx, id)
}

func (s *SQLiteChatStore) GetRoomByID(ctx context.Context, roomID string) (*ChatRoom, error) {
	var (
		room      ChatRoom
		createdBy sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT chatroom_id, name, is_direct, created_by, created_at FROM chatrooms WHERE chatroom_id = ?", roomID).
		Scan(&room.ID, &room.Name, &room.IsDirect, &createdBy, &room.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scanning chatroom: %w", err)
	}
	if createdBy.Valid {
		room.CreatedBy = &createdBy.String
	}

	participants, err := s.getParticipants(ctx, roomID)
	if err != nil {
		return nil, err
	}
	room.Participants = participants
	return &room, nil
}

func (s *SQLiteChatStore) getParticipants(ctx context.Context, roomID string) ([]Participant, error) {
	query := `
	SELECT u.user_id, u.username, cp.joined_at
	FROM chatroom_participants AS cp
	INNER JOIN users AS u ON u.user_id = cp.user_id
	WHERE cp.chatroom_id = ?
	ORDER BY u.username ASC`
	rows, err := s.db.QueryContext(ctx, query, roomID)
	if err != nil {
		return nil, fmt.Errorf("QueryContext(select chatroom_participants): %w", err)
	}
	defer rows.Close()

	participants := []Participant{}
	for rows.Next() {
		var p Participant
		if err := rows.Scan(&p.UserID, &p.Username, &p.JoinedAt); err != nil {
			return nil, fmt.Errorf("rows.Scan: %w", err)
		}
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows.Err: %w", err)
	}
	return participants, nil
}

func (s *SQLiteChatStore) queryRooms(ctx context.Context, query string, args ...any) ([]ChatRoom, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("QueryContext: %w", err)
	}

	rooms := []ChatRoom{}
	for rows.Next() {
		var (
			room      ChatRoom
			createdBy sql.NullString
		)
		if err := rows.Scan(&room.ID, &room.Name, &room.IsDirect, &createdBy, &room.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("rows.Scan: %w", err)
		}
		if createdBy.Valid {
			room.CreatedBy = &createdBy.String
		}
		rooms = append(rooms, room)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows.Err: %w", err)
	}

	for i := range rooms {
		participants, err := s.getParticipants(ctx, rooms[i].ID)
		if err != nil {
			return nil, err
		}
		rooms[i].Participants = participants
	}
	return rooms, nil
}

func (s *SQLiteChatStore) GetUserRooms(ctx context.Context, userID string) ([]ChatRoom, error) {
	query := `
	SELECT c.chatroom_id, c.name, c.is_direct, c.created_by, c.created_at
	FROM chatrooms AS c
	INNER JOIN chatroom_participants AS cp ON cp.chatroom_id = c.chatroom_id
	WHERE cp.user_id = ?
	ORDER BY c.name ASC`
	return s.queryRooms(ctx, query, userID)
}

func (s *SQLiteChatStore) GetRooms(ctx context.Context) ([]ChatRoom, error) {
	return s.queryRooms(ctx,
		"SELECT chatroom_id, name, is_direct, created_by, created_at FROM chatrooms ORDER BY name ASC")
}

func (s *SQLiteChatStore) IsRoomParticipant(ctx context.Context, roomID, userID string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT count(*) FROM chatroom_participants WHERE chatroom_id = @chatroom_id AND user_id = @user_id",
		sql.Named("chatroom_id", roomID), sql.Named("user_id", userID)).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("scanning count: %w", err)
	}
	return count > 0, nil
}

func (s *SQLiteChatStore) roomExists(ctx context.Context, roomID string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT count(*) FROM chatrooms WHERE chatroom_id = ?", roomID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("scanning count: %w", err)
	}
	return count > 0, nil
}

func (s *SQLiteChatStore) CreateMessage(ctx context.Context, input MessageCreateInput) (*Message, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	ok, err := s.roomExists(ctx, input.ChatroomID)
	if err != nil {
		return nil, fmt.Errorf("roomExists: %w", err)
	}
	if !ok {
		return nil, ErrRoomNotFound
	}

	sender, err := s.userStore.GetUserByID(ctx, input.SentBy)
	if err != nil {
		return nil, fmt.Errorf("GetUserByID(sender): %w", err)
	}
	if sender == nil {
		return nil, ErrUserNotFound
	}

	message := &Message{
		Content:    input.Content,
		ChatroomID: input.ChatroomID,
		SentBy:     input.SentBy,
		CreatedAt:  time.Now().UTC(),
	}

	if input.ReceiverID != "" {
		receiver, err := s.userStore.GetUserByID(ctx, input.ReceiverID)
		if err != nil {
			return nil, fmt.Errorf("GetUserByID(receiver): %w", err)
		}
		if receiver != nil {
			message.ReceiverID = &receiver.ID
		}
	}

	var receiverID sql.NullString
	if message.ReceiverID != nil {
		receiverID = sql.NullString{String: *message.ReceiverID, Valid: true}
	}

	query := `
	INSERT INTO messages (message_id, chatroom_id, sent_by, receiver_id, content, is_read, created_at)
	VALUES (@message_id, @chatroom_id, @sent_by, @receiver_id, @content, 0, @created_at)`
	for attempt := 1; ; attempt++ {
		message.ID = NewMessageID()
		_, err = s.db.ExecContext(ctx, query,
			sql.Named("message_id", message.ID), sql.Named("chatroom_id", message.ChatroomID),
			sql.Named("sent_by", message.SentBy), sql.Named("receiver_id", receiverID),
			sql.Named("content", message.Content), sql.Named("created_at", message.CreatedAt))
		if err == nil {
			break
		}
		if isPrimaryKeyConflict(err) && attempt < maxMessageIDAttempts {
			continue
		}
		return nil, fmt.Errorf("ExecContext(insert message): %w", err)
	}

	return message, nil
}

func isPrimaryKeyConflict(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

func (s *SQLiteChatStore) MarkRead(ctx context.Context, messageIDs []string) (int64, error) {
	if len(messageIDs) == 0 {
		return 0, nil
	}

	values := make([]interface{}, 0, len(messageIDs))
	for _, id := range messageIDs {
		values = append(values, id)
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE messages SET is_read = 1 WHERE message_id IN ("+strings.Repeat("?,", len(messageIDs)-1)+"?)",
		values...)
	if err != nil {
		return 0, fmt.Errorf("ExecContext: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("RowsAffected: %w", err)
	}
	return n, nil
}

func (s *SQLiteChatStore) GetRoomMessages(ctx context.Context, roomID string, offset, limit int) ([]Message, error) {
	query := `
	SELECT message_id, content, chatroom_id, sent_by, receiver_id, is_read, created_at
	FROM messages
	WHERE chatroom_id = @chatroom_id
	ORDER BY created_at DESC, rowid DESC
	LIMIT @limit OFFSET @offset
	`
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, query,
		sql.Named("chatroom_id", roomID), sql.Named("offset", max(offset, 0)), sql.Named("limit", limit))
	if err != nil {
		return nil, fmt.Errorf("QueryContext: %w", err)
	}
	defer rows.Close()

	messages := []Message{}
	for rows.Next() {
		var (
			message    Message
			receiverID sql.NullString
		)
		if err := rows.Scan(&message.ID, &message.Content, &message.ChatroomID, &message.SentBy,
			&receiverID, &message.IsRead, &message.CreatedAt); err != nil {
			return nil, fmt.Errorf("rows.Scan: %w", err)
		}
		if receiverID.Valid {
			message.ReceiverID = &receiverID.String
		}
		messages = append(messages, message)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows.Err: %w", err)
	}

	slices.Reverse(messages)

	return messages, nil
}
