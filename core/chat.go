package core

import (
	"context"
	"errors"
	"time"
)

// ChatRoom is a chat room and its participants.
// A direct room has exactly two participants and at most one exists per pair of users.
type ChatRoom struct {
	ID           string        `json:"chatroom_id"`
	Name         string        `json:"name"`
	IsDirect     bool          `json:"is_direct"`
	CreatedBy    *string       `json:"created_by"`
	CreatedAt    time.Time     `json:"created_at"`
	Participants []Participant `json:"participants"`
}

type Participant struct {
	UserID   string    `json:"user_id"`
	Username string    `json:"username"`
	JoinedAt time.Time `json:"joined_at"`
}

func (r *ChatRoom) HasParticipant(userID string) bool {
	for _, p := range r.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

// Message is a persisted chat message.
type Message struct {
	ID         string    `json:"message_id"`
	Content    string    `json:"content"`
	ChatroomID string    `json:"chatroom_id"`
	SentBy     string    `json:"sent_by"`
	ReceiverID *string   `json:"receiver_id"`
	IsRead     bool      `json:"is_read"`
	CreatedAt  time.Time `json:"created_at"`
}

var (
	// ErrRoomNotFound is returned when a chat room does not exist.
	ErrRoomNotFound = errors.New("chat room not found")
	// ErrInvalidRoom is returned when a room cannot be created from the given participants.
	ErrInvalidRoom = errors.New("invalid room")
	// ErrInvalidMessage is returned when a message is invalid.
	ErrInvalidMessage = errors.New("invalid message")
)

type ChatRoomCreateInput struct {
	Name string `json:"name" validate:"required_unless=IsDirect true,max=255"`
	// ParticipantIDs lists the users other than the creator.
	ParticipantIDs []string `json:"participant_ids" validate:"dive,required"`
	IsDirect       bool     `json:"is_direct"`
}

// MessageCreateInput represents the input for creating a message.
type MessageCreateInput struct {
	Content string `json:"content" validate:"required"`
	// ChatroomID must be canonical, see NormalizeRoomID.
	ChatroomID string `json:"chatroom_id" validate:"required"`
	SentBy     string `json:"sent_by" validate:"required"`
	// ReceiverID is dropped when the user does not exist.
	ReceiverID string `json:"receiver_id"`
}

// Validate validates the message input.
func (m *MessageCreateInput) Validate() error {
	if err := validate.Struct(m); err != nil {
		return ErrInvalidMessage
	}
	return nil
}

// RoomStore looks chat rooms up by their canonical id.
type RoomStore interface {
	// GetRoomByID returns the room with the given canonical id.
	// If the room is not found, it returns nil.
	GetRoomByID(ctx context.Context, roomID string) (*ChatRoom, error)
}

// MembershipChecker answers whether a user participates in a room.
type MembershipChecker interface {
	IsRoomParticipant(ctx context.Context, roomID, userID string) (bool, error)
}

// MessageStore persists chat messages.
type MessageStore interface {
	// CreateMessage persists a message and returns the stored record.
	// It returns ErrRoomNotFound or ErrUserNotFound if the room or the sender does not exist.
	CreateMessage(ctx context.Context, input MessageCreateInput) (*Message, error)

	// MarkRead sets the read flag of every listed message and returns the number of rows changed.
	// Unknown ids are ignored.
	MarkRead(ctx context.Context, messageIDs []string) (int64, error)
}

type ChatStore interface {
	RoomStore
	MembershipChecker
	MessageStore

	// CreateRoom creates a chat room with the creator and the given participants.
	// If one of the users does not exist, it returns ErrUserNotFound.
	// Duplicate participants are deduplicated.
	// A direct room requires exactly one participant besides the creator,
	// an existing direct room between the two users is returned instead of creating a new one.
	CreateRoom(ctx context.Context, creatorID string, input ChatRoomCreateInput) (*ChatRoom, error)

	// GetUserRooms returns the rooms the user participates in ordered by name.
	GetUserRooms(ctx context.Context, userID string) ([]ChatRoom, error)

	// GetRooms returns every room ordered by name.
	GetRooms(ctx context.Context) ([]ChatRoom, error)

	// GetRoomMessages returns a page of messages of the room ordered oldest first.
	// The page is counted from the newest message.
	// If the limit is a zero value, the limit is set to 100.
	GetRoomMessages(ctx context.Context, roomID string, offset, limit int) ([]Message, error)
}
