package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

const (
	TypeConnectionEstablished = "connection_established"
	TypeChatMessage           = "chat_message"
	TypeMarkRead              = "mark_read"
	TypeMessagesRead          = "messages_read"
	TypeTyping                = "typing"
	TypeCallOffer             = "call_offer"
	TypeCallAnswer            = "call_answer"
	TypeICECandidate          = "ice_candidate"
	TypeCallEnd               = "call_end"
)

var (
	ErrMalformedEnvelope   = errors.New("malformed envelope")
	ErrUnknownEnvelopeType = errors.New("unknown envelope type")
)

// Inbound is a decoded client envelope.
// The set of implementations is closed: only this package can add one,
// and adding one requires a new method on InboundHandler.
type Inbound interface {
	Type() string
	Accept(ctx context.Context, h InboundHandler) error
	inbound()
}

// InboundHandler receives every kind of inbound envelope.
type InboundHandler interface {
	OnChatMessage(ctx context.Context, in ChatMessageIn) error
	OnMarkRead(ctx context.Context, in MarkReadIn) error
	OnTyping(ctx context.Context, in TypingIn) error
	OnCallOffer(ctx context.Context, in CallOfferIn) error
	OnCallAnswer(ctx context.Context, in CallAnswerIn) error
	OnICECandidate(ctx context.Context, in ICECandidateIn) error
	OnCallEnd(ctx context.Context, in CallEndIn) error
}

type ChatMessageIn struct {
	Content string `json:"content" validate:"required"`
	// Chatroom and ChatroomID both name the target room, ChatroomID wins when both are set.
	Chatroom   string `json:"chatroom"`
	ChatroomID string `json:"chatroom_id"`
	SenderID   string `json:"sender_id"`
	ReceiverID string `json:"receiver_id"`
}

type MarkReadIn struct {
	MessageIDs []string `json:"message_ids" validate:"required"`
	UserID     string   `json:"user_id"`
}

type TypingIn struct {
	UserID   string  `json:"user_id" validate:"required"`
	Username *string `json:"username"`
	IsTyping *bool   `json:"is_typing"`
}

type CallOfferIn struct {
	UserID      string          `json:"userId" validate:"required"`
	SDP         json.RawMessage `json:"sdp" validate:"required"`
	IsAudioOnly bool            `json:"isAudioOnly"`
}

type CallAnswerIn struct {
	UserID string          `json:"userId" validate:"required"`
	SDP    json.RawMessage `json:"sdp" validate:"required"`
}

type ICECandidateIn struct {
	UserID    string          `json:"userId" validate:"required"`
	Candidate json.RawMessage `json:"candidate" validate:"required"`
}

type CallEndIn struct {
	UserID string `json:"userId" validate:"required"`
}

func (ChatMessageIn) Type() string  { return TypeChatMessage }
func (MarkReadIn) Type() string     { return TypeMarkRead }
func (TypingIn) Type() string       { return TypeTyping }
func (CallOfferIn) Type() string    { return TypeCallOffer }
func (CallAnswerIn) Type() string   { return TypeCallAnswer }
func (ICECandidateIn) Type() string { return TypeICECandidate }
func (CallEndIn) Type() string      { return TypeCallEnd }

func (in ChatMessageIn) Accept(ctx context.Context, h InboundHandler) error {
	return h.OnChatMessage(ctx, in)
}

func (in MarkReadIn) Accept(ctx context.Context, h InboundHandler) error {
	return h.OnMarkRead(ctx, in)
}

func (in TypingIn) Accept(ctx context.Context, h InboundHandler) error {
	return h.OnTyping(ctx, in)
}

func (in CallOfferIn) Accept(ctx context.Context, h InboundHandler) error {
	return h.OnCallOffer(ctx, in)
}

func (in CallAnswerIn) Accept(ctx context.Context, h InboundHandler) error {
	return h.OnCallAnswer(ctx, in)
}

func (in ICECandidateIn) Accept(ctx context.Context, h InboundHandler) error {
	return h.OnICECandidate(ctx, in)
}

func (in CallEndIn) Accept(ctx context.Context, h InboundHandler) error {
	return h.OnCallEnd(ctx, in)
}

func (ChatMessageIn) inbound()  {}
func (MarkReadIn) inbound()     {}
func (TypingIn) inbound()       {}
func (CallOfferIn) inbound()    {}
func (CallAnswerIn) inbound()   {}
func (ICECandidateIn) inbound() {}
func (CallEndIn) inbound()      {}

func decodeAs[T Inbound](data []byte) (Inbound, error) {
	var in T
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	return in, nil
}

var inboundDecoders = map[string]func([]byte) (Inbound, error){
	TypeChatMessage:  decodeAs[ChatMessageIn],
	TypeMarkRead:     decodeAs[MarkReadIn],
	TypeTyping:       decodeAs[TypingIn],
	TypeCallOffer:    decodeAs[CallOfferIn],
	TypeCallAnswer:   decodeAs[CallAnswerIn],
	TypeICECandidate: decodeAs[ICECandidateIn],
	TypeCallEnd:      decodeAs[CallEndIn],
}

// DecodeInbound decodes a client frame.
// It returns ErrMalformedEnvelope when the frame is not a JSON object or misses a required field,
// and ErrUnknownEnvelopeType when the type tag is not recognized.
func DecodeInbound(data []byte) (Inbound, error) {
	var head struct {
		Type *string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if head.Type == nil {
		return nil, fmt.Errorf("%w: missing type", ErrMalformedEnvelope)
	}
	decode, ok := inboundDecoders[*head.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEnvelopeType, *head.Type)
	}
	return decode(data)
}

type ConnectionEstablishedEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type ChatMessageEvent struct {
	Type    string  `json:"type"`
	Message Message `json:"message"`
}

type MessagesReadEvent struct {
	Type       string   `json:"type"`
	MessageIDs []string `json:"message_ids"`
	UserID     string   `json:"user_id"`
}

type TypingEvent struct {
	Type     string `json:"type"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	IsTyping bool   `json:"is_typing"`
}

type CallOfferEvent struct {
	Type        string          `json:"type"`
	UserID      string          `json:"userId"`
	SDP         json.RawMessage `json:"sdp"`
	IsAudioOnly bool            `json:"isAudioOnly"`
}

type CallAnswerEvent struct {
	Type   string          `json:"type"`
	UserID string          `json:"userId"`
	SDP    json.RawMessage `json:"sdp"`
}

type ICECandidateEvent struct {
	Type      string          `json:"type"`
	UserID    string          `json:"userId"`
	Candidate json.RawMessage `json:"candidate"`
}

type CallEndEvent struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
}

func NewConnectionEstablishedEvent(roomID string) ConnectionEstablishedEvent {
	return ConnectionEstablishedEvent{
		Type:    TypeConnectionEstablished,
		Message: "Connected to chat room " + roomID,
	}
}

func NewChatMessageEvent(m Message) ChatMessageEvent {
	return ChatMessageEvent{Type: TypeChatMessage, Message: m}
}

func NewMessagesReadEvent(messageIDs []string, userID string) MessagesReadEvent {
	if messageIDs == nil {
		messageIDs = []string{}
	}
	return MessagesReadEvent{Type: TypeMessagesRead, MessageIDs: messageIDs, UserID: userID}
}

const defaultTypingUsername = "User"

func NewTypingEvent(in TypingIn) TypingEvent {
	e := TypingEvent{Type: TypeTyping, UserID: in.UserID, Username: defaultTypingUsername}
	if in.Username != nil {
		e.Username = *in.Username
	}
	if in.IsTyping != nil {
		e.IsTyping = *in.IsTyping
	}
	return e
}

func NewCallOfferEvent(in CallOfferIn) CallOfferEvent {
	return CallOfferEvent{Type: TypeCallOffer, UserID: in.UserID, SDP: in.SDP, IsAudioOnly: in.IsAudioOnly}
}

func NewCallAnswerEvent(in CallAnswerIn) CallAnswerEvent {
	return CallAnswerEvent{Type: TypeCallAnswer, UserID: in.UserID, SDP: in.SDP}
}

func NewICECandidateEvent(in ICECandidateIn) ICECandidateEvent {
	return ICECandidateEvent{Type: TypeICECandidate, UserID: in.UserID, Candidate: in.Candidate}
}

func NewCallEndEvent(in CallEndIn) CallEndEvent {
	return CallEndEvent{Type: TypeCallEnd, UserID: in.UserID}
}
