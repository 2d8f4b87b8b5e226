package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
)

// handleFrame decodes and dispatches one inbound frame.
// Failures are contained to the frame: it is dropped and the connection stays open.
func (h *Hub) handleFrame(ctx context.Context, c *Conn, data []byte) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("envelope handler panicked",
				slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
		}
	}()

	in, err := DecodeInbound(data)
	if err != nil {
		if errors.Is(err, ErrUnknownEnvelopeType) {
			c.logger.Debug("ignoring unknown envelope", slog.String("error", err.Error()))
			return
		}
		c.logger.Debug("dropping malformed envelope", slog.String("error", err.Error()))
		return
	}

	if err := in.Accept(ctx, &envelopeHandler{hub: h, conn: c}); err != nil {
		c.logger.Error("handling envelope", slog.String("type", in.Type()), slog.String("error", err.Error()))
	}
}

// envelopeHandler handles the envelopes of one connection.
type envelopeHandler struct {
	hub  *Hub
	conn *Conn
}

var _ InboundHandler = (*envelopeHandler)(nil)

func (e *envelopeHandler) broadcast(event any) error {
	if _, err := e.hub.Publish(e.conn.RoomID(), event); err != nil {
		return fmt.Errorf("Publish: %w", err)
	}
	return nil
}

// OnChatMessage persists the message and broadcasts it to the connection's room.
// An explicit chatroom or sender in the payload overrides the connection's room and identity
// for persistence.
func (e *envelopeHandler) OnChatMessage(ctx context.Context, in ChatMessageIn) error {
	roomID := e.conn.RoomID()
	switch {
	case in.ChatroomID != "":
		roomID = NormalizeRoomID(in.ChatroomID)
	case in.Chatroom != "":
		roomID = NormalizeRoomID(in.Chatroom)
	}

	senderID := in.SenderID
	if senderID == "" {
		senderID = e.conn.Identity().UserID
	}

	message, err := e.hub.messages.CreateMessage(ctx, MessageCreateInput{
		Content:    in.Content,
		ChatroomID: roomID,
		SentBy:     senderID,
		ReceiverID: in.ReceiverID,
	})
	if err != nil {
		return fmt.Errorf("CreateMessage: %w", err)
	}

	return e.broadcast(NewChatMessageEvent(*message))
}

func (e *envelopeHandler) OnMarkRead(ctx context.Context, in MarkReadIn) error {
	if _, err := e.hub.messages.MarkRead(ctx, in.MessageIDs); err != nil {
		return fmt.Errorf("MarkRead: %w", err)
	}

	userID := in.UserID
	if userID == "" {
		userID = e.conn.Identity().UserID
	}
	return e.broadcast(NewMessagesReadEvent(in.MessageIDs, userID))
}

func (e *envelopeHandler) OnTyping(_ context.Context, in TypingIn) error {
	return e.broadcast(NewTypingEvent(in))
}

func (e *envelopeHandler) OnCallOffer(_ context.Context, in CallOfferIn) error {
	return e.broadcast(NewCallOfferEvent(in))
}

func (e *envelopeHandler) OnCallAnswer(_ context.Context, in CallAnswerIn) error {
	return e.broadcast(NewCallAnswerEvent(in))
}

func (e *envelopeHandler) OnICECandidate(_ context.Context, in ICECandidateIn) error {
	return e.broadcast(NewICECandidateEvent(in))
}

func (e *envelopeHandler) OnCallEnd(_ context.Context, in CallEndIn) error {
	return e.broadcast(NewCallEndEvent(in))
}
