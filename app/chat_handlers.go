package projecthub

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/putto11262002/projecthub/core"
	"github.com/putto11262002/projecthub/pkg/router"
)

type ChatHandler struct {
	chatStore core.ChatStore
	access    *core.MembershipAuthority
	hub       *core.Hub
}

func NewChatHandler(chatStore core.ChatStore, hub *core.Hub) *ChatHandler {
	return &ChatHandler{
		chatStore: chatStore,
		access:    core.NewMembershipAuthority(chatStore),
		hub:       hub,
	}
}

// ConnectHandler upgrades the request to a websocket bound to the room in the path.
// Refusals are reported to the client as close frames, so the handler never fails.
func (h *ChatHandler) ConnectHandler(w http.ResponseWriter, r *http.Request) error {
	h.hub.Connect(w, r, chi.URLParam(r, "room"))
	return nil
}

func (h *ChatHandler) GetRoomsHandler(w http.ResponseWriter, r *http.Request) error {
	session := core.SessionFromRequest(r)
	var rooms []core.ChatRoom
	var err error
	if session.IsAdmin() {
		rooms, err = h.chatStore.GetRooms(r.Context())
	} else {
		rooms, err = h.chatStore.GetUserRooms(r.Context(), session.UserID)
	}
	if err != nil {
		return err
	}
	return router.WriteJSON(w, http.StatusOK, emptyIfNil(rooms))
}

func (h *ChatHandler) CreateRoomHandler(w http.ResponseWriter, r *http.Request) error {
	session := core.SessionFromRequest(r)
	var input core.ChatRoomCreateInput
	if err := decodeJSON(r, &input); err != nil {
		return err
	}

	room, err := h.chatStore.CreateRoom(r.Context(), session.UserID, input)
	if err != nil {
		return err
	}
	return router.WriteJSON(w, http.StatusCreated, room)
}

// authorizeRoom resolves the canonical id of a room the identity may access.
func (h *ChatHandler) authorizeRoom(ctx context.Context, identity core.Identity, roomToken string) (*core.ChatRoom, error) {
	room, err := h.chatStore.GetRoomByID(ctx, core.NormalizeRoomID(roomToken))
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, router.NotFound(core.ErrRoomNotFound.Error())
	}
	ok, err := h.access.CanAccess(ctx, identity, room.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, router.Forbidden("you are not in this room")
	}
	return room, nil
}

func (h *ChatHandler) GetRoomHandler(w http.ResponseWriter, r *http.Request) error {
	session := core.SessionFromRequest(r)
	room, err := h.authorizeRoom(r.Context(), session.Identity, chi.URLParam(r, "roomID"))
	if err != nil {
		return err
	}
	return router.WriteJSON(w, http.StatusOK, room)
}

func (h *ChatHandler) GetRoomMessagesHandler(w http.ResponseWriter, r *http.Request) error {
	session := core.SessionFromRequest(r)
	offset, limit, err := paging(r)
	if err != nil {
		return err
	}
	room, err := h.authorizeRoom(r.Context(), session.Identity, chi.URLParam(r, "roomID"))
	if err != nil {
		return err
	}

	messages, err := h.chatStore.GetRoomMessages(r.Context(), room.ID, offset, limit)
	if err != nil {
		return err
	}
	return router.WriteJSON(w, http.StatusOK, emptyIfNil(messages))
}

type SendMessagePayload struct {
	Content    string `json:"content"`
	ChatroomID string `json:"chatroom_id"`
	ReceiverID string `json:"receiver_id"`
}

// SendMessageHandler persists a message and pushes it to the connections of the room.
func (h *ChatHandler) SendMessageHandler(w http.ResponseWriter, r *http.Request) error {
	session := core.SessionFromRequest(r)
	var payload SendMessagePayload
	if err := decodeJSON(r, &payload); err != nil {
		return err
	}
	if payload.ChatroomID == "" {
		return router.BadRequest("chatroom_id is required")
	}

	room, err := h.authorizeRoom(r.Context(), session.Identity, payload.ChatroomID)
	if err != nil {
		return err
	}

	message, err := h.chatStore.CreateMessage(r.Context(), core.MessageCreateInput{
		Content:    payload.Content,
		ChatroomID: room.ID,
		SentBy:     session.UserID,
		ReceiverID: payload.ReceiverID,
	})
	if err != nil {
		return err
	}

	if _, err := h.hub.Publish(room.ID, core.NewChatMessageEvent(*message)); err != nil {
		return err
	}
	return router.WriteJSON(w, http.StatusCreated, message)
}

type MarkReadPayload struct {
	MessageIDs []string `json:"message_ids"`
	ChatroomID string   `json:"chatroom_id"`
}

type MarkReadResponse struct {
	Updated int64 `json:"updated"`
}

// MarkReadHandler flags the messages as read and notifies the room they belong to.
func (h *ChatHandler) MarkReadHandler(w http.ResponseWriter, r *http.Request) error {
	session := core.SessionFromRequest(r)
	var payload MarkReadPayload
	if err := decodeJSON(r, &payload); err != nil {
		return err
	}
	if payload.ChatroomID == "" {
		return router.BadRequest("chatroom_id is required")
	}

	room, err := h.authorizeRoom(r.Context(), session.Identity, payload.ChatroomID)
	if err != nil {
		return err
	}

	n, err := h.chatStore.MarkRead(r.Context(), payload.MessageIDs)
	if err != nil {
		return err
	}

	if _, err := h.hub.Publish(room.ID, core.NewMessagesReadEvent(payload.MessageIDs, session.UserID)); err != nil {
		return err
	}
	return router.WriteJSON(w, http.StatusOK, MarkReadResponse{Updated: n})
}
