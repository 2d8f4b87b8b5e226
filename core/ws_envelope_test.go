package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeInbound(t *testing.T) {
	testCases := []struct {
		name string
		data string
		want Inbound
		err  error
	}{
		{name: "not json", data: `{"type":`, err: ErrMalformedEnvelope},
		{name: "not an object", data: `["chat_message"]`, err: ErrMalformedEnvelope},
		{name: "missing type", data: `{"content":"hi"}`, err: ErrMalformedEnvelope},
		{name: "unknown type", data: `{"type":"dance"}`, err: ErrUnknownEnvelopeType},
		{name: "missing content", data: `{"type":"chat_message","chatroom":"chat-1"}`, err: ErrMalformedEnvelope},
		{name: "wrong field type", data: `{"type":"mark_read","message_ids":"msg-1"}`, err: ErrMalformedEnvelope},
		{name: "missing message ids", data: `{"type":"mark_read"}`, err: ErrMalformedEnvelope},
		{name: "missing sdp", data: `{"type":"call_offer","userId":"u1"}`, err: ErrMalformedEnvelope},
		{name: "missing call user", data: `{"type":"call_end"}`, err: ErrMalformedEnvelope},
		{
			name: "chat message",
			data: `{"type":"chat_message","content":"hi","chatroom_id":"chat-1","receiver_id":"u2"}`,
			want: ChatMessageIn{Content: "hi", ChatroomID: "chat-1", ReceiverID: "u2"},
		},
		{
			name: "empty mark read",
			data: `{"type":"mark_read","message_ids":[]}`,
			want: MarkReadIn{MessageIDs: []string{}},
		},
		{
			name: "typing",
			data: `{"type":"typing","user_id":"u1","is_typing":false}`,
			want: TypingIn{UserID: "u1", IsTyping: ptr(false)},
		},
		{
			name: "call end",
			data: `{"type":"call_end","userId":"u1"}`,
			want: CallEndIn{UserID: "u1"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			in, err := DecodeInbound([]byte(tc.data))
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
				assert.Nil(t, in)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, in)
		})
	}
}

type recordingHandler struct {
	calls []string
}

func (h *recordingHandler) OnChatMessage(context.Context, ChatMessageIn) error {
	h.calls = append(h.calls, TypeChatMessage)
	return nil
}

func (h *recordingHandler) OnMarkRead(context.Context, MarkReadIn) error {
	h.calls = append(h.calls, TypeMarkRead)
	return nil
}

func (h *recordingHandler) OnTyping(context.Context, TypingIn) error {
	h.calls = append(h.calls, TypeTyping)
	return nil
}

func (h *recordingHandler) OnCallOffer(context.Context, CallOfferIn) error {
	h.calls = append(h.calls, TypeCallOffer)
	return nil
}

func (h *recordingHandler) OnCallAnswer(context.Context, CallAnswerIn) error {
	h.calls = append(h.calls, TypeCallAnswer)
	return nil
}

func (h *recordingHandler) OnICECandidate(context.Context, ICECandidateIn) error {
	h.calls = append(h.calls, TypeICECandidate)
	return nil
}

func (h *recordingHandler) OnCallEnd(context.Context, CallEndIn) error {
	h.calls = append(h.calls, TypeCallEnd)
	return nil
}

func TestInboundAccept(t *testing.T) {
	frames := []string{
		`{"type":"chat_message","content":"hi"}`,
		`{"type":"mark_read","message_ids":["msg-1"]}`,
		`{"type":"typing","user_id":"u1"}`,
		`{"type":"call_offer","userId":"u1","sdp":{"sdp":"v=0"}}`,
		`{"type":"call_answer","userId":"u1","sdp":{"sdp":"v=0"}}`,
		`{"type":"ice_candidate","userId":"u1","candidate":{"candidate":"c"}}`,
		`{"type":"call_end","userId":"u1"}`,
	}

	h := &recordingHandler{}
	for _, frame := range frames {
		in, err := DecodeInbound([]byte(frame))
		require.NoError(t, err, frame)
		require.NoError(t, in.Accept(context.Background(), h))
	}

	assert.Equal(t, []string{
		TypeChatMessage, TypeMarkRead, TypeTyping, TypeCallOffer, TypeCallAnswer, TypeICECandidate, TypeCallEnd,
	}, h.calls)
}

func TestOutboundEvents(t *testing.T) {
	assert.Equal(t, TypingEvent{Type: TypeTyping, UserID: "u1", Username: "User"}, NewTypingEvent(TypingIn{UserID: "u1"}))
	assert.Equal(t, TypingEvent{Type: TypeTyping, UserID: "u1", Username: "Al", IsTyping: true},
		NewTypingEvent(TypingIn{UserID: "u1", Username: ptr("Al"), IsTyping: ptr(true)}))

	read := NewMessagesReadEvent(nil, "u1")
	assert.NotNil(t, read.MessageIDs)
	assert.Empty(t, read.MessageIDs)

	assert.Equal(t, "Connected to chat room chat-1", NewConnectionEstablishedEvent("chat-1").Message)
}
