package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeRoomID(t *testing.T) {
	tcs := []struct {
		in  string
		exp string
	}{
		{in: "chat_42", exp: "chat-42"},
		{in: "chat-42", exp: "chat-42"},
		{in: "42", exp: "chat-42"},
		{in: "chat_a_b", exp: "chat-a_b"},
		{in: "chat-chat_1", exp: "chat-chat_1"},
		{in: "chatroom", exp: "chat-chatroom"},
		{in: "", exp: "chat-"},
	}

	for _, tc := range tcs {
		t.Run(tc.in, func(t *testing.T) {
			got := NormalizeRoomID(tc.in)
			assert.Equal(t, tc.exp, got)
			assert.Equal(t, got, NormalizeRoomID(got), "normalization must be idempotent")
		})
	}
}

func TestNormalizeRoomIDEquivalentForms(t *testing.T) {
	canonical := NormalizeRoomID("chat-7")
	for _, form := range []string{"chat_7", "7", "chat-7"} {
		assert.Equal(t, canonical, NormalizeRoomID(form))
	}
}
