package core

import "strings"

const (
	roomPrefix       = "chat-"
	legacyRoomPrefix = "chat_"
)

// NormalizeRoomID maps every accepted room token to its canonical form chat-<id>.
// chat_<id> and chat-<id> are equivalent and a bare <id> is prefixed.
// Only the leading prefix is rewritten, the id itself is kept verbatim.
// NormalizeRoomID(NormalizeRoomID(x)) == NormalizeRoomID(x) for every x.
func NormalizeRoomID(token string) string {
	if strings.HasPrefix(token, roomPrefix) {
		return token
	}
	if id, ok := strings.CutPrefix(token, legacyRoomPrefix); ok {
		return roomPrefix + id
	}
	return roomPrefix + token
}
