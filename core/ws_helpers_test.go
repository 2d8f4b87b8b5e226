package core

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/putto11262002/projecthub/pkg/router"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var baseTimeout = time.Second

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// hubFixture serves a hub behind the same route and middleware the api uses.
type hubFixture struct {
	*StoreFixture
	hub    *Hub
	server *httptest.Server
	users  map[string]User
}

func setUpHubFixture(t *testing.T, rooms RoomStore, opts ...HubOption) *hubFixture {
	f := &hubFixture{StoreFixture: NewStoreFixture(t), users: make(map[string]User)}
	for _, u := range seedUsers(f.StoreFixture, alice, bob, carol, admin) {
		f.users[u.Username] = u
	}

	if rooms == nil {
		rooms = f.chatStore
	}
	opts = append([]HubOption{WithLogger(discardLogger)}, opts...)
	f.hub = NewHub(f.ctx, rooms, f.chatStore, f.chatStore, opts...)

	r := router.New(router.WithLogger(discardLogger))
	r.With(OptionalAuthMiddleware(f.authStore)).Get("/ws/chat/{room}", func(w http.ResponseWriter, r *http.Request) error {
		f.hub.Connect(w, r, chi.URLParam(r, "room"))
		return nil
	})
	f.server = httptest.NewServer(r)

	storeTearDown := f.tearDown
	f.tearDown = func() {
		f.hub.Close()
		f.server.Close()
		storeTearDown()
	}
	return f
}

// token logs the user in and returns the issued token.
func (f *hubFixture) token(input UserCreateInput) string {
	session, err := f.authStore.NewSession(f.ctx, input.Username, input.Password)
	require.NoError(f.t, err)
	return session.Token
}

// dial opens a websocket to the room. An empty token dials anonymously.
func (f *hubFixture) dial(token, room string) *testWSClient {
	u, err := url.Parse(strings.Replace(f.server.URL, "http://", "ws://", 1) + "/ws/chat/" + room)
	require.NoError(f.t, err)
	if token != "" {
		q := u.Query()
		q.Set(authQueryParam, token)
		u.RawQuery = q.Encode()
	}

	conn, res, err := websocket.DefaultDialer.Dial(u.String(), nil)
	require.NoError(f.t, err)
	require.Equal(f.t, http.StatusSwitchingProtocols, res.StatusCode)

	c := &testWSClient{conn: conn, t: f.t}
	f.t.Cleanup(func() { conn.Close() })
	return c
}

// join dials the room as input and consumes the connection_established frame.
func (f *hubFixture) join(input UserCreateInput, room string) *testWSClient {
	c := f.dial(f.token(input), room)
	var established ConnectionEstablishedEvent
	c.readEvent(&established)
	require.Equal(f.t, TypeConnectionEstablished, established.Type)
	return c
}

type testWSClient struct {
	conn *websocket.Conn
	t    *testing.T
}

func (c *testWSClient) send(v any) {
	require.NoError(c.t, c.conn.WriteJSON(v))
}

func (c *testWSClient) sendRaw(data string) {
	require.NoError(c.t, c.conn.WriteMessage(websocket.TextMessage, []byte(data)))
}

func (c *testWSClient) read() []byte {
	c.conn.SetReadDeadline(time.Now().Add(baseTimeout))
	_, data, err := c.conn.ReadMessage()
	require.NoError(c.t, err)
	return data
}

// readEvent reads the next frame into v. It fails the test when the frame is of another type
// than the one v decodes to, so callers assert ordering with it.
func (c *testWSClient) readEvent(v any) {
	require.NoError(c.t, json.Unmarshal(c.read(), v))
}

func (c *testWSClient) readType() (string, []byte) {
	data := c.read()
	var head struct {
		Type string `json:"type"`
	}
	require.NoError(c.t, json.Unmarshal(data, &head))
	return head.Type, data
}

// expectClose reads until the server closes the connection and returns the close code.
func (c *testWSClient) expectClose() int {
	c.conn.SetReadDeadline(time.Now().Add(baseTimeout))
	for {
		_, _, err := c.conn.ReadMessage()
		if err == nil {
			continue
		}
		var closeErr *websocket.CloseError
		require.True(c.t, errors.As(err, &closeErr), "expected close frame, got %v", err)
		return closeErr.Code
	}
}

func (c *testWSClient) close() {
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.conn.Close()
}

type mockRoomStore struct {
	mock.Mock
}

func (m *mockRoomStore) GetRoomByID(ctx context.Context, roomID string) (*ChatRoom, error) {
	args := m.Called(ctx, roomID)
	room, _ := args.Get(0).(*ChatRoom)
	return room, args.Error(1)
}

type mockMembershipChecker struct {
	mock.Mock
}

func (m *mockMembershipChecker) IsRoomParticipant(ctx context.Context, roomID, userID string) (bool, error) {
	args := m.Called(ctx, roomID, userID)
	return args.Bool(0), args.Error(1)
}
