package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Close codes sent when a connection cannot be set up.
const (
	CloseUnauthenticated = 4001
	CloseForbidden       = 4003
	CloseRoomNotFound    = 4004
	CloseInternalError   = 4500
)

// ErrHubClosed is returned by Connect once Close has been called.
var ErrHubClosed = errors.New("hub closed")

// SetupPhase names the authorization step at which a connection was refused.
type SetupPhase string

const (
	PhaseIdentity   SetupPhase = "identity"
	PhaseRoomLookup SetupPhase = "room_lookup"
	PhaseMembership SetupPhase = "membership"
)

// SetupError explains why a connection was refused and which close code was sent.
type SetupError struct {
	Phase SetupPhase
	Code  int
	Err   error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("%s: %v (close code %d)", e.Phase, e.Err, e.Code)
}

func (e *SetupError) Unwrap() error {
	return e.Err
}

type WSConfig struct {
	// SendBuffer is the number of frames queued per connection before it is evicted.
	SendBuffer int
	// MaxMessageSize is the largest inbound frame in bytes.
	MaxMessageSize int64
	// PongWait is the time allowed to read the next pong from the peer.
	PongWait time.Duration
	// WriteWait is the time allowed to write a frame to the peer.
	WriteWait time.Duration
}

var DefaultWSConfig = WSConfig{
	SendBuffer:     256,
	MaxMessageSize: 64 << 10,
	PongWait:       60 * time.Second,
	WriteWait:      10 * time.Second,
}

// pings are sent with this period. Must be less than PongWait.
func (c WSConfig) pingPeriod() time.Duration {
	return (c.PongWait * 9) / 10
}

// Hub authorizes websocket connections against chat rooms and relays envelopes
// between the connections of a room.
type Hub struct {
	rooms    RoomStore
	access   *MembershipAuthority
	messages MessageStore
	registry *Registry

	upgrader websocket.Upgrader
	config   WSConfig
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

var defaultUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type HubOption func(*Hub)

func WithCheckOrigin(f func(r *http.Request) bool) HubOption {
	return func(h *Hub) {
		h.upgrader.CheckOrigin = f
	}
}

func WithLogger(l *slog.Logger) HubOption {
	return func(h *Hub) {
		h.logger = l
	}
}

func WithRegistry(r *Registry) HubOption {
	return func(h *Hub) {
		h.registry = r
	}
}

func WithWSConfig(c WSConfig) HubOption {
	return func(h *Hub) {
		h.config = c
	}
}

func NewHub(ctx context.Context, rooms RoomStore, membership MembershipChecker, messages MessageStore, opts ...HubOption) *Hub {
	h := &Hub{
		rooms:    rooms,
		access:   NewMembershipAuthority(membership),
		messages: messages,
		upgrader: defaultUpgrader,
		config:   DefaultWSConfig,
		logger:   slog.New(slog.NewTextHandler(os.Stderr, nil)),
	}

	for _, opt := range opts {
		opt(h)
	}

	if h.registry == nil {
		h.registry = NewRegistry(WithRegistryLogger(h.logger))
	}
	h.ctx, h.cancel = context.WithCancel(ctx)

	return h
}

func (h *Hub) Registry() *Registry {
	return h.registry
}

// Authorize resolves the canonical room a connection may join.
// ok reports whether an identity was resolved for the connection.
func (h *Hub) Authorize(ctx context.Context, identity Identity, ok bool, roomToken string) (string, *SetupError) {
	if !ok || identity.UserID == "" {
		return "", &SetupError{Phase: PhaseIdentity, Code: CloseUnauthenticated, Err: ErrUnauthenticated}
	}

	roomID := NormalizeRoomID(roomToken)
	room, err := h.rooms.GetRoomByID(ctx, roomID)
	if err != nil {
		return "", &SetupError{Phase: PhaseRoomLookup, Code: CloseInternalError, Err: err}
	}
	if room == nil {
		return "", &SetupError{Phase: PhaseRoomLookup, Code: CloseRoomNotFound, Err: ErrRoomNotFound}
	}

	allowed, err := h.access.CanAccess(ctx, identity, roomID)
	if err != nil {
		return "", &SetupError{Phase: PhaseMembership, Code: CloseInternalError, Err: err}
	}
	if !allowed {
		return "", &SetupError{Phase: PhaseMembership, Code: CloseForbidden, Err: ErrUnauthorized}
	}

	return roomID, nil
}

// Connect upgrades the request and binds the connection to the room named by roomToken.
// The identity is taken from the request context. When the connection is refused a close frame
// carrying the code of the returned *SetupError is sent. The response is taken over in every case,
// callers must not write to w afterwards.
func (h *Hub) Connect(w http.ResponseWriter, r *http.Request, roomToken string) error {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("Upgrade: %w", err)
	}

	c := newConn(ws, h.config, h.logger)
	c.advance(StateAuthorizing)

	identity, ok := IdentityFromContext(r.Context())
	roomID, setupErr := h.Authorize(r.Context(), identity, ok, roomToken)
	if setupErr != nil {
		if setupErr.Code == CloseInternalError {
			c.logger.Error("connection setup failed", slog.String("phase", string(setupErr.Phase)),
				slog.String("error", setupErr.Err.Error()))
		} else {
			c.logger.Info("connection refused", slog.String("phase", string(setupErr.Phase)),
				slog.String("room", roomToken), slog.Int("code", setupErr.Code))
		}
		c.closeWithCode(setupErr.Code, closeReason(setupErr.Code))
		return setupErr
	}

	c.identity = identity
	c.roomID = roomID
	c.logger = c.logger.With(slog.String("room", roomID), slog.String("user", identity.UserID))

	frame, err := json.Marshal(NewConnectionEstablishedEvent(roomID))
	if err != nil {
		c.closeWithCode(CloseInternalError, "internal error")
		return fmt.Errorf("json.Marshal: %w", err)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		c.closeWithCode(websocket.CloseGoingAway, "server shutting down")
		return ErrHubClosed
	}

	c.advance(StateActive)
	// queued before joining so it is the first frame the client reads
	c.Send(frame)
	h.registry.Join(roomID, c)

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		c.readLoop(h.ctx, h.handleFrame, h.disconnect)
	}()
	go func() {
		defer h.wg.Done()
		c.writeLoop(h.ctx)
	}()

	c.logger.Info("connection established")
	return nil
}

func closeReason(code int) string {
	switch code {
	case CloseUnauthenticated:
		return "unauthenticated"
	case CloseForbidden:
		return "forbidden"
	case CloseRoomNotFound:
		return "room not found"
	default:
		return "internal error"
	}
}

func (h *Hub) disconnect(c *Conn) {
	h.registry.Leave(c.roomID, c)
	c.logger.Info("connection closed")
}

// Publish encodes event and delivers it to every connection of roomID.
// It returns the number of connections reached.
func (h *Hub) Publish(roomID string, event any) (int, error) {
	frame, err := json.Marshal(event)
	if err != nil {
		return 0, fmt.Errorf("json.Marshal: %w", err)
	}
	return h.registry.Publish(roomID, frame), nil
}

// Close closes every connection with a going away frame and waits for their goroutines to exit.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	h.mu.Unlock()

	h.cancel()
	h.wg.Wait()
	h.registry.CloseAll()
}
