package core

import (
	"log/slog"
	"os"
	"sync"
)

// Subscriber is a member of a room group.
type Subscriber interface {
	ID() string
	// Send enqueues a frame without blocking.
	// It returns false when the subscriber cannot take the frame because its queue is full or closed.
	Send(frame []byte) bool
	Close()
}

// Registry maps canonical room ids to the subscribers connected to each room.
// Frames published to one room reach every subscriber in the order they were published.
type Registry struct {
	groups *SyncMap[string, *roomGroup]
	logger *slog.Logger
}

type roomGroup struct {
	mu      sync.Mutex
	members map[string]Subscriber
}

type RegistryOption func(*Registry)

func WithRegistryLogger(l *slog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = l
	}
}

func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		groups: NewSyncMap[string, *roomGroup](),
		logger: slog.New(slog.NewTextHandler(os.Stderr, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Join adds s to the group of roomID. Joining twice replaces the previous entry.
func (r *Registry) Join(roomID string, s Subscriber) {
	r.groups.Compute(roomID, func(g *roomGroup, ok bool) (*roomGroup, bool) {
		if !ok {
			g = &roomGroup{members: make(map[string]Subscriber)}
		}
		g.mu.Lock()
		g.members[s.ID()] = s
		g.mu.Unlock()
		return g, true
	})
}

// Leave removes s from the group of roomID. It is a no-op when s is not a member.
// Empty groups are dropped.
func (r *Registry) Leave(roomID string, s Subscriber) {
	r.groups.Compute(roomID, func(g *roomGroup, ok bool) (*roomGroup, bool) {
		if !ok {
			return nil, false
		}
		g.mu.Lock()
		defer g.mu.Unlock()
		if current, found := g.members[s.ID()]; found && current == s {
			delete(g.members, s.ID())
		}
		return g, len(g.members) > 0
	})
}

// Publish enqueues frame on every subscriber of roomID and returns the number of subscribers reached.
// Subscribers that cannot take the frame are removed from the group and closed.
func (r *Registry) Publish(roomID string, frame []byte) int {
	g, ok := r.groups.Load(roomID)
	if !ok {
		return 0
	}

	var failed []Subscriber
	delivered := 0

	g.mu.Lock()
	for _, s := range g.members {
		if s.Send(frame) {
			delivered++
			continue
		}
		failed = append(failed, s)
	}
	g.mu.Unlock()

	for _, s := range failed {
		r.logger.Warn("evicting subscriber that cannot keep up",
			slog.String("room", roomID), slog.String("subscriber", s.ID()))
		r.Leave(roomID, s)
		s.Close()
	}

	return delivered
}

// Members returns the ids of the subscribers of roomID.
func (r *Registry) Members(roomID string) []string {
	g, ok := r.groups.Load(roomID)
	if !ok {
		return nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	ids := make([]string, 0, len(g.members))
	for id := range g.members {
		ids = append(ids, id)
	}
	return ids
}

// Rooms returns the number of rooms with at least one subscriber.
func (r *Registry) Rooms() int {
	return r.groups.Len()
}

// CloseAll removes every subscriber from every group and closes it.
func (r *Registry) CloseAll() {
	var subscribers []Subscriber
	for _, g := range r.groups.Drain() {
		g.mu.Lock()
		for id, s := range g.members {
			subscribers = append(subscribers, s)
			delete(g.members, id)
		}
		g.mu.Unlock()
	}
	for _, s := range subscribers {
		s.Close()
	}
}
