package realtime

import "context"

// Broadcaster fans room operations out. LocalBroadcaster serves a single
// instance; RedisBackplane relays the same operations to every instance.
type Broadcaster interface {
	// Publish delivers frame to the room, skipping the connection with id except.
	Publish(ctx context.Context, room string, frame []byte, except string) error
	// JoinUser subscribes userID's connections scoped to orgID to room.
	JoinUser(ctx context.Context, room, orgID, userID string) error
	// Evict unsubscribes userID's connections from room; "" evicts everyone.
	Evict(ctx context.Context, room, userID string) error
}

type LocalBroadcaster struct {
	hub *Hub
}

func NewLocalBroadcaster(hub *Hub) *LocalBroadcaster {
	return &LocalBroadcaster{hub: hub}
}

func (b *LocalBroadcaster) Publish(_ context.Context, room string, frame []byte, except string) error {
	b.hub.Deliver(room, frame, except)
	return nil
}

func (b *LocalBroadcaster) JoinUser(_ context.Context, room, orgID, userID string) error {
	b.hub.JoinUser(room, orgID, userID)
	return nil
}

func (b *LocalBroadcaster) Evict(_ context.Context, room, userID string) error {
	b.hub.Evict(room, userID)
	return nil
}
