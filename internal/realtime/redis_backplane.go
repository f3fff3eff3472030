package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	opDeliver = "deliver"
	opJoin    = "join"
	opEvict   = "evict"
)

type backplaneMessage struct {
	Instance string          `json:"instance"`
	Op       string          `json:"op"`
	Room     string          `json:"room"`
	OrgID    string          `json:"organization_id,omitempty"`
	UserID   string          `json:"user_id,omitempty"`
	Except   string          `json:"except,omitempty"`
	Frame    json.RawMessage `json:"frame,omitempty"`
}

// RedisBackplane applies each operation locally, then publishes it on a Redis
// channel so other gateway instances apply it to their own connections.
type RedisBackplane struct {
	rdb      *redis.Client
	channel  string
	instance string
	hub      *Hub
	log      *zap.Logger
}

func NewRedisBackplane(rdb *redis.Client, channel string, hub *Hub, log *zap.Logger) *RedisBackplane {
	return &RedisBackplane{
		rdb:      rdb,
		channel:  channel,
		instance: uuid.NewString(),
		hub:      hub,
		log:      log,
	}
}

func (b *RedisBackplane) Publish(ctx context.Context, room string, frame []byte, except string) error {
	b.hub.Deliver(room, frame, except)
	return b.publish(ctx, backplaneMessage{Op: opDeliver, Room: room, Except: except, Frame: frame})
}

func (b *RedisBackplane) JoinUser(ctx context.Context, room, orgID, userID string) error {
	b.hub.JoinUser(room, orgID, userID)
	return b.publish(ctx, backplaneMessage{Op: opJoin, Room: room, OrgID: orgID, UserID: userID})
}

func (b *RedisBackplane) Evict(ctx context.Context, room, userID string) error {
	b.hub.Evict(room, userID)
	return b.publish(ctx, backplaneMessage{Op: opEvict, Room: room, UserID: userID})
}

func (b *RedisBackplane) publish(ctx context.Context, m backplaneMessage) error {
	m.Instance = b.instance
	payload, err := json.Marshal(m)
	if err != nil {
		return err
	}
	if err := b.rdb.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Run consumes the channel until ctx is cancelled.
func (b *RedisBackplane) Run(ctx context.Context) {
	sub := b.rdb.Subscribe(ctx, b.channel)
	defer sub.Close()

	b.log.Info("[backplane] subscribed", zap.String("channel", b.channel), zap.String("instance", b.instance))
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			b.apply(msg.Payload)
		}
	}
}

func (b *RedisBackplane) apply(payload string) {
	var m backplaneMessage
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		b.log.Warn("[backplane] bad message", zap.Error(err))
		return
	}
	// own operations were applied before publishing
	if m.Instance == b.instance {
		return
	}
	switch m.Op {
	case opDeliver:
		b.hub.Deliver(m.Room, m.Frame, m.Except)
	case opJoin:
		b.hub.JoinUser(m.Room, m.OrgID, m.UserID)
	case opEvict:
		b.hub.Evict(m.Room, m.UserID)
	default:
		b.log.Warn("[backplane] unknown op", zap.String("op", m.Op))
	}
}
