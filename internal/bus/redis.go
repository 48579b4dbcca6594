package bus

import (
	"context"

	"github.com/redis/go-redis/v9"
)

type RedisBus struct {
	rdb *redis.Client
}

func NewRedis(rdb *redis.Client) *RedisBus {
	return &RedisBus{rdb: rdb}
}

func (b *RedisBus) Publish(ctx context.Context, topic string, payload []byte) error {
	return b.rdb.Publish(ctx, topic, payload).Err()
}

func (b *RedisBus) Subscribe(ctx context.Context, topics ...string) (<-chan Message, func() error, error) {
	ps := b.rdb.Subscribe(ctx, topics...)
	// force the SUBSCRIBE round-trip so a dead redis fails here, not on first read
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, err
	}

	out := make(chan Message, 16)
	go func() {
		defer close(out)
		for m := range ps.Channel() {
			select {
			case out <- Message{Topic: m.Channel, Payload: []byte(m.Payload)}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, ps.Close, nil
}
