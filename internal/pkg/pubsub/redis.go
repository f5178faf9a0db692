package pubsub

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/beech80/clipt-final--sub000/internal/pkg/logx"
)

// Redis is a Transport backed by Redis pub/sub. Redis channels give the
// per-publisher ordering the broadcaster relies on and require no membership
// rebalancing when chat processes are added or removed.
type Redis struct {
	client *redis.Client
}

// RedisConfig holds the connection settings for the Redis transport.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedis connects to Redis and verifies the connection with a ping.
func NewRedis(cfg RedisConfig) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Redis{client: client}, nil
}

// Publish sends the payload on the Redis channel named after the topic.
func (r *Redis) Publish(ctx context.Context, topic string, payload []byte) error {
	return r.client.Publish(ctx, topic, payload).Err()
}

// Subscribe opens a Redis subscription for the topic and pumps received
// messages to the handler until unsubscribed.
func (r *Redis) Subscribe(topic string, h Handler) (func(), error) {
	ps := r.client.Subscribe(context.Background(), topic)

	// Wait for the subscription to be confirmed so publishes after Subscribe
	// returns are not missed.
	if _, err := ps.Receive(context.Background()); err != nil {
		_ = ps.Close()
		return nil, err
	}

	go func() {
		for msg := range ps.Channel() {
			h(msg.Channel, []byte(msg.Payload))
		}
	}()

	unsubscribe := func() {
		if err := ps.Close(); err != nil {
			logx.Warn("Failed to close Redis subscription.", "topic", topic, "error", err.Error())
		}
	}

	return unsubscribe, nil
}

// Close closes the underlying Redis client.
func (r *Redis) Close() error {
	return r.client.Close()
}
