package redis

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/yuzvak/pdv-service/internal/config"
	"github.com/yuzvak/pdv-service/internal/infrastructure/monitoring"
)

type Connection struct {
	client *redis.Client
}

func NewConnection(ctx context.Context, cfg config.RedisConfig) (*Connection, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr(),
		Password:    cfg.Password,
		DB:          cfg.DB,
		PoolSize:    20,
		DialTimeout: 3 * time.Second,
	})

	conn := NewConnectionFromClient(client)
	if err := conn.Ping(ctx); err != nil {
		client.Close()
		return nil, errors.Wrapf(err, "ping redis at %s", cfg.Addr())
	}

	return conn, nil
}

// NewConnectionFromClient instruments an existing client.
func NewConnectionFromClient(client *redis.Client) *Connection {
	return &Connection{client: monitoring.InstrumentRedisClient(client)}
}

func (c *Connection) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *Connection) Close() error {
	return c.client.Close()
}

func (c *Connection) GetClient() *redis.Client {
	return c.client
}
