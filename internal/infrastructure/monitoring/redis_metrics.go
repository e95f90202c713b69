package monitoring

import (
	"context"
	"net"

	"github.com/redis/go-redis/v9"
)

type redisTimingHook struct{}

func (redisTimingHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		defer TimeRedisCommand(cmd.Name())()
		return next(ctx, cmd)
	}
}

func (redisTimingHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		defer TimeRedisCommand("pipeline")()
		return next(ctx, cmds)
	}
}

func (redisTimingHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		defer TimeRedisCommand("dial")()
		return next(ctx, network, addr)
	}
}

// InstrumentRedisClient times every command the product cache issues.
func InstrumentRedisClient(client *redis.Client) *redis.Client {
	client.AddHook(redisTimingHook{})
	return client
}
