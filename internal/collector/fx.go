package collector

import (
	"github.com/collectra/collectra/internal/config"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

// NewRedisClient returns nil when no Redis address is configured; the run
// lock then degrades to single-instance mode.
func NewRedisClient(cfg config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
}

var Module = fx.Module("collector",
	fx.Provide(
		NewRedisClient,
		NewRunLocker,
		New,
	),
)
