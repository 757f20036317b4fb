package lease

import (
	"github.com/kilomet/kilomet/internal/config"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Provide picks the backend: a shared redis lease when REDIS_ADDR is set,
// the in-memory registry otherwise.
func Provide(cfg config.Config, log *zap.Logger) Lease {
	if cfg.RedisAddr == "" {
		return NewMemory()
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	log.Info("using redis-backed processing lease", zap.String("addr", cfg.RedisAddr))
	return NewRedis(client)
}
