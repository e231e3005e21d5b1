package factory

import (
	"context"
	"fmt"

	"github.com/nulzo/prism-copy/internal/config"
	"github.com/nulzo/prism-copy/internal/kv"
	"github.com/nulzo/prism-copy/internal/kv/memory"
	"github.com/nulzo/prism-copy/internal/kv/redis"
	"github.com/nulzo/prism-copy/internal/kv/sqlite"
)

// Open returns the store selected by cfg.Storage.Driver.
func Open(ctx context.Context, cfg *config.Config) (kv.Store, error) {
	switch cfg.Storage.Driver {
	case "", "sqlite":
		return sqlite.Open(cfg.Storage.DSN)
	case "redis":
		return redis.Open(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	case "memory":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
