package store

import (
	"context"
	"fmt"

	"github.com/Skotchmaster/storefront/internal/config"
)

// Open builds the store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "memory":
		return NewMemory(), nil
	case "sqlite", "postgres":
		return OpenGorm(ctx, cfg.Driver, cfg.DSN)
	case "redis":
		return OpenRedis(ctx, cfg.RedisURL, cfg.Prefix)
	default:
		return nil, fmt.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
