package checkpoint

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/linanwx/notebot/config"
)

// Open builds the store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.CheckpointConfig) (Store, error) {
	switch cfg.Driver {
	case "memory":
		return NewMemoryStore(), nil
	case "file":
		return NewFileStore(config.ResolvePath(cfg.DSN))
	case "sqlite":
		path := config.ResolvePath(cfg.DSN)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create checkpoint dir: %w", err)
		}
		return OpenSQL(ctx, SQLite, path)
	case "postgres":
		return OpenSQL(ctx, Postgres, cfg.DSN)
	case "mysql":
		return OpenSQL(ctx, MySQL, cfg.DSN)
	case "redis":
		return OpenRedis(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown checkpoint driver: %s", cfg.Driver)
	}
}
