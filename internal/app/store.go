package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hanpama/contentgraph/internal/config"
	"github.com/hanpama/contentgraph/internal/datasource"
)

// OpenStore opens the store named by cfg. The returned close function
// releases its connections.
func OpenStore(ctx context.Context, cfg config.Store, log *zap.Logger) (datasource.Store, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Driver {
	case config.DriverMemory, "":
		if cfg.Fixtures == "" {
			return datasource.NewMemoryStore(), noop, nil
		}
		s, err := datasource.OpenMemoryStore(cfg.Fixtures)
		if err != nil {
			return nil, nil, fmt.Errorf("open memory store: %w", err)
		}
		return s, noop, nil
	case config.DriverRedis:
		opts := []datasource.RedisOption{datasource.WithRedisLogger(log.Named("redis"))}
		if cfg.KeyPrefix != "" {
			opts = append(opts, datasource.WithKeyPrefix(cfg.KeyPrefix))
		}
		s, err := datasource.DialRedis(ctx, cfg.RedisURL, opts...)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	}
	return nil, nil, fmt.Errorf("%w: unknown store driver %q", config.ErrInvalid, cfg.Driver)
}
