package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/memstore"
	"github.com/MrEthical07/authcore/session"
	"github.com/MrEthical07/authcore/sqlstore"
	"github.com/MrEthical07/authcore/user"
)

// backends is what the engine builder needs plus the cleanup for it.
type backends struct {
	users    user.Store
	sessions session.Store
	tx       authcore.Transactor
	closers  []func()
}

func (b *backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func openBackends(ctx context.Context, cfg config, logger *slog.Logger) (*backends, error) {
	b := &backends{}

	switch cfg.Store {
	case "memory":
		store := memstore.New()
		b.users, b.sessions, b.tx = store, store, store
	case "sqlite", "postgres":
		dialect := sqlstore.DialectSQLite
		if cfg.Store == "postgres" {
			dialect = sqlstore.DialectPostgres
		}
		store, err := sqlstore.Open(ctx, dialect, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", cfg.Store, err)
		}
		// Open applies the embedded migrations
		b.closers = append(b.closers, func() { _ = store.Close() })
		b.users, b.sessions, b.tx = store, store, store
	}

	if cfg.Sessions == "redis" {
		client, closeRedis, err := openRedis(ctx, cfg.RedisAddr, logger)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.closers = append(b.closers, closeRedis)
		b.sessions = session.NewRedisStore(client, cfg.RedisPrefix)
	}

	return b, nil
}

// openRedis connects to addr, or starts an embedded miniredis when addr is
// empty so a single binary can run without infrastructure.
func openRedis(ctx context.Context, addr string, logger *slog.Logger) (redis.UniversalClient, func(), error) {
	var mr *miniredis.Miniredis
	if addr == "" {
		var err error
		mr, err = miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("start embedded redis: %w", err)
		}
		addr = mr.Addr()
		logger.Warn("AUTHCORE_REDIS_ADDR unset, sessions kept in embedded redis", "addr", addr)
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		if mr != nil {
			mr.Close()
		}
		return nil, nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}

	return client, func() {
		_ = client.Close()
		if mr != nil {
			mr.Close()
		}
	}, nil
}
