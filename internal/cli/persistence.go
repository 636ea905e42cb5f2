package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/spindle/internal/counter"
	"github.com/aretw0/spindle/pkg/adapters/file"
	redisadapter "github.com/aretw0/spindle/pkg/adapters/redis"
	"github.com/aretw0/spindle/pkg/config"
	"github.com/aretw0/spindle/pkg/ports"
	"github.com/aretw0/spindle/pkg/savedstate"
)

// bindTimeout bounds how long stopping waits for the last State to be saved.
const bindTimeout = 5 * time.Second

// setupPersistence restores the State saved under sessionID into vm and keeps it
// saved. Redis is used when an address is set, otherwise the file store when a
// directory is set; with neither, or without a session, it does nothing. The
// returned func waits for the final save and releases the store; call it after
// the ViewModel was closed.
func setupPersistence(ctx context.Context, s config.Settings, sessionID string, vm *counterVM, logger *slog.Logger) (func(), error) {
	if sessionID == "" || (s.Redis.Addr == "" && s.Store.Dir == "") {
		return func() {}, nil
	}

	codec, err := s.Store.Codec()
	if err != nil {
		return nil, err
	}

	var (
		store   ports.StateStore[counter.State]
		opts    = []savedstate.Option{savedstate.WithLogger(logger)}
		release = func() {}
		backing string
	)
	if s.Redis.Addr != "" {
		client := backend.NewClient(&backend.Options{
			Addr:     s.Redis.Addr,
			Password: s.Redis.Password,
			DB:       s.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis unavailable at %s: %w", s.Redis.Addr, err)
		}
		store = redisadapter.NewFromClient[counter.State](client,
			redisadapter.WithPrefix(s.Redis.Prefix),
			redisadapter.WithTTL(time.Duration(s.Redis.TTL)),
			redisadapter.WithCodec(codec),
		)
		opts = append(opts, savedstate.WithLocker(redisadapter.NewLocker(client, s.Redis.Prefix)))
		release = func() {
			if err := client.Close(); err != nil {
				logger.Warn("Failed to close redis client", "err", err)
			}
		}
		backing = "redis://" + s.Redis.Addr
	} else {
		store = file.New[counter.State](s.Store.Dir, file.WithCodec(codec))
		backing = "file://" + s.Store.Dir
	}

	manager := savedstate.NewManager[counter.State](store, opts...)
	synced, err := manager.Bind(ctx, sessionID, vm)
	if err != nil {
		release()
		return nil, err
	}
	logger.Info("Session bound", "session_id", sessionID, "store", backing)

	return func() {
		select {
		case <-synced:
		case <-time.After(bindTimeout):
			logger.Warn("Timed out waiting for the final state save", "session_id", sessionID)
		}
		release()
	}, nil
}
