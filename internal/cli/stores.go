package cli

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/aretw0/skein/internal/config"
	"github.com/aretw0/skein/pkg/adapters/file"
	"github.com/aretw0/skein/pkg/adapters/memory"
	"github.com/aretw0/skein/pkg/adapters/redis"
	"github.com/aretw0/skein/pkg/persistence/middleware"
	"github.com/aretw0/skein/pkg/ports"
)

// Persistence is an opened snapshot store and, for shared backends, the
// distributed locker that goes with it.
type Persistence struct {
	Store  ports.SnapshotStore
	Locker ports.DistributedLocker
	close  func() error
}

// Close releases backend connections.
func (p *Persistence) Close() error {
	if p.close == nil {
		return nil
	}
	return p.close()
}

// OpenStore opens the configured store backend, wrapped with masking and
// encryption when configured.
func OpenStore(ctx context.Context, cfg config.StoreConfig) (*Persistence, error) {
	p, err := openBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	mws, err := storeMiddleware(cfg)
	if err != nil {
		p.Close()
		return nil, err
	}
	p.Store = middleware.Chain(p.Store, mws...)
	return p, nil
}

func storeMiddleware(cfg config.StoreConfig) ([]middleware.Middleware, error) {
	var mws []middleware.Middleware
	if len(cfg.MaskVariables) > 0 {
		mask, err := middleware.NewMaskingMiddleware(cfg.MaskVariables)
		if err != nil {
			return nil, err
		}
		mws = append(mws, mask)
	}
	if cfg.EncryptionKey != "" {
		active, err := decodeKey(cfg.EncryptionKey)
		if err != nil {
			return nil, err
		}
		enc := middleware.EncryptionConfig{ActiveKey: active}
		for _, k := range cfg.FallbackKeys {
			key, err := decodeKey(k)
			if err != nil {
				return nil, err
			}
			enc.FallbackKeys = append(enc.FallbackKeys, key)
		}
		seal, err := middleware.NewEncryptionMiddleware(enc)
		if err != nil {
			return nil, err
		}
		mws = append(mws, seal)
	}
	return mws, nil
}

func decodeKey(s string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid encryption key: %w", err)
	}
	return key, nil
}

func openBackend(ctx context.Context, cfg config.StoreConfig) (*Persistence, error) {
	switch cfg.Backend {
	case "", "memory":
		return &Persistence{Store: memory.NewStore()}, nil
	case "file":
		return &Persistence{Store: file.New(cfg.Path)}, nil
	case "redis":
		opts := []redis.Option{redis.WithPrefix(cfg.Redis.Prefix)}
		if cfg.Redis.TTL > 0 {
			opts = append(opts, redis.WithTTL(cfg.Redis.TTL))
		}
		store := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, opts...)
		if err := store.Ping(ctx); err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		return &Persistence{
			Store:  store,
			Locker: redis.NewLocker(store.Client(), cfg.Redis.Prefix),
			close:  store.Close,
		}, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
