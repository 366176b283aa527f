package repository

import (
	"context"
	"fmt"
	"net"

	"github.com/SergeiKhy/shortener/internal/config"
	"github.com/redis/go-redis/v9"
)

// RedisDB wraps the client used by RedisStore.
type RedisDB struct {
	Client *redis.Client
}

// NewRedisClient connects to the server in cfg and verifies it with a ping.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*RedisDB, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         net.JoinHostPort(cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.PoolSize / 10,
	})

	db := &RedisDB{Client: client}
	if err := db.Ping(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return db, nil
}

// Ping checks the connection, bounded by pingTimeout.
func (db *RedisDB) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := db.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return nil
}

func (db *RedisDB) Close() error {
	return db.Client.Close()
}
