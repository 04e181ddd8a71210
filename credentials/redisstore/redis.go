// Package redisstore keeps the credential slot in Redis so several client processes
// on one host share a session.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jrsteele09/qeem-client/credentials"
	apperrors "github.com/jrsteele09/qeem-client/internal/errors"
	"github.com/redis/go-redis/v9"
)

// Config holds the connection settings for the Redis blob
type Config struct {
	Addr     string
	Password string
	DB       int
	Key      string
	TTL      time.Duration // Zero keeps the record until cleared
}

// Blob implements credentials.Blob using a single Redis key
type Blob struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

var _ credentials.Blob = (*Blob)(nil)

// Open connects to Redis and verifies the connection
func Open(ctx context.Context, cfg Config) (*Blob, error) {
	if cfg.Key == "" {
		return nil, errors.New("[redisstore.Open] key is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Blob{client: client, key: cfg.Key, ttl: cfg.TTL}, nil
}

// Close closes the Redis connection
func (b *Blob) Close() error {
	return b.client.Close()
}

func (b *Blob) Read(ctx context.Context) ([]byte, error) {
	data, err := b.client.Get(ctx, b.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperrors.ErrNoCredential
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credential: %w", err)
	}
	return data, nil
}

func (b *Blob) Write(ctx context.Context, data []byte) error {
	if err := b.client.Set(ctx, b.key, data, b.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write credential: %w", err)
	}
	return nil
}

func (b *Blob) Delete(ctx context.Context) error {
	if err := b.client.Del(ctx, b.key).Err(); err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	return nil
}
