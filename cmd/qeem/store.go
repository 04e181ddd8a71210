package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jrsteele09/qeem-client/credentials"
	"github.com/jrsteele09/qeem-client/credentials/redisstore"
	"github.com/jrsteele09/qeem-client/credentials/sqlitestore"
	"github.com/jrsteele09/qeem-client/internal/config"
	apperrors "github.com/jrsteele09/qeem-client/internal/errors"
	"github.com/rs/zerolog"
)

func newHTTPClient(cfg config.APIConfig) *http.Client {
	return &http.Client{Timeout: cfg.GetRequestTimeout()}
}

// openStore builds the configured credential store. Persistent stores are sealed
// when a passphrase is configured.
func openStore(ctx context.Context, cfg config.StoreConfig, logger zerolog.Logger) (credentials.Store, func() error, error) {
	var options []credentials.BlobStoreOption
	if cfg.GetPassphrase() != "" {
		sealer, err := credentials.NewSealer(cfg.GetPassphrase())
		if err != nil {
			return nil, nil, err
		}
		options = append(options, credentials.WithSealer(sealer))
	}

	switch cfg.GetStoreType() {
	case config.StoreMemory:
		return credentials.NewMemoryStore(), func() error { return nil }, nil

	case config.StoreSQLite:
		blob, err := sqlitestore.Open(cfg.GetSQLitePath())
		if err != nil {
			return nil, nil, apperrors.Wrapf(err, "failed to open credential database")
		}
		logger.Debug().Str("path", cfg.GetSQLitePath()).Msg("Using SQLite credential store")
		return credentials.NewBlobStore(blob, options...), blob.Close, nil

	case config.StoreRedis:
		blob, err := redisstore.Open(ctx, redisstore.Config{
			Addr:     cfg.GetRedisAddr(),
			Password: cfg.GetRedisPassword(),
			DB:       cfg.GetRedisDB(),
			Key:      cfg.GetRedisKey(),
		})
		if err != nil {
			return nil, nil, apperrors.Wrapf(err, "failed to connect to redis")
		}
		logger.Debug().Str("addr", cfg.GetRedisAddr()).Msg("Using Redis credential store")
		return credentials.NewBlobStore(blob, options...), blob.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown credential store %q", cfg.GetStoreType())
	}
}
