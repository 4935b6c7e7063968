package kv

import (
	"context"
	"fmt"

	"leadcrm/internal/config"
	"leadcrm/internal/infra/kv/file"
	"leadcrm/internal/infra/kv/memory"
	"leadcrm/internal/infra/kv/postgres"
	"leadcrm/internal/infra/kv/redis"
	"leadcrm/internal/infra/kv/s3"
	"leadcrm/internal/infra/kv/sqlite"
)

// Open constructs the slot backend named by cfg.Driver.
func Open(ctx context.Context, cfg config.Storage) (Slot, error) {
	switch cfg.Driver {
	case DriverMemory:
		return memory.New(), nil
	case DriverFile:
		return file.New(cfg.FilePath)
	case DriverSQLite, "":
		return sqlite.New(cfg.SQLitePath)
	case DriverPostgres:
		return postgres.New(ctx, cfg.PostgresDSN)
	case DriverRedis:
		return redis.New(ctx, cfg.RedisURL)
	case DriverS3:
		return s3.New(ctx, s3.Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			Prefix:          cfg.S3.Prefix,
			PathStyle:       cfg.S3.PathStyle,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			SessionToken:    cfg.S3.SessionToken,
		})
	default:
		return nil, fmt.Errorf("unknown storage driver %s", cfg.Driver)
	}
}
