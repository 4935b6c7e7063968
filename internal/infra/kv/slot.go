// Package kv defines the durable key-value slot abstraction the snapshot store
// writes through. Each backend lives in a subpackage.
package kv

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Driver identifies a concrete slot backend implementation.
type Driver string

const (
	DriverMemory   Driver = "memory"   // in-memory (tests / ephemeral)
	DriverFile     Driver = "file"     // one file per key under a directory
	DriverSQLite   Driver = "sqlite"   // embedded sqlite file (default)
	DriverPostgres Driver = "postgres" // PostgreSQL server
	DriverRedis    Driver = "redis"    // Redis / Valkey server
	DriverS3       Driver = "s3"       // S3 / MinIO compatible bucket
)

// Slot stores opaque text blobs under string keys. Load reports ok=false when
// the key has never been written. Save overwrites unconditionally.
type Slot interface {
	Load(ctx context.Context, key string) (payload []byte, ok bool, err error)
	Save(ctx context.Context, key string, payload []byte) error
	Driver() Driver
	Close() error
}

// ErrEmptyKey is returned by backends when asked for a blank key.
var ErrEmptyKey = errors.New("kv: empty key")

// CheckKey validates a slot key shared by all backends.
func CheckKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrEmptyKey
	}
	return nil
}

// ParseDriver maps a configuration string to a Driver.
func ParseDriver(raw string) (Driver, error) {
	switch d := Driver(strings.ToLower(strings.TrimSpace(raw))); d {
	case DriverMemory, DriverFile, DriverSQLite, DriverPostgres, DriverRedis, DriverS3:
		return d, nil
	case "":
		return DriverSQLite, nil
	default:
		return "", fmt.Errorf("unknown storage driver %s", raw)
	}
}
