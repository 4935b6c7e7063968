// Package redis implements kv.Slot on a Redis (or Valkey) server.
package redis

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"leadcrm/internal/infra/kv"
)

const keyPrefix = "leadcrm:"

// Slot stores each key as a plain Redis string.
type Slot struct {
	client *redis.Client
	owned  bool
}

// ParseOptions accepts either a redis:// URL or the "host:port,password=..,ssl=true"
// connection-string form.
func ParseOptions(conn string) (*redis.Options, error) {
	conn = strings.TrimSpace(conn)
	if conn == "" {
		return nil, fmt.Errorf("redis connection string required")
	}
	if opts, err := redis.ParseURL(conn); err == nil {
		return opts, nil
	}
	parts := strings.Split(conn, ",")
	opts := &redis.Options{Addr: parts[0]}
	for _, p := range parts[1:] {
		pair := strings.SplitN(p, "=", 2)
		if len(pair) != 2 {
			continue
		}
		switch strings.ToLower(pair[0]) {
		case "password":
			opts.Password = pair[1]
		case "ssl":
			if strings.EqualFold(pair[1], "true") {
				opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
			}
		}
	}
	return opts, nil
}

// New connects to the server described by conn and verifies it answers PING.
func New(ctx context.Context, conn string) (*Slot, error) {
	opts, err := ParseOptions(conn)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Slot{client: client, owned: true}, nil
}

// NewWithClient wraps an existing client. Close leaves the client open.
func NewWithClient(client *redis.Client) *Slot {
	return &Slot{client: client}
}

// Driver returns the slot driver identifier.
func (s *Slot) Driver() kv.Driver { return kv.DriverRedis }

// Load returns the value stored for key.
func (s *Slot) Load(ctx context.Context, key string) ([]byte, bool, error) {
	if err := kv.CheckKey(key); err != nil {
		return nil, false, err
	}
	data, err := s.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}
	return data, true, nil
}

// Save sets the value for key without expiry.
func (s *Slot) Save(ctx context.Context, key string, payload []byte) error {
	if err := kv.CheckKey(key); err != nil {
		return err
	}
	if err := s.client.Set(ctx, keyPrefix+key, payload, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Close closes the client when the slot created it.
func (s *Slot) Close() error {
	if !s.owned {
		return nil
	}
	return s.client.Close()
}
