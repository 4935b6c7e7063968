package core

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"leadcrm/internal/config"
	"leadcrm/internal/infra/persistence/snapshot"
	"leadcrm/internal/kv"
)

// OpenPersistentStore opens the slot selected by cfg and loads the snapshot
// store over it. A nil engine selects NewDefaultRulesEngine.
func OpenPersistentStore(ctx context.Context, cfg config.Storage, engine *RulesEngine, logger logrus.FieldLogger) (*snapshot.Store, error) {
	if engine == nil {
		engine = NewDefaultRulesEngine()
	}
	slot, err := kv.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s slot: %w", cfg.Driver, err)
	}
	store, err := snapshot.Open(ctx, slot, engine, snapshot.WithKey(cfg.Key), snapshot.WithLogger(logger))
	if err != nil {
		_ = slot.Close()
		return nil, err
	}
	return store, nil
}

// OpenService opens the configured store and returns a service over it
// together with the store, which the caller closes.
func OpenService(ctx context.Context, cfg config.Config, logger logrus.FieldLogger, opts ...Option) (*Service, *snapshot.Store, error) {
	store, err := OpenPersistentStore(ctx, cfg.Storage, nil, logger)
	if err != nil {
		return nil, nil, err
	}
	base := []Option{WithLogger(logger), WithStageRemovalPolicy(cfg.StageRemovalPolicy)}
	return NewService(store, append(base, opts...)...), store, nil
}
