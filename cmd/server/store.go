package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/UkralStul/studyabroad-realtime/internal/config"
	"github.com/UkralStul/studyabroad-realtime/internal/logging"
	"github.com/UkralStul/studyabroad-realtime/internal/storage"
	"github.com/UkralStul/studyabroad-realtime/internal/storage/gormstore"
	"github.com/UkralStul/studyabroad-realtime/internal/storage/inmemory"
)

// openStore возвращает хранилище из конфигурации и функцию для его закрытия.
func openStore(ctx context.Context, cfg *config.Config, log *logrus.Logger) (storage.Storage, func(), error) {
	if cfg.Storage == "in-memory" {
		return inmemory.New(), func() {}, nil
	}

	dialector, err := gormstore.Dialector(cfg.Storage, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	store, err := gormstore.Open(dialector, logging.GormLevel(log.GetLevel()))
	if err != nil {
		return nil, nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("migrate %s: %w", cfg.Storage, err)
	}
	closeFn := func() {
		if err := store.Close(); err != nil {
			log.WithError(err).Warn("failed to close database")
		}
	}
	return store, closeFn, nil
}
