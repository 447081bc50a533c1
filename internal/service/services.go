// Package service содержит пакетный сбор и планировщик.
package service

import (
	"fmt"
	"time"

	"restoharvest/internal/config"
	"restoharvest/internal/external/scraper"

	"go.uber.org/zap"
)

// Services содержит все сервисы приложения
type Services struct {
	Batch     *BatchService
	Scheduler *Scheduler
}

// NewServices создает сервисы из зависимостей и конфигурации
func NewServices(deps BatchDependencies, cfg *config.Config, logger *zap.Logger) (*Services, error) {
	if deps.Harvester == nil || deps.Store == nil {
		return nil, fmt.Errorf("harvester and store are required")
	}

	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}
	if err := ValidateSpec(cfg.HarvestCron); err != nil {
		return nil, err
	}

	batch := NewBatchService(deps, RetryConfigFrom(cfg.RetryConfig), logger)
	scheduler := NewScheduler(batch, cfg.HarvestCron, location, BatchOptions{
		StartPath: cfg.ListingsStartPath,
	}, logger)

	return &Services{
		Batch:     batch,
		Scheduler: scheduler,
	}, nil
}

// RetryConfigFrom переводит настройки повторов из конфигурации
func RetryConfigFrom(cfg config.RetryConfig) scraper.RetryConfig {
	return scraper.RetryConfig{
		MaxRetries:        cfg.MaxRetries,
		InitialDelay:      cfg.InitialDelay,
		MaxDelay:          cfg.MaxDelay,
		BackoffMultiplier: cfg.BackoffMultiplier,
	}
}
