package scraper

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
)

// WithRetry повторяет целый вызов сбора при сбое загрузки.
// Повторяются только ошибки *FetchError: исчерпание пустых страниц
// и отмена контекста возвращаются сразу.
func WithRetry(ctx context.Context, logger *zap.Logger, config RetryConfig, fn func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := fn(ctx)
		if err == nil {
			if attempt > 0 {
				logger.Info("Harvest succeeded after retry",
					zap.Int("attempt", attempt+1),
					zap.Int("max_retries", config.MaxRetries))
			}
			return nil
		}
		if !IsFetchError(err) {
			return err
		}

		lastErr = err

		if attempt == config.MaxRetries {
			break
		}

		// экспоненциальный backoff
		delay := time.Duration(float64(config.InitialDelay) * math.Pow(config.BackoffMultiplier, float64(attempt)))
		if config.MaxDelay > 0 && delay > config.MaxDelay {
			delay = config.MaxDelay
		}

		logger.Warn("Harvest failed, retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", config.MaxRetries),
			zap.Duration("delay", delay),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("harvest failed after %d attempts: %w", config.MaxRetries+1, lastErr)
}
