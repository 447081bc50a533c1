// Package app содержит основную логику приложения.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"restoharvest/internal/config"
	"restoharvest/internal/health"

	"go.uber.org/zap"
)

// shutdownTimeout ограничивает graceful shutdown
const shutdownTimeout = 30 * time.Second

// Server запускает сбор по расписанию вместе с health check сервером
type Server struct {
	config     *config.Config
	logger     *zap.Logger
	components *Components
	health     *health.Server
	wg         sync.WaitGroup
}

// NewServerWithFactory собирает сервер со всеми зависимостями
func NewServerWithFactory(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Server, error) {
	factory, err := NewComponentFactory(cfg, logger)
	if err != nil {
		return nil, err
	}

	components, err := factory.CreateComponents(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create components: %w", err)
	}

	healthServer := factory.CreateHealthServer(components.DB, components.Ledger, components.Metrics)
	if healthServer != nil {
		healthServer.SetScheduler(components.Services.Scheduler)
	}

	return &Server{
		config:     cfg,
		logger:     logger,
		components: components,
		health:     healthServer,
	}, nil
}

// Start запускает планировщик и health check сервер и ждет отмены контекста
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting harvest server")

	if s.health != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.health.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logger.Error("Health check server failed", zap.Error(err))
			}
		}()
	}

	if err := s.components.Services.Scheduler.Start(); err != nil {
		s.Stop()
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	s.logger.Info("Harvest server started")
	<-ctx.Done()
	s.logger.Info("Harvest server cancelled by context")

	s.Stop()
	return nil
}

// Stop gracefully останавливает сервер
func (s *Server) Stop() {
	s.logger.Info("Stopping harvest server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// планировщик дожидается текущего сбора
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		s.components.Services.Scheduler.Stop()
	}()

	select {
	case <-stopped:
	case <-shutdownCtx.Done():
		s.logger.Warn("Graceful shutdown timeout exceeded, forcing stop")
	}

	if s.health != nil {
		if err := s.health.Stop(shutdownCtx); err != nil {
			s.logger.Error("Failed to stop health check server", zap.Error(err))
		}
	}

	s.wg.Wait()
	s.components.Close(s.logger)

	s.logger.Info("Harvest server stopped")
}
