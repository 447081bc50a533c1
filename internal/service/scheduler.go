package service

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultBatchTimeout ограничивает один запуск пакетного сбора по расписанию
const DefaultBatchTimeout = 6 * time.Hour

// Scheduler запускает пакетный сбор по cron расписанию
type Scheduler struct {
	runner   BatchRunner
	spec     string
	options  BatchOptions
	timeout  time.Duration
	cron     *cron.Cron
	entryID  cron.EntryID
	logger   *zap.Logger
	mu       sync.RWMutex
	running  bool
	lastRun  time.Time
	lastErr  error
	ctx      context.Context
	cancel   context.CancelFunc
	location *time.Location
}

var _ SchedulerInterface = (*Scheduler)(nil)

// NewScheduler создает планировщик; location == nil означает UTC
func NewScheduler(runner BatchRunner, spec string, location *time.Location, options BatchOptions, logger *zap.Logger) *Scheduler {
	if location == nil {
		location = time.UTC
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		runner:   runner,
		spec:     spec,
		options:  options,
		timeout:  DefaultBatchTimeout,
		cron:     newCron(location),
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		location: location,
	}
}

// пропуск запуска, пока предыдущий не завершился
func newCron(location *time.Location) *cron.Cron {
	return cron.New(
		cron.WithLocation(location),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
}

// ValidateSpec проверяет cron выражение
func ValidateSpec(spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", spec, err)
	}
	return nil
}

// Start запускает планировщик
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler is already running")
	}

	id, err := s.cron.AddFunc(s.spec, s.runBatch)
	if err != nil {
		return fmt.Errorf("failed to add harvest to cron: %w", err)
	}
	s.entryID = id

	s.cron.Start()
	s.running = true

	s.logger.Info("Scheduler started",
		zap.String("cron_expression", s.spec),
		zap.String("timezone", s.location.String()),
		zap.Time("next_run", s.cron.Entry(id).Next))
	return nil
}

// Stop останавливает планировщик и дожидается текущего запуска
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	s.logger.Info("Stopping scheduler")

	s.cancel()
	<-s.cron.Stop().Done()

	s.logger.Info("Scheduler stopped")
}

// RunNow выполняет сбор немедленно, вне расписания
func (s *Scheduler) RunNow() {
	s.runBatch()
}

// runBatch выполняет один запуск пакетного сбора
func (s *Scheduler) runBatch() {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Panic recovered in scheduled harvest",
				zap.Any("panic", r),
				zap.String("stack", string(debug.Stack())))
		}
	}()

	s.logger.Info("Executing scheduled harvest")

	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	report, err := s.runner.Run(ctx, s.options)

	s.mu.Lock()
	s.lastRun = time.Now()
	s.lastErr = err
	s.mu.Unlock()

	switch {
	case errors.Is(err, ErrBatchRunning):
		s.logger.Warn("Previous harvest still running, skipping")
	case err != nil:
		s.logger.Error("Scheduled harvest failed", zap.Error(err))
	default:
		s.logger.Info("Scheduled harvest completed",
			zap.Int("harvested", report.Harvested),
			zap.Int("failed", len(report.Failed)))
	}
}

// NextRun возвращает время следующего запуска или нулевое время
func (s *Scheduler) NextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.running {
		return time.Time{}
	}
	return s.cron.Entry(s.entryID).Next
}

// GetStatus возвращает статус планировщика
func (s *Scheduler) GetStatus() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := map[string]interface{}{
		"running":         s.running,
		"cron_expression": s.spec,
	}
	if s.running {
		status["next_run"] = s.cron.Entry(s.entryID).Next
	}
	if !s.lastRun.IsZero() {
		status["last_run"] = s.lastRun
	}
	if s.lastErr != nil {
		status["last_error"] = s.lastErr.Error()
	}
	return status
}
