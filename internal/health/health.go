// Package health содержит health check сервер.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// checkTimeout ограничивает одну проверку компонента
const checkTimeout = 5 * time.Second

// Server представляет health check сервер
type Server struct {
	server    *http.Server
	logger    *zap.Logger
	startTime time.Time

	mu        sync.RWMutex
	checks    map[string]Checker
	scheduler StatusProvider
}

// Status представляет статус здоровья системы
type Status struct {
	Status     string                 `json:"status"`
	Timestamp  time.Time              `json:"timestamp"`
	Uptime     string                 `json:"uptime"`
	Components map[string]string      `json:"components,omitempty"`
	Scheduler  map[string]interface{} `json:"scheduler,omitempty"`
}

// NewServer создает health check сервер; metrics может быть nil
func NewServer(port string, logger *zap.Logger, metrics http.Handler) *Server {
	mux := http.NewServeMux()

	s := &Server{
		server: &http.Server{
			Addr:              ":" + port,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger:    logger,
		startTime: time.Now(),
		checks:    make(map[string]Checker),
	}

	// Регистрируем маршруты
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/ready", s.readyHandler)
	mux.HandleFunc("/live", s.liveHandler)
	if metrics != nil {
		mux.Handle("/metrics", metrics)
	}

	return s
}

// AddCheck регистрирует проверку готовности компонента
func (s *Server) AddCheck(name string, checker Checker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks[name] = checker
}

// SetScheduler подключает статус планировщика к /health
func (s *Server) SetScheduler(scheduler StatusProvider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduler = scheduler
}

// Handler возвращает HTTP обработчик сервера
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start запускает health check сервер
func (s *Server) Start() error {
	s.logger.Info("Starting health check server", zap.String("addr", s.server.Addr))
	return s.server.ListenAndServe()
}

// Stop останавливает health check сервер
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping health check server")
	return s.server.Shutdown(ctx)
}

// formatDuration форматирует время в читаемый формат (например: 8s)
func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%ds", int(d.Seconds()))
}

// healthHandler обрабатывает запросы /health: процесс жив, компоненты перечислены без влияния на код ответа
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := Status{
		Status:     "healthy",
		Timestamp:  time.Now(),
		Uptime:     formatDuration(time.Since(s.startTime)),
		Components: s.checkComponents(r.Context()),
	}

	s.mu.RLock()
	if s.scheduler != nil {
		status.Scheduler = s.scheduler.GetStatus()
	}
	s.mu.RUnlock()

	s.writeJSON(w, http.StatusOK, status)
}

// readyHandler обрабатывает запросы /ready
func (s *Server) readyHandler(w http.ResponseWriter, r *http.Request) {
	components := s.checkComponents(r.Context())

	status := Status{
		Status:     "ready",
		Timestamp:  time.Now(),
		Uptime:     formatDuration(time.Since(s.startTime)),
		Components: components,
	}
	code := http.StatusOK

	for _, state := range components {
		if state != "healthy" {
			status.Status = "not ready"
			code = http.StatusServiceUnavailable
			break
		}
	}

	if code != http.StatusOK {
		s.logger.Warn("Readiness check failed", zap.Any("components", components))
	}
	s.writeJSON(w, code, status)
}

// liveHandler обрабатывает запросы /live
func (s *Server) liveHandler(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, Status{
		Status:    "alive",
		Timestamp: time.Now(),
		Uptime:    formatDuration(time.Since(s.startTime)),
	})
}

// checkComponents проверяет все зарегистрированные компоненты
func (s *Server) checkComponents(ctx context.Context) map[string]string {
	s.mu.RLock()
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	checks := make(map[string]Checker, len(s.checks))
	for name, checker := range s.checks {
		checks[name] = checker
	}
	s.mu.RUnlock()

	sort.Strings(names)
	components := make(map[string]string, len(names))
	for _, name := range names {
		checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := checks[name].Ping(checkCtx)
		cancel()

		if err != nil {
			components[name] = "unhealthy"
			s.logger.Error("Component check failed", zap.String("component", name), zap.Error(err))
			continue
		}
		components[name] = "healthy"
	}
	return components
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, status Status) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(status); err != nil {
		s.logger.Error("Failed to encode health status", zap.Error(err))
	}
}
