// Package app содержит фабрику компонентов приложения.
package app

import (
	"context"
	"fmt"
	"strings"

	"restoharvest/internal/config"
	"restoharvest/internal/external/geocoder"
	"restoharvest/internal/external/scraper"
	"restoharvest/internal/external/telegram"
	"restoharvest/internal/health"
	"restoharvest/internal/infrastructure/metrics"
	"restoharvest/internal/service"
	"restoharvest/internal/storage"
	"restoharvest/internal/storage/ledger"

	"go.uber.org/zap"
)

// ComponentFactory создает компоненты приложения
type ComponentFactory struct {
	config *config.Config
	logger *zap.Logger
}

// NewComponentFactory создает новую фабрику компонентов
func NewComponentFactory(config *config.Config, logger *zap.Logger) (*ComponentFactory, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	return &ComponentFactory{
		config: config,
		logger: logger,
	}, nil
}

// ScraperConfig собирает конфигурацию скрейпера: встроенный профиль локали,
// поверх него файл профиля и явный базовый адрес
func (f *ComponentFactory) ScraperConfig() (scraper.Config, error) {
	sc := f.config.ScraperConfig

	profile, err := scraper.ProfileFor(sc.Locale)
	if err != nil {
		return scraper.Config{}, err
	}
	if sc.ProfileFile != "" {
		profile, err = scraper.LoadProfileFile(sc.ProfileFile, profile)
		if err != nil {
			return scraper.Config{}, err
		}
		f.logger.Info("Site profile loaded from file",
			zap.String("path", sc.ProfileFile),
			zap.String("version", profile.Version))
	}
	if sc.BaseURL != "" {
		profile.BaseURL = strings.TrimRight(sc.BaseURL, "/")
	}

	return scraper.Config{
		Backend:         scraper.Backend(sc.Backend),
		Timeout:         sc.Timeout,
		MinDelay:        sc.MinDelay,
		MaxDelay:        sc.MaxDelay,
		EmptyPageBudget: sc.EmptyPageBudget,
		HTTPClientConfig: scraper.HTTPClientConfig{
			MaxIdleConns:          f.config.HTTPClientConfig.MaxIdleConns,
			MaxIdleConnsPerHost:   f.config.HTTPClientConfig.MaxIdleConnsPerHost,
			IdleConnTimeout:       f.config.HTTPClientConfig.IdleConnTimeout,
			TLSHandshakeTimeout:   f.config.HTTPClientConfig.TLSHandshakeTimeout,
			ResponseHeaderTimeout: f.config.HTTPClientConfig.ResponseHeaderTimeout,
			DisableKeepAlives:     f.config.HTTPClientConfig.DisableKeepAlives,
		},
		Profile: profile,
	}, nil
}

// CreateHarvester создает движок сбора; observer может быть nil
func (f *ComponentFactory) CreateHarvester(observer scraper.Observer) (*scraper.Harvester, error) {
	scraperConfig, err := f.ScraperConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to build scraper config: %w", err)
	}

	harvester, err := scraper.New(scraperConfig, observer, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create harvester: %w", err)
	}

	f.logger.Info("Harvester created",
		zap.String("backend", string(scraperConfig.Backend)),
		zap.String("base_url", scraperConfig.Profile.BaseURL),
		zap.String("profile", scraperConfig.Profile.Version))
	return harvester, nil
}

// CreateDatabase создает подключение к базе данных и схему
func (f *ComponentFactory) CreateDatabase(ctx context.Context) (*storage.Postgres, error) {
	if err := f.config.RequireDatabase(); err != nil {
		return nil, err
	}

	db, err := storage.NewPostgres(ctx, f.config.DatabaseURL, f.config.DatabaseDebug, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection: %w", err)
	}

	if err := db.CreateSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	f.logger.Info("Database connection created successfully")
	return db, nil
}

// CreateLedger создает журнал в Redis; без REDIS_URL возвращает nil
func (f *ComponentFactory) CreateLedger(ctx context.Context) (*ledger.Ledger, error) {
	if f.config.RedisURL == "" {
		f.logger.Info("REDIS_URL not set, harvest ledger disabled")
		return nil, nil
	}

	client, err := ledger.NewClient(f.config.RedisURL)
	if err != nil {
		return nil, err
	}

	l := ledger.New(client, f.config.LedgerTTL, f.logger)
	if err := l.Ping(ctx); err != nil {
		_ = l.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	f.logger.Info("Harvest ledger connected")
	return l, nil
}

// CreateGeocoder создает геокодер; выключенный геокодер возвращает nil
func (f *ComponentFactory) CreateGeocoder() *geocoder.Client {
	gc := f.config.GeocoderConfig
	if !gc.Enabled {
		f.logger.Info("Geocoder is disabled, addresses stay unresolved")
		return nil
	}

	f.logger.Info("Geocoder enabled", zap.String("base_url", gc.BaseURL))
	return geocoder.New(geocoder.Config{
		BaseURL:   gc.BaseURL,
		UserAgent: gc.UserAgent,
		Timeout:   gc.Timeout,
	}, f.logger)
}

// CreateNotifier создает уведомитель Telegram; без настроек возвращает nil
func (f *ComponentFactory) CreateNotifier() (*telegram.Notifier, error) {
	if !f.config.NotificationsEnabled() {
		f.logger.Info("Telegram notifications are disabled")
		return nil, nil
	}

	notifier, err := telegram.NewNotifier(f.config.TelegramBotToken, f.config.TelegramChatID, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram notifier: %w", err)
	}
	return notifier, nil
}

// CreateHealthServer создает сервер health check с метриками
func (f *ComponentFactory) CreateHealthServer(db *storage.Postgres, l *ledger.Ledger, m *metrics.Metrics) *health.Server {
	if !f.config.HealthCheckEnabled {
		f.logger.Info("Health check server is disabled")
		return nil
	}

	server := health.NewServer(f.config.HealthPort, f.logger, m.Handler())
	if db != nil {
		server.AddCheck("database", db)
	}
	if l != nil {
		server.AddCheck("redis", l)
	}

	f.logger.Info("Health check server created", zap.String("port", f.config.HealthPort))
	return server
}

// Components содержит собранные зависимости пакетного сбора
type Components struct {
	DB        *storage.Postgres
	Ledger    *ledger.Ledger
	Metrics   *metrics.Metrics
	Harvester *scraper.Harvester
	Services  *service.Services
}

// CreateComponents собирает все зависимости для команд batch и serve.
// События обхода получают метрики и дополнительные наблюдатели extra.
func (f *ComponentFactory) CreateComponents(ctx context.Context, extra ...scraper.Observer) (*Components, error) {
	m := metrics.New()

	var observer scraper.Observer = m
	if len(extra) > 0 {
		observer = append(scraper.Observers{m}, extra...)
	}

	harvester, err := f.CreateHarvester(observer)
	if err != nil {
		return nil, err
	}

	db, err := f.CreateDatabase(ctx)
	if err != nil {
		return nil, err
	}

	components := &Components{DB: db, Metrics: m, Harvester: harvester}

	l, err := f.CreateLedger(ctx)
	if err != nil {
		components.Close(f.logger)
		return nil, err
	}
	components.Ledger = l

	notifier, err := f.CreateNotifier()
	if err != nil {
		components.Close(f.logger)
		return nil, err
	}

	// необязательные зависимости передаются только ненулевыми, иначе интерфейс не будет nil
	deps := service.BatchDependencies{
		Harvester: harvester,
		Store:     db,
		Recorder:  m,
	}
	if l != nil {
		deps.Ledger = l
	}
	if gc := f.CreateGeocoder(); gc != nil {
		deps.Geocoder = gc
	}
	if notifier != nil {
		deps.Notifier = notifier
	}

	services, err := service.NewServices(deps, f.config, f.logger)
	if err != nil {
		components.Close(f.logger)
		return nil, fmt.Errorf("failed to create services: %w", err)
	}
	components.Services = services

	f.logger.Info("Components created successfully")
	return components, nil
}

// Close освобождает подключения
func (c *Components) Close(logger *zap.Logger) {
	if c.Ledger != nil {
		if err := c.Ledger.Close(); err != nil {
			logger.Error("Failed to close redis connection", zap.Error(err))
		}
	}
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			logger.Error("Failed to close database connection", zap.Error(err))
		}
	}
}
