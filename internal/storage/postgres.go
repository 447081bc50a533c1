// Package storage содержит работу с базой данных.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"restoharvest/internal/model"
	"restoharvest/internal/storage/repository"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"
	"go.uber.org/zap"
)

const (
	connectRetries    = 10
	connectRetryDelay = 5 * time.Second
)

// Postgres представляет подключение к PostgreSQL
type Postgres struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewPostgres создает новое подключение к PostgreSQL с retry логикой
func NewPostgres(ctx context.Context, databaseURL string, debug bool, logger *zap.Logger) (*Postgres, error) {
	var lastErr error

	for attempt := 1; attempt <= connectRetries; attempt++ {
		logger.Info("Attempting to connect to database",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", connectRetries))

		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(databaseURL)))

		// пул небольшой: сбор идет последовательно
		sqldb.SetMaxOpenConns(10)
		sqldb.SetMaxIdleConns(5)
		sqldb.SetConnMaxLifetime(5 * time.Minute)
		sqldb.SetConnMaxIdleTime(1 * time.Minute)

		db := bun.NewDB(sqldb, pgdialect.New())

		if debug || logger.Core().Enabled(zap.DebugLevel) {
			db.AddQueryHook(bundebug.NewQueryHook(
				bundebug.WithVerbose(true),
				bundebug.FromEnv("BUNDEBUG"),
			))
		}

		pingCtx, pingCancel := context.WithTimeout(ctx, 10*time.Second)
		lastErr = db.PingContext(pingCtx)
		pingCancel()

		if lastErr == nil {
			logger.Info("Connected to PostgreSQL database with Bun ORM",
				zap.Int("attempt", attempt))
			return &Postgres{db: db, logger: logger}, nil
		}

		logger.Warn("Failed to connect to database",
			zap.Int("attempt", attempt),
			zap.Error(lastErr))

		if err := db.Close(); err != nil {
			logger.Warn("Failed to close database connection", zap.Error(err))
		}

		if attempt == connectRetries {
			break
		}

		logger.Info("Retrying connection", zap.Duration("delay", connectRetryDelay))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(connectRetryDelay):
		}
	}

	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", connectRetries, lastErr)
}

// CreateSchema создает таблицы и индексы, если их нет
func (p *Postgres) CreateSchema(ctx context.Context) error {
	for _, m := range model.Models() {
		if _, err := p.db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to create table for %T: %w", m, err)
		}
	}

	_, err := p.db.NewCreateIndex().
		Model((*model.Review)(nil)).
		Index("reviews_restaurant_id_idx").
		Column("restaurant_id").
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create reviews index: %w", err)
	}

	p.logger.Info("Database schema is up to date")
	return nil
}

// Ping проверяет доступность базы
func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Close закрывает соединение с базой данных
func (p *Postgres) Close() error {
	return p.db.Close()
}

// GetDB возвращает подключение к базе данных
func (p *Postgres) GetDB() *bun.DB {
	return p.db
}

// Restaurants возвращает репозиторий ресторанов
func (p *Postgres) Restaurants() model.RestaurantRepository {
	return repository.NewRestaurantRepository(p.db, p.logger)
}

// Reviews возвращает репозиторий отзывов
func (p *Postgres) Reviews() model.ReviewRepository {
	return repository.NewReviewRepository(p.db, p.logger)
}

// Locations возвращает репозиторий адресов
func (p *Postgres) Locations() model.LocationRepository {
	return repository.NewLocationRepository(p.db, p.logger)
}
