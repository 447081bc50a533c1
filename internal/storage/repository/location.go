package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"restoharvest/internal/model"

	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// LocationRepository реализует интерфейс для работы с адресами
type LocationRepository struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewLocationRepository создает новый репозиторий адресов
func NewLocationRepository(db *bun.DB, logger *zap.Logger) *LocationRepository {
	return &LocationRepository{
		db:     db,
		logger: logger,
	}
}

// Save вставляет или обновляет адрес ресторана
func (r *LocationRepository) Save(ctx context.Context, location *model.Location) error {
	if err := location.Validate(); err != nil {
		return err
	}
	location.UpdatedAt = time.Now()

	_, err := r.db.NewInsert().
		Model(location).
		On("CONFLICT (restaurant_id) DO UPDATE").
		Set("address = EXCLUDED.address").
		Set("latitude = EXCLUDED.latitude").
		Set("longitude = EXCLUDED.longitude").
		Set("locality = EXCLUDED.locality").
		Set("postal_code = EXCLUDED.postal_code").
		Set("resolved = EXCLUDED.resolved").
		Set("updated_at = EXCLUDED.updated_at").
		Returning("location_id").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to save location for restaurant %d: %w", location.RestaurantID, err)
	}

	r.logger.Debug("Location saved",
		zap.Int64("restaurant_id", location.RestaurantID),
		zap.Bool("resolved", location.Resolved))
	return nil
}

// GetByRestaurant возвращает адрес ресторана или nil
func (r *LocationRepository) GetByRestaurant(ctx context.Context, restaurantID int64) (*model.Location, error) {
	location := new(model.Location)

	err := r.db.NewSelect().
		Model(location).
		Where("restaurant_id = ?", restaurantID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query location: %w", err)
	}

	return location, nil
}
