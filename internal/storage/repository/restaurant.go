// Package repository содержит репозитории для работы с базой данных.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"restoharvest/internal/model"

	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// RestaurantRepository реализует интерфейс для работы с ресторанами
type RestaurantRepository struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewRestaurantRepository создает новый репозиторий ресторанов
func NewRestaurantRepository(db *bun.DB, logger *zap.Logger) *RestaurantRepository {
	return &RestaurantRepository{
		db:     db,
		logger: logger,
	}
}

// Upsert вставляет ресторан или обновляет существующий с тем же detail_url.
// Отметка harvested_at при обновлении сохраняется.
func (r *RestaurantRepository) Upsert(ctx context.Context, restaurant *model.Restaurant) error {
	if err := restaurant.Validate(); err != nil {
		return err
	}

	restaurant.DetailURL = strings.TrimSpace(restaurant.DetailURL)
	restaurant.UpdatedAt = time.Now()

	_, err := r.db.NewInsert().
		Model(restaurant).
		On("CONFLICT (detail_url) DO UPDATE").
		Set("source_id = EXCLUDED.source_id").
		Set("name = EXCLUDED.name").
		Set("average_rating = EXCLUDED.average_rating").
		Set("total_review_count = EXCLUDED.total_review_count").
		Set("price_tier = EXCLUDED.price_tier").
		Set("cuisine_type = EXCLUDED.cuisine_type").
		Set("position = EXCLUDED.position").
		Set("updated_at = EXCLUDED.updated_at").
		Returning("restaurant_id, harvested_at, created_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert restaurant %s: %w", restaurant.DetailURL, err)
	}

	r.logger.Debug("Restaurant upserted",
		zap.Int64("restaurant_id", restaurant.RestaurantID),
		zap.String("detail_url", restaurant.DetailURL))
	return nil
}

// ExistsByDetailURL проверяет, сохранен ли ресторан с таким detail_url
func (r *RestaurantRepository) ExistsByDetailURL(ctx context.Context, detailURL string) (bool, error) {
	exists, err := r.db.NewSelect().
		Model((*model.Restaurant)(nil)).
		Where("detail_url = ?", strings.TrimSpace(detailURL)).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check restaurant existence: %w", err)
	}
	return exists, nil
}

// GetByDetailURL возвращает ресторан по detail_url или nil, если его нет
func (r *RestaurantRepository) GetByDetailURL(ctx context.Context, detailURL string) (*model.Restaurant, error) {
	restaurant := new(model.Restaurant)

	err := r.db.NewSelect().
		Model(restaurant).
		Where("detail_url = ?", strings.TrimSpace(detailURL)).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query restaurant by detail url: %w", err)
	}

	return restaurant, nil
}

// GetNotHarvested возвращает рестораны, отзывы которых еще не собраны
func (r *RestaurantRepository) GetNotHarvested(ctx context.Context, filter model.RestaurantFilter) ([]model.Restaurant, error) {
	var restaurants []model.Restaurant

	query := r.db.NewSelect().
		Model(&restaurants).
		Where("harvested_at IS NULL").
		Order("position ASC", "restaurant_id ASC")

	if name := strings.TrimSpace(filter.Name); name != "" {
		query = query.Where("name ILIKE ?", "%"+name+"%")
	}
	if cuisine := strings.TrimSpace(filter.Cuisine); cuisine != "" {
		query = query.Where("cuisine_type ILIKE ?", "%"+cuisine+"%")
	}

	if err := query.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to query not harvested restaurants: %w", err)
	}

	return ApplyFilter(restaurants, filter), nil
}

// ApplyFilter отбирает рестораны по названию и точному типу кухни.
// ILIKE в запросе грубый: "Thaï" не должно совпадать с "Thaïlandaise, Fusion".
func ApplyFilter(restaurants []model.Restaurant, filter model.RestaurantFilter) []model.Restaurant {
	result := make([]model.Restaurant, 0, len(restaurants))
	name := strings.ToLower(strings.TrimSpace(filter.Name))

	for i := range restaurants {
		restaurant := &restaurants[i]
		if name != "" && !strings.Contains(strings.ToLower(restaurant.DisplayName()), name) {
			continue
		}
		if filter.Cuisine != "" && !restaurant.HasCuisine(filter.Cuisine) {
			continue
		}
		result = append(result, *restaurant)
		if filter.Limit > 0 && len(result) == filter.Limit {
			break
		}
	}
	return result
}
