package repository

import (
	"context"
	"fmt"
	"time"

	"restoharvest/internal/model"

	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// ReviewRepository реализует интерфейс для работы с отзывами
type ReviewRepository struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewReviewRepository создает новый репозиторий отзывов
func NewReviewRepository(db *bun.DB, logger *zap.Logger) *ReviewRepository {
	return &ReviewRepository{
		db:     db,
		logger: logger,
	}
}

// SaveHarvest сохраняет отзывы ресторана и ставит отметку harvested_at одной транзакцией.
// Невалидный отзыв пропускается с предупреждением и не мешает остальным.
// Если отметка уже стоит, транзакция откатывается с model.ErrAlreadyHarvested.
func (r *ReviewRepository) SaveHarvest(ctx context.Context, restaurantID int64, reviews []model.Review, harvestedAt time.Time) (int, error) {
	valid := validReviews(restaurantID, reviews, r.logger)

	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if len(valid) > 0 {
			if _, err := tx.NewInsert().Model(&valid).Exec(ctx); err != nil {
				return fmt.Errorf("failed to insert reviews: %w", err)
			}
		}

		res, err := tx.NewUpdate().
			Model((*model.Restaurant)(nil)).
			Set("harvested_at = ?", harvestedAt).
			Set("updated_at = ?", harvestedAt).
			Where("restaurant_id = ?", restaurantID).
			Where("harvested_at IS NULL").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to mark restaurant harvested: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to mark restaurant harvested: %w", err)
		}
		if affected == 0 {
			return model.ErrAlreadyHarvested
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to save harvest of restaurant %d: %w", restaurantID, err)
	}

	r.logger.Info("Reviews saved",
		zap.Int64("restaurant_id", restaurantID),
		zap.Int("count", len(valid)),
		zap.Int("skipped", len(reviews)-len(valid)))
	return len(valid), nil
}

// validReviews привязывает отзывы к ресторану и отбрасывает невалидные
func validReviews(restaurantID int64, reviews []model.Review, logger *zap.Logger) []model.Review {
	valid := make([]model.Review, 0, len(reviews))
	for i := range reviews {
		review := reviews[i]
		review.RestaurantID = restaurantID
		if err := review.Validate(); err != nil {
			logger.Warn("Invalid review skipped",
				zap.Int64("restaurant_id", restaurantID),
				zap.Int("index", i),
				zap.Error(err))
			continue
		}
		valid = append(valid, review)
	}
	return valid
}

// CountByRestaurant возвращает число сохраненных отзывов ресторана
func (r *ReviewRepository) CountByRestaurant(ctx context.Context, restaurantID int64) (int, error) {
	count, err := r.db.NewSelect().
		Model((*model.Review)(nil)).
		Where("restaurant_id = ?", restaurantID).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count reviews: %w", err)
	}
	return count, nil
}
