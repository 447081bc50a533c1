// Package model содержит модели данных.
//
// Группа: ENTITIES - Основные сущности
// Содержит: Review, ReviewRepository
package model

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

// Review представляет отзыв о ресторане.
// Ресторан привязывается при сохранении, скрейпер о нем не знает.
type Review struct {
	bun.BaseModel `bun:"table:reviews"`

	ReviewID                int64      `bun:"review_id,pk,autoincrement" json:"review_id"`
	RestaurantID            int64      `bun:"restaurant_id,notnull" json:"restaurant_id"`
	AuthorName              *string    `bun:"author_name" json:"author_name"`
	BodyText                *string    `bun:"body_text" json:"body_text"`
	Rating                  *float64   `bun:"rating" json:"rating"`
	WrittenOn               *time.Time `bun:"written_on,type:date" json:"written_on"`
	AuthorContributionCount *int       `bun:"author_contribution_count" json:"author_contribution_count"`
	CreatedAt               time.Time  `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}

// Validate проверяет валидность отзыва.
// Отзыв без рейтинга и даты допустим: текст остается полезным.
// Дата не сверяется с текущим временем: сайт пишет ее в своем часовом поясе.
func (r *Review) Validate() error {
	var errors ValidationErrors

	if err := ValidatePositiveInt("restaurant_id", int(r.RestaurantID)); err != nil {
		errors = append(errors, err.(ValidationError))
	}

	if r.Rating != nil {
		if err := ValidateRange("rating", *r.Rating, 0, 5); err != nil {
			errors = append(errors, err.(ValidationError))
		}
	}

	if r.AuthorContributionCount != nil {
		if err := ValidateNonNegativeInt("author_contribution_count", *r.AuthorContributionCount); err != nil {
			errors = append(errors, err.(ValidationError))
		}
	}

	if errors.HasErrors() {
		return errors
	}

	return nil
}

// ReviewRepository определяет интерфейс для работы с отзывами
type ReviewRepository interface {
	// SaveHarvest сохраняет отзывы и отметку о сборе ресторана в одной транзакции
	// и возвращает число сохраненных отзывов
	SaveHarvest(ctx context.Context, restaurantID int64, reviews []Review, harvestedAt time.Time) (int, error)
	CountByRestaurant(ctx context.Context, restaurantID int64) (int, error)
}
