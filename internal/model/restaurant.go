// Package model содержит модели данных.
//
// Группа: ENTITIES - Основные сущности
// Содержит: Restaurant, RestaurantRepository
package model

import (
	"context"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

// Restaurant представляет ресторан, найденный в списке.
// Уникальный ключ - DetailURL: ранг SourceID меняется между запусками.
type Restaurant struct {
	bun.BaseModel `bun:"table:restaurants"`

	RestaurantID     int64      `bun:"restaurant_id,pk,autoincrement" json:"restaurant_id"`
	SourceID         *string    `bun:"source_id" json:"source_id"`
	Name             *string    `bun:"name" json:"name"`
	DetailURL        string     `bun:"detail_url,unique,notnull" json:"detail_url"`
	AverageRating    *float64   `bun:"average_rating" json:"average_rating"`
	TotalReviewCount *int       `bun:"total_review_count" json:"total_review_count"`
	PriceTier        *string    `bun:"price_tier" json:"price_tier"`
	CuisineType      *string    `bun:"cuisine_type" json:"cuisine_type"`
	Position         int        `bun:"position,notnull,default:0" json:"position"`
	HarvestedAt      *time.Time `bun:"harvested_at" json:"harvested_at"`
	CreatedAt        time.Time  `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt        time.Time  `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`

	Reviews  []*Review `bun:"rel:has-many,join:restaurant_id=restaurant_id" json:"reviews,omitempty"`
	Location *Location `bun:"rel:has-one,join:restaurant_id=restaurant_id" json:"location,omitempty"`
}

// Validate проверяет валидность ресторана
func (r *Restaurant) Validate() error {
	var errors ValidationErrors

	if err := ValidateRequired("detail_url", r.DetailURL); err != nil {
		errors = append(errors, err.(ValidationError))
	} else if !strings.HasPrefix(r.DetailURL, "/") {
		errors = append(errors, ValidationError{Field: "detail_url", Message: "must be a relative path"})
	}

	if r.AverageRating != nil {
		if err := ValidateRange("average_rating", *r.AverageRating, 0, 5); err != nil {
			errors = append(errors, err.(ValidationError))
		}
	}

	if r.TotalReviewCount != nil {
		if err := ValidateNonNegativeInt("total_review_count", *r.TotalReviewCount); err != nil {
			errors = append(errors, err.(ValidationError))
		}
	}

	if errors.HasErrors() {
		return errors
	}

	return nil
}

// DisplayName возвращает название или адрес страницы, если название не найдено
func (r *Restaurant) DisplayName() string {
	if r.Name != nil && *r.Name != "" {
		return *r.Name
	}
	return r.DetailURL
}

// Cuisines возвращает типы кухни, разделенные запятыми
func (r *Restaurant) Cuisines() []string {
	if r.CuisineType == nil {
		return nil
	}
	var cuisines []string
	for _, part := range strings.Split(*r.CuisineType, ",") {
		if part = strings.TrimSpace(part); part != "" {
			cuisines = append(cuisines, part)
		}
	}
	return cuisines
}

// HasCuisine проверяет тип кухни без учета регистра
func (r *Restaurant) HasCuisine(cuisine string) bool {
	for _, c := range r.Cuisines() {
		if strings.EqualFold(c, strings.TrimSpace(cuisine)) {
			return true
		}
	}
	return false
}

// RestaurantFilter задает отбор ресторанов для пакетного сбора
type RestaurantFilter struct {
	Name    string
	Cuisine string
	Limit   int
}

// RestaurantRepository определяет интерфейс для работы с ресторанами
type RestaurantRepository interface {
	Upsert(ctx context.Context, restaurant *Restaurant) error
	ExistsByDetailURL(ctx context.Context, detailURL string) (bool, error)
	GetByDetailURL(ctx context.Context, detailURL string) (*Restaurant, error)
	GetNotHarvested(ctx context.Context, filter RestaurantFilter) ([]Restaurant, error)
}
