// Package model содержит модели данных.
//
// Группа: ENTITIES - Основные сущности
// Содержит: Location, LocationRepository
package model

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

// Location представляет адрес ресторана и результат геокодирования.
// Resolved=false означает, что сохранен только исходный адрес.
type Location struct {
	bun.BaseModel `bun:"table:locations"`

	LocationID   int64     `bun:"location_id,pk,autoincrement" json:"location_id"`
	RestaurantID int64     `bun:"restaurant_id,unique,notnull" json:"restaurant_id"`
	Address      string    `bun:"address,notnull" json:"address"`
	Latitude     *float64  `bun:"latitude" json:"latitude"`
	Longitude    *float64  `bun:"longitude" json:"longitude"`
	Locality     *string   `bun:"locality" json:"locality"`
	PostalCode   *string   `bun:"postal_code" json:"postal_code"`
	Resolved     bool      `bun:"resolved,notnull,default:false" json:"resolved"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt    time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

// Validate проверяет валидность адреса
func (l *Location) Validate() error {
	var errors ValidationErrors

	if err := ValidateRequired("address", l.Address); err != nil {
		errors = append(errors, err.(ValidationError))
	}

	if l.Latitude != nil {
		if err := ValidateRange("latitude", *l.Latitude, -90, 90); err != nil {
			errors = append(errors, err.(ValidationError))
		}
	}

	if l.Longitude != nil {
		if err := ValidateRange("longitude", *l.Longitude, -180, 180); err != nil {
			errors = append(errors, err.(ValidationError))
		}
	}

	if errors.HasErrors() {
		return errors
	}

	return nil
}

// LocationRepository определяет интерфейс для работы с адресами
type LocationRepository interface {
	Save(ctx context.Context, location *Location) error
	GetByRestaurant(ctx context.Context, restaurantID int64) (*Location, error)
}
