// Package model содержит базовые модели и интерфейсы.
//
// Группа: BASE - Базовые компоненты
// Содержит: Models, Store
package model

import "errors"

// ErrAlreadyHarvested возвращается, если отметка о сборе уже стоит или ресторана нет
var ErrAlreadyHarvested = errors.New("restaurant is missing or already harvested")

// Models перечисляет таблицы схемы в порядке создания
func Models() []any {
	return []any{
		(*Restaurant)(nil),
		(*Review)(nil),
		(*Location)(nil),
	}
}

// Store объединяет репозитории хранилища
type Store interface {
	Restaurants() RestaurantRepository
	Reviews() ReviewRepository
	Locations() LocationRepository
}
