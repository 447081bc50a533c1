package service

import (
	"context"
	"fmt"

	"restoharvest/internal/model"
)

// StoredRestaurant - сохраненный ресторан с числом отзывов и адресом
type StoredRestaurant struct {
	Restaurant *model.Restaurant `json:"restaurant"`
	Reviews    int               `json:"reviews"`
	Location   *model.Location   `json:"location"`
}

// LookupRestaurant находит ресторан по ссылке на его страницу.
// Принимает и абсолютный адрес; nil без ошибки означает, что ресторан не сохранен.
func LookupRestaurant(ctx context.Context, store model.Store, href string) (*StoredRestaurant, error) {
	detailURL, ok := detailPath(href)
	if !ok {
		return nil, fmt.Errorf("invalid restaurant path %q", href)
	}

	restaurant, err := store.Restaurants().GetByDetailURL(ctx, detailURL)
	if err != nil {
		return nil, err
	}
	if restaurant == nil {
		return nil, nil
	}

	reviews, err := store.Reviews().CountByRestaurant(ctx, restaurant.RestaurantID)
	if err != nil {
		return nil, err
	}
	location, err := store.Locations().GetByRestaurant(ctx, restaurant.RestaurantID)
	if err != nil {
		return nil, err
	}

	return &StoredRestaurant{Restaurant: restaurant, Reviews: reviews, Location: location}, nil
}
