package service

import (
	"context"

	"restoharvest/internal/external/geocoder"
	"restoharvest/internal/external/scraper"
)

// Harvester определяет интерфейс движка сбора
type Harvester interface {
	HarvestListings(ctx context.Context, startPath string) ([]scraper.RestaurantListing, error)
	HarvestRestaurant(ctx context.Context, startPath string) (*scraper.RestaurantDetails, error)
}

// Ledger определяет интерфейс быстрого журнала собранных ресторанов
type Ledger interface {
	IsHarvested(ctx context.Context, detailURL string) (bool, error)
	MarkHarvested(ctx context.Context, detailURL string, reviews int) error
}

// Geocoder определяет интерфейс геокодера
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*geocoder.Result, error)
}

// Notifier отправляет итог пакетного сбора
type Notifier interface {
	NotifyBatch(ctx context.Context, report *BatchReport, batchErr error) error
}

// BatchRecorder фиксирует итог пакетного сбора в метриках
type BatchRecorder interface {
	BatchFinished(report *BatchReport, batchErr error)
}

// BatchRunner запускает пакетный сбор
type BatchRunner interface {
	Run(ctx context.Context, options BatchOptions) (*BatchReport, error)
}

// SchedulerInterface определяет интерфейс для планировщика сбора
type SchedulerInterface interface {
	Start() error
	Stop()
	GetStatus() map[string]interface{}
}
