package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"restoharvest/internal/external/geocoder"
	"restoharvest/internal/external/scraper"
	"restoharvest/internal/model"

	"go.uber.org/zap"
)

// ErrBatchRunning возвращается, если предыдущий пакетный сбор еще не завершен
var ErrBatchRunning = errors.New("batch harvest is already running")

// BatchOptions задает параметры пакетного сбора
type BatchOptions struct {
	StartPath    string
	SkipListings bool
	Filter       model.RestaurantFilter
}

// Failure описывает ресторан, который не удалось собрать
type Failure struct {
	Name      string `json:"name,omitempty"`
	DetailURL string `json:"detail_url"`
	Reason    string `json:"reason"`
}

// BatchReport представляет итог пакетного сбора.
// Рестораны без отзывов считаются отдельно от сбоев.
type BatchReport struct {
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	Listings    int       `json:"listings"`
	NewListings int       `json:"new_listings"`
	Candidates  int       `json:"candidates"`
	Harvested   int       `json:"harvested"`
	ZeroReview  int       `json:"zero_review"`
	Reviews     int       `json:"reviews"`
	Skipped     int       `json:"skipped"`
	Failed      []Failure `json:"failed"`
}

// Duration возвращает длительность сбора
func (r *BatchReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// HasFailures сообщает о наличии сбоев
func (r *BatchReport) HasFailures() bool {
	return len(r.Failed) > 0
}

func (r *BatchReport) fail(name *string, detailURL string, err error) {
	r.Failed = append(r.Failed, newFailure(name, detailURL, err))
}

func newFailure(name *string, detailURL string, err error) Failure {
	failure := Failure{DetailURL: detailURL, Reason: err.Error()}
	if name != nil {
		failure.Name = *name
	}
	return failure
}

// BatchDependencies содержит зависимости пакетного сбора.
// Ledger, Geocoder, Notifier и Recorder необязательны.
type BatchDependencies struct {
	Harvester Harvester
	Store     model.Store
	Ledger    Ledger
	Geocoder  Geocoder
	Notifier  Notifier
	Recorder  BatchRecorder
}

// BatchService собирает список ресторанов и отзывы всех еще не собранных ресторанов
type BatchService struct {
	deps   BatchDependencies
	retry  scraper.RetryConfig
	logger *zap.Logger
	now    func() time.Time
	mu     sync.Mutex
}

var _ BatchRunner = (*BatchService)(nil)

// NewBatchService создает сервис пакетного сбора
func NewBatchService(deps BatchDependencies, retry scraper.RetryConfig, logger *zap.Logger) *BatchService {
	return &BatchService{
		deps:   deps,
		retry:  retry,
		logger: logger,
		now:    time.Now,
	}
}

// Run выполняет пакетный сбор. Сбой одного ресторана записывается в отчет
// и не прерывает пакет; ошибку возвращают только сбой списка и отмена контекста.
func (s *BatchService) Run(ctx context.Context, options BatchOptions) (*BatchReport, error) {
	if !s.mu.TryLock() {
		return nil, ErrBatchRunning
	}
	defer s.mu.Unlock()

	report := &BatchReport{StartedAt: s.now(), Failed: []Failure{}}
	s.logger.Info("Starting batch harvest",
		zap.String("start_path", options.StartPath),
		zap.Bool("skip_listings", options.SkipListings),
		zap.String("cuisine", options.Filter.Cuisine),
		zap.String("name", options.Filter.Name),
		zap.Int("limit", options.Filter.Limit))

	err := s.run(ctx, options, report)
	report.FinishedAt = s.now()

	if err != nil {
		s.logger.Error("Batch harvest aborted", zap.Error(err))
	} else {
		s.logger.Info("Batch harvest finished",
			zap.Int("listings", report.Listings),
			zap.Int("harvested", report.Harvested),
			zap.Int("zero_review", report.ZeroReview),
			zap.Int("reviews", report.Reviews),
			zap.Int("skipped", report.Skipped),
			zap.Int("failed", len(report.Failed)),
			zap.Duration("duration", report.Duration()))
	}

	if s.deps.Recorder != nil {
		s.deps.Recorder.BatchFinished(report, err)
	}
	if s.deps.Notifier != nil {
		// контекст пакета может быть уже отменен, итог все равно отправляется
		notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		if notifyErr := s.deps.Notifier.NotifyBatch(notifyCtx, report, err); notifyErr != nil {
			s.logger.Warn("Failed to send batch notification", zap.Error(notifyErr))
		}
		cancel()
	}

	return report, err
}

func (s *BatchService) run(ctx context.Context, options BatchOptions, report *BatchReport) error {
	if !options.SkipListings {
		if err := s.saveListings(ctx, options.StartPath, report); err != nil {
			return err
		}
	}

	candidates, err := s.deps.Store.Restaurants().GetNotHarvested(ctx, options.Filter)
	if err != nil {
		return fmt.Errorf("failed to select restaurants: %w", err)
	}
	report.Candidates = len(candidates)
	s.logger.Info("Selected restaurants for review harvest", zap.Int("count", len(candidates)))

	for i := range candidates {
		if err := ctx.Err(); err != nil {
			return err
		}
		restaurant := &candidates[i]

		if s.alreadyHarvested(ctx, restaurant.DetailURL) {
			report.Skipped++
			continue
		}

		reviews, err := s.harvestRestaurant(ctx, restaurant)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Warn("Restaurant harvest failed, continuing",
				zap.String("detail_url", restaurant.DetailURL),
				zap.Error(err))
			report.fail(restaurant.Name, restaurant.DetailURL, err)
			continue
		}

		if reviews == 0 {
			report.ZeroReview++
		} else {
			report.Harvested++
			report.Reviews += reviews
		}
	}

	return nil
}

// saveListings собирает список и сохраняет все рестораны
func (s *BatchService) saveListings(ctx context.Context, startPath string, report *BatchReport) error {
	var listings []scraper.RestaurantListing
	err := scraper.WithRetry(ctx, s.logger, s.retry, func(ctx context.Context) error {
		var err error
		listings, err = s.deps.Harvester.HarvestListings(ctx, startPath)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to harvest listings: %w", err)
	}

	stored, err := StoreListings(ctx, s.deps.Store.Restaurants(), listings, s.logger)
	report.Listings = stored.Stored
	report.NewListings = stored.Created
	report.Failed = append(report.Failed, stored.Failed...)
	if err != nil {
		return err
	}

	s.logger.Info("Listings stored",
		zap.Int("harvested", len(listings)),
		zap.Int("stored", stored.Stored),
		zap.Int("new", stored.Created))
	return nil
}

// alreadyHarvested проверяет журнал; ошибка журнала не мешает сбору
func (s *BatchService) alreadyHarvested(ctx context.Context, detailURL string) bool {
	if s.deps.Ledger == nil {
		return false
	}
	done, err := s.deps.Ledger.IsHarvested(ctx, detailURL)
	if err != nil {
		s.logger.Warn("Ledger lookup failed, falling back to database", zap.Error(err))
		return false
	}
	if done {
		s.logger.Debug("Restaurant already harvested, skipping", zap.String("detail_url", detailURL))
	}
	return done
}

// harvestRestaurant собирает отзывы и адрес одного ресторана и сохраняет их
func (s *BatchService) harvestRestaurant(ctx context.Context, restaurant *model.Restaurant) (int, error) {
	var details *scraper.RestaurantDetails
	err := scraper.WithRetry(ctx, s.logger, s.retry, func(ctx context.Context) error {
		var err error
		details, err = s.deps.Harvester.HarvestRestaurant(ctx, restaurant.DetailURL)
		return err
	})
	if err != nil {
		return 0, err
	}

	if details.Address != nil && strings.TrimSpace(*details.Address) != "" {
		s.saveLocation(ctx, restaurant.RestaurantID, strings.TrimSpace(*details.Address))
	}

	reviews := reviewsForRestaurant(restaurant.RestaurantID, details.Reviews)
	saved, err := s.deps.Store.Reviews().SaveHarvest(ctx, restaurant.RestaurantID, reviews, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to store reviews: %w", err)
	}
	if s.deps.Ledger != nil {
		if err := s.deps.Ledger.MarkHarvested(ctx, restaurant.DetailURL, saved); err != nil {
			s.logger.Warn("Failed to update ledger", zap.String("detail_url", restaurant.DetailURL), zap.Error(err))
		}
	}

	s.logger.Info("Restaurant harvested",
		zap.String("restaurant", restaurant.DisplayName()),
		zap.Int("reviews", saved),
		zap.Int("invalid", len(reviews)-saved))
	return saved, nil
}

// saveLocation сохраняет адрес; сбой геокодера оставляет адрес неразрешенным
func (s *BatchService) saveLocation(ctx context.Context, restaurantID int64, address string) {
	var resolved *geocoder.Result
	if s.deps.Geocoder != nil {
		result, err := s.deps.Geocoder.Geocode(ctx, address)
		if err != nil {
			s.logger.Warn("Geocoding failed, storing unresolved address",
				zap.String("address", address),
				zap.Error(err))
		}
		resolved = result
	}

	location := locationFor(restaurantID, address, resolved)
	if err := location.Validate(); err != nil {
		s.logger.Warn("Invalid location, storing unresolved address", zap.Error(err))
		location = locationFor(restaurantID, address, nil)
	}
	if err := s.deps.Store.Locations().Save(ctx, location); err != nil {
		s.logger.Warn("Failed to store location", zap.Int64("restaurant_id", restaurantID), zap.Error(err))
	}
}

// ListingsResult - итог сохранения списка ресторанов
type ListingsResult struct {
	Stored  int       `json:"stored"`
	Created int       `json:"created"`
	Failed  []Failure `json:"failed"`
}

// StoreListings сохраняет рестораны из списка. Запись без detail_url или с невалидными
// полями попадает в Failed; ошибку возвращает только отмена контекста.
func StoreListings(ctx context.Context, restaurants model.RestaurantRepository, listings []scraper.RestaurantListing, logger *zap.Logger) (*ListingsResult, error) {
	result := &ListingsResult{Failed: []Failure{}}
	record := func(name *string, detailURL string, err error) {
		result.Failed = append(result.Failed, newFailure(name, detailURL, err))
	}

	for _, listing := range listings {
		restaurant, ok := restaurantFromListing(listing)
		if !ok {
			logger.Warn("Listing has no detail url, not stored", zap.Int("position", listing.Position))
			record(listing.Name, "", errors.New("listing has no detail url"))
			continue
		}
		if err := restaurant.Validate(); err != nil {
			record(restaurant.Name, restaurant.DetailURL, err)
			continue
		}

		exists, err := restaurants.ExistsByDetailURL(ctx, restaurant.DetailURL)
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			logger.Warn("Failed to check restaurant existence", zap.String("detail_url", restaurant.DetailURL), zap.Error(err))
			exists = true
		}

		if err := restaurants.Upsert(ctx, restaurant); err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			record(restaurant.Name, restaurant.DetailURL, err)
			continue
		}
		result.Stored++
		if !exists {
			result.Created++
		}
	}
	return result, nil
}
