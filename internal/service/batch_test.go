package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"restoharvest/internal/external/geocoder"
	"restoharvest/internal/external/scraper"
	"restoharvest/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func strPtr(s string) *string { return &s }

type fakeHarvester struct {
	listings    []scraper.RestaurantListing
	listingsErr error
	details     map[string]*scraper.RestaurantDetails
	errs        map[string][]error
	calls       map[string]int
	mu          sync.Mutex
}

func (f *fakeHarvester) HarvestListings(ctx context.Context, startPath string) ([]scraper.RestaurantListing, error) {
	return f.listings, f.listingsErr
}

func (f *fakeHarvester) HarvestRestaurant(ctx context.Context, startPath string) (*scraper.RestaurantDetails, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[startPath]++
	if queue := f.errs[startPath]; len(queue) > 0 {
		err := queue[0]
		f.errs[startPath] = queue[1:]
		return nil, err
	}
	if details, ok := f.details[startPath]; ok {
		return details, nil
	}
	return nil, &scraper.PaginationExhaustedError{StartPath: startPath, Path: startPath, Page: 1, EmptyPages: 10}
}

type fakeStore struct {
	restaurants *fakeRestaurants
	reviews     *fakeReviews
	locations   *fakeLocations
}

func newFakeStore() *fakeStore {
	restaurants := &fakeRestaurants{byURL: map[string]*model.Restaurant{}}
	return &fakeStore{
		restaurants: restaurants,
		reviews:     &fakeReviews{restaurants: restaurants, byRestaurant: map[int64][]model.Review{}},
		locations:   &fakeLocations{byRestaurant: map[int64]*model.Location{}},
	}
}

func (s *fakeStore) Restaurants() model.RestaurantRepository { return s.restaurants }
func (s *fakeStore) Reviews() model.ReviewRepository         { return s.reviews }
func (s *fakeStore) Locations() model.LocationRepository     { return s.locations }

type fakeRestaurants struct {
	byURL     map[string]*model.Restaurant
	nextID    int64
	upsertErr error
	filters   []model.RestaurantFilter
	lookups   int
}

func (r *fakeRestaurants) Upsert(ctx context.Context, restaurant *model.Restaurant) error {
	if r.upsertErr != nil {
		return r.upsertErr
	}
	if existing, ok := r.byURL[restaurant.DetailURL]; ok {
		restaurant.RestaurantID = existing.RestaurantID
		restaurant.HarvestedAt = existing.HarvestedAt
	} else {
		r.nextID++
		restaurant.RestaurantID = r.nextID
	}
	stored := *restaurant
	r.byURL[restaurant.DetailURL] = &stored
	return nil
}

func (r *fakeRestaurants) ExistsByDetailURL(ctx context.Context, detailURL string) (bool, error) {
	r.lookups++
	_, ok := r.byURL[detailURL]
	return ok, nil
}

func (r *fakeRestaurants) GetByDetailURL(ctx context.Context, detailURL string) (*model.Restaurant, error) {
	return r.byURL[detailURL], nil
}

func (r *fakeRestaurants) GetNotHarvested(ctx context.Context, filter model.RestaurantFilter) ([]model.Restaurant, error) {
	r.filters = append(r.filters, filter)
	var result []model.Restaurant
	for _, restaurant := range r.byURL {
		if restaurant.HarvestedAt == nil {
			result = append(result, *restaurant)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].RestaurantID < result[j].RestaurantID })
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (r *fakeRestaurants) byID(restaurantID int64) *model.Restaurant {
	for _, restaurant := range r.byURL {
		if restaurant.RestaurantID == restaurantID {
			return restaurant
		}
	}
	return nil
}

// fakeReviews ведет себя как транзакция: при ошибке не сохраняет ни отзывы, ни отметку
type fakeReviews struct {
	restaurants  *fakeRestaurants
	byRestaurant map[int64][]model.Review
	err          error
}

func (r *fakeReviews) SaveHarvest(ctx context.Context, restaurantID int64, reviews []model.Review, harvestedAt time.Time) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	restaurant := r.restaurants.byID(restaurantID)
	if restaurant == nil || restaurant.HarvestedAt != nil {
		return 0, model.ErrAlreadyHarvested
	}
	r.byRestaurant[restaurantID] = append(r.byRestaurant[restaurantID], reviews...)
	restaurant.HarvestedAt = &harvestedAt
	return len(reviews), nil
}

func (r *fakeReviews) CountByRestaurant(ctx context.Context, restaurantID int64) (int, error) {
	return len(r.byRestaurant[restaurantID]), nil
}

type fakeLocations struct {
	byRestaurant map[int64]*model.Location
}

func (l *fakeLocations) Save(ctx context.Context, location *model.Location) error {
	l.byRestaurant[location.RestaurantID] = location
	return nil
}

func (l *fakeLocations) GetByRestaurant(ctx context.Context, restaurantID int64) (*model.Location, error) {
	return l.byRestaurant[restaurantID], nil
}

type fakeLedger struct {
	harvested map[string]int
	err       error
}

func (l *fakeLedger) IsHarvested(ctx context.Context, detailURL string) (bool, error) {
	if l.err != nil {
		return false, l.err
	}
	_, ok := l.harvested[detailURL]
	return ok, nil
}

func (l *fakeLedger) MarkHarvested(ctx context.Context, detailURL string, reviews int) error {
	l.harvested[detailURL] = reviews
	return nil
}

type fakeGeocoder struct {
	result *geocoder.Result
	err    error
}

func (g *fakeGeocoder) Geocode(ctx context.Context, address string) (*geocoder.Result, error) {
	return g.result, g.err
}

type fakeNotifier struct {
	reports []*BatchReport
	errs    []error
}

func (n *fakeNotifier) NotifyBatch(ctx context.Context, report *BatchReport, batchErr error) error {
	n.reports = append(n.reports, report)
	n.errs = append(n.errs, batchErr)
	return nil
}

type fakeRecorder struct {
	reports int
}

func (r *fakeRecorder) BatchFinished(report *BatchReport, batchErr error) {
	r.reports++
}

var noRetry = scraper.RetryConfig{MaxRetries: 0, BackoffMultiplier: 1}

func listing(position int, name, detailURL string) scraper.RestaurantListing {
	return scraper.RestaurantListing{Name: strPtr(name), DetailURL: strPtr(detailURL), Position: position}
}

func review(author string) scraper.Review {
	rating := 4.0
	return scraper.Review{AuthorName: strPtr(author), BodyText: strPtr("Très bon"), Rating: &rating}
}

func TestBatchService_Run(t *testing.T) {
	store := newFakeStore()
	harvester := &fakeHarvester{
		listings: []scraper.RestaurantListing{
			listing(1, "Le Bouchon", "/Restaurant_Review-a"),
			listing(2, "Chez Paul", "/Restaurant_Review-b"),
			listing(3, "Sans URL", ""),
			listing(4, "Vide", "/Restaurant_Review-c"),
		},
		details: map[string]*scraper.RestaurantDetails{
			"/Restaurant_Review-a": {Address: strPtr("11 Rue Major Martin, 69001 Lyon"), Reviews: []scraper.Review{review("Marie"), review("Jean")}},
			"/Restaurant_Review-c": {Reviews: []scraper.Review{}},
		},
	}
	ledger := &fakeLedger{harvested: map[string]int{}}
	notifier := &fakeNotifier{}
	recorder := &fakeRecorder{}
	geo := &fakeGeocoder{result: &geocoder.Result{Latitude: 45.76, Longitude: 4.83, PostalCode: strPtr("69001")}}

	batch := NewBatchService(BatchDependencies{
		Harvester: harvester,
		Store:     store,
		Ledger:    ledger,
		Geocoder:  geo,
		Notifier:  notifier,
		Recorder:  recorder,
	}, noRetry, zap.NewNop())

	report, err := batch.Run(context.Background(), BatchOptions{StartPath: "/FindRestaurants?geo=187265"})
	require.NoError(t, err)

	assert.Equal(t, 3, report.Listings)
	assert.Equal(t, 3, report.NewListings)
	assert.Equal(t, 3, report.Candidates)
	assert.Equal(t, 1, report.Harvested)
	assert.Equal(t, 2, report.Reviews)
	assert.Equal(t, 1, report.ZeroReview)
	assert.Equal(t, 0, report.Skipped)
	require.Len(t, report.Failed, 2)
	assert.Equal(t, "Sans URL", report.Failed[0].Name)
	assert.Equal(t, "/Restaurant_Review-b", report.Failed[1].DetailURL)
	assert.Contains(t, report.Failed[1].Reason, "no cards found")
	assert.False(t, report.FinishedAt.Before(report.StartedAt))

	first := store.restaurants.byURL["/Restaurant_Review-a"]
	require.NotNil(t, first.HarvestedAt)
	assert.Equal(t, 1, first.Position)
	assert.Len(t, store.reviews.byRestaurant[first.RestaurantID], 2)
	assert.Equal(t, first.RestaurantID, store.reviews.byRestaurant[first.RestaurantID][0].RestaurantID)

	location := store.locations.byRestaurant[first.RestaurantID]
	require.NotNil(t, location)
	assert.True(t, location.Resolved)
	assert.Equal(t, 45.76, *location.Latitude)

	assert.Nil(t, store.restaurants.byURL["/Restaurant_Review-b"].HarvestedAt)
	assert.NotNil(t, store.restaurants.byURL["/Restaurant_Review-c"].HarvestedAt)
	assert.Equal(t, map[string]int{"/Restaurant_Review-a": 2, "/Restaurant_Review-c": 0}, ledger.harvested)

	require.Len(t, notifier.reports, 1)
	assert.Same(t, report, notifier.reports[0])
	assert.NoError(t, notifier.errs[0])
	assert.Equal(t, 1, recorder.reports)
}

func TestBatchService_SkipsLedgerEntries(t *testing.T) {
	store := newFakeStore()
	require.NoError(t, store.restaurants.Upsert(context.Background(), &model.Restaurant{DetailURL: "/Restaurant_Review-a"}))
	require.NoError(t, store.restaurants.Upsert(context.Background(), &model.Restaurant{DetailURL: "/Restaurant_Review-b"}))

	harvester := &fakeHarvester{details: map[string]*scraper.RestaurantDetails{
		"/Restaurant_Review-b": {Reviews: []scraper.Review{review("Marie")}},
	}}
	ledger := &fakeLedger{harvested: map[string]int{"/Restaurant_Review-a": 5}}

	batch := NewBatchService(BatchDependencies{Harvester: harvester, Store: store, Ledger: ledger}, noRetry, zap.NewNop())
	report, err := batch.Run(context.Background(), BatchOptions{SkipListings: true})
	require.NoError(t, err)

	assert.Equal(t, 0, report.Listings)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 1, report.Harvested)
	assert.Zero(t, harvester.calls["/Restaurant_Review-a"])
}

func TestBatchService_LedgerErrorFallsBackToDatabase(t *testing.T) {
	store := newFakeStore()
	require.NoError(t, store.restaurants.Upsert(context.Background(), &model.Restaurant{DetailURL: "/Restaurant_Review-a"}))

	harvester := &fakeHarvester{details: map[string]*scraper.RestaurantDetails{
		"/Restaurant_Review-a": {Reviews: []scraper.Review{review("Marie")}},
	}}
	ledger := &fakeLedger{harvested: map[string]int{}, err: errors.New("redis down")}

	batch := NewBatchService(BatchDependencies{Harvester: harvester, Store: store, Ledger: ledger}, noRetry, zap.NewNop())
	report, err := batch.Run(context.Background(), BatchOptions{SkipListings: true})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Harvested)
}

func TestBatchService_RetriesFetchErrors(t *testing.T) {
	store := newFakeStore()
	require.NoError(t, store.restaurants.Upsert(context.Background(), &model.Restaurant{DetailURL: "/Restaurant_Review-a"}))

	harvester := &fakeHarvester{
		details: map[string]*scraper.RestaurantDetails{
			"/Restaurant_Review-a": {Reviews: []scraper.Review{review("Marie")}},
		},
		errs: map[string][]error{
			"/Restaurant_Review-a": {&scraper.FetchError{URL: "https://example.test/a", StatusCode: 503}},
		},
	}
	retry := scraper.RetryConfig{MaxRetries: 2, InitialDelay: time.Millisecond, BackoffMultiplier: 1}

	batch := NewBatchService(BatchDependencies{Harvester: harvester, Store: store}, retry, zap.NewNop())
	report, err := batch.Run(context.Background(), BatchOptions{SkipListings: true})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Harvested)
	assert.Empty(t, report.Failed)
	assert.Equal(t, 2, harvester.calls["/Restaurant_Review-a"])
}

func TestBatchService_ListingsFailureAborts(t *testing.T) {
	notifier := &fakeNotifier{}
	harvester := &fakeHarvester{listingsErr: &scraper.FetchError{URL: "https://example.test/list", StatusCode: 403}}

	batch := NewBatchService(BatchDependencies{Harvester: harvester, Store: newFakeStore(), Notifier: notifier}, noRetry, zap.NewNop())
	report, err := batch.Run(context.Background(), BatchOptions{StartPath: "/FindRestaurants"})

	require.Error(t, err)
	assert.True(t, scraper.IsFetchError(err))
	require.NotNil(t, report)
	require.Len(t, notifier.errs, 1)
	assert.Equal(t, err, notifier.errs[0])
}

func TestBatchService_GeocoderFailureStoresUnresolvedAddress(t *testing.T) {
	store := newFakeStore()
	require.NoError(t, store.restaurants.Upsert(context.Background(), &model.Restaurant{DetailURL: "/Restaurant_Review-a"}))

	harvester := &fakeHarvester{details: map[string]*scraper.RestaurantDetails{
		"/Restaurant_Review-a": {Address: strPtr(" 1 Place Bellecour "), Reviews: []scraper.Review{review("Marie")}},
	}}
	geo := &fakeGeocoder{err: errors.New("429 too many requests")}

	batch := NewBatchService(BatchDependencies{Harvester: harvester, Store: store, Geocoder: geo}, noRetry, zap.NewNop())
	report, err := batch.Run(context.Background(), BatchOptions{SkipListings: true})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Harvested)

	location := store.locations.byRestaurant[1]
	require.NotNil(t, location)
	assert.Equal(t, "1 Place Bellecour", location.Address)
	assert.False(t, location.Resolved)
	assert.Nil(t, location.Latitude)
}

func TestBatchService_StoreFailureIsPerRestaurant(t *testing.T) {
	store := newFakeStore()
	require.NoError(t, store.restaurants.Upsert(context.Background(), &model.Restaurant{DetailURL: "/Restaurant_Review-a"}))
	store.reviews.err = errors.New("deadlock detected")

	harvester := &fakeHarvester{details: map[string]*scraper.RestaurantDetails{
		"/Restaurant_Review-a": {Reviews: []scraper.Review{review("Marie")}},
	}}

	batch := NewBatchService(BatchDependencies{Harvester: harvester, Store: store}, noRetry, zap.NewNop())
	report, err := batch.Run(context.Background(), BatchOptions{SkipListings: true})
	require.NoError(t, err)

	require.Len(t, report.Failed, 1)
	assert.Contains(t, report.Failed[0].Reason, "deadlock detected")
	assert.Nil(t, store.restaurants.byURL["/Restaurant_Review-a"].HarvestedAt)
}

func TestBatchService_FailedSaveIsRetriedWithoutDuplicates(t *testing.T) {
	store := newFakeStore()
	require.NoError(t, store.restaurants.Upsert(context.Background(), &model.Restaurant{DetailURL: "/Restaurant_Review-a"}))
	store.reviews.err = errors.New("connection reset by peer")

	harvester := &fakeHarvester{details: map[string]*scraper.RestaurantDetails{
		"/Restaurant_Review-a": {Reviews: []scraper.Review{review("Marie"), review("Jean")}},
	}}
	batch := NewBatchService(BatchDependencies{Harvester: harvester, Store: store}, noRetry, zap.NewNop())

	report, err := batch.Run(context.Background(), BatchOptions{SkipListings: true})
	require.NoError(t, err)
	require.Len(t, report.Failed, 1)
	assert.Empty(t, store.reviews.byRestaurant[1])
	assert.Nil(t, store.restaurants.byURL["/Restaurant_Review-a"].HarvestedAt)

	store.reviews.err = nil
	report, err = batch.Run(context.Background(), BatchOptions{SkipListings: true})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Harvested)
	assert.Len(t, store.reviews.byRestaurant[1], 2)

	report, err = batch.Run(context.Background(), BatchOptions{SkipListings: true})
	require.NoError(t, err)
	assert.Zero(t, report.Candidates)
	assert.Len(t, store.reviews.byRestaurant[1], 2)
	assert.Equal(t, 2, harvester.calls["/Restaurant_Review-a"])
}

func TestStoreListings_CountsNewRestaurants(t *testing.T) {
	store := newFakeStore()
	require.NoError(t, store.restaurants.Upsert(context.Background(), &model.Restaurant{DetailURL: "/Restaurant_Review-a"}))

	result, err := StoreListings(context.Background(), store.restaurants, []scraper.RestaurantListing{
		listing(1, "Le Bouchon", "https://www.tripadvisor.fr/Restaurant_Review-a"),
		listing(2, "Chez Paul", "/Restaurant_Review-b"),
		listing(3, "Sans URL", ""),
	}, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, 2, result.Stored)
	assert.Equal(t, 1, result.Created)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "Sans URL", result.Failed[0].Name)
	assert.Equal(t, 2, store.restaurants.lookups)
	assert.Len(t, store.restaurants.byURL, 2)
	assert.Equal(t, "Le Bouchon", *store.restaurants.byURL["/Restaurant_Review-a"].Name)
}

func TestBatchService_PassesFilter(t *testing.T) {
	store := newFakeStore()
	batch := NewBatchService(BatchDependencies{Harvester: &fakeHarvester{}, Store: store}, noRetry, zap.NewNop())

	filter := model.RestaurantFilter{Name: "bouchon", Cuisine: "Française", Limit: 5}
	_, err := batch.Run(context.Background(), BatchOptions{SkipListings: true, Filter: filter})
	require.NoError(t, err)
	assert.Equal(t, []model.RestaurantFilter{filter}, store.restaurants.filters)
}

func TestBatchService_CancelledContext(t *testing.T) {
	store := newFakeStore()
	require.NoError(t, store.restaurants.Upsert(context.Background(), &model.Restaurant{DetailURL: "/Restaurant_Review-a"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	batch := NewBatchService(BatchDependencies{Harvester: &fakeHarvester{}, Store: store}, noRetry, zap.NewNop())
	_, err := batch.Run(ctx, BatchOptions{SkipListings: true})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBatchService_RejectsConcurrentRun(t *testing.T) {
	batch := NewBatchService(BatchDependencies{Harvester: &fakeHarvester{}, Store: newFakeStore()}, noRetry, zap.NewNop())

	batch.mu.Lock()
	_, err := batch.Run(context.Background(), BatchOptions{SkipListings: true})
	batch.mu.Unlock()

	assert.ErrorIs(t, err, ErrBatchRunning)
}

func TestBatchReport_Duration(t *testing.T) {
	start := time.Date(2024, 6, 3, 3, 0, 0, 0, time.UTC)
	report := &BatchReport{StartedAt: start}
	assert.Zero(t, report.Duration())

	report.FinishedAt = start.Add(time.Minute)
	assert.Equal(t, time.Minute, report.Duration())
	assert.False(t, report.HasFailures())
}
