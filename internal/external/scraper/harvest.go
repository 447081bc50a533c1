package scraper

import (
	"context"
	"fmt"
	"iter"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// NewFetcher создает Fetcher для выбранного бэкенда
func NewFetcher(config Config, logger *zap.Logger) (Fetcher, error) {
	switch config.Backend {
	case BackendHTTP, "":
		return NewHTTPClient(config.HTTPClientConfig, config.Timeout, config.Profile, logger), nil
	case BackendColly:
		return NewCollyFetcher(config.HTTPClientConfig, config.Timeout, config.Profile, logger), nil
	default:
		return nil, fmt.Errorf("unknown scraper backend %q", config.Backend)
	}
}

// Harvester собирает списки ресторанов и отзывы.
// Общая механика загрузки и пагинации параметризуется функцией извлечения карточки.
type Harvester struct {
	fetcher   Fetcher
	extractor *Extractor
	delayer   Delayer
	observer  Observer
	budget    int
	logger    *zap.Logger
}

// NewHarvester создает сборщик
func NewHarvester(fetcher Fetcher, extractor *Extractor, delayer Delayer, observer Observer, emptyPageBudget int, logger *zap.Logger) *Harvester {
	if delayer == nil {
		delayer = NoDelay{}
	}
	if observer == nil {
		observer = NopObserver{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Harvester{
		fetcher:   fetcher,
		extractor: extractor,
		delayer:   delayer,
		observer:  observer,
		budget:    emptyPageBudget,
		logger:    logger,
	}
}

// New собирает Harvester из конфигурации
func New(config Config, observer Observer, logger *zap.Logger) (*Harvester, error) {
	if err := config.Profile.Validate(); err != nil {
		return nil, err
	}
	fetcher, err := NewFetcher(config, logger)
	if err != nil {
		return nil, err
	}
	extractor, err := NewExtractor(config.Profile, logger)
	if err != nil {
		return nil, err
	}
	delayer := RandomDelay{Min: config.MinDelay, Max: config.MaxDelay}
	return NewHarvester(fetcher, extractor, delayer, observer, config.EmptyPageBudget, logger), nil
}

// NewWalker создает свежий обход для вида kind
func (h *Harvester) NewWalker(kind Kind, startPath string) *Walker {
	locators := h.extractor.profile.Locators
	card := locators.ListingCard
	if kind == KindReviews {
		card = locators.ReviewCard
	}
	return NewWalker(h.fetcher, startPath, WalkerConfig{
		Kind:            kind,
		Card:            card,
		NextPage:        h.extractor.profile.nextPageLocator(),
		EmptyMarker:     locators.EmptyMarker,
		EmptyPageBudget: h.budget,
		Delayer:         h.delayer,
		Observer:        h.observer,
		Logger:          h.logger,
	})
}

// Listings возвращает рестораны по мере обхода страниц.
// Позиция передается между страницами как аккумулятор.
func (h *Harvester) Listings(ctx context.Context, startPath string) iter.Seq2[RestaurantListing, error] {
	return func(yield func(RestaurantListing, error) bool) {
		position := 0
		for page, err := range h.NewWalker(KindListings, startPath).Pages(ctx) {
			if err != nil {
				yield(RestaurantListing{}, err)
				return
			}
			var listings []RestaurantListing
			listings, position = numberListings(page.Cards, position, h.extractor.Restaurant)
			for _, listing := range listings {
				if !yield(listing, nil) {
					return
				}
			}
		}
	}
}

// Reviews возвращает отзывы по мере обхода страниц
func (h *Harvester) Reviews(ctx context.Context, startPath string) iter.Seq2[Review, error] {
	return func(yield func(Review, error) bool) {
		for page, err := range h.NewWalker(KindReviews, startPath).Pages(ctx) {
			if err != nil {
				yield(Review{}, err)
				return
			}
			for _, card := range page.Cards {
				if !yield(h.extractor.Review(card), nil) {
					return
				}
			}
		}
	}
}

// HarvestListings собирает все рестораны начиная со startPath.
// Пустой результат без ошибки означает успешный обход без карточек.
func (h *Harvester) HarvestListings(ctx context.Context, startPath string) ([]RestaurantListing, error) {
	return collect(h.Listings(ctx, startPath))
}

// HarvestReviews собирает все отзывы ресторана начиная со startPath
func (h *Harvester) HarvestReviews(ctx context.Context, startPath string) ([]Review, error) {
	return collect(h.Reviews(ctx, startPath))
}

// HarvestRestaurant собирает отзывы и адрес ресторана с первой страницы
func (h *Harvester) HarvestRestaurant(ctx context.Context, startPath string) (*RestaurantDetails, error) {
	details := &RestaurantDetails{Reviews: []Review{}}
	for page, err := range h.NewWalker(KindReviews, startPath).Pages(ctx) {
		if err != nil {
			return nil, err
		}
		if details.Address == nil {
			details.Address = h.extractor.Address(page.Doc.Selection)
		}
		for _, card := range page.Cards {
			details.Reviews = append(details.Reviews, h.extractor.Review(card))
		}
	}
	return details, nil
}

// numberListings извлекает рестораны страницы и нумерует их, продолжая с position
func numberListings(cards []*goquery.Selection, position int, extract func(*goquery.Selection) RestaurantListing) ([]RestaurantListing, int) {
	listings := make([]RestaurantListing, 0, len(cards))
	for _, card := range cards {
		position++
		listing := extract(card)
		listing.Position = position
		listings = append(listings, listing)
	}
	return listings, position
}

func collect[T any](seq iter.Seq2[T, error]) ([]T, error) {
	items := []T{}
	for item, err := range seq {
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}
