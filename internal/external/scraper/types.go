// Package scraper содержит движок сбора ресторанов и отзывов с сайта-агрегатора.
package scraper

import (
	"context"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Fetcher загружает страницу по относительному пути и возвращает разобранный документ
type Fetcher interface {
	Fetch(ctx context.Context, path string) (*goquery.Document, error)
}

// Backend определяет реализацию Fetcher
type Backend string

const (
	// BackendHTTP использует net/http клиент с собственной распаковкой тела
	BackendHTTP Backend = "http"
	// BackendColly использует коллектор colly
	BackendColly Backend = "colly"
)

// Config представляет конфигурацию скрейпера
type Config struct {
	Backend          Backend
	Timeout          time.Duration
	MinDelay         time.Duration
	MaxDelay         time.Duration
	EmptyPageBudget  int
	HTTPClientConfig HTTPClientConfig
	Profile          Profile
}

// HTTPClientConfig представляет конфигурацию HTTP клиента
type HTTPClientConfig struct {
	MaxIdleConns          int
	MaxIdleConnsPerHost   int
	IdleConnTimeout       time.Duration
	TLSHandshakeTimeout   time.Duration
	ResponseHeaderTimeout time.Duration
	DisableKeepAlives     bool
}

// RetryConfig представляет конфигурацию retry механизма
type RetryConfig struct {
	MaxRetries        int
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
}

// DefaultEmptyPageBudget - число подряд пустых страниц, после которого обход прерывается
const DefaultEmptyPageBudget = 10

// RestaurantListing представляет один ресторан из списка.
// Дедупликация выполняется по DetailURL: SourceID меняется между запусками.
type RestaurantListing struct {
	SourceID         *string  `json:"source_id"`
	Name             *string  `json:"name"`
	DetailURL        *string  `json:"detail_url"`
	AverageRating    *float64 `json:"average_rating"`
	TotalReviewCount *int     `json:"total_review_count"`
	PriceTier        *string  `json:"price_tier"`
	CuisineType      *string  `json:"cuisine_type"`
	// Position - порядковый номер карточки за весь обход, начиная с 1
	Position int `json:"position"`
}

// Review представляет один отзыв о ресторане
type Review struct {
	AuthorName              *string    `json:"author_name"`
	BodyText                *string    `json:"body_text"`
	Rating                  *float64   `json:"rating"`
	WrittenOn               *time.Time `json:"written_on"`
	AuthorContributionCount *int       `json:"author_contribution_count"`
}

// RestaurantDetails представляет результат обхода страниц одного ресторана
type RestaurantDetails struct {
	Address *string
	Reviews []Review
}

// RawListing содержит необработанные строки, найденные в карточке ресторана.
// nil означает, что локатор ничего не нашел.
type RawListing struct {
	Title       *string
	DetailURL   *string
	Rating      *string
	ReviewCount *string
	Price       *string
	Cuisine     *string
}

// RawReview содержит необработанные строки, найденные в карточке отзыва
type RawReview struct {
	Author        *string
	Body          *string
	Rating        *string
	Date          *string
	Contributions *string
}
