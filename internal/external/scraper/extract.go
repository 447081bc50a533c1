package scraper

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// ExtractRawListing читает строки полей карточки ресторана по локаторам.
// Каждый локатор независим: несработавший дает nil только в своем поле.
func ExtractRawListing(card *goquery.Selection, loc ListingLocators, priceSymbol string) RawListing {
	return RawListing{
		Title:       loc.Title.Lookup(card),
		DetailURL:   loc.DetailURL.Lookup(card),
		Rating:      loc.Rating.Lookup(card),
		ReviewCount: loc.ReviewCount.Lookup(card),
		Price:       lastContaining(card, loc.Price, priceSymbol),
		Cuisine:     loc.Cuisine.Lookup(card),
	}
}

// ExtractRawReview читает строки полей карточки отзыва по локаторам
func ExtractRawReview(card *goquery.Selection, loc ReviewLocators) RawReview {
	return RawReview{
		Author:        loc.Author.Lookup(card),
		Body:          loc.Body.Lookup(card),
		Rating:        loc.Rating.Lookup(card),
		Date:          loc.Date.Lookup(card),
		Contributions: loc.Contributions.Lookup(card),
	}
}

// lastContaining возвращает последний текст среди найденных элементов, содержащий symbol
func lastContaining(card *goquery.Selection, loc Locator, symbol string) *string {
	if symbol == "" {
		return loc.Lookup(card)
	}
	var found *string
	loc.Find(card).Each(func(_ int, s *goquery.Selection) {
		value, ok := loc.ReadFrom(s)
		if ok && strings.Contains(value, symbol) {
			found = &value
		}
	})
	return found
}

// Extractor превращает карточки в типизированные записи согласно профилю
type Extractor struct {
	profile  Profile
	ratingRe *regexp.Regexp
	dateRe   *regexp.Regexp
	countRe  *regexp.Regexp
	logger   *zap.Logger
}

// NewExtractor компилирует шаблоны профиля
func NewExtractor(profile Profile, logger *zap.Logger) (*Extractor, error) {
	ratingRe, err := regexp.Compile(profile.RatingPattern)
	if err != nil {
		return nil, fmt.Errorf("invalid rating pattern: %w", err)
	}
	dateRe, err := regexp.Compile(profile.DatePattern)
	if err != nil {
		return nil, fmt.Errorf("invalid date pattern: %w", err)
	}
	countRe, err := regexp.Compile(profile.CountPattern)
	if err != nil {
		return nil, fmt.Errorf("invalid count pattern: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Extractor{
		profile:  profile,
		ratingRe: ratingRe,
		dateRe:   dateRe,
		countRe:  countRe,
		logger:   logger,
	}, nil
}

// Restaurant извлекает ресторан из карточки. Position заполняет вызывающая сторона.
func (e *Extractor) Restaurant(card *goquery.Selection) RestaurantListing {
	raw := ExtractRawListing(card, e.profile.Locators.Listing, e.profile.PriceSymbol)

	var listing RestaurantListing
	if raw.Title != nil {
		rank, name := SplitRankedTitle(CleanText(*raw.Title))
		listing.SourceID = rank
		listing.Name = nonEmpty(name)
	}
	if raw.DetailURL != nil {
		listing.DetailURL = nonEmpty(strings.TrimSpace(*raw.DetailURL))
	}
	if raw.Rating != nil {
		listing.AverageRating = ParseRating(ExtractByPattern(*raw.Rating, e.ratingRe))
		e.warnMalformed("average_rating", *raw.Rating, listing.AverageRating == nil)
	}
	if raw.ReviewCount != nil {
		listing.TotalReviewCount = ParseCount(*raw.ReviewCount, e.countRe)
		e.warnMalformed("total_review_count", *raw.ReviewCount, listing.TotalReviewCount == nil)
	}
	if raw.Price != nil {
		listing.PriceTier = nonEmpty(CleanText(*raw.Price))
	}
	if raw.Cuisine != nil {
		listing.CuisineType = nonEmpty(CleanText(*raw.Cuisine))
	}
	return listing
}

// Review извлекает отзыв из карточки
func (e *Extractor) Review(card *goquery.Selection) Review {
	raw := ExtractRawReview(card, e.profile.Locators.Review)

	var review Review
	if raw.Author != nil {
		review.AuthorName = nonEmpty(CleanText(*raw.Author))
	}
	if raw.Body != nil {
		review.BodyText = nonEmpty(CleanText(*raw.Body))
	}
	if raw.Rating != nil {
		review.Rating = ParseRating(ExtractByPattern(*raw.Rating, e.ratingRe))
		e.warnMalformed("rating", *raw.Rating, review.Rating == nil)
	}
	if raw.Date != nil {
		review.WrittenOn = ParseDate(*raw.Date, e.profile.DatePrefix, e.dateRe, e.profile.Locale)
		e.warnMalformed("written_on", *raw.Date, review.WrittenOn == nil)
	}
	if raw.Contributions != nil {
		review.AuthorContributionCount = ParseCount(*raw.Contributions, e.countRe)
		e.warnMalformed("author_contribution_count", *raw.Contributions, review.AuthorContributionCount == nil)
	}
	return review
}

// Address извлекает адрес ресторана со страницы отзывов
func (e *Extractor) Address(doc *goquery.Selection) *string {
	if e.profile.Locators.Address.IsZero() {
		return nil
	}
	raw := e.profile.Locators.Address.Lookup(doc)
	if raw == nil {
		return nil
	}
	return nonEmpty(CleanText(*raw))
}

func (e *Extractor) warnMalformed(field, raw string, failed bool) {
	if failed && strings.TrimSpace(raw) != "" {
		e.logger.Warn("Malformed field value", zap.String("field", field), zap.String("raw", raw))
	}
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
