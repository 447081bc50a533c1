package service

import (
	"net/url"
	"strings"

	"restoharvest/internal/external/geocoder"
	"restoharvest/internal/external/scraper"
	"restoharvest/internal/model"
)

// restaurantFromListing переводит запись списка в модель; без DetailURL ресторан не сохраняется
func restaurantFromListing(listing scraper.RestaurantListing) (*model.Restaurant, bool) {
	if listing.DetailURL == nil {
		return nil, false
	}
	detailURL, ok := detailPath(*listing.DetailURL)
	if !ok {
		return nil, false
	}
	return &model.Restaurant{
		SourceID:         listing.SourceID,
		Name:             listing.Name,
		DetailURL:        detailURL,
		AverageRating:    listing.AverageRating,
		TotalReviewCount: listing.TotalReviewCount,
		PriceTier:        listing.PriceTier,
		CuisineType:      listing.CuisineType,
		Position:         listing.Position,
	}, true
}

// detailPath сводит ссылку на страницу ресторана к пути с запросом:
// "https://www.tripadvisor.fr/Restaurant_Review-d1.html#REVIEWS" -> "/Restaurant_Review-d1.html"
func detailPath(href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", false
	}
	u, err := url.Parse(href)
	if err != nil || u.Opaque != "" {
		return "", false
	}
	path := u.EscapedPath()
	if path == "" || path == "/" {
		return "", false
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return path, true
}

func reviewsForRestaurant(restaurantID int64, reviews []scraper.Review) []model.Review {
	result := make([]model.Review, 0, len(reviews))
	for _, r := range reviews {
		result = append(result, model.Review{
			RestaurantID:            restaurantID,
			AuthorName:              r.AuthorName,
			BodyText:                r.BodyText,
			Rating:                  r.Rating,
			WrittenOn:               r.WrittenOn,
			AuthorContributionCount: r.AuthorContributionCount,
		})
	}
	return result
}

func locationFor(restaurantID int64, address string, resolved *geocoder.Result) *model.Location {
	location := &model.Location{
		RestaurantID: restaurantID,
		Address:      address,
	}
	if resolved != nil {
		location.Latitude = &resolved.Latitude
		location.Longitude = &resolved.Longitude
		location.Locality = resolved.Locality
		location.PostalCode = resolved.PostalCode
		location.Resolved = true
	}
	return location
}
