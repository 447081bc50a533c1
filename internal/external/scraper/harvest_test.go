package scraper

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	startPath = "/FindRestaurants?geo=187265&offset=0"
	page2Path = "/FindRestaurants?geo=187265&offset=30"
)

func newTestHarvester(t *testing.T, fetcher Fetcher, observer Observer) *Harvester {
	t.Helper()
	return NewHarvester(fetcher, newTestExtractor(t, FrenchProfile()), NoDelay{}, observer, DefaultEmptyPageBudget, nil)
}

func TestHarvester_HarvestListingsAcrossTwoPages(t *testing.T) {
	fetcher := newFakeFetcher().
		on(startPath, readFixture(t, "listings_page1.html")).
		on(page2Path, readFixture(t, "listings_page2.html"))
	observer := &recordingObserver{}
	harvester := newTestHarvester(t, fetcher, observer)

	listings, err := harvester.HarvestListings(context.Background(), startPath)
	require.NoError(t, err)
	require.Len(t, listings, 3)

	names := make([]string, 0, len(listings))
	for i, listing := range listings {
		require.NotNil(t, listing.Name)
		names = append(names, *listing.Name)
		assert.Equal(t, i+1, listing.Position)
	}
	assert.Equal(t, []string{"Chez Paul", "Le Bouchon. Vieux Lyon", "Sushi Ya"}, names)
	assert.Equal(t, "31", *listings[2].SourceID)

	assert.Equal(t, []string{startPath, page2Path}, fetcher.calls)
	assert.Equal(t, []int{1, 2}, observer.pages)
	assert.Equal(t, StateExhausted, observer.finalState)
	assert.Equal(t, 1, observer.finished)
}

func TestHarvester_HarvestListingsStructuralMismatch(t *testing.T) {
	fetcher := newFakeFetcher().on(startPath, emptyPage)
	harvester := newTestHarvester(t, fetcher, nil)

	listings, err := harvester.HarvestListings(context.Background(), startPath)
	assert.Nil(t, listings)
	assert.True(t, IsPaginationExhausted(err))
	assert.Equal(t, DefaultEmptyPageBudget, fetcher.callCount())
}

func TestHarvester_HarvestListingsFetchErrorDropsPartialResult(t *testing.T) {
	fetcher := newFakeFetcher().on(startPath, readFixture(t, "listings_page1.html"))
	harvester := newTestHarvester(t, fetcher, nil)

	listings, err := harvester.HarvestListings(context.Background(), startPath)
	assert.Nil(t, listings)
	assert.True(t, IsFetchError(err))
}

func TestHarvester_HarvestReviews(t *testing.T) {
	fetcher := newFakeFetcher().on("/Restaurant_Review-d1.html", readFixture(t, "reviews_fr.html"))
	harvester := newTestHarvester(t, fetcher, nil)

	reviews, err := harvester.HarvestReviews(context.Background(), "/Restaurant_Review-d1.html")
	require.NoError(t, err)
	require.Len(t, reviews, 2)
	assert.Equal(t, "Marie D", *reviews[0].AuthorName)
	assert.Nil(t, reviews[1].Rating)
}

func TestHarvester_HarvestReviewsZeroReviewsWithMarker(t *testing.T) {
	profile := FrenchProfile()
	profile.Locators.EmptyMarker = Locator{Tag: "div", Class: "no-reviews"}
	fetcher := newFakeFetcher().on("/r", `<html><body><div class="no-reviews"></div></body></html>`)
	harvester := NewHarvester(fetcher, newTestExtractor(t, profile), NoDelay{}, nil, 0, nil)

	reviews, err := harvester.HarvestReviews(context.Background(), "/r")
	require.NoError(t, err)
	assert.NotNil(t, reviews)
	assert.Empty(t, reviews)
}

func TestHarvester_HarvestRestaurant(t *testing.T) {
	fetcher := newFakeFetcher().on("/r", readFixture(t, "reviews_fr.html"))
	harvester := newTestHarvester(t, fetcher, nil)

	details, err := harvester.HarvestRestaurant(context.Background(), "/r")
	require.NoError(t, err)
	require.NotNil(t, details.Address)
	assert.Equal(t, "11 Rue Major Martin, 69001 Lyon France", *details.Address)
	assert.Len(t, details.Reviews, 2)
}

func TestHarvester_ListingsStreamsIncrementally(t *testing.T) {
	fetcher := newFakeFetcher().
		on(startPath, readFixture(t, "listings_page1.html")).
		on(page2Path, readFixture(t, "listings_page2.html"))
	harvester := newTestHarvester(t, fetcher, nil)

	for listing, err := range harvester.Listings(context.Background(), startPath) {
		require.NoError(t, err)
		assert.Equal(t, 1, listing.Position)
		break
	}
	assert.Equal(t, 1, fetcher.callCount())
}

func TestNumberListingsThreadsPosition(t *testing.T) {
	cards := listingCards(t, parseFixture(t, "listings_page1.html"))
	extract := newTestExtractor(t, FrenchProfile()).Restaurant

	first, position := numberListings(cards, 0, extract)
	assert.Equal(t, 2, position)
	second, position := numberListings(cards, position, extract)
	assert.Equal(t, 4, position)

	assert.Equal(t, 1, first[0].Position)
	assert.Equal(t, 3, second[0].Position)
	assert.Equal(t, 4, second[1].Position)
}

func TestNewFetcher(t *testing.T) {
	profile := FrenchProfile()

	fetcher, err := NewFetcher(Config{Backend: BackendHTTP, Profile: profile}, nil)
	require.NoError(t, err)
	assert.IsType(t, &HTTPClient{}, fetcher)

	fetcher, err = NewFetcher(Config{Backend: BackendColly, Profile: profile}, nil)
	require.NoError(t, err)
	assert.IsType(t, &CollyFetcher{}, fetcher)

	_, err = NewFetcher(Config{Backend: "chrome", Profile: profile}, nil)
	assert.Error(t, err)
}
