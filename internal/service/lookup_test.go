package service

import (
	"context"
	"testing"
	"time"

	"restoharvest/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupRestaurant(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	require.NoError(t, store.restaurants.Upsert(ctx, &model.Restaurant{DetailURL: "/Restaurant_Review-a", Name: strPtr("Le Bouchon")}))
	_, err := store.reviews.SaveHarvest(ctx, 1, []model.Review{{AuthorName: strPtr("Marie")}, {AuthorName: strPtr("Jean")}}, time.Now())
	require.NoError(t, err)
	require.NoError(t, store.locations.Save(ctx, &model.Location{RestaurantID: 1, Address: "1 Place Bellecour"}))

	found, err := LookupRestaurant(ctx, store, "https://www.tripadvisor.fr/Restaurant_Review-a#REVIEWS")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "Le Bouchon", *found.Restaurant.Name)
	assert.NotNil(t, found.Restaurant.HarvestedAt)
	assert.Equal(t, 2, found.Reviews)
	require.NotNil(t, found.Location)
	assert.Equal(t, "1 Place Bellecour", found.Location.Address)

	missing, err := LookupRestaurant(ctx, store, "/Restaurant_Review-z")
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = LookupRestaurant(ctx, store, "  ")
	assert.Error(t, err)
}
