package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"restoharvest/internal/external/scraper"
	"restoharvest/internal/service"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_ObserverEvents(t *testing.T) {
	m := New()

	m.PageFetched(scraper.KindListings, 1, 30)
	m.PageFetched(scraper.KindListings, 2, 12)
	m.PageFetched(scraper.KindReviews, 1, 10)
	m.EmptyPage(scraper.KindReviews, 2, 1)
	m.Finished(scraper.KindListings, scraper.StateExhausted, 2)
	m.Finished(scraper.KindReviews, scraper.StateAborted, 2)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.PagesFetched.WithLabelValues("listings")))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.CardsFound.WithLabelValues("listings")))
	assert.Equal(t, 10.0, testutil.ToFloat64(m.CardsFound.WithLabelValues("reviews")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EmptyPages.WithLabelValues("reviews")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Harvests.WithLabelValues("listings", scraper.StateExhausted.String())))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Harvests.WithLabelValues("reviews", scraper.StateAborted.String())))
}

func TestMetrics_FetchFailureReasons(t *testing.T) {
	m := New()

	m.FetchFailed(scraper.KindReviews, &scraper.FetchError{URL: "https://example.test/a", StatusCode: 403})
	m.FetchFailed(scraper.KindReviews, &scraper.FetchError{URL: "https://example.test/b", Err: errors.New("reset")})
	m.FetchFailed(scraper.KindListings, errors.New("context canceled"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchFailures.WithLabelValues("reviews", "status")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchFailures.WithLabelValues("reviews", "transport")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchFailures.WithLabelValues("listings", "other")))
}

func TestMetrics_BatchFinished(t *testing.T) {
	m := New()
	started := time.Date(2024, 6, 3, 3, 0, 0, 0, time.UTC)

	report := &service.BatchReport{
		StartedAt:  started,
		FinishedAt: started.Add(90 * time.Second),
		Listings:   30,
		Harvested:  25,
		ZeroReview: 2,
		Skipped:    1,
		Failed:     []service.Failure{{DetailURL: "/Restaurant_Review-a", Reason: "boom"}},
	}
	m.BatchFinished(report, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.BatchRuns.WithLabelValues("partial")))
	assert.Equal(t, 30.0, testutil.ToFloat64(m.BatchRestaurants.WithLabelValues("listed")))
	assert.Equal(t, 25.0, testutil.ToFloat64(m.BatchRestaurants.WithLabelValues("harvested")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.BatchRestaurants.WithLabelValues("zero_review")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BatchRestaurants.WithLabelValues("failed")))
	assert.Equal(t, 90.0, testutil.ToFloat64(m.BatchDuration))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.BatchLastSuccess))

	report.Failed = nil
	m.BatchFinished(report, nil)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BatchRuns.WithLabelValues("success")))
	assert.Equal(t, float64(report.FinishedAt.Unix()), testutil.ToFloat64(m.BatchLastSuccess))

	m.BatchFinished(report, errors.New("listings failed"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BatchRuns.WithLabelValues("aborted")))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.PageFetched(scraper.KindListings, 1, 3)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `restoharvest_pages_fetched_total{kind="listings"} 1`), body)
	assert.Contains(t, body, "go_goroutines")
}
