// Package metrics содержит Prometheus метрики сбора.
package metrics

import (
	"errors"
	"net/http"

	"restoharvest/internal/external/scraper"
	"restoharvest/internal/service"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "restoharvest"

// Metrics хранит метрики в собственном реестре и реализует scraper.Observer
type Metrics struct {
	registry *prometheus.Registry

	PagesFetched  *prometheus.CounterVec
	CardsFound    *prometheus.CounterVec
	EmptyPages    *prometheus.CounterVec
	FetchFailures *prometheus.CounterVec
	Harvests      *prometheus.CounterVec

	BatchRuns        *prometheus.CounterVec
	BatchRestaurants *prometheus.GaugeVec
	BatchDuration    prometheus.Gauge
	BatchLastSuccess prometheus.Gauge
}

var (
	_ scraper.Observer      = (*Metrics)(nil)
	_ service.BatchRecorder = (*Metrics)(nil)
)

// New создает метрики и регистрирует их вместе с метриками рантайма
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		PagesFetched: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_fetched_total",
			Help:      "Pages fetched with at least one card.",
		}, []string{"kind"}),
		CardsFound: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cards_found_total",
			Help:      "Listing and review cards found on fetched pages.",
		}, []string{"kind"}),
		EmptyPages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "empty_pages_total",
			Help:      "Fetches that returned a page without cards.",
		}, []string{"kind"}),
		FetchFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_failures_total",
			Help:      "Failed page fetches by reason.",
		}, []string{"kind", "reason"}),
		Harvests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "harvests_total",
			Help:      "Finished walks by terminal state.",
		}, []string{"kind", "state"}),
		BatchRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_runs_total",
			Help:      "Batch harvests by result.",
		}, []string{"result"}),
		BatchRestaurants: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "batch_restaurants",
			Help:      "Restaurants per outcome in the last batch harvest.",
		}, []string{"outcome"}),
		BatchDuration: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "batch_duration_seconds",
			Help:      "Duration of the last batch harvest.",
		}),
		BatchLastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "batch_last_success_timestamp_seconds",
			Help:      "Unix time of the last batch harvest without failures.",
		}),
	}
}

// Registry возвращает реестр метрик
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler возвращает обработчик /metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// PageFetched учитывает страницу с карточками
func (m *Metrics) PageFetched(kind scraper.Kind, _ int, cards int) {
	m.PagesFetched.WithLabelValues(string(kind)).Inc()
	m.CardsFound.WithLabelValues(string(kind)).Add(float64(cards))
}

// EmptyPage учитывает страницу без карточек
func (m *Metrics) EmptyPage(kind scraper.Kind, _ int, _ int) {
	m.EmptyPages.WithLabelValues(string(kind)).Inc()
}

// FetchFailed учитывает сбой загрузки
func (m *Metrics) FetchFailed(kind scraper.Kind, err error) {
	m.FetchFailures.WithLabelValues(string(kind), failureReason(err)).Inc()
}

// Finished учитывает завершение обхода
func (m *Metrics) Finished(kind scraper.Kind, state scraper.State, _ int) {
	m.Harvests.WithLabelValues(string(kind), state.String()).Inc()
}

// BatchFinished фиксирует итог пакетного сбора
func (m *Metrics) BatchFinished(report *service.BatchReport, batchErr error) {
	result := "success"
	switch {
	case batchErr != nil:
		result = "aborted"
	case report.HasFailures():
		result = "partial"
	}
	m.BatchRuns.WithLabelValues(result).Inc()

	m.BatchRestaurants.WithLabelValues("listed").Set(float64(report.Listings))
	m.BatchRestaurants.WithLabelValues("harvested").Set(float64(report.Harvested))
	m.BatchRestaurants.WithLabelValues("zero_review").Set(float64(report.ZeroReview))
	m.BatchRestaurants.WithLabelValues("skipped").Set(float64(report.Skipped))
	m.BatchRestaurants.WithLabelValues("failed").Set(float64(len(report.Failed)))
	m.BatchDuration.Set(report.Duration().Seconds())

	if result == "success" {
		m.BatchLastSuccess.Set(float64(report.FinishedAt.Unix()))
	}
}

// failureReason сводит ошибку к метке с ограниченным числом значений
func failureReason(err error) string {
	var fetchErr *scraper.FetchError
	switch {
	case errors.As(err, &fetchErr) && fetchErr.StatusCode != 0:
		return "status"
	case fetchErr != nil:
		return "transport"
	default:
		return "other"
	}
}
