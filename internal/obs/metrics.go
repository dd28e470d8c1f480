package obs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the prometheus collectors for hotel search and booking.
type Metrics struct {
	searchesTotal    prometheus.Counter
	cacheHitsTotal   prometheus.Counter
	providerLatency  *prometheus.HistogramVec
	providerFailures *prometheus.CounterVec
	bookingsTotal    *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		searchesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "hotel_searches_total",
			Help: "Total number of hotel search requests.",
		}),
		cacheHitsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "hotel_search_cache_hits_total",
			Help: "Hotel searches served from cache.",
		}),
		providerLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hotel_provider_latency_seconds",
			Help:    "Latency of hotel provider search calls.",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
		providerFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hotel_provider_failures_total",
			Help: "Hotel provider calls that returned an error.",
		}, []string{"provider"}),
		bookingsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hotel_bookings_total",
			Help: "Booking operations by outcome.",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) IncSearch()   { m.searchesTotal.Inc() }
func (m *Metrics) IncCacheHit() { m.cacheHitsTotal.Inc() }

func (m *Metrics) IncBooking(outcome string) {
	m.bookingsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveProviderLatency(provider string, seconds float64) {
	m.providerLatency.WithLabelValues(provider).Observe(seconds)
}

func (m *Metrics) IncProviderFailure(provider string) {
	m.providerFailures.WithLabelValues(provider).Inc()
}
