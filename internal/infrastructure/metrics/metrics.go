package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"priceoracle-service/internal/application"
	"priceoracle-service/internal/domain"
)

const namespace = "oracle"

// Collectors exports provider outcomes, cache sizes and update latency.
type Collectors struct {
	registry        *prometheus.Registry
	providerResults *prometheus.CounterVec
	cacheEntries    *prometheus.GaugeVec
	updateDuration  *prometheus.HistogramVec
}

var _ application.Observer = (*Collectors)(nil)

func New() *Collectors {
	c := &Collectors{
		registry: prometheus.NewRegistry(),
		providerResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Provider fetches by outcome (ok, network_error, api_error, error).",
		}, []string{"provider", "outcome"}),
		cacheEntries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cache_entries",
			Help:      "Records held in the price cache.",
		}, []string{"asset_class"}),
		updateDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "update_duration_seconds",
			Help:      "Time taken by one asset class update.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"asset_class"}),
	}
	c.registry.MustRegister(
		c.providerResults,
		c.cacheEntries,
		c.updateDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

func outcome(err error) string {
	var netErr *domain.NetworkError
	var apiErr *domain.APIError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &netErr):
		return "network_error"
	case errors.As(err, &apiErr):
		return "api_error"
	}
	return "error"
}

func (c *Collectors) ProviderResult(id domain.ProviderID, err error) {
	c.providerResults.WithLabelValues(string(id), outcome(err)).Inc()
}

func (c *Collectors) CacheSize(class domain.AssetClass, n int) {
	c.cacheEntries.WithLabelValues(string(class)).Set(float64(n))
}

func (c *Collectors) UpdateDuration(class domain.AssetClass, d time.Duration) {
	c.updateDuration.WithLabelValues(string(class)).Observe(d.Seconds())
}

func (c *Collectors) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
