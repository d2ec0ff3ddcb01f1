package telemetry

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"mcpmarket/internal/domain"
)

type PrometheusMetrics struct {
	registryRequests   *prometheus.HistogramVec
	syncRuns           *prometheus.CounterVec
	syncEntries        *prometheus.CounterVec
	syncPages          prometheus.Histogram
	syncDuration       *prometheus.HistogramVec
	syncDelay          prometheus.Histogram
	promotions         *prometheus.CounterVec
	registeredTools    *prometheus.GaugeVec
	chatLatency        *prometheus.HistogramVec
	chatTokens         *prometheus.CounterVec
	lastSyncSuccessful *prometheus.GaugeVec
}

func NewPrometheusMetrics(registerer prometheus.Registerer) *PrometheusMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)

	return &PrometheusMetrics{
		registryRequests: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mcpmarket_registry_request_duration_seconds",
				Help:    "Duration of registry page requests in seconds",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"status"},
		),
		syncRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mcpmarket_sync_total",
				Help: "Total number of market syncs by result",
			},
			[]string{"result"},
		),
		syncEntries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mcpmarket_sync_entries_total",
				Help: "Catalog entries reconciled during syncs by action",
			},
			[]string{"action"},
		),
		syncPages: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "mcpmarket_sync_pages",
				Help:    "Registry pages fetched per sync",
				Buckets: []float64{1, 2, 5, 10, 25, 50, 100},
			},
		),
		syncDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mcpmarket_sync_duration_seconds",
				Help:    "Wall time of market syncs in seconds",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
			},
			[]string{"result"},
		),
		syncDelay: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "mcpmarket_sync_delay_seconds",
				Help:    "Pauses taken between registry pages in seconds",
				Buckets: []float64{1, 5, 10, 12.5, 15, 17.5, 20, 30},
			},
		),
		promotions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mcpmarket_promotions_total",
				Help: "Catalog entry promotion attempts by outcome",
			},
			[]string{"outcome"},
		),
		registeredTools: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "mcpmarket_registered_tools",
				Help: "Tools currently held by the in-process registry",
			},
			[]string{"kind"},
		),
		chatLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mcpmarket_chat_latency_seconds",
				Help:    "Latency of chat model calls in seconds",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"provider", "model"},
		),
		chatTokens: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mcpmarket_chat_tokens_total",
				Help: "Total number of tokens consumed by chat model calls",
			},
			[]string{"provider", "model"},
		),
		lastSyncSuccessful: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "mcpmarket_market_last_sync_success",
				Help: "1 when the latest sync of a market succeeded, 0 otherwise",
			},
			[]string{"market_id"},
		),
	}
}

func (p *PrometheusMetrics) ObserveRegistryRequest(status string, duration time.Duration) {
	p.registryRequests.WithLabelValues(status).Observe(duration.Seconds())
}

func (p *PrometheusMetrics) ObserveSync(metric domain.SyncMetric) {
	result := string(metric.Result)
	p.syncRuns.WithLabelValues(result).Inc()
	p.syncDuration.WithLabelValues(result).Observe(metric.Duration.Seconds())
	p.syncPages.Observe(float64(metric.Pages))
	p.syncEntries.WithLabelValues(string(domain.UpsertInserted)).Add(float64(metric.Inserted))
	p.syncEntries.WithLabelValues(string(domain.UpsertUpdated)).Add(float64(metric.Updated))
	p.syncEntries.WithLabelValues("skipped").Add(float64(metric.Skipped))

	success := 0.0
	if metric.Result == domain.SyncResultSuccess {
		success = 1
	}
	p.lastSyncSuccessful.WithLabelValues(strconv.FormatUint(metric.MarketID, 10)).Set(success)
}

func (p *PrometheusMetrics) ObserveSyncDelay(duration time.Duration) {
	p.syncDelay.Observe(duration.Seconds())
}

func (p *PrometheusMetrics) ObservePromotion(outcome domain.PromoteOutcome) {
	p.promotions.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusMetrics) SetRegisteredTools(kind domain.ToolKind, count int) {
	p.registeredTools.WithLabelValues(string(kind)).Set(float64(count))
}

func (p *PrometheusMetrics) ObserveChatLatency(provider string, model string, duration time.Duration) {
	p.chatLatency.WithLabelValues(provider, model).Observe(duration.Seconds())
}

func (p *PrometheusMetrics) ObserveChatTokens(provider string, model string, tokens int) {
	p.chatTokens.WithLabelValues(provider, model).Add(float64(tokens))
}

var _ domain.Metrics = (*PrometheusMetrics)(nil)
