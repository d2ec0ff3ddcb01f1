package telemetry

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcpmarket/internal/domain"
)

func TestNewPrometheusMetrics_UsesProvidedRegistry(t *testing.T) {
	registry := prometheus.NewRegistry()

	m := NewPrometheusMetrics(registry)
	m.ObserveRegistryRequest("200", 120*time.Millisecond)
	m.ObserveSync(domain.SyncMetric{
		MarketID: 7,
		Result:   domain.SyncResultSuccess,
		Pages:    2,
		Inserted: 3,
		Duration: 14 * time.Second,
	})
	m.ObserveSyncDelay(12 * time.Second)
	m.ObservePromotion(domain.PromoteOutcomeSuccess)
	m.SetRegisteredTools(domain.ToolKindRemote, 4)
	m.ObserveChatLatency("openai", "gpt-4o", 500*time.Millisecond)
	m.ObserveChatTokens("openai", "gpt-4o", 128)

	metrics, err := registry.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(metrics))
	for _, m := range metrics {
		names = append(names, m.GetName())
	}

	assert.Contains(t, names, "mcpmarket_registry_request_duration_seconds")
	assert.Contains(t, names, "mcpmarket_sync_total")
	assert.Contains(t, names, "mcpmarket_sync_entries_total")
	assert.Contains(t, names, "mcpmarket_sync_pages")
	assert.Contains(t, names, "mcpmarket_sync_duration_seconds")
	assert.Contains(t, names, "mcpmarket_sync_delay_seconds")
	assert.Contains(t, names, "mcpmarket_promotions_total")
	assert.Contains(t, names, "mcpmarket_registered_tools")
	assert.Contains(t, names, "mcpmarket_chat_latency_seconds")
	assert.Contains(t, names, "mcpmarket_chat_tokens_total")
	assert.Contains(t, names, "mcpmarket_market_last_sync_success")
}

func TestPrometheusMetrics_ObserveSyncCounts(t *testing.T) {
	m := NewPrometheusMetrics(prometheus.NewRegistry())

	m.ObserveSync(domain.SyncMetric{MarketID: 1, Result: domain.SyncResultSuccess, Inserted: 3, Updated: 1, Skipped: 2})
	m.ObserveSync(domain.SyncMetric{MarketID: 1, Result: domain.SyncResultFailure, Updated: 2})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.syncRuns.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.syncRuns.WithLabelValues("failure")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.syncEntries.WithLabelValues("inserted")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.syncEntries.WithLabelValues("updated")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.syncEntries.WithLabelValues("skipped")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.lastSyncSuccessful.WithLabelValues("1")))
}

func TestPrometheusMetrics_Promotions(t *testing.T) {
	m := NewPrometheusMetrics(prometheus.NewRegistry())
	m.ObservePromotion(domain.PromoteOutcomeSuccess)
	m.ObservePromotion(domain.PromoteOutcomeAlreadyPromoted)
	m.ObservePromotion(domain.PromoteOutcomeAlreadyPromoted)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.promotions.WithLabelValues("success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.promotions.WithLabelValues("already_promoted")))
}

func TestPrometheusMetrics_ImplementsInterface(t *testing.T) {
	var _ domain.Metrics = (*PrometheusMetrics)(nil)
}
