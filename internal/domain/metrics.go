package domain

import "time"

// SyncResult labels the outcome of one market sync.
type SyncResult string

const (
	SyncResultSuccess  SyncResult = "success"
	SyncResultFailure  SyncResult = "failure"
	SyncResultCanceled SyncResult = "canceled"
)

// PromoteOutcome labels the outcome of one promotion attempt.
type PromoteOutcome string

const (
	PromoteOutcomeSuccess         PromoteOutcome = "success"
	PromoteOutcomeNotFound        PromoteOutcome = "not_found"
	PromoteOutcomeAlreadyPromoted PromoteOutcome = "already_promoted"
	PromoteOutcomeError           PromoteOutcome = "error"
)

// SyncMetric captures one finished market sync.
type SyncMetric struct {
	MarketID uint64
	Result   SyncResult
	Pages    int
	Inserted int
	Updated  int
	Skipped  int
	Duration time.Duration
}

// Metrics records operational metrics for syncing, promotion and chat.
type Metrics interface {
	ObserveRegistryRequest(status string, duration time.Duration)
	ObserveSync(metric SyncMetric)
	ObserveSyncDelay(duration time.Duration)
	ObservePromotion(outcome PromoteOutcome)
	SetRegisteredTools(kind ToolKind, count int)
	ObserveChatLatency(provider string, model string, duration time.Duration)
	ObserveChatTokens(provider string, model string, tokens int)
}

// NoopMetrics discards every observation.
type NoopMetrics struct{}

func (NoopMetrics) ObserveRegistryRequest(string, time.Duration) {}
func (NoopMetrics) ObserveSync(SyncMetric) {}
func (NoopMetrics) ObserveSyncDelay(time.Duration) {}
func (NoopMetrics) ObservePromotion(PromoteOutcome) {}
func (NoopMetrics) SetRegisteredTools(ToolKind, int) {}
func (NoopMetrics) ObserveChatLatency(string, string, time.Duration) {}
func (NoopMetrics) ObserveChatTokens(string, string, int) {}

var _ Metrics = NoopMetrics{}
