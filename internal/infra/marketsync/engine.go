package marketsync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"mcpmarket/internal/domain"
	"mcpmarket/internal/infra/telemetry"
)

type MarketReader interface {
	GetMarket(ctx context.Context, id uint64) (domain.Market, error)
}

type CatalogWriter interface {
	UpsertByKey(ctx context.Context, entry domain.CatalogEntry) (domain.UpsertResult, error)
}

type PageFetcher interface {
	FetchPage(ctx context.Context, endpoint string, pageNumber, pageSize int, authToken string) (domain.RegistryPage, error)
}

type Options struct {
	PageSize int
	Pacer    Pacer
	Metrics  domain.Metrics
	Logger   *zap.Logger
}

// SyncReport summarizes one sync call. Counts cover the pages that were
// reconciled before the call ended, including failed calls.
type SyncReport struct {
	MarketID uint64        `json:"marketId"`
	Pages    int           `json:"pages"`
	Inserted int           `json:"inserted"`
	Updated  int           `json:"updated"`
	Skipped  int           `json:"skipped"`
	Duration time.Duration `json:"duration"`
}

// Engine mirrors a market's remote catalog into the catalog store.
type Engine struct {
	markets  MarketReader
	catalog  CatalogWriter
	fetcher  PageFetcher
	pageSize int
	pacer    Pacer
	metrics  domain.Metrics
	logger   *zap.Logger
}

func NewEngine(markets MarketReader, catalog CatalogWriter, fetcher PageFetcher, opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = domain.NoopMetrics{}
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = domain.DefaultSyncPageSize
	}
	pacer := opts.Pacer
	if pacer == nil {
		pacer = NewJitterPacer(
			time.Duration(domain.DefaultSyncMinDelaySeconds)*time.Second,
			time.Duration(domain.DefaultSyncMaxDelaySeconds)*time.Second,
		)
	}
	return &Engine{
		markets:  markets,
		catalog:  catalog,
		fetcher:  fetcher,
		pageSize: pageSize,
		pacer:    pacer,
		metrics:  metrics,
		logger:   logger.Named("marketsync"),
	}
}

// SyncMarket runs Sync and collapses its outcome to a single flag.
func (e *Engine) SyncMarket(ctx context.Context, marketID uint64) bool {
	_, err := e.Sync(ctx, marketID)
	return err == nil
}

// Sync walks every registry page of the market and upserts each entry by
// (marketID, remoteID). It stops after the first short page. Any fetch or
// store error ends the call with an error; rows already written stay.
func (e *Engine) Sync(ctx context.Context, marketID uint64) (SyncReport, error) {
	start := time.Now()
	report := SyncReport{MarketID: marketID}
	err := e.run(ctx, marketID, &report)
	report.Duration = time.Since(start)
	e.observe(report, err)
	return report, err
}

func (e *Engine) run(ctx context.Context, marketID uint64, report *SyncReport) error {
	market, err := e.markets.GetMarket(ctx, marketID)
	if err != nil {
		return fmt.Errorf("load market %d: %w", marketID, err)
	}

	token, err := market.AuthToken()
	if err != nil {
		e.logger.Warn("market auth config unreadable, syncing without credentials",
			telemetry.MarketIDField(marketID),
			zap.Error(err),
		)
		token = ""
	}

	e.logger.Info("market sync started",
		telemetry.EventField(telemetry.EventSyncStart),
		telemetry.MarketIDField(marketID),
		zap.String("url", market.URL),
		zap.Int("pageSize", e.pageSize),
	)

	for pageNumber := 1; ; pageNumber++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		page, err := e.fetcher.FetchPage(ctx, market.URL, pageNumber, e.pageSize, token)
		if err != nil {
			return fmt.Errorf("fetch page %d: %w", pageNumber, err)
		}
		report.Pages++

		if err := e.reconcile(ctx, marketID, page.Entries, report); err != nil {
			return fmt.Errorf("reconcile page %d: %w", pageNumber, err)
		}
		e.logger.Debug("market page reconciled",
			telemetry.EventField(telemetry.EventSyncPage),
			telemetry.MarketIDField(marketID),
			telemetry.PageField(pageNumber),
			zap.Int("entries", len(page.Entries)),
			zap.Bool("last", page.IsLastPage),
		)
		if page.IsLastPage {
			return nil
		}

		delay, err := e.pacer.Wait(ctx)
		if err != nil {
			return err
		}
		e.metrics.ObserveSyncDelay(delay)
	}
}

func (e *Engine) reconcile(ctx context.Context, marketID uint64, entries []domain.RemoteTool, report *SyncReport) error {
	for _, remote := range entries {
		if remote.ID == "" {
			report.Skipped++
			continue
		}
		result, err := e.catalog.UpsertByKey(ctx, domain.NewCatalogEntry(marketID, remote))
		if err != nil {
			return fmt.Errorf("upsert %s: %w", remote.ID, err)
		}
		switch result.Action {
		case domain.UpsertInserted:
			report.Inserted++
		case domain.UpsertUpdated:
			report.Updated++
		}
	}
	return nil
}

func (e *Engine) observe(report SyncReport, err error) {
	result := domain.SyncResultSuccess
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		result = domain.SyncResultCanceled
	default:
		result = domain.SyncResultFailure
	}
	e.metrics.ObserveSync(domain.SyncMetric{
		MarketID: report.MarketID,
		Result:   result,
		Pages:    report.Pages,
		Inserted: report.Inserted,
		Updated:  report.Updated,
		Skipped:  report.Skipped,
		Duration: report.Duration,
	})

	fields := []zap.Field{
		telemetry.MarketIDField(report.MarketID),
		zap.Int("pages", report.Pages),
		zap.Int("inserted", report.Inserted),
		zap.Int("updated", report.Updated),
		zap.Int("skipped", report.Skipped),
		telemetry.DurationField(report.Duration),
	}
	switch result {
	case domain.SyncResultSuccess:
		e.logger.Info("market sync finished", append(fields, telemetry.EventField(telemetry.EventSyncSuccess))...)
	case domain.SyncResultCanceled:
		e.logger.Info("market sync canceled", append(fields, telemetry.EventField(telemetry.EventSyncCanceled))...)
	default:
		e.logger.Warn("market sync failed", append(fields, telemetry.EventField(telemetry.EventSyncFailure), zap.Error(err))...)
	}
}
