package app

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"mcpmarket/internal/domain"
	"mcpmarket/internal/infra/marketsync"
)

// MarketStore is the persistence MarketService relies on.
type MarketStore interface {
	SaveMarket(ctx context.Context, market domain.Market) (domain.Market, error)
	GetMarket(ctx context.Context, id uint64) (domain.Market, error)
	ListMarkets(ctx context.Context) ([]domain.Market, error)
	ListMarketsByStatus(ctx context.Context, status domain.MarketStatus) ([]domain.Market, error)
	SearchMarketsByName(ctx context.Context, name string) ([]domain.Market, error)
	FindMarketByName(ctx context.Context, name string) (domain.Market, bool, error)
	UpdateMarketStatus(ctx context.Context, id uint64, status domain.MarketStatus) (domain.Market, error)
	DeleteMarket(ctx context.Context, id uint64) (bool, error)
	ListCatalogEntries(ctx context.Context, marketID uint64) ([]domain.CatalogEntry, error)
	SearchCatalog(ctx context.Context, marketID uint64, keyword string) ([]domain.CatalogEntry, error)
}

type Syncer interface {
	Sync(ctx context.Context, marketID uint64) (marketsync.SyncReport, error)
}

// SeedReport counts what ApplySeeds changed.
type SeedReport struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
}

// MarketService administers markets and their mirrored catalogs.
type MarketService struct {
	store  MarketStore
	syncer Syncer
	logger *zap.Logger
}

func NewMarketService(store MarketStore, syncer Syncer, logger *zap.Logger) *MarketService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MarketService{store: store, syncer: syncer, logger: logger.Named("markets")}
}

// SaveMarket creates the market when ID is zero and replaces it otherwise.
func (s *MarketService) SaveMarket(ctx context.Context, market domain.Market) (domain.Market, error) {
	market.Name = strings.TrimSpace(market.Name)
	market.URL = strings.TrimSpace(market.URL)
	market.Status = domain.MarketStatus(strings.ToUpper(string(market.Status)))
	if err := checkStruct(marketInput{
		Name:       market.Name,
		URL:        market.URL,
		AuthConfig: market.AuthConfig,
		Status:     string(market.Status),
	}); err != nil {
		return domain.Market{}, err
	}
	saved, err := s.store.SaveMarket(ctx, market)
	if err != nil {
		return domain.Market{}, err
	}
	s.logger.Info("market saved", zap.Uint64("marketId", saved.ID), zap.String("name", saved.Name))
	return saved, nil
}

func (s *MarketService) GetMarket(ctx context.Context, id uint64) (domain.Market, error) {
	return s.store.GetMarket(ctx, id)
}

// ListMarkets returns markets newest first, narrowed by query.
func (s *MarketService) ListMarkets(ctx context.Context, query domain.MarketQuery) ([]domain.Market, error) {
	name := strings.TrimSpace(query.Name)
	switch {
	case name != "":
		markets, err := s.store.SearchMarketsByName(ctx, name)
		if err != nil || query.Status == "" {
			return markets, err
		}
		filtered := markets[:0]
		for _, m := range markets {
			if m.Status == query.Status {
				filtered = append(filtered, m)
			}
		}
		return filtered, nil
	case query.Status != "":
		if !query.Status.Valid() {
			return nil, fmt.Errorf("%w: unknown market status %q", domain.ErrInvalidRequest, query.Status)
		}
		return s.store.ListMarketsByStatus(ctx, query.Status)
	default:
		return s.store.ListMarkets(ctx)
	}
}

func (s *MarketService) UpdateMarketStatus(ctx context.Context, id uint64, status domain.MarketStatus) (domain.Market, error) {
	return s.store.UpdateMarketStatus(ctx, id, domain.MarketStatus(strings.ToUpper(string(status))))
}

// DeleteMarket removes the market with its catalog. Promoted local tools stay.
func (s *MarketService) DeleteMarket(ctx context.Context, id uint64) (bool, error) {
	deleted, err := s.store.DeleteMarket(ctx, id)
	if err == nil && deleted {
		s.logger.Info("market deleted", zap.Uint64("marketId", id))
	}
	return deleted, err
}

// ListMarketTools returns the mirrored catalog of a market, optionally
// filtered by keyword.
func (s *MarketService) ListMarketTools(ctx context.Context, marketID uint64, keyword string) ([]domain.CatalogEntry, error) {
	if _, err := s.store.GetMarket(ctx, marketID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(keyword) == "" {
		return s.store.ListCatalogEntries(ctx, marketID)
	}
	return s.store.SearchCatalog(ctx, marketID, keyword)
}

// RefreshMarket syncs the market's catalog from its registry.
func (s *MarketService) RefreshMarket(ctx context.Context, marketID uint64) (marketsync.SyncReport, error) {
	return s.syncer.Sync(ctx, marketID)
}

// ApplySeeds upserts declared markets by name. A seed without status keeps
// the stored status.
func (s *MarketService) ApplySeeds(ctx context.Context, seeds []domain.MarketSeed) (SeedReport, error) {
	var report SeedReport
	for _, seed := range seeds {
		existing, found, err := s.store.FindMarketByName(ctx, seed.Name)
		if err != nil {
			return report, err
		}
		market := existing
		if !found {
			market = domain.Market{Name: seed.Name}
		}
		market.URL = seed.URL
		market.AuthConfig = seed.AuthConfig
		if seed.Status != "" {
			market.Status = seed.Status
		}
		if _, err := s.SaveMarket(ctx, market); err != nil {
			return report, fmt.Errorf("seed market %q: %w", seed.Name, err)
		}
		if found {
			report.Updated++
		} else {
			report.Created++
		}
	}
	return report, nil
}
