package store

import (
	"context"
	"fmt"
	"sort"
	"strings"

	bolt "go.etcd.io/bbolt"

	"mcpmarket/internal/domain"
)

// SaveMarket creates the market when ID is zero and replaces it otherwise.
// CreatedAt survives updates; Status defaults to ENABLED.
func (s *Store) SaveMarket(ctx context.Context, market domain.Market) (domain.Market, error) {
	out := domain.CloneMarket(market)
	if out.Status == "" {
		out.Status = domain.MarketStatusEnabled
	}
	err := s.update(ctx, func(tx *bolt.Tx) error {
		markets, err := bucket(tx, marketsBucketName)
		if err != nil {
			return err
		}
		now := s.timestamp()
		if out.ID == 0 {
			id, err := nextID(markets)
			if err != nil {
				return err
			}
			out.ID = id
			out.CreatedAt = now
		} else {
			var existing domain.Market
			found, err := getJSON(markets, out.ID, &existing)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("market %d: %w", out.ID, domain.ErrMarketNotFound)
			}
			out.CreatedAt = existing.CreatedAt
		}
		out.UpdatedAt = now
		return putJSON(markets, out.ID, out)
	})
	if err != nil {
		return domain.Market{}, err
	}
	return out, nil
}

func (s *Store) GetMarket(ctx context.Context, id uint64) (domain.Market, error) {
	var market domain.Market
	err := s.view(ctx, func(tx *bolt.Tx) error {
		markets, err := bucket(tx, marketsBucketName)
		if err != nil {
			return err
		}
		found, err := getJSON(markets, id, &market)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("market %d: %w", id, domain.ErrMarketNotFound)
		}
		return nil
	})
	return market, err
}

// ListMarkets returns every market, newest first.
func (s *Store) ListMarkets(ctx context.Context) ([]domain.Market, error) {
	return s.filterMarkets(ctx, func(domain.Market) bool { return true })
}

func (s *Store) ListMarketsByStatus(ctx context.Context, status domain.MarketStatus) ([]domain.Market, error) {
	return s.filterMarkets(ctx, func(m domain.Market) bool { return m.Status == status })
}

// SearchMarketsByName matches a case-insensitive substring of the name.
func (s *Store) SearchMarketsByName(ctx context.Context, name string) ([]domain.Market, error) {
	needle := strings.TrimSpace(name)
	return s.filterMarkets(ctx, func(m domain.Market) bool { return containsFold(m.Name, needle) })
}

// FindMarketByName returns the market whose name equals name exactly.
func (s *Store) FindMarketByName(ctx context.Context, name string) (domain.Market, bool, error) {
	markets, err := s.filterMarkets(ctx, func(m domain.Market) bool { return m.Name == name })
	if err != nil || len(markets) == 0 {
		return domain.Market{}, false, err
	}
	return markets[0], true, nil
}

func (s *Store) filterMarkets(ctx context.Context, keep func(domain.Market) bool) ([]domain.Market, error) {
	var out []domain.Market
	err := s.view(ctx, func(tx *bolt.Tx) error {
		markets, err := bucket(tx, marketsBucketName)
		if err != nil {
			return err
		}
		return markets.ForEach(func(key, value []byte) error {
			var market domain.Market
			if err := decode(key, value, &market); err != nil {
				return err
			}
			if keep(market) {
				out = append(out, market)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) UpdateMarketStatus(ctx context.Context, id uint64, status domain.MarketStatus) (domain.Market, error) {
	if !status.Valid() {
		return domain.Market{}, fmt.Errorf("market status %q: %w", status, domain.ErrInvalidRequest)
	}
	var market domain.Market
	err := s.update(ctx, func(tx *bolt.Tx) error {
		markets, err := bucket(tx, marketsBucketName)
		if err != nil {
			return err
		}
		found, err := getJSON(markets, id, &market)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("market %d: %w", id, domain.ErrMarketNotFound)
		}
		market.Status = status
		market.UpdatedAt = s.timestamp()
		return putJSON(markets, id, market)
	})
	return market, err
}

// DeleteMarket removes the market and every catalog entry it owns. It reports
// false when the market did not exist.
func (s *Store) DeleteMarket(ctx context.Context, id uint64) (bool, error) {
	deleted := false
	err := s.update(ctx, func(tx *bolt.Tx) error {
		markets, err := bucket(tx, marketsBucketName)
		if err != nil {
			return err
		}
		if markets.Get(itob(id)) == nil {
			return nil
		}
		if err := markets.Delete(itob(id)); err != nil {
			return fmt.Errorf("%w: delete market %d: %v", domain.ErrStore, id, err)
		}
		deleted = true
		return deleteCatalogForMarket(tx, id)
	})
	return deleted, err
}
