package store

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"mcpmarket/internal/domain"
)

func catalogIndexKey(key domain.CatalogKey) []byte {
	return append(itob(key.MarketID), key.RemoteID...)
}

// UpsertByKey inserts entry under its (marketID, remoteID) key or refreshes the
// descriptive fields of the existing row. Promotion state is never taken from
// entry. The market check, the index lookup and the write share one
// transaction, so rows are never written for a market deleted mid-sync.
func (s *Store) UpsertByKey(ctx context.Context, entry domain.CatalogEntry) (domain.UpsertResult, error) {
	if entry.MarketID == 0 || entry.RemoteID == "" {
		return domain.UpsertResult{}, fmt.Errorf("catalog key %s: %w", entry.Key(), domain.ErrInvalidRequest)
	}
	var result domain.UpsertResult
	err := s.update(ctx, func(tx *bolt.Tx) error {
		markets, err := bucket(tx, marketsBucketName)
		if err != nil {
			return err
		}
		if markets.Get(itob(entry.MarketID)) == nil {
			return fmt.Errorf("market %d: %w", entry.MarketID, domain.ErrMarketNotFound)
		}
		catalog, err := bucket(tx, catalogBucketName)
		if err != nil {
			return err
		}
		index, err := bucket(tx, catalogKeyBucketName)
		if err != nil {
			return err
		}
		now := s.timestamp()
		indexKey := catalogIndexKey(entry.Key())

		if raw := index.Get(indexKey); raw != nil {
			id := btoi(raw)
			var existing domain.CatalogEntry
			found, err := getJSON(catalog, id, &existing)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("%w: index for %s points at missing entry %d", domain.ErrStore, entry.Key(), id)
			}
			existing.Name = entry.Name
			existing.Description = entry.Description
			existing.Metadata = entry.Metadata.Normalize()
			existing.UpdatedAt = now
			if err := putJSON(catalog, id, existing); err != nil {
				return err
			}
			result = domain.UpsertResult{Entry: existing, Action: domain.UpsertUpdated}
			return nil
		}

		id, err := nextID(catalog)
		if err != nil {
			return err
		}
		created := domain.CatalogEntry{
			ID:          id,
			MarketID:    entry.MarketID,
			RemoteID:    entry.RemoteID,
			Name:        entry.Name,
			Description: entry.Description,
			Metadata:    entry.Metadata.Normalize(),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := putJSON(catalog, id, created); err != nil {
			return err
		}
		if err := index.Put(indexKey, itob(id)); err != nil {
			return fmt.Errorf("%w: write catalog index: %v", domain.ErrStore, err)
		}
		result = domain.UpsertResult{Entry: created, Action: domain.UpsertInserted}
		return nil
	})
	return result, err
}

func (s *Store) GetCatalogEntry(ctx context.Context, id uint64) (domain.CatalogEntry, error) {
	var entry domain.CatalogEntry
	err := s.view(ctx, func(tx *bolt.Tx) error {
		catalog, err := bucket(tx, catalogBucketName)
		if err != nil {
			return err
		}
		found, err := getJSON(catalog, id, &entry)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("catalog entry %d: %w", id, domain.ErrCatalogEntryNotFound)
		}
		return nil
	})
	return entry, err
}

func (s *Store) GetCatalogEntryByKey(ctx context.Context, key domain.CatalogKey) (domain.CatalogEntry, error) {
	var entry domain.CatalogEntry
	err := s.view(ctx, func(tx *bolt.Tx) error {
		catalog, err := bucket(tx, catalogBucketName)
		if err != nil {
			return err
		}
		index, err := bucket(tx, catalogKeyBucketName)
		if err != nil {
			return err
		}
		raw := index.Get(catalogIndexKey(key))
		if raw == nil {
			return fmt.Errorf("catalog entry %s: %w", key, domain.ErrCatalogEntryNotFound)
		}
		found, err := getJSON(catalog, btoi(raw), &entry)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("catalog entry %s: %w", key, domain.ErrCatalogEntryNotFound)
		}
		return nil
	})
	return entry, err
}

// ListCatalogEntries returns the entries of one market ordered by remote id.
func (s *Store) ListCatalogEntries(ctx context.Context, marketID uint64) ([]domain.CatalogEntry, error) {
	return s.SearchCatalog(ctx, marketID, "")
}

// SearchCatalog filters a market's entries by a case-insensitive keyword on
// name or description. An empty keyword matches everything.
func (s *Store) SearchCatalog(ctx context.Context, marketID uint64, keyword string) ([]domain.CatalogEntry, error) {
	needle := strings.TrimSpace(keyword)
	var out []domain.CatalogEntry
	err := s.view(ctx, func(tx *bolt.Tx) error {
		catalog, err := bucket(tx, catalogBucketName)
		if err != nil {
			return err
		}
		index, err := bucket(tx, catalogKeyBucketName)
		if err != nil {
			return err
		}
		prefix := itob(marketID)
		cursor := index.Cursor()
		for k, v := cursor.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = cursor.Next() {
			var entry domain.CatalogEntry
			found, err := getJSON(catalog, btoi(v), &entry)
			if err != nil {
				return err
			}
			if !found {
				continue
			}
			if needle != "" && !containsFold(entry.Name, needle) && !containsFold(entry.Description, needle) {
				continue
			}
			out = append(out, entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RemoteID < out[j].RemoteID })
	return out, nil
}

// MarkPromoted links entry id to a local tool, only if it is not promoted yet.
func (s *Store) MarkPromoted(ctx context.Context, id uint64, localToolID uint64) (domain.CatalogEntry, error) {
	var entry domain.CatalogEntry
	err := s.update(ctx, func(tx *bolt.Tx) error {
		var err error
		entry, err = markPromoted(tx, id, localToolID, s.timestamp())
		return err
	})
	return entry, err
}

// PromoteEntry creates tool and marks entry id promoted to it in a single
// write transaction. When the entry is already promoted nothing is written.
func (s *Store) PromoteEntry(ctx context.Context, id uint64, tool domain.LocalTool) (domain.LocalTool, domain.CatalogEntry, error) {
	var (
		created domain.LocalTool
		entry   domain.CatalogEntry
	)
	err := s.update(ctx, func(tx *bolt.Tx) error {
		now := s.timestamp()
		current, err := loadCatalogEntry(tx, id)
		if err != nil {
			return err
		}
		if current.IsPromoted {
			return fmt.Errorf("catalog entry %d: %w", id, domain.ErrAlreadyPromoted)
		}
		created, err = insertLocalTool(tx, tool, now)
		if err != nil {
			return err
		}
		entry, err = markPromoted(tx, id, created.ID, now)
		return err
	})
	if err != nil {
		return domain.LocalTool{}, domain.CatalogEntry{}, err
	}
	return created, entry, nil
}

func loadCatalogEntry(tx *bolt.Tx, id uint64) (domain.CatalogEntry, error) {
	catalog, err := bucket(tx, catalogBucketName)
	if err != nil {
		return domain.CatalogEntry{}, err
	}
	var entry domain.CatalogEntry
	found, err := getJSON(catalog, id, &entry)
	if err != nil {
		return domain.CatalogEntry{}, err
	}
	if !found {
		return domain.CatalogEntry{}, fmt.Errorf("catalog entry %d: %w", id, domain.ErrCatalogEntryNotFound)
	}
	return entry, nil
}

func markPromoted(tx *bolt.Tx, id uint64, localToolID uint64, now time.Time) (domain.CatalogEntry, error) {
	entry, err := loadCatalogEntry(tx, id)
	if err != nil {
		return domain.CatalogEntry{}, err
	}
	if entry.IsPromoted {
		return domain.CatalogEntry{}, fmt.Errorf("catalog entry %d: %w", id, domain.ErrAlreadyPromoted)
	}
	toolID := localToolID
	entry.IsPromoted = true
	entry.LocalToolID = &toolID
	entry.UpdatedAt = now
	catalog, err := bucket(tx, catalogBucketName)
	if err != nil {
		return domain.CatalogEntry{}, err
	}
	if err := putJSON(catalog, id, entry); err != nil {
		return domain.CatalogEntry{}, err
	}
	return entry, nil
}

func deleteCatalogForMarket(tx *bolt.Tx, marketID uint64) error {
	catalog, err := bucket(tx, catalogBucketName)
	if err != nil {
		return err
	}
	index, err := bucket(tx, catalogKeyBucketName)
	if err != nil {
		return err
	}
	prefix := itob(marketID)
	var indexKeys, entryKeys [][]byte
	cursor := index.Cursor()
	for k, v := cursor.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = cursor.Next() {
		indexKeys = append(indexKeys, append([]byte(nil), k...))
		entryKeys = append(entryKeys, append([]byte(nil), v...))
	}
	for _, k := range indexKeys {
		if err := index.Delete(k); err != nil {
			return fmt.Errorf("%w: delete catalog index: %v", domain.ErrStore, err)
		}
	}
	for _, k := range entryKeys {
		if err := catalog.Delete(k); err != nil {
			return fmt.Errorf("%w: delete catalog entry %d: %v", domain.ErrStore, btoi(k), err)
		}
	}
	return nil
}
