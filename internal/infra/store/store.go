package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"mcpmarket/internal/domain"
)

const (
	schemaVersion = 1

	rootBucketName       = "mcpmarket"
	metaBucketName       = "meta"
	marketsBucketName    = "markets"
	catalogBucketName    = "catalog"
	catalogKeyBucketName = "catalog_keys"
	toolsBucketName      = "tools"
	chatBucketName       = "chat"

	schemaVersionKey = "schema_version"
)

// Store persists markets, catalog entries, local tools and chat history in a
// single bbolt file. bbolt serializes write transactions, which is what the
// upsert-by-key and conditional promotion rely on.
type Store struct {
	mu     sync.RWMutex
	db     *bolt.DB
	path   string
	closed bool
	now    func() time.Time
}

func OpenStore(path string) (*Store, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, fmt.Errorf("data path is required")
	}
	if err := os.MkdirAll(filepath.Dir(trimmed), 0o755); err != nil {
		return nil, fmt.Errorf("ensure data dir: %w", err)
	}
	options := &bolt.Options{Timeout: time.Second}
	base, err := bolt.Open(trimmed, 0o600, options)
	if err != nil {
		return nil, fmt.Errorf("open market db: %w", err)
	}
	if err := ensureSchema(base); err != nil {
		_ = base.Close()
		return nil, err
	}
	return &Store{db: base, path: trimmed, now: time.Now}, nil
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *Store) view(ctx context.Context, fn func(*bolt.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return domain.ErrStoreClosed
	}
	return s.db.View(fn)
}

func (s *Store) update(ctx context.Context, fn func(*bolt.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return domain.ErrStoreClosed
	}
	return s.db.Update(fn)
}

func (s *Store) timestamp() time.Time {
	return s.now().UTC()
}

func ensureSchema(db *bolt.DB) error {
	return db.Update(func(tx *bolt.Tx) error {
		root, err := tx.CreateBucketIfNotExists([]byte(rootBucketName))
		if err != nil {
			return fmt.Errorf("create root bucket: %w", err)
		}
		meta, err := root.CreateBucketIfNotExists([]byte(metaBucketName))
		if err != nil {
			return fmt.Errorf("create meta bucket: %w", err)
		}
		for _, name := range []string{
			marketsBucketName,
			catalogBucketName,
			catalogKeyBucketName,
			toolsBucketName,
			chatBucketName,
		} {
			if _, err := root.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create %s bucket: %w", name, err)
			}
		}
		current := readSchemaVersion(meta)
		if current > schemaVersion {
			return fmt.Errorf("market db schema version %d is newer than supported %d", current, schemaVersion)
		}
		if current == schemaVersion {
			return nil
		}
		return writeSchemaVersion(meta, schemaVersion)
	})
}

func readSchemaVersion(meta *bolt.Bucket) int {
	raw := meta.Get([]byte(schemaVersionKey))
	if len(raw) != 8 {
		return 0
	}
	return int(binary.BigEndian.Uint64(raw))
}

func writeSchemaVersion(meta *bolt.Bucket, version int) error {
	return meta.Put([]byte(schemaVersionKey), itob(uint64(version)))
}

func bucket(tx *bolt.Tx, name string) (*bolt.Bucket, error) {
	root := tx.Bucket([]byte(rootBucketName))
	if root == nil {
		return nil, fmt.Errorf("%w: missing root bucket", domain.ErrStore)
	}
	b := root.Bucket([]byte(name))
	if b == nil {
		return nil, fmt.Errorf("%w: missing %s bucket", domain.ErrStore, name)
	}
	return b, nil
}

func itob(v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}

func btoi(b []byte) uint64 {
	if len(b) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}

func getJSON(b *bolt.Bucket, id uint64, out any) (bool, error) {
	raw := b.Get(itob(id))
	if raw == nil {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("%w: decode record %d: %v", domain.ErrStore, id, err)
	}
	return true, nil
}

func decode(key, raw []byte, out any) error {
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: decode record %d: %v", domain.ErrStore, btoi(key), err)
	}
	return nil
}

func putJSON(b *bolt.Bucket, id uint64, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: encode record %d: %v", domain.ErrStore, id, err)
	}
	if err := b.Put(itob(id), data); err != nil {
		return fmt.Errorf("%w: write record %d: %v", domain.ErrStore, id, err)
	}
	return nil
}

func nextID(b *bolt.Bucket) (uint64, error) {
	id, err := b.NextSequence()
	if err != nil {
		return 0, fmt.Errorf("%w: allocate id: %v", domain.ErrStore, err)
	}
	return id, nil
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// Ping verifies the store can serve a read transaction.
func (s *Store) Ping(ctx context.Context) error {
	return s.view(ctx, func(tx *bolt.Tx) error {
		_, err := bucket(tx, metaBucketName)
		return err
	})
}
