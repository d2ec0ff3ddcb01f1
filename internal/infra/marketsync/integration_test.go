package marketsync_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"mcpmarket/internal/domain"
	"mcpmarket/internal/infra/marketsync"
	"mcpmarket/internal/infra/registry"
	"mcpmarket/internal/infra/store"
)

type countingPacer struct {
	mu    sync.Mutex
	waits int
}

func (p *countingPacer) Wait(ctx context.Context) (time.Duration, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.waits++
	return 0, ctx.Err()
}

// deletingPacer removes the market on the first pause, between two pages.
type deletingPacer struct {
	db       *store.Store
	marketID uint64
	deleted  bool
}

func (p *deletingPacer) Wait(ctx context.Context) (time.Duration, error) {
	if !p.deleted {
		p.deleted = true
		if _, err := p.db.DeleteMarket(ctx, p.marketID); err != nil {
			return 0, err
		}
	}
	return 0, ctx.Err()
}

// registryServer serves pages keyed by page_number from a mutable script.
type registryServer struct {
	mu    sync.Mutex
	pages map[int]string
	auth  []string
}

func (r *registryServer) set(pages map[int]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pages = pages
}

func (r *registryServer) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	var body struct {
		PageNumber int `json:"page_number"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	r.mu.Lock()
	r.auth = append(r.auth, req.Header.Get("Authorization"))
	list, ok := r.pages[body.PageNumber]
	r.mu.Unlock()
	if !ok {
		list = "[]"
	}
	_, _ = w.Write([]byte(`{"success":true,"data":{"mcp_server_list":` + list + `}}`))
}

func TestSyncAgainstRegistryAndStore(t *testing.T) {
	ctx := context.Background()
	db, err := store.OpenStore(filepath.Join(t.TempDir(), "market.db"))
	require.NoError(t, err)
	defer func() {
		require.NoError(t, db.Close())
	}()

	remote := &registryServer{}
	remote.set(map[int]string{
		1: `[{"id":"a","name":"Alpha","locales":{"zh":{"description":"中文描述"}}},{"id":"b","name":"Beta","description":"plain"}]`,
		2: `[{"id":"c","name":"Gamma","tags":["x"]}]`,
	})
	server := httptest.NewServer(remote)
	defer server.Close()

	market, err := db.SaveMarket(ctx, domain.Market{
		Name:       "M1",
		URL:        server.URL,
		AuthConfig: json.RawMessage(`{"apiKey":"token-1"}`),
	})
	require.NoError(t, err)

	pacer := &countingPacer{}
	engine := marketsync.NewEngine(db, db, registry.NewClient(registry.Options{}), marketsync.Options{
		PageSize: 2,
		Pacer:    pacer,
	})

	require.True(t, engine.SyncMarket(ctx, market.ID))
	require.Equal(t, 1, pacer.waits)
	require.Equal(t, []string{"Bearer token-1", "Bearer token-1"}, remote.auth)

	entries, err := db.ListCatalogEntries(ctx, market.ID)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, "中文描述", entries[0].Description)
	require.Equal(t, "plain", entries[1].Description)
	require.Equal(t, []string{"x"}, entries[2].Metadata.Tags)
	require.Equal(t, []string{}, entries[2].Metadata.Categories)

	tool, err := domain.ToolFromCatalogEntry(entries[0])
	require.NoError(t, err)
	created, _, err := db.PromoteEntry(ctx, entries[0].ID, tool)
	require.NoError(t, err)

	remote.set(map[int]string{
		1: `[{"id":"a","name":"Alpha v2"}]`,
	})
	report, err := engine.Sync(ctx, market.ID)
	require.NoError(t, err)
	require.Equal(t, 1, report.Updated)

	again, err := db.GetCatalogEntry(ctx, entries[0].ID)
	require.NoError(t, err)
	require.Equal(t, "Alpha v2", again.Name)
	require.True(t, again.IsPromoted)
	require.Equal(t, created.ID, *again.LocalToolID)

	entries, err = db.ListCatalogEntries(ctx, market.ID)
	require.NoError(t, err)
	require.Len(t, entries, 3)
}

func TestSyncStopsWhenMarketDeletedBetweenPages(t *testing.T) {
	ctx := context.Background()
	db, err := store.OpenStore(filepath.Join(t.TempDir(), "market.db"))
	require.NoError(t, err)
	defer func() {
		require.NoError(t, db.Close())
	}()

	remote := &registryServer{}
	remote.set(map[int]string{
		1: `[{"id":"a","name":"Alpha"},{"id":"b","name":"Beta"}]`,
		2: `[{"id":"c","name":"Gamma"}]`,
	})
	server := httptest.NewServer(remote)
	defer server.Close()

	market, err := db.SaveMarket(ctx, domain.Market{Name: "M1", URL: server.URL})
	require.NoError(t, err)

	pacer := &deletingPacer{db: db, marketID: market.ID}
	engine := marketsync.NewEngine(db, db, registry.NewClient(registry.Options{}), marketsync.Options{
		PageSize: 2,
		Pacer:    pacer,
	})

	report, err := engine.Sync(ctx, market.ID)
	require.ErrorIs(t, err, domain.ErrMarketNotFound)
	require.True(t, pacer.deleted)
	require.Equal(t, 2, report.Pages)
	require.Equal(t, 2, report.Inserted)

	entries, err := db.ListCatalogEntries(ctx, market.ID)
	require.NoError(t, err)
	require.Empty(t, entries)

	require.False(t, engine.SyncMarket(ctx, market.ID))
}
