package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"

	"mcpmarket/internal/domain"
	"mcpmarket/internal/infra/marketsync"
	"mcpmarket/internal/infra/promotion"
)

type fakeMarkets struct {
	markets  []domain.Market
	entries  map[uint64][]domain.CatalogEntry
	syncErr  error
	synced   []uint64
	lastName string
}

func (f *fakeMarkets) ListMarkets(_ context.Context, query domain.MarketQuery) ([]domain.Market, error) {
	f.lastName = query.Name
	var out []domain.Market
	for _, m := range f.markets {
		if query.Status == "" || m.Status == query.Status {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMarkets) ListMarketTools(_ context.Context, marketID uint64, _ string) ([]domain.CatalogEntry, error) {
	entries, ok := f.entries[marketID]
	if !ok {
		return nil, fmt.Errorf("market %d: %w", marketID, domain.ErrMarketNotFound)
	}
	return entries, nil
}

func (f *fakeMarkets) RefreshMarket(_ context.Context, marketID uint64) (marketsync.SyncReport, error) {
	f.synced = append(f.synced, marketID)
	if f.syncErr != nil {
		return marketsync.SyncReport{MarketID: marketID, Pages: 1}, f.syncErr
	}
	return marketsync.SyncReport{MarketID: marketID, Pages: 2, Inserted: 3}, nil
}

type fakePromoter struct {
	promoted map[uint64]bool
}

func (f *fakePromoter) PromoteBatchDetailed(_ context.Context, ids []uint64) []promotion.Result {
	results := make([]promotion.Result, 0, len(ids))
	for _, id := range ids {
		if f.promoted[id] {
			err := domain.ErrAlreadyPromoted
			results = append(results, promotion.Result{ID: id, Err: err, Code: domain.CodeFailedPrecond, Error: err.Error()})
			continue
		}
		f.promoted[id] = true
		results = append(results, promotion.Result{ID: id, ToolID: id * 10})
	}
	return results
}

type fakeTools struct {
	last domain.ToolQuery
}

func (f *fakeTools) ListTools(_ context.Context, query domain.ToolQuery) ([]domain.LocalTool, error) {
	f.last = query
	return nil, nil
}

type harness struct {
	markets  *fakeMarkets
	promoter *fakePromoter
	tools    *fakeTools
	session  *mcp.ClientSession
}

func newHarness(t *testing.T) harness {
	t.Helper()
	h := harness{
		markets: &fakeMarkets{
			markets: []domain.Market{
				{ID: 1, Name: "one", Status: domain.MarketStatusEnabled},
				{ID: 2, Name: "two", Status: domain.MarketStatusDisabled},
			},
			entries: map[uint64][]domain.CatalogEntry{
				1: {{ID: 5, MarketID: 1, RemoteID: "a", Name: "Alpha"}},
			},
		},
		promoter: &fakePromoter{promoted: map[uint64]bool{}},
		tools:    &fakeTools{},
	}
	server, err := New(Options{Markets: h.markets, Promoter: h.promoter, Tools: h.tools})
	require.NoError(t, err)

	ctx := context.Background()
	ct, st := mcp.NewInMemoryTransports()
	_, err = server.MCPServer().Connect(ctx, st, nil)
	require.NoError(t, err)
	client := mcp.NewClient(&mcp.Implementation{Name: "client", Version: "0.1.0"}, nil)
	session, err := client.Connect(ctx, ct, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	h.session = session
	return h
}

func (h harness) call(t *testing.T, name string, args map[string]any) (*mcp.CallToolResult, string) {
	t.Helper()
	res, err := h.session.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return res, text.Text
}

func TestListToolsAdvertisesAdminTools(t *testing.T) {
	h := newHarness(t)
	res, err := h.session.ListTools(context.Background(), &mcp.ListToolsParams{})
	require.NoError(t, err)

	names := make([]string, 0, len(res.Tools))
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	sort.Strings(names)
	require.Equal(t, []string{ToolCatalogPromote, ToolCatalogSearch, ToolMarketList, ToolMarketSync, ToolToolList}, names)
}

func TestMarketList(t *testing.T) {
	h := newHarness(t)
	res, text := h.call(t, ToolMarketList, map[string]any{"status": "DISABLED", "name": "tw"})
	require.False(t, res.IsError, text)

	var markets []domain.Market
	require.NoError(t, json.Unmarshal([]byte(text), &markets))
	require.Len(t, markets, 1)
	require.Equal(t, "two", markets[0].Name)
	require.Equal(t, "tw", h.markets.lastName)
}

func TestMarketSync(t *testing.T) {
	h := newHarness(t)
	res, text := h.call(t, ToolMarketSync, map[string]any{"marketId": 1})
	require.False(t, res.IsError, text)
	require.JSONEq(t, `{"marketId":1,"pages":2,"inserted":3,"updated":0,"skipped":0,"duration":0}`, text)
	require.Equal(t, []uint64{1}, h.markets.synced)

	h.markets.syncErr = fmt.Errorf("fetch page 2: %w", domain.ErrRegistryStatus)
	res, text = h.call(t, ToolMarketSync, map[string]any{"marketId": 1})
	require.True(t, res.IsError)
	require.Contains(t, text, string(domain.CodeUnavailable))
}

func TestArgumentsAreValidatedAgainstSchema(t *testing.T) {
	h := newHarness(t)

	res, text := h.call(t, ToolMarketSync, map[string]any{})
	require.True(t, res.IsError)
	require.Contains(t, text, string(domain.CodeInvalidArgument))

	res, _ = h.call(t, ToolMarketSync, map[string]any{"marketId": 0})
	require.True(t, res.IsError)

	res, _ = h.call(t, ToolCatalogPromote, map[string]any{"ids": []uint64{}})
	require.True(t, res.IsError)

	res, _ = h.call(t, ToolToolList, map[string]any{"type": "PLUGIN"})
	require.True(t, res.IsError)
	require.Empty(t, h.markets.synced)
}

func TestCatalogSearch(t *testing.T) {
	h := newHarness(t)
	res, text := h.call(t, ToolCatalogSearch, map[string]any{"marketId": 1, "keyword": "alp"})
	require.False(t, res.IsError, text)
	require.Contains(t, text, `"Alpha"`)

	res, text = h.call(t, ToolCatalogSearch, map[string]any{"marketId": 9})
	require.True(t, res.IsError)
	require.Contains(t, text, string(domain.CodeNotFound))
}

func TestCatalogPromoteReportsPerID(t *testing.T) {
	h := newHarness(t)
	res, text := h.call(t, ToolCatalogPromote, map[string]any{"ids": []uint64{5}})
	require.False(t, res.IsError, text)

	res, text = h.call(t, ToolCatalogPromote, map[string]any{"ids": []uint64{5, 6}})
	require.False(t, res.IsError, text)
	var summary struct {
		Success int `json:"success"`
		Failed  int `json:"failed"`
	}
	require.NoError(t, json.Unmarshal([]byte(text), &summary))
	require.Equal(t, 1, summary.Success)
	require.Equal(t, 1, summary.Failed)
}

func TestToolListPassesFilters(t *testing.T) {
	h := newHarness(t)
	res, text := h.call(t, ToolToolList, map[string]any{"type": "REMOTE", "status": "ENABLED"})
	require.False(t, res.IsError, text)
	require.Equal(t, "[]", text)
	require.Equal(t, domain.ToolQuery{Kind: domain.ToolKindRemote, Status: domain.ToolStatusEnabled}, h.tools.last)
}
