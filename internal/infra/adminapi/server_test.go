package adminapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"mcpmarket/internal/app"
	"mcpmarket/internal/domain"
	"mcpmarket/internal/infra/adminapi"
	"mcpmarket/internal/infra/chat"
	"mcpmarket/internal/infra/marketsync"
	"mcpmarket/internal/infra/promotion"
	"mcpmarket/internal/infra/store"
	"mcpmarket/internal/infra/telemetry"
	"mcpmarket/internal/infra/toolregistry"
)

type stubSyncer struct {
	store *store.Store
	err   error
}

// Sync writes two fixed entries so promotion routes have something to act on.
func (s stubSyncer) Sync(ctx context.Context, marketID uint64) (marketsync.SyncReport, error) {
	if s.err != nil {
		return marketsync.SyncReport{MarketID: marketID}, s.err
	}
	if _, err := s.store.GetMarket(ctx, marketID); err != nil {
		return marketsync.SyncReport{MarketID: marketID}, err
	}
	report := marketsync.SyncReport{MarketID: marketID, Pages: 1}
	for _, remote := range []domain.RemoteTool{{ID: "a", Name: "Alpha"}, {ID: "b", Name: "Beta"}} {
		if _, err := s.store.UpsertByKey(ctx, domain.NewCatalogEntry(marketID, remote)); err != nil {
			return report, err
		}
		report.Inserted++
	}
	return report, nil
}

type fixture struct {
	store    *store.Store
	registry *toolregistry.Registry
	handler  http.Handler
}

func newFixture(t *testing.T, syncErr error) fixture {
	t.Helper()
	st, err := store.OpenStore(filepath.Join(t.TempDir(), "admin.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	registry := toolregistry.New(nil, nil)
	tools := app.NewToolService(st, registry, nil)
	health := telemetry.NewHealthTracker()
	health.Register("store", st.Ping)

	handler := adminapi.NewRouter(adminapi.Options{
		Markets:  app.NewMarketService(st, stubSyncer{store: st, err: syncErr}, nil),
		Tools:    tools,
		Promoter: promotion.NewEngine(st, promotion.Options{OnPromoted: tools.OnPromoted}),
		Chat:     chat.NewProxy(domain.ChatConfig{}, nil, st, chat.Options{}),
		Health:   health,
		MCP: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}),
	})
	return fixture{store: st, registry: registry, handler: handler}
}

func (f fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestMarketLifecycle(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodPost, "/api/markets", map[string]any{
		"name":       "modelscope",
		"url":        "https://registry.example/servers",
		"authConfig": map[string]string{"apiKey": "k"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	market := decode[domain.Market](t, rec)
	require.NotZero(t, market.ID)
	require.Equal(t, domain.MarketStatusEnabled, market.Status)
	require.NotEmpty(t, rec.Header().Get(telemetry.RequestIDHeader))

	rec = f.do(t, http.MethodPost, fmt.Sprintf("/api/markets/%d/status", market.ID), map[string]string{"status": "disabled"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, domain.MarketStatusDisabled, decode[domain.Market](t, rec).Status)

	rec = f.do(t, http.MethodGet, "/api/markets?status=DISABLED", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decode[[]domain.Market](t, rec), 1)

	rec = f.do(t, http.MethodPost, fmt.Sprintf("/api/markets/%d/refresh", market.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Contains(t, rec.Body.String(), `"success":true`)

	rec = f.do(t, http.MethodGet, fmt.Sprintf("/api/markets/%d/tools?keyword=alp", market.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	entries := decode[[]domain.CatalogEntry](t, rec)
	require.Len(t, entries, 1)
	require.Equal(t, "a", entries[0].RemoteID)

	rec = f.do(t, http.MethodDelete, fmt.Sprintf("/api/markets/%d", market.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"deleted":true}`, rec.Body.String())

	rec = f.do(t, http.MethodGet, fmt.Sprintf("/api/markets/%d", market.ID), nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMarketValidation(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodPost, "/api/markets", map[string]string{"name": "x", "url": "not-a-url"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, domain.CodeInvalidArgument, decode[map[string]domain.ErrorCode](t, rec)["code"])

	rec = f.do(t, http.MethodGet, "/api/markets/abc", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/markets/1/status", map[string]string{"status": "sometimes"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPut, "/api/markets/42", map[string]string{"name": "x", "url": "https://a.example"})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRefreshFailureMapsToBadGateway(t *testing.T) {
	f := newFixture(t, fmt.Errorf("fetch page 1: %w", domain.ErrRegistryStatus))
	market, err := f.store.SaveMarket(context.Background(), domain.Market{Name: "m", URL: "https://a.example"})
	require.NoError(t, err)

	rec := f.do(t, http.MethodPost, fmt.Sprintf("/api/markets/%d/refresh", market.ID), nil)
	require.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestPromotionRoutes(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	market, err := f.store.SaveMarket(ctx, domain.Market{Name: "m", URL: "https://a.example"})
	require.NoError(t, err)
	a, err := f.store.UpsertByKey(ctx, domain.NewCatalogEntry(market.ID, domain.RemoteTool{ID: "a", Name: "Alpha"}))
	require.NoError(t, err)
	b, err := f.store.UpsertByKey(ctx, domain.NewCatalogEntry(market.ID, domain.RemoteTool{ID: "b", Name: "Beta"}))
	require.NoError(t, err)

	rec := f.do(t, http.MethodPost, fmt.Sprintf("/api/catalog/%d/promote", a.Entry.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, f.registry.List(), 1)

	rec = f.do(t, http.MethodPost, fmt.Sprintf("/api/catalog/%d/promote", a.Entry.ID), nil)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/catalog/999/promote", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/catalog/promote", map[string][]uint64{"ids": {a.Entry.ID, b.Entry.ID, 999}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var batch struct {
		Success int `json:"success"`
		Failed  int `json:"failed"`
		Results []struct {
			ID   uint64           `json:"id"`
			Code domain.ErrorCode `json:"code"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &batch))
	require.Equal(t, 1, batch.Success)
	require.Equal(t, 2, batch.Failed)
	require.Equal(t, domain.CodeFailedPrecond, batch.Results[0].Code)
	require.Equal(t, domain.CodeNotFound, batch.Results[2].Code)
	require.Len(t, f.registry.List(), 2)

	rec = f.do(t, http.MethodPost, "/api/catalog/promote", map[string][]uint64{"ids": {}})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestToolRoutes(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodPost, "/api/tools", map[string]any{
		"name":       "shell",
		"type":       "local",
		"configJson": map[string]string{"cmd": "sh"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	tool := decode[domain.LocalTool](t, rec)
	require.Equal(t, domain.ToolKindLocal, tool.Kind)
	require.Equal(t, domain.ToolStatusEnabled, tool.Status)
	_, registered := f.registry.Get(tool.ID)
	require.True(t, registered)

	rec = f.do(t, http.MethodPost, fmt.Sprintf("/api/tools/%d/status", tool.ID), map[string]string{"status": "DISABLED"})
	require.Equal(t, http.StatusOK, rec.Code)
	_, registered = f.registry.Get(tool.ID)
	require.False(t, registered)

	rec = f.do(t, http.MethodGet, "/api/tools?type=LOCAL&status=DISABLED", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decode[[]domain.LocalTool](t, rec), 1)

	rec = f.do(t, http.MethodPost, "/api/tools", map[string]any{"name": "bad", "type": "PLUGIN"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodDelete, "/api/tools", map[string][]uint64{"ids": {tool.ID, 999}})
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, fmt.Sprintf(`{"deleted":[%d]}`, tool.ID), rec.Body.String())

	rec = f.do(t, http.MethodGet, fmt.Sprintf("/api/tools/%d", tool.ID), nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChatRoutes(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodGet, "/api/chat/generate?sessionId=1", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/chat/generate?sessionId=1&message=hi", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/chat/history?sessionId=s", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodDelete, "/api/chat/history?sessionId=s", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"deleted":false}`, rec.Body.String())
}

func TestHealthAndMCPMount(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"ok"`)

	rec = f.do(t, http.MethodPost, "/mcp", nil)
	require.Equal(t, http.StatusTeapot, rec.Code)

	require.NoError(t, f.store.Close())
	rec = f.do(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
