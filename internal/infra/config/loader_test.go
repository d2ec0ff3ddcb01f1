package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mcpmarket/internal/domain"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mcpmarket.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoader_Defaults(t *testing.T) {
	cfg, err := NewLoader(zap.NewNop()).Load(context.Background(), "")
	require.NoError(t, err)

	want := domain.DefaultAppConfig()
	want.Markets = []domain.MarketSeed{}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoader_File(t *testing.T) {
	file := writeTempConfig(t, `
dataPath: /var/lib/mcpmarket/data.db
sync:
  pageSize: 50
  minDelaySeconds: 1
  maxDelaySeconds: 2
chat:
  model: gpt-4o-mini
  apiKeyEnvVar: OPENAI_API_KEY
  historyWindow: 5
markets:
  - name: modelscope
    url: https://registry.example/api/v1/mcp/servers
    authConfig:
      apiKey: secret
  - name: public
    url: http://localhost:9000/servers
    status: disabled
`)

	cfg, err := NewLoader(nil).Load(context.Background(), file)
	require.NoError(t, err)
	require.Equal(t, "/var/lib/mcpmarket/data.db", cfg.DataPath)
	require.Equal(t, domain.SyncConfig{PageSize: 50, MinDelaySeconds: 1, MaxDelaySeconds: 2}, cfg.Sync)
	require.Equal(t, "gpt-4o-mini", cfg.Chat.Model)
	require.Equal(t, "OPENAI_API_KEY", cfg.Chat.APIKeyEnvVar)
	require.Equal(t, 5, cfg.Chat.HistoryWindow)
	require.Equal(t, domain.DefaultChatProvider, cfg.Chat.Provider)
	require.Equal(t, domain.DefaultRegistryTimeoutSeconds, cfg.Registry.TimeoutSeconds)

	require.Len(t, cfg.Markets, 2)
	require.Equal(t, "modelscope", cfg.Markets[0].Name)
	require.JSONEq(t, `{"apiKey":"secret"}`, string(cfg.Markets[0].AuthConfig))
	require.Equal(t, domain.MarketStatus(""), cfg.Markets[0].Status)
	require.Equal(t, domain.MarketStatusDisabled, cfg.Markets[1].Status)
	require.Nil(t, cfg.Markets[1].AuthConfig)
}

func TestLoader_EnvExpansionAndOverride(t *testing.T) {
	t.Setenv("MARKET_TOKEN", "from-env")
	t.Setenv("MCPMARKET_SYNC_PAGESIZE", "7")
	file := writeTempConfig(t, `
markets:
  - name: m1
    url: https://registry.example/servers
    authConfig: '{"apiKey": "${MARKET_TOKEN}"}'
`)

	cfg, err := NewLoader(nil).Load(context.Background(), file)
	require.NoError(t, err)
	require.Equal(t, 7, cfg.Sync.PageSize)
	require.JSONEq(t, `{"apiKey":"from-env"}`, string(cfg.Markets[0].AuthConfig))
}

func TestLoader_AggregatesValidationErrors(t *testing.T) {
	file := writeTempConfig(t, `
sync:
  pageSize: 0
  minDelaySeconds: 5
  maxDelaySeconds: 1
http:
  mcpPath: mcp
chat:
  provider: other
markets:
  - name: dup
    url: ftp://registry.example
  - name: dup
    url: https://registry.example
    status: sometimes
  - url: https://registry.example
    authConfig: "{not json"
`)

	_, err := NewLoader(nil).Load(context.Background(), file)
	require.ErrorIs(t, err, domain.ErrInvalidRequest)
	for _, want := range []string{
		"sync.pageSize must be > 0",
		"sync.maxDelaySeconds must be >= sync.minDelaySeconds",
		"http.mcpPath must start with /",
		`chat.provider "other" is not supported`,
		"markets[0]: url scheme must be http or https",
		`markets[1]: duplicate name "dup"`,
		`markets[1]: unknown status "sometimes"`,
		"markets[2]: name is required",
		"markets[2]: authConfig is not valid JSON",
	} {
		require.ErrorContains(t, err, want)
	}
}

func TestLoader_MissingFile(t *testing.T) {
	_, err := NewLoader(nil).Load(context.Background(), filepath.Join(t.TempDir(), "absent.yaml"))
	require.ErrorContains(t, err, "read config")
}

func TestExpandConfigEnvReportsMissing(t *testing.T) {
	t.Setenv("PRESENT_PORT", "9000")
	expanded, missing, err := expandConfigEnv([]byte("port: ${PRESENT_PORT}\nname: ${ABSENT_NAME}\n"))
	require.NoError(t, err)
	require.Equal(t, []string{"ABSENT_NAME"}, missing)
	require.Contains(t, expanded, "port: 9000")
}
