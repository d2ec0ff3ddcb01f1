package domain

import (
	"encoding/json"
	"time"
)

// AppConfig is the normalized application configuration.
type AppConfig struct {
	DataPath      string              `json:"dataPath"`
	Sync          SyncConfig          `json:"sync"`
	Registry      RegistryConfig      `json:"registry"`
	HTTP          HTTPConfig          `json:"http"`
	Observability ObservabilityConfig `json:"observability"`
	Chat          ChatConfig          `json:"chat"`
	Markets       []MarketSeed        `json:"markets,omitempty"`
}

type SyncConfig struct {
	PageSize        int `json:"pageSize"`
	MinDelaySeconds int `json:"minDelaySeconds"`
	MaxDelaySeconds int `json:"maxDelaySeconds"`
}

func (c SyncConfig) MinDelay() time.Duration {
	return time.Duration(c.MinDelaySeconds) * time.Second
}

func (c SyncConfig) MaxDelay() time.Duration {
	return time.Duration(c.MaxDelaySeconds) * time.Second
}

type RegistryConfig struct {
	TimeoutSeconds   int    `json:"timeoutSeconds"`
	UserAgent        string `json:"userAgent"`
	MaxResponseBytes int64  `json:"maxResponseBytes"`
}

func (c RegistryConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type HTTPConfig struct {
	ListenAddress string `json:"listenAddress"`
	MCPPath       string `json:"mcpPath"`
}

type ObservabilityConfig struct {
	ListenAddress string `json:"listenAddress"`
}

type ChatConfig struct {
	Provider      string `json:"provider"`
	Model         string `json:"model"`
	APIKey        string `json:"-"`
	APIKeyEnvVar  string `json:"apiKeyEnvVar,omitempty"`
	BaseURL       string `json:"baseURL,omitempty"`
	HistoryWindow int    `json:"historyWindow"`
	SystemPrompt  string `json:"systemPrompt"`
}

// Enabled reports whether a chat model is configured.
func (c ChatConfig) Enabled() bool {
	return c.Model != ""
}

// MarketSeed declares a market in configuration or an import file.
type MarketSeed struct {
	Name       string          `json:"name"`
	URL        string          `json:"url"`
	AuthConfig json.RawMessage `json:"authConfig,omitempty"`
	Status     MarketStatus    `json:"status,omitempty"`
}

// DefaultAppConfig returns the configuration used when no file is given.
func DefaultAppConfig() AppConfig {
	return AppConfig{
		DataPath: DefaultDataPath,
		Sync: SyncConfig{
			PageSize:        DefaultSyncPageSize,
			MinDelaySeconds: DefaultSyncMinDelaySeconds,
			MaxDelaySeconds: DefaultSyncMaxDelaySeconds,
		},
		Registry: RegistryConfig{
			TimeoutSeconds:   DefaultRegistryTimeoutSeconds,
			UserAgent:        DefaultRegistryUserAgent,
			MaxResponseBytes: DefaultRegistryMaxResponseBytes,
		},
		HTTP: HTTPConfig{
			ListenAddress: DefaultHTTPListenAddress,
			MCPPath:       DefaultHTTPMCPPath,
		},
		Observability: ObservabilityConfig{
			ListenAddress: DefaultObservabilityListenAddress,
		},
		Chat: ChatConfig{
			Provider:      DefaultChatProvider,
			HistoryWindow: DefaultChatHistoryWindow,
			SystemPrompt:  DefaultChatSystemPrompt,
		},
	}
}
