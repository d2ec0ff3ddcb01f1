package config

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"mcpmarket/internal/domain"
)

// EnvPrefix prefixes environment overrides, e.g. MCPMARKET_SYNC_PAGESIZE.
const EnvPrefix = "MCPMARKET"

type Loader struct {
	logger *zap.Logger
}

func NewLoader(logger *zap.Logger) *Loader {
	if logger == nil {
		return &Loader{logger: zap.NewNop()}
	}
	return &Loader{logger: logger.Named("config")}
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("dataPath", domain.DefaultDataPath)
	v.SetDefault("sync.pageSize", domain.DefaultSyncPageSize)
	v.SetDefault("sync.minDelaySeconds", domain.DefaultSyncMinDelaySeconds)
	v.SetDefault("sync.maxDelaySeconds", domain.DefaultSyncMaxDelaySeconds)
	v.SetDefault("registry.timeoutSeconds", domain.DefaultRegistryTimeoutSeconds)
	v.SetDefault("registry.userAgent", domain.DefaultRegistryUserAgent)
	v.SetDefault("registry.maxResponseBytes", domain.DefaultRegistryMaxResponseBytes)
	v.SetDefault("http.listenAddress", domain.DefaultHTTPListenAddress)
	v.SetDefault("http.mcpPath", domain.DefaultHTTPMCPPath)
	v.SetDefault("observability.listenAddress", domain.DefaultObservabilityListenAddress)
	v.SetDefault("chat.provider", domain.DefaultChatProvider)
	v.SetDefault("chat.model", "")
	v.SetDefault("chat.apiKey", "")
	v.SetDefault("chat.apiKeyEnvVar", "")
	v.SetDefault("chat.baseURL", "")
	v.SetDefault("chat.historyWindow", domain.DefaultChatHistoryWindow)
	v.SetDefault("chat.systemPrompt", domain.DefaultChatSystemPrompt)
}

type rawConfig struct {
	DataPath      string                 `mapstructure:"dataPath"`
	Sync          rawSyncConfig          `mapstructure:"sync"`
	Registry      rawRegistryConfig      `mapstructure:"registry"`
	HTTP          rawHTTPConfig          `mapstructure:"http"`
	Observability rawObservabilityConfig `mapstructure:"observability"`
	Chat          rawChatConfig          `mapstructure:"chat"`
	Markets       []RawMarket            `mapstructure:"markets"`
}

type rawSyncConfig struct {
	PageSize        int `mapstructure:"pageSize"`
	MinDelaySeconds int `mapstructure:"minDelaySeconds"`
	MaxDelaySeconds int `mapstructure:"maxDelaySeconds"`
}

type rawRegistryConfig struct {
	TimeoutSeconds   int    `mapstructure:"timeoutSeconds"`
	UserAgent        string `mapstructure:"userAgent"`
	MaxResponseBytes int64  `mapstructure:"maxResponseBytes"`
}

type rawHTTPConfig struct {
	ListenAddress string `mapstructure:"listenAddress"`
	MCPPath       string `mapstructure:"mcpPath"`
}

type rawObservabilityConfig struct {
	ListenAddress string `mapstructure:"listenAddress"`
}

type rawChatConfig struct {
	Provider      string `mapstructure:"provider"`
	Model         string `mapstructure:"model"`
	APIKey        string `mapstructure:"apiKey"`
	APIKeyEnvVar  string `mapstructure:"apiKeyEnvVar"`
	BaseURL       string `mapstructure:"baseURL"`
	HistoryWindow int    `mapstructure:"historyWindow"`
	SystemPrompt  string `mapstructure:"systemPrompt"`
}

// RawMarket is a market declaration as written in a config or import file.
// AuthConfig may be a mapping or a JSON string.
type RawMarket struct {
	Name       string `mapstructure:"name" json:"name" yaml:"name" toml:"name"`
	URL        string `mapstructure:"url" json:"url" yaml:"url" toml:"url"`
	AuthConfig any    `mapstructure:"authConfig" json:"authConfig" yaml:"authConfig" toml:"authConfig"`
	Status     string `mapstructure:"status" json:"status" yaml:"status" toml:"status"`
}

// Load reads the YAML file at path. An empty path yields defaults plus
// environment overrides.
func (l *Loader) Load(ctx context.Context, path string) (domain.AppConfig, error) {
	v := newViper()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return domain.AppConfig{}, fmt.Errorf("read config: %w", err)
		}
		expanded, missing, err := expandConfigEnv(data)
		if err != nil {
			return domain.AppConfig{}, err
		}
		if len(missing) > 0 {
			l.logger.Warn("missing environment variables in config", zap.String("path", path), zap.Strings("missing", missing))
		}
		if err := v.ReadConfig(bytes.NewBufferString(expanded)); err != nil {
			return domain.AppConfig{}, fmt.Errorf("parse config: %w", err)
		}
	}

	var raw rawConfig
	if err := v.Unmarshal(&raw); err != nil {
		return domain.AppConfig{}, fmt.Errorf("decode config: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return domain.AppConfig{}, err
	}

	cfg, errs := normalize(raw)
	if len(errs) > 0 {
		return domain.AppConfig{}, fmt.Errorf("%w: %s", domain.ErrInvalidRequest, strings.Join(errs, "; "))
	}
	return cfg, nil
}

func normalize(raw rawConfig) (domain.AppConfig, []string) {
	var errs []string

	cfg := domain.AppConfig{
		DataPath: strings.TrimSpace(raw.DataPath),
		Sync: domain.SyncConfig{
			PageSize:        raw.Sync.PageSize,
			MinDelaySeconds: raw.Sync.MinDelaySeconds,
			MaxDelaySeconds: raw.Sync.MaxDelaySeconds,
		},
		Registry: domain.RegistryConfig{
			TimeoutSeconds:   raw.Registry.TimeoutSeconds,
			UserAgent:        strings.TrimSpace(raw.Registry.UserAgent),
			MaxResponseBytes: raw.Registry.MaxResponseBytes,
		},
		HTTP: domain.HTTPConfig{
			ListenAddress: strings.TrimSpace(raw.HTTP.ListenAddress),
			MCPPath:       strings.TrimSpace(raw.HTTP.MCPPath),
		},
		Observability: domain.ObservabilityConfig{
			ListenAddress: strings.TrimSpace(raw.Observability.ListenAddress),
		},
		Chat: domain.ChatConfig{
			Provider:      strings.ToLower(strings.TrimSpace(raw.Chat.Provider)),
			Model:         strings.TrimSpace(raw.Chat.Model),
			APIKey:        strings.TrimSpace(raw.Chat.APIKey),
			APIKeyEnvVar:  strings.TrimSpace(raw.Chat.APIKeyEnvVar),
			BaseURL:       strings.TrimSpace(raw.Chat.BaseURL),
			HistoryWindow: raw.Chat.HistoryWindow,
			SystemPrompt:  raw.Chat.SystemPrompt,
		},
	}

	if cfg.DataPath == "" {
		errs = append(errs, "dataPath must not be empty")
	}
	if cfg.Sync.PageSize <= 0 {
		errs = append(errs, "sync.pageSize must be > 0")
	}
	if cfg.Sync.MinDelaySeconds < 0 {
		errs = append(errs, "sync.minDelaySeconds must be >= 0")
	}
	if cfg.Sync.MaxDelaySeconds < cfg.Sync.MinDelaySeconds {
		errs = append(errs, "sync.maxDelaySeconds must be >= sync.minDelaySeconds")
	}
	if cfg.Registry.TimeoutSeconds <= 0 {
		errs = append(errs, "registry.timeoutSeconds must be > 0")
	}
	if cfg.Registry.MaxResponseBytes <= 0 {
		errs = append(errs, "registry.maxResponseBytes must be > 0")
	}
	if cfg.HTTP.ListenAddress == "" {
		errs = append(errs, "http.listenAddress must not be empty")
	}
	if !strings.HasPrefix(cfg.HTTP.MCPPath, "/") {
		errs = append(errs, "http.mcpPath must start with /")
	}
	if cfg.Chat.Provider == "" {
		cfg.Chat.Provider = domain.DefaultChatProvider
	}
	if cfg.Chat.Provider != domain.DefaultChatProvider {
		errs = append(errs, fmt.Sprintf("chat.provider %q is not supported", cfg.Chat.Provider))
	}
	if cfg.Chat.HistoryWindow <= 0 {
		errs = append(errs, "chat.historyWindow must be > 0")
	}
	if strings.TrimSpace(cfg.Chat.SystemPrompt) == "" {
		cfg.Chat.SystemPrompt = domain.DefaultChatSystemPrompt
	}

	seeds, seedErrs := NormalizeMarkets(raw.Markets, "markets")
	cfg.Markets = seeds
	errs = append(errs, seedErrs...)
	return cfg, errs
}

// NormalizeMarkets validates market declarations and converts them to seeds.
// Names must be unique; prefix labels error messages.
func NormalizeMarkets(raw []RawMarket, prefix string) ([]domain.MarketSeed, []string) {
	var errs []string
	seen := make(map[string]struct{}, len(raw))
	seeds := make([]domain.MarketSeed, 0, len(raw))
	for i, market := range raw {
		label := fmt.Sprintf("%s[%d]", prefix, i)
		seed := domain.MarketSeed{
			Name:   strings.TrimSpace(market.Name),
			URL:    strings.TrimSpace(market.URL),
			Status: domain.MarketStatus(strings.ToUpper(strings.TrimSpace(market.Status))),
		}
		if seed.Name == "" {
			errs = append(errs, label+": name is required")
		} else if _, dup := seen[seed.Name]; dup {
			errs = append(errs, fmt.Sprintf("%s: duplicate name %q", label, seed.Name))
		} else {
			seen[seed.Name] = struct{}{}
		}
		if err := validateMarketURL(seed.URL); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", label, err))
		}
		if seed.Status != "" && !seed.Status.Valid() {
			errs = append(errs, fmt.Sprintf("%s: unknown status %q", label, market.Status))
		}
		auth, err := normalizeAuthConfig(market.AuthConfig)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", label, err))
		}
		seed.AuthConfig = auth
		seeds = append(seeds, seed)
	}
	return seeds, errs
}

func validateMarketURL(raw string) error {
	if raw == "" {
		return errors.New("url is required")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https")
	}
	if parsed.Host == "" {
		return errors.New("url host is required")
	}
	return nil
}

// normalizeAuthConfig accepts a JSON string verbatim and re-encodes mappings
// through domain.MarketAuth, since viper lower-cases nested keys.
func normalizeAuthConfig(value any) (json.RawMessage, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		text := strings.TrimSpace(v)
		if text == "" {
			return nil, nil
		}
		if !json.Valid([]byte(text)) {
			return nil, errors.New("authConfig is not valid JSON")
		}
		return json.RawMessage(text), nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode authConfig: %w", err)
		}
		var auth domain.MarketAuth
		if err := json.Unmarshal(data, &auth); err != nil {
			return nil, fmt.Errorf("authConfig: %w", err)
		}
		if auth.APIKey == "" {
			return nil, nil
		}
		return json.Marshal(auth)
	}
}
