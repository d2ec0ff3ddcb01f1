package chat

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"mcpmarket/internal/domain"
)

// NewModel creates the chat model described by cfg.
func NewModel(ctx context.Context, cfg domain.ChatConfig) (model.ToolCallingChatModel, error) {
	apiKey, err := resolveAPIKey(cfg)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "openai", "":
		modelCfg := &openai.ChatModelConfig{
			Model:  cfg.Model,
			APIKey: apiKey,
		}
		if cfg.BaseURL != "" {
			modelCfg.BaseURL = cfg.BaseURL
		}
		return openai.NewChatModel(ctx, modelCfg)
	default:
		return nil, fmt.Errorf("%w: unsupported chat provider %q", domain.ErrInvalidRequest, cfg.Provider)
	}
}

func resolveAPIKey(cfg domain.ChatConfig) (string, error) {
	if key := strings.TrimSpace(cfg.APIKey); key != "" {
		return key, nil
	}
	envVar := strings.TrimSpace(cfg.APIKeyEnvVar)
	if envVar == "" {
		return "", fmt.Errorf("%w: API key is required: set chat.apiKey or chat.apiKeyEnvVar", domain.ErrInvalidRequest)
	}
	key := os.Getenv(envVar)
	if key == "" {
		return "", fmt.Errorf("%w: API key not found in env var %s", domain.ErrInvalidRequest, envVar)
	}
	return key, nil
}
