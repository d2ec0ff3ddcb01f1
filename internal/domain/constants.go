package domain

const (
	DefaultDataPath                   = "mcpmarket.db"
	DefaultSyncPageSize               = 20
	DefaultSyncMinDelaySeconds        = 10
	DefaultSyncMaxDelaySeconds        = 20
	DefaultRegistryTimeoutSeconds     = 30
	DefaultRegistryUserAgent          = "mcpmarket/0.1"
	DefaultRegistryMaxResponseBytes   = 16 * 1024 * 1024
	DefaultHTTPListenAddress          = "127.0.0.1:8080"
	DefaultHTTPMCPPath                = "/mcp"
	DefaultObservabilityListenAddress = "0.0.0.0:9090"
	DefaultChatProvider               = "openai"
	DefaultChatHistoryWindow          = 20
	DefaultChatSystemPrompt           = "You are a helpful assistant that understands the conversation context and answers accurately."
)
