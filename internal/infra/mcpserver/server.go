package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"mcpmarket/internal/domain"
	"mcpmarket/internal/infra/marketsync"
	"mcpmarket/internal/infra/promotion"
)

type Markets interface {
	ListMarkets(ctx context.Context, query domain.MarketQuery) ([]domain.Market, error)
	ListMarketTools(ctx context.Context, marketID uint64, keyword string) ([]domain.CatalogEntry, error)
	RefreshMarket(ctx context.Context, marketID uint64) (marketsync.SyncReport, error)
}

type Promoter interface {
	PromoteBatchDetailed(ctx context.Context, ids []uint64) []promotion.Result
}

type Tools interface {
	ListTools(ctx context.Context, query domain.ToolQuery) ([]domain.LocalTool, error)
}

type Options struct {
	Markets  Markets
	Promoter Promoter
	Tools    Tools
	Version  string
	Logger   *zap.Logger
}

// Server exposes market administration as MCP tools.
type Server struct {
	server   *mcp.Server
	markets  Markets
	promoter Promoter
	tools    Tools
	logger   *zap.Logger
}

type toolHandler func(ctx context.Context, args json.RawMessage) (any, error)

func New(opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	version := opts.Version
	if version == "" {
		version = "dev"
	}
	s := &Server{
		server: mcp.NewServer(&mcp.Implementation{
			Name:    "mcpmarket",
			Version: version,
		}, &mcp.ServerOptions{HasTools: true}),
		markets:  opts.Markets,
		promoter: opts.Promoter,
		tools:    opts.Tools,
		logger:   logger.Named("mcpserver"),
	}

	for _, entry := range []struct {
		tool    mcp.Tool
		handler toolHandler
	}{
		{marketListTool(), s.marketList},
		{marketSyncTool(), s.marketSync},
		{catalogSearchTool(), s.catalogSearch},
		{catalogPromoteTool(), s.catalogPromote},
		{toolListTool(), s.toolList},
	} {
		if err := s.addTool(entry.tool, entry.handler); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// MCPServer returns the underlying server, e.g. for in-memory transports.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}

// Handler serves the tools over streamable HTTP.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, nil)
}

func (s *Server) addTool(tool mcp.Tool, handler toolHandler) error {
	schema, ok := tool.InputSchema.(*jsonschema.Schema)
	if !ok {
		return fmt.Errorf("tool %s: input schema must be *jsonschema.Schema", tool.Name)
	}
	resolved, err := schema.Resolve(nil)
	if err != nil {
		return fmt.Errorf("tool %s: resolve input schema: %w", tool.Name, err)
	}
	s.server.AddTool(&tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := normalizeArguments(req.Params.Arguments)
		var instance any
		if err := json.Unmarshal(args, &instance); err != nil {
			return errorResult(fmt.Errorf("%w: arguments: %v", domain.ErrInvalidRequest, err)), nil
		}
		if err := resolved.Validate(instance); err != nil {
			return errorResult(fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)), nil
		}
		out, err := handler(ctx, args)
		if err != nil {
			s.logger.Info("mcp tool call failed", zap.String("tool", tool.Name), zap.Error(err))
			return errorResult(err), nil
		}
		return jsonResult(out)
	})
	return nil
}

func normalizeArguments(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || string(raw) == "null" {
		return json.RawMessage("{}")
	}
	return raw
}

func jsonResult(value any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil
}

func errorResult(err error) *mcp.CallToolResult {
	text := err.Error()
	if code, ok := domain.CodeFrom(err); ok {
		text = fmt.Sprintf("%s: %s", code, text)
	}
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}
