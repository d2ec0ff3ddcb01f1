package adminapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"mcpmarket/internal/domain"
	"mcpmarket/internal/infra/marketsync"
	"mcpmarket/internal/infra/promotion"
	"mcpmarket/internal/infra/telemetry"
)

type Markets interface {
	SaveMarket(ctx context.Context, market domain.Market) (domain.Market, error)
	GetMarket(ctx context.Context, id uint64) (domain.Market, error)
	ListMarkets(ctx context.Context, query domain.MarketQuery) ([]domain.Market, error)
	UpdateMarketStatus(ctx context.Context, id uint64, status domain.MarketStatus) (domain.Market, error)
	DeleteMarket(ctx context.Context, id uint64) (bool, error)
	ListMarketTools(ctx context.Context, marketID uint64, keyword string) ([]domain.CatalogEntry, error)
	RefreshMarket(ctx context.Context, marketID uint64) (marketsync.SyncReport, error)
}

type Tools interface {
	SaveTool(ctx context.Context, tool domain.LocalTool) (domain.LocalTool, error)
	GetTool(ctx context.Context, id uint64) (domain.LocalTool, error)
	ListTools(ctx context.Context, query domain.ToolQuery) ([]domain.LocalTool, error)
	UpdateToolStatus(ctx context.Context, id uint64, status domain.ToolStatus) (domain.LocalTool, error)
	DeleteTools(ctx context.Context, ids ...uint64) ([]uint64, error)
}

type Promoter interface {
	Promote(ctx context.Context, entryID uint64) error
	PromoteBatchDetailed(ctx context.Context, ids []uint64) []promotion.Result
}

type Chat interface {
	Generate(ctx context.Context, sessionID string, message string) (domain.ChatReply, error)
	History(ctx context.Context, sessionID string) ([]domain.ChatTurn, error)
	DeleteHistory(ctx context.Context, sessionID string) (bool, error)
}

// Options carries the services behind the routes. Chat, Health and MCP are
// optional; their routes are not mounted when nil.
type Options struct {
	Markets  Markets
	Tools    Tools
	Promoter Promoter
	Chat     Chat
	Health   *telemetry.HealthTracker
	MCP      http.Handler
	MCPPath  string
	Logger   *zap.Logger
}

type server struct {
	markets  Markets
	tools    Tools
	promoter Promoter
	chat     Chat
	logger   *zap.Logger
}

// NewRouter builds the admin HTTP handler.
func NewRouter(opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &server{
		markets:  opts.Markets,
		tools:    opts.Tools,
		promoter: opts.Promoter,
		chat:     opts.Chat,
		logger:   logger.Named("adminapi"),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(telemetry.RequestMiddleware)

	r.Route("/api", func(r chi.Router) {
		r.Route("/markets", s.mountMarketHandlers)
		r.Route("/catalog", s.mountCatalogHandlers)
		r.Route("/tools", s.mountToolHandlers)
		if s.chat != nil {
			r.Route("/chat", s.mountChatHandlers)
		}
	})
	if opts.Health != nil {
		r.Method(http.MethodGet, "/healthz", telemetry.HealthHandler(opts.Health))
	}
	if opts.MCP != nil {
		path := opts.MCPPath
		if path == "" {
			path = domain.DefaultHTTPMCPPath
		}
		r.Handle(path, opts.MCP)
		r.Handle(path+"/*", opts.MCP)
	}
	return r
}

func (s *server) mountMarketHandlers(r chi.Router) {
	r.Get("/", s.listMarkets)
	r.Post("/", s.createMarket)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", s.getMarket)
		r.Put("/", s.updateMarket)
		r.Delete("/", s.deleteMarket)
		r.Post("/status", s.updateMarketStatus)
		r.Post("/refresh", s.refreshMarket)
		r.Get("/tools", s.listMarketTools)
	})
}

func (s *server) mountCatalogHandlers(r chi.Router) {
	r.Post("/promote", s.promoteBatch)
	r.Post("/{id}/promote", s.promoteEntry)
}

func (s *server) mountToolHandlers(r chi.Router) {
	r.Get("/", s.listTools)
	r.Post("/", s.createTool)
	r.Delete("/", s.deleteTools)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", s.getTool)
		r.Put("/", s.updateTool)
		r.Delete("/", s.deleteTool)
		r.Post("/status", s.updateToolStatus)
	})
}

func (s *server) mountChatHandlers(r chi.Router) {
	r.Get("/generate", s.generateChat)
	r.Get("/history", s.chatHistory)
	r.Delete("/history", s.deleteChatHistory)
}
