package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"mcpmarket/internal/domain"
	"mcpmarket/internal/infra/adminapi"
	"mcpmarket/internal/infra/chat"
	"mcpmarket/internal/infra/config"
	"mcpmarket/internal/infra/marketsync"
	"mcpmarket/internal/infra/mcpserver"
	"mcpmarket/internal/infra/promotion"
	"mcpmarket/internal/infra/registry"
	"mcpmarket/internal/infra/store"
	"mcpmarket/internal/infra/telemetry"
	"mcpmarket/internal/infra/toolregistry"
)

const shutdownTimeout = 5 * time.Second

// Options configures New. Config takes precedence over ConfigPath; the
// remaining fields replace the defaults built from configuration.
type Options struct {
	ConfigPath string
	Config     *domain.AppConfig
	Logger     *zap.Logger
	ChatModel  model.ToolCallingChatModel
	HTTPClient *http.Client
	Pacer      marketsync.Pacer
}

// App owns the store and every service built on it.
type App struct {
	configPath string
	config     domain.AppConfig
	logger     *zap.Logger

	registry *prometheus.Registry
	metrics  *telemetry.PrometheusMetrics
	health   *telemetry.HealthTracker

	store    *store.Store
	tools    *toolregistry.Registry
	markets  *MarketService
	local    *ToolService
	promoter *promotion.Engine
	chat     *chat.Proxy
	mcp      *mcpserver.Server
	handler  http.Handler
}

// New loads configuration, opens the store and wires the services. Markets
// declared in configuration are applied before New returns.
func New(ctx context.Context, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("app")

	var cfg domain.AppConfig
	if opts.Config != nil {
		cfg = *opts.Config
	} else {
		loaded, err := config.NewLoader(logger).Load(ctx, opts.ConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	db, err := store.OpenStore(cfg.DataPath)
	if err != nil {
		return nil, err
	}

	a := &App{
		configPath: opts.ConfigPath,
		config:     cfg,
		logger:     logger,
		registry:   prometheus.NewRegistry(),
		health:     telemetry.NewHealthTracker(),
		store:      db,
	}
	a.metrics = telemetry.NewPrometheusMetrics(a.registry)
	a.health.Register("store", db.Ping)

	if err := a.wire(ctx, opts); err != nil {
		_ = db.Close()
		return nil, err
	}
	if len(cfg.Markets) > 0 {
		report, err := a.markets.ApplySeeds(ctx, cfg.Markets)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		logger.Info("configured markets applied", zap.Int("created", report.Created), zap.Int("updated", report.Updated))
	}
	return a, nil
}

func (a *App) wire(ctx context.Context, opts Options) error {
	cfg := a.config

	client := registry.NewClient(registry.Options{
		Timeout:          cfg.Registry.Timeout(),
		UserAgent:        cfg.Registry.UserAgent,
		MaxResponseBytes: cfg.Registry.MaxResponseBytes,
		HTTPClient:       opts.HTTPClient,
		Metrics:          a.metrics,
		Logger:           a.logger,
	})
	pacer := opts.Pacer
	if pacer == nil {
		pacer = marketsync.NewJitterPacer(cfg.Sync.MinDelay(), cfg.Sync.MaxDelay())
	}
	syncer := marketsync.NewEngine(a.store, a.store, client, marketsync.Options{
		PageSize: cfg.Sync.PageSize,
		Pacer:    pacer,
		Metrics:  a.metrics,
		Logger:   a.logger,
	})

	a.tools = toolregistry.New(a.metrics, a.logger)
	if _, err := a.tools.Load(ctx, a.store); err != nil {
		return err
	}
	a.local = NewToolService(a.store, a.tools, a.logger)
	a.promoter = promotion.NewEngine(a.store, promotion.Options{
		Metrics:    a.metrics,
		Logger:     a.logger,
		OnPromoted: a.local.OnPromoted,
	})
	a.markets = NewMarketService(a.store, syncer, a.logger)

	chatModel := opts.ChatModel
	if chatModel == nil && cfg.Chat.Enabled() {
		built, err := chat.NewModel(ctx, cfg.Chat)
		if err != nil {
			a.logger.Warn("chat model unavailable", zap.String("provider", cfg.Chat.Provider), zap.Error(err))
		} else {
			chatModel = built
		}
	}
	a.chat = chat.NewProxy(cfg.Chat, chatModel, a.store, chat.Options{Metrics: a.metrics, Logger: a.logger})

	mcp, err := mcpserver.New(mcpserver.Options{
		Markets:  a.markets,
		Promoter: a.promoter,
		Tools:    a.local,
		Version:  Version,
		Logger:   a.logger,
	})
	if err != nil {
		return err
	}
	a.mcp = mcp

	a.handler = adminapi.NewRouter(adminapi.Options{
		Markets:  a.markets,
		Tools:    a.local,
		Promoter: a.promoter,
		Chat:     a.chat,
		Health:   a.health,
		MCP:      mcp.Handler(),
		MCPPath:  cfg.HTTP.MCPPath,
		Logger:   a.logger,
	})
	return nil
}

func (a *App) Config() domain.AppConfig { return a.config }
func (a *App) Markets() *MarketService { return a.markets }
func (a *App) Tools() *ToolService { return a.local }
func (a *App) Promoter() *promotion.Engine { return a.promoter }
func (a *App) Chat() *chat.Proxy { return a.chat }
func (a *App) Registry() *toolregistry.Registry { return a.tools }
func (a *App) MCP() *mcpserver.Server { return a.mcp }
func (a *App) Health() *telemetry.HealthTracker { return a.health }
func (a *App) Gatherer() prometheus.Gatherer { return a.registry }
func (a *App) Handler() http.Handler { return a.handler }

// Close releases the store. It is safe to call more than once.
func (a *App) Close() error {
	return a.store.Close()
}

// Serve listens on the configured admin address until ctx ends.
func (a *App) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", a.config.HTTP.ListenAddress)
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.config.HTTP.ListenAddress, err)
	}
	return a.ServeListener(ctx, listener)
}

// ServeListener runs the admin server on listener, the observability server
// when an address is configured, and the config watcher when the app was
// loaded from a file. The first failure stops the others.
func (a *App) ServeListener(ctx context.Context, listener net.Listener) error {
	group, groupCtx := errgroup.WithContext(ctx)

	server := &http.Server{
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	group.Go(func() error {
		a.logger.Info("admin server listening", zap.String("addr", listener.Addr().String()))
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("admin server: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("admin server shutdown error", zap.Error(err))
		}
		a.logger.Info("admin server stopped")
		return nil
	})

	if addr := a.config.Observability.ListenAddress; addr != "" {
		group.Go(func() error {
			return telemetry.StartHTTPServer(groupCtx, telemetry.HTTPServerOptions{
				Addr:          addr,
				EnableMetrics: true,
				EnableHealthz: true,
				Health:        a.health,
				Registry:      a.registry,
			}, a.logger)
		})
	}

	if a.configPath != "" {
		watcher := config.NewWatcher(config.NewLoader(a.logger), a.configPath, a.onReload, a.logger)
		group.Go(func() error {
			return watcher.Run(groupCtx)
		})
	}

	return group.Wait()
}

// onReload applies the declared markets of a reloaded file. Other sections
// take effect on restart.
func (a *App) onReload(ctx context.Context, cfg domain.AppConfig) {
	report, err := a.markets.ApplySeeds(ctx, cfg.Markets)
	if err != nil {
		a.logger.Warn("apply reloaded markets failed", zap.Error(err))
		return
	}
	a.logger.Info("reloaded markets applied", zap.Int("created", report.Created), zap.Int("updated", report.Updated))
}
