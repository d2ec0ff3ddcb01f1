package app

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"mcpmarket/internal/domain"
	"mcpmarket/internal/infra/telemetry"
)

type ToolStore interface {
	SaveLocalTool(ctx context.Context, tool domain.LocalTool) (domain.LocalTool, error)
	GetLocalTool(ctx context.Context, id uint64) (domain.LocalTool, error)
	ListLocalTools(ctx context.Context) ([]domain.LocalTool, error)
	ListLocalToolsByKind(ctx context.Context, kind domain.ToolKind) ([]domain.LocalTool, error)
	ListLocalToolsByStatus(ctx context.Context, status domain.ToolStatus) ([]domain.LocalTool, error)
	SearchLocalToolsByName(ctx context.Context, name string) ([]domain.LocalTool, error)
	UpdateLocalToolStatus(ctx context.Context, id uint64, status domain.ToolStatus) (domain.LocalTool, error)
	DeleteLocalTools(ctx context.Context, ids ...uint64) ([]uint64, error)
}

// ToolRegistry mirrors enabled tools in memory.
type ToolRegistry interface {
	Apply(tool domain.LocalTool) error
	Unregister(ids ...uint64) int
}

// ToolService administers local tools and keeps the registry in step.
type ToolService struct {
	store    ToolStore
	registry ToolRegistry
	logger   *zap.Logger
}

func NewToolService(store ToolStore, registry ToolRegistry, logger *zap.Logger) *ToolService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ToolService{store: store, registry: registry, logger: logger.Named("tools")}
}

func (s *ToolService) SaveTool(ctx context.Context, tool domain.LocalTool) (domain.LocalTool, error) {
	tool.Name = strings.TrimSpace(tool.Name)
	tool.Kind = domain.ToolKind(strings.ToUpper(string(tool.Kind)))
	tool.Status = domain.ToolStatus(strings.ToUpper(string(tool.Status)))
	if err := checkStruct(toolInput{
		Name:   tool.Name,
		Kind:   string(tool.Kind),
		Status: string(tool.Status),
		Config: tool.Config,
	}); err != nil {
		return domain.LocalTool{}, err
	}
	saved, err := s.store.SaveLocalTool(ctx, tool)
	if err != nil {
		return domain.LocalTool{}, err
	}
	s.sync(saved)
	return saved, nil
}

func (s *ToolService) GetTool(ctx context.Context, id uint64) (domain.LocalTool, error) {
	return s.store.GetLocalTool(ctx, id)
}

// ListTools returns tools newest first, narrowed by query.
func (s *ToolService) ListTools(ctx context.Context, query domain.ToolQuery) ([]domain.LocalTool, error) {
	if query.Kind != "" && !query.Kind.Valid() {
		return nil, fmt.Errorf("%w: unknown tool type %q", domain.ErrInvalidRequest, query.Kind)
	}
	if query.Status != "" && !query.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown tool status %q", domain.ErrInvalidRequest, query.Status)
	}

	var (
		tools []domain.LocalTool
		err   error
	)
	switch {
	case strings.TrimSpace(query.Name) != "":
		tools, err = s.store.SearchLocalToolsByName(ctx, query.Name)
	case query.Kind != "":
		tools, err = s.store.ListLocalToolsByKind(ctx, query.Kind)
	case query.Status != "":
		tools, err = s.store.ListLocalToolsByStatus(ctx, query.Status)
	default:
		return s.store.ListLocalTools(ctx)
	}
	if err != nil {
		return nil, err
	}
	out := tools[:0]
	for _, tool := range tools {
		if query.Matches(tool) {
			out = append(out, tool)
		}
	}
	return out, nil
}

func (s *ToolService) UpdateToolStatus(ctx context.Context, id uint64, status domain.ToolStatus) (domain.LocalTool, error) {
	tool, err := s.store.UpdateLocalToolStatus(ctx, id, domain.ToolStatus(strings.ToUpper(string(status))))
	if err != nil {
		return domain.LocalTool{}, err
	}
	s.sync(tool)
	return tool, nil
}

// DeleteTools removes the tools and returns the ids that existed.
func (s *ToolService) DeleteTools(ctx context.Context, ids ...uint64) ([]uint64, error) {
	deleted, err := s.store.DeleteLocalTools(ctx, ids...)
	if err != nil {
		return nil, err
	}
	s.registry.Unregister(deleted...)
	return deleted, nil
}

// OnPromoted registers a freshly promoted tool.
func (s *ToolService) OnPromoted(_ context.Context, tool domain.LocalTool, _ domain.CatalogEntry) {
	s.sync(tool)
}

func (s *ToolService) sync(tool domain.LocalTool) {
	if err := s.registry.Apply(tool); err != nil {
		s.logger.Warn("tool not registered",
			telemetry.ToolIDField(tool.ID),
			zap.String("type", string(tool.Kind)),
			zap.Error(err),
		)
	}
}
