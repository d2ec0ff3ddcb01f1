package toolregistry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"mcpmarket/internal/domain"
	"mcpmarket/internal/infra/telemetry"
)

// Lister supplies the tools loaded at startup.
type Lister interface {
	ListLocalToolsByStatus(ctx context.Context, status domain.ToolStatus) ([]domain.LocalTool, error)
}

// Registry maps tool ids to handles. Only ENABLED tools are held.
type Registry struct {
	metrics domain.Metrics
	logger  *zap.Logger

	mu      sync.Mutex
	handles map[uint64]Handle
}

func New(metrics domain.Metrics, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = domain.NoopMetrics{}
	}
	return &Registry{
		metrics: metrics,
		logger:  logger.Named("tool_registry"),
		handles: make(map[uint64]Handle),
	}
}

// Load replaces the registry content with every enabled tool of lister.
// Tools whose config cannot be decoded are skipped and logged.
func (r *Registry) Load(ctx context.Context, lister Lister) (int, error) {
	tools, err := lister.ListLocalToolsByStatus(ctx, domain.ToolStatusEnabled)
	if err != nil {
		return 0, fmt.Errorf("list enabled tools: %w", err)
	}
	next := make(map[uint64]Handle, len(tools))
	for _, tool := range tools {
		handle, err := NewHandle(tool)
		if err != nil {
			r.logger.Warn("skip tool with unreadable config", telemetry.ToolIDField(tool.ID), zap.Error(err))
			continue
		}
		next[tool.ID] = handle
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.handles = next
	r.publishLocked()
	r.logger.Info("tool registry loaded", zap.Int("tools", len(next)))
	return len(next), nil
}

// Register adds or replaces the handle of an enabled tool.
func (r *Registry) Register(tool domain.LocalTool) (Handle, error) {
	if tool.ID == 0 {
		return nil, fmt.Errorf("register tool without id: %w", domain.ErrInvalidRequest)
	}
	handle, err := NewHandle(tool)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handles[tool.ID] = handle
	r.publishLocked()
	r.logger.Debug("tool registered", telemetry.ToolIDField(tool.ID), zap.String("kind", string(tool.Kind)))
	return handle, nil
}

// Apply registers the tool when it is enabled and drops it otherwise.
func (r *Registry) Apply(tool domain.LocalTool) error {
	if tool.Status != domain.ToolStatusEnabled {
		r.Unregister(tool.ID)
		return nil
	}
	_, err := r.Register(tool)
	return err
}

func (r *Registry) Unregister(ids ...uint64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for _, id := range ids {
		if _, ok := r.handles[id]; ok {
			delete(r.handles, id)
			removed++
		}
	}
	if removed > 0 {
		r.publishLocked()
	}
	return removed
}

func (r *Registry) Get(id uint64) (Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	handle, ok := r.handles[id]
	return handle, ok
}

// List returns every handle ordered by tool id.
func (r *Registry) List() []Handle {
	r.mu.Lock()
	out := make([]Handle, 0, len(r.handles))
	for _, handle := range r.handles {
		out = append(out, handle)
	}
	r.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ToolID() < out[j].ToolID() })
	return out
}

func (r *Registry) publishLocked() {
	counts := map[domain.ToolKind]int{domain.ToolKindLocal: 0, domain.ToolKindRemote: 0}
	for _, handle := range r.handles {
		counts[handle.Kind()]++
	}
	for kind, count := range counts {
		r.metrics.SetRegisteredTools(kind, count)
	}
}
