package promotion

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"mcpmarket/internal/domain"
	"mcpmarket/internal/infra/telemetry"
)

// Store is the persistence the engine needs. PromoteEntry must create the
// tool and mark the entry promoted atomically, failing with
// domain.ErrAlreadyPromoted when the entry is already linked.
type Store interface {
	GetCatalogEntry(ctx context.Context, id uint64) (domain.CatalogEntry, error)
	PromoteEntry(ctx context.Context, id uint64, tool domain.LocalTool) (domain.LocalTool, domain.CatalogEntry, error)
}

// PromotedFunc observes a successful promotion.
type PromotedFunc func(ctx context.Context, tool domain.LocalTool, entry domain.CatalogEntry)

type Options struct {
	Metrics    domain.Metrics
	Logger     *zap.Logger
	OnPromoted PromotedFunc
}

// Result is the outcome of one promotion within a batch.
type Result struct {
	ID     uint64           `json:"id"`
	ToolID uint64           `json:"toolId,omitempty"`
	Err    error            `json:"-"`
	Code   domain.ErrorCode `json:"code,omitempty"`
	Error  string           `json:"error,omitempty"`
}

// Engine materializes catalog entries as local tools, at most once each.
type Engine struct {
	store      Store
	metrics    domain.Metrics
	logger     *zap.Logger
	onPromoted PromotedFunc

	mu    sync.Mutex
	locks map[uint64]*entryLock
}

type entryLock struct {
	mu   sync.Mutex
	refs int
}

func NewEngine(store Store, opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = domain.NoopMetrics{}
	}
	return &Engine{
		store:      store,
		metrics:    metrics,
		logger:     logger.Named("promotion"),
		onPromoted: opts.OnPromoted,
		locks:      make(map[uint64]*entryLock),
	}
}

// Promote creates a REMOTE tool from the entry and links it back. It returns
// domain.ErrCatalogEntryNotFound or domain.ErrAlreadyPromoted for the
// corresponding cases.
func (e *Engine) Promote(ctx context.Context, entryID uint64) error {
	_, err := e.promote(ctx, entryID)
	return err
}

func (e *Engine) promote(ctx context.Context, entryID uint64) (domain.LocalTool, error) {
	if err := ctx.Err(); err != nil {
		return domain.LocalTool{}, err
	}
	unlock := e.lock(entryID)
	defer unlock()

	tool, entry, err := e.doPromote(ctx, entryID)
	e.metrics.ObservePromotion(outcomeOf(err))
	if err != nil {
		e.logger.Info("catalog entry not promoted",
			telemetry.EventField(telemetry.EventPromoteFailure),
			telemetry.EntryIDField(entryID),
			zap.Error(err),
		)
		return domain.LocalTool{}, err
	}

	e.logger.Info("catalog entry promoted",
		telemetry.EventField(telemetry.EventPromoteSuccess),
		telemetry.EntryIDField(entryID),
		telemetry.ToolIDField(tool.ID),
		telemetry.MarketIDField(entry.MarketID),
	)
	if e.onPromoted != nil {
		e.onPromoted(ctx, tool, entry)
	}
	return tool, nil
}

func (e *Engine) doPromote(ctx context.Context, entryID uint64) (domain.LocalTool, domain.CatalogEntry, error) {
	entry, err := e.store.GetCatalogEntry(ctx, entryID)
	if err != nil {
		return domain.LocalTool{}, domain.CatalogEntry{}, err
	}
	if entry.IsPromoted {
		return domain.LocalTool{}, domain.CatalogEntry{}, fmt.Errorf("catalog entry %d: %w", entryID, domain.ErrAlreadyPromoted)
	}
	draft, err := domain.ToolFromCatalogEntry(entry)
	if err != nil {
		return domain.LocalTool{}, domain.CatalogEntry{}, err
	}
	return e.store.PromoteEntry(ctx, entryID, draft)
}

// PromoteBatch promotes ids one after another and returns how many succeeded.
// A failing id never stops the remaining ones.
func (e *Engine) PromoteBatch(ctx context.Context, ids []uint64) int {
	succeeded := 0
	for _, result := range e.PromoteBatchDetailed(ctx, ids) {
		if result.Err == nil {
			succeeded++
		}
	}
	return succeeded
}

// PromoteBatchDetailed is PromoteBatch with a result per id, in input order.
func (e *Engine) PromoteBatchDetailed(ctx context.Context, ids []uint64) []Result {
	results := make([]Result, 0, len(ids))
	for _, id := range ids {
		tool, err := e.promote(ctx, id)
		result := Result{ID: id, ToolID: tool.ID, Err: err}
		if err != nil {
			result.Code, _ = domain.CodeFrom(err)
			result.Error = err.Error()
		}
		results = append(results, result)
	}
	return results
}

func (e *Engine) lock(id uint64) func() {
	e.mu.Lock()
	l, ok := e.locks[id]
	if !ok {
		l = &entryLock{}
		e.locks[id] = l
	}
	l.refs++
	e.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		e.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(e.locks, id)
		}
		e.mu.Unlock()
	}
}

func outcomeOf(err error) domain.PromoteOutcome {
	switch {
	case err == nil:
		return domain.PromoteOutcomeSuccess
	case errors.Is(err, domain.ErrCatalogEntryNotFound):
		return domain.PromoteOutcomeNotFound
	case errors.Is(err, domain.ErrAlreadyPromoted):
		return domain.PromoteOutcomeAlreadyPromoted
	default:
		return domain.PromoteOutcomeError
	}
}
