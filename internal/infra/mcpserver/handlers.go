package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"mcpmarket/internal/domain"
	"mcpmarket/internal/infra/promotion"
)

type marketListArgs struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

type marketArgs struct {
	MarketID uint64 `json:"marketId"`
	Keyword  string `json:"keyword"`
}

type promoteArgs struct {
	IDs []uint64 `json:"ids"`
}

type toolListArgs struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Status string `json:"status"`
}

type promoteSummary struct {
	Success int                `json:"success"`
	Failed  int                `json:"failed"`
	Results []promotion.Result `json:"results"`
}

func decodeArgs(raw json.RawMessage, out any) error {
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: arguments: %v", domain.ErrInvalidRequest, err)
	}
	return nil
}

func (s *Server) marketList(ctx context.Context, raw json.RawMessage) (any, error) {
	var args marketListArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	markets, err := s.markets.ListMarkets(ctx, domain.MarketQuery{
		Name:   args.Name,
		Status: domain.MarketStatus(strings.ToUpper(args.Status)),
	})
	if err != nil {
		return nil, err
	}
	if markets == nil {
		markets = []domain.Market{}
	}
	return markets, nil
}

func (s *Server) marketSync(ctx context.Context, raw json.RawMessage) (any, error) {
	var args marketArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	report, err := s.markets.RefreshMarket(ctx, args.MarketID)
	if err != nil {
		return nil, fmt.Errorf("sync market %d after %d page(s): %w", args.MarketID, report.Pages, err)
	}
	return report, nil
}

func (s *Server) catalogSearch(ctx context.Context, raw json.RawMessage) (any, error) {
	var args marketArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	entries, err := s.markets.ListMarketTools(ctx, args.MarketID, args.Keyword)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []domain.CatalogEntry{}
	}
	return entries, nil
}

func (s *Server) catalogPromote(ctx context.Context, raw json.RawMessage) (any, error) {
	var args promoteArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	summary := promoteSummary{Results: s.promoter.PromoteBatchDetailed(ctx, args.IDs)}
	for _, result := range summary.Results {
		if result.Err == nil {
			summary.Success++
		} else {
			summary.Failed++
		}
	}
	return summary, nil
}

func (s *Server) toolList(ctx context.Context, raw json.RawMessage) (any, error) {
	var args toolListArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	tools, err := s.tools.ListTools(ctx, domain.ToolQuery{
		Name:   args.Name,
		Kind:   domain.ToolKind(strings.ToUpper(args.Type)),
		Status: domain.ToolStatus(strings.ToUpper(args.Status)),
	})
	if err != nil {
		return nil, err
	}
	if tools == nil {
		tools = []domain.LocalTool{}
	}
	return tools, nil
}
