package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"mcpmarket/internal/app"
	"mcpmarket/internal/domain"
	"mcpmarket/internal/infra/marketsync"
	"mcpmarket/internal/infra/promotion"
	"mcpmarket/internal/infra/transfer"
)

func writeJSON(value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func parseIDs(args []string) ([]uint64, error) {
	ids := make([]uint64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseUint(arg, 10, 64)
		if err != nil || id == 0 {
			return nil, exitError{code: 2, message: fmt.Sprintf("invalid id %q", arg)}
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func printMarkets(markets []domain.Market, jsonOutput bool) error {
	if jsonOutput {
		if markets == nil {
			markets = []domain.Market{}
		}
		return writeJSON(markets)
	}
	fmt.Printf("markets=%d\n", len(markets))
	for _, m := range markets {
		fmt.Printf("%d\t%s\t%s\t%s\n", m.ID, m.Status, m.Name, m.URL)
	}
	return nil
}

func printMarket(market domain.Market, jsonOutput bool) error {
	if jsonOutput {
		return writeJSON(market)
	}
	fmt.Printf("market=%d name=%s status=%s url=%s\n", market.ID, market.Name, market.Status, market.URL)
	return nil
}

func printEntries(entries []domain.CatalogEntry, jsonOutput bool) error {
	if jsonOutput {
		if entries == nil {
			entries = []domain.CatalogEntry{}
		}
		return writeJSON(entries)
	}
	fmt.Printf("entries=%d\n", len(entries))
	for _, e := range entries {
		promoted := "-"
		if e.LocalToolID != nil {
			promoted = strconv.FormatUint(*e.LocalToolID, 10)
		}
		fmt.Printf("%d\t%s\t%s\tpromoted=%s\n", e.ID, e.RemoteID, e.Name, promoted)
	}
	return nil
}

func printTools(tools []domain.LocalTool, jsonOutput bool) error {
	if jsonOutput {
		if tools == nil {
			tools = []domain.LocalTool{}
		}
		return writeJSON(tools)
	}
	fmt.Printf("tools=%d\n", len(tools))
	for _, tool := range tools {
		fmt.Printf("%d\t%s\t%s\t%s\n", tool.ID, tool.Kind, tool.Status, tool.Name)
	}
	return nil
}

func printTool(tool domain.LocalTool, jsonOutput bool) error {
	if jsonOutput {
		return writeJSON(tool)
	}
	fmt.Printf("tool=%d name=%s type=%s status=%s\n", tool.ID, tool.Name, tool.Kind, tool.Status)
	return nil
}

func printSyncReport(report marketsync.SyncReport, jsonOutput bool) error {
	if jsonOutput {
		return writeJSON(report)
	}
	fmt.Printf("market=%d pages=%d inserted=%d updated=%d skipped=%d duration=%s\n",
		report.MarketID, report.Pages, report.Inserted, report.Updated, report.Skipped, report.Duration)
	return nil
}

// printPromoteResults reports every id and returns how many failed.
func printPromoteResults(results []promotion.Result, jsonOutput bool) (int, error) {
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	if jsonOutput {
		return failed, writeJSON(map[string]any{
			"success": len(results) - failed,
			"failed":  failed,
			"results": results,
		})
	}
	for _, r := range results {
		if r.Err != nil {
			fmt.Printf("%d\tfailed\t%s\n", r.ID, r.Error)
			continue
		}
		fmt.Printf("%d\tpromoted\ttool=%d\n", r.ID, r.ToolID)
	}
	fmt.Printf("success=%d failed=%d\n", len(results)-failed, failed)
	return failed, nil
}

func printImport(result transfer.Result, report *app.SeedReport, jsonOutput bool) error {
	if jsonOutput {
		payload := map[string]any{
			"path":    result.Path,
			"format":  result.Format,
			"markets": len(result.Markets),
			"issues":  result.Issues,
		}
		if report != nil {
			payload["created"] = report.Created
			payload["updated"] = report.Updated
		}
		return writeJSON(payload)
	}
	fmt.Printf("path=%s format=%s markets=%d issues=%d\n", result.Path, result.Format, len(result.Markets), len(result.Issues))
	for _, issue := range result.Issues {
		fmt.Printf("#%d\t%s\t%s\t%s\n", issue.Index, issue.Kind, issue.Name, issue.Message)
	}
	if report != nil {
		fmt.Printf("created=%d updated=%d\n", report.Created, report.Updated)
	}
	return nil
}
