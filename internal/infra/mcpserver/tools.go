package mcpserver

import (
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	ToolMarketList     = "market_list"
	ToolMarketSync     = "market_sync"
	ToolCatalogSearch  = "catalog_search"
	ToolCatalogPromote = "catalog_promote"
	ToolToolList       = "tool_list"
)

func ptr[T any](v T) *T { return &v }

func idSchema(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "integer", Minimum: ptr(1.0), Description: description}
}

func statusSchema() *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Enum: []any{"ENABLED", "DISABLED"}}
}

func objectSchema(properties map[string]*jsonschema.Schema, required ...string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "object", Properties: properties, Required: required}
}

func marketListTool() mcp.Tool {
	return mcp.Tool{
		Name:        ToolMarketList,
		Description: "List configured tool markets, optionally filtered by name substring or status.",
		InputSchema: objectSchema(map[string]*jsonschema.Schema{
			"name":   {Type: "string", Description: "Case-insensitive name substring."},
			"status": statusSchema(),
		}),
	}
}

func marketSyncTool() mcp.Tool {
	return mcp.Tool{
		Name:        ToolMarketSync,
		Description: "Pull every page of a market's remote catalog into the local mirror. Slow: pages are paced several seconds apart.",
		InputSchema: objectSchema(map[string]*jsonschema.Schema{
			"marketId": idSchema("Market to sync."),
		}, "marketId"),
	}
}

func catalogSearchTool() mcp.Tool {
	return mcp.Tool{
		Name:        ToolCatalogSearch,
		Description: "List mirrored catalog entries of a market, optionally filtered by keyword on name and description.",
		InputSchema: objectSchema(map[string]*jsonschema.Schema{
			"marketId": idSchema("Market whose catalog is searched."),
			"keyword":  {Type: "string"},
		}, "marketId"),
	}
}

func catalogPromoteTool() mcp.Tool {
	return mcp.Tool{
		Name:        ToolCatalogPromote,
		Description: "Promote catalog entries to local tools. Each entry is promoted at most once; results are reported per id.",
		InputSchema: objectSchema(map[string]*jsonschema.Schema{
			"ids": {
				Type:     "array",
				MinItems: ptr(1),
				Items:    idSchema("Catalog entry id."),
			},
		}, "ids"),
	}
}

func toolListTool() mcp.Tool {
	return mcp.Tool{
		Name:        ToolToolList,
		Description: "List local tools, optionally filtered by name substring, type or status.",
		InputSchema: objectSchema(map[string]*jsonschema.Schema{
			"name":   {Type: "string"},
			"type":   {Type: "string", Enum: []any{"LOCAL", "REMOTE"}},
			"status": statusSchema(),
		}),
	}
}
