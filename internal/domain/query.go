package domain

// MarketQuery filters market listings. Zero values match everything.
type MarketQuery struct {
	Name   string
	Status MarketStatus
}

// ToolQuery filters local tool listings. Zero values match everything.
type ToolQuery struct {
	Name   string
	Kind   ToolKind
	Status ToolStatus
}

// Matches reports whether tool satisfies the kind and status filters.
// Name matching is left to the store search.
func (q ToolQuery) Matches(tool LocalTool) bool {
	if q.Kind != "" && tool.Kind != q.Kind {
		return false
	}
	if q.Status != "" && tool.Status != q.Status {
		return false
	}
	return true
}
