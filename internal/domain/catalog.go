package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// LocaleZH is the locale whose name and description win over canonical fields.
const LocaleZH = "zh"

// RemoteTool is one entry of a registry page, as decoded from the wire.
type RemoteTool struct {
	ID          string                `json:"id"`
	Name        string                `json:"name"`
	ChineseName string                `json:"chinese_name"`
	Description string                `json:"description"`
	Publisher   string                `json:"publisher"`
	LogoURL     string                `json:"logo_url"`
	Categories  []string              `json:"categories"`
	Tags        []string              `json:"tags"`
	ViewCount   int64                 `json:"view_count"`
	Locales     map[string]LocaleInfo `json:"locales"`
}

// LocaleInfo carries a localized name and description.
type LocaleInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// DisplayName prefers the zh locale name, then the chinese_name field,
// then the canonical name.
func (t RemoteTool) DisplayName() string {
	if zh, ok := t.Locales[LocaleZH]; ok && zh.Name != "" {
		return zh.Name
	}
	if t.ChineseName != "" {
		return t.ChineseName
	}
	return t.Name
}

// DisplayDescription prefers a non-empty zh locale description.
func (t RemoteTool) DisplayDescription() string {
	if zh, ok := t.Locales[LocaleZH]; ok && zh.Description != "" {
		return zh.Description
	}
	return t.Description
}

// ToolMetadata is the complete snapshot of a remote record kept on a catalog
// entry. Every field is always present once normalized.
type ToolMetadata struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	ChineseName string   `json:"chinese_name"`
	Description string   `json:"description"`
	Publisher   string   `json:"publisher"`
	LogoURL     string   `json:"logo_url"`
	Categories  []string `json:"categories"`
	Tags        []string `json:"tags"`
	ViewCount   int64    `json:"view_count"`
}

// Metadata builds the normalized snapshot for t.
func (t RemoteTool) Metadata() ToolMetadata {
	return ToolMetadata{
		ID:          t.ID,
		Name:        t.Name,
		ChineseName: t.ChineseName,
		Description: t.DisplayDescription(),
		Publisher:   t.Publisher,
		LogoURL:     t.LogoURL,
		Categories:  normalizeSet(t.Categories),
		Tags:        normalizeSet(t.Tags),
		ViewCount:   t.ViewCount,
	}
}

// Normalize fills absent collections so the stored shape is complete.
func (m ToolMetadata) Normalize() ToolMetadata {
	m.Categories = normalizeSet(m.Categories)
	m.Tags = normalizeSet(m.Tags)
	return m
}

// JSON returns the stored text form of the snapshot.
func (m ToolMetadata) JSON() (json.RawMessage, error) {
	data, err := json.Marshal(m.Normalize())
	if err != nil {
		return nil, fmt.Errorf("encode tool metadata: %w", err)
	}
	return data, nil
}

// ParseToolMetadata decodes a stored snapshot.
func ParseToolMetadata(raw json.RawMessage) (ToolMetadata, error) {
	if len(raw) == 0 {
		return ToolMetadata{}.Normalize(), nil
	}
	var meta ToolMetadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return ToolMetadata{}, fmt.Errorf("decode tool metadata: %w", err)
	}
	return meta.Normalize(), nil
}

func normalizeSet(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// CatalogKey is the natural key of a catalog entry.
type CatalogKey struct {
	MarketID uint64
	RemoteID string
}

func (k CatalogKey) String() string {
	return fmt.Sprintf("%d/%s", k.MarketID, k.RemoteID)
}

// CatalogEntry mirrors one remote tool as last seen during a sync.
// LocalToolID is set iff IsPromoted.
type CatalogEntry struct {
	ID          uint64       `json:"id"`
	MarketID    uint64       `json:"marketId"`
	RemoteID    string       `json:"remoteId"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Metadata    ToolMetadata `json:"metadata"`
	IsPromoted  bool         `json:"isPromoted"`
	LocalToolID *uint64      `json:"localToolId,omitempty"`
	CreatedAt   time.Time    `json:"createTime"`
	UpdatedAt   time.Time    `json:"updateTime"`
}

// Key returns the natural key of the entry.
func (e CatalogEntry) Key() CatalogKey {
	return CatalogKey{MarketID: e.MarketID, RemoteID: e.RemoteID}
}

// NewCatalogEntry builds an unpromoted entry for a remote tool.
func NewCatalogEntry(marketID uint64, tool RemoteTool) CatalogEntry {
	return CatalogEntry{
		MarketID:    marketID,
		RemoteID:    tool.ID,
		Name:        tool.DisplayName(),
		Description: tool.DisplayDescription(),
		Metadata:    tool.Metadata(),
	}
}

// UpsertAction reports how an upsert-by-key resolved.
type UpsertAction string

const (
	UpsertInserted UpsertAction = "inserted"
	UpsertUpdated  UpsertAction = "updated"
)

// UpsertResult is returned by a catalog upsert.
type UpsertResult struct {
	Entry  CatalogEntry
	Action UpsertAction
}

// RegistryPage is one decoded page of a registry listing. IsLastPage is
// derived from the entry count, never from a server-provided flag.
type RegistryPage struct {
	Entries    []RemoteTool
	IsLastPage bool
	TotalCount int
}
