package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// ToolKind is the closed set of local tool variants.
type ToolKind string

const (
	ToolKindLocal  ToolKind = "LOCAL"
	ToolKindRemote ToolKind = "REMOTE"
)

func (k ToolKind) Valid() bool {
	return k == ToolKindLocal || k == ToolKindRemote
}

type ToolStatus string

const (
	ToolStatusEnabled  ToolStatus = "ENABLED"
	ToolStatusDisabled ToolStatus = "DISABLED"
)

func (s ToolStatus) Valid() bool {
	return s == ToolStatusEnabled || s == ToolStatusDisabled
}

// LocalTool is a first-class tool usable by the rest of the system.
type LocalTool struct {
	ID          uint64          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Kind        ToolKind        `json:"type"`
	Status      ToolStatus      `json:"status"`
	Config      json.RawMessage `json:"configJson,omitempty"`
	CreatedAt   time.Time       `json:"createTime"`
	UpdatedAt   time.Time       `json:"updateTime"`
}

// ConfigMap decodes Config as a JSON object. Empty config yields an empty map.
func (t LocalTool) ConfigMap() (map[string]any, error) {
	out := map[string]any{}
	if len(t.Config) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(t.Config, &out); err != nil {
		return nil, fmt.Errorf("decode tool config: %w", err)
	}
	return out, nil
}

// ToolFromCatalogEntry builds the local tool a promotion materializes.
func ToolFromCatalogEntry(entry CatalogEntry) (LocalTool, error) {
	config, err := entry.Metadata.JSON()
	if err != nil {
		return LocalTool{}, err
	}
	return LocalTool{
		Name:        entry.Name,
		Description: entry.Description,
		Kind:        ToolKindRemote,
		Status:      ToolStatusEnabled,
		Config:      config,
	}, nil
}
