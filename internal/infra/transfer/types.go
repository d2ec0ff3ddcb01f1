package transfer

import (
	"errors"

	"mcpmarket/internal/domain"
)

// Format identifies the encoding of an import file.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

const (
	// IssueInvalid marks an entry that failed validation.
	IssueInvalid = "invalid"
	// IssueDuplicate marks a repeated market name; the first one wins.
	IssueDuplicate = "duplicate"
)

var (
	// ErrNotFound indicates the import file is missing.
	ErrNotFound = errors.New("market import file not found")
	// ErrUnknownFormat indicates the file extension is not supported.
	ErrUnknownFormat = errors.New("unknown market import format")
)

// Issue describes an entry that was not imported.
type Issue struct {
	Index   int    `json:"index"`
	Name    string `json:"name,omitempty"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Result holds the markets parsed from one file.
type Result struct {
	Path    string              `json:"path"`
	Format  Format              `json:"format"`
	Markets []domain.MarketSeed `json:"markets"`
	Issues  []Issue             `json:"issues,omitempty"`
}
