package transfer

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"mcpmarket/internal/infra/config"
)

type payload struct {
	Markets []config.RawMarket `json:"markets" yaml:"markets" toml:"markets"`
}

// FormatForPath infers the import format from the file extension.
func FormatForPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, filepath.Ext(path))
	}
}

// ReadMarkets parses the `markets` array of a TOML, YAML or JSON file.
// Invalid and duplicate entries are reported as issues, not errors.
func ReadMarkets(path string) (Result, error) {
	format, err := FormatForPath(path)
	if err != nil {
		return Result{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Result{Path: path, Format: format}, ErrNotFound
		}
		return Result{}, fmt.Errorf("read market file: %w", err)
	}
	return ParseMarkets(format, path, data)
}

// ParseMarkets is ReadMarkets for data already in memory.
func ParseMarkets(format Format, path string, data []byte) (Result, error) {
	var decoded payload
	var err error
	switch format {
	case FormatTOML:
		err = toml.Unmarshal(data, &decoded)
	case FormatYAML:
		err = yaml.Unmarshal(data, &decoded)
	case FormatJSON:
		err = json.Unmarshal(data, &decoded)
	default:
		return Result{}, ErrUnknownFormat
	}
	if err != nil {
		return Result{}, fmt.Errorf("parse %s: %w", format, err)
	}

	result := Result{Path: path, Format: format}
	seen := make(map[string]struct{}, len(decoded.Markets))
	for i, raw := range decoded.Markets {
		name := strings.TrimSpace(raw.Name)
		if _, dup := seen[name]; dup && name != "" {
			result.Issues = append(result.Issues, Issue{
				Index:   i,
				Name:    name,
				Kind:    IssueDuplicate,
				Message: "market name already defined earlier in the file",
			})
			continue
		}
		seeds, errs := config.NormalizeMarkets([]config.RawMarket{raw}, fmt.Sprintf("markets[%d]", i))
		if len(errs) > 0 {
			result.Issues = append(result.Issues, Issue{
				Index:   i,
				Name:    name,
				Kind:    IssueInvalid,
				Message: strings.Join(errs, "; "),
			})
			continue
		}
		seen[name] = struct{}{}
		result.Markets = append(result.Markets, seeds[0])
	}
	return result, nil
}
