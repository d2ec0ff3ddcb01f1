package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// MarketStatus toggles whether a market is offered for syncing.
type MarketStatus string

const (
	MarketStatusEnabled  MarketStatus = "ENABLED"
	MarketStatusDisabled MarketStatus = "DISABLED"
)

// Valid reports whether the status is one of the known values.
func (s MarketStatus) Valid() bool {
	return s == MarketStatusEnabled || s == MarketStatusDisabled
}

// Market is an external registry of tools reachable through URL.
type Market struct {
	ID         uint64          `json:"id"`
	Name       string          `json:"name"`
	URL        string          `json:"url"`
	AuthConfig json.RawMessage `json:"authConfig,omitempty"`
	Status     MarketStatus    `json:"status"`
	CreatedAt  time.Time       `json:"createTime"`
	UpdatedAt  time.Time       `json:"updateTime"`
}

// MarketAuth is the structured view of Market.AuthConfig.
type MarketAuth struct {
	APIKey string `json:"apiKey,omitempty"`
}

// ParseAuth decodes AuthConfig. An empty blob yields a zero MarketAuth.
func (m Market) ParseAuth() (MarketAuth, error) {
	raw := strings.TrimSpace(string(m.AuthConfig))
	if raw == "" || raw == "null" {
		return MarketAuth{}, nil
	}
	var auth MarketAuth
	if err := json.Unmarshal([]byte(raw), &auth); err != nil {
		return MarketAuth{}, fmt.Errorf("parse auth config: %w", err)
	}
	return auth, nil
}

// AuthToken returns the bearer token carried in AuthConfig, if any.
func (m Market) AuthToken() (string, error) {
	auth, err := m.ParseAuth()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(auth.APIKey), nil
}

// CloneMarket returns a deep copy of market.
func CloneMarket(market Market) Market {
	out := market
	if market.AuthConfig != nil {
		out.AuthConfig = append(json.RawMessage(nil), market.AuthConfig...)
	}
	return out
}
