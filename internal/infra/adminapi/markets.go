package adminapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"mcpmarket/internal/domain"
	"mcpmarket/internal/infra/marketsync"
)

type marketRequest struct {
	Name       string          `json:"name"`
	URL        string          `json:"url"`
	AuthConfig json.RawMessage `json:"authConfig,omitempty"`
	Status     string          `json:"status,omitempty"`
}

func (m marketRequest) market(id uint64) domain.Market {
	return domain.Market{
		ID:         id,
		Name:       m.Name,
		URL:        m.URL,
		AuthConfig: m.AuthConfig,
		Status:     domain.MarketStatus(strings.ToUpper(strings.TrimSpace(m.Status))),
	}
}

type refreshResponse struct {
	Success bool                  `json:"success"`
	Report  marketsync.SyncReport `json:"report"`
}

func (s *server) listMarkets(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	markets, err := s.markets.ListMarkets(r.Context(), domain.MarketQuery{
		Name:   query.Get("name"),
		Status: domain.MarketStatus(strings.ToUpper(query.Get("status"))),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, markets)
}

func (s *server) createMarket(w http.ResponseWriter, r *http.Request) {
	var req marketRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	market, err := s.markets.SaveMarket(r.Context(), req.market(0))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, market)
}

func (s *server) getMarket(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	market, err := s.markets.GetMarket(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, market)
}

func (s *server) updateMarket(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req marketRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	market, err := s.markets.SaveMarket(r.Context(), req.market(id))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, market)
}

func (s *server) deleteMarket(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	deleted, err := s.markets.DeleteMarket(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deleteResponse{Deleted: deleted})
}

func (s *server) updateMarketStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req statusRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	market, err := s.markets.UpdateMarketStatus(r.Context(), id, domain.MarketStatus(strings.ToUpper(req.Status)))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, market)
}

func (s *server) refreshMarket(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	report, err := s.markets.RefreshMarket(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, refreshResponse{Success: true, Report: report})
}

func (s *server) listMarketTools(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	entries, err := s.markets.ListMarketTools(r.Context(), id, r.URL.Query().Get("keyword"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
