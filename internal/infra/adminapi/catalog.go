package adminapi

import (
	"net/http"

	"mcpmarket/internal/infra/promotion"
)

type promoteResponse struct {
	Success bool `json:"success"`
}

type batchPromoteResponse struct {
	Success int                `json:"success"`
	Failed  int                `json:"failed"`
	Results []promotion.Result `json:"results"`
}

func (s *server) promoteEntry(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.promoter.Promote(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, promoteResponse{Success: true})
}

func (s *server) promoteBatch(w http.ResponseWriter, r *http.Request) {
	var req idsRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	results := s.promoter.PromoteBatchDetailed(r.Context(), req.IDs)
	resp := batchPromoteResponse{Results: results}
	for _, result := range results {
		if result.Err == nil {
			resp.Success++
		} else {
			resp.Failed++
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
