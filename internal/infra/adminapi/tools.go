package adminapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"mcpmarket/internal/domain"
)

type toolRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Kind        string          `json:"type"`
	Status      string          `json:"status,omitempty"`
	Config      json.RawMessage `json:"configJson,omitempty"`
}

func (t toolRequest) tool(id uint64) domain.LocalTool {
	return domain.LocalTool{
		ID:          id,
		Name:        t.Name,
		Description: t.Description,
		Kind:        domain.ToolKind(strings.ToUpper(strings.TrimSpace(t.Kind))),
		Status:      domain.ToolStatus(strings.ToUpper(strings.TrimSpace(t.Status))),
		Config:      t.Config,
	}
}

type deleteToolsResponse struct {
	Deleted []uint64 `json:"deleted"`
}

func (s *server) listTools(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	tools, err := s.tools.ListTools(r.Context(), domain.ToolQuery{
		Name:   query.Get("name"),
		Kind:   domain.ToolKind(strings.ToUpper(query.Get("type"))),
		Status: domain.ToolStatus(strings.ToUpper(query.Get("status"))),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tools)
}

func (s *server) createTool(w http.ResponseWriter, r *http.Request) {
	var req toolRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	tool, err := s.tools.SaveTool(r.Context(), req.tool(0))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tool)
}

func (s *server) getTool(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	tool, err := s.tools.GetTool(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tool)
}

func (s *server) updateTool(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req toolRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	tool, err := s.tools.SaveTool(r.Context(), req.tool(id))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tool)
}

func (s *server) deleteTool(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	deleted, err := s.tools.DeleteTools(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deleteResponse{Deleted: len(deleted) > 0})
}

func (s *server) deleteTools(w http.ResponseWriter, r *http.Request) {
	var req idsRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	deleted, err := s.tools.DeleteTools(r.Context(), req.IDs...)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if deleted == nil {
		deleted = []uint64{}
	}
	writeJSON(w, http.StatusOK, deleteToolsResponse{Deleted: deleted})
}

func (s *server) updateToolStatus(w http.ResponseWriter, r *http.Request) {
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
	tool, err := s.tools.UpdateToolStatus(r.Context(), id, domain.ToolStatus(strings.ToUpper(req.Status)))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tool)
}
