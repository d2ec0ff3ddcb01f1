package adminapi

import (
	"net/http"
)

type chatQuery struct {
	SessionID string `validate:"omitempty,max=64"`
	Message   string `validate:"required"`
}

type sessionQuery struct {
	SessionID string `validate:"required,max=64"`
}

func (s *server) generateChat(w http.ResponseWriter, r *http.Request) {
	query := chatQuery{
		SessionID: r.URL.Query().Get("sessionId"),
		Message:   r.URL.Query().Get("message"),
	}
	if err := checkStruct(query); err != nil {
		s.writeError(w, r, err)
		return
	}
	reply, err := s.chat.Generate(r.Context(), query.SessionID, query.Message)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (s *server) chatHistory(w http.ResponseWriter, r *http.Request) {
	query := sessionQuery{SessionID: r.URL.Query().Get("sessionId")}
	if err := checkStruct(query); err != nil {
		s.writeError(w, r, err)
		return
	}
	turns, err := s.chat.History(r.Context(), query.SessionID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, turns)
}

func (s *server) deleteChatHistory(w http.ResponseWriter, r *http.Request) {
	query := sessionQuery{SessionID: r.URL.Query().Get("sessionId")}
	if err := checkStruct(query); err != nil {
		s.writeError(w, r, err)
		return
	}
	deleted, err := s.chat.DeleteHistory(r.Context(), query.SessionID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deleteResponse{Deleted: deleted})
}
