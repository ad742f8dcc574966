package daemon

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/felixgeelhaar/concierge/internal/domain"
)

// assistantView is an assistant as returned by the API, API key masked
type assistantView struct {
	domain.Assistant
	Protected bool `json:"protected"`
	Current   bool `json:"current"`
}

func (s *Server) viewOf(a domain.Assistant, currentID string) assistantView {
	a = a.Clone()
	if a.LLMConfig != nil {
		masked := a.LLMConfig.Masked()
		a.LLMConfig = &masked
	}
	return assistantView{
		Assistant: a,
		Protected: a.IsProtected(),
		Current:   a.ID == currentID,
	}
}

// Health & status

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"status":     "running",
		"version":    s.version,
		"uptime_s":   int64(time.Since(s.started).Seconds()),
		"storage":    s.cfg.Storage.Backend,
		"assistants": len(s.session.Assistants()),
		"current":    s.session.Current().ID,
		"providers":  len(s.session.Providers()),
		"events":     s.cfg.Events.Enabled(),
	})
}

// Provider catalog

func (s *Server) handleListProviders(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"providers": s.session.Providers(),
	})
}

func (s *Server) handleGetProvider(w http.ResponseWriter, r *http.Request) {
	p, err := s.session.Provider(r.PathValue("id"))
	if err != nil {
		s.jsonError(w, http.StatusNotFound, "provider not found", err)
		return
	}
	s.jsonResponse(w, http.StatusOK, p)
}

// Assistants

type createAssistantRequest struct {
	Name        string            `json:"name"`
	Avatar      string            `json:"avatar"`
	Description string            `json:"description"`
	Pinned      bool              `json:"pinned"`
	LLMConfig   *domain.LLMConfig `json:"llmConfig"`
}

type updateAssistantRequest struct {
	Name   *string `json:"name"`
	Pinned *bool   `json:"pinned"`
}

func (s *Server) handleListAssistants(w http.ResponseWriter, r *http.Request) {
	current := s.session.Current().ID
	assistants := s.session.Assistants()

	result := make([]assistantView, 0, len(assistants))
	for _, a := range assistants {
		result = append(result, s.viewOf(a, current))
	}

	s.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"assistants": result,
		"current":    current,
	})
}

func (s *Server) handleCreateAssistant(w http.ResponseWriter, r *http.Request) {
	var req createAssistantRequest
	if err := decodeJSON(r, &req); err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	created, err := s.session.AddAssistant(r.Context(), domain.Assistant{
		Name:        req.Name,
		Avatar:      req.Avatar,
		Description: req.Description,
		Pinned:      req.Pinned,
		LLMConfig:   req.LLMConfig,
	})
	if err != nil && !errors.Is(err, domain.ErrPersistence) {
		s.domainError(w, "failed to create assistant", err)
		return
	}
	if err != nil {
		s.logger.Warn("assistant created but not persisted", "assistant_id", created.ID, "error", err)
	}

	w.Header().Set("Location", "/v1/assistants/"+created.ID)
	s.jsonResponse(w, http.StatusCreated, s.viewOf(created, s.session.Current().ID))
}

func (s *Server) handleGetAssistant(w http.ResponseWriter, r *http.Request) {
	a, err := s.session.Assistant(r.PathValue("id"))
	if err != nil {
		s.domainError(w, "assistant not found", err)
		return
	}
	s.jsonResponse(w, http.StatusOK, s.viewOf(a, s.session.Current().ID))
}

func (s *Server) handleUpdateAssistant(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req updateAssistantRequest
	if err := decodeJSON(r, &req); err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.Name == nil && req.Pinned == nil {
		s.jsonError(w, http.StatusBadRequest, "name or pinned is required", nil)
		return
	}

	current, err := s.session.Assistant(id)
	if err != nil {
		s.domainError(w, "assistant not found", err)
		return
	}
	// Reject the whole patch before renaming anything
	if req.Pinned != nil && current.IsProtected() {
		s.domainError(w, "failed to pin assistant", fmt.Errorf("pin %s: %w", id, domain.ErrRemoveProtectedEntity))
		return
	}

	if req.Name != nil {
		if err := s.session.RenameAssistant(r.Context(), id, *req.Name); err != nil {
			s.domainError(w, "failed to rename assistant", err)
			return
		}
	}
	if req.Pinned != nil {
		if err := s.session.SetPinned(r.Context(), id, *req.Pinned); err != nil {
			s.domainError(w, "failed to pin assistant", err)
			return
		}
	}

	a, err := s.session.Assistant(id)
	if err != nil {
		s.domainError(w, "assistant not found", err)
		return
	}
	s.jsonResponse(w, http.StatusOK, s.viewOf(a, s.session.Current().ID))
}

func (s *Server) handleDeleteAssistant(w http.ResponseWriter, r *http.Request) {
	if err := s.session.RemoveAssistant(r.Context(), r.PathValue("id")); err != nil {
		s.domainError(w, "failed to delete assistant", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSelectAssistant(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.session.Select(r.Context(), id); err != nil {
		s.domainError(w, "failed to select assistant", err)
		return
	}
	s.jsonResponse(w, http.StatusOK, s.viewOf(s.session.Current(), id))
}

func (s *Server) handleCurrent(w http.ResponseWriter, r *http.Request) {
	current := s.session.Current()
	s.jsonResponse(w, http.StatusOK, s.viewOf(current, current.ID))
}

// Configuration

func (s *Server) handleGetGlobalConfig(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, s.session.Global().Masked())
}

func (s *Server) handlePutGlobalConfig(w http.ResponseWriter, r *http.Request) {
	var cfg domain.LLMConfig
	if err := decodeJSON(r, &cfg); err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if err := s.session.UpdateGlobal(r.Context(), cfg); err != nil {
		s.domainError(w, "failed to update config", err)
		return
	}
	s.jsonResponse(w, http.StatusOK, s.session.Global().Masked())
}

func (s *Server) handleGetAssistantConfig(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	a, err := s.session.Assistant(id)
	if err != nil {
		s.domainError(w, "assistant not found", err)
		return
	}
	resolved, err := s.session.Resolve(id)
	if err != nil {
		s.domainError(w, "failed to resolve config", err)
		return
	}

	var override *domain.LLMConfig
	if a.LLMConfig != nil {
		masked := a.LLMConfig.Masked()
		override = &masked
	}

	s.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"assistant_id": id,
		"resolved":     resolved.Masked(),
		"override":     override,
	})
}

func (s *Server) handlePutAssistantConfig(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var cfg domain.LLMConfig
	if err := decodeJSON(r, &cfg); err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if err := s.session.UpdateAssistantOverride(r.Context(), id, cfg); err != nil {
		s.domainError(w, "failed to update assistant config", err)
		return
	}
	s.handleGetAssistantConfig(w, r)
}

func (s *Server) handleDeleteAssistantConfig(w http.ResponseWriter, r *http.Request) {
	if err := s.session.ClearAssistantOverride(r.Context(), r.PathValue("id")); err != nil {
		s.domainError(w, "failed to clear assistant config", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Conversation

type sendMessageRequest struct {
	Content string `json:"content"`
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	exchange, err := s.session.Send(r.Context(), r.PathValue("id"), req.Content)
	if err != nil {
		s.domainError(w, "failed to send message", err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, exchange)
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	messages, err := s.session.Messages(r.Context(), id)
	if err != nil {
		s.domainError(w, "failed to load messages", err)
		return
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"assistant_id": id,
		"messages":     messages,
	})
}

func (s *Server) handleClearMessages(w http.ResponseWriter, r *http.Request) {
	if err := s.session.ClearMessages(r.Context(), r.PathValue("id")); err != nil {
		s.domainError(w, "failed to clear messages", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
