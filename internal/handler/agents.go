package handler

import (
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/agentforge/agentforge/internal/agent"
	"github.com/agentforge/agentforge/internal/models"
	"github.com/agentforge/agentforge/internal/registry"
)

// AgentsHandler manages the in-memory agent catalog.
type AgentsHandler struct {
	catalog *agent.Catalog
	reg     *registry.Registry
}

func NewAgentsHandler(catalog *agent.Catalog, reg *registry.Registry) *AgentsHandler {
	return &AgentsHandler{catalog: catalog, reg: reg}
}

// Create handles POST /agents
func (h *AgentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateAgentRequest
	if err := models.Decode(r, &req); err != nil {
		models.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Unknown tools are kept; the pipeline skips them at run time.
	for _, name := range req.Tools {
		if !h.reg.Has(name) {
			log.Warn().Str("tool", name).Str("agent", req.Name).Msg("agent references unknown tool")
		}
	}

	a, err := h.catalog.Create(agent.Agent{
		ID:          req.ID,
		Name:        req.Name,
		Description: req.Description,
		Tools:       req.Tools,
	})
	if err != nil {
		if errors.Is(err, agent.ErrAgentExists) {
			models.WriteError(w, http.StatusConflict, err.Error())
			return
		}
		models.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	models.WriteJSON(w, http.StatusCreated, a)
}

// List handles GET /agents
func (h *AgentsHandler) List(w http.ResponseWriter, r *http.Request) {
	models.WriteJSON(w, http.StatusOK, h.catalog.List())
}

// Get handles GET /agents/{id}
func (h *AgentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	a, err := h.catalog.Get(chi.URLParam(r, "id"))
	if err != nil {
		models.WriteError(w, http.StatusNotFound, "Agent not found")
		return
	}
	models.WriteJSON(w, http.StatusOK, a)
}
