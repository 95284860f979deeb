package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"

	"github.com/agentforge/agentforge/internal/models"
	"github.com/agentforge/agentforge/internal/registry"
	"github.com/agentforge/agentforge/internal/security"
	"github.com/agentforge/agentforge/internal/tools"
)

// ToolsHandler serves tool listing, registration and execution.
type ToolsHandler struct {
	reg          *registry.Registry
	sourceVal    *security.SourceValidator
	promptVal    *security.PromptValidator
	auditLogger  *security.AuditLogger
	enableSource bool
}

func NewToolsHandler(
	reg *registry.Registry,
	sourceVal *security.SourceValidator,
	promptVal *security.PromptValidator,
	auditLogger *security.AuditLogger,
	enableSource bool,
) *ToolsHandler {
	return &ToolsHandler{
		reg:          reg,
		sourceVal:    sourceVal,
		promptVal:    promptVal,
		auditLogger:  auditLogger,
		enableSource: enableSource,
	}
}

// List handles GET /tools
func (h *ToolsHandler) List(w http.ResponseWriter, r *http.Request) {
	models.WriteJSON(w, http.StatusOK, models.ToolListing(h.reg.Enumerate()))
}

// Register handles POST /tools/register. The code is handed to the LLM
// runner at invocation time and is never executed by this process.
func (h *ToolsHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterToolRequest
	if err := models.Decode(r, &req); err != nil {
		models.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	apiKey := r.Header.Get("X-API-Key")
	if res := h.sourceVal.Validate(req.Code); !res.Valid {
		h.auditLogger.LogRegistration(req.ToolName, registry.KindLLMCode, req.Code, apiKey, false, res.Message)
		models.WriteError(w, http.StatusBadRequest, res.Message)
		return
	}
	if h.reg.Has(req.ToolName) {
		models.WriteError(w, http.StatusConflict, fmt.Sprintf("Tool '%s' already exists", req.ToolName))
		return
	}

	if req.Description == "" {
		req.Description = models.DefaultDescription
	}
	if err := h.reg.RegisterLLMCode(r.Context(), req.ToolName, req.Description, req.Code); err != nil {
		h.auditLogger.LogRegistration(req.ToolName, registry.KindLLMCode, req.Code, apiKey, false, err.Error())
		models.WriteError(w, registrationStatus(err), err.Error())
		return
	}
	h.auditLogger.LogRegistration(req.ToolName, registry.KindLLMCode, req.Code, apiKey, true, "")
	models.WriteJSON(w, http.StatusOK, req.ToolName)
}

// RegisterLLM handles POST /tools/register_llm and its aliases.
func (h *ToolsHandler) RegisterLLM(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterLLMToolRequest
	if err := models.Decode(r, &req); err != nil {
		models.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	apiKey := r.Header.Get("X-API-Key")
	if res := h.promptVal.Validate(req.Description); !res.Valid {
		h.auditLogger.LogRegistration(req.Name, registry.KindLLMProxy, req.Description, apiKey, false, res.Message)
		models.WriteError(w, http.StatusBadRequest, "description rejected: "+res.Message)
		return
	}
	if h.reg.Has(req.Name) {
		models.WriteError(w, http.StatusConflict, fmt.Sprintf("Tool '%s' already exists", req.Name))
		return
	}

	// Proxy tools always take a single free-text input.
	if err := h.reg.RegisterLLMProxy(r.Context(), req.Name, req.Description, nil); err != nil {
		h.auditLogger.LogRegistration(req.Name, registry.KindLLMProxy, req.Description, apiKey, false, err.Error())
		models.WriteError(w, registrationStatus(err), err.Error())
		return
	}
	h.auditLogger.LogRegistration(req.Name, registry.KindLLMProxy, req.Description, apiKey, true, "")
	models.WriteJSON(w, http.StatusCreated, models.RegisterResponse{Name: req.Name, Description: req.Description})
}

// RegisterSource handles POST /tools/register_source. Source is evaluated
// by the embedded interpreter, so the route is off unless enabled.
func (h *ToolsHandler) RegisterSource(w http.ResponseWriter, r *http.Request) {
	if !h.enableSource {
		models.WriteError(w, http.StatusForbidden, "source tool registration is disabled")
		return
	}

	var req models.RegisterSourceRequest
	if err := models.Decode(r, &req); err != nil {
		models.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	apiKey := r.Header.Get("X-API-Key")
	if res := h.sourceVal.Validate(req.Source); !res.Valid {
		h.auditLogger.LogRegistration(req.Name, registry.KindSource, req.Source, apiKey, false, res.Message)
		models.WriteError(w, http.StatusBadRequest, res.Message)
		return
	}
	if h.reg.Has(req.Name) {
		models.WriteError(w, http.StatusConflict, fmt.Sprintf("Tool '%s' already exists", req.Name))
		return
	}

	if err := h.reg.RegisterSource(r.Context(), req.Name, req.Source, req.Description); err != nil {
		h.auditLogger.LogRegistration(req.Name, registry.KindSource, req.Source, apiKey, false, err.Error())
		models.WriteError(w, registrationStatus(err), err.Error())
		return
	}
	h.auditLogger.LogRegistration(req.Name, registry.KindSource, req.Source, apiKey, true, "")
	models.WriteJSON(w, http.StatusCreated, models.RegisterResponse{Name: req.Name, Description: req.Description})
}

// Execute handles POST /tools/execute
func (h *ToolsHandler) Execute(w http.ResponseWriter, r *http.Request) {
	var req models.ExecuteRequest
	if err := models.Decode(r, &req); err != nil {
		models.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	apiKey := r.Header.Get("X-API-Key")
	start := time.Now()
	out, err := h.reg.Invoke(r.Context(), req.ToolType, tools.Args(req.Parameters))
	execMs := time.Since(start).Milliseconds()
	if err != nil {
		h.auditLogger.LogExecution(req.ToolType, apiKey, execMs, false, err.Error())
		if errors.Is(err, registry.ErrUnknownTool) {
			log.Warn().Str("tool", req.ToolType).Msg("execute: unknown tool")
			models.WriteError(w, http.StatusNotFound, fmt.Sprintf("Tool '%s' not found", req.ToolType))
			return
		}
		models.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.auditLogger.LogExecution(req.ToolType, apiKey, execMs, out.Degraded, "")
	models.WriteJSON(w, http.StatusOK, models.ExecuteResponse{Result: out.Content, Degraded: out.Degraded})
}

func registrationStatus(err error) int {
	switch {
	case errors.Is(err, registry.ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, registry.ErrValidationFailed), errors.Is(err, registry.ErrNoExecutableFound):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
