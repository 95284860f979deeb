package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/agentforge/agentforge/internal/agent"
	"github.com/agentforge/agentforge/internal/models"
	"github.com/agentforge/agentforge/internal/security"
)

// StreamHandler runs tool chains and streams their events as SSE.
type StreamHandler struct {
	emitter     *agent.Emitter
	catalog     *agent.Catalog
	router      *agent.ToolRouter
	piiDetector *security.PIIDetector
	auditLogger *security.AuditLogger
}

func NewStreamHandler(
	emitter *agent.Emitter,
	catalog *agent.Catalog,
	router *agent.ToolRouter,
	piiDetector *security.PIIDetector,
	auditLogger *security.AuditLogger,
) *StreamHandler {
	return &StreamHandler{
		emitter:     emitter,
		catalog:     catalog,
		router:      router,
		piiDetector: piiDetector,
		auditLogger: auditLogger,
	}
}

// Stream handles GET /stream?query=..&tools=a,b. Without tools the
// router picks a default chain.
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	names := splitTools(r.URL.Query().Get("tools"))
	if len(names) == 0 && h.router != nil && !agent.IsGreeting(query) {
		routing := h.router.Route(query)
		names = routing.Tools
		log.Debug().
			Strs("tools", names).
			Float64("confidence", routing.Confidence).
			Str("reasoning", routing.Reasoning).
			Msg("routed query to default tools")
	}
	h.serve(w, r, query, names)
}

// AgentStream handles GET /agents/{id}/stream?query=..
func (h *StreamHandler) AgentStream(w http.ResponseWriter, r *http.Request) {
	a, err := h.catalog.Get(chi.URLParam(r, "id"))
	if err != nil {
		models.WriteError(w, http.StatusNotFound, "Agent not found")
		return
	}
	h.serve(w, r, r.URL.Query().Get("query"), a.Tools)
}

func (h *StreamHandler) serve(w http.ResponseWriter, r *http.Request, query string, names []string) {
	if strings.TrimSpace(query) == "" {
		models.WriteError(w, http.StatusBadRequest, "query is required")
		return
	}
	if found, kw := h.piiDetector.Detect(query); h.piiDetector.Enabled() && found {
		models.WriteError(w, http.StatusBadRequest, fmt.Sprintf("query references restricted data (%s)", kw))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		models.WriteError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	runID := uuid.NewString()
	h.auditLogger.LogStream(query, r.Header.Get("X-API-Key"), runID, names)

	// Streams outlive the server's write timeout.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for ev := range h.emitter.Stream(r.Context(), query, names) {
		if err := writeEvent(w, ev); err != nil {
			log.Debug().Err(err).Str("run_id", runID).Msg("stream client gone")
			return
		}
		flusher.Flush()
	}
}

func writeEvent(w http.ResponseWriter, ev agent.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}

func splitTools(raw string) []string {
	var names []string
	for _, name := range strings.Split(raw, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}
