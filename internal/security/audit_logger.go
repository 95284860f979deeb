package security

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// AuditLogger logs security-relevant events with hashed identifiers
type AuditLogger struct {
	enabled bool
}

func NewAuditLogger(enabled bool) *AuditLogger {
	return &AuditLogger{enabled: enabled}
}

// LogRegistration records a tool registration attempt
func (a *AuditLogger) LogRegistration(tool, kind, code, apiKey string, success bool, errMsg string) {
	if !a.enabled {
		return
	}
	evt := log.Info().
		Str("event", "tool_registration_audit").
		Str("tool", tool).
		Str("kind", kind).
		Str("api_key_hash", shortHash(apiKey)).
		Bool("success", success)

	if code != "" {
		evt = evt.Str("code_hash", shortHash(code)).Int("code_bytes", len(code))
	}
	if errMsg != "" {
		evt = evt.Str("error", errMsg)
	}
	evt.Msg("audit")
}

// LogExecution records a direct tool execution
func (a *AuditLogger) LogExecution(tool, apiKey string, executionTimeMs int64, degraded bool, errMsg string) {
	if !a.enabled {
		return
	}
	evt := log.Info().
		Str("event", "tool_execution_audit").
		Str("tool", tool).
		Str("api_key_hash", shortHash(apiKey)).
		Int64("execution_time_ms", executionTimeMs).
		Bool("degraded", degraded).
		Bool("success", errMsg == "")

	if errMsg != "" {
		evt = evt.Str("error", errMsg)
	}
	evt.Msg("audit")
}

// LogStream records the start of a streamed agent run
func (a *AuditLogger) LogStream(query, apiKey, runID string, tools []string) {
	if !a.enabled {
		return
	}
	log.Info().
		Str("event", "agent_stream_audit").
		Str("run_id", runID).
		Str("query_hash", shortHash(query)).
		Str("api_key_hash", shortHash(apiKey)).
		Str("tools", strings.Join(tools, ",")).
		Msg("agent audit")
}

func hashStr(s string) string {
	h := sha256.Sum256([]byte(s))
	return fmt.Sprintf("%x", h)
}

func shortHash(s string) string {
	if s == "" {
		return ""
	}
	return hashStr(s)[:16]
}
