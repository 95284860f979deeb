package models

import "github.com/agentforge/agentforge/internal/registry"

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// ToolEntry is one value of the GET /tools listing, keyed by tool name.
type ToolEntry struct {
	Class       string   `json:"class"`
	Description string   `json:"description"`
	Parameters  []string `json:"parameters"`
}

// ToolListing maps tool names to their public description.
func ToolListing(infos []registry.Info) map[string]ToolEntry {
	out := make(map[string]ToolEntry, len(infos))
	for _, info := range infos {
		params := info.Parameters
		if params == nil {
			params = []string{}
		}
		out[info.Name] = ToolEntry{Class: info.Class, Description: info.Description, Parameters: params}
	}
	return out
}

// RegisterResponse is returned by the registration endpoints.
type RegisterResponse struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// ExecuteResponse for POST /tools/execute
type ExecuteResponse struct {
	Result   string `json:"result"`
	Degraded bool   `json:"degraded,omitempty"`
}
