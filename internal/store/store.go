// Package store persists registered tool records so the registry survives a
// restart. Native built-ins are never stored.
package store

import (
	"context"
)

// Record kinds.
const (
	KindClass    = "class"
	KindFunction = "function"
)

// Record is the durable projection of a registered tool, keyed by Name.
type Record struct {
	Name        string   `json:"name"`
	Kind        string   `json:"kind"`
	Description string   `json:"description"`
	Parameters  []string `json:"parameters"`
	Code        string   `json:"code,omitempty"`
	LLMProxy    bool     `json:"llm_proxy,omitempty"`
	LLMCode     bool     `json:"llm_code,omitempty"`
}

// Store loads and upserts records. Upsert is idempotent per record name.
type Store interface {
	Load(ctx context.Context) ([]Record, error)
	Upsert(ctx context.Context, rec Record) error
	Ping(ctx context.Context) error
	Close() error
}

// upsert replaces the record with rec.Name in recs, or appends it.
func upsert(recs []Record, rec Record) []Record {
	for i := range recs {
		if recs[i].Name == rec.Name {
			recs[i] = rec
			return recs
		}
	}
	return append(recs, rec)
}
