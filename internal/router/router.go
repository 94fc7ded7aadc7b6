package router

import (
	"github.com/chew-z/bypass-proxy/internal/api"
	"github.com/chew-z/bypass-proxy/internal/models"
)

// Backend identifies where a request is served.
type Backend string

const (
	Local  Backend = "local"
	Remote Backend = "remote"
)

// BypassTable lists, per capability, the models the local backend serves.
// It is built once at startup and never modified afterwards.
type BypassTable struct {
	entries map[api.Capability][]string
}

// NewBypassTable copies entries into a new table.
func NewBypassTable(entries map[api.Capability][]string) BypassTable {
	t := BypassTable{entries: make(map[api.Capability][]string, len(entries))}
	for capability, list := range entries {
		t.entries[capability] = append([]string(nil), list...)
	}
	return t
}

// Models returns a copy of the entries for capability.
func (t BypassTable) Models(capability api.Capability) []string {
	return append([]string(nil), t.entries[capability]...)
}

// Allows reports whether model is listed for capability.
func (t BypassTable) Allows(capability api.Capability, model string) bool {
	return models.Contains(t.entries[capability], model)
}

// Router decides which backend serves a request.
type Router struct {
	table BypassTable
}

// New constructs a router over the given bypass table.
func New(table BypassTable) *Router {
	return &Router{table: table}
}

// Decide returns the backend for a request. Embeddings are always served
// locally since the remote backend has no equivalent; chat goes local only
// when the model is on the chat bypass list.
func (r *Router) Decide(capability api.Capability, model string) Backend {
	if capability == api.Embeddings {
		return Local
	}
	if model != "" && r.table.Allows(api.Chat, model) {
		return Local
	}
	return Remote
}

// Table returns the bypass table the router was built with.
func (r *Router) Table() BypassTable {
	return r.table
}
