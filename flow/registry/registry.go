// Package registry provides a template-based node factory. A Registry
// is constructed explicitly and passed to whoever needs to build nodes
// from a kind tag plus configuration; there is deliberately no
// package-level default instance.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/flowtools-go/flowtools/flow"
)

// Config carries the keyed construction parameters for one node. The
// reserved key "id" (string) names the node; when absent, Build
// generates one.
type Config map[string]interface{}

// Template constructs a node of one kind. id is always non-empty by the
// time a template runs.
type Template func(id string, cfg Config) (flow.Node, error)

// Registry maps kind tags to node templates. Safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	templates map[string]Template
}

// New constructs an empty Registry.
func New() *Registry {
	return &Registry{templates: make(map[string]Template)}
}

// Register installs tmpl under kind, replacing any prior template for
// that kind. An empty kind or nil template is rejected.
func (r *Registry) Register(kind string, tmpl Template) error {
	if kind == "" {
		return fmt.Errorf("%w: template kind must be non-empty", flow.ErrMisuse)
	}
	if tmpl == nil {
		return fmt.Errorf("%w: template for kind %q must be non-nil", flow.ErrMisuse, kind)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.templates[kind] = tmpl
	return nil
}

// Build constructs a node of the given kind from cfg. The node's id is
// taken from cfg["id"] when present, otherwise generated as
// "<kind>_<uuid>". An unregistered kind is a misuse error.
func (r *Registry) Build(kind string, cfg Config) (flow.Node, error) {
	r.mu.RLock()
	tmpl, ok := r.templates[kind]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: no template registered for kind %q", flow.ErrMisuse, kind)
	}

	id, _ := cfg["id"].(string)
	if id == "" {
		id = fmt.Sprintf("%s_%s", kind, uuid.NewString())
	}
	return tmpl(id, cfg)
}

// Kinds returns every registered kind tag, sorted.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.templates))
	for k := range r.templates {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
