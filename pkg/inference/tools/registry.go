package tools

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// MaxFrontendTools caps how many frontend tools are bound to a model call.
const MaxFrontendTools = 110

// Class partitions tool names into server-executed and client-executed tools.
type Class int

const (
	ClassUnknown Class = iota
	ClassBackend
	ClassFrontend
)

func (c Class) String() string {
	switch c {
	case ClassBackend:
		return "backend"
	case ClassFrontend:
		return "frontend"
	default:
		return "unknown"
	}
}

// FrontendAllowList is the set of client tools the agent may bind.
var FrontendAllowList = []string{
	"setGlobalTitle",
	"setGlobalDescription",
	"setItemName",
	"setItemSubtitleOrDescription",
	"setItemDescription",
	// note
	"setNoteField1",
	"appendNoteField1",
	"clearNoteField1",
	// project
	"setProjectField1",
	"setProjectField2",
	"setProjectField3",
	"clearProjectField3",
	"addProjectChecklistItem",
	"setProjectChecklistItem",
	"removeProjectChecklistItem",
	// entity
	"setEntityField1",
	"setEntityField2",
	"addEntityField3",
	"removeEntityField3",
	// chart
	"addChartField1",
	"setChartField1Label",
	"setChartField1Value",
	"clearChartField1Value",
	"removeChartField1",
	// items
	"createItem",
	"deleteItem",
}

// Registry holds the backend tools and the frontend allow-list. It is built
// once and is read-only afterwards, so it can be shared across requests.
type Registry struct {
	backend      map[string]*ToolDefinition
	backendOrder []string
	frontend     map[string]struct{}
	maxFrontend  int
}

type RegistryOption func(*registryConfig)

type registryConfig struct {
	backend     []*ToolDefinition
	allowList   []string
	maxFrontend int
}

// WithBackendTools replaces the default backend tool set.
func WithBackendTools(defs ...*ToolDefinition) RegistryOption {
	return func(c *registryConfig) {
		c.backend = defs
	}
}

// WithFrontendAllowList replaces the default frontend allow-list.
func WithFrontendAllowList(names ...string) RegistryOption {
	return func(c *registryConfig) {
		c.allowList = names
	}
}

// WithMaxFrontendTools sets the frontend cap. Values <= 0 keep the default.
func WithMaxFrontendTools(n int) RegistryOption {
	return func(c *registryConfig) {
		if n > 0 {
			c.maxFrontend = n
		}
	}
}

func NewRegistry(opts ...RegistryOption) (*Registry, error) {
	cfg := &registryConfig{
		allowList:   FrontendAllowList,
		maxFrontend: MaxFrontendTools,
	}
	for _, o := range opts {
		o(cfg)
	}
	if cfg.backend == nil {
		defs, err := DefaultBackendTools()
		if err != nil {
			return nil, err
		}
		cfg.backend = defs
	}

	r := &Registry{
		backend:     make(map[string]*ToolDefinition, len(cfg.backend)),
		frontend:    make(map[string]struct{}, len(cfg.allowList)),
		maxFrontend: cfg.maxFrontend,
	}
	for _, def := range cfg.backend {
		if def == nil || def.Name == "" {
			return nil, errors.New("backend tool name cannot be empty")
		}
		if _, exists := r.backend[def.Name]; exists {
			return nil, errors.Errorf("duplicate backend tool: %s", def.Name)
		}
		r.backend[def.Name] = def
		r.backendOrder = append(r.backendOrder, def.Name)
	}
	for _, name := range cfg.allowList {
		if _, isBackend := r.backend[name]; isBackend {
			return nil, errors.Errorf("tool %s cannot be both backend and frontend", name)
		}
		r.frontend[name] = struct{}{}
	}
	return r, nil
}

// ClassifyName reports which partition a tool name belongs to.
func (r *Registry) ClassifyName(name string) Class {
	if _, ok := r.backend[name]; ok {
		return ClassBackend
	}
	if _, ok := r.frontend[name]; ok {
		return ClassFrontend
	}
	return ClassUnknown
}

// Classify resolves the name of spec and classifies it. Unresolvable specs are ClassUnknown.
func (r *Registry) Classify(spec Spec) Class {
	name, err := spec.ResolveName()
	if err != nil {
		return ClassUnknown
	}
	return r.ClassifyName(name)
}

// IsBackend reports whether a tool call with this name is executed server-side.
func (r *Registry) IsBackend(name string) bool {
	return r.ClassifyName(name) == ClassBackend
}

// Tool returns the backend tool registered under name.
func (r *Registry) Tool(name string) (*ToolDefinition, bool) {
	def, ok := r.backend[name]
	return def, ok
}

// BackendTools lists the backend tools in registration order.
func (r *Registry) BackendTools() []*ToolDefinition {
	ret := make([]*ToolDefinition, 0, len(r.backendOrder))
	for _, name := range r.backendOrder {
		ret = append(ret, r.backend[name])
	}
	return ret
}

// BackendSpecs returns the backend tools as function specs.
func (r *Registry) BackendSpecs() ([]Spec, error) {
	ret := make([]Spec, 0, len(r.backendOrder))
	for _, def := range r.BackendTools() {
		spec, err := def.Spec()
		if err != nil {
			return nil, err
		}
		ret = append(ret, spec)
	}
	return ret, nil
}

// MaxFrontend is the configured frontend cap.
func (r *Registry) MaxFrontend() int {
	return r.maxFrontend
}

// PrepareFrontendTools merges the caller's tools and the actions envelope,
// in that order, into the frontend tools to bind: unresolvable and
// non-allow-listed entries are skipped, the first occurrence of a name wins
// and the result is capped.
func (r *Registry) PrepareFrontendTools(tools []any, actions []any) []Spec {
	candidates := make([]any, 0, len(tools)+len(actions))
	candidates = append(candidates, tools...)
	candidates = append(candidates, actions...)

	seen := make(map[string]struct{}, len(candidates))
	ret := make([]Spec, 0, len(candidates))
	for i, c := range candidates {
		spec, err := SpecFrom(c)
		if err != nil {
			log.Debug().Err(err).Int("index", i).Msg("skipping unreadable frontend tool")
			continue
		}
		name, err := spec.ResolveName()
		if err != nil {
			log.Debug().Err(err).Int("index", i).Msg("skipping frontend tool without name")
			continue
		}
		if _, ok := r.frontend[name]; !ok {
			log.Trace().Str("tool", name).Msg("frontend tool not in allow-list")
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		ret = append(ret, spec)
		if len(ret) >= r.maxFrontend {
			break
		}
	}
	return ret
}
