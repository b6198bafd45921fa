// Package tools holds the tool registry and the executor that runs tool
// calls through parameter validation and the confirmation gate.
package tools

import (
	"fmt"
	"sort"
	"sync"

	"toolchat/internal/logging"
	"toolchat/internal/ports"
)

// Registry keeps the registered tools by name.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]ports.Tool
	logger logging.Logger
}

func NewRegistry(logger logging.Logger) *Registry {
	return &Registry{
		tools:  make(map[string]ports.Tool),
		logger: logging.OrNop(logger),
	}
}

// Register adds a tool. The first registration under a name wins; a second
// one keeps the original and reports the conflict to the caller.
func (r *Registry) Register(tool ports.Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := tool.Metadata().Name
	if name == "" {
		return fmt.Errorf("tool has no name")
	}
	if _, exists := r.tools[name]; exists {
		r.logger.Warn("registry: duplicate registration for %s ignored", name)
		return fmt.Errorf("tool already registered: %s", name)
	}
	r.tools[name] = tool
	r.logger.Debug("registry: registered tool %s", name)
	return nil
}

// MustRegister panics on a duplicate. For wiring built-ins at startup.
func (r *Registry) MustRegister(tool ports.Tool) {
	if err := r.Register(tool); err != nil {
		panic(err)
	}
}

func (r *Registry) Get(name string) (ports.Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
}

// List returns all tool definitions sorted by name.
func (r *Registry) List() []ports.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]ports.ToolDefinition, 0, len(r.tools))
	for _, tool := range r.tools {
		defs = append(defs, tool.Definition())
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Names returns the sorted registered tool names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}
