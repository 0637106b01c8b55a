package scanners

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/exploopio/reconkit/pkg/core"
)

// =============================================================================
// Scanner Registry
// =============================================================================

// Registry holds the known tools and the order in which they run.
type Registry struct {
	tools map[string]*Tool
	order []string
	mu    sync.RWMutex
}

// NewRegistry creates a registry with the built-in tools in their fixed
// execution order: sqlmap, nuclei, subfinder, wapiti.
func NewRegistry() *Registry {
	registry := &Registry{tools: make(map[string]*Tool)}

	registry.Register(Sqlmap())
	registry.Register(Nuclei())
	registry.Register(Subfinder())
	registry.Register(Wapiti())

	return registry
}

// Register adds a tool. A tool registered under an existing name replaces
// it and keeps its position.
func (r *Registry) Register(tool *Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tools[tool.Name()]; !ok {
		r.order = append(r.order, tool.Name())
	}
	r.tools[tool.Name()] = tool
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (*Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// Order returns tool names in execution order.
func (r *Registry) Order() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Names returns tool names sorted alphabetically.
func (r *Registry) Names() []string {
	names := r.Order()
	sort.Strings(names)
	return names
}

// Override replaces per-tool settings coming from configuration.
type Override struct {
	Binary  string        `mapstructure:"binary" yaml:"binary"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// WithOverrides returns a copy of the registry with binaries and timeouts
// replaced. Overrides for unknown tools are ignored.
func (r *Registry) WithOverrides(overrides map[string]Override) *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := &Registry{
		tools: make(map[string]*Tool, len(r.tools)),
		order: append([]string(nil), r.order...),
	}
	for name, tool := range r.tools {
		c := tool.clone()
		if o, ok := overrides[name]; ok {
			if o.Binary != "" {
				c.Binary = o.Binary
			}
			if o.Timeout > 0 {
				c.Timeout = o.Timeout
			}
		}
		out.tools[name] = c
	}
	return out
}

// SetExecutor installs exec on every registered tool.
func (r *Registry) SetExecutor(exec core.Executor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, tool := range r.tools {
		tool.SetExecutor(exec)
	}
}

// =============================================================================
// Built-in Tools
// =============================================================================

// Sqlmap returns the sqlmap descriptor.
func Sqlmap() *Tool {
	return NewTool("sqlmap", "-u", false)
}

// Nuclei returns the nuclei descriptor.
func Nuclei() *Tool {
	t := NewTool("nuclei", "-u", false)
	t.VersionArg = "-version"
	return t
}

// Subfinder returns the subfinder descriptor.
func Subfinder() *Tool {
	t := NewTool("subfinder", "-d", false)
	t.VersionArg = "-version"
	return t
}

// Wapiti returns the wapiti descriptor. Wapiti rejects targets without a scheme.
func Wapiti() *Tool {
	return NewTool("wapiti", "-u", true)
}

var builtin = NewRegistry()

// Lookup returns a copy of the built-in descriptor for name.
func Lookup(name string) (Tool, bool) {
	tool, ok := builtin.Get(name)
	if !ok {
		return Tool{}, false
	}
	return *tool.clone(), true
}

// Order returns the built-in execution order.
func Order() []string {
	return builtin.Order()
}

// =============================================================================
// Scanner Utility Functions
// =============================================================================

// InstallStatus is the result of probing one tool.
type InstallStatus struct {
	Name      string
	Binary    string
	Installed bool
	Version   string
	Err       error
}

// CheckInstalled probes every registered tool in execution order.
func CheckInstalled(ctx context.Context, r *Registry) []InstallStatus {
	var statuses []InstallStatus
	for _, name := range r.Order() {
		tool, _ := r.Get(name)
		installed, version, err := tool.IsInstalled(ctx)
		statuses = append(statuses, InstallStatus{
			Name:      name,
			Binary:    tool.binary(),
			Installed: installed,
			Version:   version,
			Err:       err,
		})
	}
	return statuses
}
