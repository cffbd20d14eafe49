package scanner

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aleister1102/omnihunter/internal/common"
	"github.com/aleister1102/omnihunter/internal/config"
)

// Factory builds a scanner from shared dependencies.
type Factory func(deps Dependencies) (Scanner, error)

// Registry maps scanner names to factories. New variants only need a
// Register call; the dispatcher never references them directly.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// DefaultRegistry has every built-in variant registered.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(config.ScannerSQLi, NewSQLiScanner)
	r.Register(config.ScannerXSS, NewXSSScanner)
	r.Register(config.ScannerSSRF, NewSSRFScanner)
	r.Register(config.ScannerIDOR, NewIDORScanner)
	r.Register(config.ScannerBusinessLogic, NewBusinessLogicScanner)
	return r
}

// Register adds or replaces a factory.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// Names lists registered scanners sorted by name.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Build instantiates the named scanners in order. Unknown names and
// factory failures are reported together.
func (r *Registry) Build(names []string, deps Dependencies) ([]Scanner, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	collector := common.NewErrorCollector()
	seen := make(map[string]bool, len(names))
	var out []Scanner
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true

		f, ok := r.factories[name]
		if !ok {
			collector.Add(common.NewConfigurationError("scanner_config", "enabled", fmt.Sprintf("unknown scanner %q", name)))
			continue
		}
		s, err := f(deps)
		if err != nil {
			collector.AddWithContext(err, "scanner "+name)
			continue
		}
		out = append(out, s)
	}
	if err := collector.Error(); err != nil {
		return nil, err
	}
	return out, nil
}

func secs(n int) time.Duration {
	return time.Duration(n) * time.Second
}
