// Package backendreg enumerates the backend types a remote may be created
// with.
//
// Backends are build-time plugins: a backend package registers itself in
// init(), and a binary enables it with a (usually blank) import. Each entry
// declares the exact config fields it accepts, so a remote's configuration
// is validated up front instead of being discovered interactively.
package backendreg

import (
	"fmt"
	"sort"
	"sync"

	"github.com/pacco-io/pacco/storage"
)

// Entry describes one backend type.
type Entry struct {
	Name        string
	Description string

	// ConfigFields enumerates the accepted config keys. Open is only ever
	// called with a config whose keys are a subset of this list.
	ConfigFields []string

	// Open constructs the backend from a validated config map.
	Open func(config map[string]string) (storage.Backend, error)
}

var (
	mu      sync.RWMutex
	entries = map[string]Entry{}
)

// Register registers a backend type.
func Register(e Entry) error {
	if e.Name == "" {
		return fmt.Errorf("backendreg: backend name is required")
	}
	if e.Open == nil {
		return fmt.Errorf("backendreg: backend %q missing Open", e.Name)
	}

	mu.Lock()
	defer mu.Unlock()
	if _, exists := entries[e.Name]; exists {
		return fmt.Errorf("backendreg: backend %q already registered", e.Name)
	}
	entries[e.Name] = e
	return nil
}

// MustRegister is like Register but panics on error.
func MustRegister(e Entry) {
	if err := Register(e); err != nil {
		panic(err)
	}
}

// Names returns the registered backend type names, sorted.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(entries))
	for name := range entries {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// List returns the registered entries, sorted by name.
func List() []Entry {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Validate checks that name is a registered backend type and that every
// config key is one the type declares. This runs before a remote is
// persisted, so a stored remote always opens against a known shape.
func Validate(name string, config map[string]string) error {
	mu.RLock()
	e, ok := entries[name]
	mu.RUnlock()
	if !ok {
		return fmt.Errorf("backendreg: unknown backend type %q (have %v)", name, Names())
	}
	allowed := make(map[string]struct{}, len(e.ConfigFields))
	for _, f := range e.ConfigFields {
		allowed[f] = struct{}{}
	}
	for k := range config {
		if _, ok := allowed[k]; !ok {
			return fmt.Errorf("backendreg: backend %q does not accept config field %q (accepts %v)",
				name, k, e.ConfigFields)
		}
	}
	return nil
}

// Open validates and opens the named backend type with config.
func Open(name string, config map[string]string) (storage.Backend, error) {
	if err := Validate(name, config); err != nil {
		return nil, err
	}
	mu.RLock()
	e := entries[name]
	mu.RUnlock()
	return e.Open(config)
}
