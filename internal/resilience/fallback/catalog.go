// Package fallback maps (service, operation) pairs to degraded-response
// generators, consulted when a dependency call fails or is rejected by an
// open circuit breaker.
package fallback

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Generator produces a substitute payload from the call's metadata.
//
// Generators must be pure: no side effects and no calls into other
// dependencies, so producing a fallback can never itself need a fallback.
type Generator func(meta map[string]any) any

type key struct {
	service   string
	operation string
}

// Catalog is an exact-match lookup table of fallback generators.
// Entries are registered at startup and read-only afterwards.
type Catalog struct {
	mu    sync.RWMutex
	rules map[key]Generator
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{rules: make(map[key]Generator)}
}

// Register binds a generator to the (service, operation) pair, replacing any
// previous binding.
func (c *Catalog) Register(service, operation string, gen Generator) {
	c.mu.Lock()
	c.rules[key{service, operation}] = gen
	c.mu.Unlock()
}

// RegisterStatic binds a constant payload to the (service, operation) pair.
func (c *Catalog) RegisterStatic(service, operation string, payload any) {
	c.Register(service, operation, func(map[string]any) any {
		return payload
	})
}

// Has reports whether an entry exists for the (service, operation) pair.
func (c *Catalog) Has(service, operation string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.rules[key{service, operation}]
	return ok
}

// Get produces the fallback payload for the (service, operation) pair.
// The second return is false when no entry exists, in which case the caller
// surfaces the original failure.
func (c *Catalog) Get(service, operation string, meta map[string]any) (any, bool) {
	c.mu.RLock()
	gen, ok := c.rules[key{service, operation}]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return gen(meta), true
}

// Len returns the number of registered entries.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.rules)
}

// catalogFile mirrors the on-disk YAML layout:
//
//	fallbacks:
//	  - service: matcher
//	    operation: find_matches
//	    payload:
//	      matches: []
//	      degraded: true
type catalogFile struct {
	Fallbacks []struct {
		Service   string         `yaml:"service"`
		Operation string         `yaml:"operation"`
		Payload   map[string]any `yaml:"payload"`
	} `yaml:"fallbacks"`
}

// LoadFile registers the static fallback payloads declared in a YAML file.
// The path is expected to come from a trusted source (CLI arg or startup
// configuration), not user input.
func (c *Catalog) LoadFile(path string) error {
	// #nosec G304 -- path is provided by trusted startup configuration
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read fallback file: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse fallback file: %w", err)
	}

	for i, entry := range file.Fallbacks {
		if entry.Service == "" || entry.Operation == "" {
			return fmt.Errorf("fallback entry %d: service and operation are required", i)
		}
		c.RegisterStatic(entry.Service, entry.Operation, entry.Payload)
	}
	return nil
}
