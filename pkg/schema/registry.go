package schema

import (
	"sort"
	"strings"
	"sync"
	"unicode"
)

// Registry maps normalized model names to schemas. All methods are safe
// for concurrent use; registration typically happens at startup while
// lookups run on every request. Last registration for a name wins.
type Registry struct {
	mu      sync.RWMutex
	schemas map[string]*Schema
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{schemas: make(map[string]*Schema)}
}

// Register stores the schema under the normalized name, replacing any
// previous entry. A nil schema removes the entry.
func (r *Registry) Register(name string, s *Schema) {
	key := NormalizeName(name)

	r.mu.Lock()
	defer r.mu.Unlock()
	if s == nil {
		delete(r.schemas, key)
		return
	}
	r.schemas[key] = s
}

// Lookup returns the schema registered under the normalized name.
func (r *Registry) Lookup(name string) (*Schema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemas[NormalizeName(name)]
	return s, ok
}

// Registered reports whether a schema exists for the normalized name.
func (r *Registry) Registered(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}

// PermittedAttributesFor returns the permitted filter specification of the
// named schema for the given action, or an empty list when no schema is
// registered. A missing schema is never an error.
func (r *Registry) PermittedAttributesFor(name, action string) []any {
	s, ok := r.Lookup(name)
	if !ok {
		return []any{}
	}
	return s.PermittedAttributes(action)
}

// Clear removes every registered schema.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schemas = make(map[string]*Schema)
}

// Names returns the normalized names of all registered schemas, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.schemas))
	for name := range r.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered schemas.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.schemas)
}

// NormalizeName converts a model name to its canonical lower_snake form:
// camel-case boundaries become underscores, runs of non-alphanumeric
// characters collapse to a single underscore, and the result is lowercased
// and trimmed. "BlogPost", "blog_post", "blog-post" and " Blog Post " all
// normalize to "blog_post".
func NormalizeName(name string) string {
	runes := []rune(strings.TrimSpace(name))

	var b strings.Builder
	prevUnderscore := false
	for i, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			if !prevUnderscore && b.Len() > 0 {
				b.WriteRune('_')
				prevUnderscore = true
			}
			continue
		}

		if unicode.IsUpper(r) && i > 0 && !prevUnderscore {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				b.WriteRune('_')
			}
		}
		b.WriteRune(unicode.ToLower(r))
		prevUnderscore = false
	}

	return strings.Trim(b.String(), "_")
}
