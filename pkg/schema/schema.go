package schema

import (
	"fmt"
	"maps"
	"slices"
	"sync"
)

// CurrentUserKey is the metadata key carrying the acting user. It is
// implicitly readable by every schema's transforms without a Metadata
// declaration.
const CurrentUserKey = "current_user"

// Schema declares which attributes of one model may be mass-assigned, per
// action, and which transformations run on them first. Schemas are built
// once at startup with the fluent rule methods and then read on every
// request; rule state is guarded so a late definition cannot corrupt
// concurrent reads.
type Schema struct {
	mu         sync.RWMutex
	name       string
	allowed    []string
	options    map[string]*attributeOptions
	denied     []string
	deniedSet  map[string]struct{}
	flags      map[string]any
	metadata   map[string]struct{}
	transforms map[string]TransformFunc
	cache      map[string][]any
}

// New creates an empty schema with the given name. The name is what the
// registry and error messages refer to; it is stored as given.
func New(name string) *Schema {
	return &Schema{
		name:       name,
		options:    make(map[string]*attributeOptions),
		deniedSet:  make(map[string]struct{}),
		flags:      make(map[string]any),
		metadata:   make(map[string]struct{}),
		transforms: make(map[string]TransformFunc),
		cache:      make(map[string][]any),
	}
}

// Name returns the schema name as given to New or Extend.
func (s *Schema) Name() string { return s.name }

// Allow declares an attribute as assignable and attaches options to it.
// Allowing the same attribute again keeps its position and merges the new
// options onto the existing ones. Returns the schema for chaining.
func (s *Schema) Allow(name string, opts ...AttributeOption) *Schema {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.options[name]
	if !ok {
		existing = newAttributeOptions()
		s.options[name] = existing
		s.allowed = append(s.allowed, name)
	}
	for _, opt := range opts {
		opt(existing)
	}
	s.cache = make(map[string][]any)
	return s
}

// Deny removes an attribute from every permitted set this schema produces.
// Deny beats Allow regardless of declaration order. Returns the schema for
// chaining.
func (s *Schema) Deny(name string) *Schema {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.deniedSet[name]; !ok {
		s.deniedSet[name] = struct{}{}
		s.denied = append(s.denied, name)
	}
	s.cache = make(map[string][]any)
	return s
}

// Flag attaches keyed metadata to the schema itself. Flags do not affect
// filtering; they exist for callers layering audit or documentation
// conventions on schemas. Without an explicit value the flag is true; the
// last write wins.
func (s *Schema) Flag(name string, value ...any) *Schema {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(value) > 0 {
		s.flags[name] = value[len(value)-1]
	} else {
		s.flags[name] = true
	}
	return s
}

// FlagValue returns the flag value and whether the flag was set.
func (s *Schema) FlagValue(name string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.flags[name]
	return v, ok
}

// Flags returns a copy of all schema flags.
func (s *Schema) Flags() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.flags)
}

// Metadata declares which call-time metadata keys this schema's transforms
// may read. CurrentUserKey is always readable and never needs declaring.
// Returns the schema for chaining.
func (s *Schema) Metadata(names ...string) *Schema {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, name := range names {
		s.metadata[name] = struct{}{}
	}
	return s
}

// MetadataAllowed reports whether transforms of this schema may read the
// given metadata key.
func (s *Schema) MetadataAllowed(key string) bool {
	if key == CurrentUserKey {
		return true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.metadata[key]
	return ok
}

// Transform registers the transformation for one attribute; re-declaring
// an attribute overwrites its previous transform. An empty name or nil
// function is definition-time misuse and panics.
func (s *Schema) Transform(name string, fn TransformFunc) *Schema {
	if name == "" {
		panic(fmt.Errorf("schema %q: transform requires an attribute name", s.name))
	}
	if fn == nil {
		panic(fmt.Errorf("schema %q: transform for %q requires a function", s.name, name))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.transforms[name] = fn
	return s
}

// PermittedAttributes returns the filter specification for the given
// action: every allowed attribute minus the denied ones, scoped by each
// attribute's only/except options, with array-flagged attributes emitted
// in the whole-array map form. The empty action bypasses only/except
// scoping. Results are memoized per action until the next Allow or Deny;
// callers must treat the returned slice as read-only.
func (s *Schema) PermittedAttributes(action string) []any {
	s.mu.RLock()
	if cached, ok := s.cache[action]; ok {
		s.mu.RUnlock()
		return cached
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if cached, ok := s.cache[action]; ok {
		return cached
	}

	permitted := make([]any, 0, len(s.allowed))
	for _, name := range s.allowed {
		if _, denied := s.deniedSet[name]; denied {
			continue
		}
		opts := s.options[name]
		if !opts.includedFor(action) {
			continue
		}
		if opts.array {
			permitted = append(permitted, map[string]any{name: []any{}})
		} else {
			permitted = append(permitted, name)
		}
	}
	s.cache[action] = permitted
	return permitted
}

// AttributeOptions returns the recorded options for one attribute in map
// form, for introspection. Unknown attributes yield an empty map.
func (s *Schema) AttributeOptions(name string) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	opts, ok := s.options[name]
	if !ok {
		return map[string]any{}
	}

	out := maps.Clone(opts.extra)
	if len(opts.only) > 0 {
		out["only"] = slices.Clone(opts.only)
	}
	if len(opts.except) > 0 {
		out["except"] = slices.Clone(opts.except)
	}
	if opts.array {
		out["array"] = true
	}
	return out
}

// Allowed returns the allow list in declaration order.
func (s *Schema) Allowed() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.allowed)
}

// Denied returns the deny list in declaration order.
func (s *Schema) Denied() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.denied)
}

// Extend creates a new schema that starts from a deep snapshot of the
// receiver's rules: allow and deny lists, options, flags, metadata and
// transforms. The permitted cache is not carried over. Parent and child
// are fully independent afterwards; mutating one never affects the other.
func (s *Schema) Extend(name string) *Schema {
	s.mu.RLock()
	defer s.mu.RUnlock()

	child := New(name)
	child.allowed = slices.Clone(s.allowed)
	for attr, opts := range s.options {
		child.options[attr] = opts.clone()
	}
	child.denied = slices.Clone(s.denied)
	child.deniedSet = maps.Clone(s.deniedSet)
	child.flags = maps.Clone(s.flags)
	child.metadata = maps.Clone(s.metadata)
	child.transforms = maps.Clone(s.transforms)
	return child
}
