package schema

import (
	"bytes"
	"maps"
	"sort"

	"github.com/durable-oss/durable-parameters/pkg/params"
)

// Metadata carries call-scoped context (acting user, request attributes)
// into transforms. Keys other than CurrentUserKey must be declared on the
// schema before TransformAndPermit accepts them.
type Metadata map[string]any

// TransformFunc rewrites one attribute value before filtering. The value
// is a structural copy, so transforms may mutate it freely; the returned
// value replaces the original. An error aborts the whole pipeline.
type TransformFunc func(value any, meta Metadata) (any, error)

// ApplyTransformations runs every declared transform whose attribute key
// exists in the input map and returns the rewritten map. Non-map input
// passes through unchanged, as does input when no transform matches. Each
// transform receives a structural copy of its value, never an alias into
// the caller's data. Transforms run in attribute-name order; the first
// error aborts and propagates unmodified.
func (s *Schema) ApplyTransformations(raw any, meta Metadata) (any, error) {
	in, ok := raw.(map[string]any)
	if !ok {
		return raw, nil
	}

	s.mu.RLock()
	names := make([]string, 0, len(s.transforms))
	for name := range s.transforms {
		if _, exists := in[name]; exists {
			names = append(names, name)
		}
	}
	fns := make(map[string]TransformFunc, len(names))
	for _, name := range names {
		fns[name] = s.transforms[name]
	}
	s.mu.RUnlock()

	if len(names) == 0 {
		return raw, nil
	}
	sort.Strings(names)

	out := maps.Clone(in)
	for _, name := range names {
		transformed, err := fns[name](cloneValue(out[name]), meta)
		if err != nil {
			return nil, err
		}
		out[name] = transformed
	}
	return out, nil
}

// cloneValue structurally copies the closed value set flowing through
// parameter trees: maps, slices, byte slices and nested trees are copied
// depth-first, scalars pass through by value.
func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = cloneValue(e)
		}
		return out
	case map[any]any:
		out := make(map[any]any, len(t))
		for k, e := range t {
			out[k] = cloneValue(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		out := make([]string, len(t))
		copy(out, t)
		return out
	case []byte:
		return bytes.Clone(t)
	case *params.Params:
		return params.NewFromAny(t.ToMap())
	}
	return v
}
