package params

import (
	"fmt"
	"reflect"
	"slices"
	"strings"
)

// Params is an ordered tree of untrusted request parameters. Keys are
// normalized strings; values are scalars, nested *Params, or []any holding
// either. A tree starts unpermitted and stays that way until a Permit call
// produces a filtered copy or PermitAll marks it trusted in place.
//
// Params is not safe for concurrent use; each request is expected to own
// its tree.
type Params struct {
	keys      []string
	values    map[string]any
	permitted bool
	required  string
}

func newEmpty() *Params {
	return &Params{values: make(map[string]any)}
}

// New builds a tree from a raw decoded map. A nil map yields an empty,
// unpermitted tree. Keys are normalized immediately; nested maps and
// arrays are converted to trees lazily on first access.
func New(raw map[string]any) *Params {
	if raw == nil {
		return newEmpty()
	}
	return newFromStringMap(raw)
}

// NewFromAny accepts any map kind, covering decoders that produce
// map[any]any (yaml) or typed maps. Non-map input yields an empty tree.
func NewFromAny(raw any) *Params {
	switch t := raw.(type) {
	case nil:
		return newEmpty()
	case *Params:
		return t
	case map[string]any:
		return newFromStringMap(t)
	case map[any]any:
		return newFromAnyMap(t)
	}
	if rv := reflect.ValueOf(raw); rv.Kind() == reflect.Map {
		return newFromReflectMap(rv)
	}
	return newEmpty()
}

// Get returns the value stored under key, converting raw nested maps and
// arrays to their tree form on first read and memoizing the conversion.
// Access is indifferent: Get(1), Get("1") and any key normalizing to "1"
// hit the same entry. Missing keys return nil.
func (p *Params) Get(key any) any {
	nk := normalizeKey(key)
	v, ok := p.values[nk]
	if !ok {
		return nil
	}
	converted, changed := convertValue(v)
	if changed {
		p.values[nk] = converted
	}
	return converted
}

// Set stores value under the normalized key, appending to the key order
// when the key is new.
func (p *Params) Set(key any, value any) {
	nk := normalizeKey(key)
	if _, ok := p.values[nk]; !ok {
		p.keys = append(p.keys, nk)
	}
	p.values[nk] = value
}

// Has reports whether the normalized key is present.
func (p *Params) Has(key any) bool {
	_, ok := p.values[normalizeKey(key)]
	return ok
}

// Delete removes the key and returns its converted value, or nil when the
// key was absent.
func (p *Params) Delete(key any) any {
	nk := normalizeKey(key)
	v, ok := p.values[nk]
	if !ok {
		return nil
	}
	converted, _ := convertValue(v)
	delete(p.values, nk)
	if i := slices.Index(p.keys, nk); i >= 0 {
		p.keys = slices.Delete(p.keys, i, i+1)
	}
	return converted
}

// Keys returns the key order: sorted for keys that came from a raw map,
// insertion order for keys added through Set.
func (p *Params) Keys() []string {
	return slices.Clone(p.keys)
}

// Values returns the converted values in key order.
func (p *Params) Values() []any {
	out := make([]any, 0, len(p.keys))
	for _, k := range p.keys {
		out = append(out, p.Get(k))
	}
	return out
}

// Len returns the number of entries.
func (p *Params) Len() int { return len(p.keys) }

// IsEmpty reports whether the tree has no entries.
func (p *Params) IsEmpty() bool { return len(p.keys) == 0 }

// Each yields every key and converted value in key order.
func (p *Params) Each(fn func(key string, value any)) {
	for _, k := range p.keys {
		fn(k, p.Get(k))
	}
}

// Permitted reports whether the tree has passed a Permit filter or was
// marked trusted with PermitAll.
func (p *Params) Permitted() bool { return p.permitted }

// RequiredKey returns the inherited required-key marker, or "" when the
// tree was never obtained through Require.
func (p *Params) RequiredKey() string { return p.required }

// SetRequiredKey stamps the marker explicitly. Require stamps it
// automatically; this exists for pipelines that rebuild a tree and need to
// carry the marker over so schema inference still works.
func (p *Params) SetRequiredKey(key string) { p.required = key }

// Require returns the value under key or a ParameterMissingError when the
// key is absent or its value is empty. Empty means nil, "", an empty array
// or an empty map; false and 0 are present. When the value is a nested
// tree without a required-key marker it inherits the receiver's marker, or
// key itself when the receiver has none, so a chain of Require calls keeps
// pointing at the top-level key.
func (p *Params) Require(key any) (any, error) {
	nk := normalizeKey(key)
	v := p.Get(nk)
	if isEmptyValue(v) {
		return nil, newParameterMissing(nk, p.Keys())
	}
	if child, ok := v.(*Params); ok && child.required == "" {
		if p.required != "" {
			child.required = p.required
		} else {
			child.required = nk
		}
	}
	return v, nil
}

// RequireParams is Require for callers that expect a nested tree: it adds
// an ErrNotNested failure when the value is a scalar or an array, which
// keeps the common require-then-permit chain free of type assertions.
func (p *Params) RequireParams(key any) (*Params, error) {
	v, err := p.Require(key)
	if err != nil {
		return nil, err
	}
	child, ok := v.(*Params)
	if !ok {
		return nil, fmt.Errorf("%w: key %q", ErrNotNested, normalizeKey(key))
	}
	return child, nil
}

// Fetch returns the value under key or a ParameterMissingError when the
// key is absent. Unlike Require, present-but-empty values are returned
// as-is.
func (p *Params) Fetch(key any) (any, error) {
	nk := normalizeKey(key)
	if !p.Has(nk) {
		return nil, newParameterMissing(nk, p.Keys())
	}
	return p.Get(nk), nil
}

// FetchWithDefault returns the value under key, or def (converted the same
// way stored values are) when the key is absent.
func (p *Params) FetchWithDefault(key any, def any) any {
	if !p.Has(key) {
		converted, _ := convertValue(def)
		return converted
	}
	return p.Get(key)
}

// FetchWithFunc returns the value under key, or the converted result of fn
// when the key is absent.
func (p *Params) FetchWithFunc(key any, fn func() any) any {
	if !p.Has(key) {
		if fn == nil {
			return nil
		}
		converted, _ := convertValue(fn())
		return converted
	}
	return p.Get(key)
}

// Slice returns a new tree with only the given keys, in argument order,
// preserving the permitted flag and the required-key marker.
func (p *Params) Slice(keys ...any) *Params {
	out := newEmpty()
	out.permitted = p.permitted
	out.required = p.required
	for _, key := range keys {
		nk := normalizeKey(key)
		if v, ok := p.values[nk]; ok {
			out.Set(nk, v)
		}
	}
	return out
}

// Except returns a new tree without the given keys, preserving the
// permitted flag and the required-key marker.
func (p *Params) Except(keys ...any) *Params {
	drop := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		drop[normalizeKey(key)] = struct{}{}
	}
	out := newEmpty()
	out.permitted = p.permitted
	out.required = p.required
	for _, k := range p.keys {
		if _, skip := drop[k]; skip {
			continue
		}
		out.Set(k, p.values[k])
	}
	return out
}

// Dup returns a shallow copy: a new tree with its own key order and entry
// map, sharing nested values with the receiver. Permitted flag and
// required-key marker are preserved.
func (p *Params) Dup() *Params {
	out := newEmpty()
	out.permitted = p.permitted
	out.required = p.required
	out.keys = slices.Clone(p.keys)
	for k, v := range p.values {
		out.values[k] = v
	}
	return out
}

// Merge returns a new tree holding the receiver's entries overlaid with
// other's (other wins on conflicts). The result carries the receiver's
// permitted flag and required-key marker.
func (p *Params) Merge(other *Params) *Params {
	out := p.Dup()
	if other == nil {
		return out
	}
	for _, k := range other.keys {
		out.Set(k, other.values[k])
	}
	return out
}

// PermitAll marks the receiver and every nested tree, however deeply
// buried in arrays, as permitted, in place, and returns the receiver. Only
// for data the caller fully trusts.
func (p *Params) PermitAll() *Params {
	for _, k := range p.keys {
		permitAllValue(p.Get(k))
	}
	p.permitted = true
	return p
}

func permitAllValue(v any) {
	switch t := v.(type) {
	case *Params:
		t.PermitAll()
	case []any:
		for _, e := range t {
			permitAllValue(e)
		}
	}
}

// ToMap deep-converts the tree back to plain nested maps and slices with
// string keys, independent of permitted state.
func (p *Params) ToMap() map[string]any {
	out := make(map[string]any, len(p.keys))
	for _, k := range p.keys {
		out[k] = toPlain(p.values[k])
	}
	return out
}

// String renders a compact debug form that makes the permitted state
// visible next to the entries.
func (p *Params) String() string {
	var b strings.Builder
	b.WriteString("#<params.Params {")
	for i, k := range p.keys {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%q: %v", k, p.values[k])
	}
	fmt.Fprintf(&b, "} permitted: %t>", p.permitted)
	return b.String()
}

// isEmptyValue implements the Require emptiness rule: nil, empty strings,
// empty byte slices, empty arrays and empty maps are missing; false and 0
// are present.
func isEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []byte:
		return len(t) == 0
	case *Params:
		return t.Len() == 0
	case []any:
		return len(t) == 0
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map:
		return rv.Len() == 0
	}
	return false
}
