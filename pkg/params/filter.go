package params

import (
	"reflect"
	"regexp"
	"slices"
)

var (
	groupedSuffixRe = regexp.MustCompile(`^\(\d+[if]?\)$`)
	numericKeyRe    = regexp.MustCompile(`^-?\d+$`)
)

// Permit returns a new permitted tree containing only the entries the
// filters whitelist. Filters are strings naming scalar keys, map-shaped
// specs describing nested structure, or slices of either (spliced in
// place). Inside a map spec, an empty slice declares an array of scalars,
// an empty map declares a free-form subtree, and anything else recurses.
//
// Undeclared keys are dropped. Depending on the process-wide policy the
// dropped keys are additionally ignored, logged, or turned into an
// UnpermittedParametersError; nested permits apply the policy at their own
// level. The receiver is never modified.
func (p *Params) Permit(filters ...any) (*Params, error) {
	out := newEmpty()
	out.required = p.required

	for _, filter := range flattenFilters(filters) {
		switch t := filter.(type) {
		case nil:
			continue
		case string:
			p.permitScalarKey(out, normalizeString(t))
		default:
			if spec, ok := asSpecMap(t); ok {
				if err := p.permitMap(out, spec); err != nil {
					return nil, err
				}
				continue
			}
			p.permitScalarKey(out, normalizeKey(t))
		}
	}

	if err := p.enforceUnpermitted(out); err != nil {
		return nil, err
	}
	return out.PermitAll(), nil
}

// flattenFilters splices nested filter slices into a single list, the way
// variadic and grouped declarations are expected to compose.
func flattenFilters(filters []any) []any {
	out := make([]any, 0, len(filters))
	for _, f := range filters {
		switch t := f.(type) {
		case []any:
			out = append(out, flattenFilters(t)...)
		case []string:
			for _, s := range t {
				out = append(out, s)
			}
		default:
			out = append(out, f)
		}
	}
	return out
}

// permitScalarKey copies the named entry when its value is a permitted
// scalar, then copies every grouped sibling of the form name(<digits>)
// with an optional i or f suffix, the multiparameter date/time convention.
func (p *Params) permitScalarKey(out *Params, name string) {
	if p.Has(name) {
		if v := p.Get(name); IsScalar(v) {
			out.Set(name, v)
		}
	}
	for _, key := range p.keys {
		if len(key) <= len(name) || key[:len(name)] != name {
			continue
		}
		if !groupedSuffixRe.MatchString(key[len(name):]) {
			continue
		}
		if v := p.Get(key); IsScalar(v) {
			out.Set(key, v)
		}
	}
}

// permitMap walks the source keys in order and applies the declared
// sub-filter to each key the spec covers. Keys absent from the spec are
// left for the unpermitted check; nil source values are skipped.
func (p *Params) permitMap(out *Params, spec map[string]any) error {
	for _, key := range p.Keys() {
		filter, declared := spec[key]
		if !declared {
			continue
		}
		value := p.Get(key)
		if value == nil {
			continue
		}

		switch {
		case isEmptySliceSpec(filter):
			if arr, ok := value.([]any); ok && isArrayOfPermittedScalars(arr) {
				out.Set(key, slices.Clone(arr))
			}
		case isEmptyMapSpec(filter):
			if tree, ok := value.(*Params); ok {
				out.Set(key, permitAnyInTree(tree))
			}
		default:
			if err := p.permitNested(out, key, value, filter); err != nil {
				return err
			}
		}
	}
	return nil
}

// permitNested applies a structured sub-filter to a nested tree, to every
// tree element of an array, or to every indexed element of a fields-for
// collection. Scalars under a structured filter are dropped.
func (p *Params) permitNested(out *Params, key string, value any, filter any) error {
	subFilters := subFilterList(filter)

	switch t := value.(type) {
	case *Params:
		if isIndexedCollection(t) {
			collection := newEmpty()
			for _, idx := range t.Keys() {
				child := t.Get(idx).(*Params)
				filtered, err := child.Permit(subFilters...)
				if err != nil {
					return err
				}
				collection.Set(idx, filtered)
			}
			out.Set(key, collection)
			return nil
		}
		filtered, err := t.Permit(subFilters...)
		if err != nil {
			return err
		}
		out.Set(key, filtered)
	case []any:
		kept := make([]any, 0, len(t))
		for _, elem := range t {
			child, ok := elem.(*Params)
			if !ok {
				continue
			}
			filtered, err := child.Permit(subFilters...)
			if err != nil {
				return err
			}
			kept = append(kept, filtered)
		}
		out.Set(key, kept)
	}
	return nil
}

// subFilterList unwraps the spec value for a nested key into the filter
// list passed to the recursive permit: slices splice, single filters wrap.
func subFilterList(filter any) []any {
	switch t := filter.(type) {
	case []any:
		return t
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	}
	return []any{filter}
}

// asSpecMap converts any map-kinded filter into a spec map with
// normalized keys.
func asSpecMap(filter any) (map[string]any, bool) {
	rv := reflect.ValueOf(filter)
	if rv.Kind() != reflect.Map {
		return nil, false
	}
	spec := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		spec[normalizeKey(iter.Key().Interface())] = iter.Value().Interface()
	}
	return spec, true
}

func isEmptySliceSpec(filter any) bool {
	switch t := filter.(type) {
	case []any:
		return len(t) == 0
	case []string:
		return len(t) == 0
	}
	rv := reflect.ValueOf(filter)
	return rv.Kind() == reflect.Slice && rv.Len() == 0
}

func isEmptyMapSpec(filter any) bool {
	rv := reflect.ValueOf(filter)
	return rv.Kind() == reflect.Map && rv.Len() == 0
}

// isIndexedCollection reports whether the tree looks like an indexed
// form collection: non-empty, every key an integer string and every value
// a nested tree.
func isIndexedCollection(p *Params) bool {
	if p.IsEmpty() {
		return false
	}
	for _, key := range p.keys {
		if !numericKeyRe.MatchString(key) {
			return false
		}
		if _, ok := p.Get(key).(*Params); !ok {
			return false
		}
	}
	return true
}

// permitAnyInTree copies a free-form subtree keeping scalars, recursing
// into nested trees and filtering arrays element-wise. Values that are
// neither scalars, trees, nor arrays are dropped.
func permitAnyInTree(p *Params) *Params {
	out := newEmpty()
	out.required = p.required
	for _, key := range p.keys {
		switch t := p.Get(key).(type) {
		case *Params:
			out.Set(key, permitAnyInTree(t))
		case []any:
			out.Set(key, permitAnyInArray(t))
		default:
			if IsScalar(t) {
				out.Set(key, t)
			}
		}
	}
	return out
}

// permitAnyInArray keeps scalar elements and recursed trees; nested
// arrays and anything else are dropped.
func permitAnyInArray(arr []any) []any {
	kept := make([]any, 0, len(arr))
	for _, elem := range arr {
		switch t := elem.(type) {
		case *Params:
			kept = append(kept, permitAnyInTree(t))
		case []any:
			continue
		default:
			if IsScalar(t) {
				kept = append(kept, t)
			}
		}
	}
	return kept
}

// enforceUnpermitted applies the process-wide policy to the source keys
// the permit did not carry over, minus the always-permitted set.
func (p *Params) enforceUnpermitted(out *Params) error {
	policy := CurrentPolicy()
	if policy.OnUnpermitted == UnpermittedNone {
		return nil
	}

	unpermitted := p.unpermittedKeys(out, policy.AlwaysPermitted)
	if len(unpermitted) == 0 {
		return nil
	}

	switch policy.OnUnpermitted {
	case UnpermittedRaise:
		return &UnpermittedParametersError{Keys: unpermitted}
	case UnpermittedLog:
		policy.dispatch(unpermitted)
	}
	return nil
}

func (p *Params) unpermittedKeys(out *Params, alwaysPermitted []string) []string {
	skip := make(map[string]struct{}, len(alwaysPermitted))
	for _, key := range alwaysPermitted {
		skip[normalizeString(key)] = struct{}{}
	}
	var keys []string
	for _, key := range p.keys {
		if out.Has(key) {
			continue
		}
		if _, ok := skip[key]; ok {
			continue
		}
		keys = append(keys, key)
	}
	return keys
}
