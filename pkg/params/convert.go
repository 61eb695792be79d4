package params

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// normalizeKey converts any key to its canonical string form: nil becomes
// the empty string, booleans and numerics their base-10 representation, and
// strings are NFC-normalized so visually identical Unicode keys compare
// equal. Every key entering a tree, whether at construction or through Set,
// goes through here.
func normalizeKey(key any) string {
	switch k := key.(type) {
	case nil:
		return ""
	case string:
		return normalizeString(k)
	case bool:
		return strconv.FormatBool(k)
	case int:
		return strconv.Itoa(k)
	case int8:
		return strconv.FormatInt(int64(k), 10)
	case int16:
		return strconv.FormatInt(int64(k), 10)
	case int32:
		return strconv.FormatInt(int64(k), 10)
	case int64:
		return strconv.FormatInt(k, 10)
	case uint:
		return strconv.FormatUint(uint64(k), 10)
	case uint8:
		return strconv.FormatUint(uint64(k), 10)
	case uint16:
		return strconv.FormatUint(uint64(k), 10)
	case uint32:
		return strconv.FormatUint(uint64(k), 10)
	case uint64:
		return strconv.FormatUint(k, 10)
	case float32:
		return strconv.FormatFloat(float64(k), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(k, 'g', -1, 64)
	case fmt.Stringer:
		return normalizeString(k.String())
	default:
		return normalizeString(fmt.Sprintf("%v", key))
	}
}

func normalizeString(s string) string {
	if norm.NFC.IsNormalString(s) {
		return s
	}
	return norm.NFC.String(s)
}

// convertValue turns stored raw values into their canonical in-tree shape:
// maps of any key type become *Params, slices become []any with converted
// elements, []byte stays scalar. The second return reports whether the
// value changed so callers can write the converted form back in place.
func convertValue(v any) (any, bool) {
	switch t := v.(type) {
	case nil:
		return nil, false
	case *Params:
		return t, false
	case map[string]any:
		return newFromStringMap(t), true
	case map[any]any:
		return newFromAnyMap(t), true
	case []byte:
		return t, false
	case []any:
		return convertSlice(t), true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		return newFromReflectMap(rv), true
	case reflect.Slice:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return convertSlice(out), true
	}
	return v, false
}

func convertSlice(in []any) []any {
	out := make([]any, len(in))
	for i, v := range in {
		converted, _ := convertValue(v)
		out[i] = converted
	}
	return out
}

// toPlain is the inverse of convertValue: trees and raw maps become plain
// map[string]any with normalized string keys, slices become []any, scalars
// pass through. Backs ToMap regardless of permitted state.
func toPlain(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case *Params:
		return t.ToMap()
	case []byte:
		return t
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = toPlain(e)
		}
		return out
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		return newFromReflectMap(rv).ToMap()
	case reflect.Slice:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = toPlain(rv.Index(i).Interface())
		}
		return out
	}
	return v
}

// Go maps have no defined iteration order, so trees built from raw maps
// store their keys sorted; keys added later through Set keep insertion
// order. This is what makes Keys, ToMap and missing-key suggestions
// deterministic.
func newFromStringMap(raw map[string]any) *Params {
	p := newEmpty()
	keys := make([]string, 0, len(raw))
	for k, v := range raw {
		nk := normalizeKey(k)
		if _, dup := p.values[nk]; dup {
			continue
		}
		keys = append(keys, nk)
		p.values[nk] = v
	}
	sort.Strings(keys)
	p.keys = keys
	return p
}

func newFromAnyMap(raw map[any]any) *Params {
	p := newEmpty()
	keys := make([]string, 0, len(raw))
	for k, v := range raw {
		nk := normalizeKey(k)
		if _, dup := p.values[nk]; dup {
			continue
		}
		keys = append(keys, nk)
		p.values[nk] = v
	}
	sort.Strings(keys)
	p.keys = keys
	return p
}

func newFromReflectMap(rv reflect.Value) *Params {
	p := newEmpty()
	keys := make([]string, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		nk := normalizeKey(iter.Key().Interface())
		if _, dup := p.values[nk]; dup {
			continue
		}
		keys = append(keys, nk)
		p.values[nk] = iter.Value().Interface()
	}
	sort.Strings(keys)
	p.keys = keys
	return p
}
