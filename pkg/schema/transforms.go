package schema

import "strings"

// Chain composes transforms into one, feeding each result into the next.
// Nil entries are skipped; the first error aborts the chain.
func Chain(fns ...TransformFunc) TransformFunc {
	return func(value any, meta Metadata) (any, error) {
		result := value
		for _, fn := range fns {
			if fn == nil {
				continue
			}
			var err error
			result, err = fn(result, meta)
			if err != nil {
				return nil, err
			}
		}
		return result, nil
	}
}

// TrimStrings removes surrounding whitespace from string values: a bare
// string, the string elements of a slice, or the string values of a map
// (one level deep). Anything else passes through unchanged.
func TrimStrings(value any, _ Metadata) (any, error) {
	return mapStrings(value, strings.TrimSpace), nil
}

// LowercaseStrings lowercases string values with the same reach as
// TrimStrings.
func LowercaseStrings(value any, _ Metadata) (any, error) {
	return mapStrings(value, strings.ToLower), nil
}

// StripEmpty drops empty-string elements from slices. Bare values and
// maps pass through unchanged.
func StripEmpty(value any, _ Metadata) (any, error) {
	switch t := value.(type) {
	case []any:
		kept := make([]any, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok && s == "" {
				continue
			}
			kept = append(kept, e)
		}
		return kept, nil
	case []string:
		kept := make([]string, 0, len(t))
		for _, s := range t {
			if s == "" {
				continue
			}
			kept = append(kept, s)
		}
		return kept, nil
	}
	return value, nil
}

func mapStrings(value any, fn func(string) string) any {
	switch t := value.(type) {
	case string:
		return fn(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			if s, ok := e.(string); ok {
				out[i] = fn(s)
			} else {
				out[i] = e
			}
		}
		return out
	case []string:
		out := make([]string, len(t))
		for i, s := range t {
			out[i] = fn(s)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			if s, ok := e.(string); ok {
				out[k] = fn(s)
			} else {
				out[k] = e
			}
		}
		return out
	}
	return value
}
