package schema

import (
	"maps"
	"slices"
)

// attributeOptions holds the per-attribute rule state an Allow call can
// attach: action scoping, array emission and opaque extras.
type attributeOptions struct {
	only   []string
	except []string
	array  bool
	extra  map[string]any
}

func newAttributeOptions() *attributeOptions {
	return &attributeOptions{extra: make(map[string]any)}
}

func (o *attributeOptions) clone() *attributeOptions {
	return &attributeOptions{
		only:   slices.Clone(o.only),
		except: slices.Clone(o.except),
		array:  o.array,
		extra:  maps.Clone(o.extra),
	}
}

// includedFor reports whether an attribute with these options participates
// in the permitted set for the given action. The empty action bypasses
// only/except scoping entirely.
func (o *attributeOptions) includedFor(action string) bool {
	if action == "" {
		return true
	}
	if len(o.only) > 0 && !slices.Contains(o.only, action) {
		return false
	}
	return !slices.Contains(o.except, action)
}

// AttributeOption configures a single allowed attribute.
type AttributeOption func(*attributeOptions)

// Only restricts the attribute to the named actions. Re-applying replaces
// the previous restriction.
func Only(actions ...string) AttributeOption {
	return func(o *attributeOptions) {
		o.only = slices.Clone(actions)
	}
}

// Except excludes the attribute from the named actions. Re-applying
// replaces the previous exclusion.
func Except(actions ...string) AttributeOption {
	return func(o *attributeOptions) {
		o.except = slices.Clone(actions)
	}
}

// AsArray marks the attribute as an array of scalars, so the permitted
// set declares it in the whole-array form.
func AsArray() AttributeOption {
	return func(o *attributeOptions) {
		o.array = true
	}
}

// WithOption stores an opaque extra on the attribute for callers that
// layer their own conventions on top of schemas. Extras do not affect
// filtering.
func WithOption(key string, value any) AttributeOption {
	return func(o *attributeOptions) {
		o.extra[key] = value
	}
}
