package schema

import (
	"slices"
	"sort"

	"github.com/durable-oss/durable-parameters/pkg/params"
)

// Options controls one TransformAndPermit call. Action selects the
// schema's per-action attribute scoping, Additional appends extra filter
// specifications to the schema's permitted set, and Metadata is handed to
// every transform after validation against the schema's declarations.
type Options struct {
	Action     string
	Additional []any
	Metadata   Metadata
}

// TransformAndPermit runs the schema's transformation pipeline over the
// tree and filters the result down to the schema's permitted attributes
// for the action. A nil schema short-circuits to an empty permitted tree;
// a missing schema is a safe default, not a failure. Metadata keys the
// schema never declared fail fast with an UndeclaredMetadataError before
// any transform runs. The returned tree carries the source's required-key
// marker.
func TransformAndPermit(p *params.Params, s *Schema, opts Options) (*params.Params, error) {
	if p == nil {
		return emptyPermitted(""), nil
	}
	if s == nil {
		return emptyPermitted(p.RequiredKey()), nil
	}

	if err := validateMetadata(s, opts.Metadata); err != nil {
		return nil, err
	}

	transformed, err := s.ApplyTransformations(p.ToMap(), opts.Metadata)
	if err != nil {
		return nil, err
	}

	tree := params.NewFromAny(transformed)
	tree.SetRequiredKey(p.RequiredKey())

	filters := slices.Clone(s.PermittedAttributes(opts.Action))
	filters = append(filters, opts.Additional...)
	return tree.Permit(filters...)
}

// TransformAndPermitInferred resolves the schema from the tree's
// required-key marker. A tree that never went through Require, or a
// marker with no registered schema, short-circuits to an empty permitted
// tree.
func (r *Registry) TransformAndPermitInferred(p *params.Params, opts Options) (*params.Params, error) {
	if p == nil {
		return emptyPermitted(""), nil
	}

	key := p.RequiredKey()
	if key == "" {
		return emptyPermitted(""), nil
	}

	s, _ := r.Lookup(key)
	return TransformAndPermit(p, s, opts)
}

func emptyPermitted(requiredKey string) *params.Params {
	p := params.New(nil)
	p.SetRequiredKey(requiredKey)
	return p.PermitAll()
}

// validateMetadata checks every metadata key against the schema's
// declarations and reports all offenders at once, sorted for stable
// messages.
func validateMetadata(s *Schema, meta Metadata) error {
	if len(meta) == 0 {
		return nil
	}

	var undeclared []string
	for key := range meta {
		if !s.MetadataAllowed(key) {
			undeclared = append(undeclared, key)
		}
	}
	if len(undeclared) == 0 {
		return nil
	}
	sort.Strings(undeclared)
	return &UndeclaredMetadataError{Schema: s.Name(), Keys: undeclared}
}
