package schema

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"
)

// Manifest layout, one schema per top-level key:
//
//	user:
//	  allow:
//	    - name
//	    - email
//	    - status: {only: [create, update]}
//	    - tags:   {array: true}
//	  deny: [admin]
//	  metadata: [ip_address]
//	  flags:
//	    audited: true
//
// Transforms are code and cannot be declared in a manifest; attach them
// with Transform after loading.
type manifestSchema struct {
	Allow    []manifestAttribute `yaml:"allow"`
	Deny     []string            `yaml:"deny"`
	Metadata []string            `yaml:"metadata"`
	Flags    map[string]any      `yaml:"flags"`
}

type manifestAttribute struct {
	Name   string
	Only   []string
	Except []string
	Array  bool
}

type manifestAttributeOptions struct {
	Only   []string `yaml:"only"`
	Except []string `yaml:"except"`
	Array  bool     `yaml:"array"`
}

// UnmarshalYAML accepts either a bare attribute name or a single-key
// mapping from name to options.
func (a *manifestAttribute) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		return node.Decode(&a.Name)
	case yaml.MappingNode:
		var entry map[string]manifestAttributeOptions
		if err := node.Decode(&entry); err != nil {
			return err
		}
		if len(entry) != 1 {
			return fmt.Errorf("attribute entry must have exactly one key, got %d", len(entry))
		}
		for name, opts := range entry {
			a.Name = name
			a.Only = opts.Only
			a.Except = opts.Except
			a.Array = opts.Array
		}
		return nil
	}
	return fmt.Errorf("attribute entry must be a name or a single-key mapping, got yaml kind %d", node.Kind)
}

// LoadManifest parses a YAML manifest into schemas, sorted by name. An
// empty document yields no schemas and no error.
func LoadManifest(r io.Reader) ([]*Schema, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Join(ErrInvalidManifest, err)
	}

	var doc map[string]manifestSchema
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, errors.Join(ErrInvalidManifest, err)
	}

	names := make([]string, 0, len(doc))
	for name := range doc {
		names = append(names, name)
	}
	sort.Strings(names)

	schemas := make([]*Schema, 0, len(doc))
	for _, name := range names {
		def := doc[name]
		s := New(name)

		for _, attr := range def.Allow {
			if attr.Name == "" {
				return nil, errors.Join(ErrInvalidManifest,
					fmt.Errorf("schema %q: attribute name cannot be empty", name))
			}
			var opts []AttributeOption
			if len(attr.Only) > 0 {
				opts = append(opts, Only(attr.Only...))
			}
			if len(attr.Except) > 0 {
				opts = append(opts, Except(attr.Except...))
			}
			if attr.Array {
				opts = append(opts, AsArray())
			}
			s.Allow(attr.Name, opts...)
		}
		for _, denied := range def.Deny {
			s.Deny(denied)
		}
		if len(def.Metadata) > 0 {
			s.Metadata(def.Metadata...)
		}
		for flag, value := range def.Flags {
			s.Flag(flag, value)
		}

		schemas = append(schemas, s)
	}
	return schemas, nil
}

// RegisterManifest loads a manifest and registers every schema it defines
// under its own name.
func RegisterManifest(reg *Registry, r io.Reader) error {
	schemas, err := LoadManifest(r)
	if err != nil {
		return err
	}
	for _, s := range schemas {
		reg.Register(s.Name(), s)
	}
	return nil
}
