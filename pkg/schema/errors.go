package schema

import (
	"errors"
	"fmt"
	"strings"
)

// Predefined errors for the schema package.
var (
	// ErrUndeclaredMetadata indicates that call-time metadata contained keys
	// the schema never declared readable.
	ErrUndeclaredMetadata = errors.New("schema: metadata keys not declared")

	// ErrInvalidManifest indicates that a YAML schema manifest could not be
	// parsed into schema definitions.
	ErrInvalidManifest = errors.New("schema: invalid manifest")
)

// UndeclaredMetadataError is returned by TransformAndPermit before any
// transformation runs when the call-scoped metadata holds keys the schema
// did not declare with Metadata. Keys lists every offending key.
type UndeclaredMetadataError struct {
	Schema string
	Keys   []string
}

// Error names the schema, each undeclared key, and the declaration that
// fixes the failure.
func (e *UndeclaredMetadataError) Error() string {
	quoted := make([]string, len(e.Keys))
	for i, k := range e.Keys {
		quoted[i] = fmt.Sprintf("%q", k)
	}
	return fmt.Sprintf(
		"schema: metadata keys not declared on %q: %s; declare them with Metadata(%s)",
		e.Schema,
		strings.Join(e.Keys, ", "),
		strings.Join(quoted, ", "),
	)
}

// Unwrap allows errors.Is(err, ErrUndeclaredMetadata) matching.
func (e *UndeclaredMetadataError) Unwrap() error { return ErrUndeclaredMetadata }
