package params

import (
	"errors"
	"fmt"
	"strings"
)

// Predefined errors for the params package.
var (
	// ErrParameterMissing indicates that a required key is absent or empty.
	ErrParameterMissing = errors.New("params: required parameter is missing or empty")

	// ErrUnpermittedParameters indicates that undeclared keys were found while
	// the unpermitted-parameters policy is set to raise.
	ErrUnpermittedParameters = errors.New("params: found unpermitted parameters")

	// ErrNotNested indicates that a value expected to be a nested parameter
	// set turned out to be a scalar or an array.
	ErrNotNested = errors.New("params: value is not a nested parameter set")

	// ErrInvalidPolicy indicates the unpermitted-parameters policy could not
	// be loaded from the environment.
	ErrInvalidPolicy = errors.New("params: invalid unpermitted-parameters policy")
)

// ParameterMissingError is returned by Require and Fetch when a key is absent
// or, for Require, present but empty. It carries the offending key and the
// keys that were available at the failure site so adapters can surface
// actionable 400-class responses.
type ParameterMissingError struct {
	Key           string
	AvailableKeys []string
}

func newParameterMissing(key string, available []string) *ParameterMissingError {
	return &ParameterMissingError{Key: key, AvailableKeys: available}
}

// Error formats the failure with the available sibling keys and up to three
// "did you mean" suggestions when any candidate resembles the missing key.
func (e *ParameterMissingError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "params: required key %q is missing or empty", e.Key)
	if len(e.AvailableKeys) > 0 {
		b.WriteString("; known keys: ")
		b.WriteString(strings.Join(e.AvailableKeys, ", "))
		if suggestions := suggestKeys(e.Key, e.AvailableKeys); len(suggestions) > 0 {
			b.WriteString("; did you mean: ")
			b.WriteString(strings.Join(suggestions, ", "))
			b.WriteString("?")
		}
	}
	return b.String()
}

// Unwrap allows errors.Is(err, ErrParameterMissing) matching.
func (e *ParameterMissingError) Unwrap() error { return ErrParameterMissing }

// Suggestions returns the "did you mean" candidates for the missing key,
// at most three, in the order the available keys were stored.
func (e *ParameterMissingError) Suggestions() []string {
	return suggestKeys(e.Key, e.AvailableKeys)
}

// UnpermittedParametersError is returned by Permit when the policy is
// UnpermittedRaise and the source tree contained keys the filter spec did
// not declare. Keys holds the rejected keys in source order.
type UnpermittedParametersError struct {
	Keys []string
}

func (e *UnpermittedParametersError) Error() string {
	return fmt.Sprintf("params: found unpermitted parameters: %s", strings.Join(e.Keys, ", "))
}

// Unwrap allows errors.Is(err, ErrUnpermittedParameters) matching.
func (e *UnpermittedParametersError) Unwrap() error { return ErrUnpermittedParameters }
