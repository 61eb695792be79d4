package assign

import (
	"errors"
	"fmt"
	"strings"
)

// Predefined errors for the assign package.
var (
	// ErrForbiddenAttributes indicates the source was never permitted and
	// must not reach a model.
	ErrForbiddenAttributes = errors.New("assign: attributes are not permitted for mass assignment")

	// ErrInvalidTarget indicates the assignment target cannot receive
	// values (nil, non-pointer, or not a struct/map).
	ErrInvalidTarget = errors.New("assign: invalid assignment target")

	// ErrAssign indicates a value could not be converted to its target
	// field.
	ErrAssign = errors.New("assign: cannot assign value")
)

// ForbiddenAttributesError is returned when an unpermitted parameter set
// reaches Struct or Map. Keys lists the source's top-level keys to make
// the offending call site easy to locate in logs.
type ForbiddenAttributesError struct {
	Keys []string
}

func (e *ForbiddenAttributesError) Error() string {
	if len(e.Keys) == 0 {
		return "assign: attributes are not permitted for mass assignment"
	}
	return fmt.Sprintf(
		"assign: attributes are not permitted for mass assignment: %s",
		strings.Join(e.Keys, ", "),
	)
}

// Unwrap allows errors.Is(err, ErrForbiddenAttributes) matching.
func (e *ForbiddenAttributesError) Unwrap() error { return ErrForbiddenAttributes }
