// Package assign guards the boundary between filtered request parameters
// and application models: it binds parameter values onto structs and maps,
// and refuses any source that never passed a permit filter.
//
// The guard is the Sanitizable interface. Anything reaching Struct or Map
// must report its permitted state explicitly; a filtered params.Params tree
// satisfies it, and an unpermitted one is rejected with a
// ForbiddenAttributesError before the target is touched.
//
// # Usage
//
//	import (
//		"github.com/durable-oss/durable-parameters/pkg/assign"
//		"github.com/durable-oss/durable-parameters/pkg/params"
//	)
//
//	type UserInput struct {
//		Name    string          `params:"name"`
//		Email   string          `params:"email"`
//		Balance decimal.Decimal `params:"balance"`
//		Secret  string          `params:"-"` // Never bound
//	}
//
//	filtered, err := params.New(decodedBody).Permit("name", "email", "balance")
//	if err != nil {
//		return err
//	}
//
//	var input UserInput
//	if err := assign.Struct(&input, filtered); err != nil {
//		// ForbiddenAttributes or a field conversion failure
//	}
//
// Fields bind by the params struct tag, falling back to the lowercased
// field name. Conversions cover the scalar leaf types the parameter layer
// carries: strings, booleans, all numeric kinds with overflow checks,
// time.Time, uuid.UUID, decimal.Decimal, slices of those, pointers for
// optional fields, and nested structs from nested maps or trees.
//
// Map copies the source's entries into an existing map with the same
// permitted-source guard.
package assign
