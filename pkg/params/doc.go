// Package params provides whitelist-based filtering of untrusted request
// parameters to prevent mass assignment vulnerabilities.
//
// The package is built around the Params tree, an ordered, string-keyed
// container holding the decoded body or query of a request. A tree starts
// out unpermitted; handlers declare the keys and shapes they accept with
// Permit, and everything undeclared is dropped. Model-binding layers can
// then refuse any tree that never went through a filter.
//
// # Architecture
//
// Three pieces cooperate:
//
// 1. Params - the ordered parameter tree with indifferent key access
// 2. Permit - the recursive whitelist filter producing permitted copies
// 3. Policy - the process-wide decision on what to do with dropped keys
//
// Trees convert nested maps and arrays lazily: raw values stay as decoded
// until first read, then become nested *Params or converted slices and are
// memoized. Keys are normalized to NFC strings on the way in, so Get(1),
// Get("1") and differently-composed Unicode spellings address the same
// entry.
//
// # Usage
//
// The common shape is a require-then-permit chain:
//
//	import "github.com/durable-oss/durable-parameters/pkg/params"
//
//	raw := params.New(decodedBody)
//
//	user, err := raw.RequireParams("user")
//	if err != nil {
//		// Missing or empty top-level key
//	}
//
//	clean, err := user.Permit("name", "email", map[string]any{
//		"tags":    []any{},
//		"address": []any{"street", "city"},
//	})
//	if err != nil {
//		// Raise policy rejected undeclared keys
//	}
//
//	account.Name = clean.Get("name").(string)
//
// # Filter Declarations
//
// Permit accepts three filter shapes, composable and spliceable:
//
//   - A bare string permits one scalar key, plus its grouped siblings of
//     the form key(<digits>i) used by multiparameter date fields.
//   - A map value of []any{} permits an array of scalars under the key;
//     one non-scalar element rejects the whole array.
//   - A map value of map[string]any{} permits a free-form subtree.
//   - Any other map value recurses: nested trees, arrays of trees, and
//     indexed fields-for collections (every key an integer string, every
//     value a tree) are filtered element by element.
//
// Scalars are strings, byte slices, booleans, all numeric kinds,
// json.Number, big numbers, decimal.Decimal, uuid.UUID, time values,
// durations, io.Reader implementors and nil. RegisterScalarType and
// RegisterScalarCheck widen the set for application-specific value types.
//
// # Unpermitted Keys
//
// Keys the filters do not cover are always dropped from the result. The
// process-wide policy decides whether that is silent (default), logged, or
// an error:
//
//	policy, err := params.LoadPolicy() // PARAMS_ON_UNPERMITTED, PARAMS_ALWAYS_PERMITTED
//	if err != nil {
//		log.Fatal(err)
//	}
//	params.SetPolicy(policy)
//
// With the raise action, Permit returns an *UnpermittedParametersError
// naming every rejected key. Routing keys listed in AlwaysPermitted never
// count as unpermitted.
//
// # Error Handling
//
// Failures carry sentinel errors for errors.Is checks and typed wrappers
// for detail:
//
//	_, err := raw.Require("user")
//	if errors.Is(err, params.ErrParameterMissing) {
//		var missing *params.ParameterMissingError
//		if errors.As(err, &missing) {
//			// missing.Key, missing.AvailableKeys, missing.Suggestions()
//		}
//	}
//
// # Concurrency
//
// A Params tree is owned by one request and is not safe for concurrent
// use. The policy and the scalar extension set are process-wide,
// read-write-mutex guarded, and safe to read from any goroutine.
package params
