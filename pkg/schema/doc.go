// Package schema declares, per model, which attributes may be
// mass-assigned, and compiles those declarations into the filter
// specifications consumed by the params package.
//
// A Schema is built once with fluent rule methods and then queried on
// every request. Declarations cover allowed and denied attributes, action
// scoping (only/except), array attributes, transformation callbacks,
// readable metadata keys and free-form flags. A Registry maps normalized
// model names to schemas so request handlers can resolve the right schema
// from the key a Require call stamped on the tree.
//
// # Usage
//
// Declare a schema and register it:
//
//	import "github.com/durable-oss/durable-parameters/pkg/schema"
//
//	user := schema.New("user").
//		Allow("name").
//		Allow("email", schema.Only("create", "update")).
//		Allow("tags", schema.AsArray()).
//		Deny("role").
//		Metadata("ip_address").
//		Transform("email", schema.Chain(schema.TrimStrings, schema.LowercaseStrings))
//
//	registry := schema.NewRegistry()
//	registry.Register("user", user)
//
// Then sanitize request input against it:
//
//	raw := params.New(decodedBody)
//	tree, err := raw.RequireParams("user")
//	if err != nil {
//		// 400: missing key
//	}
//
//	clean, err := registry.TransformAndPermitInferred(tree, schema.Options{
//		Action:   "create",
//		Metadata: schema.Metadata{"current_user": actor},
//	})
//
// TransformAndPermitInferred resolves the schema from the required-key
// marker Require left on the tree; TransformAndPermit takes the schema
// explicitly. Either way the transforms run first, over structural copies
// of the values, and the result is filtered down to
// PermittedAttributes(action).
//
// # Inheritance
//
// Extend snapshots a schema into a new one:
//
//	admin := user.Extend("admin_user").Allow("role_override")
//
// The snapshot is deep and one-time: changing the parent afterwards never
// changes the child, and vice versa.
//
// # Manifests
//
// Schemas without transforms can live in YAML:
//
//	schemas, err := schema.LoadManifest(file)
//	err = schema.RegisterManifest(registry, file)
//
// Manifest-defined schemas are plain schemas; attach transforms in code
// after loading when needed.
//
// # Concurrency
//
// Registry and Schema are safe for concurrent use. Definition methods are
// expected to run at startup; PermittedAttributes memoizes per action and
// Allow and Deny invalidate that cache.
package schema
