// Package executor runs GraphQL request documents breadth-first against a
// schema.Schema, delegating field resolution and leaf serialization to a
// Runtime.
//
// # Request lifecycle
//
//  1. The operation is selected by name, or by uniqueness when unnamed.
//  2. The selection tree is validated against the schema. Unknown fields,
//     unknown or missing arguments and selection/type mismatches are all
//     reported at once and abort the request before any resolver runs. Every
//     validation error carries extensions.code GRAPHQL_VALIDATION_FAILED.
//  3. Variables are coerced against the operation's variable definitions.
//  4. The root selection set is executed. Synchronous fields resolve in place
//     through Runtime.ResolveSync and their sub-selections expand immediately.
//     Asynchronous fields are queued.
//  5. Queued fields are flushed with exactly one Runtime.BatchResolveAsync call
//     per depth. Completing their values may queue the next depth.
//
// For a request whose deepest chain crosses d asynchronous fields,
// BatchResolveAsync is called exactly d times. Synchronous descents never add a
// batch.
//
// # Results
//
// Response objects are Object values, which keep the requested field order
// when marshalled to JSON. A field failure becomes a located GraphQLError and
// the field is set to null. A null in a Non-Null position propagates to the
// nearest nullable ancestor; queued work beneath a nulled path is dropped
// before the next flush. Errors implementing ExtensionsError contribute their
// extensions to the located error.
//
// Whether a field is synchronous or asynchronous is decided by the schema
// (schema.Field.Async). See runtime.go for the Runtime contract.
package executor
