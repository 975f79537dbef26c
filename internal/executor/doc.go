// Package executor runs GraphQL operations breadth first so that loader
// backed fields of one depth resolve in a single batch.
//
// Fields are either sync or async, as marked by schema.Field.Async. A sync
// field resolves immediately through Runtime.ResolveSync and its object
// result is expanded in place, so descending through sync fields never adds
// depth. An async field is queued; once the current depth is expanded every
// queued task goes to Runtime.BatchResolveAsync in one call and the results
// are completed, which may queue the next depth. An operation whose deepest
// async chain is d fields long therefore makes exactly d batch calls.
//
// Completion follows the GraphQL rules for lists, leaves, objects and
// abstract types. Leaves are serialized by the runtime and abstract values
// are resolved to an object type by the runtime. A null or error on a
// Non-Null field nulls the nearest nullable ancestor and drops any queued
// task below it. Errors are collected with their response path and the rest
// of the response still resolves.
//
// Resolver errors implementing ExtendedError carry their extensions into the
// response. Mutation root fields run in document order when they are sync,
// which is how the registry marks them.
package executor
