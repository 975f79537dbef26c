package executor

import (
	"context"
)

// Runtime is the host side of execution. The registry runtime serves
// registered field resolvers through it; tests use MockRuntime.
//
// At each depth the Executor resolves sync fields through ResolveSync as it
// meets them, then passes every async field found at that depth to a single
// BatchResolveAsync call. The next depth starts only after that call returns.
// Tasks under a path already nulled by a Non-Null violation are dropped before
// the batch, and a cancelled context stops execution between depths.
//
// objectType is the parent type name (the root type name for root fields),
// source is the parent value (nil at the root) and args hold coerced values.
// Errors from any method become located GraphQL errors. Implementations must
// not mutate source or args and must be safe for concurrent operations.
type Runtime interface {
	// ResolveSync resolves a field whose definition is not Async. The
	// returned value is completed against the field type; (nil, nil) is null.
	ResolveSync(ctx context.Context, objectType string, field string, source any, args map[string]any) (any, error)

	// BatchResolveAsync resolves every async field met at one depth. It must
	// return one result per task, in task order. A failing task reports its
	// error in its own result and does not fail the others.
	BatchResolveAsync(ctx context.Context, tasks []AsyncResolveTask) []AsyncResolveResult

	// ResolveType names the object type of a value of an interface or
	// union. The name must be one of the abstract type's possible types.
	ResolveType(ctx context.Context, abstractType string, value any) (string, error)

	// SerializeLeafValue converts a scalar or enum value to its JSON form.
	// Enums serialize as their value name and custom scalars apply their own
	// encoding.
	SerializeLeafValue(ctx context.Context, typeName string, value any) (any, error)
}

// AsyncResolveTask is one async field at the current depth.
type AsyncResolveTask struct {
	ObjectType string
	Field      string
	Source     any
	Args       map[string]any
}

// AsyncResolveResult pairs with the task at the same index.
type AsyncResolveResult struct {
	Value any
	Error error
}
