package executor

import (
	"context"
	"fmt"
	"sync"
)

// MockResolver resolves one field value for a MockRuntime.
type MockResolver func(ctx context.Context, source any, args map[string]any) (any, error)

// Call kinds recorded by MockRuntime.
const (
	CallKindSync  = "sync"
	CallKindAsync = "async"
)

// NewMockValueResolver returns a resolver that always yields val.
func NewMockValueResolver(val any) MockResolver {
	return func(context.Context, any, map[string]any) (any, error) { return val, nil }
}

// NewMockErrorResolver returns a resolver that always fails with err.
func NewMockErrorResolver(err error) MockResolver {
	return func(context.Context, any, map[string]any) (any, error) { return nil, err }
}

// Call records one field resolution. Async calls made in the same batch
// share a BatchID; sync calls have BatchID 0.
type Call struct {
	Kind       string
	ObjectType string
	Field      string
	Source     any
	Args       map[string]any
	BatchID    int
}

// MockRuntime is a Runtime backed by per-field resolvers keyed
// "ObjectType.field". It records every call it serves.
type MockRuntime struct {
	mu        sync.Mutex
	resolvers map[string]MockResolver
	calls     []Call
	batches   int

	typeOf    func(value any) (string, error)
	serialize func(typeName string, value any) (any, error)
}

// NewMockRuntime returns a MockRuntime serving resolvers. Abstract values
// resolve through their "__typename" key and leaf values pass through.
func NewMockRuntime(resolvers map[string]MockResolver) *MockRuntime {
	m := &MockRuntime{resolvers: make(map[string]MockResolver, len(resolvers))}
	for k, v := range resolvers {
		m.resolvers[k] = v
	}
	return m
}

// SetResolver installs resolver for objectType.field.
func (m *MockRuntime) SetResolver(objectType, field string, resolver MockResolver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolvers[objectType+"."+field] = resolver
}

// SetTypeResolver overrides how abstract values resolve to object types.
func (m *MockRuntime) SetTypeResolver(f func(value any) (string, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.typeOf = f
}

// SetSerializer overrides leaf serialization.
func (m *MockRuntime) SetSerializer(f func(typeName string, value any) (any, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.serialize = f
}

func (m *MockRuntime) resolve(ctx context.Context, call Call) (any, error) {
	m.mu.Lock()
	r := m.resolvers[call.ObjectType+"."+call.Field]
	m.calls = append(m.calls, call)
	m.mu.Unlock()
	if r == nil {
		return nil, nil
	}
	return r(ctx, call.Source, call.Args)
}

func (m *MockRuntime) ResolveSync(ctx context.Context, objectType, field string, source any, args map[string]any) (any, error) {
	return m.resolve(ctx, Call{Kind: CallKindSync, ObjectType: objectType, Field: field, Source: source, Args: args})
}

// BatchResolveAsync serves tasks in order under a single BatchID.
func (m *MockRuntime) BatchResolveAsync(ctx context.Context, tasks []AsyncResolveTask) []AsyncResolveResult {
	if len(tasks) == 0 {
		return nil
	}
	m.mu.Lock()
	m.batches++
	id := m.batches
	m.mu.Unlock()

	out := make([]AsyncResolveResult, len(tasks))
	for i, t := range tasks {
		v, err := m.resolve(ctx, Call{Kind: CallKindAsync, ObjectType: t.ObjectType, Field: t.Field, Source: t.Source, Args: t.Args, BatchID: id})
		out[i] = AsyncResolveResult{Value: v, Error: err}
	}
	return out
}

func (m *MockRuntime) ResolveType(_ context.Context, abstractType string, value any) (string, error) {
	m.mu.Lock()
	f := m.typeOf
	m.mu.Unlock()
	if f != nil {
		return f(value)
	}
	if obj, ok := value.(map[string]any); ok {
		if name, ok := obj["__typename"].(string); ok {
			return name, nil
		}
	}
	return "", fmt.Errorf("cannot resolve concrete type of %s", abstractType)
}

func (m *MockRuntime) SerializeLeafValue(_ context.Context, typeName string, value any) (any, error) {
	m.mu.Lock()
	f := m.serialize
	m.mu.Unlock()
	if f != nil {
		return f(typeName, value)
	}
	return value, nil
}

// GetCalls returns the calls recorded so far.
func (m *MockRuntime) GetCalls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// Reset forgets recorded calls. Resolvers are kept.
func (m *MockRuntime) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.batches = 0
}
