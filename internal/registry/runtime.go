package registry

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"strconv"

	executor "github.com/hanpama/contentgraph/internal/executor"
	schema "github.com/hanpama/contentgraph/internal/schema"
)

// Deferred is a value that becomes available later, typically from a batched
// loader. Awaiting the first Deferred of a loader fetches every pending key.
type Deferred interface {
	Await(ctx context.Context) (any, error)
}

// Settler is a composite value holding deferred parts, such as a connection
// page whose nodes are loaded in a batch.
type Settler interface {
	Settle(ctx context.Context) (any, error)
}

// FieldValuer exposes named values to the default field resolver.
type FieldValuer interface {
	FieldValue(name string) (any, bool)
}

// Typed values name their concrete GraphQL object type.
type Typed interface {
	GraphQLTypeName() string
}

// maxSettleRounds bounds chains of deferred values resolving to deferred values.
const maxSettleRounds = 8

// Runtime executes registered resolvers for the executor.
type Runtime struct {
	reg *Registry
}

var _ executor.Runtime = (*Runtime)(nil)

// Runtime returns an executor runtime backed by the registered resolvers.
func (r *Registry) Runtime() *Runtime { return &Runtime{reg: r} }

func (rt *Runtime) ResolveSync(ctx context.Context, objectType, field string, source any, args map[string]any) (any, error) {
	v, err := rt.resolve(ctx, objectType, field, source, args)
	if err != nil {
		return nil, err
	}
	return settle(ctx, v)
}

// BatchResolveAsync runs every task's resolver before settling any result, so
// loaders see all keys requested at this depth before their first fetch.
func (rt *Runtime) BatchResolveAsync(ctx context.Context, tasks []executor.AsyncResolveTask) []executor.AsyncResolveResult {
	results := make([]executor.AsyncResolveResult, len(tasks))
	for i, task := range tasks {
		v, err := rt.resolve(ctx, task.ObjectType, task.Field, task.Source, task.Args)
		results[i] = executor.AsyncResolveResult{Value: v, Error: err}
	}
	for i := range results {
		if results[i].Error != nil {
			continue
		}
		v, err := settle(ctx, results[i].Value)
		results[i] = executor.AsyncResolveResult{Value: v, Error: err}
	}
	return results
}

func (rt *Runtime) resolve(ctx context.Context, objectType, field string, source any, args map[string]any) (v any, err error) {
	t, ok := rt.reg.GetType(objectType)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, objectType)
	}
	f, ok := t.Field(field)
	if !ok {
		return nil, fmt.Errorf("field %s.%s is not defined", t.Name(), field)
	}
	if f.Resolve == nil {
		return DefaultResolve(source, field), nil
	}
	defer func() {
		if p := recover(); p != nil {
			v, err = nil, fmt.Errorf("resolver %s.%s panicked: %v", t.Name(), field, p)
		}
	}()
	ref, _ := schema.ParseTypeRef(f.Type)
	return f.Resolve(ctx, source, args, ResolveInfo{ParentType: t.Name(), FieldName: field, ReturnType: ref})
}

// DefaultResolve reads name from a map or FieldValuer source.
func DefaultResolve(source any, name string) any {
	switch src := source.(type) {
	case map[string]any:
		return src[name]
	case FieldValuer:
		v, _ := src.FieldValue(name)
		return v
	}
	return nil
}

func settle(ctx context.Context, v any) (any, error) {
	for i := 0; i < maxSettleRounds; i++ {
		switch x := v.(type) {
		case Deferred:
			next, err := x.Await(ctx)
			if err != nil {
				return nil, err
			}
			v = next
		case Settler:
			next, err := x.Settle(ctx)
			if err != nil {
				return nil, err
			}
			v = next
		default:
			return v, nil
		}
	}
	return nil, fmt.Errorf("value did not settle after %d rounds", maxSettleRounds)
}

// ResolveType uses the abstract type's ResolveType function, then the value's
// Typed implementation, then a "__typename" map entry.
func (rt *Runtime) ResolveType(ctx context.Context, abstractType string, value any) (string, error) {
	t, ok := rt.reg.GetType(abstractType)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownType, abstractType)
	}
	var name string
	switch {
	case t.ResolveTypeFunc() != nil:
		n, err := t.ResolveTypeFunc()(ctx, value)
		if err != nil {
			return "", err
		}
		name = n
	default:
		if typed, ok := value.(Typed); ok {
			name = typed.GraphQLTypeName()
		} else if m, ok := value.(map[string]any); ok {
			name, _ = m["__typename"].(string)
		}
	}
	if name == "" {
		return "", fmt.Errorf("cannot determine the concrete type of %T for %s", value, t.Name())
	}
	concrete, ok := rt.reg.GetType(name)
	if !ok {
		return "", fmt.Errorf("%s resolved to unknown type %q", t.Name(), name)
	}
	return concrete.Name(), nil
}

func (rt *Runtime) SerializeLeafValue(ctx context.Context, typeName string, value any) (any, error) {
	value = indirect(value)
	if value == nil {
		return nil, nil
	}
	switch typeName {
	case "String":
		return serializeString(value)
	case "ID":
		return serializeString(value)
	case "Int":
		return serializeInt(value)
	case "Float":
		return serializeFloat(value)
	case "Boolean":
		return serializeBoolean(value)
	}
	t, ok := rt.reg.GetType(typeName)
	if ok && t.Kind() == schema.TypeKindEnum {
		return serializeEnum(t, value)
	}
	if rv := reflect.ValueOf(value); rv.Kind() == reflect.String {
		return rv.String(), nil
	}
	return value, nil
}

func indirect(v any) any {
	rv := reflect.ValueOf(v)
	for rv.IsValid() && rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return nil
	}
	return rv.Interface()
}

func serializeString(v any) (any, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	case bool:
		return strconv.FormatBool(x), nil
	case fmt.Stringer:
		return x.String(), nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.String(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), nil
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64), nil
	}
	return nil, fmt.Errorf("cannot serialize %T as String", v)
}

func serializeInt(v any) (any, error) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return checkInt32(float64(rv.Int()))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return checkInt32(float64(rv.Uint()))
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if f != math.Trunc(f) {
			return nil, fmt.Errorf("cannot serialize non-integer %v as Int", f)
		}
		return checkInt32(f)
	case reflect.Bool:
		if rv.Bool() {
			return 1, nil
		}
		return 0, nil
	case reflect.String:
		n, err := strconv.ParseInt(rv.String(), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("cannot serialize %q as Int", rv.String())
		}
		return checkInt32(float64(n))
	}
	return nil, fmt.Errorf("cannot serialize %T as Int", v)
}

func checkInt32(f float64) (any, error) {
	if f > math.MaxInt32 || f < math.MinInt32 {
		return nil, fmt.Errorf("Int cannot represent non 32-bit signed integer value %v", f)
	}
	return int(f), nil
}

func serializeFloat(v any) (any, error) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.Bool:
		if rv.Bool() {
			return 1.0, nil
		}
		return 0.0, nil
	case reflect.String:
		f, err := strconv.ParseFloat(rv.String(), 64)
		if err != nil {
			return nil, fmt.Errorf("cannot serialize %q as Float", rv.String())
		}
		return f, nil
	}
	return nil, fmt.Errorf("cannot serialize %T as Float", v)
}

func serializeBoolean(v any) (any, error) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0, nil
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0, nil
	}
	return nil, fmt.Errorf("cannot serialize %T as Boolean", v)
}

func serializeEnum(t *Type, v any) (any, error) {
	values := t.Config().EnumValues
	for _, ev := range values {
		if ev.Value != nil && reflect.DeepEqual(ev.Value, v) {
			return ev.Name, nil
		}
	}
	if s, ok := v.(string); ok {
		for _, ev := range values {
			if ev.Name == s {
				return ev.Name, nil
			}
		}
	}
	return nil, fmt.Errorf("enum %s cannot represent value %v", t.Name(), v)
}
