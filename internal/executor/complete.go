package executor

import (
	"fmt"
	"reflect"

	language "github.com/hanpama/contentgraph/internal/language"
	schema "github.com/hanpama/contentgraph/internal/schema"
)

// completeValue shapes a resolved value by its field type. It returns nil
// and records an error when the value cannot be completed.
func completeValue(state *executionState, typ *schema.TypeRef, fields []*language.Field, value any, path Path) any {
	if schema.IsNonNull(typ) {
		if isNullish(value) {
			if !state.hasErrorAt(path) {
				state.addError("Cannot return null for non-nullable field "+path.String(), path)
			}
			return nil
		}
		return completeValue(state, schema.Unwrap(typ), fields, value, path)
	}
	if isNullish(value) {
		return nil
	}
	if schema.IsList(typ) {
		return completeList(state, typ, fields, value, path)
	}

	name := schema.GetNamedType(typ)
	def := state.schema.Types[name]
	if def == nil {
		state.addError("Unknown type: "+name, path)
		return nil
	}
	switch def.Kind {
	case schema.TypeKindScalar, schema.TypeKindEnum:
		out, err := state.runtime.SerializeLeafValue(state.ctx, name, value)
		if err != nil {
			state.errors = append(state.errors, fieldError(err, path))
			return nil
		}
		return out
	case schema.TypeKindObject:
		return completeObject(state, def, fields, value, path)
	case schema.TypeKindInterface, schema.TypeKindUnion:
		concrete, err := state.runtime.ResolveType(state.ctx, name, value)
		if err != nil {
			state.errors = append(state.errors, fieldError(err, path))
			return nil
		}
		obj := state.schema.Types[concrete]
		if obj == nil || obj.Kind != schema.TypeKindObject {
			state.addError(fmt.Sprintf("Abstract type %s must resolve to an Object type at runtime. Got: %s", name, concrete), path)
			return nil
		}
		return completeObject(state, obj, fields, value, path)
	}
	state.addError(fmt.Sprintf("Cannot complete value of unexpected type: %s", def.Kind), path)
	return nil
}

// completeList completes every item. A null item of a Non-Null item type
// nulls the whole list.
func completeList(state *executionState, typ *schema.TypeRef, fields []*language.Field, value any, path Path) any {
	items, ok := value.([]any)
	if !ok {
		rv := reflect.ValueOf(value)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			state.addError(fmt.Sprintf("Expected list value, got %T", value), path)
			return nil
		}
		items = make([]any, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
	}

	itemType := schema.Unwrap(typ)
	out := make([]any, len(items))
	for i, item := range items {
		v := completeValue(state, itemType, fields, item, path.With(i))
		if isNullish(v) {
			if schema.IsNonNull(itemType) {
				return nil
			}
			v = nil
		}
		out[i] = v
	}
	return out
}

func completeObject(state *executionState, objectType *schema.Type, fields []*language.Field, value any, path Path) any {
	var sub language.SelectionSet
	for _, f := range fields {
		sub = append(sub, f.SelectionSet...)
	}
	return executeSelectionSet(state, objectType, sub, value, path)
}

func (s *executionState) hasErrorAt(path Path) bool {
	for _, err := range s.errors {
		if reflect.DeepEqual(err.Path, path) {
			return true
		}
	}
	return false
}

// isNullish reports nil and typed nil values.
func isNullish(v any) bool {
	if v == nil {
		return true
	}
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Interface, reflect.Ptr, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
