package executor

import (
	"fmt"
	"math"
	"strconv"

	language "github.com/hanpama/contentgraph/internal/language"
	schema "github.com/hanpama/contentgraph/internal/schema"
)

// coerceVariableValues checks the request variables against the variable
// definitions of operation and returns them coerced. Defaults fill in
// missing variables.
func coerceVariableValues(sch *schema.Schema, operation *language.OperationDefinition, raw map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(operation.VariableDefinitions))
	for _, def := range operation.VariableDefinitions {
		name, typ := def.Variable, def.Type
		value, ok := raw[name]
		switch {
		case !ok && def.DefaultValue != nil:
			value = literal(def.DefaultValue)
		case !ok && typ.NonNull:
			return nil, fmt.Errorf("variable $%s of required type %s was not provided", name, typ)
		case !ok:
			continue
		case value == nil && typ.NonNull:
			return nil, fmt.Errorf("variable $%s of type %s cannot be null", name, typ)
		}
		coerced, err := coerceValue(sch, value, typeRefFromAST(typ))
		if err != nil {
			return nil, fmt.Errorf("variable $%s of type %s cannot be coerced: %v", name, typ, err)
		}
		out[name] = coerced
	}
	return out, nil
}

// coerceArguments builds the argument map of one field. Problems are
// recorded as field errors and the offending argument is left out.
func (s *executionState) coerceArguments(def *schema.Field, nodes language.ArgumentList, path Path) map[string]any {
	out := make(map[string]any, len(def.Arguments))
	for _, arg := range def.Arguments {
		node := nodes.ForName(arg.Name)
		if node == nil || unsetVariable(node.Value, s.variables) {
			if arg.DefaultValue != nil {
				out[arg.Name] = arg.DefaultValue
			} else if schema.IsNonNull(arg.Type) {
				s.addError(fmt.Sprintf("argument '%s' of required type was not provided", arg.Name), path)
			}
			continue
		}
		value, err := coerceValue(s.schema, valueFromAST(node.Value, s.variables), arg.Type)
		if err != nil {
			s.addError(fmt.Sprintf("argument '%s' cannot be coerced: %v", arg.Name, err), path)
			continue
		}
		out[arg.Name] = value
	}
	return out
}

// valueFromAST reads a literal, substituting variables at any depth. An
// object field bound to an unset variable is left out; elsewhere an unset
// variable reads as null.
func valueFromAST(v *language.Value, variables map[string]any) any {
	if v == nil {
		return nil
	}
	switch v.Kind {
	case language.Variable:
		return variables[v.Raw]
	case language.IntValue:
		n, err := strconv.ParseInt(v.Raw, 10, 32)
		if err != nil {
			return intLiteralError{raw: v.Raw}
		}
		return int(n)
	case language.FloatValue:
		f, _ := strconv.ParseFloat(v.Raw, 64)
		return f
	case language.BooleanValue:
		return v.Raw == "true"
	case language.StringValue, language.BlockValue, language.EnumValue:
		return v.Raw
	case language.ListValue:
		list := make([]any, 0, len(v.Children))
		for _, c := range v.Children {
			list = append(list, valueFromAST(c.Value, variables))
		}
		return list
	case language.ObjectValue:
		obj := make(map[string]any, len(v.Children))
		for _, c := range v.Children {
			if !unsetVariable(c.Value, variables) {
				obj[c.Name] = valueFromAST(c.Value, variables)
			}
		}
		return obj
	}
	return nil
}

func unsetVariable(v *language.Value, variables map[string]any) bool {
	if v == nil || v.Kind != language.Variable {
		return false
	}
	_, ok := variables[v.Raw]
	return !ok
}

// literal reads a constant value such as a variable default.
func literal(v *language.Value) any { return valueFromAST(v, nil) }

// intLiteralError stands in for an Int literal outside the 32-bit range.
// Coercion accepts it as Float or ID and rejects it otherwise.
type intLiteralError struct{ raw string }

// coerceValue coerces an input value to typ. Input objects and enums are
// checked against their definitions; custom scalars pass through.
func coerceValue(sch *schema.Schema, value any, typ *schema.TypeRef) (any, error) {
	if schema.IsNonNull(typ) {
		if value == nil {
			return nil, fmt.Errorf("cannot provide null for non-null type")
		}
		return coerceValue(sch, value, schema.Unwrap(typ))
	}
	if value == nil {
		return nil, nil
	}
	if schema.IsList(typ) {
		items, ok := value.([]any)
		if !ok {
			// A single value is a list of one.
			items = []any{value}
		}
		out := make([]any, len(items))
		for i, item := range items {
			v, err := coerceValue(sch, item, schema.Unwrap(typ))
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	}

	name := schema.GetNamedType(typ)
	if big, ok := value.(intLiteralError); ok {
		switch name {
		case "Float":
			f, _ := strconv.ParseFloat(big.raw, 64)
			return f, nil
		case "ID":
			return big.raw, nil
		}
		return nil, fmt.Errorf("Int cannot represent non 32-bit signed integer value: %s", big.raw)
	}
	if sc, ok := builtinScalars[name]; ok {
		if v, ok := sc.coerce(value); ok {
			return v, nil
		}
		return nil, fmt.Errorf("cannot coerce %v (%T) to %s", value, value, sc.label)
	}
	var def *schema.Type
	if sch != nil {
		def = sch.Types[name]
	}
	switch {
	case def == nil:
		return value, nil
	case def.Kind == schema.TypeKindInputObject:
		return coerceInputObject(sch, def, value)
	case def.Kind == schema.TypeKindEnum:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("cannot coerce %v (%T) to enum %s", value, value, def.Name)
		}
		for _, ev := range def.EnumValues {
			if ev.Name == s {
				return s, nil
			}
		}
		return nil, fmt.Errorf("value %q does not exist in enum %s", s, def.Name)
	}
	return value, nil
}

func coerceInputObject(sch *schema.Schema, def *schema.Type, value any) (any, error) {
	in, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected object for input type %s, got %T", def.Name, value)
	}
	for name := range in {
		if def.InputFieldByName(name) == nil {
			return nil, fmt.Errorf("field '%s' is not defined by input type %s", name, def.Name)
		}
	}
	out := make(map[string]any, len(def.InputFields))
	for _, f := range def.InputFields {
		raw, ok := in[f.Name]
		if !ok {
			if f.DefaultValue != nil {
				out[f.Name] = f.DefaultValue
			} else if schema.IsNonNull(f.Type) {
				return nil, fmt.Errorf("required field '%s' of input type %s was not provided", f.Name, def.Name)
			}
			continue
		}
		v, err := coerceValue(sch, raw, f.Type)
		if err != nil {
			return nil, fmt.Errorf("field '%s' of input type %s: %w", f.Name, def.Name, err)
		}
		out[f.Name] = v
	}
	if def.OneOf && len(out) != 1 {
		return nil, fmt.Errorf("exactly one field of input type %s must be provided", def.Name)
	}
	return out, nil
}

type scalarCoercion struct {
	label  string
	coerce func(any) (any, bool)
}

// builtinScalars never parse strings into numbers. JSON numbers arrive as
// float64 and count as Int only when integral.
var builtinScalars = map[string]scalarCoercion{
	"Int":     {"int", coerceInt},
	"Float":   {"float", coerceFloat},
	"String":  {"string", func(v any) (any, bool) { s, ok := v.(string); return s, ok }},
	"Boolean": {"boolean", func(v any) (any, bool) { b, ok := v.(bool); return b, ok }},
	"ID":      {"ID", coerceID},
}

func coerceInt(v any) (any, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float32:
		return coerceInt(float64(n))
	case float64:
		if n == math.Trunc(n) {
			return int(n), true
		}
	}
	return nil, false
}

func coerceFloat(v any) (any, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return nil, false
}

func coerceID(v any) (any, bool) {
	if s, ok := v.(string); ok {
		return s, true
	}
	n, ok := coerceInt(v)
	if !ok {
		return nil, false
	}
	return strconv.Itoa(n.(int)), true
}

func typeRefFromAST(t *language.Type) *schema.TypeRef {
	var ref *schema.TypeRef
	if t.Elem != nil {
		ref = schema.ListType(typeRefFromAST(t.Elem))
	} else {
		ref = schema.NamedType(t.NamedType)
	}
	if t.NonNull {
		return schema.NonNullType(ref)
	}
	return ref
}
