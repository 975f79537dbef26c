// Package introspection serves __schema and __type on top of another
// executor.Runtime.
package introspection

import (
	"context"
	"slices"
	"strings"

	executor "github.com/hanpama/contentgraph/internal/executor"
	schema "github.com/hanpama/contentgraph/internal/schema"
)

// Wrapped pairs the introspecting runtime with the schema it executes
// against.
type Wrapped struct {
	Runtime executor.Runtime
	Schema  *schema.Schema
}

// Wrap answers introspection fields for sch and delegates everything else
// to base. The returned schema is sch plus the meta types; sch itself is
// not modified and remains what introspection describes.
func Wrap(base executor.Runtime, sch *schema.Schema) *Wrapped {
	return &Wrapped{
		Runtime: &runtime{Runtime: base, sch: sch},
		Schema:  extend(sch),
	}
}

type runtime struct {
	executor.Runtime
	sch *schema.Schema
}

func (r *runtime) ResolveSync(ctx context.Context, objectType, field string, source any, args map[string]any) (any, error) {
	if v, ok := r.resolve(objectType, field, source, args); ok {
		return v, nil
	}
	return r.Runtime.ResolveSync(ctx, objectType, field, source, args)
}

func (r *runtime) resolve(objectType, field string, source any, args map[string]any) (any, bool) {
	switch src := source.(type) {
	case *schema.Schema:
		return r.schemaField(src, field)
	case *schema.Type:
		return r.typeField(src, field, args)
	case *schema.TypeRef:
		return r.typeRefField(src, field, args)
	case *schema.Field:
		return fieldField(src, field, args)
	case *schema.InputValue:
		return inputValueField(src, field)
	case *schema.EnumValue:
		return enumValueField(src, field)
	case *schema.Directive:
		return directiveField(src, field, args)
	}
	if objectType != r.sch.QueryType {
		return nil, false
	}
	switch field {
	case "__schema":
		return r.sch, true
	case "__type":
		name, _ := args["name"].(string)
		if t, ok := r.sch.Types[name]; ok {
			return t, true
		}
		return nil, true
	}
	return nil, false
}

func (r *runtime) schemaField(s *schema.Schema, field string) (any, bool) {
	switch field {
	case "description":
		return optional(s.Description), true
	case "types":
		types := make([]*schema.Type, 0, len(s.Types))
		for _, t := range s.Types {
			types = append(types, t)
		}
		return byName(types, func(t *schema.Type) string { return t.Name }), true
	case "queryType":
		return typeOrNil(s.GetQueryType()), true
	case "mutationType":
		return typeOrNil(s.GetMutationType()), true
	case "subscriptionType":
		return typeOrNil(s.GetSubscriptionType()), true
	case "directives":
		dirs := make([]*schema.Directive, 0, len(s.Directives))
		for _, d := range s.Directives {
			dirs = append(dirs, d)
		}
		return byName(dirs, func(d *schema.Directive) string { return d.Name }), true
	}
	return nil, false
}

func (r *runtime) typeField(t *schema.Type, field string, args map[string]any) (any, bool) {
	switch field {
	case "kind":
		return string(t.Kind), true
	case "name":
		return t.Name, true
	case "description":
		return optional(t.Description), true
	case "specifiedByURL":
		return t.SpecifiedByURL, true
	case "isOneOf":
		return t.OneOf, true
	case "ofType":
		// Wrappers are TypeRefs; named types have no ofType.
		return nil, true
	case "fields":
		if !t.Kind.HasFields() {
			return nil, true
		}
		return visible(t.Fields, args, func(f *schema.Field) (string, bool) { return f.Name, f.IsDeprecated }), true
	case "interfaces":
		if !t.Kind.HasFields() {
			return nil, true
		}
		return r.types(t.Interfaces), true
	case "possibleTypes":
		if t.Kind != schema.TypeKindInterface && t.Kind != schema.TypeKindUnion {
			return nil, true
		}
		return r.types(t.PossibleTypes), true
	case "enumValues":
		if t.Kind != schema.TypeKindEnum {
			return nil, true
		}
		return visible(t.EnumValues, args, func(v *schema.EnumValue) (string, bool) { return v.Name, v.IsDeprecated }), true
	case "inputFields":
		if t.Kind != schema.TypeKindInputObject {
			return nil, true
		}
		return visible(t.InputFields, args, inputValueKey), true
	}
	return nil, false
}

// typeRefField answers wrapper types itself and forwards named references
// to their definition.
func (r *runtime) typeRefField(ref *schema.TypeRef, field string, args map[string]any) (any, bool) {
	wrapper := schema.IsNonNull(ref) || schema.IsList(ref)
	switch field {
	case "kind":
		if !wrapper {
			if def := r.sch.Types[ref.Named]; def != nil {
				return string(def.Kind), true
			}
		}
		return string(ref.Kind), true
	case "name":
		if wrapper {
			return nil, true
		}
		return ref.Named, true
	case "ofType":
		if wrapper {
			return ref.OfType, true
		}
		return nil, true
	}
	if def := r.sch.Types[schema.GetNamedType(ref)]; def != nil {
		return r.typeField(def, field, args)
	}
	return nil, true
}

func (r *runtime) types(names []string) []*schema.Type {
	out := make([]*schema.Type, 0, len(names))
	for _, name := range names {
		if t := r.sch.Types[name]; t != nil {
			out = append(out, t)
		}
	}
	return byName(out, func(t *schema.Type) string { return t.Name })
}

func fieldField(f *schema.Field, field string, args map[string]any) (any, bool) {
	switch field {
	case "name":
		return f.Name, true
	case "description":
		return optional(f.Description), true
	case "args":
		return visible(f.Arguments, args, inputValueKey), true
	case "type":
		return f.Type, true
	case "isDeprecated":
		return f.IsDeprecated, true
	case "deprecationReason":
		return reason(f.IsDeprecated, f.DeprecationReason), true
	}
	return nil, false
}

func inputValueField(v *schema.InputValue, field string) (any, bool) {
	switch field {
	case "name":
		return v.Name, true
	case "description":
		return optional(v.Description), true
	case "type":
		return v.Type, true
	case "defaultValue":
		if v.DefaultValue == nil {
			return nil, true
		}
		return schema.FormatValue(v.DefaultValue), true
	case "isDeprecated":
		return v.IsDeprecated, true
	case "deprecationReason":
		return reason(v.IsDeprecated, v.DeprecationReason), true
	}
	return nil, false
}

func enumValueField(v *schema.EnumValue, field string) (any, bool) {
	switch field {
	case "name":
		return v.Name, true
	case "description":
		return optional(v.Description), true
	case "isDeprecated":
		return v.IsDeprecated, true
	case "deprecationReason":
		return reason(v.IsDeprecated, v.DeprecationReason), true
	}
	return nil, false
}

func directiveField(d *schema.Directive, field string, args map[string]any) (any, bool) {
	switch field {
	case "name":
		return d.Name, true
	case "description":
		return optional(d.Description), true
	case "isRepeatable":
		return d.IsRepeatable, true
	case "locations":
		return slices.Sorted(slices.Values(d.Locations)), true
	case "args":
		return visible(d.Arguments, args, inputValueKey), true
	}
	return nil, false
}

func inputValueKey(v *schema.InputValue) (string, bool) { return v.Name, v.IsDeprecated }

// visible returns items sorted by name, leaving out deprecated ones unless
// includeDeprecated is set.
func visible[T any](items []T, args map[string]any, key func(T) (name string, deprecated bool)) []T {
	all, _ := args["includeDeprecated"].(bool)
	out := make([]T, 0, len(items))
	for _, it := range items {
		if _, deprecated := key(it); all || !deprecated {
			out = append(out, it)
		}
	}
	return byName(out, func(it T) string { name, _ := key(it); return name })
}

func byName[T any](items []T, name func(T) string) []T {
	slices.SortStableFunc(items, func(a, b T) int { return strings.Compare(name(a), name(b)) })
	return items
}

func typeOrNil(t *schema.Type) any {
	if t == nil {
		return nil
	}
	return t
}

func optional(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func reason(deprecated bool, r string) any {
	if !deprecated {
		return nil
	}
	return r
}
