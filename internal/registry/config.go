package registry

import (
	"context"
	"sort"

	schema "github.com/hanpama/contentgraph/internal/schema"
)

// ResolveInfo describes the field being resolved.
type ResolveInfo struct {
	ParentType string
	FieldName  string
	ReturnType *schema.TypeRef
}

// ResolveFunc produces the raw value of a field. The returned value may be a
// Deferred or Settler; the runtime settles those once per execution depth.
type ResolveFunc func(ctx context.Context, source any, args map[string]any, info ResolveInfo) (any, error)

// ResolveTypeFunc picks the concrete object type name for a value of an
// interface or union type.
type ResolveTypeFunc func(ctx context.Context, value any) (string, error)

// ArgConfig declares a field argument.
type ArgConfig struct {
	// Type is written in GraphQL notation, e.g. "[String!]".
	Type              string
	Description       string
	DefaultValue      any
	DeprecationReason string
}

// FieldConfig declares an output field, or an input field when it belongs to
// an input object type.
type FieldConfig struct {
	// Name is filled from the Fields map key when the owner's fields are prepared.
	Name string
	// Type is written in GraphQL notation, e.g. "ID!" or "[Post]".
	Type              string
	Args              map[string]*ArgConfig
	Resolve           ResolveFunc
	Async             bool
	Description       string
	DeprecationReason string
	// DefaultValue applies to input object fields only.
	DefaultValue any
}

func (f *FieldConfig) clone() *FieldConfig {
	c := *f
	if f.Args != nil {
		c.Args = make(map[string]*ArgConfig, len(f.Args))
		for name, arg := range f.Args {
			a := *arg
			c.Args[name] = &a
		}
	}
	return &c
}

// ArgNames returns the argument names in alphabetical order.
func (f *FieldConfig) ArgNames() []string {
	names := make([]string, 0, len(f.Args))
	for name := range f.Args {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Fields maps field names to their configs.
type Fields map[string]*FieldConfig

// FieldsThunk returns a type's own fields. It runs at most once.
type FieldsThunk func() Fields

// StaticFields wraps a fixed field map as a thunk.
func StaticFields(fields Fields) FieldsThunk {
	return func() Fields { return fields }
}

// InterfaceRef names an interface either by name or by an already resolved
// registry type.
type InterfaceRef struct {
	Name string
	Def  *Type
}

func (r InterfaceRef) name() string {
	if r.Def != nil {
		return r.Def.Name()
	}
	return r.Name
}

// Names builds name-only interface references.
func Names(names ...string) []InterfaceRef {
	refs := make([]InterfaceRef, len(names))
	for i, n := range names {
		refs[i] = InterfaceRef{Name: n}
	}
	return refs
}

// Ref references an already registered type.
func Ref(t *Type) InterfaceRef { return InterfaceRef{Def: t} }

// EnumValueConfig declares one enum value. Value is the internal
// representation serialized to Name; when nil the name itself is used.
type EnumValueConfig struct {
	Name              string
	Description       string
	DeprecationReason string
	Value             any
}

// TypeConfig declares a named type.
type TypeConfig struct {
	Name        string
	Kind        schema.TypeKind
	Description string
	// Interfaces applies to object and interface types.
	Interfaces []InterfaceRef
	// Fields applies to object, interface and input object types.
	Fields FieldsThunk
	// PossibleTypes applies to union types.
	PossibleTypes []string
	// EnumValues applies to enum types, in declaration order.
	EnumValues []EnumValueConfig
	// ResolveType applies to interface and union types.
	ResolveType ResolveTypeFunc
	OneOf       bool
}
