package registry

import (
	"fmt"
	"sort"

	schema "github.com/hanpama/contentgraph/internal/schema"
)

// Schema evaluates every registered type and returns the finalized schema.
// Possible types of interfaces are derived from the objects implementing
// them, directly or through one inherited interface. The result is computed
// once; the registry must not be modified afterwards.
func (r *Registry) Schema() (*schema.Schema, error) {
	r.buildOnce.Do(func() {
		r.built, r.buildErr = r.buildSchema()
	})
	return r.built, r.buildErr
}

func (r *Registry) buildSchema() (*schema.Schema, error) {
	query, ok := r.GetType(r.query)
	if !ok {
		return nil, fmt.Errorf("%w: query root %s", ErrUnknownType, r.query)
	}

	s := schema.NewSchema("").SetQueryType(query.Name())
	if mutation, ok := r.GetType(r.mutation); ok && len(mutation.Fields()) > 0 {
		s.SetMutationType(mutation.Name())
	}

	types := r.Types()
	for _, t := range types {
		st, err := r.buildType(t)
		if err != nil {
			return nil, err
		}
		s.AddType(st)
	}

	implementers := make(map[string][]string)
	for _, t := range types {
		if t.Kind() != schema.TypeKindObject {
			continue
		}
		for _, iface := range t.Interfaces() {
			implementers[iface.Name()] = append(implementers[iface.Name()], t.Name())
		}
	}
	for name, objects := range implementers {
		st := s.Types[name]
		if st == nil {
			continue
		}
		sort.Strings(objects)
		st.PossibleTypes = objects
	}
	return s, nil
}

func (r *Registry) buildType(t *Type) (*schema.Type, error) {
	cfg := t.Config()
	st := schema.NewType(t.Name(), t.Kind(), t.Description())
	switch t.Kind() {
	case schema.TypeKindScalar:
		if builtin := builtinScalar(t.Name()); builtin != nil {
			return builtin, nil
		}
	case schema.TypeKindObject, schema.TypeKindInterface:
		for _, f := range t.Fields() {
			sf, err := buildField(t, f)
			if err != nil {
				return nil, err
			}
			st.AddField(sf)
		}
		for _, iface := range t.Interfaces() {
			st.AddInterface(iface.Name())
		}
		if len(st.Fields) == 0 {
			r.reportf(CodeUnresolvableFieldType, t.Name(), "", "%s type has no resolvable fields", t.Kind())
		}
	case schema.TypeKindInputObject:
		st.SetOneOf(cfg.OneOf)
		for _, f := range t.Fields() {
			ref, err := schema.ParseTypeRef(f.Type)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", t.Name(), f.Name, err)
			}
			in := schema.NewInputValue(f.Name, f.Description, ref).SetDefault(f.DefaultValue)
			if f.DeprecationReason != "" {
				in.Deprecate(f.DeprecationReason)
			}
			st.AddInputField(in)
		}
	case schema.TypeKindUnion:
		for _, member := range cfg.PossibleTypes {
			mt, ok := r.GetType(member)
			if !ok || mt.Kind() != schema.TypeKindObject {
				r.reportf(CodeUnresolvableFieldType, t.Name(), "", "union member %q is not a registered object type", member)
				continue
			}
			st.AddPossibleType(mt.Name())
		}
	case schema.TypeKindEnum:
		for _, v := range cfg.EnumValues {
			ev := schema.NewEnumValue(v.Name, v.Description)
			if v.DeprecationReason != "" {
				ev.Deprecate(v.DeprecationReason)
			}
			st.AddEnumValue(ev)
		}
	}
	return st, nil
}

func buildField(owner *Type, f *FieldConfig) (*schema.Field, error) {
	ref, err := schema.ParseTypeRef(f.Type)
	if err != nil {
		return nil, fmt.Errorf("%s.%s: %w", owner.Name(), f.Name, err)
	}
	sf := schema.NewField(f.Name, f.Description, ref).SetAsync(f.Async)
	if f.DeprecationReason != "" {
		sf.Deprecate(f.DeprecationReason)
	}
	for _, name := range f.ArgNames() {
		arg := f.Args[name]
		argRef, err := schema.ParseTypeRef(arg.Type)
		if err != nil {
			return nil, fmt.Errorf("%s.%s(%s): %w", owner.Name(), f.Name, name, err)
		}
		in := schema.NewInputValue(name, arg.Description, argRef).SetDefault(arg.DefaultValue)
		if arg.DeprecationReason != "" {
			in.Deprecate(arg.DeprecationReason)
		}
		sf.AddArgument(in)
	}
	return sf, nil
}

func builtinScalar(name string) *schema.Type {
	for _, s := range schema.BuiltinScalars() {
		if s.Name == name {
			return s
		}
	}
	return nil
}
