package schema

import (
	"fmt"

	"github.com/hanpama/contentgraph/internal/language"
)

// BuildFromSDL parses SDL and returns the corresponding Schema.
// Type extensions are merged into their base definitions. Without an explicit
// schema block the root types default to Query, Mutation and Subscription
// when types with those names exist.
func BuildFromSDL(sdl string) (*Schema, error) {
	doc, err := language.ParseSchema("schema.graphql", sdl)
	if err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	return BuildFromDocument(doc)
}

// BuildFromDocument converts a parsed schema document into a Schema.
func BuildFromDocument(doc *language.SchemaDocument) (*Schema, error) {
	s := NewSchema("")
	for _, scalar := range BuiltinScalars() {
		s.AddType(scalar)
	}

	for _, def := range doc.Definitions {
		if _, exists := s.Types[def.Name]; exists && !IsBuiltinScalar(def.Name) {
			return nil, fmt.Errorf("type %q defined more than once", def.Name)
		}
		t, err := buildDefinition(def)
		if err != nil {
			return nil, err
		}
		s.AddType(t)
	}
	for _, ext := range doc.Extensions {
		base, ok := s.Types[ext.Name]
		if !ok {
			return nil, fmt.Errorf("cannot extend unknown type %q", ext.Name)
		}
		if err := extendType(base, ext); err != nil {
			return nil, err
		}
	}
	for _, dir := range doc.Directives {
		s.AddDirective(buildDirective(dir))
	}

	for _, def := range append(doc.Schema, doc.SchemaExtension...) {
		s.Description = def.Description
		for _, op := range def.OperationTypes {
			switch op.Operation {
			case language.Query:
				s.SetQueryType(op.Type)
			case language.Mutation:
				s.SetMutationType(op.Type)
			case language.Subscription:
				s.SetSubscriptionType(op.Type)
			}
		}
	}
	if len(doc.Schema) == 0 {
		if _, ok := s.Types["Query"]; ok {
			s.SetQueryType("Query")
		}
		if _, ok := s.Types["Mutation"]; ok {
			s.SetMutationType("Mutation")
		}
		if _, ok := s.Types["Subscription"]; ok {
			s.SetSubscriptionType("Subscription")
		}
	}
	if s.QueryType == "" {
		return nil, fmt.Errorf("schema has no query type")
	}
	return s, nil
}

func buildDefinition(def *language.Definition) (*Type, error) {
	switch def.Kind {
	case language.Object:
		return extendFields(NewType(def.Name, TypeKindObject, def.Description), def)
	case language.Interface:
		return extendFields(NewType(def.Name, TypeKindInterface, def.Description), def)
	case language.Union:
		t := NewType(def.Name, TypeKindUnion, def.Description)
		for _, name := range def.Types {
			t.AddPossibleType(name)
		}
		return t, nil
	case language.Enum:
		t := NewType(def.Name, TypeKindEnum, def.Description)
		for _, v := range def.EnumValues {
			ev := NewEnumValue(v.Name, v.Description)
			if reason, ok := deprecation(v.Directives); ok {
				ev.Deprecate(reason)
			}
			t.AddEnumValue(ev)
		}
		return t, nil
	case language.InputObject:
		t := NewType(def.Name, TypeKindInputObject, def.Description).
			SetOneOf(def.Directives.ForName("oneOf") != nil)
		for _, f := range def.Fields {
			in, err := buildInputValue(f.Name, f.Description, f.Type, f.DefaultValue, f.Directives)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", def.Name, f.Name, err)
			}
			t.AddInputField(in)
		}
		return t, nil
	case language.Scalar:
		t := NewType(def.Name, TypeKindScalar, def.Description)
		if d := def.Directives.ForName("specifiedBy"); d != nil {
			if arg := d.Arguments.ForName("url"); arg != nil && arg.Value != nil {
				t.SetSpecifiedByURL(arg.Value.Raw)
			}
		}
		return t, nil
	}
	return nil, fmt.Errorf("unsupported definition kind %q for %q", def.Kind, def.Name)
}

func extendType(base *Type, ext *language.Definition) error {
	switch base.Kind {
	case TypeKindObject, TypeKindInterface:
		_, err := extendFields(base, ext)
		return err
	case TypeKindUnion:
		for _, name := range ext.Types {
			base.AddPossibleType(name)
		}
	case TypeKindEnum:
		for _, v := range ext.EnumValues {
			base.AddEnumValue(NewEnumValue(v.Name, v.Description))
		}
	case TypeKindInputObject:
		for _, f := range ext.Fields {
			in, err := buildInputValue(f.Name, f.Description, f.Type, f.DefaultValue, f.Directives)
			if err != nil {
				return fmt.Errorf("%s.%s: %w", base.Name, f.Name, err)
			}
			base.AddInputField(in)
		}
	}
	return nil
}

func extendFields(t *Type, def *language.Definition) (*Type, error) {
	t.Interfaces = append(t.Interfaces, def.Interfaces...)
	for _, fd := range def.Fields {
		if t.FieldByName(fd.Name) != nil {
			return nil, fmt.Errorf("field %s.%s defined more than once", t.Name, fd.Name)
		}
		f := NewField(fd.Name, fd.Description, buildTypeRef(fd.Type))
		if reason, ok := deprecation(fd.Directives); ok {
			f.Deprecate(reason)
		}
		f.SetAsync(fd.Directives.ForName("async") != nil)
		for _, arg := range fd.Arguments {
			in, err := buildInputValue(arg.Name, arg.Description, arg.Type, arg.DefaultValue, arg.Directives)
			if err != nil {
				return nil, fmt.Errorf("%s.%s(%s): %w", t.Name, fd.Name, arg.Name, err)
			}
			f.AddArgument(in)
		}
		t.AddField(f)
	}
	return t, nil
}

func buildInputValue(name, description string, typ *language.Type, def *language.Value, dirs language.DirectiveList) (*InputValue, error) {
	in := NewInputValue(name, description, buildTypeRef(typ))
	if def != nil {
		v, err := def.Value(nil)
		if err != nil {
			return nil, fmt.Errorf("default value: %w", err)
		}
		in.SetDefault(v)
	}
	if reason, ok := deprecation(dirs); ok {
		in.Deprecate(reason)
	}
	return in, nil
}

func buildTypeRef(t *language.Type) *TypeRef {
	var ref *TypeRef
	if t.Elem != nil {
		ref = ListType(buildTypeRef(t.Elem))
	} else {
		ref = NamedType(t.NamedType)
	}
	if t.NonNull {
		ref = NonNullType(ref)
	}
	return ref
}

func buildDirective(dir *language.DirectiveDefinition) *Directive {
	d := NewDirective(dir.Name, dir.Description).SetRepeatable(dir.IsRepeatable)
	for _, loc := range dir.Locations {
		d.Locations = append(d.Locations, string(loc))
	}
	for _, arg := range dir.Arguments {
		in := NewInputValue(arg.Name, arg.Description, buildTypeRef(arg.Type))
		if arg.DefaultValue != nil {
			if v, err := arg.DefaultValue.Value(nil); err == nil {
				in.SetDefault(v)
			}
		}
		d.AddArgument(in)
	}
	return d
}

func deprecation(dirs language.DirectiveList) (string, bool) {
	d := dirs.ForName("deprecated")
	if d == nil {
		return "", false
	}
	if arg := d.Arguments.ForName("reason"); arg != nil && arg.Value != nil {
		return arg.Value.Raw, true
	}
	return deprecatedDirective.Arguments[0].DefaultValue.(string), true
}
