package schema

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Render prints s as SDL. Types and directives are sorted by name; fields,
// arguments and enum values keep schema order. Builtin scalars and
// directives are omitted.
func Render(s *Schema) string {
	if s == nil {
		return ""
	}
	w := &sdlWriter{}
	w.schemaBlock(s)

	names := make([]string, 0, len(s.Types))
	for name, t := range s.Types {
		if t.Kind != TypeKindScalar || !IsBuiltinScalar(name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		w.typeDef(s.Types[name])
	}

	names = names[:0]
	for name := range s.Directives {
		if !isBuiltinDirective(name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		w.directiveDef(s.Directives[name])
	}
	return strings.TrimRight(w.String(), "\n") + "\n"
}

type sdlWriter struct {
	strings.Builder
}

func (w *sdlWriter) printf(format string, args ...any) {
	fmt.Fprintf(&w.Builder, format, args...)
}

// schemaBlock is written only when a root type has an unconventional name.
func (w *sdlWriter) schemaBlock(s *Schema) {
	roots := []struct{ op, name, conventional string }{
		{"query", s.QueryType, "Query"},
		{"mutation", s.MutationType, "Mutation"},
		{"subscription", s.SubscriptionType, "Subscription"},
	}
	custom := false
	for _, r := range roots {
		if r.name != "" && r.name != r.conventional {
			custom = true
		}
	}
	if !custom {
		return
	}
	w.description(s.Description)
	w.WriteString("schema {\n")
	for _, r := range roots {
		if r.name != "" {
			w.printf("  %s: %s\n", r.op, r.name)
		}
	}
	w.WriteString("}\n\n")
}

func (w *sdlWriter) typeDef(t *Type) {
	w.description(t.Description)
	switch t.Kind {
	case TypeKindScalar:
		w.WriteString("scalar " + t.Name)
		if t.SpecifiedByURL != nil {
			w.printf(" @specifiedBy(url: %q)", *t.SpecifiedByURL)
		}
		w.WriteString("\n\n")
	case TypeKindUnion:
		w.printf("union %s = %s\n\n", t.Name, strings.Join(t.PossibleTypes, " | "))
	case TypeKindEnum:
		w.WriteString("enum " + t.Name + " {\n")
		for _, v := range t.EnumValues {
			w.description(v.Description)
			w.WriteString("  " + v.Name)
			w.deprecated(v.IsDeprecated, v.DeprecationReason)
			w.WriteString("\n")
		}
		w.WriteString("}\n\n")
	case TypeKindInputObject:
		w.WriteString("input " + t.Name)
		if t.OneOf {
			w.WriteString(" @oneOf")
		}
		w.WriteString(" {\n")
		for _, f := range t.InputFields {
			w.description(f.Description)
			w.WriteString("  " + inputValue(f))
			w.deprecated(f.IsDeprecated, f.DeprecationReason)
			w.WriteString("\n")
		}
		w.WriteString("}\n\n")
	case TypeKindObject, TypeKindInterface:
		keyword := "type"
		if t.Kind == TypeKindInterface {
			keyword = "interface"
		}
		w.WriteString(keyword + " " + t.Name)
		if len(t.Interfaces) > 0 {
			w.WriteString(" implements " + strings.Join(t.Interfaces, " & "))
		}
		w.WriteString(" {\n")
		for _, f := range t.Fields {
			w.description(f.Description)
			w.WriteString("  " + f.Name + arguments(f.Arguments) + ": " + f.Type.String())
			w.deprecated(f.IsDeprecated, f.DeprecationReason)
			w.WriteString("\n")
		}
		w.WriteString("}\n\n")
	}
}

func (w *sdlWriter) directiveDef(d *Directive) {
	w.description(d.Description)
	w.WriteString("directive @" + d.Name + arguments(d.Arguments))
	if d.IsRepeatable {
		w.WriteString(" repeatable")
	}
	locations := make([]string, len(d.Locations))
	for i, l := range d.Locations {
		locations[i] = string(l)
	}
	w.WriteString(" on " + strings.Join(locations, " | ") + "\n\n")
}

func (w *sdlWriter) description(desc string) {
	if desc != "" {
		w.WriteString(`"""` + "\n" + strings.ReplaceAll(desc, `"`, `\"`) + "\n" + `"""` + "\n")
	}
}

func (w *sdlWriter) deprecated(is bool, reason string) {
	switch {
	case !is:
	case reason == "":
		w.WriteString(" @deprecated")
	default:
		w.WriteString(` @deprecated(reason: "` + reason + `")`)
	}
}

func arguments(args []*InputValue) string {
	if len(args) == 0 {
		return ""
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = inputValue(a)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func inputValue(v *InputValue) string {
	s := v.Name + ": " + v.Type.String()
	if v.DefaultValue != nil {
		s += " = " + FormatValue(v.DefaultValue)
	}
	return s
}

// FormatValue renders a Go value as a GraphQL literal, as used for default
// values in SDL and introspection. Unknown types, including enum values,
// print unquoted.
func FormatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(v)
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case []any:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = FormatValue(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for i, k := range keys {
			keys[i] = k + ": " + FormatValue(v[k])
		}
		return "{" + strings.Join(keys, ", ") + "}"
	}
	return fmt.Sprint(value)
}
