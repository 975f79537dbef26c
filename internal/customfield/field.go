package customfield

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"github.com/hanpama/contentgraph/internal/registry"
)

// Field is a custom field as the host describes it.
type Field struct {
	Key                string   `yaml:"key" json:"key"`
	Name               string   `yaml:"name" json:"name"`
	Label              string   `yaml:"label" json:"label,omitempty"`
	Type               string   `yaml:"type" json:"type"`
	Instructions       string   `yaml:"instructions" json:"instructions,omitempty"`
	ShowInGraphQL      *bool    `yaml:"show_in_graphql" json:"show_in_graphql,omitempty"`
	GraphQLFieldName   string   `yaml:"graphql_field_name" json:"graphql_field_name,omitempty"`
	GraphQLDescription string   `yaml:"graphql_description" json:"graphql_description,omitempty"`
	NonNull            bool     `yaml:"graphql_non_null" json:"graphql_non_null,omitempty"`
	FormatValue        *bool    `yaml:"format_value" json:"format_value,omitempty"`
	ReturnFormat       string   `yaml:"return_format" json:"return_format,omitempty"`
	NewLines           string   `yaml:"new_lines" json:"new_lines,omitempty"`
	Multiple           bool     `yaml:"multiple" json:"multiple,omitempty"`
	PostTypes          []string `yaml:"post_type" json:"post_type,omitempty"`
	Taxonomy           string   `yaml:"taxonomy" json:"taxonomy,omitempty"`
	// Clone lists the field or field group keys a clone field copies.
	Clone []string `yaml:"clone" json:"clone,omitempty"`
	// Display is "seamless" (default) or "group" for clone fields.
	Display   string   `yaml:"display" json:"display,omitempty"`
	SubFields []Field  `yaml:"sub_fields" json:"sub_fields,omitempty"`
	Layouts   []Layout `yaml:"layouts" json:"layouts,omitempty"`
}

// Layout is one layout of a flexible content field.
type Layout struct {
	Key       string  `yaml:"key" json:"key"`
	Name      string  `yaml:"name" json:"name"`
	Label     string  `yaml:"label" json:"label,omitempty"`
	SubFields []Field `yaml:"sub_fields" json:"sub_fields,omitempty"`
}

// FieldGroup is a named set of fields shown on the listed GraphQL types.
type FieldGroup struct {
	Key              string   `yaml:"key" json:"key"`
	Title            string   `yaml:"title" json:"title"`
	Description      string   `yaml:"description" json:"description,omitempty"`
	ShowInGraphQL    *bool    `yaml:"show_in_graphql" json:"show_in_graphql,omitempty"`
	GraphQLFieldName string   `yaml:"graphql_field_name" json:"graphql_field_name,omitempty"`
	Locations        []string `yaml:"graphql_types" json:"graphql_types,omitempty"`
	Fields           []Field  `yaml:"fields" json:"fields"`
}

// FieldName is the name of the group's field on its locations.
func (g FieldGroup) FieldName() string {
	if g.GraphQLFieldName != "" {
		return registry.LcFirst(g.GraphQLFieldName)
	}
	return camelCase(g.Title)
}

// TypeName is the name of the group's object type.
func (g FieldGroup) TypeName() string { return registry.UcFirst(g.FieldName()) }

func shown(flag *bool) bool { return flag == nil || *flag }

// MappedField links a source field to its place in the schema.
type MappedField struct {
	SourceFieldKey  string
	SourceFieldType string
	// Name is the field's storage name on its root.
	Name             string
	GraphQLFieldName string
	GroupTypeName    string
	FormatOnRead     bool
	// CloneKeys are alias keys a clone-expanded field may be stored under.
	CloneKeys []string
	// ParentName is the name of the enclosing group-like field.
	ParentName string
}

// FieldConfig is a mapped field bound to its plugin.
type FieldConfig struct {
	MappedField
	Field     Field
	fieldType *FieldType
	owner     *Registry
}

// FieldType returns the plugin handling the field.
func (fc *FieldConfig) FieldType() *FieldType { return fc.fieldType }

// Registry returns the registry the field was mapped by.
func (fc *FieldConfig) Registry() *Registry { return fc.owner }

// FieldsInterfaceName is the interface the field is registered on.
func (fc *FieldConfig) FieldsInterfaceName() string { return fc.GroupTypeName + "_Fields" }

// NestedTypeName names the type of a group-like field.
func (fc *FieldConfig) NestedTypeName() string {
	return fc.GroupTypeName + registry.UcFirst(fc.GraphQLFieldName)
}

// Description is the field's schema description.
func (fc *FieldConfig) Description() string {
	switch {
	case fc.Field.GraphQLDescription != "":
		return fc.Field.GraphQLDescription
	case fc.Field.Instructions != "":
		return fc.Field.Instructions
	}
	return fmt.Sprintf("Field added to the schema as part of the %q Field Group", fc.GroupTypeName)
}

// GraphQLType returns the plugin's type, wrapped in NonNull when the field
// asks for it and the type is not already NonNull.
func (fc *FieldConfig) GraphQLType() string {
	typ := fc.fieldType.GraphQLType(fc)
	switch typ {
	case TypeConnection, TypeNull, "":
		return typ
	}
	if fc.Field.NonNull && !strings.HasSuffix(typ, "!") {
		typ += "!"
	}
	return typ
}

// GraphQLFieldConfig returns the field's registry config, or nil when the
// field is a connection or dropped.
func (fc *FieldConfig) GraphQLFieldConfig() *registry.FieldConfig {
	typ := fc.GraphQLType()
	switch typ {
	case TypeConnection, TypeNull, "":
		return nil
	}
	return &registry.FieldConfig{
		Type:        typ,
		Description: fc.Description(),
		Resolve:     fc.resolve,
	}
}

func (fc *FieldConfig) resolve(ctx context.Context, source any, args map[string]any, _ registry.ResolveInfo) (any, error) {
	root := AsRoot(source)
	if root == nil {
		return nil, nil
	}
	if fc.fieldType.Resolve != nil {
		return fc.fieldType.Resolve(ctx, root, fc, args)
	}
	v, err := fc.owner.resolver.ResolveValue(ctx, root, fc)
	if err != nil {
		return nil, err
	}
	return override(fc.SourceFieldType, v), nil
}

// override applies the per-type result wrapping.
func override(fieldType string, v any) any {
	switch fieldType {
	case "true_false":
		return truthy(v)
	case "checkbox", "select":
		if v == nil {
			return nil
		}
		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
			return v
		}
		if isEmpty(v) {
			return nil
		}
		return []any{v}
	}
	return v
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != "" && x != "0" && !strings.EqualFold(x, "false")
	case int:
		return x != 0
	case int64:
		return x != 0
	case uint64:
		return x != 0
	case float64:
		return x != 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map:
		return rv.Len() > 0
	}
	return true
}

func isEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == "" || x == "0"
	case bool:
		return !x
	case int:
		return x == 0
	case float64:
		return x == 0
	}
	return false
}

var validName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// camelCase turns a label such as "Post Details" into "postDetails".
func camelCase(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	var b strings.Builder
	for i, w := range words {
		if i == 0 {
			if strings.ToUpper(w) == w {
				w = strings.ToLower(w)
			}
			b.WriteString(registry.LcFirst(w))
			continue
		}
		b.WriteString(registry.UcFirst(w))
	}
	return b.String()
}
