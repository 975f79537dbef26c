package customfield

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hanpama/contentgraph/internal/datasource"
)

func mapped(fieldType string, f Field) *FieldConfig {
	if f.Type == "" {
		f.Type = fieldType
	}
	ft, _ := Builtins().Get(fieldType)
	return &FieldConfig{
		MappedField: MappedField{
			SourceFieldKey:   f.Key,
			SourceFieldType:  fieldType,
			Name:             f.Name,
			GraphQLFieldName: camelCase(f.Name),
			GroupTypeName:    "PostDetails",
			FormatOnRead:     true,
		},
		Field:     f,
		fieldType: ft,
	}
}

func TestReferenceKeyWinsOverName(t *testing.T) {
	fc := mapped("text", Field{Key: "field_1", Name: "fieldname"})
	root := &Root{Values: map[string]any{"_fieldname": "reference", "fieldname": "plain"}}

	v, err := NewResolver(nil).ResolveValue(context.Background(), root, fc)
	require.NoError(t, err)
	require.Equal(t, "reference", v)
}

func TestResolveValueFallbackChain(t *testing.T) {
	store := datasource.NewMemoryStore(&datasource.Node{
		Type: "Post", DatabaseID: 1,
		Meta: map[string]any{"field_1": "stored"},
	})
	postID := datasource.GlobalID("Post", 1)
	fc := mapped("text", Field{Key: "field_1", Name: "subtitle"})
	fc.CloneKeys = []string{"field_clone_field_1"}
	fc.ParentName = "details"
	pre := func(_ context.Context, root *Root, _ *FieldConfig) any {
		if root.ID == "pre" {
			return "from hook"
		}
		return nil
	}
	resolver := NewResolver(store, WithPreResolver(pre))

	for _, tc := range []struct {
		name string
		root *Root
		want any
	}{
		{"field key", &Root{ID: postID, Values: map[string]any{"field_1": "key", "field_clone_field_1": "clone", "subtitle": "name"}}, "key"},
		{"clone key", &Root{ID: postID, Values: map[string]any{"field_clone_field_1": "clone", "_subtitle": "ref"}}, "clone"},
		{"reference", &Root{Values: map[string]any{"_subtitle": "ref", "subtitle": "name"}}, "ref"},
		{"name", &Root{ID: postID, Values: map[string]any{"subtitle": "name", "field_1": nil}}, "name"},
		{"pre-resolver", &Root{ID: "pre"}, "from hook"},
		{"block", &Root{ID: postID, Values: map[string]any{
			"blockName": "acf/card",
			"attrs":     map[string]any{"data": map[string]any{"subtitle": "block"}},
		}}, "block"},
		{"block parent prefix", &Root{Values: map[string]any{
			"blockName": "acf/card",
			"attrs":     map[string]any{"data": map[string]any{"details_subtitle": "nested"}},
		}}, "nested"},
		{"no id", &Root{}, nil},
		{"store", &Root{ID: postID}, "stored"},
		{"missing object", &Root{ID: datasource.GlobalID("Post", 9)}, nil},
	} {
		t.Run(tc.name, func(t *testing.T) {
			v, err := resolver.ResolveValue(context.Background(), tc.root, fc)
			require.NoError(t, err)
			require.Equal(t, tc.want, v)
		})
	}
}

func TestValueFiltersAreFinal(t *testing.T) {
	fc := mapped("number", Field{Key: "field_n", Name: "count"})
	var seen any
	resolver := NewResolver(nil,
		WithValueFilter(func(_ context.Context, v any, _ *Root, _ *FieldConfig) any {
			seen = v
			return "filtered"
		}),
	)
	v, err := resolver.ResolveValue(context.Background(), &Root{Values: map[string]any{"count": "2"}}, fc)
	require.NoError(t, err)
	require.Equal(t, 2.0, seen)
	require.Equal(t, "filtered", v)
}

func TestNumericCoercion(t *testing.T) {
	resolver := NewResolver(nil)
	for _, tc := range []struct {
		stored any
		want   any
	}{
		{"", nil},
		{"  ", nil},
		{"abc", nil},
		{"3.5", 3.5},
		{4, 4.0},
		{uint64(7), 7.0},
		{2.25, 2.25},
	} {
		fc := mapped("number", Field{Key: "field_n", Name: "count"})
		v, err := resolver.ResolveValue(context.Background(), &Root{Values: map[string]any{"field_n": tc.stored}}, fc)
		require.NoError(t, err)
		require.Equal(t, tc.want, v, "stored %#v", tc.stored)
	}
}

func TestPrepareValue(t *testing.T) {
	for _, tc := range []struct {
		name      string
		fieldType string
		field     Field
		in        any
		want      any
	}{
		{"wpautop", "textarea", Field{NewLines: "wpautop"}, "one\ntwo\n\nthree", "<p>one<br />\ntwo</p>\n<p>three</p>\n"},
		{"br", "textarea", Field{NewLines: "br"}, "a\nb", "a<br />\nb"},
		{"untouched text", "textarea", Field{}, "a\nb", "a\nb"},
		{"array projection", "checkbox", Field{ReturnFormat: "array"},
			[]any{map[string]any{"value": "red", "label": "Red"}, "blue"}, []any{"red", "blue"}},
		{"date", "date_picker", Field{ReturnFormat: "F j, Y"}, "20240301", "March 1, 2024"},
		{"date ordinal", "date_picker", Field{ReturnFormat: `jS \o\f F`}, "20240302", "2nd of March"},
		{"date time", "date_time_picker", Field{ReturnFormat: "Y-m-d g:i a"}, "2024-03-01 15:04:00", "2024-03-01 3:04 pm"},
		{"time", "time_picker", Field{ReturnFormat: "H:i"}, "09:30:00", "09:30"},
		{"unparsable date", "date_picker", Field{ReturnFormat: "Y"}, "soon", "soon"},
		{"empty date", "date_picker", Field{ReturnFormat: "Y"}, "", nil},
		{"date without format", "date_picker", Field{}, "20240301", "20240301"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			fc := mapped(tc.fieldType, tc.field)
			require.Equal(t, tc.want, prepareValue(tc.in, fc))
		})
	}
}

func TestOverrideTable(t *testing.T) {
	for _, tc := range []struct {
		fieldType string
		in        any
		want      any
	}{
		{"true_false", "1", true},
		{"true_false", "0", false},
		{"true_false", nil, false},
		{"true_false", 1, true},
		{"checkbox", "", nil},
		{"checkbox", "red", []any{"red"}},
		{"checkbox", []any{"red", "blue"}, []any{"red", "blue"}},
		{"select", nil, nil},
		{"select", "0", nil},
		{"select", []any{}, []any{}},
		{"text", "", ""},
		{"text", 3, 3},
	} {
		require.Equal(t, tc.want, override(tc.fieldType, tc.in), "%s %#v", tc.fieldType, tc.in)
	}
}

func TestGraphQLTypeNeverDoubleWrapsNonNull(t *testing.T) {
	fc := mapped("text", Field{Key: "field_t", Name: "title", NonNull: true})
	require.Equal(t, "String!", fc.GraphQLType())

	fc.fieldType = scalar("custom", "ID!")
	require.Equal(t, "ID!", fc.GraphQLType())

	fc.fieldType = scalar("custom", "[String]")
	require.Equal(t, "[String]!", fc.GraphQLType())

	fc.fieldType = layoutOnly("tab")
	require.Equal(t, TypeNull, fc.GraphQLType())
	require.Nil(t, fc.GraphQLFieldConfig())
}

func TestRelationIDs(t *testing.T) {
	media := datasource.GlobalID("MediaItem", 10)
	require.Equal(t, []string{media}, relationIDs(10, "MediaItem"))
	require.Equal(t, []string{media}, relationIDs("10", "MediaItem"))
	require.Equal(t, []string{media, "cG9zdDoy"}, relationIDs([]any{uint64(10), map[string]any{"id": "cG9zdDoy"}}, "MediaItem"))
	require.Equal(t, []string{"cG9zdDoy"}, relationIDs([]any{"cG9zdDoy", 3, ""}, ""))
	require.Nil(t, relationIDs(nil, "User"))
}
