package schema

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestSchemaSnapshot(t *testing.T) {
	schema, err := BuildFromSDL(mustReadFile(t, "testdata/content.graphql"))
	require.NoError(t, err, "failed to build schema from SDL")

	actual, err := json.MarshalIndent(schema, "", "  ")
	require.NoError(t, err, "failed to marshal schema to JSON")

	compareSnapshot(t, filepath.Join("testdata", "schema_snapshot.json"), string(actual))
}

func TestSchemaRenderSnapshot(t *testing.T) {
	schema, err := BuildFromSDL(mustReadFile(t, "testdata/content.graphql"))
	require.NoError(t, err, "failed to build schema from SDL")

	compareSnapshot(t, filepath.Join("testdata", "schema_rendered.graphql"), Render(schema))
}

func TestRenderRoundTrip(t *testing.T) {
	first, err := BuildFromSDL(mustReadFile(t, "testdata/content.graphql"))
	require.NoError(t, err)

	second, err := BuildFromSDL(Render(first))
	require.NoError(t, err, "rendered SDL must parse again")

	if diff := cmp.Diff(Render(first), Render(second)); diff != "" {
		t.Errorf("render is not stable (-first +second):\n%s", diff)
	}
}

func TestBuildFromSDL(t *testing.T) {
	s, err := BuildFromSDL(mustReadFile(t, "testdata/content.graphql"))
	require.NoError(t, err)

	require.Equal(t, "RootQuery", s.QueryType)
	require.Equal(t, "RootMutation", s.MutationType)

	post := s.Types["Post"]
	require.NotNil(t, post)
	require.Equal(t, []string{"Node", "ContentNode"}, post.Interfaces)

	excerpt := post.FieldByName("excerpt")
	require.NotNil(t, excerpt, "extension fields are merged into the base type")
	require.True(t, excerpt.IsDeprecated)
	require.Equal(t, "No longer supported", excerpt.DeprecationReason)

	date := post.FieldByName("date")
	require.Len(t, date.Arguments, 1)
	require.Equal(t, "Y-m-d", date.Arguments[0].DefaultValue)

	input := s.Types["PostInput"]
	require.Equal(t, "DRAFT", input.InputFieldByName("status").DefaultValue)

	enum := s.Types["PostStatusEnum"]
	require.Len(t, enum.EnumValues, 3)
	require.Equal(t, "Use delete mutations", enum.EnumValues[2].DeprecationReason)

	dt := s.Types["DateTime"]
	require.NotNil(t, dt.SpecifiedByURL)
	require.Equal(t, "https://tools.ietf.org/html/rfc3339", *dt.SpecifiedByURL)

	require.Contains(t, s.Directives, "cacheControl")
	require.Contains(t, s.Directives, "deprecated")
}

func TestBuildFromSDLErrors(t *testing.T) {
	tests := []struct {
		name string
		sdl  string
	}{
		{"syntax", "type Query {"},
		{"no query type", "type Post { id: ID }"},
		{"extend unknown", "type Query { a: Int }\nextend type Missing { b: Int }"},
		{"duplicate field", "type Query { a: Int }\nextend type Query { a: Int }"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildFromSDL(tt.sdl)
			require.Error(t, err)
		})
	}
}

func TestRenderSchemaBlock(t *testing.T) {
	s := NewSchema("").SetQueryType("RootQuery")
	for _, scalar := range BuiltinScalars() {
		s.AddType(scalar)
	}
	s.AddType(NewType("Post", TypeKindObject, "").
		AddField(NewField("title", "", NamedType("String"))))
	s.AddType(NewType("RootQuery", TypeKindObject, "").
		AddField(NewField("post", "", NamedType("Post")).
			AddArgument(NewInputValue("id", "", NonNullType(NamedType("ID"))))))

	want := "schema {\n" +
		"  query: RootQuery\n" +
		"}\n" +
		"\n" +
		"type Post {\n" +
		"  title: String\n" +
		"}\n" +
		"\n" +
		"type RootQuery {\n" +
		"  post(id: ID!): Post\n" +
		"}\n"
	if diff := cmp.Diff(want, Render(s)); diff != "" {
		t.Errorf("Render mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderValueSortsObjectKeys(t *testing.T) {
	got := FormatValue(map[string]any{"b": 1, "a": []any{"x", true}})
	require.Equal(t, `{a: ["x", true], b: 1}`, got)
}

func TestParseTypeRef(t *testing.T) {
	tests := []struct {
		in   string
		want *TypeRef
	}{
		{"ID", NamedType("ID")},
		{"ID!", NonNullType(NamedType("ID"))},
		{"[Post]", ListType(NamedType("Post"))},
		{" [ String ! ] ! ", NonNullType(ListType(NonNullType(NamedType("String"))))},
		{"[[Int]]", ListType(ListType(NamedType("Int")))},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTypeRef(tt.in)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseTypeRef(%q) mismatch (-want +got):\n%s", tt.in, diff)
			}
		})
	}
}

func TestParseTypeRefErrors(t *testing.T) {
	for _, in := range []string{"", "!", "[ID", "ID]", "1Post", "ID!!"} {
		_, err := ParseTypeRef(in)
		require.Error(t, err, "input %q", in)
	}
}

func TestTypeRefStringAndRename(t *testing.T) {
	ref := NonNullType(ListType(NonNullType(NamedType("Post"))))
	require.Equal(t, "[Post!]!", ref.String())
	require.Equal(t, "[Page!]!", ref.Rename("Page").String())
	require.Equal(t, "[Post!]!", ref.String(), "Rename must not mutate the receiver")
	require.Equal(t, "Post", ref.GetNamedType())
}

func compareSnapshot(t *testing.T, snapshotPath, actual string) {
	t.Helper()
	if _, err := os.Stat(snapshotPath); os.IsNotExist(err) {
		err := os.WriteFile(snapshotPath, []byte(actual), 0644)
		require.NoError(t, err, "failed to write snapshot file")
		t.Logf("Created snapshot file: %s", snapshotPath)
		return
	}

	expected, err := os.ReadFile(snapshotPath)
	require.NoError(t, err, "failed to read snapshot file")

	if diff := cmp.Diff(string(expected), actual); diff != "" {
		t.Errorf("snapshot %s mismatch (-want +got):\n%s", snapshotPath, diff)
	}
}

func mustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	require.NoError(t, err, "failed to read file: %s", path)
	return string(content)
}
