package registry

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	schema "github.com/hanpama/contentgraph/internal/schema"
)

func registerInterface(t *testing.T, r *Registry, name string, ifaces []InterfaceRef, fields Fields) {
	t.Helper()
	require.NoError(t, r.RegisterType(TypeConfig{
		Name:       name,
		Kind:       schema.TypeKindInterface,
		Interfaces: ifaces,
		Fields:     StaticFields(fields),
	}))
}

func registerObject(t *testing.T, r *Registry, name string, ifaces []InterfaceRef, fields Fields) {
	t.Helper()
	require.NoError(t, r.RegisterType(TypeConfig{
		Name:       name,
		Kind:       schema.TypeKindObject,
		Interfaces: ifaces,
		Fields:     StaticFields(fields),
	}))
}

func TestInterfaceFieldsAreInherited(t *testing.T) {
	r := New()
	registerInterface(t, r, "Node", nil, Fields{
		"id": {Type: "ID!", Description: "The globally unique ID for the object"},
	})
	registerObject(t, r, "Post", Names("Node"), Fields{"title": {Type: "String"}})

	post, _ := r.GetType("Post")
	require.Equal(t, []string{"Node"}, post.InterfaceNames())
	require.Equal(t, []string{"id", "title"}, fieldNames(post.Fields()))

	id, ok := post.Field("id")
	require.True(t, ok)
	require.Equal(t, "ID!", id.Type)
	require.Equal(t, "The globally unique ID for the object", id.Description)
}

func TestInterfaceBackfillsEmptyAttributes(t *testing.T) {
	r := New()
	registerInterface(t, r, "ContentNode", nil, Fields{
		"uri": {Type: "String", Description: "The unique resource identifier path", DeprecationReason: "use link"},
	})
	registerObject(t, r, "Page", Names("ContentNode"), Fields{
		"uri": {Description: "Page path"},
	})

	page, _ := r.GetType("Page")
	uri, ok := page.Field("uri")
	require.True(t, ok)
	require.Equal(t, "String", uri.Type, "type is taken from the interface")
	require.Equal(t, "Page path", uri.Description, "own description wins")
	require.Equal(t, "use link", uri.DeprecationReason)
}

func TestInterfaceResolutionFollowsOneHop(t *testing.T) {
	r := New()
	registerInterface(t, r, "Node", nil, Fields{"id": {Type: "ID!"}})
	registerInterface(t, r, "UniformResourceIdentifiable", Names("Node"), Fields{"uri": {Type: "String"}})
	registerInterface(t, r, "ContentNode", Names("UniformResourceIdentifiable"), Fields{"date": {Type: "String"}})
	registerObject(t, r, "Post", Names("ContentNode"), Fields{"title": {Type: "String"}})

	post, _ := r.GetType("Post")
	require.Equal(t, []string{"ContentNode", "UniformResourceIdentifiable"}, post.InterfaceNames(),
		"Node is two hops away and must be declared explicitly")
	require.Equal(t, []string{"date", "title", "uri"}, fieldNames(post.Fields()))
}

func TestInterfaceResolutionDeduplicates(t *testing.T) {
	r := New()
	registerInterface(t, r, "Node", nil, Fields{"id": {Type: "ID!"}})
	registerInterface(t, r, "ContentNode", Names("Node"), Fields{"uri": {Type: "String"}})
	registerObject(t, r, "Post", Names("Node", "ContentNode", "node"), Fields{"title": {Type: "String"}})

	post, _ := r.GetType("Post")
	require.Equal(t, []string{"Node", "ContentNode"}, post.InterfaceNames())
	require.Empty(t, r.Diagnostics())
}

func TestInterfaceResolutionReportsBadReferences(t *testing.T) {
	r := New()
	registerObject(t, r, "User", nil, Fields{"name": {Type: "String"}})
	registerInterface(t, r, "Commenter", Names("Commenter"), Fields{"name": {Type: "String"}})
	registerObject(t, r, "Post", Names("Missing", "User", "Post"), Fields{"title": {Type: "String"}})

	post, _ := r.GetType("Post")
	require.Empty(t, post.InterfaceNames())
	commenter, _ := r.GetType("Commenter")
	require.Empty(t, commenter.InterfaceNames())

	var messages []string
	for _, d := range r.Diagnostics() {
		require.Equal(t, CodeUnresolvableInterface, d.Code)
		messages = append(messages, d.Type+": "+d.Message)
	}
	want := []string{
		`Post: interface "Missing" is not registered`,
		`Post: "User" is a OBJECT, not an interface`,
		`Post: type cannot implement itself`,
		`Commenter: type cannot implement itself`,
	}
	if diff := cmp.Diff(want, messages); diff != "" {
		t.Fatalf("diagnostics mismatch (-want +got):\n%s", diff)
	}
}

func TestInterfaceDefinitionReference(t *testing.T) {
	r := New()
	registerInterface(t, r, "Node", nil, Fields{"id": {Type: "ID!"}})
	node, _ := r.GetType("Node")
	registerObject(t, r, "Post", []InterfaceRef{Ref(node)}, nil)

	post, _ := r.GetType("Post")
	require.Equal(t, []string{"Node"}, post.InterfaceNames())
	require.Equal(t, []string{"id"}, fieldNames(post.Fields()))
}

func TestRegisterInterfacesLater(t *testing.T) {
	r := New()
	require.NoError(t, r.RegisterInterfaces("Post", "WithAcfPostFields"))
	registerInterface(t, r, "WithAcfPostFields", nil, Fields{"postFields": {Type: "String"}})
	registerObject(t, r, "Post", nil, Fields{"title": {Type: "String"}})
	require.NoError(t, r.RegisterInterfaces("post", "Node"))
	registerInterface(t, r, "Node", nil, Fields{"id": {Type: "ID!"}})

	post, _ := r.GetType("Post")
	require.Equal(t, []string{"WithAcfPostFields", "Node"}, post.InterfaceNames())
	require.Equal(t, []string{"id", "postFields", "title"}, fieldNames(post.Fields()))
}

func TestInterfaceResolverHook(t *testing.T) {
	r := New()
	registerInterface(t, r, "Node", nil, Fields{"id": {Type: "ID!"}})
	registerInterface(t, r, "Private", nil, Fields{"secret": {Type: "String"}})
	registerObject(t, r, "Post", Names("Private"), Fields{"title": {Type: "String"}})
	r.AddInterfaceResolver(InterfaceResolverFunc(func(typeName string, refs []InterfaceRef) []InterfaceRef {
		if typeName != "Post" {
			return refs
		}
		return Names("Node")
	}))

	post, _ := r.GetType("Post")
	require.Equal(t, []string{"Node"}, post.InterfaceNames())
	require.Equal(t, []string{"id", "title"}, fieldNames(post.Fields()))
}

func TestArgumentsAreMergedFromInterface(t *testing.T) {
	r := New()
	registerInterface(t, r, "DatedNode", nil, Fields{
		"date": {
			Type: "String",
			Args: map[string]*ArgConfig{
				"format": {Type: "String", Description: "PHP date format"},
				"tz":     {Type: "String"},
			},
		},
	})
	registerObject(t, r, "Post", Names("DatedNode"), Fields{
		"date": {
			Type: "String",
			Args: map[string]*ArgConfig{"format": {Type: "String"}},
		},
	})

	post, _ := r.GetType("Post")
	date, ok := post.Field("date")
	require.True(t, ok)
	require.Equal(t, []string{"format", "tz"}, date.ArgNames())
	require.Equal(t, "PHP date format", date.Args["format"].Description)
	require.Empty(t, r.Diagnostics())
}

func TestArgumentTypeMismatchKeepsConcreteDefinition(t *testing.T) {
	r := New()
	registerInterface(t, r, "Node", nil, Fields{
		"media": {Type: "String", Args: map[string]*ArgConfig{"size": {Type: "Int"}}},
	})
	registerObject(t, r, "Post", Names("Node"), Fields{
		"media": {Type: "String", Args: map[string]*ArgConfig{"size": {Type: "String!"}}},
	})

	post, _ := r.GetType("Post")
	media, ok := post.Field("media")
	require.True(t, ok)
	require.Equal(t, "String!", media.Args["size"].Type)
	require.Equal(t, []Code{CodeArgumentTypeMismatch}, diagnosticCodes(r))

	registerObject(t, r, "RootQuery", nil, Fields{"post": {Type: "Post"}})
	s, err := r.Schema()
	require.NoError(t, err)
	require.Equal(t, "String!", s.Types["Post"].FieldByName("media").Arguments[0].Type.String())
}

func TestArgumentTypeComparisonIgnoresWhitespace(t *testing.T) {
	r := New()
	registerInterface(t, r, "Node", nil, Fields{
		"tags": {Type: "[String]", Args: map[string]*ArgConfig{"in": {Type: "[ID!]"}}},
	})
	registerObject(t, r, "Post", Names("Node"), Fields{
		"tags": {Type: "[String]", Args: map[string]*ArgConfig{"in": {Type: " [ ID! ] "}}},
	})

	post, _ := r.GetType("Post")
	post.Fields()
	require.Empty(t, r.Diagnostics())
}
