package customfield

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/hanpama/contentgraph/internal/datasource"
	"github.com/hanpama/contentgraph/internal/executor"
	"github.com/hanpama/contentgraph/internal/language"
	"github.com/hanpama/contentgraph/internal/registry"
	"github.com/hanpama/contentgraph/internal/schema"
)

var (
	postID  = datasource.GlobalID("Post", 1)
	draftID = datasource.GlobalID("Post", 2)
)

func newStore() *datasource.MemoryStore {
	return datasource.NewMemoryStore(
		&datasource.Node{Type: "Post", DatabaseID: 1, Data: map[string]any{"title": "Hello world"}, Meta: map[string]any{
			"field_subtitle": "A first post",
			"field_rating":   "4.5",
			"field_featured": "1",
			"field_cover":    10,
			"field_related":  []any{draftID},
			"field_links":    []any{map[string]any{"label": "Home", "url": "/"}},
			"field_sections": []any{
				map[string]any{layoutKey: "hero", "heading": "Welcome"},
				map[string]any{layoutKey: "quote", "text": "a\nb"},
				map[string]any{layoutKey: "retired"},
			},
		}},
		&datasource.Node{Type: "Post", DatabaseID: 2, Data: map[string]any{"title": "Draft notes"}},
		&datasource.Node{Type: "MediaItem", DatabaseID: 10, Data: map[string]any{"sourceUrl": "/cover.jpg"}},
	)
}

func newContentRegistry(t *testing.T, store datasource.Store, opts ...registry.Option) *registry.Registry {
	t.Helper()
	r := registry.New(opts...)
	for _, cfg := range []registry.TypeConfig{
		{Name: "Node", Kind: schema.TypeKindInterface, Fields: registry.StaticFields(registry.Fields{"id": {Type: "ID!"}})},
		{Name: "ContentNode", Kind: schema.TypeKindInterface, Interfaces: registry.Names("Node")},
		{Name: "Post", Kind: schema.TypeKindObject, Interfaces: registry.Names("Node", "ContentNode"),
			Fields: registry.StaticFields(registry.Fields{"title": {Type: "String"}})},
		{Name: "MediaItem", Kind: schema.TypeKindObject, Interfaces: registry.Names("Node", "ContentNode"),
			Fields: registry.StaticFields(registry.Fields{"sourceUrl": {Type: "String"}})},
		{Name: "RootQuery", Kind: schema.TypeKindObject, Fields: registry.StaticFields(registry.Fields{
			"post": {Type: "Post", Resolve: func(ctx context.Context, _ any, _ map[string]any, _ registry.ResolveInfo) (any, error) {
				nodes, err := store.LoadNodes(ctx, []string{postID})
				if err != nil {
					return nil, err
				}
				return nodes[0], nil
			}},
		})},
	} {
		require.NoError(t, r.RegisterType(cfg))
	}
	return r
}

var detailsGroup = FieldGroup{
	Key:       "group_details",
	Title:     "Post Details",
	Locations: []string{"Post"},
	Fields: []Field{
		{Key: "field_subtitle", Name: "subtitle", Type: "text"},
		{Key: "field_rating", Name: "rating", Type: "number", NonNull: true},
		{Key: "field_featured", Name: "featured", Type: "true_false"},
		{Key: "field_secret", Name: "secret", Type: "text", ShowInGraphQL: new(bool)},
		{Key: "field_unknown", Name: "legacy", Type: "foo"},
		{Key: "field_tab", Name: "layout_tab", Type: "tab"},
		{Key: "field_cover", Name: "cover", Type: "image"},
		{Key: "field_related", Name: "related", Type: "relationship"},
		{Key: "field_links", Name: "links", Type: "repeater", SubFields: []Field{
			{Key: "field_link_label", Name: "label", Type: "text"},
			{Key: "field_link_url", Name: "url", Type: "url"},
		}},
		{Key: "field_sections", Name: "sections", Type: "flexible_content", Layouts: []Layout{
			{Key: "layout_hero", Name: "hero", SubFields: []Field{{Key: "field_heading", Name: "heading", Type: "text"}}},
			{Key: "layout_quote", Name: "quote", SubFields: []Field{{Key: "field_text", Name: "text", Type: "textarea", NewLines: "br"}}},
		}},
		{Key: "field_clone", Name: "seo", Type: "clone", Clone: []string{"group_seo"}},
		{Key: "field_dup", Name: "subtitle", Type: "text"},
	},
}

var seoGroup = FieldGroup{
	Key:   "group_seo",
	Title: "SEO",
	Fields: []Field{
		{Key: "field_seo_title", Name: "seo_title", Type: "text"},
	},
}

func registerGroups(t *testing.T, r *registry.Registry, store datasource.Store) *Registry {
	t.Helper()
	cf := New(r, Builtins(), NewResolver(store))
	require.NoError(t, cf.RegisterFieldGroups([]FieldGroup{detailsGroup, seoGroup}))
	return cf
}

func TestFieldStates(t *testing.T) {
	store := newStore()
	r := newContentRegistry(t, store)
	cf := registerGroups(t, r, store)

	for name, want := range map[string]FieldState{
		"subtitle":  StateScalar,
		"rating":    StateScalar,
		"featured":  StateScalar,
		"secret":    StateExcluded,
		"legacy":    StateExcluded,
		"layoutTab": StateDropped,
		"cover":     StateConnection,
		"related":   StateConnection,
		"links":     StateScalar,
		"sections":  StateScalar,
		"seoTitle":  StateScalar,
	} {
		got, ok := cf.State("PostDetails", name)
		require.True(t, ok, name)
		require.Equal(t, want, got, name)
	}

	_, ok := cf.RegisteredField("PostDetails", "secret")
	require.False(t, ok)
	fc, ok := cf.RegisteredField("PostDetails", "seoTitle")
	require.True(t, ok)
	require.Equal(t, []string{"field_clone_field_seo_title"}, fc.CloneKeys)

	var codes []registry.Code
	for _, d := range r.Diagnostics() {
		codes = append(codes, d.Code)
	}
	require.Equal(t, []registry.Code{registry.CodeUnsupportedFieldKind, registry.CodeDuplicateField}, codes)
}

func TestGroupTypes(t *testing.T) {
	store := newStore()
	r := newContentRegistry(t, store)
	registerGroups(t, r, store)

	group, ok := r.GetType("PostDetails")
	require.True(t, ok)
	require.Equal(t, []string{"AcfFieldGroup", "PostDetails_Fields", "AcfFieldGroupFields"}, group.InterfaceNames())

	var names []string
	for _, f := range group.Fields() {
		names = append(names, f.Name+": "+f.Type)
	}
	want := []string{
		"cover: AcfMediaItemOneToOneConnectionEdge",
		"featured: Boolean",
		"fieldGroupName: String",
		"links: [PostDetailsLinks]",
		"rating: Float!",
		"related: AcfContentNodeConnection",
		"sections: [PostDetailsSections_Layout]",
		"seoTitle: String",
		"subtitle: String",
	}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Fatalf("PostDetails fields (-want +got):\n%s", diff)
	}

	post, _ := r.GetType("Post")
	require.Contains(t, post.InterfaceNames(), "WithAcfPostDetails")
	f, ok := post.Field("postDetails")
	require.True(t, ok)
	require.Equal(t, "PostDetails", f.Type)

	require.True(t, r.HasType("PostDetailsSectionsHeroLayout"))
	require.True(t, r.HasType("Seo"))
}

func TestHiddenAndExcludedGroups(t *testing.T) {
	store := newStore()
	r := newContentRegistry(t, store, registry.WithExclusions(registry.NewExclusionList([]string{"Seo"}, nil, nil)))
	hidden := FieldGroup{Key: "group_hidden", Title: "Hidden", ShowInGraphQL: new(bool), Locations: []string{"Post"}}
	cf := New(r, Builtins(), NewResolver(store))
	require.NoError(t, cf.RegisterFieldGroups([]FieldGroup{hidden, seoGroup}))

	require.False(t, r.HasType("Hidden"))
	require.False(t, r.HasType("Seo"))
	require.False(t, r.HasType("WithAcfHidden"))
}

func TestFieldGroupExecution(t *testing.T) {
	store := newStore()
	r := newContentRegistry(t, store)
	registerGroups(t, r, store)

	s, err := r.Schema()
	require.NoError(t, err)
	doc, err := language.ParseQuery(`{
		post {
			title
			postDetails {
				fieldGroupName
				subtitle
				rating
				featured
				seoTitle
				cover { node { sourceUrl } }
				related { nodes { ... on Post { title } } }
				links { label url }
				sections {
					__typename
					... on PostDetailsSectionsHeroLayout { heading }
					... on PostDetailsSectionsQuoteLayout { text }
				}
			}
		}
	}`)
	require.NoError(t, err)
	ctx := datasource.WithLoader(context.Background(), datasource.NewLoader(store))
	res := executor.NewExecutor(r.Runtime(), s).ExecuteRequest(ctx, doc, "", nil, nil)
	require.Empty(t, res.Errors)

	want := map[string]any{
		"post": map[string]any{
			"title": "Hello world",
			"postDetails": map[string]any{
				"fieldGroupName": "PostDetails",
				"subtitle":       "A first post",
				"rating":         4.5,
				"featured":       true,
				"seoTitle":       nil,
				"cover":          map[string]any{"node": map[string]any{"sourceUrl": "/cover.jpg"}},
				"related":        map[string]any{"nodes": []any{map[string]any{"title": "Draft notes"}}},
				"links":          []any{map[string]any{"label": "Home", "url": "/"}},
				"sections": []any{
					map[string]any{"__typename": "PostDetailsSectionsHeroLayout", "heading": "Welcome"},
					map[string]any{"__typename": "PostDetailsSectionsQuoteLayout", "text": "a<br />\nb"},
				},
			},
		},
	}
	if diff := cmp.Diff(want, res.Data); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}
}

func TestCloneCycles(t *testing.T) {
	tests := []struct {
		name   string
		groups []FieldGroup
		clone  string
	}{
		{
			name: "group display clone of its own group",
			groups: []FieldGroup{{Key: "group_a", Title: "A", Fields: []Field{
				{Key: "field_t", Name: "t", Type: "text"},
				{Key: "field_c", Name: "c", Type: "clone", Clone: []string{"group_a"}, Display: "group"},
			}}},
			clone: "c",
		},
		{
			name: "group display clones of each other",
			groups: []FieldGroup{
				{Key: "group_a", Title: "A", Fields: []Field{
					{Key: "field_t", Name: "t", Type: "text"},
					{Key: "field_c", Name: "c", Type: "clone", Clone: []string{"group_b"}, Display: "group"},
				}},
				{Key: "group_b", Title: "B", Fields: []Field{
					{Key: "field_d", Name: "d", Type: "clone", Clone: []string{"group_a"}, Display: "group"},
				}},
			},
			clone: "c",
		},
		{
			name: "seamless clone inside a group sub field",
			groups: []FieldGroup{{Key: "group_a", Title: "A", Fields: []Field{
				{Key: "field_t", Name: "t", Type: "text"},
				{Key: "field_g", Name: "g", Type: "group", SubFields: []Field{
					{Key: "field_c", Name: "c", Type: "clone", Clone: []string{"group_a"}},
				}},
			}}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newContentRegistry(t, newStore())
			cf := New(r, Builtins(), NewResolver(newStore()))
			require.NoError(t, cf.RegisterFieldGroups(tt.groups))

			got, ok := cf.State("A", "t")
			require.True(t, ok)
			require.Equal(t, StateScalar, got)
			if tt.clone != "" {
				_, ok := cf.State("A", tt.clone)
				require.False(t, ok, "cyclic clone must not be mapped")
			}

			var reported bool
			for _, d := range r.Diagnostics() {
				if d.Code == registry.CodeInvalidArgument && d.Field == "c" {
					reported = true
				}
			}
			require.True(t, reported, "cycle must be reported: %v", r.Diagnostics())

			_, err := r.Schema()
			require.NoError(t, err)
		})
	}
}

func TestGroupDisplayClone(t *testing.T) {
	r := newContentRegistry(t, newStore())
	cf := New(r, Builtins(), NewResolver(newStore()))
	require.NoError(t, cf.RegisterFieldGroups([]FieldGroup{
		{Key: "group_b", Title: "B", Fields: []Field{
			{Key: "field_c", Name: "c", Type: "clone", Clone: []string{"group_seo"}, Display: "group"},
		}},
		seoGroup,
	}))

	got, ok := cf.State("B", "c")
	require.True(t, ok)
	require.Equal(t, StateScalar, got)
	got, ok = cf.State("BC", "seoTitle")
	require.True(t, ok)
	require.Equal(t, StateScalar, got)
	require.Empty(t, r.Diagnostics())
}

func TestMediaConnectionsIndependentOfFieldOrder(t *testing.T) {
	image := Field{Key: "field_image", Name: "image", Type: "image"}
	gallery := Field{Key: "field_gallery", Name: "gallery", Type: "gallery"}
	for name, fields := range map[string][]Field{
		"image first":   {image, gallery},
		"gallery first": {gallery, image},
	} {
		t.Run(name, func(t *testing.T) {
			r := newContentRegistry(t, newStore())
			cf := New(r, Builtins(), NewResolver(newStore()))
			require.NoError(t, cf.RegisterFieldGroups([]FieldGroup{{Key: "group_m", Title: "Media", Fields: fields}}))

			group, ok := r.GetType("Media")
			require.True(t, ok)
			f, ok := group.Field("image")
			require.True(t, ok)
			require.Equal(t, "AcfMediaItemOneToOneConnectionEdge", f.Type)
			f, ok = group.Field("gallery")
			require.True(t, ok)
			require.Equal(t, "AcfMediaItemConnection", f.Type)

			edge, _ := r.GetType("AcfMediaItemOneToOneConnectionEdge")
			require.Equal(t, []string{"OneToOneConnection", "Edge", "MediaItemConnectionEdge"}, edge.InterfaceNames())
			edge, _ = r.GetType("AcfMediaItemConnectionEdge")
			require.Equal(t, []string{"MediaItemConnectionEdge", "Edge"}, edge.InterfaceNames())
			require.Empty(t, r.Diagnostics())
		})
	}
}

func TestConnectionNameClashIsReported(t *testing.T) {
	r := newContentRegistry(t, newStore())
	require.NoError(t, r.RegisterType(registry.TypeConfig{
		Name:   "AcfMediaItemOneToOneConnectionEdge",
		Kind:   schema.TypeKindObject,
		Fields: registry.StaticFields(registry.Fields{"cursor": {Type: "String"}}),
	}))
	cf := New(r, Builtins(), NewResolver(newStore()))
	require.NoError(t, cf.RegisterFieldGroups([]FieldGroup{{Key: "group_m", Title: "Media", Fields: []Field{
		{Key: "field_title", Name: "title", Type: "text"},
		{Key: "field_image", Name: "image", Type: "image"},
	}}}))

	group, ok := r.GetType("Media")
	require.True(t, ok)
	_, ok = group.Field("image")
	require.False(t, ok)
	_, ok = group.Field("title")
	require.True(t, ok)

	diags := r.Diagnostics()
	require.Len(t, diags, 1)
	require.Equal(t, registry.CodeInvalidArgument, diags[0].Code)
	require.Equal(t, "image", diags[0].Field)
	require.Contains(t, diags[0].Message, "AcfMediaItemOneToOneConnectionEdge")
}
