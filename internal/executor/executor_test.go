package executor

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestAsyncFieldsBatchOncePerDepth(t *testing.T) {
	rt := contentRuntime()
	got := execute(t, rt, `{ posts { title author { name posts { title } } } }`, nil)

	byAda := map[string]any{"name": "Ada", "posts": []any{map[string]any{"title": "Hello world"}}}
	assertResult(t, &ExecutionResult{Data: map[string]any{
		"posts": []any{
			map[string]any{"title": "Hello world", "author": byAda},
			map[string]any{"title": "Second post", "author": byAda},
		},
	}}, got)

	want := map[string][]int{
		"RootQuery.posts": {1},
		"Post.author":     {2, 2},
		"User.posts":      {3, 3},
	}
	if diff := cmp.Diff(want, asyncBatches(rt.GetCalls())); diff != "" {
		t.Fatalf("batches mismatch (-want +got):\n%s", diff)
	}

	var sources []any
	for _, c := range rt.GetCalls() {
		if c.Field == "author" {
			sources = append(sources, c.Source)
		}
	}
	require.Equal(t, []any{helloWorld, secondPost}, sources)
}

func TestSyncFieldsDoNotAddDepth(t *testing.T) {
	rt := contentRuntime()
	got := execute(t, rt, `{ viewer { name } menuItem { __typename ... on Category { name } } }`, nil)

	assertResult(t, &ExecutionResult{Data: map[string]any{
		"viewer":   map[string]any{"name": "Ada"},
		"menuItem": map[string]any{"__typename": "Category", "name": "News"},
	}}, got)
	require.Empty(t, asyncBatches(rt.GetCalls()))
}

func TestNonNullRootFieldError(t *testing.T) {
	rt := contentRuntime()
	rt.SetResolver("RootQuery", "featured", NewMockErrorResolver(errors.New("no featured post")))

	got := execute(t, rt, `{ featured { title } post(id: "1") { title } }`, nil)
	assertResult(t, &ExecutionResult{
		Data: map[string]any{
			"featured": nil,
			"post":     map[string]any{"title": "Hello world"},
		},
		Errors: []GraphQLError{{Message: "no featured post", Path: Path{"featured"}}},
	}, got)
}

func TestNonNullChildNullsParent(t *testing.T) {
	rt := contentRuntime()
	rt.SetResolver("User", "name", NewMockValueResolver(nil))

	got := execute(t, rt, `{ post(id: "1") { title author { id name } } }`, nil)
	assertResult(t, &ExecutionResult{
		Data: map[string]any{"post": map[string]any{"title": "Hello world", "author": nil}},
		Errors: []GraphQLError{{
			Message: "Cannot return null for non-nullable field post.author.name",
			Path:    Path{"post", "author", "name"},
		}},
	}, got)
}

func TestListCompletion(t *testing.T) {
	t.Run("typed slices and lists of objects", func(t *testing.T) {
		got := execute(t, contentRuntime(), `{ post(id: "1") { tags categories { name } } }`, nil)
		assertResult(t, &ExecutionResult{Data: map[string]any{"post": map[string]any{
			"tags":       []any{"intro", "news"},
			"categories": []any{map[string]any{"name": "News"}},
		}}}, got)
	})

	t.Run("null item of non-null type nulls the list", func(t *testing.T) {
		rt := contentRuntime()
		rt.SetResolver("Post", "categories", NewMockValueResolver([]any{news, nil}))

		got := execute(t, rt, `{ post(id: "1") { categories { name } } }`, nil)
		require.Equal(t, map[string]any{"post": map[string]any{"categories": nil}}, got.Data)
		require.Len(t, got.Errors, 1)
		require.Equal(t, Path{"post", "categories", 1}, got.Errors[0].Path)
		require.Contains(t, got.Errors[0].Message, "Cannot return null for non-nullable field")
	})

	t.Run("non-list value", func(t *testing.T) {
		rt := contentRuntime()
		rt.SetResolver("Post", "tags", NewMockValueResolver("intro"))

		got := execute(t, rt, `{ post(id: "1") { tags } }`, nil)
		assertResult(t, &ExecutionResult{
			Data:   map[string]any{"post": map[string]any{"tags": nil}},
			Errors: []GraphQLError{{Message: "Expected list value, got string", Path: Path{"post", "tags"}}},
		}, got)
	})
}

func TestLeafSerialization(t *testing.T) {
	rt := contentRuntime()
	rt.SetResolver("Post", "status", NewMockValueResolver("PENDING"))
	var leafTypes []string
	rt.SetSerializer(func(typeName string, v any) (any, error) {
		leafTypes = append(leafTypes, typeName)
		if typeName == "PostStatusEnum" && v == "PENDING" {
			return nil, fmt.Errorf("enum PostStatusEnum cannot represent %q", v)
		}
		return v, nil
	})

	got := execute(t, rt, `{ post(id: "1") { id status } }`, nil)
	assertResult(t, &ExecutionResult{
		Data:   map[string]any{"post": map[string]any{"id": "cG9zdDox", "status": nil}},
		Errors: []GraphQLError{{Message: `enum PostStatusEnum cannot represent "PENDING"`, Path: Path{"post", "status"}}},
	}, got)
	require.Equal(t, []string{"ID", "PostStatusEnum"}, leafTypes)
}

func TestAbstractTypes(t *testing.T) {
	t.Run("interface with inline fragments", func(t *testing.T) {
		got := execute(t, contentRuntime(), `{
			node(id: "Y2F0ZWdvcnk6Mw==") {
				__typename
				id
				... on Category { name }
				... on Post { title }
			}
		}`, nil)
		assertResult(t, &ExecutionResult{Data: map[string]any{"node": map[string]any{
			"__typename": "Category",
			"id":         "Y2F0ZWdvcnk6Mw==",
			"name":       "News",
		}}}, got)
	})

	t.Run("fragment on interface applies to implementations", func(t *testing.T) {
		got := execute(t, contentRuntime(), `
			query { post(id: "2") { ...NodeFields title } }
			fragment NodeFields on Node { id }
		`, nil)
		assertResult(t, &ExecutionResult{Data: map[string]any{
			"post": map[string]any{"id": "cG9zdDoy", "title": "Second post"},
		}}, got)
	})

	t.Run("resolved type outside the schema", func(t *testing.T) {
		rt := contentRuntime()
		rt.SetResolver("RootQuery", "node", NewMockValueResolver(map[string]any{"__typename": "Page"}))

		got := execute(t, rt, `{ node(id: "cGFnZTox") { id } }`, nil)
		assertResult(t, &ExecutionResult{
			Data: map[string]any{"node": nil},
			Errors: []GraphQLError{{
				Message: "Abstract type Node must resolve to an Object type at runtime. Got: Page",
				Path:    Path{"node"},
			}},
		}, got)
	})

	t.Run("type resolver error", func(t *testing.T) {
		rt := contentRuntime()
		rt.SetTypeResolver(func(any) (string, error) { return "", errors.New("unknown menu item") })

		got := execute(t, rt, `{ menuItem { ... on Post { title } } }`, nil)
		assertResult(t, &ExecutionResult{
			Data:   map[string]any{"menuItem": nil},
			Errors: []GraphQLError{{Message: "unknown menu item", Path: Path{"menuItem"}}},
		}, got)
	})
}

func TestOperationSelection(t *testing.T) {
	const twoOps = `query Posts { posts { title } } query Viewer { viewer { name } }`

	tests := []struct {
		name      string
		query     string
		operation string
		want      *ExecutionResult
	}{
		{
			name:      "named operation",
			query:     twoOps,
			operation: "Viewer",
			want:      &ExecutionResult{Data: map[string]any{"viewer": map[string]any{"name": "Ada"}}},
		},
		{
			name:  "unnamed with several operations",
			query: twoOps,
			want:  &ExecutionResult{Errors: []GraphQLError{{Message: "must provide operation name if query contains multiple operations"}}},
		},
		{
			name:      "unknown name",
			query:     twoOps,
			operation: "Drafts",
			want:      &ExecutionResult{Errors: []GraphQLError{{Message: `unknown operation named "Drafts"`}}},
		},
		{
			name:  "fragments only",
			query: `fragment Summary on Post { title }`,
			want:  &ExecutionResult{Errors: []GraphQLError{{Message: "document contains no operation"}}},
		},
		{
			name:  "no subscription root",
			query: `subscription { posts { title } }`,
			want:  &ExecutionResult{Errors: []GraphQLError{{Message: "root type not found for subscription operation"}}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := NewExecutor(contentRuntime(), contentSchema(t))
			got := exec.ExecuteRequest(context.Background(), mustParseQuery(t, tt.query), tt.operation, nil, nil)
			assertResult(t, tt.want, got)
		})
	}
}

func TestVariables(t *testing.T) {
	const postsQuery = `query ($where: RootQueryToPostConnectionWhereArgs, $first: Int) {
		posts(where: $where, first: $first) { title }
	}`

	t.Run("coerced into arguments", func(t *testing.T) {
		rt := contentRuntime()
		var args map[string]any
		rt.SetResolver("RootQuery", "posts", func(_ context.Context, _ any, a map[string]any) (any, error) {
			args = a
			return []any{helloWorld}, nil
		})

		got := execute(t, rt, postsQuery, map[string]any{
			"where": map[string]any{"status": "PUBLISH"},
			"first": float64(1),
		})
		require.Empty(t, got.Errors)
		require.Equal(t, map[string]any{
			"where": map[string]any{"status": "PUBLISH"},
			"first": 1,
		}, args)
	})

	t.Run("nested in object and list literals", func(t *testing.T) {
		rt := contentRuntime()
		var args map[string]any
		rt.SetResolver("RootQuery", "posts", func(_ context.Context, _ any, a map[string]any) (any, error) {
			args = a
			return []any{helloWorld}, nil
		})

		got := execute(t, rt, `query ($status: PostStatusEnum, $news: ID, $n: Int) {
			posts(where: {status: $status, categoryIn: [$news, "Y2F0ZWdvcnk6OQ=="]}, first: $n) { title }
		}`, map[string]any{"status": "DRAFT", "news": "Y2F0ZWdvcnk6Mw==", "n": float64(2)})
		require.Empty(t, got.Errors)
		require.Equal(t, map[string]any{
			"where": map[string]any{
				"status":     "DRAFT",
				"categoryIn": []any{"Y2F0ZWdvcnk6Mw==", "Y2F0ZWdvcnk6OQ=="},
			},
			"first": 2,
		}, args)
	})

	t.Run("unset variable leaves the input field out", func(t *testing.T) {
		rt := contentRuntime()
		var args map[string]any
		rt.SetResolver("RootQuery", "posts", func(_ context.Context, _ any, a map[string]any) (any, error) {
			args = a
			return nil, nil
		})

		got := execute(t, rt, `query ($search: String) {
			posts(where: {search: $search}) { title }
		}`, nil)
		require.Empty(t, got.Errors)
		require.Equal(t, map[string]any{"where": map[string]any{}}, args)
	})

	for _, tt := range []struct {
		name  string
		query string
		vars  map[string]any
		want  string
	}{
		{
			name:  "missing required variable",
			query: `query ($id: ID!) { post(id: $id) { title } }`,
			want:  "variable $id of required type ID! was not provided",
		},
		{
			name:  "null for non-null variable",
			query: `query ($id: ID!) { post(id: $id) { title } }`,
			vars:  map[string]any{"id": nil},
			want:  "variable $id of type ID! cannot be null",
		},
		{
			name:  "unknown enum value",
			query: postsQuery,
			vars:  map[string]any{"where": map[string]any{"status": "PENDING"}},
			want:  `value "PENDING" does not exist in enum PostStatusEnum`,
		},
		{
			name:  "unknown input field",
			query: postsQuery,
			vars:  map[string]any{"where": map[string]any{"author": "dXNlcjo3"}},
			want:  "field 'author' is not defined by input type RootQueryToPostConnectionWhereArgs",
		},
		{
			name:  "wrong scalar",
			query: postsQuery,
			vars:  map[string]any{"first": "ten"},
			want:  "cannot coerce ten (string) to int",
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			rt := contentRuntime()
			got := execute(t, rt, tt.query, tt.vars)
			require.Nil(t, got.Data)
			require.Len(t, got.Errors, 1)
			require.Contains(t, got.Errors[0].Message, tt.want)
			require.Empty(t, rt.GetCalls())
		})
	}
}

func TestArgumentErrors(t *testing.T) {
	t.Run("missing required argument", func(t *testing.T) {
		got := execute(t, contentRuntime(), `{ post { title } }`, nil)
		assertResult(t, &ExecutionResult{
			Data:   map[string]any{"post": nil},
			Errors: []GraphQLError{{Message: "argument 'id' of required type was not provided", Path: Path{"post"}}},
		}, got)
	})

	t.Run("int literal out of range", func(t *testing.T) {
		rt := contentRuntime()
		got := execute(t, rt, `{ posts(first: 9999999999) { title } }`, nil)
		require.Len(t, got.Errors, 1)
		require.Equal(t, Path{"posts"}, got.Errors[0].Path)
		require.Contains(t, got.Errors[0].Message, "Int cannot represent non 32-bit signed integer value: 9999999999")
	})

	t.Run("large int literal for an ID", func(t *testing.T) {
		rt := contentRuntime()
		var id any
		rt.SetResolver("RootQuery", "post", func(_ context.Context, _ any, a map[string]any) (any, error) {
			id = a["id"]
			return nil, nil
		})
		got := execute(t, rt, `{ post(id: 9999999999) { title } }`, nil)
		require.Empty(t, got.Errors)
		require.Equal(t, "9999999999", id)
	})

	t.Run("literal of the wrong type", func(t *testing.T) {
		got := execute(t, contentRuntime(), `{ posts(first: "ten") { title } }`, nil)
		require.Len(t, got.Errors, 1)
		require.Equal(t, Path{"posts"}, got.Errors[0].Path)
		require.Contains(t, got.Errors[0].Message, "argument 'first' cannot be coerced")
	})
}

func TestUnknownFieldIsOmitted(t *testing.T) {
	got := execute(t, contentRuntime(), `{ page { id } viewer { name } }`, nil)
	assertResult(t, &ExecutionResult{
		Data:   map[string]any{"viewer": map[string]any{"name": "Ada"}},
		Errors: []GraphQLError{{Message: "Cannot query field 'page' on type 'RootQuery'", Path: Path{"page"}}},
	}, got)
}

func TestFieldCollection(t *testing.T) {
	t.Run("skip and include", func(t *testing.T) {
		rt := contentRuntime()
		got := execute(t, rt, `query ($withAuthor: Boolean!) {
			post(id: "1") {
				title
				author @include(if: $withAuthor) { name }
				status @skip(if: true)
			}
		}`, map[string]any{"withAuthor": false})

		assertResult(t, &ExecutionResult{Data: map[string]any{"post": map[string]any{"title": "Hello world"}}}, got)
		require.NotContains(t, asyncBatches(rt.GetCalls()), "Post.author")
	})

	t.Run("aliases and fragment spreads", func(t *testing.T) {
		rt := contentRuntime()
		got := execute(t, rt, `
			{ first: post(id: "1") { ...Summary } second: post(id: "2") { ...Summary } }
			fragment Summary on Post { title status }
		`, nil)

		assertResult(t, &ExecutionResult{Data: map[string]any{
			"first":  map[string]any{"title": "Hello world", "status": "PUBLISH"},
			"second": map[string]any{"title": "Second post", "status": "DRAFT"},
		}}, got)
		require.Equal(t, map[string][]int{"RootQuery.post": {1, 1}}, asyncBatches(rt.GetCalls()))
	})

	t.Run("repeated fields merge their selections", func(t *testing.T) {
		rt := contentRuntime()
		got := execute(t, rt, `{ post(id: "1") { author { id } author { name } } }`, nil)

		assertResult(t, &ExecutionResult{Data: map[string]any{"post": map[string]any{
			"author": map[string]any{"id": "dXNlcjo3", "name": "Ada"},
		}}}, got)
		require.Equal(t, []int{2}, asyncBatches(rt.GetCalls())["Post.author"])
	})
}

func TestMutationsRunInOrder(t *testing.T) {
	rt := contentRuntime()
	var order []string
	rt.SetResolver("RootMutation", "createPost", func(_ context.Context, _ any, args map[string]any) (any, error) {
		order = append(order, "create "+args["title"].(string))
		return map[string]any{"__typename": "Post", "title": args["title"]}, nil
	})
	rt.SetResolver("RootMutation", "updatePost", func(_ context.Context, _ any, args map[string]any) (any, error) {
		order = append(order, "update "+args["id"].(string))
		return map[string]any{"__typename": "Post", "title": args["title"]}, nil
	})
	rt.SetResolver("RootMutation", "deletePost", func(_ context.Context, _ any, args map[string]any) (any, error) {
		order = append(order, "delete "+args["id"].(string))
		return nil, errors.New("post is locked")
	})

	got := execute(t, rt, `mutation {
		first: createPost(title: "A") { title }
		update: updatePost(id: "cG9zdDox", title: "B") { title }
		gone: deletePost(id: "cG9zdDoy")
		again: createPost(title: "C") { title }
	}`, nil)

	assertResult(t, &ExecutionResult{
		Data: map[string]any{
			"first":  map[string]any{"title": "A"},
			"update": map[string]any{"title": "B"},
			"gone":   nil,
			"again":  map[string]any{"title": "C"},
		},
		Errors: []GraphQLError{{Message: "post is locked", Path: Path{"gone"}}},
	}, got)
	require.Equal(t, []string{"create A", "update cG9zdDox", "delete cG9zdDoy", "create C"}, order)
	require.Empty(t, asyncBatches(rt.GetCalls()))
}

type userError struct{ msg string }

func (e userError) Error() string { return e.msg }

func (e userError) Extensions() map[string]any { return map[string]any{"category": "user"} }

func TestErrorExtensions(t *testing.T) {
	rt := contentRuntime()
	rt.SetResolver("RootQuery", "post", NewMockErrorResolver(fmt.Errorf("load post: %w", userError{"no post with id 9"})))
	rt.SetResolver("RootQuery", "viewer", NewMockErrorResolver(errors.New("viewer unavailable")))

	got := execute(t, rt, `{ post(id: "9") { title } viewer { name } }`, nil)
	assertResult(t, &ExecutionResult{
		Data: map[string]any{"post": nil, "viewer": nil},
		Errors: []GraphQLError{
			{Message: "viewer unavailable", Path: Path{"viewer"}},
			{Message: "load post: no post with id 9", Path: Path{"post"}, Extensions: map[string]any{"category": "user"}},
		},
	}, got)
}

func TestCancelledContextStopsAtDepthBoundary(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rt := contentRuntime()
	rt.SetResolver("RootQuery", "posts", func(context.Context, any, map[string]any) (any, error) {
		cancel()
		return []any{helloWorld, secondPost}, nil
	})

	got := executeContext(ctx, t, rt, `{ posts { title author { name } } }`, nil)
	assertResult(t, &ExecutionResult{
		Data: map[string]any{"posts": []any{
			map[string]any{"title": "Hello world", "author": nil},
			map[string]any{"title": "Second post", "author": nil},
		}},
		Errors: []GraphQLError{
			{Message: context.Canceled.Error(), Path: Path{"posts", 0, "author"}},
			{Message: context.Canceled.Error(), Path: Path{"posts", 1, "author"}},
		},
	}, got)
	require.Equal(t, map[string][]int{"RootQuery.posts": {1}}, asyncBatches(rt.GetCalls()))
}
