package executor

import (
	"context"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	language "github.com/hanpama/contentgraph/internal/language"
	schema "github.com/hanpama/contentgraph/internal/schema"
)

const contentSDL = `
schema { query: RootQuery mutation: RootMutation }

interface Node { id: ID! }

type Post implements Node {
  id: ID!
  title: String
  status: PostStatusEnum
  tags: [String]
  author: User @async
  categories: [Category!] @async
}

type User implements Node {
  id: ID!
  name: String!
  posts(first: Int): [Post] @async
}

type Category implements Node {
  id: ID!
  name: String
}

enum PostStatusEnum { PUBLISH DRAFT }

input RootQueryToPostConnectionWhereArgs {
  status: PostStatusEnum
  search: String
  categoryIn: [ID]
}

union MenuItemObjectUnion = Post | Category

type RootQuery {
  post(id: ID!): Post @async
  posts(where: RootQueryToPostConnectionWhereArgs, first: Int): [Post] @async
  node(id: ID!): Node @async
  featured: Post! @async
  menuItem: MenuItemObjectUnion
  viewer: User
}

type RootMutation {
  createPost(title: String!): Post
  updatePost(id: ID!, title: String): Post
  deletePost(id: ID!): ID
}
`

var (
	ada        = map[string]any{"__typename": "User", "id": "dXNlcjo3", "name": "Ada"}
	helloWorld = map[string]any{"__typename": "Post", "id": "cG9zdDox", "title": "Hello world", "status": "PUBLISH", "tags": []string{"intro", "news"}}
	secondPost = map[string]any{"__typename": "Post", "id": "cG9zdDoy", "title": "Second post", "status": "DRAFT"}
	news       = map[string]any{"__typename": "Category", "id": "Y2F0ZWdvcnk6Mw==", "name": "News"}
)

func mustParseQuery(t *testing.T, q string) *language.QueryDocument {
	t.Helper()
	doc, err := language.ParseQuery(q)
	if err != nil {
		t.Fatalf("parse query: %v", err)
	}
	return doc
}

func contentSchema(t *testing.T) *schema.Schema {
	t.Helper()
	sch, err := schema.BuildFromSDL(contentSDL)
	if err != nil {
		t.Fatalf("build schema: %v", err)
	}
	return sch
}

// prop reads key from a map source.
func prop(key string) MockResolver {
	return func(_ context.Context, source any, _ map[string]any) (any, error) {
		return source.(map[string]any)[key], nil
	}
}

// contentRuntime serves the fixture posts, users and categories.
func contentRuntime() *MockRuntime {
	byID := map[string]any{"1": helloWorld, "2": secondPost}
	rt := NewMockRuntime(map[string]MockResolver{
		"RootQuery.post": func(_ context.Context, _ any, args map[string]any) (any, error) {
			id, _ := args["id"].(string)
			return byID[id], nil
		},
		"RootQuery.posts":    NewMockValueResolver([]any{helloWorld, secondPost}),
		"RootQuery.node":     NewMockValueResolver(news),
		"RootQuery.featured": NewMockValueResolver(helloWorld),
		"RootQuery.menuItem": NewMockValueResolver(news),
		"RootQuery.viewer":   NewMockValueResolver(ada),
		"Post.author":        NewMockValueResolver(ada),
		"Post.categories":    NewMockValueResolver([]any{news}),
		"User.posts":         NewMockValueResolver([]any{helloWorld}),
	})
	for typ, fields := range map[string][]string{
		"Post":     {"id", "title", "status", "tags"},
		"User":     {"id", "name"},
		"Category": {"id", "name"},
	} {
		for _, f := range fields {
			rt.SetResolver(typ, f, prop(f))
		}
	}
	return rt
}

func execute(t *testing.T, rt Runtime, query string, vars map[string]any) *ExecutionResult {
	t.Helper()
	return executeContext(context.Background(), t, rt, query, vars)
}

func executeContext(ctx context.Context, t *testing.T, rt Runtime, query string, vars map[string]any) *ExecutionResult {
	t.Helper()
	return NewExecutor(rt, contentSchema(t)).ExecuteRequest(ctx, mustParseQuery(t, query), "", vars, nil)
}

func assertResult(t *testing.T, want, got *ExecutionResult) {
	t.Helper()
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
}

// asyncBatches maps each async field to the batch ids it was resolved in.
func asyncBatches(calls []Call) map[string][]int {
	out := map[string][]int{}
	for _, c := range calls {
		if c.Kind == CallKindAsync {
			key := c.ObjectType + "." + c.Field
			out[key] = append(out[key], c.BatchID)
		}
	}
	for _, ids := range out {
		sort.Ints(ids)
	}
	return out
}
