package datasource

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/hanpama/contentgraph/internal/eventbus"
	"github.com/hanpama/contentgraph/internal/events"
)

func openFixtures(t *testing.T) *MemoryStore {
	t.Helper()
	s, err := OpenMemoryStore("testdata/fixtures.yaml")
	require.NoError(t, err)
	return s
}

func nodeIDs(nodes []*Node) []string {
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		if n != nil {
			ids[i] = n.ID
		}
	}
	return ids
}

func TestGlobalID(t *testing.T) {
	id := GlobalID("Post", 1)
	require.Equal(t, "cG9zdDox", id)

	typ, dbID, err := ParseGlobalID(id)
	require.NoError(t, err)
	require.Equal(t, "post", typ)
	require.Equal(t, 1, dbID)

	for _, bad := range []string{"***", "cG9zdA==", "OjE=", "cG9zdDp4"} {
		_, _, err := ParseGlobalID(bad)
		require.ErrorIs(t, err, ErrInvalidID, bad)
	}
}

func TestLoadFixtures(t *testing.T) {
	s := openFixtures(t)
	nodes, err := s.LoadNodes(context.Background(), []string{"cG9zdDox", "missing", "Y2F0ZWdvcnk6Mw=="})
	require.NoError(t, err)
	require.Equal(t, []string{"cG9zdDox", "", "Y2F0ZWdvcnk6Mw=="}, nodeIDs(nodes))
	require.Equal(t, "Hello world", nodes[0].Data["title"])
	require.Equal(t, "Category", nodes[2].GraphQLTypeName())

	_, err = LoadFixtures([]byte("nodes:\n  - type: Post\n    databaseId: 1\n    extra: true\n"))
	require.Error(t, err, "unknown keys are rejected")
	_, err = LoadFixtures([]byte("nodes:\n  - databaseId: 1\n"))
	require.EqualError(t, err, "fixture node 0: type is required")
	_, err = LoadFixtures([]byte("nodes:\n  - type: Post\n"))
	require.EqualError(t, err, "fixture node 0: id or databaseId is required")
}

func TestNodeFieldValue(t *testing.T) {
	n := &Node{
		ID:         "cG9zdDox",
		DatabaseID: 1,
		Type:       "Post",
		Data:       map[string]any{"title": "Hello"},
		Meta:       map[string]any{"field_subtitle": "Sub", "title": "shadowed"},
	}
	for name, want := range map[string]any{
		"id":             "cG9zdDox",
		"databaseId":     1,
		"title":          "Hello",
		"field_subtitle": "Sub",
	} {
		got, ok := n.FieldValue(name)
		require.True(t, ok, name)
		require.Equal(t, want, got, name)
	}
	_, ok := n.FieldValue("missing")
	require.False(t, ok)
}

func TestMemoryStoreQueryNodes(t *testing.T) {
	s := openFixtures(t)
	ctx := context.Background()

	posts, err := s.QueryNodes(ctx, Query{Types: []string{"post"}})
	require.NoError(t, err)
	require.Equal(t, []string{"cG9zdDox", "cG9zdDoy"}, nodeIDs(posts))

	posts, err = s.QueryNodes(ctx, Query{Types: []string{"Post"}, Order: OrderDesc})
	require.NoError(t, err)
	require.Equal(t, []string{"cG9zdDoy", "cG9zdDox"}, nodeIDs(posts))

	published, err := s.QueryNodes(ctx, Query{Types: []string{"Post"}, Where: map[string]any{"status": "publish"}})
	require.NoError(t, err)
	require.Equal(t, []string{"cG9zdDox"}, nodeIDs(published))

	inCategory, err := s.QueryNodes(ctx, Query{Where: map[string]any{"categories": "Y2F0ZWdvcnk6Mw=="}})
	require.NoError(t, err)
	require.Equal(t, []string{"cG9zdDox"}, nodeIDs(inCategory))

	all, err := s.QueryNodes(ctx, Query{})
	require.NoError(t, err)
	require.Len(t, all, 3)
}

func TestMemoryStoreWrites(t *testing.T) {
	s := openFixtures(t)
	ctx := context.Background()

	saved, err := s.SaveNode(ctx, &Node{Type: "Post", Data: map[string]any{"title": "New"}, Meta: map[string]any{"field_x": 5}})
	require.NoError(t, err)
	require.Equal(t, 4, saved.DatabaseID)
	require.Equal(t, "cG9zdDo0", saved.ID)

	saved.Data["title"] = "mutated by caller"
	nodes, err := s.LoadNodes(ctx, []string{"cG9zdDo0"})
	require.NoError(t, err)
	require.Equal(t, "New", nodes[0].Data["title"])

	v, err := s.GetValue(ctx, "field_x", "cG9zdDo0", true)
	require.NoError(t, err)
	require.Equal(t, 5, v)

	v, err = s.GetValue(ctx, "field_x", "missing", true)
	require.NoError(t, err)
	require.Nil(t, v)

	deleted, err := s.DeleteNode(ctx, "cG9zdDo0")
	require.NoError(t, err)
	require.Equal(t, "New", deleted.Data["title"])

	_, err = s.DeleteNode(ctx, "cG9zdDo0")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = s.SaveNode(ctx, &Node{})
	require.Error(t, err)
}

func TestLoaderBatchesPendingIDs(t *testing.T) {
	s := openFixtures(t)
	bus := eventbus.New()
	eventbus.Use(bus)
	defer eventbus.Use(nil)
	var batches []events.LoaderBatch
	eventbus.On(bus, func(_ context.Context, e events.LoaderBatch) { batches = append(batches, e) })

	l := NewLoader(s)
	ctx := context.Background()
	a := l.Load("cG9zdDox")
	b := l.Load("cG9zdDoy")
	dup := l.Load("cG9zdDox")
	missing := l.Load("nope")
	require.Equal(t, 0, s.LoadCalls(), "loading is deferred until the first await")

	v, err := b.Await(ctx)
	require.NoError(t, err)
	require.Equal(t, "Draft notes", v.(*Node).Data["title"])
	require.Equal(t, 1, s.LoadCalls())

	for _, d := range []*Deferred{a, dup} {
		n, err := d.Node(ctx)
		require.NoError(t, err)
		require.Equal(t, "cG9zdDox", n.ID)
	}
	v, err = missing.Await(ctx)
	require.NoError(t, err)
	require.Nil(t, v)
	require.Equal(t, 1, s.LoadCalls())

	// Cached ids are not fetched again.
	_, err = l.Load("cG9zdDox").Await(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, s.LoadCalls())

	_, err = l.Load("Y2F0ZWdvcnk6Mw==").Await(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, s.LoadCalls())

	want := []events.LoaderBatch{
		{Store: "memory", Keys: 3, Found: 2},
		{Store: "memory", Keys: 1, Found: 1},
	}
	if diff := cmp.Diff(want, batches, cmp.FilterPath(func(p cmp.Path) bool {
		return p.Last().String() == ".Duration"
	}, cmp.Ignore())); diff != "" {
		t.Fatalf("batches mismatch (-want +got):\n%s", diff)
	}
}

func TestLoaderPrimeAndClear(t *testing.T) {
	s := openFixtures(t)
	l := NewLoader(s)
	ctx := context.Background()

	l.Prime(&Node{ID: "cG9zdDox", Type: "Post", Data: map[string]any{"title": "primed"}})
	n, err := l.Load("cG9zdDox").Node(ctx)
	require.NoError(t, err)
	require.Equal(t, "primed", n.Data["title"])
	require.Equal(t, 0, s.LoadCalls())

	l.Clear("cG9zdDox")
	n, err = l.Load("cG9zdDox").Node(ctx)
	require.NoError(t, err)
	require.Equal(t, "Hello world", n.Data["title"])
	require.Equal(t, 1, s.LoadCalls())
}

type failingStore struct{ *MemoryStore }

func (failingStore) LoadNodes(context.Context, []string) ([]*Node, error) {
	return nil, errors.New("connection reset")
}

func TestLoaderPropagatesStoreErrors(t *testing.T) {
	l := NewLoader(failingStore{NewMemoryStore()})
	a := l.Load("a")
	b := l.Load("b")
	_, err := a.Await(context.Background())
	require.EqualError(t, err, "connection reset")
	_, err = b.Await(context.Background())
	require.EqualError(t, err, "connection reset")
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	_, ok := LoaderFrom(ctx)
	require.False(t, ok)
	require.Empty(t, QueryClassFrom(ctx))

	l := NewLoader(NewMemoryStore())
	ctx = WithLoader(ctx, l)
	got, ok := LoaderFrom(ctx)
	require.True(t, ok)
	require.Same(t, l, got)

	require.Empty(t, QueryClassFrom(WithQueryClass(ctx, "")))
	require.Equal(t, "post", QueryClassFrom(WithQueryClass(ctx, "post")))
}

func TestRedisStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	url := os.Getenv("CONTENTGRAPH_TEST_REDIS_URL")
	if url == "" {
		url = "redis://localhost:6379/15"
	}
	ctx := context.Background()
	s, err := DialRedis(ctx, url, WithKeyPrefix("contentgraph-test:"+t.Name()+":"))
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	defer s.Close()
	defer func() {
		keys, _ := s.client.Keys(ctx, s.prefix+"*").Result()
		if len(keys) > 0 {
			s.client.Del(ctx, keys...)
		}
	}()

	first, err := s.SaveNode(ctx, &Node{Type: "Post", Data: map[string]any{"title": "One", "status": "publish"}, Meta: map[string]any{"field_x": "x"}})
	require.NoError(t, err)
	second, err := s.SaveNode(ctx, &Node{Type: "Post", Data: map[string]any{"title": "Two", "status": "draft"}})
	require.NoError(t, err)
	require.Greater(t, second.DatabaseID, first.DatabaseID)

	nodes, err := s.LoadNodes(ctx, []string{second.ID, "missing", first.ID})
	require.NoError(t, err)
	require.Equal(t, []string{second.ID, "", first.ID}, nodeIDs(nodes))
	require.Equal(t, "x", nodes[2].Meta["field_x"])

	v, err := s.GetValue(ctx, "field_x", first.ID, false)
	require.NoError(t, err)
	require.Equal(t, "x", v)
	v, err = s.GetValue(ctx, "field_y", first.ID, false)
	require.NoError(t, err)
	require.Nil(t, v)

	published, err := s.QueryNodes(ctx, Query{Types: []string{"Post"}, Where: map[string]any{"status": "publish"}})
	require.NoError(t, err)
	require.Equal(t, []string{first.ID}, nodeIDs(published))

	_, err = s.DeleteNode(ctx, first.ID)
	require.NoError(t, err)
	_, err = s.DeleteNode(ctx, first.ID)
	require.ErrorIs(t, err, ErrNotFound)

	remaining, err := s.QueryNodes(ctx, Query{Types: []string{"post"}, Order: OrderDesc})
	require.NoError(t, err)
	require.Equal(t, []string{second.ID}, nodeIDs(remaining))
}
