package connection

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

// stored is a node that may have been deleted by the time it is awaited.
type stored struct {
	id   string
	gone bool
}

func (s stored) Await(context.Context) (any, error) {
	if s.gone {
		return nil, nil
	}
	return s.id, nil
}

func intp(n int) *int { return &n }

func TestPaginate(t *testing.T) {
	ids := []string{"a", "b", "c", "d", "e"}
	self := func(s string) string { return s }
	tests := []struct {
		name     string
		args     Args
		want     []string
		wantInfo PageInfo
	}{
		{name: "default limit", args: Args{}, want: ids},
		{name: "first", args: Args{First: intp(2)}, want: []string{"a", "b"}, wantInfo: PageInfo{HasNextPage: true}},
		{name: "last", args: Args{Last: intp(2)}, want: []string{"d", "e"}, wantInfo: PageInfo{HasPreviousPage: true}},
		{name: "after", args: Args{After: EncodeCursor("b"), First: intp(2)}, want: []string{"c", "d"}, wantInfo: PageInfo{HasNextPage: true, HasPreviousPage: true}},
		{name: "before", args: Args{Before: EncodeCursor("c")}, want: []string{"a", "b"}, wantInfo: PageInfo{HasNextPage: true}},
		{name: "unknown cursor", args: Args{After: EncodeCursor("z")}, want: ids},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := Paginate(ids, self, tt.args, DefaultLimits)
			require.NoError(t, err)
			var got []string
			for _, e := range page.Edges {
				got = append(got, e.Node.(string))
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("nodes (-want +got):\n%s", diff)
			}
			want := tt.wantInfo
			want.StartCursor = EncodeCursor(tt.want[0])
			want.EndCursor = EncodeCursor(tt.want[len(tt.want)-1])
			require.Equal(t, want, page.PageInfo)
		})
	}

	_, err := Paginate(ids, self, Args{After: "not a cursor"}, DefaultLimits)
	require.Error(t, err)
}

func TestSettleDropsMissingNodes(t *testing.T) {
	tests := []struct {
		name      string
		gone      map[string]bool
		want      []any
		wantStart any
		wantEnd   any
	}{
		{name: "first node gone", gone: map[string]bool{"a": true}, want: []any{"b", "c"}, wantStart: EncodeCursor("b"), wantEnd: EncodeCursor("c")},
		{name: "last node gone", gone: map[string]bool{"c": true}, want: []any{"a", "b"}, wantStart: EncodeCursor("a"), wantEnd: EncodeCursor("b")},
		{name: "every node gone", gone: map[string]bool{"a": true, "b": true, "c": true}, want: []any{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var items []stored
			for _, id := range []string{"a", "b", "c", "d"} {
				items = append(items, stored{id: id, gone: tt.gone[id]})
			}
			page, err := Paginate(items, func(s stored) string { return s.id }, Args{First: intp(3)}, DefaultLimits)
			require.NoError(t, err)

			settled, err := page.Settle(context.Background())
			require.NoError(t, err)
			out := settled.(map[string]any)
			if diff := cmp.Diff(tt.want, out["nodes"]); diff != "" {
				t.Fatalf("nodes (-want +got):\n%s", diff)
			}
			require.Len(t, out["edges"], len(tt.want))
			require.Equal(t, map[string]any{
				"hasNextPage":     true,
				"hasPreviousPage": false,
				"startCursor":     tt.wantStart,
				"endCursor":       tt.wantEnd,
			}, out["pageInfo"])
		})
	}
}
