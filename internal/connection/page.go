package connection

import (
	"context"
	"encoding/base64"
	"fmt"
	"math"
	"strings"

	"github.com/hanpama/contentgraph/internal/registry"
)

const cursorPrefix = "arrayconnection:"

// Limits bound the page size.
type Limits struct {
	Default int
	Max     int
}

// DefaultLimits returns 10 items per page when no count is requested and never
// more than 100.
var DefaultLimits = Limits{Default: 10, Max: 100}

// Args are the pagination arguments of a connection field.
type Args struct {
	First  *int
	Last   *int
	After  string
	Before string
	Where  map[string]any
}

// ArgsFromMap reads first, last, after, before and where from coerced field
// arguments.
func ArgsFromMap(args map[string]any) (Args, error) {
	var a Args
	var err error
	if a.First, err = countArg(args, "first"); err != nil {
		return a, err
	}
	if a.Last, err = countArg(args, "last"); err != nil {
		return a, err
	}
	a.After, _ = args["after"].(string)
	a.Before, _ = args["before"].(string)
	a.Where, _ = args["where"].(map[string]any)
	return a, nil
}

func countArg(args map[string]any, name string) (*int, error) {
	var n int
	switch v := args[name].(type) {
	case nil:
		return nil, nil
	case int:
		n = v
	case int32:
		n = int(v)
	case int64:
		n = int(v)
	case float64:
		if v != math.Trunc(v) {
			return nil, fmt.Errorf("%s must be an integer", name)
		}
		n = int(v)
	default:
		return nil, fmt.Errorf("%s must be an integer, got %T", name, v)
	}
	if n < 0 {
		return nil, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return &n, nil
}

// EncodeCursor returns the opaque cursor of an item id.
func EncodeCursor(id string) string {
	return base64.StdEncoding.EncodeToString([]byte(cursorPrefix + id))
}

// DecodeCursor returns the item id of a cursor.
func DecodeCursor(cursor string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(cursor)
	if err != nil || !strings.HasPrefix(string(raw), cursorPrefix) {
		return "", fmt.Errorf("invalid cursor %q", cursor)
	}
	return strings.TrimPrefix(string(raw), cursorPrefix), nil
}

// Edge pairs a cursor with a node. The node may be deferred.
type Edge struct {
	Cursor string
	Node   any
}

// PageInfo reports whether items exist outside the returned window.
type PageInfo struct {
	HasNextPage     bool
	HasPreviousPage bool
	StartCursor     string
	EndCursor       string
}

// Page is one window of a connection.
type Page struct {
	Edges    []*Edge
	PageInfo PageInfo
}

// Paginate slices items according to args, following the Relay cursor
// connection algorithm. Cursors that do not match an item leave the window
// unchanged.
func Paginate[T any](items []T, cursorOf func(T) string, args Args, limits Limits) (*Page, error) {
	if limits.Default <= 0 {
		limits.Default = DefaultLimits.Default
	}
	if limits.Max <= 0 {
		limits.Max = DefaultLimits.Max
	}
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = cursorOf(it)
	}

	start, end := 0, len(items)
	if args.After != "" {
		id, err := DecodeCursor(args.After)
		if err != nil {
			return nil, err
		}
		if i := indexOf(ids, id); i >= 0 {
			start = i + 1
		}
	}
	if args.Before != "" {
		id, err := DecodeCursor(args.Before)
		if err != nil {
			return nil, err
		}
		if i := indexOf(ids, id); i >= 0 && i < end {
			end = i
		}
	}
	if start > end {
		start = end
	}

	first, last := args.First, args.Last
	if first == nil && last == nil {
		n := limits.Default
		first = &n
	}

	var info PageInfo
	if first != nil {
		n := min(*first, limits.Max)
		if end-start > n {
			end = start + n
			info.HasNextPage = true
		}
	}
	if last != nil {
		n := min(*last, limits.Max)
		if end-start > n {
			start = end - n
			info.HasPreviousPage = true
		}
	}
	if start > 0 && args.After != "" {
		info.HasPreviousPage = true
	}
	if end < len(items) && args.Before != "" {
		info.HasNextPage = true
	}

	page := &Page{Edges: make([]*Edge, 0, end-start), PageInfo: info}
	for i := start; i < end; i++ {
		page.Edges = append(page.Edges, &Edge{Cursor: EncodeCursor(ids[i]), Node: items[i]})
	}
	if len(page.Edges) > 0 {
		page.PageInfo.StartCursor = page.Edges[0].Cursor
		page.PageInfo.EndCursor = page.Edges[len(page.Edges)-1].Cursor
	}
	return page, nil
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

// Settle awaits deferred nodes and returns the page as plain values. Edges
// whose node no longer exists are dropped, and the start and end cursors
// follow the edges that remain.
func (p *Page) Settle(ctx context.Context) (any, error) {
	edges := make([]any, 0, len(p.Edges))
	nodes := make([]any, 0, len(p.Edges))
	var startCursor, endCursor string
	for _, e := range p.Edges {
		node, err := awaitNode(ctx, e.Node)
		if err != nil {
			return nil, err
		}
		if node == nil {
			continue
		}
		if startCursor == "" {
			startCursor = e.Cursor
		}
		endCursor = e.Cursor
		edges = append(edges, map[string]any{"cursor": e.Cursor, "node": node})
		nodes = append(nodes, node)
	}
	info := map[string]any{
		"hasNextPage":     p.PageInfo.HasNextPage,
		"hasPreviousPage": p.PageInfo.HasPreviousPage,
		"startCursor":     nullable(startCursor),
		"endCursor":       nullable(endCursor),
	}
	return map[string]any{"edges": edges, "nodes": nodes, "pageInfo": info}, nil
}

// Settle awaits the edge's node. A missing node resolves the edge to null.
func (e *Edge) Settle(ctx context.Context) (any, error) {
	node, err := awaitNode(ctx, e.Node)
	if err != nil || node == nil {
		return nil, err
	}
	return map[string]any{"cursor": nullable(e.Cursor), "node": node}, nil
}

func awaitNode(ctx context.Context, node any) (any, error) {
	if d, ok := node.(registry.Deferred); ok {
		return d.Await(ctx)
	}
	return node, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
