// Package datasource is the persistence boundary of the schema: node storage,
// custom-field value lookup and request-scoped batched loading.
package datasource

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

var (
	// ErrNotFound is returned when a node does not exist.
	ErrNotFound = errors.New("node not found")
	// ErrInvalidID is returned for malformed global ids.
	ErrInvalidID = errors.New("invalid global id")
)

// Store reads content nodes and stored field values.
type Store interface {
	// Name identifies the store in logs and metrics.
	Name() string
	// GetValue returns the value stored under storageKey for the object
	// identified by contextID. format asks the store to apply its read-time
	// formatting. A missing value is nil without error.
	GetValue(ctx context.Context, storageKey, contextID string, format bool) (any, error)
	// LoadNodes returns the nodes for ids in the same order; missing ids yield
	// nil entries.
	LoadNodes(ctx context.Context, ids []string) ([]*Node, error)
	// QueryNodes returns every node matching q, ordered by q.Order.
	QueryNodes(ctx context.Context, q Query) ([]*Node, error)
}

// Writer persists content nodes.
type Writer interface {
	// SaveNode inserts or replaces n. A zero DatabaseID is assigned by the
	// store; an empty ID is derived from Type and DatabaseID.
	SaveNode(ctx context.Context, n *Node) (*Node, error)
	// DeleteNode removes the node and returns its last state.
	DeleteNode(ctx context.Context, id string) (*Node, error)
}

// ReadWriter is a Store that also accepts writes.
type ReadWriter interface {
	Store
	Writer
}

// Order of QueryNodes results, by database id.
type Order string

const (
	OrderAsc  Order = "ASC"
	OrderDesc Order = "DESC"
)

// Query selects nodes. Where entries match node data by equality; a list
// valued data field matches when it contains the wanted value.
type Query struct {
	Types []string
	Where map[string]any
	Order Order
}

// Node is one stored content object.
type Node struct {
	ID         string         `json:"id" yaml:"id"`
	DatabaseID int            `json:"databaseId" yaml:"databaseId"`
	Type       string         `json:"type" yaml:"type"`
	Data       map[string]any `json:"data,omitempty" yaml:"data"`
	// Meta holds custom-field values keyed by field key, prefetched with the
	// node.
	Meta map[string]any `json:"meta,omitempty" yaml:"meta"`
}

// FieldValue reads id, databaseId, then data and meta entries.
func (n *Node) FieldValue(name string) (any, bool) {
	switch name {
	case "id":
		return n.ID, true
	case "databaseId":
		return n.DatabaseID, true
	}
	if v, ok := n.Data[name]; ok {
		return v, true
	}
	v, ok := n.Meta[name]
	return v, ok
}

// GraphQLTypeName reports the node's object type.
func (n *Node) GraphQLTypeName() string { return n.Type }

// ContextID is the id custom-field values are stored against.
func (n *Node) ContextID() string { return n.ID }

// Clone returns a copy whose maps can be modified independently.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := *n
	c.Data = cloneMap(n.Data)
	c.Meta = cloneMap(n.Meta)
	return &c
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// GlobalID encodes a node type and database id as an opaque id.
func GlobalID(typ string, databaseID int) string {
	return base64.StdEncoding.EncodeToString([]byte(strings.ToLower(typ) + ":" + strconv.Itoa(databaseID)))
}

// ParseGlobalID decodes an id produced by GlobalID. The type is lowercase.
func ParseGlobalID(id string) (typ string, databaseID int, err error) {
	raw, err := base64.StdEncoding.DecodeString(id)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	typ, num, ok := strings.Cut(string(raw), ":")
	if !ok || typ == "" {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	databaseID, err = strconv.Atoi(num)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return typ, databaseID, nil
}

// Matches reports whether n satisfies the type and where filters of q.
func (q Query) Matches(n *Node) bool {
	if len(q.Types) > 0 {
		found := false
		for _, t := range q.Types {
			if strings.EqualFold(t, n.Type) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for key, want := range q.Where {
		got, ok := n.FieldValue(key)
		if !ok || !matchValue(got, want) {
			return false
		}
	}
	return true
}

func matchValue(got, want any) bool {
	rv := reflect.ValueOf(got)
	if rv.Kind() == reflect.Slice {
		for i := 0; i < rv.Len(); i++ {
			if scalarEqual(rv.Index(i).Interface(), want) {
				return true
			}
		}
		return false
	}
	return scalarEqual(got, want)
}

func scalarEqual(a, b any) bool {
	return fmt.Sprint(a) == fmt.Sprint(b)
}

// SortNodes orders nodes by database id.
func SortNodes(nodes []*Node, order Order) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if order == OrderDesc {
			return nodes[i].DatabaseID > nodes[j].DatabaseID
		}
		return nodes[i].DatabaseID < nodes[j].DatabaseID
	})
}
