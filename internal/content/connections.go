package content

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/hanpama/contentgraph/internal/connection"
	"github.com/hanpama/contentgraph/internal/datasource"
	"github.com/hanpama/contentgraph/internal/registry"
)

// filter maps where arguments of one connection onto a store query.
type filter struct {
	types []string
	// refs maps where arguments to the node data keys holding ids.
	refs map[string]ref
}

// ref is a data key holding global ids of typeName.
type ref struct {
	key      string
	typeName string
}

// scopeFunc restricts a connection to its source node. ok is false when the
// source is not a node.
type scopeFunc func(source any) (where map[string]any, ok bool)

func commonWhere() registry.Fields {
	return registry.Fields{
		"search": {Type: "String", Description: "Show results matching the search keyword"},
		"order":  {Type: "OrderEnum", Description: "Direction the connection should be ordered in"},
	}
}

func (b *Builder) contentWhere(p PostType) (registry.Fields, filter) {
	where := commonWhere()
	where["status"] = &registry.FieldConfig{Type: "PostStatusEnum", Description: "Show posts with a specific status."}
	f := filter{types: []string{p.TypeName()}, refs: map[string]ref{}}
	if !b.excluded(userType) {
		where["authorId"] = &registry.FieldConfig{Type: "ID", Description: "Show objects written by this author"}
		f.refs["authorId"] = ref{"authorId", userType}
	}
	if p.Hierarchical {
		where["parent"] = &registry.FieldConfig{Type: "ID", Description: "Show objects with this parent"}
		f.refs["parent"] = ref{"parentId", p.TypeName()}
	}
	for _, taxName := range p.Taxonomies {
		t, _ := b.model.taxonomy(taxName)
		if !shown(t.ShowInGraphQL) || b.excluded(t.TypeName()) {
			continue
		}
		arg := t.single() + "Id"
		where[arg] = &registry.FieldConfig{Type: "ID", Description: fmt.Sprintf("Show objects assigned to this %s", t.single())}
		f.refs[arg] = ref{t.plural(), t.TypeName()}
	}
	return where, f
}

func (b *Builder) registerRootConnections() error {
	query := b.reg.QueryTypeName()
	var specs []connection.Spec
	for _, p := range b.visiblePostTypes() {
		where, f := b.contentWhere(p)
		specs = append(specs, connection.Spec{
			FromType: query, ToType: p.TypeName(), FromFieldName: p.plural(),
			ConnectionArgs: where,
			Resolve:        b.queryResolver(f, nil),
			QueryClass:     p.Name,
		})
	}
	for _, t := range b.visibleTaxonomies() {
		where := commonWhere()
		f := filter{types: []string{t.TypeName()}, refs: map[string]ref{}}
		if t.Hierarchical {
			where["parent"] = &registry.FieldConfig{Type: "ID", Description: "Show terms with this parent"}
			f.refs["parent"] = ref{"parentId", t.TypeName()}
		}
		specs = append(specs, connection.Spec{
			FromType: query, ToType: t.TypeName(), FromFieldName: t.plural(),
			ConnectionArgs: where,
			Resolve:        b.queryResolver(f, nil),
			QueryClass:     t.Name,
		})
	}

	contentWhere := commonWhere()
	contentWhere["status"] = &registry.FieldConfig{Type: "PostStatusEnum", Description: "Show posts with a specific status."}
	contentWhere["contentTypes"] = &registry.FieldConfig{Type: "[ContentTypeEnum]", Description: "The Types of content to filter"}
	specs = append(specs, connection.Spec{
		FromType: query, ToType: "ContentNode", FromFieldName: "contentNodes",
		ConnectionArgs: contentWhere,
		Resolve:        b.queryResolver(filter{types: append(b.contentTypeNames(), mediaItemType)}, nil),
		QueryClass:     "content",
	})
	if len(b.visibleTaxonomies()) > 0 {
		termWhere := commonWhere()
		termWhere["taxonomies"] = &registry.FieldConfig{Type: "[TaxonomyEnum]", Description: "The taxonomies to filter by"}
		var terms []string
		for _, t := range b.visibleTaxonomies() {
			terms = append(terms, t.TypeName())
		}
		specs = append(specs, connection.Spec{
			FromType: query, ToType: "TermNode", FromFieldName: "terms",
			ConnectionArgs: termWhere,
			Resolve:        b.queryResolver(filter{types: terms}, nil),
			QueryClass:     "term",
		})
	}
	if !b.excluded(mediaItemType) {
		specs = append(specs, connection.Spec{
			FromType: query, ToType: mediaItemType, FromFieldName: "mediaItems",
			ConnectionArgs: commonWhere(),
			Resolve:        b.queryResolver(filter{types: []string{mediaItemType}}, nil),
			QueryClass:     "attachment",
		})
	}
	if !b.excluded(userType) {
		specs = append(specs, connection.Spec{
			FromType: query, ToType: userType, FromFieldName: "users",
			ConnectionArgs: commonWhere(),
			Resolve:        b.queryResolver(filter{types: []string{userType}}, nil),
			QueryClass:     "user",
		})
	}

	for _, spec := range specs {
		if _, err := connection.Register(b.reg, spec); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) registerAuthor(typeName string) error {
	if b.excluded(userType) {
		return nil
	}
	_, err := connection.Register(b.reg, connection.Spec{
		FromType: typeName, ToType: userType, FromFieldName: "author",
		OneToOne:    true,
		Description: "Connection between the NodeWithAuthor type and the User type",
		Resolve:     b.edgeResolver("authorId", userType),
	})
	return err
}

func (b *Builder) registerHierarchy(typeName string) error {
	if _, err := connection.Register(b.reg, connection.Spec{
		FromType: typeName, ToType: typeName, FromFieldName: "parent",
		ConnectionTypeName: typeName + "ToParentConnection",
		OneToOne:           true,
		Description:        "The parent of the node",
		Resolve:            b.edgeResolver("parentId", typeName),
	}); err != nil {
		return err
	}
	_, err := connection.Register(b.reg, connection.Spec{
		FromType: typeName, ToType: typeName, FromFieldName: "children",
		ConnectionTypeName: typeName + "ToChildrenConnection",
		ConnectionArgs:     commonWhere(),
		Description:        "Connection between the node and its children",
		Resolve:            b.queryResolver(filter{types: []string{typeName}}, nodeScope("parentId")),
	})
	return err
}

// registerTermConnections links a post type and a taxonomy both ways. A post
// stores the global ids of its terms under the taxonomy's plural name.
func (b *Builder) registerTermConnections(p PostType, t Taxonomy) error {
	if _, err := connection.Register(b.reg, connection.Spec{
		FromType: p.TypeName(), ToType: t.TypeName(), FromFieldName: t.plural(),
		Resolve:    b.idListResolver(t.plural(), t.TypeName()),
		QueryClass: t.Name,
	}); err != nil {
		return err
	}
	where, f := b.contentWhere(p)
	_, err := connection.Register(b.reg, connection.Spec{
		FromType: t.TypeName(), ToType: p.TypeName(), FromFieldName: p.plural(),
		ConnectionArgs: where,
		Resolve:        b.queryResolver(f, nodeScope(t.plural())),
		QueryClass:     p.Name,
	})
	return err
}

// nodeScope matches nodes whose key holds the source node's id.
func nodeScope(key string) scopeFunc {
	return func(source any) (map[string]any, bool) {
		n, ok := source.(*datasource.Node)
		if !ok || n == nil {
			return nil, false
		}
		return map[string]any{key: n.ID}, true
	}
}

func emptyPage() (*connection.Page, error) {
	return &connection.Page{Edges: []*connection.Edge{}}, nil
}

func (b *Builder) queryResolver(f filter, scope scopeFunc) registry.ResolveFunc {
	return func(ctx context.Context, source any, args map[string]any, _ registry.ResolveInfo) (any, error) {
		a, err := connection.ArgsFromMap(args)
		if err != nil {
			return nil, err
		}
		q := datasource.Query{Types: f.types, Where: map[string]any{}, Order: datasource.OrderAsc}
		if scope != nil {
			where, ok := scope(source)
			if !ok {
				return emptyPage()
			}
			for k, v := range where {
				q.Where[k] = v
			}
		}
		var search string
		for name, v := range a.Where {
			if v == nil {
				continue
			}
			switch name {
			case "search":
				search, _ = v.(string)
			case "order":
				q.Order = datasource.Order(fmt.Sprint(v))
			case "status":
				q.Where["status"] = statusValue(v)
			case "contentTypes", "taxonomies":
				q.Types = b.narrowTypes(q.Types, v)
				if len(q.Types) == 0 {
					return emptyPage()
				}
			default:
				if r, ok := f.refs[name]; ok {
					q.Where[r.key] = nodeID(fmt.Sprint(v), r.typeName)
				}
			}
		}

		nodes, err := b.store.QueryNodes(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", strings.Join(q.Types, ","), err)
		}
		if search != "" {
			nodes = matchSearch(nodes, search)
		}
		l := b.loader(ctx)
		for _, n := range nodes {
			l.Prime(n)
		}
		return connection.Paginate(nodes, nodeCursor, a, b.limits)
	}
}

func (b *Builder) idListResolver(key, typeName string) registry.ResolveFunc {
	return func(ctx context.Context, source any, args map[string]any, _ registry.ResolveInfo) (any, error) {
		n, ok := source.(*datasource.Node)
		if !ok || n == nil {
			return emptyPage()
		}
		a, err := connection.ArgsFromMap(args)
		if err != nil {
			return nil, err
		}
		ids := idList(n.Data[key], typeName)
		return connection.Paginate(b.loader(ctx).LoadMany(ids), (*datasource.Deferred).ID, a, b.limits)
	}
}

func (b *Builder) edgeResolver(key, typeName string) registry.ResolveFunc {
	return func(ctx context.Context, source any, _ map[string]any, _ registry.ResolveInfo) (any, error) {
		n, ok := source.(*datasource.Node)
		if !ok || n == nil {
			return nil, nil
		}
		ids := idList(n.Data[key], typeName)
		if len(ids) == 0 {
			return nil, nil
		}
		return &connection.Edge{Cursor: connection.EncodeCursor(ids[0]), Node: b.loader(ctx).Load(ids[0])}, nil
	}
}

// narrowTypes keeps the types named by the enum values in v.
func (b *Builder) narrowTypes(types []string, v any) []string {
	wanted := map[string]bool{}
	for _, name := range anyList(v) {
		if typ, ok := b.typeEnum[fmt.Sprint(name)]; ok {
			wanted[registry.Key(typ)] = true
		}
	}
	var out []string
	for _, t := range types {
		if wanted[registry.Key(t)] {
			out = append(out, t)
		}
	}
	return out
}

func statusValue(v any) string {
	name := fmt.Sprint(v)
	for _, s := range postStatuses {
		if s.Name == name {
			return s.Value.(string)
		}
	}
	return strings.ToLower(name)
}

var searchFields = []string{"title", "name", "slug", "content", "excerpt", "email"}

func matchSearch(nodes []*datasource.Node, search string) []*datasource.Node {
	needle := strings.ToLower(search)
	var out []*datasource.Node
	for _, n := range nodes {
		for _, key := range searchFields {
			if s, ok := n.Data[key].(string); ok && strings.Contains(strings.ToLower(s), needle) {
				out = append(out, n)
				break
			}
		}
	}
	return out
}

func nodeCursor(n *datasource.Node) string { return n.ID }

// idList reads one id or a list of ids. Database ids are turned into global
// ids of typeName.
func idList(v any, typeName string) []string {
	var ids []string
	for _, item := range anyList(v) {
		if item == nil {
			continue
		}
		id := fmt.Sprint(item)
		if id == "" {
			continue
		}
		ids = append(ids, nodeID(id, typeName))
	}
	return ids
}

func anyList(v any) []any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []any{v}
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}
