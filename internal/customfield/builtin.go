package customfield

import (
	"context"
	"fmt"
	"strconv"

	"github.com/hanpama/contentgraph/internal/connection"
	"github.com/hanpama/contentgraph/internal/datasource"
	"github.com/hanpama/contentgraph/internal/registry"
	"github.com/hanpama/contentgraph/internal/schema"
)

// Builtins returns a plugin registry holding every built-in field type.
func Builtins() *FieldTypes {
	t := NewFieldTypes()
	RegisterBuiltins(t)
	return t
}

// RegisterBuiltins adds the built-in field types to t. Plugins registered
// before keep their tags.
func RegisterBuiltins(t *FieldTypes) {
	returnFormat := AdminSetting{Name: "return_format", Label: "Return Format", Type: "text"}
	for _, ft := range []*FieldType{
		scalar("text", "String"),
		scalar("textarea", "String", AdminSetting{Name: "new_lines", Label: "New Lines", Type: "select", Default: ""}),
		scalar("email", "String"),
		scalar("url", "String"),
		scalar("password", "String"),
		scalar("wysiwyg", "String"),
		scalar("oembed", "String"),
		scalar("radio", "String"),
		scalar("button_group", "String"),
		scalar("color_picker", "String"),
		scalar("date_picker", "String", returnFormat),
		scalar("date_time_picker", "String", returnFormat),
		scalar("time_picker", "String", returnFormat),
		scalar("number", "Float"),
		scalar("range", "Float"),
		scalar("true_false", "Boolean"),
		scalar("select", "[String]", returnFormat),
		scalar("checkbox", "[String]", returnFormat),
		linkType(),
		googleMapType(),
		relation("image", connectionTarget{ToType: "MediaItem", NodeType: "MediaItem", OneToOne: true, QueryClass: "attachment"}),
		relation("file", connectionTarget{ToType: "MediaItem", NodeType: "MediaItem", OneToOne: true, QueryClass: "attachment"}),
		relation("gallery", connectionTarget{ToType: "MediaItem", NodeType: "MediaItem", QueryClass: "attachment"}),
		relation("post_object", connectionTarget{ToType: "ContentNode", QueryClass: "post"}),
		relation("page_link", connectionTarget{ToType: "ContentNode", QueryClass: "post"}),
		relation("relationship", connectionTarget{ToType: "ContentNode", QueryClass: "post"}),
		relation("taxonomy", connectionTarget{ToType: "TermNode", QueryClass: "term"}),
		relation("user", connectionTarget{ToType: "User", NodeType: "User", QueryClass: "user"}),
		groupType(),
		repeaterType(),
		flexibleContentType(),
		layoutOnly("clone"),
		layoutOnly("tab"),
		layoutOnly("accordion"),
		layoutOnly("message"),
	} {
		t.Register(ft)
	}
}

func scalar(name, typ string, admin ...AdminSetting) *FieldType {
	return &FieldType{
		Name:        name,
		AdminFields: admin,
		GraphQLType: func(*FieldConfig) string { return typ },
	}
}

func layoutOnly(name string) *FieldType {
	return &FieldType{
		Name:               name,
		ExcludeAdminFields: []string{"graphql_non_null", "graphql_field_name", "graphql_description"},
		GraphQLType:        func(*FieldConfig) string { return TypeNull },
	}
}

func linkType() *FieldType {
	return &FieldType{
		Name:        "link",
		AdminFields: []AdminSetting{{Name: "return_format", Label: "Return Format", Type: "select", Default: "array"}},
		GraphQLType: func(*FieldConfig) string { return "AcfLink" },
		RegisterTypes: func(r *Registry) error {
			_, err := r.reg.RegisterTypeIfAbsent(registry.TypeConfig{
				Name:        "AcfLink",
				Kind:        schema.TypeKindObject,
				Description: "ACF Link field",
				Fields: registry.StaticFields(registry.Fields{
					"title":  {Type: "String", Description: "The title of the link"},
					"url":    {Type: "String", Description: "The url of the link"},
					"target": {Type: "String", Description: "The target of the link (_blank, etc)"},
				}),
			})
			return err
		},
		Resolve: func(ctx context.Context, root *Root, fc *FieldConfig, _ map[string]any) (any, error) {
			v, err := fc.owner.resolver.ResolveValue(ctx, root, fc)
			if err != nil {
				return nil, err
			}
			switch x := v.(type) {
			case map[string]any:
				return x, nil
			case string:
				if x == "" {
					return nil, nil
				}
				return map[string]any{"url": x}, nil
			}
			return nil, nil
		},
	}
}

func googleMapType() *FieldType {
	return &FieldType{
		Name:        "google_map",
		GraphQLType: func(*FieldConfig) string { return "AcfGoogleMap" },
		RegisterTypes: func(r *Registry) error {
			_, err := r.reg.RegisterTypeIfAbsent(registry.TypeConfig{
				Name:        "AcfGoogleMap",
				Kind:        schema.TypeKindObject,
				Description: "A group of fields representing a Google Map",
				Fields: registry.StaticFields(registry.Fields{
					"streetAddress": mapKey("address", "String", "The street address associated with the map"),
					"latitude":      mapKey("lat", "Float", "The latitude associated with the map"),
					"longitude":     mapKey("lng", "Float", "The longitude associated with the map"),
					"zoom":          mapKey("zoom", "Int", "The zoom defined with the map"),
					"placeId":       mapKey("place_id", "String", "The place ID associated with the map"),
					"streetNumber":  mapKey("street_number", "String", "The street number associated with the map"),
					"streetName":    mapKey("street_name", "String", "The street name associated with the map"),
					"city":          mapKey("city", "String", "The city associated with the map"),
					"state":         mapKey("state", "String", "The state associated with the map"),
					"postCode":      mapKey("post_code", "String", "The post code associated with the map"),
					"country":       mapKey("country", "String", "The country associated with the map"),
				}),
			})
			return err
		},
		Resolve: func(ctx context.Context, root *Root, fc *FieldConfig, _ map[string]any) (any, error) {
			v, err := fc.owner.resolver.ResolveValue(ctx, root, fc)
			if err != nil {
				return nil, err
			}
			m, _ := v.(map[string]any)
			if len(m) == 0 {
				return nil, nil
			}
			return m, nil
		},
	}
}

func mapKey(key, typ, description string) *registry.FieldConfig {
	return &registry.FieldConfig{
		Type:        typ,
		Description: description,
		Resolve: func(_ context.Context, source any, _ map[string]any, _ registry.ResolveInfo) (any, error) {
			m, _ := source.(map[string]any)
			v := m[key]
			if typ == "Float" {
				return toFloat(v), nil
			}
			return v, nil
		},
	}
}

func constResolver(v any) registry.ResolveFunc {
	return func(context.Context, any, map[string]any, registry.ResolveInfo) (any, error) { return v, nil }
}

// groupRootResolver resolves a location's group field to a root for the
// group type backed by the same stored object.
func groupRootResolver(typeName string) registry.ResolveFunc {
	return func(_ context.Context, source any, _ map[string]any, _ registry.ResolveInfo) (any, error) {
		root := AsRoot(source)
		if root == nil {
			return nil, nil
		}
		return &Root{TypeName: typeName, ID: root.ID, Values: root.Values}, nil
	}
}

// connectionTarget describes where a relational field points.
type connectionTarget struct {
	ToType string
	// NodeType turns numeric database ids into node ids. Empty when the
	// target is abstract.
	NodeType   string
	OneToOne   bool
	QueryClass string
}

// connectionTypeName is shared by every field with the same target and
// shape. One-to-one edges implement different interfaces, so they get
// their own name.
func (t connectionTarget) connectionTypeName() string {
	if t.OneToOne {
		return "Acf" + t.ToType + "OneToOneConnection"
	}
	return "Acf" + t.ToType + "Connection"
}

func relation(name string, target connectionTarget) *FieldType {
	return &FieldType{
		Name:        name,
		GraphQLType: func(*FieldConfig) string { return TypeConnection },
		RegisterConnection: func(r *Registry, fc *FieldConfig) error {
			return r.registerRelation(fc, target)
		},
	}
}

func (r *Registry) registerRelation(fc *FieldConfig, target connectionTarget) error {
	_, err := connection.Register(r.reg, connection.Spec{
		FromType:           fc.FieldsInterfaceName(),
		ToType:             target.ToType,
		FromFieldName:      fc.GraphQLFieldName,
		ConnectionTypeName: target.connectionTypeName(),
		OneToOne:           target.OneToOne,
		Description:        fc.Description(),
		QueryClass:         target.QueryClass,
		Resolve:            r.relationResolver(fc, target),
	})
	return err
}

func (r *Registry) relationResolver(fc *FieldConfig, target connectionTarget) registry.ResolveFunc {
	return func(ctx context.Context, source any, args map[string]any, _ registry.ResolveInfo) (any, error) {
		root := AsRoot(source)
		if root == nil {
			return nil, nil
		}
		v, err := r.resolver.ResolveValue(ctx, root, fc)
		if err != nil {
			return nil, err
		}
		ids := relationIDs(v, target.NodeType)
		loader, ok := datasource.LoaderFrom(ctx)
		if !ok {
			if r.resolver.store == nil {
				return nil, fmt.Errorf("no loader for %s.%s", fc.GroupTypeName, fc.GraphQLFieldName)
			}
			loader = datasource.NewLoader(r.resolver.store)
		}
		if target.OneToOne {
			if len(ids) == 0 {
				return nil, nil
			}
			return &connection.Edge{Cursor: connection.EncodeCursor(ids[0]), Node: loader.Load(ids[0])}, nil
		}
		a, err := connection.ArgsFromMap(args)
		if err != nil {
			return nil, err
		}
		return connection.Paginate(loader.LoadMany(ids), (*datasource.Deferred).ID, a, connection.DefaultLimits)
	}
}

// relationIDs reads node ids from a stored relation value: an id, a list of
// ids, or objects carrying an id.
func relationIDs(v any, nodeType string) []string {
	var out []string
	var add func(any)
	add = func(x any) {
		switch id := x.(type) {
		case nil:
		case string:
			if id == "" {
				return
			}
			if n, err := strconv.Atoi(id); err == nil && nodeType != "" {
				out = append(out, datasource.GlobalID(nodeType, n))
				return
			}
			out = append(out, id)
		case int:
			out = appendDatabaseID(out, nodeType, id)
		case int64:
			out = appendDatabaseID(out, nodeType, int(id))
		case uint64:
			out = appendDatabaseID(out, nodeType, int(id))
		case float64:
			out = appendDatabaseID(out, nodeType, int(id))
		case map[string]any:
			add(id["id"])
		case []any:
			for _, e := range id {
				add(e)
			}
		case []string:
			for _, e := range id {
				add(e)
			}
		}
	}
	add(v)
	return out
}

func appendDatabaseID(out []string, nodeType string, id int) []string {
	if nodeType == "" || id <= 0 {
		return out
	}
	return append(out, datasource.GlobalID(nodeType, id))
}

func groupType() *FieldType {
	return &FieldType{
		Name:        "group",
		GraphQLType: func(fc *FieldConfig) string { return fc.NestedTypeName() },
		PrepareField: func(r *Registry, fc *FieldConfig) error {
			return r.registerGroupType(fc.NestedTypeName(), fc.Description(), fc.Field.SubFields, fc.Name, nil)
		},
		Resolve: func(ctx context.Context, root *Root, fc *FieldConfig, _ map[string]any) (any, error) {
			v, err := fc.owner.resolver.ResolveValue(ctx, root, fc)
			if err != nil {
				return nil, err
			}
			m, _ := v.(map[string]any)
			return root.child(fc.NestedTypeName(), m), nil
		},
	}
}

func repeaterType() *FieldType {
	return &FieldType{
		Name:        "repeater",
		GraphQLType: func(fc *FieldConfig) string { return "[" + fc.NestedTypeName() + "]" },
		PrepareField: func(r *Registry, fc *FieldConfig) error {
			return r.registerGroupType(fc.NestedTypeName(), fc.Description(), fc.Field.SubFields, fc.Name, nil)
		},
		Resolve: func(ctx context.Context, root *Root, fc *FieldConfig, _ map[string]any) (any, error) {
			v, err := fc.owner.resolver.ResolveValue(ctx, root, fc)
			if err != nil {
				return nil, err
			}
			rows, _ := v.([]any)
			out := make([]*Root, 0, len(rows))
			for _, row := range rows {
				if m, ok := row.(map[string]any); ok {
					out = append(out, root.child(fc.NestedTypeName(), m))
				}
			}
			return out, nil
		},
	}
}

// layoutKey names the layout of a flexible content row.
const layoutKey = "acf_fc_layout"

func flexibleContentType() *FieldType {
	layoutIface := func(fc *FieldConfig) string { return fc.NestedTypeName() + "_Layout" }
	layoutType := func(fc *FieldConfig, l Layout) string {
		return fc.NestedTypeName() + registry.UcFirst(camelCase(l.Name)) + "Layout"
	}
	return &FieldType{
		Name:        "flexible_content",
		GraphQLType: func(fc *FieldConfig) string { return "[" + layoutIface(fc) + "]" },
		PrepareField: func(r *Registry, fc *FieldConfig) error {
			if _, err := r.reg.RegisterTypeIfAbsent(registry.TypeConfig{
				Name:        layoutIface(fc),
				Kind:        schema.TypeKindInterface,
				Description: fmt.Sprintf("Layout of the %q Field of the %q Field Group", fc.GraphQLFieldName, fc.GroupTypeName),
				Interfaces:  registry.Names("AcfFieldGroup"),
				Fields: registry.StaticFields(registry.Fields{
					"fieldGroupName": {Type: "String", Description: "The name of the field group"},
				}),
			}); err != nil {
				return err
			}
			for _, l := range fc.Field.Layouts {
				if err := r.registerGroupType(layoutType(fc, l), l.Label, l.SubFields, fc.Name, []string{layoutIface(fc)}); err != nil {
					return err
				}
			}
			return nil
		},
		Resolve: func(ctx context.Context, root *Root, fc *FieldConfig, _ map[string]any) (any, error) {
			v, err := fc.owner.resolver.ResolveValue(ctx, root, fc)
			if err != nil {
				return nil, err
			}
			types := make(map[string]string, len(fc.Field.Layouts))
			for _, l := range fc.Field.Layouts {
				types[l.Name] = layoutType(fc, l)
			}
			rows, _ := v.([]any)
			out := make([]*Root, 0, len(rows))
			for _, row := range rows {
				m, ok := row.(map[string]any)
				if !ok {
					continue
				}
				name, _ := m[layoutKey].(string)
				if typ, ok := types[name]; ok {
					out = append(out, root.child(typ, m))
				}
			}
			return out, nil
		},
	}
}
