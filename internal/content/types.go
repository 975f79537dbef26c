package content

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/hanpama/contentgraph/internal/datasource"
	"github.com/hanpama/contentgraph/internal/registry"
	"github.com/hanpama/contentgraph/internal/schema"
)

var postStatuses = []registry.EnumValueConfig{
	{Name: "PUBLISH", Value: "publish", Description: "Objects with the publish status"},
	{Name: "DRAFT", Value: "draft", Description: "Objects with the draft status"},
	{Name: "PENDING", Value: "pending", Description: "Objects with the pending status"},
	{Name: "PRIVATE", Value: "private", Description: "Objects with the private status"},
	{Name: "FUTURE", Value: "future", Description: "Objects with the future status"},
	{Name: "TRASH", Value: "trash", Description: "Objects with the trash status"},
}

func (b *Builder) registerInterfaces() error {
	for _, cfg := range []registry.TypeConfig{
		{
			Name:        "Node",
			Kind:        schema.TypeKindInterface,
			Description: "An object with a globally unique ID",
			Fields: registry.StaticFields(registry.Fields{
				"id": {Type: "ID!", Description: "The globally unique ID for the object"},
			}),
		},
		{
			Name:        "DatabaseIdentifier",
			Kind:        schema.TypeKindInterface,
			Description: "Object that can be identified with a Database ID",
			Fields: registry.StaticFields(registry.Fields{
				"databaseId": {Type: "Int!", Description: "The unique identifier stored in the database"},
			}),
		},
		{
			Name:        "UniformResourceIdentifiable",
			Kind:        schema.TypeKindInterface,
			Description: "Any node that has a URI",
			Interfaces:  registry.Names("Node"),
			Fields: registry.StaticFields(registry.Fields{
				"id":  {Type: "ID!", Description: "The globally unique ID for the object"},
				"uri": {Type: "String", Description: "The unique resource identifier path"},
			}),
		},
		{
			Name:        "ContentNode",
			Kind:        schema.TypeKindInterface,
			Description: "Nodes used to manage content",
			Interfaces:  registry.Names("Node", "UniformResourceIdentifiable", "DatabaseIdentifier"),
			Fields: registry.StaticFields(registry.Fields{
				"slug":            {Type: "String", Description: "The uri slug for the post."},
				"status":          {Type: "String", Description: "The current status of the object"},
				"date":            {Type: "String", Description: "Post publishing date."},
				"modified":        {Type: "String", Description: "The local modified time for a post."},
				"contentTypeName": {Type: "String!", Description: "The name of the Content Type the node belongs to"},
			}),
		},
		{
			Name:        "TermNode",
			Kind:        schema.TypeKindInterface,
			Description: "Terms are nodes within a Taxonomy, used to group and relate other nodes.",
			Interfaces:  registry.Names("Node", "UniformResourceIdentifiable", "DatabaseIdentifier"),
			Fields: registry.StaticFields(registry.Fields{
				"name":         {Type: "String", Description: "The human friendly name of the object."},
				"slug":         {Type: "String", Description: "An alphanumeric identifier for the object unique to its type."},
				"description":  {Type: "String", Description: "The description of the object"},
				"count":        {Type: "Int", Description: "The number of objects connected to the object"},
				"taxonomyName": {Type: "String", Description: "The name of the taxonomy that the object is associated with"},
			}),
		},
		{
			Name:        "NodeWithTitle",
			Kind:        schema.TypeKindInterface,
			Description: "A node that has a title",
			Interfaces:  registry.Names("Node"),
			Fields: registry.StaticFields(registry.Fields{
				"title": {Type: "String", Description: "The title of the post."},
			}),
		},
		{
			Name:        "NodeWithContentEditor",
			Kind:        schema.TypeKindInterface,
			Description: "A node that supports the content editor",
			Interfaces:  registry.Names("Node"),
			Fields: registry.StaticFields(registry.Fields{
				"content": {Type: "String", Description: "The content of the post."},
			}),
		},
		{
			Name:        "NodeWithExcerpt",
			Kind:        schema.TypeKindInterface,
			Description: "A node that can have an excerpt",
			Interfaces:  registry.Names("Node"),
			Fields: registry.StaticFields(registry.Fields{
				"excerpt": {Type: "String", Description: "The excerpt of the post."},
			}),
		},
	} {
		if _, err := b.reg.RegisterTypeIfAbsent(cfg); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) registerEnums() error {
	contentTypes := []registry.EnumValueConfig{}
	for _, p := range b.visiblePostTypes() {
		contentTypes = append(contentTypes, registry.EnumValueConfig{
			Name:        enumName(p.Name),
			Value:       p.TypeName(),
			Description: fmt.Sprintf("The Type of Content object %s", p.Name),
		})
	}
	contentTypes = append(contentTypes, registry.EnumValueConfig{
		Name: "ATTACHMENT", Value: mediaItemType, Description: "The Type of Content object attachment",
	})
	taxonomies := []registry.EnumValueConfig{}
	for _, t := range b.visibleTaxonomies() {
		taxonomies = append(taxonomies, registry.EnumValueConfig{
			Name:        enumName(t.single()),
			Value:       t.TypeName(),
			Description: fmt.Sprintf("Taxonomy enum %s", t.Name),
		})
	}

	enums := []registry.TypeConfig{
		{Name: "PostStatusEnum", Kind: schema.TypeKindEnum, Description: "The status of the object.", EnumValues: postStatuses},
		{Name: "ContentTypeEnum", Kind: schema.TypeKindEnum, Description: "Allowed Content Types", EnumValues: contentTypes},
		{Name: "OrderEnum", Kind: schema.TypeKindEnum, Description: "The cardinality of the connection order", EnumValues: []registry.EnumValueConfig{
			{Name: "ASC", Value: string(datasource.OrderAsc), Description: "Sort the query result set in an ascending order"},
			{Name: "DESC", Value: string(datasource.OrderDesc), Description: "Sort the query result set in a descending order"},
		}},
	}
	for _, values := range [][]registry.EnumValueConfig{contentTypes, taxonomies} {
		for _, v := range values {
			b.typeEnum[v.Name] = v.Value.(string)
		}
	}
	if len(taxonomies) > 0 {
		enums = append(enums, registry.TypeConfig{Name: "TaxonomyEnum", Kind: schema.TypeKindEnum, Description: "Allowed taxonomies", EnumValues: taxonomies})
	}
	for _, cfg := range enums {
		if _, err := b.reg.RegisterTypeIfAbsent(cfg); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) registerRootQuery() error {
	query := b.reg.QueryTypeName()
	if _, err := b.reg.RegisterTypeIfAbsent(registry.TypeConfig{
		Name:        query,
		Kind:        schema.TypeKindObject,
		Description: "The root entry point into the Graph",
	}); err != nil {
		return err
	}
	return b.reg.RegisterFields(query, registry.Fields{
		"node": {
			Type:        "Node",
			Description: "Fetches an object given its ID",
			Args:        map[string]*registry.ArgConfig{"id": {Type: "ID!", Description: "Unique identifier for the object."}},
			Async:       true,
			Resolve:     b.resolveNode(nil),
		},
		"contentNode": {
			Type:        "ContentNode",
			Description: "A node used to manage content",
			Args:        map[string]*registry.ArgConfig{"id": {Type: "ID!", Description: "Unique identifier for the content node."}},
			Async:       true,
			Resolve:     b.resolveNode(append(b.contentTypeNames(), mediaItemType)),
		},
	})
}

func (b *Builder) contentTypeNames() []string {
	var names []string
	for _, p := range b.visiblePostTypes() {
		names = append(names, p.TypeName())
	}
	return names
}

func (b *Builder) registerMediaItem() error {
	if b.excluded(mediaItemType) {
		return nil
	}
	if _, err := b.reg.RegisterTypeIfAbsent(registry.TypeConfig{
		Name:        mediaItemType,
		Kind:        schema.TypeKindObject,
		Description: "The mediaItem type",
		Interfaces:  registry.Names("Node", "ContentNode", "UniformResourceIdentifiable", "DatabaseIdentifier", "NodeWithTitle"),
		Fields: registry.StaticFields(registry.Fields{
			"uri":             {Type: "String", Description: "The unique resource identifier path", Resolve: uriResolver("/attachment/")},
			"contentTypeName": {Type: "String!", Description: "The name of the Content Type the node belongs to", Resolve: constResolver("attachment")},
			"sourceUrl":       {Type: "String", Description: "Url of the mediaItem"},
			"altText":         {Type: "String", Description: "Alternative text to display when resource is not displayed"},
			"mimeType":        {Type: "String", Description: "The mime type of the mediaItem"},
			"caption":         {Type: "String", Description: "The caption for the resource"},
		}),
	}); err != nil {
		return err
	}
	return b.reg.RegisterField(b.reg.QueryTypeName(), "mediaItem", b.singleField(mediaItemType, "An attachment object"))
}

func (b *Builder) registerUser() error {
	if b.excluded(userType) {
		return nil
	}
	if _, err := b.reg.RegisterTypeIfAbsent(registry.TypeConfig{
		Name:        userType,
		Kind:        schema.TypeKindObject,
		Description: "A User object",
		Interfaces:  registry.Names("Node", "UniformResourceIdentifiable", "DatabaseIdentifier"),
		Fields: registry.StaticFields(registry.Fields{
			"uri":   {Type: "String", Description: "The unique resource identifier path", Resolve: uriResolver("/author/")},
			"name":  {Type: "String", Description: "Display name of the user."},
			"slug":  {Type: "String", Description: "The slug for the user."},
			"email": {Type: "String", Description: "Email address of the user."},
		}),
	}); err != nil {
		return err
	}
	return b.reg.RegisterField(b.reg.QueryTypeName(), "user", b.singleField(userType, "Returns a user"))
}

func (b *Builder) registerTaxonomies() error {
	query := b.reg.QueryTypeName()
	for _, t := range b.visibleTaxonomies() {
		name := t.TypeName()
		fields := registry.Fields{
			"uri":          {Type: "String", Description: "The unique resource identifier path", Resolve: uriResolver("/" + t.Name + "/")},
			"taxonomyName": {Type: "String", Description: "The name of the taxonomy that the object is associated with", Resolve: constResolver(t.Name)},
		}
		addDataFields(fields, t.Fields)
		if err := b.reg.RegisterType(registry.TypeConfig{
			Name:        name,
			Kind:        schema.TypeKindObject,
			Description: orDefault(t.Description, fmt.Sprintf("The %s type", t.single())),
			Interfaces:  registry.Names("Node", "TermNode", "UniformResourceIdentifiable", "DatabaseIdentifier"),
			Fields:      registry.StaticFields(fields),
		}); err != nil {
			return err
		}
		if err := b.reg.RegisterField(query, t.single(), b.singleField(name, fmt.Sprintf("A %s object", t.single()))); err != nil {
			return err
		}
		if t.Hierarchical {
			if err := b.registerHierarchy(name); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *Builder) registerPostTypes() error {
	query := b.reg.QueryTypeName()
	for _, p := range b.visiblePostTypes() {
		name := p.TypeName()
		prefix := "/" + p.Name + "/"
		if p.Hierarchical {
			prefix = "/"
		}
		fields := registry.Fields{
			"uri":             {Type: "String", Description: "The unique resource identifier path", Resolve: uriResolver(prefix)},
			"contentTypeName": {Type: "String!", Description: "The name of the Content Type the node belongs to", Resolve: constResolver(p.Name)},
		}
		addDataFields(fields, p.Fields)
		if err := b.reg.RegisterType(registry.TypeConfig{
			Name:        name,
			Kind:        schema.TypeKindObject,
			Description: orDefault(p.Description, fmt.Sprintf("The %s type", p.single())),
			Interfaces: registry.Names("Node", "ContentNode", "UniformResourceIdentifiable", "DatabaseIdentifier",
				"NodeWithTitle", "NodeWithContentEditor", "NodeWithExcerpt"),
			Fields: registry.StaticFields(fields),
		}); err != nil {
			return err
		}
		if err := b.reg.RegisterField(query, p.single(), b.singleField(name, fmt.Sprintf("An object of the %s Type.", p.single()))); err != nil {
			return err
		}
		if err := b.registerAuthor(name); err != nil {
			return err
		}
		if p.Hierarchical {
			if err := b.registerHierarchy(name); err != nil {
				return err
			}
		}
		for _, taxName := range p.Taxonomies {
			t, _ := b.model.taxonomy(taxName)
			if !shown(t.ShowInGraphQL) || b.excluded(t.TypeName()) {
				continue
			}
			if err := b.registerTermConnections(p, t); err != nil {
				return err
			}
		}
	}
	return nil
}

func addDataFields(fields registry.Fields, extra []DataField) {
	for _, f := range extra {
		typ := orDefault(f.Type, "String")
		fields[f.Name] = &registry.FieldConfig{Type: typ, Description: f.Description}
	}
}

// singleField looks a node up by global or database id and returns null when
// it is not of type typeName.
func (b *Builder) singleField(typeName, description string) *registry.FieldConfig {
	return &registry.FieldConfig{
		Type:        typeName,
		Description: description,
		Args:        map[string]*registry.ArgConfig{"id": {Type: "ID!", Description: "The globally unique identifier of the object, or its database id."}},
		Async:       true,
		Resolve:     b.resolveNode([]string{typeName}),
	}
}

func (b *Builder) resolveNode(types []string) registry.ResolveFunc {
	return func(ctx context.Context, _ any, args map[string]any, _ registry.ResolveInfo) (any, error) {
		id := fmt.Sprint(args["id"])
		if len(types) == 1 {
			id = nodeID(id, types[0])
		}
		if id == "" {
			return nil, nil
		}
		return typedNode{d: b.loader(ctx).Load(id), types: types}, nil
	}
}

// nodeID accepts a global id or a database id of typeName.
func nodeID(id, typeName string) string {
	if _, _, err := datasource.ParseGlobalID(id); err == nil {
		return id
	}
	if dbID, err := strconv.Atoi(id); err == nil {
		return datasource.GlobalID(typeName, dbID)
	}
	return id
}

// typedNode settles into the loaded node when its type is one of types.
type typedNode struct {
	d     *datasource.Deferred
	types []string
}

func (t typedNode) Settle(ctx context.Context) (any, error) {
	n, err := t.d.Node(ctx)
	if err != nil || n == nil {
		return nil, err
	}
	if len(t.types) == 0 {
		return n, nil
	}
	for _, typ := range t.types {
		if strings.EqualFold(typ, n.Type) {
			return n, nil
		}
	}
	return nil, nil
}

func constResolver(v any) registry.ResolveFunc {
	return func(context.Context, any, map[string]any, registry.ResolveInfo) (any, error) { return v, nil }
}

// uriResolver returns the stored uri, or prefix+slug+"/".
func uriResolver(prefix string) registry.ResolveFunc {
	return func(_ context.Context, source any, _ map[string]any, _ registry.ResolveInfo) (any, error) {
		if uri, ok := registry.DefaultResolve(source, "uri").(string); ok && uri != "" {
			return uri, nil
		}
		slug, _ := registry.DefaultResolve(source, "slug").(string)
		if slug == "" {
			return nil, nil
		}
		return prefix + slug + "/", nil
	}
}
