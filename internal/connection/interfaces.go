package connection

import (
	"fmt"

	"github.com/hanpama/contentgraph/internal/registry"
	"github.com/hanpama/contentgraph/internal/schema"
)

var pageInfoFields = registry.Fields{
	"hasNextPage":     {Type: "Boolean!", Description: "When paginating forwards, are there more items?"},
	"hasPreviousPage": {Type: "Boolean!", Description: "When paginating backwards, are there more items?"},
	"startCursor":     {Type: "String", Description: "When paginating backwards, the cursor to continue."},
	"endCursor":       {Type: "String", Description: "When paginating forwards, the cursor to continue."},
}

// registerInterfaces registers the interfaces shared by every connection and
// those shared by every connection into toType. Existing ones are kept.
func registerInterfaces(reg *registry.Registry, toType string) error {
	shared := []registry.TypeConfig{
		{
			Name:        "PageInfo",
			Kind:        schema.TypeKindInterface,
			Description: "Information about pagination in a connection.",
			Fields:      registry.StaticFields(pageInfoFields),
		},
		{
			Name:        "Edge",
			Kind:        schema.TypeKindInterface,
			Description: "Relational context between connected nodes",
			Fields: registry.StaticFields(registry.Fields{
				"cursor": {Type: "String", Description: "Opaque reference to the nodes position in the connection. Value can be used with pagination args."},
			}),
		},
		{
			Name:        "Connection",
			Kind:        schema.TypeKindInterface,
			Description: "A plural connection from one Node Type to another Node Type, with support for relational data via \"edges\".",
			Fields: registry.StaticFields(registry.Fields{
				"pageInfo": {Type: "PageInfo!", Description: "Information about pagination in a connection."},
			}),
		},
		{
			Name:        "OneToOneConnection",
			Kind:        schema.TypeKindInterface,
			Description: "A singular connection from one Node to another, with support for relational data on the \"edge\" of the connection.",
			Interfaces:  registry.Names("Edge"),
			Fields: registry.StaticFields(registry.Fields{
				"cursor": {Type: "String", Description: "Opaque reference to the nodes position in the connection. Value can be used with pagination args."},
			}),
		},
		{
			Name:        toType + "ConnectionPageInfo",
			Kind:        schema.TypeKindInterface,
			Description: fmt.Sprintf("Page Info on the connected %sConnectionEdge", toType),
			Interfaces:  registry.Names("PageInfo"),
			Fields:      registry.StaticFields(pageInfoFields),
		},
		{
			Name:        toType + "ConnectionEdge",
			Kind:        schema.TypeKindInterface,
			Description: fmt.Sprintf("Edge between a node and a connected %s", toType),
			Interfaces:  registry.Names("Edge"),
			Fields: registry.StaticFields(registry.Fields{
				"node": {Type: toType + "!", Description: fmt.Sprintf("The connected %s Node", toType)},
			}),
		},
		{
			Name:        toType + "Connection",
			Kind:        schema.TypeKindInterface,
			Description: fmt.Sprintf("Connection to %s Nodes", toType),
			Interfaces:  registry.Names("Connection"),
			Fields: registry.StaticFields(registry.Fields{
				"edges":    {Type: "[" + toType + "ConnectionEdge!]!", Description: fmt.Sprintf("A list of edges (relational context) between %s and connected %s Nodes", toType, toType)},
				"nodes":    {Type: "[" + toType + "!]!", Description: fmt.Sprintf("A list of connected %s Nodes", toType)},
				"pageInfo": {Type: toType + "ConnectionPageInfo!", Description: "Information about pagination in a connection."},
			}),
		},
	}
	for _, cfg := range shared {
		if _, err := reg.RegisterTypeIfAbsent(cfg); err != nil {
			return err
		}
	}
	return nil
}
