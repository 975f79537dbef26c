// Package connection registers Relay-style connections between two types:
// the Edge, PageInfo and Connection objects, their shared interfaces, and the
// paginated field on the source type.
package connection

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/hanpama/contentgraph/internal/datasource"
	"github.com/hanpama/contentgraph/internal/registry"
	"github.com/hanpama/contentgraph/internal/schema"
)

// Spec describes a connection from FromType.FromFieldName to ToType.
type Spec struct {
	FromType      string
	ToType        string
	FromFieldName string
	// ConnectionTypeName overrides the derived name.
	ConnectionTypeName string
	// Resolve returns a *Page (or *Edge for one-to-one connections), or any
	// value the runtime can settle into one.
	Resolve  registry.ResolveFunc
	OneToOne bool
	// ConnectionArgs become the fields of the generated where input.
	ConnectionArgs   registry.Fields
	EdgeFields       registry.Fields
	ConnectionFields registry.Fields
	Description      string
	// QueryClass is handed to the store through the resolver context.
	QueryClass string
	// ConnectionInterfaces are additional interfaces of the connection type.
	ConnectionInterfaces []string
}

// Connection is the result of Register. An excluded connection is inert:
// nothing was registered and Name is empty.
type Connection struct {
	Name          string
	FromType      string
	ToType        string
	FromFieldName string
	OneToOne      bool
}

// Inert reports whether the connection was excluded.
func (c *Connection) Inert() bool { return c.Name == "" }

// EdgeTypeName is the name of the edge object.
func (c *Connection) EdgeTypeName() string { return c.Name + "Edge" }

// PageInfoTypeName is the name of the page info object.
func (c *Connection) PageInfoTypeName() string { return c.Name + "PageInfo" }

// WhereArgsTypeName is the name of the where input object.
func (c *Connection) WhereArgsTypeName() string { return c.Name + "WhereArgs" }

// FieldType is the type of the field on the source type.
func (c *Connection) FieldType() string {
	if c.OneToOne {
		return c.EdgeTypeName()
	}
	return c.Name
}

// Name derives the connection type name: {From}To{To}Connection, or
// {From}To{FieldName}Connection when the first is already taken. Register
// refuses the result when that is taken as well.
func Name(reg *registry.Registry, spec Spec) string {
	if spec.ConnectionTypeName != "" {
		return spec.ConnectionTypeName
	}
	from := registry.UcFirst(spec.FromType)
	name := from + "To" + registry.UcFirst(spec.ToType) + "Connection"
	if reg.HasType(name) {
		name = from + "To" + registry.UcFirst(spec.FromFieldName) + "Connection"
	}
	return name
}

// Register registers the connection's types and the field on FromType.
// Registering the same FromType and FromFieldName again returns the existing
// connection without changes.
func Register(reg *registry.Registry, spec Spec) (*Connection, error) {
	if spec.FromType == "" || spec.ToType == "" || spec.FromFieldName == "" {
		return nil, fmt.Errorf("%w: connection requires fromType, toType and fromFieldName (got %q, %q, %q)",
			registry.ErrInvalidArgument, spec.FromType, spec.ToType, spec.FromFieldName)
	}
	if spec.Resolve == nil {
		return nil, fmt.Errorf("%w: connection %s.%s has no resolver", registry.ErrInvalidArgument, spec.FromType, spec.FromFieldName)
	}
	log := reg.Logger()

	if existing, ok := reg.LookupConnection(spec.FromType, spec.FromFieldName); ok {
		log.Debug("connection already registered",
			zap.String("from", spec.FromType), zap.String("field", spec.FromFieldName), zap.String("connection", existing))
		return &Connection{
			Name:          existing,
			FromType:      spec.FromType,
			ToType:        spec.ToType,
			FromFieldName: spec.FromFieldName,
			OneToOne:      spec.OneToOne,
		}, nil
	}

	name := Name(reg, spec)
	if spec.ConnectionTypeName == "" && reg.HasType(name) {
		return nil, fmt.Errorf("%w: no free connection name for %s.%s, %s is taken",
			registry.ErrDuplicateType, spec.FromType, spec.FromFieldName, name)
	}
	ex := reg.Exclusions()
	if ex.IsConnectionExcluded(name) || ex.IsTypeExcluded(spec.FromType) || ex.IsTypeExcluded(spec.ToType) {
		log.Debug("connection excluded", zap.String("connection", name))
		return &Connection{FromType: spec.FromType, ToType: spec.ToType, FromFieldName: spec.FromFieldName, OneToOne: spec.OneToOne}, nil
	}

	c := &Connection{
		Name:          name,
		FromType:      spec.FromType,
		ToType:        spec.ToType,
		FromFieldName: spec.FromFieldName,
		OneToOne:      spec.OneToOne,
	}
	if err := checkSharedShape(reg, c); err != nil {
		return nil, err
	}
	if err := registerInterfaces(reg, spec.ToType); err != nil {
		return nil, err
	}
	var err error
	if spec.OneToOne {
		err = registerOneToOneTypes(reg, c, spec)
	} else {
		err = registerConnectionTypes(reg, c, spec)
	}
	if err != nil {
		return nil, err
	}
	if err := registerWhereArgs(reg, c, spec); err != nil {
		return nil, err
	}

	field := &registry.FieldConfig{
		Type:        c.FieldType(),
		Args:        connectionArgs(c, spec),
		Description: spec.Description,
		Async:       true,
		Resolve:     withQueryClass(spec.QueryClass, spec.Resolve),
	}
	if field.Description == "" {
		field.Description = fmt.Sprintf("Connection between the %s type and the %s type", spec.FromType, spec.ToType)
	}
	switch err := reg.RegisterField(spec.FromType, spec.FromFieldName, field); {
	case errors.Is(err, registry.ErrDuplicateField):
		log.Debug("connection field already registered", zap.String("from", spec.FromType), zap.String("field", spec.FromFieldName))
	case err != nil:
		return nil, err
	}
	reg.RecordConnection(spec.FromType, spec.FromFieldName, name)
	log.Debug("connection registered", zap.String("connection", name), zap.Bool("oneToOne", spec.OneToOne))
	return c, nil
}

// checkSharedShape rejects a shared connection name whose edge was
// registered for the other kind of connection.
func checkSharedShape(reg *registry.Registry, c *Connection) error {
	edge, ok := reg.GetType(c.EdgeTypeName())
	if !ok {
		return nil
	}
	oneToOne := false
	for _, ref := range edge.Config().Interfaces {
		if ref.Name == "OneToOneConnection" {
			oneToOne = true
		}
	}
	if oneToOne != c.OneToOne {
		return fmt.Errorf("%w: %s is already registered with oneToOne=%t", registry.ErrDuplicateType, c.EdgeTypeName(), oneToOne)
	}
	return nil
}

func withQueryClass(class string, resolve registry.ResolveFunc) registry.ResolveFunc {
	return func(ctx context.Context, source any, args map[string]any, info registry.ResolveInfo) (any, error) {
		return resolve(datasource.WithQueryClass(ctx, class), source, args, info)
	}
}

func connectionArgs(c *Connection, spec Spec) map[string]*registry.ArgConfig {
	args := make(map[string]*registry.ArgConfig)
	if !c.OneToOne {
		args["first"] = &registry.ArgConfig{Type: "Int", Description: "The number of items to return after the referenced \"after\" cursor"}
		args["last"] = &registry.ArgConfig{Type: "Int", Description: "The number of items to return before the referenced \"before\" cursor"}
		args["after"] = &registry.ArgConfig{Type: "String", Description: "Cursor used along with the \"first\" argument to reference where in the dataset to get data"}
		args["before"] = &registry.ArgConfig{Type: "String", Description: "Cursor used along with the \"last\" argument to reference where in the dataset to get data"}
	}
	if len(spec.ConnectionArgs) > 0 {
		args["where"] = &registry.ArgConfig{Type: c.WhereArgsTypeName(), Description: "Arguments for filtering the connection"}
	}
	return args
}

func registerWhereArgs(reg *registry.Registry, c *Connection, spec Spec) error {
	if len(spec.ConnectionArgs) == 0 {
		return nil
	}
	_, err := reg.RegisterTypeIfAbsent(registry.TypeConfig{
		Name:        c.WhereArgsTypeName(),
		Kind:        schema.TypeKindInputObject,
		Description: fmt.Sprintf("Arguments for filtering the %s connection", c.Name),
		Fields:      registry.StaticFields(spec.ConnectionArgs),
	})
	return err
}

func registerConnectionTypes(reg *registry.Registry, c *Connection, spec Spec) error {
	to := spec.ToType
	if _, err := reg.RegisterTypeIfAbsent(registry.TypeConfig{
		Name:        c.PageInfoTypeName(),
		Kind:        schema.TypeKindObject,
		Description: fmt.Sprintf("Page Info on the %q", c.Name),
		Interfaces:  registry.Names(to+"ConnectionPageInfo", "PageInfo"),
	}); err != nil {
		return err
	}

	edgeFields := mergeFields(registry.Fields{
		"cursor": {Type: "String", Description: "A cursor for use in pagination"},
		"node":   {Type: to + "!", Description: "The item at the end of the edge"},
	}, spec.EdgeFields)
	if _, err := reg.RegisterTypeIfAbsent(registry.TypeConfig{
		Name:        c.EdgeTypeName(),
		Kind:        schema.TypeKindObject,
		Description: fmt.Sprintf("An edge in a connection from %s to %s", spec.FromType, to),
		Interfaces:  registry.Names(to+"ConnectionEdge", "Edge"),
		Fields:      registry.StaticFields(edgeFields),
	}); err != nil {
		return err
	}

	connFields := mergeFields(registry.Fields{
		"edges":    {Type: "[" + c.EdgeTypeName() + "!]!", Description: fmt.Sprintf("Edges for the %s connection", c.Name)},
		"nodes":    {Type: "[" + to + "!]!", Description: "The nodes of the connection, without the edges"},
		"pageInfo": {Type: c.PageInfoTypeName() + "!", Description: "Information about pagination in a connection."},
	}, spec.ConnectionFields)
	ifaces := append([]string{to + "Connection", "Connection"}, spec.ConnectionInterfaces...)
	_, err := reg.RegisterTypeIfAbsent(registry.TypeConfig{
		Name:        c.Name,
		Kind:        schema.TypeKindObject,
		Description: fmt.Sprintf("Connection between the %s type and the %s type", spec.FromType, to),
		Interfaces:  registry.Names(ifaces...),
		Fields:      registry.StaticFields(connFields),
	})
	return err
}

func registerOneToOneTypes(reg *registry.Registry, c *Connection, spec Spec) error {
	to := spec.ToType
	fields := mergeFields(registry.Fields{
		"cursor": {Type: "String", Description: "Opaque reference to the nodes position in the connection. Value can be used with pagination args."},
		"node":   {Type: to + "!", Description: "The node of the connection, without the edges"},
	}, spec.EdgeFields)
	_, err := reg.RegisterTypeIfAbsent(registry.TypeConfig{
		Name:        c.EdgeTypeName(),
		Kind:        schema.TypeKindObject,
		Description: fmt.Sprintf("Connection between the %s type and the %s type", spec.FromType, to),
		Interfaces:  registry.Names("OneToOneConnection", to+"ConnectionEdge", "Edge"),
		Fields:      registry.StaticFields(fields),
	})
	return err
}

func mergeFields(base, extra registry.Fields) registry.Fields {
	out := make(registry.Fields, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}
