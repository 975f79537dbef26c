package customfield

// Root is the value custom fields resolve against: a node, a block, a nested
// group value or a repeater row.
type Root struct {
	// TypeName is the concrete GraphQL type the root is returned as.
	TypeName string
	// ID identifies the stored object whose values are read. Empty when the
	// root has no backing object.
	ID string
	// Values are already known values, keyed by field key or name.
	Values map[string]any
}

// GraphQLTypeName implements registry.Typed.
func (r *Root) GraphQLTypeName() string { return r.TypeName }

// ContextID returns the id used for store lookups.
func (r *Root) ContextID() string { return r.ID }

// FieldValue implements registry.FieldValuer.
func (r *Root) FieldValue(name string) (any, bool) { return r.value(name) }

func (r *Root) value(key string) (any, bool) {
	if key == "" || r.Values == nil {
		return nil, false
	}
	v, ok := r.Values[key]
	return v, ok && v != nil
}

// IsBlock reports whether the root is a block instance, identified by its
// blockName and attrs entries.
func (r *Root) IsBlock() bool {
	if _, ok := r.value("blockName"); !ok {
		return false
	}
	_, ok := r.Values["attrs"].(map[string]any)
	return ok
}

func (r *Root) blockData() map[string]any {
	attrs, _ := r.Values["attrs"].(map[string]any)
	data, _ := attrs["data"].(map[string]any)
	return data
}

// child returns a root for a nested value of r.
func (r *Root) child(typeName string, values map[string]any) *Root {
	return &Root{TypeName: typeName, ID: r.ID, Values: values}
}

type contextIDer interface {
	ContextID() string
}

// AsRoot converts a resolver source into a Root.
func AsRoot(source any) *Root {
	switch s := source.(type) {
	case *Root:
		return s
	case map[string]any:
		return &Root{Values: s}
	case contextIDer:
		return &Root{ID: s.ContextID()}
	}
	return nil
}
