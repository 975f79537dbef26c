package customfield

import (
	"context"
	"sort"
	"sync"
)

// Sentinel GraphQL types returned by FieldType.GraphQLType.
const (
	// TypeConnection hands the field to the plugin's RegisterConnection
	// instead of registering a scalar field.
	TypeConnection = "connection"
	// TypeNull keeps the field out of the schema.
	TypeNull = "NULL"
)

// AdminSetting describes one per-field setting a field type understands.
type AdminSetting struct {
	Name         string `json:"name"`
	Label        string `json:"label"`
	Type         string `json:"type"`
	Instructions string `json:"instructions,omitempty"`
	Default      any    `json:"default,omitempty"`
}

// ResolveFunc overrides value resolution for a field type.
type ResolveFunc func(ctx context.Context, root *Root, fc *FieldConfig, args map[string]any) (any, error)

// FieldType is the plugin for one source field type tag.
type FieldType struct {
	Name string
	// AdminFields are the type-specific settings, added to the common ones.
	AdminFields []AdminSetting
	// ExcludeAdminFields removes common settings by name.
	ExcludeAdminFields []string
	// GraphQLType returns the field's GraphQL type, TypeConnection or TypeNull.
	GraphQLType func(fc *FieldConfig) string
	// Resolve replaces the default value pipeline when set.
	Resolve ResolveFunc
	// RegisterConnection registers the field when GraphQLType returns
	// TypeConnection.
	RegisterConnection func(r *Registry, fc *FieldConfig) error
	// RegisterTypes registers supporting types the field type refers to. It
	// runs once, before the first field of this type is mapped.
	RegisterTypes func(r *Registry) error
	// PrepareField registers types specific to one field, such as the
	// object type of a group.
	PrepareField func(r *Registry, fc *FieldConfig) error
}

// CommonAdminSettings are understood by every field type.
var CommonAdminSettings = []AdminSetting{
	{Name: "show_in_graphql", Label: "Show in GraphQL", Type: "true_false", Default: true,
		Instructions: "Whether the field should be queryable via GraphQL."},
	{Name: "graphql_description", Label: "GraphQL Description", Type: "text",
		Instructions: "The description of the field, shown in the GraphQL schema."},
	{Name: "graphql_field_name", Label: "GraphQL Field Name", Type: "text",
		Instructions: "The name of the field in the GraphQL schema. Must start with a letter and contain only letters, numbers and underscores."},
	{Name: "graphql_non_null", Label: "GraphQL Non-Null", Type: "true_false", Default: false,
		Instructions: "Whether the field should be Non-Null in the GraphQL schema."},
}

// FieldTypes is the plugin registry, keyed by type tag. The first
// registration of a tag wins.
type FieldTypes struct {
	mu    sync.RWMutex
	types map[string]*FieldType
}

// NewFieldTypes returns an empty plugin registry.
func NewFieldTypes() *FieldTypes {
	return &FieldTypes{types: make(map[string]*FieldType)}
}

// Register adds ft. It reports false, leaving the existing plugin in place,
// when ft.Name is empty or already registered.
func (t *FieldTypes) Register(ft *FieldType) bool {
	if ft == nil || ft.Name == "" {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.types[ft.Name]; ok {
		return false
	}
	t.types[ft.Name] = ft
	return true
}

// Get returns the plugin for a type tag.
func (t *FieldTypes) Get(name string) (*FieldType, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ft, ok := t.types[name]
	return ft, ok
}

// Names returns the registered tags in alphabetical order.
func (t *FieldTypes) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	names := make([]string, 0, len(t.types))
	for n := range t.types {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// AdminSettings returns the common settings not excluded by the plugin,
// followed by the plugin's own.
func (t *FieldTypes) AdminSettings(name string) ([]AdminSetting, bool) {
	ft, ok := t.Get(name)
	if !ok {
		return nil, false
	}
	excluded := make(map[string]bool, len(ft.ExcludeAdminFields))
	for _, n := range ft.ExcludeAdminFields {
		excluded[n] = true
	}
	var out []AdminSetting
	for _, s := range CommonAdminSettings {
		if !excluded[s.Name] {
			out = append(out, s)
		}
	}
	return append(out, ft.AdminFields...), true
}
