// Package customfield maps host custom field groups onto the schema: one
// object type and fields interface per group, a WithAcf interface on every
// location type, and a value pipeline reading the stored field values.
package customfield

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/hanpama/contentgraph/internal/registry"
	"github.com/hanpama/contentgraph/internal/schema"
)

// FieldState is where a mapped field ended up.
type FieldState int

const (
	StateExcluded FieldState = iota + 1
	StateScalar
	StateConnection
	StateDropped
)

func (s FieldState) String() string {
	switch s {
	case StateExcluded:
		return "excluded"
	case StateScalar:
		return "scalar"
	case StateConnection:
		return "connection"
	case StateDropped:
		return "dropped"
	}
	return "unknown"
}

// Registry maps field groups onto a type registry.
type Registry struct {
	reg      *registry.Registry
	types    *FieldTypes
	resolver *Resolver
	log      *zap.Logger

	fieldsByKey map[string]Field
	groupsByKey map[string]FieldGroup
	typesReady  map[string]bool
	ledger      map[string]*FieldConfig
	states      map[string]FieldState
}

// New returns a Registry mapping fields with the given plugins and resolver.
func New(reg *registry.Registry, types *FieldTypes, resolver *Resolver) *Registry {
	if resolver == nil {
		resolver = NewResolver(nil)
	}
	return &Registry{
		reg:         reg,
		types:       types,
		resolver:    resolver,
		log:         reg.Logger(),
		fieldsByKey: make(map[string]Field),
		groupsByKey: make(map[string]FieldGroup),
		typesReady:  make(map[string]bool),
		ledger:      make(map[string]*FieldConfig),
		states:      make(map[string]FieldState),
	}
}

// TypeRegistry returns the underlying type registry.
func (r *Registry) TypeRegistry() *registry.Registry { return r.reg }

// Resolver returns the value resolver.
func (r *Registry) Resolver() *Resolver { return r.resolver }

// State reports what happened to the field named fieldName of groupType.
func (r *Registry) State(groupType, fieldName string) (FieldState, bool) {
	s, ok := r.states[ledgerKey(groupType, fieldName)]
	return s, ok
}

// RegisteredField returns a field mapped as a scalar or connection.
func (r *Registry) RegisteredField(groupType, fieldName string) (*FieldConfig, bool) {
	fc, ok := r.ledger[ledgerKey(groupType, fieldName)]
	return fc, ok
}

// RegisteredFields returns every field mapped as a scalar or connection,
// ordered by group type and field name.
func (r *Registry) RegisteredFields() []*FieldConfig {
	keys := make([]string, 0, len(r.ledger))
	for k := range r.ledger {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]*FieldConfig, len(keys))
	for i, k := range keys {
		out[i] = r.ledger[k]
	}
	return out
}

func ledgerKey(groupType, fieldName string) string {
	return registry.Key(groupType) + "." + fieldName
}

// RegisterFieldGroups registers each shown group. Problems with single
// fields are reported as diagnostics; errors are returned only for fatal
// registry conflicts.
func (r *Registry) RegisterFieldGroups(groups []FieldGroup) error {
	for _, g := range groups {
		r.groupsByKey[g.Key] = g
		r.indexFields(g.Fields)
	}
	if err := r.registerSharedInterfaces(); err != nil {
		return err
	}
	for _, g := range groups {
		if err := r.registerFieldGroup(g); err != nil {
			return fmt.Errorf("field group %s: %w", g.Key, err)
		}
	}
	return nil
}

func (r *Registry) indexFields(fields []Field) {
	for _, f := range fields {
		if f.Key != "" {
			r.fieldsByKey[f.Key] = f
		}
		r.indexFields(f.SubFields)
		for _, l := range f.Layouts {
			r.indexFields(l.SubFields)
		}
	}
}

func (r *Registry) registerSharedInterfaces() error {
	groupName := registry.Fields{
		"fieldGroupName": {Type: "String", Description: "The name of the field group"},
	}
	for _, cfg := range []registry.TypeConfig{
		{
			Name:        "AcfFieldGroup",
			Kind:        schema.TypeKindInterface,
			Description: "A Field Group managed by ACF",
			Fields:      registry.StaticFields(groupName),
		},
		{
			Name:        "AcfFieldGroupFields",
			Kind:        schema.TypeKindInterface,
			Description: "Fields associated with an ACF Field Group",
			Fields:      registry.StaticFields(groupName),
		},
	} {
		if _, err := r.reg.RegisterTypeIfAbsent(cfg); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) registerFieldGroup(g FieldGroup) error {
	if !shown(g.ShowInGraphQL) {
		r.log.Debug("field group hidden", zap.String("group", g.Key))
		return nil
	}
	typeName := g.TypeName()
	if !validName.MatchString(typeName) {
		r.reg.Report(registry.Diagnostic{
			Code:    registry.CodeInvalidArgument,
			Type:    typeName,
			Message: fmt.Sprintf("field group %s has no valid GraphQL name", g.Key),
		})
		return nil
	}
	if r.reg.Exclusions().IsTypeExcluded(typeName) {
		r.log.Debug("field group excluded", zap.String("group", g.Key), zap.String("type", typeName))
		return nil
	}
	description := g.Description
	if description == "" {
		description = fmt.Sprintf("Added by the %q field group", g.Title)
	}
	if err := r.registerGroupType(typeName, description, g.Fields, "", nil); err != nil {
		return err
	}
	if len(g.Locations) == 0 {
		return nil
	}

	withName := "WithAcf" + typeName
	if _, err := r.reg.RegisterTypeIfAbsent(registry.TypeConfig{
		Name:        withName,
		Kind:        schema.TypeKindInterface,
		Description: fmt.Sprintf("Provides access to fields of the %q ACF Field Group via the %q field", g.Title, g.FieldName()),
		Fields: registry.StaticFields(registry.Fields{
			g.FieldName(): {
				Type:        typeName,
				Description: fmt.Sprintf("Fields of the %s ACF Field Group", typeName),
				Resolve:     groupRootResolver(typeName),
			},
		}),
	}); err != nil {
		return err
	}
	for _, loc := range g.Locations {
		if err := r.reg.RegisterInterfaces(loc, withName); err != nil {
			r.reg.Report(registry.Diagnostic{
				Code:    registry.CodeUnresolvableInterface,
				Type:    loc,
				Message: fmt.Sprintf("cannot add %s: %v", withName, err),
			})
		}
	}
	return nil
}

// registerGroupType registers typeName and its {typeName}_Fields interface
// holding the mapped fields.
func (r *Registry) registerGroupType(typeName, description string, fields []Field, parentName string, extra []string) error {
	mapped := r.mapFields(typeName, parentName, fields)

	fieldsIface := typeName + "_Fields"
	if _, err := r.reg.RegisterTypeIfAbsent(registry.TypeConfig{
		Name:        fieldsIface,
		Kind:        schema.TypeKindInterface,
		Description: fmt.Sprintf("Interface representing fields of the ACF %q Field Group", typeName),
		Interfaces:  registry.Names("AcfFieldGroupFields"),
		Fields:      func() registry.Fields { return r.scalarFields(typeName, mapped) },
	}); err != nil {
		return err
	}
	ifaces := append(registry.Names("AcfFieldGroup", fieldsIface), registry.Names(extra...)...)
	if _, err := r.reg.RegisterTypeIfAbsent(registry.TypeConfig{
		Name:        typeName,
		Kind:        schema.TypeKindObject,
		Description: description,
		Interfaces:  ifaces,
	}); err != nil {
		return err
	}

	for _, fc := range mapped {
		if err := r.prepareField(fc); err != nil {
			return err
		}
		switch fc.GraphQLType() {
		case TypeConnection:
			r.record(fc, StateConnection)
		case TypeNull, "":
			r.record(fc, StateDropped)
		default:
			r.record(fc, StateScalar)
		}
	}
	for _, fc := range mapped {
		if fc.GraphQLType() != TypeConnection {
			continue
		}
		if fc.fieldType.RegisterConnection == nil {
			r.reg.Report(registry.Diagnostic{
				Code:    registry.CodeUnsupportedFieldKind,
				Type:    typeName,
				Field:   fc.GraphQLFieldName,
				Message: fmt.Sprintf("field type %q maps to a connection but cannot register one", fc.SourceFieldType),
			})
			continue
		}
		switch err := fc.fieldType.RegisterConnection(r, fc); {
		case errors.Is(err, registry.ErrDuplicateType):
			r.reg.Report(registry.Diagnostic{
				Code:    registry.CodeInvalidArgument,
				Type:    typeName,
				Field:   fc.GraphQLFieldName,
				Message: err.Error(),
			})
		case err != nil:
			return err
		}
	}
	return nil
}

// prepareField runs the plugin's one-time type registration, then its
// per-field one.
func (r *Registry) prepareField(fc *FieldConfig) error {
	ft := fc.fieldType
	if ft.RegisterTypes != nil && !r.typesReady[ft.Name] {
		r.typesReady[ft.Name] = true
		if err := ft.RegisterTypes(r); err != nil {
			return err
		}
	}
	if ft.PrepareField != nil {
		return ft.PrepareField(r, fc)
	}
	return nil
}

// scalarFields builds the interface's fields. It runs when the interface's
// fields are first needed, so plugin types may be registered later.
func (r *Registry) scalarFields(typeName string, mapped []*FieldConfig) registry.Fields {
	out := registry.Fields{
		"fieldGroupName": {
			Type:        "String",
			Description: "The name of the field group",
			Resolve:     constResolver(typeName),
		},
	}
	for _, fc := range mapped {
		if cfg := fc.GraphQLFieldConfig(); cfg != nil {
			out[fc.GraphQLFieldName] = cfg
		}
	}
	return out
}

func (r *Registry) record(fc *FieldConfig, state FieldState) {
	k := ledgerKey(fc.GroupTypeName, fc.GraphQLFieldName)
	r.states[k] = state
	switch state {
	case StateScalar, StateConnection:
		r.ledger[k] = fc
	}
}

// mapFields turns source fields into mapped fields, expanding clones and
// leaving out hidden, unsupported and duplicate fields.
func (r *Registry) mapFields(typeName, parentName string, fields []Field) []*FieldConfig {
	var out []*FieldConfig
	seen := make(map[string]bool)
	for _, e := range r.expandClones(fields, nil, map[string]bool{}) {
		f := e.field
		name := f.GraphQLFieldName
		if name == "" {
			name = camelCase(f.Name)
		}
		mf := MappedField{
			SourceFieldKey:   f.Key,
			SourceFieldType:  f.Type,
			Name:             f.Name,
			GraphQLFieldName: name,
			GroupTypeName:    typeName,
			FormatOnRead:     shown(f.FormatValue),
			CloneKeys:        e.cloneKeys,
			ParentName:       parentName,
		}
		if !shown(f.ShowInGraphQL) {
			r.states[ledgerKey(typeName, name)] = StateExcluded
			continue
		}
		ft, ok := r.types.Get(f.Type)
		if !ok {
			r.states[ledgerKey(typeName, name)] = StateExcluded
			r.reg.Report(registry.Diagnostic{
				Code:    registry.CodeUnsupportedFieldKind,
				Type:    typeName,
				Field:   name,
				Message: fmt.Sprintf("field type %q is not supported", f.Type),
			})
			continue
		}
		if !validName.MatchString(name) {
			r.states[ledgerKey(typeName, name)] = StateExcluded
			r.reg.Report(registry.Diagnostic{
				Code:    registry.CodeInvalidArgument,
				Type:    typeName,
				Field:   name,
				Message: fmt.Sprintf("field %s has no valid GraphQL name", f.Key),
			})
			continue
		}
		if seen[name] {
			r.reg.Report(registry.Diagnostic{
				Code:    registry.CodeDuplicateField,
				Type:    typeName,
				Field:   name,
				Message: fmt.Sprintf("field %s repeats the name %q; the first field is kept", f.Key, name),
			})
			continue
		}
		seen[name] = true
		out = append(out, &FieldConfig{MappedField: mf, Field: f, fieldType: ft, owner: r})
	}
	return out
}

type expandedField struct {
	field     Field
	cloneKeys []string
}

// expandClones replaces seamless clone fields by the fields they copy and
// group-display clones by a group field holding them.
func (r *Registry) expandClones(fields []Field, aliases []string, visiting map[string]bool) []expandedField {
	var out []expandedField
	for _, f := range fields {
		if f.Type != "clone" {
			out = append(out, expandedField{field: f, cloneKeys: aliases})
			continue
		}
		if visiting[f.Key] {
			r.reg.Report(registry.Diagnostic{
				Code:    registry.CodeInvalidArgument,
				Field:   f.Name,
				Message: fmt.Sprintf("clone field %s clones itself", f.Key),
			})
			continue
		}
		targets := r.cloneTargets(f)
		if f.Key != "" && r.contains(targets, f.Key, map[string]bool{}) {
			r.reg.Report(registry.Diagnostic{
				Code:    registry.CodeInvalidArgument,
				Field:   f.Name,
				Message: fmt.Sprintf("clone field %s copies fields that contain it", f.Key),
			})
			continue
		}
		visiting[f.Key] = true
		if f.Display == "group" {
			g := f
			g.Type = "group"
			g.Clone = nil
			g.SubFields = targets
			out = append(out, expandedField{field: g, cloneKeys: aliases})
		} else {
			for _, e := range r.expandClones(targets, nil, visiting) {
				keys := append([]string(nil), aliases...)
				keys = append(keys, f.Key+"_"+e.field.Key)
				keys = append(keys, e.cloneKeys...)
				out = append(out, expandedField{field: e.field, cloneKeys: keys})
			}
		}
		delete(visiting, f.Key)
	}
	return out
}

func (r *Registry) cloneTargets(f Field) []Field {
	var out []Field
	for _, key := range f.Clone {
		fields, ok := r.lookupClone(key)
		if !ok {
			r.reg.Report(registry.Diagnostic{
				Code:    registry.CodeInvalidArgument,
				Field:   f.Name,
				Message: fmt.Sprintf("clone field %s refers to unknown key %s", f.Key, key),
			})
			continue
		}
		out = append(out, fields...)
	}
	return out
}

func (r *Registry) lookupClone(key string) ([]Field, bool) {
	if g, ok := r.groupsByKey[key]; ok {
		return g.Fields, true
	}
	if target, ok := r.fieldsByKey[key]; ok {
		return []Field{target}, true
	}
	return nil, false
}

// contains reports whether the field key occurs in fields, their sub fields,
// their layouts or the fields their clones copy. Each clone is followed once.
func (r *Registry) contains(fields []Field, key string, followed map[string]bool) bool {
	for _, f := range fields {
		if f.Key == key {
			return true
		}
		if r.contains(f.SubFields, key, followed) {
			return true
		}
		for _, l := range f.Layouts {
			if r.contains(l.SubFields, key, followed) {
				return true
			}
		}
		if f.Type != "clone" || followed[f.Key] {
			continue
		}
		followed[f.Key] = true
		for _, k := range f.Clone {
			if targets, ok := r.lookupClone(k); ok && r.contains(targets, key, followed) {
				return true
			}
		}
	}
	return false
}
