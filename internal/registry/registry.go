// Package registry holds the type registry the schema is assembled from.
//
// Types are registered by name and their fields are produced by thunks that run
// lazily, at most once, the first time the fields are needed. Field types and
// interfaces are referenced by name, so registration order does not matter.
// Problems that only reduce schema coverage are reported as Diagnostics;
// authoring errors such as duplicate type names are returned as errors.
package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	eventbus "github.com/hanpama/contentgraph/internal/eventbus"
	events "github.com/hanpama/contentgraph/internal/events"
	schema "github.com/hanpama/contentgraph/internal/schema"
)

const (
	DefaultQueryType    = "RootQuery"
	DefaultMutationType = "RootMutation"
)

// Key normalizes a type name to its registry key.
func Key(name string) string { return strings.ToLower(name) }

// UcFirst upper-cases the first letter of s, as used when deriving type names
// from field names.
func UcFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// LcFirst lower-cases the first letter of s.
func LcFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// Registry is a name-keyed store of lazily built types. Each schema build owns
// its own Registry.
type Registry struct {
	log        *zap.Logger
	exclusions Exclusions
	query      string
	mutation   string

	mu             sync.RWMutex
	types          map[string]*Type
	pending        map[string]Fields // post-hoc fields registered before their type
	pendingIfaces  map[string][]InterfaceRef
	preparers      []FieldPreparer
	typePreparers  map[string][]FieldPreparer
	ifaceResolvers []InterfaceResolver
	connections    map[string]string

	diagMu      sync.Mutex
	diagnostics []Diagnostic

	buildOnce sync.Once
	built     *schema.Schema
	buildErr  error
}

type Option func(*Registry)

func WithLogger(l *zap.Logger) Option { return func(r *Registry) { r.log = l } }

func WithExclusions(e Exclusions) Option { return func(r *Registry) { r.exclusions = e } }

// WithRootTypes overrides the root operation type names.
func WithRootTypes(query, mutation string) Option {
	return func(r *Registry) {
		r.query = query
		r.mutation = mutation
	}
}

// New returns a registry with the built-in scalars registered.
func New(opts ...Option) *Registry {
	r := &Registry{
		log:           zap.NewNop(),
		exclusions:    (*ExclusionList)(nil),
		query:         DefaultQueryType,
		mutation:      DefaultMutationType,
		types:         make(map[string]*Type),
		pending:       make(map[string]Fields),
		pendingIfaces: make(map[string][]InterfaceRef),
		typePreparers: make(map[string][]FieldPreparer),
		connections:   make(map[string]string),
	}
	for _, o := range opts {
		o(r)
	}
	for _, scalar := range schema.BuiltinScalars() {
		r.types[Key(scalar.Name)] = newType(r, TypeConfig{
			Name:        scalar.Name,
			Kind:        schema.TypeKindScalar,
			Description: scalar.Description,
		})
	}
	return r
}

func (r *Registry) Logger() *zap.Logger      { return r.log }
func (r *Registry) Exclusions() Exclusions   { return r.exclusions }
func (r *Registry) QueryTypeName() string    { return r.query }
func (r *Registry) MutationTypeName() string { return r.mutation }

// RegisterType adds a type. A second registration under the same
// case-insensitive name fails with ErrDuplicateType. Excluded types are
// skipped without error.
func (r *Registry) RegisterType(cfg TypeConfig) error {
	if cfg.Name == "" {
		return fmt.Errorf("%w: type name is required", ErrInvalidArgument)
	}
	if cfg.Kind == "" {
		return fmt.Errorf("%w: type %s has no kind", ErrInvalidArgument, cfg.Name)
	}
	if r.exclusions.IsTypeExcluded(cfg.Name) {
		r.log.Debug("type excluded from schema", zap.String("type", cfg.Name))
		return nil
	}
	k := Key(cfg.Name)

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.types[k]; ok {
		return fmt.Errorf("%w: %s (already registered as %s)", ErrDuplicateType, cfg.Name, existing.Name())
	}
	t := newType(r, cfg)
	if extras, ok := r.pending[k]; ok {
		t.extras = extras
		delete(r.pending, k)
	}
	if refs, ok := r.pendingIfaces[k]; ok {
		t.extraIfaces = refs
		delete(r.pendingIfaces, k)
	}
	r.types[k] = t
	return nil
}

// RegisterTypeIfAbsent registers cfg unless a type with its name exists.
// It reports whether the type was added.
func (r *Registry) RegisterTypeIfAbsent(cfg TypeConfig) (bool, error) {
	if r.HasType(cfg.Name) {
		r.log.Debug("type already registered", zap.String("type", cfg.Name))
		return false, nil
	}
	if err := r.RegisterType(cfg); err != nil {
		return false, err
	}
	return r.HasType(cfg.Name), nil
}

// GetType looks a type up by case-insensitive name.
func (r *Registry) GetType(name string) (*Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[Key(name)]
	return t, ok
}

func (r *Registry) HasType(name string) bool {
	_, ok := r.GetType(name)
	return ok
}

// Types returns all registered types sorted by name.
func (r *Registry) Types() []*Type {
	r.mu.RLock()
	out := make([]*Type, 0, len(r.types))
	for _, t := range r.types {
		out = append(out, t)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// RegisterField adds a field to typeName after registration. The type may be
// registered later. It fails with ErrDuplicateField when the field was already
// added this way, and with ErrFieldsResolved once the type's fields have been
// evaluated.
func (r *Registry) RegisterField(typeName, fieldName string, cfg *FieldConfig) error {
	if typeName == "" || fieldName == "" || cfg == nil {
		return fmt.Errorf("%w: type name, field name and config are required", ErrInvalidArgument)
	}
	if r.exclusions.IsTypeExcluded(typeName) {
		return nil
	}
	cfg = cfg.clone()
	cfg.Name = fieldName

	r.mu.Lock()
	t, ok := r.types[Key(typeName)]
	if !ok {
		defer r.mu.Unlock()
		k := Key(typeName)
		if _, dup := r.pending[k][fieldName]; dup {
			return fmt.Errorf("%w: %s.%s", ErrDuplicateField, typeName, fieldName)
		}
		if r.pending[k] == nil {
			r.pending[k] = Fields{}
		}
		r.pending[k][fieldName] = cfg
		return nil
	}
	r.mu.Unlock()
	return t.addField(fieldName, cfg)
}

// RegisterFields adds several fields with RegisterField and stops at the
// first error.
func (r *Registry) RegisterFields(typeName string, fields Fields) error {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := r.RegisterField(typeName, name, fields[name]); err != nil {
			return err
		}
	}
	return nil
}

// DeregisterField removes a field from typeName, including fields declared by
// the type's thunk. Registering the same name again afterwards replaces it.
func (r *Registry) DeregisterField(typeName, fieldName string) error {
	r.mu.Lock()
	t, ok := r.types[Key(typeName)]
	if !ok {
		defer r.mu.Unlock()
		if p := r.pending[Key(typeName)]; p != nil {
			delete(p, fieldName)
			return nil
		}
		return fmt.Errorf("%w: %s", ErrUnknownType, typeName)
	}
	r.mu.Unlock()
	return t.removeField(fieldName)
}

// RegisterInterfaces makes typeName implement the named interfaces in
// addition to the ones it declared.
func (r *Registry) RegisterInterfaces(typeName string, names ...string) error {
	r.mu.Lock()
	t, ok := r.types[Key(typeName)]
	if !ok {
		defer r.mu.Unlock()
		k := Key(typeName)
		r.pendingIfaces[k] = append(r.pendingIfaces[k], Names(names...)...)
		return nil
	}
	r.mu.Unlock()
	return t.addInterfaces(Names(names...))
}

// RecordConnection remembers that fromType.fieldName resolves to the
// connection type connectionName. It reports false when the pair was already
// recorded.
func (r *Registry) RecordConnection(fromType, fieldName, connectionName string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := Key(fromType) + "." + fieldName
	if _, ok := r.connections[k]; ok {
		return false
	}
	r.connections[k] = connectionName
	return true
}

// LookupConnection returns the connection type recorded for fromType.fieldName.
func (r *Registry) LookupConnection(fromType, fieldName string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.connections[Key(fromType)+"."+fieldName]
	return name, ok
}

// Report records a diagnostic, logs it and publishes it on the event bus.
func (r *Registry) Report(d Diagnostic) {
	r.diagMu.Lock()
	r.diagnostics = append(r.diagnostics, d)
	r.diagMu.Unlock()

	r.log.Warn("schema diagnostic",
		zap.String("code", string(d.Code)),
		zap.String("type", d.Type),
		zap.String("field", d.Field),
		zap.String("message", d.Message),
	)
	eventbus.Publish(context.Background(), events.SchemaDiagnostic{
		Code:    string(d.Code),
		Type:    d.Type,
		Field:   d.Field,
		Message: d.Message,
	})
}

func (r *Registry) reportf(code Code, typeName, fieldName, format string, args ...any) {
	r.Report(Diagnostic{Code: code, Type: typeName, Field: fieldName, Message: fmt.Sprintf(format, args...)})
}

// Diagnostics returns the problems reported so far.
func (r *Registry) Diagnostics() []Diagnostic {
	r.diagMu.Lock()
	defer r.diagMu.Unlock()
	return append([]Diagnostic(nil), r.diagnostics...)
}

// resolvable reports whether every named type in typ is registered. Excluded
// types are reported as unresolvable without a diagnostic.
func (r *Registry) resolvable(typ string) (ok bool, excluded bool) {
	ref, err := schema.ParseTypeRef(typ)
	if err != nil {
		return false, false
	}
	named := ref.GetNamedType()
	if r.HasType(named) {
		return true, false
	}
	return false, r.exclusions.IsTypeExcluded(named)
}

func sortFields(fields Fields) []*FieldConfig {
	out := make([]*FieldConfig, 0, len(fields))
	for name, f := range fields {
		if f == nil {
			continue
		}
		f.Name = name
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// normalizeTypeString renders GraphQL type notation without incidental
// whitespace so "[ String! ]" and "[String!]" compare equal.
func normalizeTypeString(typ string) string {
	if ref, err := schema.ParseTypeRef(typ); err == nil {
		return ref.String()
	}
	return strings.Join(strings.Fields(typ), "")
}
