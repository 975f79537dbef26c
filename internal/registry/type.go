package registry

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	schema "github.com/hanpama/contentgraph/internal/schema"
)

// Type is a registered named type. Its field set is computed on first use and
// memoized.
type Type struct {
	reg *Registry
	cfg TypeConfig

	mu          sync.Mutex
	extras      Fields
	removed     map[string]struct{}
	extraIfaces []InterfaceRef
	ownDone     bool

	ownOnce    sync.Once
	own        Fields
	ifaceOnce  sync.Once
	ifaces     []*Type
	fieldsOnce sync.Once
	fields     []*FieldConfig
}

func newType(r *Registry, cfg TypeConfig) *Type {
	return &Type{reg: r, cfg: cfg, removed: make(map[string]struct{})}
}

func (t *Type) Name() string                     { return t.cfg.Name }
func (t *Type) Kind() schema.TypeKind            { return t.cfg.Kind }
func (t *Type) Description() string              { return t.cfg.Description }
func (t *Type) Config() TypeConfig               { return t.cfg }
func (t *Type) ResolveTypeFunc() ResolveTypeFunc { return t.cfg.ResolveType }

func (t *Type) addField(name string, cfg *FieldConfig) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ownDone {
		if _, exists := t.own[name]; exists {
			return fmt.Errorf("%w: %s.%s", ErrDuplicateField, t.Name(), name)
		}
		return fmt.Errorf("%w: cannot add %s.%s", ErrFieldsResolved, t.Name(), name)
	}
	if _, exists := t.extras[name]; exists {
		return fmt.Errorf("%w: %s.%s", ErrDuplicateField, t.Name(), name)
	}
	if t.extras == nil {
		t.extras = Fields{}
	}
	t.extras[name] = cfg
	return nil
}

func (t *Type) removeField(name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ownDone {
		return fmt.Errorf("%w: cannot remove %s.%s", ErrFieldsResolved, t.Name(), name)
	}
	delete(t.extras, name)
	t.removed[name] = struct{}{}
	return nil
}

func (t *Type) addInterfaces(refs []InterfaceRef) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ownDone {
		return fmt.Errorf("%w: cannot add interfaces to %s", ErrFieldsResolved, t.Name())
	}
	t.extraIfaces = append(t.extraIfaces, refs...)
	return nil
}

func (t *Type) declaredInterfaces() []InterfaceRef {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]InterfaceRef, 0, len(t.cfg.Interfaces)+len(t.extraIfaces))
	out = append(out, t.cfg.Interfaces...)
	return append(out, t.extraIfaces...)
}

// ownFields evaluates the thunk and applies post-hoc additions and removals.
// Interface fields are not included.
func (t *Type) ownFields() Fields {
	t.ownOnce.Do(func() {
		var declared Fields
		if t.cfg.Fields != nil {
			declared = t.cfg.Fields()
		}

		t.mu.Lock()
		defer t.mu.Unlock()
		own := make(Fields, len(declared)+len(t.extras))
		for name, f := range declared {
			if f == nil {
				continue
			}
			if _, gone := t.removed[name]; gone {
				continue
			}
			c := f.clone()
			c.Name = name
			own[name] = c
		}
		for name, f := range t.extras {
			if _, exists := own[name]; exists {
				t.reg.reportf(CodeDuplicateField, t.Name(), name, "field is declared by the type and registered again; the declared field is kept")
				continue
			}
			own[name] = f.clone()
		}
		t.own = own
		t.ownDone = true
	})
	return t.own
}

// Interfaces returns the resolved interfaces of an object or interface type.
func (t *Type) Interfaces() []*Type {
	t.ifaceOnce.Do(func() {
		if !t.cfg.Kind.HasFields() {
			return
		}
		t.ifaces = t.reg.resolveInterfaces(t, t.declaredInterfaces())
	})
	return t.ifaces
}

// InterfaceNames returns the names of Interfaces().
func (t *Type) InterfaceNames() []string {
	ifaces := t.Interfaces()
	names := make([]string, len(ifaces))
	for i, iface := range ifaces {
		names[i] = iface.Name()
	}
	return names
}

// Fields returns the complete field set sorted by name: own fields merged with
// interface fields, passed through the field preparers, with fields of
// unresolvable types dropped.
func (t *Type) Fields() []*FieldConfig {
	t.fieldsOnce.Do(func() {
		fields := t.ownFields()
		if t.cfg.Kind.HasFields() {
			fields = t.reg.mergeInterfaceFields(t, fields, t.Interfaces())
		} else {
			fields = copyFields(fields)
		}
		prepared := t.reg.PrepareFields(t.Name(), fields)
		out := prepared[:0]
		for _, f := range prepared {
			if t.reg.keepField(t, f) {
				out = append(out, f)
			}
		}
		t.fields = out
	})
	return t.fields
}

// Field returns the named field from Fields().
func (t *Type) Field(name string) (*FieldConfig, bool) {
	for _, f := range t.Fields() {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

func (r *Registry) keepField(owner *Type, f *FieldConfig) bool {
	if f.Type == "" {
		r.reportf(CodeUnresolvableFieldType, owner.Name(), f.Name, "field has no type and is dropped")
		return false
	}
	ok, excluded := r.resolvable(f.Type)
	if ok {
		for _, name := range f.ArgNames() {
			if argOK, _ := r.resolvable(f.Args[name].Type); !argOK {
				r.reportf(CodeUnresolvableFieldType, owner.Name(), f.Name, "argument %s has unresolvable type %q; field is dropped", name, f.Args[name].Type)
				return false
			}
		}
		return true
	}
	if excluded {
		r.log.Debug("field dropped: type excluded", zap.String("type", owner.Name()), zap.String("field", f.Name), zap.String("fieldType", f.Type))
		return false
	}
	r.reportf(CodeUnresolvableFieldType, owner.Name(), f.Name, "type %q cannot be resolved; field is dropped", f.Type)
	return false
}

func copyFields(fields Fields) Fields {
	out := make(Fields, len(fields))
	for name, f := range fields {
		out[name] = f.clone()
	}
	return out
}

// resolveInterfaces resolves declared interface references of owner. Each
// direct interface is followed by the interfaces it declares itself (one hop).
// Missing, non-interface and self references are reported and skipped.
// Results are de-duplicated by name in insertion order.
func (r *Registry) resolveInterfaces(owner *Type, declared []InterfaceRef) []*Type {
	r.mu.RLock()
	resolvers := append([]InterfaceResolver(nil), r.ifaceResolvers...)
	r.mu.RUnlock()
	for _, ir := range resolvers {
		declared = ir.ResolveInterfaces(owner.Name(), declared)
	}

	var out []*Type
	seen := make(map[string]struct{})
	add := func(iface *Type) {
		k := Key(iface.Name())
		if _, dup := seen[k]; dup {
			return
		}
		seen[k] = struct{}{}
		out = append(out, iface)
	}

	for _, ref := range declared {
		iface, ok := r.lookupInterface(owner, ref, true)
		if !ok {
			continue
		}
		add(iface)
		for _, parent := range iface.declaredInterfaces() {
			if Key(parent.name()) == Key(owner.Name()) {
				continue
			}
			if p, ok := r.lookupInterface(owner, parent, true); ok {
				add(p)
			}
		}
	}
	return out
}

func (r *Registry) lookupInterface(owner *Type, ref InterfaceRef, report bool) (*Type, bool) {
	name := ref.name()
	if Key(name) == Key(owner.Name()) {
		if report {
			r.reportf(CodeUnresolvableInterface, owner.Name(), "", "type cannot implement itself")
		}
		return nil, false
	}
	if ref.Def != nil {
		return ref.Def, true
	}
	iface, ok := r.GetType(name)
	if !ok {
		if report && !r.exclusions.IsTypeExcluded(name) {
			r.reportf(CodeUnresolvableInterface, owner.Name(), "", "interface %q is not registered", name)
		}
		return nil, false
	}
	if iface.Kind() != schema.TypeKindInterface {
		if report {
			r.reportf(CodeUnresolvableInterface, owner.Name(), "", "%q is a %s, not an interface", iface.Name(), iface.Kind())
		}
		return nil, false
	}
	return iface, true
}

// mergeInterfaceFields copies interface fields missing on the owner, backfills
// attributes the owner's field leaves empty, and merges arguments. An argument
// declared on both with different types keeps the owner's definition and is
// reported.
func (r *Registry) mergeInterfaceFields(owner *Type, own Fields, ifaces []*Type) Fields {
	merged := copyFields(own)
	for _, iface := range ifaces {
		for name, inherited := range iface.ownFields() {
			field, ok := merged[name]
			if !ok {
				merged[name] = inherited.clone()
				continue
			}
			backfillField(field, inherited)
			r.mergeArgs(owner, field, inherited)
		}
	}
	return merged
}

func backfillField(field, inherited *FieldConfig) {
	if field.Type == "" {
		field.Type = inherited.Type
	}
	if field.Description == "" {
		field.Description = inherited.Description
	}
	if field.DeprecationReason == "" {
		field.DeprecationReason = inherited.DeprecationReason
	}
	if field.Resolve == nil && inherited.Resolve != nil {
		field.Resolve = inherited.Resolve
		field.Async = inherited.Async
	}
}

func (r *Registry) mergeArgs(owner *Type, field, inherited *FieldConfig) {
	for _, argName := range inherited.ArgNames() {
		iarg := inherited.Args[argName]
		carg, ok := field.Args[argName]
		if !ok {
			if field.Args == nil {
				field.Args = make(map[string]*ArgConfig)
			}
			a := *iarg
			field.Args[argName] = &a
			continue
		}
		if carg.Type == "" {
			carg.Type = iarg.Type
			continue
		}
		if normalizeTypeString(carg.Type) != normalizeTypeString(iarg.Type) {
			r.reportf(CodeArgumentTypeMismatch, owner.Name(), field.Name,
				"argument %s is %s on the type but %s on the interface; the type's definition is kept",
				argName, carg.Type, iarg.Type)
		}
		if carg.Description == "" {
			carg.Description = iarg.Description
		}
	}
}
