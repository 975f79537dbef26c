package registry

// FieldPreparer rewrites a type's merged field set before it is sorted.
type FieldPreparer interface {
	PrepareFields(typeName string, fields Fields) Fields
}

// FieldPreparerFunc adapts a function to FieldPreparer.
type FieldPreparerFunc func(typeName string, fields Fields) Fields

func (f FieldPreparerFunc) PrepareFields(typeName string, fields Fields) Fields {
	return f(typeName, fields)
}

// InterfaceResolver filters the interfaces a type declares before they are
// resolved against the registry.
type InterfaceResolver interface {
	ResolveInterfaces(typeName string, declared []InterfaceRef) []InterfaceRef
}

// InterfaceResolverFunc adapts a function to InterfaceResolver.
type InterfaceResolverFunc func(typeName string, declared []InterfaceRef) []InterfaceRef

func (f InterfaceResolverFunc) ResolveInterfaces(typeName string, declared []InterfaceRef) []InterfaceRef {
	return f(typeName, declared)
}

// AddFieldPreparer registers a preparer that runs for every type.
func (r *Registry) AddFieldPreparer(p FieldPreparer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.preparers = append(r.preparers, p)
}

// AddTypeFieldPreparer registers a preparer for one type. Type-specific
// preparers run after all-type preparers.
func (r *Registry) AddTypeFieldPreparer(typeName string, p FieldPreparer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := Key(typeName)
	r.typePreparers[k] = append(r.typePreparers[k], p)
}

// AddInterfaceResolver registers a filter over declared interfaces.
func (r *Registry) AddInterfaceResolver(ir InterfaceResolver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ifaceResolvers = append(r.ifaceResolvers, ir)
}

// PrepareFields runs the all-type preparers, then the preparers registered
// for owner, and returns the fields sorted by name.
func (r *Registry) PrepareFields(owner string, fields Fields) []*FieldConfig {
	r.mu.RLock()
	all := append([]FieldPreparer(nil), r.preparers...)
	specific := append([]FieldPreparer(nil), r.typePreparers[Key(owner)]...)
	r.mu.RUnlock()

	for _, p := range all {
		fields = p.PrepareFields(owner, fields)
	}
	for _, p := range specific {
		fields = p.PrepareFields(owner, fields)
	}
	return sortFields(fields)
}
