package customfield

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hanpama/contentgraph/internal/datasource"
)

// PreResolver may supply a field's value before blocks and the store are
// consulted. A nil result lets resolution continue.
type PreResolver func(ctx context.Context, root *Root, fc *FieldConfig) any

// ValueFilter post-processes a prepared value. Its result is final.
type ValueFilter func(ctx context.Context, value any, root *Root, fc *FieldConfig) any

// Resolver reads custom field values.
type Resolver struct {
	store        datasource.Store
	log          *zap.Logger
	preResolvers []PreResolver
	filters      []ValueFilter
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithResolverLogger sets the logger.
func WithResolverLogger(l *zap.Logger) ResolverOption { return func(r *Resolver) { r.log = l } }

// WithPreResolver appends a pre-resolution hook.
func WithPreResolver(p PreResolver) ResolverOption {
	return func(r *Resolver) { r.preResolvers = append(r.preResolvers, p) }
}

// WithValueFilter appends a value filter.
func WithValueFilter(f ValueFilter) ResolverOption {
	return func(r *Resolver) { r.filters = append(r.filters, f) }
}

// NewResolver returns a Resolver reading stored values from store, which may
// be nil.
func NewResolver(store datasource.Store, opts ...ResolverOption) *Resolver {
	r := &Resolver{store: store, log: zap.NewNop()}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Store returns the backing store.
func (r *Resolver) Store() datasource.Store { return r.store }

// ResolveValue finds the raw value of fc on root, prepares it for output and
// runs the value filters.
func (r *Resolver) ResolveValue(ctx context.Context, root *Root, fc *FieldConfig) (any, error) {
	v, err := r.lookup(ctx, root, fc)
	if err != nil {
		return nil, fmt.Errorf("resolve %s.%s: %w", fc.GroupTypeName, fc.GraphQLFieldName, err)
	}
	v = prepareValue(v, fc)
	for _, f := range r.filters {
		v = f(ctx, v, root, fc)
	}
	return v, nil
}

// lookup stops at the first of: the field key, a clone alias key, the
// "_name" reference, the plain name, a pre-resolver, block data, and
// finally the store.
func (r *Resolver) lookup(ctx context.Context, root *Root, fc *FieldConfig) (any, error) {
	if v, ok := root.value(fc.SourceFieldKey); ok {
		return v, nil
	}
	for _, k := range fc.CloneKeys {
		if v, ok := root.value(k); ok {
			return v, nil
		}
	}
	if v, ok := root.value("_" + fc.Name); ok {
		return v, nil
	}
	if v, ok := root.value(fc.Name); ok {
		return v, nil
	}
	for _, pre := range r.preResolvers {
		if v := pre(ctx, root, fc); v != nil {
			return v, nil
		}
	}
	if root.IsBlock() {
		data := root.blockData()
		if v := data[fc.Name]; v != nil {
			return v, nil
		}
		if fc.ParentName != "" {
			return data[fc.ParentName+"_"+fc.Name], nil
		}
		return nil, nil
	}
	if root.ID == "" || r.store == nil {
		return nil, nil
	}
	v, err := r.store.GetValue(ctx, fc.SourceFieldKey, root.ID, fc.FormatOnRead)
	if err != nil {
		r.log.Debug("stored value lookup failed",
			zap.String("key", fc.SourceFieldKey), zap.String("id", root.ID), zap.Error(err))
		return nil, err
	}
	return v, nil
}
