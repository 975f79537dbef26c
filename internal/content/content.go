// Package content registers the host content model on a schema registry:
// node interfaces, one object per post type and taxonomy, media items and
// users, the root queries and connections reading them, and the create,
// update and delete mutations of each post type.
package content

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/hanpama/contentgraph/internal/connection"
	"github.com/hanpama/contentgraph/internal/datasource"
	"github.com/hanpama/contentgraph/internal/mutation"
	"github.com/hanpama/contentgraph/internal/registry"
)

// ErrUnauthorized rejects mutations without a viewer when authentication is
// required.
var ErrUnauthorized = errors.New("not authorized")

const (
	mediaItemType = "MediaItem"
	userType      = "User"
)

// Builder registers one content model. It is returned by Register so callers
// can inspect what was registered.
type Builder struct {
	reg         *registry.Registry
	store       datasource.Store
	model       Model
	hooks       *mutation.Hooks
	requireAuth bool
	limits      connection.Limits
	log         *zap.Logger

	// typeEnum maps ContentTypeEnum and TaxonomyEnum names to type names.
	typeEnum  map[string]string
	mutations []*mutation.Mutation
}

// Option configures Register.
type Option func(*Builder)

// WithMutationHooks runs h around every content mutation.
func WithMutationHooks(h *mutation.Hooks) Option { return func(b *Builder) { b.hooks = h } }

// WithAuthRequired rejects content mutations made without a viewer.
func WithAuthRequired(required bool) Option { return func(b *Builder) { b.requireAuth = required } }

// WithLimits bounds the page size of content connections.
func WithLimits(l connection.Limits) Option { return func(b *Builder) { b.limits = l } }

// Register registers model on reg, reading content from store. Mutations are
// registered only when store also implements datasource.Writer.
func Register(reg *registry.Registry, model Model, store datasource.Store, opts ...Option) (*Builder, error) {
	if err := model.Validate(); err != nil {
		return nil, fmt.Errorf("%w: content model: %w", registry.ErrInvalidArgument, err)
	}
	if store == nil {
		return nil, fmt.Errorf("%w: content model requires a store", registry.ErrInvalidArgument)
	}
	b := &Builder{
		reg:      reg,
		store:    store,
		model:    model,
		limits:   connection.DefaultLimits,
		typeEnum: map[string]string{},
		log:      reg.Logger().Named("content"),
	}
	for _, opt := range opts {
		opt(b)
	}

	for _, step := range []struct {
		name string
		run  func() error
	}{
		{"interfaces", b.registerInterfaces},
		{"enums", b.registerEnums},
		{"root query", b.registerRootQuery},
		{"media items", b.registerMediaItem},
		{"users", b.registerUser},
		{"taxonomies", b.registerTaxonomies},
		{"post types", b.registerPostTypes},
		{"root connections", b.registerRootConnections},
		{"mutations", b.registerMutations},
	} {
		if err := step.run(); err != nil {
			return nil, fmt.Errorf("register %s: %w", step.name, err)
		}
	}
	b.log.Debug("content model registered",
		zap.Int("postTypes", len(model.PostTypes)),
		zap.Int("taxonomies", len(model.Taxonomies)),
		zap.Int("mutations", len(b.mutations)))
	return b, nil
}

// Mutations returns the registered content mutations.
func (b *Builder) Mutations() []*mutation.Mutation { return b.mutations }

// loader returns the request loader, or a fresh one outside a request.
func (b *Builder) loader(ctx context.Context) *datasource.Loader {
	if l, ok := datasource.LoaderFrom(ctx); ok {
		return l
	}
	return datasource.NewLoader(b.store)
}

func (b *Builder) excluded(typeName string) bool {
	return b.reg.Exclusions().IsTypeExcluded(typeName)
}

func (b *Builder) visiblePostTypes() []PostType {
	var out []PostType
	for _, p := range b.model.PostTypes {
		if shown(p.ShowInGraphQL) && !b.excluded(p.TypeName()) {
			out = append(out, p)
		}
	}
	return out
}

func (b *Builder) visibleTaxonomies() []Taxonomy {
	var out []Taxonomy
	for _, t := range b.model.Taxonomies {
		if shown(t.ShowInGraphQL) && !b.excluded(t.TypeName()) {
			out = append(out, t)
		}
	}
	return out
}
