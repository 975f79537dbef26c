// Package app assembles the schema of a contentgraph server from its
// configuration: the registry, the content model, custom field groups and
// the runtime executing against them.
package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hanpama/contentgraph/internal/config"
	"github.com/hanpama/contentgraph/internal/content"
	"github.com/hanpama/contentgraph/internal/customfield"
	"github.com/hanpama/contentgraph/internal/datasource"
	"github.com/hanpama/contentgraph/internal/eventbus"
	"github.com/hanpama/contentgraph/internal/events"
	"github.com/hanpama/contentgraph/internal/executor"
	"github.com/hanpama/contentgraph/internal/introspection"
	"github.com/hanpama/contentgraph/internal/mutation"
	"github.com/hanpama/contentgraph/internal/registry"
	"github.com/hanpama/contentgraph/internal/schema"
	"github.com/hanpama/contentgraph/internal/server"
)

// App is a built schema together with what produced it.
type App struct {
	Config   *config.Config
	Store    datasource.Store
	Registry *registry.Registry
	Content  *content.Builder
	Fields   *customfield.Registry
	// Schema is the executable schema. It includes the introspection types
	// when introspection is enabled.
	Schema *schema.Schema
	// SDL renders the schema without introspection types.
	SDL         string
	Runtime     executor.Runtime
	Diagnostics []registry.Diagnostic

	log *zap.Logger
}

// Build registers the configured content model and field groups and builds
// the schema. Non-fatal problems end up in Diagnostics.
func Build(ctx context.Context, cfg *config.Config, store datasource.Store, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}
	start := time.Now()
	a, err := build(cfg, store, log)
	types, diags := 0, 0
	if a != nil {
		types, diags = len(a.Schema.Types), len(a.Diagnostics)
	}
	eventbus.Publish(ctx, events.SchemaBuilt{Types: types, Diagnostics: diags, Duration: time.Since(start), Err: err})
	if err != nil {
		return nil, err
	}
	log.Info("schema built",
		zap.Int("types", types),
		zap.Int("diagnostics", diags),
		zap.Duration("took", time.Since(start)))
	return a, nil
}

func build(cfg *config.Config, store datasource.Store, log *zap.Logger) (*App, error) {
	opts := []registry.Option{
		registry.WithLogger(log.Named("registry")),
		registry.WithExclusions(registry.NewExclusionList(
			cfg.Schema.Exclude.Types, cfg.Schema.Exclude.Connections, cfg.Schema.Exclude.Mutations)),
	}
	if cfg.Schema.QueryType != "" || cfg.Schema.MutationType != "" {
		opts = append(opts, registry.WithRootTypes(
			orDefault(cfg.Schema.QueryType, registry.DefaultQueryType),
			orDefault(cfg.Schema.MutationType, registry.DefaultMutationType)))
	}
	reg := registry.New(opts...)

	hooks := &mutation.Hooks{Observers: []mutation.Observer{mutationLogger(log.Named("mutation"))}}
	cb, err := content.Register(reg, cfg.Content, store,
		content.WithMutationHooks(hooks),
		content.WithAuthRequired(cfg.Server.RequireAuth),
		content.WithLimits(cfg.Schema.Limits.Connection()))
	if err != nil {
		return nil, err
	}

	resolver := customfield.NewResolver(store, customfield.WithResolverLogger(log.Named("customfield")))
	fields := customfield.New(reg, customfield.Builtins(), resolver)
	if err := fields.RegisterFieldGroups(cfg.Groups); err != nil {
		return nil, fmt.Errorf("register field groups: %w", err)
	}

	s, err := reg.Schema()
	if err != nil {
		return nil, fmt.Errorf("build schema: %w", err)
	}
	a := &App{
		Config:      cfg,
		Store:       store,
		Registry:    reg,
		Content:     cb,
		Fields:      fields,
		Schema:      s,
		SDL:         schema.Render(s),
		Runtime:     reg.Runtime(),
		Diagnostics: reg.Diagnostics(),
		log:         log,
	}
	for _, d := range a.Diagnostics {
		log.Warn("schema diagnostic", zap.String("diagnostic", d.String()))
	}
	if cfg.Server.IntrospectionEnabled() {
		w := introspection.Wrap(a.Runtime, s)
		a.Runtime, a.Schema = w.Runtime, w.Schema
	}
	return a, nil
}

func mutationLogger(log *zap.Logger) mutation.Observer {
	return func(_ context.Context, o mutation.Observation) {
		if o.Err != nil {
			log.Info("mutation failed", zap.String("name", o.Name), zap.Error(o.Err), zap.Duration("took", o.Duration))
			return
		}
		log.Debug("mutation performed", zap.String("name", o.Name), zap.Duration("took", o.Duration))
	}
}

// RequestContext attaches a fresh loader and the viewer named by the bearer
// token, if any, to the context of one request.
func (a *App) RequestContext(ctx context.Context, r *http.Request) context.Context {
	ctx = datasource.WithLoader(ctx, datasource.NewLoader(a.Store))
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || token == "" {
		return ctx
	}
	if viewer, found := a.Config.Server.ViewerTokens[token]; found {
		return content.WithViewer(ctx, viewer)
	}
	return ctx
}

// Handler returns the GraphQL HTTP handler configured by the server section.
func (a *App) Handler() (*server.Handler, error) {
	sc := a.Config.Server
	opts := []server.Option{
		server.WithTimeout(sc.Timeout),
		server.WithMaxBodyBytes(sc.MaxBodyBytes),
		server.WithGraphiQL(sc.GraphiQLEnabled()),
		server.WithContext(a.RequestContext),
		server.WithLogger(a.log),
	}
	if sc.Pretty {
		opts = append(opts, server.WithPretty())
	}
	if len(sc.CORSOrigins) > 0 {
		opts = append(opts, server.WithCORS(sc.CORSOrigins...))
	}
	return server.New(a.Runtime, a.Schema, opts...)
}

// Ready checks that the store answers.
func (a *App) Ready(ctx context.Context) error {
	_, err := a.Store.LoadNodes(ctx, []string{datasource.GlobalID("Ping", 0)})
	return err
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
