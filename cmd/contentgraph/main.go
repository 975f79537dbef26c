package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/hanpama/contentgraph/internal/app"
	"github.com/hanpama/contentgraph/internal/config"
	"github.com/hanpama/contentgraph/internal/customfield"
	"github.com/hanpama/contentgraph/internal/datasource"
	"github.com/hanpama/contentgraph/internal/eventbus"
	"github.com/hanpama/contentgraph/internal/logging"
	"github.com/hanpama/contentgraph/internal/metrics"
	"github.com/hanpama/contentgraph/internal/otel"
	"github.com/hanpama/contentgraph/internal/server"
)

const version = "0.1.0"

var configFlag = &cli.StringFlag{
	Name:    "config",
	Aliases: []string{"c"},
	Usage:   "path to the YAML configuration; built-in defaults when empty",
	EnvVars: []string{"CONTENTGRAPH_CONFIG"},
}

var logLevelFlag = &cli.StringFlag{
	Name:  "log-level",
	Usage: "override log.level from the configuration",
}

var serveCmd = &cli.Command{
	Name:  "serve",
	Usage: "serve the GraphQL endpoint over HTTP",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "addr", Usage: "override server.addr"},
		&cli.StringFlag{Name: "otel-endpoint", Usage: "override telemetry.otlp_endpoint", EnvVars: []string{"OTEL_EXPORTER_OTLP_ENDPOINT"}},
	},
	Action: serve,
}

var printSchemaCmd = &cli.Command{
	Name:  "print-schema",
	Usage: "print the schema in SDL",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "write to file instead of stdout"},
	},
	Action: func(c *cli.Context) error {
		cfg, log, err := setup(c)
		if err != nil {
			return err
		}
		a, err := app.Build(c.Context, cfg, datasource.NewMemoryStore(), log)
		if err != nil {
			return err
		}
		if out := c.String("out"); out != "" {
			return os.WriteFile(out, []byte(a.SDL), 0o644)
		}
		_, err = io.WriteString(c.App.Writer, a.SDL)
		return err
	},
}

var diagnosticsCmd = &cli.Command{
	Name:  "diagnostics",
	Usage: "list the non-fatal problems found while building the schema",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "json", Usage: "print diagnostics as JSON"},
		&cli.BoolFlag{Name: "strict", Usage: "exit with an error when any diagnostic is reported"},
	},
	Action: func(c *cli.Context) error {
		cfg, log, err := setup(c)
		if err != nil {
			return err
		}
		a, err := app.Build(c.Context, cfg, datasource.NewMemoryStore(), log)
		if err != nil {
			return err
		}
		if c.Bool("json") {
			enc := jsoniter.NewEncoder(c.App.Writer)
			enc.SetIndent("", "  ")
			if err := enc.Encode(a.Diagnostics); err != nil {
				return err
			}
		} else {
			for _, d := range a.Diagnostics {
				fmt.Fprintln(c.App.Writer, d.String())
			}
		}
		if c.Bool("strict") && len(a.Diagnostics) > 0 {
			return cli.Exit(fmt.Sprintf("%d schema diagnostics", len(a.Diagnostics)), 3)
		}
		return nil
	},
}

var fieldTypesCmd = &cli.Command{
	Name:  "field-types",
	Usage: "list the supported custom field types",
	Action: func(c *cli.Context) error {
		for _, name := range customfield.Builtins().Names() {
			fmt.Fprintln(c.App.Writer, name)
		}
		return nil
	},
}

var versionCmd = &cli.Command{
	Name:  "version",
	Usage: "print the version",
	Action: func(c *cli.Context) error {
		fmt.Fprintln(c.App.Writer, version)
		return nil
	},
}

func newApp() *cli.App {
	a := cli.NewApp()
	a.Name = "contentgraph"
	a.Usage = "GraphQL schema server for CMS content and custom fields"
	a.Version = version
	a.Flags = []cli.Flag{configFlag, logLevelFlag}
	a.Commands = []*cli.Command{
		serveCmd,
		printSchemaCmd,
		diagnosticsCmd,
		fieldTypesCmd,
		versionCmd,
	}
	return a
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		_, _ = fmt.Fprint(os.Stderr, err.Error()+"\n")
		os.Exit(1)
	}
}

// setup loads the configuration and builds the logger.
func setup(c *cli.Context) (*config.Config, *zap.Logger, error) {
	cfg := config.Default()
	if path := c.String(configFlag.Name); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, nil, err
		}
	}
	if lvl := c.String(logLevelFlag.Name); lvl != "" {
		cfg.Log.Level = lvl
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func serve(c *cli.Context) error {
	cfg, log, err := setup(c)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	if addr := c.String("addr"); addr != "" {
		cfg.Server.Addr = addr
	}
	if ep := c.String("otel-endpoint"); ep != "" {
		cfg.Telemetry.OTLPEndpoint = ep
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	eventbus.Use(eventbus.New())
	shutdownTracing, err := otel.Setup(cfg.Telemetry.OTLPEndpoint, cfg.Telemetry.ServiceName)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	var metricsHandler http.Handler
	if cfg.Telemetry.MetricsEnabled() {
		m := metrics.New()
		defer m.Subscribe(nil)()
		metricsHandler = m.Handler()
	}

	store, closeStore, err := app.OpenStore(ctx, cfg.Store, log)
	if err != nil {
		return err
	}
	defer func() { _ = closeStore() }()

	a, err := app.Build(ctx, cfg, store, log)
	if err != nil {
		return err
	}
	h, err := a.Handler()
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: server.NewRouter(server.RouterOptions{
			GraphQL: h,
			Metrics: metricsHandler,
			Ready:   func() error { return a.Ready(context.Background()) },
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", cfg.Server.Addr), zap.String("store", store.Name()))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
